// Package logger es el logger zap compartido por el CLI, el engine y los stores.
//
// Un singleton se inicializa una vez con Init; los componentes toman un hijo con
// Named("store"), Named("lifecycle"), etc. Los middlewares HTTP guardan un logger
// con request_id en el contexto y From(ctx) lo recupera.
//
//	logger.Init(logger.Config{Env: cfg.App.Env, Level: cfg.App.LogLevel, ServiceName: "connkeeper"})
//	defer logger.Sync()
//
//	log := logger.Named("lifecycle")
//	log.Info("token refreshed", logger.UserID(id), logger.Platform("youtube"))
//
// Los identificadores y tokens nunca se loguean en claro: Identifier y Secret los enmascaran.
package logger
