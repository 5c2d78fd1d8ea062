package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/dropDatabas3/connkeeper/internal/app"
	"github.com/dropDatabas3/connkeeper/internal/config"
	"github.com/dropDatabas3/connkeeper/internal/domain/repository"
	"github.com/dropDatabas3/connkeeper/internal/observability/logger"
)

// version se pisa en build con -ldflags "-X main.version=...".
var version = "dev"

// cli guarda flags globales y el container armado en PersistentPreRunE.
type cli struct {
	configPath string
	store      string
	timeout    time.Duration
	stdout     io.Writer

	c *app.Container
}

func main() {
	_ = godotenv.Load(".env")     // base
	_ = godotenv.Load(".env.dev") // dev overrides

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	st := &cli{stdout: os.Stdout}
	err := newRootCmd(st).ExecuteContext(ctx)
	st.close()
	if err != nil {
		fmt.Fprintln(os.Stderr, err.Error())
		os.Exit(1)
	}
}

func newRootCmd(st *cli) *cobra.Command {
	root := &cobra.Command{
		Use:           "connkeeper",
		Version:       version,
		Short:         "Salud y ciclo de vida de credenciales OAuth por usuario",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(st.configPath)
			if err != nil {
				return err
			}
			logger.Init(logger.Config{Env: cfg.App.Env, Level: cfg.App.LogLevel, ServiceName: "connkeeper", Version: version})
			c, err := app.Build(cmd.Context(), cfg, app.Options{Logger: logger.L()})
			if err != nil {
				return err
			}
			st.c = c
			return nil
		},
	}

	root.PersistentFlags().StringVar(&st.configPath, "config", envOr("CONNKEEPER_CONFIG", ""), "Archivo YAML de configuración (env CONNKEEPER_CONFIG). Vacío => defaults + env")
	root.PersistentFlags().StringVar(&st.store, "store", envOr("CONNKEEPER_STORE", ""), "Store preferido para resolver: primary|secondary (vacío = orden configurado)")
	root.PersistentFlags().DurationVar(&st.timeout, "timeout", 60*time.Second, "Timeout total de la operación")

	root.AddCommand(
		resolveCmd(st),
		connectionsCmd(st),
		healthCmd(st),
		refreshCmd(st),
		repairCmd(st),
		migrationCmd(st),
		disconnectCmd(st),
		syncCmd(st),
		serveCmd(st),
	)
	return root
}

func loadConfig(path string) (*config.Config, error) {
	if strings.TrimSpace(path) == "" {
		return config.FromEnv()
	}
	return config.Load(path)
}

// close libera el container aunque el comando haya fallado.
func (st *cli) close() {
	_ = logger.Sync()
	if st.c != nil {
		if err := st.c.Close(); err != nil {
			logger.L().Warn("close failed", logger.Err(err))
		}
	}
}

// opCtx acota la operación con --timeout.
func (st *cli) opCtx(cmd *cobra.Command) (context.Context, context.CancelFunc) {
	return context.WithTimeout(cmd.Context(), st.timeout)
}

// resolve busca al usuario respetando --store.
func (st *cli) resolve(ctx context.Context, identifier string) (*repository.UserRecord, error) {
	preferred, err := repository.ParseStoreTag(st.store)
	if err != nil {
		return nil, err
	}
	return st.c.Engine.ResolveUser(ctx, identifier, preferred)
}

func (st *cli) print(v any) error {
	enc := json.NewEncoder(st.stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func envOr(k, def string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return def
}
