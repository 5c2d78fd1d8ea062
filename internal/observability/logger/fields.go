package logger

import (
	"time"

	"go.uber.org/zap"

	"github.com/dropDatabas3/connkeeper/internal/util"
)

// =================================================================================
// CAMPOS ESTÁNDAR - HTTP
// =================================================================================

// RequestID crea un campo para el ID del request.
func RequestID(v string) zap.Field {
	return zap.String("request_id", v)
}

// Method crea un campo para el método HTTP.
func Method(v string) zap.Field {
	return zap.String("method", v)
}

// Path crea un campo para el path del request.
func Path(v string) zap.Field {
	return zap.String("path", v)
}

// HTTPStatus crea un campo para el status code HTTP.
func HTTPStatus(v int) zap.Field {
	return zap.Int("http_status", v)
}

// Duration crea un campo para la duración de una operación.
func Duration(v time.Duration) zap.Field {
	return zap.Duration("duration", v)
}

// =================================================================================
// CAMPOS ESTÁNDAR - CREDENCIALES
// =================================================================================

// UserID crea un campo para el ID nativo del usuario.
func UserID(v string) zap.Field {
	return zap.String("user_id", v)
}

// Identifier crea un campo para el identificador que usó el caller (id, username o email).
// Se loguea enmascarado.
func Identifier(v string) zap.Field {
	return zap.String("identifier", util.MaskEmail(v))
}

// Secret loguea sólo la cola de un token.
func Secret(key, v string) zap.Field {
	return zap.String(key, util.MaskSecret(v))
}

// Platform crea un campo para la plataforma OAuth.
func Platform(v string) zap.Field {
	return zap.String("platform", v)
}

// Store crea un campo para el store de usuarios (primary/secondary).
func Store(v string) zap.Field {
	return zap.String("store", v)
}

// Status crea un campo para el estado de salud de una conexión.
func Status(v string) zap.Field {
	return zap.String("status", v)
}

// ReportID crea un campo para el ID de un reporte (health/repair/migration).
func ReportID(v string) zap.Field {
	return zap.String("report_id", v)
}

// =================================================================================
// CAMPOS ESTÁNDAR - SISTEMA
// =================================================================================

// Op crea un campo para la operación actual.
func Op(v string) zap.Field {
	return zap.String("op", v)
}

// Err crea un campo para un error.
func Err(err error) zap.Field {
	return zap.Error(err)
}

// Count crea un campo para un conteo.
func Count(v int) zap.Field {
	return zap.Int("count", v)
}

// Any crea un campo genérico para cualquier tipo.
func Any(key string, v any) zap.Field {
	return zap.Any(key, v)
}

// String crea un campo string genérico.
func String(key, v string) zap.Field {
	return zap.String(key, v)
}

// Int crea un campo int genérico.
func Int(key string, v int) zap.Field {
	return zap.Int(key, v)
}

// Bool crea un campo bool genérico.
func Bool(key string, v bool) zap.Field {
	return zap.Bool(key, v)
}
