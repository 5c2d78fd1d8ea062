// Package dal importa todos los backends para auto-registro.
// Importar este paquete en main.go para habilitar todos los drivers.
//
// Uso:
//
//	import _ "github.com/dropDatabas3/connkeeper/internal/store/adapters/dal"
package dal

import (
	_ "github.com/dropDatabas3/connkeeper/internal/store/adapters/memory"
	_ "github.com/dropDatabas3/connkeeper/internal/store/adapters/mongo"
	_ "github.com/dropDatabas3/connkeeper/internal/store/adapters/pg"
)
