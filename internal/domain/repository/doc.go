// Package repository define los tipos canónicos de conexiones OAuth y el contrato
// de acceso a los stores de usuarios.
//
// Los dos stores de usuarios tienen esquemas nativos distintos (campos planos vs
// mapa anidado). Todo el código fuera de internal/store trabaja sólo con la forma
// canónica definida acá.
//
//	┌─────────────────────────────────────────────────────┐
//	│        lifecycle (classifier, refresh, health...)   │
//	└─────────────────────────────────────────────────────┘
//	                        │
//	                        ▼
//	┌─────────────────────────────────────────────────────┐
//	│   domain/repository (PlatformConnection, UserRecord,│
//	│   ConnectionRepository, errores)                    │
//	└─────────────────────────────────────────────────────┘
//	                        │
//	         ┌──────────────┴──────────────┐
//	         ▼                             ▼
//	┌─────────────────┐          ┌─────────────────┐
//	│ primary (flat)  │          │ secondary       │
//	│ pg / memory     │          │ (nested) mongo  │
//	└─────────────────┘          └─────────────────┘
//
// Convenciones:
//   - Context siempre es el primer parámetro
//   - Errores de dominio están en errors.go; KindOf los mapea a strings estables
package repository
