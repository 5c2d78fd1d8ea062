// Package lifecycle es el engine de salud de credenciales OAuth.
//
// Flujo:
//
//	caller -> store.Manager (resolve + read)
//	       -> Aggregator (fan-out) -> Classifier -> platforms.Registry.Probe
//	       -> RepairEngine (fan-out) -> Orchestrator (single-flight) -> Registry.Refresh -> store.Manager (persist)
//
// Todas las operaciones por plataforma devuelven resultados tipados con el error adentro;
// una plataforma que falla nunca aborta a sus hermanas.
package lifecycle
