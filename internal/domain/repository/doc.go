// Package repository define las interfaces del Record Store.
//
// Estas interfaces representan contratos de negocio, independientes del
// almacenamiento subyacente. Las implementaciones concretas viven en
// internal/store/pg (PostgreSQL) e internal/store/memory (dev/tests).
//
//	┌─────────────────────────────────────────────────────┐
//	│        services/license (orchestrator)              │
//	└─────────────────────────────────────────────────────┘
//	                        │
//	                        ▼
//	┌─────────────────────────────────────────────────────┐
//	│        domain/repository (interfaces)               │
//	│  License, Binding, Policy, Usage repositories       │
//	└─────────────────────────────────────────────────────┘
//	                        │
//	              ┌─────────┴─────────┐
//	              ▼                   ▼
//	       ┌─────────────┐     ┌─────────────┐
//	       │  store/pg   │     │ store/memory│
//	       └─────────────┘     └─────────────┘
//
// Convenciones:
//   - Context siempre es el primer parámetro
//   - Errores de dominio están en errors.go
//   - El binding license → device se crea con una sola escritura condicional
package repository
