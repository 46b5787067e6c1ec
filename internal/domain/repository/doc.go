// Package repository define los tipos de dominio y las interfaces de
// repositorio del accounting de eventos de autenticación.
//
// Estas interfaces representan contratos de negocio, independientes del
// almacenamiento subyacente (PostgreSQL, memoria, etc.).
//
// Las implementaciones concretas viven en internal/store/adapters/.
//
// Convenciones:
//   - Context siempre es el primer parámetro
//   - Los repositorios no reintentan ni manejan carreras: eso es trabajo
//     del resolver (internal/accounting) y de la cola (internal/jobs)
//   - Todo error del driver se envuelve en *StoreError; nunca se filtra
//     un error crudo de pgx hacia arriba
package repository
