// Package pg implements the accounting repositories over PostgreSQL (pgx).
package pg

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/dropDatabas3/authledger/internal/domain/repository"
)

// Adapter implementa EntityRepository, FactRepository y JobRepository
// sobre un pool de conexiones pgx.
type Adapter struct {
	pool *pgxpool.Pool
}

func New(pool *pgxpool.Pool) *Adapter {
	return &Adapter{pool: pool}
}

// Connect crea el pool y verifica la conexión.
func Connect(ctx context.Context, dsn string) (*Adapter, error) {
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, repository.NewStoreError("pg.connect", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, repository.NewStoreError("pg.ping", err)
	}
	return &Adapter{pool: pool}, nil
}

func (a *Adapter) Ping(ctx context.Context) error {
	if err := a.pool.Ping(ctx); err != nil {
		return repository.NewStoreError("pg.ping", err)
	}
	return nil
}

func (a *Adapter) Close() { a.pool.Close() }

// wrap traduce errores del driver al contrato del repositorio.
// Nunca deja escapar un error crudo de pgx.
func wrap(op string, err error) error {
	if err == nil {
		return nil
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == "23505" { // unique_violation
		return repository.NewStoreError(op, fmt.Errorf("%w: %s", repository.ErrConflict, pgErr.ConstraintName))
	}
	return repository.NewStoreError(op, err)
}

// wrapRow traduce el resultado de un QueryRow.Scan de una lectura puntual:
// sin filas no es un fallo del almacenamiento sino un ErrNotFound plano.
func wrapRow(op string, err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, pgx.ErrNoRows) {
		return repository.ErrNotFound
	}
	return repository.NewStoreError(op, err)
}
