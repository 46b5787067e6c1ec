package pg

import (
	"context"
	"time"

	"github.com/dropDatabas3/authledger/internal/domain/repository"
)

func (a *Adapter) InsertJob(ctx context.Context, jobType string, payload []byte, createdAt time.Time) error {
	const query = `INSERT INTO acct_job (type, payload, created_at) VALUES ($1, $2, $3)`
	_, err := a.pool.Exec(ctx, query, jobType, payload, createdAt)
	return wrap("job.insert", err)
}

// GetOldestJob retorna el job más antiguo (FIFO por created_at, empates por
// id). Sin filtro de tipo cuando jobType es vacío.
func (a *Adapter) GetOldestJob(ctx context.Context, jobType string) (*repository.Job, error) {
	const anyType = `
		SELECT id, type, payload, created_at FROM acct_job
		ORDER BY created_at ASC, id ASC LIMIT 1
	`
	const byType = `
		SELECT id, type, payload, created_at FROM acct_job
		WHERE type = $1
		ORDER BY created_at ASC, id ASC LIMIT 1
	`

	var row repository.Job
	var err error
	if jobType == "" {
		err = a.pool.QueryRow(ctx, anyType).Scan(&row.ID, &row.Type, &row.Payload, &row.CreatedAt)
	} else {
		err = a.pool.QueryRow(ctx, byType, jobType).Scan(&row.ID, &row.Type, &row.Payload, &row.CreatedAt)
	}
	if err != nil {
		return nil, wrapRow("job.get_oldest", err)
	}
	return &row, nil
}

// DeleteJobByID borra por id y reporta el contador de filas afectadas.
// Ese contador es la prueba de posesión exclusiva del job: una fila
// solo puede borrarse una vez.
func (a *Adapter) DeleteJobByID(ctx context.Context, id int64) (bool, error) {
	const query = `DELETE FROM acct_job WHERE id = $1`
	tag, err := a.pool.Exec(ctx, query, id)
	if err != nil {
		return false, wrap("job.delete", err)
	}
	return tag.RowsAffected() > 0, nil
}

func (a *Adapter) InsertFailedJob(ctx context.Context, job *repository.Job, reason string, failedAt time.Time) error {
	const query = `
		INSERT INTO acct_failed_job (job_id, type, payload, reason, failed_at)
		VALUES ($1, $2, $3, $4, $5)
	`
	_, err := a.pool.Exec(ctx, query, job.ID, job.Type, job.Payload, reason, failedAt)
	return wrap("failed_job.insert", err)
}
