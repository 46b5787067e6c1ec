package pg

import (
	"context"
	"time"

	"github.com/dropDatabas3/authledger/internal/domain/repository"
)

// TouchConnectedService acumula count y first/last seen sin transacción:
// update-then-insert-then-update, con la unique constraint sobre
// version_link_id como único primitivo de sincronización.
func (a *Adapter) TouchConnectedService(ctx context.Context, versionLinkID int64, seenAt time.Time) error {
	const update = `
		UPDATE acct_connected_service
		SET last_seen_at = $2, count = count + 1
		WHERE version_link_id = $1
	`
	const insert = `
		INSERT INTO acct_connected_service (version_link_id, first_seen_at, last_seen_at, count)
		VALUES ($1, $2, $2, 1)
	`

	tag, err := a.pool.Exec(ctx, update, versionLinkID, seenAt)
	if err != nil {
		return wrap("connected_service.update", err)
	}
	if tag.RowsAffected() > 0 {
		return nil
	}

	_, err = a.pool.Exec(ctx, insert, versionLinkID, seenAt)
	if err == nil {
		return nil
	}
	if insertErr := wrap("connected_service.insert", err); !repository.IsConflict(insertErr) {
		return insertErr
	}

	// Otro worker insertó primero; la fila ya existe, el update tiene que pegar.
	tag, err = a.pool.Exec(ctx, update, versionLinkID, seenAt)
	if err != nil {
		return wrap("connected_service.update", err)
	}
	if tag.RowsAffected() == 0 {
		return repository.NewStoreError("connected_service.touch",
			&repository.UnexpectedValueError{What: "row vanished after insert conflict"})
	}
	return nil
}

func (a *Adapter) InsertAuthenticationEvent(ctx context.Context, versionLinkID int64, happenedAt time.Time, clientIP string) error {
	const query = `
		INSERT INTO acct_authentication_event (version_link_id, happened_at, client_ip, created_at)
		VALUES ($1, $2, NULLIF($3, ''), $4)
	`
	_, err := a.pool.Exec(ctx, query, versionLinkID, happenedAt, clientIP, happenedAt)
	return wrap("authentication_event.insert", err)
}
