package pg

import (
	"context"
	"time"

	"github.com/dropDatabas3/authledger/internal/domain/repository"
)

// ─── Idp / IdpVersion ───

func (a *Adapter) GetIdpByEntityID(ctx context.Context, entityID string) (*repository.Idp, error) {
	const query = `SELECT id, entity_id, created_at FROM acct_idp WHERE entity_id = $1`
	var row repository.Idp
	err := a.pool.QueryRow(ctx, query, entityID).Scan(&row.ID, &row.EntityID, &row.CreatedAt)
	if err != nil {
		return nil, wrapRow("idp.get", err)
	}
	return &row, nil
}

func (a *Adapter) InsertIdp(ctx context.Context, entityID string, createdAt time.Time) error {
	const query = `INSERT INTO acct_idp (entity_id, created_at) VALUES ($1, $2)`
	_, err := a.pool.Exec(ctx, query, entityID, createdAt)
	return wrap("idp.insert", err)
}

func (a *Adapter) GetIdpVersion(ctx context.Context, idpID int64, fingerprint string) (*repository.IdpVersion, error) {
	const query = `
		SELECT id, idp_id, metadata, fingerprint, created_at
		FROM acct_idp_version WHERE idp_id = $1 AND fingerprint = $2
	`
	var row repository.IdpVersion
	err := a.pool.QueryRow(ctx, query, idpID, fingerprint).Scan(
		&row.ID, &row.IdpID, &row.Metadata, &row.Fingerprint, &row.CreatedAt,
	)
	if err != nil {
		return nil, wrapRow("idp_version.get", err)
	}
	return &row, nil
}

func (a *Adapter) InsertIdpVersion(ctx context.Context, idpID int64, metadata, fingerprint string, createdAt time.Time) error {
	const query = `
		INSERT INTO acct_idp_version (idp_id, metadata, fingerprint, created_at)
		VALUES ($1, $2, $3, $4)
	`
	_, err := a.pool.Exec(ctx, query, idpID, metadata, fingerprint, createdAt)
	return wrap("idp_version.insert", err)
}

// ─── Sp / SpVersion ───

func (a *Adapter) GetSpByEntityID(ctx context.Context, entityID string) (*repository.Sp, error) {
	const query = `SELECT id, entity_id, created_at FROM acct_sp WHERE entity_id = $1`
	var row repository.Sp
	err := a.pool.QueryRow(ctx, query, entityID).Scan(&row.ID, &row.EntityID, &row.CreatedAt)
	if err != nil {
		return nil, wrapRow("sp.get", err)
	}
	return &row, nil
}

func (a *Adapter) InsertSp(ctx context.Context, entityID string, createdAt time.Time) error {
	const query = `INSERT INTO acct_sp (entity_id, created_at) VALUES ($1, $2)`
	_, err := a.pool.Exec(ctx, query, entityID, createdAt)
	return wrap("sp.insert", err)
}

func (a *Adapter) GetSpVersion(ctx context.Context, spID int64, fingerprint string) (*repository.SpVersion, error) {
	const query = `
		SELECT id, sp_id, metadata, fingerprint, created_at
		FROM acct_sp_version WHERE sp_id = $1 AND fingerprint = $2
	`
	var row repository.SpVersion
	err := a.pool.QueryRow(ctx, query, spID, fingerprint).Scan(
		&row.ID, &row.SpID, &row.Metadata, &row.Fingerprint, &row.CreatedAt,
	)
	if err != nil {
		return nil, wrapRow("sp_version.get", err)
	}
	return &row, nil
}

func (a *Adapter) InsertSpVersion(ctx context.Context, spID int64, metadata, fingerprint string, createdAt time.Time) error {
	const query = `
		INSERT INTO acct_sp_version (sp_id, metadata, fingerprint, created_at)
		VALUES ($1, $2, $3, $4)
	`
	_, err := a.pool.Exec(ctx, query, spID, metadata, fingerprint, createdAt)
	return wrap("sp_version.insert", err)
}

// ─── User / UserVersion ───

func (a *Adapter) GetUserByFingerprint(ctx context.Context, fingerprint string) (*repository.User, error) {
	const query = `SELECT id, identifier, fingerprint, created_at FROM acct_user WHERE fingerprint = $1`
	var row repository.User
	err := a.pool.QueryRow(ctx, query, fingerprint).Scan(
		&row.ID, &row.Identifier, &row.Fingerprint, &row.CreatedAt,
	)
	if err != nil {
		return nil, wrapRow("user.get", err)
	}
	return &row, nil
}

func (a *Adapter) InsertUser(ctx context.Context, identifier, fingerprint string, createdAt time.Time) error {
	const query = `INSERT INTO acct_user (identifier, fingerprint, created_at) VALUES ($1, $2, $3)`
	_, err := a.pool.Exec(ctx, query, identifier, fingerprint, createdAt)
	return wrap("user.insert", err)
}

func (a *Adapter) GetUserVersion(ctx context.Context, userID int64, fingerprint string) (*repository.UserVersion, error) {
	const query = `
		SELECT id, user_id, attributes, fingerprint, created_at
		FROM acct_user_version WHERE user_id = $1 AND fingerprint = $2
	`
	var row repository.UserVersion
	err := a.pool.QueryRow(ctx, query, userID, fingerprint).Scan(
		&row.ID, &row.UserID, &row.Attributes, &row.Fingerprint, &row.CreatedAt,
	)
	if err != nil {
		return nil, wrapRow("user_version.get", err)
	}
	return &row, nil
}

func (a *Adapter) InsertUserVersion(ctx context.Context, userID int64, attributes, fingerprint string, createdAt time.Time) error {
	const query = `
		INSERT INTO acct_user_version (user_id, attributes, fingerprint, created_at)
		VALUES ($1, $2, $3, $4)
	`
	_, err := a.pool.Exec(ctx, query, userID, attributes, fingerprint, createdAt)
	return wrap("user_version.insert", err)
}

// ─── VersionLink ───

func (a *Adapter) GetVersionLink(ctx context.Context, idpVersionID, spVersionID, userVersionID int64) (*repository.VersionLink, error) {
	const query = `
		SELECT id, idp_version_id, sp_version_id, user_version_id, created_at
		FROM acct_version_link
		WHERE idp_version_id = $1 AND sp_version_id = $2 AND user_version_id = $3
	`
	var row repository.VersionLink
	err := a.pool.QueryRow(ctx, query, idpVersionID, spVersionID, userVersionID).Scan(
		&row.ID, &row.IdpVersionID, &row.SpVersionID, &row.UserVersionID, &row.CreatedAt,
	)
	if err != nil {
		return nil, wrapRow("version_link.get", err)
	}
	return &row, nil
}

func (a *Adapter) InsertVersionLink(ctx context.Context, idpVersionID, spVersionID, userVersionID int64, createdAt time.Time) error {
	const query = `
		INSERT INTO acct_version_link (idp_version_id, sp_version_id, user_version_id, created_at)
		VALUES ($1, $2, $3, $4)
	`
	_, err := a.pool.Exec(ctx, query, idpVersionID, spVersionID, userVersionID, createdAt)
	return wrap("version_link.insert", err)
}
