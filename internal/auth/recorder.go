package auth

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/odyssey-erp/memberdash/internal/platform/db"
	"github.com/odyssey-erp/memberdash/internal/shared"
)

// Recorder keeps an audit trail of dashboard sign-ins.
type Recorder interface {
	RecordLogin(ctx context.Context, sessionID string, id shared.Identity, expiresAt time.Time, ip, ua string) error
	RecordLogout(ctx context.Context, sessionID string) error
}

// NopRecorder discards audit events.
type NopRecorder struct{}

func (NopRecorder) RecordLogin(context.Context, string, shared.Identity, time.Time, string, string) error {
	return nil
}

func (NopRecorder) RecordLogout(context.Context, string) error { return nil }

const sessionSchema = `CREATE TABLE IF NOT EXISTS dashboard_sessions (
	id          TEXT PRIMARY KEY,
	user_id     TEXT NOT NULL,
	email       TEXT NOT NULL,
	role        TEXT NOT NULL DEFAULT '',
	created_at  TIMESTAMPTZ NOT NULL,
	expires_at  TIMESTAMPTZ NOT NULL,
	ended_at    TIMESTAMPTZ,
	ip          TEXT,
	ua          TEXT
)`

const insertSession = `INSERT INTO dashboard_sessions (id, user_id, email, role, created_at, expires_at, ip, ua)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
ON CONFLICT (id) DO UPDATE SET
	user_id = EXCLUDED.user_id,
	email = EXCLUDED.email,
	role = EXCLUDED.role,
	created_at = EXCLUDED.created_at,
	expires_at = EXCLUDED.expires_at,
	ended_at = NULL`

const endSession = `UPDATE dashboard_sessions SET ended_at = $2 WHERE id = $1 AND ended_at IS NULL`

// PGRecorder stores audit rows in PostgreSQL.
type PGRecorder struct {
	pool *pgxpool.Pool
	now  func() time.Time
}

// NewPGRecorder constructs a PostgreSQL recorder.
func NewPGRecorder(pool *pgxpool.Pool) *PGRecorder {
	return &PGRecorder{pool: pool, now: time.Now}
}

// EnsureSchema creates the audit table when missing.
func (r *PGRecorder) EnsureSchema(ctx context.Context) error {
	return db.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		if _, err := tx.Exec(ctx, sessionSchema); err != nil {
			return fmt.Errorf("auth: ensure schema: %w", err)
		}
		return nil
	})
}

// RecordLogin persists a new login session for auditing.
func (r *PGRecorder) RecordLogin(ctx context.Context, sessionID string, id shared.Identity, expiresAt time.Time, ip, ua string) error {
	now := r.now().UTC()
	_, err := r.pool.Exec(ctx, insertSession,
		sessionID,
		id.ID,
		id.Email,
		id.Role,
		pgtype.Timestamptz{Time: now, Valid: true},
		pgtype.Timestamptz{Time: expiresAt.UTC(), Valid: true},
		pgtype.Text{String: ip, Valid: ip != ""},
		pgtype.Text{String: ua, Valid: ua != ""},
	)
	if err != nil {
		return fmt.Errorf("auth: record login: %w", err)
	}
	return nil
}

// RecordLogout stamps the session as ended.
func (r *PGRecorder) RecordLogout(ctx context.Context, sessionID string) error {
	if _, err := r.pool.Exec(ctx, endSession, sessionID, pgtype.Timestamptz{Time: r.now().UTC(), Valid: true}); err != nil {
		return fmt.Errorf("auth: record logout: %w", err)
	}
	return nil
}

var (
	_ Recorder = (*PGRecorder)(nil)
	_ Recorder = NopRecorder{}
)
