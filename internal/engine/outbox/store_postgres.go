package outbox

import (
	"context"
	"database/sql"
	"fmt"

	"gridgate/internal/permission"
	id "gridgate/pkg/domain"
	"gridgate/pkg/platform/tx"
)

// Schema for the append-only event log. Rows are never updated or deleted.
const Schema = `
CREATE TABLE IF NOT EXISTS permission_outbox (
	seq           BIGSERIAL PRIMARY KEY,
	permission_id TEXT NOT NULL,
	event_kind    TEXT NOT NULL,
	payload       JSONB NOT NULL,
	committed_at  TIMESTAMPTZ NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_permission_outbox_permission
	ON permission_outbox (permission_id, seq);
`

// PostgresStore persists outbox entries. It joins a transaction placed in
// context by pkg/platform/tx, which is how the append becomes atomic with the
// projection update it accompanies.
type PostgresStore struct {
	db *sql.DB
}

func NewPostgresStore(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

// EnsureSchema creates the outbox table and index.
func (s *PostgresStore) EnsureSchema(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, Schema); err != nil {
		return fmt.Errorf("ensure permission_outbox schema: %w", err)
	}
	return nil
}

type querier interface {
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

func (s *PostgresStore) q(ctx context.Context) querier {
	if t, ok := tx.From(ctx); ok {
		return t
	}
	return s.db
}

func (s *PostgresStore) Append(ctx context.Context, entry Entry) (Entry, error) {
	row := s.q(ctx).QueryRowContext(ctx, `
		INSERT INTO permission_outbox (permission_id, event_kind, payload, committed_at)
		VALUES ($1, $2, $3, $4)
		RETURNING seq`,
		entry.PermissionID.String(), string(entry.EventKind), []byte(entry.Payload), entry.CommittedAt)
	if err := row.Scan(&entry.Seq); err != nil {
		return Entry{}, fmt.Errorf("append outbox entry for %s: %w", entry.PermissionID, err)
	}
	return entry, nil
}

func (s *PostgresStore) ListByPermission(ctx context.Context, permissionID id.PermissionID) ([]Entry, error) {
	rows, err := s.q(ctx).QueryContext(ctx, `
		SELECT seq, permission_id, event_kind, payload, committed_at
		FROM permission_outbox WHERE permission_id = $1 ORDER BY seq`,
		permissionID.String())
	if err != nil {
		return nil, fmt.Errorf("list outbox entries for %s: %w", permissionID, err)
	}
	defer rows.Close()

	var out []Entry
	for rows.Next() {
		var (
			entry   Entry
			kind    string
			payload []byte
		)
		if err := rows.Scan(&entry.Seq, &entry.PermissionID, &kind, &payload, &entry.CommittedAt); err != nil {
			return nil, fmt.Errorf("scan outbox entry: %w", err)
		}
		entry.EventKind = permission.EventKind(kind)
		entry.Payload = payload
		out = append(out, entry)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate outbox entries: %w", err)
	}
	return out, nil
}
