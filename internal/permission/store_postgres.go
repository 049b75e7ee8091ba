package permission

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/lib/pq"

	id "gridgate/pkg/domain"
	"gridgate/pkg/platform/sentinel"
	"gridgate/pkg/platform/tx"
)

// Schema for the projection table. Correlation keys are indexed separately
// because inbound notifications may carry either one.
const Schema = `
CREATE TABLE IF NOT EXISTS permission_requests (
	permission_id        TEXT PRIMARY KEY,
	connection_id        TEXT NOT NULL,
	data_need_id         TEXT NOT NULL,
	status               TEXT NOT NULL,
	granularity          TEXT NOT NULL,
	timeframe_start      TIMESTAMPTZ NOT NULL,
	timeframe_end        TIMESTAMPTZ NOT NULL,
	administrator        TEXT NOT NULL,
	region               TEXT NOT NULL,
	conversation_id      TEXT NOT NULL DEFAULT '',
	external_request_id  TEXT NOT NULL DEFAULT '',
	metering_point_id    TEXT NOT NULL DEFAULT '',
	consent_id           TEXT NOT NULL DEFAULT '',
	last_known_readings  JSONB NOT NULL DEFAULT '{}',
	error_message        TEXT NOT NULL DEFAULT '',
	created_at           TIMESTAMPTZ NOT NULL,
	updated_at           TIMESTAMPTZ NOT NULL,
	version              BIGINT NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_permission_requests_conversation
	ON permission_requests (conversation_id) WHERE conversation_id <> '';
CREATE INDEX IF NOT EXISTS idx_permission_requests_external
	ON permission_requests (external_request_id) WHERE external_request_id <> '';
CREATE INDEX IF NOT EXISTS idx_permission_requests_connection
	ON permission_requests (connection_id);
CREATE INDEX IF NOT EXISTS idx_permission_requests_status
	ON permission_requests (status);
`

// PostgresStore persists projections in PostgreSQL. When pkg/platform/tx has
// placed a transaction in context the store joins it, which is how the engine
// couples the projection update to the outbox append.
type PostgresStore struct {
	db *sql.DB
}

func NewPostgresStore(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

// EnsureSchema creates the projection table and indexes.
func (s *PostgresStore) EnsureSchema(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, Schema); err != nil {
		return fmt.Errorf("ensure permission_requests schema: %w", err)
	}
	return nil
}

type querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

func (s *PostgresStore) q(ctx context.Context) querier {
	if t, ok := tx.From(ctx); ok {
		return t
	}
	return s.db
}

const requestColumns = `permission_id, connection_id, data_need_id, status, granularity,
	timeframe_start, timeframe_end, administrator, region,
	conversation_id, external_request_id, metering_point_id, consent_id,
	last_known_readings, error_message, created_at, updated_at, version`

func (s *PostgresStore) Create(ctx context.Context, req *Request) error {
	readings, err := marshalReadings(req.LastKnownReadings)
	if err != nil {
		return fmt.Errorf("create permission request %s: %w", req.PermissionID, err)
	}
	_, err = s.q(ctx).ExecContext(ctx, `
		INSERT INTO permission_requests (`+requestColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, 1)`,
		req.PermissionID.String(), req.ConnectionID.String(), req.DataNeedID.String(),
		string(req.Status), string(req.Granularity),
		req.Timeframe.Start, req.Timeframe.End,
		req.DataSource.Administrator, req.DataSource.Region.String(),
		req.Keys.ConversationID.String(), req.Keys.ExternalRequestID.String(),
		req.MeteringPointID.String(), req.ConsentID.String(),
		readings, req.ErrorMessage, req.CreatedAt, req.UpdatedAt,
	)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code.Name() == "unique_violation" {
			return fmt.Errorf("create permission request %s: %w", req.PermissionID, sentinel.ErrConflict)
		}
		return fmt.Errorf("create permission request %s: %w", req.PermissionID, err)
	}
	req.Version = 1
	return nil
}

func (s *PostgresStore) Get(ctx context.Context, permissionID id.PermissionID) (*Request, error) {
	row := s.q(ctx).QueryRowContext(ctx, `
		SELECT `+requestColumns+` FROM permission_requests WHERE permission_id = $1`,
		permissionID.String())
	req, err := scanRequest(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("get permission request %s: %w", permissionID, sentinel.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("get permission request %s: %w", permissionID, err)
	}
	return req, nil
}

func (s *PostgresStore) Update(ctx context.Context, req *Request, expectedVersion int64) error {
	readings, err := marshalReadings(req.LastKnownReadings)
	if err != nil {
		return fmt.Errorf("update permission request %s: %w", req.PermissionID, err)
	}
	result, err := s.q(ctx).ExecContext(ctx, `
		UPDATE permission_requests SET
			status = $2, granularity = $3,
			conversation_id = $4, external_request_id = $5,
			metering_point_id = $6, consent_id = $7,
			last_known_readings = $8, error_message = $9,
			updated_at = $10, version = version + 1
		WHERE permission_id = $1 AND version = $11`,
		req.PermissionID.String(), string(req.Status), string(req.Granularity),
		req.Keys.ConversationID.String(), req.Keys.ExternalRequestID.String(),
		req.MeteringPointID.String(), req.ConsentID.String(),
		readings, req.ErrorMessage, req.UpdatedAt, expectedVersion,
	)
	if err != nil {
		return fmt.Errorf("update permission request %s: %w", req.PermissionID, err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("update permission request %s: %w", req.PermissionID, err)
	}
	if affected == 0 {
		// Either the row is gone or the version moved; both mean our read is
		// stale and the caller must re-read and retry.
		return fmt.Errorf("update permission request %s: expected version %d: %w",
			req.PermissionID, expectedVersion, sentinel.ErrConflict)
	}
	req.Version = expectedVersion + 1
	return nil
}

func (s *PostgresStore) FindLiveByCorrelation(ctx context.Context, conversationID id.ConversationID, externalRequestID id.ExternalRequestID) ([]*Request, error) {
	rows, err := s.q(ctx).QueryContext(ctx, `
		SELECT `+requestColumns+` FROM permission_requests
		WHERE NOT (status = ANY($1))
		  AND ((conversation_id <> '' AND conversation_id = $2)
		    OR (external_request_id <> '' AND external_request_id = $3))
		ORDER BY created_at, permission_id`,
		pq.Array(terminalStatusStrings()), conversationID.String(), externalRequestID.String())
	if err != nil {
		return nil, fmt.Errorf("find by correlation: %w", err)
	}
	return collectRequests(rows)
}

func (s *PostgresStore) ListByConnection(ctx context.Context, connectionID id.ConnectionID) ([]*Request, error) {
	rows, err := s.q(ctx).QueryContext(ctx, `
		SELECT `+requestColumns+` FROM permission_requests
		WHERE connection_id = $1 ORDER BY created_at, permission_id`,
		connectionID.String())
	if err != nil {
		return nil, fmt.Errorf("list by connection: %w", err)
	}
	return collectRequests(rows)
}

func (s *PostgresStore) ListByStatus(ctx context.Context, status Status) ([]*Request, error) {
	rows, err := s.q(ctx).QueryContext(ctx, `
		SELECT `+requestColumns+` FROM permission_requests
		WHERE status = $1 ORDER BY created_at, permission_id`,
		string(status))
	if err != nil {
		return nil, fmt.Errorf("list by status: %w", err)
	}
	return collectRequests(rows)
}

func (s *PostgresStore) ListStale(ctx context.Context, statuses []Status, cutoff time.Time) ([]*Request, error) {
	wanted := make([]string, len(statuses))
	for i, status := range statuses {
		wanted[i] = string(status)
	}
	rows, err := s.q(ctx).QueryContext(ctx, `
		SELECT `+requestColumns+` FROM permission_requests
		WHERE status = ANY($1) AND updated_at < $2
		ORDER BY created_at, permission_id`,
		pq.Array(wanted), cutoff)
	if err != nil {
		return nil, fmt.Errorf("list stale: %w", err)
	}
	return collectRequests(rows)
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRequest(row rowScanner) (*Request, error) {
	var (
		req      Request
		readings []byte
		status   string
		gran     string
		region   string
	)
	err := row.Scan(
		&req.PermissionID, &req.ConnectionID, &req.DataNeedID, &status, &gran,
		&req.Timeframe.Start, &req.Timeframe.End,
		&req.DataSource.Administrator, &region,
		&req.Keys.ConversationID, &req.Keys.ExternalRequestID,
		&req.MeteringPointID, &req.ConsentID,
		&readings, &req.ErrorMessage, &req.CreatedAt, &req.UpdatedAt, &req.Version,
	)
	if err != nil {
		return nil, err
	}
	req.Status = Status(status)
	req.Granularity = Granularity(gran)
	req.DataSource.Region = id.Region(region)
	if err := json.Unmarshal(readings, &req.LastKnownReadings); err != nil {
		return nil, fmt.Errorf("unmarshal last known readings: %w", err)
	}
	return &req, nil
}

func collectRequests(rows *sql.Rows) ([]*Request, error) {
	defer rows.Close()
	var out []*Request
	for rows.Next() {
		req, err := scanRequest(rows)
		if err != nil {
			return nil, fmt.Errorf("scan permission request: %w", err)
		}
		out = append(out, req)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate permission requests: %w", err)
	}
	return out, nil
}

func marshalReadings(readings map[id.MeteringPointID]time.Time) ([]byte, error) {
	if readings == nil {
		return []byte("{}"), nil
	}
	out, err := json.Marshal(readings)
	if err != nil {
		return nil, fmt.Errorf("marshal last known readings: %w", err)
	}
	return out, nil
}

func terminalStatusStrings() []string {
	out := make([]string, 0, len(terminalStatuses))
	for status := range terminalStatuses {
		out = append(out, string(status))
	}
	return out
}
