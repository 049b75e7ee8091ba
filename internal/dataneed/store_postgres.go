package dataneed

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"gridgate/internal/permission"
	id "gridgate/pkg/domain"
	"gridgate/pkg/platform/sentinel"
)

// Schema for data need definitions. Granularities use a text array since the
// set is small and ordered finest-first.
const Schema = `
CREATE TABLE IF NOT EXISTS data_needs (
	data_need_id   TEXT PRIMARY KEY,
	need_type      TEXT NOT NULL,
	granularities  TEXT[] NOT NULL DEFAULT '{}',
	max_lookback   BIGINT NOT NULL DEFAULT 0,
	duration       BIGINT NOT NULL DEFAULT 0
);
`

// PostgresStore reads data need definitions via a pgx pool. Data needs are
// reference data maintained outside the engine, so this store is read-only
// apart from schema setup.
type PostgresStore struct {
	pool *pgxpool.Pool
}

func NewPostgresStore(pool *pgxpool.Pool) *PostgresStore {
	return &PostgresStore{pool: pool}
}

// EnsureSchema creates the data_needs table.
func (s *PostgresStore) EnsureSchema(ctx context.Context) error {
	if _, err := s.pool.Exec(ctx, Schema); err != nil {
		return fmt.Errorf("ensure data_needs schema: %w", err)
	}
	return nil
}

func (s *PostgresStore) Get(ctx context.Context, dataNeedID id.DataNeedID) (*DataNeed, error) {
	var (
		need          DataNeed
		needType      string
		granularities []string
		lookbackNanos int64
		durationNanos int64
	)
	err := s.pool.QueryRow(ctx, `
		SELECT data_need_id, need_type, granularities, max_lookback, duration
		FROM data_needs WHERE data_need_id = $1`,
		dataNeedID.String(),
	).Scan(&need.ID, &needType, &granularities, &lookbackNanos, &durationNanos)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("get data need %s: %w", dataNeedID, sentinel.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("get data need %s: %w", dataNeedID, err)
	}

	need.Type = Type(needType)
	need.Granularities = make([]permission.Granularity, len(granularities))
	for i, g := range granularities {
		need.Granularities[i] = permission.Granularity(g)
	}
	need.MaxLookback = time.Duration(lookbackNanos)
	need.Duration = time.Duration(durationNanos)
	return &need, nil
}
