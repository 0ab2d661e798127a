package db

import (
	"context"
	"fmt"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/bova-research/dcatlas/internal/boundary"
	"github.com/bova-research/dcatlas/internal/model"
)

// Record tiers in the mirror.
const (
	TierClean  = "clean"
	TierSecret = "secret"
)

// Mirror pushes cleaned records and boundary geometries into Postgres for
// downstream analysis.
type Mirror struct {
	pool   Pool
	schema string
}

// NewMirror creates a Mirror writing into the given schema.
func NewMirror(pool Pool, schema string) *Mirror {
	return &Mirror{pool: pool, schema: schema}
}

// Migrate creates the mirror schema and tables.
func (m *Mirror) Migrate(ctx context.Context) error {
	stmts := []string{
		fmt.Sprintf(`CREATE SCHEMA IF NOT EXISTS %q`, m.schema),
		fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %q.records (
			id             TEXT PRIMARY KEY,
			name           TEXT,
			operator       TEXT,
			street         TEXT,
			city           TEXT,
			state          TEXT NOT NULL,
			zip_code       TEXT,
			best_longitude DOUBLE PRECISION NOT NULL,
			best_latitude  DOUBLE PRECISION NOT NULL,
			coord_source   TEXT NOT NULL,
			coord_quality  TEXT NOT NULL,
			joined_state   TEXT,
			tier           TEXT NOT NULL,
			updated_at     TIMESTAMPTZ NOT NULL DEFAULT now()
		)`, m.schema),
		fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %q.state_boundaries (
			fips       TEXT PRIMARY KEY,
			usps       TEXT NOT NULL,
			name       TEXT NOT NULL,
			geom_ewkb  BYTEA NOT NULL,
			updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
		)`, m.schema),
	}
	for _, stmt := range stmts {
		if _, err := m.pool.Exec(ctx, stmt); err != nil {
			return eris.Wrap(err, "mirror: migrate")
		}
	}
	return nil
}

var recordColumns = []string{
	"id", "name", "operator", "street", "city", "state", "zip_code",
	"best_longitude", "best_latitude", "coord_source", "coord_quality",
	"joined_state", "tier",
}

// UpsertRecords mirrors resolved records under the given tier.
func (m *Mirror) UpsertRecords(ctx context.Context, records []model.Record, tier string) (int64, error) {
	if len(records) == 0 {
		return 0, nil
	}

	rows := make([][]any, len(records))
	for i := range records {
		r := &records[i]
		rows[i] = []any{
			r.ID, r.Name, r.Operator, r.Street, r.City, r.State, r.ZipCode,
			r.BestLongitude, r.BestLatitude, r.CoordSource, r.CoordQuality,
			r.JoinedState, tier,
		}
	}

	n, err := BulkUpsert(ctx, m.pool, UpsertConfig{
		Table:        m.schema + ".records",
		Columns:      recordColumns,
		ConflictKeys: []string{"id"},
	}, rows)
	if err != nil {
		return 0, eris.Wrapf(err, "mirror: upsert %s records", tier)
	}
	zap.L().Info("mirror: records upserted",
		zap.String("tier", tier),
		zap.Int64("rows", n),
	)
	return n, nil
}

// UpsertBoundaries mirrors state boundary geometries as EWKB (SRID 4326).
func (m *Mirror) UpsertBoundaries(ctx context.Context, states []boundary.StatePolygon) (int64, error) {
	if len(states) == 0 {
		return 0, nil
	}

	rows := make([][]any, 0, len(states))
	for i := range states {
		s := &states[i]
		ewkb, err := s.EWKB()
		if err != nil {
			return 0, eris.Wrapf(err, "mirror: encode %s", s.USPS)
		}
		rows = append(rows, []any{s.FIPS, s.USPS, s.Name, ewkb})
	}

	n, err := BulkUpsert(ctx, m.pool, UpsertConfig{
		Table:        m.schema + ".state_boundaries",
		Columns:      []string{"fips", "usps", "name", "geom_ewkb"},
		ConflictKeys: []string{"fips"},
	}, rows)
	if err != nil {
		return 0, eris.Wrap(err, "mirror: upsert boundaries")
	}
	zap.L().Info("mirror: boundaries upserted", zap.Int64("rows", n))
	return n, nil
}
