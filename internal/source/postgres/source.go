// Package postgres reads snapshots from a PostgreSQL query and relays
// NOTIFY payloads as change signals.
package postgres

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/JonMunkholm/tablemirror/internal/core"
)

// PoolConfig holds connection pool settings.
type PoolConfig struct {
	URL             string
	MaxConns        int
	MinConns        int
	MaxConnLifetime time.Duration
	MaxConnIdleTime time.Duration
}

// NewPool connects to the database and verifies the connection.
func NewPool(ctx context.Context, cfg PoolConfig) (*pgxpool.Pool, error) {
	poolConfig, err := pgxpool.ParseConfig(cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("parse database URL: %w", err)
	}

	if cfg.MaxConns > 0 {
		poolConfig.MaxConns = int32(cfg.MaxConns)
	}
	if cfg.MinConns > 0 {
		poolConfig.MinConns = int32(cfg.MinConns)
	}
	if cfg.MaxConnLifetime > 0 {
		poolConfig.MaxConnLifetime = cfg.MaxConnLifetime
	}
	if cfg.MaxConnIdleTime > 0 {
		poolConfig.MaxConnIdleTime = cfg.MaxConnIdleTime
	}

	pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		return nil, fmt.Errorf("connect: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping: %w", err)
	}
	return pool, nil
}

// Source runs a fixed query and returns its result set as a snapshot.
type Source struct {
	pool   *pgxpool.Pool
	query  string
	name   string
	logger *slog.Logger
}

// NewSource creates a source. name becomes the snapshot name.
func NewSource(pool *pgxpool.Pool, query, name string, logger *slog.Logger) *Source {
	if logger == nil {
		logger = slog.Default()
	}
	return &Source{pool: pool, query: query, name: name, logger: logger}
}

// FetchSnapshot runs the query.
func (s *Source) FetchSnapshot(ctx context.Context) (core.Snapshot, error) {
	start := time.Now()

	rows, err := s.pool.Query(ctx, s.query)
	if err != nil {
		return core.Snapshot{}, fmt.Errorf("query: %w", err)
	}
	defer rows.Close()

	fields := rows.FieldDescriptions()
	columns := make([]core.Column, len(fields))
	for i, fd := range fields {
		columns[i] = core.Column{FieldName: fd.Name, DataType: dataTypeFor(fd.DataTypeOID)}
	}

	var out []core.Row
	for rows.Next() {
		values, err := rows.Values()
		if err != nil {
			return core.Snapshot{}, fmt.Errorf("read row %d: %w", len(out)+1, err)
		}
		row := make(core.Row, len(columns))
		for i, v := range values {
			row[i] = core.NewCell(columns[i].DataType, convertValue(v))
		}
		out = append(out, row)
	}
	if err := rows.Err(); err != nil {
		return core.Snapshot{}, fmt.Errorf("iterate rows: %w", err)
	}

	s.logger.Debug("snapshot fetched",
		"columns", len(columns),
		"rows", len(out),
		"duration_ms", time.Since(start).Milliseconds(),
	)

	return core.Snapshot{Name: s.name, Columns: columns, Rows: out}, nil
}

// dataTypeFor maps a PostgreSQL type OID onto a column type.
func dataTypeFor(oid uint32) core.DataType {
	switch oid {
	case pgtype.Int2OID, pgtype.Int4OID, pgtype.Int8OID:
		return core.TypeInt
	case pgtype.Float4OID, pgtype.Float8OID, pgtype.NumericOID:
		return core.TypeFloat
	case pgtype.DateOID:
		return core.TypeDate
	case pgtype.TimestampOID, pgtype.TimestamptzOID:
		return core.TypeDateTime
	case pgtype.BoolOID:
		return core.TypeBool
	case pgtype.TextOID, pgtype.VarcharOID, pgtype.BPCharOID, pgtype.NameOID, pgtype.UUIDOID:
		return core.TypeString
	case pgtype.PointOID, pgtype.LineOID, pgtype.LsegOID, pgtype.BoxOID,
		pgtype.PathOID, pgtype.PolygonOID, pgtype.CircleOID:
		return core.TypeSpatial
	default:
		return core.TypeUnknown
	}
}

// convertValue turns pgx-specific decoded values into plain Go values.
func convertValue(v any) any {
	switch x := v.(type) {
	case pgtype.Numeric:
		f, err := x.Float64Value()
		if err != nil || !f.Valid {
			return nil
		}
		return f.Float64
	case [16]byte:
		return uuid.UUID(x).String()
	default:
		return v
	}
}
