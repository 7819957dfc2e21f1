// Package mysql reads snapshots from a MySQL query.
package mysql

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/go-sql-driver/mysql"

	"github.com/JonMunkholm/tablemirror/internal/core"
)

// PoolConfig holds connection pool settings.
type PoolConfig struct {
	DSN      string
	MaxConns int

	// MaxIdleConns is how many idle connections database/sql keeps open.
	// It has no minimum-size setting.
	MaxIdleConns int

	MaxConnLifetime time.Duration
	MaxConnIdleTime time.Duration
}

// Open connects and verifies the connection. DATE and DATETIME columns are
// decoded as time.Time.
func Open(ctx context.Context, cfg PoolConfig) (*sql.DB, error) {
	dsnCfg, err := mysql.ParseDSN(cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("parse DSN: %w", err)
	}
	dsnCfg.ParseTime = true

	connector, err := mysql.NewConnector(dsnCfg)
	if err != nil {
		return nil, fmt.Errorf("create connector: %w", err)
	}
	db := sql.OpenDB(connector)
	applyPool(db, cfg)

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("mysql ping failed: %w", err)
	}
	return db, nil
}

// applyPool sets pool limits. Zero counts keep the database/sql defaults.
func applyPool(db *sql.DB, cfg PoolConfig) {
	if cfg.MaxConns > 0 {
		db.SetMaxOpenConns(cfg.MaxConns)
	}
	if cfg.MaxIdleConns > 0 {
		db.SetMaxIdleConns(cfg.MaxIdleConns)
	}
	db.SetConnMaxLifetime(cfg.MaxConnLifetime)
	db.SetConnMaxIdleTime(cfg.MaxConnIdleTime)
}

// Source runs a fixed query and returns its result set as a snapshot.
type Source struct {
	db     *sql.DB
	query  string
	name   string
	logger *slog.Logger
}

// NewSource creates a source. name becomes the snapshot name.
func NewSource(db *sql.DB, query, name string, logger *slog.Logger) *Source {
	if logger == nil {
		logger = slog.Default()
	}
	return &Source{db: db, query: query, name: name, logger: logger}
}

// FetchSnapshot runs the query.
func (s *Source) FetchSnapshot(ctx context.Context) (core.Snapshot, error) {
	rows, err := s.db.QueryContext(ctx, s.query)
	if err != nil {
		return core.Snapshot{}, fmt.Errorf("query: %w", err)
	}
	defer rows.Close()

	colTypes, err := rows.ColumnTypes()
	if err != nil {
		return core.Snapshot{}, fmt.Errorf("column types: %w", err)
	}
	columns := make([]core.Column, len(colTypes))
	for i, ct := range colTypes {
		columns[i] = core.Column{FieldName: ct.Name(), DataType: dataTypeFor(ct.DatabaseTypeName())}
	}

	var out []core.Row
	values := make([]any, len(columns))
	dest := make([]any, len(columns))
	for i := range values {
		dest[i] = &values[i]
	}

	for rows.Next() {
		if err := rows.Scan(dest...); err != nil {
			return core.Snapshot{}, fmt.Errorf("scan row %d: %w", len(out)+1, err)
		}
		row := make(core.Row, len(columns))
		for i, v := range values {
			row[i] = core.NewCell(columns[i].DataType, convertValue(columns[i].DataType, v))
		}
		out = append(out, row)
	}
	if err := rows.Err(); err != nil {
		return core.Snapshot{}, fmt.Errorf("iterate rows: %w", err)
	}

	s.logger.Debug("snapshot fetched", "columns", len(columns), "rows", len(out))
	return core.Snapshot{Name: s.name, Columns: columns, Rows: out}, nil
}

// dataTypeFor maps a MySQL column type name onto a column type.
func dataTypeFor(name string) core.DataType {
	switch strings.TrimPrefix(strings.ToUpper(name), "UNSIGNED ") {
	case "TINYINT", "SMALLINT", "MEDIUMINT", "INT", "BIGINT", "YEAR":
		return core.TypeInt
	case "FLOAT", "DOUBLE", "DECIMAL":
		return core.TypeFloat
	case "DATE":
		return core.TypeDate
	case "DATETIME", "TIMESTAMP":
		return core.TypeDateTime
	case "BIT", "BOOL", "BOOLEAN":
		return core.TypeBool
	case "CHAR", "VARCHAR", "TEXT", "TINYTEXT", "MEDIUMTEXT", "LONGTEXT", "ENUM", "SET", "JSON":
		return core.TypeString
	case "GEOMETRY", "POINT", "LINESTRING", "POLYGON":
		return core.TypeSpatial
	default:
		return core.TypeUnknown
	}
}

// convertValue decodes the text-protocol bytes the driver returns for
// numeric columns. Everything else is normalized by core.NewCell.
func convertValue(t core.DataType, v any) any {
	b, ok := v.([]byte)
	if !ok || !t.IsNumeric() {
		return v
	}
	if n, ok := core.NumericValue(string(b)); ok {
		if t == core.TypeFloat {
			if i, isInt := n.(int64); isInt {
				return float64(i)
			}
		}
		return n
	}
	return string(b)
}
