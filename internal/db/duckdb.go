// Package db keeps a DuckDB copy of the loaded feature attributes so they
// can be inspected with ad-hoc SQL.
package db

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"

	_ "github.com/marcboeker/go-duckdb"

	"github.com/joeblew999/geovisor/internal/aquifer"
	"github.com/joeblew999/geovisor/internal/logger"
)

// FeaturesTable is the table SyncFeatures writes.
const FeaturesTable = "aquifer_features"

// Config holds database configuration.
type Config struct {
	DataDir string // empty for an in-memory database
	DBName  string
	// Extensions are installed and loaded on open, e.g. "spatial".
	Extensions []string
}

// Open opens the DuckDB database described by cfg and tries to load its
// extensions.
func Open(cfg Config) (*sql.DB, error) {
	dsn := ""
	if cfg.DataDir != "" {
		duckdbDir := filepath.Join(cfg.DataDir, "duckdb")
		if err := os.MkdirAll(duckdbDir, 0755); err != nil {
			return nil, fmt.Errorf("failed to create duckdb directory: %w", err)
		}
		dsn = filepath.Join(duckdbDir, cfg.DBName+".duckdb")
	}

	conn, err := sql.Open("duckdb", dsn)
	if err != nil {
		return nil, fmt.Errorf("opening duckdb: %w", err)
	}
	if err := conn.Ping(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("opening duckdb: %w", err)
	}

	// Offline hosts cannot install extensions; the attribute table does not need them.
	for _, ext := range cfg.Extensions {
		if _, err := conn.Exec(fmt.Sprintf("INSTALL %s; LOAD %s;", ext, ext)); err != nil {
			logger.L().Debug("duckdb_extension_unavailable", "extension", ext, "err", err)
		}
	}
	return conn, nil
}

// SyncFeatures replaces the contents of FeaturesTable with the attributes
// of every feature in layer.
func SyncFeatures(ctx context.Context, conn *sql.DB, layer *aquifer.Layer) error {
	tx, err := conn.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("syncing features: %w", err)
	}
	defer tx.Rollback()

	stmts := []string{
		"DROP TABLE IF EXISTS " + FeaturesTable,
		`CREATE TABLE ` + FeaturesTable + ` (
			id INTEGER PRIMARY KEY,
			name VARCHAR,
			code VARCHAR,
			level INTEGER,
			raw_level VARCHAR,
			min_lon DOUBLE, min_lat DOUBLE,
			max_lon DOUBLE, max_lat DOUBLE
		)`,
	}
	for _, s := range stmts {
		if _, err := tx.ExecContext(ctx, s); err != nil {
			return fmt.Errorf("syncing features: %w", err)
		}
	}

	insert, err := tx.PrepareContext(ctx, "INSERT INTO "+FeaturesTable+" VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)")
	if err != nil {
		return fmt.Errorf("syncing features: %w", err)
	}
	defer insert.Close()

	for _, f := range layer.Features() {
		b := f.Bound()
		if _, err := insert.ExecContext(ctx, f.ID, f.Name, f.Code, int(f.Level), f.RawLevel,
			b.Min.Lon(), b.Min.Lat(), b.Max.Lon(), b.Max.Lat()); err != nil {
			return fmt.Errorf("syncing feature %d: %w", f.ID, err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("syncing features: %w", err)
	}
	return nil
}
