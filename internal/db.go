package internal

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/jmoiron/sqlx"
	_ "modernc.org/sqlite"

	"github.com/sensiblebit/certswap"
)

// DB is the optional sqlite inventory of scan matches. It gives operators an
// audit trail of what a rotation saw and touched, and lets two runs be
// diffed after the fact.
type DB struct {
	*sqlx.DB
}

// MatchRecord is one located PEM block as stored in the inventory.
type MatchRecord struct {
	Path         string    `db:"path"`
	Kind         string    `db:"kind"`
	StartOffset  int       `db:"start_offset"`
	EndOffset    int       `db:"end_offset"`
	CommonName   string    `db:"common_name"`
	DiscoveredAt time.Time `db:"discovered_at"`
}

// MatchSummary aggregates the inventory for display.
type MatchSummary struct {
	Certificates int `db:"certificates"`
	PrivateKeys  int `db:"private_keys"`
	Files        int `db:"files"`
}

// NewDB opens the inventory database. An empty path selects an in-memory
// database; each :memory: connection is a separate database, so pooling is
// pinned to a single connection.
func NewDB(path string) (*DB, error) {
	dsn := path
	if dsn == "" {
		dsn = "file::memory:?_pragma=temp_store(2)&_pragma=journal_mode(off)&_pragma=synchronous(off)"
	}
	db, err := sqlx.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}
	db.SetMaxOpenConns(1)

	d := &DB{DB: db}
	if err := d.initSchema(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("initializing schema: %w", err)
	}
	slog.Debug("inventory database initialized", "path", path)
	return d, nil
}

func (db *DB) initSchema() error {
	_, err := db.Exec(`
		CREATE TABLE IF NOT EXISTS matches (
			path          text NOT NULL,
			kind          text NOT NULL,
			start_offset  integer NOT NULL,
			end_offset    integer NOT NULL,
			common_name   text,
			discovered_at timestamp NOT NULL,
			PRIMARY KEY(path, start_offset, discovered_at)
		);
	`)
	if err != nil {
		return fmt.Errorf("creating matches table: %w", err)
	}
	_, err = db.Exec(`
		CREATE INDEX IF NOT EXISTS idx_matches_common_name ON matches (common_name);
	`)
	if err != nil {
		return fmt.Errorf("creating common name index on matches table: %w", err)
	}
	return nil
}

// RecordMatches inserts one inventory row per locator, all stamped with the
// same discovery time.
func (db *DB) RecordMatches(locators []certswap.Locator, commonName string, at time.Time) error {
	for _, loc := range locators {
		rec := MatchRecord{
			Path:         loc.Path,
			Kind:         string(loc.Kind),
			StartOffset:  loc.Span.Start,
			EndOffset:    loc.Span.End,
			CommonName:   commonName,
			DiscoveredAt: at,
		}
		_, err := db.NamedExec(`
			INSERT OR IGNORE INTO matches (path, kind, start_offset, end_offset, common_name, discovered_at)
			VALUES (:path, :kind, :start_offset, :end_offset, :common_name, :discovered_at)
		`, rec)
		if err != nil {
			return fmt.Errorf("inserting match for %s: %w", loc.Path, err)
		}
	}
	return nil
}

// GetAllMatches returns every inventory row, ordered by path and offset.
func (db *DB) GetAllMatches() ([]MatchRecord, error) {
	var matches []MatchRecord
	err := db.Select(&matches, "SELECT * FROM matches ORDER BY path, start_offset")
	if err != nil {
		return nil, fmt.Errorf("getting all matches: %w", err)
	}
	return matches, nil
}

// GetSummary returns aggregate counts over the inventory.
func (db *DB) GetSummary() (*MatchSummary, error) {
	var summary MatchSummary
	err := db.Get(&summary, `
		SELECT
			COUNT(CASE WHEN kind = ? THEN 1 END) AS certificates,
			COUNT(CASE WHEN kind = ? THEN 1 END) AS private_keys,
			COUNT(DISTINCT path) AS files
		FROM matches
	`, string(certswap.KindCertificate), string(certswap.KindPrivateKey))
	if err != nil {
		return nil, fmt.Errorf("summarizing matches: %w", err)
	}
	return &summary, nil
}

// SaveToDisk writes an in-memory inventory to a file at the given path.
// VACUUM INTO produces a clean, compact copy in a single operation.
func (db *DB) SaveToDisk(path string) error {
	_, err := db.Exec("VACUUM INTO ?", path)
	if err != nil {
		return fmt.Errorf("saving database to %s: %w", path, err)
	}
	slog.Info("inventory saved to disk", "path", path)
	return nil
}
