// Package store persists emitted units outside the process: a SQL table
// (sqlite3, postgres or pgx) and a Redis keyspace. Both stores implement
// the emit service interfaces and replace a document's previous units when
// it is emitted again.
package store

import (
	"context"
	"database/sql"
	"encoding/json"
	stderrors "errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	// Registered database/sql drivers
	_ "github.com/jackc/pgx/v5/stdlib"
	_ "github.com/lib/pq"
	_ "github.com/mattn/go-sqlite3"

	"github.com/conduit-lang/docmeta/compiler/analyzer"
	"github.com/conduit-lang/docmeta/internal/emit"
	"github.com/conduit-lang/docmeta/internal/logging"
	"github.com/conduit-lang/docmeta/runtime/metadata"
)

// ErrNotFound is returned by Lookup when no unit is stored under a key
var ErrNotFound = stderrors.New("unit not found")

// Supported database/sql driver names
const (
	DriverSQLite   = "sqlite3"
	DriverPostgres = "postgres"
	DriverPgx      = "pgx"
)

// Table is the name of the units table
const Table = "docmeta_units"

// Dialect selects the placeholder syntax of a driver
type Dialect int

const (
	// DialectQuestion uses ? placeholders
	DialectQuestion Dialect = iota
	// DialectDollar uses $1, $2, ... placeholders
	DialectDollar
)

// DialectFor returns the dialect of a driver name
func DialectFor(driver string) (Dialect, error) {
	switch driver {
	case DriverSQLite:
		return DialectQuestion, nil
	case DriverPostgres, DriverPgx:
		return DialectDollar, nil
	default:
		return 0, fmt.Errorf("unsupported store driver %q (expected %s, %s or %s)",
			driver, DriverSQLite, DriverPostgres, DriverPgx)
	}
}

// Rebind rewrites ? placeholders for the dialect
func (d Dialect) Rebind(query string) string {
	if d != DialectDollar {
		return query
	}

	var b strings.Builder
	b.Grow(len(query) + 8)
	n := 0
	for _, r := range query {
		if r == '?' {
			n++
			b.WriteByte('$')
			b.WriteString(strconv.Itoa(n))
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

var migrations = []string{
	`CREATE TABLE IF NOT EXISTS docmeta_units (
	id TEXT PRIMARY KEY,
	run_id TEXT NOT NULL,
	document TEXT NOT NULL,
	target_kind TEXT NOT NULL,
	target TEXT NOT NULL,
	parent TEXT NOT NULL DEFAULT '',
	line INTEGER NOT NULL DEFAULT 0,
	fields TEXT NOT NULL,
	overrides TEXT NOT NULL DEFAULT '[]',
	created_at TIMESTAMP NOT NULL
)`,
	`CREATE INDEX IF NOT EXISTS idx_docmeta_units_document ON docmeta_units(document)`,
}

const upsertUnit = `INSERT INTO docmeta_units
	(id, run_id, document, target_kind, target, parent, line, fields, overrides, created_at)
VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
ON CONFLICT (id) DO UPDATE SET
	run_id = excluded.run_id,
	document = excluded.document,
	line = excluded.line,
	fields = excluded.fields,
	overrides = excluded.overrides,
	created_at = excluded.created_at`

const deleteDocument = `DELETE FROM docmeta_units WHERE document = ?`

const selectUnit = `SELECT document, target_kind, target, parent, line, fields, overrides
FROM docmeta_units WHERE id = ?`

// SQLStore writes units into the docmeta_units table
type SQLStore struct {
	db      *sql.DB
	dialect Dialect
	runID   string
	logger  *zap.Logger
	now     func() time.Time
}

// OpenSQL opens and pings a database for the given driver
func OpenSQL(ctx context.Context, driver, dsn string, logger *zap.Logger) (*SQLStore, error) {
	if _, err := DialectFor(driver); err != nil {
		return nil, err
	}

	db, err := sql.Open(driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("open %s store: %w", driver, err)
	}
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("connect %s store: %w", driver, err)
	}
	return NewSQLStore(db, driver, logger)
}

// NewSQLStore wraps an open database. Every store gets a fresh run id that
// is recorded on the rows it writes.
func NewSQLStore(db *sql.DB, driver string, logger *zap.Logger) (*SQLStore, error) {
	dialect, err := DialectFor(driver)
	if err != nil {
		return nil, err
	}
	return &SQLStore{
		db:      db,
		dialect: dialect,
		runID:   uuid.NewString(),
		logger:  logging.OrNop(logger),
		now:     time.Now,
	}, nil
}

// RunID identifies the rows written by this store
func (s *SQLStore) RunID() string {
	return s.runID
}

// Migrate creates the units table if needed
func (s *SQLStore) Migrate(ctx context.Context) error {
	for _, stmt := range migrations {
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("failed to migrate %s: %w", Table, err)
		}
	}
	return nil
}

// Emit upserts a single unit
func (s *SQLStore) Emit(ctx context.Context, unit analyzer.Unit) error {
	return s.upsert(ctx, s.db, emit.Encode(unit))
}

// EmitDocument replaces every row of document inside one transaction
func (s *SQLStore) EmitDocument(ctx context.Context, document string, units []analyzer.Unit) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}

	if _, err := tx.ExecContext(ctx, s.dialect.Rebind(deleteDocument), document); err != nil {
		tx.Rollback()
		return fmt.Errorf("clear units of %s: %w", document, err)
	}
	for _, u := range units {
		if err := s.upsert(ctx, tx, emit.Encode(u)); err != nil {
			tx.Rollback()
			return err
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit units of %s: %w", document, err)
	}

	s.logger.Debug("units stored",
		zap.String("file", document),
		zap.Int("units", len(units)),
		zap.String("run_id", s.runID))
	return nil
}

// Remove deletes every unit of a deleted document
func (s *SQLStore) Remove(ctx context.Context, document string) error {
	return s.EmitDocument(ctx, document, nil)
}

type execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

func (s *SQLStore) upsert(ctx context.Context, db execer, e metadata.Entry) error {
	fields, err := json.Marshal(e.Fields)
	if err != nil {
		return fmt.Errorf("encode fields of %s: %w", e.Key(), err)
	}
	overrides, err := json.Marshal(nonNil(e.Overrides))
	if err != nil {
		return fmt.Errorf("encode overrides of %s: %w", e.Key(), err)
	}

	_, err = db.ExecContext(ctx, s.dialect.Rebind(upsertUnit),
		e.Key(), s.runID, e.Document, e.Kind, e.Target, e.Parent, e.Line,
		string(fields), string(overrides), s.now().UTC())
	if err != nil {
		return fmt.Errorf("store unit %s: %w", e.Key(), err)
	}
	return nil
}

// Lookup loads the unit stored under a registry key (see metadata.EntryKey)
func (s *SQLStore) Lookup(ctx context.Context, key string) (*metadata.Entry, error) {
	var (
		e                 metadata.Entry
		fields, overrides string
	)
	err := s.db.QueryRowContext(ctx, s.dialect.Rebind(selectUnit), key).
		Scan(&e.Document, &e.Kind, &e.Target, &e.Parent, &e.Line, &fields, &overrides)
	if stderrors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, key)
	}
	if err != nil {
		return nil, fmt.Errorf("lookup %s: %w", key, err)
	}

	if err := json.Unmarshal([]byte(fields), &e.Fields); err != nil {
		return nil, fmt.Errorf("decode fields of %s: %w", key, err)
	}
	if err := json.Unmarshal([]byte(overrides), &e.Overrides); err != nil {
		return nil, fmt.Errorf("decode overrides of %s: %w", key, err)
	}
	if len(e.Overrides) == 0 {
		e.Overrides = nil
	}
	return &e, nil
}

// Close closes the database
func (s *SQLStore) Close() error {
	return s.db.Close()
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
