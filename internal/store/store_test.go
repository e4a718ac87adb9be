package store

import (
	"context"
	"database/sql"
	stderrors "errors"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/alicebob/miniredis/v2"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/conduit-lang/docmeta/compiler/analyzer"
	"github.com/conduit-lang/docmeta/compiler/errors"
	"github.com/conduit-lang/docmeta/compiler/expr"
	"github.com/conduit-lang/docmeta/internal/emit"
	"github.com/conduit-lang/docmeta/runtime/metadata"
)

func unit(ref, document string, fields analyzer.Fields) analyzer.Unit {
	return analyzer.Unit{
		Target: analyzer.Target{
			Kind:      analyzer.TargetSymbol,
			Reference: ref,
			Expr:      expr.Expr{Source: ref, Node: "identifier"},
		},
		Fields: fields,
		File:   document,
		Line:   3,
	}
}

func guide(title, document string) analyzer.Unit {
	return analyzer.Unit{
		Target: analyzer.Target{
			Kind:   analyzer.TargetGuide,
			Title:  title,
			Parent: expr.Expr{Source: "guides", Node: "identifier"},
		},
		Fields: analyzer.Fields{"name": title},
		File:   document,
		Line:   1,
	}
}

func TestDialectFor(t *testing.T) {
	tests := []struct {
		driver  string
		dialect Dialect
		wantErr bool
	}{
		{"sqlite3", DialectQuestion, false},
		{"postgres", DialectDollar, false},
		{"pgx", DialectDollar, false},
		{"mysql", 0, true},
	}
	for _, tt := range tests {
		t.Run(tt.driver, func(t *testing.T) {
			d, err := DialectFor(tt.driver)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.dialect, d)
		})
	}
}

func TestRebind(t *testing.T) {
	q := "SELECT a FROM t WHERE b = ? AND c = ?"
	assert.Equal(t, q, DialectQuestion.Rebind(q))
	assert.Equal(t, "SELECT a FROM t WHERE b = $1 AND c = $2", DialectDollar.Rebind(q))
}

func newMockStore(t *testing.T, driver string) (*SQLStore, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	s, err := NewSQLStore(db, driver, nil)
	require.NoError(t, err)
	s.now = func() time.Time { return time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC) }
	return s, mock
}

func TestSQLStore_Migrate(t *testing.T) {
	s, mock := newMockStore(t, DriverSQLite)

	mock.ExpectExec(`CREATE TABLE IF NOT EXISTS docmeta_units`).WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec(`CREATE INDEX IF NOT EXISTS idx_docmeta_units_document`).WillReturnResult(sqlmock.NewResult(0, 0))

	require.NoError(t, s.Migrate(context.Background()))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSQLStore_EmitDocument_Postgres(t *testing.T) {
	s, mock := newMockStore(t, DriverPgx)
	_, err := uuid.Parse(s.RunID())
	require.NoError(t, err)

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta(`DELETE FROM docmeta_units WHERE document = $1`)).
		WithArgs("docs/a.md").
		WillReturnResult(sqlmock.NewResult(0, 2))
	mock.ExpectExec(regexp.QuoteMeta(`VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`)).
		WithArgs("symbol:a", s.RunID(), "docs/a.md", "symbol", "a", "", 3, `{"since":1}`, `[]`, sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(`INSERT INTO docmeta_units`).
		WithArgs("guide:guides/Intro", s.RunID(), "docs/a.md", "guide", "Intro", "guides", 1, `{"name":"Intro"}`, `[]`, sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	d := emit.NewDriver(nil, s)
	err = d.Emit(context.Background(), "docs/a.md", []analyzer.Unit{
		unit("a", "docs/a.md", analyzer.Fields{"since": 1}),
		guide("Intro", "docs/a.md"),
	})
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSQLStore_Remove(t *testing.T) {
	s, mock := newMockStore(t, DriverSQLite)

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta(`DELETE FROM docmeta_units WHERE document = ?`)).
		WithArgs("docs/a.md").
		WillReturnResult(sqlmock.NewResult(0, 3))
	mock.ExpectCommit()

	require.NoError(t, s.Remove(context.Background(), "docs/a.md"))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSQLStore_EmitDocument_RollsBack(t *testing.T) {
	s, mock := newMockStore(t, DriverSQLite)

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta(`DELETE FROM docmeta_units WHERE document = ?`)).
		WithArgs("docs/a.md").
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec(`INSERT INTO docmeta_units`).WillReturnError(stderrors.New("disk I/O error"))
	mock.ExpectRollback()

	err := emit.NewDriver(nil, s).Emit(context.Background(), "docs/a.md",
		[]analyzer.Unit{unit("a", "docs/a.md", nil)})
	require.Error(t, err)
	assert.True(t, errors.HasCode(err, errors.ErrEmitFailed))
	assert.Contains(t, err.Error(), "disk I/O error")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSQLStore_EmitUpserts(t *testing.T) {
	s, mock := newMockStore(t, DriverSQLite)

	mock.ExpectExec(regexp.QuoteMeta(`ON CONFLICT (id) DO UPDATE SET`)).
		WithArgs("symbol:a", s.RunID(), "docs/a.md", "symbol", "a", "", 3, `{"stability":"deprecated"}`, `["stability"]`, sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))

	u := unit("a", "docs/a.md", analyzer.Fields{"stability": "deprecated"})
	u.Overrides = []string{"stability"}
	require.NoError(t, s.Emit(context.Background(), u))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSQLStore_Lookup(t *testing.T) {
	s, mock := newMockStore(t, DriverPostgres)

	rows := sqlmock.NewRows([]string{"document", "target_kind", "target", "parent", "line", "fields", "overrides"}).
		AddRow("docs/a.md", "symbol", "a", "", 3, `{"ref":{"$expr":"B"}}`, `["stability"]`)
	mock.ExpectQuery(regexp.QuoteMeta(`FROM docmeta_units WHERE id = $1`)).
		WithArgs("symbol:a").
		WillReturnRows(rows)

	e, err := s.Lookup(context.Background(), metadata.EntryKey(metadata.KindSymbol, "", "a"))
	require.NoError(t, err)
	assert.Equal(t, "a", e.Target)
	assert.Equal(t, 3, e.Line)
	assert.Equal(t, map[string]any{"$expr": "B"}, e.Fields["ref"])
	assert.Equal(t, []string{"stability"}, e.Overrides)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSQLStore_LookupMissing(t *testing.T) {
	s, mock := newMockStore(t, DriverSQLite)
	mock.ExpectQuery(`SELECT document`).WithArgs("symbol:nope").WillReturnError(sql.ErrNoRows)

	_, err := s.Lookup(context.Background(), "symbol:nope")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestNewSQLStore_UnknownDriver(t *testing.T) {
	db, _, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	_, err = NewSQLStore(db, "oracle", nil)
	assert.Error(t, err)
}

func setupRedis(t *testing.T) (*RedisStore, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	s := NewRedisStoreWithClient(client, "", nil)
	t.Cleanup(func() { s.Close() })
	return s, mr
}

func TestRedisStore_EmitAndLookup(t *testing.T) {
	s, mr := setupRedis(t)
	ctx := context.Background()

	err := emit.NewDriver(nil, s).Emit(ctx, "docs/a.md", []analyzer.Unit{
		unit("a", "docs/a.md", analyzer.Fields{"since": 1}),
		guide("Intro", "docs/a.md"),
	})
	require.NoError(t, err)

	assert.Equal(t, "docs/a.md", mr.HGet("docmeta:symbol:a", "document"))
	assert.Equal(t, `{"since":1}`, mr.HGet("docmeta:symbol:a", "fields"))

	targets, err := s.Targets(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"guide:guides/Intro", "symbol:a"}, targets)

	e, err := s.Lookup(ctx, "guide:guides/Intro")
	require.NoError(t, err)
	assert.Equal(t, metadata.KindGuide, e.Kind)
	assert.Equal(t, "guides", e.Parent)
	assert.Equal(t, 1, e.Line)
	assert.Equal(t, "Intro", e.Fields["name"])
}

func TestRedisStore_ReplacesDocument(t *testing.T) {
	s, mr := setupRedis(t)
	ctx := context.Background()

	require.NoError(t, s.EmitDocument(ctx, "docs/a.md", []analyzer.Unit{
		unit("a", "docs/a.md", nil),
		unit("b", "docs/a.md", nil),
	}))
	require.NoError(t, s.EmitDocument(ctx, "docs/a.md", []analyzer.Unit{
		unit("a", "docs/a.md", nil),
	}))

	assert.False(t, mr.Exists("docmeta:symbol:b"))
	targets, err := s.Targets(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"symbol:a"}, targets)

	_, err = s.Lookup(ctx, "symbol:b")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestRedisStore_Remove(t *testing.T) {
	s, mr := setupRedis(t)
	ctx := context.Background()

	require.NoError(t, s.EmitDocument(ctx, "docs/a.md", []analyzer.Unit{unit("a", "docs/a.md", nil)}))
	require.NoError(t, s.EmitDocument(ctx, "docs/b.md", []analyzer.Unit{unit("b", "docs/b.md", nil)}))
	require.NoError(t, emit.NewDriver(nil, s).Remove(ctx, "docs/a.md"))

	assert.False(t, mr.Exists("docmeta:symbol:a"))
	assert.False(t, mr.Exists("docmeta:document:docs/a.md"))
	targets, err := s.Targets(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"symbol:b"}, targets)
}

func TestRedisStore_Prefix(t *testing.T) {
	mr := miniredis.RunT(t)
	s := NewRedisStoreWithClient(redis.NewClient(&redis.Options{Addr: mr.Addr()}), "test:", nil)
	defer s.Close()

	require.NoError(t, s.Emit(context.Background(), unit("a", "docs/a.md", nil)))
	assert.True(t, mr.Exists("test:symbol:a"))
	assert.True(t, mr.Exists("test:targets"))
}

func TestNewRedisStore_ConnectionError(t *testing.T) {
	_, err := NewRedisStore(RedisConfig{Addr: "localhost:99999"}, nil)
	assert.Error(t, err)
}

func TestOpen_RedisOnly(t *testing.T) {
	mr := miniredis.RunT(t)

	stores, err := Open(context.Background(), Config{Redis: RedisConfig{Addr: mr.Addr()}}, nil)
	require.NoError(t, err)
	defer stores.Close()

	assert.Nil(t, stores.SQL)
	require.NotNil(t, stores.Redis)
	assert.Len(t, stores.Services(), 1)
}

func TestOpen_UnknownDriver(t *testing.T) {
	_, err := Open(context.Background(), Config{Driver: "oracle"}, nil)
	assert.Error(t, err)
}
