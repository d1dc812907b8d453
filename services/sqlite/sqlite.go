// Package sqlite provides the "sqlite" scheme: objects stored as rows
// of a SQLite table through the kv bridge.
//
// The driver is the pure-Go modernc.org/sqlite, so the service builds
// without cgo. The table is created on construction if absent:
//
//	CREATE TABLE IF NOT EXISTS objects (
//	    key   TEXT PRIMARY KEY,
//	    value BLOB NOT NULL
//	)
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"regexp"
	"strings"

	_ "modernc.org/sqlite"

	"github.com/polystore/polystore"
	"github.com/polystore/polystore/kv"
)

// Scheme is the registry name of this service.
const Scheme = "sqlite"

var identifier = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

func init() {
	polystore.Register(Scheme, func(options map[string]string) (polystore.Accessor, error) {
		var cfg Config
		if err := polystore.DecodeOptions(options, &cfg); err != nil {
			return nil, err
		}
		return New(cfg)
	})
}

// Config holds the options of the sqlite service.
type Config struct {
	// Path is the database file, or ":memory:" for a transient store.
	Path string `mapstructure:"path"`

	// Table is the table holding the objects. Defaults to "objects".
	Table string `mapstructure:"table"`

	// Root is the path prefix all operations are scoped under.
	Root string `mapstructure:"root"`
}

// New opens the database, ensures the table exists, and constructs the
// accessor.
func New(cfg Config) (polystore.Accessor, error) {
	if cfg.Path == "" {
		return nil, polystore.NewError(polystore.KindConfigInvalid, "sqlite service requires a path")
	}
	table := cfg.Table
	if table == "" {
		table = "objects"
	}
	if !identifier.MatchString(table) {
		return nil, polystore.Errorf(polystore.KindConfigInvalid, "invalid table name %q", table)
	}

	dsn := cfg.Path
	memory := strings.Contains(dsn, ":memory:")
	if !memory {
		dsn += "?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)"
	}
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, polystore.NewError(polystore.KindConfigInvalid, "opening sqlite database").WithCause(err)
	}
	if memory {
		// A pooled second connection would see its own empty memory
		// database.
		db.SetMaxOpenConns(1)
	}
	if _, err := db.Exec("CREATE TABLE IF NOT EXISTS " + table + " (key TEXT PRIMARY KEY, value BLOB NOT NULL)"); err != nil {
		db.Close()
		return nil, polystore.NewError(polystore.KindConfigInvalid, "creating table").WithCause(err)
	}
	return kv.NewBackend(&store{db: db, table: table, name: cfg.Path}, cfg.Root), nil
}

type store struct {
	db    *sql.DB
	table string
	name  string
}

func (s *store) Info() kv.Info {
	return kv.Info{
		Scheme:     Scheme,
		Name:       s.name,
		Capability: kv.Capability{Get: true, Set: true, Delete: true, Scan: true},
	}
}

func (s *store) Get(ctx context.Context, key string) ([]byte, bool, error) {
	var value []byte
	err := s.db.QueryRowContext(ctx,
		"SELECT value FROM "+s.table+" WHERE key = ?", key).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, storeErr(err)
	}
	return value, true, nil
}

func (s *store) Set(ctx context.Context, key string, value []byte) error {
	_, err := s.db.ExecContext(ctx,
		"INSERT INTO "+s.table+" (key, value) VALUES (?, ?) ON CONFLICT(key) DO UPDATE SET value = excluded.value",
		key, value)
	return storeErr(err)
}

func (s *store) Delete(ctx context.Context, key string) error {
	_, err := s.db.ExecContext(ctx, "DELETE FROM "+s.table+" WHERE key = ?", key)
	return storeErr(err)
}

func (s *store) Scan(ctx context.Context, prefix string) ([]string, error) {
	// Keys are paths, so a half-open range on the incremented prefix
	// covers exactly the keys below it and keeps the scan on the
	// primary key index.
	query := "SELECT key FROM " + s.table + " WHERE key >= ? ORDER BY key"
	args := []any{prefix}
	if upper := prefixUpper(prefix); upper != "" {
		query = "SELECT key FROM " + s.table + " WHERE key >= ? AND key < ? ORDER BY key"
		args = append(args, upper)
	}
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, storeErr(err)
	}
	defer rows.Close()

	var keys []string
	for rows.Next() {
		var key string
		if err := rows.Scan(&key); err != nil {
			return nil, storeErr(err)
		}
		keys = append(keys, key)
	}
	if err := rows.Err(); err != nil {
		return nil, storeErr(err)
	}
	return keys, nil
}

func (s *store) Close() error {
	return s.db.Close()
}

// prefixUpper returns the smallest string greater than every string
// with the given prefix, or "" when no bound exists.
func prefixUpper(prefix string) string {
	b := []byte(prefix)
	for i := len(b) - 1; i >= 0; i-- {
		b[i]++
		if b[i] != 0 {
			return string(b[:i+1])
		}
	}
	return ""
}

func storeErr(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return err
	}
	return polystore.NewError(polystore.KindInternal, "sqlite query failed").WithCause(err)
}
