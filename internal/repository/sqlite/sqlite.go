// Package sqlite backs the store with a local SQLite file, the default for
// single-user installs.
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"regexp"

	"github.com/marcusaleks/Portfolio-Manager/internal/repository"
	"github.com/marcusaleks/Portfolio-Manager/internal/repository/sqlstore"

	"github.com/mattn/go-sqlite3"
)

// Decimals are kept as TEXT so no precision is lost to REAL affinity.
const schema = `
CREATE TABLE IF NOT EXISTS transactions (
	id          INTEGER PRIMARY KEY AUTOINCREMENT,
	ticker      TEXT NOT NULL,
	asset_class TEXT NOT NULL,
	type        TEXT NOT NULL,
	trade_type  TEXT NOT NULL DEFAULT 'SWING_TRADE',
	date        DATE NOT NULL,
	quantity    TEXT NOT NULL,
	price       TEXT NOT NULL,
	currency    TEXT NOT NULL DEFAULT 'BRL',
	fx_rate     TEXT NOT NULL DEFAULT '1',
	institution TEXT NOT NULL DEFAULT '',
	notes       TEXT,
	fingerprint TEXT,
	created_at  TIMESTAMP NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_transactions_ticker_date ON transactions (ticker, date, id);

CREATE TABLE IF NOT EXISTS positions (
	id          INTEGER PRIMARY KEY AUTOINCREMENT,
	ticker      TEXT NOT NULL,
	asset_class TEXT NOT NULL,
	quantity    TEXT NOT NULL,
	avg_price   TEXT NOT NULL,
	currency    TEXT NOT NULL,
	total_cost  TEXT NOT NULL,
	institution TEXT NOT NULL,
	fingerprint TEXT,
	UNIQUE (ticker, institution)
);

CREATE TABLE IF NOT EXISTS tax_losses (
	id               INTEGER PRIMARY KEY AUTOINCREMENT,
	asset_class      TEXT NOT NULL,
	trade_type       TEXT NOT NULL,
	accumulated_loss TEXT NOT NULL,
	month            TEXT NOT NULL,
	UNIQUE (asset_class, trade_type, month)
);

CREATE TABLE IF NOT EXISTS custodians (
	id          INTEGER PRIMARY KEY AUTOINCREMENT,
	ticker      TEXT NOT NULL,
	institution TEXT NOT NULL,
	quantity    TEXT NOT NULL,
	UNIQUE (ticker, institution)
);

CREATE TABLE IF NOT EXISTS audit_log (
	seq        INTEGER PRIMARY KEY AUTOINCREMENT,
	id         TEXT NOT NULL UNIQUE,
	table_name TEXT NOT NULL,
	record_id  INTEGER NOT NULL,
	action     TEXT NOT NULL,
	old_data   TEXT,
	new_data   TEXT,
	ts         TIMESTAMP NOT NULL
);
`

var placeholder = regexp.MustCompile(`\$(\d+)`)

// Dialect is the SQLite flavour of the shared SQL store.
var Dialect = sqlstore.Dialect{
	Name:           "sqlite",
	Schema:         schema,
	Rebind:         rebind,
	TranslateError: translateError,
}

// Open opens (creating when needed) the database at path and migrates it.
// path may be ":memory:".
func Open(ctx context.Context, path string) (*sqlstore.Store, error) {
	dsn := fmt.Sprintf("%s?_journal_mode=WAL&_synchronous=NORMAL&_foreign_keys=on&_busy_timeout=5000", path)
	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, err
	}
	// one connection: SQLite serializes writers anyway and :memory: is per
	// connection
	db.SetMaxOpenConns(1)

	store := sqlstore.New(db, Dialect)
	if err := store.Migrate(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}
	return store, nil
}

// rebind turns $N into ?N, which SQLite binds by explicit index.
func rebind(query string) string {
	return placeholder.ReplaceAllString(query, "?$1")
}

func translateError(err error) error {
	var sqliteErr sqlite3.Error
	if errors.As(err, &sqliteErr) && sqliteErr.ExtendedCode == sqlite3.ErrConstraintUnique {
		return errors.Join(repository.ErrConflict, err)
	}
	return err
}
