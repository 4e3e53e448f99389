package postgres

import (
	"context"
	"database/sql"
	"errors"

	"github.com/marcusaleks/Portfolio-Manager/internal/repository"
	"github.com/marcusaleks/Portfolio-Manager/internal/repository/sqlstore"

	"github.com/lib/pq"
)

const schema = `
CREATE TABLE IF NOT EXISTS transactions (
	id          BIGSERIAL PRIMARY KEY,
	ticker      TEXT NOT NULL,
	asset_class TEXT NOT NULL,
	type        TEXT NOT NULL,
	trade_type  TEXT NOT NULL DEFAULT 'SWING_TRADE',
	date        DATE NOT NULL,
	quantity    NUMERIC(28,8) NOT NULL,
	price       NUMERIC(28,2) NOT NULL,
	currency    TEXT NOT NULL DEFAULT 'BRL',
	fx_rate     NUMERIC(28,8) NOT NULL DEFAULT 1,
	institution TEXT NOT NULL DEFAULT '',
	notes       TEXT,
	fingerprint TEXT,
	created_at  TIMESTAMPTZ NOT NULL DEFAULT now()
);
CREATE INDEX IF NOT EXISTS idx_transactions_ticker_date ON transactions (ticker, date, id);

CREATE TABLE IF NOT EXISTS positions (
	id          BIGSERIAL PRIMARY KEY,
	ticker      TEXT NOT NULL,
	asset_class TEXT NOT NULL,
	quantity    NUMERIC(28,8) NOT NULL,
	avg_price   NUMERIC(28,2) NOT NULL,
	currency    TEXT NOT NULL,
	total_cost  NUMERIC(28,2) NOT NULL,
	institution TEXT NOT NULL,
	fingerprint TEXT,
	UNIQUE (ticker, institution)
);

CREATE TABLE IF NOT EXISTS tax_losses (
	id               BIGSERIAL PRIMARY KEY,
	asset_class      TEXT NOT NULL,
	trade_type       TEXT NOT NULL,
	accumulated_loss NUMERIC(28,2) NOT NULL,
	month            TEXT NOT NULL,
	UNIQUE (asset_class, trade_type, month)
);

CREATE TABLE IF NOT EXISTS custodians (
	id          BIGSERIAL PRIMARY KEY,
	ticker      TEXT NOT NULL,
	institution TEXT NOT NULL,
	quantity    NUMERIC(28,8) NOT NULL,
	UNIQUE (ticker, institution)
);

CREATE TABLE IF NOT EXISTS audit_log (
	seq        BIGSERIAL PRIMARY KEY,
	id         TEXT NOT NULL UNIQUE,
	table_name TEXT NOT NULL,
	record_id  BIGINT NOT NULL,
	action     TEXT NOT NULL,
	old_data   TEXT,
	new_data   TEXT,
	ts         TIMESTAMPTZ NOT NULL
);
`

// Dialect is the PostgreSQL flavour of the shared SQL store.
var Dialect = sqlstore.Dialect{
	Name:           "postgres",
	Schema:         schema,
	TranslateError: translateError,
}

// New wraps an open PostgreSQL handle.
func New(db *sql.DB) *sqlstore.Store {
	return sqlstore.New(db, Dialect)
}

// Open connects to url, verifies the connection and migrates the schema.
func Open(ctx context.Context, url string) (*sqlstore.Store, error) {
	db, err := sql.Open("postgres", url)
	if err != nil {
		return nil, err
	}
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}
	store := New(db)
	if err := store.Migrate(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}
	return store, nil
}

func translateError(err error) error {
	if isUniqueViolation(err) {
		return errors.Join(repository.ErrConflict, err)
	}
	return err
}

func isUniqueViolation(err error) bool {
	if err == nil {
		return false
	}
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return pqErr.Code == "23505"
	}
	return false
}
