// Package sqlstore implements repository.Store over database/sql. The SQL is
// shared by the postgres and sqlite backends, which only differ in schema,
// placeholder syntax and driver errors.
package sqlstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/marcusaleks/Portfolio-Manager/internal/models"
	"github.com/marcusaleks/Portfolio-Manager/internal/repository"
	"github.com/shopspring/decimal"
)

// Dialect captures what differs between database engines.
type Dialect struct {
	Name   string
	Schema string
	// Rebind rewrites $N placeholders for engines that do not accept them.
	Rebind func(query string) string
	// TranslateError maps driver errors onto repository errors.
	TranslateError func(err error) error
}

type querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// Store implements repository.Store. Inside InTx, q is the open *sql.Tx.
type Store struct {
	db      *sql.DB
	q       querier
	inTx    bool
	dialect Dialect
	now     func() time.Time
}

func New(db *sql.DB, dialect Dialect) *Store {
	if dialect.Rebind == nil {
		dialect.Rebind = func(q string) string { return q }
	}
	if dialect.TranslateError == nil {
		dialect.TranslateError = func(err error) error { return err }
	}
	return &Store{db: db, q: db, dialect: dialect, now: func() time.Time { return time.Now().UTC() }}
}

// Migrate creates the tables when missing.
func (s *Store) Migrate(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, s.dialect.Schema); err != nil {
		return fmt.Errorf("migrate %s schema: %w", s.dialect.Name, err)
	}
	return nil
}

func (s *Store) Close() error { return s.db.Close() }

func (s *Store) DB() *sql.DB { return s.db }

func (s *Store) InTx(ctx context.Context, fn func(repository.Store) error) error {
	if s.inTx {
		return fn(s)
	}
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	child := &Store{db: s.db, q: tx, inTx: true, dialect: s.dialect, now: s.now}
	if err := fn(child); err != nil {
		_ = tx.Rollback()
		return err
	}
	return tx.Commit()
}

func (s *Store) exec(ctx context.Context, query string, args ...any) (sql.Result, error) {
	res, err := s.q.ExecContext(ctx, s.dialect.Rebind(query), args...)
	if err != nil {
		return nil, s.dialect.TranslateError(err)
	}
	return res, nil
}

func (s *Store) query(ctx context.Context, query string, args ...any) (*sql.Rows, error) {
	rows, err := s.q.QueryContext(ctx, s.dialect.Rebind(query), args...)
	if err != nil {
		return nil, s.dialect.TranslateError(err)
	}
	return rows, nil
}

func (s *Store) queryRow(ctx context.Context, query string, args ...any) *sql.Row {
	return s.q.QueryRowContext(ctx, s.dialect.Rebind(query), args...)
}

const transactionColumns = `id, ticker, asset_class, type, trade_type, date, quantity, price, currency, fx_rate, institution, notes, fingerprint, created_at`

func (s *Store) InsertTransaction(ctx context.Context, tx models.Transaction) (int64, error) {
	const query = `
		INSERT INTO transactions
		(ticker, asset_class, type, trade_type, date, quantity, price, currency, fx_rate, institution, notes, fingerprint, created_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13)
		RETURNING id
	`
	if tx.CreatedAt.IsZero() {
		tx.CreatedAt = s.now()
	}
	tx = tx.Sealed()

	var id int64
	err := s.InTx(ctx, func(st repository.Store) error {
		inner := st.(*Store)
		if err := inner.queryRow(ctx, query,
			tx.Ticker, tx.AssetClass, tx.Type, tx.TradeType, tx.DateKey(), tx.Quantity, tx.Price,
			tx.Currency, tx.FXRate, tx.Institution, tx.Notes, tx.Fingerprint, tx.CreatedAt).Scan(&id); err != nil {
			return inner.dialect.TranslateError(err)
		}
		tx.ID = id
		return inner.insertAudit(ctx, repository.NewTransactionAudit(models.AuditInsert, id, nil, &tx, inner.now()))
	})
	if err != nil {
		return 0, err
	}
	return id, nil
}

func (s *Store) UpdateTransaction(ctx context.Context, tx models.Transaction) error {
	const query = `
		UPDATE transactions
		SET ticker=$1, asset_class=$2, type=$3, trade_type=$4, date=$5, quantity=$6, price=$7,
		    currency=$8, fx_rate=$9, institution=$10, notes=$11, fingerprint=$12
		WHERE id=$13
	`
	return s.InTx(ctx, func(st repository.Store) error {
		inner := st.(*Store)
		old, err := inner.GetTransaction(ctx, tx.ID)
		if err != nil {
			return err
		}
		tx.CreatedAt = old.CreatedAt
		tx = tx.Sealed()
		if _, err := inner.exec(ctx, query,
			tx.Ticker, tx.AssetClass, tx.Type, tx.TradeType, tx.DateKey(), tx.Quantity, tx.Price,
			tx.Currency, tx.FXRate, tx.Institution, tx.Notes, tx.Fingerprint, tx.ID); err != nil {
			return err
		}
		return inner.insertAudit(ctx, repository.NewTransactionAudit(models.AuditUpdate, tx.ID, old, &tx, inner.now()))
	})
}

func (s *Store) DeleteTransaction(ctx context.Context, id int64) error {
	return s.InTx(ctx, func(st repository.Store) error {
		inner := st.(*Store)
		old, err := inner.GetTransaction(ctx, id)
		if err != nil {
			return err
		}
		if _, err := inner.exec(ctx, `DELETE FROM transactions WHERE id=$1`, id); err != nil {
			return err
		}
		return inner.insertAudit(ctx, repository.NewTransactionAudit(models.AuditDelete, id, old, nil, inner.now()))
	})
}

func (s *Store) GetTransaction(ctx context.Context, id int64) (*models.Transaction, error) {
	row := s.queryRow(ctx, `SELECT `+transactionColumns+` FROM transactions WHERE id=$1`, id)
	tx, err := scanTransaction(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, repository.ErrNotFound
		}
		return nil, s.dialect.TranslateError(err)
	}
	return &tx, nil
}

func (s *Store) ListTransactions(ctx context.Context) ([]models.Transaction, error) {
	return s.listTransactions(ctx, `SELECT `+transactionColumns+` FROM transactions ORDER BY date ASC, id ASC`)
}

func (s *Store) ListTransactionsByTicker(ctx context.Context, ticker string) ([]models.Transaction, error) {
	return s.listTransactions(ctx, `SELECT `+transactionColumns+` FROM transactions WHERE ticker=$1 ORDER BY date ASC, id ASC`, ticker)
}

// ListTransactionsBetween includes both bounds.
func (s *Store) ListTransactionsBetween(ctx context.Context, start, end time.Time) ([]models.Transaction, error) {
	return s.listTransactions(ctx,
		`SELECT `+transactionColumns+` FROM transactions WHERE date >= $1 AND date <= $2 ORDER BY date ASC, id ASC`,
		start.Format(models.DateLayout), end.Format(models.DateLayout))
}

func (s *Store) listTransactions(ctx context.Context, query string, args ...any) ([]models.Transaction, error) {
	rows, err := s.query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []models.Transaction{}
	for rows.Next() {
		tx, err := scanTransaction(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, tx)
	}
	return out, rows.Err()
}

type scanner interface {
	Scan(dest ...any) error
}

func scanTransaction(sc scanner) (models.Transaction, error) {
	var tx models.Transaction
	var notes, fp sql.NullString
	if err := sc.Scan(&tx.ID, &tx.Ticker, &tx.AssetClass, &tx.Type, &tx.TradeType, &tx.Date,
		&tx.Quantity, &tx.Price, &tx.Currency, &tx.FXRate, &tx.Institution, &notes, &fp, &tx.CreatedAt); err != nil {
		return tx, err
	}
	tx.Date = models.Day(tx.Date)
	tx.CreatedAt = tx.CreatedAt.UTC()
	tx.Notes = notes.String
	tx.Fingerprint = fp.String
	return tx, nil
}

func (s *Store) DistinctTickers(ctx context.Context) ([]string, error) {
	return s.strings(ctx, `SELECT DISTINCT ticker FROM transactions ORDER BY ticker`)
}

func (s *Store) DistinctInstitutions(ctx context.Context) ([]string, error) {
	return s.strings(ctx, `SELECT DISTINCT institution FROM transactions WHERE institution <> '' ORDER BY institution`)
}

func (s *Store) strings(ctx context.Context, query string) ([]string, error) {
	rows, err := s.query(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := []string{}
	for rows.Next() {
		var v string
		if err := rows.Scan(&v); err != nil {
			return nil, err
		}
		out = append(out, v)
	}
	return out, rows.Err()
}

func (s *Store) UpsertPosition(ctx context.Context, p models.Position) error {
	const query = `
		INSERT INTO positions
		(ticker, asset_class, quantity, avg_price, currency, total_cost, institution, fingerprint)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8)
		ON CONFLICT (ticker, institution) DO UPDATE SET
			asset_class = excluded.asset_class,
			quantity = excluded.quantity,
			avg_price = excluded.avg_price,
			currency = excluded.currency,
			total_cost = excluded.total_cost,
			fingerprint = excluded.fingerprint
	`
	p = p.Sealed()
	_, err := s.exec(ctx, query, p.Ticker, p.AssetClass, p.Quantity, p.AvgPrice, p.Currency, p.TotalCost, p.Institution, p.Fingerprint)
	return err
}

const positionColumns = `id, ticker, asset_class, quantity, avg_price, currency, total_cost, institution, fingerprint`

func (s *Store) ListPositions(ctx context.Context) ([]models.Position, error) {
	return s.listPositions(ctx, `SELECT `+positionColumns+` FROM positions ORDER BY ticker, institution`)
}

func (s *Store) ListOpenPositions(ctx context.Context) ([]models.Position, error) {
	return s.listPositions(ctx, `SELECT `+positionColumns+` FROM positions WHERE CAST(quantity AS REAL) > 0 ORDER BY ticker, institution`)
}

func (s *Store) ListPositionsByTicker(ctx context.Context, ticker string) ([]models.Position, error) {
	return s.listPositions(ctx, `SELECT `+positionColumns+` FROM positions WHERE ticker=$1 ORDER BY ticker, institution`, ticker)
}

func (s *Store) listPositions(ctx context.Context, query string, args ...any) ([]models.Position, error) {
	rows, err := s.query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []models.Position{}
	for rows.Next() {
		var p models.Position
		var fp sql.NullString
		if err := rows.Scan(&p.ID, &p.Ticker, &p.AssetClass, &p.Quantity, &p.AvgPrice, &p.Currency, &p.TotalCost, &p.Institution, &fp); err != nil {
			return nil, err
		}
		p.Fingerprint = fp.String
		out = append(out, p)
	}
	return out, rows.Err()
}

func (s *Store) ClearPositions(ctx context.Context) error {
	_, err := s.exec(ctx, `DELETE FROM positions`)
	return err
}

func (s *Store) UpsertTaxLoss(ctx context.Context, loss models.TaxLoss) error {
	const query = `
		INSERT INTO tax_losses (asset_class, trade_type, accumulated_loss, month)
		VALUES ($1,$2,$3,$4)
		ON CONFLICT (asset_class, trade_type, month) DO UPDATE SET
			accumulated_loss = excluded.accumulated_loss
	`
	_, err := s.exec(ctx, query, loss.AssetClass, loss.TradeType, loss.AccumulatedLoss, loss.Month)
	return err
}

// LatestTaxLoss returns the loss of the most recent month stored for key,
// zero when none is.
func (s *Store) LatestTaxLoss(ctx context.Context, key models.LossKey) (decimal.Decimal, error) {
	const query = `
		SELECT accumulated_loss FROM tax_losses
		WHERE asset_class=$1 AND trade_type=$2
		ORDER BY month DESC
		LIMIT 1
	`
	var loss decimal.Decimal
	if err := s.queryRow(ctx, query, key.AssetClass, key.TradeType).Scan(&loss); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return decimal.Zero, nil
		}
		return decimal.Zero, s.dialect.TranslateError(err)
	}
	return loss, nil
}

func (s *Store) ListTaxLosses(ctx context.Context) ([]models.TaxLoss, error) {
	rows, err := s.query(ctx, `SELECT id, asset_class, trade_type, accumulated_loss, month FROM tax_losses ORDER BY month, asset_class, trade_type`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []models.TaxLoss{}
	for rows.Next() {
		var l models.TaxLoss
		if err := rows.Scan(&l.ID, &l.AssetClass, &l.TradeType, &l.AccumulatedLoss, &l.Month); err != nil {
			return nil, err
		}
		out = append(out, l)
	}
	return out, rows.Err()
}

func (s *Store) ClearTaxLosses(ctx context.Context) error {
	_, err := s.exec(ctx, `DELETE FROM tax_losses`)
	return err
}

func (s *Store) RebuildCustodians(ctx context.Context, custodians []models.Custodian) error {
	return s.InTx(ctx, func(st repository.Store) error {
		inner := st.(*Store)
		if _, err := inner.exec(ctx, `DELETE FROM custodians`); err != nil {
			return err
		}
		for _, c := range custodians {
			if _, err := inner.exec(ctx, `INSERT INTO custodians (ticker, institution, quantity) VALUES ($1,$2,$3)`,
				c.Ticker, c.Institution, c.Quantity); err != nil {
				return err
			}
		}
		return nil
	})
}

func (s *Store) ListCustodians(ctx context.Context) ([]models.Custodian, error) {
	rows, err := s.query(ctx, `SELECT id, ticker, institution, quantity FROM custodians ORDER BY institution, ticker`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []models.Custodian{}
	for rows.Next() {
		var c models.Custodian
		if err := rows.Scan(&c.ID, &c.Ticker, &c.Institution, &c.Quantity); err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

func (s *Store) insertAudit(ctx context.Context, e models.AuditEntry) error {
	const query = `
		INSERT INTO audit_log (id, table_name, record_id, action, old_data, new_data, ts)
		VALUES ($1,$2,$3,$4,$5,$6,$7)
	`
	_, err := s.exec(ctx, query, e.ID, e.Table, e.RecordID, e.Action, nullableString(e.OldData), nullableString(e.NewData), e.Timestamp)
	return err
}

// ListAudit returns up to limit entries, newest first. A non-positive limit
// returns everything.
func (s *Store) ListAudit(ctx context.Context, limit int) ([]models.AuditEntry, error) {
	query := `SELECT id, table_name, record_id, action, old_data, new_data, ts FROM audit_log ORDER BY seq DESC`
	var args []any
	if limit > 0 {
		query += ` LIMIT $1`
		args = append(args, limit)
	}
	rows, err := s.query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []models.AuditEntry{}
	for rows.Next() {
		var e models.AuditEntry
		var oldData, newData sql.NullString
		if err := rows.Scan(&e.ID, &e.Table, &e.RecordID, &e.Action, &oldData, &newData, &e.Timestamp); err != nil {
			return nil, err
		}
		e.OldData, e.NewData = oldData.String, newData.String
		e.Timestamp = e.Timestamp.UTC()
		out = append(out, e)
	}
	return out, rows.Err()
}

func nullableString(s string) interface{} {
	if s == "" {
		return nil
	}
	return s
}
