package sqlite

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/marcusaleks/Portfolio-Manager/internal/models"
	"github.com/marcusaleks/Portfolio-Manager/internal/repository"
	"github.com/marcusaleks/Portfolio-Manager/internal/repository/sqlstore"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestStore(t *testing.T) *sqlstore.Store {
	t.Helper()

	path := filepath.Join(t.TempDir(), "portfolio.db")
	store, err := Open(context.Background(), path)
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })
	return store
}

func buy(ticker, inst, date, qty, price string) models.Transaction {
	day, _ := models.ParseDay(date)
	return models.Transaction{
		Ticker:      ticker,
		AssetClass:  models.AssetStock,
		Type:        models.TxBuy,
		TradeType:   models.SwingTrade,
		Date:        day,
		Quantity:    decimal.RequireFromString(qty),
		Price:       decimal.RequireFromString(price),
		Currency:    models.BRL,
		FXRate:      decimal.NewFromInt(1),
		Institution: inst,
	}.Normalized()
}

func TestRebind(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "SELECT * FROM t WHERE a=?1 AND b=?12", rebind("SELECT * FROM t WHERE a=$1 AND b=$12"))
}

func TestSchemaIsIdempotent(t *testing.T) {
	t.Parallel()

	store := newTestStore(t)
	assert.NoError(t, store.Migrate(context.Background()))
}

func TestTransactionRoundTrip(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	store := newTestStore(t)

	in := buy("PETR4", "XP", "2025-01-10", "100", "30.50")
	in.Notes = "first lot"
	id, err := store.InsertTransaction(ctx, in)
	require.NoError(t, err)
	assert.Positive(t, id)

	got, err := store.GetTransaction(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, "PETR4", got.Ticker)
	assert.Equal(t, models.TxBuy, got.Type)
	assert.Equal(t, "2025-01-10", got.DateKey())
	assert.True(t, got.Quantity.Equal(decimal.NewFromInt(100)))
	assert.True(t, got.Price.Equal(decimal.RequireFromString("30.50")))
	assert.Equal(t, "first lot", got.Notes)
	assert.Equal(t, in.ComputeFingerprint(), got.Fingerprint)
	assert.False(t, got.CreatedAt.IsZero())

	_, err = store.GetTransaction(ctx, id+100)
	assert.True(t, errors.Is(err, repository.ErrNotFound))
}

func TestTransactionsOrderedByDateThenID(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	store := newTestStore(t)

	_, err := store.InsertTransaction(ctx, buy("VALE3", "XP", "2025-03-01", "10", "60"))
	require.NoError(t, err)
	_, err = store.InsertTransaction(ctx, buy("PETR4", "XP", "2025-01-01", "10", "30"))
	require.NoError(t, err)
	_, err = store.InsertTransaction(ctx, buy("PETR4", "BTG", "2025-01-01", "5", "31"))
	require.NoError(t, err)

	txs, err := store.ListTransactions(ctx)
	require.NoError(t, err)
	require.Len(t, txs, 3)
	assert.Equal(t, "XP", txs[0].Institution)
	assert.Equal(t, "BTG", txs[1].Institution)
	assert.Equal(t, "VALE3", txs[2].Ticker)

	byTicker, err := store.ListTransactionsByTicker(ctx, "PETR4")
	require.NoError(t, err)
	assert.Len(t, byTicker, 2)

	start, _ := models.ParseDay("2025-01-01")
	end, _ := models.ParseDay("2025-02-28")
	between, err := store.ListTransactionsBetween(ctx, start, end)
	require.NoError(t, err)
	assert.Len(t, between, 2)

	tickers, err := store.DistinctTickers(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"PETR4", "VALE3"}, tickers)

	insts, err := store.DistinctInstitutions(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"BTG", "XP"}, insts)
}

func TestUpdateAndDeleteWriteAudit(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	store := newTestStore(t)

	id, err := store.InsertTransaction(ctx, buy("ITSA4", "XP", "2025-02-01", "100", "10"))
	require.NoError(t, err)

	updated := buy("ITSA4", "XP", "2025-02-01", "200", "10")
	updated.ID = id
	require.NoError(t, store.UpdateTransaction(ctx, updated))

	got, err := store.GetTransaction(ctx, id)
	require.NoError(t, err)
	assert.True(t, got.Quantity.Equal(decimal.NewFromInt(200)))

	require.NoError(t, store.DeleteTransaction(ctx, id))
	assert.True(t, errors.Is(store.DeleteTransaction(ctx, id), repository.ErrNotFound))

	audit, err := store.ListAudit(ctx, 0)
	require.NoError(t, err)
	require.Len(t, audit, 3)
	assert.Equal(t, models.AuditDelete, audit[0].Action)
	assert.Equal(t, models.AuditUpdate, audit[1].Action)
	assert.Equal(t, models.AuditInsert, audit[2].Action)
	assert.Empty(t, audit[2].OldData)
	assert.NotEmpty(t, audit[1].OldData)
	assert.NotEmpty(t, audit[1].NewData)
	assert.Equal(t, id, audit[0].RecordID)

	limited, err := store.ListAudit(ctx, 1)
	require.NoError(t, err)
	assert.Len(t, limited, 1)
}

func TestPositionUpsert(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	store := newTestStore(t)

	p := models.Position{
		Ticker:      "PETR4",
		AssetClass:  models.AssetStock,
		Quantity:    decimal.NewFromInt(100),
		AvgPrice:    decimal.RequireFromString("30.00"),
		Currency:    models.BRL,
		TotalCost:   decimal.RequireFromString("3000.00"),
		Institution: "XP",
	}
	require.NoError(t, store.UpsertPosition(ctx, p))
	p.Quantity = decimal.Zero
	p.TotalCost = decimal.Zero
	require.NoError(t, store.UpsertPosition(ctx, p))

	all, err := store.ListPositions(ctx)
	require.NoError(t, err)
	require.Len(t, all, 1)
	assert.True(t, all[0].Quantity.IsZero())
	assert.Equal(t, p.Sealed().Fingerprint, all[0].Fingerprint)

	open, err := store.ListOpenPositions(ctx)
	require.NoError(t, err)
	assert.Empty(t, open)

	require.NoError(t, store.ClearPositions(ctx))
	all, err = store.ListPositions(ctx)
	require.NoError(t, err)
	assert.Empty(t, all)
}

func TestTaxLosses(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	store := newTestStore(t)
	key := models.LossKey{AssetClass: models.AssetStock, TradeType: models.SwingTrade}

	loss, err := store.LatestTaxLoss(ctx, key)
	require.NoError(t, err)
	assert.True(t, loss.IsZero())

	for month, value := range map[string]string{"2025-01": "100.00", "2025-03": "250.00", "2025-02": "175.00"} {
		require.NoError(t, store.UpsertTaxLoss(ctx, models.TaxLoss{
			AssetClass: key.AssetClass, TradeType: key.TradeType,
			AccumulatedLoss: decimal.RequireFromString(value), Month: month,
		}))
	}
	require.NoError(t, store.UpsertTaxLoss(ctx, models.TaxLoss{
		AssetClass: key.AssetClass, TradeType: key.TradeType,
		AccumulatedLoss: decimal.RequireFromString("300.00"), Month: "2025-03",
	}))

	loss, err = store.LatestTaxLoss(ctx, key)
	require.NoError(t, err)
	assert.True(t, loss.Equal(decimal.RequireFromString("300.00")))

	all, err := store.ListTaxLosses(ctx)
	require.NoError(t, err)
	require.Len(t, all, 3)
	assert.Equal(t, "2025-01", all[0].Month)

	require.NoError(t, store.ClearTaxLosses(ctx))
	all, err = store.ListTaxLosses(ctx)
	require.NoError(t, err)
	assert.Empty(t, all)
}

func TestCustodiansReplaced(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	store := newTestStore(t)

	require.NoError(t, store.RebuildCustodians(ctx, []models.Custodian{
		{Ticker: "PETR4", Institution: "XP", Quantity: decimal.NewFromInt(10)},
		{Ticker: "VALE3", Institution: "BTG", Quantity: decimal.NewFromInt(5)},
	}))
	require.NoError(t, store.RebuildCustodians(ctx, []models.Custodian{
		{Ticker: "VALE3", Institution: "BTG", Quantity: decimal.NewFromInt(7)},
	}))

	got, err := store.ListCustodians(ctx)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "VALE3", got[0].Ticker)
	assert.True(t, got[0].Quantity.Equal(decimal.NewFromInt(7)))
}

func TestInTxRollsBack(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	store := newTestStore(t)
	boom := errors.New("boom")

	err := store.InTx(ctx, func(st repository.Store) error {
		if _, err := st.InsertTransaction(ctx, buy("PETR4", "XP", "2025-01-10", "1", "1")); err != nil {
			return err
		}
		return boom
	})
	assert.ErrorIs(t, err, boom)

	txs, err := store.ListTransactions(ctx)
	require.NoError(t, err)
	assert.Empty(t, txs)
	audit, err := store.ListAudit(ctx, 0)
	require.NoError(t, err)
	assert.Empty(t, audit)
}

func TestInTxCommits(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	store := newTestStore(t)

	err := store.InTx(ctx, func(st repository.Store) error {
		_, err := st.InsertTransaction(ctx, buy("PETR4", "XP", "2025-01-10", "1", "1"))
		return err
	})
	require.NoError(t, err)

	txs, err := store.ListTransactions(ctx)
	require.NoError(t, err)
	assert.Len(t, txs, 1)
}

func TestTimestampsSurviveRoundTrip(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	store := newTestStore(t)

	tx := buy("PETR4", "XP", "2025-01-10", "1", "1")
	tx.CreatedAt = time.Date(2025, 1, 10, 14, 30, 0, 0, time.UTC)
	id, err := store.InsertTransaction(ctx, tx)
	require.NoError(t, err)

	got, err := store.GetTransaction(ctx, id)
	require.NoError(t, err)
	assert.True(t, tx.CreatedAt.Equal(got.CreatedAt))
}
