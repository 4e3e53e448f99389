package postgres

import (
	"context"
	"errors"
	"fmt"
	"os"
	"testing"
	"time"

	"github.com/marcusaleks/Portfolio-Manager/internal/models"
	"github.com/marcusaleks/Portfolio-Manager/internal/repository"

	"github.com/lib/pq"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTranslateError(t *testing.T) {
	unique := fmt.Errorf("insert: %w", &pq.Error{Code: "23505"})
	assert.ErrorIs(t, translateError(unique), repository.ErrConflict)

	other := &pq.Error{Code: "23503"}
	assert.NotErrorIs(t, translateError(other), repository.ErrConflict)

	plain := errors.New("boom")
	assert.Equal(t, plain, translateError(plain))
	assert.NoError(t, translateError(nil))
}

// Runs only against a disposable database named by PORTFOLIO_TEST_POSTGRES.
func TestStoreAgainstPostgres(t *testing.T) {
	url := os.Getenv("PORTFOLIO_TEST_POSTGRES")
	if url == "" {
		t.Skip("PORTFOLIO_TEST_POSTGRES not set")
	}
	ctx := context.Background()
	store, err := Open(ctx, url)
	require.NoError(t, err)
	defer store.Close()

	_, err = store.DB().ExecContext(ctx, "TRUNCATE transactions, positions, tax_losses, custodians, audit_log RESTART IDENTITY")
	require.NoError(t, err)

	day := time.Date(2025, 1, 10, 0, 0, 0, 0, time.UTC)
	id, err := store.InsertTransaction(ctx, models.Transaction{
		Ticker:      "PETR4",
		AssetClass:  models.AssetStock,
		Type:        models.TxBuy,
		TradeType:   models.SwingTrade,
		Date:        day,
		Quantity:    decimal.RequireFromString("100"),
		Price:       decimal.RequireFromString("30.25"),
		Currency:    models.BRL,
		FXRate:      decimal.NewFromInt(1),
		Institution: "XP",
	})
	require.NoError(t, err)

	got, err := store.GetTransaction(ctx, id)
	require.NoError(t, err)
	assert.True(t, got.Price.Equal(decimal.RequireFromString("30.25")))
	assert.True(t, got.Date.Equal(day))

	loss := models.TaxLoss{AssetClass: models.AssetStock, TradeType: models.SwingTrade, Month: "2025-01", AccumulatedLoss: decimal.NewFromInt(10)}
	require.NoError(t, store.UpsertTaxLoss(ctx, loss))
	loss.AccumulatedLoss = decimal.NewFromInt(20)
	require.NoError(t, store.UpsertTaxLoss(ctx, loss))
	latest, err := store.LatestTaxLoss(ctx, models.LossKey{AssetClass: models.AssetStock, TradeType: models.SwingTrade})
	require.NoError(t, err)
	assert.True(t, latest.Equal(decimal.NewFromInt(20)))

	audit, err := store.ListAudit(ctx, 0)
	require.NoError(t, err)
	assert.Len(t, audit, 1)
}
