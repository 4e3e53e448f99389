package app

import (
	"context"
	"io"
	"path/filepath"
	"testing"
	"time"

	"github.com/marcusaleks/Portfolio-Manager/internal/config"
	"github.com/marcusaleks/Portfolio-Manager/internal/models"
	"github.com/marcusaleks/Portfolio-Manager/internal/repository/memory"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func quiet() *logrus.Logger {
	l := logrus.New()
	l.SetOutput(io.Discard)
	return l
}

func TestMemoryStoreByDefault(t *testing.T) {
	a, err := New(context.Background(), config.Config{WriteTimeout: time.Second}, quiet())
	require.NoError(t, err)
	defer a.Close()

	_, ok := a.Store.(*memory.InMemoryRepo)
	assert.True(t, ok)
}

func TestSQLiteStorePersists(t *testing.T) {
	ctx := context.Background()
	cfg := config.Config{SQLitePath: filepath.Join(t.TempDir(), "portfolio.db"), WriteTimeout: time.Second}

	a, err := New(ctx, cfg, quiet())
	require.NoError(t, err)
	day, _ := models.ParseDay("2025-01-10")
	_, err = a.Service.SaveTransaction(ctx, models.Transaction{
		Ticker:      "ITSA4",
		AssetClass:  models.AssetStock,
		Type:        models.TxBuy,
		Date:        day,
		Quantity:    decimal.NewFromInt(10),
		Price:       decimal.NewFromInt(10),
		Institution: "XP",
	})
	require.NoError(t, err)
	require.NoError(t, a.Close())

	reopened, err := New(ctx, cfg, quiet())
	require.NoError(t, err)
	defer reopened.Close()
	positions, err := reopened.Service.ListPositions(ctx, true)
	require.NoError(t, err)
	require.Len(t, positions, 1)
	assert.Equal(t, "ITSA4", positions[0].Ticker)
}
