package writequeue

import (
	"context"
	"errors"
	"io"
	"sync"
	"testing"
	"time"

	"github.com/marcusaleks/Portfolio-Manager/internal/models"
	"github.com/marcusaleks/Portfolio-Manager/internal/repository"
	"github.com/marcusaleks/Portfolio-Manager/internal/repository/memory"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newQueue(t *testing.T) (*Queue, *memory.InMemoryRepo) {
	t.Helper()
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	store := memory.New()
	q := New(store, logger, time.Second)
	q.Start()
	t.Cleanup(q.Stop)
	return q, store
}

func insertJob(ticker string) func(context.Context, repository.Store) (int64, error) {
	return func(ctx context.Context, st repository.Store) (int64, error) {
		return st.InsertTransaction(ctx, models.Transaction{
			Ticker:     ticker,
			AssetClass: models.AssetStock,
			Type:       models.TxBuy,
			TradeType:  models.SwingTrade,
			Date:       time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC),
			Quantity:   decimal.NewFromInt(1),
			Price:      decimal.NewFromInt(1),
			Currency:   models.BRL,
			FXRate:     decimal.NewFromInt(1),
		})
	}
}

func TestDoReturnsTypedResult(t *testing.T) {
	t.Parallel()
	q, _ := newQueue(t)

	id, err := Do(context.Background(), q, "insert", insertJob("PETR4"))
	require.NoError(t, err)
	assert.Equal(t, int64(1), id)
}

func TestTypedResultMismatch(t *testing.T) {
	t.Parallel()

	n, err := typedResult[int64]("insert", "not an id")
	require.EqualError(t, err, "write job insert returned string")
	assert.Zero(t, n)

	n, err = typedResult[int64]("insert", int64(7))
	require.NoError(t, err)
	assert.Equal(t, int64(7), n)
}

func TestDoWithNilInterfaceResult(t *testing.T) {
	t.Parallel()
	q, _ := newQueue(t)

	v, err := Do(context.Background(), q, "noop", func(ctx context.Context, st repository.Store) (error, error) {
		return nil, nil
	})
	require.NoError(t, err)
	assert.Nil(t, v)
}

func TestFailedJobRollsBack(t *testing.T) {
	t.Parallel()
	q, store := newQueue(t)
	boom := errors.New("boom")

	_, err := q.Submit(context.Background(), "failing", func(ctx context.Context, st repository.Store) (any, error) {
		if _, err := insertJob("PETR4")(ctx, st); err != nil {
			return nil, err
		}
		return nil, boom
	})
	assert.ErrorIs(t, err, boom)

	txs, err := store.ListTransactions(context.Background())
	require.NoError(t, err)
	assert.Empty(t, txs)
}

func TestPanickingJobBecomesError(t *testing.T) {
	t.Parallel()
	q, _ := newQueue(t)

	_, err := q.Submit(context.Background(), "panic", func(context.Context, repository.Store) (any, error) {
		panic("kaboom")
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "kaboom")

	// the worker survives
	_, err = Do(context.Background(), q, "insert", insertJob("VALE3"))
	assert.NoError(t, err)
}

func TestConcurrentSubmitsAreSerialized(t *testing.T) {
	t.Parallel()
	q, store := newQueue(t)

	var (
		mu      sync.Mutex
		running int
		overlap bool
		wg      sync.WaitGroup
	)
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := q.Submit(context.Background(), "insert", func(ctx context.Context, st repository.Store) (any, error) {
				mu.Lock()
				running++
				if running > 1 {
					overlap = true
				}
				mu.Unlock()
				time.Sleep(time.Millisecond)
				id, err := insertJob("PETR4")(ctx, st)
				mu.Lock()
				running--
				mu.Unlock()
				return id, err
			})
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	assert.False(t, overlap)
	txs, err := store.ListTransactions(context.Background())
	require.NoError(t, err)
	assert.Len(t, txs, 20)
}

func TestSubmitAfterStop(t *testing.T) {
	t.Parallel()
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	q := New(memory.New(), logger, 0)
	q.Start()
	q.Stop()

	_, err := Do(context.Background(), q, "insert", insertJob("PETR4"))
	assert.ErrorIs(t, err, ErrStopped)
}

func TestCancelledContextStopsWaiting(t *testing.T) {
	t.Parallel()
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	// never started, so nothing receives
	q := New(memory.New(), logger, 0)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	_, err := Do(ctx, q, "insert", insertJob("PETR4"))
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}
