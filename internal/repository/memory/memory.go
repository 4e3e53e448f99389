package memory

import (
	"cmp"
	"context"
	"maps"
	"slices"
	"sync"
	"time"

	"github.com/marcusaleks/Portfolio-Manager/internal/models"
	"github.com/marcusaleks/Portfolio-Manager/internal/repository"
	"github.com/shopspring/decimal"
)

// InMemoryRepo implements repository.Store in process memory. Data resets
// on restart.
type InMemoryRepo struct {
	mu  sync.RWMutex
	st  state
	now func() time.Time
}

type state struct {
	nextTxID     int64
	nextPosID    int64
	nextLossID   int64
	transactions map[int64]models.Transaction
	positions    map[string]models.Position
	taxLosses    map[lossKey]models.TaxLoss
	custodians   []models.Custodian
	audit        []models.AuditEntry
}

type lossKey struct {
	key   models.LossKey
	month string
}

func New() *InMemoryRepo {
	return &InMemoryRepo{
		st: state{
			transactions: make(map[int64]models.Transaction),
			positions:    make(map[string]models.Position),
			taxLosses:    make(map[lossKey]models.TaxLoss),
		},
		now: func() time.Time { return time.Now().UTC() },
	}
}

func (s state) clone() state {
	c := s
	c.transactions = maps.Clone(s.transactions)
	c.positions = maps.Clone(s.positions)
	c.taxLosses = maps.Clone(s.taxLosses)
	c.custodians = slices.Clone(s.custodians)
	c.audit = slices.Clone(s.audit)
	return c
}

// InTx snapshots the state and restores it when fn fails. Writers are
// expected to be serialized by the caller.
func (r *InMemoryRepo) InTx(ctx context.Context, fn func(repository.Store) error) error {
	r.mu.RLock()
	snapshot := r.st.clone()
	r.mu.RUnlock()

	if err := fn(r); err != nil {
		r.mu.Lock()
		r.st = snapshot
		r.mu.Unlock()
		return err
	}
	return nil
}

func (r *InMemoryRepo) InsertTransaction(ctx context.Context, tx models.Transaction) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.st.nextTxID++
	tx.ID = r.st.nextTxID
	if tx.CreatedAt.IsZero() {
		tx.CreatedAt = r.now()
	}
	tx = tx.Sealed()
	r.st.transactions[tx.ID] = tx
	r.st.audit = append(r.st.audit, repository.NewTransactionAudit(models.AuditInsert, tx.ID, nil, &tx, r.now()))
	return tx.ID, nil
}

func (r *InMemoryRepo) UpdateTransaction(ctx context.Context, tx models.Transaction) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	old, ok := r.st.transactions[tx.ID]
	if !ok {
		return repository.ErrNotFound
	}
	tx.CreatedAt = old.CreatedAt
	tx = tx.Sealed()
	r.st.transactions[tx.ID] = tx
	r.st.audit = append(r.st.audit, repository.NewTransactionAudit(models.AuditUpdate, tx.ID, &old, &tx, r.now()))
	return nil
}

func (r *InMemoryRepo) DeleteTransaction(ctx context.Context, id int64) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	old, ok := r.st.transactions[id]
	if !ok {
		return repository.ErrNotFound
	}
	delete(r.st.transactions, id)
	r.st.audit = append(r.st.audit, repository.NewTransactionAudit(models.AuditDelete, id, &old, nil, r.now()))
	return nil
}

func (r *InMemoryRepo) GetTransaction(ctx context.Context, id int64) (*models.Transaction, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	tx, ok := r.st.transactions[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return &tx, nil
}

func (r *InMemoryRepo) ListTransactions(ctx context.Context) ([]models.Transaction, error) {
	return r.filterTransactions(func(models.Transaction) bool { return true }), nil
}

func (r *InMemoryRepo) ListTransactionsByTicker(ctx context.Context, ticker string) ([]models.Transaction, error) {
	return r.filterTransactions(func(tx models.Transaction) bool { return tx.Ticker == ticker }), nil
}

// ListTransactionsBetween includes both bounds.
func (r *InMemoryRepo) ListTransactionsBetween(ctx context.Context, start, end time.Time) ([]models.Transaction, error) {
	start, end = models.Day(start), models.Day(end)
	return r.filterTransactions(func(tx models.Transaction) bool {
		return !tx.Date.Before(start) && !tx.Date.After(end)
	}), nil
}

func (r *InMemoryRepo) filterTransactions(keep func(models.Transaction) bool) []models.Transaction {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := []models.Transaction{}
	for _, tx := range r.st.transactions {
		if keep(tx) {
			out = append(out, tx)
		}
	}
	models.SortTransactions(out)
	return out
}

func (r *InMemoryRepo) DistinctTickers(ctx context.Context) ([]string, error) {
	return r.distinct(func(tx models.Transaction) string { return tx.Ticker }), nil
}

func (r *InMemoryRepo) DistinctInstitutions(ctx context.Context) ([]string, error) {
	return r.distinct(func(tx models.Transaction) string { return tx.Institution }), nil
}

func (r *InMemoryRepo) distinct(field func(models.Transaction) string) []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	seen := map[string]struct{}{}
	for _, tx := range r.st.transactions {
		if v := field(tx); v != "" {
			seen[v] = struct{}{}
		}
	}
	return slices.Sorted(maps.Keys(seen))
}

func (r *InMemoryRepo) UpsertPosition(ctx context.Context, p models.Position) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	p = p.Sealed()
	if existing, ok := r.st.positions[p.Key()]; ok {
		p.ID = existing.ID
	} else {
		r.st.nextPosID++
		p.ID = r.st.nextPosID
	}
	r.st.positions[p.Key()] = p
	return nil
}

func (r *InMemoryRepo) ListPositions(ctx context.Context) ([]models.Position, error) {
	return r.filterPositions(func(models.Position) bool { return true }), nil
}

func (r *InMemoryRepo) ListOpenPositions(ctx context.Context) ([]models.Position, error) {
	return r.filterPositions(models.Position.IsOpen), nil
}

func (r *InMemoryRepo) ListPositionsByTicker(ctx context.Context, ticker string) ([]models.Position, error) {
	return r.filterPositions(func(p models.Position) bool { return p.Ticker == ticker }), nil
}

func (r *InMemoryRepo) filterPositions(keep func(models.Position) bool) []models.Position {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := []models.Position{}
	for _, p := range r.st.positions {
		if keep(p) {
			out = append(out, p)
		}
	}
	slices.SortFunc(out, func(a, b models.Position) int {
		if c := cmp.Compare(a.Ticker, b.Ticker); c != 0 {
			return c
		}
		return cmp.Compare(a.Institution, b.Institution)
	})
	return out
}

func (r *InMemoryRepo) ClearPositions(ctx context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.st.positions = make(map[string]models.Position)
	return nil
}

func (r *InMemoryRepo) UpsertTaxLoss(ctx context.Context, loss models.TaxLoss) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	k := lossKey{key: models.LossKey{AssetClass: loss.AssetClass, TradeType: loss.TradeType}, month: loss.Month}
	if existing, ok := r.st.taxLosses[k]; ok {
		loss.ID = existing.ID
	} else {
		r.st.nextLossID++
		loss.ID = r.st.nextLossID
	}
	r.st.taxLosses[k] = loss
	return nil
}

// LatestTaxLoss returns the loss of the most recent month stored for key.
func (r *InMemoryRepo) LatestTaxLoss(ctx context.Context, key models.LossKey) (decimal.Decimal, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	latest := ""
	value := decimal.Zero
	for k, loss := range r.st.taxLosses {
		if k.key == key && k.month > latest {
			latest, value = k.month, loss.AccumulatedLoss
		}
	}
	return value, nil
}

func (r *InMemoryRepo) ListTaxLosses(ctx context.Context) ([]models.TaxLoss, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := slices.Collect(maps.Values(r.st.taxLosses))
	slices.SortFunc(out, func(a, b models.TaxLoss) int {
		if c := cmp.Compare(a.Month, b.Month); c != 0 {
			return c
		}
		if c := cmp.Compare(a.AssetClass, b.AssetClass); c != 0 {
			return c
		}
		return cmp.Compare(a.TradeType, b.TradeType)
	})
	return out, nil
}

func (r *InMemoryRepo) ClearTaxLosses(ctx context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.st.taxLosses = make(map[lossKey]models.TaxLoss)
	return nil
}

func (r *InMemoryRepo) RebuildCustodians(ctx context.Context, custodians []models.Custodian) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.st.custodians = make([]models.Custodian, 0, len(custodians))
	for i, c := range custodians {
		c.ID = int64(i + 1)
		r.st.custodians = append(r.st.custodians, c)
	}
	return nil
}

func (r *InMemoryRepo) ListCustodians(ctx context.Context) ([]models.Custodian, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := slices.Clone(r.st.custodians)
	slices.SortFunc(out, func(a, b models.Custodian) int {
		if c := cmp.Compare(a.Institution, b.Institution); c != 0 {
			return c
		}
		return cmp.Compare(a.Ticker, b.Ticker)
	})
	return out, nil
}

// ListAudit returns up to limit entries, newest first.
func (r *InMemoryRepo) ListAudit(ctx context.Context, limit int) ([]models.AuditEntry, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := []models.AuditEntry{}
	for i := len(r.st.audit) - 1; i >= 0 && (limit <= 0 || len(out) < limit); i-- {
		out = append(out, r.st.audit[i])
	}
	return out, nil
}
