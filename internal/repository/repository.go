package repository

import (
	"context"
	"errors"
	"time"

	"github.com/marcusaleks/Portfolio-Manager/internal/models"
	"github.com/shopspring/decimal"
)

var (
	// ErrNotFound indicates the requested record does not exist.
	ErrNotFound = errors.New("not found")
	// ErrConflict indicates a write violated a uniqueness constraint.
	ErrConflict = errors.New("conflicting record")
)

// TransactionRepository persists the transaction log. Listings are ordered
// by (date, id) ascending.
type TransactionRepository interface {
	InsertTransaction(ctx context.Context, tx models.Transaction) (int64, error)
	UpdateTransaction(ctx context.Context, tx models.Transaction) error
	DeleteTransaction(ctx context.Context, id int64) error
	GetTransaction(ctx context.Context, id int64) (*models.Transaction, error)
	ListTransactions(ctx context.Context) ([]models.Transaction, error)
	ListTransactionsByTicker(ctx context.Context, ticker string) ([]models.Transaction, error)
	ListTransactionsBetween(ctx context.Context, start, end time.Time) ([]models.Transaction, error)
	DistinctTickers(ctx context.Context) ([]string, error)
	DistinctInstitutions(ctx context.Context) ([]string, error)
}

// PositionRepository stores the position cache, ordered by ticker then
// institution.
type PositionRepository interface {
	UpsertPosition(ctx context.Context, p models.Position) error
	ListPositions(ctx context.Context) ([]models.Position, error)
	ListOpenPositions(ctx context.Context) ([]models.Position, error)
	ListPositionsByTicker(ctx context.Context, ticker string) ([]models.Position, error)
	ClearPositions(ctx context.Context) error
}

// TaxLossRepository stores the carried loss per group and month.
type TaxLossRepository interface {
	UpsertTaxLoss(ctx context.Context, loss models.TaxLoss) error
	LatestTaxLoss(ctx context.Context, key models.LossKey) (decimal.Decimal, error)
	ListTaxLosses(ctx context.Context) ([]models.TaxLoss, error)
	ClearTaxLosses(ctx context.Context) error
}

// CustodianRepository stores which institution holds what.
type CustodianRepository interface {
	RebuildCustodians(ctx context.Context, custodians []models.Custodian) error
	ListCustodians(ctx context.Context) ([]models.Custodian, error)
}

// AuditRepository exposes the mutation trail written by the transaction
// repository.
type AuditRepository interface {
	ListAudit(ctx context.Context, limit int) ([]models.AuditEntry, error)
}

// Store is the full persistence surface used by the service layer.
type Store interface {
	TransactionRepository
	PositionRepository
	TaxLossRepository
	CustodianRepository
	AuditRepository

	// InTx runs fn against a store whose writes commit together, or not at
	// all when fn returns an error.
	InTx(ctx context.Context, fn func(Store) error) error
}
