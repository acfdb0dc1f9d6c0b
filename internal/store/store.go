package store

import (
	"context"
	"errors"
	"time"

	"presale-ledger-go/internal/models"

	"github.com/shopspring/decimal"
)

// Sentinel errors shared across all backend implementations. The first group
// are expected business outcomes surfaced to callers; the rest signal
// storage-level conditions.
var (
	ErrInvalidAmount       = errors.New("amount outside configured purchase bounds")
	ErrNoActiveStage       = errors.New("no active presale stage")
	ErrInsufficientBalance = errors.New("insufficient fiat balance")
	ErrAllocationExceeded  = errors.New("stage allocation exceeded")
	ErrUnauthorized        = errors.New("webhook signature invalid")
	ErrUnknownOrder        = errors.New("no pending deposit for order")
	ErrAlreadyTerminal     = errors.New("deposit already in terminal state")

	ErrAccountNotFound        = errors.New("account not found")
	ErrDuplicateOrder         = errors.New("duplicate order id")
	ErrConcurrentModification = errors.New("concurrent modification detected")
)

// PurchaseParams are the inputs to the atomic purchase operation. Token
// amounts are computed inside the operation from the stage price read in the
// same transaction, never from an earlier snapshot.
type PurchaseParams struct {
	AccountId     string
	FiatAmount    decimal.Decimal
	PaymentMethod string
	TokenScale    int32
	FiatCurrency  string
	TokenSymbol   string
}

// CreateDepositParams are the inputs for recording a new PENDING deposit.
type CreateDepositParams struct {
	AccountId     string
	OrderId       string
	Amount        decimal.Decimal
	PaymentMethod string
}

// SettleDepositParams apply one terminal payment outcome to a pending
// deposit. Outcome SUCCESS credits the account; FAILED and ABANDONED only
// mark the deposit.
type SettleDepositParams struct {
	OrderId       string
	Outcome       models.Outcome
	Amount        decimal.Decimal
	PaymentId     string
	PaymentStatus string
	OccurredAt    time.Time
	FiatCurrency  string
}

// StageParams define a stage to create or seed.
type StageParams struct {
	Number          int
	Price           decimal.Decimal
	TokensAvailable decimal.Decimal
	Active          bool
}

// LedgerStore defines the contract the sale ledger and the settlement
// reconciler rely on. Every mutation of shared state (account balances, stage
// counters, deposit status) happens inside a single storage transaction.
type LedgerStore interface {
	// --- Accounts ---
	CreateAccount(ctx context.Context, id, name, email string) (*models.Account, error)
	GetAccount(ctx context.Context, accountId string) (*models.Account, error)
	CreditFiat(ctx context.Context, accountId string, amount decimal.Decimal) error

	// --- Stages ---
	CreateStage(ctx context.Context, params StageParams) (*models.Stage, error)
	GetActiveStage(ctx context.Context) (*models.Stage, error)
	GetStages(ctx context.Context) ([]models.Stage, error)
	ActivateStage(ctx context.Context, stageId string) error

	// --- Sale ledger ---
	Purchase(ctx context.Context, params PurchaseParams) (*models.PurchaseReceipt, error)

	// --- Deposits / settlement ---
	CreatePendingDeposit(ctx context.Context, params CreateDepositParams) (*models.PendingDeposit, error)
	GetDepositByOrderId(ctx context.Context, orderId string) (*models.PendingDeposit, error)
	GetAccountDeposits(ctx context.Context, accountId string, limit int) ([]models.PendingDeposit, error)
	SettleDeposit(ctx context.Context, params SettleDepositParams) (*models.SettlementResult, error)

	// --- Audit log ---
	GetTransactionHistory(ctx context.Context, accountId, kind string, limit, offset int) ([]models.Transaction, error)
	ReconcileAccountBalance(ctx context.Context, accountId string) error

	// --- Lifecycle ---
	Close()
}
