package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Deposit lifecycle states. PENDING is the only non-terminal state; once a
// deposit reaches COMPLETED or FAILED it is immutable.
const (
	DepositStatusPending   = "PENDING"
	DepositStatusCompleted = "COMPLETED"
	DepositStatusFailed    = "FAILED"
)

// Transaction kinds recorded in the audit log.
const (
	TransactionKindPurchase = "PURCHASE"
	TransactionKindDeposit  = "DEPOSIT"
)

// Payment methods accepted by the purchase flow.
const (
	PaymentMethodFiatBalance = "FIAT_BALANCE"
	PaymentMethodCrypto      = "CRYPTO"
)

// Account represents a participant's holdings. Balances are mutated only
// through the atomic ledger operations, never read-then-written outside a
// database transaction.
type Account struct {
	Id            string          `db:"id"`
	Name          string          `db:"name"`
	Email         string          `db:"email"`
	FiatBalance   decimal.Decimal `db:"fiat_balance"`
	TokenBalance  decimal.Decimal `db:"token_balance"`
	TotalInvested decimal.Decimal `db:"total_invested"`
	TokensOwned   decimal.Decimal `db:"tokens_owned"`
	Version       int64           `db:"version"`
	CreatedAt     time.Time       `db:"created_at"`
	UpdatedAt     time.Time       `db:"updated_at"`
}

// Stage represents one fixed-price, fixed-supply tranche of the token sale.
// Invariant: TokensSold <= TokensAvailable at all times; TokensSold,
// TotalRaised and Participants are monotonically non-decreasing.
type Stage struct {
	Id              string          `db:"id"`
	Number          int             `db:"stage_number"`
	Price           decimal.Decimal `db:"price"` // fiat units per token
	TokensAvailable decimal.Decimal `db:"tokens_available"`
	TokensSold      decimal.Decimal `db:"tokens_sold"`
	TotalRaised     decimal.Decimal `db:"total_raised"`
	Participants    int64           `db:"participants"`
	Active          bool            `db:"active"`
	Version         int64           `db:"version"`
	CreatedAt       time.Time       `db:"created_at"`
	UpdatedAt       time.Time       `db:"updated_at"`
}

// Remaining returns the unsold allocation of the stage.
func (s *Stage) Remaining() decimal.Decimal {
	return s.TokensAvailable.Sub(s.TokensSold)
}

// PendingDeposit represents an in-flight external payment. OrderId is the
// external-facing idempotency key; the payment provider echoes it back in
// webhook notifications.
type PendingDeposit struct {
	Id            string          `db:"id"`
	AccountId     string          `db:"account_id"`
	OrderId       string          `db:"order_id"`
	Amount        decimal.Decimal `db:"amount"`
	PaymentMethod string          `db:"payment_method"`
	PaymentId     string          `db:"payment_id"`
	PaymentStatus string          `db:"payment_status"`
	Status        string          `db:"status"`
	CreatedAt     time.Time       `db:"created_at"`
	ProcessedAt   *time.Time      `db:"processed_at"`
}

// Terminal reports whether the deposit has reached a terminal state.
func (d *PendingDeposit) Terminal() bool {
	return d.Status == DepositStatusCompleted || d.Status == DepositStatusFailed
}

// Transaction represents an immutable audit-log entry. The insert is part of
// the same database transaction as the balance mutation it documents.
type Transaction struct {
	Id            string          `db:"id"`
	AccountId     string          `db:"account_id"`
	Kind          string          `db:"kind"`
	Amount        decimal.Decimal `db:"amount"`
	Currency      string          `db:"currency"`
	Status        string          `db:"status"`
	OrderId       string          `db:"order_id"`
	PaymentId     string          `db:"payment_id"`
	StageId       string          `db:"stage_id"`
	BalanceBefore decimal.Decimal `db:"balance_before"`
	BalanceAfter  decimal.Decimal `db:"balance_after"`
	CreatedAt     time.Time       `db:"created_at"`
}
