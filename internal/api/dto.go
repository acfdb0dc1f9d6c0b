package api

import (
	"github.com/shopspring/decimal"

	"presale-ledger-go/internal/models"
)

// PurchaseRequest is the inbound purchase payload.
type PurchaseRequest struct {
	AccountId     string          `json:"account_id"`
	Amount        decimal.Decimal `json:"amount"`
	PaymentMethod string          `json:"payment_method"`
}

// DepositRequest creates a new deposit order for the payment provider.
type DepositRequest struct {
	AccountId     string          `json:"account_id"`
	Amount        decimal.Decimal `json:"amount"`
	PaymentMethod string          `json:"payment_method"`
}

// PurchaseResponse mirrors the receipt plus a human-readable message.
type PurchaseResponse struct {
	Message        string          `json:"message"`
	TokensReceived decimal.Decimal `json:"tokens_received"`
	AmountPaid     decimal.Decimal `json:"amount_paid"`
	StageNumber    int             `json:"stage_number"`
}

// PurchasesResponse is the purchase history with summary counters.
type PurchasesResponse struct {
	Purchases []models.Transaction   `json:"purchases"`
	Summary   models.PurchaseSummary `json:"summary"`
}

// BalanceResponse exposes an account's balances.
type BalanceResponse struct {
	AccountId     string          `json:"account_id"`
	FiatBalance   decimal.Decimal `json:"fiat_balance"`
	TokenBalance  decimal.Decimal `json:"token_balance"`
	TotalInvested decimal.Decimal `json:"total_invested"`
	TokensOwned   decimal.Decimal `json:"tokens_owned"`
}

// ErrorResponse is the uniform error envelope.
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}

// StatusResponse acknowledges a webhook delivery.
type StatusResponse struct {
	Status  string `json:"status"`
	Message string `json:"message"`
}
