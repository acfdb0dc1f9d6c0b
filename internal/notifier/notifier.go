// Package notifier is the fire-and-forget boundary to the (external) email
// service. Implementations never propagate failures: a lost notification is
// acceptable, a blocked or failed settlement is not.
package notifier

import (
	"context"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// Notification kinds.
const (
	KindDepositSuccess = "DEPOSIT_SUCCESS"
	KindDepositFailed  = "DEPOSIT_FAILED"
)

// Payload carries the details a notification template needs.
type Payload struct {
	OrderId   string
	PaymentId string
	Amount    decimal.Decimal
}

type Notifier interface {
	// Notify is best-effort; implementations swallow and log errors.
	Notify(ctx context.Context, accountId, kind string, payload Payload)
}

// Log writes notifications to the structured log. It stands in for the email
// delivery service in development and tests.
type Log struct{}

func (Log) Notify(_ context.Context, accountId, kind string, payload Payload) {
	zap.L().Info("Notification",
		zap.String("account_id", accountId),
		zap.String("kind", kind),
		zap.String("order_id", payload.OrderId),
		zap.String("amount", payload.Amount.String()))
}

// Nop discards notifications.
type Nop struct{}

func (Nop) Notify(context.Context, string, string, Payload) {}
