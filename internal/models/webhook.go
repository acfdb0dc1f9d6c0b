package models

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// Outcome is the closed set of terminal payment outcomes a webhook can carry.
type Outcome string

const (
	OutcomeSuccess   Outcome = "SUCCESS"
	OutcomeFailed    Outcome = "FAILED"
	OutcomeAbandoned Outcome = "ABANDONED"
)

// Provider event types on the wire. USER_DROPPED means the payer closed the
// payment page; it settles the deposit as FAILED.
const (
	EventPaymentSuccess = "PAYMENT_SUCCESS_WEBHOOK"
	EventPaymentFailed  = "PAYMENT_FAILED_WEBHOOK"
	EventPaymentDropped = "PAYMENT_USER_DROPPED_WEBHOOK"
)

// PaymentNotification is the parsed body of a payment webhook.
type PaymentNotification struct {
	Type string      `json:"type"`
	Data PaymentData `json:"data"`
}

// PaymentData carries the provider's payment details.
type PaymentData struct {
	OrderId       string          `json:"order_id"`
	OrderAmount   decimal.Decimal `json:"order_amount"`
	PaymentStatus string          `json:"payment_status"`
	PaymentId     string          `json:"cf_payment_id"`
	PaymentTime   time.Time       `json:"payment_time"`
}

// Outcome maps the provider event type onto the closed outcome set. Anything
// outside the set is rejected rather than guessed at.
func (n *PaymentNotification) Outcome() (Outcome, error) {
	switch n.Type {
	case EventPaymentSuccess:
		return OutcomeSuccess, nil
	case EventPaymentFailed:
		return OutcomeFailed, nil
	case EventPaymentDropped:
		return OutcomeAbandoned, nil
	default:
		return "", fmt.Errorf("unhandled webhook event type %q", n.Type)
	}
}

// ParsePaymentNotification decodes and shape-checks a webhook body. Unknown
// fields are tolerated (providers add fields without notice); a missing order
// id is not.
func ParsePaymentNotification(body []byte) (*PaymentNotification, error) {
	var n PaymentNotification
	if err := json.Unmarshal(body, &n); err != nil {
		return nil, fmt.Errorf("malformed webhook body: %w", err)
	}
	if n.Type == "" {
		return nil, fmt.Errorf("webhook body missing type")
	}
	if n.Data.OrderId == "" {
		return nil, fmt.Errorf("webhook body missing order_id")
	}
	return &n, nil
}
