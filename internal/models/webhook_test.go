package models

import (
	"testing"

	"github.com/shopspring/decimal"
)

func TestParsePaymentNotification(t *testing.T) {
	body := []byte(`{
		"type": "PAYMENT_SUCCESS_WEBHOOK",
		"data": {
			"order_id": "ORDER_1724800000000_AB12CD34EF56",
			"order_amount": 500.25,
			"payment_status": "SUCCESS",
			"cf_payment_id": "cf_12345",
			"payment_time": "2026-08-28T10:00:00Z",
			"some_future_field": true
		}
	}`)

	n, err := ParsePaymentNotification(body)
	if err != nil {
		t.Fatalf("ParsePaymentNotification failed: %v", err)
	}
	if n.Data.OrderId != "ORDER_1724800000000_AB12CD34EF56" {
		t.Errorf("Unexpected order id %q", n.Data.OrderId)
	}
	expected, _ := decimal.NewFromString("500.25")
	if !n.Data.OrderAmount.Equal(expected) {
		t.Errorf("Expected order amount 500.25, got %s", n.Data.OrderAmount.String())
	}
	if n.Data.PaymentId != "cf_12345" {
		t.Errorf("Unexpected payment id %q", n.Data.PaymentId)
	}

	outcome, err := n.Outcome()
	if err != nil {
		t.Fatalf("Outcome failed: %v", err)
	}
	if outcome != OutcomeSuccess {
		t.Errorf("Expected SUCCESS, got %s", outcome)
	}
}

func TestParsePaymentNotification_Invalid(t *testing.T) {
	cases := []struct {
		name string
		body string
	}{
		{"malformed json", `{not json`},
		{"missing type", `{"data":{"order_id":"ORDER_1"}}`},
		{"missing order id", `{"type":"PAYMENT_SUCCESS_WEBHOOK","data":{}}`},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if _, err := ParsePaymentNotification([]byte(tc.body)); err == nil {
				t.Errorf("Expected error for %s", tc.name)
			}
		})
	}
}

func TestOutcomeMapping(t *testing.T) {
	cases := []struct {
		eventType string
		expected  Outcome
	}{
		{EventPaymentSuccess, OutcomeSuccess},
		{EventPaymentFailed, OutcomeFailed},
		{EventPaymentDropped, OutcomeAbandoned},
	}
	for _, tc := range cases {
		n := &PaymentNotification{Type: tc.eventType}
		outcome, err := n.Outcome()
		if err != nil {
			t.Errorf("Outcome(%s) failed: %v", tc.eventType, err)
		}
		if outcome != tc.expected {
			t.Errorf("Outcome(%s) = %s, expected %s", tc.eventType, outcome, tc.expected)
		}
	}

	n := &PaymentNotification{Type: "PAYMENT_REFUND_WEBHOOK"}
	if _, err := n.Outcome(); err == nil {
		t.Error("Expected error for unhandled event type")
	}
}
