/**
 * Copyright 2025-present Presale Ledger Authors
 *
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 *
 *  http://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */

// Package reconciler consumes asynchronous, at-least-once payment
// notifications and applies each terminal outcome to its pending deposit
// exactly once. Redelivery and out-of-order delivery are normal operation
// here, not edge cases.
package reconciler

import (
	"context"
	"errors"
	"fmt"

	"presale-ledger-go/internal/models"
	"presale-ledger-go/internal/notifier"
	"presale-ledger-go/internal/store"

	"go.uber.org/zap"
)

// settleRetries bounds retries on account-row version conflicts. The deposit
// row itself is guarded by the status condition, so retrying is safe: a
// settled deposit surfaces as ErrAlreadyTerminal on the next attempt.
const settleRetries = 3

type Service struct {
	store    store.LedgerStore
	verifier *SignatureVerifier
	notifier notifier.Notifier
	currency string
}

func NewService(ledgerStore store.LedgerStore, verifier *SignatureVerifier, n notifier.Notifier, fiatCurrency string) *Service {
	if n == nil {
		n = notifier.Nop{}
	}
	return &Service{store: ledgerStore, verifier: verifier, notifier: n, currency: fiatCurrency}
}

// HandleWebhook is the single entry point for a raw webhook delivery:
// authenticity first, then shape validation, then settlement. Unknown orders
// and already-terminal deposits are acknowledged no-ops so the provider stops
// redelivering.
func (s *Service) HandleWebhook(ctx context.Context, body []byte, signature, timestamp string) (*models.SettlementResult, error) {
	if err := s.verifier.Verify(body, signature, timestamp); err != nil {
		zap.L().Warn("Rejected webhook with invalid signature", zap.Error(err))
		return nil, err
	}

	notification, err := models.ParsePaymentNotification(body)
	if err != nil {
		return nil, err
	}

	outcome, err := notification.Outcome()
	if err != nil {
		// Unknown event types are acknowledged but not acted on; the
		// provider ships new types without notice.
		zap.L().Info("Ignoring webhook with unhandled event type",
			zap.String("type", notification.Type),
			zap.String("order_id", notification.Data.OrderId))
		return nil, nil
	}

	return s.Reconcile(ctx, outcome, &notification.Data)
}

// Reconcile applies one terminal outcome to the deposit identified by the
// order id. The terminal-state guard lives in the store's atomic settle; this
// layer classifies its result and fires post-commit side effects.
func (s *Service) Reconcile(ctx context.Context, outcome models.Outcome, data *models.PaymentData) (*models.SettlementResult, error) {
	zap.L().Info("Reconciling payment notification",
		zap.String("order_id", data.OrderId),
		zap.String("outcome", string(outcome)),
		zap.String("payment_id", data.PaymentId),
		zap.String("amount", data.OrderAmount.String()))

	params := store.SettleDepositParams{
		OrderId:       data.OrderId,
		Outcome:       outcome,
		Amount:        data.OrderAmount,
		PaymentId:     data.PaymentId,
		PaymentStatus: data.PaymentStatus,
		OccurredAt:    data.PaymentTime,
		FiatCurrency:  s.currency,
	}

	var result *models.SettlementResult
	var err error
	for attempt := 1; attempt <= settleRetries; attempt++ {
		result, err = s.store.SettleDeposit(ctx, params)
		if err == nil || !errors.Is(err, store.ErrConcurrentModification) {
			break
		}
		zap.L().Debug("Settlement hit version conflict, retrying",
			zap.String("order_id", data.OrderId),
			zap.Int("attempt", attempt))
	}

	switch {
	case err == nil:
	case errors.Is(err, store.ErrUnknownOrder):
		// Never fabricate a deposit from a webhook. Acknowledge so the
		// provider stops redelivering.
		zap.L().Warn("Webhook for unknown order, ignoring",
			zap.String("order_id", data.OrderId),
			zap.String("payment_id", data.PaymentId))
		return nil, nil
	case errors.Is(err, store.ErrAlreadyTerminal):
		s.logDuplicate(ctx, outcome, data)
		return nil, nil
	default:
		return nil, fmt.Errorf("settlement failed for order %s: %w", data.OrderId, err)
	}

	// Side effects strictly after the commit, best-effort. A crash between
	// commit and notification loses at most the email, never the credit.
	kind := notifier.KindDepositFailed
	if result.Credited {
		kind = notifier.KindDepositSuccess
	}
	s.notifier.Notify(ctx, result.AccountId, kind, notifier.Payload{
		OrderId:   result.OrderId,
		PaymentId: data.PaymentId,
		Amount:    result.Amount,
	})

	return result, nil
}

// logDuplicate distinguishes the expected redelivery no-op from the anomaly
// of conflicting terminal outcomes for one order. Either way the first
// terminal write stands.
func (s *Service) logDuplicate(ctx context.Context, outcome models.Outcome, data *models.PaymentData) {
	deposit, err := s.store.GetDepositByOrderId(ctx, data.OrderId)
	if err != nil {
		zap.L().Debug("Duplicate webhook delivery, deposit already terminal",
			zap.String("order_id", data.OrderId))
		return
	}

	incoming := models.DepositStatusFailed
	if outcome == models.OutcomeSuccess {
		incoming = models.DepositStatusCompleted
	}

	if deposit.Status != incoming {
		zap.L().Error("Conflicting terminal outcomes for order; keeping first write",
			zap.String("order_id", data.OrderId),
			zap.String("recorded", deposit.Status),
			zap.String("incoming", incoming))
		return
	}

	zap.L().Debug("Duplicate webhook delivery, no-op",
		zap.String("order_id", data.OrderId),
		zap.String("status", deposit.Status))
}
