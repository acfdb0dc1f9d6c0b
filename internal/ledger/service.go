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

// Package ledger implements the sale ledger: selling a fixed-supply token
// allocation for fiat under concurrent demand. All consistency comes from the
// store's atomic primitives; this layer adds input validation, the
// optimistic-concurrency retry loop, and read-side queries.
package ledger

import (
	"context"
	"errors"
	"fmt"

	"presale-ledger-go/internal/models"
	"presale-ledger-go/internal/store"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// purchaseRetries bounds the optimistic-concurrency loop. Conflicts only
// happen when two purchases race the same stage or account row, so a couple
// of retries is plenty before surfacing the conflict to the caller.
const purchaseRetries = 3

type Service struct {
	store store.LedgerStore
	cfg   models.PresaleConfig
}

func NewService(ledgerStore store.LedgerStore, cfg models.PresaleConfig) *Service {
	return &Service{store: ledgerStore, cfg: cfg}
}

// Purchase validates the request and executes the atomic sale. Version
// conflicts are retried; every retry recomputes the token amount from the
// then-current stage row, never from a stale read.
func (s *Service) Purchase(ctx context.Context, accountId string, fiatAmount decimal.Decimal, paymentMethod string) (*models.PurchaseReceipt, error) {
	if fiatAmount.LessThan(s.cfg.MinPurchase) || fiatAmount.GreaterThan(s.cfg.MaxPurchase) {
		return nil, fmt.Errorf("%w: %s not in [%s, %s]",
			store.ErrInvalidAmount, fiatAmount.String(),
			s.cfg.MinPurchase.String(), s.cfg.MaxPurchase.String())
	}
	if paymentMethod != models.PaymentMethodFiatBalance && paymentMethod != models.PaymentMethodCrypto {
		return nil, fmt.Errorf("%w: unsupported payment method %q", store.ErrInvalidAmount, paymentMethod)
	}

	params := store.PurchaseParams{
		AccountId:     accountId,
		FiatAmount:    fiatAmount,
		PaymentMethod: paymentMethod,
		TokenScale:    s.cfg.TokenScale,
		FiatCurrency:  s.cfg.FiatCurrency,
		TokenSymbol:   s.cfg.TokenSymbol,
	}

	var receipt *models.PurchaseReceipt
	var err error
	for attempt := 1; attempt <= purchaseRetries; attempt++ {
		receipt, err = s.store.Purchase(ctx, params)
		if err == nil {
			return receipt, nil
		}
		if !errors.Is(err, store.ErrConcurrentModification) {
			return nil, err
		}
		zap.L().Debug("Purchase hit version conflict, retrying",
			zap.String("account_id", accountId),
			zap.Int("attempt", attempt))
	}
	return nil, fmt.Errorf("purchase failed after %d attempts: %w", purchaseRetries, err)
}

// Status returns the currently active stage.
func (s *Service) Status(ctx context.Context) (*models.Stage, error) {
	return s.store.GetActiveStage(ctx)
}

// Stages returns all stages in order.
func (s *Service) Stages(ctx context.Context) ([]models.Stage, error) {
	return s.store.GetStages(ctx)
}

// Purchases returns an account's purchase history plus the cumulative
// summary counters.
func (s *Service) Purchases(ctx context.Context, accountId string, limit, offset int) ([]models.Transaction, *models.PurchaseSummary, error) {
	account, err := s.store.GetAccount(ctx, accountId)
	if err != nil {
		return nil, nil, err
	}

	purchases, err := s.store.GetTransactionHistory(ctx, accountId, models.TransactionKindPurchase, limit, offset)
	if err != nil {
		return nil, nil, err
	}

	return purchases, &models.PurchaseSummary{
		TotalInvested: account.TotalInvested,
		TokensOwned:   account.TokensOwned,
	}, nil
}
