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

package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"presale-ledger-go/internal/models"
	"presale-ledger-go/internal/store"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// Purchase atomically sells tokens from the active stage. The stage price and
// sold-so-far counter are read inside the same database transaction that
// performs the writes, and both the stage and account updates are guarded by
// version compare-and-swap, so two racing purchases can never both consume
// the last of an allocation. Effects (account debit/credit, stage counters,
// audit record) apply together or not at all.
func (s *Service) Purchase(ctx context.Context, params store.PurchaseParams) (*models.PurchaseReceipt, error) {
	zap.L().Info("Processing purchase",
		zap.String("account_id", params.AccountId),
		zap.String("fiat_amount", params.FiatAmount.String()),
		zap.String("payment_method", params.PaymentMethod))

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	// Active stage, read in-transaction. Acting on an earlier read would
	// allow a stale price or stale tokens_sold.
	stage, err := scanStage(tx.QueryRowContext(ctx, queryGetActiveStage))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, store.ErrNoActiveStage
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get active stage: %w", err)
	}

	// Token amount is truncated, never rounded up: truncation can only
	// under-credit by less than one token quantum.
	tokens := params.FiatAmount.Div(stage.Price).Truncate(params.TokenScale)
	if tokens.LessThanOrEqual(decimal.Zero) {
		return nil, fmt.Errorf("%w: %s buys zero tokens at price %s",
			store.ErrInvalidAmount, params.FiatAmount.String(), stage.Price.String())
	}

	// Allocation bound, checked against the value just read under the same
	// transaction. The version guard below rejects the write if another
	// purchase slipped in between.
	newSold := stage.TokensSold.Add(tokens)
	if newSold.GreaterThan(stage.TokensAvailable) {
		zap.L().Info("Purchase rejected, allocation exceeded",
			zap.String("stage_id", stage.Id),
			zap.String("tokens_requested", tokens.String()),
			zap.String("tokens_remaining", stage.Remaining().String()))
		return nil, store.ErrAllocationExceeded
	}
	newRaised := stage.TotalRaised.Add(params.FiatAmount)

	result, err := tx.ExecContext(ctx, queryUpdateStageCounters,
		newSold.String(), newRaised.String(), stage.Id, stage.Version)
	if err != nil {
		return nil, fmt.Errorf("failed to update stage counters: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return nil, fmt.Errorf("failed to check rows affected: %w", err)
	}
	if rows == 0 {
		return nil, fmt.Errorf("stage counter update failed: %w", store.ErrConcurrentModification)
	}

	account, err := getAccountTx(ctx, tx, params.AccountId)
	if err != nil {
		return nil, err
	}

	tokenBalanceBefore := account.TokenBalance
	tokenBalanceAfter := account.TokenBalance

	// Only the fiat-balance method moves internal balances; a crypto
	// purchase settles on-chain and the ledger records the sale only.
	if params.PaymentMethod == models.PaymentMethodFiatBalance {
		if account.FiatBalance.LessThan(params.FiatAmount) {
			zap.L().Info("Purchase rejected, insufficient balance",
				zap.String("account_id", account.Id),
				zap.String("fiat_balance", account.FiatBalance.String()),
				zap.String("fiat_amount", params.FiatAmount.String()))
			return nil, store.ErrInsufficientBalance
		}

		newFiat := account.FiatBalance.Sub(params.FiatAmount)
		tokenBalanceAfter = account.TokenBalance.Add(tokens)
		newInvested := account.TotalInvested.Add(params.FiatAmount)
		newOwned := account.TokensOwned.Add(tokens)

		result, err = tx.ExecContext(ctx, queryUpdateAccountBalances,
			newFiat.String(), tokenBalanceAfter.String(), newInvested.String(), newOwned.String(),
			account.Id, account.Version)
		if err != nil {
			return nil, fmt.Errorf("failed to update account balances: %w", err)
		}
		rows, err = result.RowsAffected()
		if err != nil {
			return nil, fmt.Errorf("failed to check rows affected: %w", err)
		}
		if rows == 0 {
			return nil, fmt.Errorf("account balance update failed: %w", store.ErrConcurrentModification)
		}
	}

	transactionId := uuid.New().String()
	_, err = tx.ExecContext(ctx, queryInsertTransaction,
		transactionId, account.Id, models.TransactionKindPurchase,
		tokens.String(), params.TokenSymbol, models.DepositStatusCompleted,
		"", "", stage.Id,
		tokenBalanceBefore.String(), tokenBalanceAfter.String(), time.Now().UTC())
	if err != nil {
		return nil, fmt.Errorf("failed to insert transaction record: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit transaction: %w", err)
	}

	zap.L().Info("Purchase completed",
		zap.String("transaction_id", transactionId),
		zap.String("account_id", account.Id),
		zap.String("stage_id", stage.Id),
		zap.String("tokens", tokens.String()),
		zap.String("fiat_amount", params.FiatAmount.String()),
		zap.String("tokens_sold", newSold.String()))

	return &models.PurchaseReceipt{
		AccountId:      account.Id,
		StageId:        stage.Id,
		StageNumber:    stage.Number,
		TokensReceived: tokens,
		AmountPaid:     params.FiatAmount,
		Price:          stage.Price,
		TransactionId:  transactionId,
	}, nil
}
