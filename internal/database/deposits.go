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
	"strings"
	"time"

	"presale-ledger-go/internal/models"
	"presale-ledger-go/internal/store"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// CreatePendingDeposit records a new in-flight payment keyed by its order id.
// The unique index on order_id is the load-bearing idempotency constraint.
func (s *Service) CreatePendingDeposit(ctx context.Context, params store.CreateDepositParams) (*models.PendingDeposit, error) {
	if params.Amount.LessThanOrEqual(decimal.Zero) {
		return nil, fmt.Errorf("deposit amount must be positive, got %s", params.Amount.String())
	}
	if _, err := s.GetAccount(ctx, params.AccountId); err != nil {
		return nil, err
	}

	id := uuid.New().String()
	_, err := s.db.ExecContext(ctx, queryInsertDeposit,
		id, params.AccountId, params.OrderId, params.Amount.String(),
		params.PaymentMethod, models.DepositStatusPending)
	if err != nil {
		if strings.Contains(err.Error(), "UNIQUE constraint failed") {
			return nil, fmt.Errorf("%w: %s", store.ErrDuplicateOrder, params.OrderId)
		}
		return nil, fmt.Errorf("failed to create pending deposit: %w", err)
	}

	zap.L().Info("Pending deposit created",
		zap.String("order_id", params.OrderId),
		zap.String("account_id", params.AccountId),
		zap.String("amount", params.Amount.String()))

	return s.GetDepositByOrderId(ctx, params.OrderId)
}

func (s *Service) GetDepositByOrderId(ctx context.Context, orderId string) (*models.PendingDeposit, error) {
	deposit, err := scanDeposit(s.db.QueryRowContext(ctx, queryGetDepositByOrderId, orderId))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, store.ErrUnknownOrder
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get deposit: %w", err)
	}
	return deposit, nil
}

func (s *Service) GetAccountDeposits(ctx context.Context, accountId string, limit int) ([]models.PendingDeposit, error) {
	rows, err := s.db.QueryContext(ctx, queryGetAccountDeposits, accountId, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to get deposits: %w", err)
	}
	defer func() {
		if err := rows.Close(); err != nil {
			zap.L().Warn("Failed to close rows", zap.Error(err))
		}
	}()

	var deposits []models.PendingDeposit
	for rows.Next() {
		deposit, err := scanDeposit(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan deposit: %w", err)
		}
		deposits = append(deposits, *deposit)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating deposit rows: %w", err)
	}
	return deposits, nil
}

// SettleDeposit applies one terminal payment outcome to a pending deposit,
// exactly once. The terminal-state check and the mutation happen in the same
// database transaction, and the UPDATE itself is conditioned on
// status = 'PENDING', so duplicate deliveries racing each other cannot both
// apply the credit. The first terminal write wins; everything after it is a
// no-op surfaced as ErrAlreadyTerminal.
func (s *Service) SettleDeposit(ctx context.Context, params store.SettleDepositParams) (*models.SettlementResult, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	deposit, err := scanDeposit(tx.QueryRowContext(ctx, queryGetDepositByOrderId, params.OrderId))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, store.ErrUnknownOrder
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get deposit: %w", err)
	}

	if deposit.Terminal() {
		return nil, fmt.Errorf("%w: order %s is %s", store.ErrAlreadyTerminal, deposit.OrderId, deposit.Status)
	}

	newStatus := models.DepositStatusFailed
	if params.Outcome == models.OutcomeSuccess {
		newStatus = models.DepositStatusCompleted
	}

	processedAt := params.OccurredAt
	if processedAt.IsZero() {
		processedAt = time.Now().UTC()
	}

	result, err := tx.ExecContext(ctx, querySettleDeposit,
		newStatus, params.PaymentId, params.PaymentStatus, processedAt, params.OrderId)
	if err != nil {
		return nil, fmt.Errorf("failed to settle deposit: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return nil, fmt.Errorf("failed to check rows affected: %w", err)
	}
	if rows == 0 {
		// A concurrent delivery won the race between our read and write.
		return nil, fmt.Errorf("%w: order %s settled concurrently", store.ErrAlreadyTerminal, deposit.OrderId)
	}

	settlement := &models.SettlementResult{
		OrderId:   deposit.OrderId,
		AccountId: deposit.AccountId,
		Status:    newStatus,
	}

	if params.Outcome == models.OutcomeSuccess {
		amount := params.Amount
		if amount.LessThanOrEqual(decimal.Zero) {
			amount = deposit.Amount
		} else if !amount.Equal(deposit.Amount) {
			zap.L().Warn("Settlement amount differs from requested deposit amount",
				zap.String("order_id", deposit.OrderId),
				zap.String("requested", deposit.Amount.String()),
				zap.String("settled", amount.String()))
		}

		account, err := getAccountTx(ctx, tx, deposit.AccountId)
		if err != nil {
			return nil, err
		}

		newFiat := account.FiatBalance.Add(amount)
		result, err = tx.ExecContext(ctx, queryUpdateAccountBalances,
			newFiat.String(), account.TokenBalance.String(),
			account.TotalInvested.String(), account.TokensOwned.String(),
			account.Id, account.Version)
		if err != nil {
			return nil, fmt.Errorf("failed to credit account: %w", err)
		}
		rows, err = result.RowsAffected()
		if err != nil {
			return nil, fmt.Errorf("failed to check rows affected: %w", err)
		}
		if rows == 0 {
			return nil, fmt.Errorf("account credit failed: %w", store.ErrConcurrentModification)
		}

		transactionId := uuid.New().String()
		_, err = tx.ExecContext(ctx, queryInsertTransaction,
			transactionId, account.Id, models.TransactionKindDeposit,
			amount.String(), params.FiatCurrency, models.DepositStatusCompleted,
			deposit.OrderId, params.PaymentId, "",
			account.FiatBalance.String(), newFiat.String(), time.Now().UTC())
		if err != nil {
			return nil, fmt.Errorf("failed to insert transaction record: %w", err)
		}

		settlement.Credited = true
		settlement.Amount = amount
		settlement.NewBalance = newFiat
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit transaction: %w", err)
	}

	zap.L().Info("Deposit settled",
		zap.String("order_id", deposit.OrderId),
		zap.String("account_id", deposit.AccountId),
		zap.String("status", newStatus),
		zap.Bool("credited", settlement.Credited))

	return settlement, nil
}

func scanDeposit(row rowScanner) (*models.PendingDeposit, error) {
	var d models.PendingDeposit
	var amountStr string
	var processedAt sql.NullTime
	err := row.Scan(&d.Id, &d.AccountId, &d.OrderId, &amountStr, &d.PaymentMethod,
		&d.PaymentId, &d.PaymentStatus, &d.Status, &d.CreatedAt, &processedAt)
	if err != nil {
		return nil, err
	}

	if d.Amount, err = decimal.NewFromString(amountStr); err != nil {
		return nil, fmt.Errorf("failed to parse amount %q: %w", amountStr, err)
	}
	if processedAt.Valid {
		d.ProcessedAt = &processedAt.Time
	}
	return &d, nil
}
