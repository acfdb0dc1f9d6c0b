package database

import (
	"context"
	"fmt"

	"presale-ledger-go/internal/models"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// GetTransactionHistory returns paginated audit-log entries for an account,
// optionally filtered by kind.
func (s *Service) GetTransactionHistory(ctx context.Context, accountId, kind string, limit, offset int) ([]models.Transaction, error) {
	query := queryGetTransactionHistory
	args := []any{accountId, limit, offset}
	if kind != "" {
		query = queryGetTransactionHistoryByKind
		args = []any{accountId, kind, limit, offset}
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to get transaction history: %w", err)
	}
	defer func() {
		if err := rows.Close(); err != nil {
			zap.L().Warn("Failed to close rows", zap.Error(err))
		}
	}()

	var transactions []models.Transaction
	for rows.Next() {
		var t models.Transaction
		var amountStr, beforeStr, afterStr string
		err := rows.Scan(&t.Id, &t.AccountId, &t.Kind, &amountStr, &t.Currency, &t.Status,
			&t.OrderId, &t.PaymentId, &t.StageId, &beforeStr, &afterStr, &t.CreatedAt)
		if err != nil {
			return nil, fmt.Errorf("failed to scan transaction: %w", err)
		}

		if t.Amount, err = decimal.NewFromString(amountStr); err != nil {
			return nil, fmt.Errorf("failed to parse amount %q: %w", amountStr, err)
		}
		if t.BalanceBefore, err = decimal.NewFromString(beforeStr); err != nil {
			return nil, fmt.Errorf("failed to parse balance_before %q: %w", beforeStr, err)
		}
		if t.BalanceAfter, err = decimal.NewFromString(afterStr); err != nil {
			return nil, fmt.Errorf("failed to parse balance_after %q: %w", afterStr, err)
		}

		transactions = append(transactions, t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating transaction rows: %w", err)
	}
	return transactions, nil
}

// ReconcileAccountBalance cross-checks the hot tokens_owned counter against
// the sum of completed PURCHASE records. A mismatch means a balance was
// mutated outside the atomic primitives and is reported, not repaired.
func (s *Service) ReconcileAccountBalance(ctx context.Context, accountId string) error {
	account, err := s.GetAccount(ctx, accountId)
	if err != nil {
		return err
	}

	rows, err := s.db.QueryContext(ctx, queryGetPurchaseAmounts, accountId)
	if err != nil {
		return fmt.Errorf("failed to query purchase amounts: %w", err)
	}
	defer func() {
		if err := rows.Close(); err != nil {
			zap.L().Warn("Failed to close rows", zap.Error(err))
		}
	}()

	calculated := decimal.Zero
	for rows.Next() {
		var amountStr string
		if err := rows.Scan(&amountStr); err != nil {
			return fmt.Errorf("failed to scan purchase amount: %w", err)
		}
		amount, err := decimal.NewFromString(amountStr)
		if err != nil {
			return fmt.Errorf("failed to parse purchase amount %q: %w", amountStr, err)
		}
		calculated = calculated.Add(amount)
	}
	if err := rows.Err(); err != nil {
		return fmt.Errorf("error iterating purchase rows: %w", err)
	}

	if !calculated.Equal(account.TokensOwned) {
		zap.L().Error("Balance reconciliation mismatch",
			zap.String("account_id", accountId),
			zap.String("tokens_owned", account.TokensOwned.String()),
			zap.String("calculated", calculated.String()))
		return fmt.Errorf("reconciliation mismatch for account %s: tokens_owned=%s calculated=%s",
			accountId, account.TokensOwned.String(), calculated.String())
	}

	zap.L().Debug("Balance reconciled",
		zap.String("account_id", accountId),
		zap.String("tokens_owned", account.TokensOwned.String()))
	return nil
}
