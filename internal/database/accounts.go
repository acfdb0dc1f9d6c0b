package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"presale-ledger-go/internal/models"
	"presale-ledger-go/internal/store"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

func (s *Service) CreateAccount(ctx context.Context, id, name, email string) (*models.Account, error) {
	zero := decimal.Zero.String()
	_, err := s.db.ExecContext(ctx, queryInsertAccount, id, name, email, zero, zero, zero, zero)
	if err != nil {
		return nil, fmt.Errorf("failed to create account: %w", err)
	}
	return s.GetAccount(ctx, id)
}

func (s *Service) GetAccount(ctx context.Context, accountId string) (*models.Account, error) {
	row := s.db.QueryRowContext(ctx, queryGetAccount, accountId)
	account, err := scanAccount(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, store.ErrAccountNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get account: %w", err)
	}
	return account, nil
}

func (s *Service) GetAccountByEmail(ctx context.Context, email string) (*models.Account, error) {
	account, err := scanAccount(s.db.QueryRowContext(ctx, queryGetAccountByEmail, email))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, store.ErrAccountNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get account by email: %w", err)
	}
	return account, nil
}

// CreditFiat adds to an account's fiat balance outside the settlement flow
// (operational top-ups, demo seeding). Retries on version conflicts.
func (s *Service) CreditFiat(ctx context.Context, accountId string, amount decimal.Decimal) error {
	if amount.LessThanOrEqual(decimal.Zero) {
		return fmt.Errorf("credit amount must be positive, got %s", amount.String())
	}

	for attempt := 0; attempt < balanceUpdateRetries; attempt++ {
		account, err := s.GetAccount(ctx, accountId)
		if err != nil {
			return err
		}

		newFiat := account.FiatBalance.Add(amount)
		result, err := s.db.ExecContext(ctx, queryUpdateAccountBalances,
			newFiat.String(), account.TokenBalance.String(),
			account.TotalInvested.String(), account.TokensOwned.String(),
			accountId, account.Version)
		if err != nil {
			return fmt.Errorf("failed to credit account: %w", err)
		}
		rows, err := result.RowsAffected()
		if err != nil {
			return fmt.Errorf("failed to check rows affected: %w", err)
		}
		if rows > 0 {
			zap.L().Info("Fiat balance credited",
				zap.String("account_id", accountId),
				zap.String("amount", amount.String()),
				zap.String("new_balance", newFiat.String()))
			return nil
		}
	}
	return store.ErrConcurrentModification
}

const balanceUpdateRetries = 3

type rowScanner interface {
	Scan(dest ...any) error
}

func scanAccount(row rowScanner) (*models.Account, error) {
	var a models.Account
	var fiatStr, tokenStr, investedStr, ownedStr string
	err := row.Scan(&a.Id, &a.Name, &a.Email, &fiatStr, &tokenStr, &investedStr, &ownedStr,
		&a.Version, &a.CreatedAt, &a.UpdatedAt)
	if err != nil {
		return nil, err
	}

	if a.FiatBalance, err = decimal.NewFromString(fiatStr); err != nil {
		return nil, fmt.Errorf("failed to parse fiat_balance %q: %w", fiatStr, err)
	}
	if a.TokenBalance, err = decimal.NewFromString(tokenStr); err != nil {
		return nil, fmt.Errorf("failed to parse token_balance %q: %w", tokenStr, err)
	}
	if a.TotalInvested, err = decimal.NewFromString(investedStr); err != nil {
		return nil, fmt.Errorf("failed to parse total_invested %q: %w", investedStr, err)
	}
	if a.TokensOwned, err = decimal.NewFromString(ownedStr); err != nil {
		return nil, fmt.Errorf("failed to parse tokens_owned %q: %w", ownedStr, err)
	}
	return &a, nil
}

// getAccountTx reads an account inside an open transaction so the balance
// check and the subsequent write see the same snapshot.
func getAccountTx(ctx context.Context, tx *sql.Tx, accountId string) (*models.Account, error) {
	account, err := scanAccount(tx.QueryRowContext(ctx, queryGetAccount, accountId))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, store.ErrAccountNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get account: %w", err)
	}
	return account, nil
}
