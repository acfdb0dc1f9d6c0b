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
	"fmt"

	"presale-ledger-go/internal/models"
	"presale-ledger-go/internal/store"

	"github.com/google/uuid"
	_ "github.com/mattn/go-sqlite3"
	"go.uber.org/zap"
)

// Compile-time check: *Service must satisfy store.LedgerStore.
var _ store.LedgerStore = (*Service)(nil)

// Service is the SQLite-backed ledger store. One Service is constructed at
// process start and injected into the sale ledger and reconciler; business
// logic never reaches for a connection as ambient global state.
type Service struct {
	db *sql.DB
}

func NewService(ctx context.Context, cfg models.DatabaseConfig) (*Service, error) {
	// Validate configuration
	if cfg.Path == "" {
		return nil, fmt.Errorf("database path cannot be empty")
	}
	if cfg.MaxOpenConns <= 0 {
		return nil, fmt.Errorf("max open connections must be positive, got %d", cfg.MaxOpenConns)
	}
	if cfg.MaxIdleConns < 0 {
		return nil, fmt.Errorf("max idle connections cannot be negative, got %d", cfg.MaxIdleConns)
	}
	if cfg.PingTimeout <= 0 {
		return nil, fmt.Errorf("ping timeout must be positive, got %v", cfg.PingTimeout)
	}

	zap.L().Info("Opening SQLite database", zap.String("file", cfg.Path))
	db, err := sql.Open("sqlite3", cfg.Path+"?_journal_mode=WAL&_synchronous=NORMAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("unable to open database: %w", err)
	}

	db.SetMaxOpenConns(cfg.MaxOpenConns)
	db.SetMaxIdleConns(cfg.MaxIdleConns)
	db.SetConnMaxLifetime(cfg.ConnMaxLifetime)
	db.SetConnMaxIdleTime(cfg.ConnMaxIdleTime)

	pingCtx, cancel := context.WithTimeout(ctx, cfg.PingTimeout)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		if cerr := db.Close(); cerr != nil {
			return nil, cerr
		}
		return nil, fmt.Errorf("unable to ping database: %w", err)
	}

	service := &Service{db: db}
	if err := service.initSchema(); err != nil {
		if cerr := db.Close(); cerr != nil {
			return nil, cerr
		}
		return nil, fmt.Errorf("unable to initialize schema: %w", err)
	}

	if cfg.CreateDemoAccounts {
		service.createDemoAccounts(ctx)
	}

	zap.L().Info("Database service initialized successfully")
	return service, nil
}

func (s *Service) Close() {
	if err := s.db.Close(); err != nil {
		zap.L().Warn("Failed to close database connection", zap.Error(err))
	}
}

func (s *Service) initSchema() error {
	schema := `
	-- Participant accounts (hot data, optimistic locking via version)
	CREATE TABLE IF NOT EXISTS accounts (
		id TEXT PRIMARY KEY,
		name TEXT NOT NULL,
		email TEXT NOT NULL UNIQUE,
		fiat_balance TEXT NOT NULL DEFAULT '0',
		token_balance TEXT NOT NULL DEFAULT '0',
		total_invested TEXT NOT NULL DEFAULT '0',
		tokens_owned TEXT NOT NULL DEFAULT '0',
		version INTEGER NOT NULL DEFAULT 1,
		created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
		updated_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
	);

	CREATE INDEX IF NOT EXISTS idx_accounts_email ON accounts(email);

	-- Presale stages; at most one active at a time
	CREATE TABLE IF NOT EXISTS stages (
		id TEXT PRIMARY KEY,
		stage_number INTEGER NOT NULL UNIQUE,
		price TEXT NOT NULL,
		tokens_available TEXT NOT NULL,
		tokens_sold TEXT NOT NULL DEFAULT '0',
		total_raised TEXT NOT NULL DEFAULT '0',
		participants INTEGER NOT NULL DEFAULT 0,
		active BOOLEAN NOT NULL DEFAULT 0,
		version INTEGER NOT NULL DEFAULT 1,
		created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
		updated_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
	);

	CREATE INDEX IF NOT EXISTS idx_stages_active ON stages(active);

	-- In-flight external payments; order_id is the idempotency key
	CREATE TABLE IF NOT EXISTS pending_deposits (
		id TEXT PRIMARY KEY,
		account_id TEXT NOT NULL REFERENCES accounts(id),
		order_id TEXT NOT NULL UNIQUE,
		amount TEXT NOT NULL,
		payment_method TEXT NOT NULL,
		payment_id TEXT NOT NULL DEFAULT '',
		payment_status TEXT NOT NULL DEFAULT '',
		status TEXT NOT NULL DEFAULT 'PENDING',
		created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
		processed_at TIMESTAMP
	);

	CREATE UNIQUE INDEX IF NOT EXISTS idx_pending_deposits_order_id ON pending_deposits(order_id);
	CREATE INDEX IF NOT EXISTS idx_pending_deposits_account ON pending_deposits(account_id);
	CREATE INDEX IF NOT EXISTS idx_pending_deposits_status ON pending_deposits(status);

	-- Append-only audit trail (cold data)
	CREATE TABLE IF NOT EXISTS transactions (
		id TEXT PRIMARY KEY,
		account_id TEXT NOT NULL,
		kind TEXT NOT NULL,
		amount TEXT NOT NULL,
		currency TEXT NOT NULL,
		status TEXT NOT NULL,
		order_id TEXT NOT NULL DEFAULT '',
		payment_id TEXT NOT NULL DEFAULT '',
		stage_id TEXT NOT NULL DEFAULT '',
		balance_before TEXT NOT NULL,
		balance_after TEXT NOT NULL,
		created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
	);

	CREATE INDEX IF NOT EXISTS idx_transactions_account ON transactions(account_id);
	CREATE INDEX IF NOT EXISTS idx_transactions_account_kind ON transactions(account_id, kind);
	CREATE INDEX IF NOT EXISTS idx_transactions_order_id ON transactions(order_id);
	CREATE INDEX IF NOT EXISTS idx_transactions_created_at ON transactions(created_at);
	`

	_, err := s.db.Exec(schema)
	return err
}

// createDemoAccounts inserts a few accounts for local testing. Failures are
// logged and ignored so repeated startups stay idempotent.
func (s *Service) createDemoAccounts(ctx context.Context) {
	accounts := []struct {
		name  string
		email string
	}{
		{"Alice Johnson", "alice.johnson@example.com"},
		{"Bob Smith", "bob.smith@example.com"},
		{"Carol Williams", "carol.williams@example.com"},
	}

	for _, a := range accounts {
		id := uuid.New().String()
		if _, err := s.CreateAccount(ctx, id, a.name, a.email); err != nil {
			zap.L().Debug("Skipping demo account", zap.String("email", a.email), zap.Error(err))
		} else {
			zap.L().Info("Demo account created", zap.String("id", id), zap.String("name", a.name))
		}
	}
}
