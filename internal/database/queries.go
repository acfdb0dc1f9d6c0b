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

const (
	// Account queries
	queryInsertAccount = `
		INSERT INTO accounts (id, name, email, fiat_balance, token_balance, total_invested, tokens_owned, version)
		VALUES (?, ?, ?, ?, ?, ?, ?, 1)`

	queryGetAccount = `
		SELECT id, name, email, fiat_balance, token_balance, total_invested, tokens_owned, version, created_at, updated_at
		FROM accounts
		WHERE id = ?`

	queryGetAccountByEmail = `
		SELECT id, name, email, fiat_balance, token_balance, total_invested, tokens_owned, version, created_at, updated_at
		FROM accounts
		WHERE email = ?`

	queryUpdateAccountBalances = `
		UPDATE accounts
		SET fiat_balance = ?, token_balance = ?, total_invested = ?, tokens_owned = ?,
		    version = version + 1, updated_at = CURRENT_TIMESTAMP
		WHERE id = ? AND version = ?`

	// Stage queries
	queryInsertStage = `
		INSERT INTO stages (id, stage_number, price, tokens_available, tokens_sold, total_raised, participants, active, version)
		VALUES (?, ?, ?, ?, '0', '0', 0, ?, 1)`

	queryGetActiveStage = `
		SELECT id, stage_number, price, tokens_available, tokens_sold, total_raised, participants, active, version, created_at, updated_at
		FROM stages
		WHERE active = 1
		ORDER BY stage_number DESC
		LIMIT 1`

	queryGetStages = `
		SELECT id, stage_number, price, tokens_available, tokens_sold, total_raised, participants, active, version, created_at, updated_at
		FROM stages
		ORDER BY stage_number`

	queryGetStageByNumber = `
		SELECT id FROM stages WHERE stage_number = ? LIMIT 1`

	queryUpdateStageCounters = `
		UPDATE stages
		SET tokens_sold = ?, total_raised = ?, participants = participants + 1,
		    version = version + 1, updated_at = CURRENT_TIMESTAMP
		WHERE id = ? AND version = ?`

	queryActivateStage = `
		UPDATE stages
		SET active = 1, version = version + 1, updated_at = CURRENT_TIMESTAMP
		WHERE id = ?`

	queryDeactivateOtherStages = `
		UPDATE stages
		SET active = 0, version = version + 1, updated_at = CURRENT_TIMESTAMP
		WHERE active = 1 AND id != ?`

	// Deposit queries
	queryInsertDeposit = `
		INSERT INTO pending_deposits (id, account_id, order_id, amount, payment_method, payment_id, payment_status, status)
		VALUES (?, ?, ?, ?, ?, '', '', ?)`

	queryGetDepositByOrderId = `
		SELECT id, account_id, order_id, amount, payment_method, payment_id, payment_status, status, created_at, processed_at
		FROM pending_deposits
		WHERE order_id = ?`

	queryGetAccountDeposits = `
		SELECT id, account_id, order_id, amount, payment_method, payment_id, payment_status, status, created_at, processed_at
		FROM pending_deposits
		WHERE account_id = ?
		ORDER BY created_at DESC
		LIMIT ?`

	// The status guard makes concurrent deliveries of the same notification
	// race-safe: only one of them can move the row out of PENDING.
	querySettleDeposit = `
		UPDATE pending_deposits
		SET status = ?, payment_id = ?, payment_status = ?, processed_at = ?
		WHERE order_id = ? AND status = 'PENDING'`

	// Transaction queries
	queryInsertTransaction = `
		INSERT INTO transactions (
			id, account_id, kind, amount, currency, status,
			order_id, payment_id, stage_id, balance_before, balance_after, created_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`

	queryGetTransactionHistory = `
		SELECT id, account_id, kind, amount, currency, status,
		       order_id, payment_id, stage_id, balance_before, balance_after, created_at
		FROM transactions
		WHERE account_id = ?
		ORDER BY created_at DESC
		LIMIT ? OFFSET ?`

	queryGetTransactionHistoryByKind = `
		SELECT id, account_id, kind, amount, currency, status,
		       order_id, payment_id, stage_id, balance_before, balance_after, created_at
		FROM transactions
		WHERE account_id = ? AND kind = ?
		ORDER BY created_at DESC
		LIMIT ? OFFSET ?`

	queryGetPurchaseAmounts = `
		SELECT amount
		FROM transactions
		WHERE account_id = ? AND kind = 'PURCHASE' AND status = 'COMPLETED'`
)
