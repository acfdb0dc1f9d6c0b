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

package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// PurchaseReceipt is returned by a successful purchase: the tokens credited
// and the fiat paid for them.
type PurchaseReceipt struct {
	AccountId      string          `json:"account_id"`
	StageId        string          `json:"stage_id"`
	StageNumber    int             `json:"stage_number"`
	TokensReceived decimal.Decimal `json:"tokens_received"`
	AmountPaid     decimal.Decimal `json:"amount_paid"`
	Price          decimal.Decimal `json:"price"`
	TransactionId  string          `json:"transaction_id"`
}

// DepositOrder is returned when a deposit order is created; OrderId is the
// idempotency key the payment provider will echo back.
type DepositOrder struct {
	OrderId   string          `json:"order_id"`
	AccountId string          `json:"account_id"`
	Amount    decimal.Decimal `json:"amount"`
	Status    string          `json:"status"`
	CreatedAt time.Time       `json:"created_at"`
}

// SettlementResult describes the outcome of reconciling one payment
// notification.
type SettlementResult struct {
	OrderId    string          `json:"order_id"`
	AccountId  string          `json:"account_id"`
	Status     string          `json:"status"`
	Credited   bool            `json:"credited"`
	Amount     decimal.Decimal `json:"amount"`
	NewBalance decimal.Decimal `json:"new_balance"`
}

// PurchaseSummary aggregates an account's presale participation.
type PurchaseSummary struct {
	TotalInvested decimal.Decimal `json:"total_invested"`
	TokensOwned   decimal.Decimal `json:"tokens_owned"`
}
