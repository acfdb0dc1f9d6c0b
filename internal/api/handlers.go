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

package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"presale-ledger-go/internal/ledger"
	"presale-ledger-go/internal/models"
	"presale-ledger-go/internal/reconciler"
	"presale-ledger-go/internal/store"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// Deposit order bounds in fiat units.
var (
	depositMin = decimal.NewFromInt(10)
	depositMax = decimal.NewFromInt(100000)
)

// Caps request bodies; webhook payloads and purchase requests are small.
const maxBodyBytes = 1 << 20

const defaultHistoryLimit = 50

// Handler holds the services the HTTP layer fronts.
type Handler struct {
	ledger     *ledger.Service
	reconciler *reconciler.Service
	store      store.LedgerStore
}

func NewHandler(ledgerSvc *ledger.Service, reconcilerSvc *reconciler.Service, ledgerStore store.LedgerStore) *Handler {
	return &Handler{ledger: ledgerSvc, reconciler: reconcilerSvc, store: ledgerStore}
}

// Purchase handles POST /api/presale/purchase.
func (h *Handler) Purchase(w http.ResponseWriter, r *http.Request) {
	var req PurchaseRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "Bad Request", err.Error())
		return
	}
	if req.AccountId == "" {
		writeError(w, http.StatusBadRequest, "Bad Request", "account_id is required")
		return
	}

	receipt, err := h.ledger.Purchase(r.Context(), req.AccountId, req.Amount, req.PaymentMethod)
	if err != nil {
		h.writePurchaseError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, PurchaseResponse{
		Message:        "Purchase successful",
		TokensReceived: receipt.TokensReceived,
		AmountPaid:     receipt.AmountPaid,
		StageNumber:    receipt.StageNumber,
	})
}

func (h *Handler) writePurchaseError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, store.ErrInvalidAmount):
		writeError(w, http.StatusBadRequest, "Bad Request", err.Error())
	case errors.Is(err, store.ErrInsufficientBalance):
		writeError(w, http.StatusBadRequest, "Bad Request", "Insufficient fiat balance")
	case errors.Is(err, store.ErrAllocationExceeded):
		writeError(w, http.StatusBadRequest, "Bad Request", "Not enough tokens available")
	case errors.Is(err, store.ErrNoActiveStage):
		writeError(w, http.StatusNotFound, "Not Found", "No active presale")
	case errors.Is(err, store.ErrAccountNotFound):
		writeError(w, http.StatusNotFound, "Not Found", "Account not found")
	default:
		zap.L().Error("Purchase failed", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "Internal Server Error", "Failed to process purchase")
	}
}

// PresaleStatus handles GET /api/presale/status.
func (h *Handler) PresaleStatus(w http.ResponseWriter, r *http.Request) {
	stage, err := h.ledger.Status(r.Context())
	if errors.Is(err, store.ErrNoActiveStage) {
		writeError(w, http.StatusNotFound, "Not Found", "No active presale found")
		return
	}
	if err != nil {
		zap.L().Error("Failed to get presale status", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "Internal Server Error", "Failed to fetch presale status")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"presale": stage})
}

// PresaleStages handles GET /api/presale/stages.
func (h *Handler) PresaleStages(w http.ResponseWriter, r *http.Request) {
	stages, err := h.ledger.Stages(r.Context())
	if err != nil {
		zap.L().Error("Failed to get stages", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "Internal Server Error", "Failed to fetch presale stages")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"stages": stages})
}

// Purchases handles GET /api/accounts/{id}/purchases.
func (h *Handler) Purchases(w http.ResponseWriter, r *http.Request) {
	accountId := chi.URLParam(r, "id")
	limit, offset := pagination(r)

	purchases, summary, err := h.ledger.Purchases(r.Context(), accountId, limit, offset)
	if errors.Is(err, store.ErrAccountNotFound) {
		writeError(w, http.StatusNotFound, "Not Found", "Account not found")
		return
	}
	if err != nil {
		zap.L().Error("Failed to get purchases", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "Internal Server Error", "Failed to fetch purchases")
		return
	}

	writeJSON(w, http.StatusOK, PurchasesResponse{Purchases: purchases, Summary: *summary})
}

// CreateDeposit handles POST /api/deposits: creates the PENDING deposit the
// provider's webhook will later settle.
func (h *Handler) CreateDeposit(w http.ResponseWriter, r *http.Request) {
	var req DepositRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "Bad Request", err.Error())
		return
	}
	if req.AccountId == "" {
		writeError(w, http.StatusBadRequest, "Bad Request", "account_id is required")
		return
	}
	if req.Amount.LessThan(depositMin) || req.Amount.GreaterThan(depositMax) {
		writeError(w, http.StatusBadRequest, "Bad Request",
			fmt.Sprintf("amount must be between %s and %s", depositMin.String(), depositMax.String()))
		return
	}

	orderId := newOrderId()
	deposit, err := h.store.CreatePendingDeposit(r.Context(), store.CreateDepositParams{
		AccountId:     req.AccountId,
		OrderId:       orderId,
		Amount:        req.Amount,
		PaymentMethod: strings.ToUpper(req.PaymentMethod),
	})
	if errors.Is(err, store.ErrAccountNotFound) {
		writeError(w, http.StatusNotFound, "Not Found", "Account not found")
		return
	}
	if err != nil {
		zap.L().Error("Failed to create deposit order", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "Internal Server Error", "Failed to create deposit order")
		return
	}

	writeJSON(w, http.StatusOK, models.DepositOrder{
		OrderId:   deposit.OrderId,
		AccountId: deposit.AccountId,
		Amount:    deposit.Amount,
		Status:    deposit.Status,
		CreatedAt: deposit.CreatedAt,
	})
}

// Deposits handles GET /api/accounts/{id}/deposits.
func (h *Handler) Deposits(w http.ResponseWriter, r *http.Request) {
	accountId := chi.URLParam(r, "id")
	limit, _ := pagination(r)

	deposits, err := h.store.GetAccountDeposits(r.Context(), accountId, limit)
	if err != nil {
		zap.L().Error("Failed to get deposits", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "Internal Server Error", "Failed to fetch deposits")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"deposits": deposits})
}

// Balance handles GET /api/accounts/{id}/balance.
func (h *Handler) Balance(w http.ResponseWriter, r *http.Request) {
	accountId := chi.URLParam(r, "id")
	account, err := h.store.GetAccount(r.Context(), accountId)
	if errors.Is(err, store.ErrAccountNotFound) {
		writeError(w, http.StatusNotFound, "Not Found", "Account not found")
		return
	}
	if err != nil {
		zap.L().Error("Failed to get account", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "Internal Server Error", "Failed to fetch account")
		return
	}

	writeJSON(w, http.StatusOK, BalanceResponse{
		AccountId:     account.Id,
		FiatBalance:   account.FiatBalance,
		TokenBalance:  account.TokenBalance,
		TotalInvested: account.TotalInvested,
		TokensOwned:   account.TokensOwned,
	})
}

// Transactions handles GET /api/accounts/{id}/transactions.
func (h *Handler) Transactions(w http.ResponseWriter, r *http.Request) {
	accountId := chi.URLParam(r, "id")
	limit, offset := pagination(r)

	transactions, err := h.store.GetTransactionHistory(r.Context(), accountId, "", limit, offset)
	if err != nil {
		zap.L().Error("Failed to get transactions", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "Internal Server Error", "Failed to fetch transactions")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"transactions": transactions})
}

// PaymentWebhook handles POST /api/webhooks/payment. Per the provider
// contract the endpoint acknowledges unknown orders and duplicates with 200
// to stop redelivery storms; only authentication failures and parse errors
// are rejected.
func (h *Handler) PaymentWebhook(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(io.LimitReader(r.Body, maxBodyBytes))
	if err != nil {
		writeError(w, http.StatusBadRequest, "Bad Request", "Failed to read request body")
		return
	}

	signature := r.Header.Get("x-webhook-signature")
	timestamp := r.Header.Get("x-webhook-timestamp")

	_, err = h.reconciler.HandleWebhook(r.Context(), body, signature, timestamp)
	switch {
	case err == nil:
		writeJSON(w, http.StatusOK, StatusResponse{Status: "OK", Message: "Webhook processed"})
	case errors.Is(err, store.ErrUnauthorized):
		writeError(w, http.StatusUnauthorized, "Unauthorized", "Invalid webhook signature")
	case isParseError(err):
		writeError(w, http.StatusBadRequest, "Bad Request", err.Error())
	default:
		zap.L().Error("Webhook processing failed", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "Internal Server Error", "Failed to process webhook")
	}
}

// ReconcileAccount handles POST /api/admin/accounts/{id}/reconcile.
func (h *Handler) ReconcileAccount(w http.ResponseWriter, r *http.Request) {
	accountId := chi.URLParam(r, "id")
	if err := h.store.ReconcileAccountBalance(r.Context(), accountId); err != nil {
		if errors.Is(err, store.ErrAccountNotFound) {
			writeError(w, http.StatusNotFound, "Not Found", "Account not found")
			return
		}
		writeError(w, http.StatusConflict, "Conflict", err.Error())
		return
	}
	writeJSON(w, http.StatusOK, StatusResponse{Status: "OK", Message: "Balances reconciled"})
}

// Health handles GET /health.
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	if _, err := h.ledger.Stages(r.Context()); err != nil {
		writeError(w, http.StatusServiceUnavailable, "Service Unavailable", "database unreachable")
		return
	}
	writeJSON(w, http.StatusOK, StatusResponse{Status: "OK"})
}

func newOrderId() string {
	raw := strings.ReplaceAll(uuid.New().String(), "-", "")[:12]
	return strings.ToUpper(fmt.Sprintf("ORDER_%d_%s", time.Now().UnixMilli(), raw))
}

func decodeJSON(r *http.Request, v any) error {
	dec := json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes))
	if err := dec.Decode(v); err != nil {
		return fmt.Errorf("invalid JSON body: %w", err)
	}
	return nil
}

func pagination(r *http.Request) (limit, offset int) {
	limit = defaultHistoryLimit
	if v := r.URL.Query().Get("limit"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 && n <= 500 {
			limit = n
		}
	}
	if v := r.URL.Query().Get("offset"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n >= 0 {
			offset = n
		}
	}
	return limit, offset
}

func isParseError(err error) bool {
	msg := err.Error()
	return strings.Contains(msg, "malformed webhook body") || strings.Contains(msg, "webhook body missing")
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		zap.L().Warn("Failed to encode response", zap.Error(err))
	}
}

func writeError(w http.ResponseWriter, status int, kind, message string) {
	writeJSON(w, status, ErrorResponse{Error: kind, Message: message})
}
