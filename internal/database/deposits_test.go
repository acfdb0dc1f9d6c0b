package database

import (
	"context"
	"errors"
	"testing"
	"time"

	"presale-ledger-go/internal/models"
	"presale-ledger-go/internal/store"

	"github.com/shopspring/decimal"
)

func createTestDeposit(t *testing.T, service *Service, accountId, orderId, amount string) *models.PendingDeposit {
	t.Helper()
	amountDec, _ := decimal.NewFromString(amount)
	deposit, err := service.CreatePendingDeposit(context.Background(), store.CreateDepositParams{
		AccountId:     accountId,
		OrderId:       orderId,
		Amount:        amountDec,
		PaymentMethod: "UPI",
	})
	if err != nil {
		t.Fatalf("Failed to create pending deposit: %v", err)
	}
	return deposit
}

func settleParams(orderId string, outcome models.Outcome, amount string) store.SettleDepositParams {
	amountDec, _ := decimal.NewFromString(amount)
	return store.SettleDepositParams{
		OrderId:       orderId,
		Outcome:       outcome,
		Amount:        amountDec,
		PaymentId:     "pay_123",
		PaymentStatus: "SUCCESS",
		OccurredAt:    time.Now().UTC(),
		FiatCurrency:  "INR",
	}
}

func TestCreatePendingDeposit(t *testing.T) {
	service, cleanup := setupLedgerTestDB(t)
	defer cleanup()

	account := createTestAccount(t, service, "0")
	deposit := createTestDeposit(t, service, account.Id, "ORDER_1724800000000_AB12CD34EF56", "250")

	if deposit.Status != models.DepositStatusPending {
		t.Errorf("Expected status PENDING, got %s", deposit.Status)
	}
	if deposit.ProcessedAt != nil {
		t.Errorf("Expected no processed_at on a fresh deposit, got %v", deposit.ProcessedAt)
	}
	if !deposit.Amount.Equal(decimal.NewFromInt(250)) {
		t.Errorf("Expected amount 250, got %s", deposit.Amount.String())
	}
}

func TestCreatePendingDeposit_DuplicateOrderId(t *testing.T) {
	service, cleanup := setupLedgerTestDB(t)
	defer cleanup()

	account := createTestAccount(t, service, "0")
	createTestDeposit(t, service, account.Id, "ORDER_DUP", "100")

	_, err := service.CreatePendingDeposit(context.Background(), store.CreateDepositParams{
		AccountId:     account.Id,
		OrderId:       "ORDER_DUP",
		Amount:        decimal.NewFromInt(100),
		PaymentMethod: "UPI",
	})
	if !errors.Is(err, store.ErrDuplicateOrder) {
		t.Errorf("Expected ErrDuplicateOrder, got %v", err)
	}
}

func TestCreatePendingDeposit_RejectsNonPositiveAmount(t *testing.T) {
	service, cleanup := setupLedgerTestDB(t)
	defer cleanup()

	account := createTestAccount(t, service, "0")
	_, err := service.CreatePendingDeposit(context.Background(), store.CreateDepositParams{
		AccountId:     account.Id,
		OrderId:       "ORDER_ZERO",
		Amount:        decimal.Zero,
		PaymentMethod: "UPI",
	})
	if err == nil {
		t.Error("Expected error for zero amount deposit")
	}
}

func TestSettleDeposit_Success(t *testing.T) {
	service, cleanup := setupLedgerTestDB(t)
	defer cleanup()
	ctx := context.Background()

	account := createTestAccount(t, service, "0")
	createTestDeposit(t, service, account.Id, "ORDER_OK", "500")

	settlement, err := service.SettleDeposit(ctx, settleParams("ORDER_OK", models.OutcomeSuccess, "500"))
	if err != nil {
		t.Fatalf("SettleDeposit failed: %v", err)
	}
	if !settlement.Credited {
		t.Error("Expected settlement to credit the account")
	}
	if !settlement.NewBalance.Equal(decimal.NewFromInt(500)) {
		t.Errorf("Expected new balance 500, got %s", settlement.NewBalance.String())
	}

	updated, _ := service.GetAccount(ctx, account.Id)
	if !updated.FiatBalance.Equal(decimal.NewFromInt(500)) {
		t.Errorf("Expected fiat balance 500, got %s", updated.FiatBalance.String())
	}

	deposit, _ := service.GetDepositByOrderId(ctx, "ORDER_OK")
	if deposit.Status != models.DepositStatusCompleted {
		t.Errorf("Expected status COMPLETED, got %s", deposit.Status)
	}
	if deposit.ProcessedAt == nil {
		t.Error("Expected processed_at to be set")
	}
	if deposit.PaymentId != "pay_123" {
		t.Errorf("Expected payment id recorded, got %q", deposit.PaymentId)
	}

	history, _ := service.GetTransactionHistory(ctx, account.Id, models.TransactionKindDeposit, 10, 0)
	if len(history) != 1 {
		t.Fatalf("Expected 1 deposit record, got %d", len(history))
	}
	if history[0].OrderId != "ORDER_OK" {
		t.Errorf("Expected record order id ORDER_OK, got %s", history[0].OrderId)
	}
}

// Redelivering the same success notification must not credit twice: one
// credit, one audit record, no matter how many deliveries arrive.
func TestSettleDeposit_IdempotentOnRedelivery(t *testing.T) {
	service, cleanup := setupLedgerTestDB(t)
	defer cleanup()
	ctx := context.Background()

	account := createTestAccount(t, service, "0")
	createTestDeposit(t, service, account.Id, "ORDER_DUP_DELIVERY", "300")

	if _, err := service.SettleDeposit(ctx, settleParams("ORDER_DUP_DELIVERY", models.OutcomeSuccess, "300")); err != nil {
		t.Fatalf("First settlement failed: %v", err)
	}

	for i := 0; i < 3; i++ {
		_, err := service.SettleDeposit(ctx, settleParams("ORDER_DUP_DELIVERY", models.OutcomeSuccess, "300"))
		if !errors.Is(err, store.ErrAlreadyTerminal) {
			t.Errorf("Redelivery %d: expected ErrAlreadyTerminal, got %v", i+1, err)
		}
	}

	updated, _ := service.GetAccount(ctx, account.Id)
	if !updated.FiatBalance.Equal(decimal.NewFromInt(300)) {
		t.Errorf("Expected balance credited exactly once (300), got %s", updated.FiatBalance.String())
	}

	history, _ := service.GetTransactionHistory(ctx, account.Id, models.TransactionKindDeposit, 10, 0)
	if len(history) != 1 {
		t.Errorf("Expected exactly 1 deposit record, got %d", len(history))
	}
}

// The first terminal outcome wins: a SUCCESS arriving after a FAILED must not
// flip the deposit or credit the account.
func TestSettleDeposit_FirstTerminalOutcomeWins(t *testing.T) {
	service, cleanup := setupLedgerTestDB(t)
	defer cleanup()
	ctx := context.Background()

	account := createTestAccount(t, service, "0")
	createTestDeposit(t, service, account.Id, "ORDER_CONFLICT", "400")

	failed := settleParams("ORDER_CONFLICT", models.OutcomeFailed, "400")
	failed.PaymentStatus = "FAILED"
	settlement, err := service.SettleDeposit(ctx, failed)
	if err != nil {
		t.Fatalf("Failed settlement errored: %v", err)
	}
	if settlement.Credited {
		t.Error("Failed outcome must not credit the account")
	}

	_, err = service.SettleDeposit(ctx, settleParams("ORDER_CONFLICT", models.OutcomeSuccess, "400"))
	if !errors.Is(err, store.ErrAlreadyTerminal) {
		t.Errorf("Expected ErrAlreadyTerminal for conflicting outcome, got %v", err)
	}

	deposit, _ := service.GetDepositByOrderId(ctx, "ORDER_CONFLICT")
	if deposit.Status != models.DepositStatusFailed {
		t.Errorf("Expected status to stay FAILED, got %s", deposit.Status)
	}
	updated, _ := service.GetAccount(ctx, account.Id)
	if !updated.FiatBalance.Equal(decimal.Zero) {
		t.Errorf("Expected balance untouched, got %s", updated.FiatBalance.String())
	}
}

func TestSettleDeposit_UnknownOrder(t *testing.T) {
	service, cleanup := setupLedgerTestDB(t)
	defer cleanup()

	_, err := service.SettleDeposit(context.Background(), settleParams("ORDER_GHOST", models.OutcomeSuccess, "100"))
	if !errors.Is(err, store.ErrUnknownOrder) {
		t.Errorf("Expected ErrUnknownOrder, got %v", err)
	}
}

// A notification without a usable amount falls back to the amount the deposit
// was created with.
func TestSettleDeposit_ZeroAmountFallsBackToRequested(t *testing.T) {
	service, cleanup := setupLedgerTestDB(t)
	defer cleanup()
	ctx := context.Background()

	account := createTestAccount(t, service, "0")
	createTestDeposit(t, service, account.Id, "ORDER_NOAMT", "750")

	settlement, err := service.SettleDeposit(ctx, settleParams("ORDER_NOAMT", models.OutcomeSuccess, "0"))
	if err != nil {
		t.Fatalf("SettleDeposit failed: %v", err)
	}
	if !settlement.Amount.Equal(decimal.NewFromInt(750)) {
		t.Errorf("Expected fallback to requested amount 750, got %s", settlement.Amount.String())
	}
}

// If crediting fails mid-transaction, the rollback must leave the deposit
// PENDING so a retry can settle it.
func TestSettleDeposit_RollbackKeepsDepositPending(t *testing.T) {
	service, cleanup := setupLedgerTestDB(t)
	defer cleanup()
	ctx := context.Background()

	account := createTestAccount(t, service, "0")
	createTestDeposit(t, service, account.Id, "ORDER_ORPHAN", "100")

	// Remove the account out from under the deposit to force a failure after
	// the status update inside the transaction.
	if _, err := service.db.Exec(`DELETE FROM accounts WHERE id = ?`, account.Id); err != nil {
		t.Fatalf("Failed to delete account: %v", err)
	}

	_, err := service.SettleDeposit(ctx, settleParams("ORDER_ORPHAN", models.OutcomeSuccess, "100"))
	if !errors.Is(err, store.ErrAccountNotFound) {
		t.Fatalf("Expected ErrAccountNotFound, got %v", err)
	}

	deposit, getErr := service.GetDepositByOrderId(ctx, "ORDER_ORPHAN")
	if getErr != nil {
		t.Fatalf("Failed to reload deposit: %v", getErr)
	}
	if deposit.Status != models.DepositStatusPending {
		t.Errorf("Expected deposit to stay PENDING after rollback, got %s", deposit.Status)
	}
}

func TestGetAccountDeposits(t *testing.T) {
	service, cleanup := setupLedgerTestDB(t)
	defer cleanup()

	account := createTestAccount(t, service, "0")
	createTestDeposit(t, service, account.Id, "ORDER_A", "100")
	createTestDeposit(t, service, account.Id, "ORDER_B", "200")

	deposits, err := service.GetAccountDeposits(context.Background(), account.Id, 10)
	if err != nil {
		t.Fatalf("GetAccountDeposits failed: %v", err)
	}
	if len(deposits) != 2 {
		t.Errorf("Expected 2 deposits, got %d", len(deposits))
	}
}
