package reconciler

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"presale-ledger-go/internal/database"
	"presale-ledger-go/internal/models"
	"presale-ledger-go/internal/notifier"
	"presale-ledger-go/internal/store"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSecret = "test-webhook-secret"

// recordingNotifier captures notifications for assertions.
type recordingNotifier struct {
	mu    sync.Mutex
	calls []string
}

func (r *recordingNotifier) Notify(_ context.Context, accountId, kind string, _ notifier.Payload) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls = append(r.calls, kind)
}

func (r *recordingNotifier) kinds() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.calls...)
}

func setupReconciler(t *testing.T) (*Service, *database.Service, *recordingNotifier) {
	t.Helper()
	dbService, err := database.NewService(context.Background(), models.DatabaseConfig{
		Path:         ":memory:",
		MaxOpenConns: 1,
		MaxIdleConns: 1,
		PingTimeout:  5 * time.Second,
	})
	require.NoError(t, err)
	t.Cleanup(dbService.Close)

	verifier, err := NewSignatureVerifier(testSecret, false)
	require.NoError(t, err)

	recorder := &recordingNotifier{}
	return NewService(dbService, verifier, recorder, "INR"), dbService, recorder
}

func seedPendingDeposit(t *testing.T, dbService *database.Service, orderId, amount string) string {
	t.Helper()
	ctx := context.Background()
	accountId := "acct-" + orderId
	_, err := dbService.CreateAccount(ctx, accountId, "Test User", accountId+"@example.com")
	require.NoError(t, err)

	amountDec, err := decimal.NewFromString(amount)
	require.NoError(t, err)
	_, err = dbService.CreatePendingDeposit(ctx, store.CreateDepositParams{
		AccountId:     accountId,
		OrderId:       orderId,
		Amount:        amountDec,
		PaymentMethod: "UPI",
	})
	require.NoError(t, err)
	return accountId
}

func successBody(orderId, amount string) []byte {
	return []byte(fmt.Sprintf(
		`{"type":"PAYMENT_SUCCESS_WEBHOOK","data":{"order_id":%q,"order_amount":%s,"payment_status":"SUCCESS","cf_payment_id":"cf_1001","payment_time":"2026-08-28T10:00:00Z"}}`,
		orderId, amount))
}

func failedBody(orderId string) []byte {
	return []byte(fmt.Sprintf(
		`{"type":"PAYMENT_FAILED_WEBHOOK","data":{"order_id":%q,"order_amount":0,"payment_status":"FAILED","cf_payment_id":"cf_1002"}}`,
		orderId))
}

func deliver(t *testing.T, svc *Service, body []byte) (*models.SettlementResult, error) {
	t.Helper()
	timestamp := "1724800000"
	return svc.HandleWebhook(context.Background(), body, signPayload(testSecret, timestamp, body), timestamp)
}

func TestHandleWebhook_SuccessCreditsAccount(t *testing.T) {
	svc, dbService, recorder := setupReconciler(t)
	accountId := seedPendingDeposit(t, dbService, "ORDER_WEB_OK", "500")

	result, err := deliver(t, svc, successBody("ORDER_WEB_OK", "500"))
	require.NoError(t, err)
	require.NotNil(t, result)
	assert.True(t, result.Credited)
	assert.True(t, result.Amount.Equal(decimal.NewFromInt(500)))

	account, err := dbService.GetAccount(context.Background(), accountId)
	require.NoError(t, err)
	assert.True(t, account.FiatBalance.Equal(decimal.NewFromInt(500)),
		"expected balance 500, got %s", account.FiatBalance.String())

	assert.Equal(t, []string{notifier.KindDepositSuccess}, recorder.kinds())
}

func TestHandleWebhook_InvalidSignatureRejectedBeforeState(t *testing.T) {
	svc, dbService, recorder := setupReconciler(t)
	seedPendingDeposit(t, dbService, "ORDER_WEB_BADSIG", "500")

	body := successBody("ORDER_WEB_BADSIG", "500")
	_, err := svc.HandleWebhook(context.Background(), body, "bogus-signature", "1724800000")
	assert.ErrorIs(t, err, store.ErrUnauthorized)

	deposit, err := dbService.GetDepositByOrderId(context.Background(), "ORDER_WEB_BADSIG")
	require.NoError(t, err)
	assert.Equal(t, models.DepositStatusPending, deposit.Status, "rejected webhook must not touch the deposit")
	assert.Empty(t, recorder.kinds())
}

// Redeliveries are acknowledged no-ops: one credit, one notification.
func TestHandleWebhook_RedeliveryIsIdempotent(t *testing.T) {
	svc, dbService, recorder := setupReconciler(t)
	accountId := seedPendingDeposit(t, dbService, "ORDER_WEB_DUP", "300")

	body := successBody("ORDER_WEB_DUP", "300")
	for i := 0; i < 4; i++ {
		_, err := deliver(t, svc, body)
		require.NoError(t, err, "delivery %d must be acknowledged", i+1)
	}

	account, err := dbService.GetAccount(context.Background(), accountId)
	require.NoError(t, err)
	assert.True(t, account.FiatBalance.Equal(decimal.NewFromInt(300)),
		"expected exactly one credit of 300, got %s", account.FiatBalance.String())
	assert.Equal(t, []string{notifier.KindDepositSuccess}, recorder.kinds(),
		"exactly one notification across redeliveries")
}

func TestHandleWebhook_FailedOutcomeMarksWithoutCredit(t *testing.T) {
	svc, dbService, recorder := setupReconciler(t)
	accountId := seedPendingDeposit(t, dbService, "ORDER_WEB_FAIL", "400")

	result, err := deliver(t, svc, failedBody("ORDER_WEB_FAIL"))
	require.NoError(t, err)
	require.NotNil(t, result)
	assert.False(t, result.Credited)

	deposit, err := dbService.GetDepositByOrderId(context.Background(), "ORDER_WEB_FAIL")
	require.NoError(t, err)
	assert.Equal(t, models.DepositStatusFailed, deposit.Status)

	account, err := dbService.GetAccount(context.Background(), accountId)
	require.NoError(t, err)
	assert.True(t, account.FiatBalance.Equal(decimal.Zero))
	assert.Equal(t, []string{notifier.KindDepositFailed}, recorder.kinds())
}

// A SUCCESS after a FAILED must not flip the outcome or credit the account.
func TestHandleWebhook_ConflictingOutcomeKeepsFirstWrite(t *testing.T) {
	svc, dbService, _ := setupReconciler(t)
	accountId := seedPendingDeposit(t, dbService, "ORDER_WEB_FLIP", "600")

	_, err := deliver(t, svc, failedBody("ORDER_WEB_FLIP"))
	require.NoError(t, err)

	_, err = deliver(t, svc, successBody("ORDER_WEB_FLIP", "600"))
	require.NoError(t, err, "conflicting redelivery is still acknowledged")

	deposit, err := dbService.GetDepositByOrderId(context.Background(), "ORDER_WEB_FLIP")
	require.NoError(t, err)
	assert.Equal(t, models.DepositStatusFailed, deposit.Status)

	account, err := dbService.GetAccount(context.Background(), accountId)
	require.NoError(t, err)
	assert.True(t, account.FiatBalance.Equal(decimal.Zero))
}

func TestHandleWebhook_UnknownOrderAcknowledged(t *testing.T) {
	svc, _, recorder := setupReconciler(t)

	result, err := deliver(t, svc, successBody("ORDER_WEB_GHOST", "100"))
	assert.NoError(t, err, "unknown orders are acknowledged so redelivery stops")
	assert.Nil(t, result)
	assert.Empty(t, recorder.kinds())
}

func TestHandleWebhook_UserDroppedSettlesAsFailed(t *testing.T) {
	svc, dbService, _ := setupReconciler(t)
	seedPendingDeposit(t, dbService, "ORDER_WEB_DROP", "200")

	body := []byte(`{"type":"PAYMENT_USER_DROPPED_WEBHOOK","data":{"order_id":"ORDER_WEB_DROP","order_amount":0,"payment_status":"USER_DROPPED"}}`)
	result, err := deliver(t, svc, body)
	require.NoError(t, err)
	require.NotNil(t, result)
	assert.False(t, result.Credited)

	deposit, err := dbService.GetDepositByOrderId(context.Background(), "ORDER_WEB_DROP")
	require.NoError(t, err)
	assert.Equal(t, models.DepositStatusFailed, deposit.Status)
}

func TestHandleWebhook_UnhandledEventTypeIgnored(t *testing.T) {
	svc, dbService, recorder := setupReconciler(t)
	seedPendingDeposit(t, dbService, "ORDER_WEB_ODD", "100")

	body := []byte(`{"type":"PAYMENT_REFUND_WEBHOOK","data":{"order_id":"ORDER_WEB_ODD"}}`)
	result, err := deliver(t, svc, body)
	assert.NoError(t, err)
	assert.Nil(t, result)

	deposit, err := dbService.GetDepositByOrderId(context.Background(), "ORDER_WEB_ODD")
	require.NoError(t, err)
	assert.Equal(t, models.DepositStatusPending, deposit.Status)
	assert.Empty(t, recorder.kinds())
}

func TestHandleWebhook_MalformedBody(t *testing.T) {
	svc, _, _ := setupReconciler(t)

	_, err := deliver(t, svc, []byte(`{not json`))
	assert.Error(t, err)

	_, err = deliver(t, svc, []byte(`{"type":"PAYMENT_SUCCESS_WEBHOOK","data":{}}`))
	assert.Error(t, err, "missing order_id must be rejected")
}
