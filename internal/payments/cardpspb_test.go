package payments

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"foodcourt/internal/apperr"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const pspbTestSecret = "pspb-test-secret"

func signPSPB(t *testing.T, body []byte) string {
	t.Helper()
	mac := hmac.New(sha256.New, []byte(pspbTestSecret))
	mac.Write(body)
	return hex.EncodeToString(mac.Sum(nil))
}

func TestCardPSPBCreateCharge(t *testing.T) {
	var gotSignature string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/charges", r.URL.Path)
		gotSignature = r.Header.Get("X-PSPB-Signature")
		json.NewEncoder(w).Encode(cardPSPBChargeResponse{ChargeID: "ch_123", RedirectURL: "https://pay.example/ch_123"})
	}))
	defer srv.Close()

	adapter := NewCardPSPB(srv.URL, "shop-1", pspbTestSecret, "https://return.example")
	result, err := adapter.CreateCharge(context.Background(), PaymentDraft{
		PaymentID: "pay-1", OrderID: "order-1", AmountMinor: 1500, Currency: "USD",
	})

	require.NoError(t, err)
	assert.Equal(t, "ch_123", result.ProviderRef)
	require.NotNil(t, result.RedirectURL)
	assert.Equal(t, "https://pay.example/ch_123", *result.RedirectURL)
	assert.NotEmpty(t, gotSignature, "requests must be signed")
}

func TestCardPSPBCreateChargeProviderDown(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	adapter := NewCardPSPB(srv.URL, "shop-1", pspbTestSecret, "https://return.example")
	_, err := adapter.CreateCharge(context.Background(), PaymentDraft{PaymentID: "pay-1", AmountMinor: 100, Currency: "USD"})

	require.Error(t, err)
	assert.True(t, apperr.Is(err, apperr.ProviderUnavailable))
}

func TestCardPSPBRefundProvider5xxIsRefundFailed(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	adapter := NewCardPSPB(srv.URL, "shop-1", pspbTestSecret, "https://return.example")
	_, err := adapter.Refund(context.Background(), "ch_123", 1500, "customer cancelled")

	require.Error(t, err)
	assert.True(t, apperr.Is(err, apperr.RefundFailed))
}

func TestCardPSPBVerifyWebhook(t *testing.T) {
	adapter := NewCardPSPB("https://api.example", "shop-1", pspbTestSecret, "https://return.example")

	tests := []struct {
		eventType string
		wantKind  WebhookKind
	}{
		{"charge.succeeded", WebhookChargeSucceeded},
		{"charge.failed", WebhookChargeFailed},
		{"charge.canceled", WebhookChargeFailed},
		{"refund.succeeded", WebhookRefundSucceeded},
	}
	for _, tt := range tests {
		t.Run(tt.eventType, func(t *testing.T) {
			body, err := json.Marshal(cardPSPBWebhookPayload{
				EventID: "evt-1", EventType: tt.eventType, ChargeID: "ch_123", AmountMinor: 1500,
			})
			require.NoError(t, err)

			event, err := adapter.VerifyWebhook(context.Background(), body, map[string]string{
				"X-PSPB-Signature": signPSPB(t, body),
			})
			require.NoError(t, err)
			assert.Equal(t, tt.wantKind, event.Kind)
			assert.Equal(t, "ch_123", event.ProviderRef)
			assert.Equal(t, "evt-1", event.ProviderEventID)
		})
	}
}

func TestCardPSPBVerifyWebhookBadSignature(t *testing.T) {
	adapter := NewCardPSPB("https://api.example", "shop-1", pspbTestSecret, "https://return.example")

	body := []byte(`{"eventId":"evt-1","eventType":"charge.succeeded","chargeId":"ch_123"}`)

	_, err := adapter.VerifyWebhook(context.Background(), body, map[string]string{"X-PSPB-Signature": "deadbeef"})
	assert.True(t, apperr.Is(err, apperr.InvalidWebhookSignature))

	_, err = adapter.VerifyWebhook(context.Background(), body, map[string]string{})
	assert.True(t, apperr.Is(err, apperr.InvalidWebhookSignature))
}

func TestCardPSPBVerifyWebhookTamperedBody(t *testing.T) {
	adapter := NewCardPSPB("https://api.example", "shop-1", pspbTestSecret, "https://return.example")

	body := []byte(`{"eventId":"evt-1","eventType":"charge.succeeded","chargeId":"ch_123"}`)
	sig := signPSPB(t, body)
	tampered := []byte(`{"eventId":"evt-1","eventType":"charge.succeeded","chargeId":"ch_999"}`)

	_, err := adapter.VerifyWebhook(context.Background(), tampered, map[string]string{"X-PSPB-Signature": sig})
	assert.True(t, apperr.Is(err, apperr.InvalidWebhookSignature))
}

func TestSynchronousAdaptersRejectWebhooks(t *testing.T) {
	for _, adapter := range []Adapter{Cash{}, Terminal{}} {
		_, err := adapter.VerifyWebhook(context.Background(), []byte("{}"), nil)
		assert.True(t, apperr.Is(err, apperr.InvalidWebhookSignature), "method %s", adapter.Method())

		_, err = adapter.Refund(context.Background(), "", 100, "oops")
		assert.True(t, apperr.Is(err, apperr.RefundFailed), "method %s", adapter.Method())
	}
}

func TestSynchronousMetadata(t *testing.T) {
	cashMeta, err := synchronousMetadata(CreatePaymentInput{Cash: &CashDetails{
		AmountReceivedMinor: 2000, ChangeGivenMinor: 500, ProcessedByPrincipalID: "p-1",
	}})
	require.NoError(t, err)
	assert.JSONEq(t, `{"amountReceivedMinor":2000,"changeGivenMinor":500,"processedByPrincipalId":"p-1"}`, string(cashMeta))

	last4 := "4242"
	termMeta, err := synchronousMetadata(CreatePaymentInput{Terminal: &TerminalDetails{
		TerminalTxID: "tx-1", TerminalID: "term-1", CardLast4: &last4,
	}})
	require.NoError(t, err)
	assert.JSONEq(t, `{"terminalTxId":"tx-1","terminalId":"term-1","cardLast4":"4242"}`, string(termMeta))

	none, err := synchronousMetadata(CreatePaymentInput{})
	require.NoError(t, err)
	assert.Nil(t, none)
}
