package payments

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"foodcourt/internal/apperr"
	"foodcourt/internal/domain"
)

// CardPSPB is a second redirect-flow card provider. The provider publishes
// no Go SDK, so this adapter speaks its wire protocol directly over
// net/http with HMAC-signed requests, the same shape PSP A's SDK produces
// under the hood.
type CardPSPB struct {
	HTTPClient *http.Client
	BaseURL    string
	ShopID     string
	Secret     string
	ReturnURL  string
}

func NewCardPSPB(baseURL, shopID, secret, returnURL string) *CardPSPB {
	return &CardPSPB{
		HTTPClient: &http.Client{Timeout: 10 * time.Second},
		BaseURL:    baseURL,
		ShopID:     shopID,
		Secret:     secret,
		ReturnURL:  returnURL,
	}
}

func (a *CardPSPB) Method() domain.PaymentMethod { return domain.PaymentMethodCardPSPB }

type cardPSPBChargeRequest struct {
	ShopID      string `json:"shopId"`
	AmountMinor int64  `json:"amountMinor"`
	Currency    string `json:"currency"`
	ReturnURL   string `json:"returnUrl"`
	Reference   string `json:"reference"`
}

type cardPSPBChargeResponse struct {
	ChargeID    string `json:"chargeId"`
	RedirectURL string `json:"redirectUrl"`
}

func (a *CardPSPB) CreateCharge(ctx context.Context, draft PaymentDraft) (ChargeResult, error) {
	reqBody := cardPSPBChargeRequest{
		ShopID:      a.ShopID,
		AmountMinor: draft.AmountMinor,
		Currency:    draft.Currency,
		ReturnURL:   a.ReturnURL,
		Reference:   draft.PaymentID,
	}
	var resp cardPSPBChargeResponse
	if err := a.post(ctx, "/charges", reqBody, &resp); err != nil {
		return ChargeResult{}, err
	}
	return ChargeResult{ProviderRef: resp.ChargeID, RedirectURL: &resp.RedirectURL}, nil
}

type cardPSPBRefundRequest struct {
	ShopID      string `json:"shopId"`
	ChargeID    string `json:"chargeId"`
	AmountMinor int64  `json:"amountMinor"`
	Reason      string `json:"reason"`
}

type cardPSPBRefundResponse struct {
	RefundID string `json:"refundId"`
}

func (a *CardPSPB) Refund(ctx context.Context, providerRef string, amountMinor int64, reason string) (RefundResult, error) {
	reqBody := cardPSPBRefundRequest{ShopID: a.ShopID, ChargeID: providerRef, AmountMinor: amountMinor, Reason: reason}
	var resp cardPSPBRefundResponse
	if err := a.post(ctx, "/refunds", reqBody, &resp); err != nil {
		return RefundResult{}, apperr.Wrap(apperr.RefundFailed, "card pspb refund", err)
	}
	return RefundResult{RefundRef: resp.RefundID}, nil
}

func (a *CardPSPB) post(ctx context.Context, path string, body, out any) error {
	payload, err := json.Marshal(body)
	if err != nil {
		return apperr.Wrap(apperr.Internal, "marshal card pspb request", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, a.BaseURL+path, bytes.NewReader(payload))
	if err != nil {
		return apperr.Wrap(apperr.Internal, "build card pspb request", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-PSPB-Signature", a.sign(payload))

	resp, err := a.HTTPClient.Do(req)
	if err != nil {
		return apperr.Wrap(apperr.ProviderUnavailable, "card pspb request", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 500 {
		return apperr.New(apperr.ProviderUnavailable, fmt.Sprintf("card pspb returned %d", resp.StatusCode))
	}
	if resp.StatusCode >= 400 {
		return apperr.New(apperr.ValidationFailed, fmt.Sprintf("card pspb rejected request: %d", resp.StatusCode))
	}
	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return apperr.Wrap(apperr.Internal, "decode card pspb response", err)
		}
	}
	return nil
}

func (a *CardPSPB) sign(payload []byte) string {
	mac := hmac.New(sha256.New, []byte(a.Secret))
	mac.Write(payload)
	return hex.EncodeToString(mac.Sum(nil))
}

type cardPSPBWebhookPayload struct {
	EventID     string `json:"eventId"`
	EventType   string `json:"eventType"`
	ChargeID    string `json:"chargeId"`
	Reason      string `json:"reason"`
	AmountMinor int64  `json:"amountMinor"`
}

func (a *CardPSPB) VerifyWebhook(ctx context.Context, rawBody []byte, headers map[string]string) (WebhookEvent, error) {
	expected := a.sign(rawBody)
	got := headers["X-PSPB-Signature"]
	if got == "" || !hmac.Equal([]byte(expected), []byte(got)) {
		return WebhookEvent{}, apperr.New(apperr.InvalidWebhookSignature, "card pspb webhook signature mismatch")
	}

	var p cardPSPBWebhookPayload
	if err := json.Unmarshal(rawBody, &p); err != nil {
		return WebhookEvent{}, apperr.Wrap(apperr.Internal, "unmarshal card pspb webhook", err)
	}

	switch p.EventType {
	case "charge.succeeded":
		return WebhookEvent{ProviderEventID: p.EventID, ProviderRef: p.ChargeID, Kind: WebhookChargeSucceeded}, nil
	case "charge.failed", "charge.canceled":
		return WebhookEvent{ProviderEventID: p.EventID, ProviderRef: p.ChargeID, Kind: WebhookChargeFailed, FailureReason: p.Reason}, nil
	case "refund.succeeded":
		return WebhookEvent{ProviderEventID: p.EventID, ProviderRef: p.ChargeID, Kind: WebhookRefundSucceeded, RefundAmountMinor: p.AmountMinor}, nil
	default:
		return WebhookEvent{ProviderEventID: p.EventID, Kind: WebhookKind(p.EventType)}, nil
	}
}
