package transport

import (
	"io"
	"net/http"

	"foodcourt/internal/apperr"
	"foodcourt/internal/domain"
	"foodcourt/internal/logger"
	"foodcourt/internal/payments"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

type createPaymentRequest struct {
	OrderID string `json:"orderId"`
	Method  string `json:"method"`
}

// handleCreatePayment covers the async card methods; cash and terminal
// have their own endpoints since they carry mandatory settlement details.
func (svc *Services) handleCreatePayment(w http.ResponseWriter, r *http.Request) {
	var req createPaymentRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	payment, err := svc.Payments.CreatePayment(r.Context(), principalFrom(r), payments.CreatePaymentInput{
		OrderID: req.OrderID,
		Method:  domain.PaymentMethod(req.Method),
	})
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, toPaymentDTO(payment))
}

type createCashPaymentRequest struct {
	OrderID                string `json:"orderId"`
	AmountReceivedMinor    int64  `json:"amountReceivedMinor"`
	ChangeGivenMinor       int64  `json:"changeGivenMinor"`
	ProcessedByPrincipalID string `json:"processedByPrincipalId"`
}

func (svc *Services) handleCreateCashPayment(w http.ResponseWriter, r *http.Request) {
	var req createCashPaymentRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	payment, err := svc.Payments.CreatePayment(r.Context(), principalFrom(r), payments.CreatePaymentInput{
		OrderID: req.OrderID,
		Method:  domain.PaymentMethodCash,
		Cash: &payments.CashDetails{
			AmountReceivedMinor:    req.AmountReceivedMinor,
			ChangeGivenMinor:       req.ChangeGivenMinor,
			ProcessedByPrincipalID: req.ProcessedByPrincipalID,
		},
	})
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, toPaymentDTO(payment))
}

type createTerminalPaymentRequest struct {
	OrderID      string  `json:"orderId"`
	TerminalTxID string  `json:"terminalTxId"`
	TerminalID   string  `json:"terminalId"`
	CardLast4    *string `json:"cardLast4"`
	CardBrand    *string `json:"cardBrand"`
}

func (svc *Services) handleCreateTerminalPayment(w http.ResponseWriter, r *http.Request) {
	var req createTerminalPaymentRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	payment, err := svc.Payments.CreatePayment(r.Context(), principalFrom(r), payments.CreatePaymentInput{
		OrderID: req.OrderID,
		Method:  domain.PaymentMethodTerminal,
		Terminal: &payments.TerminalDetails{
			TerminalTxID: req.TerminalTxID,
			TerminalID:   req.TerminalID,
			CardLast4:    req.CardLast4,
			CardBrand:    req.CardBrand,
		},
	})
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, toPaymentDTO(payment))
}

type refundPaymentRequest struct {
	AmountMinor int64  `json:"amountMinor"`
	Reason      string `json:"reason"`
}

func (svc *Services) handleRefundPayment(w http.ResponseWriter, r *http.Request) {
	var req refundPaymentRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	payment, err := svc.Payments.Refund(r.Context(), principalFrom(r), chi.URLParam(r, "id"), req.AmountMinor, req.Reason)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toPaymentDTO(payment))
}

func (svc *Services) handleGetPayment(w http.ResponseWriter, r *http.Request) {
	payment, err := svc.Payments.GetPayment(r.Context(), principalFrom(r), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toPaymentDTO(payment))
}

// handleWebhook is the one unauthenticated mutation endpoint: the
// provider's own signature, checked inside Adapter.VerifyWebhook, is the
// gate. It always answers 200 once the signature and idempotency checks
// pass, even for an already-processed event, so the provider stops
// retrying.
func (svc *Services) handleWebhook(w http.ResponseWriter, r *http.Request) {
	provider := chi.URLParam(r, "provider")
	method := domain.PaymentMethod(provider)

	body, err := io.ReadAll(r.Body)
	if err != nil {
		writeError(w, r, apperr.Wrap(apperr.ValidationFailed, "failed to read webhook body", err))
		return
	}
	headers := make(map[string]string, len(r.Header))
	for k := range r.Header {
		headers[k] = r.Header.Get(k)
	}

	if err := svc.Payments.HandleWebhook(r.Context(), method, body, headers); err != nil {
		// A signature mismatch is dropped with a log line and a bare 400;
		// echoing the taxonomy code back would tell a forger what failed.
		if apperr.Is(err, apperr.InvalidWebhookSignature) {
			logger.GetLogger(r.Context()).Warn("[TRANSPORT] action=webhook_signature_rejected",
				zap.String("provider", provider))
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusOK)
}
