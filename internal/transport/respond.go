package transport

import (
	"bytes"
	"encoding/json"
	"errors"
	"net/http"

	"foodcourt/internal/apperr"
	"foodcourt/internal/logger"

	"go.uber.org/zap"
)

// errorBody is the wire shape every error response carries:
// {code, message, details?}.
type errorBody struct {
	Code    string         `json:"code"`
	Message string         `json:"message"`
	Details map[string]any `json:"details,omitempty"`
}

func statusForCode(code apperr.Code) int {
	switch code {
	case apperr.Unauthenticated:
		return http.StatusUnauthorized
	case apperr.Forbidden:
		return http.StatusForbidden
	case apperr.NotFound:
		return http.StatusNotFound
	case apperr.Conflict, apperr.AlreadyExists, apperr.PaymentAlreadyExists:
		return http.StatusConflict
	case apperr.ValidationFailed, apperr.IllegalTransition:
		return http.StatusBadRequest
	case apperr.OverlappingShift:
		return http.StatusUnprocessableEntity
	case apperr.RefundFailed, apperr.ProviderUnavailable:
		return http.StatusBadGateway
	case apperr.InvalidWebhookSignature:
		return http.StatusBadRequest
	case apperr.RateLimited:
		return http.StatusTooManyRequests
	default:
		return http.StatusInternalServerError
	}
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

// writeError never leaks a stack trace: unanticipated errors log and come
// back as a bare internal-error response with no details.
func writeError(w http.ResponseWriter, r *http.Request, err error) {
	code := apperr.CodeOf(err)
	message := "internal error"
	var details map[string]any
	var ae *apperr.Error
	if errors.As(err, &ae) {
		message = ae.Message
		details = ae.Details
	}
	if code == apperr.Internal {
		logger.GetLogger(r.Context()).Error("[TRANSPORT] action=internal_error", zap.Error(err))
		message = "internal error"
		details = nil
	}
	writeJSON(w, statusForCode(code), errorBody{Code: string(code), Message: message, Details: details})
}

func decodeJSON(r *http.Request, out any) error {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(out); err != nil {
		return apperr.Wrap(apperr.ValidationFailed, "invalid request body", err)
	}
	return nil
}

func decodeJSONBytes(body []byte, out any) error {
	dec := json.NewDecoder(bytes.NewReader(body))
	dec.DisallowUnknownFields()
	if err := dec.Decode(out); err != nil {
		return apperr.Wrap(apperr.ValidationFailed, "invalid request body", err)
	}
	return nil
}
