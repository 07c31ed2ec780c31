package transport

import (
	"io"
	"net/http"

	"foodcourt/internal/apperr"
	"foodcourt/internal/domain"
	"foodcourt/internal/logger"
	"foodcourt/internal/orders"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

type createOrderItemRequest struct {
	ProductID           string  `json:"productId"`
	VariantLabel        *string `json:"variantLabel"`
	Quantity            int     `json:"quantity"`
	SpecialInstructions *string `json:"specialInstructions"`
}

type createOrderRequest struct {
	RestaurantID        string                   `json:"restaurantId"`
	TableID             *string                  `json:"tableId"`
	CustomerPrincipalID *string                  `json:"customerPrincipalId"`
	CustomerName        string                   `json:"customerName"`
	CustomerPhone       string                   `json:"customerPhone"`
	DeliveryType        string                   `json:"deliveryType"`
	SpecialInstructions *string                  `json:"specialInstructions"`
	Items               []createOrderItemRequest `json:"items"`
}

func (svc *Services) handleCreateOrder(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(r.Body)
	if err != nil {
		writeError(w, r, apperr.Wrap(apperr.ValidationFailed, "failed to read request body", err))
		return
	}
	if err := validateCreateOrderBody(body); err != nil {
		writeError(w, r, err)
		return
	}

	var req createOrderRequest
	if err := decodeJSONBytes(body, &req); err != nil {
		writeError(w, r, err)
		return
	}

	items := make([]orders.ItemInput, len(req.Items))
	for i, it := range req.Items {
		items[i] = orders.ItemInput{
			ProductID: it.ProductID, VariantLabel: it.VariantLabel, Quantity: it.Quantity,
			SpecialInstructions: it.SpecialInstructions,
		}
	}

	var idempotencyKey *string
	if key := r.Header.Get("Idempotency-Key"); key != "" {
		idempotencyKey = &key
	}

	order, err := svc.Orders.CreateOrder(r.Context(), principalFrom(r), orders.CreateOrderInput{
		RestaurantID:        req.RestaurantID,
		TableID:             req.TableID,
		CustomerPrincipalID: req.CustomerPrincipalID,
		CustomerName:        req.CustomerName,
		CustomerPhone:       req.CustomerPhone,
		DeliveryType:        domain.DeliveryType(req.DeliveryType),
		SpecialInstructions: req.SpecialInstructions,
		Items:               items,
		IdempotencyKey:      idempotencyKey,
	})
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, toOrderDTO(order))
}

func (svc *Services) handleGetOrder(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	order, err := svc.Orders.GetOrder(r.Context(), principalFrom(r), id)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toOrderDTO(order))
}

func (svc *Services) handleListOrders(w http.ResponseWriter, r *http.Request) {
	restaurantID := r.URL.Query().Get("restaurantId")
	if restaurantID == "" {
		writeError(w, r, apperr.New(apperr.ValidationFailed, "restaurantId is required"))
		return
	}
	var status *domain.OrderStatus
	if raw := r.URL.Query().Get("status"); raw != "" {
		s := domain.OrderStatus(raw)
		status = &s
	}
	list, err := svc.Orders.ListOrders(r.Context(), principalFrom(r), restaurantID, status)
	if err != nil {
		writeError(w, r, err)
		return
	}
	dtos := make([]orderDTO, len(list))
	for i, o := range list {
		dtos[i] = toOrderDTO(o)
	}
	writeJSON(w, http.StatusOK, dtos)
}

type transitionOrderStatusRequest struct {
	To               string `json:"to"`
	EstimatedMinutes *int   `json:"estimatedMinutes"`
}

func (svc *Services) handleTransitionOrderStatus(w http.ResponseWriter, r *http.Request) {
	var req transitionOrderStatusRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	order, err := svc.Orders.TransitionStatus(r.Context(), principalFrom(r), chi.URLParam(r, "id"), domain.OrderStatus(req.To), req.EstimatedMinutes)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toOrderDTO(order))
}

type cancelOrderRequest struct {
	Reason        string `json:"reason"`
	RequestRefund bool   `json:"requestRefund"`
}

func (svc *Services) handleCancelOrder(w http.ResponseWriter, r *http.Request) {
	var req cancelOrderRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	order, err := svc.Orders.CancelOrder(r.Context(), principalFrom(r), chi.URLParam(r, "id"), req.Reason, req.RequestRefund)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toOrderDTO(order))
}

type bulkStatusUpdateRequest struct {
	OrderIDs []string `json:"orderIds"`
	To       string   `json:"to"`
}

// handleBulkStatusUpdate returns per-id status rather than failing the
// whole batch on one bad transition, per the partial-success contract for
// bulk operations.
func (svc *Services) handleBulkStatusUpdate(w http.ResponseWriter, r *http.Request) {
	var req bulkStatusUpdateRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	results, err := svc.Orders.BulkStatusUpdate(r.Context(), principalFrom(r), req.OrderIDs, domain.OrderStatus(req.To))
	if err != nil {
		// Partial failure is normal here; the aggregate goes to the log and
		// the caller reads the per-id outcomes below.
		logger.GetLogger(r.Context()).Warn("[TRANSPORT] action=bulk_status_partial_failure", zap.Error(err))
	}
	out := make(map[string]string, len(results))
	for id, itemErr := range results {
		if itemErr == nil {
			out[id] = "ok"
		} else {
			out[id] = itemErr.Error()
		}
	}
	writeJSON(w, http.StatusOK, out)
}
