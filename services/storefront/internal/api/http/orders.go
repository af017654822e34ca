package httpapi

import (
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/byteracerx/upkar-pharma-orders-sub001/platform/observability"
	"github.com/byteracerx/upkar-pharma-orders-sub001/services/storefront/internal/repository"
	"github.com/byteracerx/upkar-pharma-orders-sub001/services/storefront/internal/service"
)

type orderLineRequest struct {
	ProductID string `json:"product_id"`
	Quantity  int    `json:"quantity"`
}

// placeOrderRequest пустой items: оформить корзину
type placeOrderRequest struct {
	Items []orderLineRequest `json:"items"`
	Note  string             `json:"note"`
}

type cancelOrderRequest struct {
	Reason string `json:"reason"`
}

type updateOrderStatusRequest struct {
	Status string `json:"status"`
	Reason string `json:"reason"`
}

type orderListResponse struct {
	Items  []orderResponse `json:"items"`
	Limit  int             `json:"limit"`
	Offset int             `json:"offset"`
}

// PlaceOrder POST /api/v1/orders
func (h *Handler) PlaceOrder(w http.ResponseWriter, r *http.Request) {
	var req placeOrderRequest
	if err := decode(r, &req); err != nil {
		h.badRequest(w, err.Error())
		return
	}

	items := make([]service.OrderLineInput, 0, len(req.Items))
	for _, it := range req.Items {
		items = append(items, service.OrderLineInput{ProductID: it.ProductID, Quantity: it.Quantity})
	}

	doctorID := actor(r).ID
	o, err := h.orders.PlaceOrder(r.Context(), service.PlaceOrderInput{
		DoctorID: doctorID,
		Items:    items,
		Note:     req.Note,
	})
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	observability.L(r.Context(), h.logger).Info("order placed",
		zap.String("order_id", o.ID),
		zap.String("doctor_id", doctorID),
		zap.String("total", money(o.Total)),
	)
	writeJSON(w, http.StatusCreated, toOrder(o))
}

// ListOrders GET /api/v1/orders и /api/v1/admin/orders?status=&doctor_id=&from=&to=&limit=&offset=
func (h *Handler) ListOrders(w http.ResponseWriter, r *http.Request) {
	q, err := orderQuery(r)
	if err != nil {
		h.badRequest(w, err.Error())
		return
	}

	orders, err := h.orders.ListOrders(r.Context(), actor(r), q)
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	resp := orderListResponse{Items: make([]orderResponse, 0, len(orders)), Limit: q.Limit, Offset: q.Offset}
	for _, o := range orders {
		resp.Items = append(resp.Items, toOrder(o))
	}
	writeJSON(w, http.StatusOK, resp)
}

// orderQuery status можно передать через запятую
func orderQuery(r *http.Request) (repository.OrderQuery, error) {
	var q repository.OrderQuery
	var err error
	if q.Limit, err = queryInt(r, "limit", 20); err != nil {
		return q, err
	}
	if q.Offset, err = queryInt(r, "offset", 0); err != nil {
		return q, err
	}
	if q.From, err = queryTime(r, "from"); err != nil {
		return q, err
	}
	if q.To, err = queryTime(r, "to"); err != nil {
		return q, err
	}
	q.DoctorID = r.URL.Query().Get("doctor_id")
	if raw := r.URL.Query().Get("status"); raw != "" {
		for _, s := range strings.Split(raw, ",") {
			if s = strings.TrimSpace(s); s != "" {
				q.Statuses = append(q.Statuses, repository.OrderStatus(s))
			}
		}
	}
	return q, nil
}

// GetOrder GET /api/v1/orders/{id}
func (h *Handler) GetOrder(w http.ResponseWriter, r *http.Request) {
	o, err := h.orders.GetOrder(r.Context(), actor(r), chi.URLParam(r, "id"))
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toOrder(o))
}

// CancelOrder POST /api/v1/orders/{id}/cancel; тело необязательно
func (h *Handler) CancelOrder(w http.ResponseWriter, r *http.Request) {
	var req cancelOrderRequest
	if r.ContentLength != 0 {
		if err := decode(r, &req); err != nil {
			h.badRequest(w, err.Error())
			return
		}
	}

	o, err := h.orders.UpdateStatus(r.Context(), actor(r), service.UpdateStatusInput{
		OrderID: chi.URLParam(r, "id"),
		Status:  repository.OrderCancelled,
		Reason:  req.Reason,
	})
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toOrder(o))
}

// UpdateOrderStatus PATCH /api/v1/admin/orders/{id}/status
func (h *Handler) UpdateOrderStatus(w http.ResponseWriter, r *http.Request) {
	var req updateOrderStatusRequest
	if err := decode(r, &req); err != nil {
		h.badRequest(w, err.Error())
		return
	}

	o, err := h.orders.UpdateStatus(r.Context(), actor(r), service.UpdateStatusInput{
		OrderID: chi.URLParam(r, "id"),
		Status:  repository.OrderStatus(req.Status),
		Reason:  req.Reason,
	})
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	observability.L(r.Context(), h.logger).Info("order status updated",
		zap.String("order_id", o.ID),
		zap.String("status", string(o.Status)),
	)
	writeJSON(w, http.StatusOK, toOrder(o))
}
