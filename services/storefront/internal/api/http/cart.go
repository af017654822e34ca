package httpapi

import (
	"net/http"

	"github.com/go-chi/chi/v5"
)

type setCartItemRequest struct {
	Quantity int `json:"quantity"`
}

// GetCart GET /api/v1/cart
func (h *Handler) GetCart(w http.ResponseWriter, r *http.Request) {
	cart, err := h.carts.GetCart(r.Context(), actor(r).ID)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toCart(cart))
}

// SetCartItem PUT /api/v1/cart/items/{productID}; quantity 0 удаляет строку
func (h *Handler) SetCartItem(w http.ResponseWriter, r *http.Request) {
	var req setCartItemRequest
	if err := decode(r, &req); err != nil {
		h.badRequest(w, err.Error())
		return
	}

	cart, err := h.carts.SetItem(r.Context(), actor(r).ID, chi.URLParam(r, "productID"), req.Quantity)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toCart(cart))
}

// RemoveCartItem DELETE /api/v1/cart/items/{productID}
func (h *Handler) RemoveCartItem(w http.ResponseWriter, r *http.Request) {
	cart, err := h.carts.RemoveItem(r.Context(), actor(r).ID, chi.URLParam(r, "productID"))
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toCart(cart))
}

// ClearCart DELETE /api/v1/cart
func (h *Handler) ClearCart(w http.ResponseWriter, r *http.Request) {
	if err := h.carts.Clear(r.Context(), actor(r).ID); err != nil {
		h.writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
