package httpapi

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"

	"github.com/byteracerx/upkar-pharma-orders-sub001/services/storefront/internal/repository"
	"github.com/byteracerx/upkar-pharma-orders-sub001/services/storefront/internal/service"
)

// ListProducts GET /api/v1/products?search=&category=&include_inactive=&limit=&offset=
func (h *Handler) ListProducts(w http.ResponseWriter, r *http.Request) {
	limit, err := queryInt(r, "limit", 0)
	if err != nil {
		h.badRequest(w, err.Error())
		return
	}
	offset, err := queryInt(r, "offset", 0)
	if err != nil {
		h.badRequest(w, err.Error())
		return
	}

	q := r.URL.Query()
	out, err := h.catalog.ListProducts(r.Context(), actor(r), repository.ProductQuery{
		Search:          q.Get("search"),
		Category:        q.Get("category"),
		IncludeInactive: q.Get("include_inactive") == "true",
		Limit:           limit,
		Offset:          offset,
	})
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	resp := productListResponse{
		Items:  make([]productResponse, 0, len(out.Items)),
		Total:  out.Total,
		Limit:  out.Limit,
		Offset: out.Offset,
	}
	for _, p := range out.Items {
		resp.Items = append(resp.Items, toProduct(p))
	}
	writeJSON(w, http.StatusOK, resp)
}

// GetProduct GET /api/v1/products/{id}
func (h *Handler) GetProduct(w http.ResponseWriter, r *http.Request) {
	p, err := h.catalog.GetProduct(r.Context(), actor(r), chi.URLParam(r, "id"))
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toProduct(p))
}

type createProductRequest struct {
	SKU          string          `json:"sku"`
	Name         string          `json:"name"`
	Description  string          `json:"description"`
	Category     string          `json:"category"`
	Manufacturer string          `json:"manufacturer"`
	Unit         string          `json:"unit"`
	Price        decimal.Decimal `json:"price"`
	Stock        int             `json:"stock"`
	Active       *bool           `json:"active"`
}

// CreateProduct POST /api/v1/admin/products; active по умолчанию true
func (h *Handler) CreateProduct(w http.ResponseWriter, r *http.Request) {
	var req createProductRequest
	if err := decode(r, &req); err != nil {
		h.badRequest(w, err.Error())
		return
	}

	active := true
	if req.Active != nil {
		active = *req.Active
	}
	p, err := h.catalog.CreateProduct(r.Context(), actor(r), service.CreateProductInput{
		SKU:          req.SKU,
		Name:         req.Name,
		Description:  req.Description,
		Category:     req.Category,
		Manufacturer: req.Manufacturer,
		Unit:         req.Unit,
		Price:        req.Price,
		Stock:        req.Stock,
		Active:       active,
	})
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, toProduct(p))
}

type updateProductRequest struct {
	Name         *string          `json:"name"`
	Description  *string          `json:"description"`
	Category     *string          `json:"category"`
	Manufacturer *string          `json:"manufacturer"`
	Unit         *string          `json:"unit"`
	Price        *decimal.Decimal `json:"price"`
	Active       *bool            `json:"active"`
}

// UpdateProduct PUT /api/v1/admin/products/{id}
func (h *Handler) UpdateProduct(w http.ResponseWriter, r *http.Request) {
	var req updateProductRequest
	if err := decode(r, &req); err != nil {
		h.badRequest(w, err.Error())
		return
	}

	p, err := h.catalog.UpdateProduct(r.Context(), actor(r), chi.URLParam(r, "id"), service.UpdateProductInput{
		Name:         req.Name,
		Description:  req.Description,
		Category:     req.Category,
		Manufacturer: req.Manufacturer,
		Unit:         req.Unit,
		Price:        req.Price,
		Active:       req.Active,
	})
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toProduct(p))
}

type adjustStockRequest struct {
	Delta int `json:"delta"`
}

// AdjustStock POST /api/v1/admin/products/{id}/stock
func (h *Handler) AdjustStock(w http.ResponseWriter, r *http.Request) {
	var req adjustStockRequest
	if err := decode(r, &req); err != nil {
		h.badRequest(w, err.Error())
		return
	}

	p, err := h.catalog.AdjustStock(r.Context(), actor(r), chi.URLParam(r, "id"), req.Delta)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toProduct(p))
}
