package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/byteracerx/upkar-pharma-orders-sub001/services/storefront/internal/realtime"
	"github.com/byteracerx/upkar-pharma-orders-sub001/services/storefront/internal/repository"
)

// CatalogService каталог товаров
type CatalogService struct {
	logger   *zap.Logger
	products repository.ProductRepository
	changes  ChangePublisher
}

// NewCatalogService создаёт CatalogService; products обычно обёрнут кэшем
func NewCatalogService(logger *zap.Logger, products repository.ProductRepository, changes ChangePublisher) *CatalogService {
	return &CatalogService{
		logger:   logger,
		products: products,
		changes:  changes,
	}
}

// primaryReader реализует кэширующая обёртка каталога
type primaryReader interface {
	Primary() repository.ProductRepository
}

// fresh репозиторий мимо кэша
func (s *CatalogService) fresh() repository.ProductRepository {
	if pr, ok := s.products.(primaryReader); ok {
		return pr.Primary()
	}
	return s.products
}

// ListProductsOutput страница каталога
type ListProductsOutput struct {
	Items  []repository.Product
	Total  int
	Limit  int
	Offset int
}

// ListProducts неактивные товары видны только администратору
func (s *CatalogService) ListProducts(ctx context.Context, actor Actor, q repository.ProductQuery) (*ListProductsOutput, error) {
	if !actor.IsAdmin() {
		q.IncludeInactive = false
	}
	q = q.Normalize()
	q.Search = strings.TrimSpace(q.Search)
	q.Category = strings.TrimSpace(q.Category)

	items, total, err := s.products.List(ctx, q)
	if err != nil {
		return nil, fmt.Errorf("list products: %w", err)
	}
	return &ListProductsOutput{Items: items, Total: total, Limit: q.Limit, Offset: q.Offset}, nil
}

// GetProduct для врача неактивный товар не существует
func (s *CatalogService) GetProduct(ctx context.Context, actor Actor, id string) (repository.Product, error) {
	p, err := s.products.GetByID(ctx, id)
	if err != nil {
		return repository.Product{}, err
	}
	if !p.Active && !actor.IsAdmin() {
		return repository.Product{}, repository.ErrNotFound
	}
	return p, nil
}

// CreateProductInput новый товар
type CreateProductInput struct {
	SKU          string
	Name         string
	Description  string
	Category     string
	Manufacturer string
	Unit         string
	Price        decimal.Decimal
	Stock        int
	Active       bool
}

func (in CreateProductInput) validate() error {
	if strings.TrimSpace(in.SKU) == "" {
		return invalid("sku", "is required")
	}
	if strings.TrimSpace(in.Name) == "" {
		return invalid("name", "is required")
	}
	if !in.Price.IsPositive() {
		return invalid("price", "must be greater than zero")
	}
	if in.Stock < 0 {
		return invalid("stock", "must not be negative")
	}
	return nil
}

// CreateProduct добавляет товар (admin)
func (s *CatalogService) CreateProduct(ctx context.Context, actor Actor, in CreateProductInput) (repository.Product, error) {
	if !actor.IsAdmin() {
		return repository.Product{}, ErrForbidden
	}
	if err := in.validate(); err != nil {
		return repository.Product{}, err
	}

	p := repository.Product{
		ID:           uuid.NewString(),
		SKU:          strings.TrimSpace(in.SKU),
		Name:         strings.TrimSpace(in.Name),
		Description:  in.Description,
		Category:     strings.TrimSpace(in.Category),
		Manufacturer: in.Manufacturer,
		Unit:         in.Unit,
		Price:        in.Price.Round(2),
		Stock:        in.Stock,
		Active:       in.Active,
	}
	if err := s.products.Create(ctx, p); err != nil {
		if errors.Is(err, repository.ErrAlreadyExists) {
			return repository.Product{}, fmt.Errorf("product with sku %s: %w", p.SKU, err)
		}
		s.logger.Error("failed to create product", zap.Error(err), zap.String("sku", p.SKU))
		return repository.Product{}, fmt.Errorf("create product: %w", err)
	}

	created, err := s.products.GetByID(ctx, p.ID)
	if err != nil {
		return repository.Product{}, fmt.Errorf("get created product: %w", err)
	}

	s.logger.Info("product created", zap.String("product_id", created.ID), zap.String("sku", created.SKU))
	publishChanges(ctx, s.changes, s.logger, realtime.Change{Table: realtime.TableProducts, Action: realtime.ActionInsert, ID: created.ID})
	return created, nil
}

// UpdateProductInput частичное обновление; nil поля не меняются
type UpdateProductInput struct {
	Name         *string
	Description  *string
	Category     *string
	Manufacturer *string
	Unit         *string
	Price        *decimal.Decimal
	Active       *bool
}

// UpdateProduct меняет описание, цену и флаг активности (admin)
func (s *CatalogService) UpdateProduct(ctx context.Context, actor Actor, id string, in UpdateProductInput) (repository.Product, error) {
	if !actor.IsAdmin() {
		return repository.Product{}, ErrForbidden
	}

	p, err := s.fresh().GetByID(ctx, id)
	if err != nil {
		return repository.Product{}, err
	}

	if in.Name != nil {
		if strings.TrimSpace(*in.Name) == "" {
			return repository.Product{}, invalid("name", "must not be empty")
		}
		p.Name = strings.TrimSpace(*in.Name)
	}
	if in.Description != nil {
		p.Description = *in.Description
	}
	if in.Category != nil {
		p.Category = strings.TrimSpace(*in.Category)
	}
	if in.Manufacturer != nil {
		p.Manufacturer = *in.Manufacturer
	}
	if in.Unit != nil {
		p.Unit = *in.Unit
	}
	if in.Price != nil {
		if !in.Price.IsPositive() {
			return repository.Product{}, invalid("price", "must be greater than zero")
		}
		p.Price = in.Price.Round(2)
	}
	if in.Active != nil {
		p.Active = *in.Active
	}

	if err := s.products.Update(ctx, p); err != nil {
		return repository.Product{}, fmt.Errorf("update product: %w", err)
	}

	updated, err := s.fresh().GetByID(ctx, id)
	if err != nil {
		return repository.Product{}, fmt.Errorf("get updated product: %w", err)
	}

	s.logger.Info("product updated", zap.String("product_id", id))
	publishChanges(ctx, s.changes, s.logger, realtime.Change{Table: realtime.TableProducts, Action: realtime.ActionUpdate, ID: id})
	return updated, nil
}

// AdjustStock приход (delta > 0) или списание (delta < 0) остатка (admin)
func (s *CatalogService) AdjustStock(ctx context.Context, actor Actor, id string, delta int) (repository.Product, error) {
	if !actor.IsAdmin() {
		return repository.Product{}, ErrForbidden
	}
	if delta == 0 {
		return repository.Product{}, invalid("delta", "must not be zero")
	}

	p, err := s.products.AdjustStock(ctx, id, delta)
	if err != nil {
		return repository.Product{}, err
	}

	s.logger.Info("stock adjusted",
		zap.String("product_id", id),
		zap.Int("delta", delta),
		zap.Int("stock", p.Stock),
	)
	publishChanges(ctx, s.changes, s.logger, realtime.Change{Table: realtime.TableProducts, Action: realtime.ActionUpdate, ID: id})
	return p, nil
}
