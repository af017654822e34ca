package service

import (
	"context"
	"fmt"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/byteracerx/upkar-pharma-orders-sub001/services/storefront/internal/repository"
)

// maxLineQuantity защита от опечаток в количестве
const maxLineQuantity = 10000

// CartLine строка корзины с актуальной ценой
type CartLine struct {
	ProductID string
	SKU       string
	Name      string
	Unit      string
	Quantity  int
	UnitPrice decimal.Decimal
	LineTotal decimal.Decimal
	// Available товар активен и остатка хватает на Quantity
	Available bool
}

// Cart корзина врача
type Cart struct {
	DoctorID string
	Lines    []CartLine
	Subtotal decimal.Decimal
}

// CartService корзина поверх Redis hash
type CartService struct {
	logger   *zap.Logger
	carts    repository.CartRepository
	products repository.ProductRepository
}

// NewCartService создаёт CartService
func NewCartService(logger *zap.Logger, carts repository.CartRepository, products repository.ProductRepository) *CartService {
	return &CartService{
		logger:   logger,
		carts:    carts,
		products: products,
	}
}

// GetCart строки корзины с текущими ценами; исчезнувшие товары пропускаются
func (s *CartService) GetCart(ctx context.Context, doctorID string) (*Cart, error) {
	items, err := s.carts.Get(ctx, doctorID)
	if err != nil {
		return nil, fmt.Errorf("get cart: %w", err)
	}

	cart := &Cart{DoctorID: doctorID, Lines: []CartLine{}, Subtotal: decimal.Zero}
	if len(items) == 0 {
		return cart, nil
	}

	ids := make([]string, 0, len(items))
	for _, it := range items {
		ids = append(ids, it.ProductID)
	}
	products, err := s.products.GetByIDs(ctx, ids)
	if err != nil {
		return nil, fmt.Errorf("get cart products: %w", err)
	}

	for _, it := range items {
		p, ok := products[it.ProductID]
		if !ok {
			s.logger.Warn("cart references unknown product",
				zap.String("doctor_id", doctorID),
				zap.String("product_id", it.ProductID),
			)
			continue
		}
		line := CartLine{
			ProductID: p.ID,
			SKU:       p.SKU,
			Name:      p.Name,
			Unit:      p.Unit,
			Quantity:  it.Quantity,
			UnitPrice: p.Price,
			LineTotal: p.Price.Mul(decimal.NewFromInt(int64(it.Quantity))),
			Available: p.Active && p.Stock >= it.Quantity,
		}
		cart.Lines = append(cart.Lines, line)
		cart.Subtotal = cart.Subtotal.Add(line.LineTotal)
	}
	return cart, nil
}

// SetItem задаёт количество; 0 удаляет строку
func (s *CartService) SetItem(ctx context.Context, doctorID, productID string, quantity int) (*Cart, error) {
	if quantity < 0 {
		return nil, invalid("quantity", "must not be negative")
	}
	if quantity > maxLineQuantity {
		return nil, invalid("quantity", fmt.Sprintf("must not exceed %d", maxLineQuantity))
	}

	if quantity > 0 {
		p, err := s.products.GetByID(ctx, productID)
		if err != nil {
			return nil, err
		}
		if !p.Active {
			return nil, repository.ErrNotFound
		}
	}

	if err := s.carts.SetItem(ctx, doctorID, productID, quantity); err != nil {
		return nil, fmt.Errorf("set cart item: %w", err)
	}
	return s.GetCart(ctx, doctorID)
}

// RemoveItem удаляет строку
func (s *CartService) RemoveItem(ctx context.Context, doctorID, productID string) (*Cart, error) {
	if err := s.carts.RemoveItem(ctx, doctorID, productID); err != nil {
		return nil, fmt.Errorf("remove cart item: %w", err)
	}
	return s.GetCart(ctx, doctorID)
}

// Clear очищает корзину
func (s *CartService) Clear(ctx context.Context, doctorID string) error {
	if err := s.carts.Clear(ctx, doctorID); err != nil {
		return fmt.Errorf("clear cart: %w", err)
	}
	return nil
}
