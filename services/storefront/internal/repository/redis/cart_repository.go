package redis

import (
	"context"
	"fmt"
	"sort"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/byteracerx/upkar-pharma-orders-sub001/services/storefront/internal/repository"
)

// DefaultCartTTL срок жизни неиспользуемой корзины
const DefaultCartTTL = 7 * 24 * time.Hour

// CartRepository корзина врача в Redis hash cart:<doctorID> (product_id → quantity)
type CartRepository struct {
	client redis.UniversalClient
	ttl    time.Duration
	logger *zap.Logger
}

// NewCartRepository создаёт корзину; ttl <= 0 заменяется на DefaultCartTTL
func NewCartRepository(client redis.UniversalClient, ttl time.Duration, logger *zap.Logger) *CartRepository {
	if ttl <= 0 {
		ttl = DefaultCartTTL
	}
	return &CartRepository{client: client, ttl: ttl, logger: logger}
}

var _ repository.CartRepository = (*CartRepository)(nil)

func cartKey(doctorID string) string {
	return "cart:" + doctorID
}

func (r *CartRepository) Get(ctx context.Context, doctorID string) ([]repository.CartItem, error) {
	fields, err := r.client.HGetAll(ctx, cartKey(doctorID)).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to get cart: %w", err)
	}

	items := make([]repository.CartItem, 0, len(fields))
	for productID, raw := range fields {
		qty, err := strconv.Atoi(raw)
		if err != nil || qty <= 0 {
			r.logger.Warn("skipping malformed cart line",
				zap.String("doctor_id", doctorID),
				zap.String("product_id", productID),
				zap.String("value", raw),
			)
			continue
		}
		items = append(items, repository.CartItem{ProductID: productID, Quantity: qty})
	}
	sort.Slice(items, func(i, j int) bool { return items[i].ProductID < items[j].ProductID })
	return items, nil
}

// SetItem продлевает TTL корзины при каждом изменении
func (r *CartRepository) SetItem(ctx context.Context, doctorID, productID string, quantity int) error {
	if quantity <= 0 {
		return r.RemoveItem(ctx, doctorID, productID)
	}

	key := cartKey(doctorID)
	pipe := r.client.TxPipeline()
	pipe.HSet(ctx, key, productID, quantity)
	pipe.Expire(ctx, key, r.ttl)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("failed to set cart item: %w", err)
	}
	return nil
}

func (r *CartRepository) RemoveItem(ctx context.Context, doctorID, productID string) error {
	if err := r.client.HDel(ctx, cartKey(doctorID), productID).Err(); err != nil {
		return fmt.Errorf("failed to remove cart item: %w", err)
	}
	return nil
}

func (r *CartRepository) RemoveItems(ctx context.Context, doctorID string, productIDs []string) error {
	if len(productIDs) == 0 {
		return nil
	}
	if err := r.client.HDel(ctx, cartKey(doctorID), productIDs...).Err(); err != nil {
		return fmt.Errorf("failed to remove cart items: %w", err)
	}
	return nil
}

func (r *CartRepository) Clear(ctx context.Context, doctorID string) error {
	if err := r.client.Del(ctx, cartKey(doctorID)).Err(); err != nil {
		return fmt.Errorf("failed to clear cart: %w", err)
	}
	return nil
}
