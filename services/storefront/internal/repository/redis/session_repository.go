package redis

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/byteracerx/upkar-pharma-orders-sub001/services/storefront/internal/repository"
)

const (
	hashFieldAccountID  = "user_id"
	hashFieldCreatedAt  = "created_at"
	hashFieldLastSeenAt = "last_seen_at"
)

// SessionRepository хранит сессии в Redis hash session:<id>.
// Индекс account_sessions:<account_id> (set) живёт не меньше самой свежей сессии;
// устаревшие id в нём безвредны и чистятся при отзыве.
type SessionRepository struct {
	client redis.UniversalClient
	logger *zap.Logger
}

// NewSessionRepository создаёт Redis session repository
func NewSessionRepository(client redis.UniversalClient, logger *zap.Logger) *SessionRepository {
	return &SessionRepository{
		client: client,
		logger: logger,
	}
}

var _ repository.SessionRepository = (*SessionRepository)(nil)

func sessionKey(sessionID string) string {
	return fmt.Sprintf("session:%s", sessionID)
}

func accountSessionsKey(accountID string) string {
	return fmt.Sprintf("account_sessions:%s", accountID)
}

// CreateSession HSET + EXPIRE одним pipeline
func (r *SessionRepository) CreateSession(ctx context.Context, accountID string, ttl time.Duration) (string, error) {
	sessionID := uuid.NewString()
	key := sessionKey(sessionID)
	now := time.Now().UTC().Format(time.RFC3339)

	pipe := r.client.Pipeline()
	pipe.HSet(ctx, key, hashFieldAccountID, accountID, hashFieldCreatedAt, now, hashFieldLastSeenAt, now)
	pipe.Expire(ctx, key, ttl)
	pipe.SAdd(ctx, accountSessionsKey(accountID), sessionID)
	pipe.ExpireGT(ctx, accountSessionsKey(accountID), ttl)
	pipe.ExpireNX(ctx, accountSessionsKey(accountID), ttl)
	if _, err := pipe.Exec(ctx); err != nil {
		r.logger.Error("failed to create session hash in redis",
			zap.Error(err),
			zap.String("account_id", accountID),
		)
		return "", fmt.Errorf("failed to create session: %w", err)
	}

	r.logger.Info("session created",
		zap.String("account_id", accountID),
		zap.Duration("ttl", ttl),
	)
	return sessionID, nil
}

func (r *SessionRepository) GetAccountID(ctx context.Context, sessionID string) (string, error) {
	accountID, err := r.client.HGet(ctx, sessionKey(sessionID), hashFieldAccountID).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return "", repository.ErrSessionNotFound
		}
		r.logger.Error("failed to get session hash from redis", zap.Error(err))
		return "", fmt.Errorf("failed to get session: %w", err)
	}
	if accountID == "" {
		return "", repository.ErrSessionNotFound
	}
	return accountID, nil
}

func (r *SessionRepository) DeleteSession(ctx context.Context, sessionID string) error {
	key := sessionKey(sessionID)
	accountID, err := r.client.HGet(ctx, key, hashFieldAccountID).Result()
	if err != nil && !errors.Is(err, redis.Nil) {
		return fmt.Errorf("failed to get session: %w", err)
	}

	pipe := r.client.Pipeline()
	pipe.Del(ctx, key)
	if accountID != "" {
		pipe.SRem(ctx, accountSessionsKey(accountID), sessionID)
	}
	if _, err := pipe.Exec(ctx); err != nil {
		r.logger.Error("failed to delete session hash from redis", zap.Error(err))
		return fmt.Errorf("failed to delete session: %w", err)
	}
	return nil
}

func (r *SessionRepository) DeleteAccountSessions(ctx context.Context, accountID string) (int, error) {
	indexKey := accountSessionsKey(accountID)
	ids, err := r.client.SMembers(ctx, indexKey).Result()
	if err != nil {
		return 0, fmt.Errorf("failed to list account sessions: %w", err)
	}

	keys := make([]string, 0, len(ids)+1)
	for _, id := range ids {
		keys = append(keys, sessionKey(id))
	}
	deleted := int64(0)
	if len(keys) > 0 {
		if deleted, err = r.client.Del(ctx, keys...).Result(); err != nil {
			return 0, fmt.Errorf("failed to delete account sessions: %w", err)
		}
	}
	if err := r.client.Del(ctx, indexKey).Err(); err != nil {
		return int(deleted), fmt.Errorf("failed to delete session index: %w", err)
	}

	r.logger.Info("account sessions revoked",
		zap.String("account_id", accountID),
		zap.Int64("deleted", deleted),
	)
	return int(deleted), nil
}

// RefreshSession обновляет last_seen_at и TTL; отсутствующий ключ не воссоздаётся
func (r *SessionRepository) RefreshSession(ctx context.Context, sessionID string, ttl time.Duration) error {
	key := sessionKey(sessionID)

	// HSET на несуществующем ключе создаст его, поэтому сначала проверяем
	exists, err := r.client.Exists(ctx, key).Result()
	if err != nil {
		return fmt.Errorf("failed to check session: %w", err)
	}
	if exists == 0 {
		return repository.ErrSessionNotFound
	}

	accountID, err := r.client.HGet(ctx, key, hashFieldAccountID).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return repository.ErrSessionNotFound
		}
		return fmt.Errorf("failed to get session: %w", err)
	}

	pipe := r.client.Pipeline()
	pipe.HSet(ctx, key, hashFieldLastSeenAt, time.Now().UTC().Format(time.RFC3339))
	pipe.Expire(ctx, key, ttl)
	pipe.ExpireGT(ctx, accountSessionsKey(accountID), ttl)
	if _, err := pipe.Exec(ctx); err != nil {
		r.logger.Error("failed to refresh session ttl in redis", zap.Error(err))
		return fmt.Errorf("failed to refresh session: %w", err)
	}
	return nil
}
