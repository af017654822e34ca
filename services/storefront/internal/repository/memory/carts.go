package memory

import (
	"context"
	"sort"
	"time"

	"github.com/google/uuid"

	"github.com/byteracerx/upkar-pharma-orders-sub001/services/storefront/internal/repository"
)

// Carts реализует CartRepository
type Carts struct{ store *Store }

var _ repository.CartRepository = (*Carts)(nil)

func (r *Carts) Get(ctx context.Context, doctorID string) ([]repository.CartItem, error) {
	r.store.rlock(ctx)
	defer r.store.runlock(ctx)

	out := make([]repository.CartItem, 0, len(r.store.carts[doctorID]))
	for productID, qty := range r.store.carts[doctorID] {
		out = append(out, repository.CartItem{ProductID: productID, Quantity: qty})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ProductID < out[j].ProductID })
	return out, nil
}

func (r *Carts) SetItem(ctx context.Context, doctorID, productID string, quantity int) error {
	if quantity <= 0 {
		return r.RemoveItem(ctx, doctorID, productID)
	}

	r.store.wlock(ctx)
	defer r.store.wunlock(ctx)

	cart, ok := r.store.carts[doctorID]
	if !ok {
		cart = make(map[string]int)
		r.store.carts[doctorID] = cart
	}
	cart[productID] = quantity
	return nil
}

func (r *Carts) RemoveItem(ctx context.Context, doctorID, productID string) error {
	r.store.wlock(ctx)
	defer r.store.wunlock(ctx)

	delete(r.store.carts[doctorID], productID)
	return nil
}

func (r *Carts) RemoveItems(ctx context.Context, doctorID string, productIDs []string) error {
	r.store.wlock(ctx)
	defer r.store.wunlock(ctx)

	for _, id := range productIDs {
		delete(r.store.carts[doctorID], id)
	}
	return nil
}

func (r *Carts) Clear(ctx context.Context, doctorID string) error {
	r.store.wlock(ctx)
	defer r.store.wunlock(ctx)

	delete(r.store.carts, doctorID)
	return nil
}

// Sessions реализует SessionRepository
type Sessions struct{ store *Store }

var _ repository.SessionRepository = (*Sessions)(nil)

func (r *Sessions) CreateSession(ctx context.Context, accountID string, ttl time.Duration) (string, error) {
	r.store.wlock(ctx)
	defer r.store.wunlock(ctx)

	id := uuid.NewString()
	r.store.sessions[id] = session{accountID: accountID, expiresAt: r.store.now().Add(ttl)}
	return id, nil
}

func (r *Sessions) GetAccountID(ctx context.Context, sessionID string) (string, error) {
	r.store.rlock(ctx)
	defer r.store.runlock(ctx)

	s, ok := r.store.sessions[sessionID]
	if !ok || !r.store.now().Before(s.expiresAt) {
		return "", repository.ErrSessionNotFound
	}
	return s.accountID, nil
}

func (r *Sessions) DeleteSession(ctx context.Context, sessionID string) error {
	r.store.wlock(ctx)
	defer r.store.wunlock(ctx)

	delete(r.store.sessions, sessionID)
	return nil
}

func (r *Sessions) DeleteAccountSessions(ctx context.Context, accountID string) (int, error) {
	r.store.wlock(ctx)
	defer r.store.wunlock(ctx)

	deleted := 0
	for id, s := range r.store.sessions {
		if s.accountID == accountID {
			delete(r.store.sessions, id)
			deleted++
		}
	}
	return deleted, nil
}

func (r *Sessions) RefreshSession(ctx context.Context, sessionID string, ttl time.Duration) error {
	r.store.wlock(ctx)
	defer r.store.wunlock(ctx)

	s, ok := r.store.sessions[sessionID]
	if !ok || !r.store.now().Before(s.expiresAt) {
		return repository.ErrSessionNotFound
	}
	s.expiresAt = r.store.now().Add(ttl)
	r.store.sessions[sessionID] = s
	return nil
}
