package realtime

import (
	"sync"
	"sync/atomic"

	"go.uber.org/zap"
)

// DefaultBufferSize размер буфера подписчика
const DefaultBufferSize = 32

// Subscription подписка на поток изменений
type Subscription struct {
	C <-chan Change

	ch     chan Change
	filter Filter
	hub    *Hub
	once   sync.Once
}

// Close отписывает и закрывает канал
func (s *Subscription) Close() {
	s.once.Do(func() {
		s.hub.remove(s)
	})
}

// Hub рассылает изменения подписчикам внутри процесса.
// Доставка неблокирующая: медленный подписчик теряет изменения.
type Hub struct {
	mu         sync.RWMutex
	subs       map[*Subscription]struct{}
	bufferSize int
	dropped    atomic.Int64
	logger     *zap.Logger
}

// NewHub создаёт hub; bufferSize <= 0 заменяется на DefaultBufferSize
func NewHub(bufferSize int, logger *zap.Logger) *Hub {
	if bufferSize <= 0 {
		bufferSize = DefaultBufferSize
	}
	return &Hub{
		subs:       make(map[*Subscription]struct{}),
		bufferSize: bufferSize,
		logger:     logger,
	}
}

// Subscribe регистрирует подписчика; nil filter пропускает всё
func (h *Hub) Subscribe(filter Filter) *Subscription {
	ch := make(chan Change, h.bufferSize)
	s := &Subscription{C: ch, ch: ch, filter: filter, hub: h}

	h.mu.Lock()
	h.subs[s] = struct{}{}
	h.mu.Unlock()
	return s
}

// Broadcast доставляет изменение подходящим подписчикам
func (h *Hub) Broadcast(c Change) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	for s := range h.subs {
		if s.filter != nil && !s.filter(c) {
			continue
		}
		select {
		case s.ch <- c:
		default:
			h.dropped.Add(1)
			h.logger.Debug("realtime subscriber buffer full, change dropped",
				zap.String("table", string(c.Table)),
				zap.String("id", c.ID),
			)
		}
	}
}

// Subscribers количество активных подписчиков
func (h *Hub) Subscribers() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.subs)
}

// Dropped сколько изменений потеряно из-за переполненных буферов
func (h *Hub) Dropped() int64 {
	return h.dropped.Load()
}

// CloseAll отписывает всех (shutdown), SSE обработчики завершаются по закрытому каналу
func (h *Hub) CloseAll() {
	h.mu.Lock()
	defer h.mu.Unlock()
	for s := range h.subs {
		delete(h.subs, s)
		close(s.ch)
	}
}

func (h *Hub) remove(s *Subscription) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.subs[s]; ok {
		delete(h.subs, s)
		close(s.ch)
	}
}
