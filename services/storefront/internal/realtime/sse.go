package realtime

import (
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"go.uber.org/zap"
)

// DefaultHeartbeat интервал комментария-пинга, держит соединение через прокси
const DefaultHeartbeat = 25 * time.Second

// FilterFunc определяет фильтр для запроса; ok=false → 401
type FilterFunc func(r *http.Request) (Filter, bool)

// SSEHandler отдаёт изменения как Server-Sent Events (event: change)
func SSEHandler(hub *Hub, resolve FilterFunc, heartbeat time.Duration, logger *zap.Logger) http.HandlerFunc {
	if heartbeat <= 0 {
		heartbeat = DefaultHeartbeat
	}

	return func(w http.ResponseWriter, r *http.Request) {
		filter, ok := resolve(r)
		if !ok {
			http.Error(w, `{"error":"unauthorized"}`, http.StatusUnauthorized)
			return
		}

		flusher, ok := w.(http.Flusher)
		if !ok {
			http.Error(w, `{"error":"streaming unsupported"}`, http.StatusInternalServerError)
			return
		}

		// SSE соединение живёт дольше WriteTimeout сервера
		rc := http.NewResponseController(w)
		_ = rc.SetWriteDeadline(time.Time{})

		w.Header().Set("Content-Type", "text/event-stream")
		w.Header().Set("Cache-Control", "no-cache")
		w.Header().Set("Connection", "keep-alive")
		w.Header().Set("X-Accel-Buffering", "no")
		w.WriteHeader(http.StatusOK)
		fmt.Fprint(w, ": connected\n\n")
		flusher.Flush()

		sub := hub.Subscribe(filter)
		defer sub.Close()

		ticker := time.NewTicker(heartbeat)
		defer ticker.Stop()

		for {
			select {
			case <-r.Context().Done():
				return
			case <-ticker.C:
				if _, err := fmt.Fprint(w, ": ping\n\n"); err != nil {
					return
				}
				flusher.Flush()
			case c, ok := <-sub.C:
				if !ok {
					return
				}
				data, err := json.Marshal(c)
				if err != nil {
					logger.Warn("failed to marshal change", zap.Error(err))
					continue
				}
				if _, err := fmt.Fprintf(w, "event: change\ndata: %s\n\n", data); err != nil {
					return
				}
				flusher.Flush()
			}
		}
	}
}
