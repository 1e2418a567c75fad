package rpc

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"
	"sync"
	"time"

	"nhooyr.io/websocket"

	"donex/core/events"
	"donex/observability/logging"
)

const (
	wsWriteTimeout = 10 * time.Second
	wsBufferSize   = 64
)

type subscriber struct {
	ch     chan []byte
	filter map[string]struct{}
}

func (s *subscriber) wants(eventType string) bool {
	if len(s.filter) == 0 {
		return true
	}
	_, ok := s.filter[eventType]
	return ok
}

// Hub fans committed events out to websocket subscribers. Slow subscribers
// lose events rather than blocking the host.
type Hub struct {
	mu      sync.RWMutex
	subs    map[*subscriber]struct{}
	origins []string
	logger  *slog.Logger
}

// NewHub creates an empty hub. origins restricts websocket upgrades; empty
// allows any origin.
func NewHub(origins []string, logger *slog.Logger) *Hub {
	if len(origins) == 0 {
		origins = []string{"*"}
	}
	return &Hub{
		subs:    make(map[*subscriber]struct{}),
		origins: origins,
		logger:  logging.OrDefault(logger).With(slog.String("component", "ws")),
	}
}

// Emit implements events.Emitter.
func (h *Hub) Emit(evt events.Event) {
	if h == nil || evt == nil {
		return
	}
	generic := events.Generic(evt)
	payload, err := json.Marshal(generic)
	if err != nil {
		h.logger.Warn("encode event", slog.String("type", generic.Type), slog.String("error", err.Error()))
		return
	}
	h.mu.RLock()
	defer h.mu.RUnlock()
	for sub := range h.subs {
		if !sub.wants(generic.Type) {
			continue
		}
		select {
		case sub.ch <- payload:
		default:
			h.logger.Debug("dropping event for slow subscriber", slog.String("type", generic.Type))
		}
	}
}

// Subscribers reports the number of connected websocket clients.
func (h *Hub) Subscribers() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.subs)
}

func (h *Hub) subscribe(filter map[string]struct{}) *subscriber {
	sub := &subscriber{ch: make(chan []byte, wsBufferSize), filter: filter}
	h.mu.Lock()
	h.subs[sub] = struct{}{}
	h.mu.Unlock()
	return sub
}

func (h *Hub) unsubscribe(sub *subscriber) {
	h.mu.Lock()
	delete(h.subs, sub)
	h.mu.Unlock()
}

// ServeHTTP upgrades the request and streams events until the client leaves.
// The optional "type" query parameter is a comma-separated event type filter.
func (h *Hub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{OriginPatterns: h.origins})
	if err != nil {
		return
	}
	defer conn.Close(websocket.StatusNormalClosure, "stream closed")

	sub := h.subscribe(parseTypeFilter(r.URL.Query().Get("type")))
	defer h.unsubscribe(sub)

	ctx := conn.CloseRead(r.Context())
	if err := stream(ctx, conn, sub.ch); err != nil {
		if status := websocket.CloseStatus(err); status == -1 && ctx.Err() == nil {
			_ = conn.Close(websocket.StatusInternalError, "stream error")
		}
	}
}

func stream(ctx context.Context, conn *websocket.Conn, updates <-chan []byte) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case payload := <-updates:
			writeCtx, cancel := context.WithTimeout(ctx, wsWriteTimeout)
			err := conn.Write(writeCtx, websocket.MessageText, payload)
			cancel()
			if err != nil {
				return err
			}
		}
	}
}

func parseTypeFilter(raw string) map[string]struct{} {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil
	}
	filter := make(map[string]struct{})
	for _, part := range strings.Split(raw, ",") {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			filter[trimmed] = struct{}{}
		}
	}
	return filter
}

var _ events.Emitter = (*Hub)(nil)

