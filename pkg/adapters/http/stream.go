package http

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"sync"

	"github.com/aretw0/gmp/pkg/domain"
)

// StreamManager fans completion events out to SSE connections.
type StreamManager struct {
	mu          sync.RWMutex
	subscribers map[chan []byte]int64 // channel -> action filter, 0 for all
}

func NewStreamManager() *StreamManager {
	return &StreamManager{
		subscribers: make(map[chan []byte]int64),
	}
}

// Subscribe registers a subscriber for the events of actionID, or of every
// action when actionID is 0. The returned func unsubscribes and closes the
// channel.
func (sm *StreamManager) Subscribe(actionID int64) (<-chan []byte, func()) {
	sm.mu.Lock()
	defer sm.mu.Unlock()

	ch := make(chan []byte, 16)
	sm.subscribers[ch] = actionID

	return ch, func() {
		sm.mu.Lock()
		defer sm.mu.Unlock()
		if _, ok := sm.subscribers[ch]; ok {
			delete(sm.subscribers, ch)
			close(ch)
		}
	}
}

// Len returns the number of subscribers.
func (sm *StreamManager) Len() int {
	sm.mu.RLock()
	defer sm.mu.RUnlock()
	return len(sm.subscribers)
}

func (sm *StreamManager) Broadcast(actionID int64, msg []byte) {
	sm.mu.RLock()
	defer sm.mu.RUnlock()

	for ch, filter := range sm.subscribers {
		if filter != 0 && filter != actionID {
			continue
		}
		select {
		case ch <- msg:
		default:
			// Drop message if channel is full (slow client)
			slog.Warn("SSE: Client buffer full, dropping message", "action_id", actionID)
		}
	}
}

// Hooks returns dispatch hooks broadcasting every completion event.
func (sm *StreamManager) Hooks() domain.DispatchHooks {
	return domain.DispatchHooks{
		OnCompletion: func(_ context.Context, e *domain.CompletionEvent) {
			msg, err := json.Marshal(e)
			if err != nil {
				slog.Error("SSE: Event encode failed", "error", err)
				return
			}
			sm.Broadcast(e.ActionID, msg)
		},
	}
}

// SubscribeEvents handles the GET /events request (SSE).
func (s *Server) SubscribeEvents(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "Streaming not supported", http.StatusInternalServerError)
		s.logger.Error("SubscribeEvents: Streaming not supported")
		return
	}

	var actionID int64
	if v := r.URL.Query().Get("action_id"); v != "" {
		id, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			http.Error(w, "Invalid action id", http.StatusBadRequest)
			return
		}
		actionID = id
	}

	ch, cancel := s.Streams.Subscribe(actionID)
	defer cancel()

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")

	s.logger.Info("SSE: Subscribing to completions", "action_id", actionID)
	fmt.Fprintf(w, "event: ping\ndata: connected\n\n")
	flusher.Flush()

	for {
		select {
		case <-r.Context().Done():
			s.logger.Info("SSE Client Disconnected")
			return
		case msg, ok := <-ch:
			if !ok {
				return
			}
			fmt.Fprintf(w, "event: completion\ndata: %s\n\n", msg)
			flusher.Flush()
		}
	}
}
