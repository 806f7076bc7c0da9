package http

import (
	"log/slog"
	"sync"
)

// StreamManager handles active SSE connections, keyed by workflow id.
type StreamManager struct {
	mu          sync.RWMutex
	subscribers map[string]map[chan<- string]struct{}
	logger      *slog.Logger
}

func NewStreamManager(logger *slog.Logger) *StreamManager {
	return &StreamManager{
		subscribers: make(map[string]map[chan<- string]struct{}),
		logger:      logger,
	}
}

func (sm *StreamManager) Subscribe(workflowID string) (chan string, func()) {
	sm.mu.Lock()
	defer sm.mu.Unlock()

	ch := make(chan string, 10)
	if _, ok := sm.subscribers[workflowID]; !ok {
		sm.subscribers[workflowID] = make(map[chan<- string]struct{})
	}
	sm.subscribers[workflowID][ch] = struct{}{}

	return ch, func() {
		sm.mu.Lock()
		defer sm.mu.Unlock()
		if subs, ok := sm.subscribers[workflowID]; ok {
			delete(subs, ch)
			close(ch)
			if len(subs) == 0 {
				delete(sm.subscribers, workflowID)
			}
		}
	}
}

func (sm *StreamManager) Broadcast(workflowID string, msg string) {
	sm.mu.RLock()
	defer sm.mu.RUnlock()

	subs, ok := sm.subscribers[workflowID]
	if !ok {
		return
	}
	sm.logger.Debug("StreamManager: Broadcasting", "workflow_id", workflowID, "subscribers", len(subs), "payload_size", len(msg))
	for ch := range subs {
		select {
		case ch <- msg:
		default:
			// Slow client; drop rather than block the editor.
			sm.logger.Warn("SSE: Client buffer full, dropping message", "workflow_id", workflowID)
		}
	}
}
