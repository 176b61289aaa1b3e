package services

import (
	"sync"

	"github.com/huangang/adsentry/internal/models"
)

// ReviewEvent represents a real-time review status update event
type ReviewEvent struct {
	RunID        uint     `json:"run_id"`
	RunKey       string   `json:"run_key"`
	VideoAssetID uint     `json:"video_asset_id"`
	Filename     string   `json:"filename"`
	Status       string   `json:"status"` // pending, running, completed, failed, aborted
	Score        *float64 `json:"score,omitempty"`
	Verdict      string   `json:"verdict,omitempty"`
	Error        string   `json:"error,omitempty"`
}

// SSEHub manages SSE client connections and event broadcasting
type SSEHub struct {
	clients map[string]chan ReviewEvent
	mu      sync.RWMutex
}

// NewSSEHub creates a new SSE hub instance
func NewSSEHub() *SSEHub {
	return &SSEHub{
		clients: make(map[string]chan ReviewEvent),
	}
}

// Subscribe registers a new client and returns a channel for receiving events
func (h *SSEHub) Subscribe(clientID string) <-chan ReviewEvent {
	h.mu.Lock()
	defer h.mu.Unlock()

	// Create buffered channel to prevent blocking
	ch := make(chan ReviewEvent, 100)
	h.clients[clientID] = ch
	return ch
}

// Unsubscribe removes a client from the hub
func (h *SSEHub) Unsubscribe(clientID string) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if ch, ok := h.clients[clientID]; ok {
		close(ch)
		delete(h.clients, clientID)
	}
}

// Publish broadcasts an event to all connected clients
func (h *SSEHub) Publish(event ReviewEvent) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	for _, ch := range h.clients {
		// Non-blocking send - drop event if client buffer is full
		select {
		case ch <- event:
		default:
			// Client is slow, skip this event
		}
	}
}

// ClientCount returns the number of connected clients
func (h *SSEHub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// Global SSE Hub instance
var globalSSEHub *SSEHub
var sseHubOnce sync.Once

// GetSSEHub returns the global SSE hub singleton
func GetSSEHub() *SSEHub {
	sseHubOnce.Do(func() {
		globalSSEHub = NewSSEHub()
	})
	return globalSSEHub
}

// PublishRunEvent is a convenience function to publish run status events
func PublishRunEvent(run *models.ReviewRun, filename string) {
	GetSSEHub().Publish(ReviewEvent{
		RunID:        run.ID,
		RunKey:       run.RunKey,
		VideoAssetID: run.VideoAssetID,
		Filename:     filename,
		Status:       run.Status,
		Score:        run.Score,
		Verdict:      run.Verdict,
		Error:        run.ErrorMessage,
	})
}
