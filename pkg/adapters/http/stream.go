package http

import (
	"encoding/json"
	"log/slog"
	"sync"
)

// Event types broadcast to subscribers of an agent.
const (
	EventFlowSaved   = "flow_saved"
	EventFlowDeleted = "flow_deleted"
)

// Event tells subscribers that an agent's stored flow changed.
type Event struct {
	Type    string `json:"type"`
	AgentID string `json:"agentId"`
	Nodes   int    `json:"nodes,omitempty"`
	Edges   int    `json:"edges,omitempty"`
}

// StreamManager fans events out to the SSE connections of each agent.
type StreamManager struct {
	mu          sync.RWMutex
	subscribers map[string]map[chan string]struct{}
}

// NewStreamManager creates an empty manager.
func NewStreamManager() *StreamManager {
	return &StreamManager{
		subscribers: make(map[string]map[chan string]struct{}),
	}
}

// Subscribe registers a buffered channel for agentID and returns it with its
// cancel function.
func (sm *StreamManager) Subscribe(agentID string) (chan string, func()) {
	sm.mu.Lock()
	defer sm.mu.Unlock()

	ch := make(chan string, 10)
	if _, ok := sm.subscribers[agentID]; !ok {
		sm.subscribers[agentID] = make(map[chan string]struct{})
	}
	sm.subscribers[agentID][ch] = struct{}{}

	return ch, func() {
		sm.mu.Lock()
		defer sm.mu.Unlock()
		if subs, ok := sm.subscribers[agentID]; ok {
			if _, live := subs[ch]; !live {
				return
			}
			delete(subs, ch)
			close(ch)
			if len(subs) == 0 {
				delete(sm.subscribers, agentID)
			}
		}
	}
}

// Broadcast sends e to every subscriber of agentID. Slow subscribers whose
// buffer is full miss the event.
func (sm *StreamManager) Broadcast(agentID string, e Event) {
	payload, err := json.Marshal(e)
	if err != nil {
		return
	}

	sm.mu.RLock()
	defer sm.mu.RUnlock()

	for ch := range sm.subscribers[agentID] {
		select {
		case ch <- string(payload):
		default:
			slog.Warn("SSE: client buffer full, dropping event", "agent_id", agentID)
		}
	}
}

// Subscribers returns the number of live subscriptions for agentID.
func (sm *StreamManager) Subscribers(agentID string) int {
	sm.mu.RLock()
	defer sm.mu.RUnlock()
	return len(sm.subscribers[agentID])
}
