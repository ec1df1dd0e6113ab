package server

import (
	"sync"

	lru "github.com/hashicorp/golang-lru/v2"
)

// lastStateCacheSize bounds how many finished or in-flight scans keep a
// replayable last-known progress state.
const lastStateCacheSize = 256

// ProgressUpdate is one progress frame pushed to websocket subscribers. The
// snapshot fields mirror what the scan record will eventually hold, so
// clients can render counts without parsing the message text.
type ProgressUpdate struct {
	ScanID          string  `json:"scan_id"`
	Status          string  `json:"status"`
	Current         int     `json:"current"`
	Total           int     `json:"total"`
	FilesScanned    int     `json:"files_scanned"`
	NodesFound      int     `json:"nodes_found"`
	ProgressPercent float64 `json:"progress_percent"`
	Message         string  `json:"message"`
}

// Hub fans scan progress out to websocket subscribers. Each scan has its own
// subscriber set; the last update per scan is cached so a client that
// connects late (or reconnects) immediately sees where the scan stands.
type Hub struct {
	mu   sync.RWMutex
	subs map[string]map[chan ProgressUpdate]struct{}
	last *lru.Cache[string, ProgressUpdate]
}

// NewHub returns a hub ready for use.
func NewHub() *Hub {
	cache, _ := lru.New[string, ProgressUpdate](lastStateCacheSize)
	return &Hub{
		subs: make(map[string]map[chan ProgressUpdate]struct{}),
		last: cache,
	}
}

// Publish records update as the scan's last-known state and delivers it to
// every current subscriber. Slow subscribers are skipped rather than blocked;
// they catch up from the cached state on reconnect.
func (h *Hub) Publish(update ProgressUpdate) {
	h.last.Add(update.ScanID, update)

	h.mu.RLock()
	defer h.mu.RUnlock()
	for ch := range h.subs[update.ScanID] {
		select {
		case ch <- update:
		default:
		}
	}
}

// Subscribe registers interest in one scan's progress. The returned channel
// is buffered; the second return value unsubscribes and must be called when
// the consumer is done. If the scan already has a last-known state it is
// replayed as the first message.
func (h *Hub) Subscribe(scanID string) (<-chan ProgressUpdate, func()) {
	ch := make(chan ProgressUpdate, 32)

	h.mu.Lock()
	set, ok := h.subs[scanID]
	if !ok {
		set = make(map[chan ProgressUpdate]struct{})
		h.subs[scanID] = set
	}
	set[ch] = struct{}{}
	h.mu.Unlock()

	if update, ok := h.last.Get(scanID); ok {
		ch <- update
	}

	cancel := func() {
		h.mu.Lock()
		defer h.mu.Unlock()
		if set, ok := h.subs[scanID]; ok {
			delete(set, ch)
			if len(set) == 0 {
				delete(h.subs, scanID)
			}
		}
	}
	return ch, cancel
}

// LastState returns the cached last update for a scan, if any.
func (h *Hub) LastState(scanID string) (ProgressUpdate, bool) {
	return h.last.Get(scanID)
}
