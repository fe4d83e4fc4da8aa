package core

import "sync"

const defaultFiringHistoryCapacity = 100

// firingHistory is a fixed size ring of the most recent callback executions.
type firingHistory struct {
	mu    sync.Mutex
	items []FiringRecord
	head  int
	count int
}

func newFiringHistory(capacity int) *firingHistory {
	if capacity < 1 {
		capacity = defaultFiringHistoryCapacity
	}
	return &firingHistory{items: make([]FiringRecord, capacity)}
}

func (h *firingHistory) Add(record FiringRecord) {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.items[h.head] = record
	h.head = (h.head + 1) % len(h.items)
	if h.count < len(h.items) {
		h.count++
	}
}

// Recent returns up to limit records, oldest first. limit <= 0 returns all of them.
func (h *firingHistory) Recent(limit int) []FiringRecord {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.count == 0 {
		return nil
	}

	if limit <= 0 || limit > h.count {
		limit = h.count
	}

	out := make([]FiringRecord, 0, limit)
	for i := limit - 1; i >= 0; i-- {
		idx := (h.head - 1 - i + len(h.items)) % len(h.items)
		out = append(out, h.items[idx])
	}
	return out
}

func (h *firingHistory) Last() (FiringRecord, bool) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.count == 0 {
		return FiringRecord{}, false
	}

	idx := (h.head - 1 + len(h.items)) % len(h.items)
	return h.items[idx], true
}
