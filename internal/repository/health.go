package repository

import (
	"sync"
	"time"

	"github.com/iliyamo/hotel-backoffice/internal/metrics"
)

// Mode is the storage mode that served the most recent request.
type Mode string

const (
	ModeDurable  Mode = "durable"
	ModeFallback Mode = "fallback"
)

// Health records the operator facing view of the fallback coordinator.  It
// is shared by every Store so that /healthz reports one mode for the
// process.
type Health struct {
	mu             sync.RWMutex
	configured     bool
	mode           Mode
	degradations   int64
	lastError      string
	lastDegradedAt time.Time
}

// HealthSnapshot is a point-in-time copy of Health.
type HealthSnapshot struct {
	Mode              Mode       `json:"storeMode"`
	DurableConfigured bool       `json:"durableConfigured"`
	Degradations      int64      `json:"degradations"`
	LastError         string     `json:"lastError,omitempty"`
	LastDegradedAt    *time.Time `json:"lastDegradedAt,omitempty"`
}

// NewHealth starts in durable mode when a durable store is configured and
// in fallback mode otherwise.
func NewHealth(durableConfigured bool) *Health {
	h := &Health{configured: durableConfigured, mode: ModeFallback}
	if durableConfigured {
		h.mode = ModeDurable
	}
	h.publish()
	return h
}

func (h *Health) publish() {
	if h.mode == ModeDurable {
		metrics.StoreDurable.Set(1)
		return
	}
	metrics.StoreDurable.Set(0)
}

// Degraded records a durable failure of op on collection.
func (h *Health) Degraded(collection, op string, err error) {
	metrics.StoreFallbacks.WithLabelValues(collection, op).Inc()
	h.mu.Lock()
	defer h.mu.Unlock()
	h.mode = ModeFallback
	h.degradations++
	if err != nil {
		h.lastError = err.Error()
	}
	h.lastDegradedAt = time.Now().UTC()
	h.publish()
}

// Recovered records that the durable store answered a request.
func (h *Health) Recovered() {
	h.mu.RLock()
	already := h.mode == ModeDurable
	h.mu.RUnlock()
	if already || !h.configured {
		return
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	h.mode = ModeDurable
	h.publish()
}

func (h *Health) Mode() Mode {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.mode
}

func (h *Health) Snapshot() HealthSnapshot {
	h.mu.RLock()
	defer h.mu.RUnlock()
	s := HealthSnapshot{
		Mode:              h.mode,
		DurableConfigured: h.configured,
		Degradations:      h.degradations,
		LastError:         h.lastError,
	}
	if !h.lastDegradedAt.IsZero() {
		t := h.lastDegradedAt
		s.LastDegradedAt = &t
	}
	return s
}
