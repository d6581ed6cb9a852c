// Package connectivity holds the online/offline signal the gateway consults
// before choosing between the remote API and the offline store.
package connectivity

import (
	"sync"

	"github.com/sirupsen/logrus"

	"github.com/adminbridge/datakit/internal/core/ports"
)

// Monitor is a boolean reactive cell reflecting connectivity. It is purely
// event-driven: the embedding application binds MarkOnline/MarkOffline to its
// platform's connectivity-change events; there is no polling. A sticky
// wasOffline flag survives reconnection until explicitly reset, so callers
// can detect "we were offline at some point" and trigger reconciliation.
type Monitor struct {
	mu         sync.Mutex
	online     bool
	wasOffline bool
	logger     *logrus.Logger
}

// NewMonitor creates a monitor initialized from the platform's current state.
func NewMonitor(initiallyOnline bool, logger *logrus.Logger) *Monitor {
	return &Monitor{
		online:     initiallyOnline,
		wasOffline: !initiallyOnline,
		logger:     logger,
	}
}

// MarkOnline records a transition to connected.
func (m *Monitor) MarkOnline() {
	m.mu.Lock()
	changed := !m.online
	m.online = true
	m.mu.Unlock()
	if changed && m.logger != nil {
		m.logger.Info("connectivity: online")
	}
}

// MarkOffline records a transition to disconnected and latches wasOffline.
func (m *Monitor) MarkOffline() {
	m.mu.Lock()
	changed := m.online
	m.online = false
	m.wasOffline = true
	m.mu.Unlock()
	if changed && m.logger != nil {
		m.logger.Warn("connectivity: offline")
	}
}

// IsOnline reports the current connectivity state.
func (m *Monitor) IsOnline() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.online
}

// WasOffline reports whether the monitor has seen an offline state since the
// last ResetWasOffline call.
func (m *Monitor) WasOffline() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.wasOffline
}

// ResetWasOffline clears the sticky offline marker.
func (m *Monitor) ResetWasOffline() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.wasOffline = false
}

var _ ports.Connectivity = (*Monitor)(nil)
