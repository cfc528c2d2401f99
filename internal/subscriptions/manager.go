// Package subscriptions multiplexes the symbol interests of any number of
// in-process consumers onto a single upstream subscription set.
package subscriptions

import (
	"context"
	"strings"
	"sync"

	domrepo "BarFlow/internal/domain/repository"
	"BarFlow/pkg/logger"
)

// Manager ref-counts consumers per symbol and calls upstream subscribe and
// unsubscribe only on 0→1 and 1→0 transitions. All map mutations for one call
// happen under a single critical section; the upstream call is issued after
// the lock is released, so the in-memory state can briefly run ahead of the
// upstream set but never double-subscribes.
type Manager struct {
	mu        sync.Mutex
	transport domrepo.Transport
	symbols   map[string]map[string]struct{}
	logger    *logger.Logger
}

// NewManager creates a subscription manager bound to one transport.
func NewManager(transport domrepo.Transport, l *logger.Logger) *Manager {
	return &Manager{
		transport: transport,
		symbols:   make(map[string]map[string]struct{}),
		logger:    l,
	}
}

// AddSymbols registers consumerID's interest in each symbol and subscribes
// upstream to the symbols that had no consumers before this call. One
// upstream call per invocation, skipped when nothing newly became
// interesting.
func (m *Manager) AddSymbols(ctx context.Context, symbols []string, consumerID string) error {
	m.mu.Lock()
	var fresh []string
	for _, s := range symbols {
		s = strings.ToUpper(s)
		set, ok := m.symbols[s]
		if !ok {
			set = make(map[string]struct{})
			m.symbols[s] = set
			fresh = append(fresh, s)
		}
		set[consumerID] = struct{}{}
	}
	m.mu.Unlock()

	if len(fresh) == 0 {
		return nil
	}
	m.logger.Debug("subscribing upstream",
		logger.Strings("symbols", fresh),
		logger.String("consumer", consumerID),
	)
	return m.transport.Subscribe(ctx, fresh)
}

// RemoveSymbols drops consumerID's interest in each symbol and unsubscribes
// upstream from the symbols whose consumer set thereby became empty.
func (m *Manager) RemoveSymbols(ctx context.Context, symbols []string, consumerID string) error {
	m.mu.Lock()
	var stale []string
	for _, s := range symbols {
		s = strings.ToUpper(s)
		set, ok := m.symbols[s]
		if !ok {
			continue
		}
		delete(set, consumerID)
		if len(set) == 0 {
			delete(m.symbols, s)
			stale = append(stale, s)
		}
	}
	m.mu.Unlock()

	if len(stale) == 0 {
		return nil
	}
	m.logger.Debug("unsubscribing upstream",
		logger.Strings("symbols", stale),
		logger.String("consumer", consumerID),
	)
	return m.transport.Unsubscribe(ctx, stale)
}

// RemoveConsumer sweeps every tracked symbol, dropping consumerID wherever
// present, and unsubscribes from every symbol left without consumers. Used on
// consumer disconnect.
func (m *Manager) RemoveConsumer(ctx context.Context, consumerID string) error {
	m.mu.Lock()
	var stale []string
	for s, set := range m.symbols {
		if _, ok := set[consumerID]; !ok {
			continue
		}
		delete(set, consumerID)
		if len(set) == 0 {
			delete(m.symbols, s)
			stale = append(stale, s)
		}
	}
	m.mu.Unlock()

	if len(stale) == 0 {
		return nil
	}
	m.logger.Debug("consumer removed, unsubscribing upstream",
		logger.Strings("symbols", stale),
		logger.String("consumer", consumerID),
	)
	return m.transport.Unsubscribe(ctx, stale)
}

// ActiveSymbols snapshots all symbols with at least one consumer.
func (m *Manager) ActiveSymbols() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]string, 0, len(m.symbols))
	for s := range m.symbols {
		out = append(out, s)
	}
	return out
}

// ConsumersFor snapshots the consumers registered for one symbol.
func (m *Manager) ConsumersFor(symbol string) []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	set, ok := m.symbols[strings.ToUpper(symbol)]
	if !ok {
		return nil
	}
	out := make([]string, 0, len(set))
	for c := range set {
		out = append(out, c)
	}
	return out
}
