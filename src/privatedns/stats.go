// Copyright (c) 2026 H0llyW00dzZ All rights reserved.
//
// By accessing or using this software, you agree to be bound by the terms
// of the License Agreement, which you can find at LICENSE files.

package privatedns

import (
	"sync"
	"time"
)

// StatsPersister records the server list configured for a network.
// Implement this interface to forward the list to a statistics backend
// via the [WithStats] option.
//
// PersistConfiguredServers is fire-and-forget: it is called on every
// successful [Coordinator.Set] and must not block on network I/O.
type StatsPersister interface {
	PersistConfiguredServers(netID int, servers []string)
}

// statsEntry holds a persisted server list with the time it was stored.
type statsEntry struct {
	servers   []string
	updatedAt time.Time
}

// MemoryStats is the default in-memory [StatsPersister].
type MemoryStats struct {
	mu      sync.RWMutex
	entries map[int]statsEntry
}

// NewMemoryStats creates an empty in-memory stats store.
func NewMemoryStats() *MemoryStats {
	return &MemoryStats{
		entries: make(map[int]statsEntry),
	}
}

// PersistConfiguredServers stores a copy of servers for netID.
// An empty list is stored as such; it is how an OFF network is recorded.
func (s *MemoryStats) PersistConfiguredServers(netID int, servers []string) {
	cp := make([]string, len(servers))
	copy(cp, servers)

	s.mu.Lock()
	s.entries[netID] = statsEntry{
		servers:   cp,
		updatedAt: time.Now(),
	}
	s.mu.Unlock()
}

// ConfiguredServers returns the last server list persisted for netID.
// Returns false if nothing was ever persisted for the network.
func (s *MemoryStats) ConfiguredServers(netID int) ([]string, bool) {
	s.mu.RLock()
	entry, ok := s.entries[netID]
	s.mu.RUnlock()

	if !ok {
		return nil, false
	}

	cp := make([]string, len(entry.servers))
	copy(cp, entry.servers)
	return cp, true
}

// UpdatedAt returns when the server list of netID was last persisted.
func (s *MemoryStats) UpdatedAt(netID int) (time.Time, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	entry, ok := s.entries[netID]
	return entry.updatedAt, ok
}

// Flush removes all persisted entries.
func (s *MemoryStats) Flush() {
	s.mu.Lock()
	s.entries = make(map[int]statsEntry)
	s.mu.Unlock()
}
