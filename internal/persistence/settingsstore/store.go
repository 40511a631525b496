// Package settingsstore persists per-player tool settings.
package settingsstore

import (
	"context"
	"errors"
	"sync"
)

var ErrNotFound = errors.New("settings not found")

// Store keeps one opaque settings document per (player, tool).
type Store interface {
	LoadSettings(ctx context.Context, player, tool string) ([]byte, error)
	SaveSettings(ctx context.Context, player, tool string, raw []byte) error
	Close() error
}

// Memory is the in-process Store used when no Redis address is configured.
type Memory struct {
	mu   sync.RWMutex
	docs map[string][]byte
}

func NewMemory() *Memory {
	return &Memory{docs: map[string][]byte{}}
}

func (m *Memory) LoadSettings(_ context.Context, player, tool string) ([]byte, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	raw, ok := m.docs[docKey(player, tool)]
	if !ok {
		return nil, ErrNotFound
	}
	return append([]byte(nil), raw...), nil
}

func (m *Memory) SaveSettings(_ context.Context, player, tool string, raw []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.docs[docKey(player, tool)] = append([]byte(nil), raw...)
	return nil
}

func (m *Memory) Close() error { return nil }

func docKey(player, tool string) string { return player + "/" + tool }
