// Package kv is the persisted key-value storage the engine keeps its state in.
// Reads and writes are synchronous and there is no schema enforcement.
package kv

import (
	"sync"
)

// Store reads and writes string values by key.
//
// note: fault injection point
type Store interface {
	// Read returns the value stored at key, ok is false if nothing is stored.
	Read(key string) (value string, ok bool, err error)
	// Write replaces the value stored at key. The value must be durable once
	// Write returns without error.
	Write(key, value string) error
}

// Memory implements Store backed by process memory. Intended for tests and
// ephemeral runs.
type Memory struct {
	mu     sync.RWMutex
	values map[string]string
	writes int
}

func NewMemory() *Memory {
	return &Memory{values: make(map[string]string)}
}

func (m *Memory) Read(key string) (string, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	value, ok := m.values[key]
	return value, ok, nil
}

func (m *Memory) Write(key, value string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.values[key] = value
	m.writes++
	return nil
}

// Writes is the number of successful writes so far.
func (m *Memory) Writes() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.writes
}
