// Package kvstore persists small string values such as the last active
// organization. Backends: in-memory, a file per key, and Redis.
package kvstore

import (
	"context"
	"fmt"
	"sync"
)

// Store is a durable string key-value store
type Store interface {
	// Get returns the value for key and whether it was present
	Get(ctx context.Context, key string) (string, bool, error)
	Set(ctx context.Context, key, value string) error
}

// Memory is a process-local Store
type Memory struct {
	data map[string]string
	mu   sync.RWMutex
}

// NewMemory creates an empty in-memory store
func NewMemory() *Memory {
	return &Memory{data: make(map[string]string)}
}

func (m *Memory) Get(ctx context.Context, key string) (string, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	v, ok := m.data[key]
	return v, ok, nil
}

func (m *Memory) Set(ctx context.Context, key, value string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.data[key] = value
	return nil
}

// Backend names accepted by Open
const (
	BackendMemory = "memory"
	BackendFile   = "file"
	BackendRedis  = "redis"
)

// Options selects and configures a backend for Open
type Options struct {
	Backend  string
	Files    FileStorage
	RedisURL string
}

// Open builds the Store named by opts.Backend
func Open(ctx context.Context, opts Options) (Store, error) {
	switch opts.Backend {
	case "", BackendMemory:
		return NewMemory(), nil
	case BackendFile:
		if opts.Files == nil {
			return nil, fmt.Errorf("file kv backend needs a storage directory")
		}
		return NewFile(opts.Files), nil
	case BackendRedis:
		return NewRedis(ctx, opts.RedisURL)
	default:
		return nil, fmt.Errorf("unknown kv backend %q", opts.Backend)
	}
}
