package storage

import (
	"context"
	"sort"
	"strings"
	"sync"
)

// Compile-time check that MemoryLister implements Lister.
var _ Lister = (*MemoryLister)(nil)

// MemoryLister is an in-memory implementation of Lister.
// Suitable for development and testing.
type MemoryLister struct {
	mu   sync.RWMutex
	keys map[string]bool
}

// NewMemoryLister creates a new in-memory object lister.
func NewMemoryLister() *MemoryLister {
	return &MemoryLister{keys: make(map[string]bool)}
}

// Put records object keys as present in the store.
func (l *MemoryLister) Put(keys ...string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	for _, k := range keys {
		l.keys[k] = true
	}
}

// ListByPrefix returns the recorded keys under the given prefix in
// lexicographic order.
func (l *MemoryLister) ListByPrefix(_ context.Context, prefix string) ([]string, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	var result []string
	for k := range l.keys {
		if strings.HasPrefix(k, prefix) {
			result = append(result, k)
		}
	}
	sort.Strings(result)
	return result, nil
}
