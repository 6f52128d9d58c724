package storage

import (
	"context"
	"io"
	"strings"
	"sync"
)

// Memory is an in-memory Storage. Items are listed in insertion order.
type Memory struct {
	mu    sync.RWMutex
	roots map[string]*memRoot
}

type memRoot struct {
	order []string
	items map[string]string
}

// NewMemory returns an empty Memory storage.
func NewMemory() *Memory {
	return &Memory{roots: make(map[string]*memRoot)}
}

// AddRoot creates an empty root so that listing it succeeds.
func (m *Memory) AddRoot(root string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.root(root)
}

// Put stores content under root/id, creating root if needed. Replacing an
// existing item keeps its position.
func (m *Memory) Put(root, id, content string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	r := m.root(root)
	if _, ok := r.items[id]; !ok {
		r.order = append(r.order, id)
	}
	r.items[id] = content
}

func (m *Memory) root(root string) *memRoot {
	r, ok := m.roots[root]
	if !ok {
		r = &memRoot{items: make(map[string]string)}
		m.roots[root] = r
	}
	return r
}

func (m *Memory) get(root, id string) (string, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	r, ok := m.roots[root]
	if !ok {
		return "", false
	}
	content, ok := r.items[id]
	return content, ok
}

func (m *Memory) List(ctx context.Context, root string) ([]string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	r, ok := m.roots[root]
	if !ok {
		return nil, notExist("list", root)
	}
	return append([]string(nil), r.order...), nil
}

func (m *Memory) Exists(ctx context.Context, root, id string) (bool, error) {
	_, ok := m.get(root, id)
	return ok, nil
}

func (m *Memory) Open(ctx context.Context, root, id string) (io.ReadCloser, error) {
	if !ValidID(id) {
		return nil, ErrInvalidID
	}
	content, ok := m.get(root, id)
	if !ok {
		return nil, notExist("open", root+"/"+id)
	}
	return io.NopCloser(strings.NewReader(content)), nil
}

func (m *Memory) Size(ctx context.Context, root, id string) (int64, error) {
	content, ok := m.get(root, id)
	if !ok {
		return 0, notExist("stat", root+"/"+id)
	}
	return int64(len(content)), nil
}
