package repository

import (
	"bytes"
	"context"
	"encoding/json"
	"sync"

	"rowbook/internal/document/model"
)

// MemoryStore is a Store backed by a byte slice. A nil initial document
// means nothing has been stored yet.
type MemoryStore struct {
	mu       sync.RWMutex
	doc      model.Document
	writeErr error
	writes   int
}

func NewMemoryStore(initial model.Document) *MemoryStore {
	return &MemoryStore{doc: bytes.Clone(initial)}
}

func (m *MemoryStore) Read(ctx context.Context) (model.Document, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.doc == nil {
		return nil, ErrNotFound
	}
	return bytes.Clone(m.doc), nil
}

func (m *MemoryStore) Write(ctx context.Context, doc model.Document) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if !json.Valid(doc) {
		return ErrInvalidDocument
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.writeErr != nil {
		return m.writeErr
	}
	m.doc = bytes.Clone(doc)
	m.writes++
	return nil
}

// FailWrites makes every following Write return err. A nil err clears it.
func (m *MemoryStore) FailWrites(err error) {
	m.mu.Lock()
	m.writeErr = err
	m.mu.Unlock()
}

// Writes returns how many writes succeeded.
func (m *MemoryStore) Writes() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.writes
}
