package repository

import (
	"context"
	"crypto/sha256"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"

	"rowbook/internal/document/model"
	"rowbook/pkg/logger"
)

var (
	// ErrNotFound is returned by Read when no document has been stored yet.
	ErrNotFound = errors.New("document not found")
	// ErrInvalidDocument is returned for bytes that are not a JSON value.
	ErrInvalidDocument = errors.New("document is not valid JSON")
)

// Store persists the one document the service exposes.
type Store interface {
	Read(ctx context.Context) (model.Document, error)
	Write(ctx context.Context, doc model.Document) error
}

// FileStore keeps the document in a single JSON file.
//
// Writes are serialized and land through a temp file renamed over the
// target, so readers see either the old or the new document, never a mix.
type FileStore struct {
	Path string

	mu      sync.Mutex
	lastSum [sha256.Size]byte // content last written or observed; guarded by mu
	hasSum  bool
}

func NewFileStore(path string) *FileStore {
	return &FileStore{Path: path}
}

func (s *FileStore) Read(ctx context.Context) (model.Document, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	data, err := os.ReadFile(s.Path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, ErrNotFound
	}
	if err != nil {
		logger.Sugar.Errorf("Failed to read document %s: %v", s.Path, err)
		return nil, fmt.Errorf("read document: %w", err)
	}
	if !json.Valid(data) {
		logger.Sugar.Errorf("Document %s holds invalid JSON (%d bytes)", s.Path, len(data))
		return nil, fmt.Errorf("read %s: %w", s.Path, ErrInvalidDocument)
	}
	return data, nil
}

func (s *FileStore) Write(ctx context.Context, doc model.Document) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if !json.Valid(doc) {
		return ErrInvalidDocument
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if err := writeFileAtomic(s.Path, doc); err != nil {
		logger.Sugar.Errorf("Failed to write document %s: %v", s.Path, err)
		return fmt.Errorf("write document: %w", err)
	}
	s.lastSum = sha256.Sum256(doc)
	s.hasSum = true
	return nil
}

func writeFileAtomic(path string, data []byte) (err error) {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}
	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".*.tmp")
	if err != nil {
		return err
	}
	defer func() {
		if err != nil {
			_ = os.Remove(tmp.Name())
		}
	}()
	if _, err = tmp.Write(data); err != nil {
		_ = tmp.Close()
		return err
	}
	if err = tmp.Sync(); err != nil {
		_ = tmp.Close()
		return err
	}
	if err = tmp.Close(); err != nil {
		return err
	}
	if err = os.Chmod(tmp.Name(), 0o644); err != nil {
		return err
	}
	return os.Rename(tmp.Name(), path)
}
