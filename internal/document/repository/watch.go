package repository

import (
	"context"
	"crypto/sha256"
	"errors"
	"io/fs"
	"os"
	"path/filepath"

	"rowbook/pkg/logger"

	"github.com/fsnotify/fsnotify"
)

// Watch calls onChange whenever the document file is modified by something
// other than this store (an editor, a deploy, a git checkout). The directory
// is watched instead of the file because writes replace the file by rename.
// Watching stops when ctx is done.
func (s *FileStore) Watch(ctx context.Context, onChange func()) error {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	dir := filepath.Dir(s.Path)
	if err := w.Add(dir); err != nil {
		_ = w.Close()
		return err
	}
	name := filepath.Base(s.Path)

	go func() {
		defer func() { _ = w.Close() }()
		for {
			select {
			case <-ctx.Done():
				return
			case event, ok := <-w.Events:
				if !ok {
					return
				}
				if filepath.Base(event.Name) != name {
					continue
				}
				if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) &&
					!event.Has(fsnotify.Rename) && !event.Has(fsnotify.Remove) {
					continue
				}
				if s.observe() {
					logger.Sugar.Infof("Document %s changed on disk (%s)", s.Path, event.Op)
					onChange()
				}
			case err, ok := <-w.Errors:
				if !ok {
					return
				}
				logger.Sugar.Warnf("Error watching document %s: %v", s.Path, err)
			}
		}
	}()
	return nil
}

// observe records the current file content and reports whether it differs
// from what the store last wrote or saw.
func (s *FileStore) observe() bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := os.ReadFile(s.Path)

	if errors.Is(err, fs.ErrNotExist) {
		changed := s.hasSum
		s.hasSum = false
		return changed
	}
	if err != nil {
		return false
	}
	sum := sha256.Sum256(data)
	if s.hasSum && sum == s.lastSum {
		return false
	}
	s.lastSum = sum
	s.hasSum = true
	return true
}
