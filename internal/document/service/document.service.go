package service

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"rowbook/internal/document/model"
	"rowbook/internal/document/repository"
	"rowbook/pkg/logger"
	"rowbook/socket"
)

// ErrDocumentNotFound is returned by Load under the notfound policy.
var ErrDocumentNotFound = errors.New("document not found")

var errEmptyBody = errors.New("request body is empty")

// Notifier is told about every successful save.
type Notifier interface {
	DocumentChanged(source string)
}

type DocumentService struct {
	Repo     repository.Store
	Notifier Notifier
	Policy   model.MissingPolicy
	Fallback model.Document
}

func NewDocumentService(repo repository.Store, notifier Notifier, policy model.MissingPolicy, fallback model.Document) *DocumentService {
	return &DocumentService{Repo: repo, Notifier: notifier, Policy: policy, Fallback: fallback}
}

// Load returns the stored document, or the fallback document when none is
// stored and the policy allows it.
func (s *DocumentService) Load(ctx context.Context) (model.Document, error) {
	doc, err := s.Repo.Read(ctx)
	if errors.Is(err, repository.ErrNotFound) {
		if s.Policy == model.PolicyFallback && s.Fallback != nil {
			logger.Sugar.Debug("No stored document, serving fallback")
			return bytes.Clone(s.Fallback), nil
		}
		return nil, ErrDocumentNotFound
	}
	return doc, err
}

// Save replaces the stored document with body, indented for readability.
// A failed save leaves the stored document untouched.
func (s *DocumentService) Save(ctx context.Context, body []byte) model.SaveResult {
	doc, err := prettyPrint(body)
	if err != nil {
		return model.Failed(err)
	}
	if err := s.Repo.Write(ctx, doc); err != nil {
		logger.Sugar.Errorf("Error saving document: %v", err)
		return model.Failed(err)
	}
	if s.Notifier != nil {
		s.Notifier.DocumentChanged(socket.SourceSave)
	}
	return model.Ok()
}

func prettyPrint(body []byte) (model.Document, error) {
	if len(bytes.TrimSpace(body)) == 0 {
		return nil, errEmptyBody
	}
	var buf bytes.Buffer
	if err := json.Indent(&buf, body, "", "  "); err != nil {
		return nil, fmt.Errorf("invalid JSON: %w", err)
	}
	return buf.Bytes(), nil
}
