package handler

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"rowbook/internal/document/model"
	"rowbook/internal/document/repository"
	"rowbook/internal/document/service"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newHandler(t *testing.T, store repository.Store, policy model.MissingPolicy) *DocumentHandler {
	t.Helper()
	page := filepath.Join(t.TempDir(), "index.html")
	require.NoError(t, os.WriteFile(page, []byte("<html><body>rows</body></html>"), 0o644))
	svc := service.NewDocumentService(store, nil, policy, model.Document(`[{"Index":1}]`))
	return NewDocumentHandler(svc, page, 1024)
}

func TestIndex(t *testing.T) {
	h := newHandler(t, repository.NewMemoryStore(nil), model.PolicyFallback)

	rec := httptest.NewRecorder()
	h.Index(rec, httptest.NewRequest(http.MethodGet, "/", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Header().Get("Content-Type"), "text/html")
	assert.Equal(t, "<html><body>rows</body></html>", rec.Body.String())
}

func TestIndexMissingTemplate(t *testing.T) {
	h := newHandler(t, repository.NewMemoryStore(nil), model.PolicyFallback)
	h.PagePath = filepath.Join(t.TempDir(), "missing.html")

	rec := httptest.NewRecorder()
	h.Index(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
}

func TestGetDataMissingDocument(t *testing.T) {
	t.Run("fallback", func(t *testing.T) {
		h := newHandler(t, repository.NewMemoryStore(nil), model.PolicyFallback)
		rec := httptest.NewRecorder()
		h.GetData(rec, httptest.NewRequest(http.MethodGet, "/data", nil))

		assert.Equal(t, http.StatusOK, rec.Code)
		assert.JSONEq(t, `[{"Index":1}]`, rec.Body.String())
	})

	t.Run("notfound", func(t *testing.T) {
		h := newHandler(t, repository.NewMemoryStore(nil), model.PolicyNotFound)
		rec := httptest.NewRecorder()
		h.GetData(rec, httptest.NewRequest(http.MethodGet, "/data", nil))

		assert.Equal(t, http.StatusNotFound, rec.Code)
		assert.JSONEq(t, `{"error":"document not found"}`, rec.Body.String())
	})
}

func TestGetDataCorruptDocument(t *testing.T) {
	path := filepath.Join(t.TempDir(), "data.json")
	require.NoError(t, os.WriteFile(path, []byte(`[{"id":`), 0o644))
	h := newHandler(t, repository.NewFileStore(path), model.PolicyFallback)

	rec := httptest.NewRecorder()
	h.GetData(rec, httptest.NewRequest(http.MethodGet, "/data", nil))

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Contains(t, rec.Body.String(), `"error"`)
}

func TestSave(t *testing.T) {
	store := repository.NewMemoryStore(nil)
	h := newHandler(t, store, model.PolicyNotFound)

	rec := httptest.NewRecorder()
	h.Save(rec, httptest.NewRequest(http.MethodPost, "/save", strings.NewReader(`[{"id":2}]`)))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"success"}`, rec.Body.String())
	assert.Equal(t, 1, store.Writes())
}

func TestSaveMalformedBody(t *testing.T) {
	store := repository.NewMemoryStore([]byte(`[1]`))
	h := newHandler(t, store, model.PolicyNotFound)

	rec := httptest.NewRecorder()
	h.Save(rec, httptest.NewRequest(http.MethodPost, "/save", strings.NewReader(`{"broken"`)))

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Contains(t, rec.Body.String(), `"status":"error"`)
	assert.Contains(t, rec.Body.String(), `"message":"invalid JSON`)
	assert.Equal(t, 0, store.Writes())
}

func TestSaveBodyTooLarge(t *testing.T) {
	store := repository.NewMemoryStore([]byte(`[1]`))
	h := newHandler(t, store, model.PolicyNotFound)

	body := `["` + strings.Repeat("x", 2048) + `"]`
	rec := httptest.NewRecorder()
	h.Save(rec, httptest.NewRequest(http.MethodPost, "/save", strings.NewReader(body)))

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Contains(t, rec.Body.String(), "exceeds 1024 bytes")
	assert.Equal(t, 0, store.Writes())
}

func TestSaveWriteFailure(t *testing.T) {
	store := repository.NewMemoryStore([]byte(`[1]`))
	store.FailWrites(errors.New("no space left on device"))
	h := newHandler(t, store, model.PolicyNotFound)

	rec := httptest.NewRecorder()
	h.Save(rec, httptest.NewRequest(http.MethodPost, "/save", strings.NewReader(`[2]`)))

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.JSONEq(t, `{"status":"error","message":"no space left on device"}`, rec.Body.String())
}

func TestMethodNotAllowed(t *testing.T) {
	h := newHandler(t, repository.NewMemoryStore(nil), model.PolicyFallback)

	rec := httptest.NewRecorder()
	h.Save(rec, httptest.NewRequest(http.MethodGet, "/save", nil))
	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)

	rec = httptest.NewRecorder()
	h.GetData(rec, httptest.NewRequest(http.MethodPost, "/data", nil))
	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
}
