package router

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	handler "rowbook/internal/document"
	"rowbook/internal/document/model"
	"rowbook/internal/document/repository"
	"rowbook/internal/document/service"
	"rowbook/socket"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type testServer struct {
	URL      string
	DataPath string
	Hub      *socket.Hub
}

func newTestServer(t *testing.T, policy model.MissingPolicy) *testServer {
	return newTestServerWatching(t, policy, true)
}

func newTestServerWatching(t *testing.T, policy model.MissingPolicy, watch bool) *testServer {
	t.Helper()
	root := t.TempDir()
	staticDir := filepath.Join(root, "static")
	require.NoError(t, os.MkdirAll(staticDir, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(staticDir, "style.css"), []byte("body{margin:0}"), 0o644))
	pagePath := filepath.Join(root, "index.html")
	require.NoError(t, os.WriteFile(pagePath, []byte("<html>rows</html>"), 0o644))

	ctx, cancel := context.WithCancel(context.Background())
	hub := socket.NewHub()
	go hub.Run(ctx)

	dataPath := filepath.Join(staticDir, "data.json")
	store, _ := repository.Open(ctx, dataPath, watch, 1<<20, func() {
		hub.DocumentChanged(socket.SourceDisk)
	})

	svc := service.NewDocumentService(store, hub, policy, model.Document(`[]`))
	h := handler.NewDocumentHandler(svc, pagePath, 1<<20)
	server := httptest.NewServer(Setup(h, hub, Options{StaticDir: staticDir, CORSOrigin: "*"}))
	t.Cleanup(func() {
		server.Close()
		cancel()
	})
	return &testServer{URL: server.URL, DataPath: dataPath, Hub: hub}
}

func (s *testServer) get(t *testing.T, path string) (int, string) {
	t.Helper()
	resp, err := http.Get(s.URL + path)
	require.NoError(t, err)
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return resp.StatusCode, string(body)
}

func (s *testServer) save(t *testing.T, body string) (int, string) {
	t.Helper()
	resp, err := http.Post(s.URL+"/save", "application/json", strings.NewReader(body))
	require.NoError(t, err)
	defer resp.Body.Close()
	out, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return resp.StatusCode, string(out)
}

func TestEndToEnd(t *testing.T) {
	srv := newTestServer(t, model.PolicyNotFound)
	require.NoError(t, os.WriteFile(srv.DataPath, []byte(`[{"id":1,"name":"Row A"}]`), 0o644))

	status, body := srv.get(t, "/data")
	assert.Equal(t, http.StatusOK, status)
	assert.JSONEq(t, `[{"id":1,"name":"Row A"}]`, body)

	status, body = srv.save(t, `[{"id":1,"name":"Row A"},{"id":2,"name":"Row B"}]`)
	assert.Equal(t, http.StatusOK, status)
	assert.JSONEq(t, `{"status":"success"}`, body)

	status, body = srv.get(t, "/data")
	assert.Equal(t, http.StatusOK, status)
	assert.JSONEq(t, `[{"id":1,"name":"Row A"},{"id":2,"name":"Row B"}]`, body)

	onDisk, err := os.ReadFile(srv.DataPath)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(string(onDisk), "[\n  {\n    \"id\": 1,"), "document is stored indented:\n%s", onDisk)
}

func TestMissingDocumentStrict(t *testing.T) {
	srv := newTestServer(t, model.PolicyNotFound)

	status, body := srv.get(t, "/data")
	assert.Equal(t, http.StatusNotFound, status)

	var resp map[string]string
	require.NoError(t, json.Unmarshal([]byte(body), &resp))
	assert.NotEmpty(t, resp["error"])
}

func TestMissingDocumentFallback(t *testing.T) {
	srv := newTestServer(t, model.PolicyFallback)

	status, body := srv.get(t, "/data")
	assert.Equal(t, http.StatusOK, status)
	assert.JSONEq(t, `[]`, body)
}

func TestMalformedSaveLeavesDocument(t *testing.T) {
	srv := newTestServer(t, model.PolicyNotFound)
	require.NoError(t, os.WriteFile(srv.DataPath, []byte(`[{"id":1}]`), 0o644))

	status, body := srv.save(t, `[{"id":`)
	assert.Equal(t, http.StatusInternalServerError, status)
	assert.Contains(t, body, `"status":"error"`)

	onDisk, err := os.ReadFile(srv.DataPath)
	require.NoError(t, err)
	assert.Equal(t, `[{"id":1}]`, string(onDisk))

	// The server keeps serving.
	status, body = srv.get(t, "/data")
	assert.Equal(t, http.StatusOK, status)
	assert.JSONEq(t, `[{"id":1}]`, body)
}

func TestConcurrentSaves(t *testing.T) {
	srv := newTestServer(t, model.PolicyNotFound)

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			status, _ := srv.save(t, fmt.Sprintf(`[{"id":%d}]`, i))
			assert.Equal(t, http.StatusOK, status)
		}(i)
	}
	wg.Wait()

	onDisk, err := os.ReadFile(srv.DataPath)
	require.NoError(t, err)
	var rows []map[string]int
	require.NoError(t, json.Unmarshal(onDisk, &rows))
	require.Len(t, rows, 1)

	_, body := srv.get(t, "/data")
	assert.JSONEq(t, string(onDisk), body)
}

func TestPageAndAssets(t *testing.T) {
	srv := newTestServer(t, model.PolicyFallback)

	status, body := srv.get(t, "/")
	assert.Equal(t, http.StatusOK, status)
	assert.Equal(t, "<html>rows</html>", body)

	status, body = srv.get(t, "/static/style.css")
	assert.Equal(t, http.StatusOK, status)
	assert.Equal(t, "body{margin:0}", body)

	status, _ = srv.get(t, "/nope")
	assert.Equal(t, http.StatusNotFound, status)

	status, body = srv.get(t, "/healthz")
	assert.Equal(t, http.StatusOK, status)
	assert.JSONEq(t, `{"status":"ok"}`, body)
}

func TestSaveNotifiesOpenPages(t *testing.T) {
	srv := newTestServer(t, model.PolicyFallback)

	conn, _, err := websocket.DefaultDialer.Dial("ws"+strings.TrimPrefix(srv.URL, "http")+"/ws", nil)
	require.NoError(t, err)
	defer conn.Close()

	next := func() socket.WSMessage {
		var msg socket.WSMessage
		conn.SetReadDeadline(time.Now().Add(time.Second))
		require.NoError(t, conn.ReadJSON(&msg))
		return msg
	}
	assert.Equal(t, socket.HelloType, next().Type)
	assert.Equal(t, socket.PresenceUpdateType, next().Type)

	status, _ := srv.save(t, `[{"id":3}]`)
	require.Equal(t, http.StatusOK, status)

	msg := next()
	assert.Equal(t, socket.DocumentChangedType, msg.Type)
	assert.Equal(t, socket.SourceSave, msg.Source)
}

func TestUnwatchedDocumentIsReadOnEveryRequest(t *testing.T) {
	srv := newTestServerWatching(t, model.PolicyNotFound, false)

	status, _ := srv.save(t, `[{"id":1}]`)
	require.Equal(t, http.StatusOK, status)
	_, body := srv.get(t, "/data")
	assert.JSONEq(t, `[{"id":1}]`, body)

	require.NoError(t, os.WriteFile(srv.DataPath, []byte(`[{"id":2}]`), 0o644))
	status, body = srv.get(t, "/data")
	assert.Equal(t, http.StatusOK, status)
	assert.JSONEq(t, `[{"id":2}]`, body)

	require.NoError(t, os.Remove(srv.DataPath))
	status, body = srv.get(t, "/data")
	assert.Equal(t, http.StatusNotFound, status)
	assert.Contains(t, body, `"error"`)
}

func TestWatchedDocumentPicksUpDiskEdits(t *testing.T) {
	srv := newTestServerWatching(t, model.PolicyNotFound, true)

	status, _ := srv.save(t, `[{"id":1}]`)
	require.Equal(t, http.StatusOK, status)

	require.NoError(t, os.WriteFile(srv.DataPath, []byte(`[{"id":2}]`), 0o644))
	assert.Eventually(t, func() bool {
		status, body := srv.get(t, "/data")
		return status == http.StatusOK && strings.Contains(body, `"id":2`)
	}, 2*time.Second, 20*time.Millisecond)
}
