package server

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/msalah0e/canopy/internal/document"
	"github.com/msalah0e/canopy/internal/editor"
	"github.com/msalah0e/canopy/internal/preview"
	"github.com/msalah0e/canopy/internal/registry"
	"github.com/msalah0e/canopy/internal/store"
)

const origin = "http://127.0.0.1:7410"

func newServer(t *testing.T) *Server {
	return newServerWithTimeout(t, time.Hour)
}

func newServerWithTimeout(t *testing.T, timeout time.Duration) *Server {
	t.Helper()
	reg, err := registry.Builtin()
	require.NoError(t, err)
	kv, err := store.NewFileKV(filepath.Join(t.TempDir(), "data"))
	require.NoError(t, err)
	ws := editor.New(reg, store.New(kv), editor.Options{})
	return New(Config{Origin: origin, PreviewTimeout: timeout}, ws)
}

func do(t *testing.T, s *Server, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &v), rec.Body.String())
	return v
}

func TestHealth(t *testing.T) {
	rec := do(t, newServer(t), http.MethodGet, "/healthz", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"running"`)
}

func TestDropFlow(t *testing.T) {
	s := newServer(t)

	rec := do(t, s, http.MethodPost, "/api/drop", `{"payload":{"type":"card"}}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	resp := decode[dropResponse](t, rec)
	assert.Equal(t, "insert", string(resp.Mutation))
	require.NotNil(t, resp.Node)
	card := resp.Node.ID

	body := `{"payload":{"type":"button"},"target":{"containerId":"` + string(card) + `"},` +
		`"point":{"x":140,"y":212},"bounds":{"` + string(card) + `":{"left":100,"top":200,"width":300,"height":200}}}`
	rec = do(t, s, http.MethodPost, "/api/drop", body)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	resp = decode[dropResponse](t, rec)
	assert.Equal(t, "append", string(resp.Mutation))
	require.Len(t, resp.Components[0].Children, 1)
	assert.Equal(t, document.Position{X: 40, Y: 12}, *resp.Components[0].Children[0].Position)

	// Leaf on background: no rule, no change.
	rec = do(t, s, http.MethodPost, "/api/drop", `{"payload":{"type":"button"}}`)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "noop", string(decode[dropResponse](t, rec).Mutation))
}

func TestSecondNavbarConflict(t *testing.T) {
	s := newServer(t)
	require.Equal(t, http.StatusOK, do(t, s, http.MethodPost, "/api/drop", `{"payload":{"type":"navbar"}}`).Code)

	rec := do(t, s, http.MethodPost, "/api/drop", `{"payload":{"type":"navbar"}}`)
	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Contains(t, rec.Body.String(), `"error"`)
	assert.Equal(t, 1, len(decode[documentResponse](t, do(t, s, http.MethodGet, "/api/document", "")).Components))
}

func TestSelectEditDelete(t *testing.T) {
	s := newServer(t)

	rec := do(t, s, http.MethodPatch, "/api/selection", `{"props":{"title":"x"}}`)
	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Contains(t, rec.Body.String(), "nothing selected")

	resp := decode[dropResponse](t, do(t, s, http.MethodPost, "/api/drop", `{"payload":{"type":"hero"}}`))
	id := string(resp.Node.ID)

	rec = do(t, s, http.MethodPost, "/api/select", `{"id":"`+id+`"}`)
	require.Equal(t, http.StatusOK, rec.Code)

	rec = do(t, s, http.MethodPatch, "/api/selection", `{"props":{"title":"Welcome","subtitle":"Build things"}}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	n := decode[document.Node](t, rec)
	assert.Equal(t, "Welcome", n.Attr("title"))

	code := do(t, s, http.MethodGet, "/api/code", "")
	assert.Equal(t, http.StatusOK, code.Code)
	assert.Contains(t, code.Body.String(), `title="Welcome"`)
	assert.Equal(t, 1, strings.Count(code.Body.String(), "import Hero "))

	rec = do(t, s, http.MethodDelete, "/api/nodes/"+id, "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"deleted":true`)

	rec = do(t, s, http.MethodDelete, "/api/nodes/"+id, "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"deleted":false`)

	rec = do(t, s, http.MethodPost, "/api/select", `{"id":"missing"}`)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestSaveLoad(t *testing.T) {
	s := newServer(t)

	rec := do(t, s, http.MethodPost, "/api/load", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"found":false`)

	do(t, s, http.MethodPost, "/api/drop", `{"payload":{"type":"hero"}}`)
	do(t, s, http.MethodPost, "/api/drop", `{"payload":{"type":"footer"}}`)
	rec = do(t, s, http.MethodPost, "/api/save", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"saved":2`)

	do(t, s, http.MethodDelete, "/api/document", "")
	rec = do(t, s, http.MethodPost, "/api/load", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"found":true`)
	assert.Len(t, decode[documentResponse](t, do(t, s, http.MethodGet, "/api/document", "")).Components, 2)
}

func TestCatalogRoutes(t *testing.T) {
	s := newServer(t)

	rec := do(t, s, http.MethodGet, "/api/catalog?category=form", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"button"`)
	assert.NotContains(t, rec.Body.String(), `"type":"hero"`)

	rec = do(t, s, http.MethodGet, "/api/catalog/button/fields", "")
	require.Equal(t, http.StatusOK, rec.Code)
	f := decode[fieldsResponse](t, rec)
	assert.Equal(t, "button", f.Type)
	assert.NotEmpty(t, f.Fields)

	rec = do(t, s, http.MethodPost, "/api/catalog", `{"type":"badge","name":"Badge","componentPath":"components/Badge"}`)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	rec = do(t, s, http.MethodPost, "/api/catalog", `{"type":"bad type"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	assert.Equal(t, http.StatusNoContent, do(t, s, http.MethodDelete, "/api/catalog/badge", "").Code)
	assert.Equal(t, http.StatusNotFound, do(t, s, http.MethodDelete, "/api/catalog/badge", "").Code)
	assert.Equal(t, http.StatusNotFound, do(t, s, http.MethodGet, "/api/catalog/badge/fields", "").Code)
}

func TestDownload(t *testing.T) {
	rec := do(t, newServer(t), http.MethodGet, "/api/code/download", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Header().Get("Content-Disposition"), "App.jsx")
	assert.Contains(t, rec.Body.String(), "export default function App()")
}

func TestPreviewWithoutRenderer(t *testing.T) {
	s := newServer(t)

	rec := do(t, s, http.MethodPost, "/api/preview", `{"open":true}`)
	assert.Equal(t, http.StatusConflict, rec.Code, "empty design cannot be previewed")

	do(t, s, http.MethodPost, "/api/drop", `{"payload":{"type":"hero"}}`)
	rec = do(t, s, http.MethodPost, "/api/preview", "")
	assert.Equal(t, http.StatusAccepted, rec.Code, rec.Body.String())

	rec = do(t, s, http.MethodGet, "/preview", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "/preview/ws")
}

func TestValidateAndRetry(t *testing.T) {
	s := newServer(t)
	do(t, s, http.MethodPost, "/api/drop", `{"payload":{"type":"hero"}}`)

	rec := do(t, s, http.MethodGet, "/api/code/validate", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, true, decode[map[string]any](t, rec)["valid"])

	rec = do(t, s, http.MethodPost, "/api/preview/retry", "")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	status := decode[map[string]preview.Report](t, rec)["status"]
	assert.Equal(t, preview.StatusWaiting, status.Status, "no renderer yet, the handshake will deliver")
}

func TestPreviewSocket(t *testing.T) {
	s := newServer(t)
	do(t, s, http.MethodPost, "/api/drop", `{"payload":{"type":"hero"}}`)

	srv := httptest.NewServer(s.Handler())
	defer srv.Close()

	// The renderer page is served by the authoring server, so both sides
	// share the configured origin.
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	views := make(chan preview.View, 2)
	c := &preview.Client{
		Server:   srv.URL,
		Origin:   origin,
		Viewer:   preview.NewViewer(preview.Origin(srv.URL)),
		OnUpdate: func(v preview.View) { views <- v },
	}
	go func() { _ = c.Run(ctx) }()

	select {
	case v := <-views:
		assert.Equal(t, preview.ViewShowing, v.State)
		assert.Contains(t, v.Snapshot.GeneratedCode, "<Hero")
	case <-time.After(2 * time.Second):
		t.Fatal("renderer got no snapshot after ready")
	}

	assert.Eventually(t, func() bool {
		return s.ws.PreviewStatus().Status == preview.StatusLive
	}, time.Second, 5*time.Millisecond)
}

func TestPreviewFallbackOutlivesRequest(t *testing.T) {
	s := newServerWithTimeout(t, 150*time.Millisecond)
	do(t, s, http.MethodPost, "/api/drop", `{"payload":{"type":"hero"}}`)

	srv := httptest.NewServer(s.Handler())
	defer srv.Close()

	// A renderer that connects but never announces readiness.
	wsURL, err := preview.SocketURL(srv.URL)
	require.NoError(t, err)
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, http.Header{"Origin": {origin}})
	require.NoError(t, err)
	defer conn.Close()
	require.Eventually(t, func() bool { return s.Hub().Count() == 1 }, time.Second, 5*time.Millisecond)

	resp, err := http.Post(srv.URL+"/api/preview", "application/json", strings.NewReader(`{"open":true}`))
	require.NoError(t, err)
	resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	_, raw, err := conn.ReadMessage()
	require.NoError(t, err, "fallback should push without ready")
	msg, err := preview.Decode(raw)
	require.NoError(t, err)
	assert.Equal(t, preview.TypeUpdateDesign, msg.Type)

	assert.Eventually(t, func() bool {
		return s.ws.PreviewStatus().Status == preview.StatusLive
	}, time.Second, 5*time.Millisecond)
}

func TestPreviewSocketRejectsForeignOrigin(t *testing.T) {
	s := newServer(t)
	srv := httptest.NewServer(s.Handler())
	defer srv.Close()

	c := &preview.Client{Server: srv.URL, Origin: "http://evil.example"}
	assert.Error(t, c.Run(context.Background()))
	assert.Equal(t, 0, s.Hub().Count())
}

func TestPidFile(t *testing.T) {
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())

	if filepath.Ext(PidFile()) != ".pid" {
		t.Errorf("PidFile should end in .pid, got %s", PidFile())
	}
	running, pid := IsRunning()
	if running || pid != 0 {
		t.Errorf("should not be running without PID file, got %v %d", running, pid)
	}

	if err := WritePid(); err != nil {
		t.Fatalf("WritePid: %v", err)
	}
	running, _ = IsRunning()
	if !running {
		t.Error("current process should be reported as running")
	}
	RemovePid()
}
