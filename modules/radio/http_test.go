package radio

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zachfi/radiogo/pkg/probe"
)

func writePublic(t *testing.T) string {
	t.Helper()

	dir := t.TempDir()
	files := map[string]string{
		"home/index.html":       "<h1>home</h1>",
		"controller/index.html": "<h1>controller</h1>",
		"home/css/style.css":    "body {}",
	}
	for name, content := range files {
		full := filepath.Join(dir, filepath.FromSlash(name))
		require.NoError(t, os.MkdirAll(filepath.Dir(full), 0o755))
		require.NoError(t, os.WriteFile(full, []byte(content), 0o644))
	}

	return dir
}

func newTestServer(t *testing.T, cfg Config) (*Radio, *httptest.Server) {
	t.Helper()

	cfg.PublicDir = writePublic(t)
	cfg.HomePage = "home/index.html"
	cfg.ControllerPage = "controller/index.html"

	r, err := New(cfg, *testLogger(), prometheus.NewRegistry())
	require.NoError(t, err)
	r.controller.prober = &fakeProber{res: probe.Result{BitrateBps: 80000}}

	router := mux.NewRouter()
	RegisterRoutes(router, r, *r.cfg, testLogger())

	srv := httptest.NewServer(router)
	t.Cleanup(func() {
		srv.Close()
		r.Stop()
	})

	return r, srv
}

func noRedirect(*http.Request, []*http.Request) error {
	return http.ErrUseLastResponse
}

func TestHTTP_RootRedirects(t *testing.T) {
	_, srv := newTestServer(t, Config{})

	client := &http.Client{CheckRedirect: noRedirect}
	resp, err := client.Get(srv.URL + "/")
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusFound, resp.StatusCode)
	assert.Equal(t, "/home", resp.Header.Get("Location"))
}

func TestHTTP_Pages(t *testing.T) {
	_, srv := newTestServer(t, Config{})

	for path, want := range map[string]string{
		"/home":               "<h1>home</h1>",
		"/controller":         "<h1>controller</h1>",
		"/home/css/style.css": "body {}",
	} {
		resp, err := http.Get(srv.URL + path)
		require.NoError(t, err)
		body, err := io.ReadAll(resp.Body)
		resp.Body.Close()
		require.NoError(t, err)

		assert.Equal(t, http.StatusOK, resp.StatusCode, path)
		assert.Equal(t, want, string(body), path)
	}
}

func TestHTTP_AssetContentType(t *testing.T) {
	_, srv := newTestServer(t, Config{})

	resp, err := http.Get(srv.URL + "/home/css/style.css")
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.True(t, strings.HasPrefix(resp.Header.Get("Content-Type"), "text/css"))
}

func TestHTTP_AssetNotFound(t *testing.T) {
	_, srv := newTestServer(t, Config{})

	for _, path := range []string{"/missing.js", "/home/css", "/home/nothing-here"} {
		resp, err := http.Get(srv.URL + path)
		require.NoError(t, err)
		resp.Body.Close()
		assert.Equal(t, http.StatusNotFound, resp.StatusCode, path)
	}
}

func TestHTTP_StartCommand(t *testing.T) {
	r, srv := newTestServer(t, Config{Source: writeSource(t, 100000), ChunkSize: 100})

	resp, err := http.Post(srv.URL+"/controller", "application/json", strings.NewReader(`{"command":"START"}`))
	require.NoError(t, err)
	body, _ := io.ReadAll(resp.Body)
	resp.Body.Close()

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.JSONEq(t, `{"result":"ok"}`, string(body))
	assert.Equal(t, StateStreaming, r.Session().State)

	resp, err = http.Post(srv.URL+"/controller", "application/json", strings.NewReader(`{"command":"stop"}`))
	require.NoError(t, err)
	resp.Body.Close()

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, StateStopped, r.Session().State)
}

func TestHTTP_CommandErrors(t *testing.T) {
	_, srv := newTestServer(t, Config{Source: "/definitely/not/here.mp3"})

	resp, err := http.Post(srv.URL+"/controller", "application/json", strings.NewReader(`{"command":"dance"}`))
	require.NoError(t, err)
	body, _ := io.ReadAll(resp.Body)
	resp.Body.Close()
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.JSONEq(t, `{"result":"unrecognized command"}`, string(body))

	resp, err = http.Post(srv.URL+"/controller", "application/json", strings.NewReader(`not json`))
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp, err = http.Post(srv.URL+"/controller", "application/json", strings.NewReader(`{"command":"start"}`))
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestHTTP_StreamDeliversBroadcast(t *testing.T) {
	r, srv := newTestServer(t, Config{Source: writeSource(t, 100000), ChunkSize: 100})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, srv.URL+"/stream", nil)
	require.NoError(t, err)

	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "audio/mpeg", resp.Header.Get("Content-Type"))
	assert.Equal(t, "bytes", resp.Header.Get("Accept-Ranges"))

	require.Eventually(t, func() bool {
		return r.registry.Len() == 1
	}, time.Second, 10*time.Millisecond)

	require.NoError(t, r.Start(context.Background()))

	buf := make([]byte, 200)
	_, err = io.ReadFull(resp.Body, buf)
	require.NoError(t, err)
	for i, b := range buf {
		require.Equal(t, byte(i), b)
	}

	cancel()

	require.Eventually(t, func() bool {
		return r.registry.Len() == 0
	}, 2*time.Second, 10*time.Millisecond)
}
