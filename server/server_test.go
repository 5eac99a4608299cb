package server

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/log"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingReporter struct {
	mu   sync.Mutex
	logs []string
	errs []string
}

func (r *recordingReporter) OnBrowserLog(browser string, payload json.RawMessage) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.logs = append(r.logs, browser+":"+string(payload))
}

func (r *recordingReporter) OnBrowserError(browser string, payload json.RawMessage) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.errs = append(r.errs, browser+":"+string(payload))
}

func startTestServer(t *testing.T, cfg *Config, onComplete CompleteFn, reporters ...Reporter) *Server {
	t.Helper()
	if cfg.Browsers == nil {
		cfg.Browsers = []string{"ChromeHeadless"}
	}
	s := NewServer(cfg, reporters, onComplete, log.New())
	require.NoError(t, s.Start(context.Background()))
	t.Cleanup(func() { _ = s.Stop(context.Background()) })
	return s
}

func TestServesHarnessAndClient(t *testing.T) {
	s := startTestServer(t, &Config{
		ServeFiles:  []string{"/lib/metatests.js"},
		StubModules: DefaultStubModules,
	}, nil)

	resp, err := http.Get(s.URL())
	require.NoError(t, err)
	defer resp.Body.Close()
	page, err := io.ReadAll(resp.Body)
	require.NoError(t, err)

	body := string(page)
	assert.Contains(t, body, `src="/client.js"`)
	assert.Contains(t, body, `src="/lib/metatests.js"`)
	assert.Contains(t, body, `src="/adapter.js"`)
	// Client comes before the adapter so the bridge exists first.
	assert.Less(t, strings.Index(body, "/client.js"), strings.Index(body, "/adapter.js"))

	resp, err = http.Get(s.URL() + "client.js")
	require.NoError(t, err)
	defer resp.Body.Close()
	script, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.Contains(t, string(script), `"child_process"`)
	assert.Contains(t, string(script), "window.__host__")
}

func TestServesLibraryBeforeOverlayAndAdapter(t *testing.T) {
	tmpDir := t.TempDir()
	libPath := filepath.Join(tmpDir, "metatests.min.js")
	require.NoError(t, os.WriteFile(libPath, []byte("window.metatests = {};"), 0o644))

	s := startTestServer(t, &Config{
		LibraryPath: libPath,
		ServeFiles:  []string{"/base/helper.js"},
	}, nil)

	resp, err := http.Get(s.URL())
	require.NoError(t, err)
	defer resp.Body.Close()
	page, err := io.ReadAll(resp.Body)
	require.NoError(t, err)

	body := string(page)
	assert.Contains(t, body, `src="/lib.js"`)
	// The library defines window.metatests for everything loaded after it.
	assert.Less(t, strings.Index(body, "/client.js"), strings.Index(body, "/lib.js"))
	assert.Less(t, strings.Index(body, "/lib.js"), strings.Index(body, "/base/helper.js"))
	assert.Less(t, strings.Index(body, "/base/helper.js"), strings.Index(body, "/adapter.js"))

	resp, err = http.Get(s.URL() + "lib.js")
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)
	content, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.Equal(t, "window.metatests = {};", string(content))
}

func TestHarnessOmitsLibraryWhenUnset(t *testing.T) {
	s := startTestServer(t, &Config{}, nil)

	resp, err := http.Get(s.URL())
	require.NoError(t, err)
	defer resp.Body.Close()
	page, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.NotContains(t, string(page), `src="/lib.js"`)
}

func TestServesAdapterThroughPreprocessors(t *testing.T) {
	tmpDir := t.TempDir()
	adapterPath := filepath.Join(tmpDir, "adapter.js")
	require.NoError(t, os.WriteFile(adapterPath, []byte("// adapter source"), 0o644))
	savedPath := filepath.Join(tmpDir, "saved", "adapter.js")

	s := startTestServer(t, &Config{
		AdapterPath: adapterPath,
		SaveAdapter: savedPath,
	}, nil)

	resp, err := http.Get(s.URL() + "adapter.js")
	require.NoError(t, err)
	defer resp.Body.Close()
	content, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.Equal(t, "// adapter source", string(content))

	saved, err := os.ReadFile(savedPath)
	require.NoError(t, err)
	assert.Equal(t, "// adapter source", string(saved))
}

func TestServesBaseFiles(t *testing.T) {
	tmpDir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(tmpDir, "a.js"), []byte("// test a"), 0o644))

	s := startTestServer(t, &Config{BasePath: tmpDir}, nil)

	resp, err := http.Get(s.URL() + "base/a.js")
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)
	content, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.Equal(t, "// test a", string(content))
}

func dialSocket(t *testing.T, s *Server) *websocket.Conn {
	t.Helper()
	wsURL := "ws" + strings.TrimPrefix(s.URL(), "http") + "socket"
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.Close() })
	return conn
}

func send(t *testing.T, conn *websocket.Conn, typ, browser string, payload any) {
	t.Helper()
	raw, err := json.Marshal(payload)
	require.NoError(t, err)
	msg, err := json.Marshal(map[string]any{"type": typ, "browser": browser, "payload": json.RawMessage(raw)})
	require.NoError(t, err)
	require.NoError(t, conn.WriteMessage(websocket.TextMessage, msg))
}

func TestEventDispatchAndCompletion(t *testing.T) {
	reporter := &recordingReporter{}
	codeCh := make(chan int, 1)
	s := startTestServer(t, &Config{Browsers: []string{"ChromeHeadless"}},
		func(code int) { codeCh <- code }, reporter)

	conn := dialSocket(t, s)
	send(t, conn, "register", "ChromeHeadless", nil)
	send(t, conn, "log", "ChromeHeadless", "hello from the browser")
	send(t, conn, "error", "ChromeHeadless", "boom")
	send(t, conn, "info", "ChromeHeadless", map[string]any{"total": 7})
	send(t, conn, "result", "ChromeHeadless", map[string]any{"success": false})
	send(t, conn, "complete", "ChromeHeadless", map[string]any{"exitCode": 1})

	select {
	case result := <-s.Completions():
		assert.Equal(t, "ChromeHeadless", result.Browser)
		assert.Equal(t, 1, result.Code)
		assert.Equal(t, 7, result.Total)
		assert.False(t, result.Success)
	case <-time.After(5 * time.Second):
		t.Fatal("timed out waiting for completion event")
	}

	select {
	case code := <-codeCh:
		assert.Equal(t, 1, code)
	case <-time.After(5 * time.Second):
		t.Fatal("timed out waiting for completion callback")
	}

	reporter.mu.Lock()
	defer reporter.mu.Unlock()
	require.Len(t, reporter.logs, 1)
	assert.Contains(t, reporter.logs[0], "hello from the browser")
	require.Len(t, reporter.errs, 1)
	assert.Contains(t, reporter.errs[0], "boom")
}

func TestCompletionAggregatesAllBrowsers(t *testing.T) {
	codeCh := make(chan int, 1)
	s := startTestServer(t, &Config{Browsers: []string{"ChromeHeadless", "FirefoxHeadless"}},
		func(code int) { codeCh <- code })

	conn := dialSocket(t, s)
	send(t, conn, "complete", "ChromeHeadless", map[string]any{"exitCode": 0})

	select {
	case <-codeCh:
		t.Fatal("completion callback fired before all browsers finished")
	case <-time.After(100 * time.Millisecond):
	}

	send(t, conn, "complete", "FirefoxHeadless", map[string]any{"exitCode": 0})

	select {
	case code := <-codeCh:
		assert.Equal(t, 0, code)
	case <-time.After(5 * time.Second):
		t.Fatal("timed out waiting for completion callback")
	}
}

func TestPortZeroAssignsEphemeralPort(t *testing.T) {
	s := startTestServer(t, &Config{}, nil)
	assert.NotContains(t, s.URL(), ":0/")
	assert.Equal(t, fmt.Sprintf("%s?id=Chrome", s.URL()), s.CaptureURL("Chrome"))
}
