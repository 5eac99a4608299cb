// Package server implements the browser-automation test server: it serves
// the harness page, the client bridge, the preprocessed adapter and the test
// files, and carries browser events back to the host over a websocket.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"path/filepath"
	"sync"

	"github.com/ethereum/go-ethereum/log"
	"github.com/gorilla/mux"
	"github.com/gorilla/websocket"
)

// CompleteFn receives the aggregate session exit code exactly once, after
// every expected browser has delivered its completion event.
type CompleteFn func(code int)

// Reporter receives per-browser log and error events in arrival order.
type Reporter interface {
	OnBrowserLog(browser string, payload json.RawMessage)
	OnBrowserError(browser string, payload json.RawMessage)
}

// Result is the terminal outcome of one browser session.
type Result struct {
	Browser string
	Code    int
	Total   int
	Success bool
}

// message is the wire format of browser-to-host events.
type message struct {
	Type    string          `json:"type"`
	Browser string          `json:"browser"`
	Payload json.RawMessage `json:"payload"`
}

// Server is the browser-automation test server.
type Server struct {
	cfg        *Config
	onComplete CompleteFn
	reporters  []Reporter
	log        log.Logger

	httpSrv  *http.Server
	listener net.Listener
	upgrader websocket.Upgrader

	adapterOnce sync.Once
	adapter     []byte
	adapterErr  error
	preprocess  Preprocessor

	mu          sync.Mutex
	totals      map[string]int
	done        map[string]Result
	completions chan Result
	finishOnce  sync.Once
}

// NewServer creates a server for cfg. Events reach reporters as they arrive;
// onComplete fires once with the aggregate exit code.
func NewServer(cfg *Config, reporters []Reporter, onComplete CompleteFn, logger log.Logger) *Server {
	var steps []Preprocessor
	if cfg.SaveAdapter != "" {
		steps = append(steps, SaveAdapter(cfg.SaveAdapter))
	}

	return &Server{
		cfg:         cfg,
		onComplete:  onComplete,
		reporters:   reporters,
		log:         logger,
		preprocess:  Chain(steps...),
		upgrader:    websocket.Upgrader{},
		totals:      make(map[string]int),
		done:        make(map[string]Result),
		completions: make(chan Result, len(cfg.Browsers)+1),
	}
}

// Start binds the configured port and serves in the background. A bind
// failure is returned synchronously so the run can abort before any
// browser is launched.
func (s *Server) Start(ctx context.Context) error {
	addr := fmt.Sprintf("127.0.0.1:%d", s.cfg.Port)
	listener, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("binding test server to %s: %w", addr, err)
	}
	s.listener = listener

	r := mux.NewRouter()
	r.HandleFunc("/", s.handleHarness).Methods(http.MethodGet)
	r.HandleFunc("/client.js", s.handleClient).Methods(http.MethodGet)
	r.HandleFunc("/adapter.js", s.handleAdapter).Methods(http.MethodGet)
	if s.cfg.LibraryPath != "" {
		r.HandleFunc("/lib.js", s.handleLibrary).Methods(http.MethodGet)
	}
	r.PathPrefix("/base/").HandlerFunc(s.handleFile).Methods(http.MethodGet)
	r.HandleFunc("/socket", s.handleSocket)

	s.httpSrv = &http.Server{Handler: r}
	go func() {
		if err := s.httpSrv.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.log.Error("Test server stopped unexpectedly", "error", err)
		}
	}()

	s.log.Debug("Test server started", "url", s.URL())
	return nil
}

// Stop shuts the server down.
func (s *Server) Stop(ctx context.Context) error {
	if s.httpSrv == nil {
		return nil
	}
	return s.httpSrv.Shutdown(ctx)
}

// URL returns the harness base URL.
func (s *Server) URL() string {
	return fmt.Sprintf("http://%s/", s.listener.Addr().String())
}

// CaptureURL returns the URL a specific browser is pointed at.
func (s *Server) CaptureURL(browser string) string {
	return fmt.Sprintf("%s?id=%s", s.URL(), browser)
}

// Completions delivers one Result per browser session as it finishes.
func (s *Server) Completions() <-chan Result {
	return s.completions
}

func (s *Server) handleHarness(w http.ResponseWriter, r *http.Request) {
	page, err := renderHarness(s.cfg)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	_, _ = w.Write(page)
}

func (s *Server) handleClient(w http.ResponseWriter, r *http.Request) {
	script, err := renderClient(s.cfg)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/javascript")
	_, _ = w.Write(script)
}

func (s *Server) handleAdapter(w http.ResponseWriter, r *http.Request) {
	s.adapterOnce.Do(func() {
		content, err := os.ReadFile(s.cfg.AdapterPath)
		if err != nil {
			s.adapterErr = fmt.Errorf("reading adapter: %w", err)
			return
		}
		s.adapter, s.adapterErr = s.preprocess(content, s.cfg.AdapterPath)
	})
	if s.adapterErr != nil {
		http.Error(w, s.adapterErr.Error(), http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/javascript")
	_, _ = w.Write(s.adapter)
}

func (s *Server) handleLibrary(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/javascript")
	http.ServeFile(w, r, s.cfg.LibraryPath)
}

func (s *Server) handleFile(w http.ResponseWriter, r *http.Request) {
	rel := filepath.Clean(r.URL.Path[len("/base/"):])
	path := rel
	if !filepath.IsAbs(path) {
		path = filepath.Join(s.cfg.BasePath, rel)
	}
	http.ServeFile(w, r, path)
}

func (s *Server) handleSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.log.Debug("Websocket upgrade failed", "error", err)
		return
	}
	defer conn.Close()

	browser := r.URL.Query().Get("id")
	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			return
		}
		var msg message
		if err := json.Unmarshal(data, &msg); err != nil {
			s.log.Debug("Discarding malformed browser event", "error", err)
			continue
		}
		if msg.Browser != "" {
			browser = msg.Browser
		}
		s.dispatch(browser, msg)
	}
}

func (s *Server) dispatch(browser string, msg message) {
	switch msg.Type {
	case "register":
		s.log.Debug("Browser connected", "browser", browser)
	case "log":
		for _, r := range s.reporters {
			r.OnBrowserLog(browser, msg.Payload)
		}
	case "error":
		for _, r := range s.reporters {
			r.OnBrowserError(browser, msg.Payload)
		}
	case "info":
		var info struct {
			Total int `json:"total"`
		}
		if err := json.Unmarshal(msg.Payload, &info); err == nil {
			s.mu.Lock()
			s.totals[browser] = info.Total
			s.mu.Unlock()
		}
	case "result":
		// Aggregate result precedes complete; nothing to track beyond the
		// per-browser totals, the exit code arrives with complete.
	case "complete":
		var payload struct {
			ExitCode int `json:"exitCode"`
		}
		if err := json.Unmarshal(msg.Payload, &payload); err != nil {
			payload.ExitCode = 1
		}
		s.finishBrowser(browser, payload.ExitCode)
	default:
		s.log.Debug("Unknown browser event", "browser", browser, "type", msg.Type)
	}
}

func (s *Server) finishBrowser(browser string, code int) {
	s.mu.Lock()
	if _, already := s.done[browser]; already {
		s.mu.Unlock()
		return
	}
	result := Result{
		Browser: browser,
		Code:    code,
		Total:   s.totals[browser],
		Success: code == 0,
	}
	s.done[browser] = result
	finished := len(s.done)
	s.mu.Unlock()

	s.completions <- result

	if finished >= len(s.cfg.Browsers) {
		s.finish()
	}
}

func (s *Server) finish() {
	s.finishOnce.Do(func() {
		code := 0
		s.mu.Lock()
		for _, result := range s.done {
			if result.Code != 0 && code == 0 {
				code = result.Code
			}
		}
		s.mu.Unlock()
		if s.onComplete != nil {
			s.onComplete(code)
		}
	})
}
