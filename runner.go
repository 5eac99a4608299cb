// Package runner orchestrates cross-environment test runs: it resolves the
// run configuration, synthesizes the in-browser adapter, manages the test
// server and browser sessions, and maps the outcome to a process exit code.
package runner

import (
	"context"
	"errors"
	"fmt"
	"os"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/ethereum-optimism/optimism/op-service/cliapp"

	"github.com/metarhia/metatests-browser-runner/adapter"
	"github.com/metarhia/metatests-browser-runner/artifacts"
	"github.com/metarhia/metatests-browser-runner/bridge"
	"github.com/metarhia/metatests-browser-runner/exitcodes"
	"github.com/metarhia/metatests-browser-runner/launcher"
	"github.com/metarhia/metatests-browser-runner/metrics"
	"github.com/metarhia/metatests-browser-runner/server"
	"github.com/metarhia/metatests-browser-runner/service"
	"github.com/metarhia/metatests-browser-runner/types"
)

// CaptureTimeout bounds how long a launched browser may take to connect,
// run the suite and deliver its completion event, on top of the configured
// exit-timeout grace period.
const CaptureTimeout = 60 * time.Second

// Runner implements the cliapp.Lifecycle interface.
var _ cliapp.Lifecycle = (*Runner)(nil)

// Runner is the browser test orchestrator.
type Runner struct {
	ctx       context.Context
	config    *Config
	version   string
	runID     string
	launchers []launcher.Launcher
	results   []types.BrowserResult

	monitoring *service.Service

	running atomic.Bool
	done    chan struct{}
	wg      sync.WaitGroup

	shutdownCallback func(error) // Callback to signal application shutdown
}

// New validates the configuration against the launcher registry and creates
// the orchestrator. An unknown browser name is rejected here, before any
// session could start.
func New(ctx context.Context, config *Config, version string, shutdownCallback func(error)) (*Runner, error) {
	if config == nil {
		return nil, errors.New("config is required")
	}

	config.Log.Debug("Creating runner with config",
		"files", len(config.Files),
		"browsers", config.Browser.Browsers,
		"reporter", config.Reporter,
		"runTodo", config.RunTodo,
		"exitTimeout", config.ExitTimeout)

	launchers := make([]launcher.Launcher, 0, len(config.Browser.Browsers))
	for _, name := range config.Browser.Browsers {
		l, err := launcher.Lookup(name)
		if err != nil {
			return nil, NewConfigError(err)
		}
		launchers = append(launchers, l)
	}

	return &Runner{
		ctx:              ctx,
		config:           config,
		version:          version,
		runID:            uuid.New().String(),
		launchers:        launchers,
		done:             make(chan struct{}),
		shutdownCallback: shutdownCallback,
	}, nil
}

// Start runs the whole session once and reports the outcome through the
// returned error. Start implements the cliapp.Lifecycle interface.
func (r *Runner) Start(ctx context.Context) error {
	r.ctx = ctx
	r.done = make(chan struct{})
	r.running.Store(true)

	if r.config.Monitoring {
		r.monitoring = service.New()
		r.monitoring.Start(ctx)
	}

	r.config.Log.Info("Starting browser test run",
		"run_id", r.runID,
		"files", len(r.config.Files),
		"browsers", r.config.Browser.Browsers)

	start := time.Now()
	err := r.run(ctx)
	duration := time.Since(start)

	if err != nil {
		metrics.RecordRun(r.runID, string(types.TestStatusError), duration)
		return err
	}

	printResultsTable(r.results, duration)
	fmt.Println(summaryString(r.results, duration))

	status := overallStatus(r.results)
	metrics.RecordRun(r.runID, string(status), duration)
	r.config.Log.Info("Test run completed", "run_id", r.runID, "status", status)

	if status != types.TestStatusPass {
		code := exitcodeOf(r.results)
		return NewSessionError(code, fmt.Errorf("%d of %d browser session(s) failed",
			failedCount(r.results), len(r.results)))
	}

	// All sessions passed; trigger shutdown and exit 0.
	go func() {
		r.shutdownCallback(nil)
	}()
	return nil
}

// run owns the artifact lifecycle: the build directory exists only between
// this function's start and return, whatever the outcome.
func (r *Runner) run(ctx context.Context) error {
	src, err := adapter.Source(adapter.Options{
		Files:       r.config.Files,
		LogLevel:    r.config.LogLevel,
		Reporter:    r.config.Reporter,
		RunTodo:     r.config.RunTodo,
		ExitTimeout: r.config.ExitTimeout,
	})
	if err != nil {
		return fmt.Errorf("synthesizing adapter: %w", err)
	}

	arts, err := artifacts.Prepare("", []byte(src), r.config.Log)
	if err != nil {
		return NewConfigError(err)
	}
	defer arts.Cleanup()

	srvCfg := r.config.Browser.Server
	srvCfg.AdapterPath = arts.AdapterPath

	eventBridge := bridge.New(os.Stdout, os.Stderr, r.config.Log)
	srv := server.NewServer(srvCfg, []server.Reporter{eventBridge}, nil, r.config.Log)
	if err := srv.Start(ctx); err != nil {
		return NewSessionError(exitcodes.Failure, err)
	}
	defer func() {
		stopCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := srv.Stop(stopCtx); err != nil {
			r.config.Log.Debug("Error stopping test server", "error", err)
		}
	}()

	// One browser at a time: unambiguous event attribution, no port or
	// profile contention between engines.
	for _, l := range r.launchers {
		result := r.runBrowser(ctx, l, srv)
		r.results = append(r.results, result)
		metrics.RecordBrowserSession(result.Browser, r.runID, result.Total,
			result.Status != types.TestStatusPass)
	}
	return nil
}

// runBrowser drives a single browser session to completion.
func (r *Runner) runBrowser(ctx context.Context, l launcher.Launcher, srv *server.Server) types.BrowserResult {
	start := time.Now()
	result := types.BrowserResult{Browser: l.Name}

	sess, err := l.Launch(ctx, srv.CaptureURL(l.Name), r.config.Log)
	if err != nil {
		r.config.Log.Error("Failed to launch browser", "browser", l.Name, "error", err)
		result.Status = types.TestStatusError
		result.ExitCode = exitcodes.Failure
		result.Error = err
		result.Duration = time.Since(start)
		return result
	}
	defer sess.Stop()

	deadline := CaptureTimeout + r.config.ExitTimeout
	timer := time.NewTimer(deadline)
	defer timer.Stop()

	for {
		select {
		case completion := <-srv.Completions():
			if completion.Browser != l.Name {
				// Stale event from an earlier session; drop it.
				r.config.Log.Debug("Ignoring completion for inactive browser",
					"browser", completion.Browser)
				continue
			}
			result.Status = types.StatusFromExitCode(completion.Code)
			result.ExitCode = completion.Code
			result.Total = completion.Total
			result.Duration = time.Since(start)
			return result

		case <-timer.C:
			r.config.Log.Error("Browser session timed out", "browser", l.Name, "after", deadline)
			result.Status = types.TestStatusError
			result.ExitCode = exitcodes.Failure
			result.Error = fmt.Errorf("session timed out after %s", deadline)
			result.Duration = time.Since(start)
			return result

		case <-ctx.Done():
			result.Status = types.TestStatusError
			result.ExitCode = exitcodes.Failure
			result.Error = ctx.Err()
			result.Duration = time.Since(start)
			return result
		}
	}
}

func failedCount(results []types.BrowserResult) int {
	n := 0
	for _, r := range results {
		if r.Status != types.TestStatusPass {
			n++
		}
	}
	return n
}

// exitcodeOf returns the first non-zero session code.
func exitcodeOf(results []types.BrowserResult) int {
	for _, r := range results {
		if r.ExitCode != 0 {
			return r.ExitCode
		}
	}
	return 0
}

// Results returns the per-browser session results of the last run.
func (r *Runner) Results() []types.BrowserResult {
	return r.results
}

// Stop stops the runner service.
// Stop implements the cliapp.Lifecycle interface.
func (r *Runner) Stop(ctx context.Context) error {
	r.config.Log.Info("Stopping runner")

	if !r.running.Load() {
		r.config.Log.Debug("Service already stopped, nothing to do")
		return nil
	}

	r.running.Store(false)
	close(r.done)

	if r.monitoring != nil {
		r.monitoring.Shutdown()
	}

	r.config.Log.Info("Runner stopped successfully")
	return nil
}

// Stopped returns true if the runner service is stopped.
// Stopped implements the cliapp.Lifecycle interface.
func (r *Runner) Stopped() bool {
	return !r.running.Load()
}

// WaitForShutdown blocks until all goroutines have terminated.
// This is useful in tests to ensure complete cleanup before moving to the next test.
func (r *Runner) WaitForShutdown(ctx context.Context) error {
	done := make(chan struct{})
	go func() {
		r.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		r.config.Log.Warn("Timed out waiting for goroutines to terminate", "error", ctx.Err())
		return ctx.Err()
	}
}
