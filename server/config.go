package server

import (
	"fmt"
)

// Config is the full browser-automation server configuration built by the
// orchestrator before session start.
type Config struct {
	Port        int      // Listening port
	Browsers    []string // Browser names expected to connect
	Concurrency int      // Simultaneous browser sessions (the orchestrator pins this to 1)
	SingleRun   bool     // Shut down after one run
	AutoWatch   bool     // File watching, always disabled by the orchestrator
	BasePath    string   // Root directory for served test files
	Files       []string // Resolved test files
	ServeFiles  []string // Extra script URLs included in the harness page before the adapter
	AdapterPath string   // On-disk location of the synthesized adapter
	LibraryPath string   // On-disk browser build of the test-runner library, served before the adapter
	SaveAdapter string   // Optional path persisting the post-processing adapter source
	StubModules []string // Host-process-only modules neutralized in the browser
	LogLevel    string   // Server-side log level hint

	// Extra holds advanced overrides from an external config overlay that
	// don't map onto a known field. They are carried, deep-merged, so a
	// later overlay can still refine them.
	Extra map[string]any
}

// DefaultStubModules is the fixed list of host-process-only module names
// neutralized when the unresolved-module policy is "ignore".
var DefaultStubModules = []string{
	"fs", "path", "os", "util", "events", "child_process",
	"crypto", "net", "tls", "http", "https", "zlib", "stream",
	"worker_threads", "readline", "vm",
}

// Merge deep-merges an external overlay (a parsed karma-style config file)
// over the synthesized configuration. Known keys override the corresponding
// fields; everything else lands in Extra. The overlay always wins.
func (c *Config) Merge(overlay map[string]any) error {
	for key, value := range overlay {
		switch key {
		case "port":
			n, err := asInt(value)
			if err != nil {
				return fmt.Errorf("overlay key %q: %w", key, err)
			}
			c.Port = n
		case "concurrency":
			n, err := asInt(value)
			if err != nil {
				return fmt.Errorf("overlay key %q: %w", key, err)
			}
			c.Concurrency = n
		case "singleRun":
			b, ok := value.(bool)
			if !ok {
				return fmt.Errorf("overlay key %q: expected bool, got %T", key, value)
			}
			c.SingleRun = b
		case "autoWatch":
			b, ok := value.(bool)
			if !ok {
				return fmt.Errorf("overlay key %q: expected bool, got %T", key, value)
			}
			c.AutoWatch = b
		case "basePath":
			s, ok := value.(string)
			if !ok {
				return fmt.Errorf("overlay key %q: expected string, got %T", key, value)
			}
			c.BasePath = s
		case "logLevel":
			s, ok := value.(string)
			if !ok {
				return fmt.Errorf("overlay key %q: expected string, got %T", key, value)
			}
			c.LogLevel = s
		case "browsers":
			list, err := asStringSlice(value)
			if err != nil {
				return fmt.Errorf("overlay key %q: %w", key, err)
			}
			c.Browsers = list
		case "files":
			list, err := asStringSlice(value)
			if err != nil {
				return fmt.Errorf("overlay key %q: %w", key, err)
			}
			c.ServeFiles = append(c.ServeFiles, list...)
		default:
			if c.Extra == nil {
				c.Extra = make(map[string]any)
			}
			c.Extra[key] = deepMerge(c.Extra[key], value)
		}
	}
	return nil
}

// deepMerge merges src over dst; maps merge recursively, everything else
// is replaced by src.
func deepMerge(dst, src any) any {
	dstMap, dstOK := dst.(map[string]any)
	srcMap, srcOK := src.(map[string]any)
	if !dstOK || !srcOK {
		return src
	}
	out := make(map[string]any, len(dstMap)+len(srcMap))
	for k, v := range dstMap {
		out[k] = v
	}
	for k, v := range srcMap {
		out[k] = deepMerge(out[k], v)
	}
	return out
}

func asInt(v any) (int, error) {
	switch n := v.(type) {
	case int:
		return n, nil
	case int64:
		return int(n), nil
	case float64:
		return int(n), nil
	default:
		return 0, fmt.Errorf("expected number, got %T", v)
	}
}

func asStringSlice(v any) ([]string, error) {
	list, ok := v.([]any)
	if !ok {
		return nil, fmt.Errorf("expected list, got %T", v)
	}
	out := make([]string, 0, len(list))
	for _, item := range list {
		s, ok := item.(string)
		if !ok {
			return nil, fmt.Errorf("expected string list element, got %T", item)
		}
		out = append(out, s)
	}
	return out, nil
}
