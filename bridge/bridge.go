// Package bridge replays in-browser console and error events to the host
// process's standard streams, grouped by browser identity.
package bridge

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"sync"

	"github.com/acarl005/stripansi"
	"github.com/ethereum/go-ethereum/log"
)

// Bridge is a reporter that decorates browser events with a per-browser
// header and normalizes payloads for readable output. Logs go to out,
// errors to errOut. Events are written in arrival order, never batched.
type Bridge struct {
	mu     sync.Mutex
	out    io.Writer
	errOut io.Writer
	seen   map[string]struct{}
	log    log.Logger
}

// New creates a bridge writing logs to out and errors to errOut.
func New(out, errOut io.Writer, logger log.Logger) *Bridge {
	return &Bridge{
		out:    out,
		errOut: errOut,
		seen:   make(map[string]struct{}),
		log:    logger,
	}
}

// OnBrowserLog replays a log event to standard output.
func (b *Bridge) OnBrowserLog(browser string, payload json.RawMessage) {
	b.emit(browser, payload, false)
}

// OnBrowserError replays an error event to standard error.
func (b *Bridge) OnBrowserError(browser string, payload json.RawMessage) {
	b.emit(browser, payload, true)
}

func (b *Bridge) emit(browser string, payload json.RawMessage, isError bool) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if _, ok := b.seen[browser]; !ok {
		b.seen[browser] = struct{}{}
		fmt.Fprintf(b.out, "\nBrowser: %s\n", browser)
	}

	w := b.out
	if isError {
		w = b.errOut
	}
	fmt.Fprintln(w, Normalize(payload))
}

// Normalize renders an event payload for human-readable output. Payloads
// arrive pre-serialized with one layer of quoting that must be removed:
// JSON strings are unwrapped, other JSON values are pretty-printed, and
// anything unparsable has its outer quote/bracket characters stripped.
func Normalize(payload json.RawMessage) string {
	var value any
	if err := json.Unmarshal(payload, &value); err != nil {
		return stripOuter(string(payload))
	}

	if s, ok := value.(string); ok {
		return stripansi.Strip(s)
	}

	pretty, err := json.MarshalIndent(value, "", "  ")
	if err != nil {
		return stripOuter(string(payload))
	}
	return string(pretty)
}

func stripOuter(s string) string {
	s = strings.TrimSpace(s)
	if len(s) >= 2 {
		first, last := s[0], s[len(s)-1]
		if (first == '"' && last == '"') ||
			(first == '\'' && last == '\'') ||
			(first == '[' && last == ']') {
			s = s[1 : len(s)-1]
		}
	}
	return stripansi.Strip(s)
}
