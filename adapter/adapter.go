// Package adapter synthesizes the bootstrap script executed inside the
// target browser. The script loads the test-runner library, applies the
// run-time options, requires each resolved test file and signals completion
// back to the host bridge after a grace period.
package adapter

import (
	"encoding/json"
	"fmt"
	"strings"
	"text/template"
	"time"

	"github.com/metarhia/metatests-browser-runner/types"
)

// Kind identifies one statement in the generated bootstrap program.
type Kind int

const (
	// KindDisableAutoStart turns off the client's automatic start hook;
	// the orchestrator controls start/stop explicitly.
	KindDisableAutoStart Kind = iota
	// KindPolyfill installs language runtime features absent in older browsers.
	KindPolyfill
	// KindProcessShim neutralizes host-process globals the test-runner
	// library touches when it runs outside a real process.
	KindProcessShim
	// KindCompletionListener loads the runner library and registers the
	// finish listener that reports back through the host bridge.
	KindCompletionListener
	// KindQuietReporter suppresses the runner's default reporter.
	KindQuietReporter
	// KindTapReporter installs a TAP-style reporter, optionally with a variant.
	KindTapReporter
	// KindConciseReporter installs the condensed reporter.
	KindConciseReporter
	// KindTodoMode switches the runner into todo-inclusive mode.
	KindTodoMode
	// KindLoad requires a single resolved test file.
	KindLoad
)

// Statement is one record of the ordered bootstrap program.
type Statement struct {
	Kind    Kind
	Variant string        // tap reporter sub-option
	Path    string        // load target
	Timeout time.Duration // completion grace period
}

// Options carries the run-time options the adapter applies in the browser.
type Options struct {
	Files       []string
	LogLevel    types.LogLevel
	Reporter    types.Reporter
	RunTodo     bool
	ExitTimeout time.Duration
}

// Plan builds the ordered statement list for the given options. The order is
// load-bearing: polyfills and shims must precede any library use, and the
// completion listener must be registered before any test file that might
// complete synchronously.
func Plan(opts Options) []Statement {
	stmts := []Statement{
		{Kind: KindDisableAutoStart},
		{Kind: KindPolyfill},
		{Kind: KindProcessShim},
		{Kind: KindCompletionListener, Timeout: opts.ExitTimeout},
	}

	switch {
	case opts.LogLevel == types.LogLevelQuiet:
		stmts = append(stmts, Statement{Kind: KindQuietReporter})
	case opts.Reporter.IsTap():
		stmts = append(stmts, Statement{Kind: KindTapReporter, Variant: opts.Reporter.TapVariant()})
	case opts.Reporter == types.ReporterConcise:
		stmts = append(stmts, Statement{Kind: KindConciseReporter})
	}

	if opts.RunTodo {
		stmts = append(stmts, Statement{Kind: KindTodoMode})
	}

	for _, file := range opts.Files {
		stmts = append(stmts, Statement{Kind: KindLoad, Path: file})
	}
	return stmts
}

// Source synthesizes the adapter program for the given options.
func Source(opts Options) (string, error) {
	return Render(Plan(opts))
}

const header = `// Generated by metatests-browser-runner. Do not edit.
'use strict';
`

var snippets = map[Kind]string{
	KindDisableAutoStart: `window.__host__.loaded = function () {};`,

	KindPolyfill: `if (typeof Object.assign !== 'function') {
  Object.assign = function (target) {
    for (var i = 1; i < arguments.length; i++) {
      var source = arguments[i];
      if (source === null || source === undefined) continue;
      for (var key in source) {
        if (Object.prototype.hasOwnProperty.call(source, key)) {
          target[key] = source[key];
        }
      }
    }
    return target;
  };
}
if (typeof Number.isInteger !== 'function') {
  Number.isInteger = function (value) {
    return typeof value === 'number' && isFinite(value) &&
      Math.floor(value) === value;
  };
}`,

	KindProcessShim: `if (typeof window.process === 'undefined') window.process = {};
process.version = process.version || 'v0.0.0';
process.versions = process.versions || { node: '0.0.0' };
(function () {
  var buffer = '';
  process.stdout = {
    write: function (chunk) {
      buffer += String(chunk);
      var index = buffer.indexOf('\n');
      while (index !== -1) {
        console.log(buffer.slice(0, index));
        buffer = buffer.slice(index + 1);
        index = buffer.indexOf('\n');
      }
      return true;
    }
  };
})();`,

	KindCompletionListener: `var metatests = require('metatests');
metatests.runner.instance.on('finish', function (hasFailures) {
  setTimeout(function () {
    window.__host__.info({ total: metatests.runner.instance.testsCount || 0 });
    window.__host__.result({ success: !hasFailures });
    window.__host__.complete({ exitCode: hasFailures ? 1 : 0 });
  }, {{.TimeoutMs}});
});`,

	KindQuietReporter: `metatests.runner.instance.removeReporter();`,

	KindTapReporter: `metatests.runner.instance.setReporter(
  new metatests.reporters.TapReporter({{if .Variant}}{ type: {{js .Variant}} }{{end}}));`,

	KindConciseReporter: `metatests.runner.instance.setReporter(
  new metatests.reporters.ConciseReporter());`,

	KindTodoMode: `metatests.runner.instance.runTodo = true;`,

	KindLoad: `require({{js .Path}});`,
}

var templates = func() map[Kind]*template.Template {
	funcs := template.FuncMap{
		// js renders a value as a JavaScript literal.
		"js": func(v any) (string, error) {
			b, err := json.Marshal(v)
			return string(b), err
		},
	}
	out := make(map[Kind]*template.Template, len(snippets))
	for kind, text := range snippets {
		out[kind] = template.Must(template.New(fmt.Sprintf("stmt-%d", kind)).Funcs(funcs).Parse(text))
	}
	return out
}()

// statementData is the template payload for one statement.
type statementData struct {
	Variant   string
	Path      string
	TimeoutMs int64
}

// Render turns an ordered statement list into standalone program source.
func Render(stmts []Statement) (string, error) {
	var b strings.Builder
	b.WriteString(header)

	for _, stmt := range stmts {
		tmpl, ok := templates[stmt.Kind]
		if !ok {
			return "", fmt.Errorf("unknown adapter statement kind %d", stmt.Kind)
		}
		data := statementData{
			Variant:   stmt.Variant,
			Path:      stmt.Path,
			TimeoutMs: stmt.Timeout.Milliseconds(),
		}
		b.WriteByte('\n')
		if err := tmpl.Execute(&b, data); err != nil {
			return "", fmt.Errorf("rendering adapter statement: %w", err)
		}
		b.WriteByte('\n')
	}
	return b.String(), nil
}
