package types

import (
	"strings"
	"time"
)

// TestStatus represents the possible states of a browser test session
type TestStatus string

const (
	TestStatusPass  TestStatus = "pass"
	TestStatusFail  TestStatus = "fail"
	TestStatusError TestStatus = "error"
)

// LogLevel controls host-side logging verbosity and the adapter's in-browser
// quiet behavior. Levels are totally ordered: quiet < default < warn < info < debug.
type LogLevel string

const (
	LogLevelQuiet   LogLevel = "quiet"
	LogLevelDefault LogLevel = "default"
	LogLevelWarn    LogLevel = "warn"
	LogLevelInfo    LogLevel = "info"
	LogLevelDebug   LogLevel = "debug"
)

// ParseLogLevel maps a user-supplied level name to a LogLevel.
// Unrecognized input falls back to LogLevelDefault.
func ParseLogLevel(s string) LogLevel {
	switch LogLevel(strings.ToLower(strings.TrimSpace(s))) {
	case LogLevelQuiet:
		return LogLevelQuiet
	case LogLevelDefault, "error":
		return LogLevelDefault
	case LogLevelWarn:
		return LogLevelWarn
	case LogLevelInfo:
		return LogLevelInfo
	case LogLevelDebug:
		return LogLevelDebug
	default:
		return LogLevelDefault
	}
}

// Verbosity returns the level's position in the verbosity order,
// with quiet being the lowest.
func (l LogLevel) Verbosity() int {
	switch l {
	case LogLevelQuiet:
		return 0
	case LogLevelDefault:
		return 1
	case LogLevelWarn:
		return 2
	case LogLevelInfo:
		return 3
	case LogLevelDebug:
		return 4
	default:
		return 1
	}
}

// Reporter names the in-browser result reporter.
type Reporter string

const (
	ReporterDefault Reporter = "default"
	ReporterConcise Reporter = "concise"
	ReporterTap     Reporter = "tap"

	tapVariantPrefix = "tap-"
)

// ParseReporter maps a user-supplied reporter name to a Reporter.
// The tap family accepts an optional variant suffix ("tap-<variant>").
// Unrecognized input falls back to ReporterDefault.
func ParseReporter(s string) Reporter {
	name := strings.ToLower(strings.TrimSpace(s))
	switch {
	case name == string(ReporterConcise):
		return ReporterConcise
	case name == string(ReporterTap) || strings.HasPrefix(name, tapVariantPrefix):
		return Reporter(name)
	default:
		return ReporterDefault
	}
}

// IsTap reports whether the reporter belongs to the tap family.
func (r Reporter) IsTap() bool {
	return r == ReporterTap || strings.HasPrefix(string(r), tapVariantPrefix)
}

// TapVariant returns the variant suffix of a tap-family reporter
// ("mocha" for "tap-mocha") or the empty string for plain "tap".
func (r Reporter) TapVariant() string {
	if !r.IsTap() {
		return ""
	}
	return strings.TrimPrefix(strings.TrimPrefix(string(r), string(ReporterTap)), "-")
}

// UnresolvedModulePolicy decides what happens to host-process-only modules
// referenced by test code when running in a browser.
type UnresolvedModulePolicy string

const (
	// UnresolvedModuleIgnore neutralizes host-only modules with empty stubs.
	UnresolvedModuleIgnore UnresolvedModulePolicy = "ignore"
	// UnresolvedModuleFail leaves resolution errors to surface in the browser.
	UnresolvedModuleFail UnresolvedModulePolicy = "fail"
)

// ParseUnresolvedModulePolicy maps a user-supplied policy name to a policy.
// Unrecognized input falls back to UnresolvedModuleIgnore.
func ParseUnresolvedModulePolicy(s string) UnresolvedModulePolicy {
	if UnresolvedModulePolicy(strings.ToLower(strings.TrimSpace(s))) == UnresolvedModuleFail {
		return UnresolvedModuleFail
	}
	return UnresolvedModuleIgnore
}

// BrowserResult captures the outcome of a single browser session.
type BrowserResult struct {
	Browser  string
	Status   TestStatus
	Total    int           // Total tests reported by the in-browser runner
	Failures int           // Failing tests reported by the in-browser runner
	ExitCode int           // Code delivered through the completion callback
	Duration time.Duration // Wall-clock session time, launch to completion
	Error    error         // Session-level fault, if any
}

// StatusFromExitCode derives a session status from a completion code.
func StatusFromExitCode(code int) TestStatus {
	if code == 0 {
		return TestStatusPass
	}
	return TestStatusFail
}
