// Package exitcodes defines the standard exit codes used by the browser runner.
package exitcodes

// Exit code constants used by metatests-browser-runner
//
// * Success (0): all tests passed in every requested browser
// * Failure (1): configuration errors (no test files, missing file,
//   unsupported browser) or at least one failing test
//
// Any other value is the code delivered by the browser session's
// completion callback and is passed through unchanged.
const (
	Success = 0
	Failure = 1
)
