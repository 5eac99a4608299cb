package types

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParseLogLevel(t *testing.T) {
	tests := []struct {
		input    string
		expected LogLevel
	}{
		{"quiet", LogLevelQuiet},
		{"default", LogLevelDefault},
		{"error", LogLevelDefault},
		{"warn", LogLevelWarn},
		{"info", LogLevelInfo},
		{"debug", LogLevelDebug},
		{" DEBUG ", LogLevelDebug},
		{"chatty", LogLevelDefault},
		{"", LogLevelDefault},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			assert.Equal(t, tt.expected, ParseLogLevel(tt.input))
		})
	}
}

func TestLogLevelVerbosityOrder(t *testing.T) {
	levels := []LogLevel{LogLevelQuiet, LogLevelDefault, LogLevelWarn, LogLevelInfo, LogLevelDebug}
	for i := 1; i < len(levels); i++ {
		assert.Greater(t, levels[i].Verbosity(), levels[i-1].Verbosity())
	}
}

func TestParseReporter(t *testing.T) {
	tests := []struct {
		input    string
		expected Reporter
	}{
		{"default", ReporterDefault},
		{"concise", ReporterConcise},
		{"tap", ReporterTap},
		{"tap-mocha", Reporter("tap-mocha")},
		{"TAP-Landing", Reporter("tap-landing")},
		{"fancy", ReporterDefault},
		{"", ReporterDefault},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			assert.Equal(t, tt.expected, ParseReporter(tt.input))
		})
	}
}

func TestReporterTapVariant(t *testing.T) {
	assert.True(t, ReporterTap.IsTap())
	assert.True(t, Reporter("tap-mocha").IsTap())
	assert.False(t, ReporterConcise.IsTap())

	assert.Equal(t, "", ReporterTap.TapVariant())
	assert.Equal(t, "mocha", Reporter("tap-mocha").TapVariant())
	assert.Equal(t, "", ReporterConcise.TapVariant())
}

func TestParseUnresolvedModulePolicy(t *testing.T) {
	assert.Equal(t, UnresolvedModuleFail, ParseUnresolvedModulePolicy("fail"))
	assert.Equal(t, UnresolvedModuleIgnore, ParseUnresolvedModulePolicy("ignore"))
	assert.Equal(t, UnresolvedModuleIgnore, ParseUnresolvedModulePolicy("whatever"))
}

func TestStatusFromExitCode(t *testing.T) {
	assert.Equal(t, TestStatusPass, StatusFromExitCode(0))
	assert.Equal(t, TestStatusFail, StatusFromExitCode(1))
	assert.Equal(t, TestStatusFail, StatusFromExitCode(3))
}
