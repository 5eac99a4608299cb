package runner

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/ethereum/go-ethereum/log"
	"github.com/urfave/cli/v2"
	"gopkg.in/yaml.v3"

	"github.com/metarhia/metatests-browser-runner/flags"
	"github.com/metarhia/metatests-browser-runner/pattern"
	"github.com/metarhia/metatests-browser-runner/resolve"
	"github.com/metarhia/metatests-browser-runner/server"
	"github.com/metarhia/metatests-browser-runner/types"
)

// BrowserOptions is the browser sub-config of a run.
type BrowserOptions struct {
	Browsers []string
	Port     int
	LogLevel string
	Server   *server.Config // Fully-built test server configuration, set by Finalize
}

// Config is the canonical run configuration, assembled once per invocation
// and immutable after the session starts.
type Config struct {
	FileArgs         []string // Positional path arguments, pre-resolution
	Files            []string // Resolved, existing, exclusion-filtered test files
	Exclude          []string
	LogLevel         types.LogLevel
	Reporter         types.Reporter
	RunTodo          bool
	ExitTimeout      time.Duration
	SaveAdapter      string
	UnresolvedModule types.UnresolvedModulePolicy
	Browser          BrowserOptions
	KarmaConfig      string
	Monitoring       bool
	Log              log.Logger
}

// DefaultConfig is the first step of the merge pipeline: built-in defaults.
func DefaultConfig() Config {
	return Config{
		LogLevel:         types.LogLevelDefault,
		Reporter:         types.ReporterDefault,
		ExitTimeout:      5 * time.Second,
		UnresolvedModule: types.UnresolvedModuleIgnore,
		Browser: BrowserOptions{
			Port: 9876,
		},
	}
}

// fileConfig mirrors the recognized config-file keys.
type fileConfig struct {
	Files            []string `yaml:"files" json:"files"`
	Exclude          []string `yaml:"exclude" json:"exclude"`
	LogLevel         string   `yaml:"logLevel" json:"logLevel"`
	Reporter         string   `yaml:"reporter" json:"reporter"`
	RunTodo          *bool    `yaml:"runTodo" json:"runTodo"`
	ExitTimeout      *int     `yaml:"exitTimeout" json:"exitTimeout"`
	SaveAdapter      string   `yaml:"saveAdapter" json:"saveAdapter"`
	UnresolvedModule string   `yaml:"unresolvedModule" json:"unresolvedModule"`
	Browser          struct {
		Browsers []string `yaml:"browsers" json:"browsers"`
		Port     *int     `yaml:"port" json:"port"`
		LogLevel string   `yaml:"logLevel" json:"logLevel"`
	} `yaml:"browser" json:"browser"`
}

// loadFileConfig parses a config file by extension. JSON and YAML are
// recognized; any other extension resolves to an empty config.
func loadFileConfig(path string) (fileConfig, error) {
	var cfg fileConfig

	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("reading config file: %w", err)
	}

	switch filepath.Ext(path) {
	case ".json":
		if err := json.Unmarshal(data, &cfg); err != nil {
			return cfg, fmt.Errorf("parsing config file %s: %w", path, err)
		}
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return cfg, fmt.Errorf("parsing config file %s: %w", path, err)
		}
	}
	return cfg, nil
}

// WithFile merges config-file values over c. Scalar values override when
// present; list values are concatenated (config-file list first), duplicates
// preserved.
func (c Config) WithFile(fc fileConfig) Config {
	c.FileArgs = append(c.FileArgs, fc.Files...)
	c.Exclude = append(c.Exclude, fc.Exclude...)
	c.Browser.Browsers = append(c.Browser.Browsers, fc.Browser.Browsers...)

	if fc.LogLevel != "" {
		c.LogLevel = types.ParseLogLevel(fc.LogLevel)
	}
	if fc.Reporter != "" {
		c.Reporter = types.ParseReporter(fc.Reporter)
	}
	if fc.RunTodo != nil {
		c.RunTodo = *fc.RunTodo
	}
	if fc.ExitTimeout != nil {
		c.ExitTimeout = time.Duration(*fc.ExitTimeout) * time.Second
	}
	if fc.SaveAdapter != "" {
		c.SaveAdapter = fc.SaveAdapter
	}
	if fc.UnresolvedModule != "" {
		c.UnresolvedModule = types.ParseUnresolvedModulePolicy(fc.UnresolvedModule)
	}
	if fc.Browser.Port != nil {
		c.Browser.Port = *fc.Browser.Port
	}
	if fc.Browser.LogLevel != "" {
		c.Browser.LogLevel = fc.Browser.LogLevel
	}
	return c
}

// WithFlags merges CLI flags over c. Scalar flags win over config-file and
// default values only when explicitly set; list flags append.
func (c Config) WithFlags(ctx *cli.Context) Config {
	c.FileArgs = append(c.FileArgs, ctx.Args().Slice()...)
	c.Exclude = append(c.Exclude, ctx.StringSlice(flags.Exclude.Name)...)
	c.Browser.Browsers = append(c.Browser.Browsers, ctx.StringSlice(flags.Browsers.Name)...)

	if ctx.IsSet(flags.LogLevel.Name) {
		c.LogLevel = types.ParseLogLevel(ctx.String(flags.LogLevel.Name))
	}
	if ctx.IsSet(flags.Reporter.Name) {
		c.Reporter = types.ParseReporter(ctx.String(flags.Reporter.Name))
	}
	if ctx.IsSet(flags.RunTodo.Name) {
		c.RunTodo = ctx.Bool(flags.RunTodo.Name)
	}
	if ctx.IsSet(flags.ExitTimeout.Name) {
		c.ExitTimeout = time.Duration(ctx.Int(flags.ExitTimeout.Name)) * time.Second
	}
	if ctx.IsSet(flags.SaveAdapter.Name) {
		c.SaveAdapter = ctx.String(flags.SaveAdapter.Name)
	}
	if ctx.IsSet(flags.UnresolvedModule.Name) {
		c.UnresolvedModule = types.ParseUnresolvedModulePolicy(ctx.String(flags.UnresolvedModule.Name))
	}
	if ctx.IsSet(flags.BrowserPort.Name) {
		c.Browser.Port = ctx.Int(flags.BrowserPort.Name)
	}
	c.KarmaConfig = ctx.String(flags.KarmaConfig.Name)
	c.Monitoring = ctx.Bool(flags.Monitoring.Name)
	return c
}

// Finalize is the last reducer step: it resolves and filters the file list,
// fills browser defaults and expands the browser sub-config into the full
// test server configuration, applying the optional advanced overlay.
func (c Config) Finalize() (*Config, error) {
	if len(c.FileArgs) == 0 {
		return nil, NewConfigError(errors.New("no test files specified"))
	}

	files, err := resolve.Files(c.FileArgs)
	if err != nil {
		return nil, NewConfigError(err)
	}

	matchers, err := pattern.CompileAll(c.Exclude)
	if err != nil {
		return nil, NewConfigError(err)
	}
	kept := make([]string, 0, len(files))
	for _, f := range files {
		if !pattern.MatchAny(matchers, f) {
			kept = append(kept, f)
		}
	}
	if len(kept) == 0 {
		return nil, NewConfigError(errors.New("no test files specified"))
	}
	c.Files = kept

	if len(c.Browser.Browsers) == 0 {
		c.Browser.Browsers = []string{"ChromeHeadless"}
	}

	basePath, err := os.Getwd()
	if err != nil {
		return nil, NewConfigError(fmt.Errorf("resolving working directory: %w", err))
	}

	srvCfg := &server.Config{
		Port:        c.Browser.Port,
		Browsers:    c.Browser.Browsers,
		Concurrency: 1,
		SingleRun:   true,
		AutoWatch:   false,
		BasePath:    basePath,
		Files:       c.Files,
		SaveAdapter: c.SaveAdapter,
		LogLevel:    c.Browser.LogLevel,
	}
	if c.UnresolvedModule == types.UnresolvedModuleIgnore {
		srvCfg.StubModules = server.DefaultStubModules
	}

	if c.KarmaConfig != "" {
		overlay, err := loadOverlay(c.KarmaConfig)
		if err != nil {
			return nil, NewConfigError(err)
		}
		if err := srvCfg.Merge(overlay); err != nil {
			return nil, NewConfigError(fmt.Errorf("applying %s: %w", c.KarmaConfig, err))
		}
		// The overlay wins; reflect its decisions back into the run config.
		c.Browser.Browsers = srvCfg.Browsers
		c.Browser.Port = srvCfg.Port
	}

	// The adapter requires the library in the browser; without a served
	// build or an overlay-supplied script the session could only time out.
	srvCfg.LibraryPath = findLibrary(basePath)
	if srvCfg.LibraryPath == "" && len(srvCfg.ServeFiles) == 0 {
		return nil, NewConfigError(fmt.Errorf(
			"cannot locate a browser build of metatests under %s; install the metatests package or supply a build through the files list of an advanced config", basePath))
	}

	c.Browser.Server = srvCfg
	return &c, nil
}

// libraryCandidates are the browser-build locations probed relative to the
// base path, most specific first.
var libraryCandidates = []string{
	filepath.Join("node_modules", "metatests", "dist", "metatests.min.js"),
	filepath.Join("node_modules", "metatests", "dist", "metatests.js"),
	filepath.Join("node_modules", "metatests", "metatests.js"),
}

// findLibrary locates a browser build of the test-runner library near the
// base path. An empty result means no build was found.
func findLibrary(basePath string) string {
	for _, rel := range libraryCandidates {
		path := filepath.Join(basePath, rel)
		if info, err := os.Stat(path); err == nil && !info.IsDir() {
			return path
		}
	}
	return ""
}

// loadOverlay parses an advanced config file into a generic map for
// deep-merging over the synthesized server configuration.
func loadOverlay(path string) (map[string]any, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	overlay := make(map[string]any)
	switch filepath.Ext(path) {
	case ".json":
		if err := json.Unmarshal(data, &overlay); err != nil {
			return nil, fmt.Errorf("parsing config file %s: %w", path, err)
		}
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(data, &overlay); err != nil {
			return nil, fmt.Errorf("parsing config file %s: %w", path, err)
		}
	}
	return overlay, nil
}

// NewConfig runs the whole merge pipeline against the CLI context:
// defaults, then the optional config file, then flags, then finalization.
func NewConfig(ctx *cli.Context, logger log.Logger) (*Config, error) {
	cfg := DefaultConfig()

	if path := ctx.String(flags.Config.Name); path != "" {
		fc, err := loadFileConfig(path)
		if err != nil {
			return nil, NewConfigError(err)
		}
		cfg = cfg.WithFile(fc)
	}

	cfg = cfg.WithFlags(ctx)
	cfg.Log = logger

	return cfg.Finalize()
}
