package flags

import (
	"github.com/urfave/cli/v2"

	opservice "github.com/ethereum-optimism/optimism/op-service"
)

const EnvVarPrefix = "METATESTS"

var (
	Exclude = &cli.StringSliceFlag{
		Name:    "exclude",
		EnvVars: opservice.PrefixEnvVar(EnvVarPrefix, "EXCLUDE"),
		Usage:   "Glob pattern excluding test files after resolution (repeatable)",
	}
	Browsers = &cli.StringSliceFlag{
		Name:    "browsers",
		EnvVars: opservice.PrefixEnvVar(EnvVarPrefix, "BROWSERS"),
		Usage:   "Browser to run the tests in, eg. 'ChromeHeadless' (repeatable)",
	}
	Reporter = &cli.StringFlag{
		Name:    "reporter",
		Value:   "default",
		EnvVars: opservice.PrefixEnvVar(EnvVarPrefix, "REPORTER"),
		Usage:   "In-browser result reporter: 'default', 'concise' or 'tap[-variant]'",
	}
	LogLevel = &cli.StringFlag{
		Name:    "log-level",
		Value:   "default",
		EnvVars: opservice.PrefixEnvVar(EnvVarPrefix, "LOG_LEVEL"),
		Usage:   "Log verbosity: quiet, default, warn, info or debug",
	}
	RunTodo = &cli.BoolFlag{
		Name:    "run-todo",
		EnvVars: opservice.PrefixEnvVar(EnvVarPrefix, "RUN_TODO"),
		Usage:   "Execute tests marked as todo instead of skipping them",
	}
	ExitTimeout = &cli.IntFlag{
		Name:    "exit-timeout",
		Value:   5,
		EnvVars: opservice.PrefixEnvVar(EnvVarPrefix, "EXIT_TIMEOUT"),
		Usage:   "Seconds the adapter waits after test completion before signaling the host",
	}
	SaveAdapter = &cli.StringFlag{
		Name:    "save-adapter",
		EnvVars: opservice.PrefixEnvVar(EnvVarPrefix, "SAVE_ADAPTER"),
		Usage:   "Persist the synthesized adapter source to this path for inspection",
	}
	UnresolvedModule = &cli.StringFlag{
		Name:    "unresolved-module",
		Value:   "ignore",
		EnvVars: opservice.PrefixEnvVar(EnvVarPrefix, "UNRESOLVED_MODULE"),
		Usage:   "Policy for Node-only modules in browser runs: 'ignore' or 'fail'",
	}
	BrowserPort = &cli.IntFlag{
		Name:    "browser-port",
		Aliases: []string{"p"},
		Value:   9876,
		EnvVars: opservice.PrefixEnvVar(EnvVarPrefix, "BROWSER_PORT"),
		Usage:   "Port the test server listens on",
	}
	Config = &cli.StringFlag{
		Name:    "config",
		Aliases: []string{"c"},
		EnvVars: opservice.PrefixEnvVar(EnvVarPrefix, "CONFIG"),
		Usage:   "Path to a JSON or YAML runner config file",
	}
	KarmaConfig = &cli.StringFlag{
		Name:    "karma-config",
		EnvVars: opservice.PrefixEnvVar(EnvVarPrefix, "KARMA_CONFIG"),
		Usage:   "Path to an advanced config file deep-merged over the server configuration",
	}
	Monitoring = &cli.BoolFlag{
		Name:    "monitoring",
		EnvVars: opservice.PrefixEnvVar(EnvVarPrefix, "MONITORING"),
		Usage:   "Expose healthz and prometheus metrics endpoints during the run",
	}
)

var Flags = []cli.Flag{
	Exclude,
	Browsers,
	Reporter,
	LogLevel,
	RunTodo,
	ExitTimeout,
	SaveAdapter,
	UnresolvedModule,
	BrowserPort,
	Config,
	KarmaConfig,
	Monitoring,
}
