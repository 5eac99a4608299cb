package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"

	"github.com/ethereum/go-ethereum/log"
	"github.com/urfave/cli/v2"

	"github.com/ethereum-optimism/optimism/op-service/cliapp"
	"github.com/ethereum-optimism/optimism/op-service/ctxinterrupt"
	oplog "github.com/ethereum-optimism/optimism/op-service/log"

	runner "github.com/metarhia/metatests-browser-runner"
	"github.com/metarhia/metatests-browser-runner/exitcodes"
	"github.com/metarhia/metatests-browser-runner/flags"
	"github.com/metarhia/metatests-browser-runner/types"
)

var (
	Version   = "v0.2.0"
	GitCommit = ""
	GitDate   = ""
)

func main() {
	app := cli.NewApp()
	app.Version = fmt.Sprintf("%s-%s-%s", Version, GitCommit, GitDate)
	app.Name = "metatests-browser-runner"
	app.Usage = "Cross-environment test runner for metatests suites"
	app.Description = "Discovers test files, re-packages them to run unmodified inside browsers and reports pass/fail back with a deterministic exit code"
	app.ArgsUsage = "[test files or directories...]"
	app.Flags = cliapp.ProtectFlags(flags.Flags)
	app.Action = cliapp.LifecycleCmd(run)
	app.ExitErrHandler = func(c *cli.Context, err error) {
		var exitErr cli.ExitCoder
		if errors.As(err, &exitErr) {
			cli.HandleExitCoder(exitErr)
		} else if err != nil {
			cli.HandleExitCoder(cli.Exit(err.Error(), errorExitCode(err)))
		}
	}

	ctx := ctxinterrupt.WithSignalWaiterMain(context.Background())
	if err := app.RunContext(ctx, os.Args); err != nil {
		log.Crit("Application failed", "message", err)
	}
}

func run(ctx *cli.Context, closeApp context.CancelCauseFunc) (cliapp.Lifecycle, error) {
	logCfg := oplog.DefaultCLIConfig()
	level := types.ParseLogLevel(ctx.String(flags.LogLevel.Name))
	logCfg.Level = hostLogLevel(level)
	logger := oplog.NewLogger(oplog.AppOut(ctx), logCfg)
	oplog.SetGlobalLogHandler(logger.Handler())
	oplog.SetupDefaults()

	cfg, err := runner.NewConfig(ctx, logger)
	if err != nil {
		return nil, err
	}

	cfg.Log.Debug("Config resolved",
		"files", cfg.Files,
		"browsers", cfg.Browser.Browsers,
		"port", cfg.Browser.Port)

	svc, err := runner.New(ctx.Context, cfg, Version, closeApp)
	if err != nil {
		return nil, err
	}
	return svc, nil
}

// errorExitCode maps a run error to the process exit code: a session error
// carries the browser completion code, configuration errors and anything
// unspecified exit with the generic failure code.
func errorExitCode(err error) int {
	if sessErr, ok := runner.AsSessionError(err); ok {
		return sessErr.Code
	}
	return exitcodes.Failure
}

// hostLogLevel maps the runner's verbosity levels onto slog levels for
// host-side logging. Quiet suppresses everything below critical.
func hostLogLevel(level types.LogLevel) slog.Level {
	switch level {
	case types.LogLevelQuiet:
		return slog.LevelError + 4
	case types.LogLevelWarn:
		return slog.LevelWarn
	case types.LogLevelInfo:
		return slog.LevelInfo
	case types.LogLevelDebug:
		return slog.LevelDebug
	default:
		return slog.LevelError
	}
}
