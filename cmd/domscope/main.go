// Package main runs domscope: a browser inspection server that exposes
// DOM, box-model and CSS provenance tools to an agent over MCP (stdio).
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"runtime"
	"syscall"
	"time"

	cli "github.com/urfave/cli/v3"
	"go.uber.org/multierr"

	"github.com/entrhq/domscope/pkg/agent/tools"
	"github.com/entrhq/domscope/pkg/config"
	"github.com/entrhq/domscope/pkg/hooks"
	"github.com/entrhq/domscope/pkg/logging"
	"github.com/entrhq/domscope/pkg/mcpserver"
	"github.com/entrhq/domscope/pkg/tools/browser"
)

const (
	appName         = "domscope"
	version         = "0.1.0"
	shutdownTimeout = 30 * time.Second
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	app := &cli.Command{
		Name:            appName,
		Usage:           "browser inspection tools (DOM, box model, CSS provenance) over MCP stdio",
		Version:         version + " (" + runtime.Version() + ")",
		HideHelpCommand: true,
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "config", Aliases: []string{"c"}, Usage: "load settings from `FILE` (JSON, default ~/.domscope/config.json)"},
			&cli.BoolFlag{Name: "headless", Value: true, Usage: "run the browser without a window"},
			&cli.StringFlag{Name: "base-url", Usage: "resolve relative navigation against `URL`"},
			&cli.StringSliceFlag{Name: "allow-origin", Usage: "allow navigation to origins matching `PATTERN` (repeatable, glob)"},
			&cli.StringFlag{Name: "hooks", Usage: "Go source `FILE` with scenario setup hooks"},
			&cli.StringFlag{Name: "scenarios", Usage: "YAML scenario catalog `FILE`"},
			&cli.DurationFlag{Name: "idle-timeout", Usage: "close the browser after `DURATION` without activity"},
			&cli.StringFlag{Name: "log-level", Value: logging.LevelNormal, Usage: "file log `LEVEL`: none, normal or debug"},
			&cli.StringFlag{Name: "log-file", Usage: "write logs to `FILE` instead of ~/.domscope/logs"},
			&cli.BoolFlag{Name: "log-stderr", Usage: "also log to stderr"},
		},
		Action: run,
	}

	if err := app.Run(ctx, os.Args); err != nil {
		fmt.Fprintf(os.Stderr, "%s: %v\n", appName, err)
		os.Exit(1)
	}
}

func run(ctx context.Context, cmd *cli.Command) (err error) {
	level := cmd.String("log-level")
	consoleLevel := logging.LevelNone
	if cmd.Bool("log-stderr") {
		consoleLevel = level
	}
	if err := logging.Configure(logging.Options{
		FileLevel:    level,
		ConsoleLevel: consoleLevel,
		Path:         cmd.String("log-file"),
	}); err != nil {
		return fmt.Errorf("unable to prepare logs: %w", err)
	}
	defer func() { err = multierr.Append(err, logging.Shutdown()) }()

	logger, _ := logging.NewLogger("main")
	logger.Infof("%s %s starting (session %s)", appName, version, logging.GetSessionID())

	settings, err := loadSettings(cmd)
	if err != nil {
		return err
	}

	scenarios, err := config.LoadScenarios(settings.ScenariosPath)
	if err != nil {
		return fmt.Errorf("unable to load scenarios: %w", err)
	}

	var invoker hooks.Invoker
	if settings.HooksPath != "" {
		invoker = hooks.NewScriptInvoker(settings.HooksPath)
		logger.Infof("Scenario hooks from %s", settings.HooksPath)
	}

	managerLog, _ := logging.NewLogger("browser")
	manager, err := browser.NewSessionManager(browser.ManagerOptions{
		Settings:  settings,
		Scenarios: scenarios,
		Hooks:     invoker,
		Logger:    managerLog,
	})
	if err != nil {
		return fmt.Errorf("invalid browser settings: %w", err)
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if sErr := manager.Shutdown(shutdownCtx); sErr != nil {
			logger.Warnf("Shutdown: %v", sErr)
		}
		logger.Infof("%s stopped", appName)
	}()

	set, err := tools.NewSet(browser.Tools(manager)...)
	if err != nil {
		return err
	}

	serverLog, _ := logging.NewLogger("mcp")
	server := mcpserver.New(appName, version, set, serverLog)

	if err := server.Run(ctx); err != nil && ctx.Err() == nil {
		return fmt.Errorf("mcp server: %w", err)
	}
	return nil
}

// loadSettings reads the config file and applies command line overrides.
func loadSettings(cmd *cli.Command) (config.BrowserSettings, error) {
	if err := config.Initialize(cmd.String("config")); err != nil {
		return config.BrowserSettings{}, fmt.Errorf("unable to load configuration: %w", err)
	}

	section := config.GetBrowser()
	section.Update(func(s *config.BrowserSettings) {
		if cmd.IsSet("headless") {
			s.Headless = cmd.Bool("headless")
		}
		if cmd.IsSet("base-url") {
			s.BaseURL = cmd.String("base-url")
		}
		if cmd.IsSet("allow-origin") {
			s.AllowedOrigins = cmd.StringSlice("allow-origin")
		}
		if cmd.IsSet("hooks") {
			s.HooksPath = cmd.String("hooks")
		}
		if cmd.IsSet("scenarios") {
			s.ScenariosPath = cmd.String("scenarios")
		}
		if cmd.IsSet("idle-timeout") {
			s.IdleTimeout = cmd.Duration("idle-timeout")
		}
	})
	return section.Snapshot(), nil
}
