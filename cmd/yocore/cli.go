package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/urfave/cli/v2"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/yologdev/yocore/internal/config"
	"github.com/yologdev/yocore/internal/service"
)

// newApp builds the yocore CLI application: a single long-running command
// with a fixed flag set rather than a subcommand tree, since there is
// exactly one thing to run: the service. ExitErrHandler is disabled so
// Action can return a *cli.exitError and let main translate it to an exit
// code itself, rather than the library calling os.Exit directly, which
// keeps the Action testable without the process actually exiting mid-test.
func newApp(version string) *cli.App {
	app := &cli.App{
		Name: "yocore",
		Usage: "watch AI coding assistant transcripts and serve the derived project/session/memory model",
		Version: version,
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "config", Usage: "path to config.json (default: <data_dir>/config.json)"},
			&cli.BoolFlag{Name: "mcp", Usage: "serve the stdio MCP tool interface instead of HTTP+SSE"},
			&cli.IntFlag{Name: "port", Usage: "override the HTTP port"},
			&cli.StringFlag{Name: "host", Usage: "override the HTTP bind host"},
			&cli.BoolFlag{Name: "verbose", Usage: "debug-level logging"},
			&cli.BoolFlag{Name: "init", Usage: "write a default config.json and exit"},
		},
		Action: runAction,
	}
	app.ExitErrHandler = func(_ *cli.Context, _ error) {}
	return app
}

// loadConfig resolves the CLI's config precedence: config.Load /
// config.LoadFrom already layer env over file+defaults, and the explicit
// --port/--host flags are applied last, on top of everything else.
func loadConfig(c *cli.Context) (*config.Config, error) {
	var cfg *config.Config
	var err error
	if path := c.String("config"); path != "" {
		cfg, err = config.LoadFrom(path)
	} else {
		cfg, err = config.Load(config.Default().DataDir)
	}
	if err != nil {
		return nil, err
	}

	if c.IsSet("port") {
		cfg.Server.Port = c.Int("port")
	}
	if c.IsSet("host") {
		cfg.Server.Host = c.String("host")
	}
	return cfg, nil
}

// buildLogger constructs the zap production logger used throughout every
// component, bumped to debug level under --verbose.
func buildLogger(verbose bool) (*zap.Logger, error) {
	cfg := zap.NewProductionConfig()
	if verbose {
		cfg.Level = zap.NewAtomicLevelAt(zapcore.DebugLevel)
	}
	return cfg.Build()
}

func runAction(c *cli.Context) error {
	if c.Bool("init") {
		if config.ReadOnly() {
			return cli.Exit("YOLOG_CONFIG_READONLY is set; refusing to write a config file", 2)
		}
		baseDir := config.Default().DataDir
		if path := c.String("config"); path != "" {
			baseDir = filepath.Dir(path)
		}
		path, err := config.WriteDefault(baseDir)
		if err != nil {
			if errors.Is(err, os.ErrExist) {
				return cli.Exit(fmt.Sprintf("config already exists at %s", path), 2)
			}
			return cli.Exit(fmt.Sprintf("failed to write config: %v", err), 2)
		}
		fmt.Printf("wrote default config to %s\n", path)
		return nil
	}

	cfg, err := loadConfig(c)
	if err != nil {
		return cli.Exit(fmt.Sprintf("config error: %v", err), 2)
	}

	log, err := buildLogger(c.Bool("verbose"))
	if err != nil {
		return cli.Exit(fmt.Sprintf("failed to initialize logger: %v", err), 2)
	}
	defer log.Sync()

	svc, err := service.New(cfg, log, c.App.Version)
	if err != nil {
		return cli.Exit(fmt.Sprintf("config error: %v", err), 2)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if c.Bool("mcp") {
		if err := svc.RunMCP(ctx, c.App.Version); err != nil {
			return cli.Exit(fmt.Sprintf("mcp server error: %v", err), 1)
		}
		return nil
	}

	if err := svc.RunHTTP(ctx); err != nil && !errors.Is(err, http.ErrServerClosed) {
		if isPortInUse(err) {
			return cli.Exit(fmt.Sprintf("port %d already in use", cfg.Server.Port), 3)
		}
		return cli.Exit(fmt.Sprintf("http server error: %v", err), 1)
	}
	return nil
}

func isPortInUse(err error) bool {
	return errors.Is(err, syscall.EADDRINUSE)
}
