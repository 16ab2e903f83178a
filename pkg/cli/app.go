// Package cli implements the devscore command line and its HTTP server.
package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"

	urfave "github.com/urfave/cli/v3"
	"gopkg.in/yaml.v3"

	"github.com/mchmarny/devscore/pkg/config"
	"github.com/mchmarny/devscore/pkg/logging"
)

const (
	appConfigKey = "app-config"

	formatJSON = "json"
	formatYAML = "yaml"
)

var (
	version = "v0.0.1-default"
	commit  = ""
	date    = ""

	debugFlag = &urfave.BoolFlag{
		Name:    "debug",
		Usage:   "Prints verbose logs (optional, default: false)",
		Sources: urfave.EnvVars(config.EnvPrefix + "DEBUG"),
	}

	configFlag = &urfave.StringFlag{
		Name:    "config",
		Usage:   "Path to the YAML config file",
		Sources: urfave.EnvVars(config.ConfigEnvVar),
	}

	formatFlag = &urfave.StringFlag{
		Name:  "format",
		Usage: "Output format [json, yaml] (default: config value or json)",
	}
)

// Execute creates and runs the CLI application.
func Execute() {
	logging.SetDefaultCLILogger("info")

	if err := newApp().Run(context.Background(), os.Args); err != nil {
		slog.Error("fatal error", "error", err)
		os.Exit(1)
	}
}

type appConfig struct {
	cfg *config.Config
	rt  *runtime
}

func getConfig(cmd *urfave.Command) *appConfig {
	return cmd.Root().Metadata[appConfigKey].(*appConfig)
}

func newApp() *urfave.Command {
	return &urfave.Command{
		Name:                  config.AppName,
		Version:               fmt.Sprintf("%s (%s - %s)", version, commit, date),
		EnableShellCompletion: true,
		HideHelpCommand:       true,
		Usage:                 "Score developers on their GitHub, LeetCode and HackerRank activity",
		Metadata:              map[string]any{},
		Flags: []urfave.Flag{
			debugFlag,
			configFlag,
			formatFlag,
		},
		Commands: []*urfave.Command{
			newScoreCmd(),
			newHistoryCmd(),
			newServerCmd(),
			newAuthCmd(),
			newConfigCmd(),
		},
		Before: func(ctx context.Context, cmd *urfave.Command) (context.Context, error) {
			cfg, err := config.Load(cmd.String(configFlag.Name))
			if err != nil {
				return ctx, err
			}

			if cmd.Bool(debugFlag.Name) {
				cfg.LogLevel = "debug"
			}
			if f := cmd.String(formatFlag.Name); f != "" {
				cfg.Format = f
			}
			if err := cfg.Validate(); err != nil {
				return ctx, err
			}

			slog.SetDefault(logging.New(errWriter(cmd), cfg.LogFormat, cfg.LogLevel))
			slog.Debug("config loaded", "config", cfg.Redacted())

			cmd.Root().Metadata[appConfigKey] = &appConfig{cfg: cfg}
			return ctx, nil
		},
		After: func(_ context.Context, cmd *urfave.Command) error {
			if ac, ok := cmd.Root().Metadata[appConfigKey].(*appConfig); ok && ac.rt != nil {
				ac.rt.Close()
			}
			return nil
		},
	}
}

// runtime returns the lazily built services so that commands which never
// touch the store or the platforms do not open them.
func (a *appConfig) runtime(ctx context.Context) (*runtime, error) {
	if a.rt != nil {
		return a.rt, nil
	}
	rt, err := newRuntime(ctx, a.cfg)
	if err != nil {
		return nil, err
	}
	a.rt = rt
	return rt, nil
}

func writer(cmd *urfave.Command) io.Writer {
	if w := cmd.Root().Writer; w != nil {
		return w
	}
	return os.Stdout
}

func errWriter(cmd *urfave.Command) io.Writer {
	if w := cmd.Root().ErrWriter; w != nil {
		return w
	}
	return os.Stderr
}

func reader(cmd *urfave.Command) io.Reader {
	if r := cmd.Root().Reader; r != nil {
		return r
	}
	return os.Stdin
}

func encode(w io.Writer, format string, v any) error {
	if format == formatYAML || format == "yml" {
		e := yaml.NewEncoder(w)
		defer e.Close()
		return e.Encode(v)
	}
	e := json.NewEncoder(w)
	e.SetIndent("", "  ")
	return e.Encode(v)
}
