package cli

import (
	"context"
	"fmt"

	urfave "github.com/urfave/cli/v3"

	"github.com/mchmarny/devscore/pkg/config"
)

var dirFlag = &urfave.StringFlag{
	Name:  "dir",
	Usage: "Directory to write config.yaml into (default: $HOME/.devscore)",
}

func newConfigCmd() *urfave.Command {
	return &urfave.Command{
		Name:            "config",
		HideHelpCommand: true,
		Usage:           "Inspect or persist the effective configuration",
		Commands: []*urfave.Command{
			{
				Name:   "show",
				Usage:  "Print the effective configuration with secrets redacted",
				Action: cmdConfigShow,
			},
			{
				Name:   "init",
				Usage:  "Write the effective configuration to a config.yaml file",
				Action: cmdConfigInit,
				Flags:  []urfave.Flag{dirFlag},
			},
		},
	}
}

func cmdConfigShow(_ context.Context, cmd *urfave.Command) error {
	// always YAML, the format config files are written in
	return encode(writer(cmd), formatYAML, getConfig(cmd).cfg.Redacted())
}

func cmdConfigInit(_ context.Context, cmd *urfave.Command) error {
	ac := getConfig(cmd)

	dir := cmd.String(dirFlag.Name)
	if dir == "" {
		d, _, err := config.GetOrCreateHomeDir(config.AppName)
		if err != nil {
			return err
		}
		dir = d
	}

	path, err := config.Save(dir, ac.cfg)
	if err != nil {
		return err
	}

	fmt.Fprintf(writer(cmd), "config written to %s\n", path)
	return nil
}
