package cli

import (
	"context"

	urfave "github.com/urfave/cli/v3"

	"github.com/mchmarny/devscore/pkg/data"
)

var limitFlag = &urfave.IntFlag{
	Name:  "limit",
	Usage: "Maximum number of reports to list",
	Value: data.DefaultListLimit,
}

func newHistoryCmd() *urfave.Command {
	return &urfave.Command{
		Name:   "history",
		Usage:  "List stored score reports, newest first, optionally for one GitHub user",
		Action: cmdHistory,
		Flags: []urfave.Flag{
			githubFlag,
			limitFlag,
		},
	}
}

func cmdHistory(ctx context.Context, cmd *urfave.Command) error {
	ac := getConfig(cmd)

	rt, err := ac.runtime(ctx)
	if err != nil {
		return err
	}

	list, err := rt.service.History(ctx, cmd.String(githubFlag.Name), int(cmd.Int(limitFlag.Name)))
	if err != nil {
		return err
	}

	return encode(writer(cmd), ac.cfg.Format, list)
}
