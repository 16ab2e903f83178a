package cli

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	urfave "github.com/urfave/cli/v3"

	"github.com/mchmarny/devscore/pkg/platform"
	"github.com/mchmarny/devscore/pkg/profile"
)

var (
	githubFlag = &urfave.StringFlag{
		Name:  "github",
		Usage: "GitHub username",
	}

	leetcodeFlag = &urfave.StringFlag{
		Name:  "leetcode",
		Usage: "LeetCode username",
	}

	hackerrankFlag = &urfave.StringFlag{
		Name:  "hackerrank",
		Usage: "HackerRank username",
	}

	reviewFlag = &urfave.BoolFlag{
		Name:  "review",
		Usage: "Ask Gemini for a written review of the profile",
	}

	freshFlag = &urfave.BoolFlag{
		Name:  "fresh",
		Usage: "Ignore the cached score and fetch all platforms again",
	}
)

func newScoreCmd() *urfave.Command {
	return &urfave.Command{
		Name:  "score",
		Usage: "Score a developer across GitHub, LeetCode and HackerRank",
		UsageText: `devscore score --github octocat --leetcode octo --hackerrank octo
   devscore score --review           # prompts for the usernames`,
		Action: cmdScore,
		Flags: []urfave.Flag{
			githubFlag,
			leetcodeFlag,
			hackerrankFlag,
			reviewFlag,
			freshFlag,
		},
	}
}

func cmdScore(ctx context.Context, cmd *urfave.Command) error {
	ac := getConfig(cmd)

	u := profile.Usernames{
		GitHub:     cmd.String(githubFlag.Name),
		LeetCode:   cmd.String(leetcodeFlag.Name),
		HackerRank: cmd.String(hackerrankFlag.Name),
	}

	u, err := promptMissing(bufio.NewReader(reader(cmd)), writer(cmd), u)
	if err != nil {
		return err
	}

	rt, err := ac.runtime(ctx)
	if err != nil {
		return err
	}

	rep, err := rt.service.Score(ctx, u, profile.Options{
		Review: cmd.Bool(reviewFlag.Name),
		Fresh:  cmd.Bool(freshFlag.Name),
	})
	if err != nil {
		return fmt.Errorf("scoring %s: %w", u.GitHub, err)
	}

	return encode(writer(cmd), ac.cfg.Format, rep)
}

// promptMissing asks on r for every username not already set.
func promptMissing(r *bufio.Reader, w io.Writer, u profile.Usernames) (profile.Usernames, error) {
	fields := []struct {
		p   platform.Platform
		dst *string
	}{
		{platform.GitHub, &u.GitHub},
		{platform.LeetCode, &u.LeetCode},
		{platform.HackerRank, &u.HackerRank},
	}

	for _, f := range fields {
		if strings.TrimSpace(*f.dst) != "" {
			continue
		}
		fmt.Fprintf(w, "%s username: ", f.p)
		v, err := readLine(r)
		if err != nil {
			return u, fmt.Errorf("reading %s username: %w", f.p, err)
		}
		*f.dst = v
	}
	return u, nil
}

// readLine returns the next trimmed line. A final line without a newline is
// returned as is.
func readLine(r *bufio.Reader) (string, error) {
	line, err := r.ReadString('\n')
	if err != nil && !(errors.Is(err, io.EOF) && line != "") {
		return "", err
	}
	return strings.TrimSpace(line), nil
}
