// Package platform fetches the public activity of a developer from the
// supported platforms and reports it as partial score metrics.
package platform

import (
	"context"
	"fmt"
	"strings"

	"github.com/mchmarny/devscore/pkg/score"
)

// Platform identifies an upstream source of activity signals.
type Platform string

const (
	GitHub     Platform = "github"
	LeetCode   Platform = "leetcode"
	HackerRank Platform = "hackerrank"
)

// All lists the platforms in the order they are reported.
var All = []Platform{GitHub, LeetCode, HackerRank}

// ParsePlatform parses a platform name case-insensitively.
func ParsePlatform(s string) (Platform, error) {
	for _, p := range All {
		if strings.EqualFold(string(p), strings.TrimSpace(s)) {
			return p, nil
		}
	}
	return "", fmt.Errorf("unknown platform: %q", s)
}

// Snapshot is what one platform reports for one user. Metrics only has the
// fields of that platform set.
type Snapshot struct {
	Platform Platform             `json:"platform" yaml:"platform"`
	Username string               `json:"username" yaml:"username"`
	Metrics  score.ProfileMetrics `json:"metrics" yaml:"metrics"`
	Extra    map[string]any       `json:"extra,omitempty" yaml:"extra,omitempty"`
}

// Fetcher retrieves a snapshot for a username on a single platform.
type Fetcher interface {
	Platform() Platform
	Fetch(ctx context.Context, username string) (*Snapshot, error)
}
