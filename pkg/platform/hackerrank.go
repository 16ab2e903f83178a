package platform

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/mchmarny/devscore/pkg/net"
	"github.com/mchmarny/devscore/pkg/score"
)

const (
	hackerRankURL      = "https://www.hackerrank.com"
	hackerRankBadgeSel = "div.hacker-badge"
	hackerRankSkillSel = "div.profile-skill"
)

// HackerRankFetcher counts badges and verified skills on the public profile page.
type HackerRankFetcher struct {
	client  *http.Client
	baseURL string
}

// NewHackerRankFetcher creates a fetcher. An empty base URL uses the public site.
func NewHackerRankFetcher(client *http.Client, baseURL string) *HackerRankFetcher {
	if baseURL == "" {
		baseURL = hackerRankURL
	}
	return &HackerRankFetcher{client: client, baseURL: strings.TrimSuffix(baseURL, "/")}
}

func (f *HackerRankFetcher) Platform() Platform {
	return HackerRank
}

func (f *HackerRankFetcher) Fetch(ctx context.Context, username string) (*Snapshot, error) {
	doc, err := net.GetDocument(ctx, f.client, f.baseURL+"/"+url.PathEscape(username))
	if err != nil {
		if errors.Is(err, net.ErrorURLNotFound) {
			return nil, fail(HackerRank, username, ErrNotFound)
		}
		return nil, fail(HackerRank, username, fmt.Errorf("getting profile page: %w", err))
	}

	badges := doc.Find(hackerRankBadgeSel).Length()
	skills := doc.Find(hackerRankSkillSel).Length()

	return &Snapshot{
		Platform: HackerRank,
		Username: username,
		Metrics: score.ProfileMetrics{
			HackerRankBadges: score.OfInt(badges),
			HackerRankSkills: score.OfInt(skills),
		},
	}, nil
}
