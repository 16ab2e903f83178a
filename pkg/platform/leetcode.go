package platform

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/mchmarny/devscore/pkg/net"
	"github.com/mchmarny/devscore/pkg/score"
)

const (
	leetCodeURL = "https://leetcode.com/graphql/"

	leetCodeProfileQuery = `query getUserProfile($username: String!) {
  allQuestionsCount { difficulty count }
  matchedUser(username: $username) {
    submitStats: submitStatsGlobal {
      acSubmissionNum { difficulty count }
    }
  }
}`
)

type graphQLRequest struct {
	OperationName string         `json:"operationName"`
	Variables     map[string]any `json:"variables"`
	Query         string         `json:"query"`
}

type difficultyCount struct {
	Difficulty string `json:"difficulty"`
	Count      int    `json:"count"`
}

type leetCodeResponse struct {
	Data struct {
		MatchedUser *struct {
			SubmitStats struct {
				AcSubmissionNum []difficultyCount `json:"acSubmissionNum"`
			} `json:"submitStats"`
		} `json:"matchedUser"`
	} `json:"data"`
	Errors []struct {
		Message string `json:"message"`
	} `json:"errors"`
}

// LeetCodeFetcher reads solved problem counts from the LeetCode GraphQL API.
type LeetCodeFetcher struct {
	client *http.Client
	url    string
}

// NewLeetCodeFetcher creates a fetcher. An empty endpoint uses the public API.
func NewLeetCodeFetcher(client *http.Client, endpoint string) *LeetCodeFetcher {
	if endpoint == "" {
		endpoint = leetCodeURL
	}
	return &LeetCodeFetcher{client: client, url: endpoint}
}

func (f *LeetCodeFetcher) Platform() Platform {
	return LeetCode
}

func (f *LeetCodeFetcher) Fetch(ctx context.Context, username string) (*Snapshot, error) {
	req := graphQLRequest{
		OperationName: "getUserProfile",
		Variables:     map[string]any{"username": username},
		Query:         leetCodeProfileQuery,
	}

	var resp leetCodeResponse
	if err := net.PostJSON(ctx, f.client, f.url, req, &resp); err != nil {
		if errors.Is(err, net.ErrorURLNotFound) {
			return nil, fail(LeetCode, username, fmt.Errorf("graphql endpoint: %w", err))
		}
		return nil, fail(LeetCode, username, fmt.Errorf("querying profile: %w", err))
	}

	// the API reports an unknown user as a null matchedUser, often with an error message
	if resp.Data.MatchedUser == nil {
		return nil, fail(LeetCode, username, ErrNotFound)
	}

	var easy, medium, hard, total int
	for _, d := range resp.Data.MatchedUser.SubmitStats.AcSubmissionNum {
		switch strings.ToLower(d.Difficulty) {
		case "easy":
			easy = d.Count
		case "medium":
			medium = d.Count
		case "hard":
			hard = d.Count
		case "all":
			total = d.Count
		}
	}
	if total == 0 {
		total = easy + medium + hard
	}

	return &Snapshot{
		Platform: LeetCode,
		Username: username,
		Metrics: score.ProfileMetrics{
			LeetCodeEasy:   score.OfInt(easy),
			LeetCodeMedium: score.OfInt(medium),
			LeetCodeHard:   score.OfInt(hard),
		},
		Extra: map[string]any{
			"total_solved": total,
		},
	}, nil
}
