package profile

import (
	"time"

	"github.com/mchmarny/devscore/pkg/data"
	"github.com/mchmarny/devscore/pkg/score"
)

// Report is the scored outcome for one developer.
type Report struct {
	ID            string               `json:"id" yaml:"id"`
	Usernames     Usernames            `json:"usernames" yaml:"usernames"`
	Score         float64              `json:"score" yaml:"score"`
	Label         score.Label          `json:"label" yaml:"label"`
	Details       score.ProfileMetrics `json:"details" yaml:"details"`
	Breakdown     score.Breakdown      `json:"breakdown" yaml:"breakdown"`
	Extra         map[string]any       `json:"extra,omitempty" yaml:"extra,omitempty"`
	AIReview      string               `json:"ai_review,omitempty" yaml:"aiReview,omitempty"`
	AIReviewError string               `json:"ai_review_error,omitempty" yaml:"aiReviewError,omitempty"`
	Cached        bool                 `json:"cached" yaml:"cached"`
	ScoredAt      time.Time            `json:"scored_at" yaml:"scoredAt"`
}

func (r *Report) toRecord() *data.ScoreRecord {
	return &data.ScoreRecord{
		ID:         r.ID,
		GitHub:     r.Usernames.GitHub,
		LeetCode:   r.Usernames.LeetCode,
		HackerRank: r.Usernames.HackerRank,
		Score:      r.Score,
		Label:      r.Label,
		Metrics:    r.Details,
		Breakdown:  r.Breakdown,
		AIReview:   r.AIReview,
		Extra:      r.Extra,
		CreatedAt:  r.ScoredAt,
	}
}

// FromRecord rebuilds a report from its stored form.
func FromRecord(rec *data.ScoreRecord) *Report {
	return &Report{
		ID: rec.ID,
		Usernames: Usernames{
			GitHub:     rec.GitHub,
			LeetCode:   rec.LeetCode,
			HackerRank: rec.HackerRank,
		},
		Score:     rec.Score,
		Label:     rec.Label,
		Details:   rec.Metrics,
		Breakdown: rec.Breakdown,
		Extra:     rec.Extra,
		AIReview:  rec.AIReview,
		ScoredAt:  rec.CreatedAt,
	}
}
