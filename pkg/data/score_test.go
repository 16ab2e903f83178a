package data

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mchmarny/devscore/pkg/score"
)

func testRecord(github string, at time.Time) *ScoreRecord {
	m := score.ProfileMetrics{
		GitHubRepos:    score.Of(12),
		GitHubStars:    score.Of(300),
		TopLanguages:   score.Languages{"Go", "Rust"},
		LeetCodeMedium: score.Of(40),
	}
	b := score.Explain(m)
	return &ScoreRecord{
		GitHub:     github,
		LeetCode:   "lc-" + github,
		HackerRank: "hr-" + github,
		Score:      b.Score,
		Label:      score.Classify(b.Score),
		Metrics:    m,
		Breakdown:  b,
		CreatedAt:  at,
	}
}

func TestSaveScore_GetLatest(t *testing.T) {
	s := setupTestStore(t)
	ctx := context.Background()
	now := time.Now().UTC().Truncate(time.Microsecond)

	older := testRecord("octocat", now.Add(-2*time.Hour))
	require.NoError(t, s.SaveScore(ctx, older))
	assert.NotEmpty(t, older.ID)

	newer := testRecord("octocat", now.Add(-time.Hour))
	newer.AIReview = "keep going"
	newer.Extra = map[string]any{"reputation": 0.42}
	require.NoError(t, s.SaveScore(ctx, newer))

	got, err := s.GetLatestScore(ctx, "octocat", "lc-octocat", "hr-octocat", now.Add(-24*time.Hour))
	require.NoError(t, err)
	assert.Equal(t, newer.ID, got.ID)
	assert.Equal(t, newer.Score, got.Score)
	assert.Equal(t, newer.Label, got.Label)
	assert.Equal(t, newer.Metrics, got.Metrics)
	assert.Equal(t, newer.Breakdown, got.Breakdown)
	assert.Equal(t, "keep going", got.AIReview)
	assert.Equal(t, 0.42, got.Extra["reputation"])
	assert.True(t, newer.CreatedAt.Equal(got.CreatedAt))

	// the window excludes both records
	_, err = s.GetLatestScore(ctx, "octocat", "lc-octocat", "hr-octocat", now.Add(-30*time.Minute))
	assert.ErrorIs(t, err, ErrNotFound)

	// a different triple does not match
	_, err = s.GetLatestScore(ctx, "octocat", "someone-else", "hr-octocat", now.Add(-24*time.Hour))
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestSaveScore_Defaults(t *testing.T) {
	s := setupTestStore(t)
	rec := testRecord("defaults", time.Time{})

	require.NoError(t, s.SaveScore(context.Background(), rec))
	assert.NotEmpty(t, rec.ID)
	assert.False(t, rec.CreatedAt.IsZero())
	assert.Equal(t, time.UTC, rec.CreatedAt.Location())

	assert.Error(t, s.SaveScore(context.Background(), nil))
}

func TestListScores(t *testing.T) {
	s := setupTestStore(t)
	ctx := context.Background()
	now := time.Now().UTC()

	for i := range 5 {
		require.NoError(t, s.SaveScore(ctx, testRecord("alice", now.Add(time.Duration(i)*time.Minute))))
	}
	require.NoError(t, s.SaveScore(ctx, testRecord("bob", now)))

	list, err := s.ListScores(ctx, "alice", 3)
	require.NoError(t, err)
	require.Len(t, list, 3)
	assert.True(t, list[0].CreatedAt.After(list[1].CreatedAt))
	for _, r := range list {
		assert.Equal(t, "alice", r.GitHub)
	}

	all, err := s.ListScores(ctx, "", 0)
	require.NoError(t, err)
	assert.Len(t, all, 6)

	none, err := s.ListScores(ctx, "carol", 10)
	require.NoError(t, err)
	assert.Empty(t, none)

	n, err := s.CountScores(ctx)
	require.NoError(t, err)
	assert.Equal(t, 6, n)
}
