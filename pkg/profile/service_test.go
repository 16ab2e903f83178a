package profile

import (
	"context"
	"errors"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mchmarny/devscore/pkg/data"
	"github.com/mchmarny/devscore/pkg/metrics"
	"github.com/mchmarny/devscore/pkg/platform"
	"github.com/mchmarny/devscore/pkg/review"
	"github.com/mchmarny/devscore/pkg/score"
)

type fakeFetcher struct {
	p     platform.Platform
	fn    func(ctx context.Context, username string) (*platform.Snapshot, error)
	calls atomic.Int32
}

func (f *fakeFetcher) Platform() platform.Platform { return f.p }

func (f *fakeFetcher) Fetch(ctx context.Context, username string) (*platform.Snapshot, error) {
	f.calls.Add(1)
	return f.fn(ctx, username)
}

func snapshot(p platform.Platform, m score.ProfileMetrics) func(context.Context, string) (*platform.Snapshot, error) {
	return func(_ context.Context, username string) (*platform.Snapshot, error) {
		return &platform.Snapshot{Platform: p, Username: username, Metrics: m}, nil
	}
}

type fakeReviewer struct {
	text  string
	err   error
	calls int
	last  review.Input
}

func (r *fakeReviewer) Review(_ context.Context, in review.Input) (string, error) {
	r.calls++
	r.last = in
	return r.text, r.err
}

type testFetchers struct {
	gh, lc, hr *fakeFetcher
}

func (tf testFetchers) list() []platform.Fetcher {
	return []platform.Fetcher{tf.gh, tf.lc, tf.hr}
}

func newTestFetchers() testFetchers {
	gh := &fakeFetcher{p: platform.GitHub}
	gh.fn = func(_ context.Context, username string) (*platform.Snapshot, error) {
		return &platform.Snapshot{
			Platform: platform.GitHub,
			Username: username,
			Metrics: score.ProfileMetrics{
				GitHubRepos:     score.Of(25),
				GitHubStars:     score.Of(120),
				GitHubFollowers: score.Of(40),
				GitHubForks:     score.Of(15),
				Contributions:   score.Of(600),
				TopLanguages:    score.Languages{"Go", "Python", "Rust"},
			},
			Extra: map[string]any{"reputation": 0.5},
		}, nil
	}
	lc := &fakeFetcher{p: platform.LeetCode}
	lc.fn = snapshot(platform.LeetCode, score.ProfileMetrics{
		LeetCodeEasy:   score.Of(100),
		LeetCodeMedium: score.Of(40),
		LeetCodeHard:   score.Of(5),
	})
	hr := &fakeFetcher{p: platform.HackerRank}
	hr.fn = snapshot(platform.HackerRank, score.ProfileMetrics{
		HackerRankBadges: score.Of(4),
		HackerRankSkills: score.Of(3),
	})
	return testFetchers{gh: gh, lc: lc, hr: hr}
}

func setupTestStore(t *testing.T) *data.Store {
	t.Helper()
	s, err := data.Open(context.Background(), data.DriverSQLite, filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

var testUsers = Usernames{GitHub: "octocat", LeetCode: "solver", HackerRank: "coder"}

func TestNewService_RequiresAllPlatforms(t *testing.T) {
	tf := newTestFetchers()
	_, err := NewService([]platform.Fetcher{tf.gh, tf.lc})
	assert.Error(t, err)

	svc, err := NewService(tf.list())
	require.NoError(t, err)
	assert.NotNil(t, svc)
}

func TestService_Score(t *testing.T) {
	tf := newTestFetchers()
	rec := metrics.New()
	svc, err := NewService(tf.list(), WithMetrics(rec))
	require.NoError(t, err)

	rep, err := svc.Score(context.Background(), Usernames{
		GitHub: " octocat ", LeetCode: "solver", HackerRank: "coder",
	}, Options{})
	require.NoError(t, err)

	assert.InDelta(t, 678.43, rep.Score, 0.011)
	assert.Equal(t, score.Excellent, rep.Label)
	assert.Equal(t, "octocat", rep.Usernames.GitHub)
	assert.Equal(t, score.Of(100), rep.Details.LeetCodeEasy)
	assert.Equal(t, score.Of(4), rep.Details.HackerRankBadges)
	assert.Equal(t, rep.Score, rep.Breakdown.Score)
	assert.Equal(t, map[string]any{"reputation": 0.5}, rep.Extra["github"])
	assert.NotEmpty(t, rep.ID)
	assert.False(t, rep.Cached)
	assert.Empty(t, rep.AIReview)
	assert.Empty(t, rep.AIReviewError)
}

func TestService_Score_Invalid(t *testing.T) {
	tf := newTestFetchers()
	svc, err := NewService(tf.list())
	require.NoError(t, err)

	tests := []struct {
		name  string
		users Usernames
		msg   string
	}{
		{"missing github", Usernames{LeetCode: "a", HackerRank: "b"}, "github username is required"},
		{"blank leetcode", Usernames{GitHub: "a", LeetCode: "   ", HackerRank: "b"}, "leetcode username is required"},
		{"long github", Usernames{GitHub: "abcdefghijabcdefghijabcdefghijabcdefghij", LeetCode: "a", HackerRank: "b"}, "at most 39"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.Score(context.Background(), tt.users, Options{})
			require.ErrorIs(t, err, ErrInvalidRequest)
			assert.Contains(t, err.Error(), tt.msg)
		})
	}
	assert.Equal(t, int32(0), tf.gh.calls.Load())
}

func TestService_Score_FailFast(t *testing.T) {
	tf := newTestFetchers()
	tf.lc.fn = func(_ context.Context, username string) (*platform.Snapshot, error) {
		return nil, &platform.Error{Platform: platform.LeetCode, Username: username, Err: platform.ErrNotFound}
	}
	tf.gh.fn = func(ctx context.Context, _ string) (*platform.Snapshot, error) {
		<-ctx.Done()
		return nil, ctx.Err()
	}

	svc, err := NewService(tf.list())
	require.NoError(t, err)

	_, err = svc.Score(context.Background(), testUsers, Options{})
	require.Error(t, err)
	assert.True(t, platform.IsNotFound(err))
}

func TestService_Score_FetchTimeout(t *testing.T) {
	tf := newTestFetchers()
	tf.hr.fn = func(ctx context.Context, _ string) (*platform.Snapshot, error) {
		<-ctx.Done()
		return nil, ctx.Err()
	}

	svc, err := NewService(tf.list(), WithFetchTimeout(20*time.Millisecond))
	require.NoError(t, err)

	_, err = svc.Score(context.Background(), testUsers, Options{})
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestService_Score_CacheAndPersist(t *testing.T) {
	tf := newTestFetchers()
	store := setupTestStore(t)
	svc, err := NewService(tf.list(), WithStore(store))
	require.NoError(t, err)

	ctx := context.Background()
	first, err := svc.Score(ctx, testUsers, Options{})
	require.NoError(t, err)
	assert.False(t, first.Cached)

	second, err := svc.Score(ctx, testUsers, Options{})
	require.NoError(t, err)
	assert.True(t, second.Cached)
	assert.Equal(t, first.ID, second.ID)
	assert.Equal(t, first.Score, second.Score)
	assert.Equal(t, first.Details, second.Details)
	assert.Equal(t, int32(1), tf.gh.calls.Load())

	fresh, err := svc.Score(ctx, testUsers, Options{Fresh: true})
	require.NoError(t, err)
	assert.False(t, fresh.Cached)
	assert.NotEqual(t, first.ID, fresh.ID)
	assert.Equal(t, int32(2), tf.gh.calls.Load())

	history, err := svc.History(ctx, "octocat", 10)
	require.NoError(t, err)
	require.Len(t, history, 2)
	assert.Equal(t, fresh.ID, history[0].ID)
}

func TestService_Score_CacheExpired(t *testing.T) {
	tf := newTestFetchers()
	store := setupTestStore(t)
	svc, err := NewService(tf.list(), WithStore(store), WithCacheTTL(time.Hour))
	require.NoError(t, err)

	now := time.Now()
	svc.now = func() time.Time { return now }
	_, err = svc.Score(context.Background(), testUsers, Options{})
	require.NoError(t, err)

	now = now.Add(2 * time.Hour)
	rep, err := svc.Score(context.Background(), testUsers, Options{})
	require.NoError(t, err)
	assert.False(t, rep.Cached)
	assert.Equal(t, int32(2), tf.gh.calls.Load())
}

func TestService_Score_Review(t *testing.T) {
	tf := newTestFetchers()
	rv := &fakeReviewer{text: "great balance"}
	svc, err := NewService(tf.list(), WithReviewer(rv))
	require.NoError(t, err)

	rep, err := svc.Score(context.Background(), testUsers, Options{Review: true})
	require.NoError(t, err)
	assert.Equal(t, "great balance", rep.AIReview)
	assert.Equal(t, "octocat", rv.last.GitHub)
	assert.Equal(t, rep.Label, rv.last.Label)

	_, err = svc.Score(context.Background(), testUsers, Options{})
	require.NoError(t, err)
	assert.Equal(t, 1, rv.calls)
}

func TestService_Score_ReviewFailureKeepsScore(t *testing.T) {
	tf := newTestFetchers()
	rv := &fakeReviewer{err: &review.CooldownError{RetryAfter: 30 * time.Second, Calls: 2}}
	svc, err := NewService(tf.list(), WithReviewer(rv))
	require.NoError(t, err)

	rep, err := svc.Score(context.Background(), testUsers, Options{Review: true})
	require.NoError(t, err)
	assert.InDelta(t, 678.43, rep.Score, 0.011)
	assert.Empty(t, rep.AIReview)
	assert.Contains(t, rep.AIReviewError, "wait 30 seconds")

	rv.err = errors.New("boom")
	rep, err = svc.Score(context.Background(), testUsers, Options{Review: true})
	require.NoError(t, err)
	assert.Equal(t, "boom", rep.AIReviewError)
}

func TestService_Score_ReviewNotConfigured(t *testing.T) {
	tf := newTestFetchers()
	svc, err := NewService(tf.list())
	require.NoError(t, err)

	rep, err := svc.Score(context.Background(), testUsers, Options{Review: true})
	require.NoError(t, err)
	assert.Equal(t, errReviewNotConfigured, rep.AIReviewError)
}

func TestService_History_NoStore(t *testing.T) {
	tf := newTestFetchers()
	svc, err := NewService(tf.list())
	require.NoError(t, err)

	_, err = svc.History(context.Background(), "octocat", 5)
	assert.Error(t, err)
}

func TestUsernames_For(t *testing.T) {
	assert.Equal(t, "octocat", testUsers.For(platform.GitHub))
	assert.Equal(t, "solver", testUsers.For(platform.LeetCode))
	assert.Equal(t, "coder", testUsers.For(platform.HackerRank))
	assert.Empty(t, testUsers.For(platform.Platform("gitlab")))
}
