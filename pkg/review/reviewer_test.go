package review

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/api/googleapi"

	"github.com/mchmarny/devscore/pkg/score"
)

// mockGenerator replays a scripted sequence of results.
type mockGenerator struct {
	errs     []error
	response string
	calls    int
	prompts  []string
}

func (m *mockGenerator) Generate(_ context.Context, prompt string) (string, error) {
	m.prompts = append(m.prompts, prompt)
	i := m.calls
	m.calls++
	if i < len(m.errs) && m.errs[i] != nil {
		return "", m.errs[i]
	}
	return m.response, nil
}

func newTestReviewer(gen Generator, opts ...Option) (*Reviewer, *[]time.Duration) {
	r := NewReviewer(gen, opts...)
	waits := &[]time.Duration{}
	r.sleep = func(_ context.Context, d time.Duration) error {
		*waits = append(*waits, d)
		return nil
	}
	return r, waits
}

func testInput() Input {
	return Input{
		GitHub:     "octocat",
		LeetCode:   "solver",
		HackerRank: "coder",
		Metrics: score.ProfileMetrics{
			GitHubRepos:  score.Of(4),
			TopLanguages: score.Languages{"Go", "Rust"},
		},
		Label: score.Beginner,
	}
}

func TestReviewer_Success(t *testing.T) {
	gen := &mockGenerator{response: "solid work"}
	r, waits := newTestReviewer(gen)

	text, err := r.Review(context.Background(), testInput())
	require.NoError(t, err)
	assert.Equal(t, "solid work", text)
	assert.Equal(t, 1, gen.calls)
	assert.Empty(t, *waits)
	assert.Equal(t, 1, r.Stats().Calls)
	assert.Contains(t, gen.prompts[0], "octocat")
}

func TestReviewer_RetriesRateLimit(t *testing.T) {
	gen := &mockGenerator{
		errs: []error{
			&googleapi.Error{Code: http.StatusTooManyRequests},
			errors.New("rpc error: code = 429 quota"),
		},
		response: "eventually",
	}
	r, waits := newTestReviewer(gen)

	text, err := r.Review(context.Background(), testInput())
	require.NoError(t, err)
	assert.Equal(t, "eventually", text)
	assert.Equal(t, 3, gen.calls)
	assert.Equal(t, []time.Duration{time.Second, 2 * time.Second}, *waits)
}

func TestReviewer_RetriesExhausted(t *testing.T) {
	limited := &googleapi.Error{Code: http.StatusTooManyRequests}
	gen := &mockGenerator{errs: []error{limited, limited, limited}}
	r, waits := newTestReviewer(gen)

	_, err := r.Review(context.Background(), testInput())
	assert.ErrorIs(t, err, ErrRetriesExhausted)
	assert.Equal(t, 3, gen.calls)
	assert.Len(t, *waits, 2)

	// failed calls do not start the cooldown
	assert.Equal(t, 0, r.Stats().Calls)
	gen.errs = nil
	gen.response = "ok"
	_, err = r.Review(context.Background(), testInput())
	assert.NoError(t, err)
}

func TestReviewer_OtherErrorsReturnImmediately(t *testing.T) {
	gen := &mockGenerator{errs: []error{&googleapi.Error{Code: http.StatusForbidden, Message: "bad key"}}}
	r, waits := newTestReviewer(gen)

	_, err := r.Review(context.Background(), testInput())
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrRetriesExhausted)
	assert.Equal(t, 1, gen.calls)
	assert.Empty(t, *waits)
}

func TestReviewer_Cooldown(t *testing.T) {
	gen := &mockGenerator{response: "first"}
	now := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	r, _ := newTestReviewer(gen, WithGate(NewGate(time.Minute)), WithRetries(2))
	r.now = func() time.Time { return now }

	_, err := r.Review(context.Background(), testInput())
	require.NoError(t, err)

	now = now.Add(10 * time.Second)
	_, err = r.Review(context.Background(), testInput())
	var ce *CooldownError
	require.ErrorAs(t, err, &ce)
	assert.Equal(t, 50*time.Second, ce.RetryAfter)
	assert.Equal(t, 1, gen.calls)
}

func TestReviewer_CanceledWhileWaiting(t *testing.T) {
	gen := &mockGenerator{errs: []error{fmt.Errorf("status 429")}}
	r := NewReviewer(gen)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := r.Review(ctx, testInput())
	assert.ErrorIs(t, err, context.Canceled)
	assert.False(t, r.Stats().InFlight)
}

func TestIsRateLimited(t *testing.T) {
	assert.False(t, IsRateLimited(nil))
	assert.True(t, IsRateLimited(&googleapi.Error{Code: 429}))
	assert.True(t, IsRateLimited(fmt.Errorf("wrapped: %w", &googleapi.Error{Code: 429})))
	assert.False(t, IsRateLimited(&googleapi.Error{Code: 500}))
	assert.True(t, IsRateLimited(errors.New("Error 429: Resource has been exhausted")))
	assert.False(t, IsRateLimited(errors.New("deadline exceeded")))
}
