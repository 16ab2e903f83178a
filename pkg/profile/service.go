// Package profile scores a developer across all platforms: it fetches the
// platforms in parallel, merges and scores the metrics, optionally asks for
// a review, and keeps a history of the results.
package profile

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/mchmarny/devscore/pkg/data"
	"github.com/mchmarny/devscore/pkg/metrics"
	"github.com/mchmarny/devscore/pkg/platform"
	"github.com/mchmarny/devscore/pkg/review"
	"github.com/mchmarny/devscore/pkg/score"
)

const (
	DefaultCacheTTL     = 24 * time.Hour
	DefaultFetchTimeout = 20 * time.Second

	errReviewNotConfigured = "review is not configured, set a Gemini API key"
)

// Store is the score history used for caching and persistence.
type Store interface {
	SaveScore(ctx context.Context, rec *data.ScoreRecord) error
	GetLatestScore(ctx context.Context, github, leetcode, hackerrank string, since time.Time) (*data.ScoreRecord, error)
	ListScores(ctx context.Context, github string, limit int) ([]*data.ScoreRecord, error)
}

// Reviewer produces a natural-language review of a scored profile.
type Reviewer interface {
	Review(ctx context.Context, in review.Input) (string, error)
}

// Options controls a single scoring request.
type Options struct {
	// Review requests an AI review of the result.
	Review bool
	// Fresh skips the cached result.
	Fresh bool
}

// Service scores developers.
type Service struct {
	fetchers     map[platform.Platform]platform.Fetcher
	store        Store
	reviewer     Reviewer
	metrics      *metrics.Recorder
	validate     *validator.Validate
	cacheTTL     time.Duration
	fetchTimeout time.Duration
	now          func() time.Time
}

// Option configures a Service.
type Option func(*Service)

// WithStore enables caching and persistence.
func WithStore(s Store) Option {
	return func(svc *Service) { svc.store = s }
}

// WithReviewer enables AI reviews.
func WithReviewer(r Reviewer) Option {
	return func(svc *Service) { svc.reviewer = r }
}

// WithMetrics records fetch and score metrics.
func WithMetrics(m *metrics.Recorder) Option {
	return func(svc *Service) { svc.metrics = m }
}

// WithCacheTTL sets how long a stored result is reused. Zero disables the cache.
func WithCacheTTL(d time.Duration) Option {
	return func(svc *Service) {
		if d >= 0 {
			svc.cacheTTL = d
		}
	}
}

// WithFetchTimeout bounds each platform fetch.
func WithFetchTimeout(d time.Duration) Option {
	return func(svc *Service) {
		if d > 0 {
			svc.fetchTimeout = d
		}
	}
}

// NewService creates a service. A fetcher is required for every platform.
func NewService(fetchers []platform.Fetcher, opts ...Option) (*Service, error) {
	svc := &Service{
		fetchers:     make(map[platform.Platform]platform.Fetcher, len(fetchers)),
		validate:     newValidator(),
		cacheTTL:     DefaultCacheTTL,
		fetchTimeout: DefaultFetchTimeout,
		now:          time.Now,
	}

	for _, f := range fetchers {
		if f == nil {
			continue
		}
		svc.fetchers[f.Platform()] = f
	}
	for _, p := range platform.All {
		if _, ok := svc.fetchers[p]; !ok {
			return nil, fmt.Errorf("no fetcher for platform %s", p)
		}
	}

	for _, o := range opts {
		o(svc)
	}

	return svc, nil
}

// Score fetches, scores and optionally reviews the developer. A failed
// fetch on any platform fails the request. Review and persistence problems
// never do.
func (s *Service) Score(ctx context.Context, u Usernames, opts Options) (*Report, error) {
	u = u.Trim()
	if err := validate(s.validate, u); err != nil {
		return nil, err
	}

	if !opts.Fresh {
		if rep := s.cached(ctx, u); rep != nil {
			if opts.Review && rep.AIReview == "" {
				s.review(ctx, rep)
			}
			s.metrics.ObserveScore(string(rep.Label), rep.Score, true)
			return rep, nil
		}
	}

	snaps, err := s.fetchAll(ctx, u)
	if err != nil {
		return nil, err
	}

	var m score.ProfileMetrics
	extra := make(map[string]any)
	for _, snap := range snaps {
		m = m.Merge(snap.Metrics)
		if len(snap.Extra) > 0 {
			extra[string(snap.Platform)] = snap.Extra
		}
	}

	b := score.Explain(m)
	rep := &Report{
		ID:        uuid.NewString(),
		Usernames: u,
		Score:     b.Score,
		Label:     score.Classify(b.Score),
		Details:   m,
		Breakdown: b,
		Extra:     extra,
		ScoredAt:  s.now().UTC(),
	}

	if opts.Review {
		s.review(ctx, rep)
	}

	if s.store != nil {
		if err := s.store.SaveScore(ctx, rep.toRecord()); err != nil {
			slog.Error("error saving score", "github", u.GitHub, "error", err)
		}
	}

	s.metrics.ObserveScore(string(rep.Label), rep.Score, false)

	slog.Debug("profile scored",
		"github", u.GitHub,
		"leetcode", u.LeetCode,
		"hackerrank", u.HackerRank,
		"score", rep.Score,
		"label", rep.Label,
	)

	return rep, nil
}

// History returns stored reports, newest first.
func (s *Service) History(ctx context.Context, github string, limit int) ([]*Report, error) {
	if s.store == nil {
		return nil, errors.New("score history is not configured")
	}

	recs, err := s.store.ListScores(ctx, github, limit)
	if err != nil {
		return nil, fmt.Errorf("listing history: %w", err)
	}

	list := make([]*Report, 0, len(recs))
	for _, r := range recs {
		list = append(list, FromRecord(r))
	}
	return list, nil
}

func (s *Service) cached(ctx context.Context, u Usernames) *Report {
	if s.store == nil || s.cacheTTL == 0 {
		return nil
	}

	rec, err := s.store.GetLatestScore(ctx, u.GitHub, u.LeetCode, u.HackerRank, s.now().Add(-s.cacheTTL))
	if err != nil {
		if !errors.Is(err, data.ErrNotFound) {
			slog.Warn("error reading cached score", "github", u.GitHub, "error", err)
		}
		return nil
	}

	rep := FromRecord(rec)
	rep.Cached = true
	return rep
}

// fetchAll returns one snapshot per platform in platform.All order.
func (s *Service) fetchAll(ctx context.Context, u Usernames) ([]*platform.Snapshot, error) {
	snaps := make([]*platform.Snapshot, len(platform.All))
	g, gctx := errgroup.WithContext(ctx)

	for i, p := range platform.All {
		f := s.fetchers[p]
		name := u.For(p)

		g.Go(func() error {
			fctx, cancel := context.WithTimeout(gctx, s.fetchTimeout)
			defer cancel()

			start := time.Now()
			snap, err := f.Fetch(fctx, name)
			s.metrics.ObserveFetch(string(p), fetchOutcome(err), time.Since(start))
			if err != nil {
				return err
			}

			snaps[i] = snap
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return snaps, nil
}

func (s *Service) review(ctx context.Context, rep *Report) {
	if s.reviewer == nil {
		rep.AIReviewError = errReviewNotConfigured
		return
	}

	text, err := s.reviewer.Review(ctx, review.Input{
		GitHub:     rep.Usernames.GitHub,
		LeetCode:   rep.Usernames.LeetCode,
		HackerRank: rep.Usernames.HackerRank,
		Metrics:    rep.Details,
		Breakdown:  rep.Breakdown,
		Label:      rep.Label,
	})
	if err != nil {
		var ce *review.CooldownError
		if errors.As(err, &ce) {
			s.metrics.ObserveReview(metrics.OutcomeCooldown)
		} else {
			s.metrics.ObserveReview(metrics.OutcomeError)
			slog.Warn("review failed", "github", rep.Usernames.GitHub, "error", err)
		}
		rep.AIReviewError = err.Error()
		return
	}

	s.metrics.ObserveReview(metrics.OutcomeOK)
	rep.AIReview = text
}

func fetchOutcome(err error) string {
	switch {
	case err == nil:
		return metrics.OutcomeOK
	case platform.IsNotFound(err):
		return metrics.OutcomeNotFound
	default:
		return metrics.OutcomeError
	}
}
