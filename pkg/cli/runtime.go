package cli

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/mchmarny/devscore/pkg/config"
	"github.com/mchmarny/devscore/pkg/data"
	"github.com/mchmarny/devscore/pkg/metrics"
	"github.com/mchmarny/devscore/pkg/net"
	"github.com/mchmarny/devscore/pkg/platform"
	"github.com/mchmarny/devscore/pkg/profile"
	"github.com/mchmarny/devscore/pkg/review"
)

// runtime holds the services shared by the score, history and server commands.
type runtime struct {
	store    *data.Store
	service  *profile.Service
	reviewer *review.Reviewer
	gen      *review.GeminiGenerator
	metrics  *metrics.Recorder
}

func newRuntime(ctx context.Context, cfg *config.Config) (*runtime, error) {
	rt := &runtime{metrics: metrics.New()}

	dsn := cfg.DBDSN
	if dsn == "" && cfg.DBDriver == data.DriverSQLite {
		dsn = config.DefaultDSN()
	}

	store, err := data.Open(ctx, cfg.DBDriver, dsn)
	if err != nil {
		return nil, fmt.Errorf("opening %s store: %w", cfg.DBDriver, err)
	}
	rt.store = store

	fetchers, err := newFetchers(ctx, cfg)
	if err != nil {
		rt.Close()
		return nil, err
	}

	opts := []profile.Option{
		profile.WithStore(store),
		profile.WithMetrics(rt.metrics),
		profile.WithCacheTTL(cfg.CacheTTL),
		profile.WithFetchTimeout(cfg.FetchTimeout),
	}

	key := secretOrStored(cfg.GeminiAPIKey, keyringGeminiUser)
	if key != "" {
		gen, err := review.NewGeminiGenerator(ctx, key, cfg.GeminiModel)
		if err != nil {
			rt.Close()
			return nil, err
		}
		rt.gen = gen
		rt.reviewer = review.NewReviewer(gen,
			review.WithGate(review.NewGate(cfg.ReviewInterval)),
			review.WithRetries(cfg.ReviewRetries),
		)
		opts = append(opts, profile.WithReviewer(rt.reviewer))
	} else {
		slog.Debug("no Gemini API key, reviews disabled")
	}

	svc, err := profile.NewService(fetchers, opts...)
	if err != nil {
		rt.Close()
		return nil, fmt.Errorf("creating profile service: %w", err)
	}
	rt.service = svc

	return rt, nil
}

func newFetchers(ctx context.Context, cfg *config.Config) ([]platform.Fetcher, error) {
	token := secretOrStored(cfg.GitHubToken, keyringGitHubUser)
	if token == "" {
		slog.Warn("no GitHub token, using anonymous API access with lower rate limits")
	}

	gh, err := platform.NewGitHubFetcher(ctx, token,
		platform.WithGitHubURLs(cfg.GitHubAPIURL, cfg.GitHubWebURL),
		platform.WithGitHubMaxPages(cfg.GitHubMaxPages),
	)
	if err != nil {
		return nil, fmt.Errorf("creating GitHub fetcher: %w", err)
	}

	hc, err := net.GetHTTPClient()
	if err != nil {
		return nil, fmt.Errorf("creating HTTP client: %w", err)
	}

	return []platform.Fetcher{
		gh,
		platform.NewLeetCodeFetcher(hc, cfg.LeetCodeURL),
		platform.NewHackerRankFetcher(hc, cfg.HackerRankURL),
	}, nil
}

// reviewStats returns nil when reviews are disabled.
func (r *runtime) reviewStats() *review.GateStats {
	if r.reviewer == nil {
		return nil
	}
	s := r.reviewer.Stats()
	return &s
}

func (r *runtime) Close() {
	if r.gen != nil {
		if err := r.gen.Close(); err != nil {
			slog.Debug("error closing Gemini client", "error", err)
		}
	}
	if err := r.store.Close(); err != nil {
		slog.Error("error closing store", "error", err)
	}
}
