package platform

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/google/go-github/v83/github"
	reputation "github.com/mchmarny/reputer/pkg/score"

	"github.com/mchmarny/devscore/pkg/net"
	"github.com/mchmarny/devscore/pkg/score"
)

const (
	gitHubWebURL       = "https://github.com"
	gitHubPageSize     = 100
	gitHubMaxPagesDef  = 1
	gitHubRepoListType = "owner"
	hoursPerDay        = 24
)

var contributionsRegEx = regexp.MustCompile(`([\d,]+)\s+contributions?`)

// GitHubFetcher reads repository and profile counts from the GitHub API and
// scrapes the yearly contribution count from the public profile.
type GitHubFetcher struct {
	client   *github.Client
	web      *http.Client
	webURL   string
	maxPages int
	now      func() time.Time
}

// GitHubOption configures a GitHubFetcher.
type GitHubOption func(*GitHubFetcher) error

// WithGitHubURLs points the fetcher at different API and web hosts.
func WithGitHubURLs(apiURL, webURL string) GitHubOption {
	return func(f *GitHubFetcher) error {
		if apiURL != "" {
			if !strings.HasSuffix(apiURL, "/") {
				apiURL += "/"
			}
			u, err := url.Parse(apiURL)
			if err != nil {
				return fmt.Errorf("parsing GitHub API URL %q: %w", apiURL, err)
			}
			f.client.BaseURL = u
		}
		if webURL != "" {
			f.webURL = strings.TrimSuffix(webURL, "/")
		}
		return nil
	}
}

// WithGitHubMaxPages limits how many pages of repositories are listed.
func WithGitHubMaxPages(n int) GitHubOption {
	return func(f *GitHubFetcher) error {
		if n < 1 {
			return fmt.Errorf("max pages must be positive: %d", n)
		}
		f.maxPages = n
		return nil
	}
}

// WithWebClient sets the client used to scrape the public profile.
func WithWebClient(c *http.Client) GitHubOption {
	return func(f *GitHubFetcher) error {
		f.web = c
		return nil
	}
}

// NewGitHubFetcher creates a fetcher. An empty token uses anonymous access.
func NewGitHubFetcher(ctx context.Context, token string, opts ...GitHubOption) (*GitHubFetcher, error) {
	var hc *http.Client
	if token != "" {
		hc = net.GetOAuthClient(ctx, token)
	} else {
		c, err := net.GetHTTPClient()
		if err != nil {
			return nil, fmt.Errorf("creating HTTP client: %w", err)
		}
		hc = c
	}

	f := &GitHubFetcher{
		client:   github.NewClient(hc),
		webURL:   gitHubWebURL,
		maxPages: gitHubMaxPagesDef,
		now:      time.Now,
	}

	for _, o := range opts {
		if err := o(f); err != nil {
			return nil, err
		}
	}

	return f, nil
}

func (f *GitHubFetcher) Platform() Platform {
	return GitHub
}

func (f *GitHubFetcher) Fetch(ctx context.Context, username string) (*Snapshot, error) {
	usr, resp, err := f.client.Users.Get(ctx, username)
	if err != nil {
		if isGitHubNotFound(err) {
			return nil, fail(GitHub, username, ErrNotFound)
		}
		return nil, fail(GitHub, username, fmt.Errorf("getting user: %w", err))
	}
	if err := waitForRateLimit(ctx, resp); err != nil {
		return nil, fail(GitHub, username, err)
	}

	var stars, forks int
	langs := score.Languages{}
	seen := make(map[string]struct{})

	opt := &github.RepositoryListByUserOptions{
		Type:        gitHubRepoListType,
		ListOptions: github.ListOptions{PerPage: gitHubPageSize},
	}

	for page := 0; page < f.maxPages; page++ {
		repos, resp, err := f.client.Repositories.ListByUser(ctx, username, opt)
		if err != nil {
			if isGitHubNotFound(err) {
				return nil, fail(GitHub, username, ErrNotFound)
			}
			return nil, fail(GitHub, username, fmt.Errorf("listing repositories: %w", err))
		}

		for _, r := range repos {
			stars += r.GetStargazersCount()
			forks += r.GetForksCount()
			if l := r.GetLanguage(); l != "" {
				if _, ok := seen[l]; !ok {
					seen[l] = struct{}{}
					langs = append(langs, l)
				}
			}
		}

		if resp == nil || resp.NextPage == 0 {
			break
		}
		if err := waitForRateLimit(ctx, resp); err != nil {
			return nil, fail(GitHub, username, err)
		}
		opt.Page = resp.NextPage
	}

	contribs, err := f.contributions(ctx, username)
	if err != nil {
		slog.Warn("could not read GitHub contributions, using 0",
			"username", username,
			"error", err,
		)
	}

	snap := &Snapshot{
		Platform: GitHub,
		Username: username,
		Metrics: score.ProfileMetrics{
			GitHubRepos:     score.OfInt(usr.GetPublicRepos()),
			GitHubStars:     score.OfInt(stars),
			GitHubFollowers: score.OfInt(usr.GetFollowers()),
			GitHubForks:     score.OfInt(forks),
			Contributions:   score.OfInt(contribs),
			TopLanguages:    langs,
		},
		Extra: f.extra(usr),
	}

	slog.Debug("github snapshot",
		"username", username,
		"repos", usr.GetPublicRepos(),
		"stars", stars,
		"forks", forks,
		"contributions", contribs,
	)

	return snap, nil
}

// contributions scrapes the "N contributions in the last year" heading.
func (f *GitHubFetcher) contributions(ctx context.Context, username string) (int, error) {
	u := fmt.Sprintf("%s/users/%s/contributions", f.webURL, url.PathEscape(username))

	doc, err := net.GetDocument(ctx, f.web, u)
	if err != nil {
		return 0, fmt.Errorf("getting contributions page: %w", err)
	}

	return parseContributions(doc)
}

func parseContributions(doc *goquery.Document) (int, error) {
	var (
		count int
		found bool
		err   error
	)

	doc.Find("h2").EachWithBreak(func(_ int, s *goquery.Selection) bool {
		m := contributionsRegEx.FindStringSubmatch(strings.Join(strings.Fields(s.Text()), " "))
		if m == nil {
			return true
		}
		found = true
		count, err = strconv.Atoi(strings.ReplaceAll(m[1], ",", ""))
		return false
	})

	if err != nil {
		return 0, fmt.Errorf("parsing contribution count: %w", err)
	}
	if !found {
		return 0, errors.New("contribution count not found on page")
	}
	return count, nil
}

func (f *GitHubFetcher) extra(usr *github.User) map[string]any {
	var ageDays int64
	if usr.CreatedAt != nil {
		ageDays = int64(f.now().Sub(usr.CreatedAt.Time).Hours() / hoursPerDay)
	}

	signals := reputation.Signals{
		AgeDays:     ageDays,
		Followers:   int64(usr.GetFollowers()),
		Following:   int64(usr.GetFollowing()),
		PublicRepos: int64(usr.GetPublicRepos()),
		Suspended:   usr.SuspendedAt != nil,
	}

	return map[string]any{
		"reputation":       reputation.Compute(signals),
		"account_age_days": ageDays,
		"public_gists":     usr.GetPublicGists(),
	}
}

func isGitHubNotFound(err error) bool {
	var ger *github.ErrorResponse
	return errors.As(err, &ger) && ger.Response != nil && ger.Response.StatusCode == http.StatusNotFound
}
