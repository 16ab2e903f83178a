package platform

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mchmarny/devscore/pkg/net"
	"github.com/mchmarny/devscore/pkg/score"
)

const testHackerRankHTML = `<html><body>
<section class="badges">
  <div class="hacker-badge"><svg></svg>Problem Solving</div>
  <div class="hacker-badge">Python</div>
  <div class="hacker-badge">SQL</div>
  <div class="badge-title">not a badge</div>
</section>
<section class="skills">
  <div class="profile-skill">Go (Basic)</div>
  <div class="profile-skill">REST API</div>
</section>
</body></html>`

func newHackerRankServer(t *testing.T) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("GET /coder", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, net.ClientAgent, r.Header.Get("User-Agent"))
		fmt.Fprint(w, testHackerRankHTML)
	})
	mux.HandleFunc("GET /empty", func(w http.ResponseWriter, _ *http.Request) {
		fmt.Fprint(w, `<html><body><h1>empty</h1></body></html>`)
	})
	mux.HandleFunc("GET /blocked", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusForbidden)
	})
	s := httptest.NewServer(mux)
	t.Cleanup(s.Close)
	return s
}

func TestHackerRankFetcher_Fetch(t *testing.T) {
	s := newHackerRankServer(t)
	f := NewHackerRankFetcher(s.Client(), s.URL+"/")
	assert.Equal(t, HackerRank, f.Platform())

	snap, err := f.Fetch(context.Background(), "coder")
	require.NoError(t, err)
	assert.Equal(t, score.OfInt(3), snap.Metrics.HackerRankBadges)
	assert.Equal(t, score.OfInt(2), snap.Metrics.HackerRankSkills)
	assert.Equal(t, HackerRank, snap.Platform)
}

func TestHackerRankFetcher_Empty(t *testing.T) {
	s := newHackerRankServer(t)
	f := NewHackerRankFetcher(nil, s.URL)

	snap, err := f.Fetch(context.Background(), "empty")
	require.NoError(t, err)
	assert.Equal(t, score.OfInt(0), snap.Metrics.HackerRankBadges)
	assert.Equal(t, score.OfInt(0), snap.Metrics.HackerRankSkills)
}

func TestHackerRankFetcher_Errors(t *testing.T) {
	s := newHackerRankServer(t)
	f := NewHackerRankFetcher(nil, s.URL)

	_, err := f.Fetch(context.Background(), "missing")
	assert.True(t, IsNotFound(err))

	_, err = f.Fetch(context.Background(), "blocked")
	require.Error(t, err)
	assert.False(t, IsNotFound(err))
	var se *net.StatusError
	assert.ErrorAs(t, err, &se)
}
