package platform

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/go-github/v83/github"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParsePlatform(t *testing.T) {
	p, err := ParsePlatform(" GitHub ")
	require.NoError(t, err)
	assert.Equal(t, GitHub, p)

	_, err = ParsePlatform("gitlab")
	assert.Error(t, err)
}

func TestError(t *testing.T) {
	err := fail(LeetCode, "bob", ErrNotFound)
	assert.True(t, IsNotFound(err))
	assert.Equal(t, `leetcode user "bob": user not found`, err.Error())

	cause := errors.New("boom")
	err = fail(HackerRank, "bob", cause)
	assert.ErrorIs(t, err, cause)
	assert.False(t, IsNotFound(err))
}

func TestWaitForRateLimit_Nil(t *testing.T) {
	assert.NoError(t, waitForRateLimit(context.Background(), nil))
}

func TestWaitForRateLimit_HighRemaining(t *testing.T) {
	resp := &github.Response{
		Rate: github.Rate{
			Remaining: 100,
			Limit:     5000,
			Reset:     github.Timestamp{Time: time.Now().Add(time.Hour)},
		},
	}
	assert.NoError(t, waitForRateLimit(context.Background(), resp))
}

func TestWaitForRateLimit_ResetInPast(t *testing.T) {
	resp := &github.Response{
		Rate: github.Rate{
			Remaining: 0,
			Limit:     5000,
			Reset:     github.Timestamp{Time: time.Now().Add(-time.Hour)},
		},
	}
	assert.NoError(t, waitForRateLimit(context.Background(), resp))
}

func TestWaitForRateLimit_Canceled(t *testing.T) {
	resp := &github.Response{
		Rate: github.Rate{
			Remaining: 1,
			Limit:     5000,
			Reset:     github.Timestamp{Time: time.Now().Add(time.Hour)},
		},
	}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.ErrorIs(t, waitForRateLimit(ctx, resp), context.Canceled)
}
