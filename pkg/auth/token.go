// Package auth implements the GitHub OAuth device flow used to obtain a
// read-only token for profile lookups.
package auth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/mchmarny/devscore/pkg/net"
)

const (
	DeviceCodeURL = "https://github.com/login/device/code"
	AccessCodeURL = "https://github.com/login/oauth/access_token"

	deviceScopes = "" // public profile data only
	grantType    = "urn:ietf:params:oauth:grant-type:device_code"

	defaultInterval = 5 * time.Second
	slowDownStep    = 5 * time.Second
)

// Device flow error codes returned in the token response body.
const (
	errPending  = "authorization_pending"
	errSlowDown = "slow_down"
	errExpired  = "expired_token"
	errDenied   = "access_denied"
)

var (
	ErrExpired = errors.New("device code expired")
	ErrDenied  = errors.New("authorization denied by user")
)

type DeviceCode struct {
	// 40 character code used to verify the device.
	DeviceCode string `json:"device_code,omitempty"`
	// Code the user enters in the browser, e.g. ABCD-1234.
	UserCode string `json:"user_code,omitempty"`
	// Where the user enters UserCode.
	VerificationURL string `json:"verification_uri,omitempty"`
	// Seconds before both codes expire. GitHub defaults to 900.
	ExpiresInSec int `json:"expires_in,omitempty"`
	// Minimum seconds between token requests.
	Interval int `json:"interval,omitempty"`
}

type AccessTokenResponse struct {
	AccessToken string `json:"access_token,omitempty"`
	TokenType   string `json:"token_type,omitempty"`
	Scope       string `json:"scope,omitempty"`
	Error       string `json:"error,omitempty"`
	ErrorDesc   string `json:"error_description,omitempty"`
}

type deviceCodeRequest struct {
	ClientID string `json:"client_id"`
	Scope    string `json:"scope"`
}

type tokenRequest struct {
	ClientID   string `json:"client_id"`
	DeviceCode string `json:"device_code"`
	GrantType  string `json:"grant_type"`
}

// Client runs the device flow against configurable endpoints.
type Client struct {
	ClientID  string
	DeviceURL string
	TokenURL  string
	HTTP      *http.Client

	now   func() time.Time
	sleep func(context.Context, time.Duration) error
}

// NewClient returns a Client for github.com.
func NewClient(clientID string) *Client {
	return &Client{
		ClientID:  clientID,
		DeviceURL: DeviceCodeURL,
		TokenURL:  AccessCodeURL,
	}
}

// GetDeviceCode starts the flow.
func (c *Client) GetDeviceCode(ctx context.Context) (*DeviceCode, error) {
	if c.ClientID == "" {
		return nil, errors.New("clientID is required")
	}

	var dc DeviceCode
	req := deviceCodeRequest{ClientID: c.ClientID, Scope: deviceScopes}
	if err := net.PostJSON(ctx, c.HTTP, c.DeviceURL, req, &dc); err != nil {
		return nil, fmt.Errorf("getting device code: %w", err)
	}
	if dc.DeviceCode == "" {
		return nil, errors.New("empty device code in response")
	}
	return &dc, nil
}

// GetToken makes a single token request. The returned response carries the
// flow error code when the user has not finished authorizing yet.
func (c *Client) GetToken(ctx context.Context, code *DeviceCode) (*AccessTokenResponse, error) {
	if c.ClientID == "" {
		return nil, errors.New("clientID is required")
	}
	if code == nil {
		return nil, errors.New("device code is nil")
	}

	var t AccessTokenResponse
	req := tokenRequest{ClientID: c.ClientID, DeviceCode: code.DeviceCode, GrantType: grantType}
	if err := net.PostJSON(ctx, c.HTTP, c.TokenURL, req, &t); err != nil {
		return nil, fmt.Errorf("requesting access token: %w", err)
	}
	return &t, nil
}

// PollToken requests the token at the interval GitHub asked for until the
// user authorizes the device, the code expires or ctx is done.
func (c *Client) PollToken(ctx context.Context, code *DeviceCode) (*AccessTokenResponse, error) {
	if code == nil {
		return nil, errors.New("device code is nil")
	}

	now := c.now
	if now == nil {
		now = time.Now
	}
	wait := c.sleep
	if wait == nil {
		wait = sleep
	}

	interval := time.Duration(code.Interval) * time.Second
	if interval <= 0 {
		interval = defaultInterval
	}
	expiresAt := now().Add(time.Duration(code.ExpiresInSec) * time.Second)

	for {
		t, err := c.GetToken(ctx, code)
		if err != nil {
			return nil, err
		}

		switch t.Error {
		case "":
			if t.AccessToken == "" {
				return nil, errors.New("access token is empty")
			}
			return t, nil
		case errPending:
		case errSlowDown:
			interval += slowDownStep
		case errExpired:
			return nil, ErrExpired
		case errDenied:
			return nil, ErrDenied
		default:
			return nil, fmt.Errorf("device flow error %s: %s", t.Error, t.ErrorDesc)
		}

		if code.ExpiresInSec > 0 && now().Add(interval).After(expiresAt) {
			return nil, ErrExpired
		}

		slog.Debug("waiting for device authorization", "interval", interval)
		if err := wait(ctx, interval); err != nil {
			return nil, err
		}
	}
}

func sleep(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
