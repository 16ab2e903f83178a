package net

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/PuerkitoBio/goquery"
)

const maxErrorBodyBytes = 512

var ErrorURLNotFound = errors.New("URL not found")

// StatusError is returned for any non-2xx response other than 404.
type StatusError struct {
	Code int
	URL  string
	Body string
}

func (e *StatusError) Error() string {
	if e.Body == "" {
		return fmt.Sprintf("unexpected status %d from %s", e.Code, e.URL)
	}
	return fmt.Sprintf("unexpected status %d from %s: %s", e.Code, e.URL, e.Body)
}

// GetJSON retrieves the content at url and decodes it into target.
// A nil client uses GetHTTPClient.
func GetJSON[T any](ctx context.Context, client *http.Client, url string, target *T) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return fmt.Errorf("creating HTTP GET request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	return doJSON(client, req, target)
}

// PostJSON encodes body as JSON, posts it to url and decodes the response into target.
func PostJSON[T any](ctx context.Context, client *http.Client, url string, body any, target *T) error {
	b, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("encoding request body: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(b))
	if err != nil {
		return fmt.Errorf("creating HTTP POST request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	return doJSON(client, req, target)
}

// GetDocument retrieves the HTML page at url and parses it.
func GetDocument(ctx context.Context, client *http.Client, url string) (*goquery.Document, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("creating HTTP GET request: %w", err)
	}
	req.Header.Set("Accept", "text/html")

	resp, err := do(client, req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	doc, err := goquery.NewDocumentFromReader(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("parsing HTML from %s: %w", url, err)
	}
	return doc, nil
}

func doJSON[T any](client *http.Client, req *http.Request, target *T) error {
	resp, err := do(client, req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if err := json.NewDecoder(resp.Body).Decode(target); err != nil {
		return fmt.Errorf("decoding content from %s: %w", req.URL, err)
	}
	return nil
}

// do sends the request and checks the status. The caller closes the body
// of a successful response.
func do(client *http.Client, req *http.Request) (*http.Response, error) {
	if client == nil {
		c, err := GetHTTPClient()
		if err != nil {
			return nil, fmt.Errorf("creating HTTP client: %w", err)
		}
		client = c
	}

	req.Header.Set("User-Agent", ClientAgent)

	resp, err := client.Do(req) //nolint:gosec // URL built from configured base URLs
	if err != nil {
		return nil, fmt.Errorf("sending request to %s: %w", req.URL, err)
	}

	if resp.StatusCode == http.StatusNotFound {
		resp.Body.Close()
		return nil, ErrorURLNotFound
	}

	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		defer resp.Body.Close()
		PrintHTTPResponse(resp)
		b, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBodyBytes))
		return nil, &StatusError{Code: resp.StatusCode, URL: req.URL.String(), Body: string(bytes.TrimSpace(b))}
	}

	return resp, nil
}
