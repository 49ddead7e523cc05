package fragment

import (
	"context"
	"fmt"
	"io"
	"log"
	"net/http"
)

// maxFragmentBytes bounds how much of a fragment response is read.
const maxFragmentBytes = 4 << 20

// Fetcher retrieves fragments by trying each candidate URL in sequence,
// one at a time, until one returns HTTP success.
type Fetcher struct {
	resolver *Resolver
	client   *http.Client
}

// NewFetcher creates a fetcher over the given resolver. client may be nil,
// in which case http.DefaultClient semantics apply.
func NewFetcher(resolver *Resolver, client *http.Client) *Fetcher {
	if client == nil {
		client = &http.Client{}
	}
	return &Fetcher{resolver: resolver, client: client}
}

// Result is a successfully fetched fragment.
type Result struct {
	HTML string
	URL  string // the candidate that answered
}

// Fetch tries each candidate URL for relPath in order and returns the
// first success. Non-2xx responses and transport errors both mean "try
// the next candidate". On exhaustion the returned error lists the
// attempted candidate count; context cancellation aborts immediately.
func (f *Fetcher) Fetch(ctx context.Context, relPath string) (*Result, error) {
	candidates := f.resolver.Candidates(relPath)

	var lastErr error
	for _, u := range candidates {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		html, err := f.fetchOne(ctx, u)
		if err != nil {
			lastErr = err
			log.Printf("fragment: candidate %s failed: %v", u, err)
			continue
		}
		return &Result{HTML: html, URL: u}, nil
	}
	return nil, fmt.Errorf("all %d candidates for %q failed: %w", len(candidates), relPath, lastErr)
}

func (f *Fetcher) fetchOne(ctx context.Context, url string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return "", fmt.Errorf("building request: %w", err)
	}
	// Defeat intermediate caches; the cache buster handles the rest.
	req.Header.Set("Cache-Control", "no-store")
	req.Header.Set("Pragma", "no-cache")

	resp, err := f.client.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))
		return "", fmt.Errorf("status %d", resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxFragmentBytes))
	if err != nil {
		return "", fmt.Errorf("reading body: %w", err)
	}
	return string(body), nil
}
