package jobs

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"golang.org/x/time/rate"
)

const (
	fetchTimeout = 10 * time.Second
	maxBodySize  = 4 << 20
	userAgent    = "resumesync/1.0 (+https://github.com/kalambet/resumesync)"
)

// fetcher issues rate-limited GET requests for one job board.
type fetcher struct {
	client  *http.Client
	limiter *rate.Limiter
}

func newFetcher(client *http.Client, rps float64, burst int) fetcher {
	if client == nil {
		client = &http.Client{Timeout: fetchTimeout}
	}
	return fetcher{client: client, limiter: rate.NewLimiter(rate.Limit(rps), burst)}
}

// getJSON fetches url and decodes the JSON body into out.
func (f fetcher) getJSON(ctx context.Context, url string, out any) error {
	if err := f.limiter.Wait(ctx); err != nil {
		return fmt.Errorf("waiting for rate limiter: %w", err)
	}

	ctx, cancel := context.WithTimeout(ctx, fetchTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Accept", "application/json")

	resp, err := f.client.Do(req)
	if err != nil {
		return fmt.Errorf("executing request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("unexpected status %d", resp.StatusCode)
	}
	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodySize))
	if err != nil {
		return fmt.Errorf("reading body: %w", err)
	}
	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("decoding body: %w", err)
	}
	return nil
}
