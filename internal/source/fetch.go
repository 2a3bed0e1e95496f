package source

import (
	"context"
	"fmt"
	"io"
	"net/http"

	"github.com/spingrid/spingrid/internal/ratelimit"
)

// maxBodyBytes caps how much HTML an adapter will read from one page.
const maxBodyBytes = 2 << 20

// browserUserAgent is sent on scrape requests; several critic sites refuse
// obviously non-browser clients.
const browserUserAgent = "Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36"

// FetchHTML performs a rate-limited GET and returns the page body as a string.
func FetchHTML(ctx context.Context, client *http.Client, limiter *ratelimit.LimiterMap, pageURL string) (string, error) {
	if err := limiter.Wait(ctx, ratelimit.ServiceScrape); err != nil {
		return "", fmt.Errorf("rate limiter: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, pageURL, nil)
	if err != nil {
		return "", fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("User-Agent", browserUserAgent)
	req.Header.Set("Accept", "text/html,application/xhtml+xml,application/xml;q=0.9,*/*;q=0.8")
	req.Header.Set("Accept-Language", "en-US,en;q=0.5")

	resp, err := client.Do(req)
	if err != nil {
		return "", fmt.Errorf("fetching page: %w", err)
	}
	defer resp.Body.Close() //nolint:errcheck

	if resp.StatusCode != http.StatusOK {
		_, _ = io.Copy(io.Discard, resp.Body)
		return "", fmt.Errorf("unexpected HTTP %d", resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return "", fmt.Errorf("reading page body: %w", err)
	}
	return string(body), nil
}
