package sources

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"volna/config"
	"volna/types"
)

const userAgent = "Mozilla/5.0 (X11; Linux x86_64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/124.0 Safari/537.36"

// httpClient is shared by all adapters. Per-call deadlines come from the
// caller's context; the client timeout is only a backstop.
var httpClient = &http.Client{Timeout: config.SourceTimeout}

// fetchRaw performs a GET and returns the body and status code. Only
// transport-level failures produce an error (wrapped as ErrSourceUnavailable);
// callers that care about specific statuses inspect the code themselves.
func fetchRaw(ctx context.Context, url string) ([]byte, int, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, 0, fmt.Errorf("%w: %v", types.ErrSourceUnavailable, err)
	}
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Accept-Language", "ru-RU,ru;q=0.9")

	resp, err := httpClient.Do(req)
	if err != nil {
		return nil, 0, fmt.Errorf("%w: %s: %v", types.ErrSourceUnavailable, url, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, resp.StatusCode, fmt.Errorf("%w: reading %s: %v", types.ErrSourceUnavailable, url, err)
	}
	return body, resp.StatusCode, nil
}

// fetch performs a GET and returns the body. Transport errors and
// non-success statuses map to ErrSourceUnavailable, 404/410 to ErrNotFound.
func fetch(ctx context.Context, url string) ([]byte, error) {
	body, status, err := fetchRaw(ctx, url)
	if err != nil {
		return nil, err
	}
	if status == http.StatusNotFound || status == http.StatusGone {
		return nil, fmt.Errorf("%w: %s returned %d", types.ErrNotFound, url, status)
	}
	if status < 200 || status > 299 {
		return nil, fmt.Errorf("%w: %s returned %d", types.ErrSourceUnavailable, url, status)
	}
	return body, nil
}

// fetchJSON decodes a JSON endpoint into v. Decode failures map to ErrParse.
func fetchJSON(ctx context.Context, url string, v any) error {
	body, err := fetch(ctx, url)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(body, v); err != nil {
		return fmt.Errorf("%w: unexpected response from %s: %v", types.ErrParse, url, err)
	}
	return nil
}

// parseTimeAny tries the timestamp layouts seen across the upstream APIs.
// Returns the zero time when nothing matches.
func parseTimeAny(s string) time.Time {
	layouts := []string{
		time.RFC3339,
		"2006-01-02T15:04:05",
		"2006-01-02 15:04:05",
		"02.01.2006 15:04",
	}
	for _, layout := range layouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t
		}
	}
	return time.Time{}
}
