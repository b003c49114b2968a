package visuals

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"story-shorts/internal/fallback"
)

const userAgent = "story-shorts/1.0 (+https://github.com/story-shorts)"

// getJSON fetches url into out, retrying transient failures.
func getJSON(ctx context.Context, client *http.Client, url string, header http.Header, out any) error {
	return fallback.Retry(ctx, 3, time.Second, func() error {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
		if err != nil {
			return fallback.Permanent(err)
		}
		for k, v := range header {
			req.Header[k] = v
		}
		if req.Header.Get("User-Agent") == "" {
			req.Header.Set("User-Agent", userAgent)
		}
		resp, err := client.Do(req)
		if err != nil {
			return err
		}
		defer resp.Body.Close()
		if resp.StatusCode != http.StatusOK {
			body, _ := io.ReadAll(io.LimitReader(resp.Body, 256))
			err := fmt.Errorf("status %d: %s", resp.StatusCode, body)
			if resp.StatusCode >= 400 && resp.StatusCode < 500 && resp.StatusCode != http.StatusTooManyRequests {
				return fallback.Permanent(err)
			}
			return err
		}
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return fallback.Permanent(fmt.Errorf("decode response: %w", err))
		}
		return nil
	})
}
