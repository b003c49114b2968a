package audio

import (
	"fmt"
	"io"
	"net/http"

	"story-shorts/internal/fallback"
)

const browserUserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/124.0 Safari/537.36"

// readAudio reads a successful response body. Client errors other than 429
// are marked permanent so retries stop.
func readAudio(resp *http.Response) ([]byte, error) {
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		err := fmt.Errorf("status %d: %s", resp.StatusCode, body)
		if resp.StatusCode >= 400 && resp.StatusCode < 500 && resp.StatusCode != http.StatusTooManyRequests {
			return nil, fallback.Permanent(err)
		}
		return nil, err
	}
	return io.ReadAll(resp.Body)
}
