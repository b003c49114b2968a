package render

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"

	"story-shorts/internal/types"
)

const (
	minImageBytes = 1000
	maxImageBytes = 10 << 20
)

// downloadImages fetches every image into the work dir, skipping failures.
// It fails only when none could be fetched.
func (a *Assembler) downloadImages(ctx context.Context, workKey string, images []types.Image) ([]string, error) {
	if len(images) == 0 {
		return nil, errors.New("no images")
	}
	var frames []string
	for i, img := range images {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		path, err := a.media.Path(fmt.Sprintf("%s/img_%02d.jpg", workKey, i))
		if err != nil {
			return nil, err
		}
		if err := a.downloadFile(ctx, img.URL, path); err != nil {
			a.logger.Warn().Err(err).Str("url", img.URL).Str("provider", img.SourceProvider).Msg("image download failed, skipping")
			continue
		}
		frames = append(frames, path)
	}
	if len(frames) == 0 {
		return nil, errors.New("no image could be downloaded")
	}
	return frames, nil
}

func (a *Assembler) downloadFile(ctx context.Context, url, dest string) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return err
	}
	req.Header.Set("User-Agent", "Mozilla/5.0 (compatible; story-shorts/1.0)")
	resp, err := a.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("status %d", resp.StatusCode)
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxImageBytes+1))
	if err != nil {
		return err
	}
	if len(data) > maxImageBytes {
		return fmt.Errorf("image larger than %d bytes", maxImageBytes)
	}
	if len(data) < minImageBytes {
		return fmt.Errorf("image too small (%d bytes)", len(data))
	}
	return os.WriteFile(dest, data, 0o644)
}
