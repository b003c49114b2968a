// Package upload publishes finished videos to social platforms.
package upload

import (
	"context"
	"errors"
	"fmt"
	"os"
	"slices"
	"time"

	"github.com/rs/zerolog"

	"story-shorts/internal/types"
)

// Platform uploads one video and returns a reference to it.
type Platform interface {
	Name() string
	Upload(ctx context.Context, rec *types.ContentRecord, videoPath string) (string, error)
}

// MediaStore resolves a record's video key to a local file.
type MediaStore interface {
	Path(key string) (string, error)
}

// Publisher runs every configured platform and reports each one separately.
type Publisher struct {
	platforms []Platform
	media     MediaStore
	timeout   time.Duration
	logger    zerolog.Logger
}

// NewPublisher creates a Publisher. timeout bounds each platform upload; zero means none.
func NewPublisher(platforms []Platform, media MediaStore, timeout time.Duration, logger zerolog.Logger) *Publisher {
	return &Publisher{platforms: platforms, media: media, timeout: timeout, logger: logger}
}

// Platforms lists the configured platform names in order.
func (p *Publisher) Platforms() []string {
	names := make([]string, 0, len(p.platforms))
	for _, pl := range p.platforms {
		names = append(names, pl.Name())
	}
	return names
}

// Publish uploads rec to the named platforms, or to every configured
// platform when only is nil. Names that are not configured are ignored.
// A failed platform never stops the others.
func (p *Publisher) Publish(ctx context.Context, rec *types.ContentRecord, only []string) map[string]types.PublishResult {
	results := make(map[string]types.PublishResult, len(p.platforms))
	log := p.logger.With().Str("content_id", rec.ID).Logger()

	videoPath, pathErr := p.videoPath(rec)
	for _, pl := range p.platforms {
		if only != nil && !slices.Contains(only, pl.Name()) {
			continue
		}
		if pathErr != nil {
			results[pl.Name()] = types.PublishResult{Error: pathErr.Error()}
			continue
		}
		ref, err := p.upload(ctx, pl, rec, videoPath)
		if err != nil {
			log.Warn().Err(err).Str("platform", pl.Name()).Msg("publish failed")
			results[pl.Name()] = types.PublishResult{Error: err.Error()}
			continue
		}
		log.Info().Str("platform", pl.Name()).Str("reference", ref).Msg("published")
		results[pl.Name()] = types.PublishResult{Success: true, Reference: ref}
	}
	return results
}

func (p *Publisher) upload(ctx context.Context, pl Platform, rec *types.ContentRecord, videoPath string) (string, error) {
	if p.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, p.timeout)
		defer cancel()
	}
	return pl.Upload(ctx, rec, videoPath)
}

func (p *Publisher) videoPath(rec *types.ContentRecord) (string, error) {
	if rec.VideoURL == "" {
		return "", errors.New("record has no video")
	}
	path, err := p.media.Path(rec.VideoURL)
	if err != nil {
		return "", fmt.Errorf("resolve video: %w", err)
	}
	if _, err := os.Stat(path); err != nil {
		return "", fmt.Errorf("video file: %w", err)
	}
	return path, nil
}
