// Package audio turns story text into narration audio.
package audio

import (
	"context"
	"errors"
	"fmt"

	"github.com/rs/zerolog"

	"story-shorts/internal/fallback"
	"story-shorts/internal/shell"
)

// ErrSynthesisUnavailable is returned when no synthesizer produced audio.
var ErrSynthesisUnavailable = errors.New("narration synthesis unavailable")

const enhanceFilter = "highpass=f=80,lowpass=f=8000,volume=1.2"

// minAudioBytes rejects error pages and empty bodies served as audio.
const minAudioBytes = 100

// Synthesizer converts text to MP3 bytes.
type Synthesizer interface {
	Name() string
	Synthesize(ctx context.Context, text string) ([]byte, error)
}

// MediaStore is where narration files are written.
type MediaStore interface {
	Write(ctx context.Context, key string, data []byte) (string, error)
	Path(key string) (string, error)
	Remove(key string) error
}

// Options configures a Narrator.
type Options struct {
	Synthesizers []Synthesizer
	Media        MediaStore
	Runner       shell.Runner
	Enhance      bool
	Logger       zerolog.Logger
	OnResolved   func(capability, provider string)
}

// Narrator synthesizes narration through an ordered chain of synthesizers
// and stores the result as audio/<content id>.mp3.
type Narrator struct {
	chain   *fallback.Chain[string, []byte]
	media   MediaStore
	runner  shell.Runner
	enhance bool
	logger  zerolog.Logger
}

func NewNarrator(opts Options) *Narrator {
	providers := make([]fallback.Provider[string, []byte], 0, len(opts.Synthesizers))
	for _, s := range opts.Synthesizers {
		providers = append(providers, fallback.Provider[string, []byte]{
			Name: s.Name(),
			Attempt: func(ctx context.Context, text string) ([]byte, error) {
				data, err := s.Synthesize(ctx, text)
				if err != nil {
					return nil, err
				}
				if len(data) < minAudioBytes {
					return nil, fmt.Errorf("audio too small (%d bytes)", len(data))
				}
				return data, nil
			},
		})
	}
	return &Narrator{
		chain: &fallback.Chain[string, []byte]{
			Capability: "narration",
			Providers:  providers,
			Logger:     opts.Logger,
			OnResolved: opts.OnResolved,
		},
		media:   opts.Media,
		runner:  opts.Runner,
		enhance: opts.Enhance && opts.Runner != nil,
		logger:  opts.Logger,
	}
}

// Providers lists the configured synthesizer names in order.
func (n *Narrator) Providers() []string { return n.chain.Names() }

// Synthesize narrates text for contentID and returns the audio storage key
// and the synthesizer that produced it.
func (n *Narrator) Synthesize(ctx context.Context, contentID, text string) (string, string, error) {
	data, provider, err := n.chain.Resolve(ctx, text)
	if err != nil {
		return "", "", fmt.Errorf("%w: %w", ErrSynthesisUnavailable, err)
	}

	key := "audio/" + contentID + ".mp3"
	if n.enhance {
		if enhanced, err := n.enhanced(ctx, contentID, data); err != nil {
			n.logger.Warn().Err(err).Str("content_id", contentID).Msg("audio enhancement failed, keeping raw narration")
		} else {
			return enhanced, provider, nil
		}
	}
	stored, err := n.media.Write(ctx, key, data)
	if err != nil {
		return "", "", fmt.Errorf("%w: store audio: %w", ErrSynthesisUnavailable, err)
	}
	return stored, provider, nil
}

// enhanced runs the narration through a light cleanup filter.
func (n *Narrator) enhanced(ctx context.Context, contentID string, data []byte) (string, error) {
	rawKey, err := n.media.Write(ctx, "audio/"+contentID+".raw.mp3", data)
	if err != nil {
		return "", err
	}
	defer func() {
		if err := n.media.Remove(rawKey); err != nil {
			n.logger.Warn().Err(err).Str("content_id", contentID).Msg("could not remove raw narration")
		}
	}()
	rawPath, err := n.media.Path(rawKey)
	if err != nil {
		return "", err
	}
	key := "audio/" + contentID + ".mp3"
	outPath, err := n.media.Path(key)
	if err != nil {
		return "", err
	}
	err = n.runner.Run(ctx, "ffmpeg", "-y", "-i", rawPath,
		"-af", enhanceFilter,
		"-ar", "44100",
		"-b:a", "128k",
		outPath,
	)
	if err != nil {
		return "", err
	}
	return key, nil
}
