package visuals

import (
	"context"
	"errors"
	"fmt"
	"hash/fnv"
	"net/url"
	"strings"

	"story-shorts/internal/types"
)

const pollinationsURL = "https://image.pollinations.ai/prompt/%s?width=%d&height=%d&nologo=true&model=flux&seed=%d"

// Pollinations builds generated-image URLs from keywords. Images render on
// first fetch, so Search makes no network calls.
type Pollinations struct {
	Width  int
	Height int
}

func NewPollinations(width, height int) *Pollinations {
	if width <= 0 || height <= 0 {
		width, height = 1920, 1080
	}
	return &Pollinations{Width: width, Height: height}
}

func (p *Pollinations) Name() string { return "pollinations" }

func (p *Pollinations) Search(_ context.Context, keywords []string, limit int) ([]types.Image, error) {
	if len(keywords) == 0 {
		return nil, errors.New("pollinations: no keywords")
	}
	n := len(keywords)
	if limit > 0 && n > limit {
		n = limit
	}
	images := make([]types.Image, 0, n)
	for _, kw := range keywords[:n] {
		prompt := stylePrompt(kw)
		images = append(images, types.Image{
			URL:            fmt.Sprintf(pollinationsURL, url.PathEscape(prompt), p.Width, p.Height, seed(kw)),
			AltText:        kw,
			SourceProvider: p.Name(),
		})
	}
	return images, nil
}

// stylePrompt adds a cinematic look and keeps text out of the frame.
func stylePrompt(subject string) string {
	return strings.Join([]string{
		subject,
		"cinematic, dramatic lighting, rich colors, photorealistic, 4K",
		"no text, no watermark",
	}, ", ")
}

// seed keeps the same keyword rendering the same image.
func seed(s string) uint32 {
	h := fnv.New32a()
	h.Write([]byte(s))
	return h.Sum32() % 1000000
}
