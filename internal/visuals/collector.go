// Package visuals finds images that match a story's keywords.
package visuals

import (
	"context"
	"errors"

	"github.com/rs/zerolog"

	"story-shorts/internal/fallback"
	"story-shorts/internal/types"
)

// Searcher finds images for a set of keywords.
type Searcher interface {
	Name() string
	Search(ctx context.Context, keywords []string, limit int) ([]types.Image, error)
}

// Options configures a Collector.
type Options struct {
	Searchers  []Searcher
	Max        int
	Logger     zerolog.Logger
	OnResolved func(capability, provider string)
}

// Collector gathers up to Max images. The first searcher that returns
// anything wins; later searchers top the set up, and the curated static set
// pads whatever is still missing. It never fails.
type Collector struct {
	chain     *fallback.Chain[[]string, []types.Image]
	searchers []Searcher
	max       int
	logger    zerolog.Logger
}

func NewCollector(opts Options) *Collector {
	max := opts.Max
	if max <= 0 || max > types.MaxImages {
		max = types.MaxImages
	}
	c := &Collector{searchers: opts.Searchers, max: max, logger: opts.Logger}

	providers := make([]fallback.Provider[[]string, []types.Image], 0, len(opts.Searchers))
	for _, s := range opts.Searchers {
		providers = append(providers, fallback.Provider[[]string, []types.Image]{
			Name: s.Name(),
			Attempt: func(ctx context.Context, keywords []string) ([]types.Image, error) {
				return c.search(ctx, s, keywords, c.max)
			},
		})
	}
	static := StaticImages()
	c.chain = &fallback.Chain[[]string, []types.Image]{
		Capability: "images",
		Providers:  providers,
		Static:     &static,
		Logger:     opts.Logger,
		OnResolved: opts.OnResolved,
	}
	return c
}

// Providers lists the configured searcher names in order.
func (c *Collector) Providers() []string { return c.chain.Names() }

// SourceImages returns at most Max images and the provider that supplied the first batch.
func (c *Collector) SourceImages(ctx context.Context, keywords []string) ([]types.Image, string) {
	first, provider, err := c.chain.Resolve(ctx, keywords)
	if err != nil {
		// Unreachable while a static set is configured.
		first, provider = StaticImages(), fallback.StaticProvider
	}
	set := newImageSet(c.max)
	set.add(first...)

	if provider != fallback.StaticProvider {
		started := false
		for _, s := range c.searchers {
			if !started {
				started = s.Name() == provider
				continue
			}
			if set.full() || ctx.Err() != nil {
				break
			}
			more, err := c.search(ctx, s, keywords, c.max-set.len())
			if err != nil {
				c.logger.Debug().Err(err).Str("provider", s.Name()).Msg("top-up search failed")
				continue
			}
			set.add(more...)
		}
		set.add(StaticImages()...)
	}
	return set.images, provider
}

func (c *Collector) search(ctx context.Context, s Searcher, keywords []string, limit int) ([]types.Image, error) {
	images, err := s.Search(ctx, keywords, limit)
	if err != nil {
		return nil, err
	}
	if len(images) == 0 {
		return nil, errors.New("no images found")
	}
	for i := range images {
		if images[i].SourceProvider == "" {
			images[i].SourceProvider = s.Name()
		}
	}
	return images, nil
}

type imageSet struct {
	images []types.Image
	seen   map[string]bool
	max    int
}

func newImageSet(max int) *imageSet {
	return &imageSet{seen: map[string]bool{}, max: max}
}

func (s *imageSet) add(images ...types.Image) {
	for _, img := range images {
		if s.full() {
			return
		}
		if img.URL == "" || s.seen[img.URL] {
			continue
		}
		s.seen[img.URL] = true
		s.images = append(s.images, img)
	}
}

func (s *imageSet) full() bool { return len(s.images) >= s.max }

func (s *imageSet) len() int { return len(s.images) }
