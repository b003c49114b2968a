package visuals

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/rs/zerolog"

	"story-shorts/internal/fallback"
	"story-shorts/internal/types"
)

type fakeSearcher struct {
	name   string
	images []types.Image
	err    error
	calls  int
}

func (f *fakeSearcher) Name() string { return f.name }

func (f *fakeSearcher) Search(_ context.Context, _ []string, limit int) ([]types.Image, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	return capImages(append([]types.Image(nil), f.images...), limit), nil
}

func imgs(prefix string, n int) []types.Image {
	out := make([]types.Image, n)
	for i := range out {
		out[i] = types.Image{URL: fmt.Sprintf("https://%s/%d.jpg", prefix, i), AltText: prefix}
	}
	return out
}

func TestSourceImagesTopsUpFromLaterProviders(t *testing.T) {
	a := &fakeSearcher{name: "unsplash", images: imgs("u", 6)}
	b := &fakeSearcher{name: "pexels", images: imgs("p", 5)}
	c := NewCollector(Options{Searchers: []Searcher{a, b}, Max: 10, Logger: zerolog.Nop()})

	got, provider := c.SourceImages(context.Background(), []string{"dragon"})
	if provider != "unsplash" {
		t.Fatalf("provider = %q", provider)
	}
	if len(got) != 10 {
		t.Fatalf("expected 10 images, got %d", len(got))
	}
	if got[0].SourceProvider != "unsplash" || got[9].SourceProvider != "pexels" {
		t.Fatalf("provenance not kept: first=%q last=%q", got[0].SourceProvider, got[9].SourceProvider)
	}
}

func TestSourceImagesPadsWithStatic(t *testing.T) {
	a := &fakeSearcher{name: "wikipedia", images: imgs("w", 2)}
	c := NewCollector(Options{Searchers: []Searcher{a}, Max: 10, Logger: zerolog.Nop()})

	got, _ := c.SourceImages(context.Background(), []string{"castle"})
	if len(got) != 10 {
		t.Fatalf("expected 10 images, got %d", len(got))
	}
	if got[2].SourceProvider != fallback.StaticProvider {
		t.Fatalf("padding provider = %q", got[2].SourceProvider)
	}
}

func TestSourceImagesAllProvidersFail(t *testing.T) {
	a := &fakeSearcher{name: "unsplash", err: errors.New("rate limited")}
	b := &fakeSearcher{name: "pexels", images: nil}
	c := NewCollector(Options{Searchers: []Searcher{a, b}, Max: 10, Logger: zerolog.Nop()})

	got, provider := c.SourceImages(context.Background(), []string{"x"})
	if provider != fallback.StaticProvider {
		t.Fatalf("provider = %q", provider)
	}
	if len(got) != len(staticImages) {
		t.Fatalf("expected the %d static images, got %d", len(staticImages), len(got))
	}
}

func TestSourceImagesNeverExceedsMax(t *testing.T) {
	a := &fakeSearcher{name: "unsplash", images: imgs("u", 15)}
	c := NewCollector(Options{Searchers: []Searcher{a}, Max: 25, Logger: zerolog.Nop()})
	got, _ := c.SourceImages(context.Background(), []string{"x"})
	if len(got) != types.MaxImages {
		t.Fatalf("expected cap %d, got %d", types.MaxImages, len(got))
	}
}

func TestSourceImagesDeduplicates(t *testing.T) {
	dup := imgs("d", 3)
	a := &fakeSearcher{name: "unsplash", images: dup}
	b := &fakeSearcher{name: "pexels", images: dup}
	c := NewCollector(Options{Searchers: []Searcher{a, b}, Max: 4, Logger: zerolog.Nop()})
	got, _ := c.SourceImages(context.Background(), []string{"x"})
	seen := map[string]bool{}
	for _, img := range got {
		if seen[img.URL] {
			t.Fatalf("duplicate %s", img.URL)
		}
		seen[img.URL] = true
	}
	if len(got) != 4 || got[3].SourceProvider != fallback.StaticProvider {
		t.Fatalf("unexpected set %+v", got)
	}
}
