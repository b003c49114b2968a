package script

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/rs/zerolog"

	"story-shorts/internal/fallback"
)

type fakeCompleter struct {
	reply string
	err   error
	calls int
	last  Prompt
}

func (f *fakeCompleter) Complete(_ context.Context, p Prompt) (string, error) {
	f.calls++
	f.last = p
	return f.reply, f.err
}

type fakeSeeds struct{ seed string }

func (f fakeSeeds) Seed(context.Context, string) (string, error) { return f.seed, nil }

const sampleStory = "Title: The Last Lantern\nThe lantern keeper counted the ships every night without fail.\nTonight one ship too many sailed into the harbor."

func TestGenerateStoryFallsBackToSecondBackend(t *testing.T) {
	down := &fakeCompleter{err: errors.New("quota exceeded")}
	up := &fakeCompleter{reply: sampleStory}
	g := New(Options{
		Backends: []Backend{{Name: "openai", Client: down}, {Name: "gemini", Client: up}},
		Niches:   []string{"Horror"},
		Seeds:    fakeSeeds{seed: "A lighthouse that counts ships"},
		Logger:   zerolog.Nop(),
	})
	story, provider, err := g.GenerateStory(context.Background())
	if err != nil {
		t.Fatalf("GenerateStory: %v", err)
	}
	if provider != "gemini" {
		t.Fatalf("provider = %q", provider)
	}
	if story.Title != "The Last Lantern" || story.Niche != "Horror" {
		t.Fatalf("unexpected story %+v", story)
	}
	if story.Tags[5] != "horror" {
		t.Fatalf("niche tag missing: %v", story.Tags)
	}
	if !strings.Contains(up.last.User, "A lighthouse that counts ships") {
		t.Fatalf("seed not passed to prompt: %q", up.last.User)
	}
}

func TestGenerateStoryUnavailable(t *testing.T) {
	g := New(Options{
		Backends: []Backend{
			{Name: "openai", Client: &fakeCompleter{err: errors.New("down")}},
			{Name: "groq", Client: &fakeCompleter{reply: "Title: Empty\nshort"}},
		},
		Logger: zerolog.Nop(),
	})
	_, _, err := g.GenerateStory(context.Background())
	if !errors.Is(err, ErrGenerationUnavailable) || !errors.Is(err, fallback.ErrChainExhausted) {
		t.Fatalf("expected unavailable+exhausted, got %v", err)
	}
}

func TestGenerateStoryCombineMergesTwoDrafts(t *testing.T) {
	a := &fakeCompleter{reply: sampleStory}
	b := &fakeCompleter{reply: sampleStory}
	g := New(Options{
		Backends: []Backend{{Name: "openai", Client: a}, {Name: "gemini", Client: b}},
		Combine:  true,
		Logger:   zerolog.Nop(),
	})
	if names := g.Providers(); names[0] != CombineProvider || len(names) != 3 {
		t.Fatalf("providers = %v", names)
	}
	_, provider, err := g.GenerateStory(context.Background())
	if err != nil {
		t.Fatalf("GenerateStory: %v", err)
	}
	if provider != CombineProvider {
		t.Fatalf("provider = %q", provider)
	}
	if a.calls != 2 || b.calls != 1 {
		t.Fatalf("calls a=%d b=%d, want 2 and 1", a.calls, b.calls)
	}
	if !strings.Contains(a.last.User, "Combine these two") {
		t.Fatalf("merge prompt not sent: %q", a.last.User)
	}
}
