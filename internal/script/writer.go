package script

import (
	"context"
	"errors"
	"fmt"
	"math/rand/v2"

	"github.com/rs/zerolog"

	"story-shorts/internal/fallback"
	"story-shorts/internal/types"
)

// ErrGenerationUnavailable is returned when no backend produced a usable story.
var ErrGenerationUnavailable = errors.New("story generation unavailable")

// CombineProvider is the provider name of the two-draft merge strategy.
const CombineProvider = "combine"

// DefaultNiches are the genres a story is drawn from.
var DefaultNiches = []string{
	"Mystery & Thriller",
	"Romance",
	"Science Fiction",
	"Fantasy",
	"Horror",
	"Adventure",
	"Drama",
	"Comedy",
	"Historical Fiction",
	"Urban Fiction",
}

const storySystemPrompt = `You are a storyteller who writes gripping short fiction for narrated videos.
Every story opens on a hook, stays visual and emotional, and stops on a cliffhanger.
Keep it family-friendly. Start your answer with a line of the form "Title: <title>" and then the story text in plain paragraphs, no markdown.`

const combineSystemPrompt = `You are a story editor. You merge drafts into one stronger story.
Start your answer with a line of the form "Title: <title>" and then the story text in plain paragraphs, no markdown.`

// SeedSource supplies an optional writing prompt to steer a story.
type SeedSource interface {
	Seed(ctx context.Context, niche string) (string, error)
}

// Backend is a named chat backend.
type Backend struct {
	Name   string
	Client Completer
}

// Options configures a Generator.
type Options struct {
	Backends    []Backend
	Niches      []string
	Combine     bool
	Temperature float64
	Seeds       SeedSource
	Logger      zerolog.Logger
	OnResolved  func(capability, provider string)
}

// Generator writes a story in a random niche using an ordered chain of backends.
type Generator struct {
	chain  *fallback.Chain[request, draft]
	niches []string
	seeds  SeedSource
	temp   float64
	pick   func(n int) int
	logger zerolog.Logger
}

type request struct {
	niche string
	seed  string
}

type draft struct {
	title   string
	content string
}

// New builds a Generator. When Combine is set and at least two backends are
// configured, a merge of the first two backends is tried before each one alone.
func New(opts Options) *Generator {
	niches := opts.Niches
	if len(niches) == 0 {
		niches = DefaultNiches
	}
	g := &Generator{
		niches: niches,
		seeds:  opts.Seeds,
		temp:   opts.Temperature,
		pick:   rand.IntN,
		logger: opts.Logger,
	}

	var providers []fallback.Provider[request, draft]
	if opts.Combine && len(opts.Backends) >= 2 {
		a, b := opts.Backends[0], opts.Backends[1]
		providers = append(providers, fallback.Provider[request, draft]{
			Name:    CombineProvider,
			Attempt: func(ctx context.Context, r request) (draft, error) { return g.combine(ctx, a, b, r) },
		})
	}
	for _, be := range opts.Backends {
		providers = append(providers, fallback.Provider[request, draft]{
			Name:    be.Name,
			Attempt: func(ctx context.Context, r request) (draft, error) { return g.write(ctx, be.Client, r) },
		})
	}
	g.chain = &fallback.Chain[request, draft]{
		Capability: "story",
		Providers:  providers,
		Logger:     opts.Logger,
		OnResolved: opts.OnResolved,
	}
	return g
}

// Providers lists the configured provider names in order.
func (g *Generator) Providers() []string { return g.chain.Names() }

// GenerateStory picks a niche and returns the story with the provider that wrote it.
func (g *Generator) GenerateStory(ctx context.Context) (types.Story, string, error) {
	niche := g.niches[g.pick(len(g.niches))]
	req := request{niche: niche}
	if g.seeds != nil {
		seed, err := g.seeds.Seed(ctx, niche)
		if err != nil {
			g.logger.Warn().Err(err).Str("niche", niche).Msg("story seed unavailable, writing unprompted")
		} else {
			req.seed = seed
		}
	}

	d, provider, err := g.chain.Resolve(ctx, req)
	if err != nil {
		return types.Story{}, "", fmt.Errorf("%w: %w", ErrGenerationUnavailable, err)
	}

	keywords := ExtractKeywords(d.content)
	return types.Story{
		Title:     d.title,
		Niche:     niche,
		FullStory: d.content,
		Keywords:  keywords,
		Tags:      GenerateTags(niche, keywords),
	}, provider, nil
}

func (g *Generator) write(ctx context.Context, c Completer, r request) (draft, error) {
	user := fmt.Sprintf("Write a captivating %s story of about 1000-1200 words with rich visual scenes and a catchy title. End at a crucial moment so the audience is desperate to know what happens next.", r.niche)
	if r.seed != "" {
		user += "\n\nUse this writing prompt as inspiration: " + r.seed
	}
	return g.complete(ctx, c, Prompt{System: storySystemPrompt, User: user, Temperature: g.temp})
}

func (g *Generator) combine(ctx context.Context, a, b Backend, r request) (draft, error) {
	first, err := g.write(ctx, a.Client, r)
	if err != nil {
		return draft{}, fmt.Errorf("%s draft: %w", a.Name, err)
	}
	second, err := g.write(ctx, b.Client, r)
	if err != nil {
		return draft{}, fmt.Errorf("%s draft: %w", b.Name, err)
	}
	user := fmt.Sprintf(`Combine these two %[1]s stories into one superior story of 1000-1200 words that keeps the best elements of both, with an even stronger cliffhanger and a compelling title.

Story 1: %[2]s
%[3]s

Story 2: %[4]s
%[5]s`, r.niche, first.title, first.content, second.title, second.content)
	return g.complete(ctx, a.Client, Prompt{System: combineSystemPrompt, User: user, Temperature: 0.7})
}

func (g *Generator) complete(ctx context.Context, c Completer, p Prompt) (draft, error) {
	text, err := c.Complete(ctx, p)
	if err != nil {
		return draft{}, err
	}
	title, content := parseStory(text)
	if content == "" {
		return draft{}, errors.New("response contained no story text")
	}
	return draft{title: title, content: content}, nil
}
