// Package research finds writing prompts that steer story generation.
package research

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/rs/zerolog"
	"github.com/vartanbeno/go-reddit/v2/reddit"

	"story-shorts/internal/config"
)

// ErrNoSeed is returned when no unused prompt passed the filters.
var ErrNoSeed = errors.New("research: no usable prompt")

// nicheHints boost prompts whose title fits the requested niche.
var nicheHints = map[string][]string{
	"Mystery & Thriller": {"detective", "murder", "missing", "secret", "clue", "case"},
	"Romance":            {"love", "heart", "wedding", "date", "soulmate", "kiss"},
	"Science Fiction":    {"space", "alien", "robot", "future", "planet", "ship", "ai"},
	"Fantasy":            {"dragon", "magic", "wizard", "kingdom", "spell", "god"},
	"Horror":             {"dark", "ghost", "monster", "blood", "demon", "night"},
	"Adventure":          {"journey", "quest", "island", "treasure", "map", "explore"},
	"Drama":              {"family", "choice", "loss", "friend", "life"},
	"Comedy":             {"accidentally", "funny", "awkward", "prank", "ridiculous"},
	"Historical Fiction": {"war", "king", "century", "empire", "ancient", "queen"},
	"Urban Fiction":      {"city", "street", "neighborhood", "subway", "block"},
}

// postLister is the part of the reddit subreddit service we use.
type postLister interface {
	TopPosts(ctx context.Context, subreddit string, opts *reddit.ListPostOptions) ([]*reddit.Post, *reddit.Response, error)
}

// Seeder picks the day's best unused writing prompt for a niche.
type Seeder struct {
	posts     postLister
	subreddit string
	minScore  int
	limit     int
	logger    zerolog.Logger

	mu   sync.Mutex
	used map[string]bool
}

// NewSeeder creates a Seeder backed by a read-only reddit client.
func NewSeeder(cfg config.ResearchConfig, logger zerolog.Logger) (*Seeder, error) {
	client, err := reddit.NewReadonlyClient(reddit.WithUserAgent(cfg.UserAgent))
	if err != nil {
		return nil, fmt.Errorf("research: reddit client: %w", err)
	}
	return newSeeder(client.Subreddit, cfg, logger), nil
}

func newSeeder(posts postLister, cfg config.ResearchConfig, logger zerolog.Logger) *Seeder {
	limit := cfg.MaxPosts
	if limit <= 0 {
		limit = 25
	}
	return &Seeder{
		posts:     posts,
		subreddit: cfg.Subreddit,
		minScore:  cfg.MinRedditScore,
		limit:     limit,
		logger:    logger,
		used:      map[string]bool{},
	}
}

type candidate struct {
	id    string
	title string
	score int
}

// Seed returns a prompt for niche and marks it used.
func (s *Seeder) Seed(ctx context.Context, niche string) (string, error) {
	posts, _, err := s.posts.TopPosts(ctx, s.subreddit, &reddit.ListPostOptions{
		ListOptions: reddit.ListOptions{Limit: s.limit},
		Time:        "day",
	})
	if err != nil {
		return "", fmt.Errorf("research: top posts r/%s: %w", s.subreddit, err)
	}

	var candidates []candidate
	for _, p := range posts {
		if p == nil || p.Stickied || p.NSFW || p.Score < s.minScore {
			continue
		}
		prompt, ok := promptText(p.Title)
		if !ok {
			continue
		}
		candidates = append(candidates, candidate{id: p.ID, title: prompt, score: scorePrompt(prompt, p.Score, niche)})
	}
	sort.SliceStable(candidates, func(i, j int) bool { return candidates[i].score > candidates[j].score })

	s.mu.Lock()
	defer s.mu.Unlock()
	for _, c := range candidates {
		if s.used[c.id] {
			continue
		}
		s.used[c.id] = true
		s.logger.Debug().Str("post_id", c.id).Int("score", c.score).Str("niche", niche).Msg("selected story seed")
		return c.title, nil
	}
	return "", ErrNoSeed
}

// promptText strips a prompt tag: [WP], or the [EU], [TT] and [SP] variants.
// Posts without one of these tags are not prompts.
func promptText(title string) (string, bool) {
	title = strings.TrimSpace(title)
	upper := strings.ToUpper(title)
	switch {
	case strings.HasPrefix(upper, "[WP]"):
		title = title[len("[WP]"):]
	case strings.HasPrefix(upper, "[EU]"), strings.HasPrefix(upper, "[TT]"), strings.HasPrefix(upper, "[SP]"):
		title = title[4:]
	default:
		return "", false
	}
	title = strings.TrimSpace(title)
	return title, title != ""
}

// scorePrompt ranks by reddit score plus a bonus per niche hint in the title.
func scorePrompt(title string, redditScore int, niche string) int {
	lower := strings.ToLower(title)
	score := redditScore
	for _, hint := range nicheHints[niche] {
		if containsWord(lower, hint) {
			score += 500
		}
	}
	return score
}

func containsWord(text, word string) bool {
	for _, f := range strings.FieldsFunc(text, func(r rune) bool {
		return !(r >= 'a' && r <= 'z' || r >= '0' && r <= '9')
	}) {
		if f == word {
			return true
		}
	}
	return false
}
