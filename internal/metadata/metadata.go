// Package metadata builds per-platform titles, descriptions and tags for a
// finished content record.
package metadata

import (
	"fmt"
	"strings"
	"unicode"

	"story-shorts/internal/config"
	"story-shorts/internal/types"
)

// YouTube rejects uploads whose tags add up to more than this many characters.
const youtubeTagBudget = 500

const defaultStoryLink = "the link in our profile"

// Copy is the text published alongside a video.
type Copy struct {
	Title       string
	Description string
	Tags        []string
}

// Composer renders platform copy from a content record.
type Composer struct {
	cfg config.PublishConfig
}

// New creates a Composer.
func New(cfg config.PublishConfig) *Composer {
	return &Composer{cfg: cfg}
}

// YouTube returns the title, description and tags for a YouTube upload.
func (c *Composer) YouTube(rec *types.ContentRecord) Copy {
	var sb strings.Builder
	sb.WriteString(rec.Excerpt)
	sb.WriteString("\n\n")
	fmt.Fprintf(&sb, "Read the full story: %s\n\n", c.storyLink())
	fmt.Fprintf(&sb, "Genre: %s\n\n", rec.Niche)
	sb.WriteString(strings.Join(c.hashtags(rec), " "))

	return Copy{
		Title:       Title(rec.Title, c.titleMax()),
		Description: truncate(sb.String(), 4900),
		Tags:        c.youtubeTags(rec),
	}
}

// Facebook returns the copy for the video upload and the follow-up page post.
func (c *Composer) Facebook(rec *types.ContentRecord) (Copy, string) {
	var sb strings.Builder
	sb.WriteString(rec.Excerpt)
	sb.WriteString("\n\n")
	fmt.Fprintf(&sb, "Want to know how it ends? Read the full story: %s\n\n", c.storyLink())
	sb.WriteString(strings.Join(c.hashtags(rec), " "))

	post := fmt.Sprintf("New %s story: %s\n\n%s\n\nFull story: %s",
		strings.ToLower(rec.Niche), rec.Title, truncate(rec.Excerpt, 280), c.storyLink())

	return Copy{
		Title:       Title(rec.Title, c.titleMax()),
		Description: sb.String(),
		Tags:        rec.Tags,
	}, post
}

// Title trims a title to max characters, marking the cut with "...".
func Title(title string, max int) string {
	title = strings.TrimSpace(title)
	if title == "" {
		title = "Untitled Story"
	}
	r := []rune(title)
	if max <= 3 || len(r) <= max {
		return title
	}
	return strings.TrimSpace(string(r[:max-3])) + "..."
}

// Hashtag turns a phrase into a hashtag: "Science Fiction" -> "#ScienceFiction".
func Hashtag(phrase string) string {
	var sb strings.Builder
	for _, word := range strings.Fields(phrase) {
		for i, r := range word {
			if !unicode.IsLetter(r) && !unicode.IsDigit(r) {
				continue
			}
			if i == 0 {
				r = unicode.ToUpper(r)
			}
			sb.WriteRune(r)
		}
	}
	if sb.Len() == 0 {
		return ""
	}
	return "#" + sb.String()
}

func (c *Composer) hashtags(rec *types.ContentRecord) []string {
	seen := map[string]bool{}
	var out []string
	add := func(h string) {
		key := strings.ToLower(h)
		if h == "" || seen[key] {
			return
		}
		seen[key] = true
		out = append(out, h)
	}
	add(Hashtag(rec.Niche))
	for _, base := range []string{"Fiction", "Story", "MustWatch", "Viral"} {
		add("#" + base)
	}
	for _, tag := range rec.Tags {
		add(Hashtag(tag))
	}
	return out
}

func (c *Composer) youtubeTags(rec *types.ContentRecord) []string {
	limit := c.cfg.TagsCount
	if limit <= 0 || limit > 30 {
		limit = 30
	}
	var out []string
	budget := youtubeTagBudget
	for _, tag := range rec.Tags {
		tag = strings.TrimSpace(tag)
		if tag == "" {
			continue
		}
		if len(out) == limit || len(tag) > budget {
			break
		}
		budget -= len(tag)
		out = append(out, tag)
	}
	return out
}

func (c *Composer) storyLink() string {
	if c.cfg.StoryLinkURL != "" {
		return c.cfg.StoryLinkURL
	}
	return defaultStoryLink
}

func (c *Composer) titleMax() int {
	if c.cfg.TitleMaxChars > 0 {
		return c.cfg.TitleMaxChars
	}
	return 100
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n]) + "..."
}
