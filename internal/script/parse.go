package script

import (
	"regexp"
	"sort"
	"strings"
)

var (
	wordRe     = regexp.MustCompile(`\b\w+\b`)
	titleLabel = regexp.MustCompile(`(?i)title:\s*`)
	nonWordRe  = regexp.MustCompile(`[^\w\s]`)
	titleStrip = strings.NewReplacer(`"`, "", `'`, "", "*", "", "#", "")
)

var stopWords = map[string]bool{
	"the": true, "a": true, "an": true, "and": true, "or": true, "but": true, "in": true, "on": true,
	"at": true, "to": true, "for": true, "of": true, "with": true, "by": true, "is": true, "was": true,
	"are": true, "were": true, "be": true, "been": true, "being": true, "have": true, "has": true,
	"had": true, "do": true, "does": true, "did": true, "will": true, "would": true, "could": true,
	"should": true, "may": true, "might": true, "must": true, "can": true, "it": true, "he": true,
	"she": true, "they": true, "we": true, "you": true, "i": true, "me": true, "him": true, "her": true,
	"them": true, "us": true,
}

var baseTags = []string{"fiction", "story", "entertainment", "mustwatch", "viral"}

// parseStory splits a model response into a title and body. The first line
// labelled "title:" (or a short first line) is the title; body lines shorter
// than 21 characters are dropped as headings or noise.
func parseStory(response string) (string, string) {
	var title string
	var body []string
	for i, raw := range strings.Split(response, "\n") {
		line := strings.TrimSpace(raw)
		if title == "" && line != "" && (strings.Contains(strings.ToLower(line), "title:") || (i == 0 && len(line) < 100)) {
			title = strings.TrimSpace(titleStrip.Replace(titleLabel.ReplaceAllString(line, "")))
			continue
		}
		if len(line) > 20 {
			body = append(body, line)
		}
	}
	content := strings.TrimSpace(strings.Join(body, "\n"))
	if title == "" {
		title = titleFromContent(content)
	}
	return title, content
}

func titleFromContent(content string) string {
	words := strings.Split(content, " ")
	if len(words) > 10 {
		words = words[:10]
	}
	return nonWordRe.ReplaceAllString(strings.Join(words, " "), "") + "..."
}

// ExtractKeywords returns up to ten of the most frequent meaningful words,
// ties broken by first appearance.
func ExtractKeywords(content string) []string {
	counts := map[string]int{}
	var order []string
	for _, w := range wordRe.FindAllString(strings.ToLower(content), -1) {
		if len(w) <= 3 || stopWords[w] || isNumeric(w) {
			continue
		}
		if counts[w] == 0 {
			order = append(order, w)
		}
		counts[w]++
	}
	sort.SliceStable(order, func(i, j int) bool { return counts[order[i]] > counts[order[j]] })
	if len(order) > 10 {
		order = order[:10]
	}
	return order
}

// GenerateTags combines the base tags, the niche tag and the top five keywords.
func GenerateTags(niche string, keywords []string) []string {
	tags := append([]string(nil), baseTags...)
	tags = append(tags, strings.ToLower(strings.Join(strings.Fields(niche), "")))
	if len(keywords) > 5 {
		keywords = keywords[:5]
	}
	return append(tags, keywords...)
}

func isNumeric(w string) bool {
	for _, r := range w {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}
