package visuals

import (
	"context"
	"errors"
	"net/http"
	"net/url"
	"strings"
	"time"

	"story-shorts/internal/types"
)

const wikipediaBaseURL = "https://en.wikipedia.org/api/rest_v1"

// Wikipedia uses the lead image of the article summary for each keyword.
// It needs no credentials.
type Wikipedia struct {
	BaseURL    string
	HTTPClient *http.Client
}

func NewWikipedia() *Wikipedia {
	return &Wikipedia{BaseURL: wikipediaBaseURL, HTTPClient: &http.Client{Timeout: 15 * time.Second}}
}

func (w *Wikipedia) Name() string { return "wikipedia" }

type wikipediaSummary struct {
	Title     string `json:"title"`
	Thumbnail struct {
		Source string `json:"source"`
	} `json:"thumbnail"`
	OriginalImage struct {
		Source string `json:"source"`
	} `json:"originalimage"`
}

func (w *Wikipedia) Search(ctx context.Context, keywords []string, limit int) ([]types.Image, error) {
	var images []types.Image
	var errs []error
	for _, kw := range keywords {
		if len(images) >= limit {
			break
		}
		var s wikipediaSummary
		endpoint := strings.TrimRight(w.BaseURL, "/") + "/page/summary/" + url.PathEscape(kw)
		if err := getJSON(ctx, w.HTTPClient, endpoint, nil, &s); err != nil {
			errs = append(errs, err)
			continue
		}
		src := firstNonEmpty(s.OriginalImage.Source, s.Thumbnail.Source)
		if src == "" {
			continue
		}
		images = append(images, types.Image{URL: src, AltText: firstNonEmpty(s.Title, kw), SourceProvider: w.Name()})
	}
	if len(images) == 0 && len(errs) > 0 {
		return nil, errors.Join(errs...)
	}
	return images, nil
}
