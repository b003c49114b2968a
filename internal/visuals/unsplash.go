package visuals

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"story-shorts/internal/types"
)

const unsplashBaseURL = "https://api.unsplash.com"

// Unsplash searches Unsplash photos one keyword at a time.
type Unsplash struct {
	AccessKey  string
	PerKeyword int
	BaseURL    string
	HTTPClient *http.Client
}

func NewUnsplash(accessKey string, perKeyword int) (*Unsplash, error) {
	if accessKey == "" {
		return nil, errors.New("unsplash: access key missing")
	}
	if perKeyword <= 0 {
		perKeyword = 3
	}
	return &Unsplash{
		AccessKey:  accessKey,
		PerKeyword: perKeyword,
		BaseURL:    unsplashBaseURL,
		HTTPClient: &http.Client{Timeout: 15 * time.Second},
	}, nil
}

func (u *Unsplash) Name() string { return "unsplash" }

type unsplashResponse struct {
	Results []struct {
		AltDescription string `json:"alt_description"`
		Description    string `json:"description"`
		URLs           struct {
			Regular string `json:"regular"`
		} `json:"urls"`
	} `json:"results"`
}

// Search queries the first five keywords.
func (u *Unsplash) Search(ctx context.Context, keywords []string, limit int) ([]types.Image, error) {
	if len(keywords) > 5 {
		keywords = keywords[:5]
	}
	header := http.Header{"Authorization": {"Client-ID " + u.AccessKey}}
	var images []types.Image
	var errs []error
	for _, kw := range keywords {
		if len(images) >= limit {
			break
		}
		q := url.Values{}
		q.Set("query", kw)
		q.Set("per_page", fmt.Sprint(u.PerKeyword))
		q.Set("orientation", "landscape")
		var resp unsplashResponse
		if err := getJSON(ctx, u.HTTPClient, strings.TrimRight(u.BaseURL, "/")+"/search/photos?"+q.Encode(), header, &resp); err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", kw, err))
			continue
		}
		for _, r := range resp.Results {
			alt := firstNonEmpty(r.AltDescription, r.Description, kw)
			images = append(images, types.Image{URL: r.URLs.Regular, AltText: alt, SourceProvider: u.Name()})
		}
	}
	if len(images) == 0 && len(errs) > 0 {
		return nil, errors.Join(errs...)
	}
	return capImages(images, limit), nil
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			return strings.TrimSpace(v)
		}
	}
	return ""
}

func capImages(images []types.Image, limit int) []types.Image {
	if limit > 0 && len(images) > limit {
		return images[:limit]
	}
	return images
}
