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

const pexelsBaseURL = "https://api.pexels.com"

// Pexels searches Pexels photos with all keywords in one query.
type Pexels struct {
	APIKey     string
	BaseURL    string
	HTTPClient *http.Client
}

func NewPexels(apiKey string) (*Pexels, error) {
	if apiKey == "" {
		return nil, errors.New("pexels: api key missing")
	}
	return &Pexels{APIKey: apiKey, BaseURL: pexelsBaseURL, HTTPClient: &http.Client{Timeout: 15 * time.Second}}, nil
}

func (p *Pexels) Name() string { return "pexels" }

type pexelsResponse struct {
	Photos []struct {
		Alt string `json:"alt"`
		Src struct {
			Large string `json:"large"`
		} `json:"src"`
	} `json:"photos"`
}

func (p *Pexels) Search(ctx context.Context, keywords []string, limit int) ([]types.Image, error) {
	if len(keywords) == 0 {
		return nil, errors.New("pexels: no keywords")
	}
	perPage := 5
	if limit > 0 && limit < perPage {
		perPage = limit
	}
	q := url.Values{}
	q.Set("query", strings.Join(keywords, " "))
	q.Set("per_page", fmt.Sprint(perPage))
	q.Set("orientation", "landscape")

	var resp pexelsResponse
	header := http.Header{"Authorization": {p.APIKey}}
	if err := getJSON(ctx, p.HTTPClient, strings.TrimRight(p.BaseURL, "/")+"/v1/search?"+q.Encode(), header, &resp); err != nil {
		return nil, err
	}
	images := make([]types.Image, 0, len(resp.Photos))
	for _, ph := range resp.Photos {
		images = append(images, types.Image{
			URL:            ph.Src.Large,
			AltText:        firstNonEmpty(ph.Alt, "story scene"),
			SourceProvider: p.Name(),
		})
	}
	return capImages(images, limit), nil
}
