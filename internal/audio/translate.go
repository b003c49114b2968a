package audio

import (
	"bytes"
	"context"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"story-shorts/internal/fallback"
)

const (
	translateTTSURL = "https://translate.google.com/translate_tts"
	translateChunk  = 200
)

// TranslateTTS uses the unauthenticated Google Translate speech endpoint.
// It only accepts short inputs, so text is sent in chunks and the MP3
// segments are concatenated.
type TranslateTTS struct {
	Language   string
	BaseURL    string
	HTTPClient *http.Client
	Pause      time.Duration
}

func NewTranslateTTS(language string) *TranslateTTS {
	if language == "" {
		language = "en"
	}
	return &TranslateTTS{
		Language:   language,
		BaseURL:    translateTTSURL,
		HTTPClient: &http.Client{Timeout: 30 * time.Second},
		Pause:      150 * time.Millisecond,
	}
}

func (t *TranslateTTS) Name() string { return "translate" }

func (t *TranslateTTS) Synthesize(ctx context.Context, text string) ([]byte, error) {
	chunks := chunkText(text, translateChunk)
	if len(chunks) == 0 {
		return nil, fmt.Errorf("translate: empty text")
	}
	var out bytes.Buffer
	for i, chunk := range chunks {
		var data []byte
		err := fallback.Retry(ctx, 3, time.Second, func() error {
			var err error
			data, err = t.fetch(ctx, chunk)
			return err
		})
		if err != nil {
			return nil, fmt.Errorf("translate chunk %d/%d: %w", i+1, len(chunks), err)
		}
		out.Write(data)
		if t.Pause > 0 && i < len(chunks)-1 {
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(t.Pause):
			}
		}
	}
	return out.Bytes(), nil
}

func (t *TranslateTTS) fetch(ctx context.Context, chunk string) ([]byte, error) {
	q := url.Values{}
	q.Set("ie", "UTF-8")
	q.Set("q", chunk)
	q.Set("tl", t.Language)
	q.Set("client", "tw-ob")
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, t.BaseURL+"?"+q.Encode(), nil)
	if err != nil {
		return nil, fallback.Permanent(err)
	}
	req.Header.Set("User-Agent", browserUserAgent)
	req.Header.Set("Referer", "https://translate.google.com/")

	resp, err := t.HTTPClient.Do(req)
	if err != nil {
		return nil, err
	}
	return readAudio(resp)
}
