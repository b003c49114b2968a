package audio

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"time"

	"google.golang.org/api/option"
	"google.golang.org/api/texttospeech/v1"

	"story-shorts/internal/fallback"
)

// Cloud TTS caps a request at 5000 bytes of input.
const googleChunk = 4500

// GoogleTTS synthesizes speech with Google Cloud Text-to-Speech.
type GoogleTTS struct {
	svc          *texttospeech.Service
	languageCode string
	voice        string
}

// NewGoogleTTS creates the client. Extra options are appended after the API key.
func NewGoogleTTS(ctx context.Context, apiKey, languageCode, voice string, opts ...option.ClientOption) (*GoogleTTS, error) {
	if apiKey == "" && len(opts) == 0 {
		return nil, errors.New("google tts: api key missing")
	}
	all := append([]option.ClientOption{option.WithAPIKey(apiKey)}, opts...)
	svc, err := texttospeech.NewService(ctx, all...)
	if err != nil {
		return nil, fmt.Errorf("google tts: create service: %w", err)
	}
	if languageCode == "" {
		languageCode = "en-US"
	}
	return &GoogleTTS{svc: svc, languageCode: languageCode, voice: voice}, nil
}

func (g *GoogleTTS) Name() string { return "google" }

func (g *GoogleTTS) Synthesize(ctx context.Context, text string) ([]byte, error) {
	var out []byte
	for i, chunk := range chunkText(text, googleChunk) {
		var data []byte
		err := fallback.Retry(ctx, 3, 2*time.Second, func() error {
			resp, err := g.svc.Text.Synthesize(&texttospeech.SynthesizeSpeechRequest{
				Input: &texttospeech.SynthesisInput{Text: chunk},
				Voice: &texttospeech.VoiceSelectionParams{
					LanguageCode: g.languageCode,
					Name:         g.voice,
				},
				AudioConfig: &texttospeech.AudioConfig{
					AudioEncoding:   "MP3",
					SampleRateHertz: 44100,
				},
			}).Context(ctx).Do()
			if err != nil {
				return err
			}
			data, err = base64.StdEncoding.DecodeString(resp.AudioContent)
			if err != nil {
				return fallback.Permanent(fmt.Errorf("decode audio: %w", err))
			}
			return nil
		})
		if err != nil {
			return nil, fmt.Errorf("google tts chunk %d: %w", i, err)
		}
		out = append(out, data...)
	}
	return out, nil
}
