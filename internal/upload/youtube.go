package upload

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
	"google.golang.org/api/option"
	"google.golang.org/api/youtube/v3"

	"story-shorts/internal/config"
	"story-shorts/internal/metadata"
	"story-shorts/internal/types"
)

// YouTubeCredentials authorize uploads through a stored refresh token.
type YouTubeCredentials struct {
	ClientID     string
	ClientSecret string
	RefreshToken string
}

// YouTube uploads through the Data API v3.
type YouTube struct {
	cfg      config.PublishConfig
	creds    YouTubeCredentials
	composer *metadata.Composer
	logger   zerolog.Logger

	// HTTPClient and Endpoint replace OAuth and the API host when set.
	HTTPClient *http.Client
	Endpoint   string
}

func NewYouTube(cfg config.PublishConfig, creds YouTubeCredentials, logger zerolog.Logger) (*YouTube, error) {
	if creds.ClientID == "" || creds.ClientSecret == "" || creds.RefreshToken == "" {
		return nil, errors.New("youtube: YOUTUBE_CLIENT_ID, YOUTUBE_CLIENT_SECRET or YOUTUBE_REFRESH_TOKEN not set")
	}
	return &YouTube{cfg: cfg, creds: creds, composer: metadata.New(cfg), logger: logger}, nil
}

func (y *YouTube) Name() string { return "youtube" }

// Upload inserts the video and returns its watch URL.
func (y *YouTube) Upload(ctx context.Context, rec *types.ContentRecord, videoPath string) (string, error) {
	svc, err := y.service(ctx)
	if err != nil {
		return "", fmt.Errorf("youtube service: %w", err)
	}

	meta := y.composer.YouTube(rec)
	video := &youtube.Video{
		Snippet: &youtube.VideoSnippet{
			Title:                meta.Title,
			Description:          meta.Description,
			Tags:                 meta.Tags,
			CategoryId:           y.cfg.CategoryID,
			DefaultLanguage:      y.cfg.Language,
			DefaultAudioLanguage: y.cfg.Language,
		},
		Status: &youtube.VideoStatus{
			PrivacyStatus:           y.privacy(),
			SelfDeclaredMadeForKids: false,
		},
	}

	f, err := os.Open(videoPath)
	if err != nil {
		return "", fmt.Errorf("open video: %w", err)
	}
	defer f.Close()
	if fi, err := f.Stat(); err == nil {
		y.logger.Info().Str("content_id", rec.ID).Float64("size_mb", float64(fi.Size())/1024/1024).Msg("uploading to youtube")
	}

	uploaded, err := svc.Videos.Insert([]string{"snippet", "status"}, video).Media(f).Context(ctx).Do()
	if err != nil {
		return "", fmt.Errorf("youtube upload: %w", err)
	}
	return "https://www.youtube.com/watch?v=" + uploaded.Id, nil
}

func (y *YouTube) privacy() string {
	switch y.cfg.Visibility {
	case "public", "unlisted", "private":
		return y.cfg.Visibility
	}
	return "public"
}

func (y *YouTube) service(ctx context.Context) (*youtube.Service, error) {
	if y.HTTPClient != nil {
		opts := []option.ClientOption{option.WithHTTPClient(y.HTTPClient)}
		if y.Endpoint != "" {
			opts = append(opts, option.WithEndpoint(y.Endpoint))
		}
		return youtube.NewService(ctx, opts...)
	}

	conf := &oauth2.Config{
		ClientID:     y.creds.ClientID,
		ClientSecret: y.creds.ClientSecret,
		Endpoint:     google.Endpoint,
		Scopes:       []string{youtube.YoutubeUploadScope, youtube.YoutubeScope},
	}
	// An expired token forces a refresh on first use.
	token := &oauth2.Token{RefreshToken: y.creds.RefreshToken, Expiry: time.Now().Add(-time.Hour)}
	return youtube.NewService(ctx, option.WithHTTPClient(conf.Client(ctx, token)))
}
