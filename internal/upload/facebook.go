package upload

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"story-shorts/internal/config"
	"story-shorts/internal/metadata"
	"story-shorts/internal/types"
)

const graphBaseURL = "https://graph.facebook.com/v18.0"

// Facebook uploads to a page through the Graph API and follows up with a feed post.
type Facebook struct {
	PageID      string
	AccessToken string
	BaseURL     string
	HTTPClient  *http.Client

	composer *metadata.Composer
	logger   zerolog.Logger
}

func NewFacebook(cfg config.PublishConfig, pageID, accessToken string, logger zerolog.Logger) (*Facebook, error) {
	if pageID == "" || accessToken == "" {
		return nil, errors.New("facebook: FACEBOOK_PAGE_ID or FACEBOOK_ACCESS_TOKEN not set")
	}
	return &Facebook{
		PageID:      pageID,
		AccessToken: accessToken,
		BaseURL:     graphBaseURL,
		HTTPClient:  &http.Client{Timeout: 10 * time.Minute},
		composer:    metadata.New(cfg),
		logger:      logger,
	}, nil
}

func (f *Facebook) Name() string { return "facebook" }

type graphResponse struct {
	ID    string `json:"id"`
	Error *struct {
		Message string `json:"message"`
		Code    int    `json:"code"`
	} `json:"error"`
}

// Upload posts the video and returns its id. The feed post is best effort.
func (f *Facebook) Upload(ctx context.Context, rec *types.ContentRecord, videoPath string) (string, error) {
	meta, post := f.composer.Facebook(rec)

	videoID, err := f.uploadVideo(ctx, videoPath, meta)
	if err != nil {
		return "", err
	}
	if _, err := f.postForm(ctx, "/"+f.PageID+"/feed", url.Values{"message": {post}}); err != nil {
		f.logger.Warn().Err(err).Str("content_id", rec.ID).Msg("facebook feed post failed")
	}
	return videoID, nil
}

func (f *Facebook) uploadVideo(ctx context.Context, videoPath string, meta metadata.Copy) (string, error) {
	file, err := os.Open(videoPath)
	if err != nil {
		return "", fmt.Errorf("open video: %w", err)
	}
	defer file.Close()

	pr, pw := io.Pipe()
	mw := multipart.NewWriter(pw)
	go func() {
		err := writeVideoForm(mw, file, filepath.Base(videoPath), map[string]string{
			"title":        meta.Title,
			"description":  meta.Description,
			"access_token": f.AccessToken,
		})
		pw.CloseWithError(err)
	}()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, f.endpoint("/"+f.PageID+"/videos"), pr)
	if err != nil {
		pr.Close()
		return "", err
	}
	req.Header.Set("Content-Type", mw.FormDataContentType())
	id, err := f.do(req)
	if err != nil {
		return "", fmt.Errorf("facebook video upload: %w", err)
	}
	return id, nil
}

func writeVideoForm(mw *multipart.Writer, video io.Reader, filename string, fields map[string]string) error {
	for k, v := range fields {
		if err := mw.WriteField(k, v); err != nil {
			return err
		}
	}
	part, err := mw.CreateFormFile("source", filename)
	if err != nil {
		return err
	}
	if _, err := io.Copy(part, video); err != nil {
		return err
	}
	return mw.Close()
}

func (f *Facebook) postForm(ctx context.Context, path string, form url.Values) (string, error) {
	form.Set("access_token", f.AccessToken)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, f.endpoint(path), strings.NewReader(form.Encode()))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	return f.do(req)
}

func (f *Facebook) do(req *http.Request) (string, error) {
	resp, err := f.HTTPClient.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	var out graphResponse
	if err := json.NewDecoder(io.LimitReader(resp.Body, 1<<20)).Decode(&out); err != nil {
		return "", fmt.Errorf("status %d: decode response: %w", resp.StatusCode, err)
	}
	if out.Error != nil {
		return "", fmt.Errorf("graph error %d: %s", out.Error.Code, out.Error.Message)
	}
	if resp.StatusCode != http.StatusOK || out.ID == "" {
		return "", fmt.Errorf("unexpected graph response: status %d", resp.StatusCode)
	}
	return out.ID, nil
}

func (f *Facebook) endpoint(path string) string {
	return strings.TrimRight(f.BaseURL, "/") + path
}
