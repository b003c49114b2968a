package upload

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/rs/zerolog"

	"story-shorts/internal/config"
	"story-shorts/internal/types"
)

func videoFile(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "c1.mp4")
	if err := os.WriteFile(path, []byte("not really an mp4"), 0o644); err != nil {
		t.Fatalf("write video: %v", err)
	}
	return path
}

var record = &types.ContentRecord{
	ID:      "c1",
	Title:   "The Last Lighthouse",
	Niche:   "Mystery",
	Excerpt: "The lamp went dark at midnight.",
	Tags:    []string{"story", "mystery"},
}

func TestFacebookUploadsVideoThenPosts(t *testing.T) {
	var paths []string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		paths = append(paths, r.URL.Path)
		switch r.URL.Path {
		case "/page1/videos":
			if err := r.ParseMultipartForm(1 << 20); err != nil {
				t.Errorf("parse multipart: %v", err)
			}
			if r.FormValue("access_token") != "tok" || r.FormValue("title") != "The Last Lighthouse" {
				t.Errorf("form = %v", r.MultipartForm.Value)
			}
			if _, _, err := r.FormFile("source"); err != nil {
				t.Errorf("missing source file: %v", err)
			}
			w.Write([]byte(`{"id":"vid-9"}`))
		case "/page1/feed":
			w.WriteHeader(http.StatusBadRequest)
			w.Write([]byte(`{"error":{"message":"permissions","code":200}}`))
		}
	}))
	defer srv.Close()

	fb, err := NewFacebook(config.PublishConfig{}, "page1", "tok", zerolog.Nop())
	if err != nil {
		t.Fatalf("NewFacebook: %v", err)
	}
	fb.BaseURL = srv.URL

	ref, err := fb.Upload(context.Background(), record, videoFile(t))
	if err != nil {
		t.Fatalf("Upload: %v", err)
	}
	if ref != "vid-9" {
		t.Fatalf("ref = %q", ref)
	}
	if len(paths) != 2 {
		t.Fatalf("expected video upload and feed post, got %v", paths)
	}
}

func TestFacebookGraphErrorFailsUpload(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		w.Write([]byte(`{"error":{"message":"Invalid OAuth access token","code":190}}`))
	}))
	defer srv.Close()

	fb, _ := NewFacebook(config.PublishConfig{}, "page1", "bad", zerolog.Nop())
	fb.BaseURL = srv.URL
	_, err := fb.Upload(context.Background(), record, videoFile(t))
	if err == nil || !strings.Contains(err.Error(), "Invalid OAuth access token") {
		t.Fatalf("expected graph error, got %v", err)
	}
}

func TestNewPlatformsRequireCredentials(t *testing.T) {
	if _, err := NewFacebook(config.PublishConfig{}, "", "tok", zerolog.Nop()); err == nil {
		t.Fatal("facebook without page id should fail")
	}
	if _, err := NewYouTube(config.PublishConfig{}, YouTubeCredentials{ClientID: "id"}, zerolog.Nop()); err == nil {
		t.Fatal("youtube without refresh token should fail")
	}
}

func TestYouTubeUploadReturnsWatchURL(t *testing.T) {
	var method string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		method = r.Method
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"id":"yt123"}`))
	}))
	defer srv.Close()

	yt, err := NewYouTube(config.PublishConfig{Visibility: "unlisted", CategoryID: "24", Language: "en"},
		YouTubeCredentials{ClientID: "id", ClientSecret: "secret", RefreshToken: "refresh"}, zerolog.Nop())
	if err != nil {
		t.Fatalf("NewYouTube: %v", err)
	}
	yt.HTTPClient = srv.Client()
	yt.Endpoint = srv.URL + "/"

	ref, err := yt.Upload(context.Background(), record, videoFile(t))
	if err != nil {
		t.Fatalf("Upload: %v", err)
	}
	if ref != "https://www.youtube.com/watch?v=yt123" {
		t.Fatalf("ref = %q", ref)
	}
	if method != http.MethodPost {
		t.Fatalf("method = %s", method)
	}
	if yt.privacy() != "unlisted" {
		t.Fatalf("privacy = %s", yt.privacy())
	}
}
