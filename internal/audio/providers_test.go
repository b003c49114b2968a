package audio

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"google.golang.org/api/option"
)

func TestElevenLabsRequest(t *testing.T) {
	var got elevenLabsRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1/text-to-speech/voice-1" {
			t.Errorf("path = %s", r.URL.Path)
		}
		if r.Header.Get("xi-api-key") != "key" || r.Header.Get("Accept") != "audio/mpeg" {
			t.Errorf("missing headers: %v", r.Header)
		}
		_ = json.NewDecoder(r.Body).Decode(&got)
		w.Write([]byte("mp3-bytes"))
	}))
	defer srv.Close()

	e, err := NewElevenLabs("key", "voice-1")
	if err != nil {
		t.Fatalf("NewElevenLabs: %v", err)
	}
	e.BaseURL = srv.URL
	data, err := e.Synthesize(context.Background(), "Hello there.")
	if err != nil {
		t.Fatalf("Synthesize: %v", err)
	}
	if string(data) != "mp3-bytes" {
		t.Fatalf("data = %q", data)
	}
	if got.ModelID != elevenLabsModel || !got.VoiceSettings.UseSpeakerBoost || got.Text != "Hello there." {
		t.Fatalf("unexpected request %+v", got)
	}
}

func TestElevenLabsUnauthorizedIsNotRetried(t *testing.T) {
	calls := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		http.Error(w, "bad key", http.StatusUnauthorized)
	}))
	defer srv.Close()

	e, _ := NewElevenLabs("key", "voice-1")
	e.BaseURL = srv.URL
	if _, err := e.Synthesize(context.Background(), "Hello."); err == nil {
		t.Fatal("expected error")
	}
	if calls != 1 {
		t.Fatalf("expected 1 call, got %d", calls)
	}
}

func TestTranslateTTSChunksAndConcatenates(t *testing.T) {
	var queries []string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		queries = append(queries, r.URL.Query().Get("q"))
		if r.URL.Query().Get("client") != "tw-ob" || r.Header.Get("User-Agent") == "" {
			t.Errorf("unexpected request %s", r.URL)
		}
		w.Write([]byte("[seg]"))
	}))
	defer srv.Close()

	tts := NewTranslateTTS("en")
	tts.BaseURL = srv.URL
	tts.Pause = 0
	text := strings.Repeat("A quiet sentence about the sea. ", 15)
	data, err := tts.Synthesize(context.Background(), text)
	if err != nil {
		t.Fatalf("Synthesize: %v", err)
	}
	if len(queries) < 3 {
		t.Fatalf("expected chunked requests, got %d", len(queries))
	}
	for _, q := range queries {
		if len(q) > translateChunk {
			t.Fatalf("chunk too long: %d", len(q))
		}
	}
	if string(data) != strings.Repeat("[seg]", len(queries)) {
		t.Fatalf("segments not concatenated: %q", data)
	}
}

func TestGoogleTTSDecodesAudio(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !strings.HasSuffix(r.URL.Path, "/v1/text:synthesize") {
			t.Errorf("path = %s", r.URL.Path)
		}
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]string{"audioContent": base64.StdEncoding.EncodeToString([]byte("mp3"))})
	}))
	defer srv.Close()

	g, err := NewGoogleTTS(context.Background(), "key", "en-US", "en-US-Neural2-D",
		option.WithEndpoint(srv.URL+"/"), option.WithHTTPClient(srv.Client()))
	if err != nil {
		t.Fatalf("NewGoogleTTS: %v", err)
	}
	data, err := g.Synthesize(context.Background(), "Hello.")
	if err != nil {
		t.Fatalf("Synthesize: %v", err)
	}
	if string(data) != "mp3" {
		t.Fatalf("data = %q", data)
	}
}

func TestCommandInvocation(t *testing.T) {
	c := &Command{command: "edge-tts", voice: "en-US-GuyNeural"}
	name, args := c.invocation("hi", "/tmp/out.mp3")
	if name != "edge-tts" || args[len(args)-2] != "--write-media" {
		t.Fatalf("edge-tts invocation = %s %v", name, args)
	}
	c.command = "/opt/tts/speak.py"
	name, args = c.invocation("hi", "/tmp/out.mp3")
	if name != "python3" || args[0] != "/opt/tts/speak.py" || args[len(args)-2] != "--output" {
		t.Fatalf("python invocation = %s %v", name, args)
	}
}
