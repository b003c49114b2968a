package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/robfig/cron/v3"
	"gopkg.in/yaml.v3"
)

const maxImagesCeiling = 10

type Config struct {
	App       AppConfig       `yaml:"app"`
	Story     StoryConfig     `yaml:"story"`
	Research  ResearchConfig  `yaml:"research"`
	Narration NarrationConfig `yaml:"narration"`
	Images    ImagesConfig    `yaml:"images"`
	Video     VideoConfig     `yaml:"video"`
	Publish   PublishConfig   `yaml:"publish"`
	Schedule  ScheduleConfig  `yaml:"schedule"`
	Stages    StagesConfig    `yaml:"stages"`
	Paths     PathsConfig     `yaml:"paths"`

	// Secrets come from the environment only.
	Secrets Secrets `yaml:"-"`
}

type AppConfig struct {
	Env              string        `yaml:"env"`
	Port             string        `yaml:"port"`
	DatabaseURL      string        `yaml:"-"`
	HTTPReadTimeout  time.Duration `yaml:"http_read_timeout"`
	HTTPWriteTimeout time.Duration `yaml:"http_write_timeout"`
	HTTPIdleTimeout  time.Duration `yaml:"http_idle_timeout"`
}

type StoryConfig struct {
	Providers   []string          `yaml:"providers"`
	Models      map[string]string `yaml:"models"`
	Niches      []string          `yaml:"niches"`
	Combine     bool              `yaml:"combine"`
	Temperature float64           `yaml:"temperature"`
	MaxTokens   int64             `yaml:"max_tokens"`
	UseSeeds    bool              `yaml:"use_seeds"`
}

type ResearchConfig struct {
	Subreddit      string `yaml:"subreddit"`
	MinRedditScore int    `yaml:"min_reddit_score"`
	MaxPosts       int    `yaml:"max_posts"`
	UserAgent      string `yaml:"user_agent"`
}

type NarrationConfig struct {
	Providers    []string `yaml:"providers"`
	Voice        string   `yaml:"voice"`
	GoogleVoice  string   `yaml:"google_voice"`
	LanguageCode string   `yaml:"language_code"`
	Enhance      bool     `yaml:"enhance"`
}

type ImagesConfig struct {
	Providers  []string `yaml:"providers"`
	MaxPerRun  int      `yaml:"max_per_video"`
	PerKeyword int      `yaml:"per_keyword"`
}

type VideoConfig struct {
	Quality  string `yaml:"quality"`
	FPS      int    `yaml:"fps"`
	Width    int    `yaml:"width"`
	Height   int    `yaml:"height"`
	FontFile string `yaml:"font_file"`
	Captions bool   `yaml:"captions"`
	// WhisperModel is only read when Captions is on.
	WhisperModel string `yaml:"whisper_model"`
}

type PublishConfig struct {
	Platforms     []string `yaml:"platforms"`
	Visibility    string   `yaml:"visibility"`
	CategoryID    string   `yaml:"category_id"`
	Language      string   `yaml:"language"`
	StoryLinkURL  string   `yaml:"story_link_url"`
	TitleMaxChars int      `yaml:"title_max_chars"`
	TagsCount     int      `yaml:"tags_count"`
}

type ScheduleConfig struct {
	Cron            string        `yaml:"cron"`
	Timezone        string        `yaml:"timezone"`
	Autostart       bool          `yaml:"autostart"`
	Publish         bool          `yaml:"publish"`
	RetryStaleReady bool          `yaml:"retry_stale_ready"`
	StaleAfter      time.Duration `yaml:"stale_after"`
}

type StagesConfig struct {
	Story     time.Duration `yaml:"story"`
	Narration time.Duration `yaml:"narration"`
	Images    time.Duration `yaml:"images"`
	Assembly  time.Duration `yaml:"assembly"`
	// Publish bounds a single platform upload.
	Publish time.Duration `yaml:"publish"`
}

type PathsConfig struct {
	MediaRoot string `yaml:"media_root"`
}

// Secrets are credentials read from the environment.
type Secrets struct {
	OpenAIAPIKey        string
	GeminiAPIKey        string
	GroqAPIKey          string
	ElevenLabsAPIKey    string
	ElevenLabsVoiceID   string
	GoogleTTSAPIKey     string
	TTSCommand          string
	UnsplashAccessKey   string
	PexelsAPIKey        string
	YouTubeClientID     string
	YouTubeClientSecret string
	YouTubeRefreshToken string
	FacebookAccessToken string
	FacebookPageID      string
}

// Warning flags an optional provider or platform that cannot be used.
type Warning struct {
	Component string
	Message   string
}

func (w Warning) String() string { return w.Component + ": " + w.Message }

// Default returns the configuration used when no config file is present.
func Default() *Config {
	return &Config{
		App: AppConfig{
			Env:              "development",
			Port:             "8080",
			HTTPReadTimeout:  15 * time.Second,
			HTTPWriteTimeout: 30 * time.Second,
			HTTPIdleTimeout:  60 * time.Second,
		},
		Story: StoryConfig{
			Providers: []string{"openai", "gemini", "groq"},
			Models: map[string]string{
				"openai": "gpt-4o-mini",
				"gemini": "gemini-1.5-flash",
				"groq":   "llama-3.3-70b-versatile",
			},
			Temperature: 0.8,
			MaxTokens:   1500,
		},
		Research: ResearchConfig{
			Subreddit:      "WritingPrompts",
			MinRedditScore: 50,
			MaxPosts:       25,
			UserAgent:      "story-shorts/1.0",
		},
		Narration: NarrationConfig{
			Providers:    []string{"elevenlabs", "google", "translate", "command"},
			Voice:        "en-US-GuyNeural",
			GoogleVoice:  "en-US-Neural2-D",
			LanguageCode: "en-US",
			Enhance:      true,
		},
		Images: ImagesConfig{
			Providers:  []string{"unsplash", "pexels", "wikipedia"},
			MaxPerRun:  maxImagesCeiling,
			PerKeyword: 3,
		},
		Video: VideoConfig{
			Quality:      "medium",
			FPS:          30,
			Width:        1920,
			Height:       1080,
			WhisperModel: "base",
		},
		Publish: PublishConfig{
			Platforms:     []string{"youtube", "facebook"},
			Visibility:    "public",
			CategoryID:    "24",
			Language:      "en",
			TitleMaxChars: 100,
			TagsCount:     30,
		},
		Schedule: ScheduleConfig{
			Cron:       "0 */6 * * *",
			Timezone:   "UTC",
			Publish:    true,
			StaleAfter: 6 * time.Hour,
		},
		Stages: StagesConfig{
			Story:     2 * time.Minute,
			Narration: 5 * time.Minute,
			Images:    time.Minute,
			Assembly:  15 * time.Minute,
			Publish:   15 * time.Minute,
		},
		Paths: PathsConfig{MediaRoot: "./media"},
	}
}

// Load reads the yaml file at path over the defaults, then applies
// environment overrides. A missing file is not an error.
func Load(path string) (*Config, error) {
	cfg := Default()
	if path != "" {
		data, err := os.ReadFile(path)
		switch {
		case err == nil:
			if err := yaml.Unmarshal(data, cfg); err != nil {
				return nil, fmt.Errorf("config: parse %s: %w", path, err)
			}
		case errors.Is(err, os.ErrNotExist):
		default:
			return nil, fmt.Errorf("config: read %s: %w", path, err)
		}
	}
	cfg.applyEnv()
	return cfg, nil
}

func (c *Config) applyEnv() {
	c.App.Env = getEnv("APP_ENV", c.App.Env)
	c.App.Port = getEnv("PORT", c.App.Port)
	c.App.DatabaseURL = os.Getenv("DATABASE_URL")
	c.App.HTTPReadTimeout = getEnvSeconds("HTTP_READ_TIMEOUT_SECONDS", c.App.HTTPReadTimeout)
	c.App.HTTPWriteTimeout = getEnvSeconds("HTTP_WRITE_TIMEOUT_SECONDS", c.App.HTTPWriteTimeout)
	c.App.HTTPIdleTimeout = getEnvSeconds("HTTP_IDLE_TIMEOUT_SECONDS", c.App.HTTPIdleTimeout)

	c.Schedule.Cron = getEnv("SCHEDULE_CRON", c.Schedule.Cron)
	c.Schedule.Timezone = getEnv("SCHEDULE_TIMEZONE", c.Schedule.Timezone)
	c.Paths.MediaRoot = getEnv("MEDIA_ROOT", c.Paths.MediaRoot)
	c.Images.MaxPerRun = getEnvInt("MAX_IMAGES_PER_VIDEO", c.Images.MaxPerRun)
	c.Video.Quality = getEnv("VIDEO_QUALITY", c.Video.Quality)
	c.Research.UserAgent = getEnv("REDDIT_USER_AGENT", c.Research.UserAgent)

	c.Secrets = Secrets{
		OpenAIAPIKey:        os.Getenv("OPENAI_API_KEY"),
		GeminiAPIKey:        os.Getenv("GEMINI_API_KEY"),
		GroqAPIKey:          os.Getenv("GROQ_API_KEY"),
		ElevenLabsAPIKey:    os.Getenv("ELEVENLABS_API_KEY"),
		ElevenLabsVoiceID:   getEnv("ELEVENLABS_VOICE_ID", "21m00Tcm4TlvDq8ikWAM"),
		GoogleTTSAPIKey:     os.Getenv("GOOGLE_TTS_API_KEY"),
		TTSCommand:          os.Getenv("TTS_COMMAND"),
		UnsplashAccessKey:   os.Getenv("UNSPLASH_ACCESS_KEY"),
		PexelsAPIKey:        os.Getenv("PEXELS_API_KEY"),
		YouTubeClientID:     os.Getenv("YOUTUBE_CLIENT_ID"),
		YouTubeClientSecret: os.Getenv("YOUTUBE_CLIENT_SECRET"),
		YouTubeRefreshToken: os.Getenv("YOUTUBE_REFRESH_TOKEN"),
		FacebookAccessToken: os.Getenv("FACEBOOK_ACCESS_TOKEN"),
		FacebookPageID:      os.Getenv("FACEBOOK_PAGE_ID"),
	}
}

// Location resolves the schedule timezone.
func (c *Config) Location() (*time.Location, error) {
	return time.LoadLocation(c.Schedule.Timezone)
}

// Validate returns warnings for unusable optional components and an error
// for values the service cannot run with.
func (c *Config) Validate() ([]Warning, error) {
	var errs []error
	if _, err := cron.ParseStandard(c.Schedule.Cron); err != nil {
		errs = append(errs, fmt.Errorf("schedule.cron %q: %w", c.Schedule.Cron, err))
	}
	if _, err := c.Location(); err != nil {
		errs = append(errs, fmt.Errorf("schedule.timezone %q: %w", c.Schedule.Timezone, err))
	}
	if c.Images.MaxPerRun < 1 || c.Images.MaxPerRun > maxImagesCeiling {
		errs = append(errs, fmt.Errorf("images.max_per_video must be between 1 and %d, got %d", maxImagesCeiling, c.Images.MaxPerRun))
	}
	for _, st := range []struct {
		name    string
		timeout time.Duration
	}{
		{"story", c.Stages.Story},
		{"narration", c.Stages.Narration},
		{"images", c.Stages.Images},
		{"assembly", c.Stages.Assembly},
		{"publish", c.Stages.Publish},
	} {
		if st.timeout <= 0 {
			errs = append(errs, fmt.Errorf("stages.%s must be a positive duration, got %s", st.name, st.timeout))
		}
	}
	switch c.Video.Quality {
	case "high", "medium", "low":
	default:
		errs = append(errs, fmt.Errorf("video.quality must be high, medium or low, got %q", c.Video.Quality))
	}

	var warns []Warning
	s := c.Secrets
	for _, p := range c.Story.Providers {
		switch p {
		case "openai":
			warns = appendIfEmpty(warns, s.OpenAIAPIKey, "story", "openai skipped: OPENAI_API_KEY not set")
		case "gemini":
			warns = appendIfEmpty(warns, s.GeminiAPIKey, "story", "gemini skipped: GEMINI_API_KEY not set")
		case "groq":
			warns = appendIfEmpty(warns, s.GroqAPIKey, "story", "groq skipped: GROQ_API_KEY not set")
		default:
			errs = append(errs, fmt.Errorf("story.providers: unknown provider %q", p))
		}
	}
	for _, p := range c.Narration.Providers {
		switch p {
		case "elevenlabs":
			warns = appendIfEmpty(warns, s.ElevenLabsAPIKey, "narration", "elevenlabs skipped: ELEVENLABS_API_KEY not set")
		case "google":
			warns = appendIfEmpty(warns, s.GoogleTTSAPIKey, "narration", "google skipped: GOOGLE_TTS_API_KEY not set")
		case "translate", "command":
		default:
			errs = append(errs, fmt.Errorf("narration.providers: unknown provider %q", p))
		}
	}
	for _, p := range c.Images.Providers {
		switch p {
		case "unsplash":
			warns = appendIfEmpty(warns, s.UnsplashAccessKey, "images", "unsplash skipped: UNSPLASH_ACCESS_KEY not set")
		case "pexels":
			warns = appendIfEmpty(warns, s.PexelsAPIKey, "images", "pexels skipped: PEXELS_API_KEY not set")
		case "wikipedia", "pollinations":
		default:
			errs = append(errs, fmt.Errorf("images.providers: unknown provider %q", p))
		}
	}
	for _, p := range c.Publish.Platforms {
		switch p {
		case "youtube":
			if s.YouTubeClientID == "" || s.YouTubeClientSecret == "" || s.YouTubeRefreshToken == "" {
				warns = append(warns, Warning{"publish", "youtube skipped: YOUTUBE_CLIENT_ID, YOUTUBE_CLIENT_SECRET and YOUTUBE_REFRESH_TOKEN are required"})
			}
		case "facebook":
			if s.FacebookAccessToken == "" || s.FacebookPageID == "" {
				warns = append(warns, Warning{"publish", "facebook skipped: FACEBOOK_ACCESS_TOKEN and FACEBOOK_PAGE_ID are required"})
			}
		default:
			errs = append(errs, fmt.Errorf("publish.platforms: unknown platform %q", p))
		}
	}
	if c.App.DatabaseURL == "" {
		warns = append(warns, Warning{"store", "DATABASE_URL not set, content records are kept in memory"})
	}
	return warns, errors.Join(errs...)
}

func appendIfEmpty(warns []Warning, value, component, msg string) []Warning {
	if strings.TrimSpace(value) == "" {
		return append(warns, Warning{Component: component, Message: msg})
	}
	return warns
}

func getEnv(key, fallback string) string {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		return v
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return fallback
}

func getEnvSeconds(key string, fallback time.Duration) time.Duration {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return time.Duration(i) * time.Second
		}
	}
	return fallback
}
