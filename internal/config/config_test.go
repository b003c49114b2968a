package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func TestLoadMissingFileUsesDefaults(t *testing.T) {
	t.Setenv("SCHEDULE_CRON", "")
	cfg, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if cfg.Schedule.Cron != "0 */6 * * *" || cfg.Schedule.Timezone != "UTC" {
		t.Fatalf("unexpected schedule defaults: %+v", cfg.Schedule)
	}
	if cfg.Images.MaxPerRun != 10 {
		t.Fatalf("MaxPerRun = %d, want 10", cfg.Images.MaxPerRun)
	}
}

func TestLoadYAMLThenEnvOverride(t *testing.T) {
	path := writeConfig(t, `
schedule:
  cron: "0 9 * * *"
  timezone: Europe/Berlin
stages:
  story: 45s
images:
  providers: [pexels]
  max_per_video: 6
`)
	t.Setenv("SCHEDULE_TIMEZONE", "America/New_York")
	t.Setenv("PEXELS_API_KEY", "px")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if cfg.Schedule.Cron != "0 9 * * *" {
		t.Fatalf("cron mismatch: %q", cfg.Schedule.Cron)
	}
	if cfg.Schedule.Timezone != "America/New_York" {
		t.Fatalf("env override ignored: %q", cfg.Schedule.Timezone)
	}
	if cfg.Stages.Story != 45*time.Second {
		t.Fatalf("story timeout = %s", cfg.Stages.Story)
	}
	if len(cfg.Images.Providers) != 1 || cfg.Images.Providers[0] != "pexels" || cfg.Images.MaxPerRun != 6 {
		t.Fatalf("images config mismatch: %+v", cfg.Images)
	}
	if cfg.Secrets.PexelsAPIKey != "px" {
		t.Fatalf("secret not read from env")
	}
}

func TestValidateRejectsBadValues(t *testing.T) {
	cfg := Default()
	cfg.Schedule.Cron = "every tuesday"
	cfg.Schedule.Timezone = "Mars/Olympus"
	cfg.Images.MaxPerRun = 11

	_, err := cfg.Validate()
	if err == nil {
		t.Fatal("expected validation error")
	}
	for _, want := range []string{"schedule.cron", "schedule.timezone", "images.max_per_video"} {
		if !strings.Contains(err.Error(), want) {
			t.Fatalf("error %q does not mention %s", err, want)
		}
	}
}

func TestValidateWarnsForMissingCredentials(t *testing.T) {
	cfg := Default()
	cfg.Story.Providers = []string{"openai"}
	cfg.Narration.Providers = []string{"translate"}
	cfg.Images.Providers = []string{"wikipedia"}
	cfg.Publish.Platforms = []string{"facebook"}
	cfg.App.DatabaseURL = "postgres://example"

	warns, err := cfg.Validate()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(warns) != 2 {
		t.Fatalf("expected 2 warnings, got %v", warns)
	}
	if warns[0].Component != "story" || warns[1].Component != "publish" {
		t.Fatalf("unexpected warnings %v", warns)
	}
}

func TestValidateRequiresEveryStageTimeout(t *testing.T) {
	cases := map[string]func(*StagesConfig){
		"stages.story":     func(s *StagesConfig) { s.Story = 0 },
		"stages.narration": func(s *StagesConfig) { s.Narration = -time.Second },
		"stages.images":    func(s *StagesConfig) { s.Images = 0 },
		"stages.assembly":  func(s *StagesConfig) { s.Assembly = 0 },
		"stages.publish":   func(s *StagesConfig) { s.Publish = -time.Minute },
	}
	for field, mutate := range cases {
		cfg := Default()
		mutate(&cfg.Stages)
		_, err := cfg.Validate()
		if err == nil || !strings.Contains(err.Error(), field) {
			t.Fatalf("%s: expected validation error, got %v", field, err)
		}
	}
}
