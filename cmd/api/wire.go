package main

import (
	"context"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog"

	"story-shorts/internal/audio"
	"story-shorts/internal/config"
	"story-shorts/internal/infra"
	"story-shorts/internal/pipeline"
	"story-shorts/internal/render"
	"story-shorts/internal/research"
	"story-shorts/internal/scheduler"
	"story-shorts/internal/script"
	"story-shorts/internal/shell"
	"story-shorts/internal/storage"
	"story-shorts/internal/store"
	"story-shorts/internal/upload"
	"story-shorts/internal/visuals"
)

type services struct {
	store        store.Store
	media        *storage.FileStore
	orchestrator *pipeline.Orchestrator
	scheduler    *scheduler.Scheduler
	pool         *pgxpool.Pool
}

func (s *services) close() {
	if s.pool != nil {
		s.pool.Close()
	}
}

// wire builds every service from cfg. Providers without credentials are
// skipped with a warning; the fallback chains run with whatever is left.
func wire(ctx context.Context, cfg *config.Config, logger zerolog.Logger) (*services, error) {
	s := &services{}

	if cfg.App.DatabaseURL != "" {
		pool, err := infra.NewDBPool(ctx, cfg.App.DatabaseURL)
		if err != nil {
			return nil, err
		}
		pg := store.NewPostgresStore(infra.NewSQLRunner(pool, infra.Component(logger, "store")))
		if err := pg.EnsureSchema(ctx); err != nil {
			pool.Close()
			return nil, fmt.Errorf("ensure schema: %w", err)
		}
		s.pool, s.store = pool, pg
	} else {
		s.store = store.NewMemoryStore()
	}

	media, err := storage.NewFileStore(cfg.Paths.MediaRoot)
	if err != nil {
		return nil, err
	}
	s.media = media

	runner := shell.Exec{Logger: infra.Component(logger, "shell")}
	onResolved := func(capability, provider string) {
		logger.Debug().Str("capability", capability).Str("provider", provider).Msg("provider used")
	}

	story := buildStory(cfg, infra.Component(logger, "story"), onResolved)
	narrator := buildNarrator(ctx, cfg, media, runner, infra.Component(logger, "narration"), onResolved)
	images := buildImages(cfg, infra.Component(logger, "images"), onResolved)
	assembler := render.NewAssembler(render.Options{
		Video:  cfg.Video,
		Media:  media,
		Runner: runner,
		Logger: infra.Component(logger, "render"),
	})
	publisher := buildPublisher(cfg, media, infra.Component(logger, "publish"))
	logger.Info().
		Strs("story", story.Providers()).
		Strs("narration", narrator.Providers()).
		Strs("images", images.Providers()).
		Strs("publish", publisher.Platforms()).
		Msg("provider order resolved")

	s.orchestrator = pipeline.New(pipeline.Options{
		Story:     story,
		Narrator:  narrator,
		Images:    images,
		Assembler: assembler,
		Publisher: publisher,
		Store:     s.store,
		Timeouts: pipeline.Timeouts{
			Story:     cfg.Stages.Story,
			Narration: cfg.Stages.Narration,
			Images:    cfg.Stages.Images,
			Assembly:  cfg.Stages.Assembly,
			Publish:   cfg.Stages.Publish,
		},
		Logger: infra.Component(logger, "pipeline"),
	})

	schedLogger := infra.Component(logger, "scheduler")
	s.scheduler, err = scheduler.New(scheduledJob(cfg, s.orchestrator, schedLogger), cfg.Schedule.Cron, cfg.Schedule.Timezone, schedLogger)
	if err != nil {
		return nil, err
	}
	return s, nil
}

// scheduledJob is what each cron fire runs.
func scheduledJob(cfg *config.Config, o *pipeline.Orchestrator, logger zerolog.Logger) scheduler.Job {
	return func(ctx context.Context) error {
		run := o.Run
		if cfg.Schedule.Publish {
			run = o.RunAndPublish
		}
		rec, err := run(ctx)
		if err != nil {
			return err
		}
		logger.Info().Str("content_id", rec.ID).Str("status", string(rec.Status)).Msg("scheduled run complete")

		if cfg.Schedule.Publish && cfg.Schedule.RetryStaleReady {
			n, err := o.PublishStale(ctx, cfg.Schedule.StaleAfter)
			if err != nil {
				return fmt.Errorf("retry stale ready records: %w", err)
			}
			if n > 0 {
				logger.Info().Int("records", n).Msg("retried stale ready records")
			}
		}
		return nil
	}
}

func buildStory(cfg *config.Config, logger zerolog.Logger, onResolved func(string, string)) *script.Generator {
	keys := map[string]string{
		"openai": cfg.Secrets.OpenAIAPIKey,
		"gemini": cfg.Secrets.GeminiAPIKey,
		"groq":   cfg.Secrets.GroqAPIKey,
	}
	baseURLs := map[string]string{
		"gemini": script.GeminiBaseURL,
		"groq":   script.GroqBaseURL,
	}
	var backends []script.Backend
	for _, name := range cfg.Story.Providers {
		b, err := script.NewChatBackend(keys[name], baseURLs[name], cfg.Story.Models[name], cfg.Story.MaxTokens)
		if err != nil {
			logger.Warn().Err(err).Str("provider", name).Msg("story backend disabled")
			continue
		}
		backends = append(backends, script.Backend{Name: name, Client: b})
	}

	opts := script.Options{
		Backends:    backends,
		Niches:      cfg.Story.Niches,
		Combine:     cfg.Story.Combine,
		Temperature: cfg.Story.Temperature,
		Logger:      logger,
		OnResolved:  onResolved,
	}
	if cfg.Story.UseSeeds {
		seeder, err := research.NewSeeder(cfg.Research, logger)
		if err != nil {
			logger.Warn().Err(err).Msg("story seeds disabled")
		} else {
			opts.Seeds = seeder
		}
	}
	return script.New(opts)
}

func buildNarrator(ctx context.Context, cfg *config.Config, media *storage.FileStore, runner shell.Runner, logger zerolog.Logger, onResolved func(string, string)) *audio.Narrator {
	var synths []audio.Synthesizer
	for _, name := range cfg.Narration.Providers {
		var (
			synth audio.Synthesizer
			err   error
		)
		switch name {
		case "elevenlabs":
			synth, err = audio.NewElevenLabs(cfg.Secrets.ElevenLabsAPIKey, cfg.Secrets.ElevenLabsVoiceID)
		case "google":
			synth, err = audio.NewGoogleTTS(ctx, cfg.Secrets.GoogleTTSAPIKey, cfg.Narration.LanguageCode, cfg.Narration.GoogleVoice)
		case "translate":
			synth = audio.NewTranslateTTS(languageOf(cfg.Narration.LanguageCode))
		case "command":
			synth, err = audio.NewCommand(cfg.Secrets.TTSCommand, cfg.Narration.Voice, runner)
		default:
			err = fmt.Errorf("unknown provider %q", name)
		}
		if err != nil {
			logger.Warn().Err(err).Str("provider", name).Msg("narration provider disabled")
			continue
		}
		synths = append(synths, synth)
	}
	return audio.NewNarrator(audio.Options{
		Synthesizers: synths,
		Media:        media,
		Runner:       runner,
		Enhance:      cfg.Narration.Enhance,
		Logger:       logger,
		OnResolved:   onResolved,
	})
}

func buildImages(cfg *config.Config, logger zerolog.Logger, onResolved func(string, string)) *visuals.Collector {
	var searchers []visuals.Searcher
	for _, name := range cfg.Images.Providers {
		var (
			s   visuals.Searcher
			err error
		)
		switch name {
		case "unsplash":
			s, err = visuals.NewUnsplash(cfg.Secrets.UnsplashAccessKey, cfg.Images.PerKeyword)
		case "pexels":
			s, err = visuals.NewPexels(cfg.Secrets.PexelsAPIKey)
		case "wikipedia":
			s = visuals.NewWikipedia()
		case "pollinations":
			s = visuals.NewPollinations(cfg.Video.Width, cfg.Video.Height)
		default:
			err = fmt.Errorf("unknown provider %q", name)
		}
		if err != nil {
			logger.Warn().Err(err).Str("provider", name).Msg("image provider disabled")
			continue
		}
		searchers = append(searchers, s)
	}
	return visuals.NewCollector(visuals.Options{
		Searchers:  searchers,
		Max:        cfg.Images.MaxPerRun,
		Logger:     logger,
		OnResolved: onResolved,
	})
}

func buildPublisher(cfg *config.Config, media *storage.FileStore, logger zerolog.Logger) *upload.Publisher {
	var platforms []upload.Platform
	for _, name := range cfg.Publish.Platforms {
		var (
			p   upload.Platform
			err error
		)
		switch name {
		case "youtube":
			p, err = upload.NewYouTube(cfg.Publish, upload.YouTubeCredentials{
				ClientID:     cfg.Secrets.YouTubeClientID,
				ClientSecret: cfg.Secrets.YouTubeClientSecret,
				RefreshToken: cfg.Secrets.YouTubeRefreshToken,
			}, logger)
		case "facebook":
			p, err = upload.NewFacebook(cfg.Publish, cfg.Secrets.FacebookPageID, cfg.Secrets.FacebookAccessToken, logger)
		default:
			err = fmt.Errorf("unknown platform %q", name)
		}
		if err != nil {
			logger.Warn().Err(err).Str("platform", name).Msg("platform disabled")
			continue
		}
		platforms = append(platforms, p)
	}
	return upload.NewPublisher(platforms, media, cfg.Stages.Publish, logger)
}

func languageOf(code string) string {
	lang, _, _ := strings.Cut(code, "-")
	return lang
}
