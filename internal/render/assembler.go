// Package render assembles narration and images into the final MP4.
package render

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"story-shorts/internal/config"
	"story-shorts/internal/shell"
	"story-shorts/internal/types"
)

// ErrAssemblyFailed is returned when no video could be produced.
var ErrAssemblyFailed = errors.New("video assembly failed")

// defaultDuration is used when ffprobe cannot read the narration length.
const defaultDuration = 240.0

// MediaStore resolves storage keys to files the external tools can use.
type MediaStore interface {
	Path(key string) (string, error)
	Remove(key string) error
}

// AssembleInput is everything one video needs.
type AssembleInput struct {
	ContentID string
	AudioKey  string
	Title     string
	Images    []types.Image
}

type preset struct {
	speed        string
	crf          int
	audioBitrate string
}

var presets = map[string]preset{
	"high":   {speed: "medium", crf: 20, audioBitrate: "192k"},
	"medium": {speed: "medium", crf: 23, audioBitrate: "128k"},
	"low":    {speed: "veryfast", crf: 28, audioBitrate: "96k"},
}

// Options configures an Assembler.
type Options struct {
	Video      config.VideoConfig
	Media      MediaStore
	Runner     shell.Runner
	HTTPClient *http.Client
	Logger     zerolog.Logger
}

// Assembler runs ffmpeg over downloaded images and the narration track.
type Assembler struct {
	cfg    config.VideoConfig
	media  MediaStore
	runner shell.Runner
	client *http.Client
	logger zerolog.Logger
}

func NewAssembler(opts Options) *Assembler {
	cfg := opts.Video
	if cfg.Width <= 0 || cfg.Height <= 0 {
		cfg.Width, cfg.Height = 1920, 1080
	}
	if cfg.FPS <= 0 {
		cfg.FPS = 30
	}
	if _, ok := presets[cfg.Quality]; !ok {
		cfg.Quality = "medium"
	}
	client := opts.HTTPClient
	if client == nil {
		client = &http.Client{Timeout: 30 * time.Second}
	}
	return &Assembler{cfg: cfg, media: opts.Media, runner: opts.Runner, client: client, logger: opts.Logger}
}

// Assemble renders videos/<content id>.mp4 and returns its storage key.
func (a *Assembler) Assemble(ctx context.Context, in AssembleInput) (string, error) {
	log := a.logger.With().Str("content_id", in.ContentID).Logger()

	workKey := "work/" + in.ContentID
	defer func() {
		if err := a.media.Remove(workKey); err != nil {
			log.Debug().Err(err).Msg("cleanup work dir")
		}
	}()

	audioPath, err := a.media.Path(in.AudioKey)
	if err != nil {
		return "", fmt.Errorf("%w: audio path: %w", ErrAssemblyFailed, err)
	}
	if _, err := os.Stat(audioPath); err != nil {
		return "", fmt.Errorf("%w: audio missing: %w", ErrAssemblyFailed, err)
	}

	frames, err := a.downloadImages(ctx, workKey, in.Images)
	if err != nil {
		return "", fmt.Errorf("%w: %w", ErrAssemblyFailed, err)
	}
	log.Info().Int("images", len(frames)).Int("requested", len(in.Images)).Msg("images downloaded")

	duration := a.probeDuration(ctx, audioPath)

	listPath, err := a.media.Path(workKey + "/images.txt")
	if err != nil {
		return "", fmt.Errorf("%w: %w", ErrAssemblyFailed, err)
	}
	if err := os.WriteFile(listPath, []byte(concatList(frames, duration)), 0o644); err != nil {
		return "", fmt.Errorf("%w: write concat list: %w", ErrAssemblyFailed, err)
	}

	var subtitles string
	if a.cfg.Captions {
		srt, err := a.transcribe(ctx, audioPath, workKey)
		if err != nil {
			log.Warn().Err(err).Msg("captions skipped")
		} else {
			subtitles = srt
		}
	}

	videoKey := "videos/" + in.ContentID + ".mp4"
	outPath, err := a.media.Path(videoKey)
	if err != nil {
		return "", fmt.Errorf("%w: %w", ErrAssemblyFailed, err)
	}
	args := a.encodeArgs(listPath, audioPath, outPath, in.Title, duration, subtitles)
	if err := a.runner.Run(ctx, "ffmpeg", args...); err != nil {
		if subtitles == "" {
			return "", fmt.Errorf("%w: ffmpeg: %w", ErrAssemblyFailed, err)
		}
		log.Warn().Err(err).Msg("encode with captions failed, retrying without")
		args = a.encodeArgs(listPath, audioPath, outPath, in.Title, duration, "")
		if err := a.runner.Run(ctx, "ffmpeg", args...); err != nil {
			return "", fmt.Errorf("%w: ffmpeg: %w", ErrAssemblyFailed, err)
		}
	}
	if info, err := os.Stat(outPath); err != nil || info.Size() == 0 {
		return "", fmt.Errorf("%w: ffmpeg produced no output", ErrAssemblyFailed)
	}

	log.Info().Str("video", videoKey).Float64("duration_sec", duration).Str("quality", a.cfg.Quality).Msg("video assembled")
	return videoKey, nil
}

// probeDuration returns the narration length in seconds.
func (a *Assembler) probeDuration(ctx context.Context, audioPath string) float64 {
	out, err := a.runner.Output(ctx, "ffprobe",
		"-v", "error",
		"-show_entries", "format=duration",
		"-of", "default=noprint_wrappers=1:nokey=1",
		audioPath,
	)
	if err != nil {
		a.logger.Warn().Err(err).Msg("ffprobe failed, using default duration")
		return defaultDuration
	}
	d, err := strconv.ParseFloat(strings.TrimSpace(string(out)), 64)
	if err != nil || d <= 0 {
		return defaultDuration
	}
	return d
}

// concatList spreads duration evenly over frames. The concat demuxer
// ignores the last duration unless the final file is listed again.
func concatList(frames []string, duration float64) string {
	per := duration / float64(len(frames))
	var b strings.Builder
	for _, f := range frames {
		fmt.Fprintf(&b, "file '%s'\nduration %.3f\n", escapeListPath(f), per)
	}
	fmt.Fprintf(&b, "file '%s'\n", escapeListPath(frames[len(frames)-1]))
	return b.String()
}

func (a *Assembler) encodeArgs(listPath, audioPath, outPath, title string, duration float64, subtitles string) []string {
	p := presets[a.cfg.Quality]
	w, h := a.cfg.Width, a.cfg.Height

	filters := []string{
		fmt.Sprintf("scale=%d:%d:force_original_aspect_ratio=decrease", w, h),
		fmt.Sprintf("pad=%d:%d:(ow-iw)/2:(oh-ih)/2:black", w, h),
		"setsar=1",
		fmt.Sprintf("fps=%d", a.cfg.FPS),
		"fade=in:0:30",
	}
	if duration > 2 {
		filters = append(filters, fmt.Sprintf("fade=out:st=%.3f:d=1", duration-1))
	}
	if a.cfg.FontFile != "" && strings.TrimSpace(title) != "" {
		filters = append(filters, fmt.Sprintf(
			"drawtext=fontfile=%s:text='%s':fontsize=60:fontcolor=white:borderw=3:bordercolor=black:x=(w-text_w)/2:y=100:enable='between(t,0,5)'",
			escapeFilterPath(a.cfg.FontFile), escapeText(title),
		))
	}
	if subtitles != "" {
		filters = append(filters, fmt.Sprintf(
			"subtitles=%s:force_style='FontSize=22,PrimaryColour=&H00FFFFFF,OutlineColour=&H00000000,Outline=2,Alignment=2,MarginV=40'",
			escapeFilterPath(subtitles),
		))
	}

	return []string{"-y",
		"-f", "concat",
		"-safe", "0",
		"-i", listPath,
		"-i", audioPath,
		"-vf", strings.Join(filters, ","),
		"-map", "0:v",
		"-map", "1:a",
		"-c:v", "libx264",
		"-preset", p.speed,
		"-crf", strconv.Itoa(p.crf),
		"-pix_fmt", "yuv420p",
		"-c:a", "aac",
		"-b:a", p.audioBitrate,
		"-shortest",
		"-movflags", "+faststart",
		outPath,
	}
}

func escapeListPath(p string) string {
	return strings.ReplaceAll(filepath.ToSlash(p), "'", `'\''`)
}

// escapeFilterPath escapes a path used inside an ffmpeg filter argument.
func escapeFilterPath(p string) string {
	p = filepath.ToSlash(p)
	p = strings.ReplaceAll(p, ":", `\:`)
	return strings.ReplaceAll(p, "'", `\'`)
}

// escapeText keeps drawtext from reading quotes, colons and percent signs as syntax.
func escapeText(s string) string {
	r := strings.NewReplacer(
		`\`, `\\`,
		"'", "’",
		":", `\:`,
		"%", `\%`,
		",", `\,`,
	)
	return r.Replace(s)
}
