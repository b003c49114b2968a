package render

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// transcribe runs whisper over the narration and returns the SRT path.
func (a *Assembler) transcribe(ctx context.Context, audioPath, workKey string) (string, error) {
	srtPath, err := a.media.Path(workKey + "/captions.srt")
	if err != nil {
		return "", err
	}
	outDir := filepath.Dir(srtPath)
	model := a.cfg.WhisperModel
	if model == "" {
		model = "base"
	}
	err = a.runner.Run(ctx, "whisper", audioPath,
		"--model", model,
		"--output_format", "srt",
		"--output_dir", outDir,
		"--language", "en",
		"--word_timestamps", "True",
		"--max_line_width", "42",
		"--max_line_count", "2",
	)
	if err != nil {
		return "", fmt.Errorf("whisper: %w", err)
	}

	// whisper names the file after the input.
	base := strings.TrimSuffix(filepath.Base(audioPath), filepath.Ext(audioPath))
	produced := filepath.Join(outDir, base+".srt")
	if produced != srtPath {
		if err := os.Rename(produced, srtPath); err != nil {
			return "", fmt.Errorf("whisper output: %w", err)
		}
	}
	if err := validateSRT(srtPath); err != nil {
		return "", err
	}
	return srtPath, nil
}

// validateSRT rejects empty or truncated subtitle files.
func validateSRT(path string) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()

	lines := 0
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		lines++
	}
	if err := scanner.Err(); err != nil {
		return err
	}
	if lines < 4 {
		return fmt.Errorf("srt looks empty (%d lines)", lines)
	}
	return nil
}
