package audio

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"story-shorts/internal/shell"
)

// Command synthesizes speech with a local program. TTS_COMMAND names a
// binary or a .py script taking --text and --output; without it edge-tts is used.
type Command struct {
	command string
	voice   string
	runner  shell.Runner
	tmpDir  string
}

// NewCommand resolves the TTS program. It fails when neither TTS_COMMAND nor
// edge-tts is available.
func NewCommand(ttsCommand, voice string, runner shell.Runner) (*Command, error) {
	ttsCommand = strings.TrimSpace(ttsCommand)
	if ttsCommand == "" {
		if !shell.Available("edge-tts") {
			return nil, errors.New("command tts: no engine found, set TTS_COMMAND or install edge-tts")
		}
		ttsCommand = "edge-tts"
	}
	if voice == "" {
		voice = "en-US-GuyNeural"
	}
	return &Command{command: ttsCommand, voice: voice, runner: runner}, nil
}

func (c *Command) Name() string { return "command" }

func (c *Command) Synthesize(ctx context.Context, text string) ([]byte, error) {
	f, err := os.CreateTemp(c.tmpDir, "narration-*.mp3")
	if err != nil {
		return nil, fmt.Errorf("command tts: temp file: %w", err)
	}
	out := f.Name()
	f.Close()
	defer os.Remove(out)

	name, args := c.invocation(text, out)
	if err := c.runner.Run(ctx, name, args...); err != nil {
		return nil, fmt.Errorf("command tts: %w", err)
	}
	return os.ReadFile(out)
}

func (c *Command) invocation(text, out string) (string, []string) {
	switch {
	case filepath.Base(c.command) == "edge-tts":
		return c.command, []string{"--voice", c.voice, "--text", text, "--write-media", out}
	case strings.HasSuffix(c.command, ".py"):
		return "python3", []string{c.command, "--text", text, "--output", out}
	default:
		return c.command, []string{"--text", text, "--output", out}
	}
}
