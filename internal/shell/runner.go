// Package shell runs external media tools such as ffmpeg, ffprobe, whisper and edge-tts.
package shell

import (
	"bytes"
	"context"
	"fmt"
	"os/exec"
	"strings"

	"github.com/rs/zerolog"
)

// Runner executes a command. Tests swap in a fake.
type Runner interface {
	Run(ctx context.Context, name string, args ...string) error
	Output(ctx context.Context, name string, args ...string) ([]byte, error)
}

// Exec runs commands with os/exec and folds the stderr tail into errors.
type Exec struct {
	Logger zerolog.Logger
}

func (e Exec) Run(ctx context.Context, name string, args ...string) error {
	_, err := e.run(ctx, name, args)
	return err
}

func (e Exec) Output(ctx context.Context, name string, args ...string) ([]byte, error) {
	return e.run(ctx, name, args)
}

func (e Exec) run(ctx context.Context, name string, args []string) ([]byte, error) {
	cmd := exec.CommandContext(ctx, name, args...)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	e.Logger.Debug().Str("cmd", name).Int("args", len(args)).Msg("exec")
	if err := cmd.Run(); err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, fmt.Errorf("%s: %w", name, ctxErr)
		}
		return nil, fmt.Errorf("%s: %w: %s", name, err, tail(stderr.String(), 400))
	}
	return stdout.Bytes(), nil
}

// Available reports whether name is on PATH.
func Available(name string) bool {
	_, err := exec.LookPath(name)
	return err == nil
}

func tail(s string, n int) string {
	s = strings.TrimSpace(s)
	if len(s) <= n {
		return s
	}
	return "..." + s[len(s)-n:]
}
