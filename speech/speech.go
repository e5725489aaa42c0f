// Package speech reads assistant answers aloud.
//
// A Pipeline turns text into audio with a Synthesizer, writes it to a fixed
// file and plays that file with a Player. Speech is a side channel: failures
// are logged and never reach the conversation.
package speech

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/m4xw311/grocer/errors"
)

// Speaker reads text aloud. Speak returns once playback has finished or
// failed; failures are not reported to the caller.
type Speaker interface {
	Speak(ctx context.Context, text string)
}

// Synthesizer converts text to encoded audio.
type Synthesizer interface {
	Synthesize(ctx context.Context, text string) ([]byte, error)
}

// Player plays an audio file and waits for it to finish.
type Player interface {
	Play(ctx context.Context, path string) error
}

// Nop is the Speaker used when speech is disabled.
type Nop struct{}

func (Nop) Speak(context.Context, string) {}

type Pipeline struct {
	Synthesizer Synthesizer
	Player      Player
	// Path is overwritten on every answer.
	Path   string
	Logger *slog.Logger
}

func NewPipeline(synth Synthesizer, player Player, path string, logger *slog.Logger) *Pipeline {
	if logger == nil {
		logger = slog.Default()
	}
	return &Pipeline{Synthesizer: synth, Player: player, Path: path, Logger: logger}
}

func (p *Pipeline) Speak(ctx context.Context, text string) {
	if strings.TrimSpace(text) == "" {
		return
	}
	if err := p.speak(ctx, text); err != nil {
		p.Logger.Warn("speech output failed", slog.Any("error", err))
	}
}

func (p *Pipeline) speak(ctx context.Context, text string) error {
	audio, err := p.Synthesizer.Synthesize(ctx, text)
	if err != nil {
		return errors.Wrapf(err, "failed to synthesize speech")
	}
	if len(audio) == 0 {
		return errors.New("synthesizer returned no audio")
	}
	if dir := filepath.Dir(p.Path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return errors.Wrapf(err, "failed to create directory for %s", p.Path)
		}
	}
	if err := os.WriteFile(p.Path, audio, 0o644); err != nil {
		return errors.Wrapf(err, "failed to write %s", p.Path)
	}
	p.Logger.Debug("speech written", slog.String("path", p.Path), slog.Int("bytes", len(audio)))
	if err := p.Player.Play(ctx, p.Path); err != nil {
		return errors.Wrapf(err, "failed to play %s", p.Path)
	}
	return nil
}
