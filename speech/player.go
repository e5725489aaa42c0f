package speech

import (
	"context"
	"os/exec"

	"github.com/m4xw311/grocer/errors"
)

// DefaultPlayers are tried in order; afplay covers macOS, the rest Linux.
var DefaultPlayers = []string{"afplay", "mpg123", "ffplay", "mpv", "play"}

// Flags that keep a player quiet and make it exit at the end of the file.
var playerArgs = map[string][]string{
	"mpg123": {"-q"},
	"ffplay": {"-nodisp", "-autoexit", "-loglevel", "quiet"},
	"mpv":    {"--no-video", "--really-quiet"},
	"play":   {"-q"},
}

// CommandPlayer plays audio with the first installed program of Candidates.
type CommandPlayer struct {
	Candidates []string
	lookPath   func(string) (string, error)
	run        func(ctx context.Context, name string, args ...string) error
}

func NewCommandPlayer(candidates []string) *CommandPlayer {
	if len(candidates) == 0 {
		candidates = DefaultPlayers
	}
	return &CommandPlayer{
		Candidates: candidates,
		lookPath:   exec.LookPath,
		run: func(ctx context.Context, name string, args ...string) error {
			return exec.CommandContext(ctx, name, args...).Run()
		},
	}
}

func (p *CommandPlayer) Play(ctx context.Context, path string) error {
	for _, name := range p.Candidates {
		bin, err := p.lookPath(name)
		if err != nil {
			continue
		}
		args := append(append([]string(nil), playerArgs[name]...), path)
		if err := p.run(ctx, bin, args...); err != nil {
			return errors.Wrapf(err, "%s failed", name)
		}
		return nil
	}
	return errors.New("no audio player found, tried %v", p.Candidates)
}
