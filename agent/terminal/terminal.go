package terminal

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/m4xw311/grocer/agent"
	"github.com/m4xw311/grocer/config"
	"github.com/m4xw311/grocer/session"
	"github.com/m4xw311/grocer/speech"
)

// Options tune a Terminal. The zero value uses the defaults.
type Options struct {
	// ExitKeyword ends the session when typed on its own, in any case.
	ExitKeyword string
	// InitialPrompt is processed as the first turn, before reading input.
	InitialPrompt string
}

// Terminal handles the terminal/CLI interaction mode for the agent
type Terminal struct {
	agent   *agent.Agent
	speaker speech.Speaker
	in      io.Reader
	out     io.Writer
	opts    Options
	history *session.History
}

// New creates a new Terminal instance. A nil speaker disables speech.
func New(a *agent.Agent, speaker speech.Speaker, in io.Reader, out io.Writer, opts Options) *Terminal {
	if speaker == nil {
		speaker = speech.Nop{}
	}
	if opts.ExitKeyword == "" {
		opts.ExitKeyword = config.DefaultExitKeyword
	}
	return &Terminal{
		agent:   a,
		speaker: speaker,
		in:      in,
		out:     out,
		opts:    opts,
		history: session.NewHistory(),
	}
}

// History is the conversation recorded so far.
func (t *Terminal) History() *session.History {
	return t.history
}

// Run starts the interactive terminal session. It returns nil when the user
// types the exit keyword, input ends or ctx is cancelled, and only reports
// read errors.
func (t *Terminal) Run(ctx context.Context) error {
	if t.opts.InitialPrompt != "" {
		t.processTurn(ctx, t.opts.InitialPrompt)
	}

	stop := make(chan struct{})
	defer close(stop)
	lines, readDone := t.readLines(stop)

	for {
		if ctx.Err() != nil {
			return nil
		}
		fmt.Fprint(t.out, "User: ")

		var userInput string
		select {
		case <-ctx.Done():
			fmt.Fprintln(t.out)
			return nil
		case err := <-readDone:
			// EOF or read error ends the session
			fmt.Fprintln(t.out)
			return err
		case line := <-lines:
			userInput = strings.TrimSpace(line)
		}

		if userInput == "" {
			continue
		}
		if strings.EqualFold(userInput, t.opts.ExitKeyword) {
			return nil
		}

		t.processTurn(ctx, userInput)
	}
}

// readLines scans input on its own goroutine so a blocked read does not keep
// Run from seeing cancellation. readDone receives the scanner error once input
// ends; the goroutine exits early when stop is closed.
func (t *Terminal) readLines(stop <-chan struct{}) (<-chan string, <-chan error) {
	lines := make(chan string)
	readDone := make(chan error, 1)
	go func() {
		scanner := bufio.NewScanner(t.in)
		for scanner.Scan() {
			select {
			case lines <- scanner.Text():
			case <-stop:
				return
			}
		}
		readDone <- scanner.Err()
	}()
	return lines, readDone
}

// processTurn handles a single user input turn. A failed turn is reported and
// leaves the history as it was.
func (t *Terminal) processTurn(ctx context.Context, userInput string) {
	answer, err := t.agent.ProcessUserInput(ctx, userInput, t.history.Messages(), t.callbacks())
	if err != nil {
		fmt.Fprintf(t.out, "Error: %v\n", err)
		return
	}

	fmt.Fprintf(t.out, "Assistant: %s\n", answer)
	t.history.AddTurn(userInput, answer)
	t.speaker.Speak(ctx, answer)
}

func (t *Terminal) callbacks() agent.ProcessCallbacks {
	verbosity := t.agent.Verbosity
	return agent.ProcessCallbacks{
		OnToolCall: func(toolCall session.ToolCall) {
			// Display tool call information based on verbosity
			if verbosity == agent.ToolVerbosityAll {
				fmt.Fprintf(t.out, "Calling tool `%s` with args: %v\n", toolCall.Name, toolCall.Args)
			} else if verbosity == agent.ToolVerbosityInfo {
				fmt.Fprintf(t.out, "Calling tool `%s`\n", toolCall.Name)
			}
		},
		OnToolResult: func(toolCall session.ToolCall, result string) {
			if verbosity == agent.ToolVerbosityAll {
				fmt.Fprintf(t.out, "Tool `%s` output: %s\n", toolCall.Name, result)
			}
		},
		OnWarning: func(warning string) {
			if verbosity != agent.ToolVerbosityNone {
				fmt.Fprintf(t.out, "Warning: %s\n", warning)
			}
		},
	}
}
