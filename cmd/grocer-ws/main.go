package main

import (
	"context"
	"flag"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/exec"
	"strconv"
	"sync"

	"github.com/gorilla/websocket"
	"github.com/m4xw311/grocer/errors"
	"github.com/m4xw311/grocer/logging"
	"golang.org/x/sync/errgroup"
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

// frame is one message sent to the browser.
type frame struct {
	Type string `json:"type"`
	Data string `json:"data"`
}

func main() {
	addr := flag.String("addr", ":8080", "Listen address")
	logLevel := flag.String("log-level", "info", "Log level: debug, info, warn or error")
	flag.Parse()

	logger := logging.New(*logLevel, "text", os.Stderr)

	// Everything after the flags is the command to run per connection,
	// e.g. grocer-ws -- grocer -no-speech -quiet
	command := flag.Args()
	if len(command) == 0 {
		command = []string{"grocer", "-no-speech", "-quiet"}
	}

	http.HandleFunc("/ws", handleWS(command, logger))
	logger.Info("WebSocket server running", slog.String("addr", *addr), slog.String("path", "/ws"))
	if err := http.ListenAndServe(*addr, nil); err != nil {
		logger.Error("server stopped", slog.Any("error", err))
		os.Exit(1)
	}
}

func handleWS(command []string, logger *slog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			logger.Warn("upgrade failed", slog.Any("error", err))
			return
		}
		defer conn.Close()

		if err := bridge(r.Context(), conn, command); err != nil {
			logger.Info("session ended", slog.Any("error", err))
		}
	}
}

// bridge runs command and connects its stdio to conn until either side ends.
func bridge(ctx context.Context, conn *websocket.Conn, command []string) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	cmd := exec.CommandContext(ctx, command[0], command[1:]...)
	stdin, err := cmd.StdinPipe()
	if err != nil {
		return errors.Wrapf(err, "error getting stdin")
	}
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return errors.Wrapf(err, "error getting stdout")
	}
	stderr, err := cmd.StderrPipe()
	if err != nil {
		return errors.Wrapf(err, "error getting stderr")
	}
	if err := cmd.Start(); err != nil {
		return errors.Wrapf(err, "error starting %s", command[0])
	}

	// gorilla connections allow one concurrent writer.
	var writeMu sync.Mutex
	send := func(f frame) error {
		writeMu.Lock()
		defer writeMu.Unlock()
		return conn.WriteJSON(f)
	}

	var g errgroup.Group
	g.Go(func() error { return pump(stdout, "stdout", send) })
	g.Go(func() error { return pump(stderr, "stderr", send) })

	// Browser input goes to the process until the socket closes.
	readErr := make(chan error, 1)
	go func() {
		defer stdin.Close()
		for {
			_, msg, err := conn.ReadMessage()
			if err != nil {
				readErr <- err
				return
			}
			if _, err := stdin.Write(append(msg, '\n')); err != nil {
				readErr <- errors.Wrapf(err, "stdin write failed")
				return
			}
		}
	}()

	pumpsDone := make(chan error, 1)
	go func() { pumpsDone <- g.Wait() }()

	select {
	case err := <-readErr:
		// The browser left; stop the process.
		cancel()
		<-pumpsDone
		_ = cmd.Wait()
		return err
	case err := <-pumpsDone:
		waitErr := cmd.Wait()
		_ = send(frame{Type: "exit", Data: exitStatus(waitErr)})
		return errors.Join(err, waitErr)
	}
}

// pump forwards output as it arrives. Reads are not line based so prompts
// without a trailing newline reach the browser.
func pump(r io.Reader, stream string, send func(frame) error) error {
	buf := make([]byte, 4096)
	for {
		n, err := r.Read(buf)
		if n > 0 {
			if werr := send(frame{Type: stream, Data: string(buf[:n])}); werr != nil {
				return errors.Wrapf(werr, "websocket write failed")
			}
		}
		if err == io.EOF {
			return nil
		}
		if err != nil {
			return errors.Wrapf(err, "%s read failed", stream)
		}
	}
}

func exitStatus(err error) string {
	if err == nil {
		return "0"
	}
	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		return strconv.Itoa(exitErr.ExitCode())
	}
	return err.Error()
}
