package main

import (
	"io"
	"log/slog"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
)

func TestBridge(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	script := `printf 'User: '; read line; echo "Assistant: got $line"; echo oops >&2`
	srv := httptest.NewServer(handleWS([]string{"sh", "-c", script}, logger))
	defer srv.Close()

	conn, _, err := websocket.DefaultDialer.Dial("ws"+strings.TrimPrefix(srv.URL, "http"), nil)
	if err != nil {
		t.Fatalf("Dial: %v", err)
	}
	defer conn.Close()

	if err := conn.WriteMessage(websocket.TextMessage, []byte("apples")); err != nil {
		t.Fatalf("WriteMessage: %v", err)
	}

	var stdout, stderr strings.Builder
	var exit string
	_ = conn.SetReadDeadline(time.Now().Add(10 * time.Second))
	for exit == "" {
		var f frame
		if err := conn.ReadJSON(&f); err != nil {
			t.Fatalf("ReadJSON: %v (stdout so far %q)", err, stdout.String())
		}
		switch f.Type {
		case "stdout":
			stdout.WriteString(f.Data)
		case "stderr":
			stderr.WriteString(f.Data)
		case "exit":
			exit = f.Data
		}
	}

	if stdout.String() != "User: Assistant: got apples\n" {
		t.Errorf("Unexpected stdout %q", stdout.String())
	}
	if stderr.String() != "oops\n" {
		t.Errorf("Unexpected stderr %q", stderr.String())
	}
	if exit != "0" {
		t.Errorf("Expected clean exit, got %q", exit)
	}
}

func TestExitStatus(t *testing.T) {
	if got := exitStatus(nil); got != "0" {
		t.Errorf("Expected 0, got %q", got)
	}
}
