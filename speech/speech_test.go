package speech

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/gorilla/websocket"
	"github.com/m4xw311/grocer/config"
	"github.com/m4xw311/grocer/errors"
	"github.com/openai/openai-go/v2"
	"github.com/openai/openai-go/v2/option"
)

type fakeSynthesizer struct {
	audio []byte
	err   error
	texts []string
}

func (f *fakeSynthesizer) Synthesize(ctx context.Context, text string) ([]byte, error) {
	f.texts = append(f.texts, text)
	return f.audio, f.err
}

type fakePlayer struct {
	played [][]byte
	err    error
}

func (f *fakePlayer) Play(ctx context.Context, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	f.played = append(f.played, data)
	return f.err
}

func TestPipelineSpeak(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out", "speech.mp3")
	synth := &fakeSynthesizer{audio: []byte("first")}
	player := &fakePlayer{}
	p := NewPipeline(synth, player, path, nil)

	p.Speak(context.Background(), "Added apples.")
	synth.audio = []byte("2nd")
	p.Speak(context.Background(), "You have apples.")
	p.Speak(context.Background(), "   ")

	if len(synth.texts) != 2 {
		t.Fatalf("Expected blank text to be skipped, got %v", synth.texts)
	}
	if len(player.played) != 2 || string(player.played[0]) != "first" || string(player.played[1]) != "2nd" {
		t.Errorf("Unexpected playback %q", player.played)
	}
	info, err := os.Stat(path)
	if err != nil {
		t.Fatalf("Stat: %v", err)
	}
	if info.Mode().Perm() != 0o644 {
		t.Errorf("Expected mode 0644, got %v", info.Mode().Perm())
	}
	if data, _ := os.ReadFile(path); string(data) != "2nd" {
		t.Errorf("Expected file to be overwritten, got %q", data)
	}
}

func TestPipelineSwallowsErrors(t *testing.T) {
	dir := t.TempDir()
	testCases := []struct {
		name   string
		synth  *fakeSynthesizer
		player *fakePlayer
		played int
	}{
		{"SynthesisFails", &fakeSynthesizer{err: errors.New("quota")}, &fakePlayer{}, 0},
		{"NoAudio", &fakeSynthesizer{}, &fakePlayer{}, 0},
		{"PlaybackFails", &fakeSynthesizer{audio: []byte("x")}, &fakePlayer{err: errors.New("no device")}, 1},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			p := NewPipeline(tc.synth, tc.player, filepath.Join(dir, tc.name+".mp3"), nil)
			p.Speak(context.Background(), "hello")
			if len(tc.player.played) != tc.played {
				t.Errorf("Expected %d playbacks, got %d", tc.played, len(tc.player.played))
			}
		})
	}
}

func TestCommandPlayer(t *testing.T) {
	var ran []string
	p := NewCommandPlayer([]string{"afplay", "ffplay", "mpv"})
	p.lookPath = func(name string) (string, error) {
		if name == "afplay" {
			return "", errors.New("not found")
		}
		return "/usr/bin/" + name, nil
	}
	p.run = func(ctx context.Context, name string, args ...string) error {
		ran = append(ran, name+" "+strings.Join(args, " "))
		return nil
	}

	if err := p.Play(context.Background(), "/tmp/speech.mp3"); err != nil {
		t.Fatalf("Play: %v", err)
	}
	if len(ran) != 1 || ran[0] != "/usr/bin/ffplay -nodisp -autoexit -loglevel quiet /tmp/speech.mp3" {
		t.Errorf("Unexpected command %v", ran)
	}

	p.lookPath = func(string) (string, error) { return "", errors.New("not found") }
	if err := p.Play(context.Background(), "/tmp/speech.mp3"); err == nil {
		t.Errorf("Expected error when no player is installed")
	}

	if got := NewCommandPlayer(nil).Candidates; len(got) != len(DefaultPlayers) {
		t.Errorf("Expected default players, got %v", got)
	}
}

func TestOpenAISynthesizer(t *testing.T) {
	bodies := make(chan map[string]any, 1)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !strings.HasSuffix(r.URL.Path, "/audio/speech") {
			http.NotFound(w, r)
			return
		}
		var body map[string]any
		_ = json.NewDecoder(r.Body).Decode(&body)
		bodies <- body
		w.Header().Set("Content-Type", "audio/mpeg")
		_, _ = io.WriteString(w, "ID3-fake-mp3")
	}))
	defer srv.Close()

	client := openai.NewClient(option.WithAPIKey("test"), option.WithBaseURL(srv.URL+"/v1/"), option.WithMaxRetries(0))
	s := NewOpenAISynthesizer(&client, config.OpenAISpeechSettings{})

	audio, err := s.Synthesize(context.Background(), "Added apples.")
	if err != nil {
		t.Fatalf("Synthesize: %v", err)
	}
	if string(audio) != "ID3-fake-mp3" {
		t.Errorf("Unexpected audio %q", audio)
	}
	body := <-bodies
	if body["model"] != "tts-1-hd" || body["voice"] != "alloy" || body["input"] != "Added apples." || body["response_format"] != "mp3" {
		t.Errorf("Unexpected request %v", body)
	}
}

func TestElevenLabsSynthesizer(t *testing.T) {
	upgrader := websocket.Upgrader{}
	var mu sync.Mutex
	var gotKey, gotPath string
	var texts []string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		defer mu.Unlock()
		gotKey = r.Header.Get("xi-api-key")
		gotPath = r.URL.Path
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		defer conn.Close()
		for {
			var msg map[string]any
			if err := conn.ReadJSON(&msg); err != nil {
				return
			}
			text, _ := msg["text"].(string)
			texts = append(texts, text)
			if text == "" {
				break
			}
		}
		for _, chunk := range []string{"abc", "def"} {
			_ = conn.WriteJSON(map[string]any{"audio": base64.StdEncoding.EncodeToString([]byte(chunk)), "isFinal": nil})
		}
		_ = conn.WriteJSON(map[string]any{"isFinal": true})
	}))
	defer srv.Close()

	s, err := NewElevenLabsSynthesizer("secret", config.ElevenLabsSettings{VoiceID: "voice1"}, nil)
	if err != nil {
		t.Fatalf("NewElevenLabsSynthesizer: %v", err)
	}
	s.BaseURL = "ws" + strings.TrimPrefix(srv.URL, "http")

	audio, err := s.Synthesize(context.Background(), "Added apples.")
	if err != nil {
		t.Fatalf("Synthesize: %v", err)
	}
	mu.Lock()
	defer mu.Unlock()
	if string(audio) != "abcdef" {
		t.Errorf("Expected concatenated chunks, got %q", audio)
	}
	if gotKey != "secret" || gotPath != "/v1/text-to-speech/voice1/stream-input" {
		t.Errorf("Unexpected handshake key=%q path=%q", gotKey, gotPath)
	}
	if len(texts) != 3 || texts[1] != "Added apples. " {
		t.Errorf("Unexpected messages %q", texts)
	}
}

func TestElevenLabsSynthesizerErrors(t *testing.T) {
	if _, err := NewElevenLabsSynthesizer("", config.ElevenLabsSettings{VoiceID: "v"}, nil); err == nil {
		t.Errorf("Expected error without API key")
	}
	if _, err := NewElevenLabsSynthesizer("k", config.ElevenLabsSettings{}, nil); err == nil {
		t.Errorf("Expected error without voice id")
	}

	upgrader := websocket.Upgrader{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		defer conn.Close()
		for i := 0; i < 3; i++ {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
		_ = conn.WriteJSON(map[string]any{"error": "quota_exceeded", "message": "out of credits"})
	}))
	defer srv.Close()

	s, _ := NewElevenLabsSynthesizer("k", config.ElevenLabsSettings{VoiceID: "v"}, nil)
	s.BaseURL = "ws" + strings.TrimPrefix(srv.URL, "http")
	if _, err := s.Synthesize(context.Background(), "hi"); err == nil || !strings.Contains(err.Error(), "out of credits") {
		t.Errorf("Expected provider error, got %v", err)
	}
}

func TestFromConfig(t *testing.T) {
	off := false
	cfg := config.Default()
	cfg.Speech.Enabled = &off
	s, err := FromConfig(cfg, nil)
	if err != nil {
		t.Fatalf("FromConfig: %v", err)
	}
	if _, ok := s.(Nop); !ok {
		t.Errorf("Expected Nop speaker when disabled, got %T", s)
	}

	t.Setenv("ELEVENLABS_API_KEY", "k")
	cfg = config.Default()
	cfg.Speech.Provider = "elevenlabs"
	cfg.Speech.Settings = map[string]any{"voice-id": "v1"}
	s, err = FromConfig(cfg, nil)
	if err != nil {
		t.Fatalf("FromConfig: %v", err)
	}
	p, ok := s.(*Pipeline)
	if !ok {
		t.Fatalf("Expected pipeline, got %T", s)
	}
	player, ok := p.Player.(*CommandPlayer)
	if !ok || strings.Join(player.Candidates, ",") != strings.Join(DefaultPlayers, ",") {
		t.Errorf("Expected default players from an unset config, got %+v", p.Player)
	}

	cfg.Speech.Provider = "espeak"
	if _, err := FromConfig(cfg, nil); err == nil {
		t.Errorf("Expected error for unsupported provider")
	}
}
