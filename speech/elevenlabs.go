package speech

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/url"
	"strings"

	"github.com/gorilla/websocket"
	"github.com/m4xw311/grocer/config"
	"github.com/m4xw311/grocer/errors"
)

const (
	DefaultElevenLabsURL = "wss://api.elevenlabs.io"
	defaultElevenModel   = "eleven_multilingual_v2"
	defaultElevenFormat  = "mp3_44100_128"
)

// ElevenLabsSynthesizer streams text to the ElevenLabs stream-input websocket
// and collects the audio chunks of one answer.
type ElevenLabsSynthesizer struct {
	APIKey   string
	BaseURL  string
	settings config.ElevenLabsSettings
	logger   *slog.Logger
}

type elevenLabsChunk struct {
	Audio   string `json:"audio"`
	IsFinal bool   `json:"isFinal"`
	Error   string `json:"error"`
	Message string `json:"message"`
}

func NewElevenLabsSynthesizer(apiKey string, settings config.ElevenLabsSettings, logger *slog.Logger) (*ElevenLabsSynthesizer, error) {
	if apiKey == "" {
		return nil, errors.New("ELEVENLABS_API_KEY environment variable not set")
	}
	if settings.VoiceID == "" {
		return nil, errors.New("speech.settings.voice_id is required for elevenlabs")
	}
	if settings.ModelID == "" {
		settings.ModelID = defaultElevenModel
	}
	if settings.OutputFormat == "" {
		settings.OutputFormat = defaultElevenFormat
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &ElevenLabsSynthesizer{
		APIKey:   apiKey,
		BaseURL:  DefaultElevenLabsURL,
		settings: settings,
		logger:   logger,
	}, nil
}

func (s *ElevenLabsSynthesizer) buildURL() string {
	q := url.Values{}
	q.Set("model_id", s.settings.ModelID)
	q.Set("output_format", s.settings.OutputFormat)
	return strings.TrimSuffix(s.BaseURL, "/") + "/v1/text-to-speech/" + url.PathEscape(s.settings.VoiceID) + "/stream-input?" + q.Encode()
}

func (s *ElevenLabsSynthesizer) Synthesize(ctx context.Context, text string) ([]byte, error) {
	dialer := websocket.Dialer{Proxy: http.ProxyFromEnvironment}
	conn, resp, err := dialer.DialContext(ctx, s.buildURL(), http.Header{
		"xi-api-key": []string{s.APIKey},
	})
	if err != nil {
		if resp != nil {
			return nil, errors.Wrapf(err, "failed to connect to ElevenLabs: %s", resp.Status)
		}
		return nil, errors.Wrapf(err, "failed to connect to ElevenLabs")
	}
	defer conn.Close()

	// Unblock the read below if the caller gives up.
	stop := context.AfterFunc(ctx, func() { conn.Close() })
	defer stop()

	// The first message opens the stream, an empty text closes it.
	messages := []map[string]any{
		{
			"text": " ",
			"voice_settings": map[string]any{
				"stability":        0.5,
				"similarity_boost": 0.8,
			},
		},
		{"text": strings.TrimSpace(text) + " ", "try_trigger_generation": true},
		{"text": ""},
	}
	for _, m := range messages {
		if err := conn.WriteJSON(m); err != nil {
			return nil, errors.Wrapf(err, "failed to send text to ElevenLabs")
		}
	}

	var audio []byte
	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			if websocket.IsCloseError(err, websocket.CloseNormalClosure) && len(audio) > 0 {
				return audio, nil
			}
			return nil, errors.Wrapf(err, "ElevenLabs stream ended unexpectedly")
		}

		var chunk elevenLabsChunk
		if err := json.Unmarshal(data, &chunk); err != nil {
			s.logger.Debug("ignoring undecodable ElevenLabs message", slog.Int("bytes", len(data)))
			continue
		}
		if chunk.Error != "" {
			return nil, errors.New("ElevenLabs error %s: %s", chunk.Error, chunk.Message)
		}
		if chunk.Audio != "" {
			raw, err := base64.StdEncoding.DecodeString(chunk.Audio)
			if err != nil {
				return nil, errors.Wrapf(err, "failed to decode ElevenLabs audio chunk")
			}
			audio = append(audio, raw...)
			s.logger.Debug("speech chunk received", slog.Int("bytes", len(raw)))
		}
		if chunk.IsFinal {
			return audio, nil
		}
	}
}
