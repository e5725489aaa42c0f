package speech

import (
	"log/slog"
	"os"

	"github.com/m4xw311/grocer/config"
	"github.com/m4xw311/grocer/errors"
	"github.com/m4xw311/grocer/llm"
)

// FromConfig builds the Speaker described by cfg.Speech. Disabled speech
// yields Nop.
func FromConfig(cfg *config.Config, logger *slog.Logger) (Speaker, error) {
	if !cfg.Speech.On() {
		return Nop{}, nil
	}

	var synth Synthesizer
	switch cfg.Speech.Provider {
	case "", "openai":
		var settings config.OpenAISpeechSettings
		if err := cfg.DecodeSpeechSettings(&settings); err != nil {
			return nil, err
		}
		client, err := llm.NewOpenAIClient()
		if err != nil {
			return nil, errors.Wrapf(err, "openai speech")
		}
		synth = NewOpenAISynthesizer(client, settings)
	case "elevenlabs":
		var settings config.ElevenLabsSettings
		if err := cfg.DecodeSpeechSettings(&settings); err != nil {
			return nil, err
		}
		s, err := NewElevenLabsSynthesizer(os.Getenv("ELEVENLABS_API_KEY"), settings, logger)
		if err != nil {
			return nil, err
		}
		synth = s
	default:
		return nil, errors.New("unsupported speech provider '%s'", cfg.Speech.Provider)
	}

	path := cfg.Speech.Path
	if path == "" {
		path = config.DefaultSpeechPath()
	}
	return NewPipeline(synth, NewCommandPlayer(cfg.Speech.Players), path, logger), nil
}
