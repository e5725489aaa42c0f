package speech

import (
	"context"
	"io"

	"github.com/m4xw311/grocer/config"
	"github.com/m4xw311/grocer/errors"
	"github.com/openai/openai-go/v2"
)

const (
	defaultOpenAIModel  = "tts-1-hd"
	defaultOpenAIVoice  = "alloy"
	defaultOpenAIFormat = "mp3"
)

// OpenAISynthesizer uses the OpenAI audio speech endpoint.
type OpenAISynthesizer struct {
	client   *openai.Client
	settings config.OpenAISpeechSettings
}

func NewOpenAISynthesizer(client *openai.Client, settings config.OpenAISpeechSettings) *OpenAISynthesizer {
	if settings.Model == "" {
		settings.Model = defaultOpenAIModel
	}
	if settings.Voice == "" {
		settings.Voice = defaultOpenAIVoice
	}
	if settings.Format == "" {
		settings.Format = defaultOpenAIFormat
	}
	return &OpenAISynthesizer{client: client, settings: settings}
}

func (o *OpenAISynthesizer) Synthesize(ctx context.Context, text string) ([]byte, error) {
	resp, err := o.client.Audio.Speech.New(ctx, openai.AudioSpeechNewParams{
		Input:          text,
		Model:          openai.SpeechModel(o.settings.Model),
		Voice:          openai.AudioSpeechNewParamsVoice(o.settings.Voice),
		ResponseFormat: openai.AudioSpeechNewParamsResponseFormat(o.settings.Format),
	})
	if err != nil {
		return nil, errors.Wrapf(err, "OpenAI speech request failed")
	}
	defer resp.Body.Close()

	audio, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to read OpenAI speech response")
	}
	return audio, nil
}
