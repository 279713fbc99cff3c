package voice

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"mime"
	"path/filepath"
	"strings"
	"time"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
	"github.com/rs/zerolog"

	contractx "github.com/tanpawarit/shoptalk-assistant/agent/contract"
	openrouterx "github.com/tanpawarit/shoptalk-assistant/pkg/openrouter"
)

var (
	ErrEmptyAudio      = errors.New("audio is empty")
	ErrAudioTooLarge   = errors.New("audio exceeds size limit")
	ErrEmptyTranscript = errors.New("transcript is empty")
)

type Config struct {
	BaseURL      string        `split_words:"true" default:"https://api.openai.com/v1"`
	APIKey       string        `split_words:"true" required:"true"`
	Model        string        `split_words:"true" default:"whisper-1"`
	Language     string        `split_words:"true"`
	Timeout      time.Duration `split_words:"true" default:"60s"`
	MaxAudioSize int64         `split_words:"true" default:"26214400"`
}

// OpenAITranscriber sends audio to an OpenAI-compatible transcription
// endpoint and returns the recognized text.
type OpenAITranscriber struct {
	client   *openai.Client
	model    string
	language string
	maxSize  int64
}

var _ contractx.Transcriber = (*OpenAITranscriber)(nil)

func NewOpenAITranscriber(cfg Config, opts ...option.RequestOption) (*OpenAITranscriber, error) {
	client := openrouterx.NewClient(openrouterx.Config{
		BaseURL: cfg.BaseURL,
		APIKey:  cfg.APIKey,
		Timeout: cfg.Timeout,
	}, opts...)
	if client == nil {
		return nil, fmt.Errorf("%w: voice api key is required", contractx.ErrValidation)
	}

	model := strings.TrimSpace(cfg.Model)
	if model == "" {
		model = string(openai.AudioModelWhisper1)
	}
	maxSize := cfg.MaxAudioSize
	if maxSize <= 0 {
		maxSize = 25 << 20
	}

	return &OpenAITranscriber{
		client:   client,
		model:    model,
		language: strings.TrimSpace(cfg.Language),
		maxSize:  maxSize,
	}, nil
}

func (t *OpenAITranscriber) Transcribe(ctx context.Context, filename string, audio io.Reader) (string, error) {
	if audio == nil {
		return "", ErrEmptyAudio
	}

	// Read one byte past the limit to detect oversized uploads.
	data, err := io.ReadAll(io.LimitReader(audio, t.maxSize+1))
	if err != nil {
		return "", fmt.Errorf("read audio: %w", err)
	}
	if len(data) == 0 {
		return "", ErrEmptyAudio
	}
	if int64(len(data)) > t.maxSize {
		return "", ErrAudioTooLarge
	}

	name := filepath.Base(strings.TrimSpace(filename))
	if name == "" || name == "." || name == "/" {
		name = "speech.webm"
	}
	contentType := mime.TypeByExtension(filepath.Ext(name))
	if contentType == "" {
		contentType = "application/octet-stream"
	}

	params := openai.AudioTranscriptionNewParams{
		File:  openai.File(bytes.NewReader(data), name, contentType),
		Model: openai.AudioModel(t.model),
	}
	if t.language != "" {
		params.Language = openai.String(t.language)
	}

	started := time.Now()
	resp, err := t.client.Audio.Transcriptions.New(ctx, params)
	if err != nil {
		return "", fmt.Errorf("%w: transcription: %v", contractx.ErrModelInvoke, err)
	}

	text := strings.TrimSpace(resp.Text)
	if text == "" {
		return "", ErrEmptyTranscript
	}

	zerolog.Ctx(ctx).Debug().
		Str("model", t.model).
		Int("audio_bytes", len(data)).
		Dur("elapsed", time.Since(started)).
		Msg("audio transcribed")
	return text, nil
}
