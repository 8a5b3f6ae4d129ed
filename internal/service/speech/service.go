package speech

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/sashabaranov/go-openai"

	"github.com/skillup-labs/skillup/backend/internal/config"
	speechmodel "github.com/skillup-labs/skillup/backend/internal/model/speech"
)

var (
	// ErrEmptyTranscript is returned when recognition produced no usable text.
	ErrEmptyTranscript = errors.New("no speech recognized in audio")
	// ErrEmptyText is returned when synthesis is requested for blank input.
	ErrEmptyText = errors.New("synthesis text is empty")
)

// Service adapts audio payloads to text and text to audio through the
// OpenAI audio endpoints. It holds no conversational state.
type Service struct {
	client *openai.Client
	cfg    config.SpeechConfig
}

// NewService builds the speech service from configuration.
func NewService(cfg config.SpeechConfig) *Service {
	clientCfg := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		clientCfg.BaseURL = cfg.BaseURL
	}
	return &Service{
		client: openai.NewClientWithConfig(clientCfg),
		cfg:    cfg,
	}
}

// Transcribe converts one finished audio payload into recognized text.
// Network failure, remote rejection, and empty results all fail the call;
// there is no automatic retry.
func (s *Service) Transcribe(ctx context.Context, req *speechmodel.TranscribeRequest) (*speechmodel.TranscribeResponse, error) {
	if len(req.Audio) == 0 {
		return nil, fmt.Errorf("transcription: %w", ErrEmptyTranscript)
	}

	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	format := req.Format
	if format == "" {
		format = "wav"
	}

	resp, err := s.client.CreateTranscription(ctx, openai.AudioRequest{
		Model:    s.cfg.TranscribeModel,
		Reader:   bytes.NewReader(req.Audio),
		FilePath: "audio." + format,
		Language: req.Language,
	})
	if err != nil {
		return nil, fmt.Errorf("transcription request: %w", err)
	}

	text := strings.TrimSpace(resp.Text)
	if text == "" {
		return nil, fmt.Errorf("transcription: %w", ErrEmptyTranscript)
	}

	return &speechmodel.TranscribeResponse{
		SessionID: req.SessionID,
		Text:      text,
		CreatedAt: time.Now().UTC(),
	}, nil
}

// Synthesize converts text into playable audio.
func (s *Service) Synthesize(ctx context.Context, req *speechmodel.SynthesizeRequest) (*speechmodel.SynthesizeResponse, error) {
	if strings.TrimSpace(req.Text) == "" {
		return nil, fmt.Errorf("synthesis: %w", ErrEmptyText)
	}

	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	voice := req.Voice
	if voice == "" {
		voice = s.cfg.Voice
	}
	format := req.Format
	if format == "" {
		format = "mp3"
	}

	raw, err := s.client.CreateSpeech(ctx, openai.CreateSpeechRequest{
		Model:          openai.SpeechModel(s.cfg.SpeechModel),
		Input:          req.Text,
		Voice:          openai.SpeechVoice(voice),
		ResponseFormat: openai.SpeechResponseFormat(format),
	})
	if err != nil {
		return nil, fmt.Errorf("synthesis request: %w", err)
	}
	defer raw.Close()

	audio, err := io.ReadAll(raw)
	if err != nil {
		return nil, fmt.Errorf("read synthesized audio: %w", err)
	}
	if len(audio) == 0 {
		return nil, fmt.Errorf("synthesis returned no audio")
	}

	return &speechmodel.SynthesizeResponse{
		SessionID: req.SessionID,
		Audio:     audio,
		Format:    format,
		CreatedAt: time.Now().UTC(),
	}, nil
}

// TranscribeBuffer is a convenience wrapper over Transcribe for raw bytes.
func (s *Service) TranscribeBuffer(ctx context.Context, sessionID string, audio []byte, format, language string) (*speechmodel.TranscribeResponse, error) {
	return s.Transcribe(ctx, &speechmodel.TranscribeRequest{
		SessionID: sessionID,
		Audio:     audio,
		Format:    format,
		Language:  language,
	})
}

// SynthesizeToBuffer is a convenience wrapper over Synthesize.
func (s *Service) SynthesizeToBuffer(ctx context.Context, sessionID, text, voice, format string) (*speechmodel.SynthesizeResponse, error) {
	return s.Synthesize(ctx, &speechmodel.SynthesizeRequest{
		SessionID: sessionID,
		Text:      text,
		Voice:     voice,
		Format:    format,
	})
}

func (s *Service) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	timeout := time.Duration(s.cfg.Timeout) * time.Second
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return context.WithTimeout(ctx, timeout)
}
