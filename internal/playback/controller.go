package playback

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/rs/zerolog"

	speechmodel "github.com/skillup-labs/skillup/backend/internal/model/speech"
)

// ErrSpeaking rejects a Speak while an utterance is already playing. At most
// one synthesized utterance plays at a time; a second request is rejected,
// not queued.
var ErrSpeaking = errors.New("playback already in progress")

// Synthesizer turns text into playable audio.
type Synthesizer interface {
	Synthesize(ctx context.Context, req *speechmodel.SynthesizeRequest) (*speechmodel.SynthesizeResponse, error)
}

// Player owns audio-output exclusivity. Play blocks until the audio has
// finished.
type Player interface {
	Play(ctx context.Context, audio []byte, format string) error
}

// Config wires a Controller's collaborators.
type Config struct {
	Synthesizer Synthesizer
	Player      Player
	Voice       string
	Format      string
	Logger      zerolog.Logger
}

// Controller owns the speech-synthesis/playback state machine:
// idle -> (Speak) -> speaking -> (playback finished) -> idle. Natural end of
// audio is the only transition back to idle.
type Controller struct {
	synth  Synthesizer
	player Player
	voice  string
	format string
	log    zerolog.Logger

	mu       sync.Mutex
	speaking bool
	done     chan struct{}
}

// NewController builds an idle controller.
func NewController(cfg Config) *Controller {
	format := cfg.Format
	if format == "" {
		format = "mp3"
	}
	return &Controller{
		synth:  cfg.Synthesizer,
		player: cfg.Player,
		voice:  cfg.Voice,
		format: format,
		log:    cfg.Logger,
	}
}

// Speak synthesizes the text and plays it. A call while already speaking
// returns ErrSpeaking without starting a second audio stream. Synthesis
// failure returns the controller to idle without attempting playback.
// Playback itself runs asynchronously; Wait blocks until it finishes.
func (c *Controller) Speak(ctx context.Context, sessionID, text string) error {
	c.mu.Lock()
	if c.speaking {
		c.mu.Unlock()
		return ErrSpeaking
	}
	c.speaking = true
	done := make(chan struct{})
	c.done = done
	c.mu.Unlock()

	resp, err := c.synth.Synthesize(ctx, &speechmodel.SynthesizeRequest{
		SessionID: sessionID,
		Text:      text,
		Voice:     c.voice,
		Format:    c.format,
	})
	if err != nil {
		c.finish(done)
		return fmt.Errorf("synthesis: %w", err)
	}

	go func() {
		defer c.finish(done)
		if err := c.player.Play(ctx, resp.Audio, resp.Format); err != nil {
			c.log.Error().Err(err).Str("session", sessionID).Msg("playback failed")
		}
	}()

	return nil
}

func (c *Controller) finish(done chan struct{}) {
	c.mu.Lock()
	c.speaking = false
	if c.done == done {
		c.done = nil
	}
	c.mu.Unlock()
	close(done)
}

// Speaking reports whether an utterance is currently playing.
func (c *Controller) Speaking() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.speaking
}

// Wait blocks until the in-flight utterance, if any, has finished.
func (c *Controller) Wait() {
	c.mu.Lock()
	done := c.done
	c.mu.Unlock()
	if done != nil {
		<-done
	}
}
