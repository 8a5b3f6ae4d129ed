package capture

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"

	speechmodel "github.com/skillup-labs/skillup/backend/internal/model/speech"
)

// Microphone provides exclusive access to one audio input device.
type Microphone interface {
	// Start acquires the device and streams float32 sample frames into out
	// until the context is cancelled.
	Start(ctx context.Context, sampleRate int, out chan<- []float32) error
	// Stop releases the device.
	Stop() error
}

// Transcriber converts a finished audio payload into recognized text.
type Transcriber interface {
	Transcribe(ctx context.Context, req *speechmodel.TranscribeRequest) (*speechmodel.TranscribeResponse, error)
}

// Config wires a Controller's collaborators.
type Config struct {
	Microphone  Microphone
	Transcriber Transcriber
	SampleRate  int
	Timeout     time.Duration
	// OnText receives the recognized text as the pending composed message.
	OnText func(text string)
	// OnError receives capture and transcription failures. The pending
	// message is left unchanged on failure.
	OnError func(err error)
	Logger  zerolog.Logger
}

// Controller owns the microphone and the recording state machine:
// idle -> (Start) -> recording -> (Stop) -> idle, with transcription
// dispatched on the stop transition. Start while recording and Stop while
// idle are no-ops.
type Controller struct {
	mic     Microphone
	stt     Transcriber
	rate    int
	timeout time.Duration
	onText  func(string)
	onError func(error)
	log     zerolog.Logger

	mu        sync.Mutex
	recording bool
	cancel    context.CancelFunc
	done      chan struct{}
	chunks    [][]float32
}

// NewController builds an idle controller.
func NewController(cfg Config) *Controller {
	rate := cfg.SampleRate
	if rate <= 0 {
		rate = 16000
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &Controller{
		mic:     cfg.Microphone,
		stt:     cfg.Transcriber,
		rate:    rate,
		timeout: timeout,
		onText:  cfg.OnText,
		onError: cfg.OnError,
		log:     cfg.Logger,
	}
}

// Start acquires the microphone and begins buffering audio. Acquisition
// failure leaves the controller idle; a Start while already recording is a
// no-op.
func (c *Controller) Start() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.recording {
		return nil
	}

	ctx, cancel := context.WithCancel(context.Background())
	out := make(chan []float32, 8)

	if err := c.mic.Start(ctx, c.rate, out); err != nil {
		cancel()
		err = fmt.Errorf("acquire microphone: %w", err)
		if c.onError != nil {
			c.onError(err)
		}
		return err
	}

	c.recording = true
	c.chunks = nil
	c.cancel = cancel
	c.done = make(chan struct{})

	go c.collect(ctx, out, c.done)

	c.log.Info().Int("rate", c.rate).Msg("recording started")
	return nil
}

func (c *Controller) collect(ctx context.Context, out <-chan []float32, done chan struct{}) {
	defer close(done)
	for {
		select {
		case <-ctx.Done():
			// Frames already buffered belong to the recording; drain them
			// before finalization reads the chunks.
			for {
				select {
				case samples := <-out:
					c.buffer(samples)
				default:
					return
				}
			}
		case samples := <-out:
			c.buffer(samples)
		}
	}
}

func (c *Controller) buffer(samples []float32) {
	if len(samples) == 0 {
		return
	}
	c.mu.Lock()
	c.chunks = append(c.chunks, samples)
	c.mu.Unlock()
}

// Stop finalizes the buffered audio into a single payload, releases the
// device unconditionally, and dispatches transcription without blocking on
// the result. Stop while idle is a no-op and dispatches nothing.
func (c *Controller) Stop() {
	c.mu.Lock()
	if !c.recording {
		c.mu.Unlock()
		return
	}
	c.recording = false
	cancel := c.cancel
	done := c.done
	c.cancel = nil
	c.done = nil
	c.mu.Unlock()

	cancel()
	// The device is released before finalization so a bad payload can never
	// leave the microphone held.
	if err := c.mic.Stop(); err != nil {
		c.log.Warn().Err(err).Msg("microphone release failed")
	}
	<-done

	c.mu.Lock()
	chunks := c.chunks
	c.chunks = nil
	c.mu.Unlock()

	payload := encodeWAV(chunks, c.rate)
	if payload == nil {
		c.log.Info().Msg("recording stopped with no audio")
		return
	}

	c.log.Info().Int("bytes", len(payload)).Msg("recording stopped, dispatching transcription")
	go c.dispatch(payload)
}

// Recording reports whether the controller currently holds the microphone.
func (c *Controller) Recording() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.recording
}

func (c *Controller) dispatch(payload []byte) {
	ctx, cancel := context.WithTimeout(context.Background(), c.timeout)
	defer cancel()

	resp, err := c.stt.Transcribe(ctx, &speechmodel.TranscribeRequest{
		Audio:  payload,
		Format: "wav",
	})
	if err != nil {
		c.log.Error().Err(err).Msg("transcription failed")
		if c.onError != nil {
			c.onError(err)
		}
		return
	}

	c.log.Info().Str("text", resp.Text).Msg("transcription complete")
	if c.onText != nil {
		c.onText(resp.Text)
	}
}
