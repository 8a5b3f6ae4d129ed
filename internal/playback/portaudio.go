package playback

import (
	"context"
	"encoding/binary"
	"fmt"

	"github.com/gordonklaus/portaudio"
)

// Speaker plays 16-bit PCM through the default output device. Pair it with
// a synthesis format of "pcm" so no decoder is needed.
type Speaker struct {
	sampleRate int
}

// NewSpeaker initializes PortAudio. The synthesis endpoints emit 24 kHz PCM.
func NewSpeaker(sampleRate int) (*Speaker, error) {
	if sampleRate <= 0 {
		sampleRate = 24000
	}
	if err := portaudio.Initialize(); err != nil {
		return nil, fmt.Errorf("initialize portaudio: %w", err)
	}
	return &Speaker{sampleRate: sampleRate}, nil
}

// Play writes the samples to the output stream and blocks until the audio
// has finished.
func (s *Speaker) Play(ctx context.Context, audio []byte, format string) error {
	if format != "pcm" {
		return fmt.Errorf("unsupported playback format %q", format)
	}

	samples := make([]int16, len(audio)/2)
	for i := range samples {
		samples[i] = int16(binary.LittleEndian.Uint16(audio[i*2:]))
	}

	buffer := make([]int16, 512)
	stream, err := portaudio.OpenDefaultStream(0, 1, float64(s.sampleRate), len(buffer), &buffer)
	if err != nil {
		return fmt.Errorf("open output stream: %w", err)
	}
	defer stream.Close()

	if err := stream.Start(); err != nil {
		return fmt.Errorf("start output stream: %w", err)
	}
	defer stream.Stop()

	for offset := 0; offset < len(samples); offset += len(buffer) {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		n := copy(buffer, samples[offset:])
		for i := n; i < len(buffer); i++ {
			buffer[i] = 0
		}
		if err := stream.Write(); err != nil {
			return fmt.Errorf("write output stream: %w", err)
		}
	}

	return nil
}

// Close releases PortAudio.
func (s *Speaker) Close() error {
	return portaudio.Terminate()
}
