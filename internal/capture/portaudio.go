package capture

import (
	"context"
	"fmt"

	"github.com/gordonklaus/portaudio"
)

// Device captures audio from the default input device through PortAudio.
type Device struct {
	stream *portaudio.Stream
}

// NewDevice initializes PortAudio and returns an input device.
func NewDevice() (*Device, error) {
	if err := portaudio.Initialize(); err != nil {
		return nil, fmt.Errorf("initialize portaudio: %w", err)
	}
	return &Device{}, nil
}

// Start opens the default input stream and feeds sample frames into out
// until the context is cancelled. Opening or starting the stream can fail
// when the device is busy or permission is denied.
func (d *Device) Start(ctx context.Context, sampleRate int, out chan<- []float32) error {
	device, err := portaudio.DefaultInputDevice()
	if err != nil {
		return fmt.Errorf("default input device: %w", err)
	}

	buffer := make([]float32, 512)
	stream, err := portaudio.OpenStream(portaudio.StreamParameters{
		Input: portaudio.StreamDeviceParameters{
			Device:   device,
			Channels: 1,
			Latency:  device.DefaultLowInputLatency,
		},
		SampleRate:      float64(sampleRate),
		FramesPerBuffer: len(buffer),
	}, buffer)
	if err != nil {
		return fmt.Errorf("open input stream: %w", err)
	}

	if err := stream.Start(); err != nil {
		stream.Close()
		return fmt.Errorf("start input stream: %w", err)
	}

	d.stream = stream

	go func() {
		defer stream.Close()
		for {
			select {
			case <-ctx.Done():
				return
			default:
				if err := stream.Read(); err != nil {
					return
				}
				samples := make([]float32, len(buffer))
				copy(samples, buffer)

				select {
				case out <- samples:
				case <-ctx.Done():
					return
				default:
					// Drop if the collector is behind.
				}
			}
		}
	}()

	return nil
}

// Stop stops the input stream.
func (d *Device) Stop() error {
	if d.stream != nil {
		return d.stream.Stop()
	}
	return nil
}

// Close releases PortAudio.
func (d *Device) Close() error {
	if d.stream != nil {
		d.stream.Close()
	}
	return portaudio.Terminate()
}
