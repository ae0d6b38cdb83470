package main

import (
	"fmt"

	"github.com/gordonklaus/portaudio"
)

type portAudioOutput struct {
	params   portaudio.StreamParameters
	stream   *portaudio.Stream
	channels int
}

// openPortAudio initializes portaudio and picks the default output device.
// Close terminates portaudio again.
func openPortAudio() (*portAudioOutput, error) {
	err := portaudio.Initialize()
	if err != nil {
		return nil, fmt.Errorf("can't init portaudio: %w", err)
	}
	dev, err := portaudio.DefaultOutputDevice()
	if err != nil || dev == nil || dev.MaxOutputChannels < 1 {
		// ignore Terminate error
		portaudio.Terminate()
		return nil, fmt.Errorf("no default output device (%v): %w", err, ErrDeviceUnavailable)
	}
	channels := dev.MaxOutputChannels
	if channels > maxOutputChannels {
		channels = maxOutputChannels
	}
	params := portaudio.LowLatencyParameters(nil, dev)
	params.Output.Channels = channels
	params.FramesPerBuffer = portaudio.FramesPerBufferUnspecified
	logger.Info("audio output", "backend", backendPortAudio, "device", dev.Name,
		"sampleRate", params.SampleRate, "channels", channels)
	return &portAudioOutput{params: params, channels: channels}, nil
}

func (o *portAudioOutput) SampleRate() uint { return uint(o.params.SampleRate) }
func (o *portAudioOutput) Channels() int    { return o.channels }

func (o *portAudioOutput) Start(render func(out []float32)) error {
	stream, err := portaudio.OpenStream(o.params, render)
	if err != nil {
		return fmt.Errorf("can't open stream: %w", err)
	}
	o.stream = stream
	err = stream.Start()
	if err != nil {
		return fmt.Errorf("can't start stream: %w", err)
	}
	return nil
}

// Close stops the stream, so no callback runs after it returns.
func (o *portAudioOutput) Close() error {
	var err error
	if o.stream != nil {
		if stopErr := o.stream.Stop(); stopErr != nil {
			err = fmt.Errorf("can't stop stream: %w", stopErr)
		}
		// ignore Close error
		o.stream.Close()
		o.stream = nil
	}
	// ignore Terminate error
	portaudio.Terminate()
	return err
}
