package main

import "fmt"

// the envelope apply step is written for stereo; more channels are
// folded down to this
const maxOutputChannels = 2

// outputDevice is an opened, not yet started audio output. render is
// called from the driver's audio thread with an interleaved buffer of
// Channels() samples per frame.
type outputDevice interface {
	SampleRate() uint
	Channels() int
	Start(render func(out []float32)) error
	Close() error
}

func openOutput(c StaticConfig) (outputDevice, error) {
	switch c.Backend {
	case backendPortAudio:
		return openPortAudio()
	case backendOto:
		return openOto(c.SampleRate, maxOutputChannels)
	}
	return nil, fmt.Errorf("unknown backend: %q", c.Backend)
}
