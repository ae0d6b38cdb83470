package main

import "math"

const twoPi = 2 * math.Pi

const defaultFrequency = 440.0

// Synth is the single voice: a sine oscillator shaped by an envelope and
// scaled by a static gain.
type Synth struct {
	frequency     float64
	baseFrequency float64
	gain          float64
	phase         float64
	increment     float64
	sampleRate    uint
	envelope      *envelope
}

func NewSynth(sampleRate uint, params ADSR) *Synth {
	s := &Synth{
		gain:       1,
		sampleRate: sampleRate,
		envelope:   newEnvelope(sampleRate, params),
	}
	s.SetFrequency(defaultFrequency)
	return s
}

func (s *Synth) SetGain(gain float64) {
	switch {
	case gain < 0:
		gain = 0
	case gain > 1:
		gain = 1
	}
	s.gain = gain
}

// SetFrequency sets the note frequency; bends are relative to it.
// Non-positive values are ignored.
func (s *Synth) SetFrequency(hz float64) {
	if !(hz > 0) {
		return
	}
	s.baseFrequency = hz
	s.setOscillator(hz)
}

// PitchBendCents detunes the oscillator relative to the last note.
func (s *Synth) PitchBendCents(cents float64) {
	s.setOscillator(s.baseFrequency * math.Exp2(cents/1200))
}

func (s *Synth) Trigger(msg EnvelopeMessage) {
	s.envelope.Trigger(msg)
}

func (s *Synth) SetEnvelope(params ADSR) {
	s.envelope.SetParams(params)
}

func (s *Synth) Frequency() float64 { return s.frequency }

// Render fills an interleaved buffer of channels samples per frame and
// applies the envelope to it. channels must be positive.
func (s *Synth) Render(channels int, buf []float32) {
	for start := 0; start < len(buf); start += channels {
		end := start + channels
		if end > len(buf) {
			end = len(buf)
		}
		v := float32(math.Sin(s.phase) * s.gain)
		for i := start; i < end; i++ {
			buf[i] = v
		}
		s.advance()
	}
	s.envelope.ApplyInterleaved(channels, buf)
}

func (s *Synth) setOscillator(hz float64) {
	s.frequency = hz
	s.increment = twoPi * hz / float64(s.sampleRate)
}

func (s *Synth) advance() {
	s.phase = math.Mod(s.phase+s.increment, twoPi)
}
