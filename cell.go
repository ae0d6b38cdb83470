package main

import (
	"runtime"
	"sync"
	"sync/atomic"
)

// synthCell shares one Synth between the audio callback and the control
// side (MIDI, config reload, snapshots). The audio callback has priority:
// while it is waiting for the lock, control updates back off before
// locking. The render side still waits for every control caller that got
// past that check before the flag went up, so its wait is bounded by the
// number of control goroutines (MIDI, reload, snapshot) times one critical
// section.
//
// Control critical sections must stay short: field writes only, no I/O,
// no logging.
type synthCell struct {
	mu            sync.Mutex
	renderPending atomic.Bool
	synth         *Synth
}

func newSynthCell(s *Synth) *synthCell {
	return &synthCell{synth: s}
}

// Render is called from the audio callback. Non-positive channel counts
// render silence.
func (c *synthCell) Render(channels int, buf []float32) {
	if channels <= 0 {
		for i := range buf {
			buf[i] = 0
		}
		return
	}
	c.renderPending.Store(true)
	c.mu.Lock()
	c.renderPending.Store(false)
	c.synth.Render(channels, buf)
	c.mu.Unlock()
}

// Update runs f with exclusive access to the synth. Everything f does is
// seen by the next Render as one unit.
func (c *synthCell) Update(f func(s *Synth)) {
	for c.renderPending.Load() {
		runtime.Gosched()
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	f(c.synth)
}

type synthSnapshot struct {
	Frequency     float64
	BaseFrequency float64
	Gain          float64
	Stage         envelopeStage
	Velocity      float64
	Level         float64
}

// Snapshot returns a consistent copy of the control-visible state.
func (c *synthCell) Snapshot() synthSnapshot {
	var snap synthSnapshot
	c.Update(func(s *Synth) {
		snap = synthSnapshot{
			Frequency:     s.frequency,
			BaseFrequency: s.baseFrequency,
			Gain:          s.gain,
			Stage:         s.envelope.stage,
			Velocity:      s.envelope.velocity,
			Level:         s.envelope.prev,
		}
	})
	return snap
}
