package main

import "sync"

// dispatcher turns decoded MIDI messages into synth updates. It runs on
// the MIDI driver's goroutine.
type dispatcher struct {
	cell *synthCell

	sync.Mutex
	bendRangeCents  float64
	channel         int
	noteOnZeroIsOff bool
}

func newDispatcher(cell *synthCell, c StaticConfig, d DynamicConfig) *dispatcher {
	return &dispatcher{
		cell:            cell,
		bendRangeCents:  d.PitchBendCents,
		channel:         c.MidiChannel,
		noteOnZeroIsOff: c.NoteOnZeroIsOff,
	}
}

func (d *dispatcher) setBendRange(cents float64) {
	d.Lock()
	defer d.Unlock()
	d.bendRangeCents = cents
}

// handleRaw decodes and dispatches one raw message. Unrecognized messages
// are logged and dropped.
func (d *dispatcher) handleRaw(raw []byte) {
	msg, err := decodeMessage(raw)
	if err != nil {
		// real-time bytes (clock, active sensing) arrive many times a second
		if len(raw) > 0 && raw[0] >= 0xf8 {
			logger.Debug("dropping midi message", "raw", raw, "err", err)
			return
		}
		logger.Warn("dropping midi message", "raw", raw, "err", err)
		return
	}
	d.handle(msg)
}

func (d *dispatcher) handle(msg midiMessage) {
	d.Lock()
	bendRange := d.bendRangeCents
	channel := d.channel
	zeroIsOff := d.noteOnZeroIsOff
	d.Unlock()

	// config channels are 1-based, wire channels 0-based
	if channel != 0 && int(msg.Channel) != channel-1 {
		return
	}

	switch msg.Kind {
	case kindNoteOn:
		if zeroIsOff && msg.Velocity() == 0 {
			d.noteOff(msg)
			return
		}
		hz := noteToHz(msg.Note())
		velocity := noteToGain(msg.Velocity())
		d.cell.Update(func(s *Synth) {
			s.SetFrequency(hz)
			s.Trigger(envelopeOn(velocity))
		})
		logger.Debug("note on", "note", msg.Note(), "hz", hz, "velocity", velocity)
	case kindNoteOff:
		d.noteOff(msg)
	case kindPitchBend:
		cents := bendToCents(msg.Bend, bendRange)
		d.cell.Update(func(s *Synth) {
			s.PitchBendCents(cents)
		})
		logger.Debug("pitch bend", "value", msg.Bend, "cents", cents)
	default:
		logger.Debug("ignoring midi message", "kind", msg.Kind.String(), "msg", msg.String())
	}
}

func (d *dispatcher) noteOff(msg midiMessage) {
	d.cell.Update(func(s *Synth) {
		s.Trigger(envelopeOff)
	})
	logger.Debug("note off", "note", msg.Note())
}
