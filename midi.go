package main

import (
	"errors"
	"fmt"
	"math"
)

var ErrUnrecognizedMidiMessage = errors.New("unrecognized midi message")

type midiKind uint8

const (
	kindNoteOff         midiKind = 0x8
	kindNoteOn          midiKind = 0x9
	kindPolyPressure    midiKind = 0xA
	kindControlChange   midiKind = 0xB
	kindProgramChange   midiKind = 0xC
	kindChannelPressure midiKind = 0xD
	kindPitchBend       midiKind = 0xE
)

var midiKindNames = map[midiKind]string{
	kindNoteOff:         "NoteOff",
	kindNoteOn:          "NoteOn",
	kindPolyPressure:    "PolyPressure",
	kindControlChange:   "ControlChange",
	kindProgramChange:   "ProgramChange",
	kindChannelPressure: "ChannelPressure",
	kindPitchBend:       "PitchBend",
}

func (k midiKind) String() string {
	if name, ok := midiKindNames[k]; ok {
		return name
	}
	return fmt.Sprintf("midiKind(%#x)", uint8(k))
}

// length of a message of this kind including the status byte
func (k midiKind) size() int {
	switch k {
	case kindProgramChange, kindChannelPressure:
		return 2
	}
	return 3
}

const bendCenter = 8192

// midiMessage is a decoded channel voice message. Data1 and Data2 are the
// raw data bytes; Bend is the 14-bit pitch bend value for PitchBend.
type midiMessage struct {
	Kind    midiKind
	Channel uint8
	Data1   uint8
	Data2   uint8
	Bend    uint16
}

func (m midiMessage) Note() uint8     { return m.Data1 }
func (m midiMessage) Velocity() uint8 { return m.Data2 }

func (m midiMessage) String() string {
	switch m.Kind {
	case kindNoteOn, kindNoteOff:
		return fmt.Sprintf("%s(channel=%d, note=%d, velocity=%d)", m.Kind, m.Channel, m.Data1, m.Data2)
	case kindPitchBend:
		return fmt.Sprintf("%s(channel=%d, value=%d)", m.Kind, m.Channel, m.Bend)
	case kindProgramChange, kindChannelPressure:
		return fmt.Sprintf("%s(channel=%d, %d)", m.Kind, m.Channel, m.Data1)
	}
	return fmt.Sprintf("%s(channel=%d, %d, %d)", m.Kind, m.Channel, m.Data1, m.Data2)
}

func decodeMessage(raw []byte) (midiMessage, error) {
	if len(raw) == 0 {
		return midiMessage{}, fmt.Errorf("empty message: %w", ErrUnrecognizedMidiMessage)
	}
	kind := midiKind(raw[0] >> 4)
	if _, ok := midiKindNames[kind]; !ok {
		return midiMessage{}, fmt.Errorf("status %#02x: %w", raw[0], ErrUnrecognizedMidiMessage)
	}
	if len(raw) < kind.size() {
		return midiMessage{}, fmt.Errorf("%s with %d bytes: %w", kind, len(raw), ErrUnrecognizedMidiMessage)
	}
	msg := midiMessage{
		Kind:    kind,
		Channel: raw[0] & 0x0f,
		Data1:   raw[1] & 0x7f,
	}
	if kind.size() == 3 {
		msg.Data2 = raw[2] & 0x7f
	}
	if kind == kindPitchBend {
		msg.Bend = uint16(msg.Data2)<<7 | uint16(msg.Data1)
	}
	return msg, nil
}

func noteToHz(note uint8) float64 {
	return 440 * math.Exp2((float64(note)-69)/12)
}

// noteToGain maps velocity logarithmically onto -70dB..0dB.
func noteToGain(velocity uint8) float64 {
	db := float64(velocity)/127*70 - 70
	return math.Pow(10, db/20)
}

// bendToCents maps a 14-bit bend value onto [-rangeCents, rangeCents] with
// 8192 as zero. The two halves are scaled separately so that both ends
// reach the full range.
func bendToCents(value uint16, rangeCents float64) float64 {
	if value > 16383 {
		value = 16383
	}
	offset := float64(value) - bendCenter
	if offset >= 0 {
		return offset / (16383 - bendCenter) * rangeCents
	}
	return offset / bendCenter * rangeCents
}
