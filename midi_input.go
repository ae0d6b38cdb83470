package main

import (
	"errors"
	"fmt"
	"sync"

	"gitlab.com/gomidi/midi/v2"
	"gitlab.com/gomidi/midi/v2/drivers"
)

var (
	ErrDeviceUnavailable     = errors.New("device unavailable")
	ErrConnectionAlreadyOpen = errors.New("a midi connection is already open")
)

type midiPort struct {
	Index int
	Name  string
}

// midiInput hands out a single connection to one of the driver's input
// ports. Once connected, it can't connect again.
type midiInput struct {
	sync.Mutex
	drv  drivers.Driver
	ins  []drivers.In
	used bool
}

func newMidiInput(drv drivers.Driver) (*midiInput, error) {
	ins, err := drv.Ins()
	if err != nil {
		return nil, fmt.Errorf("can't list midi inputs: %w", err)
	}
	return &midiInput{drv: drv, ins: ins}, nil
}

func (m *midiInput) Ports() []midiPort {
	ports := make([]midiPort, len(m.ins))
	for i, in := range m.ins {
		ports[i] = midiPort{Index: i, Name: in.String()}
	}
	return ports
}

func (m *midiInput) Connect(index int) (*midiConnection, error) {
	m.Lock()
	defer m.Unlock()

	if m.used {
		return nil, ErrConnectionAlreadyOpen
	}
	if index < 0 || index >= len(m.ins) {
		return nil, fmt.Errorf("midi input %d of %d: %w", index, len(m.ins), ErrDeviceUnavailable)
	}
	in := m.ins[index]
	if err := in.Open(); err != nil {
		return nil, fmt.Errorf("can't open midi input %s: %w", in.String(), err)
	}
	m.used = true
	return &midiConnection{in: in}, nil
}

// Close closes the driver and with it every port.
func (m *midiInput) Close() error {
	return m.drv.Close()
}

type midiConnection struct {
	sync.Mutex
	in   drivers.In
	stop func()
}

func (c *midiConnection) Name() string { return c.in.String() }

// Listen delivers every incoming message to onMessage on the driver's
// goroutine. Listener errors (e.g. the device went away) go to onError.
func (c *midiConnection) Listen(onMessage func(raw []byte), onError func(err error)) error {
	c.Lock()
	defer c.Unlock()

	if c.stop != nil {
		return ErrConnectionAlreadyOpen
	}
	stop, err := midi.ListenTo(c.in, func(msg midi.Message, _ int32) {
		onMessage(msg.Bytes())
	}, midi.HandleError(onError))
	if err != nil {
		return fmt.Errorf("can't listen on %s: %w", c.in.String(), err)
	}
	c.stop = stop
	return nil
}

func (c *midiConnection) Close() error {
	c.Lock()
	defer c.Unlock()

	if c.stop != nil {
		c.stop()
		c.stop = nil
	}
	return c.in.Close()
}
