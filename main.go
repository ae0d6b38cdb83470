package main

import (
	"flag"
	"fmt"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"gitlab.com/gomidi/midi/v2/drivers/rtmididrv"
)

const errPollInterval = 500 * time.Millisecond

// applyDynamic pushes the reloadable part of the config into the running
// synth and dispatcher.
func applyDynamic(cell *synthCell, d *dispatcher, c DynamicConfig) {
	cell.Update(func(s *Synth) {
		s.SetGain(c.Gain)
		s.SetEnvelope(c.Envelope)
	})
	d.setBendRange(c.PitchBendCents)
}

type errorSource interface {
	Err() error
}

// reportErrors logs runtime errors until done is closed.
func reportErrors(errors <-chan error, done <-chan struct{}) {
	for {
		select {
		case err := <-errors:
			logger.Error("runtime error", "err", err)
		case <-done:
			return
		}
	}
}

// watchConfig starts the config watcher. A failing watcher only disables
// reloading, so it is logged right away instead of going through errors.
func watchConfig(path string, configs chan<- *Config, errors chan<- error, done <-chan struct{}) bool {
	if err := Watch(path, configs, errors, done); err != nil {
		logger.Error("config reload disabled", "path", path, "err", err)
		return false
	}
	return true
}

// pollErrors checks e every interval and reports the first error. The
// returned func blocks until the poller has stopped, which happens once
// done is closed or an error was reported.
func pollErrors(e errorSource, interval time.Duration, report func(error), done <-chan struct{}) func() {
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				if err := e.Err(); err != nil {
					report(err)
					return
				}
			case <-done:
				return
			}
		}
	}()
	return wg.Wait
}

func fatal(msg string, err error) {
	logger.Error(msg, "err", err)
	os.Exit(1)
}

func main() {
	configFile := flag.String("config", "", "Path to config, created with defaults if not found.")
	backend := flag.String("backend", "", "Audio backend (portaudio, oto), overrides the config.")
	port := flag.Int("port", -1, "MIDI input port index, overrides the config.")
	list := flag.Bool("list", false, "List MIDI input ports and exit.")
	debug := flag.Bool("debug", false, "Enable debug logging.")
	flag.Parse()

	initLogger(*debug)

	drv, err := rtmididrv.New()
	if err != nil {
		fatal("can't init midi driver", err)
	}
	midiIn, err := newMidiInput(drv)
	if err != nil {
		fatal("can't open midi input", err)
	}
	if *list {
		for _, p := range midiIn.Ports() {
			fmt.Printf("%d: %s\n", p.Index, p.Name)
		}
		// ignore Close error
		midiIn.Close()
		return
	}

	if *configFile == "" {
		fmt.Fprintf(os.Stderr, "Usage of %s:\n", os.Args[0])
		flag.PrintDefaults()
		return
	}
	config, err := ReadConfig(*configFile)
	if err != nil {
		fatal(fmt.Sprintf("can't read config %s", *configFile), err)
	}
	if *backend != "" {
		config.Backend = *backend
	}
	if *port >= 0 {
		config.MidiPort = *port
	}
	if err := config.Validate(); err != nil {
		fatal("invalid config", err)
	}

	signals := make(chan os.Signal, 1)
	signal.Notify(signals, syscall.SIGINT, syscall.SIGTERM)

	out, err := openOutput(config.StaticConfig)
	if err != nil {
		fatal("can't open audio output", err)
	}
	synth := NewSynth(out.SampleRate(), config.Envelope)
	synth.SetGain(config.Gain)
	cell := newSynthCell(synth)
	channels := out.Channels()
	err = out.Start(func(buf []float32) {
		cell.Render(channels, buf)
	})
	if err != nil {
		fatal("can't start audio output", err)
	}

	for _, p := range midiIn.Ports() {
		logger.Info("midi input available", "index", p.Index, "name", p.Name)
	}
	conn, err := midiIn.Connect(config.MidiPort)
	if err != nil {
		// ignore Close error
		out.Close()
		fatal("can't connect midi input", err)
	}
	logger.Info("midi input selected", "index", config.MidiPort, "name", conn.Name())

	done := make(chan struct{})
	errors := make(chan error)
	report := func(err error) {
		select {
		case errors <- err:
		case <-done:
		}
	}

	// report errors to stderr, started before anything can report
	go reportErrors(errors, done)

	d := newDispatcher(cell, config.StaticConfig, config.DynamicConfig)
	err = conn.Listen(d.handleRaw, func(err error) {
		report(fmt.Errorf("midi input: %w", err))
	})
	if err != nil {
		// ignore Close error
		out.Close()
		fatal("can't listen for midi", err)
	}

	configs := make(chan *Config)
	if config.WatchConfig {
		watchConfig(*configFile, configs, errors, done)
	}

	// some backends only report stream failures when asked
	waitPoller := func() {}
	if e, ok := out.(errorSource); ok {
		waitPoller = pollErrors(e, errPollInterval, func(err error) {
			report(fmt.Errorf("audio output: %w", err))
		}, done)
	}

	logger.Info("running", "sampleRate", out.SampleRate(), "channels", channels, "backend", config.Backend)

	for {
		select {
		// handle config changes
		case c := <-configs:
			applyDynamic(cell, d, c.DynamicConfig)
			snap := cell.Snapshot()
			logger.Info("config reloaded", "gain", snap.Gain, "envelope", fmt.Sprintf("%+v", c.Envelope),
				"pitchBendCents", c.PitchBendCents)
		// block until SIGINT | SIGTERM
		case <-signals:
			logger.Info("exiting")
			close(done)
			waitPoller()
			// the stream goes first so no callback runs against a torn down synth
			if err := out.Close(); err != nil {
				logger.Error("can't stop audio output", "err", err)
			}
			if err := conn.Close(); err != nil {
				logger.Error("can't close midi connection", "err", err)
			}
			// ignore Close error
			midiIn.Close()
			return
		}
	}
}
