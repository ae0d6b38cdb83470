package main

import (
	"fmt"
	"sync"
	"sync/atomic"
	"time"
	"unsafe"

	"github.com/ebitengine/oto/v3"
)

const otoBufferSize = 20 * time.Millisecond

const bytesPerSample = 4

// otoOutput pulls samples through io.Reader. Read runs on oto's audio
// goroutine and renders straight into a preallocated float buffer.
type otoOutput struct {
	ctx        *oto.Context
	mu         sync.Mutex // guards player
	player     *oto.Player
	sampleRate uint
	channels   int
	render     atomic.Pointer[func(out []float32)]
	samples    []float32
}

func openOto(sampleRate uint, channels int) (*otoOutput, error) {
	ctx, ready, err := oto.NewContext(&oto.NewContextOptions{
		SampleRate:   int(sampleRate),
		ChannelCount: channels,
		Format:       oto.FormatFloat32LE,
		BufferSize:   otoBufferSize,
	})
	if err != nil {
		return nil, fmt.Errorf("can't create oto context (%v): %w", err, ErrDeviceUnavailable)
	}
	<-ready
	logger.Info("audio output", "backend", backendOto, "sampleRate", sampleRate, "channels", channels)
	return &otoOutput{
		ctx:        ctx,
		sampleRate: sampleRate,
		channels:   channels,
		// plenty for otoBufferSize at any common rate
		samples:    make([]float32, 1<<14),
	}, nil
}

func (o *otoOutput) SampleRate() uint { return o.sampleRate }
func (o *otoOutput) Channels() int    { return o.channels }

func (o *otoOutput) Start(render func(out []float32)) error {
	o.render.Store(&render)
	o.mu.Lock()
	defer o.mu.Unlock()
	o.player = o.ctx.NewPlayer(o)
	o.player.Play()
	if err := o.player.Err(); err != nil {
		return fmt.Errorf("can't start player: %w", err)
	}
	return nil
}

// Read implements io.Reader for the oto player.
func (o *otoOutput) Read(p []byte) (int, error) {
	frameBytes := o.channels * bytesPerSample
	n := len(p) / frameBytes * frameBytes
	if limit := len(o.samples) * bytesPerSample; n > limit {
		n = limit / frameBytes * frameBytes
	}
	if n == 0 {
		return 0, nil
	}
	samples := o.samples[:n/bytesPerSample]
	render := o.render.Load()
	if render == nil {
		for i := range samples {
			samples[i] = 0
		}
	} else {
		(*render)(samples)
	}
	copy(p, unsafe.Slice((*byte)(unsafe.Pointer(&samples[0])), n))
	return n, nil
}

// Err reports a player failure, e.g. the device went away.
func (o *otoOutput) Err() error {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.player == nil {
		return nil
	}
	return o.player.Err()
}

func (o *otoOutput) Close() error {
	o.render.Store(nil)
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.player == nil {
		return nil
	}
	o.player.Pause()
	err := o.player.Close()
	o.player = nil
	if err != nil {
		return fmt.Errorf("can't close player: %w", err)
	}
	return nil
}
