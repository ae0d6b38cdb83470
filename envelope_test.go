package main

import (
	"math"
	"testing"
)

const testRate = 48000

func fastADSR() ADSR {
	return ADSR{AttackMs: 10, DecayMs: 10, Sustain: 0.5, ReleaseMs: 10}
}

// runUntil advances env until it leaves stage, failing after limit samples.
func runUntil(t *testing.T, env *envelope, stage envelopeStage, limit int) {
	t.Helper()
	for i := 0; i < limit; i++ {
		if env.Stage() != stage {
			return
		}
		env.next()
	}
	t.Fatalf("envelope still in %s after %d samples", stage, limit)
}

func TestEnvelopeIdleAtRest(t *testing.T) {
	env := newEnvelope(testRate, defaultADSR())
	for i := 0; i < 1000; i++ {
		if v := env.next(); v != 0 {
			t.Fatalf("sample %d: expected 0, was %v", i, v)
		}
	}

	env.Trigger(envelopeOn(1))
	runUntil(t, env, stageAttack, testRate*10)
	env.Trigger(envelopeOff)
	runUntil(t, env, stageRelease, testRate*10)
	for i := 0; i < 1000; i++ {
		if v := env.next(); v != 0 {
			t.Fatalf("after release sample %d: expected 0, was %v", i, v)
		}
	}
}

func TestEnvelopeAttackMonotonic(t *testing.T) {
	env := newEnvelope(testRate, fastADSR())
	env.Trigger(envelopeOn(0.8))
	prev := env.Level()
	for i := 0; env.Stage() == stageAttack; i++ {
		if i > testRate {
			t.Fatalf("attack did not finish")
		}
		v := env.next()
		if v < prev {
			t.Fatalf("sample %d: attack went down from %v to %v", i, prev, v)
		}
		if v > 0.8 {
			t.Fatalf("sample %d: attack overshot velocity: %v", i, v)
		}
		prev = v
	}
	if env.Stage() != stageDecay || env.Level() != 0.8 {
		t.Fatalf("expected decay at 0.8, was %s at %v", env.Stage(), env.Level())
	}
}

func TestEnvelopeDecayHoldsSustain(t *testing.T) {
	env := newEnvelope(testRate, fastADSR())
	env.Trigger(envelopeOn(0.8))
	runUntil(t, env, stageAttack, testRate)
	runUntil(t, env, stageDecay, testRate)
	if env.Stage() != stageRest {
		t.Fatalf("expected rest, was %s", env.Stage())
	}
	for i := 0; i < 100; i++ {
		if v := env.next(); v != 0.4 {
			t.Fatalf("expected sustain 0.4, was %v", v)
		}
	}
}

func TestEnvelopeReleaseMonotonic(t *testing.T) {
	env := newEnvelope(testRate, fastADSR())
	env.Trigger(envelopeOn(1))
	// release in the middle of the attack
	for i := 0; i < 100; i++ {
		env.next()
	}
	env.Trigger(envelopeOff)
	prev := env.Level()
	for i := 0; env.Stage() == stageRelease; i++ {
		if i > testRate {
			t.Fatalf("release did not finish")
		}
		v := env.next()
		if v > prev {
			t.Fatalf("sample %d: release went up from %v to %v", i, prev, v)
		}
		if v < 0 {
			t.Fatalf("sample %d: release undershot zero: %v", i, v)
		}
		prev = v
	}
	if env.Level() != 0 {
		t.Fatalf("expected 0 after release, was %v", env.Level())
	}
}

func TestEnvelopeRetriggerContinuity(t *testing.T) {
	env := newEnvelope(testRate, defaultADSR())
	env.Trigger(envelopeOn(1))
	for i := 0; i < testRate/2; i++ {
		env.next()
	}
	env.Trigger(envelopeOff)
	for i := 0; i < testRate/4; i++ {
		env.next()
	}
	if env.Stage() != stageRelease {
		t.Fatalf("expected to be mid release, was %s", env.Stage())
	}

	// one attack step moves by (1-c)*diff and diff is at most 1
	bound := 1 - env.factors[0]
	prev := env.Level()
	env.Trigger(envelopeOn(1))
	for i := 0; i < testRate; i++ {
		v := env.next()
		if d := math.Abs(v - prev); d > bound+1e-12 {
			t.Fatalf("sample %d: jump of %v exceeds step bound %v", i, d, bound)
		}
		prev = v
	}
}

func TestEnvelopeRetriggerSofter(t *testing.T) {
	env := newEnvelope(testRate, fastADSR())
	env.Trigger(envelopeOn(1))
	runUntil(t, env, stageAttack, testRate)

	env.Trigger(envelopeOn(0.2))
	prev := env.Level()
	for env.Stage() == stageAttack {
		v := env.next()
		if v > prev || v < 0.2 {
			t.Fatalf("expected descent towards 0.2, went from %v to %v", prev, v)
		}
		prev = v
	}
	if env.Level() != 0.2 {
		t.Fatalf("expected to settle on 0.2, was %v", env.Level())
	}
}

func TestEnvelopeZeroTimeStages(t *testing.T) {
	env := newEnvelope(testRate, ADSR{Sustain: 0.5})
	if env.factors != [3]float64{0, 0, 0} {
		t.Fatalf("expected zero coefficients, was %v", env.factors)
	}
	env.Trigger(envelopeOn(1))
	if v := env.next(); v != 1 {
		t.Fatalf("expected instant attack, was %v", v)
	}
	env.next() // attack -> decay
	if v := env.next(); v != 0.5 {
		t.Fatalf("expected instant decay, was %v", v)
	}
	env.Trigger(envelopeOff)
	if v := env.next(); v != 0 {
		t.Fatalf("expected instant release, was %v", v)
	}
}

func TestEnvelopeSetParams(t *testing.T) {
	env := newEnvelope(testRate, defaultADSR())
	slow := env.factors
	env.SetParams(fastADSR())
	if env.factors[0] >= slow[0] {
		t.Fatalf("expected faster attack coefficient, was %v (before %v)", env.factors[0], slow[0])
	}
	if env.factors[1] >= 0 || env.factors[2] >= 0 {
		t.Fatalf("expected negative decay and release coefficients, was %v", env.factors)
	}
}

func TestEnvelopeApplyMatchesGenerate(t *testing.T) {
	gen := newEnvelope(testRate, fastADSR())
	apply := newEnvelope(testRate, fastADSR())
	gen.Trigger(envelopeOn(0.9))
	apply.Trigger(envelopeOn(0.9))

	values := make([]float32, 256)
	stereo := make([]float32, 2*len(values))
	for i := range stereo {
		stereo[i] = 1
	}
	gen.Generate(values)
	apply.ApplyStereo(stereo)
	for i, v := range values {
		if stereo[2*i] != v || stereo[2*i+1] != v {
			t.Fatalf("frame %d: expected %v on both channels, was %v %v", i, v, stereo[2*i], stereo[2*i+1])
		}
	}
	if gen.Level() != apply.Level() {
		t.Fatalf("expected envelopes in step, was %v and %v", gen.Level(), apply.Level())
	}
}

func TestEnvelopeApplyInterleaved(t *testing.T) {
	gen := newEnvelope(testRate, fastADSR())
	apply := newEnvelope(testRate, fastADSR())
	gen.Trigger(envelopeOn(1))
	apply.Trigger(envelopeOn(1))

	const channels = 3
	values := make([]float32, 64)
	buf := make([]float32, channels*len(values))
	for i := range buf {
		buf[i] = 2
	}
	gen.Generate(values)
	apply.ApplyInterleaved(channels, buf)
	for i, v := range values {
		for ch := 0; ch < channels; ch++ {
			if buf[i*channels+ch] != 2*v {
				t.Fatalf("frame %d channel %d: expected %v, was %v", i, ch, 2*v, buf[i*channels+ch])
			}
		}
	}
}

func TestEnvelopeStageNames(t *testing.T) {
	for _, tc := range []struct {
		stage envelopeStage
		want  string
	}{
		{stageRest, "rest"},
		{stageAttack, "attack"},
		{stageDecay, "decay"},
		{stageRelease, "release"},
		{envelopeStage(42), "unknown"},
		{envelopeStage(-1), "unknown"},
	} {
		if got := tc.stage.String(); got != tc.want {
			t.Fatalf("expected %q, was %q", tc.want, got)
		}
	}
}
