package main

import "math"

const (
	// attack is considered done once within this distance of the velocity
	attackTolerance = 0.001
	// distances below this snap to the target
	snapTolerance = 0.0001
	// stage times below this are instantaneous
	minStageMs = 0.001
)

// ADSR holds the four envelope parameters. Times are in milliseconds,
// Sustain is a gain relative to the note velocity.
type ADSR struct {
	AttackMs  float64 `json:"attackMs"`
	DecayMs   float64 `json:"decayMs"`
	Sustain   float64 `json:"sustain"`
	ReleaseMs float64 `json:"releaseMs"`
}

func defaultADSR() ADSR {
	return ADSR{
		AttackMs:  1000,
		DecayMs:   100,
		Sustain:   0.75,
		ReleaseMs: 1000,
	}
}

type envelopeStage int

const (
	stageRest envelopeStage = iota
	stageAttack
	stageDecay
	stageRelease
)

var stageNames = [...]string{
	stageRest:    "rest",
	stageAttack:  "attack",
	stageDecay:   "decay",
	stageRelease: "release",
}

func (s envelopeStage) String() string {
	if s < 0 || int(s) >= len(stageNames) {
		return "unknown"
	}
	return stageNames[s]
}

// EnvelopeMessage is either an On (with velocity) or an Off.
type EnvelopeMessage struct {
	On       bool
	Velocity float64
}

func envelopeOn(velocity float64) EnvelopeMessage {
	return EnvelopeMessage{On: true, Velocity: velocity}
}

var envelopeOff = EnvelopeMessage{}

// envelope is a logarithmic ADSR with smooth retrigger: every stage
// starts from the last emitted value, so state changes never jump.
type envelope struct {
	params    ADSR
	factors   [3]float64
	stage     envelopeStage
	velocity  float64
	prev      float64
	expFactor float64
}

func newEnvelope(sampleRate uint, params ADSR) *envelope {
	env := &envelope{
		params:    params,
		expFactor: -2 * math.Pi * 1000 / float64(sampleRate),
	}
	env.updateFactors()
	return env
}

// Trigger starts the attack (On) or the release (Off) from wherever the
// envelope currently is.
func (env *envelope) Trigger(msg EnvelopeMessage) {
	if msg.On {
		env.stage = stageAttack
		env.velocity = msg.Velocity
		return
	}
	env.stage = stageRelease
}

func (env *envelope) SetParams(params ADSR) {
	env.params = params
	env.updateFactors()
}

func (env *envelope) Stage() envelopeStage { return env.stage }

// Level is the last emitted envelope value.
func (env *envelope) Level() float64 { return env.prev }

// Generate overwrites buf with envelope values. Call it once per output
// vector; every call advances the envelope by len(buf) samples.
func (env *envelope) Generate(buf []float32) {
	for i := range buf {
		buf[i] = float32(env.next())
	}
}

// ApplyStereo multiplies an interleaved stereo buffer by the envelope,
// one envelope sample per frame. A trailing odd sample gets its own step.
func (env *envelope) ApplyStereo(buf []float32) {
	i := 0
	for ; i+1 < len(buf); i += 2 {
		g := float32(env.next())
		buf[i] *= g
		buf[i+1] *= g
	}
	if i < len(buf) {
		buf[i] *= float32(env.next())
	}
}

// ApplyInterleaved is ApplyStereo for any channel count.
func (env *envelope) ApplyInterleaved(channels int, buf []float32) {
	if channels == 2 {
		env.ApplyStereo(buf)
		return
	}
	for start := 0; start < len(buf); start += channels {
		end := start + channels
		if end > len(buf) {
			end = len(buf)
		}
		g := float32(env.next())
		for i := start; i < end; i++ {
			buf[i] *= g
		}
	}
}

func (env *envelope) updateFactors() {
	env.factors = [3]float64{
		env.coefficient(env.params.AttackMs),   // up
		-env.coefficient(env.params.DecayMs),   // down
		-env.coefficient(env.params.ReleaseMs), // down
	}
}

func (env *envelope) coefficient(timeMs float64) float64 {
	if timeMs < minStageMs {
		return 0
	}
	return math.Exp(env.expFactor / timeMs)
}

func (env *envelope) next() float64 {
	var factor, target float64
	switch env.stage {
	case stageAttack:
		target = env.velocity
		switch {
		case env.prev > env.velocity+attackTolerance:
			// retriggered with a softer note, come down to it
			factor = -env.factors[0]
		case env.prev >= env.velocity:
			env.stage = stageDecay
			env.prev = env.velocity
			factor = 1
		default:
			factor = env.factors[0]
		}
	case stageDecay:
		target = env.params.Sustain * env.velocity
		if env.prev <= target {
			env.stage = stageRest
			env.prev = target
			factor = 1
		} else {
			factor = env.factors[1]
		}
	case stageRelease:
		target = 0
		if env.prev <= 0 {
			env.stage = stageRest
			env.prev = 0
			factor = 1
		} else {
			factor = env.factors[2]
		}
	default:
		return env.prev
	}

	diff := math.Abs(env.prev - target)
	if diff < snapTolerance {
		diff = 0
	}
	env.prev = target + factor*-diff
	return env.prev
}
