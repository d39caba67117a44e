// Package affect models the engine's coarse emotional state and the trace
// retention factors it drives.
package affect

import "math/rand"

// #region emotion

// Emotion names one of the ten coarse affective states.
type Emotion string

const (
	EmotionConfident   Emotion = "confident"
	EmotionExcited     Emotion = "excited"
	EmotionDetermined  Emotion = "determined"
	EmotionNeutral     Emotion = "neutral"
	EmotionCurious     Emotion = "curious"
	EmotionSkeptical   Emotion = "skeptical"
	EmotionUnconfident Emotion = "unconfident"
	EmotionDoubtful    Emotion = "doubtful"
	EmotionAnxious     Emotion = "anxious"
	EmotionFrustrated  Emotion = "frustrated"
)

// retentionFactors weight trace retention per emotion. At or above 1 nothing
// fades; the low end makes anxious and frustrated states forgetful.
var retentionFactors = map[Emotion]float64{
	EmotionExcited:     1.2,
	EmotionConfident:   1.1,
	EmotionDetermined:  1.05,
	EmotionCurious:     1.0,
	EmotionNeutral:     0.95,
	EmotionSkeptical:   0.85,
	EmotionUnconfident: 0.75,
	EmotionDoubtful:    0.7,
	EmotionFrustrated:  0.65,
	EmotionAnxious:     0.6,
}

// Candidate pools per outcome. Curious is the boot state only; no pool
// contains it, so it is never re-entered.
var (
	successPool = []Emotion{EmotionConfident, EmotionExcited, EmotionDetermined, EmotionNeutral}
	failurePool = []Emotion{EmotionFrustrated, EmotionAnxious, EmotionDoubtful, EmotionSkeptical, EmotionUnconfident}
)

// #endregion emotion

// #region state

// State tracks the current and previous emotion plus meta-confidence, the
// slow-moving self-assessment in [0,2].
type State struct {
	current  Emotion
	previous Emotion
	meta     float64
	rng      *rand.Rand
}

// NewState returns the boot state: curious, with neutral history and
// meta-confidence 1.
func NewState(rng *rand.Rand) *State {
	return &State{current: EmotionCurious, previous: EmotionNeutral, meta: 1.0, rng: rng}
}

// RestoreState rebuilds a persisted affective state. Unknown emotions and
// out-of-range meta values fall back to boot defaults.
func RestoreState(current, previous Emotion, meta float64, rng *rand.Rand) *State {
	s := NewState(rng)
	if _, ok := retentionFactors[current]; ok {
		s.current = current
	}
	if _, ok := retentionFactors[previous]; ok {
		s.previous = previous
	}
	if meta >= 0 && meta <= 2 {
		s.meta = meta
	}
	return s
}

// Current returns the current emotion.
func (s *State) Current() Emotion { return s.current }

// Previous returns the emotion before the last shift.
func (s *State) Previous() Emotion { return s.previous }

// MetaConfidence returns the self-assessment in [0,2].
func (s *State) MetaConfidence() float64 { return s.meta }

// RetentionFactor returns the trace retention weight of the current emotion.
func (s *State) RetentionFactor() float64 { return retentionFactors[s.current] }

// #endregion state

// #region update

// Update draws the next emotion uniformly from the outcome's candidate pool
// and nudges meta-confidence: every outcome decays it by 10%, success adds
// 0.05 back, failure takes 0.05 more, clamped to [0,2]. The previous emotion
// shifts only when the draw actually changes the current one.
func (s *State) Update(success bool) {
	pool := failurePool
	if success {
		pool = successPool
	}
	next := pool[s.rng.Intn(len(pool))]
	if next != s.current {
		s.previous = s.current
		s.current = next
	}
	if success {
		s.meta = s.meta*0.9 + 0.05
	} else {
		s.meta = s.meta*0.9 - 0.05
	}
	if s.meta < 0 {
		s.meta = 0
	} else if s.meta > 2 {
		s.meta = 2
	}
}

// #endregion update
