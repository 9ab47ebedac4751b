package fraud

import (
	"math"
	"math/rand"
	"sync"
	"time"
)

func timeSeed() int64 { return time.Now().UnixNano() }

// seedOrClock resolves a configured seed. Zero means "not configured" and
// falls back to the clock so restarts do not replay the same stream.
func seedOrClock(seed int64) int64 {
	if seed == 0 {
		return timeSeed()
	}
	return seed
}

// Scorer maps a feature vector to a fraud probability in [0, 1]. Scorers must
// be total (never fail) so batch runs cannot stall on scoring, and callers
// may swap in a calibrated model without touching the engine.
type Scorer interface {
	Score(features FeatureVector) float64
}

// PlaceholderScorer samples fraud probabilities from a Beta(2, 5)
// distribution, skewed toward low risk. It is a stand-in for a trained
// model and makes no statistical claim about actual fraud likelihood.
type PlaceholderScorer struct {
	mu  sync.Mutex
	rng *rand.Rand
}

// NewPlaceholderScorer creates a placeholder scorer. A non-zero seed gives
// reproducible runs; zero seeds from the clock.
func NewPlaceholderScorer(seed int64) *PlaceholderScorer {
	return &PlaceholderScorer{rng: rand.New(rand.NewSource(seedOrClock(seed)))}
}

// Score draws one Beta(2, 5) sample. Safe for concurrent use.
func (s *PlaceholderScorer) Score(_ FeatureVector) float64 {
	s.mu.Lock()
	defer s.mu.Unlock()

	// Beta(a, b) = Ga / (Ga + Gb) with integer-shape gammas built from
	// exponential draws.
	ga := s.gammaInt(2)
	gb := s.gammaInt(5)
	if ga+gb == 0 {
		return 0
	}
	return ga / (ga + gb)
}

func (s *PlaceholderScorer) gammaInt(shape int) float64 {
	var sum float64
	for i := 0; i < shape; i++ {
		u := s.rng.Float64()
		for u == 0 {
			u = s.rng.Float64()
		}
		sum += -math.Log(u)
	}
	return sum
}

// WeightedScorer is a deterministic linear scorer: the weighted sum of
// feature values, clamped to [0, 1]. Used where reproducible assertions
// matter and as the simplest real-model substitute.
type WeightedScorer struct {
	weights map[string]float64
}

// NewWeightedScorer creates a scorer with the given per-feature weights.
// Nil weights fall back to the static explanation weights, which sum to 1,
// so the unclamped score stays inside [0, 1] for normalized features.
func NewWeightedScorer(weights map[string]float64) *WeightedScorer {
	if weights == nil {
		weights = StaticWeights()
	}
	return &WeightedScorer{weights: weights}
}

func (s *WeightedScorer) Score(features FeatureVector) float64 {
	var sum float64
	for name, value := range features {
		sum += s.weights[name] * value
	}
	return clamp01(sum)
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
