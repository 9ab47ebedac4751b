package fraud

import (
	"sync"
	"testing"
)

func TestPlaceholderScorer_Range(t *testing.T) {
	s := NewPlaceholderScorer(42)
	for i := 0; i < 1000; i++ {
		p := s.Score(nil)
		if p < 0 || p > 1 {
			t.Fatalf("draw %d: probability %f outside [0, 1]", i, p)
		}
	}
}

func TestPlaceholderScorer_SeedReproducible(t *testing.T) {
	a := NewPlaceholderScorer(7)
	b := NewPlaceholderScorer(7)
	for i := 0; i < 100; i++ {
		if pa, pb := a.Score(nil), b.Score(nil); pa != pb {
			t.Fatalf("draw %d diverged: %f vs %f", i, pa, pb)
		}
	}
}

func TestSeedOrClock(t *testing.T) {
	if got := seedOrClock(42); got != 42 {
		t.Errorf("seedOrClock(42) = %d, want 42", got)
	}
	// Zero is the unconfigured sentinel and must resolve to a clock seed.
	if got := seedOrClock(0); got == 0 {
		t.Error("seedOrClock(0) returned the fixed seed 0")
	}
}

func TestPlaceholderScorer_SkewedLow(t *testing.T) {
	// Beta(2, 5) has mean 2/7; a sample mean near 0.5 would indicate the
	// distribution is wrong.
	s := NewPlaceholderScorer(1)
	var sum float64
	const n = 5000
	for i := 0; i < n; i++ {
		sum += s.Score(nil)
	}
	mean := sum / n
	if mean < 0.2 || mean > 0.37 {
		t.Errorf("sample mean %f too far from Beta(2,5) mean 0.286", mean)
	}
}

func TestPlaceholderScorer_ConcurrentUse(t *testing.T) {
	s := NewPlaceholderScorer(3)
	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 500; j++ {
				if p := s.Score(nil); p < 0 || p > 1 {
					t.Errorf("probability %f outside [0, 1]", p)
					return
				}
			}
		}()
	}
	wg.Wait()
}

func TestWeightedScorer_Deterministic(t *testing.T) {
	s := NewWeightedScorer(map[string]float64{FeatureAmount: 0.5, FeatureTimeOfDay: 0.5})
	fv := FeatureVector{FeatureAmount: 1.0, FeatureTimeOfDay: 0.5}

	want := 0.75
	for i := 0; i < 5; i++ {
		if got := s.Score(fv); got != want {
			t.Fatalf("Score = %f, want %f", got, want)
		}
	}
}

func TestWeightedScorer_Clamped(t *testing.T) {
	s := NewWeightedScorer(map[string]float64{FeatureAmount: 5.0})
	if got := s.Score(FeatureVector{FeatureAmount: 1.0}); got != 1.0 {
		t.Errorf("overweighted score = %f, want clamp to 1.0", got)
	}

	s = NewWeightedScorer(map[string]float64{FeatureAmount: -5.0})
	if got := s.Score(FeatureVector{FeatureAmount: 1.0}); got != 0.0 {
		t.Errorf("negative score = %f, want clamp to 0.0", got)
	}
}

func TestWeightedScorer_DefaultWeightsStayInRange(t *testing.T) {
	s := NewWeightedScorer(nil)
	// Static weights sum to 1, so all-ones features score exactly 1.
	fv := FeatureVector{}
	for _, name := range FeatureNames {
		fv[name] = 1.0
	}
	if got := s.Score(fv); got != 1.0 {
		t.Errorf("all-ones score = %f, want 1.0", got)
	}
}
