// Package significance estimates which experiment variant is most likely the
// true best performer. Each variant's conversion rate gets a Beta posterior
// from a Beta(1,1) prior, and the winner probability is the Monte Carlo share
// of joint draws in which that variant attains the maximum.
package significance

import (
	"errors"
	"fmt"
	"math"
	"math/rand/v2"

	"storelab/internal/planstore"
)

// DefaultSamples is the Monte Carlo sample count used when the caller
// supplies zero.
const DefaultSamples = 20000

// Recommendation thresholds.
const (
	PromoteThreshold = 0.95
	MinVisitors      = 1000
)

// Recommendation values attached to a computation.
const (
	RecommendPromote     = "promote_winner"
	RecommendCollectMore = "collect_more_data"
	RecommendContinue    = "continue"
)

// ErrInvalidInput flags metrics that cannot parameterize a valid posterior.
var ErrInvalidInput = errors.New("invalid significance input")

// Engine draws posterior samples from an injected random source so tests can
// pin a seed. Production callers use NewRandom; a fresh source per call is
// fine since no state carries across evaluations.
type Engine struct {
	rng *rand.Rand
}

// New returns an Engine backed by the given source.
func New(src rand.Source) *Engine {
	return &Engine{rng: rand.New(src)}
}

// NewSeeded returns a deterministic Engine for reproducible runs.
func NewSeeded(seed uint64) *Engine {
	return New(rand.NewPCG(seed, seed))
}

// NewRandom returns an Engine with a freshly seeded source.
func NewRandom() *Engine {
	return New(rand.NewPCG(rand.Uint64(), rand.Uint64()))
}

// Evaluate computes winner probabilities, posterior mean rates, and relative
// lift versus the first variant in counts. Counts are ordered: the first
// entry is the baseline and ties break toward earlier entries.
func (e *Engine) Evaluate(counts []planstore.VariantCount, samples int) (planstore.BayesResult, error) {
	if samples == 0 {
		samples = DefaultSamples
	}
	if err := validate(counts, samples); err != nil {
		return planstore.BayesResult{}, err
	}

	type posterior struct {
		id   string
		a, b float64
	}
	posteriors := make([]posterior, len(counts))
	for i, c := range counts {
		posteriors[i] = posterior{
			id: c.VariantID,
			a:  1 + float64(c.Conversions),
			b:  1 + float64(c.Visitors-c.Conversions),
		}
	}

	wins := make([]int, len(posteriors))
	for round := 0; round < samples; round++ {
		best := 0
		bestDraw := math.Inf(-1)
		for i, p := range posteriors {
			draw := betaSample(e.rng, p.a, p.b)
			if draw > bestDraw {
				best = i
				bestDraw = draw
			}
		}
		wins[best]++
	}

	result := planstore.BayesResult{
		Probabilities: make(map[string]float64, len(posteriors)),
		MeanRates:     make(map[string]float64, len(posteriors)),
		RelativeLift:  make(map[string]*float64, len(posteriors)),
	}
	for i, p := range posteriors {
		result.Probabilities[p.id] = float64(wins[i]) / float64(samples)
		result.MeanRates[p.id] = p.a / (p.a + p.b)
	}

	baselineRate := result.MeanRates[posteriors[0].id]
	for _, p := range posteriors {
		if baselineRate == 0 {
			result.RelativeLift[p.id] = nil
			continue
		}
		lift := result.MeanRates[p.id]/baselineRate - 1
		result.RelativeLift[p.id] = &lift
	}

	// First-seen wins ties.
	winner := 0
	for i := 1; i < len(posteriors); i++ {
		if wins[i] > wins[winner] {
			winner = i
		}
	}
	result.Winner = posteriors[winner].id
	result.WinnerProbability = result.Probabilities[result.Winner]

	return result, nil
}

// Recommendation maps a computed result plus the raw counts to an action.
func Recommendation(result planstore.BayesResult, counts []planstore.VariantCount) string {
	if result.WinnerProbability >= PromoteThreshold {
		return RecommendPromote
	}
	for _, c := range counts {
		if c.Visitors < MinVisitors {
			return RecommendCollectMore
		}
	}
	return RecommendContinue
}

func validate(counts []planstore.VariantCount, samples int) error {
	if len(counts) == 0 {
		return fmt.Errorf("%w: no variant metrics supplied", ErrInvalidInput)
	}
	if samples < 1 {
		return fmt.Errorf("%w: samples must be >= 1, got %d", ErrInvalidInput, samples)
	}
	seen := make(map[string]struct{}, len(counts))
	for _, c := range counts {
		if c.VariantID == "" {
			return fmt.Errorf("%w: empty variant id", ErrInvalidInput)
		}
		if _, dup := seen[c.VariantID]; dup {
			return fmt.Errorf("%w: duplicate metrics for variant %s", ErrInvalidInput, c.VariantID)
		}
		seen[c.VariantID] = struct{}{}
		if c.Visitors < 0 || c.Conversions < 0 {
			return fmt.Errorf("%w: negative counts for variant %s", ErrInvalidInput, c.VariantID)
		}
		if c.Conversions > c.Visitors {
			return fmt.Errorf("%w: variant %s has conversions (%d) > visitors (%d)",
				ErrInvalidInput, c.VariantID, c.Conversions, c.Visitors)
		}
	}
	return nil
}

// betaSample draws from Beta(a, b) via two gamma draws. Both shapes are
// >= 1 here (validated counts give a = 1+conversions, b = 1+failures), which
// keeps the Marsaglia-Tsang sampler in its simple regime.
func betaSample(r *rand.Rand, a, b float64) float64 {
	x := gammaSample(r, a)
	y := gammaSample(r, b)
	return x / (x + y)
}

// gammaSample draws from Gamma(alpha, 1) for alpha >= 1 using the
// Marsaglia-Tsang squeeze method.
func gammaSample(r *rand.Rand, alpha float64) float64 {
	d := alpha - 1.0/3.0
	c := 1.0 / math.Sqrt(9*d)
	for {
		x := r.NormFloat64()
		v := 1 + c*x
		if v <= 0 {
			continue
		}
		v = v * v * v
		u := r.Float64()
		if u < 1-0.0331*x*x*x*x {
			return d * v
		}
		if math.Log(u) < 0.5*x*x+d*(1-v+math.Log(v)) {
			return d * v
		}
	}
}
