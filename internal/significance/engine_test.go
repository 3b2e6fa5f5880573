package significance

import (
	"errors"
	"math"
	"testing"

	"storelab/internal/planstore"
)

func TestIdenticalVariantsSplitEvenly(t *testing.T) {
	engine := NewSeeded(7)
	counts := []planstore.VariantCount{
		{VariantID: "a", Visitors: 5000, Conversions: 500},
		{VariantID: "b", Visitors: 5000, Conversions: 500},
	}
	result, err := engine.Evaluate(counts, 50000)
	if err != nil {
		t.Fatalf("evaluate: %v", err)
	}
	for _, id := range []string{"a", "b"} {
		p := result.Probabilities[id]
		if math.Abs(p-0.5) > 0.05 {
			t.Fatalf("probability[%s] = %v, want within 0.05 of 0.5", id, p)
		}
	}
	if sum := result.Probabilities["a"] + result.Probabilities["b"]; math.Abs(sum-1) > 1e-9 {
		t.Fatalf("probabilities sum to %v, want 1", sum)
	}
}

func TestDominantVariantWinsAndPromotes(t *testing.T) {
	engine := NewSeeded(11)
	counts := []planstore.VariantCount{
		{VariantID: "control", Visitors: 0, Conversions: 0},
		{VariantID: "challenger", Visitors: 1000, Conversions: 900},
	}
	result, err := engine.Evaluate(counts, 20000)
	if err != nil {
		t.Fatalf("evaluate: %v", err)
	}
	if result.Winner != "challenger" {
		t.Fatalf("winner = %s, want challenger", result.Winner)
	}
	if result.WinnerProbability < 0.95 {
		t.Fatalf("winner probability = %v, want >= 0.95", result.WinnerProbability)
	}
	if got := Recommendation(result, counts); got != RecommendPromote {
		t.Fatalf("recommendation = %s, want %s", got, RecommendPromote)
	}

	// Uninformative posterior has mean 0.5; the challenger sits near 0.9.
	if rate := result.MeanRates["control"]; rate != 0.5 {
		t.Fatalf("control mean rate = %v, want 0.5", rate)
	}
	challenger := result.MeanRates["challenger"]
	if challenger < 0.89 || challenger > 0.91 {
		t.Fatalf("challenger mean rate = %v, want ~0.9", challenger)
	}
}

func TestSmallSampleRecommendsMoreData(t *testing.T) {
	engine := NewSeeded(3)
	counts := []planstore.VariantCount{
		{VariantID: "a", Visitors: 500, Conversions: 50},
		{VariantID: "b", Visitors: 500, Conversions: 55},
	}
	result, err := engine.Evaluate(counts, 20000)
	if err != nil {
		t.Fatalf("evaluate: %v", err)
	}
	if result.WinnerProbability >= 0.95 {
		t.Fatalf("winner probability = %v, expected an inconclusive result", result.WinnerProbability)
	}
	if got := Recommendation(result, counts); got != RecommendCollectMore {
		t.Fatalf("recommendation = %s, want %s", got, RecommendCollectMore)
	}
}

func TestLargeInconclusiveSampleRecommendsContinue(t *testing.T) {
	engine := NewSeeded(5)
	counts := []planstore.VariantCount{
		{VariantID: "a", Visitors: 100000, Conversions: 10000},
		{VariantID: "b", Visitors: 100000, Conversions: 10030},
	}
	result, err := engine.Evaluate(counts, 20000)
	if err != nil {
		t.Fatalf("evaluate: %v", err)
	}
	if result.WinnerProbability >= 0.95 {
		t.Fatalf("winner probability = %v, expected an inconclusive result", result.WinnerProbability)
	}
	if got := Recommendation(result, counts); got != RecommendContinue {
		t.Fatalf("recommendation = %s, want %s", got, RecommendContinue)
	}
}

func TestRelativeLiftAgainstFirstVariant(t *testing.T) {
	engine := NewSeeded(13)
	counts := []planstore.VariantCount{
		{VariantID: "base", Visitors: 1000, Conversions: 100},
		{VariantID: "up", Visitors: 1000, Conversions: 200},
	}
	result, err := engine.Evaluate(counts, 1000)
	if err != nil {
		t.Fatalf("evaluate: %v", err)
	}
	baseLift := result.RelativeLift["base"]
	if baseLift == nil || *baseLift != 0 {
		t.Fatalf("baseline lift = %v, want 0", baseLift)
	}
	upLift := result.RelativeLift["up"]
	if upLift == nil || *upLift <= 0.9 || *upLift >= 1.1 {
		t.Fatalf("up lift = %v, want ~1.0", upLift)
	}
}

func TestSingleVariantWinsOutright(t *testing.T) {
	engine := NewSeeded(1)
	counts := []planstore.VariantCount{
		{VariantID: "only", Visitors: 10, Conversions: 0},
	}
	result, err := engine.Evaluate(counts, 100)
	if err != nil {
		t.Fatalf("evaluate: %v", err)
	}
	if result.MeanRates["only"] == 0 {
		t.Fatal("prior should keep the mean rate positive")
	}
	if result.Winner != "only" || result.WinnerProbability != 1 {
		t.Fatalf("single variant must win outright, got %s p=%v", result.Winner, result.WinnerProbability)
	}
}

func TestTieBreaksTowardFirstSeen(t *testing.T) {
	engine := NewSeeded(2)
	counts := []planstore.VariantCount{
		{VariantID: "first", Visitors: 10, Conversions: 5},
		{VariantID: "second", Visitors: 10, Conversions: 5},
	}
	// samples=2 either ties 1-1 or goes 2-0; a tie must resolve to "first".
	result, err := engine.Evaluate(counts, 2)
	if err != nil {
		t.Fatalf("evaluate: %v", err)
	}
	if result.Probabilities["first"] == result.Probabilities["second"] && result.Winner != "first" {
		t.Fatalf("tied result picked %s, want first", result.Winner)
	}
}

func TestInvalidInputs(t *testing.T) {
	engine := NewSeeded(1)
	cases := map[string]struct {
		counts  []planstore.VariantCount
		samples int
	}{
		"empty":              {counts: nil, samples: 100},
		"negative visitors":  {counts: []planstore.VariantCount{{VariantID: "a", Visitors: -1}}, samples: 100},
		"conversions exceed": {counts: []planstore.VariantCount{{VariantID: "a", Visitors: 10, Conversions: 11}}, samples: 100},
		"duplicate ids": {counts: []planstore.VariantCount{
			{VariantID: "a", Visitors: 10, Conversions: 1},
			{VariantID: "a", Visitors: 10, Conversions: 2},
		}, samples: 100},
		"bad samples": {counts: []planstore.VariantCount{{VariantID: "a", Visitors: 10}}, samples: -5},
		"empty id":    {counts: []planstore.VariantCount{{VariantID: "", Visitors: 10}}, samples: 100},
	}
	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := engine.Evaluate(tc.counts, tc.samples)
			if !errors.Is(err, ErrInvalidInput) {
				t.Fatalf("err = %v, want ErrInvalidInput", err)
			}
		})
	}
}

func TestSeededEngineIsReproducible(t *testing.T) {
	counts := []planstore.VariantCount{
		{VariantID: "a", Visitors: 2000, Conversions: 220},
		{VariantID: "b", Visitors: 2000, Conversions: 260},
	}
	first, err := NewSeeded(42).Evaluate(counts, 5000)
	if err != nil {
		t.Fatalf("evaluate: %v", err)
	}
	second, err := NewSeeded(42).Evaluate(counts, 5000)
	if err != nil {
		t.Fatalf("evaluate: %v", err)
	}
	if first.Probabilities["a"] != second.Probabilities["a"] {
		t.Fatalf("same seed diverged: %v vs %v", first.Probabilities["a"], second.Probabilities["a"])
	}
}

func TestDefaultSamplesApplied(t *testing.T) {
	engine := NewSeeded(9)
	counts := []planstore.VariantCount{{VariantID: "a", Visitors: 10, Conversions: 1}}
	result, err := engine.Evaluate(counts, 0)
	if err != nil {
		t.Fatalf("evaluate: %v", err)
	}
	if result.WinnerProbability != 1 {
		t.Fatalf("single variant probability = %v, want 1", result.WinnerProbability)
	}
}
