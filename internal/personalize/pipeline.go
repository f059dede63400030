package personalize

import (
	"time"

	"github.com/Adithya-Monish-Kumar-K/retrieval-cascade/internal/topk"
)

// Weights are the configured fractions §4.5 scales each boost category by.
// Location is a documented exception: it always uses a fixed 0.1 rather
// than Context.
type Weights struct {
	UserProfile float64
	Context     float64
	Temporal    float64
}

// DefaultWeights returns the spec's defaults (0.3 / 0.2 / 0.1).
func DefaultWeights() Weights {
	return Weights{UserProfile: 0.3, Context: 0.2, Temporal: 0.1}
}

const locationWeight = 0.1

// Result is one Stage-4 output: the Stage-3 input plus its three boost
// fractions and the personalized final score.
type Result struct {
	Input
	FinalScore            float64
	PersonalizationBoost  float64
	ContextBoost          float64
	TemporalBoost         float64
}

// Personalizer is Stage-4 of the cascade: it holds the user-profile store
// and the configured boost weights.
type Personalizer struct {
	store   *Store
	weights Weights
}

// New creates a Personalizer with the given profile store and weights.
func New(store *Store, weights Weights) *Personalizer {
	return &Personalizer{store: store, weights: weights}
}

// Store returns the underlying profile store, for recordBehavior and
// updateUserProfile entry points.
func (p *Personalizer) Store() *Store { return p.store }

// Personalize applies the user-profile (if userID is non-empty), contextual
// (if ctx is non-nil), and temporal (always) boosts to inputs, in that
// order, re-sorts by final score descending, and truncates to
// maxFinalResults.
func (p *Personalizer) Personalize(inputs []Input, userID string, ctx *Context, now time.Time, maxFinalResults int) ([]Result, float64) {
	results := make([]Result, len(inputs))
	for i, in := range inputs {
		results[i] = Result{Input: in, FinalScore: in.Score}
	}

	var profile Profile
	hasProfile := false
	if userID != "" {
		profile, hasProfile = p.store.Get(userID)
	}

	if hasProfile {
		for i := range results {
			b := userProfileBoost(results[i].Input, profile)
			results[i].PersonalizationBoost = b
			results[i].FinalScore = applyBoost(results[i].FinalScore, b, p.weights.UserProfile)
		}
	}

	if ctx != nil {
		for i := range results {
			loc := locationBoost(results[i].Input, *ctx)
			rest := contextualBoost(results[i].Input, *ctx)
			results[i].ContextBoost = loc + rest
			results[i].FinalScore = applyBoost(results[i].FinalScore, loc, locationWeight)
			results[i].FinalScore = applyBoost(results[i].FinalScore, rest, p.weights.Context)
		}
	}

	for i := range results {
		b := temporalBoost(results[i].Input, now)
		results[i].TemporalBoost = b
		results[i].FinalScore = applyBoost(results[i].FinalScore, b, p.weights.Temporal)
	}

	ranked := topk.Select(results, maxFinalResults,
		func(r Result) float64 { return r.FinalScore },
		func(a, b Result) bool { return a.ID < b.ID },
	)

	score := p.weights.Temporal
	if userID != "" {
		score += p.weights.UserProfile
	}
	if ctx != nil {
		score += p.weights.Context
	}
	if score > 1.0 {
		score = 1.0
	}

	return ranked, score
}

func applyBoost(score, boost, weight float64) float64 {
	return score + score*boost*weight
}
