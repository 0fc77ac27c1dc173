package memory

import (
	"math"
	"time"
)

// DecayParams tunes the weighted-score formula. The qualitative contract is
// that important and frequently accessed memories decay slower; the exact
// constants are tunable.
type DecayParams struct {
	// BaseHalfLife is the half-life of an importance-0, never-accessed entry.
	BaseHalfLife time.Duration
	// ImportanceFactor stretches the half-life per importance point.
	ImportanceFactor float64
	// AccessFactor stretches the half-life per recorded access.
	AccessFactor float64
	// RecencyWindow and RecencyBoost give recently accessed entries a
	// multiplicative bonus.
	RecencyWindow time.Duration
	RecencyBoost  float64
}

// DefaultDecayParams returns the standard tuning.
func DefaultDecayParams() DecayParams {
	return DecayParams{
		BaseHalfLife:     7 * 24 * time.Hour,
		ImportanceFactor: 0.1,
		AccessFactor:     0.05,
		RecencyWindow:    24 * time.Hour,
		RecencyBoost:     1.2,
	}
}

// halfLife compounds importance and access count into the entry's half-life.
func (p DecayParams) halfLife(e Entry) time.Duration {
	factor := 1 + p.ImportanceFactor*e.Importance + p.AccessFactor*float64(e.AccessCount)
	return time.Duration(float64(p.BaseHalfLife) * factor)
}

// WeightedScore computes importance × exponential decay × recency bonus.
func (p DecayParams) WeightedScore(e Entry, now time.Time) float64 {
	age := now.Sub(e.CreatedAt)
	if age < 0 {
		age = 0
	}
	hl := p.halfLife(e)
	decay := math.Exp2(-float64(age) / float64(hl))

	recency := 1.0
	if !e.LastAccess.IsZero() && now.Sub(e.LastAccess) <= p.RecencyWindow {
		recency = p.RecencyBoost
	}
	return e.Importance * decay * recency
}
