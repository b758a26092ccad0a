package correlation

import (
	"math"
	"time"
)

// Tunable scoring constants. The direct-correlation weights favour the shape
// of the burn-rate spike over its raw size.
const (
	// proximityDecayMinutes is the e-folding distance of the proximity score.
	proximityDecayMinutes = 30.0
	// magnitudeCapMinutes is the burn where the magnitude score saturates.
	magnitudeCapMinutes = 10.0
	// referenceAfterRate scales the after-window burn rate when there is no
	// pre-deployment baseline, in budget fraction per minute.
	referenceAfterRate = 0.05
	// burnRateBase and burnRateLogWeight shape the spike score: an unchanged
	// rate scores burnRateBase, each 10x of spike adds burnRateLogWeight.
	burnRateBase      = 0.4
	burnRateLogWeight = 0.4

	burnRateWeight  = 0.6
	magnitudeWeight = 0.4

	// Cross-service attribution weights.
	directWeight     = 0.5
	proximityWeight  = 0.2
	dependencyWeight = 0.2
	historyWeight    = 0.1

	// Dependency relationship scores.
	dependencySelf       = 1.0
	dependencyDirect     = 1.0
	dependencyTransitive = 0.4
	dependencyDeclared   = 0.6
)

// ProximityScore decays exponentially with the distance between two
// instants: 1.0 at zero distance, 1/e at 30 minutes apart.
func ProximityScore(t1, t2 time.Time) float64 {
	minutes := math.Abs(t1.Sub(t2).Minutes())
	return math.Exp(-minutes / proximityDecayMinutes)
}

// MagnitudeScore scales burned budget-minutes linearly, saturating at
// magnitudeCapMinutes.
func MagnitudeScore(burnMinutes float64) float64 {
	if burnMinutes <= 0 {
		return 0
	}
	return math.Min(burnMinutes/magnitudeCapMinutes, 1)
}

// BurnRateScore scores the shape of the before-to-after burn-rate change. A
// tenfold spike scores at least 0.8, an unchanged rate under 0.5. Without a
// baseline the after rate is scaled against a fixed reference rate.
func BurnRateScore(beforeRate, afterRate float64) float64 {
	if afterRate <= 0 {
		return 0
	}
	if beforeRate <= 0 {
		return clamp(afterRate/referenceAfterRate, 0, 1)
	}
	ratio := afterRate / beforeRate
	return clamp(burnRateBase+burnRateLogWeight*math.Log10(ratio), 0, 1)
}

// directConfidence combines the spike and magnitude scores into the direct
// correlation confidence.
func directConfidence(burnRateScore, magnitudeScore float64) float64 {
	return clamp(burnRateWeight*burnRateScore+magnitudeWeight*magnitudeScore, 0, 1)
}

// crossServiceConfidence composes the direct verdict with the proximity,
// dependency and history signals for blast-radius attribution.
func crossServiceConfidence(direct, proximity, dependency, history float64) float64 {
	return clamp(directWeight*direct+proximityWeight*proximity+dependencyWeight*dependency+historyWeight*history, 0, 1)
}

func clamp(value, low, high float64) float64 {
	if value < low {
		return low
	}
	if value > high {
		return high
	}
	return value
}
