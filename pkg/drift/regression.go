package drift

import (
	"github.com/rsionnach/nthlayer/pkg/drift/aggregates"
)

// fit is an ordinary least squares fit of budget fraction against elapsed
// seconds since the first point.
type fit struct {
	SlopePerSecond float64
	Intercept      float64
	RSquared       float64
	Variance       float64
}

func fitSeries(points []aggregates.TimeSeriesPoint) fit {
	n := float64(len(points))
	if len(points) < 2 {
		return fit{}
	}
	origin := points[0].Timestamp
	var sumX, sumY, sumXX, sumXY float64
	for _, point := range points {
		x := point.Timestamp.Sub(origin).Seconds()
		y := point.Value
		sumX += x
		sumY += y
		sumXX += x * x
		sumXY += x * y
	}
	meanX := sumX / n
	meanY := sumY / n
	denominator := sumXX - n*meanX*meanX
	result := fit{Intercept: meanY}
	if denominator != 0 {
		result.SlopePerSecond = (sumXY - n*meanX*meanY) / denominator
		result.Intercept = meanY - result.SlopePerSecond*meanX
	}

	var ssTotal, ssResidual, ssVariance float64
	for _, point := range points {
		x := point.Timestamp.Sub(origin).Seconds()
		predicted := result.Intercept + result.SlopePerSecond*x
		ssTotal += (point.Value - meanY) * (point.Value - meanY)
		ssResidual += (point.Value - predicted) * (point.Value - predicted)
		ssVariance += (point.Value - meanY) * (point.Value - meanY)
	}
	if ssTotal != 0 {
		result.RSquared = 1 - ssResidual/ssTotal
	} else {
		// A perfectly flat series is perfectly explained by a flat line.
		result.RSquared = 1
	}
	result.Variance = ssVariance / (n - 1)
	return result
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
