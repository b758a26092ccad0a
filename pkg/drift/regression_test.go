package drift

import (
	"testing"
	"time"

	"github.com/rsionnach/nthlayer/pkg/drift/aggregates"
	"github.com/stretchr/testify/assert"
)

func linearSeries(start time.Time, points int, step time.Duration, initial float64, slopePerSecond float64) []aggregates.TimeSeriesPoint {
	series := make([]aggregates.TimeSeriesPoint, 0, points)
	for i := 0; i < points; i++ {
		elapsed := time.Duration(i) * step
		series = append(series, aggregates.TimeSeriesPoint{
			Timestamp: start.Add(elapsed),
			Value:     initial + slopePerSecond*elapsed.Seconds(),
		})
	}
	return series
}

func TestFitSeriesPerfectLine(t *testing.T) {
	start := time.Date(2026, 8, 1, 0, 0, 0, 0, time.UTC)
	slope := -0.2 / (30 * 86400)
	series := linearSeries(start, 720, time.Hour, 0.9, slope)

	fitted := fitSeries(series)
	assert.InDelta(t, slope, fitted.SlopePerSecond, 1e-12)
	assert.InDelta(t, 0.9, fitted.Intercept, 1e-9)
	assert.InDelta(t, 1.0, fitted.RSquared, 1e-9)
}

func TestFitSeriesFlat(t *testing.T) {
	start := time.Date(2026, 8, 1, 0, 0, 0, 0, time.UTC)
	series := linearSeries(start, 720, time.Hour, 0.8, 0)

	fitted := fitSeries(series)
	assert.Zero(t, fitted.SlopePerSecond)
	assert.InDelta(t, 0.8, fitted.Intercept, 1e-9)
	assert.InDelta(t, 1.0, fitted.RSquared, 1e-9)
	assert.Zero(t, fitted.Variance)
}

func TestFitSeriesNoisy(t *testing.T) {
	start := time.Date(2026, 8, 1, 0, 0, 0, 0, time.UTC)
	series := []aggregates.TimeSeriesPoint{}
	// Alternating values around a flat mean: the line explains nothing.
	for i := 0; i < 100; i++ {
		value := 0.78
		if i%2 == 0 {
			value = 0.82
		}
		series = append(series, aggregates.TimeSeriesPoint{
			Timestamp: start.Add(time.Duration(i) * time.Hour),
			Value:     value,
		})
	}
	fitted := fitSeries(series)
	assert.Less(t, fitted.RSquared, 0.1)
	assert.Greater(t, fitted.Variance, 0.0001)
}

func TestFitSeriesTooFewPoints(t *testing.T) {
	fitted := fitSeries([]aggregates.TimeSeriesPoint{{Timestamp: time.Now(), Value: 0.5}})
	assert.Zero(t, fitted.SlopePerSecond)
	assert.Zero(t, fitted.RSquared)
}
