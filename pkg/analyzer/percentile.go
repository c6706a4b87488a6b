package analyzer

import "math"

// calculatePercentile computes the Nth percentile using linear interpolation.
// The rank is (percentile/100)*(n-1); the result interpolates between the two
// bracketing order statistics. This is the single percentile definition used
// everywhere in the engine (matches numpy's default "linear" method), so
// results stay comparable across runs and across tooling.
func calculatePercentile(sortedValues []float64, percentile float64) float64 {
	if len(sortedValues) == 0 {
		return 0
	}

	if len(sortedValues) == 1 {
		return sortedValues[0]
	}

	n := float64(len(sortedValues))
	rank := (percentile / 100.0) * (n - 1)

	lowerIndex := int(math.Floor(rank))
	upperIndex := int(math.Ceil(rank))

	if lowerIndex == upperIndex {
		return sortedValues[lowerIndex]
	}

	lowerValue := sortedValues[lowerIndex]
	upperValue := sortedValues[upperIndex]
	fraction := rank - float64(lowerIndex)

	return lowerValue + (upperValue-lowerValue)*fraction
}

// calculateAverage computes the mean of values
func calculateAverage(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}

	sum := 0.0
	for _, v := range values {
		sum += v
	}

	return sum / float64(len(values))
}

// calculateStdDev computes the population standard deviation
func calculateStdDev(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}

	mean := calculateAverage(values)

	sumSquaredDiff := 0.0
	for _, v := range values {
		diff := v - mean
		sumSquaredDiff += diff * diff
	}

	variance := sumSquaredDiff / float64(len(values))
	return math.Sqrt(variance)
}
