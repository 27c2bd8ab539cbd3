package evaluation

import "math"

// Metrics holds the standard point-forecast error measures over a set of
// (actual, predicted) pairs.
type Metrics struct {
	// MAE is the mean absolute error.
	MAE float64 `json:"mae"`
	// RMSE is the root mean squared error.
	RMSE float64 `json:"rmse"`
	// MAPE is the mean absolute percentage error. Pairs with a zero actual
	// value are excluded from the denominator.
	MAPE float64 `json:"mape"`
	// Count is the number of scored pairs.
	Count int `json:"count"`
}

// computeMetrics scores aligned actual/predicted slices. Empty input yields
// zero metrics.
func computeMetrics(actual, predicted []float64) Metrics {
	n := len(actual)
	if n == 0 || n != len(predicted) {
		return Metrics{}
	}

	var absSum, sqSum, pctSum float64
	pctCount := 0
	for i := 0; i < n; i++ {
		diff := predicted[i] - actual[i]
		absSum += math.Abs(diff)
		sqSum += diff * diff
		if actual[i] != 0 {
			pctSum += math.Abs(diff / actual[i])
			pctCount++
		}
	}

	m := Metrics{
		MAE:   absSum / float64(n),
		RMSE:  math.Sqrt(sqSum / float64(n)),
		Count: n,
	}
	if pctCount > 0 {
		m.MAPE = pctSum / float64(pctCount) * 100
	}
	return m
}
