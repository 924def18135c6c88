// Package indicator provides technical indicator math over daily closing
// price series. Inputs are oldest-first slices as produced by
// marketdata.PriceTable.History; every function is pure and allocation-free.
package indicator

import (
	"github.com/quantra-lab/quantra/pkg/errors"
)

// SMA returns the simple moving average of the last period values.
func SMA(values []float64, period int) (float64, error) {
	if period <= 0 {
		return 0, errors.Newf(errors.ErrCodeInvalidParameter, "period must be positive, got %d", period)
	}

	if len(values) < period {
		return 0, errors.NewInsufficientDataErrorf(period, len(values),
			"insufficient data for SMA: need %d values, got %d", period, len(values))
	}

	sum := 0.0
	for _, v := range values[len(values)-period:] {
		sum += v
	}

	return sum / float64(period), nil
}

// ROC returns the rate of change over the trailing period: the fractional
// return between the value period steps back and the latest value.
func ROC(values []float64, period int) (float64, error) {
	if period <= 0 {
		return 0, errors.Newf(errors.ErrCodeInvalidParameter, "period must be positive, got %d", period)
	}

	if len(values) < period+1 {
		return 0, errors.NewInsufficientDataErrorf(period+1, len(values),
			"insufficient data for ROC: need %d values, got %d", period+1, len(values))
	}

	base := values[len(values)-1-period]
	if base == 0 {
		return 0, errors.New(errors.ErrCodeInvalidParameter, "rate of change undefined for zero base value")
	}

	return values[len(values)-1]/base - 1, nil
}

// EMA returns the exponential moving average over the whole series, seeded
// with the first value and smoothed with the standard 2/(period+1) factor.
func EMA(values []float64, period int) (float64, error) {
	if period <= 0 {
		return 0, errors.Newf(errors.ErrCodeInvalidParameter, "period must be positive, got %d", period)
	}

	if len(values) < period {
		return 0, errors.NewInsufficientDataErrorf(period, len(values),
			"insufficient data for EMA: need %d values, got %d", period, len(values))
	}

	alpha := 2.0 / (float64(period) + 1)
	ema := values[0]

	for _, v := range values[1:] {
		ema = alpha*v + (1-alpha)*ema
	}

	return ema, nil
}
