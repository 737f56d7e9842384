package analytics

import (
	timeseries "gridpulse/internal/timeseries/domain"
)

// Func is an aggregation function applied within one bucket.
type Func string

const (
	FuncAvg  Func = "avg"
	FuncSum  Func = "sum"
	FuncMin  Func = "min"
	FuncMax  Func = "max"
	FuncLast Func = "last"
)

// ParseFunc validates an aggregation function string.
func ParseFunc(value string) (Func, error) {
	switch Func(value) {
	case FuncAvg, FuncSum, FuncMin, FuncMax, FuncLast:
		return Func(value), nil
	default:
		return "", BadFuncError(value)
	}
}

// DefaultFunc returns the natural aggregation for a fact type: generation
// totals add up, everything else averages.
func DefaultFunc(entity timeseries.EntityType) Func {
	if entity == timeseries.EntityFuelMix {
		return FuncSum
	}
	return FuncAvg
}

// ValidateFunc rejects function/fact-type pairs that would produce a
// number with no physical meaning. Summing prices, load levels, or flow
// levels concatenates instantaneous measurements; only generation per
// fuel type is additive.
func ValidateFunc(entity timeseries.EntityType, fn Func) error {
	if fn != FuncSum {
		return nil
	}
	if entity == timeseries.EntityFuelMix {
		return nil
	}
	return IncompatibleFuncError(fn, string(entity))
}
