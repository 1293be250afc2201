package formulas

import (
	"math"

	"gonum.org/v1/gonum/stat"
)

// Mean calculates the arithmetic mean of a slice of float64 values
func Mean(data []float64) float64 {
	if len(data) == 0 {
		return 0
	}
	return stat.Mean(data, nil)
}

// StdDev calculates the sample standard deviation of a slice of float64 values
func StdDev(data []float64) float64 {
	if len(data) == 0 {
		return 0
	}
	return stat.StdDev(data, nil)
}

// Variance calculates the sample variance of a slice of float64 values
func Variance(data []float64) float64 {
	if len(data) == 0 {
		return 0
	}
	return stat.Variance(data, nil)
}

// Covariance calculates the sample covariance between two datasets
func Covariance(x, y []float64) float64 {
	if len(x) == 0 || len(y) == 0 || len(x) != len(y) {
		return 0
	}
	return stat.Covariance(x, y, nil)
}

// Correlation calculates the Pearson correlation coefficient between two datasets
func Correlation(x, y []float64) float64 {
	if len(x) == 0 || len(y) == 0 || len(x) != len(y) {
		return 0
	}
	return stat.Correlation(x, y, nil)
}

// AnnualizedReturn scales a mean per-period return to a yearly figure.
// periodsPerYear is typically 252 for daily data.
func AnnualizedReturn(returns []float64, periodsPerYear float64) float64 {
	if len(returns) == 0 {
		return 0
	}
	return Mean(returns) * periodsPerYear
}

// AnnualizedVolatility calculates annualized volatility from per-period returns.
// Formula: std dev of period returns × sqrt(periodsPerYear)
func AnnualizedVolatility(returns []float64, periodsPerYear float64) float64 {
	if len(returns) == 0 {
		return 0
	}
	return StdDev(returns) * math.Sqrt(periodsPerYear)
}

// SharpeRatio calculates the risk-adjusted return given an annualized return,
// annualized volatility, and a risk-free rate. Returns 0 for zero volatility.
func SharpeRatio(annualReturn, annualVolatility, riskFreeRate float64) float64 {
	if annualVolatility <= 0 {
		return 0
	}
	return (annualReturn - riskFreeRate) / annualVolatility
}

// MaxDrawdown calculates the maximum peak-to-trough decline over the
// compounded return path. The result is <= 0 (0 means no drawdown).
func MaxDrawdown(returns []float64) float64 {
	if len(returns) == 0 {
		return 0
	}

	wealth := 1.0
	peak := 1.0
	maxDD := 0.0
	for _, r := range returns {
		wealth *= 1 + r
		if wealth > peak {
			peak = wealth
		}
		dd := wealth/peak - 1
		if dd < maxDD {
			maxDD = dd
		}
	}
	return maxDD
}
