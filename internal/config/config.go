// Package config provides configuration management functionality.
package config

import (
	"fmt"
	"os"
	"strconv"

	"github.com/joho/godotenv"
)

// Config holds application configuration
type Config struct {
	Port     int
	LogLevel string
	DevMode  bool
	Engine   EngineConfig
}

// EngineConfig holds the numerical parameters of the optimization and risk
// engine. All values have sensible defaults; a zero-value EngineConfig is not
// usable, construct via DefaultEngineConfig or Load.
type EngineConfig struct {
	// RiskFreeRate is the annualized risk-free rate used for Sharpe ratios
	// and the tangency portfolio.
	RiskFreeRate float64

	// PeriodsPerYear is the annualization factor for per-period return
	// series (252 for daily trading data).
	PeriodsPerYear float64

	// DefaultCorrelation is the assumed pairwise correlation when no
	// historical data is available to estimate a covariance matrix.
	DefaultCorrelation float64

	// RiskParityTolerance is the convergence tolerance on the normalized
	// spread of risk contributions.
	RiskParityTolerance float64

	// MaxIterations bounds iterative solvers (risk parity).
	MaxIterations int

	// MonteCarloSimulations is the sample count for simulated tail-risk
	// estimates.
	MonteCarloSimulations int

	// MaxCVaR95 is the tail-risk warning threshold for optimized
	// portfolios, expressed as a signed return (-0.15 = 15% loss at 95%
	// confidence). Breaches are logged, not rejected.
	MaxCVaR95 float64

	// DriftThreshold is the absolute weight drift above which rebalancing
	// is recommended.
	DriftThreshold float64

	// DefaultCostRate is the transaction cost rate applied to weight
	// changes when the caller supplies no per-asset rates.
	DefaultCostRate float64

	// MinHistoryObservations is the minimum return-series length for risk
	// analysis; tail estimates below this are unreliable.
	MinHistoryObservations int
}

// DefaultEngineConfig returns the engine defaults used when environment
// variables are absent.
func DefaultEngineConfig() EngineConfig {
	return EngineConfig{
		RiskFreeRate:           0.03,
		PeriodsPerYear:         252,
		DefaultCorrelation:     0.3,
		RiskParityTolerance:    1e-4,
		MaxIterations:          1000,
		MonteCarloSimulations:  10000,
		MaxCVaR95:              -0.15,
		DriftThreshold:         0.05,
		DefaultCostRate:        0.001,
		MinHistoryObservations: 20,
	}
}

// Load reads configuration from environment variables
func Load() (*Config, error) {
	// Load .env file if it exists
	_ = godotenv.Load()

	port, err := getEnvInt("PORT", 8080)
	if err != nil {
		return nil, fmt.Errorf("invalid PORT: %w", err)
	}

	engine := DefaultEngineConfig()
	if engine.RiskFreeRate, err = getEnvFloat("ENGINE_RISK_FREE_RATE", engine.RiskFreeRate); err != nil {
		return nil, fmt.Errorf("invalid ENGINE_RISK_FREE_RATE: %w", err)
	}
	if engine.PeriodsPerYear, err = getEnvFloat("ENGINE_PERIODS_PER_YEAR", engine.PeriodsPerYear); err != nil {
		return nil, fmt.Errorf("invalid ENGINE_PERIODS_PER_YEAR: %w", err)
	}
	if engine.DefaultCorrelation, err = getEnvFloat("ENGINE_DEFAULT_CORRELATION", engine.DefaultCorrelation); err != nil {
		return nil, fmt.Errorf("invalid ENGINE_DEFAULT_CORRELATION: %w", err)
	}
	if engine.RiskParityTolerance, err = getEnvFloat("ENGINE_RISK_PARITY_TOLERANCE", engine.RiskParityTolerance); err != nil {
		return nil, fmt.Errorf("invalid ENGINE_RISK_PARITY_TOLERANCE: %w", err)
	}
	if engine.MaxIterations, err = getEnvInt("ENGINE_MAX_ITERATIONS", engine.MaxIterations); err != nil {
		return nil, fmt.Errorf("invalid ENGINE_MAX_ITERATIONS: %w", err)
	}
	if engine.MonteCarloSimulations, err = getEnvInt("ENGINE_MONTE_CARLO_SIMULATIONS", engine.MonteCarloSimulations); err != nil {
		return nil, fmt.Errorf("invalid ENGINE_MONTE_CARLO_SIMULATIONS: %w", err)
	}
	if engine.MaxCVaR95, err = getEnvFloat("ENGINE_MAX_CVAR_95", engine.MaxCVaR95); err != nil {
		return nil, fmt.Errorf("invalid ENGINE_MAX_CVAR_95: %w", err)
	}
	if engine.DriftThreshold, err = getEnvFloat("ENGINE_DRIFT_THRESHOLD", engine.DriftThreshold); err != nil {
		return nil, fmt.Errorf("invalid ENGINE_DRIFT_THRESHOLD: %w", err)
	}
	if engine.DefaultCostRate, err = getEnvFloat("ENGINE_DEFAULT_COST_RATE", engine.DefaultCostRate); err != nil {
		return nil, fmt.Errorf("invalid ENGINE_DEFAULT_COST_RATE: %w", err)
	}
	if engine.MinHistoryObservations, err = getEnvInt("ENGINE_MIN_HISTORY_OBSERVATIONS", engine.MinHistoryObservations); err != nil {
		return nil, fmt.Errorf("invalid ENGINE_MIN_HISTORY_OBSERVATIONS: %w", err)
	}

	if err := validateEngine(engine); err != nil {
		return nil, err
	}

	return &Config{
		Port:     port,
		LogLevel: getEnv("LOG_LEVEL", "info"),
		DevMode:  getEnv("DEV_MODE", "false") == "true",
		Engine:   engine,
	}, nil
}

func validateEngine(e EngineConfig) error {
	if e.PeriodsPerYear <= 0 {
		return fmt.Errorf("ENGINE_PERIODS_PER_YEAR must be positive, got %v", e.PeriodsPerYear)
	}
	if e.DefaultCorrelation <= -1 || e.DefaultCorrelation >= 1 {
		return fmt.Errorf("ENGINE_DEFAULT_CORRELATION must be in (-1, 1), got %v", e.DefaultCorrelation)
	}
	if e.RiskParityTolerance <= 0 {
		return fmt.Errorf("ENGINE_RISK_PARITY_TOLERANCE must be positive, got %v", e.RiskParityTolerance)
	}
	if e.MaxIterations <= 0 {
		return fmt.Errorf("ENGINE_MAX_ITERATIONS must be positive, got %d", e.MaxIterations)
	}
	if e.DriftThreshold <= 0 || e.DriftThreshold >= 1 {
		return fmt.Errorf("ENGINE_DRIFT_THRESHOLD must be in (0, 1), got %v", e.DriftThreshold)
	}
	return nil
}

func getEnv(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}

func getEnvInt(key string, fallback int) (int, error) {
	value := os.Getenv(key)
	if value == "" {
		return fallback, nil
	}
	return strconv.Atoi(value)
}

func getEnvFloat(key string, fallback float64) (float64, error) {
	value := os.Getenv(key)
	if value == "" {
		return fallback, nil
	}
	return strconv.ParseFloat(value, 64)
}
