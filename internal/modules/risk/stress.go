package risk

import (
	"errors"
	"fmt"
	"math"

	"github.com/kevin12369/smart-stock-insider/pkg/formulas"
)

// ErrInvalidScenario is returned when the scenario set is empty or a scenario
// carries a non-positive volatility multiplier.
var ErrInvalidScenario = errors.New("invalid stress scenario")

// Scenario defines one stress transformation of a return series: every
// return is scaled by Multiplier and shifted by Shock. A market-crash
// scenario might use Shock=-0.002 with Multiplier=2.5 (daily drag plus
// volatility regime change).
type Scenario struct {
	Shock      float64 `json:"shock"`      // additive per-period return shift
	Multiplier float64 `json:"multiplier"` // volatility scale, > 0
}

// ScenarioResult is the risk profile of a portfolio under one stressed
// scenario.
type ScenarioResult struct {
	VaR95          float64 `json:"var_95"`
	CVaR95         float64 `json:"cvar_95"`
	MaxDrawdown    float64 `json:"max_drawdown"`
	Volatility     float64 `json:"volatility"` // annualized
	TotalReturn    float64 `json:"total_return"`
	AnnualReturn   float64 `json:"annual_return"`
	WorstCase      bool    `json:"worst_case"`
	StressedSeries int     `json:"observations"`
}

// StressTestResult aggregates all scenario outcomes. WorstScenario names the
// scenario with the highest CVaR at 95% confidence.
type StressTestResult struct {
	Scenarios     map[string]*ScenarioResult `json:"scenarios"`
	WorstScenario string                     `json:"worst_scenario"`
}

// StressTest replays the portfolio return series through each scenario and
// recomputes the tail metrics on the stressed series. Historical estimation
// only: stress testing asks what the observed path would have looked like,
// not what a refit distribution predicts.
func (m *Model) StressTest(portfolio []float64, scenarios map[string]Scenario) (*StressTestResult, error) {
	if len(portfolio) < m.cfg.MinHistoryObservations {
		return nil, fmt.Errorf("%w: need %d observations, got %d",
			ErrInsufficientHistory, m.cfg.MinHistoryObservations, len(portfolio))
	}
	if len(scenarios) == 0 {
		return nil, fmt.Errorf("%w: no scenarios provided", ErrInvalidScenario)
	}
	for name, sc := range scenarios {
		if sc.Multiplier <= 0 {
			return nil, fmt.Errorf("%w: scenario %q has non-positive multiplier %v", ErrInvalidScenario, name, sc.Multiplier)
		}
	}

	result := &StressTestResult{Scenarios: make(map[string]*ScenarioResult, len(scenarios))}
	worstCVaR := math.Inf(-1)
	for name, sc := range scenarios {
		stressed := applyScenario(portfolio, sc)

		totalReturn := 1.0
		for _, r := range stressed {
			totalReturn *= 1 + r
		}

		sr := &ScenarioResult{
			VaR95:          lossMagnitude(formulas.HistoricalVaR(stressed, 0.95)),
			CVaR95:         lossMagnitude(formulas.HistoricalCVaR(stressed, 0.95)),
			MaxDrawdown:    formulas.MaxDrawdown(stressed),
			Volatility:     formulas.AnnualizedVolatility(stressed, m.cfg.PeriodsPerYear),
			TotalReturn:    totalReturn - 1,
			AnnualReturn:   formulas.AnnualizedReturn(stressed, m.cfg.PeriodsPerYear),
			StressedSeries: len(stressed),
		}
		result.Scenarios[name] = sr

		if sr.CVaR95 > worstCVaR || (sr.CVaR95 == worstCVaR && name < result.WorstScenario) {
			worstCVaR = sr.CVaR95
			result.WorstScenario = name
		}
	}
	result.Scenarios[result.WorstScenario].WorstCase = true

	m.log.Info().
		Int("scenarios", len(scenarios)).
		Str("worst_scenario", result.WorstScenario).
		Float64("worst_cvar_95", worstCVaR).
		Msg("Stress test complete")

	return result, nil
}

func applyScenario(returns []float64, sc Scenario) []float64 {
	stressed := make([]float64, len(returns))
	for i, r := range returns {
		stressed[i] = r*sc.Multiplier + sc.Shock
	}
	return stressed
}
