package arbitrage

import (
	"sort"

	"github.com/zhongsurehow/crossarb/internal/domain"
)

// Rank sorts opportunities by profit percentage, best first. Ties keep
// their relative order so repeated passes over the same set stay stable.
func Rank(opps []domain.Opportunity) []domain.Opportunity {
	sort.SliceStable(opps, func(i, j int) bool {
		return opps[i].ProfitPct > opps[j].ProfitPct
	})
	return opps
}

// Criteria narrows a ranked list. Zero values disable the corresponding
// check.
type Criteria struct {
	MaxRiskScore     float64
	MinVolume        float64
	MaxEstimatedTime int // seconds
	ExecutableOnly   bool
	RealDataOnly     bool
}

// Filter returns the opportunities matching the criteria. The input slice
// is not modified.
func Filter(opps []domain.Opportunity, c Criteria) []domain.Opportunity {
	out := make([]domain.Opportunity, 0, len(opps))
	for _, opp := range opps {
		if c.MaxRiskScore > 0 && opp.RiskScore > c.MaxRiskScore {
			continue
		}
		if c.MinVolume > 0 && opp.AvailableVolume < c.MinVolume {
			continue
		}
		if c.MaxEstimatedTime > 0 && opp.EstimatedTimeSeconds > c.MaxEstimatedTime {
			continue
		}
		if c.ExecutableOnly && !opp.Executable() {
			continue
		}
		if c.RealDataOnly && opp.Quality != domain.QualityReal {
			continue
		}
		out = append(out, opp)
	}
	return out
}

// Summarize projects a ranked list into the aggregate view the dashboard
// renders.
func Summarize(opps []domain.Opportunity) domain.Summary {
	s := domain.Summary{
		ByRisk:      make(map[domain.RiskBucket]int),
		ByLiquidity: make(map[domain.LiquidityBucket]int),
	}
	for _, opp := range opps {
		s.Count++
		s.AvgProfitPct += opp.ProfitPct
		if opp.ProfitPct > s.MaxProfitPct {
			s.MaxProfitPct = opp.ProfitPct
		}
		s.ByRisk[opp.RiskLevel()]++
		s.ByLiquidity[opp.Liquidity()]++
		if opp.Quality == domain.QualitySynthetic {
			s.Synthetic = true
		}
	}
	if s.Count > 0 {
		s.AvgProfitPct /= float64(s.Count)
	}
	return s
}
