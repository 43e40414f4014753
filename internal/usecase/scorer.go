package usecase

import (
	"math"
	"sort"

	"github.com/vitos/options_flow/internal/domain"
)

// Risk-score cutoffs for bucketing a summed signal score.
const (
	scoreLowCutoff      = 10
	scoreModerateCutoff = 25
	scoreHighCutoff     = 50
)

// SpikeRule flags a metric that exceeds a multiple of its baseline while
// also clearing a minimum absolute size. Each triggered rule contributes
// a fixed point value; totals are comparable only within one rule set.
type SpikeRule struct {
	Multiplier float64
	MinSize    float64
	Points     int
}

// Evaluate returns whether the value triggers the rule and the points it
// contributes. A zero baseline never triggers.
func (r SpikeRule) Evaluate(value, baseline float64) (bool, int) {
	if baseline <= 0 {
		return false, 0
	}
	if value >= baseline*r.Multiplier && value > r.MinSize {
		return true, r.Points
	}
	return false, 0
}

// ClassifyScore buckets a summed risk score into an activity level.
func ClassifyScore(score int) domain.ActivityLevel {
	switch {
	case score >= scoreHighCutoff:
		return domain.ActivityHigh
	case score >= scoreModerateCutoff:
		return domain.ActivityModerate
	case score >= scoreLowCutoff:
		return domain.ActivityLow
	default:
		return domain.ActivityNormal
	}
}

// Percentile returns the pct-th percentile of values using linear
// interpolation between ranks. An empty input yields 0.
func Percentile(values []float64, pct float64) float64 {
	if len(values) == 0 {
		return 0
	}
	sorted := make([]float64, len(values))
	copy(sorted, values)
	sort.Float64s(sorted)

	if pct <= 0 {
		return sorted[0]
	}
	if pct >= 100 {
		return sorted[len(sorted)-1]
	}

	rank := pct / 100 * float64(len(sorted)-1)
	lo := int(math.Floor(rank))
	hi := int(math.Ceil(rank))
	if lo == hi {
		return sorted[lo]
	}
	frac := rank - float64(lo)
	return sorted[lo] + frac*(sorted[hi]-sorted[lo])
}
