package usecase

import (
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vitos/options_flow/internal/domain"
)

var analyzerNow = time.Date(2026, 8, 31, 12, 0, 0, 0, time.UTC)

func newTestAnalyzer() *ChainAnalyzer {
	analyzer := NewChainAnalyzer(NewPricer())
	analyzer.timeNow = func() time.Time { return analyzerNow }
	return analyzer
}

func contract(typ domain.OptionType, strike float64, expiration time.Time, volume, oi int64, last, iv float64) domain.OptionContract {
	return domain.OptionContract{
		Symbol:            "TEST",
		Strike:            strike,
		Expiration:        expiration,
		Type:              typ,
		Bid:               last - 0.05,
		Ask:               last + 0.05,
		LastPrice:         last,
		Volume:            volume,
		OpenInterest:      oi,
		ImpliedVolatility: iv,
	}
}

func TestAnalyze_EnrichmentFields(t *testing.T) {
	analyzer := newTestAnalyzer()
	exp := analyzerNow.Add(30 * 24 * time.Hour)

	snap := &domain.ChainSnapshot{
		Symbol:      "TEST",
		Spot:        100,
		Expirations: []time.Time{exp},
		Calls: map[time.Time][]domain.OptionContract{
			exp: {contract(domain.OptionCall, 95, exp, 100, 100, 7.5, 0.3)},
		},
		Puts: map[time.Time][]domain.OptionContract{
			exp: {contract(domain.OptionPut, 105, exp, 50, 200, 6.0, 0.35)},
		},
	}

	payload := analyzer.Analyze(snap)
	require.Len(t, payload.Expirations, 1)

	key := exp.Format(domain.DateFormat)
	chain, ok := payload.Chains[key]
	require.True(t, ok)
	assert.Equal(t, 30, chain.DaysToExpiry)
	require.Len(t, chain.Calls, 1)

	call := chain.Calls[0]
	assert.InDelta(t, 0.95, call.Moneyness, 1e-9)
	assert.InDelta(t, 5.0, call.IntrinsicValue, 1e-9)
	assert.InDelta(t, 2.5, call.TimeValue, 1e-9)
	assert.InDelta(t, 1.0, call.VolumeOIRatio, 1e-9)
	assert.Greater(t, call.LiquidityScore, 0.0)
	assert.LessOrEqual(t, call.LiquidityScore, 1.0)
	assert.Greater(t, call.Greeks.Delta, 0.0)
	assert.Less(t, call.Greeks.Delta, 1.0)

	put := chain.Puts[0]
	assert.InDelta(t, 5.0, put.IntrinsicValue, 1e-9)
	assert.Less(t, put.Greeks.Delta, 0.0)

	analytics := payload.Analytics
	assert.Equal(t, int64(100), analytics.TotalCallVolume)
	assert.Equal(t, int64(50), analytics.TotalPutVolume)
	assert.Equal(t, int64(100), analytics.TotalCallOI)
	assert.Equal(t, int64(200), analytics.TotalPutOI)
	assert.InDelta(t, 0.5, analytics.PutCallRatio, 1e-9)
}

func TestAnalyze_MaxPainGridSearch(t *testing.T) {
	analyzer := newTestAnalyzer()
	exp := analyzerNow.Add(14 * 24 * time.Hour)

	// One call below spot and one put above it, equal open interest:
	// total writer pain is flat across [95,105], so the scan must keep
	// the first candidate, the minimum strike.
	snap := &domain.ChainSnapshot{
		Symbol:      "TEST",
		Spot:        100,
		Expirations: []time.Time{exp},
		Calls: map[time.Time][]domain.OptionContract{
			exp: {contract(domain.OptionCall, 95, exp, 0, 100, 5.5, 0.3)},
		},
		Puts: map[time.Time][]domain.OptionContract{
			exp: {contract(domain.OptionPut, 105, exp, 0, 100, 5.0, 0.3)},
		},
	}

	maxPain := analyzer.Analyze(snap).Analytics.MaxPain
	assert.GreaterOrEqual(t, maxPain, 95.0)
	assert.LessOrEqual(t, maxPain, 105.0)
	assert.InDelta(t, 95.0, maxPain, 1e-9)
}

func TestAnalyze_MostActiveStrikes(t *testing.T) {
	analyzer := newTestAnalyzer()
	exp := analyzerNow.Add(7 * 24 * time.Hour)

	snap := &domain.ChainSnapshot{
		Symbol:      "TEST",
		Spot:        100,
		Expirations: []time.Time{exp},
		Calls: map[time.Time][]domain.OptionContract{
			exp: {
				contract(domain.OptionCall, 100, exp, 300, 10, 3.0, 0.2),
				contract(domain.OptionCall, 105, exp, 50, 10, 1.5, 0.2),
			},
		},
		Puts: map[time.Time][]domain.OptionContract{
			exp: {
				contract(domain.OptionPut, 100, exp, 200, 10, 2.8, 0.2),
				contract(domain.OptionPut, 95, exp, 400, 10, 1.2, 0.2),
			},
		},
	}

	active := analyzer.Analyze(snap).Analytics.MostActiveStrikes
	require.Len(t, active, 3)

	// Combined call+put volume per strike, descending.
	assert.Equal(t, domain.StrikeActivity{Strike: 100, Volume: 500}, active[0])
	assert.Equal(t, domain.StrikeActivity{Strike: 95, Volume: 400}, active[1])
	assert.Equal(t, domain.StrikeActivity{Strike: 105, Volume: 50}, active[2])
}

func TestAnalyze_UnusualActivity(t *testing.T) {
	analyzer := newTestAnalyzer()
	exp := analyzerNow.Add(7 * 24 * time.Hour)

	calls := make([]domain.OptionContract, 0, 10)
	for i := 0; i < 10; i++ {
		calls = append(calls, contract(domain.OptionCall, 100+float64(i), exp, 100, 50, 2.0, 0.2))
	}

	snap := &domain.ChainSnapshot{
		Symbol:      "TEST",
		Spot:        100,
		Expirations: []time.Time{exp},
		Calls:       map[time.Time][]domain.OptionContract{exp: calls},
		Puts: map[time.Time][]domain.OptionContract{
			exp: {contract(domain.OptionPut, 90, exp, 1000, 20, 0.8, 0.4)},
		},
	}

	unusual := analyzer.Analyze(snap).Analytics.UnusualActivity
	require.Len(t, unusual, 1)
	assert.Equal(t, domain.OptionPut, unusual[0].Type)
	assert.Equal(t, int64(1000), unusual[0].Volume)
	assert.InDelta(t, 50.0, unusual[0].VolumeOIRatio, 1e-9)
}

func TestAnalyze_ToleratesEmptyAndMalformedData(t *testing.T) {
	analyzer := newTestAnalyzer()

	// Empty snapshot: analytics degrade to zeros, max pain falls back to spot.
	empty := analyzer.Analyze(&domain.ChainSnapshot{Symbol: "TEST", Spot: 42})
	assert.Equal(t, 42.0, empty.Analytics.MaxPain)
	assert.Zero(t, empty.Analytics.PutCallRatio)
	assert.Empty(t, empty.Analytics.UnusualActivity)
	assert.Empty(t, empty.Analytics.MostActiveStrikes)

	// NaN fields are treated as zero, not propagated.
	exp := analyzerNow.Add(7 * 24 * time.Hour)
	bad := contract(domain.OptionCall, 100, exp, 10, 10, math.NaN(), math.NaN())
	bad.Bid = math.NaN()

	payload := analyzer.Analyze(&domain.ChainSnapshot{
		Symbol:      "TEST",
		Spot:        100,
		Expirations: []time.Time{exp},
		Calls:       map[time.Time][]domain.OptionContract{exp: {bad}},
	})

	enriched := payload.Chains[exp.Format(domain.DateFormat)].Calls[0]
	assert.False(t, math.IsNaN(enriched.TimeValue))
	assert.False(t, math.IsNaN(enriched.LiquidityScore))
	assert.False(t, math.IsNaN(enriched.Greeks.Delta))
}
