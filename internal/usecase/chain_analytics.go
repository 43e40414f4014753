package usecase

import (
	"math"
	"sort"
	"time"

	"github.com/vitos/options_flow/internal/domain"
)

// ChainAnalyzer turns a raw chain snapshot into the enriched per-contract
// view plus aggregate analytics. Analyze is total: partially populated
// market data degrades to zeros, it never errors.
type ChainAnalyzer struct {
	pricer  *Pricer
	timeNow func() time.Time // For testing
}

func NewChainAnalyzer(pricer *Pricer) *ChainAnalyzer {
	return &ChainAnalyzer{
		pricer:  pricer,
		timeNow: time.Now,
	}
}

// Analyze enriches every contract in the snapshot and computes the
// aggregate chain analytics.
func (a *ChainAnalyzer) Analyze(snap *domain.ChainSnapshot) *domain.ChainPayload {
	payload := &domain.ChainPayload{
		Symbol:       snap.Symbol,
		CurrentPrice: snap.Spot,
		Expirations:  make([]string, 0, len(snap.Expirations)),
		Chains:       make(map[string]domain.ExpirationChain, len(snap.Expirations)),
	}

	var allCalls, allPuts []domain.EnrichedContract

	for _, exp := range snap.Expirations {
		key := exp.Format(domain.DateFormat)
		payload.Expirations = append(payload.Expirations, key)

		days := a.daysToExpiry(exp)
		calls := a.enrichAll(snap.Calls[exp], snap.Spot, days)
		puts := a.enrichAll(snap.Puts[exp], snap.Spot, days)

		payload.Chains[key] = domain.ExpirationChain{
			Calls:          calls,
			Puts:           puts,
			ExpirationDate: key,
			DaysToExpiry:   days,
		}

		allCalls = append(allCalls, calls...)
		allPuts = append(allPuts, puts...)
	}

	payload.Analytics = a.aggregate(allCalls, allPuts, snap.Spot)
	return payload
}

func (a *ChainAnalyzer) daysToExpiry(expiration time.Time) int {
	days := int(expiration.Sub(a.timeNow()).Hours() / 24)
	if days < 0 {
		return 0
	}
	return days
}

func (a *ChainAnalyzer) enrichAll(contracts []domain.OptionContract, spot float64, days int) []domain.EnrichedContract {
	enriched := make([]domain.EnrichedContract, 0, len(contracts))
	for _, c := range contracts {
		enriched = append(enriched, a.enrich(c, spot, days))
	}
	return enriched
}

func (a *ChainAnalyzer) enrich(c domain.OptionContract, spot float64, days int) domain.EnrichedContract {
	sanitize(&c)
	t := float64(days) / 365.0

	e := domain.EnrichedContract{
		OptionContract: c,
		Expiration:     c.Expiration.Format(domain.DateFormat),
		DaysToExpiry:   days,
		Greeks:         a.pricer.ComputeGreeks(spot, c.Strike, t, c.ImpliedVolatility, c.Type),
		IntrinsicValue: intrinsicValue(spot, c.Strike, c.Type),
	}
	if spot > 0 {
		e.Moneyness = c.Strike / spot
	}
	e.TimeValue = c.LastPrice - e.IntrinsicValue
	e.VolumeOIRatio = volumeOIRatio(c.Volume, c.OpenInterest)
	e.LiquidityScore = liquidityScore(c)
	return e
}

// sanitize zeroes NaN/Inf fields so aggregation never fails on partially
// populated feed rows.
func sanitize(c *domain.OptionContract) {
	for _, f := range []*float64{&c.Bid, &c.Ask, &c.LastPrice, &c.ImpliedVolatility, &c.Strike} {
		if math.IsNaN(*f) || math.IsInf(*f, 0) {
			*f = 0
		}
	}
	if c.Volume < 0 {
		c.Volume = 0
	}
	if c.OpenInterest < 0 {
		c.OpenInterest = 0
	}
}

func volumeOIRatio(volume, openInterest int64) float64 {
	oi := openInterest
	if oi == 0 {
		oi = 1
	}
	return float64(volume) / float64(oi)
}

// liquidityScore blends log-scaled volume, log-scaled open interest and a
// bid/ask spread penalty into a bounded 0..1 score.
func liquidityScore(c domain.OptionContract) float64 {
	volumeScore := math.Log1p(float64(c.Volume)) / 10
	oiScore := math.Log1p(float64(c.OpenInterest)) / 10

	last := c.LastPrice
	if last == 0 {
		last = 1
	}
	spread := (c.Ask - c.Bid) / last
	spreadScore := math.Max(0, 1-spread)

	score := (volumeScore + oiScore + spreadScore) / 3
	return math.Min(math.Max(score, 0), 1)
}

func (a *ChainAnalyzer) aggregate(calls, puts []domain.EnrichedContract, spot float64) domain.ChainAnalytics {
	analytics := domain.ChainAnalytics{
		MostActiveStrikes: []domain.StrikeActivity{},
		UnusualActivity:   []domain.UnusualContract{},
	}

	for _, c := range calls {
		analytics.TotalCallVolume += c.Volume
		analytics.TotalCallOI += c.OpenInterest
	}
	for _, p := range puts {
		analytics.TotalPutVolume += p.Volume
		analytics.TotalPutOI += p.OpenInterest
	}
	if analytics.TotalCallVolume > 0 {
		analytics.PutCallRatio = float64(analytics.TotalPutVolume) / float64(analytics.TotalCallVolume)
	}

	analytics.MaxPain = maxPain(calls, puts, spot)
	analytics.MostActiveStrikes = mostActiveStrikes(calls, puts)
	analytics.UnusualActivity = detectUnusualActivity(calls, puts)

	return analytics
}

const maxPainGridPoints = 50

// maxPain scans an evenly spaced candidate grid between the minimum and
// maximum observed strike for the candidate minimizing total option-writer
// pain. Ties resolve to the first candidate in scan order; with no strikes
// the spot price is returned.
func maxPain(calls, puts []domain.EnrichedContract, spot float64) float64 {
	var strikes []float64
	for _, c := range calls {
		if c.Strike > 0 {
			strikes = append(strikes, c.Strike)
		}
	}
	for _, p := range puts {
		if p.Strike > 0 {
			strikes = append(strikes, p.Strike)
		}
	}
	if len(strikes) == 0 {
		return spot
	}

	minStrike, maxStrike := strikes[0], strikes[0]
	for _, s := range strikes[1:] {
		minStrike = math.Min(minStrike, s)
		maxStrike = math.Max(maxStrike, s)
	}

	step := (maxStrike - minStrike) / float64(maxPainGridPoints-1)
	minPain := math.Inf(1)
	maxPainStrike := spot

	for i := 0; i < maxPainGridPoints; i++ {
		candidate := minStrike + step*float64(i)

		var totalPain float64
		for _, c := range calls {
			if c.Strike > 0 && c.OpenInterest > 0 && candidate > c.Strike {
				totalPain += (candidate - c.Strike) * float64(c.OpenInterest)
			}
		}
		for _, p := range puts {
			if p.Strike > 0 && p.OpenInterest > 0 && candidate < p.Strike {
				totalPain += (p.Strike - candidate) * float64(p.OpenInterest)
			}
		}

		if totalPain < minPain {
			minPain = totalPain
			maxPainStrike = candidate
		}
	}

	return math.Round(maxPainStrike*100) / 100
}

// mostActiveStrikes returns the top 10 strikes by combined call+put volume.
func mostActiveStrikes(calls, puts []domain.EnrichedContract) []domain.StrikeActivity {
	byStrike := make(map[float64]int64)
	for _, c := range calls {
		byStrike[c.Strike] += c.Volume
	}
	for _, p := range puts {
		byStrike[p.Strike] += p.Volume
	}

	active := make([]domain.StrikeActivity, 0, len(byStrike))
	for strike, volume := range byStrike {
		active = append(active, domain.StrikeActivity{Strike: strike, Volume: volume})
	}
	sort.Slice(active, func(i, j int) bool {
		if active[i].Volume != active[j].Volume {
			return active[i].Volume > active[j].Volume
		}
		return active[i].Strike < active[j].Strike
	})

	if len(active) > 10 {
		active = active[:10]
	}
	return active
}

// detectUnusualActivity flags contracts whose volume clears the 95th
// percentile of all positive volumes in the chain and exceeds 100 absolute
// contracts, returning the top 20 by volume.
func detectUnusualActivity(calls, puts []domain.EnrichedContract) []domain.UnusualContract {
	all := make([]domain.EnrichedContract, 0, len(calls)+len(puts))
	all = append(all, calls...)
	all = append(all, puts...)

	var volumes []float64
	for _, o := range all {
		if o.Volume > 0 {
			volumes = append(volumes, float64(o.Volume))
		}
	}
	if len(volumes) == 0 {
		return []domain.UnusualContract{}
	}

	rule := SpikeRule{Multiplier: 1, MinSize: 100}
	baseline := Percentile(volumes, 95)

	flagged := []domain.UnusualContract{}
	for _, o := range all {
		if ok, _ := rule.Evaluate(float64(o.Volume), baseline); !ok {
			continue
		}
		flagged = append(flagged, domain.UnusualContract{
			Strike:        o.Strike,
			Type:          o.Type,
			Expiration:    o.Expiration,
			Volume:        o.Volume,
			OpenInterest:  o.OpenInterest,
			LastPrice:     o.LastPrice,
			VolumeOIRatio: volumeOIRatio(o.Volume, o.OpenInterest),
		})
	}

	sort.SliceStable(flagged, func(i, j int) bool {
		return flagged[i].Volume > flagged[j].Volume
	})
	if len(flagged) > 20 {
		flagged = flagged[:20]
	}
	return flagged
}
