package domain

import "time"

type OptionType string

const (
	OptionCall OptionType = "CALL"
	OptionPut  OptionType = "PUT"
)

// DateFormat is the wire format for expiration and entry/exit dates.
const DateFormat = "2006-01-02"

// OptionContract is a single quoted contract from a chain snapshot.
// It is an immutable market observation, superseded by the next fetch.
type OptionContract struct {
	Symbol            string     `json:"symbol"`
	Strike            float64    `json:"strike"`
	Expiration        time.Time  `json:"-"`
	Type              OptionType `json:"type"`
	Bid               float64    `json:"bid"`
	Ask               float64    `json:"ask"`
	LastPrice         float64    `json:"last_price"`
	Volume            int64      `json:"volume"`
	OpenInterest      int64      `json:"open_interest"`
	ImpliedVolatility float64    `json:"implied_volatility"`
}

// Greeks are per-contract sensitivities. Theta is per calendar day,
// vega and rho per 1% move in volatility/rate.
type Greeks struct {
	Delta float64 `json:"delta"`
	Gamma float64 `json:"gamma"`
	Theta float64 `json:"theta"`
	Vega  float64 `json:"vega"`
	Rho   float64 `json:"rho"`
}

// EnrichedContract is a contract with Greeks and derived metrics attached.
type EnrichedContract struct {
	OptionContract
	Expiration     string  `json:"expiration"`
	DaysToExpiry   int     `json:"days_to_expiry"`
	Greeks         Greeks  `json:"greeks"`
	Moneyness      float64 `json:"moneyness"`
	IntrinsicValue float64 `json:"intrinsic_value"`
	TimeValue      float64 `json:"time_value"`
	VolumeOIRatio  float64 `json:"volume_oi_ratio"`
	LiquidityScore float64 `json:"liquidity_score"`
}

// ChainSnapshot holds one underlying's full option chain at a point in time.
// Every contract inside an expiration bucket shares that expiration date.
type ChainSnapshot struct {
	Symbol      string
	Spot        float64
	Expirations []time.Time
	Calls       map[time.Time][]OptionContract
	Puts        map[time.Time][]OptionContract
}

// Candle is one daily bar of an equity price series.
type Candle struct {
	Time   time.Time `json:"time"`
	Open   float64   `json:"open"`
	High   float64   `json:"high"`
	Low    float64   `json:"low"`
	Close  float64   `json:"close"`
	Volume float64   `json:"volume"`
}
