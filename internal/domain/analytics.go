package domain

// StrikeActivity is one row of the most-active-strikes ranking.
type StrikeActivity struct {
	Strike float64 `json:"strike"`
	Volume int64   `json:"volume"`
}

// UnusualContract is a contract flagged by the chain volume scorer.
type UnusualContract struct {
	Strike        float64    `json:"strike"`
	Type          OptionType `json:"type"`
	Expiration    string     `json:"expiration"`
	Volume        int64      `json:"volume"`
	OpenInterest  int64      `json:"open_interest"`
	LastPrice     float64    `json:"last_price"`
	VolumeOIRatio float64    `json:"volume_oi_ratio"`
}

// ChainAnalytics are aggregate metrics over a whole option chain.
type ChainAnalytics struct {
	TotalCallVolume   int64             `json:"total_call_volume"`
	TotalPutVolume    int64             `json:"total_put_volume"`
	TotalCallOI       int64             `json:"total_call_oi"`
	TotalPutOI        int64             `json:"total_put_oi"`
	PutCallRatio      float64           `json:"put_call_ratio"`
	MaxPain           float64           `json:"max_pain"`
	MostActiveStrikes []StrikeActivity  `json:"most_active_strikes"`
	UnusualActivity   []UnusualContract `json:"unusual_activity"`
}

// ExpirationChain is the enriched calls/puts bucket for one expiration.
type ExpirationChain struct {
	Calls          []EnrichedContract `json:"calls"`
	Puts           []EnrichedContract `json:"puts"`
	ExpirationDate string             `json:"expiration_date"`
	DaysToExpiry   int                `json:"days_to_expiry"`
}

// ChainPayload is the full analytics result for one underlying.
type ChainPayload struct {
	Symbol       string                     `json:"symbol"`
	CurrentPrice float64                    `json:"current_price"`
	Expirations  []string                   `json:"expirations"`
	Chains       map[string]ExpirationChain `json:"chains"`
	Analytics    ChainAnalytics             `json:"analytics"`
}
