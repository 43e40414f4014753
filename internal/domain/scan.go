package domain

import "time"

type ActivityLevel string

const (
	ActivityNormal   ActivityLevel = "NORMAL"
	ActivityLow      ActivityLevel = "LOW_UNUSUAL"
	ActivityModerate ActivityLevel = "MODERATE_UNUSUAL"
	ActivityHigh     ActivityLevel = "HIGH_UNUSUAL"
)

// VolumeMetrics are the raw per-symbol inputs to unusual-activity detection.
type VolumeMetrics struct {
	Ticker           string    `json:"ticker"`
	CurrentVolume    int64     `json:"current_volume"`
	AverageVolume    int64     `json:"avg_volume"`
	VolumeSpikeRatio float64   `json:"volume_spike_ratio"`
	PriceChangePct   float64   `json:"price_change_pct"`
	CurrentPrice     float64   `json:"current_price"`
	VWAP             float64   `json:"vwap"`
	VWAPDeviation    float64   `json:"vwap_deviation"`
	Timestamp        time.Time `json:"timestamp"`
}

// ActivityReport is the scored result for one scanned symbol.
type ActivityReport struct {
	VolumeMetrics
	Alerts       []string      `json:"alerts"`
	RiskScore    int           `json:"risk_score"`
	ActivityType ActivityLevel `json:"activity_type"`
	AlertCount   int           `json:"alert_count"`
}

// ScanSummary aggregates one completed scan run.
type ScanSummary struct {
	TotalAlerts       int       `json:"total_alerts"`
	HighRiskCount     int       `json:"high_risk_count"`
	ModerateRiskCount int       `json:"moderate_risk_count"`
	LowRiskCount      int       `json:"low_risk_count"`
	AvgRiskScore      float64   `json:"avg_risk_score"`
	TopTicker         string    `json:"top_ticker"`
	ScanTimestamp     time.Time `json:"scan_timestamp"`
}
