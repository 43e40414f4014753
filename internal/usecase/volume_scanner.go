package usecase

import (
	"context"
	"fmt"
	"math"
	"sort"
	"strings"
	"time"

	"github.com/vitos/options_flow/internal/domain"
	"go.uber.org/zap"
)

// ScannerConfig holds the unusual-activity detection thresholds.
type ScannerConfig struct {
	VolumeSpikeMultiplier float64 `yaml:"volume_spike_multiplier"`
	BlockTradeSize        int64   `yaml:"block_trade_size"`
	PriceDivergencePct    float64 `yaml:"price_divergence_pct"`
	MinVolume             int64   `yaml:"min_volume"`
	WindowDays            int     `yaml:"window_days"`
}

func DefaultScannerConfig() ScannerConfig {
	return ScannerConfig{
		VolumeSpikeMultiplier: 3.0,
		BlockTradeSize:        10000,
		PriceDivergencePct:    2.0,
		MinVolume:             100000,
		WindowDays:            20,
	}
}

// VolumeScanner scans equities for unusual volume patterns: spikes over the
// trailing average, high volume with little price movement, VWAP deviation,
// block-sized flow and momentum confirmed by volume.
type VolumeScanner struct {
	market  domain.MarketData
	logger  *zap.Logger
	cfg     ScannerConfig
	timeNow func() time.Time // For testing
}

func NewVolumeScanner(market domain.MarketData, cfg ScannerConfig, logger *zap.Logger) *VolumeScanner {
	return &VolumeScanner{
		market:  market,
		logger:  logger,
		cfg:     cfg,
		timeNow: time.Now,
	}
}

// CalculateVolumeMetrics derives the detection inputs for one symbol from
// its recent daily bars. A series shorter than the window is signaled as
// input unavailability.
func (s *VolumeScanner) CalculateVolumeMetrics(ctx context.Context, ticker string) (*domain.VolumeMetrics, error) {
	bars, err := s.market.GetDailyBars(ctx, ticker, s.cfg.WindowDays+5)
	if err != nil {
		return nil, fmt.Errorf("fetch bars for %s: %w", ticker, err)
	}
	if len(bars) < s.cfg.WindowDays || len(bars) < 2 {
		return nil, fmt.Errorf("%s: price series shorter than %d bars", ticker, s.cfg.WindowDays)
	}

	last := bars[len(bars)-1]
	prev := bars[len(bars)-2]

	// Trailing average excludes the current bar.
	window := bars[len(bars)-s.cfg.WindowDays : len(bars)-1]
	var avgVolume float64
	for _, b := range window {
		avgVolume += b.Volume
	}
	avgVolume /= float64(len(window))

	spike := 0.0
	if avgVolume > 0 {
		spike = last.Volume / avgVolume
	}

	priceChangePct := 0.0
	if prev.Close > 0 {
		priceChangePct = (last.Close - prev.Close) / prev.Close * 100
	}

	var pvSum, vSum float64
	for _, b := range bars {
		typical := (b.High + b.Low + b.Close) / 3
		pvSum += typical * b.Volume
		vSum += b.Volume
	}
	vwap := 0.0
	if vSum > 0 {
		vwap = pvSum / vSum
	}
	vwapDeviation := 0.0
	if vwap > 0 {
		vwapDeviation = (last.Close - vwap) / vwap * 100
	}

	return &domain.VolumeMetrics{
		Ticker:           ticker,
		CurrentVolume:    int64(last.Volume),
		AverageVolume:    int64(avgVolume),
		VolumeSpikeRatio: math.Round(spike*100) / 100,
		PriceChangePct:   math.Round(priceChangePct*100) / 100,
		CurrentPrice:     math.Round(last.Close*100) / 100,
		VWAP:             math.Round(vwap*100) / 100,
		VWAPDeviation:    math.Round(vwapDeviation*100) / 100,
		Timestamp:        s.timeNow(),
	}, nil
}

// DetectUnusualActivity composes the independent signals into a summed
// risk score and buckets it into an activity level.
func (s *VolumeScanner) DetectUnusualActivity(m *domain.VolumeMetrics) *domain.ActivityReport {
	report := &domain.ActivityReport{VolumeMetrics: *m, Alerts: []string{}}

	spikeRule := SpikeRule{Multiplier: s.cfg.VolumeSpikeMultiplier, Points: 30}
	if ok, points := spikeRule.Evaluate(float64(m.CurrentVolume), float64(m.AverageVolume)); ok {
		report.Alerts = append(report.Alerts, fmt.Sprintf("Volume spike: %.2fx average", m.VolumeSpikeRatio))
		report.RiskScore += points
	}

	if m.CurrentVolume > s.cfg.MinVolume && math.Abs(m.PriceChangePct) < s.cfg.PriceDivergencePct {
		report.Alerts = append(report.Alerts, "High volume, low price movement - potential institutional flow")
		report.RiskScore += 25
	}

	if math.Abs(m.VWAPDeviation) > 2.0 {
		report.Alerts = append(report.Alerts, fmt.Sprintf("VWAP deviation: %.2f%%", m.VWAPDeviation))
		report.RiskScore += 15
	}

	if m.CurrentVolume > s.cfg.BlockTradeSize*10 {
		report.Alerts = append(report.Alerts, "Potential block trading activity")
		report.RiskScore += 20
	}

	if math.Abs(m.PriceChangePct) > 3.0 && m.VolumeSpikeRatio > 2.0 {
		report.Alerts = append(report.Alerts, "Strong price momentum with volume confirmation")
		report.RiskScore += 25
	}

	report.AlertCount = len(report.Alerts)
	report.ActivityType = ClassifyScore(report.RiskScore)
	return report
}

// Scan runs the detector over a symbol list, keeping reports with at least
// one alert, sorted by risk score descending. Symbols with unavailable or
// short series are skipped, never fatal.
func (s *VolumeScanner) Scan(ctx context.Context, symbols []string, progress func(string)) []*domain.ActivityReport {
	reports := []*domain.ActivityReport{}

	for i, ticker := range symbols {
		if progress != nil {
			progress(fmt.Sprintf("Scanning %s (%d/%d)", ticker, i+1, len(symbols)))
		}

		metrics, err := s.CalculateVolumeMetrics(ctx, ticker)
		if err != nil {
			s.logger.Warn("skipping symbol", zap.String("ticker", ticker), zap.Error(err))
			continue
		}

		report := s.DetectUnusualActivity(metrics)
		if report.AlertCount > 0 {
			reports = append(reports, report)
		}
	}

	sort.SliceStable(reports, func(i, j int) bool {
		return reports[i].RiskScore > reports[j].RiskScore
	})
	return reports
}

// Summarize aggregates one completed scan run.
func (s *VolumeScanner) Summarize(reports []*domain.ActivityReport) *domain.ScanSummary {
	summary := &domain.ScanSummary{ScanTimestamp: s.timeNow()}
	if len(reports) == 0 {
		return summary
	}

	var totalScore int
	for _, r := range reports {
		totalScore += r.RiskScore
		switch r.ActivityType {
		case domain.ActivityHigh:
			summary.HighRiskCount++
		case domain.ActivityModerate:
			summary.ModerateRiskCount++
		case domain.ActivityLow:
			summary.LowRiskCount++
		}
	}

	summary.TotalAlerts = len(reports)
	summary.AvgRiskScore = math.Round(float64(totalScore)/float64(len(reports))*10) / 10
	summary.TopTicker = reports[0].Ticker
	return summary
}

// IndexTickers returns the symbol list for a major index preset. Unknown
// names fall back to the S&P 500 list.
func IndexTickers(index string) []string {
	switch strings.ToLower(index) {
	case "nasdaq100":
		return []string{
			"AAPL", "MSFT", "GOOGL", "AMZN", "NVDA", "TSLA", "META", "AVGO",
			"COST", "ADBE", "NFLX", "CRM", "TXN", "QCOM", "CMCSA", "HON",
			"AMD", "INTU", "AMGN", "ISRG", "BKNG", "GILD", "ADP", "VRTX",
			"SBUX", "FISV", "CSX", "REGN", "ATVI", "PYPL", "CHTR", "MRNA",
		}
	case "dow30":
		return []string{
			"AAPL", "MSFT", "UNH", "JNJ", "JPM", "V", "PG", "HD", "CVX",
			"MRK", "BAC", "KO", "DIS", "WMT", "CRM", "VZ", "AXP", "IBM",
			"CAT", "GS", "HON", "NKE", "MMM", "TRV", "MCD", "INTC", "WBA", "DOW",
		}
	default:
		return []string{
			"AAPL", "MSFT", "GOOGL", "AMZN", "NVDA", "TSLA", "META", "BRK-B",
			"UNH", "JNJ", "JPM", "V", "PG", "XOM", "HD", "CVX", "MA", "BAC",
			"ABBV", "PFE", "AVGO", "KO", "COST", "DIS", "TMO", "WMT", "DHR",
			"LIN", "VZ", "ABT", "ADBE", "CRM", "NFLX", "CMCSA", "ACN", "NKE",
			"TXN", "RTX", "QCOM", "PM", "HON", "UPS", "NEE", "T", "SPGI",
			"LOW", "IBM", "CAT", "GS", "INTU", "AMD", "AMGN", "ISRG", "CVS",
		}
	}
}
