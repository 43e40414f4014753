package usecase

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vitos/options_flow/internal/domain"
	"go.uber.org/zap"
)

func flatBars(n int, price, volume float64) []domain.Candle {
	bars := make([]domain.Candle, 0, n)
	start := time.Date(2026, 7, 1, 0, 0, 0, 0, time.UTC)
	for i := 0; i < n; i++ {
		bars = append(bars, domain.Candle{
			Time:   start.AddDate(0, 0, i),
			Open:   price,
			High:   price,
			Low:    price,
			Close:  price,
			Volume: volume,
		})
	}
	return bars
}

func newTestScanner(market domain.MarketData) *VolumeScanner {
	return NewVolumeScanner(market, DefaultScannerConfig(), zap.NewNop())
}

func TestCalculateVolumeMetrics(t *testing.T) {
	bars := flatBars(25, 100, 1_000_000)
	bars[len(bars)-1].Volume = 3_500_000

	scanner := newTestScanner(&MockMarketData{Bars: bars})
	metrics, err := scanner.CalculateVolumeMetrics(context.Background(), "AAPL")
	require.NoError(t, err)

	assert.Equal(t, int64(3_500_000), metrics.CurrentVolume)
	assert.Equal(t, int64(1_000_000), metrics.AverageVolume)
	assert.InDelta(t, 3.5, metrics.VolumeSpikeRatio, 1e-9)
	assert.InDelta(t, 0.0, metrics.PriceChangePct, 1e-9)
	assert.InDelta(t, 100.0, metrics.VWAP, 1e-9)
	assert.InDelta(t, 0.0, metrics.VWAPDeviation, 1e-9)
}

func TestCalculateVolumeMetrics_ShortSeries(t *testing.T) {
	scanner := newTestScanner(&MockMarketData{Bars: flatBars(5, 100, 1_000_000)})

	_, err := scanner.CalculateVolumeMetrics(context.Background(), "AAPL")
	assert.Error(t, err)
}

func TestDetectUnusualActivity_ComposedSignals(t *testing.T) {
	scanner := newTestScanner(&MockMarketData{})

	// Spike (30) + volume/price divergence (25) + block size (20) = 75.
	metrics := &domain.VolumeMetrics{
		Ticker:           "AAPL",
		CurrentVolume:    3_500_000,
		AverageVolume:    1_000_000,
		VolumeSpikeRatio: 3.5,
		PriceChangePct:   0.01,
		CurrentPrice:     100,
		VWAP:             100,
		VWAPDeviation:    0,
	}

	report := scanner.DetectUnusualActivity(metrics)
	assert.Equal(t, 75, report.RiskScore)
	assert.Equal(t, domain.ActivityHigh, report.ActivityType)
	assert.Equal(t, 3, report.AlertCount)
}

func TestDetectUnusualActivity_MomentumAndVWAP(t *testing.T) {
	scanner := newTestScanner(&MockMarketData{})

	// VWAP deviation (15) + momentum with volume (25) = 40.
	metrics := &domain.VolumeMetrics{
		Ticker:           "TSLA",
		CurrentVolume:    50_000,
		AverageVolume:    20_000,
		VolumeSpikeRatio: 2.5,
		PriceChangePct:   4.2,
		CurrentPrice:     250,
		VWAP:             240,
		VWAPDeviation:    4.17,
	}

	report := scanner.DetectUnusualActivity(metrics)
	assert.Equal(t, 40, report.RiskScore)
	assert.Equal(t, domain.ActivityModerate, report.ActivityType)
}

func TestDetectUnusualActivity_QuietSymbol(t *testing.T) {
	scanner := newTestScanner(&MockMarketData{})

	metrics := &domain.VolumeMetrics{
		Ticker:           "KO",
		CurrentVolume:    50_000,
		AverageVolume:    60_000,
		VolumeSpikeRatio: 0.83,
		PriceChangePct:   2.5,
		CurrentPrice:     60,
		VWAP:             60.1,
		VWAPDeviation:    -0.17,
	}

	report := scanner.DetectUnusualActivity(metrics)
	assert.Equal(t, 0, report.RiskScore)
	assert.Equal(t, domain.ActivityNormal, report.ActivityType)
	assert.Empty(t, report.Alerts)
}

func TestScan_ReportsProgressAndSorts(t *testing.T) {
	bars := flatBars(25, 100, 1_000_000)
	bars[len(bars)-1].Volume = 3_500_000

	scanner := newTestScanner(&MockMarketData{Bars: bars})

	var progress []string
	reports := scanner.Scan(context.Background(), []string{"AAPL", "MSFT"}, func(p string) {
		progress = append(progress, p)
	})

	require.Len(t, reports, 2)
	assert.Len(t, progress, 2)
	assert.GreaterOrEqual(t, reports[0].RiskScore, reports[1].RiskScore)

	summary := scanner.Summarize(reports)
	assert.Equal(t, 2, summary.TotalAlerts)
	assert.Equal(t, 2, summary.HighRiskCount)
	assert.Equal(t, reports[0].Ticker, summary.TopTicker)
}

func TestSummarize_Empty(t *testing.T) {
	scanner := newTestScanner(&MockMarketData{})

	summary := scanner.Summarize(nil)
	assert.Zero(t, summary.TotalAlerts)
	assert.Zero(t, summary.AvgRiskScore)
	assert.Empty(t, summary.TopTicker)
}
