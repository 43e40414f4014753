package usecase_test

import (
	"testing"

	"github.com/vitos/options_flow/internal/domain"
	"github.com/vitos/options_flow/internal/usecase"
)

func TestSpikeRule_Evaluate(t *testing.T) {
	rule := usecase.SpikeRule{Multiplier: 3.0, MinSize: 100, Points: 30}

	tests := []struct {
		name       string
		value      float64
		baseline   float64
		wantFlag   bool
		wantPoints int
	}{
		{"clear spike", 600, 150, true, 30},
		{"exactly at multiple", 450, 150, true, 30},
		{"below multiple", 400, 150, false, 0},
		{"spike but under min size", 90, 20, false, 0},
		{"zero baseline never triggers", 1000, 0, false, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			flag, points := rule.Evaluate(tt.value, tt.baseline)
			if flag != tt.wantFlag || points != tt.wantPoints {
				t.Errorf("Evaluate(%f, %f) = (%v, %d), want (%v, %d)",
					tt.value, tt.baseline, flag, points, tt.wantFlag, tt.wantPoints)
			}
		})
	}
}

func TestClassifyScore(t *testing.T) {
	tests := []struct {
		score int
		want  domain.ActivityLevel
	}{
		{0, domain.ActivityNormal},
		{9, domain.ActivityNormal},
		{10, domain.ActivityLow},
		{24, domain.ActivityLow},
		{25, domain.ActivityModerate},
		{49, domain.ActivityModerate},
		{50, domain.ActivityHigh},
		{115, domain.ActivityHigh},
	}

	for _, tt := range tests {
		if got := usecase.ClassifyScore(tt.score); got != tt.want {
			t.Errorf("ClassifyScore(%d) = %v, want %v", tt.score, got, tt.want)
		}
	}
}

func TestPercentile(t *testing.T) {
	tests := []struct {
		name   string
		values []float64
		pct    float64
		want   float64
	}{
		{"empty", nil, 95, 0},
		{"single value", []float64{42}, 95, 42},
		{"median", []float64{1, 2, 3, 4, 5}, 50, 3},
		{"interpolated", []float64{0, 10}, 25, 2.5},
		{"p100 is max", []float64{3, 1, 2}, 100, 3},
		{"unsorted input", []float64{5, 1, 3}, 0, 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := usecase.Percentile(tt.values, tt.pct)
			if !closeTo(got, tt.want, 1e-9) {
				t.Errorf("Percentile(%v, %f) = %f, want %f", tt.values, tt.pct, got, tt.want)
			}
		})
	}
}
