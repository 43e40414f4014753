package usecase_test

import (
	"math"
	"testing"

	"github.com/vitos/options_flow/internal/domain"
	"github.com/vitos/options_flow/internal/usecase"
)

func closeTo(a, b, tolerance float64) bool {
	return math.Abs(a-b) <= tolerance
}

func TestPrice_ReferenceValue(t *testing.T) {
	pricer := usecase.NewPricer()

	// S=100, K=100, T=0.25y, r=0.05, sigma=0.2
	call := pricer.Price(100, 100, 0.25, 0.2, domain.OptionCall)
	if !closeTo(call, 4.615, 0.01) {
		t.Errorf("call price = %f, want ~4.615", call)
	}

	greeks := pricer.ComputeGreeks(100, 100, 0.25, 0.2, domain.OptionCall)
	if !closeTo(greeks.Delta, 0.569, 0.01) {
		t.Errorf("call delta = %f, want ~0.569", greeks.Delta)
	}
}

func TestPrice_PutCallParity(t *testing.T) {
	pricer := usecase.NewPricer()

	tests := []struct {
		name         string
		spot, strike float64
		t, sigma     float64
	}{
		{"ATM", 100, 100, 0.25, 0.2},
		{"ITM call", 120, 100, 0.5, 0.3},
		{"OTM call", 80, 100, 1.0, 0.4},
		{"short dated", 55, 50, 0.02, 0.6},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			call := pricer.Price(tt.spot, tt.strike, tt.t, tt.sigma, domain.OptionCall)
			put := pricer.Price(tt.spot, tt.strike, tt.t, tt.sigma, domain.OptionPut)

			want := tt.spot - tt.strike*math.Exp(-usecase.RiskFreeRate*tt.t)
			if !closeTo(call-put, want, 0.02) {
				t.Errorf("parity violated: call-put = %f, want %f", call-put, want)
			}
		})
	}
}

func TestPrice_ExpiryCollapsesToIntrinsic(t *testing.T) {
	pricer := usecase.NewPricer()

	tests := []struct {
		name string
		spot float64
		typ  domain.OptionType
		want float64
	}{
		{"ITM call", 110, domain.OptionCall, 10},
		{"OTM call", 90, domain.OptionCall, 0},
		{"ITM put", 90, domain.OptionPut, 10},
		{"OTM put", 110, domain.OptionPut, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := pricer.Price(tt.spot, 100, 0, 0.2, tt.typ)
			if got != tt.want {
				t.Errorf("Price at expiry = %f, want %f", got, tt.want)
			}

			greeks := pricer.ComputeGreeks(tt.spot, 100, 0, 0.2, tt.typ)
			if greeks != (domain.Greeks{}) {
				t.Errorf("Greeks at expiry = %+v, want all zero", greeks)
			}
		})
	}
}

func TestPrice_FloorAndVolatilityClamp(t *testing.T) {
	pricer := usecase.NewPricer()

	// Deep OTM with tiny vol still prices at the minimum tick.
	price := pricer.Price(100, 500, 0.01, 0.0001, domain.OptionCall)
	if price < usecase.MinPrice {
		t.Errorf("price %f below minimum tick", price)
	}

	// Zero and negative sigma are clamped, not rejected.
	for _, sigma := range []float64{0, -1} {
		price := pricer.Price(100, 100, 0.25, sigma, domain.OptionCall)
		if math.IsNaN(price) || price < usecase.MinPrice {
			t.Errorf("sigma=%f: price %f, want clamped positive value", sigma, price)
		}
	}
}

func TestComputeGreeks_DeltaBounds(t *testing.T) {
	pricer := usecase.NewPricer()

	for _, spot := range []float64{50, 80, 100, 120, 200} {
		for _, sigma := range []float64{0.1, 0.3, 0.8} {
			callDelta := pricer.ComputeGreeks(spot, 100, 0.5, sigma, domain.OptionCall).Delta
			if callDelta < 0 || callDelta > 1 {
				t.Errorf("call delta %f out of [0,1] (spot=%f sigma=%f)", callDelta, spot, sigma)
			}

			putDelta := pricer.ComputeGreeks(spot, 100, 0.5, sigma, domain.OptionPut).Delta
			if putDelta < -1 || putDelta > 0 {
				t.Errorf("put delta %f out of [-1,0] (spot=%f sigma=%f)", putDelta, spot, sigma)
			}
		}
	}
}

func TestComputeGreeks_PutCallDeltaRelation(t *testing.T) {
	pricer := usecase.NewPricer()

	call := pricer.ComputeGreeks(100, 105, 0.5, 0.25, domain.OptionCall)
	put := pricer.ComputeGreeks(100, 105, 0.5, 0.25, domain.OptionPut)

	// Put delta is N(d1) - 1; gamma and vega are shared.
	if !closeTo(put.Delta, call.Delta-1, 1e-9) {
		t.Errorf("put delta = %f, want call delta - 1 = %f", put.Delta, call.Delta-1)
	}
	if !closeTo(put.Gamma, call.Gamma, 1e-9) || !closeTo(put.Vega, call.Vega, 1e-9) {
		t.Error("gamma/vega should match between call and put")
	}
}
