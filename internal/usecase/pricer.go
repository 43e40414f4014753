package usecase

import (
	"math"

	"github.com/vitos/options_flow/internal/domain"
)

// RiskFreeRate is the annualized rate used for all valuations.
const RiskFreeRate = 0.05

// MinVolatility is the clamp applied to zero or negative implied vols.
const MinVolatility = 0.01

// MinPrice is the tick floor for any theoretical option price.
const MinPrice = 0.01

// Pricer values single option contracts with the Black-Scholes closed
// form. It is stateless and total: degenerate inputs degrade to the
// intrinsic value or zero Greeks instead of failing.
type Pricer struct{}

func NewPricer() *Pricer {
	return &Pricer{}
}

// Price returns the theoretical value of a contract. At or past expiry
// (T <= 0) it collapses to intrinsic value. The result is floored at
// MinPrice and never NaN.
func (p *Pricer) Price(spot, strike, yearsToExpiry, sigma float64, typ domain.OptionType) float64 {
	if yearsToExpiry <= 0 {
		return intrinsicValue(spot, strike, typ)
	}
	if sigma <= 0 {
		sigma = MinVolatility
	}
	if spot <= 0 || strike <= 0 {
		return MinPrice
	}

	d1, d2 := dValues(spot, strike, yearsToExpiry, sigma)
	discount := math.Exp(-RiskFreeRate * yearsToExpiry)

	var price float64
	if typ == domain.OptionCall {
		price = spot*normCDF(d1) - strike*discount*normCDF(d2)
	} else {
		price = strike*discount*normCDF(-d2) - spot*normCDF(-d1)
	}

	if math.IsNaN(price) || math.IsInf(price, 0) || price < MinPrice {
		return MinPrice
	}
	return price
}

// ComputeGreeks returns delta, gamma, theta, vega and rho for a contract.
// Theta is quoted per calendar day, vega and rho per 1% move. Expired or
// degenerate inputs yield zero Greeks.
func (p *Pricer) ComputeGreeks(spot, strike, yearsToExpiry, sigma float64, typ domain.OptionType) domain.Greeks {
	if yearsToExpiry <= 0 || sigma <= 0 || spot <= 0 || strike <= 0 {
		return domain.Greeks{}
	}

	d1, d2 := dValues(spot, strike, yearsToExpiry, sigma)
	sqrtT := math.Sqrt(yearsToExpiry)
	discount := math.Exp(-RiskFreeRate * yearsToExpiry)
	pdfD1 := normPDF(d1)

	g := domain.Greeks{
		Gamma: pdfD1 / (spot * sigma * sqrtT),
		Vega:  spot * pdfD1 * sqrtT / 100,
	}

	if typ == domain.OptionCall {
		g.Delta = normCDF(d1)
		g.Rho = strike * yearsToExpiry * discount * normCDF(d2) / 100
		g.Theta = (-spot*pdfD1*sigma/(2*sqrtT) - RiskFreeRate*strike*discount*normCDF(d2)) / 365
	} else {
		g.Delta = normCDF(d1) - 1
		g.Rho = -strike * yearsToExpiry * discount * normCDF(-d2) / 100
		g.Theta = (-spot*pdfD1*sigma/(2*sqrtT) + RiskFreeRate*strike*discount*normCDF(-d2)) / 365
	}

	if math.IsNaN(g.Delta) || math.IsNaN(g.Gamma) || math.IsNaN(g.Theta) ||
		math.IsNaN(g.Vega) || math.IsNaN(g.Rho) {
		return domain.Greeks{}
	}
	return g
}

func dValues(spot, strike, t, sigma float64) (d1, d2 float64) {
	d1 = (math.Log(spot/strike) + (RiskFreeRate+0.5*sigma*sigma)*t) / (sigma * math.Sqrt(t))
	d2 = d1 - sigma*math.Sqrt(t)
	return d1, d2
}

func intrinsicValue(spot, strike float64, typ domain.OptionType) float64 {
	if typ == domain.OptionCall {
		return math.Max(spot-strike, 0)
	}
	return math.Max(strike-spot, 0)
}

func normCDF(x float64) float64 {
	return 0.5 * (1 + math.Erf(x/math.Sqrt2))
}

func normPDF(x float64) float64 {
	return math.Exp(-0.5*x*x) / math.Sqrt(2*math.Pi)
}
