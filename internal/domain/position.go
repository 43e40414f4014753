package domain

import "time"

type PositionStatus string

const (
	StatusOpen   PositionStatus = "OPEN"
	StatusClosed PositionStatus = "CLOSED"
)

// ContractMultiplier is the share count one option contract controls.
const ContractMultiplier = 100.0

// Position is one open or closed option position. OPEN positions are
// remarked against live data on every read; CLOSED positions are final.
type Position struct {
	ID         int64          `json:"id"`
	Symbol     string         `json:"symbol"`
	Strike     float64        `json:"strike"`
	Expiration time.Time      `json:"-"`
	Type       OptionType     `json:"type"`
	Quantity   int            `json:"quantity"`
	EntryPrice float64        `json:"entry_price"`
	EntryDate  time.Time      `json:"-"`
	Status     PositionStatus `json:"status"`
	ExitPrice  float64        `json:"exit_price,omitempty"`
	ExitDate   time.Time      `json:"-"`

	// Live mark fields, recomputed in full on every refresh.
	CurrentStockPrice  float64 `json:"current_stock_price"`
	CurrentOptionPrice float64 `json:"current_option_price"`
	ImpliedVolatility  float64 `json:"implied_volatility"`
	TimeToExpiration   float64 `json:"time_to_expiration"`
	Greeks             Greeks  `json:"greeks"`
	CostBasis          float64 `json:"cost_basis"`
	CurrentValue       float64 `json:"current_value"`
	UnrealizedPnL      float64 `json:"unrealized_pnl"`
	RealizedPnL        float64 `json:"realized_pnl"`
	PnLPercentage      float64 `json:"pnl_percentage"`
}

// PortfolioGreeks are position-weighted sums over OPEN positions.
type PortfolioGreeks struct {
	Delta float64 `json:"delta"`
	Gamma float64 `json:"gamma"`
	Theta float64 `json:"theta"`
	Vega  float64 `json:"vega"`
}

// PortfolioSummary aggregates the whole portfolio after a refresh.
type PortfolioSummary struct {
	TotalPositions     int             `json:"total_positions"`
	OpenPositions      int             `json:"open_positions"`
	ClosedPositions    int             `json:"closed_positions"`
	TotalCostBasis     float64         `json:"total_cost_basis"`
	TotalCurrentValue  float64         `json:"total_current_value"`
	TotalUnrealizedPnL float64         `json:"total_unrealized_pnl"`
	TotalRealizedPnL   float64         `json:"total_realized_pnl"`
	TotalPnL           float64         `json:"total_pnl"`
	PortfolioGreeks    PortfolioGreeks `json:"portfolio_greeks"`
}

// ScenarioResult is one price-shock/time-decay sweep outcome.
type ScenarioResult struct {
	PriceChange   float64 `json:"price_change"`
	TimeDecayDays float64 `json:"time_decay_days"`
	TotalPnL      float64 `json:"total_pnl"`
}
