package usecase

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/vitos/options_flow/internal/domain"
	"go.uber.org/zap"
)

// DefaultImpliedVolatility is used when no matching contract is quoted.
const DefaultImpliedVolatility = 0.25

// Portfolio owns the mutable position collection. All operations are
// serialized by an internal mutex; every read path re-marks OPEN positions
// against live market data before aggregating. Positions are written
// through to the repository on add and close; live marks stay in memory.
type Portfolio struct {
	market domain.MarketData
	pricer *Pricer
	repo   domain.PositionRepository
	logger *zap.Logger

	mu        sync.Mutex
	positions []*domain.Position
	nextID    int64

	timeNow func() time.Time // For testing
}

func NewPortfolio(market domain.MarketData, pricer *Pricer, repo domain.PositionRepository, logger *zap.Logger) *Portfolio {
	return &Portfolio{
		market:  market,
		pricer:  pricer,
		repo:    repo,
		logger:  logger,
		nextID:  1,
		timeNow: time.Now,
	}
}

// Load restores persisted positions and re-seeds the id counter.
func (p *Portfolio) Load(ctx context.Context) error {
	positions, err := p.repo.ListPositions(ctx)
	if err != nil {
		return fmt.Errorf("load positions: %w", err)
	}
	maxID, err := p.repo.MaxPositionID(ctx)
	if err != nil {
		return fmt.Errorf("load position id: %w", err)
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	p.positions = positions
	p.nextID = maxID + 1
	return nil
}

// AddPosition opens a new position. When entryPrice is nil the contract is
// priced theoretically from the live spot and implied volatility.
func (p *Portfolio) AddPosition(ctx context.Context, symbol string, strike float64, expiration time.Time, typ domain.OptionType, quantity int, entryPrice *float64) (*domain.Position, error) {
	symbol = strings.ToUpper(symbol)

	spot, err := p.market.GetQuote(ctx, symbol)
	if err != nil {
		return nil, fmt.Errorf("fetch quote for %s: %w", symbol, err)
	}

	now := p.timeNow()
	t := yearsToExpiry(expiration, now)
	iv := p.lookupImpliedVolatility(ctx, symbol, strike, expiration, typ)

	entry := 0.0
	if entryPrice != nil {
		entry = *entryPrice
	} else {
		entry = p.pricer.Price(spot, strike, t, iv, typ)
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	pos := &domain.Position{
		ID:                 p.nextID,
		Symbol:             symbol,
		Strike:             strike,
		Expiration:         expiration,
		Type:               typ,
		Quantity:           quantity,
		EntryPrice:         entry,
		EntryDate:          now,
		Status:             domain.StatusOpen,
		CurrentStockPrice:  spot,
		CurrentOptionPrice: entry,
		ImpliedVolatility:  iv,
		TimeToExpiration:   t,
		Greeks:             p.pricer.ComputeGreeks(spot, strike, t, iv, typ),
		CostBasis:          entry * float64(quantity) * domain.ContractMultiplier,
	}

	if err := p.repo.SavePosition(ctx, pos); err != nil {
		return nil, fmt.Errorf("persist position: %w", err)
	}

	p.positions = append(p.positions, pos)
	p.nextID++

	p.logger.Info("position opened",
		zap.Int64("id", pos.ID),
		zap.String("symbol", symbol),
		zap.Float64("strike", strike),
		zap.String("type", string(typ)),
		zap.Int("quantity", quantity),
		zap.Float64("entry_price", entry))

	out := *pos
	return &out, nil
}

// ClosePosition closes the OPEN position with the given id. A nil exitPrice
// triggers a final mark-to-market to supply the theoretical exit. Closing a
// missing or already-closed id returns ErrPositionNotFound.
func (p *Portfolio) ClosePosition(ctx context.Context, id int64, exitPrice *float64) (*domain.Position, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	var pos *domain.Position
	for _, candidate := range p.positions {
		if candidate.ID == id && candidate.Status == domain.StatusOpen {
			pos = candidate
			break
		}
	}
	if pos == nil {
		return nil, domain.ErrPositionNotFound
	}

	exit := 0.0
	if exitPrice != nil {
		exit = *exitPrice
	} else {
		p.refreshLocked(ctx, pos)
		exit = pos.CurrentOptionPrice
		if exit == 0 {
			exit = pos.EntryPrice
		}
	}

	pos.Status = domain.StatusClosed
	pos.ExitPrice = exit
	pos.ExitDate = p.timeNow()
	pos.RealizedPnL = (exit - pos.EntryPrice) * float64(pos.Quantity) * domain.ContractMultiplier

	if err := p.repo.UpdatePosition(ctx, pos); err != nil {
		return nil, fmt.Errorf("persist close: %w", err)
	}

	p.logger.Info("position closed",
		zap.Int64("id", pos.ID),
		zap.Float64("exit_price", exit),
		zap.Float64("realized_pnl", pos.RealizedPnL))

	out := *pos
	return &out, nil
}

// Summary re-marks all OPEN positions and aggregates the portfolio.
func (p *Portfolio) Summary(ctx context.Context) *domain.PortfolioSummary {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.refreshAllLocked(ctx)

	summary := &domain.PortfolioSummary{TotalPositions: len(p.positions)}
	for _, pos := range p.positions {
		if pos.Status == domain.StatusClosed {
			summary.ClosedPositions++
			summary.TotalRealizedPnL += pos.RealizedPnL
			continue
		}
		summary.OpenPositions++
		summary.TotalCostBasis += pos.CostBasis
		summary.TotalCurrentValue += pos.CurrentValue
		summary.TotalUnrealizedPnL += pos.UnrealizedPnL

		qty := float64(pos.Quantity)
		summary.PortfolioGreeks.Delta += pos.Greeks.Delta * qty
		summary.PortfolioGreeks.Gamma += pos.Greeks.Gamma * qty
		summary.PortfolioGreeks.Theta += pos.Greeks.Theta * qty
		summary.PortfolioGreeks.Vega += pos.Greeks.Vega * qty
	}
	summary.TotalPnL = summary.TotalUnrealizedPnL + summary.TotalRealizedPnL
	return summary
}

// PositionsData re-marks OPEN positions and returns a copy of all rows.
func (p *Portfolio) PositionsData(ctx context.Context) []domain.Position {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.refreshAllLocked(ctx)

	out := make([]domain.Position, 0, len(p.positions))
	for _, pos := range p.positions {
		out = append(out, *pos)
	}
	return out
}

// ScenarioAnalysis sweeps price shocks and time decay over the OPEN
// positions. Implied volatility is held fixed per position across all
// shocks; there is no smile or skew response. Results preserve the input
// shock order.
func (p *Portfolio) ScenarioAnalysis(ctx context.Context, priceShocks []float64, timeDecayDays float64) []domain.ScenarioResult {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.refreshAllLocked(ctx)

	results := make([]domain.ScenarioResult, 0, len(priceShocks))
	for _, shock := range priceShocks {
		var totalPnL float64
		for _, pos := range p.positions {
			if pos.Status == domain.StatusClosed {
				continue
			}

			shockedSpot := pos.CurrentStockPrice * (1 + shock/100)
			shockedT := pos.TimeToExpiration - timeDecayDays/365
			if shockedT < 0 {
				shockedT = 0
			}

			price := p.pricer.Price(shockedSpot, pos.Strike, shockedT, pos.ImpliedVolatility, pos.Type)
			totalPnL += (price - pos.EntryPrice) * float64(pos.Quantity) * domain.ContractMultiplier
		}
		results = append(results, domain.ScenarioResult{
			PriceChange:   shock,
			TimeDecayDays: timeDecayDays,
			TotalPnL:      totalPnL,
		})
	}
	return results
}

func (p *Portfolio) refreshAllLocked(ctx context.Context) {
	for _, pos := range p.positions {
		if pos.Status != domain.StatusOpen {
			continue
		}
		p.refreshLocked(ctx, pos)
	}
}

// refreshLocked recomputes every live mark field of one OPEN position.
// Market-data failures leave the previous mark in place.
func (p *Portfolio) refreshLocked(ctx context.Context, pos *domain.Position) {
	spot, err := p.market.GetQuote(ctx, pos.Symbol)
	if err != nil {
		p.logger.Warn("refresh skipped, quote unavailable",
			zap.Int64("id", pos.ID), zap.String("symbol", pos.Symbol), zap.Error(err))
		return
	}

	t := yearsToExpiry(pos.Expiration, p.timeNow())
	iv := p.lookupImpliedVolatility(ctx, pos.Symbol, pos.Strike, pos.Expiration, pos.Type)
	price := p.pricer.Price(spot, pos.Strike, t, iv, pos.Type)

	pos.CurrentStockPrice = spot
	pos.TimeToExpiration = t
	pos.ImpliedVolatility = iv
	pos.CurrentOptionPrice = price
	pos.Greeks = p.pricer.ComputeGreeks(spot, pos.Strike, t, iv, pos.Type)
	pos.CurrentValue = price * float64(pos.Quantity) * domain.ContractMultiplier
	pos.UnrealizedPnL = (price - pos.EntryPrice) * float64(pos.Quantity) * domain.ContractMultiplier
	if pos.EntryPrice > 0 {
		pos.PnLPercentage = (price - pos.EntryPrice) / pos.EntryPrice * 100
	} else {
		pos.PnLPercentage = 0
	}
}

// lookupImpliedVolatility finds the quoted IV for the matching strike in
// the live chain, falling back to DefaultImpliedVolatility.
func (p *Portfolio) lookupImpliedVolatility(ctx context.Context, symbol string, strike float64, expiration time.Time, typ domain.OptionType) float64 {
	snap, err := p.market.GetChainSnapshot(ctx, symbol)
	if err != nil {
		return DefaultImpliedVolatility
	}

	contracts := snap.Calls
	if typ == domain.OptionPut {
		contracts = snap.Puts
	}

	for exp, bucket := range contracts {
		if exp.Format(domain.DateFormat) != expiration.Format(domain.DateFormat) {
			continue
		}
		for _, c := range bucket {
			if c.Strike == strike {
				if c.ImpliedVolatility > 0 {
					return c.ImpliedVolatility
				}
				return DefaultImpliedVolatility
			}
		}
	}
	return DefaultImpliedVolatility
}

func yearsToExpiry(expiration, now time.Time) float64 {
	t := expiration.Sub(now).Hours() / 24 / 365
	if t < 0 {
		return 0
	}
	return t
}
