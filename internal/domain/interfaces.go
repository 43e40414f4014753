package domain

import (
	"context"
	"errors"
	"time"
)

var (
	// ErrNoOptionsData means the symbol has no listed option chain.
	ErrNoOptionsData = errors.New("no options data available")
	// ErrPositionNotFound means no OPEN position matches the given id.
	ErrPositionNotFound = errors.New("position not found")
	// ErrScanInProgress means a scan of that kind is already running.
	ErrScanInProgress = errors.New("scan already in progress")
)

// MarketData is the snapshot provider boundary. Implementations own all
// network I/O; the analytics core only sees fully materialized values.
type MarketData interface {
	GetQuote(ctx context.Context, symbol string) (float64, error)
	GetChainSnapshot(ctx context.Context, symbol string) (*ChainSnapshot, error)
	GetDailyBars(ctx context.Context, symbol string, days int) ([]Candle, error)
}

// PositionRepository persists portfolio positions.
type PositionRepository interface {
	SavePosition(ctx context.Context, p *Position) error
	UpdatePosition(ctx context.Context, p *Position) error
	ListPositions(ctx context.Context) ([]*Position, error)
	MaxPositionID(ctx context.Context) (int64, error)
}

// ScanRepository persists completed equity scan reports.
type ScanRepository interface {
	SaveReports(ctx context.Context, ranAt time.Time, reports []*ActivityReport) error
	ListReports(ctx context.Context, limit int) ([]*ActivityReport, error)
}
