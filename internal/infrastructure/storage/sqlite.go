package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"github.com/vitos/options_flow/internal/domain"
)

type SQLiteStore struct {
	db *sql.DB
}

func NewSQLiteStore(dbPath string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return nil, err
	}

	store := &SQLiteStore{db: db}
	if err := store.initSchema(); err != nil {
		return nil, err
	}

	return store, nil
}

func (s *SQLiteStore) initSchema() error {
	queries := []string{
		`CREATE TABLE IF NOT EXISTS positions (
			id INTEGER PRIMARY KEY,
			symbol TEXT NOT NULL,
			strike REAL NOT NULL,
			expiration DATETIME NOT NULL,
			type TEXT NOT NULL,
			quantity INTEGER NOT NULL,
			entry_price REAL NOT NULL,
			entry_date DATETIME NOT NULL,
			status TEXT NOT NULL,
			exit_price REAL,
			exit_date DATETIME,
			realized_pnl REAL NOT NULL DEFAULT 0,
			cost_basis REAL NOT NULL DEFAULT 0
		);`,
		`CREATE INDEX IF NOT EXISTS idx_positions_status ON positions(status);`,
		`CREATE TABLE IF NOT EXISTS scan_reports (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			ran_at DATETIME NOT NULL,
			ticker TEXT NOT NULL,
			current_volume INTEGER NOT NULL,
			avg_volume INTEGER NOT NULL,
			volume_spike_ratio REAL NOT NULL,
			price_change_pct REAL NOT NULL,
			current_price REAL NOT NULL,
			vwap REAL NOT NULL,
			vwap_deviation REAL NOT NULL,
			alerts TEXT NOT NULL,
			risk_score INTEGER NOT NULL,
			activity_type TEXT NOT NULL
		);`,
		`CREATE INDEX IF NOT EXISTS idx_scan_reports_ran_at ON scan_reports(ran_at);`,
	}

	for _, q := range queries {
		if _, err := s.db.Exec(q); err != nil {
			return fmt.Errorf("failed to exec query %s: %w", q, err)
		}
	}

	return nil
}

func (s *SQLiteStore) SavePosition(ctx context.Context, p *domain.Position) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO positions (id, symbol, strike, expiration, type, quantity, entry_price, entry_date, status, exit_price, exit_date, realized_pnl, cost_basis)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		p.ID, p.Symbol, p.Strike, p.Expiration, string(p.Type), p.Quantity,
		p.EntryPrice, p.EntryDate, string(p.Status),
		nullFloat(p.ExitPrice, p.Status), nullTime(p.ExitDate),
		p.RealizedPnL, p.CostBasis)
	return err
}

func (s *SQLiteStore) UpdatePosition(ctx context.Context, p *domain.Position) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE positions SET status = ?, exit_price = ?, exit_date = ?, realized_pnl = ? WHERE id = ?`,
		string(p.Status), nullFloat(p.ExitPrice, p.Status), nullTime(p.ExitDate), p.RealizedPnL, p.ID)
	if err != nil {
		return err
	}
	rows, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if rows == 0 {
		return domain.ErrPositionNotFound
	}
	return nil
}

func (s *SQLiteStore) ListPositions(ctx context.Context) ([]*domain.Position, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, symbol, strike, expiration, type, quantity, entry_price, entry_date, status, exit_price, exit_date, realized_pnl, cost_basis
		 FROM positions ORDER BY id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var positions []*domain.Position
	for rows.Next() {
		var (
			p         domain.Position
			typ       string
			status    string
			exitPrice sql.NullFloat64
			exitDate  sql.NullTime
		)
		if err := rows.Scan(&p.ID, &p.Symbol, &p.Strike, &p.Expiration, &typ, &p.Quantity,
			&p.EntryPrice, &p.EntryDate, &status, &exitPrice, &exitDate,
			&p.RealizedPnL, &p.CostBasis); err != nil {
			return nil, err
		}
		p.Type = domain.OptionType(typ)
		p.Status = domain.PositionStatus(status)
		if exitPrice.Valid {
			p.ExitPrice = exitPrice.Float64
		}
		if exitDate.Valid {
			p.ExitDate = exitDate.Time
		}
		positions = append(positions, &p)
	}
	return positions, rows.Err()
}

func (s *SQLiteStore) MaxPositionID(ctx context.Context) (int64, error) {
	var id sql.NullInt64
	if err := s.db.QueryRowContext(ctx, `SELECT MAX(id) FROM positions`).Scan(&id); err != nil {
		return 0, err
	}
	return id.Int64, nil
}

func (s *SQLiteStore) SaveReports(ctx context.Context, ranAt time.Time, reports []*domain.ActivityReport) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx,
		`INSERT INTO scan_reports (ran_at, ticker, current_volume, avg_volume, volume_spike_ratio, price_change_pct, current_price, vwap, vwap_deviation, alerts, risk_score, activity_type)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return err
	}
	defer stmt.Close()

	for _, r := range reports {
		alerts, err := json.Marshal(r.Alerts)
		if err != nil {
			return err
		}
		if _, err := stmt.ExecContext(ctx, ranAt, r.Ticker, r.CurrentVolume, r.AverageVolume,
			r.VolumeSpikeRatio, r.PriceChangePct, r.CurrentPrice, r.VWAP, r.VWAPDeviation,
			string(alerts), r.RiskScore, string(r.ActivityType)); err != nil {
			return err
		}
	}
	return tx.Commit()
}

func (s *SQLiteStore) ListReports(ctx context.Context, limit int) ([]*domain.ActivityReport, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT ran_at, ticker, current_volume, avg_volume, volume_spike_ratio, price_change_pct, current_price, vwap, vwap_deviation, alerts, risk_score, activity_type
		 FROM scan_reports ORDER BY ran_at DESC, risk_score DESC LIMIT ?`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var reports []*domain.ActivityReport
	for rows.Next() {
		var (
			r        domain.ActivityReport
			alerts   string
			activity string
		)
		if err := rows.Scan(&r.Timestamp, &r.Ticker, &r.CurrentVolume, &r.AverageVolume,
			&r.VolumeSpikeRatio, &r.PriceChangePct, &r.CurrentPrice, &r.VWAP, &r.VWAPDeviation,
			&alerts, &r.RiskScore, &activity); err != nil {
			return nil, err
		}
		if err := json.Unmarshal([]byte(alerts), &r.Alerts); err != nil {
			r.Alerts = []string{}
		}
		r.ActivityType = domain.ActivityLevel(activity)
		r.AlertCount = len(r.Alerts)
		reports = append(reports, &r)
	}
	return reports, rows.Err()
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func nullFloat(v float64, status domain.PositionStatus) any {
	if status != domain.StatusClosed {
		return nil
	}
	return v
}

func nullTime(t time.Time) any {
	if t.IsZero() {
		return nil
	}
	return t
}
