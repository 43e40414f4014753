package web

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/vitos/options_flow/internal/domain"
	"github.com/vitos/options_flow/internal/usecase"
	"go.uber.org/zap"
)

const volumeScanKind = "volume"

func (s *Server) writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		s.logger.Error("Failed to encode response", zap.Error(err))
	}
}

func (s *Server) writeError(w http.ResponseWriter, status int, msg string) {
	s.writeJSON(w, status, map[string]string{"error": msg})
}

func (s *Server) handleOptionsChain(w http.ResponseWriter, r *http.Request) {
	symbol := r.PathValue("symbol")

	snapshot, err := s.market.GetChainSnapshot(r.Context(), symbol)
	if err != nil {
		if errors.Is(err, domain.ErrNoOptionsData) {
			s.writeError(w, http.StatusNotFound, "No options data available for this symbol")
			return
		}
		s.logger.Error("Failed to fetch chain", zap.String("symbol", symbol), zap.Error(err))
		s.writeError(w, http.StatusInternalServerError, "Failed to fetch options chain")
		return
	}

	s.writeJSON(w, http.StatusOK, s.analyzer.Analyze(snapshot))
}

type addPositionRequest struct {
	Symbol     string   `json:"symbol"`
	Strike     float64  `json:"strike"`
	Expiration string   `json:"expiration"`
	Type       string   `json:"type"`
	Quantity   int      `json:"quantity"`
	EntryPrice *float64 `json:"entry_price"`
}

func (s *Server) handleAddPosition(w http.ResponseWriter, r *http.Request) {
	var req addPositionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	if req.Symbol == "" || req.Strike <= 0 || req.Quantity == 0 {
		s.writeError(w, http.StatusBadRequest, "symbol, strike and quantity are required")
		return
	}

	typ, ok := parseOptionType(req.Type)
	if !ok {
		s.writeError(w, http.StatusBadRequest, "type must be CALL or PUT")
		return
	}

	expiration, err := time.Parse(domain.DateFormat, req.Expiration)
	if err != nil {
		s.writeError(w, http.StatusBadRequest, "expiration must be YYYY-MM-DD")
		return
	}

	position, err := s.portfolio.AddPosition(r.Context(), req.Symbol, req.Strike, expiration, typ, req.Quantity, req.EntryPrice)
	if err != nil {
		s.logger.Error("Failed to add position", zap.Error(err))
		s.writeError(w, http.StatusInternalServerError, "Failed to add position")
		return
	}

	s.writeJSON(w, http.StatusCreated, positionView(position))
}

type closePositionRequest struct {
	ExitPrice *float64 `json:"exit_price"`
}

func (s *Server) handleClosePosition(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil {
		s.writeError(w, http.StatusBadRequest, "Invalid position id")
		return
	}

	var req closePositionRequest
	if r.Body != nil && r.ContentLength != 0 {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			s.writeError(w, http.StatusBadRequest, "Invalid request body")
			return
		}
	}

	position, err := s.portfolio.ClosePosition(r.Context(), id, req.ExitPrice)
	if err != nil {
		if errors.Is(err, domain.ErrPositionNotFound) {
			s.writeError(w, http.StatusNotFound, "Position not found")
			return
		}
		s.logger.Error("Failed to close position", zap.Int64("id", id), zap.Error(err))
		s.writeError(w, http.StatusInternalServerError, "Failed to close position")
		return
	}

	s.writeJSON(w, http.StatusOK, positionView(position))
}

func (s *Server) handleListPositions(w http.ResponseWriter, r *http.Request) {
	positions := s.portfolio.PositionsData(r.Context())

	views := make([]map[string]any, 0, len(positions))
	for i := range positions {
		views = append(views, positionView(&positions[i]))
	}
	s.writeJSON(w, http.StatusOK, views)
}

func (s *Server) handlePortfolioSummary(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, s.portfolio.Summary(r.Context()))
}

type scenarioRequest struct {
	PriceChanges  []float64 `json:"price_changes"`
	TimeDecayDays float64   `json:"time_decay_days"`
}

func (s *Server) handleScenarios(w http.ResponseWriter, r *http.Request) {
	var req scenarioRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if len(req.PriceChanges) == 0 {
		req.PriceChanges = []float64{-20, -10, -5, 0, 5, 10, 20}
	}

	s.writeJSON(w, http.StatusOK, s.portfolio.ScenarioAnalysis(r.Context(), req.PriceChanges, req.TimeDecayDays))
}

type volumeScanRequest struct {
	Symbols []string `json:"symbols"`
	Index   string   `json:"index"`
}

type volumeScanResult struct {
	Reports []*domain.ActivityReport `json:"reports"`
	Summary *domain.ScanSummary      `json:"summary"`
}

func (s *Server) handleStartVolumeScan(w http.ResponseWriter, r *http.Request) {
	var req volumeScanRequest
	if r.Body != nil && r.ContentLength != 0 {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			s.writeError(w, http.StatusBadRequest, "Invalid request body")
			return
		}
	}

	symbols := req.Symbols
	if len(symbols) == 0 {
		symbols = usecase.IndexTickers(req.Index)
	}

	// The scan outlives the request.
	err := s.supervisor.Start(context.Background(), volumeScanKind, func(ctx context.Context, report func(string)) (any, error) {
		reports := s.scanner.Scan(ctx, symbols, report)
		if err := s.scanRepo.SaveReports(ctx, time.Now(), reports); err != nil {
			s.logger.Warn("Failed to persist scan reports", zap.Error(err))
		}
		return &volumeScanResult{Reports: reports, Summary: s.scanner.Summarize(reports)}, nil
	})
	if err != nil {
		if errors.Is(err, domain.ErrScanInProgress) {
			s.writeError(w, http.StatusConflict, "Scan already in progress")
			return
		}
		s.logger.Error("Failed to start scan", zap.Error(err))
		s.writeError(w, http.StatusInternalServerError, "Failed to start scan")
		return
	}

	s.writeJSON(w, http.StatusAccepted, map[string]any{
		"message": "Scan started",
		"symbols": len(symbols),
	})
}

func (s *Server) handleVolumeScanStatus(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, s.supervisor.Status(volumeScanKind))
}

func (s *Server) handleVolumeScanResults(w http.ResponseWriter, r *http.Request) {
	if result, ok := s.supervisor.Result(volumeScanKind); ok {
		s.writeJSON(w, http.StatusOK, result)
		return
	}

	// No completed in-memory run; fall back to persisted history.
	reports, err := s.scanRepo.ListReports(r.Context(), 100)
	if err != nil {
		s.logger.Error("Failed to list scan reports", zap.Error(err))
		s.writeError(w, http.StatusInternalServerError, "Failed to load scan results")
		return
	}
	s.writeJSON(w, http.StatusOK, &volumeScanResult{Reports: reports, Summary: s.scanner.Summarize(reports)})
}

func parseOptionType(raw string) (domain.OptionType, bool) {
	switch domain.OptionType(strings.ToUpper(raw)) {
	case domain.OptionCall:
		return domain.OptionCall, true
	case domain.OptionPut:
		return domain.OptionPut, true
	default:
		return "", false
	}
}

// positionView augments the JSON shape with the date fields that carry
// the wire format.
func positionView(p *domain.Position) map[string]any {
	view := map[string]any{}
	raw, _ := json.Marshal(p)
	_ = json.Unmarshal(raw, &view)

	view["expiration"] = p.Expiration.Format(domain.DateFormat)
	view["entry_date"] = p.EntryDate.Format(domain.DateFormat)
	if p.Status == domain.StatusClosed {
		view["exit_date"] = p.ExitDate.Format(domain.DateFormat)
	}
	return view
}
