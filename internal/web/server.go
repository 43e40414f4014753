package web

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/gorilla/websocket"
	"github.com/vitos/options_flow/internal/domain"
	"github.com/vitos/options_flow/internal/usecase"
	"go.uber.org/zap"
)

// markInterval is how often the portfolio stream re-marks and broadcasts.
const markInterval = 10 * time.Second

type Server struct {
	router     *http.ServeMux
	server     *http.Server
	market     domain.MarketData
	analyzer   *usecase.ChainAnalyzer
	portfolio  *usecase.Portfolio
	scanner    *usecase.VolumeScanner
	supervisor *usecase.Supervisor
	scanRepo   domain.ScanRepository
	hub        *Hub
	upgrader   websocket.Upgrader
	logger     *zap.Logger
}

func NewServer(
	port int,
	market domain.MarketData,
	analyzer *usecase.ChainAnalyzer,
	portfolio *usecase.Portfolio,
	scanner *usecase.VolumeScanner,
	supervisor *usecase.Supervisor,
	scanRepo domain.ScanRepository,
	logger *zap.Logger,
) *Server {
	s := &Server{
		router:     http.NewServeMux(),
		market:     market,
		analyzer:   analyzer,
		portfolio:  portfolio,
		scanner:    scanner,
		supervisor: supervisor,
		scanRepo:   scanRepo,
		hub:        NewHub(logger),
		upgrader:   websocket.Upgrader{CheckOrigin: func(*http.Request) bool { return true }},
		logger:     logger,
	}
	s.routes()
	s.server = &http.Server{
		Addr:    fmt.Sprintf(":%d", port),
		Handler: s.router,
	}
	return s
}

func (s *Server) routes() {
	// Chain analytics
	s.router.HandleFunc("GET /api/options/{symbol}", s.handleOptionsChain)

	// Portfolio
	s.router.HandleFunc("GET /api/positions", s.handleListPositions)
	s.router.HandleFunc("POST /api/positions", s.handleAddPosition)
	s.router.HandleFunc("POST /api/positions/{id}/close", s.handleClosePosition)
	s.router.HandleFunc("GET /api/portfolio", s.handlePortfolioSummary)
	s.router.HandleFunc("POST /api/scenarios", s.handleScenarios)

	// Volume scans
	s.router.HandleFunc("POST /api/scan/volume", s.handleStartVolumeScan)
	s.router.HandleFunc("GET /api/scan/volume/status", s.handleVolumeScanStatus)
	s.router.HandleFunc("GET /api/scan/volume/results", s.handleVolumeScanResults)

	// Live portfolio stream
	s.router.HandleFunc("GET /ws", s.handleWS)
}

func (s *Server) Start() error {
	go s.hub.Run()
	go s.streamPortfolio()

	s.logger.Info("Starting web server", zap.String("addr", s.server.Addr))
	if err := s.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}

func (s *Server) Shutdown(ctx context.Context) error {
	return s.server.Shutdown(ctx)
}

func (s *Server) handleWS(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Warn("ws upgrade failed", zap.Error(err))
		return
	}
	s.hub.register <- conn

	// Drain the read side so control frames are processed.
	go func() {
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				s.hub.unregister <- conn
				return
			}
		}
	}()
}

// streamPortfolio periodically re-marks the portfolio and pushes the
// summary to connected websocket clients.
func (s *Server) streamPortfolio() {
	ticker := time.NewTicker(markInterval)
	defer ticker.Stop()

	for range ticker.C {
		if s.hub.ClientCount() == 0 {
			continue
		}

		ctx, cancel := context.WithTimeout(context.Background(), markInterval)
		summary := s.portfolio.Summary(ctx)
		cancel()

		payload, err := json.Marshal(map[string]any{
			"type":    "portfolio_summary",
			"summary": summary,
		})
		if err != nil {
			continue
		}
		s.hub.Broadcast(payload)
	}
}
