package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/vitos/options_flow/internal/infrastructure/logger"
	"github.com/vitos/options_flow/internal/infrastructure/marketdata"
	"github.com/vitos/options_flow/internal/infrastructure/storage"
	"github.com/vitos/options_flow/internal/usecase"
	"github.com/vitos/options_flow/internal/web"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"
)

type Config struct {
	MarketData struct {
		BaseURL string `yaml:"base_url"`
	} `yaml:"market_data"`
	Scanner usecase.ScannerConfig `yaml:"scanner"`
	Storage struct {
		Path string `yaml:"path"`
	} `yaml:"storage"`
	Logging struct {
		Level string            `yaml:"level"`
		File  logger.FileConfig `yaml:"file"`
	} `yaml:"logging"`
	Server struct {
		Port int `yaml:"port"`
	} `yaml:"server"`
}

func loadConfig(path string) (*Config, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var cfg Config
	decoder := yaml.NewDecoder(f)
	if err := decoder.Decode(&cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func main() {
	// 1. Load Config
	cfg, err := loadConfig("config/config.yaml")
	if err != nil {
		fmt.Printf("Failed to load config: %v\n", err)
		os.Exit(1)
	}

	// 2. Init Logger
	var log *zap.Logger
	if cfg.Logging.File.Path != "" {
		log = logger.NewFileLogger(cfg.Logging.Level, cfg.Logging.File)
	} else {
		log, err = logger.NewLogger(cfg.Logging.Level)
		if err != nil {
			fmt.Printf("Failed to init logger: %v\n", err)
			os.Exit(1)
		}
	}
	defer log.Sync()

	// 3. Init Storage
	dbPath := cfg.Storage.Path
	if dbPath == "" {
		dbPath = "options_flow.db"
	}
	store, err := storage.NewSQLiteStore(dbPath)
	if err != nil {
		log.Fatal("Failed to init sqlite", zap.Error(err))
	}
	defer store.Close()

	// 4. Init Market Data
	market := marketdata.NewYahooAdapter(cfg.MarketData.BaseURL)

	// 5. Init Services
	pricer := usecase.NewPricer()
	analyzer := usecase.NewChainAnalyzer(pricer)
	portfolio := usecase.NewPortfolio(market, pricer, store, log)
	if err := portfolio.Load(context.Background()); err != nil {
		log.Error("Failed to load persisted positions", zap.Error(err))
	}

	scannerCfg := cfg.Scanner
	if scannerCfg.WindowDays == 0 {
		scannerCfg = usecase.DefaultScannerConfig()
	}
	scanner := usecase.NewVolumeScanner(market, scannerCfg, log)
	supervisor := usecase.NewSupervisor(log)

	// 6. Init Web Server
	server := web.NewServer(cfg.Server.Port, market, analyzer, portfolio, scanner, supervisor, store, log)

	go func() {
		if err := server.Start(); err != nil {
			log.Fatal("Web server failed", zap.Error(err))
		}
	}()

	// 7. Wait for Shutdown
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)
	<-stop

	log.Info("Shutting down...")
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(ctx); err != nil {
		log.Error("Shutdown error", zap.Error(err))
	}
}
