// Package api provides the HTTP reporting surface over analysis runs and the
// persisted flow/PnL history.
package api

import (
	"context"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/mux"
	"github.com/shopspring/decimal"

	"github.com/wallet-flow-tracker/internal/logging"
	"github.com/wallet-flow-tracker/internal/models"
	"github.com/wallet-flow-tracker/internal/service"
)

// Service interfaces for dependency injection and testing

// AnalyzerInterface runs the classification and PnL pipelines.
type AnalyzerInterface interface {
	Analyze(ctx context.Context, transfers []models.RawTransfer, snapshots []models.RawSnapshot) (*service.AnalysisResult, error)
}

// RegistryInterface manages the tracked wallet registry.
type RegistryInterface interface {
	UpsertWallet(ctx context.Context, address, label string) error
	DeleteWallet(ctx context.Context, address string) error
	UpsertCounterparty(ctx context.Context, cp models.Counterparty) error
}

// FlowHistoryInterface reads persisted flow records.
type FlowHistoryInterface interface {
	ListByWallet(ctx context.Context, wallet string, limit int) ([]models.FlowRecord, error)
	NetExternalByWallet(ctx context.Context, from, to time.Time) (map[string]decimal.Decimal, error)
}

// PnLHistoryInterface reads persisted PnL entries.
type PnLHistoryInterface interface {
	ListByPosition(ctx context.Context, positionID string) ([]models.PnLEntry, error)
	DailyTotals(ctx context.Context, from, to time.Time) ([]models.DailyPnL, error)
}

// Server represents the HTTP API server.
type Server struct {
	router     *mux.Router
	httpServer *http.Server
	analyzer   AnalyzerInterface
	registry   RegistryInterface
	flows      FlowHistoryInterface
	pnl        PnLHistoryInterface
	config     *ServerConfig

	mu      sync.RWMutex
	lastRun *service.AnalysisResult
}

// ServerConfig holds server configuration.
type ServerConfig struct {
	Host            string
	Port            string
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	IdleTimeout     time.Duration
	ShutdownTimeout time.Duration
}

// DefaultServerConfig returns timeouts suited to large analysis payloads.
func DefaultServerConfig(host, port string) *ServerConfig {
	return &ServerConfig{
		Host:            host,
		Port:            port,
		ReadTimeout:     60 * time.Second,
		WriteTimeout:    60 * time.Second,
		IdleTimeout:     120 * time.Second,
		ShutdownTimeout: 15 * time.Second,
	}
}

// NewServer creates a new API server instance.
func NewServer(
	config *ServerConfig,
	analyzer AnalyzerInterface,
	registry RegistryInterface,
	flows FlowHistoryInterface,
	pnl PnLHistoryInterface,
) *Server {
	s := &Server{
		router:   mux.NewRouter(),
		analyzer: analyzer,
		registry: registry,
		flows:    flows,
		pnl:      pnl,
		config:   config,
	}

	s.setupRouter()

	return s
}

// setupRouter configures the router with middleware and routes
func (s *Server) setupRouter() {
	s.router.Use(LoggingMiddleware)
	s.router.Use(RecoveryMiddleware)
	s.router.Use(CORSMiddleware)
	s.router.Use(CompressionMiddleware)

	s.setupRoutes()

	s.httpServer = &http.Server{
		Addr:         fmt.Sprintf("%s:%s", s.config.Host, s.config.Port),
		Handler:      s.router,
		ReadTimeout:  s.config.ReadTimeout,
		WriteTimeout: s.config.WriteTimeout,
		IdleTimeout:  s.config.IdleTimeout,
	}
}

// setupRoutes configures all API routes.
func (s *Server) setupRoutes() {
	s.router.HandleFunc("/health", s.handleHealth).Methods("GET")

	api := s.router.PathPrefix("/api").Subrouter()

	// Analysis
	api.HandleFunc("/analyze", s.handleAnalyze).Methods("POST")
	api.HandleFunc("/runs/latest", s.handleLatestRun).Methods("GET")
	api.HandleFunc("/runs/latest/warnings", s.handleLatestWarnings).Methods("GET")
	api.HandleFunc("/runs/latest/flows/summary", s.handleLatestFlowSummary).Methods("GET")
	api.HandleFunc("/runs/latest/pnl/summary", s.handleLatestPnLSummary).Methods("GET")

	// Persisted history
	api.HandleFunc("/flows/wallets/{address}", s.handleFlowsByWallet).Methods("GET")
	api.HandleFunc("/flows/net-external", s.handleNetExternal).Methods("GET")
	api.HandleFunc("/pnl/positions/{id}", s.handlePnLByPosition).Methods("GET")
	api.HandleFunc("/pnl/daily", s.handleDailyPnL).Methods("GET")

	// Registry management
	api.HandleFunc("/wallets", s.handleUpsertWallet).Methods("POST")
	api.HandleFunc("/wallets/{address}", s.handleDeleteWallet).Methods("DELETE")
	api.HandleFunc("/counterparties", s.handleUpsertCounterparty).Methods("POST")
}

// handleHealth handles health check requests.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string]string{
		"status":  "healthy",
		"service": "wallet-flow-tracker",
	})
}

// Start starts the HTTP server.
func (s *Server) Start() error {
	logging.GetGlobalLogger().Infof("Starting API server on %s", s.httpServer.Addr)
	return s.httpServer.ListenAndServe()
}

// Shutdown gracefully shuts down the server.
func (s *Server) Shutdown(ctx context.Context) error {
	logging.GetGlobalLogger().Info("Shutting down API server")
	return s.httpServer.Shutdown(ctx)
}

// Router exposes the configured router, used by tests.
func (s *Server) Router() http.Handler {
	return s.router
}

func (s *Server) setLastRun(result *service.AnalysisResult) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.lastRun = result
}

func (s *Server) getLastRun() *service.AnalysisResult {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.lastRun
}
