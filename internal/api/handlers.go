package api

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/mux"

	"github.com/wallet-flow-tracker/internal/logging"
	"github.com/wallet-flow-tracker/internal/models"
	"github.com/wallet-flow-tracker/internal/types"
)

// AnalyzeRequest carries the raw collected data for one analysis run.
type AnalyzeRequest struct {
	Transfers []models.RawTransfer `json:"transfers,omitempty"`
	Snapshots []models.RawSnapshot `json:"snapshots,omitempty"`
}

// handleAnalyze handles POST /api/analyze - run the full pipeline
func (s *Server) handleAnalyze(w http.ResponseWriter, r *http.Request) {
	var req AnalyzeRequest
	if err := parseJSONBody(r, &req); err != nil {
		respondErrorWith(w, http.StatusBadRequest, "INVALID_INPUT", "Invalid request body")
		return
	}

	if len(req.Transfers) == 0 && len(req.Snapshots) == 0 {
		respondErrorWith(w, http.StatusBadRequest, "INVALID_INPUT", "At least one of transfers or snapshots is required")
		return
	}

	result, err := s.analyzer.Analyze(r.Context(), req.Transfers, req.Snapshots)
	if err != nil {
		logging.GetGlobalLogger().WithError(err).Error("Analysis run failed")
		respondError(w, err)
		return
	}

	s.setLastRun(result)
	respondJSON(w, http.StatusOK, result)
}

// handleLatestRun handles GET /api/runs/latest
func (s *Server) handleLatestRun(w http.ResponseWriter, r *http.Request) {
	run := s.getLastRun()
	if run == nil {
		respondErrorWith(w, http.StatusNotFound, "NOT_FOUND", "No analysis run completed yet")
		return
	}
	respondJSON(w, http.StatusOK, run)
}

// handleLatestWarnings handles GET /api/runs/latest/warnings
func (s *Server) handleLatestWarnings(w http.ResponseWriter, r *http.Request) {
	run := s.getLastRun()
	if run == nil {
		respondErrorWith(w, http.StatusNotFound, "NOT_FOUND", "No analysis run completed yet")
		return
	}
	respondJSON(w, http.StatusOK, run.Report)
}

// handleLatestFlowSummary handles GET /api/runs/latest/flows/summary
func (s *Server) handleLatestFlowSummary(w http.ResponseWriter, r *http.Request) {
	run := s.getLastRun()
	if run == nil || run.FlowSummary == nil {
		respondErrorWith(w, http.StatusNotFound, "NOT_FOUND", "No flow analysis available")
		return
	}
	respondJSON(w, http.StatusOK, run.FlowSummary)
}

// handleLatestPnLSummary handles GET /api/runs/latest/pnl/summary
func (s *Server) handleLatestPnLSummary(w http.ResponseWriter, r *http.Request) {
	run := s.getLastRun()
	if run == nil || run.PnLSummary == nil {
		respondErrorWith(w, http.StatusNotFound, "NOT_FOUND", "No PnL analysis available")
		return
	}
	respondJSON(w, http.StatusOK, run.PnLSummary)
}

// handleFlowsByWallet handles GET /api/flows/wallets/{address}
func (s *Server) handleFlowsByWallet(w http.ResponseWriter, r *http.Request) {
	if s.flows == nil {
		respondErrorWith(w, http.StatusServiceUnavailable, "SERVICE_UNAVAILABLE", "Flow history storage is not configured")
		return
	}

	address := mux.Vars(r)["address"]
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))

	records, err := s.flows.ListByWallet(r.Context(), address, limit)
	if err != nil {
		respondError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]interface{}{
		"wallet":  models.NormalizeAddress(address),
		"records": records,
		"count":   len(records),
	})
}

// handleNetExternal handles GET /api/flows/net-external?from=&to=
func (s *Server) handleNetExternal(w http.ResponseWriter, r *http.Request) {
	if s.flows == nil {
		respondErrorWith(w, http.StatusServiceUnavailable, "SERVICE_UNAVAILABLE", "Flow history storage is not configured")
		return
	}

	from, to, err := parseTimeRange(r)
	if err != nil {
		respondErrorWith(w, http.StatusBadRequest, "INVALID_INPUT", err.Error())
		return
	}

	net, err := s.flows.NetExternalByWallet(r.Context(), from, to)
	if err != nil {
		respondError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]interface{}{
		"from":        from,
		"to":          to,
		"netExternal": net,
	})
}

// handlePnLByPosition handles GET /api/pnl/positions/{id}
func (s *Server) handlePnLByPosition(w http.ResponseWriter, r *http.Request) {
	if s.pnl == nil {
		respondErrorWith(w, http.StatusServiceUnavailable, "SERVICE_UNAVAILABLE", "PnL history storage is not configured")
		return
	}

	positionID := mux.Vars(r)["id"]
	entries, err := s.pnl.ListByPosition(r.Context(), positionID)
	if err != nil {
		respondError(w, err)
		return
	}
	if len(entries) == 0 {
		respondErrorWith(w, http.StatusNotFound, "NOT_FOUND", "Position not found")
		return
	}
	respondJSON(w, http.StatusOK, map[string]interface{}{
		"positionId": positionID,
		"entries":    entries,
	})
}

// handleDailyPnL handles GET /api/pnl/daily?from=&to=
func (s *Server) handleDailyPnL(w http.ResponseWriter, r *http.Request) {
	if s.pnl == nil {
		respondErrorWith(w, http.StatusServiceUnavailable, "SERVICE_UNAVAILABLE", "PnL history storage is not configured")
		return
	}

	from, to, err := parseTimeRange(r)
	if err != nil {
		respondErrorWith(w, http.StatusBadRequest, "INVALID_INPUT", err.Error())
		return
	}

	totals, err := s.pnl.DailyTotals(r.Context(), from, to)
	if err != nil {
		respondError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]interface{}{
		"from":  from,
		"to":    to,
		"daily": totals,
	})
}

// handleUpsertWallet handles POST /api/wallets
func (s *Server) handleUpsertWallet(w http.ResponseWriter, r *http.Request) {
	if s.registry == nil {
		respondErrorWith(w, http.StatusServiceUnavailable, "SERVICE_UNAVAILABLE", "Wallet registry storage is not configured")
		return
	}

	var req struct {
		Address string `json:"address"`
		Label   string `json:"label"`
	}
	if err := parseJSONBody(r, &req); err != nil {
		respondErrorWith(w, http.StatusBadRequest, "INVALID_INPUT", "Invalid request body")
		return
	}

	if err := s.registry.UpsertWallet(r.Context(), req.Address, req.Label); err != nil {
		respondError(w, err)
		return
	}
	respondJSON(w, http.StatusCreated, map[string]string{
		"address": models.NormalizeAddress(req.Address),
		"label":   req.Label,
	})
}

// handleDeleteWallet handles DELETE /api/wallets/{address}
func (s *Server) handleDeleteWallet(w http.ResponseWriter, r *http.Request) {
	if s.registry == nil {
		respondErrorWith(w, http.StatusServiceUnavailable, "SERVICE_UNAVAILABLE", "Wallet registry storage is not configured")
		return
	}

	address := mux.Vars(r)["address"]
	if err := s.registry.DeleteWallet(r.Context(), address); err != nil {
		respondError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]string{"deleted": models.NormalizeAddress(address)})
}

// handleUpsertCounterparty handles POST /api/counterparties
func (s *Server) handleUpsertCounterparty(w http.ResponseWriter, r *http.Request) {
	if s.registry == nil {
		respondErrorWith(w, http.StatusServiceUnavailable, "SERVICE_UNAVAILABLE", "Wallet registry storage is not configured")
		return
	}

	var req struct {
		Address string `json:"address"`
		Name    string `json:"name"`
		Kind    string `json:"kind"`
	}
	if err := parseJSONBody(r, &req); err != nil {
		respondErrorWith(w, http.StatusBadRequest, "INVALID_INPUT", "Invalid request body")
		return
	}

	cp := models.Counterparty{
		Address: req.Address,
		Name:    req.Name,
		Kind:    types.CounterpartyKind(req.Kind),
	}
	if err := s.registry.UpsertCounterparty(r.Context(), cp); err != nil {
		respondError(w, err)
		return
	}
	respondJSON(w, http.StatusCreated, cp)
}

// parseTimeRange reads from/to query parameters, defaulting to the last 30 days.
func parseTimeRange(r *http.Request) (time.Time, time.Time, error) {
	now := time.Now().UTC()
	from := now.AddDate(0, 0, -30)
	to := now

	if raw := r.URL.Query().Get("from"); raw != "" {
		parsed, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			return time.Time{}, time.Time{}, err
		}
		from = parsed
	}
	if raw := r.URL.Query().Get("to"); raw != "" {
		parsed, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			return time.Time{}, time.Time{}, err
		}
		to = parsed
	}
	return from, to, nil
}
