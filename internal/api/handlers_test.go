package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wallet-flow-tracker/internal/models"
	"github.com/wallet-flow-tracker/internal/service"
	"github.com/wallet-flow-tracker/internal/types"
)

type fakeAnalyzer struct {
	result *service.AnalysisResult
	err    error
	calls  int
}

func (f *fakeAnalyzer) Analyze(_ context.Context, _ []models.RawTransfer, _ []models.RawSnapshot) (*service.AnalysisResult, error) {
	f.calls++
	return f.result, f.err
}

type fakeRegistry struct {
	wallets        map[string]string
	counterparties []models.Counterparty
}

func newFakeRegistry() *fakeRegistry {
	return &fakeRegistry{wallets: make(map[string]string)}
}

func (f *fakeRegistry) UpsertWallet(_ context.Context, address, label string) error {
	f.wallets[address] = label
	return nil
}

func (f *fakeRegistry) DeleteWallet(_ context.Context, address string) error {
	if _, ok := f.wallets[address]; !ok {
		return errors.New("wallet not found")
	}
	delete(f.wallets, address)
	return nil
}

func (f *fakeRegistry) UpsertCounterparty(_ context.Context, cp models.Counterparty) error {
	f.counterparties = append(f.counterparties, cp)
	return nil
}

func createTestServer(analyzer AnalyzerInterface, registry RegistryInterface) *Server {
	return NewServer(DefaultServerConfig("127.0.0.1", "0"), analyzer, registry, nil, nil)
}

func sampleResult() *service.AnalysisResult {
	report := models.NewRunReport()
	report.Add(types.WarnMalformedRecord, "record 3 dropped: missing transaction hash")
	return &service.AnalysisResult{
		FlowSummary: &models.FlowSummary{
			TotalExternalIn: decimal.NewFromInt(2000),
			NetExternal:     decimal.NewFromInt(2000),
			RecordCount:     3,
			ExternalIns:     1,
		},
		PnLSummary: &models.PnLSummary{
			TotalPnL:       decimal.NewFromInt(20),
			TotalPositions: 1,
		},
		Report: report.Finish(),
	}
}

func TestHandleHealth(t *testing.T) {
	server := createTestServer(&fakeAnalyzer{}, newFakeRegistry())

	req := httptest.NewRequest("GET", "/health", nil)
	w := httptest.NewRecorder()
	server.Router().ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)

	var body map[string]string
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, "healthy", body["status"])
}

func TestHandleAnalyze(t *testing.T) {
	t.Run("rejects malformed JSON", func(t *testing.T) {
		server := createTestServer(&fakeAnalyzer{}, newFakeRegistry())

		req := httptest.NewRequest("POST", "/api/analyze", bytes.NewReader([]byte("not json")))
		w := httptest.NewRecorder()
		server.Router().ServeHTTP(w, req)

		assert.Equal(t, http.StatusBadRequest, w.Code)
	})

	t.Run("rejects empty payload", func(t *testing.T) {
		analyzer := &fakeAnalyzer{result: sampleResult()}
		server := createTestServer(analyzer, newFakeRegistry())

		body, _ := json.Marshal(AnalyzeRequest{})
		req := httptest.NewRequest("POST", "/api/analyze", bytes.NewReader(body))
		w := httptest.NewRecorder()
		server.Router().ServeHTTP(w, req)

		assert.Equal(t, http.StatusBadRequest, w.Code)
		assert.Zero(t, analyzer.calls)
	})

	t.Run("runs analysis and stores latest run", func(t *testing.T) {
		analyzer := &fakeAnalyzer{result: sampleResult()}
		server := createTestServer(analyzer, newFakeRegistry())

		body, _ := json.Marshal(AnalyzeRequest{
			Transfers: []models.RawTransfer{{TxHash: "0xabc"}},
		})
		req := httptest.NewRequest("POST", "/api/analyze", bytes.NewReader(body))
		w := httptest.NewRecorder()
		server.Router().ServeHTTP(w, req)

		require.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, 1, analyzer.calls)

		req = httptest.NewRequest("GET", "/api/runs/latest/flows/summary", nil)
		w = httptest.NewRecorder()
		server.Router().ServeHTTP(w, req)

		require.Equal(t, http.StatusOK, w.Code)
		var summary models.FlowSummary
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &summary))
		assert.True(t, summary.NetExternal.Equal(decimal.NewFromInt(2000)))
	})

	t.Run("propagates analyzer errors", func(t *testing.T) {
		analyzer := &fakeAnalyzer{err: errors.New("boom")}
		server := createTestServer(analyzer, newFakeRegistry())

		body, _ := json.Marshal(AnalyzeRequest{
			Transfers: []models.RawTransfer{{TxHash: "0xabc"}},
		})
		req := httptest.NewRequest("POST", "/api/analyze", bytes.NewReader(body))
		w := httptest.NewRecorder()
		server.Router().ServeHTTP(w, req)

		assert.Equal(t, http.StatusInternalServerError, w.Code)
	})
}

func TestHandleLatestRun_NoRunYet(t *testing.T) {
	server := createTestServer(&fakeAnalyzer{}, newFakeRegistry())

	for _, path := range []string{
		"/api/runs/latest",
		"/api/runs/latest/warnings",
		"/api/runs/latest/flows/summary",
		"/api/runs/latest/pnl/summary",
	} {
		req := httptest.NewRequest("GET", path, nil)
		w := httptest.NewRecorder()
		server.Router().ServeHTTP(w, req)
		assert.Equal(t, http.StatusNotFound, w.Code, "path %s", path)
	}
}

func TestHandleLatestWarnings(t *testing.T) {
	analyzer := &fakeAnalyzer{result: sampleResult()}
	server := createTestServer(analyzer, newFakeRegistry())

	body, _ := json.Marshal(AnalyzeRequest{Snapshots: []models.RawSnapshot{{Coin: "ETH"}}})
	req := httptest.NewRequest("POST", "/api/analyze", bytes.NewReader(body))
	w := httptest.NewRecorder()
	server.Router().ServeHTTP(w, req)
	require.Equal(t, http.StatusOK, w.Code)

	req = httptest.NewRequest("GET", "/api/runs/latest/warnings", nil)
	w = httptest.NewRecorder()
	server.Router().ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	var report models.RunReport
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &report))
	assert.Equal(t, 1, report.Counts[types.WarnMalformedRecord])
	assert.Len(t, report.Warnings, 1)
}

func TestWalletRegistryEndpoints(t *testing.T) {
	registry := newFakeRegistry()
	server := createTestServer(&fakeAnalyzer{}, registry)

	body, _ := json.Marshal(map[string]string{
		"address": "0x1234567890123456789012345678901234567890",
		"label":   "Main Wallet",
	})
	req := httptest.NewRequest("POST", "/api/wallets", bytes.NewReader(body))
	w := httptest.NewRecorder()
	server.Router().ServeHTTP(w, req)

	require.Equal(t, http.StatusCreated, w.Code)
	assert.Equal(t, "Main Wallet", registry.wallets["0x1234567890123456789012345678901234567890"])

	req = httptest.NewRequest("DELETE", "/api/wallets/0x1234567890123456789012345678901234567890", nil)
	w = httptest.NewRecorder()
	server.Router().ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Empty(t, registry.wallets)
}

func TestHistoryEndpointsWithoutStorage(t *testing.T) {
	server := createTestServer(&fakeAnalyzer{}, newFakeRegistry())

	for _, path := range []string{
		"/api/flows/wallets/0xabc",
		"/api/flows/net-external",
		"/api/pnl/positions/some-id",
		"/api/pnl/daily",
	} {
		req := httptest.NewRequest("GET", path, nil)
		w := httptest.NewRecorder()
		server.Router().ServeHTTP(w, req)
		assert.Equal(t, http.StatusServiceUnavailable, w.Code, "path %s", path)
	}
}

func TestParseTimeRange(t *testing.T) {
	t.Run("defaults to last 30 days", func(t *testing.T) {
		req := httptest.NewRequest("GET", "/api/pnl/daily", nil)
		from, to, err := parseTimeRange(req)
		require.NoError(t, err)
		assert.WithinDuration(t, time.Now().UTC(), to, time.Minute)
		assert.WithinDuration(t, to.AddDate(0, 0, -30), from, time.Minute)
	})

	t.Run("parses explicit range", func(t *testing.T) {
		req := httptest.NewRequest("GET", "/api/pnl/daily?from=2026-01-01T00:00:00Z&to=2026-02-01T00:00:00Z", nil)
		from, to, err := parseTimeRange(req)
		require.NoError(t, err)
		assert.Equal(t, 2026, from.Year())
		assert.Equal(t, time.February, to.Month())
	})

	t.Run("rejects malformed timestamps", func(t *testing.T) {
		req := httptest.NewRequest("GET", "/api/pnl/daily?from=yesterday", nil)
		_, _, err := parseTimeRange(req)
		assert.Error(t, err)
	})
}
