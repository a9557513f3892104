package api

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/theeagle2407/Vigil/internal/monitor"
	"github.com/theeagle2407/Vigil/internal/risk"
	"github.com/theeagle2407/Vigil/internal/threat"
)

func newTestServer(t *testing.T) (*Server, *monitor.Monitor, *threat.Registry) {
	t.Helper()
	noon := func() time.Time { return time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC) }

	registry := threat.NewRegistry(threat.Options{
		ScamAddresses:    []string{"0xdead000000000000000000000000000000000000"},
		PhishingPatterns: []string{"wallet-verify"},
		Now:              noon,
	}, zerolog.Nop())
	scorer := risk.NewScorer(registry, risk.Options{Now: noon})
	mon := monitor.New(scorer, nil, nil, monitor.Options{Now: noon, Rules: monitor.Rules{
		MaxDailyAmount: 1000,
		AlertThreshold: 0.7,
	}}, zerolog.Nop())

	return NewServer(mon, registry, 0, zerolog.Nop()), mon, registry
}

func doRequest(t *testing.T, s *Server, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var reader *bytes.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	} else {
		reader = bytes.NewReader(nil)
	}

	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	s.Router().ServeHTTP(rec, req)
	return rec
}

func TestHealthEndpoint(t *testing.T) {
	s, _, _ := newTestServer(t)

	rec := doRequest(t, s, http.MethodGet, "/", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var body map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "Vigil Security Agent", body["name"])
	assert.Equal(t, "active", body["status"])
}

func TestAnalyzeTransactionScam(t *testing.T) {
	s, mon, _ := newTestServer(t)

	rec := doRequest(t, s, http.MethodPost, "/api/analyze-transaction", map[string]string{
		"from":  "0xA",
		"to":    "0xdead000000000000000000000000000000000000",
		"value": "1",
	})
	require.Equal(t, http.StatusOK, rec.Code)

	var res risk.Analysis
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &res))
	assert.Equal(t, risk.LevelCritical, res.RiskLevel)
	assert.True(t, res.ShouldBlock)
	assert.Equal(t, 100, res.Score)
	assert.Contains(t, res.Threats, "Recipient is a known scam address")

	// The block decision was recorded as a side effect.
	assert.Equal(t, int64(1), mon.ThreatCount())
}

func TestAnalyzeTransactionMalformedBody(t *testing.T) {
	s, _, _ := newTestServer(t)

	req := httptest.NewRequest(http.MethodPost, "/api/analyze-transaction", bytes.NewReader([]byte("{not json")))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	s.Router().ServeHTTP(rec, req)

	require.Equal(t, http.StatusInternalServerError, rec.Code)
	var body map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "Analysis failed", body["error"])
}

func TestStatusEndpoint(t *testing.T) {
	s, _, _ := newTestServer(t)

	rec := doRequest(t, s, http.MethodGet, "/api/status", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var st monitor.Status
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &st))
	assert.False(t, st.Monitoring)
	assert.Equal(t, int64(0), st.ThreatsDetected)
}

func TestWalletProfileEndpoint(t *testing.T) {
	s, mon, _ := newTestServer(t)
	mon.BlockTransaction("0xhash", "test block")

	rec := doRequest(t, s, http.MethodGet, "/api/wallet/0xABC", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var profile monitor.WalletProfile
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &profile))
	assert.Equal(t, "0xABC", profile.Address)
	assert.Equal(t, int64(1), profile.ThreatsBlocked)
}

func TestThreatsEndpoint(t *testing.T) {
	s, _, registry := newTestServer(t)
	registry.AddScamAddress("0xBAD0000000000000000000000000000000000000", "reported")
	registry.DetectPhishing("https://wallet-verify.example.com")

	rec := doRequest(t, s, http.MethodGet, "/api/threats?limit=1", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var body struct {
		Threats []threat.Threat `json:"threats"`
		Total   int             `json:"total"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	require.Equal(t, 1, body.Total)
	assert.Equal(t, threat.TypePhishing, body.Threats[0].Type)
}

func TestAuditTrailEndpoint(t *testing.T) {
	s, mon, _ := newTestServer(t)
	mon.BlockTransaction("0xhash", "test block")

	rec := doRequest(t, s, http.MethodGet, "/api/audit-trail", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var body struct {
		Actions []monitor.AuditAction `json:"actions"`
		Total   int                   `json:"total"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	require.Equal(t, 1, body.Total)
	assert.Equal(t, monitor.ActionTransactionBlocked, body.Actions[0].Action)
}

func TestUpdateSecurityRulesEndpoint(t *testing.T) {
	s, mon, _ := newTestServer(t)

	rec := doRequest(t, s, http.MethodPost, "/api/security-rules", map[string]any{
		"maxDailyAmount": 500,
		"unknownField":   "dropped silently",
	})
	require.Equal(t, http.StatusOK, rec.Code)

	var body map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, true, body["success"])

	assert.Equal(t, 500.0, mon.Rules().MaxDailyAmount)
	// Untouched fields survive the merge.
	assert.Equal(t, 0.7, mon.Rules().AlertThreshold)

	trail := mon.AuditTrail()
	require.NotEmpty(t, trail)
	last := trail[len(trail)-1]
	assert.Equal(t, monitor.ActionRulesUpdated, last.Action)
	assert.Equal(t, "INFO", last.RiskLevel)
}

func TestUpdateSecurityRulesMalformedBody(t *testing.T) {
	s, _, _ := newTestServer(t)

	req := httptest.NewRequest(http.MethodPost, "/api/security-rules", bytes.NewReader([]byte("[")))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	s.Router().ServeHTTP(rec, req)

	require.Equal(t, http.StatusInternalServerError, rec.Code)
}

func TestStartMonitoringEndpoint(t *testing.T) {
	s, mon, _ := newTestServer(t)

	rec := doRequest(t, s, http.MethodPost, "/api/monitor/0xABC", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var body map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, true, body["success"])
	assert.Equal(t, "Now monitoring 0xABC", body["message"])
	assert.Equal(t, "0xABC", body["address"])

	assert.Equal(t, []string{"0xabc"}, mon.WatchedAddresses())
}
