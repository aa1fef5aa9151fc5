package api

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/docpanel-ai/docpanel/internal/adapters/evaluator"
	"github.com/docpanel-ai/docpanel/internal/adapters/ingest"
	"github.com/docpanel-ai/docpanel/internal/core"
	"github.com/docpanel-ai/docpanel/internal/service"
)

const testQuestionsYAML = `name: smoke
sections:
  - name: Financial
    questions:
      - id: fin-01
        text: What was total revenue for the year?
      - id: fin-02
        text: Who audited the financial statements?
`

func newTestServer(t *testing.T) (*Server, string, string) {
	t.Helper()
	dir := t.TempDir()

	docPath := filepath.Join(dir, "report.txt")
	doc := "Annual report introduction.\fTotal revenue for the year was 42 million.\fClosing remarks and appendix."
	require.NoError(t, os.WriteFile(docPath, []byte(doc), 0o644))

	qsPath := filepath.Join(dir, "questions.yaml")
	require.NoError(t, os.WriteFile(qsPath, []byte(testQuestionsYAML), 0o644))

	mock := evaluator.NewMockEvaluator()
	mock.Delay = 10 * time.Millisecond

	cfg := service.DefaultRunnerConfig()
	cfg.CallTimeout = 5 * time.Second
	cfg.SecondPass = false

	runner := service.NewAnalysisRunner(cfg, ingest.NewTextFileSource(), mock, nil, nil)
	controller := service.NewController(runner, nil, time.Hour, nil)
	t.Cleanup(func() { _ = controller.Close() })

	srvCfg := DefaultConfig()
	srvCfg.HeartbeatInterval = 100 * time.Millisecond
	return New(srvCfg, controller, nil), docPath, qsPath
}

func startSession(t *testing.T, srv *Server, docPath, qsPath string) string {
	t.Helper()
	body, _ := json.Marshal(map[string]string{"document": docPath, "questions": qsPath})
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/v1/analyses", bytes.NewReader(body))
	srv.Router().ServeHTTP(rec, req)

	require.Equal(t, http.StatusAccepted, rec.Code, rec.Body.String())
	var resp struct {
		SessionID string `json:"session_id"`
		Status    string `json:"status"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.NotEmpty(t, resp.SessionID)
	require.Equal(t, "active", resp.Status)
	return resp.SessionID
}

func waitTerminal(t *testing.T, srv *Server, id string) core.SessionView {
	t.Helper()
	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		rec := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodGet, "/api/v1/analyses/"+id, nil)
		srv.Router().ServeHTTP(rec, req)
		require.Equal(t, http.StatusOK, rec.Code)

		var view core.SessionView
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &view))
		switch view.Status {
		case core.SessionStatusCompleted, core.SessionStatusPartial, core.SessionStatusFailed:
			return view
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatal("session never reached a terminal state")
	return core.SessionView{}
}

func TestHealth(t *testing.T) {
	srv, _, _ := newTestServer(t)
	rec := httptest.NewRecorder()
	srv.Router().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"healthy"}`, rec.Body.String())
}

func TestStartAnalysisValidation(t *testing.T) {
	srv, docPath, _ := newTestServer(t)

	tests := []struct {
		name string
		body string
	}{
		{"not json", "not json at all"},
		{"missing fields", `{}`},
		{"missing questions", fmt.Sprintf(`{"document": %q}`, docPath)},
		{"questions file absent", fmt.Sprintf(`{"document": %q, "questions": "/no/such/file.yaml"}`, docPath)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			req := httptest.NewRequest(http.MethodPost, "/api/v1/analyses", strings.NewReader(tt.body))
			srv.Router().ServeHTTP(rec, req)
			assert.Equal(t, http.StatusBadRequest, rec.Code)

			var resp struct {
				Error struct {
					Category string `json:"category"`
					Code     string `json:"code"`
				} `json:"error"`
			}
			require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
			assert.NotEmpty(t, resp.Error.Code)
		})
	}
}

func TestAnalysisLifecycle(t *testing.T) {
	srv, docPath, qsPath := newTestServer(t)

	id := startSession(t, srv, docPath, qsPath)
	view := waitTerminal(t, srv, id)
	require.Equal(t, core.SessionStatusCompleted, view.Status)
	assert.Equal(t, view.TotalWindows, view.WindowsCompleted)

	rec := httptest.NewRecorder()
	srv.Router().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/analyses/"+id+"/results", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	var results struct {
		Session core.SessionView `json:"session"`
		Report  *core.Report     `json:"report"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &results))
	require.NotNil(t, results.Report)
	assert.False(t, results.Report.Partial)
	assert.Equal(t, 2, results.Report.Total)
	// The mock answers the revenue question from page 2; the auditor
	// question has no matching text.
	assert.Equal(t, 1, results.Report.Answered)

	rec = httptest.NewRecorder()
	srv.Router().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/analyses/", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	var list struct {
		Sessions []core.SessionView `json:"sessions"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &list))
	require.Len(t, list.Sessions, 1)
	assert.Equal(t, id, string(list.Sessions[0].ID))
}

func TestUnknownSession(t *testing.T) {
	srv, _, _ := newTestServer(t)

	for _, target := range []struct {
		method, path string
	}{
		{http.MethodGet, "/api/v1/analyses/nope"},
		{http.MethodGet, "/api/v1/analyses/nope/results"},
		{http.MethodPost, "/api/v1/analyses/nope/stop"},
		{http.MethodGet, "/api/v1/analyses/nope/events"},
	} {
		rec := httptest.NewRecorder()
		srv.Router().ServeHTTP(rec, httptest.NewRequest(target.method, target.path, nil))
		assert.Equalf(t, http.StatusNotFound, rec.Code, "%s %s", target.method, target.path)
	}
}

func TestStopAnalysis(t *testing.T) {
	srv, docPath, qsPath := newTestServer(t)

	id := startSession(t, srv, docPath, qsPath)

	rec := httptest.NewRecorder()
	srv.Router().ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/v1/analyses/"+id+"/stop", nil))
	require.Equal(t, http.StatusAccepted, rec.Code, rec.Body.String())

	view := waitTerminal(t, srv, id)
	// The stop request races window completion; either outcome carries
	// readable results.
	require.Contains(t,
		[]core.SessionStatus{core.SessionStatusPartial, core.SessionStatusCompleted},
		view.Status)

	rec = httptest.NewRecorder()
	srv.Router().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/analyses/"+id+"/results", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestEventsStream(t *testing.T) {
	srv, docPath, qsPath := newTestServer(t)

	ts := httptest.NewServer(srv.Router())
	defer ts.Close()

	id := startSession(t, srv, docPath, qsPath)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, ts.URL+"/api/v1/analyses/"+id+"/events", nil)
	require.NoError(t, err)

	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer func() { _ = resp.Body.Close() }()
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Equal(t, "text/event-stream", resp.Header.Get("Content-Type"))

	var sawConnected, sawProgress bool
	scanner := bufio.NewScanner(resp.Body)
	for scanner.Scan() {
		line := scanner.Text()
		if !strings.HasPrefix(line, "event: ") {
			continue
		}
		switch strings.TrimPrefix(line, "event: ") {
		case "connected":
			sawConnected = true
		default:
			// Any session event or heartbeat after the ack proves the
			// stream is live.
			sawProgress = true
		}
		if sawConnected && sawProgress {
			break
		}
	}
	assert.True(t, sawConnected, "no connected ack on stream")
	assert.True(t, sawProgress, "no events after the ack")
}
