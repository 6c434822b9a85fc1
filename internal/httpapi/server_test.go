package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"NewsRelay/internal/domain"
	"NewsRelay/internal/usecase"
)

type fakeTrigger struct {
	opts   []usecase.InvokeOptions
	result domain.RunResult
	err    error
}

func (f *fakeTrigger) Trigger(_ context.Context, opts usecase.InvokeOptions) (domain.RunResult, error) {
	f.opts = append(f.opts, opts)
	return f.result, f.err
}

type fakeLogs struct {
	logs  []domain.RunLog
	limit int
	err   error
}

func (f *fakeLogs) AppendRunLog(context.Context, domain.RunLog) error { return nil }

func (f *fakeLogs) RecentRunLogs(_ context.Context, limit int) ([]domain.RunLog, error) {
	f.limit = limit
	return f.logs, f.err
}

type fakePinger struct{ err error }

func (f fakePinger) Ping(context.Context) error { return f.err }

func serve(t *testing.T, s *Server, method, target string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, target, nil)
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)
	return rec
}

func TestRunEndpoint(t *testing.T) {
	t.Parallel()

	trigger := &fakeTrigger{result: domain.RunResult{RunID: "r1", Success: true, ExitReason: domain.ExitPublished, ArticleID: "a1"}}
	s := NewServer(":0", Deps{Runs: trigger, Logs: &fakeLogs{}})

	rec := serve(t, s, http.MethodPost, "/api/v1/run?force=true&dryRun=1")
	require.Equal(t, http.StatusOK, rec.Code)

	var got domain.RunResult
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	assert.Equal(t, "r1", got.RunID)
	assert.Equal(t, domain.ExitPublished, got.ExitReason)
	require.Len(t, trigger.opts, 1)
	assert.Equal(t, usecase.InvokeOptions{Force: true, DryRun: true}, trigger.opts[0])
}

func TestRunEndpointErrors(t *testing.T) {
	t.Parallel()

	trigger := &fakeTrigger{
		result: domain.RunResult{RunID: "r2", ExitReason: domain.ExitError},
		err:    errors.New("database is locked"),
	}
	s := NewServer(":0", Deps{Runs: trigger, Logs: &fakeLogs{}})

	rec := serve(t, s, http.MethodPost, "/api/v1/run?force=maybe")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Empty(t, trigger.opts)

	rec = serve(t, s, http.MethodPost, "/api/v1/run")
	require.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Contains(t, rec.Body.String(), "database is locked")
	assert.Contains(t, rec.Body.String(), `"runId":"r2"`)
}

func TestRunsEndpoint(t *testing.T) {
	t.Parallel()

	started := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	logs := &fakeLogs{logs: []domain.RunLog{{RunID: "r1", StartedAt: started, ExitReason: domain.ExitCooldown}}}
	s := NewServer(":0", Deps{Runs: &fakeTrigger{}, Logs: logs})

	rec := serve(t, s, http.MethodGet, "/api/v1/runs")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, defaultRunsLimit, logs.limit)

	var got []domain.RunLog
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	require.Len(t, got, 1)
	assert.Equal(t, domain.ExitCooldown, got[0].ExitReason)

	rec = serve(t, s, http.MethodGet, "/api/v1/runs?limit=5000")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, maxRunsLimit, logs.limit)

	rec = serve(t, s, http.MethodGet, "/api/v1/runs?limit=-1")
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	logs.logs = nil
	rec = serve(t, s, http.MethodGet, "/api/v1/runs?limit=3")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `[]`, rec.Body.String())
}

func TestHealthAndMetrics(t *testing.T) {
	t.Parallel()

	reg := prometheus.NewRegistry()
	counter := prometheus.NewCounter(prometheus.CounterOpts{Name: "newsrelay_probe_total", Help: "probe"})
	reg.MustRegister(counter)
	counter.Inc()

	s := NewServer(":0", Deps{
		Runs:    &fakeTrigger{},
		Logs:    &fakeLogs{},
		Health:  fakePinger{},
		Metrics: promhttp.HandlerFor(reg, promhttp.HandlerOpts{}),
	})

	rec := serve(t, s, http.MethodGet, "/healthz")
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = serve(t, s, http.MethodGet, "/metrics")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "newsrelay_probe_total 1")

	down := NewServer(":0", Deps{Runs: &fakeTrigger{}, Logs: &fakeLogs{}, Health: fakePinger{err: errors.New("db gone")}})
	rec = serve(t, down, http.MethodGet, "/healthz")
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}
