package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"NewsRelay/internal/config"
	"NewsRelay/internal/domain"
	"NewsRelay/internal/usecase"
)

type fakeRuntime struct {
	opts   []usecase.InvokeOptions
	result domain.RunResult
	runErr error
	logs   []domain.RunLog
	limit  int
	closed bool
}

func (f *fakeRuntime) RunOnce(_ context.Context, opts usecase.InvokeOptions) (domain.RunResult, error) {
	f.opts = append(f.opts, opts)
	return f.result, f.runErr
}

func (f *fakeRuntime) RecentRuns(_ context.Context, limit int) ([]domain.RunLog, error) {
	f.limit = limit
	return f.logs, nil
}

func (f *fakeRuntime) Serve(context.Context) error { return nil }

func (f *fakeRuntime) Close() error {
	f.closed = true
	return nil
}

func execute(t *testing.T, rt *fakeRuntime, args ...string) (string, error) {
	t.Helper()
	t.Setenv("NEWSRELAY_CONFIG", "")

	root := NewRootCommand(func(context.Context, config.Config, *slog.Logger) (Runtime, error) {
		return rt, nil
	})
	out := new(bytes.Buffer)
	root.SetOut(out)
	root.SetErr(new(bytes.Buffer))
	root.SetArgs(args)
	err := root.ExecuteContext(context.Background())
	return out.String(), err
}

func TestRunCommandPrintsResult(t *testing.T) {
	rt := &fakeRuntime{result: domain.RunResult{RunID: "r1", Success: true, ExitReason: domain.ExitDryRun, ArticleID: "dry-run-r1"}}

	out, err := execute(t, rt, "run", "--dry-run", "--force")
	require.NoError(t, err)

	var got domain.RunResult
	require.NoError(t, json.Unmarshal([]byte(out), &got))
	assert.Equal(t, "dry-run-r1", got.ArticleID)
	require.Len(t, rt.opts, 1)
	assert.Equal(t, usecase.InvokeOptions{Force: true, DryRun: true}, rt.opts[0])
	assert.True(t, rt.closed)
}

func TestRunCommandReturnsRunError(t *testing.T) {
	rt := &fakeRuntime{
		result: domain.RunResult{RunID: "r2", ExitReason: domain.ExitError},
		runErr: errors.New("store unavailable"),
	}

	out, err := execute(t, rt, "run")
	require.Error(t, err)
	assert.Contains(t, out, `"exitReason": "error"`)
}

func TestRunsCommandRendersTable(t *testing.T) {
	rt := &fakeRuntime{logs: []domain.RunLog{{
		RunID:           "run-42",
		StartedAt:       time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC),
		DurationMs:      1234,
		Success:         true,
		SourceUsed:      "feeds",
		ExitReason:      domain.ExitPublished,
		PostedArticleID: "article-7",
	}}}

	out, err := execute(t, rt, "runs", "--limit", "5")
	require.NoError(t, err)
	assert.Equal(t, 5, rt.limit)
	assert.Contains(t, out, "run-42")
	assert.Contains(t, out, "published")
	assert.Contains(t, out, "article-7")
	assert.Contains(t, out, "2024-05-01T12:00:00Z")
}
