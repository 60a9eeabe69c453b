package monitoring

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/partner-cli/internal/config"
	"github.com/sells-group/partner-cli/internal/model"
)

func TestChecker_Check_SendsAlerts(t *testing.T) {
	var received atomic.Int32
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		received.Add(1)
		w.WriteHeader(http.StatusNoContent)
	}))
	defer ts.Close()

	cfg := config.MonitoringConfig{
		WebhookURL:       ts.URL,
		UnzonedThreshold: 1,
		LookbackRuns:     5,
	}
	st := &mockRuns{runs: []model.Run{
		{ID: "run-1", Status: model.RunStatusComplete, Summary: &model.RunSummary{Unzoned: []string{"a", "b"}}},
	}}
	checker := NewChecker(NewCollector(st), NewAlerter(cfg), cfg)

	alerts := checker.Check(context.Background())
	require.Len(t, alerts, 1)
	assert.Equal(t, AlertUnzonedBacklog, alerts[0].Type)
	assert.Equal(t, int32(1), received.Load())
	assert.Equal(t, 5, st.limit)
}

func TestChecker_Check_CollectError(t *testing.T) {
	st := &mockRuns{listErr: assert.AnError}
	cfg := config.MonitoringConfig{UnzonedThreshold: 1}
	checker := NewChecker(NewCollector(st), NewAlerter(cfg), cfg)

	assert.Nil(t, checker.Check(context.Background()))
}

func TestChecker_RunStopsOnCancel(t *testing.T) {
	cfg := config.MonitoringConfig{
		CheckIntervalSecs:    1,
		LookbackRuns:         20,
		FailureRateThreshold: 0.10,
	}
	checker := NewChecker(NewCollector(&mockRuns{}), NewAlerter(cfg), cfg)

	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan struct{})
	go func() {
		checker.Run(ctx)
		close(done)
	}()

	time.Sleep(100 * time.Millisecond)
	cancel()

	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("Checker.Run did not stop after context cancellation")
	}
}

func TestChecker_DefaultInterval(t *testing.T) {
	checker := NewChecker(NewCollector(&mockRuns{}), NewAlerter(config.MonitoringConfig{}), config.MonitoringConfig{})
	assert.NotNil(t, checker)

	// Zero interval falls back to five minutes; a cancelled context returns at once.
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	checker.Run(ctx)
}
