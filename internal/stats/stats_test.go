package stats

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/biodoia/marketmind/internal/agents"
	"github.com/biodoia/marketmind/pkg/database"
	"github.com/biodoia/marketmind/pkg/models"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupTestDB(t *testing.T) *database.DB {
	cfg := &database.Config{
		Type:       "sqlite",
		Connection: ":memory:",
		LogLevel:   "silent",
	}

	db, err := database.New(cfg)
	require.NoError(t, err)
	require.NotNil(t, db)

	sqlDB, err := db.DB.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)

	err = db.AutoMigrate()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	return db
}

func testWorkflow() *agents.Workflow {
	return &agents.Workflow{
		ID:   "wf-123",
		Name: "Standard Analysis",
		Steps: []*agents.WorkflowStep{
			{AgentID: agents.AgentResearch, Task: "Research: coffee", Status: agents.StepCompleted, Result: strings.Repeat("r", 800)},
			{AgentID: agents.AgentAnalyst, Task: "Analyze research findings", DependsOn: []string{"0"}, Status: agents.StepFailed, Result: "Error: AI error: 500"},
		},
		Status:      agents.WorkflowCompleted,
		FinalResult: "report",
		Fallback:    true,
	}
}

func TestNewWorkflowRun(t *testing.T) {
	req := agents.Request{UserID: "user-1", Message: "coffee"}
	run := NewWorkflowRun(req, testWorkflow(), 1500*time.Millisecond)

	assert.Equal(t, "wf-123", run.ID)
	assert.Equal(t, "user-1", run.UserID)
	assert.Equal(t, "coffee", run.Request)
	assert.Equal(t, "completed", run.Status)
	assert.True(t, run.Fallback)
	assert.Equal(t, 1, run.StepsCompleted)
	assert.Equal(t, 1, run.StepsFailed)
	assert.Equal(t, int64(1500), run.DurationMs)

	steps, err := run.GetSteps()
	require.NoError(t, err)
	require.Len(t, steps, 2)
	assert.Len(t, steps[0].ResultPreview, previewChars)
	assert.Equal(t, []string{"0"}, steps[1].DependsOn)
	assert.Equal(t, "failed", steps[1].Status)
}

func TestCollector(t *testing.T) {
	db := setupTestDB(t)
	collector := NewCollector(db)

	t.Run("Record run is readable immediately", func(t *testing.T) {
		collector.RecordRun(context.Background(), agents.Request{UserID: "user-1", Message: "coffee"}, testWorkflow(), time.Second)

		run, err := db.GetWorkflowRun(context.Background(), "wf-123")
		require.NoError(t, err)
		assert.Equal(t, "Standard Analysis", run.Name)
		assert.Equal(t, "report", run.FinalResult)
		assert.Equal(t, "user-1", run.UserID)
	})

	t.Run("Aggregate step metrics", func(t *testing.T) {
		collector.StepFinished(agents.AgentResearch, agents.StepCompleted, 100*time.Millisecond)
		collector.StepFinished(agents.AgentResearch, agents.StepFailed, 300*time.Millisecond)

		metrics := collector.GetAgentMetrics(agents.AgentResearch)
		require.NotNil(t, metrics)
		assert.Equal(t, int64(2), metrics.TotalSteps)
		assert.Equal(t, int64(1), metrics.CompletedSteps)
		assert.Equal(t, int64(1), metrics.FailedSteps)
		assert.Equal(t, int64(400), metrics.TotalDurationMs)
		assert.Equal(t, 0.5, collector.SuccessRate(agents.AgentResearch))

		assert.Nil(t, collector.GetAgentMetrics(agents.AgentWriter))
		assert.Zero(t, collector.SuccessRate(agents.AgentWriter))
	})
}

type recordingStore struct {
	mu     sync.Mutex
	calls  int
	ctxErr error
	err    error
}

func (s *recordingStore) CreateWorkflowRuns(ctx context.Context, _ []*models.WorkflowRun) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls++
	s.ctxErr = ctx.Err()
	return s.err
}

func TestCollector_StoreErrorIsSwallowed(t *testing.T) {
	store := &recordingStore{err: errors.New("disk full")}
	collector := NewCollector(store)

	assert.NotPanics(t, func() {
		collector.RecordRun(context.Background(), agents.Request{}, testWorkflow(), time.Second)
	})
	assert.Equal(t, 1, store.calls)
}

func TestCollector_RecordsAfterClientCancel(t *testing.T) {
	store := &recordingStore{}
	collector := NewCollector(store)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	collector.RecordRun(ctx, agents.Request{}, testWorkflow(), time.Second)
	assert.Equal(t, 1, store.calls)
	assert.NoError(t, store.ctxErr)
}

// metricValue legge un counter o l'observation count di un histogram
func metricValue(t *testing.T, reg *prometheus.Registry, name string, labels map[string]string) float64 {
	t.Helper()

	families, err := reg.Gather()
	require.NoError(t, err)

	for _, mf := range families {
		if mf.GetName() != name {
			continue
		}
		for _, m := range mf.GetMetric() {
			match := true
			for _, lp := range m.GetLabel() {
				if want, ok := labels[lp.GetName()]; ok && want != lp.GetValue() {
					match = false
				}
			}
			if !match {
				continue
			}
			if m.GetHistogram() != nil {
				return float64(m.GetHistogram().GetSampleCount())
			}
			return m.GetCounter().GetValue()
		}
	}
	return 0
}

func TestWorkflowMetrics(t *testing.T) {
	reg := prometheus.NewRegistry()
	metrics := NewWorkflowMetrics(reg, "test")

	var observer agents.Observer = metrics
	observer.StepFinished(agents.AgentResearch, agents.StepCompleted, time.Second)
	observer.StepFinished(agents.AgentAnalyst, agents.StepFailed, time.Second)
	observer.SynthesisFinished(true)
	observer.WorkflowFinished(testWorkflow(), 5*time.Second)
	metrics.RecordRequest("workflow", 200)
	metrics.RecordRequest("", 400)

	assert.Equal(t, 1.0, metricValue(t, reg, "test_workflow_steps_total", map[string]string{"agent": "research", "status": "completed"}))
	assert.Equal(t, 1.0, metricValue(t, reg, "test_workflow_steps_total", map[string]string{"agent": "analyst", "status": "failed"}))
	assert.Equal(t, 1.0, metricValue(t, reg, "test_workflow_synthesis_total", map[string]string{"mode": "concatenation"}))
	assert.Equal(t, 1.0, metricValue(t, reg, "test_workflows_total", map[string]string{"status": "completed"}))
	assert.Equal(t, 1.0, metricValue(t, reg, "test_workflow_fallback_plans_total", nil))
	assert.Equal(t, 1.0, metricValue(t, reg, "test_workflow_duration_seconds", nil))
	assert.Equal(t, 1.0, metricValue(t, reg, "test_http_requests_total", map[string]string{"action": "unknown", "code": "4xx"}))
}
