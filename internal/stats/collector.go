package stats

import (
	"context"
	"sync"
	"time"

	"github.com/biodoia/marketmind/internal/agents"
	"github.com/biodoia/marketmind/pkg/models"
	"github.com/rs/zerolog/log"
)

const previewChars = 500

// RunStore persiste i run dei workflow
type RunStore interface {
	CreateWorkflowRuns(ctx context.Context, runs []*models.WorkflowRun) error
}

// AgentMetrics rappresenta metriche aggregate in memoria per un agente
type AgentMetrics struct {
	AgentID         string
	TotalSteps      int64
	CompletedSteps  int64
	FailedSteps     int64
	TotalDurationMs int64
	LastUpdated     time.Time
}

// recordTimeout limita la scrittura di un run
const recordTimeout = 5 * time.Second

// Collector scrive i run dei workflow nel database e aggrega in memoria le
// metriche per agente. Implementa agents.RunRecorder e agents.Observer.
type Collector struct {
	store RunStore

	// In-memory aggregation per agente
	metrics map[string]*AgentMetrics
	mu      sync.RWMutex
}

// NewCollector crea un nuovo collector
func NewCollector(store RunStore) *Collector {
	return &Collector{
		store:   store,
		metrics: make(map[string]*AgentMetrics),
	}
}

// RecordRun implementa agents.RunRecorder. Il run è scritto prima che la
// risposta arrivi al client, così il suo id è subito leggibile dallo storico.
// Un errore viene loggato e non raggiunge il chiamante.
func (c *Collector) RecordRun(ctx context.Context, req agents.Request, wf *agents.Workflow, duration time.Duration) {
	run := NewWorkflowRun(req, wf, duration)

	// La disconnessione del client non deve perdere il run
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), recordTimeout)
	defer cancel()

	if err := c.store.CreateWorkflowRuns(ctx, []*models.WorkflowRun{run}); err != nil {
		log.Error().
			Err(err).
			Str("workflow_id", run.ID).
			Msg("Failed to record workflow run")
		return
	}

	log.Debug().Str("workflow_id", run.ID).Msg("Workflow run recorded")
}

// NewWorkflowRun converte un workflow nel suo log persistito
func NewWorkflowRun(req agents.Request, wf *agents.Workflow, duration time.Duration) *models.WorkflowRun {
	steps := make([]models.RunStep, len(wf.Steps))
	for i, s := range wf.Steps {
		steps[i] = models.RunStep{
			AgentID:       s.AgentID,
			Task:          s.Task,
			DependsOn:     s.DependsOn,
			Status:        string(s.Status),
			ResultPreview: preview(s.Result),
		}
	}

	run := &models.WorkflowRun{
		ID:             wf.ID,
		UserID:         req.UserID,
		Name:           wf.Name,
		Status:         string(wf.Status),
		Request:        req.Message,
		Fallback:       wf.Fallback,
		StepsCompleted: wf.CountByStatus(agents.StepCompleted),
		StepsFailed:    wf.CountByStatus(agents.StepFailed),
		FinalResult:    wf.FinalResult,
		DurationMs:     duration.Milliseconds(),
		CreatedAt:      time.Now(),
	}

	if err := run.SetSteps(steps); err != nil {
		log.Warn().Err(err).Str("workflow_id", wf.ID).Msg("Failed to encode workflow steps")
	}

	return run
}

// StepFinished implementa agents.Observer
func (c *Collector) StepFinished(agentID string, status agents.StepStatus, duration time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()

	agg, exists := c.metrics[agentID]
	if !exists {
		agg = &AgentMetrics{AgentID: agentID}
		c.metrics[agentID] = agg
	}

	agg.TotalSteps++
	switch status {
	case agents.StepCompleted:
		agg.CompletedSteps++
	case agents.StepFailed:
		agg.FailedSteps++
	}
	agg.TotalDurationMs += duration.Milliseconds()
	agg.LastUpdated = time.Now()
}

// WorkflowFinished implementa agents.Observer
func (c *Collector) WorkflowFinished(*agents.Workflow, time.Duration) {}

// SynthesisFinished implementa agents.Observer
func (c *Collector) SynthesisFinished(bool) {}

// GetAgentMetrics restituisce le metriche aggregate per un agente
func (c *Collector) GetAgentMetrics(agentID string) *AgentMetrics {
	c.mu.RLock()
	defer c.mu.RUnlock()

	if metrics, exists := c.metrics[agentID]; exists {
		// Return copy
		copy := *metrics
		return &copy
	}

	return nil
}

// SuccessRate calcola la percentuale di step completati per un agente
func (c *Collector) SuccessRate(agentID string) float64 {
	metrics := c.GetAgentMetrics(agentID)
	if metrics == nil || metrics.TotalSteps == 0 {
		return 0.0
	}

	return float64(metrics.CompletedSteps) / float64(metrics.TotalSteps)
}

func preview(s string) string {
	runes := []rune(s)
	if len(runes) <= previewChars {
		return s
	}
	return string(runes[:previewChars])
}
