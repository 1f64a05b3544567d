package stats

import (
	"time"

	"github.com/biodoia/marketmind/internal/agents"
	"github.com/prometheus/client_golang/prometheus"
)

// WorkflowMetrics espone metriche dei workflow in formato Prometheus.
// Implementa agents.Observer.
type WorkflowMetrics struct {
	workflowsTotal   *prometheus.CounterVec
	workflowDuration prometheus.Histogram
	stepsTotal       *prometheus.CounterVec
	stepDuration     *prometheus.HistogramVec
	fallbackPlans    prometheus.Counter
	synthesisTotal   *prometheus.CounterVec
	httpRequests     *prometheus.CounterVec
}

// NewWorkflowMetrics crea e registra le metriche nel registerer dato
func NewWorkflowMetrics(reg prometheus.Registerer, namespace string) *WorkflowMetrics {
	if namespace == "" {
		namespace = "marketmind"
	}

	m := &WorkflowMetrics{}

	m.workflowsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "workflows_total",
			Help:      "Total number of workflows by final status",
		},
		[]string{"status"},
	)

	m.workflowDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "workflow_duration_seconds",
			Help:      "End-to-end workflow duration in seconds",
			Buckets:   []float64{1, 2.5, 5, 10, 20, 40, 60, 120, 240},
		},
	)

	m.stepsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "workflow_steps_total",
			Help:      "Total number of workflow steps by agent and status",
		},
		[]string{"agent", "status"},
	)

	m.stepDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "workflow_step_duration_seconds",
			Help:      "Workflow step duration in seconds",
			Buckets:   []float64{0.5, 1, 2.5, 5, 10, 20, 40, 60},
		},
		[]string{"agent"},
	)

	m.fallbackPlans = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "workflow_fallback_plans_total",
			Help:      "Workflows that ran the deterministic fallback plan",
		},
	)

	m.synthesisTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "workflow_synthesis_total",
			Help:      "Synthesis outcomes (model or concatenation fallback)",
		},
		[]string{"mode"},
	)

	m.httpRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "Multi-agent HTTP requests by action and status code",
		},
		[]string{"action", "code"},
	)

	reg.MustRegister(
		m.workflowsTotal,
		m.workflowDuration,
		m.stepsTotal,
		m.stepDuration,
		m.fallbackPlans,
		m.synthesisTotal,
		m.httpRequests,
	)

	return m
}

// StepFinished implementa agents.Observer
func (m *WorkflowMetrics) StepFinished(agentID string, status agents.StepStatus, duration time.Duration) {
	m.stepsTotal.WithLabelValues(agentID, string(status)).Inc()
	m.stepDuration.WithLabelValues(agentID).Observe(duration.Seconds())
}

// WorkflowFinished implementa agents.Observer
func (m *WorkflowMetrics) WorkflowFinished(wf *agents.Workflow, duration time.Duration) {
	m.workflowsTotal.WithLabelValues(string(wf.Status)).Inc()
	m.workflowDuration.Observe(duration.Seconds())
	if wf.Fallback {
		m.fallbackPlans.Inc()
	}
}

// SynthesisFinished implementa agents.Observer
func (m *WorkflowMetrics) SynthesisFinished(fallback bool) {
	mode := "model"
	if fallback {
		mode = "concatenation"
	}
	m.synthesisTotal.WithLabelValues(mode).Inc()
}

// RecordRequest conta una richiesta HTTP per azione e status
func (m *WorkflowMetrics) RecordRequest(action string, code int) {
	if action == "" {
		action = "unknown"
	}
	m.httpRequests.WithLabelValues(action, statusCode(code)).Inc()
}

func statusCode(code int) string {
	switch {
	case code >= 500:
		return "5xx"
	case code >= 400:
		return "4xx"
	default:
		return "2xx"
	}
}
