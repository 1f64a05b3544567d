package agents

import "time"

// Observer riceve eventi dall'esecuzione dei workflow (metriche, audit).
// Le implementazioni devono essere sicure per l'uso concorrente.
type Observer interface {
	StepFinished(agentID string, status StepStatus, duration time.Duration)
	WorkflowFinished(wf *Workflow, duration time.Duration)
	SynthesisFinished(fallback bool)
}

// nopObserver scarta tutti gli eventi
type nopObserver struct{}

func (nopObserver) StepFinished(string, StepStatus, time.Duration) {}
func (nopObserver) WorkflowFinished(*Workflow, time.Duration)       {}
func (nopObserver) SynthesisFinished(bool)                          {}

// MultiObserver inoltra ogni evento a tutti gli observer
type MultiObserver []Observer

func (m MultiObserver) StepFinished(agentID string, status StepStatus, duration time.Duration) {
	for _, o := range m {
		o.StepFinished(agentID, status, duration)
	}
}

func (m MultiObserver) WorkflowFinished(wf *Workflow, duration time.Duration) {
	for _, o := range m {
		o.WorkflowFinished(wf, duration)
	}
}

func (m MultiObserver) SynthesisFinished(fallback bool) {
	for _, o := range m {
		o.SynthesisFinished(fallback)
	}
}
