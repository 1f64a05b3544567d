package agents

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/biodoia/marketmind/internal/providers"
	"github.com/rs/zerolog/log"
)

const dependencyResultChars = 2000

// Executor esegue gli step di un workflow in ordine di lista.
// Non ordina topologicamente: l'ordine corretto è responsabilità del Planner.
type Executor struct {
	registry    *Registry
	completer   providers.Completer
	synthesizer *Synthesizer
	observer    Observer
}

// NewExecutor crea un nuovo Executor
func NewExecutor(registry *Registry, completer providers.Completer, synthesizer *Synthesizer) *Executor {
	return &Executor{
		registry:    registry,
		completer:   completer,
		synthesizer: synthesizer,
		observer:    nopObserver{},
	}
}

// WithObserver imposta l'observer per gli eventi degli step
func (e *Executor) WithObserver(o Observer) *Executor {
	if o != nil {
		e.observer = o
	}
	return e
}

// Execute esegue tutti gli step e passa il workflow al Synthesizer.
// Il fallimento di uno step non interrompe il workflow; solo un agente
// sconosciuto (errore di configurazione) viene restituito al chiamante.
func (e *Executor) Execute(ctx context.Context, wf *Workflow, knowledge string) (*Workflow, error) {
	wf.Status = WorkflowRunning
	results := make(map[string]string, len(wf.Steps))

	for i, step := range wf.Steps {
		agent, ok := e.registry.Get(step.AgentID)
		if !ok {
			wf.Status = WorkflowFailed
			return wf, &UnknownAgentError{AgentID: step.AgentID, StepIndex: i}
		}

		step.Status = StepRunning
		start := time.Now()

		result, err := e.completer.Complete(ctx, []providers.Message{
			{Role: providers.RoleSystem, Content: agent.SystemPrompt},
			{Role: providers.RoleUser, Content: e.buildStepPrompt(i, step, results, knowledge)},
		}, agent.Model)

		if err != nil {
			log.Error().
				Err(err).
				Str("workflow_id", wf.ID).
				Int("step", i).
				Str("agent", agent.ID).
				Msg("Workflow step failed")

			step.Result = "Error: " + err.Error()
			step.Status = StepFailed
		} else {
			step.Result = result
			step.Status = StepCompleted
			results[stepKey(i)] = result
		}

		e.observer.StepFinished(agent.ID, step.Status, time.Since(start))
	}

	if e.synthesizer == nil {
		wf.Status = WorkflowCompleted
		return wf, nil
	}

	return e.synthesizer.Synthesize(ctx, wf), nil
}

// buildStepPrompt costruisce il prompt di uno step: contesto, task e un
// estratto dei risultati degli step da cui dipende (solo quelli già completati)
func (e *Executor) buildStepPrompt(index int, step *WorkflowStep, results map[string]string, knowledge string) string {
	var b strings.Builder
	b.WriteString(knowledge)
	b.WriteString("\n\nTASK: ")
	b.WriteString(step.Task)

	if len(step.DependsOn) == 0 {
		return b.String()
	}

	b.WriteString("\n\n=== PREVIOUS RESULTS ===\n")
	for _, dep := range step.DependsOn {
		prev, ok := results[dep]
		if !ok {
			log.Warn().
				Int("step", index).
				Str("depends_on", dep).
				Msg("Dependency has no result, skipping")
			continue
		}
		fmt.Fprintf(&b, "\nStep %s Result:\n%s\n---", dep, truncate(prev, dependencyResultChars))
	}

	return b.String()
}
