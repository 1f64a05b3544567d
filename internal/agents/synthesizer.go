package agents

import (
	"context"
	"fmt"
	"strings"

	"github.com/biodoia/marketmind/internal/providers"
	"github.com/rs/zerolog/log"
)

const (
	synthesisSystemPrompt = "You are a synthesis expert. Create cohesive, professional reports from multiple sources."
	synthesisResultChars  = 1500

	// NoResultsNotice è il risultato finale quando nessuno step ha prodotto testo
	NoResultsNotice = "The workflow completed but no step produced a result."
)

// Synthesizer unisce i risultati degli step in una risposta finale
type Synthesizer struct {
	registry  *Registry
	completer providers.Completer
	model     string
	observer  Observer
}

// NewSynthesizer crea un Synthesizer. Usa il modello del coordinator se registrato.
func NewSynthesizer(registry *Registry, completer providers.Completer) *Synthesizer {
	model := DefaultModel
	if coordinator, ok := registry.Get(AgentCoordinator); ok && coordinator.Model != "" {
		model = coordinator.Model
	}

	return &Synthesizer{
		registry:  registry,
		completer: completer,
		model:     model,
		observer:  nopObserver{},
	}
}

// WithObserver imposta l'observer per gli eventi di sintesi
func (s *Synthesizer) WithObserver(o Observer) *Synthesizer {
	if o != nil {
		s.observer = o
	}
	return s
}

// Synthesize imposta FinalResult e porta il workflow a completed.
// Un errore della chiamata di sintesi non viene mai propagato.
func (s *Synthesizer) Synthesize(ctx context.Context, wf *Workflow) *Workflow {
	response, err := s.completer.Complete(ctx, []providers.Message{
		{Role: providers.RoleSystem, Content: synthesisSystemPrompt},
		{Role: providers.RoleUser, Content: s.buildPrompt(wf)},
	}, s.model)

	if err != nil {
		log.Warn().
			Err(err).
			Str("workflow_id", wf.ID).
			Msg("Synthesis failed, concatenating step results")

		wf.FinalResult = concatResults(wf)
		s.observer.SynthesisFinished(true)
	} else {
		wf.FinalResult = response
		s.observer.SynthesisFinished(false)
	}

	wf.Status = WorkflowCompleted
	return wf
}

func (s *Synthesizer) buildPrompt(wf *Workflow) string {
	sections := make([]string, len(wf.Steps))
	for i, step := range wf.Steps {
		name := step.AgentID
		if agent, ok := s.registry.Get(step.AgentID); ok {
			name = agent.Name
		}

		result := "No result"
		if step.Result != "" {
			result = truncate(step.Result, synthesisResultChars)
		}

		sections[i] = fmt.Sprintf("\n[%s]\nTask: %s\nResult: %s", name, step.Task, result)
	}

	var b strings.Builder
	b.WriteString("Synthesize these multi-agent workflow results into a comprehensive final response:\n\n")
	fmt.Fprintf(&b, "WORKFLOW: %s\n\n", wf.Name)
	b.WriteString("RESULTS:\n")
	b.WriteString(strings.Join(sections, "\n---"))
	b.WriteString(`

Provide a cohesive, well-structured final response that:
1. Integrates insights from all agents
2. Removes redundancy
3. Presents clear conclusions and recommendations
4. Uses professional formatting with headers and bullet points`)

	return b.String()
}

// concatResults è il fallback testuale: unisce tutti i risultati non vuoti,
// inclusi i testi di errore degli step falliti
func concatResults(wf *Workflow) string {
	parts := make([]string, 0, len(wf.Steps))
	for _, step := range wf.Steps {
		if step.Result != "" {
			parts = append(parts, step.Result)
		}
	}
	if len(parts) == 0 {
		return NoResultsNotice
	}
	return strings.Join(parts, "\n\n---\n\n")
}
