package agents

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/biodoia/marketmind/internal/providers"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

const (
	// DefaultWorkflowName è usato quando il coordinator non fornisce un nome
	DefaultWorkflowName = "Autonomous Workflow"

	// FallbackWorkflowName è il nome del piano deterministico
	FallbackWorkflowName = "Standard Analysis"

	// MaxPlanSteps limita gli step accettati da un piano
	MaxPlanSteps = 4

	planContextChars = 2000
)

// Planner trasforma una richiesta in un grafo di step chiedendo un piano al coordinator
type Planner struct {
	registry  *Registry
	completer providers.Completer
}

// NewPlanner crea un nuovo Planner
func NewPlanner(registry *Registry, completer providers.Completer) *Planner {
	return &Planner{
		registry:  registry,
		completer: completer,
	}
}

// Plan restituisce sempre un workflow in stato planning. Qualsiasi errore
// del coordinator o del parsing porta al workflow di fallback.
func (p *Planner) Plan(ctx context.Context, request, knowledge string) *Workflow {
	coordinator, ok := p.registry.Get(AgentCoordinator)
	if !ok {
		log.Warn().Msg("Coordinator agent not registered, using fallback plan")
		return FallbackWorkflow(request)
	}

	response, err := p.completer.Complete(ctx, []providers.Message{
		{Role: providers.RoleSystem, Content: coordinator.SystemPrompt},
		{Role: providers.RoleUser, Content: p.buildPrompt(request, knowledge)},
	}, coordinator.Model)
	if err != nil {
		log.Warn().Err(err).Msg("Workflow planning call failed, using fallback plan")
		return FallbackWorkflow(request)
	}

	result := p.parsePlan(response)
	if result.err != nil {
		log.Warn().Err(result.err).Msg("Plan parsing error, using fallback plan")
		return FallbackWorkflow(request)
	}

	return result.workflow
}

// buildPrompt costruisce il prompt di pianificazione
func (p *Planner) buildPrompt(request, knowledge string) string {
	specialists := p.registry.Specialists()

	agentLines := make([]string, len(specialists))
	agentIDs := make([]string, len(specialists))
	for i, a := range specialists {
		agentLines[i] = fmt.Sprintf("- %s: %s", a.ID, a.Description)
		agentIDs[i] = a.ID
	}

	var b strings.Builder
	b.WriteString("Given this user request and context, create an optimal multi-agent workflow plan.\n\n")
	fmt.Fprintf(&b, "USER REQUEST: %s\n\n", request)
	fmt.Fprintf(&b, "AVAILABLE CONTEXT: %s\n\n", truncate(knowledge, planContextChars))
	fmt.Fprintf(&b, "AVAILABLE AGENTS:\n%s\n\n", strings.Join(agentLines, "\n"))
	b.WriteString("Create a workflow plan as JSON:\n")
	b.WriteString("{\n")
	b.WriteString(`  "name": "workflow name",` + "\n")
	b.WriteString(`  "steps": [` + "\n")
	fmt.Fprintf(&b, `    { "agentId": "%s", "task": "specific task description", "dependsOn": ["previous step index if needed"] }`+"\n",
		strings.Join(agentIDs, "|"))
	b.WriteString("  ]\n}\n\n")
	b.WriteString(`RULES:
- Use 2-4 steps maximum for efficiency
- Each step should have a clear, specific task
- Use dependsOn to chain sequential steps; only reference indices of earlier steps
- Final step should synthesize all previous results

Return ONLY valid JSON.`)

	return b.String()
}

// planResult è il risultato etichettato del parsing: o un workflow valido o un errore
type planResult struct {
	workflow *Workflow
	err      *PlanParseError
}

type rawPlan struct {
	Name  string    `json:"name"`
	Steps []rawStep `json:"steps"`
}

type rawStep struct {
	AgentID   string   `json:"agentId"`
	Task      string   `json:"task"`
	DependsOn stepRefs `json:"dependsOn"`
}

// stepRefs accetta indici sia come stringhe sia come numeri
type stepRefs []string

func (r *stepRefs) UnmarshalJSON(data []byte) error {
	if bytes.Equal(bytes.TrimSpace(data), []byte("null")) {
		*r = nil
		return nil
	}

	var items []json.RawMessage
	if err := json.Unmarshal(data, &items); err != nil {
		return fmt.Errorf("dependsOn must be an array: %w", err)
	}

	refs := make([]string, 0, len(items))
	for _, item := range items {
		var s string
		if err := json.Unmarshal(item, &s); err == nil {
			refs = append(refs, strings.TrimSpace(s))
			continue
		}
		var n json.Number
		if err := json.Unmarshal(item, &n); err == nil {
			refs = append(refs, n.String())
			continue
		}
		return fmt.Errorf("invalid dependsOn entry %s", string(item))
	}

	*r = refs
	return nil
}

// parsePlan valida la risposta del coordinator. Nessuna costruzione parziale:
// qualsiasi campo mancante o non valido scarta l'intero piano.
func (p *Planner) parsePlan(response string) planResult {
	raw, ok := ExtractJSONObject(response)
	if !ok {
		return planResult{err: &PlanParseError{Reason: "no JSON object in coordinator response"}}
	}

	var plan rawPlan
	if err := json.Unmarshal([]byte(raw), &plan); err != nil {
		return planResult{err: &PlanParseError{Reason: "invalid JSON", Err: err}}
	}

	if len(plan.Steps) == 0 {
		return planResult{err: &PlanParseError{Reason: "plan has no steps"}}
	}
	if len(plan.Steps) > MaxPlanSteps {
		log.Debug().Int("steps", len(plan.Steps)).Msg("Plan exceeds step limit, truncating")
		plan.Steps = plan.Steps[:MaxPlanSteps]
	}

	steps := make([]*WorkflowStep, len(plan.Steps))
	for i, s := range plan.Steps {
		agentID := strings.TrimSpace(s.AgentID)
		task := strings.TrimSpace(s.Task)

		if agentID == "" || task == "" {
			return planResult{err: &PlanParseError{Reason: fmt.Sprintf("step %d is missing agentId or task", i)}}
		}
		if !p.registry.IsSpecialist(agentID) {
			return planResult{err: &PlanParseError{Reason: fmt.Sprintf("step %d references unknown agent %q", i, agentID)}}
		}

		for _, ref := range s.DependsOn {
			idx, err := parseStepIndex(ref)
			if err != nil {
				return planResult{err: &PlanParseError{Reason: fmt.Sprintf("step %d", i), Err: err}}
			}
			if idx >= i {
				return planResult{err: &PlanParseError{Reason: fmt.Sprintf("step %d depends on step %d which does not precede it", i, idx)}}
			}
		}

		steps[i] = &WorkflowStep{
			AgentID:   agentID,
			Task:      task,
			DependsOn: normalizeRefs(s.DependsOn),
			Status:    StepPending,
		}
	}

	name := strings.TrimSpace(plan.Name)
	if name == "" {
		name = DefaultWorkflowName
	}

	return planResult{workflow: &Workflow{
		ID:     uuid.New().String(),
		Name:   name,
		Steps:  steps,
		Status: WorkflowPlanning,
	}}
}

// normalizeRefs rimuove zeri iniziali ("01" -> "1") così le chiavi coincidono con la mappa dei risultati
func normalizeRefs(refs []string) []string {
	if len(refs) == 0 {
		return nil
	}
	out := make([]string, len(refs))
	for i, ref := range refs {
		idx, _ := parseStepIndex(ref)
		out[i] = stepKey(idx)
	}
	return out
}

// FallbackWorkflow è il piano deterministico in due step: research poi analyst
func FallbackWorkflow(request string) *Workflow {
	return &Workflow{
		ID:   uuid.New().String(),
		Name: FallbackWorkflowName,
		Steps: []*WorkflowStep{
			{
				AgentID: AgentResearch,
				Task:    "Research: " + request,
				Status:  StepPending,
			},
			{
				AgentID:   AgentAnalyst,
				Task:      "Analyze research findings",
				DependsOn: []string{"0"},
				Status:    StepPending,
			},
		},
		Status:   WorkflowPlanning,
		Fallback: true,
	}
}
