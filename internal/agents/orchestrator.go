package agents

import (
	"context"
	"errors"
	"time"

	"github.com/biodoia/marketmind/internal/knowledge"
	"github.com/biodoia/marketmind/internal/providers"
	"github.com/rs/zerolog/log"
)

// ErrEmptyMessage è restituito quando la richiesta non contiene un messaggio
var ErrEmptyMessage = errors.New("message is required")

const suggestQuestionsPrompt = "Generate exactly 5 analytical questions in JSON array format."

// ContextLoader fornisce il contesto di knowledge per un utente
type ContextLoader interface {
	Load(ctx context.Context, userID string, scope knowledge.Scope) (string, error)
}

// RunRecorder registra l'esito di un workflow. Best-effort: gli errori restano all'implementazione.
type RunRecorder interface {
	RecordRun(ctx context.Context, req Request, wf *Workflow, duration time.Duration)
}

// Request è una richiesta di orchestrazione
type Request struct {
	UserID      string
	Message     string
	WorkspaceID string
	ProjectID   string
}

func (r Request) scope() knowledge.Scope {
	return knowledge.Scope{WorkspaceID: r.WorkspaceID, ProjectID: r.ProjectID}
}

// AgentSummary è la vista pubblica di un agente
type AgentSummary struct {
	ID            string `json:"id"`
	Name          string `json:"name"`
	NameAr        string `json:"nameAr"`
	Description   string `json:"description"`
	DescriptionAr string `json:"descriptionAr"`
	Icon          string `json:"icon"`
	Color         string `json:"color"`
}

// ChatResult è la risposta di una chat con un singolo agente
type ChatResult struct {
	AgentID   string `json:"agentId"`
	AgentName string `json:"agentName"`
	Response  string `json:"response"`
}

// Orchestrator coordina registry, planner, executor e synthesizer
type Orchestrator struct {
	registry  *Registry
	completer providers.Completer
	loader    ContextLoader
	recorder  RunRecorder
	observer  Observer

	planner  *Planner
	executor *Executor
}

// Option configura l'Orchestrator
type Option func(*Orchestrator)

// WithContextLoader imposta la sorgente del contesto di knowledge
func WithContextLoader(l ContextLoader) Option {
	return func(o *Orchestrator) { o.loader = l }
}

// WithRunRecorder imposta il registro dei workflow eseguiti
func WithRunRecorder(r RunRecorder) Option {
	return func(o *Orchestrator) { o.recorder = r }
}

// WithObserver imposta l'observer degli eventi di esecuzione
func WithObserver(obs Observer) Option {
	return func(o *Orchestrator) { o.observer = obs }
}

// NewOrchestrator crea un nuovo Orchestrator
func NewOrchestrator(registry *Registry, completer providers.Completer, opts ...Option) *Orchestrator {
	o := &Orchestrator{
		registry:  registry,
		completer: completer,
		observer:  nopObserver{},
	}
	for _, opt := range opts {
		opt(o)
	}
	if o.observer == nil {
		o.observer = nopObserver{}
	}

	synthesizer := NewSynthesizer(registry, completer).WithObserver(o.observer)
	o.planner = NewPlanner(registry, completer)
	o.executor = NewExecutor(registry, completer, synthesizer).WithObserver(o.observer)

	return o
}

// Registry restituisce il registry degli agenti
func (o *Orchestrator) Registry() *Registry {
	return o.registry
}

// ListAgents restituisce tutti gli agenti in ordine di registry
func (o *Orchestrator) ListAgents() []AgentSummary {
	agents := o.registry.List()
	out := make([]AgentSummary, len(agents))
	for i, a := range agents {
		out[i] = AgentSummary{
			ID:            a.ID,
			Name:          a.Name,
			NameAr:        a.NameAr,
			Description:   a.Description,
			DescriptionAr: a.DescriptionAr,
			Icon:          a.Icon,
			Color:         a.Color,
		}
	}
	return out
}

// Chat invia un messaggio a un singolo agente con il contesto dell'utente
func (o *Orchestrator) Chat(ctx context.Context, agentID string, req Request) (*ChatResult, error) {
	agent, ok := o.registry.Get(agentID)
	if !ok {
		return nil, ErrAgentNotFound
	}
	if req.Message == "" {
		return nil, ErrEmptyMessage
	}

	knowledgeText := o.loadContext(ctx, req)

	response, err := o.completer.Complete(ctx, []providers.Message{
		{Role: providers.RoleSystem, Content: agent.SystemPrompt + "\n\n" + knowledgeText},
		{Role: providers.RoleUser, Content: req.Message},
	}, agent.Model)
	if err != nil {
		return nil, err
	}

	return &ChatResult{
		AgentID:   agent.ID,
		AgentName: agent.Name,
		Response:  response,
	}, nil
}

// RunWorkflow esegue la pipeline completa: contesto, piano, esecuzione e sintesi.
// Restituisce un errore solo per problemi di configurazione (agente sconosciuto).
func (o *Orchestrator) RunWorkflow(ctx context.Context, req Request) (*Workflow, error) {
	if req.Message == "" {
		return nil, ErrEmptyMessage
	}

	start := time.Now()
	knowledgeText := o.loadContext(ctx, req)

	log.Info().
		Str("user_id", req.UserID).
		Msg("Planning workflow")

	wf := o.planner.Plan(ctx, req.Message, knowledgeText)

	log.Info().
		Str("workflow_id", wf.ID).
		Str("name", wf.Name).
		Int("steps", len(wf.Steps)).
		Bool("fallback", wf.Fallback).
		Msg("Executing workflow")

	wf, err := o.executor.Execute(ctx, wf, knowledgeText)
	duration := time.Since(start)

	o.observer.WorkflowFinished(wf, duration)
	if o.recorder != nil {
		o.recorder.RecordRun(ctx, req, wf, duration)
	}

	if err != nil {
		log.Error().
			Err(err).
			Str("workflow_id", wf.ID).
			Msg("Workflow aborted")
		return wf, err
	}

	log.Info().
		Str("workflow_id", wf.ID).
		Int("completed", wf.CountByStatus(StepCompleted)).
		Int("failed", wf.CountByStatus(StepFailed)).
		Dur("duration", duration).
		Msg("Workflow completed")

	return wf, nil
}

// SuggestQuestions chiede all'analyst domande di approfondimento sul contesto dell'utente
func (o *Orchestrator) SuggestQuestions(ctx context.Context, req Request) ([]string, error) {
	agent, ok := o.registry.Get(AgentAnalyst)
	if !ok {
		return nil, ErrAgentNotFound
	}

	prompt := suggestQuestionsPrompt
	if req.Message != "" {
		prompt = req.Message + "\n\n" + prompt
	}

	response, err := o.completer.Complete(ctx, []providers.Message{
		{Role: providers.RoleSystem, Content: agent.SystemPrompt + "\n\n" + o.loadContext(ctx, req)},
		{Role: providers.RoleUser, Content: prompt},
	}, agent.Model)
	if err != nil {
		return nil, err
	}

	return ParseQuestions(response), nil
}

// loadContext non fallisce mai: un errore degrada a contesto vuoto
func (o *Orchestrator) loadContext(ctx context.Context, req Request) string {
	if o.loader == nil || req.UserID == "" {
		return ""
	}

	text, err := o.loader.Load(ctx, req.UserID, req.scope())
	if err != nil {
		log.Warn().
			Err(err).
			Str("user_id", req.UserID).
			Msg("Failed to load knowledge context")
		return ""
	}
	return text
}
