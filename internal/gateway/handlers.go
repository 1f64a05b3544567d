package gateway

import (
	"errors"
	"strconv"

	"github.com/biodoia/marketmind/internal/agents"
	"github.com/biodoia/marketmind/internal/providers"
	"github.com/biodoia/marketmind/internal/ratelimit"
	"github.com/biodoia/marketmind/pkg/middleware"
	"github.com/gofiber/fiber/v3"
	"github.com/rs/zerolog/log"
	"gorm.io/gorm"
)

// Azioni accettate da POST /v1/multi-agent
const (
	ActionListAgents       = "list-agents"
	ActionChat             = "chat"
	ActionWorkflow         = "workflow"
	ActionSuggestQuestions = "suggest-questions"
)

const (
	resultPreviewChars = 500

	defaultHistoryLimit = 20
	maxHistoryLimit     = 100

	paymentRequiredMessage = "Payment required. Please add credits."
)

// MultiAgentRequest è il body di POST /v1/multi-agent
type MultiAgentRequest struct {
	Action       string `json:"action"`
	AgentID      string `json:"agentId,omitempty"`
	Message      string `json:"message"`
	WorkspaceID  string `json:"workspaceId,omitempty"`
	ProjectID    string `json:"projectId,omitempty"`
	AutoWorkflow bool   `json:"autoWorkflow,omitempty"`
}

// StepView è la vista di uno step restituita al client
type StepView struct {
	AgentID       string `json:"agentId"`
	AgentName     string `json:"agentName,omitempty"`
	AgentIcon     string `json:"agentIcon,omitempty"`
	Task          string `json:"task"`
	Status        string `json:"status"`
	ResultPreview string `json:"resultPreview,omitempty"`
}

// WorkflowView è la vista di un workflow restituita al client
type WorkflowView struct {
	ID     string     `json:"id"`
	Name   string     `json:"name"`
	Status string     `json:"status"`
	Steps  []StepView `json:"steps"`
}

// WorkflowResponse è la risposta dell'azione workflow
type WorkflowResponse struct {
	Workflow WorkflowView `json:"workflow"`
	Response string       `json:"response"`
}

// handleMultiAgent smista l'azione richiesta e conta la richiesta nelle metriche
func (g *Gateway) handleMultiAgent(c fiber.Ctx) error {
	var req MultiAgentRequest
	if err := c.Bind().Body(&req); err != nil {
		g.recordRequest("invalid", fiber.StatusBadRequest)
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid request body",
		})
	}

	action := resolveAction(req)

	log.Info().
		Str("action", action).
		Str("agent_id", req.AgentID).
		Str("user_id", middleware.GetUserID(c)).
		Msg("Multi-agent request")

	var err error
	switch action {
	case ActionListAgents:
		err = c.JSON(fiber.Map{"agents": g.deps.Orchestrator.ListAgents()})
	case ActionChat:
		err = g.handleChat(c, req)
	case ActionWorkflow:
		err = g.handleWorkflow(c, req)
	case ActionSuggestQuestions:
		err = g.handleSuggestQuestions(c, req)
	default:
		err = c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid action",
		})
	}

	g.recordRequest(action, c.Response().StatusCode())
	return err
}

// resolveAction applica le regole di dispatch: chat richiede un agentId,
// autoWorkflow forza il workflow per qualsiasi altra azione.
func resolveAction(req MultiAgentRequest) string {
	switch {
	case req.Action == ActionListAgents:
		return ActionListAgents
	case req.Action == ActionChat && req.AgentID != "":
		return ActionChat
	case req.Action == ActionWorkflow || req.AutoWorkflow:
		return ActionWorkflow
	case req.Action == ActionSuggestQuestions:
		return ActionSuggestQuestions
	default:
		return "invalid"
	}
}

func (g *Gateway) handleChat(c fiber.Ctx, req MultiAgentRequest) error {
	result, err := g.deps.Orchestrator.Chat(c.Context(), req.AgentID, g.agentRequest(c, req))
	if err != nil {
		return g.respondError(c, err)
	}
	return c.JSON(result)
}

func (g *Gateway) handleWorkflow(c fiber.Ctx, req MultiAgentRequest) error {
	wf, err := g.deps.Orchestrator.RunWorkflow(c.Context(), g.agentRequest(c, req))
	if err != nil {
		return g.respondError(c, err)
	}

	return c.JSON(WorkflowResponse{
		Workflow: g.workflowView(wf),
		Response: wf.FinalResult,
	})
}

func (g *Gateway) handleSuggestQuestions(c fiber.Ctx, req MultiAgentRequest) error {
	questions, err := g.deps.Orchestrator.SuggestQuestions(c.Context(), g.agentRequest(c, req))
	if err != nil {
		return g.respondError(c, err)
	}
	return c.JSON(fiber.Map{"questions": questions})
}

func (g *Gateway) agentRequest(c fiber.Ctx, req MultiAgentRequest) agents.Request {
	return agents.Request{
		UserID:      middleware.GetUserID(c),
		Message:     req.Message,
		WorkspaceID: req.WorkspaceID,
		ProjectID:   req.ProjectID,
	}
}

func (g *Gateway) workflowView(wf *agents.Workflow) WorkflowView {
	registry := g.deps.Orchestrator.Registry()

	steps := make([]StepView, len(wf.Steps))
	for i, s := range wf.Steps {
		view := StepView{
			AgentID:       s.AgentID,
			Task:          s.Task,
			Status:        string(s.Status),
			ResultPreview: preview(s.Result),
		}
		if agent, ok := registry.Get(s.AgentID); ok {
			view.AgentName = agent.Name
			view.AgentIcon = agent.Icon
		}
		steps[i] = view
	}

	return WorkflowView{
		ID:     wf.ID,
		Name:   wf.Name,
		Status: string(wf.Status),
		Steps:  steps,
	}
}

// respondError traduce gli errori dell'orchestratore in status HTTP
func (g *Gateway) respondError(c fiber.Ctx, err error) error {
	status, message := errorStatus(err)
	if status >= fiber.StatusInternalServerError {
		log.Error().Err(err).Str("request_id", middleware.GetRequestID(c)).Msg("Multi-agent error")
	}
	return c.Status(status).JSON(fiber.Map{"error": message})
}

func errorStatus(err error) (int, string) {
	var unknown *agents.UnknownAgentError
	if errors.As(err, &unknown) {
		return fiber.StatusInternalServerError, err.Error()
	}

	if errors.Is(err, agents.ErrAgentNotFound) {
		return fiber.StatusNotFound, "Agent not found"
	}
	if errors.Is(err, agents.ErrEmptyMessage) {
		return fiber.StatusBadRequest, "Message is required"
	}

	if upstream, ok := providers.AsUpstreamError(err); ok {
		switch {
		case upstream.IsRateLimited():
			return fiber.StatusTooManyRequests, ratelimit.ExceededMessage
		case upstream.IsPaymentRequired():
			return fiber.StatusPaymentRequired, paymentRequiredMessage
		}
	}

	return fiber.StatusInternalServerError, err.Error()
}

func (g *Gateway) recordRequest(action string, code int) {
	if g.deps.Metrics != nil {
		g.deps.Metrics.RecordRequest(action, code)
	}
}

// handleListRuns restituisce gli ultimi run dell'utente autenticato
func (g *Gateway) handleListRuns(c fiber.Ctx) error {
	userID := middleware.GetUserID(c)
	if userID == "" {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
			"error": "Authentication required",
		})
	}

	limit := defaultHistoryLimit
	if raw := c.Query("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
				"error": "invalid limit",
			})
		}
		limit = min(n, maxHistoryLimit)
	}

	runs, err := g.deps.History.RecentWorkflowRuns(c.Context(), userID, limit)
	if err != nil {
		return fiber.NewError(fiber.StatusInternalServerError, "failed to load workflow runs")
	}

	return c.JSON(fiber.Map{
		"runs":  runs,
		"count": len(runs),
	})
}

// handleGetRun restituisce un run dell'utente autenticato
func (g *Gateway) handleGetRun(c fiber.Ctx) error {
	userID := middleware.GetUserID(c)
	if userID == "" {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
			"error": "Authentication required",
		})
	}

	run, err := g.deps.History.GetWorkflowRun(c.Context(), c.Params("id"))
	if errors.Is(err, gorm.ErrRecordNotFound) || (err == nil && run.UserID != userID) {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"error": "Workflow run not found",
		})
	}
	if err != nil {
		return fiber.NewError(fiber.StatusInternalServerError, "failed to load workflow run")
	}

	return c.JSON(run)
}

func preview(s string) string {
	runes := []rune(s)
	if len(runes) <= resultPreviewChars {
		return s
	}
	return string(runes[:resultPreviewChars])
}
