package agents

import (
	"errors"
	"fmt"
)

// ErrAgentNotFound è restituito da Chat per un agente sconosciuto
var ErrAgentNotFound = errors.New("agent not found")

// UnknownAgentError indica uno step che referenzia un agente non registrato.
// È un errore di configurazione e non viene assorbito dall'executor.
type UnknownAgentError struct {
	AgentID   string
	StepIndex int
}

func (e *UnknownAgentError) Error() string {
	return fmt.Sprintf("agent not found: %s (step %d)", e.AgentID, e.StepIndex)
}

// Unwrap permette errors.Is(err, ErrAgentNotFound)
func (e *UnknownAgentError) Unwrap() error {
	return ErrAgentNotFound
}

// PlanParseError descrive perché un piano del coordinator è stato scartato.
// Non esce mai dal package: porta sempre al workflow di fallback.
type PlanParseError struct {
	Reason string
	Err    error
}

func (e *PlanParseError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("plan parse: %s: %v", e.Reason, e.Err)
	}
	return "plan parse: " + e.Reason
}

func (e *PlanParseError) Unwrap() error {
	return e.Err
}
