package agents

import (
	"fmt"
	"strconv"
)

// StepStatus rappresenta lo stato di uno step
type StepStatus string

const (
	StepPending   StepStatus = "pending"
	StepRunning   StepStatus = "running"
	StepCompleted StepStatus = "completed"
	StepFailed    StepStatus = "failed"
)

// WorkflowStatus rappresenta lo stato complessivo del workflow
type WorkflowStatus string

const (
	WorkflowPlanning  WorkflowStatus = "planning"
	WorkflowRunning   WorkflowStatus = "running"
	WorkflowCompleted WorkflowStatus = "completed"
	WorkflowFailed    WorkflowStatus = "failed"
)

// WorkflowStep è un'unità di lavoro assegnata a un singolo agente
type WorkflowStep struct {
	AgentID string

	// Istruzione derivata dalla pianificazione
	Task string

	// Indici (come stringhe) di step precedenti
	DependsOn []string

	// Vuoto finché lo step non è eseguito
	Result string

	Status StepStatus
}

// Workflow è l'aggregato di una singola richiesta. Non è condiviso tra richieste.
type Workflow struct {
	ID          string
	Name        string
	Steps       []*WorkflowStep
	Status      WorkflowStatus
	FinalResult string

	// Fallback indica che il piano è quello deterministico di default
	Fallback bool
}

// CountByStatus conta gli step in un determinato stato
func (w *Workflow) CountByStatus(status StepStatus) int {
	n := 0
	for _, s := range w.Steps {
		if s.Status == status {
			n++
		}
	}
	return n
}

// stepKey è la chiave usata nella mappa dei risultati
func stepKey(index int) string {
	return strconv.Itoa(index)
}

// parseStepIndex converte un riferimento dependsOn in indice
func parseStepIndex(ref string) (int, error) {
	idx, err := strconv.Atoi(ref)
	if err != nil || idx < 0 {
		return 0, fmt.Errorf("invalid step reference %q", ref)
	}
	return idx, nil
}

// truncate taglia s a max rune
func truncate(s string, max int) string {
	if max <= 0 {
		return ""
	}
	runes := []rune(s)
	if len(runes) <= max {
		return s
	}
	return string(runes[:max])
}
