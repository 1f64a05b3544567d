package models

import (
	"encoding/json"
	"time"

	"gorm.io/datatypes"
)

// WorkflowRun è il log di una singola esecuzione multi-agent
type WorkflowRun struct {
	ID     string `json:"id" gorm:"primary_key"` // id del workflow
	UserID string `json:"user_id" gorm:"index"`  // vuoto per richieste anonime

	Name     string `json:"name"`
	Status   string `json:"status" gorm:"not null;index"`
	Request  string `json:"request"`
	Fallback bool   `json:"fallback" gorm:"default:false"`

	// Steps (JSON)
	Steps datatypes.JSON `json:"steps" gorm:"type:jsonb"`

	StepsCompleted int `json:"steps_completed"`
	StepsFailed    int `json:"steps_failed"`

	FinalResult string `json:"final_result"`
	DurationMs  int64  `json:"duration_ms"`

	CreatedAt time.Time `json:"created_at" gorm:"index"`
}

// RunStep è la vista persistita di uno step
type RunStep struct {
	AgentID       string   `json:"agentId"`
	Task          string   `json:"task"`
	DependsOn     []string `json:"dependsOn,omitempty"`
	Status        string   `json:"status"`
	ResultPreview string   `json:"resultPreview,omitempty"`
}

// SetSteps serializza gli step nella colonna JSON
func (r *WorkflowRun) SetSteps(steps []RunStep) error {
	data, err := json.Marshal(steps)
	if err != nil {
		return err
	}
	r.Steps = datatypes.JSON(data)
	return nil
}

// GetSteps deserializza gli step
func (r *WorkflowRun) GetSteps() ([]RunStep, error) {
	if len(r.Steps) == 0 {
		return nil, nil
	}
	var steps []RunStep
	if err := json.Unmarshal(r.Steps, &steps); err != nil {
		return nil, err
	}
	return steps, nil
}

// Succeeded indica che nessuno step è fallito
func (r *WorkflowRun) Succeeded() bool {
	return r.Status == "completed" && r.StepsFailed == 0
}

// TableName specifica il nome della tabella
func (WorkflowRun) TableName() string {
	return "workflow_runs"
}
