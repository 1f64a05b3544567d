package models

import (
	"testing"

	"github.com/google/uuid"
)

func TestDocument_BeforeCreate(t *testing.T) {
	tests := []struct {
		name string
		doc  *Document
	}{
		{
			name: "generates UUID if nil",
			doc:  &Document{FileName: "report.pdf"},
		},
		{
			name: "keeps existing UUID",
			doc:  &Document{ID: uuid.New(), FileName: "report.pdf"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			originalID := tt.doc.ID
			if err := tt.doc.BeforeCreate(nil); err != nil {
				t.Fatalf("BeforeCreate() error = %v", err)
			}

			if tt.doc.ID == uuid.Nil {
				t.Error("ID should not be nil after BeforeCreate()")
			}

			if originalID != uuid.Nil && tt.doc.ID != originalID {
				t.Error("Existing ID should not be changed")
			}
		})
	}
}

func TestWorkflowRun_Steps(t *testing.T) {
	run := &WorkflowRun{ID: "wf-1", Status: "completed"}

	steps, err := run.GetSteps()
	if err != nil || steps != nil {
		t.Fatalf("GetSteps() on empty run = %v, %v", steps, err)
	}

	in := []RunStep{
		{AgentID: "research", Task: "collect", Status: "completed", ResultPreview: "ok"},
		{AgentID: "analyst", Task: "analyze", DependsOn: []string{"0"}, Status: "failed"},
	}
	if err := run.SetSteps(in); err != nil {
		t.Fatalf("SetSteps() error = %v", err)
	}

	out, err := run.GetSteps()
	if err != nil {
		t.Fatalf("GetSteps() error = %v", err)
	}
	if len(out) != 2 || out[1].DependsOn[0] != "0" || out[0].ResultPreview != "ok" {
		t.Errorf("GetSteps() = %+v", out)
	}
}

func TestWorkflowRun_Succeeded(t *testing.T) {
	tests := []struct {
		name string
		run  WorkflowRun
		want bool
	}{
		{"completed without failures", WorkflowRun{Status: "completed"}, true},
		{"completed with failed steps", WorkflowRun{Status: "completed", StepsFailed: 1}, false},
		{"failed", WorkflowRun{Status: "failed"}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.run.Succeeded(); got != tt.want {
				t.Errorf("Succeeded() = %v, want %v", got, tt.want)
			}
		})
	}
}
