package agents

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/biodoia/marketmind/internal/knowledge"
	"github.com/biodoia/marketmind/internal/providers"
)

var errUpstream = errors.New("upstream unavailable")

const synthesisRole = "synthesis"

// call è una singola invocazione registrata dal fakeCompleter
type call struct {
	Role   string // id agente o synthesisRole
	System string
	User   string
	Model  string
}

// fakeCompleter risponde in base all'agente riconosciuto dal system prompt
type fakeCompleter struct {
	registry *Registry

	mu    sync.Mutex
	calls []call

	respond func(c call) (string, error)
}

func newFakeCompleter(registry *Registry, respond func(c call) (string, error)) *fakeCompleter {
	return &fakeCompleter{registry: registry, respond: respond}
}

func (f *fakeCompleter) Complete(_ context.Context, messages []providers.Message, model string) (string, error) {
	c := call{Model: model}
	for _, m := range messages {
		switch m.Role {
		case providers.RoleSystem:
			c.System = m.Content
		case providers.RoleUser:
			c.User = m.Content
		}
	}
	c.Role = f.roleOf(c.System)

	f.mu.Lock()
	f.calls = append(f.calls, c)
	f.mu.Unlock()

	return f.respond(c)
}

func (f *fakeCompleter) roleOf(system string) string {
	if system == synthesisSystemPrompt {
		return synthesisRole
	}
	for _, a := range f.registry.List() {
		if len(system) >= len(a.SystemPrompt) && system[:len(a.SystemPrompt)] == a.SystemPrompt {
			return a.ID
		}
	}
	return ""
}

func (f *fakeCompleter) callsFor(role string) []call {
	f.mu.Lock()
	defer f.mu.Unlock()

	var out []call
	for _, c := range f.calls {
		if c.Role == role {
			out = append(out, c)
		}
	}
	return out
}

// stepResponder risponde "<agentId> result" per gli step e usa plan per il coordinator
func stepResponder(plan string, planErr error) func(c call) (string, error) {
	return func(c call) (string, error) {
		switch c.Role {
		case AgentCoordinator:
			return plan, planErr
		case synthesisRole:
			return "final report", nil
		default:
			return c.Role + " result", nil
		}
	}
}

type staticLoader struct {
	text  string
	err   error
	calls int
	scope knowledge.Scope
}

func (l *staticLoader) Load(_ context.Context, _ string, scope knowledge.Scope) (string, error) {
	l.calls++
	l.scope = scope
	return l.text, l.err
}

type recordedRun struct {
	req      Request
	wf       *Workflow
	duration time.Duration
}

type memoryRecorder struct {
	runs []recordedRun
}

func (r *memoryRecorder) RecordRun(_ context.Context, req Request, wf *Workflow, duration time.Duration) {
	r.runs = append(r.runs, recordedRun{req: req, wf: wf, duration: duration})
}

type countingObserver struct {
	mu        sync.Mutex
	steps     map[StepStatus]int
	workflows int
	fallbacks int
}

func newCountingObserver() *countingObserver {
	return &countingObserver{steps: make(map[StepStatus]int)}
}

func (o *countingObserver) StepFinished(_ string, status StepStatus, _ time.Duration) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.steps[status]++
}

func (o *countingObserver) WorkflowFinished(*Workflow, time.Duration) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.workflows++
}

func (o *countingObserver) SynthesisFinished(fallback bool) {
	o.mu.Lock()
	defer o.mu.Unlock()
	if fallback {
		o.fallbacks++
	}
}
