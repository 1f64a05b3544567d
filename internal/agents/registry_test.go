package agents

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultRegistry(t *testing.T) {
	registry := NewDefaultRegistry("")

	t.Run("List is order-stable", func(t *testing.T) {
		first := registry.List()
		second := registry.List()

		require.Len(t, first, 5)
		assert.Equal(t, first, second)

		ids := make([]string, len(first))
		for i, a := range first {
			ids[i] = a.ID
		}
		assert.Equal(t, []string{AgentResearch, AgentAnalyst, AgentWriter, AgentStrategist, AgentCoordinator}, ids)
	})

	t.Run("List returns a copy", func(t *testing.T) {
		agents := registry.List()
		agents[0].Name = "mutated"

		a, ok := registry.Get(AgentResearch)
		require.True(t, ok)
		assert.NotEqual(t, "mutated", a.Name)
	})

	t.Run("Every agent is fully described", func(t *testing.T) {
		for _, a := range registry.List() {
			assert.NotEmpty(t, a.Name, a.ID)
			assert.NotEmpty(t, a.NameAr, a.ID)
			assert.NotEmpty(t, a.SystemPrompt, a.ID)
			assert.NotEmpty(t, a.Icon, a.ID)
			assert.Equal(t, DefaultModel, a.Model, a.ID)
		}
	})

	t.Run("Get unknown agent", func(t *testing.T) {
		_, ok := registry.Get("ghost")
		assert.False(t, ok)
	})

	t.Run("Specialists exclude the coordinator", func(t *testing.T) {
		specialists := registry.Specialists()
		assert.Len(t, specialists, 4)
		for _, a := range specialists {
			assert.False(t, a.IsCoordinator())
		}
		assert.False(t, registry.IsSpecialist(AgentCoordinator))
		assert.True(t, registry.IsSpecialist(AgentWriter))
		assert.False(t, registry.IsSpecialist("ghost"))
	})
}

func TestNewDefaultRegistry_ModelOverride(t *testing.T) {
	registry := NewDefaultRegistry("openai/gpt-5-mini")

	for _, a := range registry.List() {
		assert.Equal(t, "openai/gpt-5-mini", a.Model)
	}
}

func TestNewRegistry_DuplicateKeepsPosition(t *testing.T) {
	registry := NewRegistry(
		Agent{ID: "a", Name: "first"},
		Agent{ID: "b", Name: "second"},
		Agent{ID: "a", Name: "replaced"},
	)

	agents := registry.List()
	require.Len(t, agents, 2)
	assert.Equal(t, "replaced", agents[0].Name)
	assert.Equal(t, "b", agents[1].ID)
}
