package agents

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParseQuestions(t *testing.T) {
	t.Run("JSON array", func(t *testing.T) {
		content := "Sure!\n[\"What is the market size?\", \"  \", \"Who are the top competitors?\"]"
		assert.Equal(t, []string{"What is the market size?", "Who are the top competitors?"}, ParseQuestions(content))
	})

	t.Run("JSON array capped", func(t *testing.T) {
		content := `["q1 long enough","q2","q3","q4","q5","q6","q7"]`
		assert.Len(t, ParseQuestions(content), MaxQuestions)
	})

	t.Run("Numbered list fallback", func(t *testing.T) {
		content := `Here are some ideas:
1. What drives customer churn in Riyadh?
2) Short?
- Which channel has the best CAC?
* How seasonal is demand for our product?
Not a list item at all`

		assert.Equal(t, []string{
			"What drives customer churn in Riyadh?",
			"Which channel has the best CAC?",
			"How seasonal is demand for our product?",
		}, ParseQuestions(content))
	})

	t.Run("Array of non-strings falls back to lines", func(t *testing.T) {
		content := "[1, 2, 3]\n1. What is the average basket size?"
		assert.Equal(t, []string{"What is the average basket size?"}, ParseQuestions(content))
	})

	t.Run("Nothing usable", func(t *testing.T) {
		assert.Empty(t, ParseQuestions("no questions today"))
	})
}
