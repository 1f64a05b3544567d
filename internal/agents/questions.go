package agents

import (
	"encoding/json"
	"regexp"
	"strings"
)

// MaxQuestions è il numero massimo di domande suggerite restituite
const MaxQuestions = 5

var (
	listItemPattern   = regexp.MustCompile(`^(\d+[.)]|[-*])\s`)
	listPrefixPattern = regexp.MustCompile(`^[\d.)\-*\s]+`)
)

// ParseQuestions estrae le domande suggerite da una risposta del modello.
// Prima prova un array JSON di stringhe, poi ripiega su una lista numerata
// o puntata (solo righe più lunghe di 10 caratteri). Non fallisce mai.
func ParseQuestions(content string) []string {
	if raw, ok := ExtractJSONArray(content); ok {
		var questions []string
		if err := json.Unmarshal([]byte(raw), &questions); err == nil {
			return clean(questions)
		}
	}

	var questions []string
	for _, line := range strings.Split(content, "\n") {
		line = strings.TrimSpace(line)
		if !listItemPattern.MatchString(line) {
			continue
		}
		q := strings.TrimSpace(listPrefixPattern.ReplaceAllString(line, ""))
		if len(q) > 10 {
			questions = append(questions, q)
		}
		if len(questions) == MaxQuestions {
			break
		}
	}
	return questions
}

func clean(questions []string) []string {
	out := make([]string, 0, len(questions))
	for _, q := range questions {
		if q = strings.TrimSpace(q); q != "" {
			out = append(out, q)
		}
		if len(out) == MaxQuestions {
			break
		}
	}
	return out
}
