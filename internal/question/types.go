package question

import "strings"

// Difficulty constants for readability.
const (
	DifficultyEasy   = "easy"
	DifficultyMedium = "medium"
	DifficultyHard   = "hard"
)

// Source values reported by Service.Generate.
const (
	SourceCache    = "cache"
	SourceLLM      = "llm"
	SourceFallback = "fallback"
)

// Option count bounds for a playable question.
const (
	MinOptions = 4
	MaxOptions = 5
)

// Question is a single multiple-choice item.
type Question struct {
	Text         string   `json:"text"`
	Options      []string `json:"options"`
	CorrectIndex int      `json:"correct_index"`
	Explanation  string   `json:"explanation,omitempty"`
}

// Valid reports whether q has non-empty text, 4-5 distinct non-empty options
// and a correct index inside the option range.
func (q Question) Valid() bool {
	if strings.TrimSpace(q.Text) == "" {
		return false
	}
	if len(q.Options) < MinOptions || len(q.Options) > MaxOptions {
		return false
	}
	if q.CorrectIndex < 0 || q.CorrectIndex >= len(q.Options) {
		return false
	}
	for i, opt := range q.Options {
		if strings.TrimSpace(opt) == "" {
			return false
		}
		for _, prev := range q.Options[:i] {
			if strings.EqualFold(strings.TrimSpace(prev), strings.TrimSpace(opt)) {
				return false
			}
		}
	}
	return true
}

// Clone returns a deep copy of q.
func (q Question) Clone() Question {
	out := q
	out.Options = append([]string(nil), q.Options...)
	return out
}

// CloneAll deep-copies a question list.
func CloneAll(qs []Question) []Question {
	if qs == nil {
		return nil
	}
	out := make([]Question, len(qs))
	for i, q := range qs {
		out[i] = q.Clone()
	}
	return out
}

// GenerationRequest is a validated generation input.
type GenerationRequest struct {
	Topic      string `json:"topic"`
	Difficulty string `json:"difficulty"`
	Count      int    `json:"count"`
}

// Result is the orchestrator output.
type Result struct {
	Questions []Question `json:"questions"`
	Source    string     `json:"source"`
}

// NormalizeTopic lowercases topic and collapses whitespace runs to "_".
func NormalizeTopic(topic string) string {
	return strings.Join(strings.Fields(strings.ToLower(topic)), "_")
}
