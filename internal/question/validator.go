package question

import (
	"strings"
	"unicode/utf8"

	"golang.org/x/text/cases"
)

// Input bounds.
const (
	MinTopicLength = 2
	MaxTopicLength = 100
	MinCount       = 1
	MaxCount       = 25
)

// DefaultDenylist holds substrings that make a topic unusable.
var DefaultDenylist = []string{
	"porn",
	"nsfw",
	"sexual content",
	"bomb making",
	"make a bomb",
	"self-harm",
	"suicide method",
	"terrorist attack",
	"ignore previous instructions",
	"<script",
}

var defaultValidator = NewValidator(nil)

// Validator checks generation inputs against bounds and a denylist.
type Validator struct {
	denylist []string
}

// NewValidator builds a validator. A nil or empty denylist selects DefaultDenylist.
func NewValidator(denylist []string) *Validator {
	if len(denylist) == 0 {
		denylist = DefaultDenylist
	}
	folded := make([]string, 0, len(denylist))
	for _, term := range denylist {
		term = strings.TrimSpace(term)
		if term == "" {
			continue
		}
		folded = append(folded, fold(term))
	}
	return &Validator{denylist: folded}
}

// Validate checks inputs with the default denylist.
func Validate(topic, difficulty string, count int) (GenerationRequest, error) {
	return defaultValidator.Validate(topic, difficulty, count)
}

// Validate returns the normalized request or a *ValidationError.
func (v *Validator) Validate(topic, difficulty string, count int) (GenerationRequest, error) {
	topic = strings.TrimSpace(topic)
	n := utf8.RuneCountInString(topic)
	if n < MinTopicLength {
		return GenerationRequest{}, &ValidationError{
			Code:    CodeEmptyTopic,
			Field:   "topic",
			Message: "topic must be at least 2 characters",
		}
	}
	if n > MaxTopicLength {
		return GenerationRequest{}, &ValidationError{
			Code:    CodeTopicTooLong,
			Field:   "topic",
			Message: "topic must be at most 100 characters",
		}
	}

	folded := fold(topic)
	for _, term := range v.denylist {
		if strings.Contains(folded, term) {
			return GenerationRequest{}, &ValidationError{
				Code:    CodeDisallowedContent,
				Field:   "topic",
				Message: "topic contains disallowed content",
			}
		}
	}

	difficulty = strings.ToLower(strings.TrimSpace(difficulty))
	switch difficulty {
	case DifficultyEasy, DifficultyMedium, DifficultyHard:
	default:
		return GenerationRequest{}, &ValidationError{
			Code:    CodeInvalidDifficulty,
			Field:   "difficulty",
			Message: "difficulty must be one of easy, medium, hard",
		}
	}

	if count < MinCount || count > MaxCount {
		return GenerationRequest{}, &ValidationError{
			Code:    CodeInvalidCount,
			Field:   "count",
			Message: "count must be between 1 and 25",
		}
	}

	return GenerationRequest{Topic: topic, Difficulty: difficulty, Count: count}, nil
}

// fold applies Unicode case folding. A Caser carries state, so one per call.
func fold(s string) string {
	return cases.Fold().String(s)
}
