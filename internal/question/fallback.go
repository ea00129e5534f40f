package question

import "fmt"

// MaxFallbackQuestions caps the placeholder set.
const MaxFallbackQuestions = 5

// GenerateFallback returns min(count, 5) placeholder questions, at least one.
// Each has five labeled options and CorrectIndex 0.
func GenerateFallback(topic, difficulty string, count int) []Question {
	n := count
	if n > MaxFallbackQuestions {
		n = MaxFallbackQuestions
	}
	if n < 1 {
		n = 1
	}

	out := make([]Question, n)
	for i := range out {
		num := i + 1
		out[i] = Question{
			Text: fmt.Sprintf("Sample question %d about %s (%s)", num, topic, difficulty),
			Options: []string{
				fmt.Sprintf("Option A for question %d", num),
				fmt.Sprintf("Option B for question %d", num),
				fmt.Sprintf("Option C for question %d", num),
				fmt.Sprintf("Option D for question %d", num),
				fmt.Sprintf("Option E for question %d", num),
			},
			CorrectIndex: 0,
			Explanation: fmt.Sprintf(
				"Placeholder for %s at %s difficulty; questions could not be generated right now.",
				topic, difficulty),
		}
	}
	return out
}
