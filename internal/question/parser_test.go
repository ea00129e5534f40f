package question

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const fencedJSON = "Here you go:\n```json\n" + `[
  {"question": "What is the powerhouse of the cell?",
   "options": {"A": "Mitochondria", "B": "Nucleus", "C": "Ribosome", "D": "Golgi body", "E": "Lysosome"},
   "correct_option": "A",
   "explanation": "Mitochondria produce most of the cell's ATP."},
  {"question": "Which organelle holds DNA?",
   "options": {"A": "Vacuole", "B": "Nucleus", "C": "Cell wall", "D": "Centriole", "E": "Plastid"},
   "correct_option": "B",
   "explanation": "The nucleus stores genetic material."}
]` + "\n```\nGood luck!"

func TestParseStructuredWithFences(t *testing.T) {
	qs, strategy := ParseWith(fencedJSON, DefaultStrategies...)
	require.Len(t, qs, 2)
	assert.Equal(t, "structured", strategy)

	assert.Equal(t, "What is the powerhouse of the cell?", qs[0].Text)
	assert.Equal(t, []string{"Mitochondria", "Nucleus", "Ribosome", "Golgi body", "Lysosome"}, qs[0].Options)
	assert.Equal(t, 0, qs[0].CorrectIndex)
	assert.Equal(t, 1, qs[1].CorrectIndex)
	assert.Equal(t, "The nucleus stores genetic material.", qs[1].Explanation)
}

func TestParseStructuredDropsInvalidItems(t *testing.T) {
	raw := `[
	  {"question": "Q1", "options": {"A": "a", "B": "b", "C": "c", "D": "d"}},
	  {"question": "Q2", "options": {"A": "a", "B": "b", "C": "c", "D": "d"}, "correct_option": "C"},
	  {"question": "Q3", "options": {"A": "a", "B": "b", "C": "c"}, "correct_option": "A"},
	  {"question": "Q4", "options": {"A": "a", "B": "a", "C": "c", "D": "d"}, "correct_option": "A"},
	  {"question": "Q5", "options": {"A": "a", "B": "b", "C": "c", "D": "d"}, "correct_option": "E"}
	]`

	qs := Parse(raw)
	require.Len(t, qs, 1)
	assert.Equal(t, "Q2", qs[0].Text)
	assert.Equal(t, 2, qs[0].CorrectIndex)
	assert.Empty(t, qs[0].Explanation)
}

func TestParseStructuredResolvesCorrectOptionForms(t *testing.T) {
	raw := `[
	  {"question": "Q1", "options": {"a": "one", "b": "two", "c": "three", "d": "four"}, "correct_option": "(b)"},
	  {"question": "Q2", "options": {"A": "one", "B": "two", "C": "three", "D": "four"}, "correct_option": "Option D"},
	  {"question": "Q3", "options": {"A": "Paris", "B": "Rome", "C": "Madrid", "D": "Oslo"}, "correct_option": "madrid"}
	]`

	qs := Parse(raw)
	require.Len(t, qs, 3)
	assert.Equal(t, 1, qs[0].CorrectIndex)
	assert.Equal(t, 3, qs[1].CorrectIndex)
	assert.Equal(t, 2, qs[2].CorrectIndex)
}

func TestParseStructuredRecoversTruncatedArray(t *testing.T) {
	raw := `[{"question": "Complete one", "options": {"A": "1", "B": "2", "C": "3", "D": "4"}, "correct_option": "D"},
	{"question": "Cut off mid-way", "options": {"A": "1", "B": "2"`

	qs := Parse(raw)
	require.Len(t, qs, 1)
	assert.Equal(t, "Complete one", qs[0].Text)
	assert.Equal(t, 3, qs[0].CorrectIndex)
}

func TestParseStructuredSkipsBracketsInProseAndStrings(t *testing.T) {
	raw := `See note [1]. Output: [{"question": "Which symbol closes a list? ]", ` +
		`"options": {"A": "]", "B": "[", "C": "}", "D": "{"}, "correct_option": "A"}]`

	qs := Parse(raw)
	require.Len(t, qs, 1)
	assert.Equal(t, "Which symbol closes a list? ]", qs[0].Text)
	assert.Equal(t, "]", qs[0].Options[0])
}

const plainText = `Question 1: What is the capital of France?
A) Berlin
B) Paris
C) Rome
D) Madrid
E) Lisbon
Correct Answer: B
Explanation: Paris has been the capital since the 10th century.

Question 2: Which gas do plants absorb?
A) Oxygen
B) Nitrogen
C) Carbon dioxide
D) Helium
Correct Answer: C

Question 3: Broken question without an answer line
A) x
B) y
C) z
D) w
`

func TestParseHeuristicPlainText(t *testing.T) {
	qs, strategy := ParseWith(plainText, DefaultStrategies...)
	require.Len(t, qs, 2)
	assert.Equal(t, "heuristic", strategy)

	assert.Equal(t, "What is the capital of France?", qs[0].Text)
	assert.Len(t, qs[0].Options, 5)
	assert.Equal(t, 1, qs[0].CorrectIndex)
	assert.Equal(t, "Paris has been the capital since the 10th century.", qs[0].Explanation)

	assert.Equal(t, []string{"Oxygen", "Nitrogen", "Carbon dioxide", "Helium"}, qs[1].Options)
	assert.Equal(t, 2, qs[1].CorrectIndex)
}

func TestParseHeuristicRequiresMatchingLetter(t *testing.T) {
	raw := `1. Pick one
A) a
B) b
C) c
D) d
Answer: E`

	assert.Empty(t, Parse(raw))
}

func TestParseHeuristicRequiresFourOptions(t *testing.T) {
	raw := `1. Too few options
A) yes
B) no
C) maybe
Correct Answer: A`

	assert.Empty(t, Parse(raw))
}

func TestParseHeuristicIgnoresParentheticalsInQuestion(t *testing.T) {
	raw := `1. Which deficiency (Vitamin D) causes rickets in children?
A) Vitamin A
B) Vitamin B12
C) Vitamin C
D) Vitamin D
E) Vitamin K
Correct Answer: D`

	qs := Parse(raw)
	require.Len(t, qs, 1)
	assert.Equal(t, "Which deficiency (Vitamin D) causes rickets in children?", qs[0].Text)
	assert.Equal(t, []string{"Vitamin A", "Vitamin B12", "Vitamin C", "Vitamin D", "Vitamin K"}, qs[0].Options)
	assert.Equal(t, "Vitamin D", qs[0].Options[qs[0].CorrectIndex])
}

func TestParseHeuristicAssertionReason(t *testing.T) {
	raw := `1. Assertion (A): Ice floats on water.
Reason (R): Ice is less dense than liquid water.
A) Both A and R are true and R explains A
B) Both A and R are true but R does not explain A
C) A is true but R is false
D) A is false but R is true
Correct Answer: A`

	qs := Parse(raw)
	require.Len(t, qs, 1)
	assert.Equal(t, "Assertion (A): Ice floats on water. Reason (R): Ice is less dense than liquid water.", qs[0].Text)
	require.Len(t, qs[0].Options, 4)
	assert.Equal(t, 0, qs[0].CorrectIndex)
	assert.Equal(t, "Both A and R are true and R explains A", qs[0].Options[0])
}

func TestParseHeuristicInlineOptionsSkipParentheticals(t *testing.T) {
	raw := `1. Which deficiency (Vitamin D) causes rickets? A) Vitamin A B) Vitamin B12 C) Vitamin C D) Vitamin D
Correct Answer: D`

	qs := Parse(raw)
	require.Len(t, qs, 1)
	assert.Equal(t, "Which deficiency (Vitamin D) causes rickets?", qs[0].Text)
	assert.Equal(t, []string{"Vitamin A", "Vitamin B12", "Vitamin C", "Vitamin D"}, qs[0].Options)
	assert.Equal(t, 3, qs[0].CorrectIndex)
}

func TestParseGarbageYieldsNothing(t *testing.T) {
	for _, raw := range []string{"", "I'm sorry, I can't help with that.", "{}", "[]", "[[[", "```"} {
		assert.Empty(t, Parse(raw), raw)
	}
}

type panickyStrategy struct{}

func (panickyStrategy) Name() string            { return "panicky" }
func (panickyStrategy) Parse(string) []Question { panic("boom") }

func TestParseWithRecoversFromPanickingStrategy(t *testing.T) {
	qs, strategy := ParseWith(plainText, panickyStrategy{}, HeuristicStrategy{})
	assert.Len(t, qs, 2)
	assert.Equal(t, "heuristic", strategy)
}

func TestParsedQuestionsSatisfyInvariant(t *testing.T) {
	for _, raw := range []string{fencedJSON, plainText} {
		for _, q := range Parse(raw) {
			assert.True(t, q.Valid(), q.Text)
		}
	}
}
