package question

import (
	"encoding/json"
	"regexp"
	"strings"

	"github.com/xeipuuv/gojsonschema"
)

// ParseStrategy extracts questions from raw completion text. Implementations
// return an empty slice, never an error, when nothing usable is found.
type ParseStrategy interface {
	Name() string
	Parse(raw string) []Question
}

// DefaultStrategies is the order used by Parse.
var DefaultStrategies = []ParseStrategy{StructuredStrategy{}, HeuristicStrategy{}}

// Parse runs DefaultStrategies over raw.
func Parse(raw string) []Question {
	qs, _ := ParseWith(raw, DefaultStrategies...)
	return qs
}

// ParseWith returns the output of the first strategy that yields at least one
// question, along with that strategy's name.
func ParseWith(raw string, strategies ...ParseStrategy) ([]Question, string) {
	for _, s := range strategies {
		if qs := safeParse(s, raw); len(qs) > 0 {
			return qs, s.Name()
		}
	}
	return nil, ""
}

func safeParse(s ParseStrategy, raw string) (qs []Question) {
	defer func() {
		if recover() != nil {
			qs = nil
		}
	}()
	return s.Parse(raw)
}

var optionLetters = []string{"A", "B", "C", "D", "E"}

// StructuredStrategy reads a JSON array of question objects.
type StructuredStrategy struct{}

func (StructuredStrategy) Name() string { return "structured" }

func (StructuredStrategy) Parse(raw string) []Question {
	text := stripCodeFences(raw)
	for start := 0; start < len(text); {
		idx := strings.IndexByte(text[start:], '[')
		if idx < 0 {
			return nil
		}
		objects, end := scanArrayObjects(text, start+idx)
		if qs := decodeItems(objects); len(qs) > 0 {
			return qs
		}
		start = end
	}
	return nil
}

var fenceRe = regexp.MustCompile("```[A-Za-z]*")

func stripCodeFences(raw string) string {
	return strings.TrimSpace(fenceRe.ReplaceAllString(raw, ""))
}

// scanArrayObjects walks the array opening at pos and returns the source of
// every complete object directly inside it. If the array never closes the
// objects seen so far are still returned, which recovers truncated output.
func scanArrayObjects(text string, pos int) ([]string, int) {
	var (
		objects  []string
		depth    int
		inString bool
		escaped  bool
		objStart = -1
	)
	for i := pos; i < len(text); i++ {
		c := text[i]
		if inString {
			switch {
			case escaped:
				escaped = false
			case c == '\\':
				escaped = true
			case c == '"':
				inString = false
			}
			continue
		}
		switch c {
		case '"':
			inString = true
		case '[', '{':
			depth++
			if c == '{' && depth == 2 {
				objStart = i
			}
		case ']', '}':
			depth--
			if c == '}' && depth == 1 && objStart >= 0 {
				objects = append(objects, text[objStart:i+1])
				objStart = -1
			}
			if depth == 0 {
				return objects, i + 1
			}
		}
	}
	return objects, len(text)
}

const itemSchemaJSON = `{
  "type": "object",
  "required": ["question", "options", "correct_option"],
  "properties": {
    "question": {"type": "string", "minLength": 1},
    "options": {"type": "object", "minProperties": 4},
    "correct_option": {"type": "string", "minLength": 1},
    "explanation": {"type": "string"}
  }
}`

var itemSchema = mustCompileSchema(itemSchemaJSON)

func mustCompileSchema(src string) *gojsonschema.Schema {
	schema, err := gojsonschema.NewSchema(gojsonschema.NewStringLoader(src))
	if err != nil {
		panic(err)
	}
	return schema
}

type rawItem struct {
	Question      string            `json:"question"`
	Options       map[string]string `json:"options"`
	CorrectOption string            `json:"correct_option"`
	Explanation   string            `json:"explanation"`
}

func decodeItems(objects []string) []Question {
	var out []Question
	for _, obj := range objects {
		res, err := itemSchema.Validate(gojsonschema.NewStringLoader(obj))
		if err != nil || !res.Valid() {
			continue
		}
		var item rawItem
		if err := json.Unmarshal([]byte(obj), &item); err != nil {
			continue
		}
		if q, ok := item.toQuestion(); ok {
			out = append(out, q)
		}
	}
	return out
}

func (it rawItem) toQuestion() (Question, bool) {
	byLetter := make(map[string]string, len(it.Options))
	for k, v := range it.Options {
		byLetter[strings.ToUpper(strings.TrimSpace(k))] = strings.TrimSpace(v)
	}

	var options, letters []string
	for _, l := range optionLetters {
		if v, ok := byLetter[l]; ok && v != "" {
			options = append(options, v)
			letters = append(letters, l)
		}
	}
	if len(options) < MinOptions {
		return Question{}, false
	}

	correct := resolveCorrect(it.CorrectOption, letters, options)
	if correct < 0 {
		return Question{}, false
	}

	q := Question{
		Text:         strings.TrimSpace(it.Question),
		Options:      options,
		CorrectIndex: correct,
		Explanation:  strings.TrimSpace(it.Explanation),
	}
	return q, q.Valid()
}

var letterRefRe = regexp.MustCompile(`^(?:OPTION\s+)?\(?([A-E])(?:[).:\s]|$)`)

// resolveCorrect maps a correct_option value to an index. It accepts a bare
// letter, forms like "(B)" or "Option C", or the literal option text.
func resolveCorrect(value string, letters, options []string) int {
	value = strings.TrimSpace(value)
	if value == "" {
		return -1
	}
	if m := letterRefRe.FindStringSubmatch(strings.ToUpper(value)); m != nil {
		for i, l := range letters {
			if l == m[1] {
				return i
			}
		}
		if len(value) <= 3 {
			return -1
		}
	}
	for i, opt := range options {
		if strings.EqualFold(opt, value) {
			return i
		}
	}
	return -1
}

// HeuristicStrategy reads numbered plain-text questions with lettered options
// and a "Correct Answer: X" line.
type HeuristicStrategy struct{}

func (HeuristicStrategy) Name() string { return "heuristic" }

var (
	questionMarkerRe = regexp.MustCompile(`(?im)^[ \t#*]*(?:question[ \t]*\d+[ \t]*[:.)\-]?|\d+[ \t]*[.)])`)
	lineOptionRe     = regexp.MustCompile(`(?m)^[ \t*]*\(?([A-E])[).:][ \t]*`)
	optionMarkerRe   = regexp.MustCompile(`(?m)(?:^[ \t*]*\(?([A-E])[).:]|(?:^|[ \t])\(([A-E])\)|[ \t]([A-E])\))[ \t]*`)
	answerRe         = regexp.MustCompile(`(?i)(?:correct[ \t]+(?:answer|option)|answer)[ \t*]*[:\-][ \t*]*\(?([A-E])\b`)
	explanationRe    = regexp.MustCompile(`(?i)explanation[ \t*]*[:\-]`)
)

func (HeuristicStrategy) Parse(raw string) []Question {
	text := stripCodeFences(raw)
	var out []Question
	for _, block := range splitQuestionBlocks(text) {
		if q, ok := parseBlock(block); ok {
			out = append(out, q)
		}
	}
	return out
}

func splitQuestionBlocks(text string) []string {
	locs := questionMarkerRe.FindAllStringIndex(text, -1)
	if len(locs) == 0 {
		return []string{text}
	}
	blocks := make([]string, 0, len(locs))
	for i, loc := range locs {
		end := len(text)
		if i+1 < len(locs) {
			end = locs[i+1][0]
		}
		blocks = append(blocks, text[loc[1]:end])
	}
	return blocks
}

func parseBlock(block string) (Question, bool) {
	answer := answerRe.FindStringSubmatchIndex(block)
	if answer == nil {
		return Question{}, false
	}
	letter := strings.ToUpper(block[answer[2]:answer[3]])

	bodyEnd := answer[0]
	explanation := ""
	if loc := explanationRe.FindStringIndex(block); loc != nil {
		if loc[0] < bodyEnd {
			bodyEnd = loc[0]
		}
		explEnd := len(block)
		if answer[0] > loc[1] {
			explEnd = answer[0]
		}
		explanation = cleanText(block[loc[1]:explEnd])
	}

	body := block[:bodyEnd]
	marks := optionMarks(body)
	if len(marks) == 0 {
		return Question{}, false
	}

	var options, letters []string
	seen := make(map[string]bool)
	for i, m := range marks {
		end := len(body)
		if i+1 < len(marks) {
			end = marks[i+1].start
		}
		if seen[m.letter] {
			continue
		}
		seen[m.letter] = true
		letters = append(letters, m.letter)
		options = append(options, cleanText(body[m.end:end]))
	}
	if len(options) < MinOptions || len(options) > MaxOptions {
		return Question{}, false
	}

	correct := -1
	for i, l := range letters {
		if l == letter {
			correct = i
		}
	}
	if correct < 0 {
		return Question{}, false
	}

	q := Question{
		Text:         cleanText(body[:marks[0].start]),
		Options:      options,
		CorrectIndex: correct,
		Explanation:  explanation,
	}
	return q, q.Valid()
}

type optionMark struct {
	start, end int
	letter     string
}

// optionMarks locates option markers in body. Markers at the start of a line
// win when there are enough of them. Otherwise inline markers are read too,
// but only from the first line-start marker on and only in A, B, C order, so
// a parenthetical like "(Vitamin D)" in the question is not taken as an option.
func optionMarks(body string) []optionMark {
	lines := collectMarks(body, lineOptionRe.FindAllStringSubmatchIndex(body, -1))
	if distinctLetters(lines) >= MinOptions {
		return lines
	}

	from := 0
	if len(lines) > 0 {
		from = lines[0].start
	}
	var out []optionMark
	for _, m := range collectMarks(body, optionMarkerRe.FindAllStringSubmatchIndex(body, -1)) {
		if m.start < from || len(out) == len(optionLetters) {
			continue
		}
		if m.letter == optionLetters[len(out)] {
			out = append(out, m)
		}
	}
	return out
}

func collectMarks(body string, locs [][]int) []optionMark {
	out := make([]optionMark, 0, len(locs))
	for _, m := range locs {
		out = append(out, optionMark{start: m[0], end: m[1], letter: markerLetter(body, m)})
	}
	return out
}

func distinctLetters(marks []optionMark) int {
	seen := make(map[string]bool, len(marks))
	for _, m := range marks {
		seen[m.letter] = true
	}
	return len(seen)
}

func markerLetter(s string, m []int) string {
	for g := 1; g*2+1 < len(m); g++ {
		if m[g*2] >= 0 {
			return s[m[g*2]:m[g*2+1]]
		}
	}
	return ""
}

func cleanText(s string) string {
	s = strings.Join(strings.Fields(s), " ")
	return strings.Trim(s, " *:-")
}
