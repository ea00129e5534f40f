package question

import (
	_ "embed"
	"fmt"
	"regexp"
	"strings"

	"gopkg.in/yaml.v3"
)

// SystemInstruction is sent as the system message on every completion call.
const SystemInstruction = "You are an expert examiner who writes accurate multiple-choice questions. " +
	"Respond with a JSON array only, without commentary or markdown."

//go:embed prompts/domains.yaml
var domainsYAML []byte

type domainBlock struct {
	Name         string   `yaml:"name"`
	Keywords     []string `yaml:"keywords"`
	Instructions string   `yaml:"instructions"`

	patterns []*regexp.Regexp
}

type domainCatalog struct {
	Domains []domainBlock `yaml:"domains"`
	Generic string        `yaml:"generic"`
}

var catalog = mustLoadCatalog(domainsYAML)

func mustLoadCatalog(data []byte) domainCatalog {
	cat, err := loadCatalog(data)
	if err != nil {
		panic(err)
	}
	return cat
}

func loadCatalog(data []byte) (domainCatalog, error) {
	var cat domainCatalog
	if err := yaml.Unmarshal(data, &cat); err != nil {
		return domainCatalog{}, fmt.Errorf("decode domain catalog: %w", err)
	}
	if strings.TrimSpace(cat.Generic) == "" {
		return domainCatalog{}, fmt.Errorf("domain catalog: generic block is empty")
	}
	for i := range cat.Domains {
		d := &cat.Domains[i]
		for _, kw := range d.Keywords {
			kw = strings.ToLower(strings.TrimSpace(kw))
			if kw == "" {
				continue
			}
			d.patterns = append(d.patterns, regexp.MustCompile(`\b`+regexp.QuoteMeta(kw)))
		}
	}
	return cat, nil
}

// DetectDomain returns the name of the first domain whose keywords appear in
// topic, or "generic".
func DetectDomain(topic string) string {
	if d := catalog.match(topic); d != nil {
		return d.Name
	}
	return "generic"
}

func (c domainCatalog) match(topic string) *domainBlock {
	lower := strings.ToLower(topic)
	for i := range c.Domains {
		for _, p := range c.Domains[i].patterns {
			if p.MatchString(lower) {
				return &c.Domains[i]
			}
		}
	}
	return nil
}

var difficultyGuidance = map[string]string{
	DifficultyEasy:   "Easy: single-concept questions a well-prepared beginner answers quickly.",
	DifficultyMedium: "Medium: questions that combine two ideas or need a short derivation.",
	DifficultyHard:   "Hard: multi-step questions with close distractors, at the top of the exam's range.",
}

// BuildPrompt renders the completion prompt for req. It is deterministic.
func BuildPrompt(req GenerationRequest) string {
	instructions := catalog.Generic
	if d := catalog.match(req.Topic); d != nil {
		instructions = d.Instructions
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "Generate exactly %d multiple-choice questions about %q.\n", req.Count, req.Topic)
	fmt.Fprintf(&sb, "Difficulty: %s.\n", req.Difficulty)
	if guide, ok := difficultyGuidance[req.Difficulty]; ok {
		sb.WriteString(guide)
		sb.WriteString("\n")
	}
	sb.WriteString("\n")
	sb.WriteString(strings.TrimSpace(instructions))
	sb.WriteString("\n\n")
	sb.WriteString("Rules:\n")
	sb.WriteString("- Each question has five options labeled A to E with exactly one correct option.\n")
	sb.WriteString("- Options must be distinct and non-empty.\n")
	sb.WriteString("- correct_option is the letter of the correct option.\n")
	sb.WriteString("- explanation briefly justifies the correct option.\n\n")
	sb.WriteString("Return only a JSON array in this shape:\n")
	sb.WriteString(`[{"question": "...", "options": {"A": "...", "B": "...", "C": "...", "D": "...", "E": "..."}, "correct_option": "A", "explanation": "..."}]`)
	sb.WriteString("\n")
	return sb.String()
}
