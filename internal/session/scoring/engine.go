package scoring

import (
	"math"
	"strings"
	"time"
)

// ScoringConfig holds configurable point constants. Weights are percentages
// of BaseScore.
type ScoringConfig struct {
	BaseScore      int
	MaxTimeBonus   int
	StreakStep     int
	MaxStreakBonus int
	MediumWeight   int
	HardWeight     int
}

// DefaultScoringConfig returns production defaults.
func DefaultScoringConfig() ScoringConfig {
	return ScoringConfig{
		BaseScore:      100,
		MaxTimeBonus:   50,
		StreakStep:     10,
		MaxStreakBonus: 50,
		MediumWeight:   125,
		HardWeight:     150,
	}
}

// Engine awards points per answer and builds end-of-session summaries.
type Engine struct {
	config ScoringConfig
}

// NewEngine creates a scoring engine. A zero config selects the defaults.
func NewEngine(config ScoringConfig) *Engine {
	if config == (ScoringConfig{}) {
		config = DefaultScoringConfig()
	}
	return &Engine{config: config}
}

// Answer is what the engine needs to know about one accepted answer. Streak
// counts consecutive correct answers including this one.
type Answer struct {
	Correct          bool
	RemainingSeconds int
	BudgetSeconds    int
	Streak           int
	Difficulty       string
}

// Points awards a correct answer its difficulty-weighted base, a share of
// MaxTimeBonus proportional to the seconds left, and StreakStep for every
// earlier answer in the running streak up to MaxStreakBonus.
func (e *Engine) Points(a Answer) int {
	if !a.Correct {
		return 0
	}
	points := e.config.BaseScore * e.weight(a.Difficulty) / 100

	if a.BudgetSeconds > 0 {
		left := min(max(a.RemainingSeconds, 0), a.BudgetSeconds)
		points += e.config.MaxTimeBonus * left / a.BudgetSeconds
	}
	if a.Streak > 1 {
		points += min((a.Streak-1)*e.config.StreakStep, e.config.MaxStreakBonus)
	}
	return points
}

func (e *Engine) weight(difficulty string) int {
	switch strings.ToLower(strings.TrimSpace(difficulty)) {
	case "medium":
		if e.config.MediumWeight > 0 {
			return e.config.MediumWeight
		}
	case "hard":
		if e.config.HardWeight > 0 {
			return e.config.HardWeight
		}
	}
	return 100
}

// Outcome is the scoring view of one answered or timed-out question.
type Outcome struct {
	Correct  bool
	TimedOut bool
	Points   int
}

// Summary is the end-of-session result.
type Summary struct {
	Score          int `json:"score"`
	Total          int `json:"total"`
	Percentage     int `json:"percentage"`
	ElapsedSeconds int `json:"elapsed_seconds"`
	TimedOut       int `json:"timed_out"`
	BestStreak     int `json:"best_streak"`
	Points         int `json:"points"`
}

// Summarize aggregates outcomes for a session of total questions.
func Summarize(outcomes []Outcome, total int, elapsed time.Duration) Summary {
	s := Summary{Total: total}
	streak := 0
	for _, o := range outcomes {
		s.Points += o.Points
		if o.TimedOut {
			s.TimedOut++
		}
		if o.Correct {
			s.Score++
			streak++
			if streak > s.BestStreak {
				s.BestStreak = streak
			}
		} else {
			streak = 0
		}
	}
	s.Percentage = Percentage(s.Score, total)
	if elapsed > 0 {
		s.ElapsedSeconds = int(elapsed / time.Second)
	}
	return s
}

// Percentage returns score/total*100 rounded half up, 0 when total is 0.
func Percentage(score, total int) int {
	if total <= 0 {
		return 0
	}
	return int(math.Floor(float64(score)*100/float64(total) + 0.5))
}
