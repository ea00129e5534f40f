package main

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/gokatarajesh/quizforge/internal/question"
	"github.com/gokatarajesh/quizforge/internal/session"
	"github.com/gokatarajesh/quizforge/internal/session/scoring"
)

func newPlayCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "play",
		Short: "Play a timed quiz session in the terminal",
		Long: `Generate questions for a topic and answer them one by one.

Type the option letter and press enter. An unanswered question times out
when its timer reaches zero.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			topic, _ := cmd.Flags().GetString("topic")
			difficulty, _ := cmd.Flags().GetString("difficulty")
			count, _ := cmd.Flags().GetInt("count")
			seconds, _ := cmd.Flags().GetInt("seconds")

			svc, err := newService(cmd)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Generating %d questions about %s...\n", count, topic)
			res, err := svc.Generate(cmd.Context(), topic, difficulty, count)
			if err != nil {
				return err
			}
			if res.Source == question.SourceFallback {
				fmt.Fprintln(out, "Could not generate real questions; playing placeholders.")
			}

			_, err = playSession(cmd.Context(), cmd.InOrStdin(), out, res.Questions, playOptions{
				Seconds:    seconds,
				Topic:      topic,
				Difficulty: difficulty,
				Tick:       session.DefaultTickInterval,
			})
			return err
		},
	}
	cmd.Flags().String("topic", "", "Quiz topic (required)")
	cmd.Flags().String("difficulty", question.DifficultyMedium, "easy, medium or hard")
	cmd.Flags().Int("count", 5, "Number of questions (1-25)")
	cmd.Flags().Int("seconds", session.DefaultPerQuestionSeconds, "Seconds per question")
	_ = cmd.MarkFlagRequired("topic")
	return cmd
}

type playOptions struct {
	Seconds    int
	Topic      string
	Difficulty string
	Tick       time.Duration
}

// playSession drives one guest session from line-oriented input until it
// completes.
func playSession(ctx context.Context, in io.Reader, out io.Writer, questions []question.Question, opts playOptions) (scoring.Summary, error) {
	events := make(chan session.Event, 64)
	s, err := session.New("", questions, session.Config{
		PerQuestionSeconds: opts.Seconds,
		Flow:               session.FlowGuest,
		Topic:              opts.Topic,
		Difficulty:         opts.Difficulty,
		Observer: func(ev session.Event) {
			if ev.Type == session.EventTick {
				return
			}
			select {
			case events <- ev:
			default:
			}
		},
	})
	if err != nil {
		return scoring.Summary{}, err
	}

	runner := session.NewRunner(s, opts.Tick)
	runner.Start(ctx)
	defer runner.Stop()

	lines := make(chan string)
	go func() {
		defer close(lines)
		scanner := bufio.NewScanner(in)
		for scanner.Scan() {
			select {
			case lines <- scanner.Text():
			case <-s.Completed():
				return
			}
		}
	}()

	printQuestion(out, s.Snapshot())
	for {
		select {
		case <-ctx.Done():
			return scoring.Summary{}, ctx.Err()
		case <-s.Completed():
			summary, _ := s.Summary()
			printSummary(out, summary)
			return summary, nil
		case ev := <-events:
			switch ev.Type {
			case session.EventTimedOut:
				fmt.Fprintf(out, "Time's up for question %d.\n", ev.QuestionIndex+1)
			case session.EventAdvanced:
				printQuestion(out, s.Snapshot())
			}
		case line, ok := <-lines:
			if !ok {
				// Input ended; remaining questions run out their timers.
				lines = nil
				continue
			}
			idx, valid := letterIndex(line)
			if !valid {
				fmt.Fprintln(out, "Type an option letter (A-E).")
				continue
			}
			res := s.Answer(idx)
			if !res.Accepted {
				fmt.Fprintf(out, "Answer not accepted: %s\n", res.Rejection)
				continue
			}
			if res.Record.IsCorrect {
				fmt.Fprintf(out, "Correct! +%d points\n", res.Record.Points)
			} else {
				fmt.Fprintf(out, "Wrong. The answer was %c.\n", 'A'+res.CorrectIndex)
			}
			if res.Explanation != "" {
				fmt.Fprintln(out, res.Explanation)
			}
			s.Advance()
		}
	}
}

func letterIndex(line string) (int, bool) {
	line = strings.ToUpper(strings.TrimSpace(line))
	if len(line) != 1 || line[0] < 'A' || line[0] >= 'A'+question.MaxOptions {
		return 0, false
	}
	return int(line[0] - 'A'), true
}

func printQuestion(out io.Writer, snap session.Snapshot) {
	if snap.Current == nil {
		return
	}
	fmt.Fprintf(out, "\nQuestion %d/%d (%ds)\n%s\n", snap.Current.Index+1, snap.TotalQuestions, snap.TimeRemaining, snap.Current.Text)
	for i, opt := range snap.Current.Options {
		fmt.Fprintf(out, "  %c) %s\n", 'A'+i, opt)
	}
}

func printSummary(out io.Writer, sum scoring.Summary) {
	fmt.Fprintf(out, "\nScore: %d/%d (%d%%) in %ds, %d timed out, %d points\n",
		sum.Score, sum.Total, sum.Percentage, sum.ElapsedSeconds, sum.TimedOut, sum.Points)
}
