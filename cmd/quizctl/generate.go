package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/gokatarajesh/quizforge/internal/question"
)

type generator interface {
	Generate(ctx context.Context, topic, difficulty string, count int) (question.Result, error)
}

func newGenerateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "generate",
		Short: "Generate multiple-choice questions for a topic",
		RunE: func(cmd *cobra.Command, args []string) error {
			topic, _ := cmd.Flags().GetString("topic")
			difficulty, _ := cmd.Flags().GetString("difficulty")
			count, _ := cmd.Flags().GetInt("count")
			asJSON, _ := cmd.Flags().GetBool("json")

			svc, err := newService(cmd)
			if err != nil {
				return err
			}
			return runGenerate(cmd.Context(), svc, cmd.OutOrStdout(), topic, difficulty, count, asJSON)
		},
	}
	cmd.Flags().String("topic", "", "Quiz topic (required)")
	cmd.Flags().String("difficulty", question.DifficultyMedium, "easy, medium or hard")
	cmd.Flags().Int("count", 10, "Number of questions (1-25)")
	cmd.Flags().Bool("json", false, "Print the result as JSON")
	_ = cmd.MarkFlagRequired("topic")
	return cmd
}

func runGenerate(ctx context.Context, gen generator, out io.Writer, topic, difficulty string, count int, asJSON bool) error {
	res, err := gen.Generate(ctx, topic, difficulty, count)
	if err != nil {
		return err
	}
	if asJSON {
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(res)
	}

	fmt.Fprintf(out, "%d questions (source: %s)\n\n", len(res.Questions), res.Source)
	for i, q := range res.Questions {
		fmt.Fprintf(out, "%d. %s\n", i+1, q.Text)
		for j, opt := range q.Options {
			fmt.Fprintf(out, "   %c) %s\n", 'A'+j, opt)
		}
		fmt.Fprintf(out, "   Answer: %c\n", 'A'+q.CorrectIndex)
		if q.Explanation != "" {
			fmt.Fprintf(out, "   %s\n", q.Explanation)
		}
		fmt.Fprintln(out)
	}
	return nil
}
