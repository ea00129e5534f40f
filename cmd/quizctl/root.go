package main

import (
	"os"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/gokatarajesh/quizforge/internal/config"
	"github.com/gokatarajesh/quizforge/internal/logging"
	"github.com/gokatarajesh/quizforge/internal/question"
	"github.com/gokatarajesh/quizforge/internal/question/ai"
)

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "quizctl",
		Short:         "Generate quizzes and play timed sessions from the terminal",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().Bool("verbose", false, "Log pipeline details to stderr")
	root.PersistentFlags().String("env-file", "configs/.env", "Optional dotenv file with AI_* settings")

	root.AddCommand(newGenerateCmd(), newPlayCmd())
	return root
}

// newService builds the generation pipeline from the environment.
func newService(cmd *cobra.Command) (*question.Service, error) {
	if path, _ := cmd.Flags().GetString("env-file"); path != "" {
		_ = godotenv.Load(path)
	}
	gen, aiCfg, err := config.LoadGeneration()
	if err != nil {
		return nil, err
	}

	logger := cliLogger(cmd)
	client := ai.NewClient(ai.Config{
		APIKey:      aiCfg.APIKey,
		BaseURL:     aiCfg.BaseURL,
		Model:       aiCfg.Model,
		MaxTokens:   aiCfg.MaxTokens,
		Temperature: aiCfg.Temperature,
		Timeout:     aiCfg.HTTPTimeout,
	}, logger)
	return question.NewService(
		question.NewMemoryCache(gen.CacheTTL),
		client,
		question.ServiceOptions{Validator: question.NewValidator(gen.Denylist)},
		logger,
	), nil
}

func cliLogger(cmd *cobra.Command) zerolog.Logger {
	if verbose, _ := cmd.Flags().GetBool("verbose"); verbose {
		return logging.NewWithWriter(os.Stderr, "quizctl", "development")
	}
	return logging.NewWithWriter(os.Stderr, "quizctl", "production").Level(zerolog.WarnLevel)
}
