package main

import (
	"encoding/json"
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/edgard/longopass/internal/recommend"
)

func newQuizCmd(a *app) *cobra.Command {
	var products bool
	cmd := &cobra.Command{
		Use:   "quiz [answers.json|-]",
		Short: "Submit quiz answers and print the AI result",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			raw, err := a.readInput(args)
			if err != nil {
				return err
			}
			var answers json.RawMessage
			if err := json.Unmarshal(raw, &answers); err != nil {
				return fmt.Errorf("answers are not valid JSON: %w", err)
			}

			c, err := a.newClient(nil)
			if err != nil {
				return err
			}
			result, err := c.SubmitQuiz(cmd.Context(), answers)
			if err != nil {
				return err
			}
			if err := a.printJSON(result); err != nil {
				return err
			}
			if !products {
				return nil
			}
			return a.printRecommendations(cmd, result)
		},
	}
	cmd.Flags().BoolVar(&products, "products", false, "Also list catalog products for the recommended supplements")
	return cmd
}

func newLabCmd(a *app) *cobra.Command {
	var (
		sessions int
		analyze  bool
	)
	cmd := &cobra.Command{
		Use:   "lab [results.json|-]",
		Short: "Analyze lab results",
		Long: `Analyze lab results read from a file or stdin.

A JSON object is analyzed as a single test, an array as a summary over
--sessions sessions. With --analyze the input is sent to the widget's
lab analysis endpoint instead.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			raw, err := a.readInput(args)
			if err != nil {
				return err
			}
			var input any
			if err := json.Unmarshal(raw, &input); err != nil {
				return fmt.Errorf("lab results are not valid JSON: %w", err)
			}

			c, err := a.newClient(nil)
			if err != nil {
				return err
			}
			ctx := cmd.Context()

			if analyze {
				resp, err := c.AnalyzeLabResults(ctx, input)
				if err != nil {
					return err
				}
				return a.printJSON(resp)
			}

			var result json.RawMessage
			switch v := input.(type) {
			case []any:
				result, err = c.AnalyzeMultipleLabs(ctx, v, sessions)
			case map[string]any:
				result, err = c.AnalyzeSingleLab(ctx, v)
			default:
				return fmt.Errorf("lab results must be a JSON object or array")
			}
			if err != nil {
				return err
			}
			return a.printJSON(result)
		},
	}
	cmd.Flags().IntVar(&sessions, "sessions", 1, "Number of test sessions the results span")
	cmd.Flags().BoolVar(&analyze, "analyze", false, "Use the lab analysis endpoint")
	return cmd
}

func newHistoryCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "history <conversation-id>",
		Short: "Print the messages of a conversation",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := strconv.ParseInt(args[0], 10, 64)
			if err != nil || id <= 0 {
				return fmt.Errorf("invalid conversation id %q", args[0])
			}
			c, err := a.newClient(nil)
			if err != nil {
				return err
			}
			history, err := c.GetChatHistory(cmd.Context(), id)
			if err != nil {
				return err
			}
			return a.printJSON(history)
		},
	}
}

func newHealthCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "health",
		Short: "Check the AI service",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			c, err := a.newClient(nil)
			if err != nil {
				return err
			}
			status, err := c.HealthCheck(cmd.Context())
			if err != nil {
				return err
			}
			return a.printJSON(status)
		},
	}
}

func newRecommendCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "recommend [quiz-result.json|-]",
		Short: "List catalog products for a saved quiz result",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			raw, err := a.readInput(args)
			if err != nil {
				return err
			}
			return a.printRecommendations(cmd, raw)
		},
	}
}

func (a *app) printRecommendations(cmd *cobra.Command, raw []byte) error {
	result, err := recommend.ParseQuizResult(raw)
	if err != nil {
		return err
	}

	cat, _, closeCatalog, err := a.openCatalog()
	if err != nil {
		return err
	}
	defer closeCatalog()

	recs := recommend.NewEngine(cat, a.log).Recommend(cmd.Context(), result)
	_, err = fmt.Fprintln(a.out, recommend.Format(recs))
	return err
}
