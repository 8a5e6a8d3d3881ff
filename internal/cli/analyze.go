package cli

import (
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/franckalain/fooddiary/internal/analysis"
	"github.com/franckalain/fooddiary/internal/ml"
	"github.com/franckalain/fooddiary/internal/models"
)

var analyzeFormat string

var analyzeCmd = &cobra.Command{
	Use:   "analyze <description>",
	Short: "Estimate the calories of a meal",
	Long: `Split a meal description on commas and newlines, estimate every item
and write feedback for the whole meal, without storing anything.

Examples:
  fooddiary analyze "2 eggs, 1 toast"
  fooddiary analyze --format toon "rice, beans, grilled chicken"`,
	Args: cobra.MinimumNArgs(1),
	RunE: runAnalyze,
}

func init() {
	rootCmd.AddCommand(analyzeCmd)

	analyzeCmd.Flags().StringVar(&analyzeFormat, "format", "text", "Output format: text, json or toon")
}

type analyzeOutput struct {
	Items            []analyzeItem       `json:"items"`
	Feedback         models.MealFeedback `json:"feedback"`
	FeedbackDegraded bool                `json:"feedbackDegraded"`
	TotalCalories    int                 `json:"totalCalories"`
}

type analyzeItem struct {
	Name     string `json:"name"`
	Calories int    `json:"calories"`
	Outcome  string `json:"outcome"`
}

func runAnalyze(cmd *cobra.Command, args []string) error {
	model, err := ml.NewModel(cfg.ML)
	if err != nil {
		return fmt.Errorf("failed to create ML model: %w", err)
	}
	if err := model.Load(cmd.Context()); err != nil {
		return fmt.Errorf("failed to load ML model: %w", err)
	}
	defer closeModel(model)

	orchestrator := analysis.NewOrchestrator(analysis.NewAnalyzer(model), analysis.NewFeedbackWriter(model))
	result, err := orchestrator.AnalyzeMeal(cmd.Context(), strings.Join(args, " "))
	if err != nil {
		return err
	}

	out := analyzeOutput{
		Feedback:         result.Feedback.Feedback,
		FeedbackDegraded: result.Feedback.Degraded,
		TotalCalories:    result.TotalCalories(),
	}
	for _, r := range result.Items {
		out.Items = append(out.Items, analyzeItem{Name: r.Item.Name, Calories: r.Item.Calories, Outcome: r.Outcome.String()})
	}

	return render(cmd.OutOrStdout(), analyzeFormat, out, func(w io.Writer) {
		for _, item := range out.Items {
			marker := ""
			if item.Outcome != analysis.OutcomeAnalyzed.String() {
				marker = " (" + item.Outcome + ")"
			}
			fmt.Fprintf(w, "  %-30s %5d kcal%s\n", item.Name, item.Calories, marker)
		}
		fmt.Fprintf(w, "  %-30s %5d kcal\n\n", "Total", out.TotalCalories)
		fmt.Fprintln(w, out.Feedback.Title)
		fmt.Fprintln(w, out.Feedback.Analysis)
		fmt.Fprintln(w, "Suggestion:", out.Feedback.Suggestion)
	})
}
