package cli

import (
	"fmt"
	"io"
	"time"

	"github.com/spf13/cobra"

	"github.com/franckalain/fooddiary/internal/models"
)

var (
	dayUser   string
	dayFormat string
)

var dayCmd = &cobra.Command{
	Use:   "day [YYYY-MM-DD]",
	Short: "Show the meals logged on a day",
	Long: `Print the stored diary of one user for a day (today by default).

Examples:
  fooddiary day --user 8f2c
  fooddiary day 2026-10-14 --user 8f2c --format json`,
	Args: cobra.MaximumNArgs(1),
	RunE: runDay,
}

func init() {
	rootCmd.AddCommand(dayCmd)

	dayCmd.Flags().StringVar(&dayUser, "user", "", "User id (required)")
	dayCmd.Flags().StringVar(&dayFormat, "format", "text", "Output format: text, json or toon")
	dayCmd.MarkFlagRequired("user")
}

type dayOutput struct {
	Date          string          `json:"date"`
	Label         string          `json:"label"`
	Meals         models.DailyLog `json:"meals"`
	TotalCalories int             `json:"totalCalories"`
}

func runDay(cmd *cobra.Command, args []string) error {
	now := time.Now()
	day := now
	if len(args) == 1 {
		parsed, err := models.ParseDateKey(args[0], now.Location())
		if err != nil {
			return err
		}
		day = parsed
	}

	store, err := openStore(cmd.Context(), cfg)
	if err != nil {
		return fmt.Errorf("failed to open %s store: %w", cfg.Database.Backend, err)
	}
	defer store.Close()

	dateKey := models.DateKey(day)
	log, err := store.GetDailyLog(cmd.Context(), dayUser, dateKey)
	if err != nil {
		return fmt.Errorf("failed to load %s: %w", dateKey, err)
	}

	out := dayOutput{
		Date:          dateKey,
		Label:         models.DisplayDate(day, now),
		Meals:         log,
		TotalCalories: log.TotalCalories(),
	}

	return render(cmd.OutOrStdout(), dayFormat, out, func(w io.Writer) {
		fmt.Fprintf(w, "%s (%s)\n", out.Label, out.Date)
		if len(log) == 0 {
			fmt.Fprintln(w, "No meals logged")
			return
		}
		for _, t := range models.MealTypesOrder {
			meal, ok := log[t]
			if !ok {
				continue
			}
			fmt.Fprintf(w, "\n%s: %d kcal\n", t.DisplayName(), meal.TotalCalories)
			for _, item := range meal.Items {
				fmt.Fprintf(w, "  - %s (%d kcal)\n", item.Name, item.Calories)
			}
			if meal.Feedback.Title != "" {
				fmt.Fprintf(w, "  %s: %s\n", meal.Feedback.Title, meal.Feedback.Suggestion)
			}
		}
		fmt.Fprintf(w, "\nTotal: %d kcal\n", out.TotalCalories)
	})
}
