package analysis

import "github.com/franckalain/fooddiary/internal/models"

// Outcome tells how an item analysis was produced
type Outcome int

const (
	// OutcomeAnalyzed means the model returned a valid estimate
	OutcomeAnalyzed Outcome = iota
	// OutcomeInvalid means the description was empty and the model was not called
	OutcomeInvalid
	// OutcomeDegraded means the call failed and a placeholder was substituted
	OutcomeDegraded
)

func (o Outcome) String() string {
	switch o {
	case OutcomeAnalyzed:
		return "analyzed"
	case OutcomeInvalid:
		return "invalid"
	case OutcomeDegraded:
		return "degraded"
	default:
		return "unknown"
	}
}

// ItemResult is the displayable result of one item analysis. Item is always
// usable; Outcome and Err say whether it is a placeholder.
type ItemResult struct {
	Item    models.FoodItem
	Outcome Outcome
	Err     error // cause of a degraded result
}

// Degraded reports whether the item is a placeholder
func (r ItemResult) Degraded() bool {
	return r.Outcome != OutcomeAnalyzed
}

// FeedbackResult is the displayable result of one feedback generation
type FeedbackResult struct {
	Feedback models.MealFeedback
	Degraded bool
	Err      error
}

// MealAnalysis is the joined result of a whole meal
type MealAnalysis struct {
	Items    []ItemResult
	Feedback FeedbackResult
}

// FoodItems returns the items in input order
func (a *MealAnalysis) FoodItems() []models.FoodItem {
	items := make([]models.FoodItem, len(a.Items))
	for i, r := range a.Items {
		items[i] = r.Item
	}
	return items
}

// TotalCalories sums the calories of all analyzed items
func (a *MealAnalysis) TotalCalories() int {
	return models.SumCalories(a.FoodItems())
}
