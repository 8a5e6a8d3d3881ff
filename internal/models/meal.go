package models

import (
	"fmt"
	"strings"
)

// FoodItem represents one analyzed food entry of a meal
type FoodItem struct {
	Name     string `json:"name" firestore:"name"`
	Calories int    `json:"calories" firestore:"calories"` // kcal, never negative
}

// MealFeedback is the structured nutritional comment generated for a meal
type MealFeedback struct {
	Title      string `json:"title" firestore:"title"`
	Analysis   string `json:"analysis" firestore:"analysis"`
	Suggestion string `json:"suggestion" firestore:"suggestion"`
}

// Meal is one logged meal of a day. It is always stored and replaced whole.
type Meal struct {
	Description   string       `json:"description" firestore:"description"`
	Items         []FoodItem   `json:"items" firestore:"items"`
	Feedback      MealFeedback `json:"feedback" firestore:"feedback"`
	TotalCalories int          `json:"totalCalories" firestore:"totalCalories"`
}

// NewMeal builds a meal from its items, deriving the description and the
// calorie total so that TotalCalories always matches the items.
func NewMeal(items []FoodItem, feedback MealFeedback) Meal {
	copied := make([]FoodItem, len(items))
	copy(copied, items)
	return Meal{
		Description:   DescribeItems(copied),
		Items:         copied,
		Feedback:      feedback,
		TotalCalories: SumCalories(copied),
	}
}

// SumCalories adds up the calories of the given items
func SumCalories(items []FoodItem) int {
	total := 0
	for _, item := range items {
		total += item.Calories
	}
	return total
}

// DescribeItems joins the item names into the meal description
func DescribeItems(items []FoodItem) string {
	names := make([]string, 0, len(items))
	for _, item := range items {
		names = append(names, item.Name)
	}
	return strings.Join(names, ", ")
}

// MealType identifies one of the four daily meal slots
type MealType string

const (
	Breakfast MealType = "breakfast"
	Lunch     MealType = "lunch"
	Dinner    MealType = "dinner"
	Snacks    MealType = "snacks"
)

// MealTypesOrder is the fixed display order of the meal slots
var MealTypesOrder = []MealType{Breakfast, Lunch, Dinner, Snacks}

// Valid reports whether t is one of the known meal types
func (t MealType) Valid() bool {
	for _, known := range MealTypesOrder {
		if t == known {
			return true
		}
	}
	return false
}

// DisplayName returns the human readable name of the meal slot
func (t MealType) DisplayName() string {
	switch t {
	case Breakfast:
		return "Breakfast"
	case Lunch:
		return "Lunch"
	case Dinner:
		return "Dinner"
	case Snacks:
		return "Snacks"
	default:
		return string(t)
	}
}

// ParseMealType accepts the wire value or the display name, case-insensitively
func ParseMealType(s string) (MealType, error) {
	t := MealType(strings.ToLower(strings.TrimSpace(s)))
	if t == "snack" {
		t = Snacks
	}
	if !t.Valid() {
		return "", fmt.Errorf("unknown meal type %q", s)
	}
	return t, nil
}

// DailyLog maps the logged meal slots of one day to their meal. A missing key
// means the slot has not been logged yet.
type DailyLog map[MealType]Meal

// Clone returns a shallow copy of the log; meals themselves are immutable.
func (l DailyLog) Clone() DailyLog {
	out := make(DailyLog, len(l))
	for k, v := range l {
		out[k] = v
	}
	return out
}

// With returns a copy of the log with the meal stored under t
func (l DailyLog) With(t MealType, meal Meal) DailyLog {
	out := l.Clone()
	out[t] = meal
	return out
}

// Without returns a copy of the log with t removed
func (l DailyLog) Without(t MealType) DailyLog {
	out := make(DailyLog, len(l))
	for k, v := range l {
		if k != t {
			out[k] = v
		}
	}
	return out
}

// TotalCalories sums the calories of every logged meal
func (l DailyLog) TotalCalories() int {
	total := 0
	for _, meal := range l {
		total += meal.TotalCalories
	}
	return total
}
