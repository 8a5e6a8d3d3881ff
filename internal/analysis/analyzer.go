package analysis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"strings"

	"github.com/franckalain/fooddiary/internal/ml"
	"github.com/franckalain/fooddiary/internal/models"
	"github.com/franckalain/fooddiary/internal/observability"
)

const (
	invalidSuffix       = " (invalid)"
	analysisErrorSuffix = " (analysis error)"
)

var errSchemaViolation = errors.New("response does not match the food item schema")

// ItemAnalyzer turns one free-text food description into a food item
type ItemAnalyzer interface {
	AnalyzeItem(ctx context.Context, description string) ItemResult
}

// Analyzer estimates the calories of single food items with a model
type Analyzer struct {
	model ml.Model
}

// NewAnalyzer creates an analyzer backed by model
func NewAnalyzer(model ml.Model) *Analyzer {
	return &Analyzer{model: model}
}

// AnalyzeItem never fails: an empty description yields an "(invalid)" item
// and any model or parsing failure yields an "(analysis error)" item, both
// with zero calories.
func (a *Analyzer) AnalyzeItem(ctx context.Context, description string) ItemResult {
	normalized := strings.ToLower(strings.TrimSpace(description))
	if normalized == "" {
		return ItemResult{
			Item:    models.FoodItem{Name: description + invalidSuffix},
			Outcome: OutcomeInvalid,
		}
	}

	item, err := a.estimate(ctx, normalized)
	if err != nil {
		observability.LoggerFromContext(ctx).Warn("food item analysis failed",
			"item", normalized,
			"error", err)
		return ItemResult{
			Item:    models.FoodItem{Name: description + analysisErrorSuffix},
			Outcome: OutcomeDegraded,
			Err:     err,
		}
	}
	return ItemResult{Item: item, Outcome: OutcomeAnalyzed}
}

func (a *Analyzer) estimate(ctx context.Context, normalized string) (models.FoodItem, error) {
	text, err := a.model.GenerateJSON(ctx, ml.Request{
		System:   itemSystemPrompt,
		Prompt:   "Analyze this item: " + normalized,
		Subject:  normalized,
		Schema:   foodItemSchema,
		Sampling: itemSampling,
	})
	if err != nil {
		return models.FoodItem{}, err
	}
	return parseFoodItem(text)
}

func parseFoodItem(text string) (models.FoodItem, error) {
	var out struct {
		Name     *string  `json:"name"`
		Calories *float64 `json:"calories"`
	}
	if err := json.Unmarshal([]byte(ml.ExtractJSON(text)), &out); err != nil {
		return models.FoodItem{}, fmt.Errorf("failed to parse model response: %w", err)
	}
	if out.Name == nil || out.Calories == nil {
		return models.FoodItem{}, errSchemaViolation
	}
	if *out.Calories < 0 || math.IsNaN(*out.Calories) || math.IsInf(*out.Calories, 0) {
		return models.FoodItem{}, fmt.Errorf("%w: calories %v", errSchemaViolation, *out.Calories)
	}
	return models.FoodItem{
		Name:     *out.Name,
		Calories: int(math.Round(*out.Calories)),
	}, nil
}
