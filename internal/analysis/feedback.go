package analysis

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/franckalain/fooddiary/internal/ml"
	"github.com/franckalain/fooddiary/internal/models"
	"github.com/franckalain/fooddiary/internal/observability"
)

// FeedbackGenerator produces nutritional feedback for a whole meal
type FeedbackGenerator interface {
	GenerateFeedback(ctx context.Context, fullDescription string) FeedbackResult
}

// FallbackFeedback is substituted whenever feedback generation fails
func FallbackFeedback() models.MealFeedback {
	return models.MealFeedback{
		Title:      "Analysis Unavailable",
		Analysis:   "The nutritional details of this meal could not be analyzed right now.",
		Suggestion: "Try again later to get a personalized suggestion.",
	}
}

// FeedbackWriter generates meal feedback with a model
type FeedbackWriter struct {
	model ml.Model
}

// NewFeedbackWriter creates a feedback generator backed by model
func NewFeedbackWriter(model ml.Model) *FeedbackWriter {
	return &FeedbackWriter{model: model}
}

// GenerateFeedback never fails; on any error it returns FallbackFeedback
// flagged as degraded.
func (w *FeedbackWriter) GenerateFeedback(ctx context.Context, fullDescription string) FeedbackResult {
	feedback, err := w.generate(ctx, fullDescription)
	if err != nil {
		observability.LoggerFromContext(ctx).Warn("meal feedback generation failed",
			"description", fullDescription,
			"error", err)
		return FeedbackResult{Feedback: FallbackFeedback(), Degraded: true, Err: err}
	}
	return FeedbackResult{Feedback: feedback}
}

func (w *FeedbackWriter) generate(ctx context.Context, fullDescription string) (models.MealFeedback, error) {
	text, err := w.model.GenerateJSON(ctx, ml.Request{
		System:   feedbackSystemPrompt,
		Prompt:   "Give feedback for this meal: " + fullDescription,
		Subject:  fullDescription,
		Schema:   feedbackSchema,
		Sampling: feedbackSampling,
	})
	if err != nil {
		return models.MealFeedback{}, err
	}

	var out struct {
		Title      *string `json:"title"`
		Analysis   *string `json:"analysis"`
		Suggestion *string `json:"suggestion"`
	}
	if err := json.Unmarshal([]byte(ml.ExtractJSON(text)), &out); err != nil {
		return models.MealFeedback{}, fmt.Errorf("failed to parse model response: %w", err)
	}
	if out.Title == nil || out.Analysis == nil || out.Suggestion == nil {
		return models.MealFeedback{}, fmt.Errorf("response does not match the feedback schema")
	}
	return models.MealFeedback{
		Title:      *out.Title,
		Analysis:   *out.Analysis,
		Suggestion: *out.Suggestion,
	}, nil
}
