package analysis

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/sourcegraph/conc"

	"github.com/franckalain/fooddiary/internal/observability"
)

var (
	// ErrEmptyInput is returned when a meal description has no items
	ErrEmptyInput = errors.New("please describe the items of your meal")
	// ErrAnalysisFailed means the meal must be analyzed again as a whole
	ErrAnalysisFailed = errors.New("the meal could not be analyzed, check your connection and try again")
)

// Orchestrator analyzes a multi-item meal description
type Orchestrator struct {
	items    ItemAnalyzer
	feedback FeedbackGenerator
}

// NewOrchestrator creates an orchestrator over the given collaborators
func NewOrchestrator(items ItemAnalyzer, feedback FeedbackGenerator) *Orchestrator {
	return &Orchestrator{items: items, feedback: feedback}
}

// SplitItems splits a meal description on commas and newlines, dropping
// blank segments
func SplitItems(description string) []string {
	fields := strings.FieldsFunc(description, func(r rune) bool {
		return r == ',' || r == '\n'
	})

	out := make([]string, 0, len(fields))
	for _, f := range fields {
		if s := strings.TrimSpace(f); s != "" {
			out = append(out, s)
		}
	}
	return out
}

// AnalyzeMeal analyzes every item and generates the feedback concurrently.
// Items keep their input order. A panic in a collaborator or a cancelled
// context discards all partial results and returns ErrAnalysisFailed.
func (o *Orchestrator) AnalyzeMeal(ctx context.Context, description string) (*MealAnalysis, error) {
	segments := SplitItems(description)
	if len(segments) == 0 {
		return nil, ErrEmptyInput
	}

	log := observability.LoggerFromContext(ctx).With("items_count", len(segments))
	start := time.Now()

	items := make([]ItemResult, len(segments))
	var feedback FeedbackResult

	var wg conc.WaitGroup
	for i, segment := range segments {
		wg.Go(func() {
			items[i] = o.items.AnalyzeItem(ctx, segment)
		})
	}
	wg.Go(func() {
		feedback = o.feedback.GenerateFeedback(ctx, description)
	})

	if recovered := wg.WaitAndRecover(); recovered != nil {
		log.Error("meal analysis failed", "error", recovered.String())
		return nil, fmt.Errorf("%w: %w", ErrAnalysisFailed, recovered.AsError())
	}
	if err := ctx.Err(); err != nil {
		log.Error("meal analysis cancelled", "error", err)
		return nil, fmt.Errorf("%w: %w", ErrAnalysisFailed, err)
	}

	log.Info("meal analyzed", "elapsed_ms", time.Since(start).Milliseconds())
	return &MealAnalysis{Items: items, Feedback: feedback}, nil
}
