package analysis

import (
	"context"
	"errors"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/franckalain/fooddiary/internal/ml"
	"github.com/franckalain/fooddiary/internal/models"
)

// fakeModel answers GenerateJSON with a scripted response per subject.
type fakeModel struct {
	mu        sync.Mutex
	responses map[string]string
	err       error
	calls     atomic.Int32
	requests  []ml.Request
}

func (m *fakeModel) Load(ctx context.Context) error { return nil }

func (m *fakeModel) GenerateJSON(ctx context.Context, req ml.Request) (string, error) {
	m.calls.Add(1)
	m.mu.Lock()
	m.requests = append(m.requests, req)
	m.mu.Unlock()

	if m.err != nil {
		return "", m.err
	}
	return m.responses[req.Subject], nil
}

func (m *fakeModel) Chat(ctx context.Context, req ml.ChatRequest) (string, error) {
	return "", errors.New("not implemented")
}

func TestAnalyzeItemEmptyDescriptionSkipsModel(t *testing.T) {
	model := &fakeModel{}
	analyzer := NewAnalyzer(model)

	for _, desc := range []string{"", "   "} {
		res := analyzer.AnalyzeItem(context.Background(), desc)
		if res.Item.Name != desc+" (invalid)" || res.Item.Calories != 0 {
			t.Errorf("unexpected item for %q: %+v", desc, res.Item)
		}
		if res.Outcome != OutcomeInvalid {
			t.Errorf("expected invalid outcome, got %s", res.Outcome)
		}
	}

	if got := model.calls.Load(); got != 0 {
		t.Errorf("expected no model calls, got %d", got)
	}
}

func TestAnalyzeItemSuccess(t *testing.T) {
	model := &fakeModel{responses: map[string]string{
		"2 eggs": "```json\n{\"name\": \"2 eggs\", \"calories\": 179.6}\n```",
	}}
	analyzer := NewAnalyzer(model)

	res := analyzer.AnalyzeItem(context.Background(), "  2 EGGS ")
	if res.Degraded() {
		t.Fatalf("unexpected degraded result: %v", res.Err)
	}
	if res.Item != (models.FoodItem{Name: "2 eggs", Calories: 180}) {
		t.Errorf("unexpected item %+v", res.Item)
	}

	req := model.requests[0]
	if req.Subject != "2 eggs" || !strings.Contains(req.Prompt, "2 eggs") {
		t.Errorf("expected normalized text in request, got %+v", req)
	}
	if req.Temperature == nil || *req.Temperature != 0 {
		t.Errorf("expected temperature 0")
	}
	if req.TopK == nil || *req.TopK != 1 {
		t.Errorf("expected top-k 1")
	}
	if req.Seed == nil || *req.Seed != 42 {
		t.Errorf("expected fixed seed")
	}
	if req.Schema == nil || len(req.Schema.Required) != 2 {
		t.Errorf("expected food item schema")
	}
}

func TestAnalyzeItemDegrades(t *testing.T) {
	tests := []struct {
		name  string
		model *fakeModel
	}{
		{name: "transport error", model: &fakeModel{err: errors.New("connection refused")}},
		{name: "malformed json", model: &fakeModel{responses: map[string]string{"toast": "{name: toast"}}},
		{name: "missing calories", model: &fakeModel{responses: map[string]string{"toast": `{"name": "toast"}`}}},
		{name: "wrong type", model: &fakeModel{responses: map[string]string{"toast": `{"name": "toast", "calories": "many"}`}}},
		{name: "negative calories", model: &fakeModel{responses: map[string]string{"toast": `{"name": "toast", "calories": -5}`}}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res := NewAnalyzer(tt.model).AnalyzeItem(context.Background(), "Toast")
			if res.Outcome != OutcomeDegraded || res.Err == nil {
				t.Fatalf("expected degraded result with cause, got %+v", res)
			}
			if res.Item.Name != "Toast (analysis error)" || res.Item.Calories != 0 {
				t.Errorf("unexpected placeholder %+v", res.Item)
			}
		})
	}
}

func TestGenerateFeedback(t *testing.T) {
	ok := &fakeModel{responses: map[string]string{
		"rice, beans": `{"title": "Balanced!", "analysis": "Good mix.", "suggestion": "Add greens."}`,
	}}
	res := NewFeedbackWriter(ok).GenerateFeedback(context.Background(), "rice, beans")
	if res.Degraded {
		t.Fatalf("unexpected degraded feedback: %v", res.Err)
	}
	if res.Feedback.Title != "Balanced!" || res.Feedback.Suggestion != "Add greens." {
		t.Errorf("unexpected feedback %+v", res.Feedback)
	}
	if req := ok.requests[0]; req.Temperature == nil || *req.Temperature != 0.7 {
		t.Errorf("expected temperature 0.7")
	}

	failures := []*fakeModel{
		{err: errors.New("quota exceeded")},
		{responses: map[string]string{"rice, beans": `not json`}},
		{responses: map[string]string{"rice, beans": `{"title": "Hi"}`}},
	}
	for _, model := range failures {
		res := NewFeedbackWriter(model).GenerateFeedback(context.Background(), "rice, beans")
		if !res.Degraded || res.Feedback != FallbackFeedback() {
			t.Errorf("expected fallback feedback, got %+v", res)
		}
		if res.Feedback.Title != "Analysis Unavailable" {
			t.Errorf("unexpected fallback title %q", res.Feedback.Title)
		}
	}
}

func TestSplitItems(t *testing.T) {
	got := SplitItems(" 2 eggs,1 toast\n\n coffee , ,")
	want := []string{"2 eggs", "1 toast", "coffee"}
	if len(got) != len(want) {
		t.Fatalf("expected %v, got %v", want, got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("segment %d: expected %q, got %q", i, want[i], got[i])
		}
	}
}

// stubAnalyzer answers per description, optionally after a delay or by panicking.
type stubAnalyzer struct {
	items  map[string]models.FoodItem
	delays map[string]time.Duration
	panics bool
	calls  atomic.Int32
}

func (s *stubAnalyzer) AnalyzeItem(ctx context.Context, description string) ItemResult {
	s.calls.Add(1)
	if s.panics {
		panic("analyzer exploded")
	}
	if d := s.delays[description]; d > 0 {
		time.Sleep(d)
	}
	return ItemResult{Item: s.items[description]}
}

type stubFeedback struct {
	feedback models.MealFeedback
	calls    atomic.Int32
}

func (s *stubFeedback) GenerateFeedback(ctx context.Context, fullDescription string) FeedbackResult {
	s.calls.Add(1)
	return FeedbackResult{Feedback: s.feedback}
}

func TestAnalyzeMealEmptyInput(t *testing.T) {
	items := &stubAnalyzer{}
	feedback := &stubFeedback{}
	o := NewOrchestrator(items, feedback)

	for _, in := range []string{"", "   ", ", ,\n,"} {
		if _, err := o.AnalyzeMeal(context.Background(), in); !errors.Is(err, ErrEmptyInput) {
			t.Errorf("AnalyzeMeal(%q): expected ErrEmptyInput, got %v", in, err)
		}
	}
	if items.calls.Load() != 0 || feedback.calls.Load() != 0 {
		t.Errorf("expected no collaborator calls")
	}
}

func TestAnalyzeMealKeepsInputOrder(t *testing.T) {
	want := models.MealFeedback{Title: "Nice", Analysis: "Protein rich.", Suggestion: "Add fruit."}
	items := &stubAnalyzer{
		items: map[string]models.FoodItem{
			"2 eggs":  {Name: "2 eggs", Calories: 180},
			"1 toast": {Name: "1 toast", Calories: 120},
		},
		// the first item resolves last
		delays: map[string]time.Duration{"2 eggs": 30 * time.Millisecond},
	}
	o := NewOrchestrator(items, &stubFeedback{feedback: want})

	res, err := o.AnalyzeMeal(context.Background(), "2 eggs, 1 toast")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	got := res.FoodItems()
	if len(got) != 2 || got[0].Name != "2 eggs" || got[1].Name != "1 toast" {
		t.Fatalf("unexpected items %+v", got)
	}
	if res.Feedback.Feedback != want {
		t.Errorf("unexpected feedback %+v", res.Feedback.Feedback)
	}
	if res.TotalCalories() != 300 {
		t.Errorf("expected 300 calories, got %d", res.TotalCalories())
	}
}

func TestAnalyzeMealPanicFailsWholeMeal(t *testing.T) {
	o := NewOrchestrator(&stubAnalyzer{panics: true}, &stubFeedback{})

	res, err := o.AnalyzeMeal(context.Background(), "rice, beans")
	if !errors.Is(err, ErrAnalysisFailed) {
		t.Fatalf("expected ErrAnalysisFailed, got %v", err)
	}
	if res != nil {
		t.Errorf("expected partial results to be discarded")
	}
}

func TestAnalyzeMealCancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	o := NewOrchestrator(&stubAnalyzer{items: map[string]models.FoodItem{}}, &stubFeedback{})
	if _, err := o.AnalyzeMeal(ctx, "rice"); !errors.Is(err, ErrAnalysisFailed) {
		t.Fatalf("expected ErrAnalysisFailed, got %v", err)
	}
}

func TestAnalyzeMealWithDegradedItems(t *testing.T) {
	model := &fakeModel{err: errors.New("offline")}
	o := NewOrchestrator(NewAnalyzer(model), NewFeedbackWriter(model))

	res, err := o.AnalyzeMeal(context.Background(), "apple\nbanana")
	if err != nil {
		t.Fatalf("degraded results must not fail the meal: %v", err)
	}
	for _, item := range res.Items {
		if item.Outcome != OutcomeDegraded {
			t.Errorf("expected degraded item, got %+v", item)
		}
	}
	if !res.Feedback.Degraded {
		t.Errorf("expected degraded feedback")
	}
}
