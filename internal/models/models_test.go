package models

import (
	"testing"
	"time"
)

func TestNewMealDerivesTotals(t *testing.T) {
	items := []FoodItem{{Name: "2 eggs", Calories: 180}, {Name: "1 toast", Calories: 120}}
	meal := NewMeal(items, MealFeedback{Title: "Good"})

	if meal.TotalCalories != 300 {
		t.Errorf("expected total 300, got %d", meal.TotalCalories)
	}
	if meal.Description != "2 eggs, 1 toast" {
		t.Errorf("unexpected description %q", meal.Description)
	}

	items[0].Calories = 999
	if meal.Items[0].Calories != 180 {
		t.Errorf("meal items must not alias the input slice")
	}
}

func TestParseMealType(t *testing.T) {
	tests := []struct {
		in      string
		want    MealType
		wantErr bool
	}{
		{in: "breakfast", want: Breakfast},
		{in: " Lunch ", want: Lunch},
		{in: "DINNER", want: Dinner},
		{in: "snack", want: Snacks},
		{in: "brunch", wantErr: true},
		{in: "", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseMealType(tt.in)
			if tt.wantErr {
				if err == nil {
					t.Errorf("expected error for %q", tt.in)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got != tt.want {
				t.Errorf("expected %s, got %s", tt.want, got)
			}
		})
	}
}

func TestDailyLogCopies(t *testing.T) {
	log := DailyLog{Breakfast: {TotalCalories: 100}}

	withLunch := log.With(Lunch, Meal{TotalCalories: 200})
	if _, ok := log[Lunch]; ok {
		t.Errorf("With must not mutate the receiver")
	}
	if withLunch.TotalCalories() != 300 {
		t.Errorf("expected 300, got %d", withLunch.TotalCalories())
	}

	empty := log.Without(Breakfast)
	if len(empty) != 0 {
		t.Errorf("expected empty log, got %v", empty)
	}
	if _, ok := log[Breakfast]; !ok {
		t.Errorf("Without must not mutate the receiver")
	}
}

func TestIsFutureDay(t *testing.T) {
	now := time.Date(2026, 10, 18, 15, 0, 0, 0, time.UTC)

	tests := []struct {
		name string
		day  time.Time
		want bool
	}{
		{name: "today", day: time.Date(2026, 10, 18, 0, 0, 0, 0, time.UTC), want: false},
		{name: "late today", day: time.Date(2026, 10, 18, 23, 59, 59, 0, time.UTC), want: false},
		{name: "yesterday", day: time.Date(2026, 10, 17, 0, 0, 0, 0, time.UTC), want: false},
		{name: "tomorrow", day: time.Date(2026, 10, 19, 0, 0, 0, 0, time.UTC), want: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := IsFutureDay(tt.day, now); got != tt.want {
				t.Errorf("IsFutureDay(%s) = %v, want %v", tt.day, got, tt.want)
			}
		})
	}
}

func TestDateKeyRoundTrip(t *testing.T) {
	day, err := ParseDateKey("2026-02-28", time.UTC)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if DateKey(day) != "2026-02-28" {
		t.Errorf("round trip failed: %s", DateKey(day))
	}
	if _, err := ParseDateKey("28/02/2026", time.UTC); err == nil {
		t.Errorf("expected error for malformed key")
	}
}

func TestDisplayDate(t *testing.T) {
	now := time.Date(2026, 10, 18, 9, 0, 0, 0, time.UTC)

	if got := DisplayDate(now, now); got != "Today" {
		t.Errorf("expected Today, got %s", got)
	}
	if got := DisplayDate(now.AddDate(0, 0, -1), now); got != "Yesterday" {
		t.Errorf("expected Yesterday, got %s", got)
	}
	if got := DisplayDate(time.Date(2026, 10, 14, 0, 0, 0, 0, time.UTC), now); got != "Wednesday, October 14" {
		t.Errorf("unexpected label %s", got)
	}
}
