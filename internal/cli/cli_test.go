package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/franckalain/fooddiary/internal/database"
	"github.com/franckalain/fooddiary/internal/ml"
	"github.com/franckalain/fooddiary/internal/models"
)

func writeConfig(t *testing.T, dbPath string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.json")
	content := `{
  "server": {"port": "0"},
  "database": {"backend": "sqlite", "path": "` + filepath.ToSlash(dbPath) + `"},
  "ml": {"type": "local"},
  "auth": {"jwt_secret": "test-secret"},
  "log": {"level": "error"}
}`
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func runCLI(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&out)
	rootCmd.SetArgs(args)
	err := rootCmd.Execute()
	return out.String(), err
}

func TestAnalyzeJSON(t *testing.T) {
	configPath := writeConfig(t, filepath.Join(t.TempDir(), "diary.db"))

	out, err := runCLI(t, "analyze", "--config", configPath, "--format", "json", "2 Eggs, toast")
	if err != nil {
		t.Fatalf("analyze: %v", err)
	}

	var result analyzeOutput
	if err := json.Unmarshal([]byte(out), &result); err != nil {
		t.Fatalf("decode %q: %v", out, err)
	}
	if len(result.Items) != 2 || result.Items[0].Name != "2 eggs" || result.Items[1].Name != "toast" {
		t.Errorf("items = %+v", result.Items)
	}
}

func TestAnalyzeToon(t *testing.T) {
	configPath := writeConfig(t, filepath.Join(t.TempDir(), "diary.db"))

	out, err := runCLI(t, "analyze", "--config", configPath, "--format", "toon", "rice")
	if err != nil {
		t.Fatalf("analyze: %v", err)
	}
	if !strings.Contains(out, "totalCalories") {
		t.Errorf("unexpected toon output %q", out)
	}
}

func TestAnalyzeEmptyInput(t *testing.T) {
	configPath := writeConfig(t, filepath.Join(t.TempDir(), "diary.db"))

	if _, err := runCLI(t, "analyze", "--config", configPath, "--format", "text", " , "); err == nil {
		t.Error("expected error for empty meal")
	}
}

func TestDay(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "diary.db")
	store, err := database.NewSQLiteDB(dbPath)
	if err != nil {
		t.Fatalf("NewSQLiteDB: %v", err)
	}
	meal := models.NewMeal([]models.FoodItem{{Name: "oats", Calories: 150}, {Name: "banana", Calories: 90}}, models.MealFeedback{Title: "Good start"})
	if err := store.SaveMeal(context.Background(), "u1", "2026-10-14", models.Breakfast, meal); err != nil {
		t.Fatalf("SaveMeal: %v", err)
	}
	store.Close()

	configPath := writeConfig(t, dbPath)

	out, err := runCLI(t, "day", "2026-10-14", "--config", configPath, "--user", "u1", "--format", "text")
	if err != nil {
		t.Fatalf("day: %v", err)
	}
	for _, want := range []string{"Breakfast: 240 kcal", "oats (150 kcal)", "Total: 240 kcal"} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q:\n%s", want, out)
		}
	}

	out, err = runCLI(t, "day", "2026-10-14", "--config", configPath, "--user", "u1", "--format", "json")
	if err != nil {
		t.Fatalf("day json: %v", err)
	}
	var result dayOutput
	if err := json.Unmarshal([]byte(out), &result); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if result.TotalCalories != 240 || result.Date != "2026-10-14" {
		t.Errorf("result = %+v", result)
	}
}

func TestDayRejectsBadDate(t *testing.T) {
	configPath := writeConfig(t, filepath.Join(t.TempDir(), "diary.db"))
	if _, err := runCLI(t, "day", "yesterday", "--config", configPath, "--user", "u1"); err == nil {
		t.Error("expected error for invalid date")
	}
}

func TestToken(t *testing.T) {
	configPath := writeConfig(t, filepath.Join(t.TempDir(), "diary.db"))

	out, err := runCLI(t, "token", "u1", "--config", configPath)
	if err != nil {
		t.Fatalf("token: %v", err)
	}
	if parts := strings.Split(strings.TrimSpace(out), "."); len(parts) != 3 {
		t.Errorf("not a JWT: %q", out)
	}
}

func TestRenderUnknownFormat(t *testing.T) {
	var buf bytes.Buffer
	if err := render(&buf, "yaml", struct{}{}, nil); err == nil {
		t.Error("expected error for unknown format")
	}
}

type closingModel struct {
	*ml.LocalModel
	closed bool
}

func (m *closingModel) Close() error {
	m.closed = true
	return nil
}

func TestCloseModel(t *testing.T) {
	model := &closingModel{}
	closeModel(model)
	if !model.closed {
		t.Error("model with a client was not closed")
	}

	// backends without a client are left alone
	closeModel(&ml.LocalModel{})
}
