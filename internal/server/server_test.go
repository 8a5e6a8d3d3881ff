package server

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"github.com/franckalain/fooddiary/internal/database"
	"github.com/franckalain/fooddiary/internal/ml"
	"github.com/franckalain/fooddiary/internal/models"
)

var fixedNow = time.Date(2026, time.October, 14, 12, 0, 0, 0, time.UTC)

func newTestServer(t *testing.T, secret string) (*Server, *database.MemoryStore) {
	t.Helper()
	store := database.NewMemoryStore()
	srv := New(store, &ml.LocalModel{}, Options{
		JWTSecret: secret,
		Now:       func() time.Time { return fixedNow },
	})
	return srv, store
}

func doRequest(t *testing.T, h http.Handler, method, path, uid string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("encode body: %v", err)
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if uid != "" {
		req.Header.Set("X-User-ID", uid)
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestHealth(t *testing.T) {
	srv, _ := newTestServer(t, "")
	rec := doRequest(t, srv.Handler(), http.MethodGet, "/health", "", nil)
	if rec.Code != http.StatusOK || rec.Body.String() != "OK" {
		t.Errorf("health = %d %q", rec.Code, rec.Body.String())
	}
}

func TestDevAuthRequiresUser(t *testing.T) {
	srv, _ := newTestServer(t, "")
	h := srv.Handler()

	if rec := doRequest(t, h, http.MethodGet, "/api/profile", "", nil); rec.Code != http.StatusUnauthorized {
		t.Errorf("without user: %d", rec.Code)
	}
	if rec := doRequest(t, h, http.MethodGet, "/api/profile", "u1", nil); rec.Code != http.StatusOK {
		t.Errorf("with user: %d", rec.Code)
	}
	if rec := doRequest(t, h, http.MethodGet, "/api/profile?uid=u1", "", nil); rec.Code != http.StatusOK {
		t.Errorf("with uid query: %d", rec.Code)
	}
}

func TestJWTAuth(t *testing.T) {
	srv, _ := newTestServer(t, "s3cret")
	h := srv.Handler()

	token, err := GenerateToken("s3cret", "u42", time.Hour)
	if err != nil {
		t.Fatalf("GenerateToken: %v", err)
	}
	forged, _ := GenerateToken("other", "u42", time.Hour)
	expired, _ := GenerateToken("s3cret", "u42", -time.Hour)

	tests := []struct {
		name   string
		header string
		want   int
	}{
		{"valid", "Bearer " + token, http.StatusOK},
		{"missing", "", http.StatusUnauthorized},
		{"wrong secret", "Bearer " + forged, http.StatusUnauthorized},
		{"expired", "Bearer " + expired, http.StatusUnauthorized},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/api/chat", nil)
			// the dev header must be ignored once a secret is set
			req.Header.Set("X-User-ID", "intruder")
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			rec := httptest.NewRecorder()
			h.ServeHTTP(rec, req)
			if rec.Code != tt.want {
				t.Errorf("status = %d, want %d", rec.Code, tt.want)
			}
		})
	}
}

func TestAnalyze(t *testing.T) {
	srv, _ := newTestServer(t, "")
	h := srv.Handler()

	rec := doRequest(t, h, http.MethodPost, "/api/analyze", "u1", map[string]string{"description": "2 Eggs,\n toast"})
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d: %s", rec.Code, rec.Body.String())
	}

	var resp mealAnalysisResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(resp.Items) != 2 || resp.Items[0].Name != "2 eggs" || resp.Items[1].Name != "toast" {
		t.Errorf("items = %+v", resp.Items)
	}
	if resp.Items[0].Outcome != "analyzed" {
		t.Errorf("outcome = %q", resp.Items[0].Outcome)
	}

	rec = doRequest(t, h, http.MethodPost, "/api/analyze", "u1", map[string]string{"description": " , \n"})
	if rec.Code != http.StatusBadRequest {
		t.Errorf("empty input status = %d", rec.Code)
	}
}

func TestGetDay(t *testing.T) {
	srv, store := newTestServer(t, "")
	store.SaveMeal(context.Background(), "u1", "2026-10-14", models.Dinner,
		models.NewMeal([]models.FoodItem{{Name: "soup", Calories: 150}, {Name: "bread", Calories: 80}}, models.MealFeedback{}))
	h := srv.Handler()

	rec := doRequest(t, h, http.MethodGet, "/api/diary/2026-10-14", "u1", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	var resp struct {
		Label         string          `json:"label"`
		TotalCalories int             `json:"totalCalories"`
		DailyLog      models.DailyLog `json:"dailyLog"`
	}
	json.Unmarshal(rec.Body.Bytes(), &resp)
	if resp.TotalCalories != 230 || resp.Label != "Today" {
		t.Errorf("unexpected day %+v", resp)
	}
	if resp.DailyLog[models.Dinner].Description != "soup, bread" {
		t.Errorf("dinner = %+v", resp.DailyLog[models.Dinner])
	}

	if rec := doRequest(t, h, http.MethodGet, "/api/diary/14-10-2026", "u1", nil); rec.Code != http.StatusBadRequest {
		t.Errorf("bad date status = %d", rec.Code)
	}
}

func TestProfile(t *testing.T) {
	srv, _ := newTestServer(t, "")
	h := srv.Handler()

	rec := doRequest(t, h, http.MethodPut, "/api/profile", "u1", map[string]float64{"currentWeight": 70, "height": 175})
	if rec.Code != http.StatusOK {
		t.Fatalf("update status = %d: %s", rec.Code, rec.Body.String())
	}

	rec = doRequest(t, h, http.MethodGet, "/api/profile", "u1", nil)
	var profile models.UserProfile
	json.Unmarshal(rec.Body.Bytes(), &profile)
	if profile.CurrentWeight == nil || *profile.CurrentWeight != 70 || profile.TargetWeight != nil {
		t.Errorf("profile = %s", rec.Body.String())
	}

	rec = doRequest(t, h, http.MethodPut, "/api/profile", "u1", map[string]float64{"height": -1})
	if rec.Code != http.StatusBadRequest {
		t.Errorf("negative height status = %d", rec.Code)
	}
}

func TestChat(t *testing.T) {
	srv, _ := newTestServer(t, "")
	h := srv.Handler()

	rec := doRequest(t, h, http.MethodPost, "/api/chat", "u1", map[string]string{"text": "I ate a salad"})
	if rec.Code != http.StatusOK {
		t.Fatalf("send status = %d: %s", rec.Code, rec.Body.String())
	}
	var resp struct {
		Messages []models.ChatMessage `json:"messages"`
	}
	json.Unmarshal(rec.Body.Bytes(), &resp)
	if len(resp.Messages) != 2 || resp.Messages[1].Role != models.RoleModel {
		t.Errorf("messages = %+v", resp.Messages)
	}

	if rec := doRequest(t, h, http.MethodPost, "/api/chat", "u1", map[string]string{"text": ""}); rec.Code != http.StatusBadRequest {
		t.Errorf("empty text status = %d", rec.Code)
	}

	if rec := doRequest(t, h, http.MethodDelete, "/api/chat", "u1", nil); rec.Code != http.StatusNoContent {
		t.Errorf("clear status = %d", rec.Code)
	}

	rec = doRequest(t, h, http.MethodGet, "/api/chat", "u1", nil)
	resp.Messages = nil
	json.Unmarshal(rec.Body.Bytes(), &resp)
	if len(resp.Messages) != 0 {
		t.Errorf("history not cleared: %+v", resp.Messages)
	}
}

type envelope struct {
	Type    string          `json:"type"`
	Data    json.RawMessage `json:"data"`
	Message string          `json:"message"`
}

func send(t *testing.T, conn *websocket.Conn, msgType string, data any) {
	t.Helper()
	if err := conn.WriteJSON(map[string]any{"type": msgType, "data": data}); err != nil {
		t.Fatalf("write %s: %v", msgType, err)
	}
}

// readUntil reads messages until match accepts one
func readUntil(t *testing.T, conn *websocket.Conn, match func(envelope) bool) envelope {
	t.Helper()
	conn.SetReadDeadline(time.Now().Add(5 * time.Second))
	for {
		var env envelope
		if err := conn.ReadJSON(&env); err != nil {
			t.Fatalf("read: %v", err)
		}
		if match(env) {
			return env
		}
	}
}

func stateMatching(t *testing.T, conn *websocket.Conn, pred func(diaryStateDTO) bool) diaryStateDTO {
	t.Helper()
	var state diaryStateDTO
	readUntil(t, conn, func(env envelope) bool {
		if env.Type != "diary_state" {
			return false
		}
		state = diaryStateDTO{}
		if err := json.Unmarshal(env.Data, &state); err != nil {
			t.Fatalf("decode state: %v", err)
		}
		return pred(state)
	})
	return state
}

func TestWebSocketDiaryFlow(t *testing.T) {
	srv, store := newTestServer(t, "")
	ts := httptest.NewServer(srv.Handler())
	defer ts.Close()

	url := "ws" + strings.TrimPrefix(ts.URL, "http") + "/ws?uid=u1"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.Close()

	send(t, conn, "load_day", map[string]string{"date": "2026-10-14"})
	state := stateMatching(t, conn, func(s diaryStateDTO) bool { return !s.IsLoading })
	if state.Date != "2026-10-14" || state.ReadOnly || len(state.DailyLog) != 0 {
		t.Fatalf("unexpected loaded state %+v", state)
	}

	send(t, conn, "start_edit", map[string]string{"mealType": "Lunch"})
	stateMatching(t, conn, func(s diaryStateDTO) bool { return s.EditingState != nil })

	// the new state is pushed before the item_added reply
	send(t, conn, "add_item", map[string]string{"description": "Rice"})
	stateMatching(t, conn, func(s diaryStateDTO) bool {
		return s.EditingState != nil && len(s.EditingState.Items) == 1
	})
	added := readUntil(t, conn, func(env envelope) bool { return env.Type == "item_added" })
	var item analyzedItem
	json.Unmarshal(added.Data, &item)
	if item.Name != "rice" {
		t.Errorf("item = %+v", item)
	}

	send(t, conn, "save_meal", nil)
	state = stateMatching(t, conn, func(s diaryStateDTO) bool {
		_, ok := s.DailyLog[models.Lunch]
		return ok && s.IsSubmitting == nil
	})
	if state.EditingState != nil {
		t.Errorf("edit still open after save: %+v", state.EditingState)
	}

	stored, _ := store.GetDailyLog(context.Background(), "u1", "2026-10-14")
	if stored[models.Lunch].Description != "rice" {
		t.Errorf("stored lunch = %+v", stored[models.Lunch])
	}

	send(t, conn, "unknown_op", nil)
	errMsg := readUntil(t, conn, func(env envelope) bool { return env.Type == "error" })
	if errMsg.Message != "Unknown message type" {
		t.Errorf("error message = %q", errMsg.Message)
	}
}

func TestWebSocketFutureDayIsReadOnly(t *testing.T) {
	srv, _ := newTestServer(t, "")
	ts := httptest.NewServer(srv.Handler())
	defer ts.Close()

	url := "ws" + strings.TrimPrefix(ts.URL, "http") + "/ws?uid=u1"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.Close()

	send(t, conn, "load_day", map[string]string{"date": "2026-10-15"})
	state := stateMatching(t, conn, func(s diaryStateDTO) bool { return !s.IsLoading })
	if !state.ReadOnly {
		t.Error("tomorrow should be read-only")
	}

	send(t, conn, "start_edit", map[string]string{"mealType": "dinner"})
	errMsg := readUntil(t, conn, func(env envelope) bool { return env.Type == "error" })
	if errMsg.Message != "Future days cannot be edited" {
		t.Errorf("error message = %q", errMsg.Message)
	}
}
