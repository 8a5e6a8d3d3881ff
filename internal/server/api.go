package server

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/franckalain/fooddiary/internal/analysis"
	"github.com/franckalain/fooddiary/internal/chat"
	"github.com/franckalain/fooddiary/internal/database"
	"github.com/franckalain/fooddiary/internal/models"
	"github.com/franckalain/fooddiary/internal/observability"
)

type analyzedItem struct {
	Name     string `json:"name"`
	Calories int    `json:"calories"`
	Outcome  string `json:"outcome"`
}

type mealAnalysisResponse struct {
	Items            []analyzedItem      `json:"items"`
	Feedback         models.MealFeedback `json:"feedback"`
	FeedbackDegraded bool                `json:"feedbackDegraded"`
	TotalCalories    int                 `json:"totalCalories"`
}

func newMealAnalysisResponse(a *analysis.MealAnalysis) mealAnalysisResponse {
	items := make([]analyzedItem, len(a.Items))
	for i, r := range a.Items {
		items[i] = analyzedItem{Name: r.Item.Name, Calories: r.Item.Calories, Outcome: r.Outcome.String()}
	}
	return mealAnalysisResponse{
		Items:            items,
		Feedback:         a.Feedback.Feedback,
		FeedbackDegraded: a.Feedback.Degraded,
		TotalCalories:    a.TotalCalories(),
	}
}

// storeErrorStatus maps a store error to an HTTP status
func storeErrorStatus(err error) int {
	switch {
	case errors.Is(err, database.ErrPermissionDenied):
		return http.StatusForbidden
	case errors.Is(err, database.ErrInvalidUser):
		return http.StatusUnauthorized
	default:
		return http.StatusInternalServerError
	}
}

func (s *Server) handleAnalyze(c *gin.Context) {
	var body struct {
		Description string `json:"description"`
	}
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	result, err := s.orchestrator.AnalyzeMeal(c.Request.Context(), body.Description)
	switch {
	case errors.Is(err, analysis.ErrEmptyInput):
		c.JSON(http.StatusBadRequest, gin.H{"error": "describe at least one food item"})
		return
	case err != nil:
		c.JSON(http.StatusBadGateway, gin.H{"error": "the meal could not be analyzed, try again"})
		return
	}

	c.JSON(http.StatusOK, newMealAnalysisResponse(result))
}

func (s *Server) handleGetDay(c *gin.Context) {
	day, err := models.ParseDateKey(c.Param("date"), s.opts.Now().Location())
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	dateKey := models.DateKey(day)
	log, err := s.store.GetDailyLog(c.Request.Context(), userID(c), dateKey)
	if err != nil {
		observability.LoggerFromContext(c.Request.Context()).Error("failed to load day", "date", dateKey, "error", err)
		c.JSON(storeErrorStatus(err), gin.H{"error": "could not load the diary"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"date":          dateKey,
		"label":         models.DisplayDate(day, s.opts.Now()),
		"readOnly":      models.IsFutureDay(day, s.opts.Now()),
		"dailyLog":      log,
		"totalCalories": log.TotalCalories(),
	})
}

func (s *Server) handleGetProfile(c *gin.Context) {
	profile, err := s.store.GetProfile(c.Request.Context(), userID(c))
	if err != nil {
		observability.LoggerFromContext(c.Request.Context()).Error("failed to load profile", "error", err)
		c.JSON(storeErrorStatus(err), gin.H{"error": "could not load the profile"})
		return
	}
	c.JSON(http.StatusOK, profile)
}

func (s *Server) handleUpdateProfile(c *gin.Context) {
	var profile models.UserProfile
	if err := c.ShouldBindJSON(&profile); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	for name, v := range profile.Fields() {
		if v != nil && *v <= 0 {
			c.JSON(http.StatusBadRequest, gin.H{"error": name + " must be positive"})
			return
		}
	}

	if err := s.store.UpdateProfile(c.Request.Context(), userID(c), profile); err != nil {
		observability.LoggerFromContext(c.Request.Context()).Error("failed to save profile", "error", err)
		c.JSON(storeErrorStatus(err), gin.H{"error": "could not save the profile"})
		return
	}
	c.JSON(http.StatusOK, profile)
}

func (s *Server) handleGetChat(c *gin.Context) {
	history, err := s.chat.History(c.Request.Context(), userID(c))
	if err != nil {
		c.JSON(storeErrorStatus(err), gin.H{"error": "could not load the conversation"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"messages": history})
}

func (s *Server) handleSendChat(c *gin.Context) {
	var body struct {
		Text string `json:"text"`
	}
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	history, err := s.chat.Send(c.Request.Context(), userID(c), body.Text)
	switch {
	case errors.Is(err, chat.ErrEmptyMessage):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	case errors.Is(err, database.ErrPermissionDenied), errors.Is(err, database.ErrInvalidUser):
		c.JSON(storeErrorStatus(err), gin.H{"error": "could not access the conversation"})
		return
	case err != nil:
		c.JSON(http.StatusBadGateway, gin.H{"error": "the assistant could not answer, try again"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"messages": history})
}

func (s *Server) handleClearChat(c *gin.Context) {
	if err := s.chat.Clear(c.Request.Context(), userID(c)); err != nil {
		c.JSON(storeErrorStatus(err), gin.H{"error": "could not clear the conversation"})
		return
	}
	c.Status(http.StatusNoContent)
}
