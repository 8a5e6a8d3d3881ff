package server

import (
	"github.com/franckalain/fooddiary/internal/diary"
	"github.com/franckalain/fooddiary/internal/models"
)

type diaryErrorDTO struct {
	MealType models.MealType `json:"mealType,omitempty"`
	Message  string          `json:"message"`
}

type editingDTO struct {
	MealType models.MealType   `json:"mealType"`
	Items    []models.FoodItem `json:"items"`
}

// diaryStateDTO is the diary_state message pushed after every change
type diaryStateDTO struct {
	Date          string           `json:"date"`
	Label         string           `json:"label"`
	ReadOnly      bool             `json:"readOnly"`
	DailyLog      models.DailyLog  `json:"dailyLog"`
	TotalCalories int              `json:"totalCalories"`
	IsLoading     bool             `json:"isLoading"`
	IsSubmitting  *models.MealType `json:"isSubmitting"`
	Error         *diaryErrorDTO   `json:"error"`
	EditingState  *editingDTO      `json:"editingState"`
}

func newDiaryStateDTO(state diary.State, day diary.Day) diaryStateDTO {
	dto := diaryStateDTO{
		Date:          day.Key,
		Label:         day.Label,
		ReadOnly:      day.ReadOnly,
		DailyLog:      state.DailyLog,
		TotalCalories: state.DailyLog.TotalCalories(),
		IsLoading:     state.Loading,
	}
	if dto.DailyLog == nil {
		dto.DailyLog = models.DailyLog{}
	}
	if t, ok := state.Submitting(); ok {
		dto.IsSubmitting = &t
	}
	if state.Error != nil {
		dto.Error = &diaryErrorDTO{MealType: state.Error.MealType, Message: state.Error.Message}
	}
	if edit, ok := state.EditBuffer(); ok {
		items := edit.Items
		if items == nil {
			items = []models.FoodItem{}
		}
		dto.EditingState = &editingDTO{MealType: edit.MealType, Items: items}
	}
	return dto
}
