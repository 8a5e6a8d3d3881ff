package database

import (
	"context"
	"errors"

	"github.com/franckalain/fooddiary/internal/models"
)

var (
	// ErrPermissionDenied is returned when the backend rejects the caller
	ErrPermissionDenied = errors.New("permission denied")
	// ErrInvalidUser is returned for an empty user id
	ErrInvalidUser = errors.New("invalid user id")
)

// DiaryStore persists one document per user and calendar day
type DiaryStore interface {
	// GetDailyLog returns the day's meals, or an empty log if nothing was logged
	GetDailyLog(ctx context.Context, uid, dateKey string) (models.DailyLog, error)
	// SaveMeal stores one meal, leaving the other meal types of the day untouched
	SaveMeal(ctx context.Context, uid, dateKey string, mealType models.MealType, meal models.Meal) error
	// DeleteMeal removes one meal; the day document goes away with its last meal
	DeleteMeal(ctx context.Context, uid, dateKey string, mealType models.MealType) error
}

// UserStore persists the user document: profile and chat history
type UserStore interface {
	GetProfile(ctx context.Context, uid string) (models.UserProfile, error)
	// UpdateProfile writes the set fields and removes the nil ones
	UpdateProfile(ctx context.Context, uid string, profile models.UserProfile) error
	GetChatHistory(ctx context.Context, uid string) ([]models.ChatMessage, error)
	// SaveChatHistory overwrites the whole history
	SaveChatHistory(ctx context.Context, uid string, messages []models.ChatMessage) error
	ClearChatHistory(ctx context.Context, uid string) error
}

// Store is the full document store
type Store interface {
	DiaryStore
	UserStore
	Close() error
}

func checkUID(uid string) error {
	if uid == "" {
		return ErrInvalidUser
	}
	return nil
}

var (
	_ Store = (*SQLiteDB)(nil)
	_ Store = (*FirestoreStore)(nil)
	_ Store = (*MemoryStore)(nil)
)
