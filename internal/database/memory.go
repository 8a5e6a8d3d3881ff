package database

import (
	"context"
	"sync"

	"github.com/franckalain/fooddiary/internal/models"
)

type memoryUser struct {
	profile models.UserProfile
	chat    []models.ChatMessage
}

// MemoryStore is an in-process Store used for development and tests.
// All values are copied in and out.
type MemoryStore struct {
	mu    sync.RWMutex
	users map[string]*memoryUser
	days  map[string]map[string]models.DailyLog // uid -> dateKey -> log
}

// NewMemoryStore creates an empty in-memory store
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		users: make(map[string]*memoryUser),
		days:  make(map[string]map[string]models.DailyLog),
	}
}

// GetDailyLog returns a copy of the day log, empty if the day has no meals
func (m *MemoryStore) GetDailyLog(ctx context.Context, uid, dateKey string) (models.DailyLog, error) {
	if err := checkUID(uid); err != nil {
		return nil, err
	}
	m.mu.RLock()
	defer m.mu.RUnlock()

	log, ok := m.days[uid][dateKey]
	if !ok {
		return models.DailyLog{}, nil
	}
	return copyLog(log), nil
}

// SaveMeal stores meal under mealType, keeping the other meals of the day
func (m *MemoryStore) SaveMeal(ctx context.Context, uid, dateKey string, mealType models.MealType, meal models.Meal) error {
	if err := checkUID(uid); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.days[uid] == nil {
		m.days[uid] = make(map[string]models.DailyLog)
	}
	log := m.days[uid][dateKey]
	if log == nil {
		log = models.DailyLog{}
		m.days[uid][dateKey] = log
	}
	log[mealType] = copyMeal(meal)
	return nil
}

// DeleteMeal removes one meal and drops the day once it is empty
func (m *MemoryStore) DeleteMeal(ctx context.Context, uid, dateKey string, mealType models.MealType) error {
	if err := checkUID(uid); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	log, ok := m.days[uid][dateKey]
	if !ok {
		return nil
	}
	delete(log, mealType)
	if len(log) == 0 {
		delete(m.days[uid], dateKey)
	}
	return nil
}

// user returns the user entry, creating it; callers hold the write lock
func (m *MemoryStore) user(uid string) *memoryUser {
	u, ok := m.users[uid]
	if !ok {
		u = &memoryUser{chat: []models.ChatMessage{}}
		m.users[uid] = u
	}
	return u
}

// GetProfile returns the profile of uid, creating the user if needed
func (m *MemoryStore) GetProfile(ctx context.Context, uid string) (models.UserProfile, error) {
	if err := checkUID(uid); err != nil {
		return models.UserProfile{}, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	return copyProfile(m.user(uid).profile), nil
}

// UpdateProfile replaces the profile; nil fields are removed
func (m *MemoryStore) UpdateProfile(ctx context.Context, uid string, profile models.UserProfile) error {
	if err := checkUID(uid); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.user(uid).profile = copyProfile(profile)
	return nil
}

// GetChatHistory returns a copy of the stored conversation
func (m *MemoryStore) GetChatHistory(ctx context.Context, uid string) ([]models.ChatMessage, error) {
	if err := checkUID(uid); err != nil {
		return nil, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]models.ChatMessage{}, m.user(uid).chat...), nil
}

// SaveChatHistory overwrites the stored conversation
func (m *MemoryStore) SaveChatHistory(ctx context.Context, uid string, messages []models.ChatMessage) error {
	if err := checkUID(uid); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.user(uid).chat = append([]models.ChatMessage{}, messages...)
	return nil
}

// ClearChatHistory empties the stored conversation
func (m *MemoryStore) ClearChatHistory(ctx context.Context, uid string) error {
	return m.SaveChatHistory(ctx, uid, nil)
}

// Close is a no-op
func (m *MemoryStore) Close() error {
	return nil
}

func copyLog(log models.DailyLog) models.DailyLog {
	out := make(models.DailyLog, len(log))
	for k, meal := range log {
		out[k] = copyMeal(meal)
	}
	return out
}

func copyMeal(meal models.Meal) models.Meal {
	meal.Items = append([]models.FoodItem{}, meal.Items...)
	return meal
}

func copyProfile(p models.UserProfile) models.UserProfile {
	dup := func(v *float64) *float64 {
		if v == nil {
			return nil
		}
		c := *v
		return &c
	}
	return models.UserProfile{
		InitialWeight: dup(p.InitialWeight),
		CurrentWeight: dup(p.CurrentWeight),
		TargetWeight:  dup(p.TargetWeight),
		Height:        dup(p.Height),
	}
}
