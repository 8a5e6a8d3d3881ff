package database

import (
	"context"
	"fmt"
	"sort"

	"cloud.google.com/go/firestore"
	"google.golang.org/api/option"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/franckalain/fooddiary/internal/models"
	"github.com/franckalain/fooddiary/internal/observability"
)

const (
	usersCollection   = "users"
	diariesCollection = "diaries"
)

// FirestoreStore keeps one document per user (profile and chat history) and
// one document per day under users/{uid}/diaries/{dateKey}, keyed by meal type.
type FirestoreStore struct {
	client *firestore.Client
}

type userDoc struct {
	Profile     models.UserProfile   `firestore:"profile"`
	ChatHistory []models.ChatMessage `firestore:"chatHistory"`
}

// NewFirestoreStore creates a Firestore store for projectID
func NewFirestoreStore(ctx context.Context, projectID string, opts ...option.ClientOption) (*FirestoreStore, error) {
	if projectID == "" {
		return nil, fmt.Errorf("projectID is required for Firestore store")
	}

	client, err := firestore.NewClient(ctx, projectID, opts...)
	if err != nil {
		return nil, fmt.Errorf("creating firestore client: %w", err)
	}

	return &FirestoreStore{client: client}, nil
}

func (s *FirestoreStore) userRef(uid string) *firestore.DocumentRef {
	return s.client.Collection(usersCollection).Doc(uid)
}

func (s *FirestoreStore) dayRef(uid, dateKey string) *firestore.DocumentRef {
	return s.userRef(uid).Collection(diariesCollection).Doc(dateKey)
}

// mapError turns access failures into ErrPermissionDenied
func mapError(err error, action string) error {
	switch status.Code(err) {
	case codes.PermissionDenied, codes.Unauthenticated:
		return fmt.Errorf("%s: %w: %v", action, ErrPermissionDenied, err)
	default:
		return fmt.Errorf("%s: %w", action, err)
	}
}

// GetDailyLog returns the day's meals, or an empty log if the day document
// does not exist
func (s *FirestoreStore) GetDailyLog(ctx context.Context, uid, dateKey string) (models.DailyLog, error) {
	if err := checkUID(uid); err != nil {
		return nil, err
	}

	snap, err := s.dayRef(uid, dateKey).Get(ctx)
	if err != nil {
		if status.Code(err) == codes.NotFound {
			return models.DailyLog{}, nil
		}
		return nil, mapError(err, "firestore GetDailyLog")
	}
	return decodeDay(snap)
}

func decodeDay(snap *firestore.DocumentSnapshot) (models.DailyLog, error) {
	var raw map[string]models.Meal
	if err := snap.DataTo(&raw); err != nil {
		return nil, fmt.Errorf("firestore decode day %s: %w", snap.Ref.ID, err)
	}
	log := make(models.DailyLog, len(raw))
	for k, meal := range raw {
		log[models.MealType(k)] = meal
	}
	return log, nil
}

// SaveMeal merges the meal field into the day document
func (s *FirestoreStore) SaveMeal(ctx context.Context, uid, dateKey string, mealType models.MealType, meal models.Meal) error {
	if err := checkUID(uid); err != nil {
		return err
	}

	data := map[string]interface{}{string(mealType): meal}
	if _, err := s.dayRef(uid, dateKey).Set(ctx, data, firestore.MergeAll); err != nil {
		return mapError(err, fmt.Sprintf("firestore SaveMeal %s", mealType))
	}
	return nil
}

// DeleteMeal removes the meal in a transaction, deleting the day document
// when it was the last one
func (s *FirestoreStore) DeleteMeal(ctx context.Context, uid, dateKey string, mealType models.MealType) error {
	if err := checkUID(uid); err != nil {
		return err
	}

	ref := s.dayRef(uid, dateKey)
	err := s.client.RunTransaction(ctx, func(ctx context.Context, tx *firestore.Transaction) error {
		snap, err := tx.Get(ref)
		if err != nil {
			if status.Code(err) == codes.NotFound {
				observability.Logger().Warn("delete on missing diary day", "user_id", uid, "date", dateKey)
				return nil
			}
			return err
		}

		log, err := decodeDay(snap)
		if err != nil {
			return err
		}
		if _, ok := log[mealType]; !ok {
			return nil
		}
		delete(log, mealType)

		if len(log) == 0 {
			return tx.Delete(ref)
		}
		data := make(map[string]interface{}, len(log))
		for k, meal := range log {
			data[string(k)] = meal
		}
		return tx.Set(ref, data)
	})
	if err != nil {
		return mapError(err, fmt.Sprintf("firestore DeleteMeal %s", mealType))
	}
	return nil
}

// getOrCreateUser returns the user document, creating the default one
// (empty profile, empty chat history) when missing
func (s *FirestoreStore) getOrCreateUser(ctx context.Context, uid string) (userDoc, error) {
	if err := checkUID(uid); err != nil {
		return userDoc{}, err
	}

	ref := s.userRef(uid)
	snap, err := ref.Get(ctx)
	if err == nil {
		var doc userDoc
		if err := snap.DataTo(&doc); err != nil {
			return userDoc{}, fmt.Errorf("firestore decode user %s: %w", uid, err)
		}
		if doc.ChatHistory == nil {
			doc.ChatHistory = []models.ChatMessage{}
		}
		return doc, nil
	}
	if status.Code(err) != codes.NotFound {
		return userDoc{}, mapError(err, "firestore get user")
	}

	observability.Logger().Info("creating default user document", "user_id", uid)
	doc := userDoc{ChatHistory: []models.ChatMessage{}}
	if _, err := ref.Create(ctx, doc); err != nil && status.Code(err) != codes.AlreadyExists {
		return userDoc{}, mapError(err, "firestore create user")
	}
	return doc, nil
}

// GetProfile returns the stored profile, possibly empty
func (s *FirestoreStore) GetProfile(ctx context.Context, uid string) (models.UserProfile, error) {
	doc, err := s.getOrCreateUser(ctx, uid)
	if err != nil {
		return models.UserProfile{}, err
	}
	return doc.Profile, nil
}

// UpdateProfile sets each profile field, deleting the ones that are nil
func (s *FirestoreStore) UpdateProfile(ctx context.Context, uid string, profile models.UserProfile) error {
	if _, err := s.getOrCreateUser(ctx, uid); err != nil {
		return err
	}

	fields := profile.Fields()
	names := make([]string, 0, len(fields))
	for name := range fields {
		names = append(names, name)
	}
	sort.Strings(names)

	updates := make([]firestore.Update, 0, len(names))
	for _, name := range names {
		var value interface{} = firestore.Delete
		if v := fields[name]; v != nil {
			value = *v
		}
		updates = append(updates, firestore.Update{Path: "profile." + name, Value: value})
	}

	if _, err := s.userRef(uid).Update(ctx, updates); err != nil {
		return mapError(err, "firestore UpdateProfile")
	}
	return nil
}

// GetChatHistory returns the stored conversation
func (s *FirestoreStore) GetChatHistory(ctx context.Context, uid string) ([]models.ChatMessage, error) {
	doc, err := s.getOrCreateUser(ctx, uid)
	if err != nil {
		return nil, err
	}
	return doc.ChatHistory, nil
}

// SaveChatHistory overwrites the chatHistory field
func (s *FirestoreStore) SaveChatHistory(ctx context.Context, uid string, messages []models.ChatMessage) error {
	if err := checkUID(uid); err != nil {
		return err
	}
	if messages == nil {
		messages = []models.ChatMessage{}
	}

	data := map[string]interface{}{"chatHistory": messages}
	if _, err := s.userRef(uid).Set(ctx, data, firestore.MergeAll); err != nil {
		return mapError(err, "firestore SaveChatHistory")
	}
	return nil
}

// ClearChatHistory sets chatHistory to an empty array
func (s *FirestoreStore) ClearChatHistory(ctx context.Context, uid string) error {
	return s.SaveChatHistory(ctx, uid, []models.ChatMessage{})
}

// Close closes the underlying client
func (s *FirestoreStore) Close() error {
	return s.client.Close()
}
