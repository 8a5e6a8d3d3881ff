package chat

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/franckalain/fooddiary/internal/database"
	"github.com/franckalain/fooddiary/internal/ml"
	"github.com/franckalain/fooddiary/internal/models"
	"github.com/franckalain/fooddiary/internal/observability"
)

const systemInstruction = "You are a friendly and motivating nutrition assistant. " +
	"Keep your answers concise, informative and always encouraging. " +
	"Use markdown for lists and bold text when appropriate."

// ErrEmptyMessage is returned when the message has no text
var ErrEmptyMessage = errors.New("message is empty")

// Service runs the nutrition assistant conversation of each user. The whole
// history lives in the user store and is replayed to the model on every turn.
type Service struct {
	store database.UserStore
	model ml.Model
}

// NewService creates a chat service
func NewService(store database.UserStore, model ml.Model) *Service {
	return &Service{store: store, model: model}
}

// History returns the stored conversation of uid
func (s *Service) History(ctx context.Context, uid string) ([]models.ChatMessage, error) {
	history, err := s.store.GetChatHistory(ctx, uid)
	if err != nil {
		return nil, fmt.Errorf("load chat history: %w", err)
	}
	return history, nil
}

// Send asks the assistant to answer text and stores the exchange. When the
// model fails nothing is stored. It returns the updated history.
func (s *Service) Send(ctx context.Context, uid, text string) ([]models.ChatMessage, error) {
	if strings.TrimSpace(text) == "" {
		return nil, ErrEmptyMessage
	}
	logger := observability.LoggerFromContext(ctx)

	history, err := s.History(ctx, uid)
	if err != nil {
		return nil, err
	}

	reply, err := s.model.Chat(ctx, ml.ChatRequest{
		System:  systemInstruction,
		History: history,
		Message: text,
	})
	if err != nil {
		logger.Error("assistant failed to answer", "error", err)
		return nil, fmt.Errorf("assistant could not answer: %w", err)
	}

	updated := make([]models.ChatMessage, 0, len(history)+2)
	updated = append(updated, history...)
	updated = append(updated,
		models.ChatMessage{Role: models.RoleUser, Text: text},
		models.ChatMessage{Role: models.RoleModel, Text: reply},
	)

	if err := s.store.SaveChatHistory(ctx, uid, updated); err != nil {
		return nil, fmt.Errorf("save chat history: %w", err)
	}

	logger.Debug("chat turn stored", "messages", len(updated))
	return updated, nil
}

// Clear removes the whole conversation
func (s *Service) Clear(ctx context.Context, uid string) error {
	if err := s.store.ClearChatHistory(ctx, uid); err != nil {
		return fmt.Errorf("clear chat history: %w", err)
	}
	return nil
}
