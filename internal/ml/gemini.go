package ml

import (
	"context"
	"fmt"
	"strings"

	"google.golang.org/genai"

	"github.com/franckalain/fooddiary/internal/models"
)

// GeminiModel implements the Model interface on top of the Google Gen AI SDK
type GeminiModel struct {
	config GeminiConfig
	client *genai.Client
}

// GeminiModelFactory implements ModelFactory for Gemini models
type GeminiModelFactory struct {
	config GeminiConfig
}

// NewGeminiModelFactory creates a new Gemini model factory
func NewGeminiModelFactory(config GeminiConfig) *GeminiModelFactory {
	return &GeminiModelFactory{config: config}
}

// CreateModel creates a new Gemini model instance
func (f *GeminiModelFactory) CreateModel() (Model, error) {
	return &GeminiModel{config: f.config}, nil
}

// Load creates the Gen AI client for the configured backend
func (m *GeminiModel) Load(ctx context.Context) error {
	cc := &genai.ClientConfig{
		APIKey:  m.config.APIKey,
		Backend: genai.BackendGeminiAPI,
	}
	if strings.EqualFold(m.config.Backend, "vertex") {
		cc = &genai.ClientConfig{
			Project:  m.config.ProjectID,
			Location: m.config.Location,
			Backend:  genai.BackendVertexAI,
		}
	}

	client, err := genai.NewClient(ctx, cc)
	if err != nil {
		return fmt.Errorf("creating gen ai client: %w", err)
	}
	m.client = client
	return nil
}

// GenerateJSON asks Gemini for a JSON response matching the request schema
func (m *GeminiModel) GenerateJSON(ctx context.Context, req Request) (string, error) {
	if m.client == nil {
		return "", fmt.Errorf("model not loaded")
	}

	cfg := &genai.GenerateContentConfig{
		ResponseMIMEType: "application/json",
		Temperature:      req.Temperature,
		Seed:             req.Seed,
	}
	if req.System != "" {
		cfg.SystemInstruction = genai.NewContentFromText(req.System, genai.RoleUser)
	}
	if req.TopK != nil {
		cfg.TopK = genai.Ptr(float32(*req.TopK))
	}
	if req.Schema != nil {
		cfg.ResponseSchema = toGenAISchema(req.Schema)
	}

	res, err := m.client.Models.GenerateContent(ctx, m.config.ModelName, genai.Text(req.Prompt), cfg)
	if err != nil {
		return "", fmt.Errorf("gemini generate content: %w", err)
	}

	text := res.Text()
	if text == "" {
		return "", fmt.Errorf("gemini returned empty text")
	}
	return ExtractJSON(text), nil
}

// Chat creates a chat seeded with the stored history and sends the new message
func (m *GeminiModel) Chat(ctx context.Context, req ChatRequest) (string, error) {
	if m.client == nil {
		return "", fmt.Errorf("model not loaded")
	}

	var cfg *genai.GenerateContentConfig
	if req.System != "" {
		cfg = &genai.GenerateContentConfig{
			SystemInstruction: genai.NewContentFromText(req.System, genai.RoleUser),
		}
	}

	history := make([]*genai.Content, 0, len(req.History))
	for _, msg := range req.History {
		role := genai.Role(genai.RoleUser)
		if msg.Role == models.RoleModel {
			role = genai.RoleModel
		}
		history = append(history, genai.NewContentFromText(msg.Text, role))
	}

	chat, err := m.client.Chats.Create(ctx, m.config.ModelName, cfg, history)
	if err != nil {
		return "", fmt.Errorf("gemini create chat: %w", err)
	}

	res, err := chat.SendMessage(ctx, genai.Part{Text: req.Message})
	if err != nil {
		return "", fmt.Errorf("gemini send message: %w", err)
	}

	text := res.Text()
	if text == "" {
		return "", fmt.Errorf("gemini returned empty text")
	}
	return text, nil
}

func toGenAISchema(s *Schema) *genai.Schema {
	out := &genai.Schema{
		Description: s.Description,
		Required:    s.Required,
	}
	switch s.Type {
	case TypeObject:
		out.Type = genai.TypeObject
	case TypeInteger:
		out.Type = genai.TypeInteger
	default:
		out.Type = genai.TypeString
	}
	if len(s.Properties) > 0 {
		out.Properties = make(map[string]*genai.Schema, len(s.Properties))
		for name, prop := range s.Properties {
			out.Properties[name] = toGenAISchema(prop)
		}
	}
	return out
}
