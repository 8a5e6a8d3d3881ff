package ml

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/franckalain/fooddiary/internal/config"
	"github.com/franckalain/fooddiary/internal/models"
)

// Model represents a generative model that can answer with structured data
// and hold a conversation
type Model interface {
	// Load initializes the model with its configuration
	Load(ctx context.Context) error
	// GenerateJSON asks for a response matching req.Schema and returns the raw JSON text
	GenerateJSON(ctx context.Context, req Request) (string, error)
	// Chat continues a conversation and returns the model's reply
	Chat(ctx context.Context, req ChatRequest) (string, error)
}

// ModelFactory creates a new model instance based on configuration
type ModelFactory interface {
	// CreateModel creates a new model instance
	CreateModel() (Model, error)
}

// Request is one structured generation call
type Request struct {
	System  string
	Prompt  string
	Subject string // the user text the prompt is about
	Schema  *Schema
	Sampling
}

// Sampling holds the optional sampling parameters; nil leaves the backend default
type Sampling struct {
	Temperature *float32
	TopK        *int32
	Seed        *int32
}

// ChatRequest is one turn of a conversation
type ChatRequest struct {
	System  string
	History []models.ChatMessage
	Message string
}

// SchemaType is the type of a schema node
type SchemaType string

const (
	TypeObject  SchemaType = "object"
	TypeString  SchemaType = "string"
	TypeInteger SchemaType = "integer"
)

// Schema is a backend-neutral description of the expected JSON output
type Schema struct {
	Type        SchemaType
	Description string
	Properties  map[string]*Schema
	Required    []string
}

// JSONSchema renders the schema as a JSON Schema document
func (s *Schema) JSONSchema() (json.RawMessage, error) {
	return json.Marshal(s.jsonSchemaNode())
}

func (s *Schema) jsonSchemaNode() map[string]any {
	node := map[string]any{"type": string(s.Type)}
	if s.Description != "" {
		node["description"] = s.Description
	}
	if len(s.Properties) > 0 {
		props := make(map[string]any, len(s.Properties))
		for name, prop := range s.Properties {
			props[name] = prop.jsonSchemaNode()
		}
		node["properties"] = props
	}
	if len(s.Required) > 0 {
		node["required"] = s.Required
	}
	return node
}

// Ptr returns a pointer to v
func Ptr[T any](v T) *T {
	return &v
}

// ExtractJSON strips the markdown code fence some models wrap JSON output in
func ExtractJSON(text string) string {
	text = strings.TrimSpace(text)
	if !strings.HasPrefix(text, "```") {
		return text
	}
	text = strings.TrimPrefix(text, "```json")
	text = strings.TrimPrefix(text, "```")
	text = strings.TrimSuffix(text, "```")
	return strings.TrimSpace(text)
}

// NewModel creates a new model instance based on the configured model type
func NewModel(cfg config.MLConfig) (Model, error) {
	var factory ModelFactory

	switch cfg.Type {
	case "google":
		c := GoogleConfig{ModelName: cfg.ModelName}
		c.ProjectID = cfg.Google.ProjectID
		c.Location = cfg.Google.Location
		c.CredentialsFile = cfg.Google.CredentialsFile
		if err := c.Load(); err != nil {
			return nil, fmt.Errorf("failed to load Google config: %w", err)
		}
		factory = NewGoogleModelFactory(c)
	case "gemini":
		c := GeminiConfig{
			ModelName: cfg.ModelName,
			APIKey:    cfg.Gemini.APIKey,
			Backend:   cfg.Gemini.Backend,
			ProjectID: cfg.Google.ProjectID,
			Location:  cfg.Google.Location,
		}
		if err := c.Load(); err != nil {
			return nil, fmt.Errorf("failed to load Gemini config: %w", err)
		}
		factory = NewGeminiModelFactory(c)
	case "ollama":
		c := OllamaConfig{URL: cfg.Ollama.URL, ModelName: cfg.ModelName}
		if err := c.Load(); err != nil {
			return nil, fmt.Errorf("failed to load Ollama config: %w", err)
		}
		factory = NewOllamaModelFactory(c)
	case "local":
		factory = NewLocalModelFactory()
	default:
		return nil, fmt.Errorf("unsupported model type: %s", cfg.Type)
	}
	return factory.CreateModel()
}
