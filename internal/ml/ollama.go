package ml

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/ollama/ollama/api"

	"github.com/franckalain/fooddiary/internal/models"
)

const (
	// DefaultOllamaURL is the default Ollama API endpoint
	DefaultOllamaURL = "http://localhost:11434"
	// DefaultOllamaModel is used when no Ollama model is configured
	DefaultOllamaModel = "llama3.2"
)

// OllamaModel implements the Model interface against a local Ollama server
type OllamaModel struct {
	config OllamaConfig
	client *api.Client
}

// OllamaModelFactory implements ModelFactory for Ollama models
type OllamaModelFactory struct {
	config OllamaConfig
}

// NewOllamaModelFactory creates a new Ollama model factory
func NewOllamaModelFactory(config OllamaConfig) *OllamaModelFactory {
	return &OllamaModelFactory{config: config}
}

// CreateModel creates a new Ollama model instance
func (f *OllamaModelFactory) CreateModel() (Model, error) {
	return &OllamaModel{config: f.config}, nil
}

// Load connects to the server and checks that it answers
func (m *OllamaModel) Load(ctx context.Context) error {
	base, err := url.Parse(m.config.URL)
	if err != nil {
		return fmt.Errorf("invalid ollama url %q: %w", m.config.URL, err)
	}

	client := api.NewClient(base, http.DefaultClient)
	if err := client.Heartbeat(ctx); err != nil {
		return fmt.Errorf("ollama is not reachable at %s: %w", m.config.URL, err)
	}
	m.client = client
	return nil
}

// GenerateJSON uses Ollama structured outputs with the request schema as format
func (m *OllamaModel) GenerateJSON(ctx context.Context, req Request) (string, error) {
	if m.client == nil {
		return "", fmt.Errorf("model not loaded")
	}

	stream := false
	genReq := &api.GenerateRequest{
		Model:   m.config.ModelName,
		System:  req.System,
		Prompt:  req.Prompt,
		Stream:  &stream,
		Options: ollamaOptions(req.Sampling),
	}
	if req.Schema != nil {
		format, err := req.Schema.JSONSchema()
		if err != nil {
			return "", fmt.Errorf("encode schema: %w", err)
		}
		genReq.Format = format
	}

	var sb strings.Builder
	err := m.client.Generate(ctx, genReq, func(resp api.GenerateResponse) error {
		sb.WriteString(resp.Response)
		return nil
	})
	if err != nil {
		return "", fmt.Errorf("ollama generate: %w", err)
	}
	if sb.Len() == 0 {
		return "", fmt.Errorf("ollama returned empty text")
	}
	return ExtractJSON(sb.String()), nil
}

// Chat sends the whole conversation to the Ollama chat endpoint
func (m *OllamaModel) Chat(ctx context.Context, req ChatRequest) (string, error) {
	if m.client == nil {
		return "", fmt.Errorf("model not loaded")
	}

	messages := make([]api.Message, 0, len(req.History)+2)
	if req.System != "" {
		messages = append(messages, api.Message{Role: "system", Content: req.System})
	}
	for _, msg := range req.History {
		role := "user"
		if msg.Role == models.RoleModel {
			role = "assistant"
		}
		messages = append(messages, api.Message{Role: role, Content: msg.Text})
	}
	messages = append(messages, api.Message{Role: "user", Content: req.Message})

	stream := false
	var sb strings.Builder
	err := m.client.Chat(ctx, &api.ChatRequest{
		Model:    m.config.ModelName,
		Messages: messages,
		Stream:   &stream,
	}, func(resp api.ChatResponse) error {
		sb.WriteString(resp.Message.Content)
		return nil
	})
	if err != nil {
		return "", fmt.Errorf("ollama chat: %w", err)
	}
	if sb.Len() == 0 {
		return "", fmt.Errorf("ollama returned empty text")
	}
	return sb.String(), nil
}

func ollamaOptions(s Sampling) map[string]any {
	opts := map[string]any{}
	if s.Temperature != nil {
		opts["temperature"] = *s.Temperature
	}
	if s.TopK != nil {
		opts["top_k"] = *s.TopK
	}
	if s.Seed != nil {
		opts["seed"] = *s.Seed
	}
	return opts
}
