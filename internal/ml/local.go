package ml

import (
	"context"
	"encoding/json"
	"fmt"
)

// LocalModel is an offline stand-in used in development and tests. It fills
// every string property of the requested schema with the request subject and
// every integer property with zero.
type LocalModel struct{}

// LocalModelFactory implements ModelFactory for local models
type LocalModelFactory struct{}

// NewLocalModelFactory creates a new local model factory
func NewLocalModelFactory() *LocalModelFactory {
	return &LocalModelFactory{}
}

// CreateModel creates a new local model instance
func (f *LocalModelFactory) CreateModel() (Model, error) {
	return &LocalModel{}, nil
}

// Load is a no-op; the local model has nothing to initialize
func (m *LocalModel) Load(ctx context.Context) error {
	return nil
}

// GenerateJSON returns a schema-shaped placeholder document
func (m *LocalModel) GenerateJSON(ctx context.Context, req Request) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	if req.Schema == nil || req.Schema.Type != TypeObject {
		return "", fmt.Errorf("local model only supports object schemas")
	}

	doc := make(map[string]any, len(req.Schema.Properties))
	for name, prop := range req.Schema.Properties {
		switch prop.Type {
		case TypeInteger:
			doc[name] = 0
		case TypeString:
			doc[name] = req.Subject
		default:
			return "", fmt.Errorf("local model does not support %s properties", prop.Type)
		}
	}

	out, err := json.Marshal(doc)
	if err != nil {
		return "", err
	}
	return string(out), nil
}

// Chat echoes the message back
func (m *LocalModel) Chat(ctx context.Context, req ChatRequest) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	return fmt.Sprintf("You said %q. Tell me more about what you ate today.", req.Message), nil
}
