package ml

import (
	"fmt"
	"os"
	"strings"
)

// GoogleConfig holds configuration for the Vertex AI model
type GoogleConfig struct {
	ModelName       string
	ProjectID       string
	Location        string
	CredentialsFile string
}

// Load fills unset values from the environment and validates the result
func (c *GoogleConfig) Load() error {
	if c.ProjectID == "" {
		c.ProjectID = os.Getenv("GOOGLE_PROJECT_ID")
	}
	if c.Location == "" {
		c.Location = os.Getenv("GOOGLE_LOCATION")
	}
	if c.CredentialsFile == "" {
		c.CredentialsFile = os.Getenv("GOOGLE_CREDENTIALS_FILE")
	}
	if c.ModelName == "" {
		c.ModelName = "gemini-2.5-flash"
	}

	if c.ProjectID == "" || c.Location == "" {
		return fmt.Errorf("google project id and location must be set")
	}
	return nil
}

// GeminiConfig holds configuration for the Gemini API model
type GeminiConfig struct {
	ModelName string
	APIKey    string
	Backend   string // "gemini" (API key) or "vertex"
	ProjectID string
	Location  string
}

// Load fills unset values from the environment and validates the result
func (c *GeminiConfig) Load() error {
	if c.APIKey == "" {
		c.APIKey = os.Getenv("GEMINI_API_KEY")
	}
	if c.Backend == "" {
		c.Backend = "gemini"
	}
	if c.ModelName == "" {
		c.ModelName = "gemini-2.5-flash"
	}

	switch strings.ToLower(c.Backend) {
	case "gemini":
		if c.APIKey == "" {
			return fmt.Errorf("gemini api key must be set")
		}
	case "vertex":
		if c.ProjectID == "" || c.Location == "" {
			return fmt.Errorf("google project id and location must be set for the vertex backend")
		}
	default:
		return fmt.Errorf("unsupported gemini backend: %s", c.Backend)
	}
	return nil
}

// OllamaConfig holds configuration for a local Ollama server
type OllamaConfig struct {
	URL       string
	ModelName string
}

// Load fills unset values from the environment and defaults
func (c *OllamaConfig) Load() error {
	if c.URL == "" {
		c.URL = os.Getenv("OLLAMA_HOST")
	}
	if c.URL == "" {
		c.URL = DefaultOllamaURL
	}
	if c.ModelName == "" || strings.HasPrefix(c.ModelName, "gemini") {
		c.ModelName = DefaultOllamaModel
	}
	return nil
}
