// Package llm provides structured-output clients for the supported language model providers.
package llm

import (
	"fmt"
	"time"
)

// ModelTier represents the complexity/capability level of a model
type ModelTier string

const (
	// TierLite is for cheap, fast generations
	TierLite ModelTier = "lite"
	// TierStandard is the default tier for roadmap generation
	TierStandard ModelTier = "standard"
	// TierAdvanced is for the most capable model a provider offers
	TierAdvanced ModelTier = "advanced"
)

// Provider represents an LLM provider
type Provider string

// Provider constants define supported LLM providers
const (
	ProviderGemini Provider = "gemini"
	ProviderOpenAI Provider = "openai"
)

// ParseProvider maps a config string to a Provider
func ParseProvider(s string) (Provider, error) {
	switch Provider(s) {
	case ProviderGemini, ProviderOpenAI:
		return Provider(s), nil
	case "":
		return ProviderOpenAI, nil
	}
	return "", fmt.Errorf("unsupported llm provider %q", s)
}

// DefaultOpenAIBaseURL is the Chat Completions API root
const DefaultOpenAIBaseURL = "https://api.openai.com/v1"

// DefaultTimeout bounds a single structured generation
const DefaultTimeout = 120 * time.Second

// Config holds the model configuration for a provider
type Config struct {
	Provider    Provider
	Models      map[ModelTier]string
	Temperature float32
	// BaseURL overrides the provider endpoint. Only used by OpenAI.
	BaseURL string
	Timeout time.Duration
}

// DefaultConfig returns the default configuration for a provider
func DefaultConfig(provider Provider) *Config {
	if provider == ProviderGemini {
		return DefaultGeminiConfig()
	}
	return DefaultOpenAIConfig()
}

// DefaultGeminiConfig returns the default Gemini configuration
func DefaultGeminiConfig() *Config {
	return &Config{
		Provider: ProviderGemini,
		Models: map[ModelTier]string{
			TierLite:     "gemini-2.5-flash-lite",
			TierStandard: "gemini-2.5-flash",
			TierAdvanced: "gemini-2.5-pro",
		},
		Temperature: 0.2,
		Timeout:     DefaultTimeout,
	}
}

// DefaultOpenAIConfig returns the default OpenAI configuration
func DefaultOpenAIConfig() *Config {
	return &Config{
		Provider: ProviderOpenAI,
		Models: map[ModelTier]string{
			TierLite:     "gpt-4o-mini",
			TierStandard: "gpt-4o-mini",
			TierAdvanced: "gpt-4o",
		},
		Temperature: 0.2,
		BaseURL:     DefaultOpenAIBaseURL,
		Timeout:     DefaultTimeout,
	}
}

// GetModel returns the model name for a given tier
func (c *Config) GetModel(tier ModelTier) string {
	if model, ok := c.Models[tier]; ok {
		return model
	}
	// Fallback chain: try standard, then lite
	if model, ok := c.Models[TierStandard]; ok {
		return model
	}
	if model, ok := c.Models[TierLite]; ok {
		return model
	}
	return ""
}

// WithModel returns a new Config with a specific model for a tier
func (c *Config) WithModel(tier ModelTier, model string) *Config {
	newConfig := *c
	newConfig.Models = make(map[ModelTier]string, len(c.Models)+1)
	for k, v := range c.Models {
		newConfig.Models[k] = v
	}
	newConfig.Models[tier] = model
	return &newConfig
}
