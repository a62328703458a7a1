// internal/llm/interface.go
package llm

import (
	"context"
	"errors"
)

var ErrUnknownProvider = errors.New("unknown llm provider")

// CompletionRequest is the normalized request shared by all providers.
type CompletionRequest struct {
	Prompt       string   `json:"prompt"`
	SystemPrompt string   `json:"system_prompt,omitempty"`
	MaxTokens    int      `json:"max_tokens,omitempty"`
	Temperature  float32  `json:"temperature,omitempty"`
	TopP         float32  `json:"top_p,omitempty"`
	Model        string   `json:"model,omitempty"`
	StopWords    []string `json:"stop_words,omitempty"`
}

// CompletionResponse is the normalized response shared by all providers.
type CompletionResponse struct {
	Text         string `json:"text"`
	FinishReason string `json:"finish_reason,omitempty"`
	TokensUsed   int    `json:"tokens_used,omitempty"`
	PromptTokens int    `json:"prompt_tokens,omitempty"`
	OutputTokens int    `json:"output_tokens,omitempty"`
	ModelName    string `json:"model_name,omitempty"`
	ProviderName string `json:"provider_name,omitempty"`
}

// Provider is the contract every generative model backend implements.
type Provider interface {
	// Initialize configures the provider from a string map; a missing
	// api_key is an error so callers can fail fast at first invocation.
	Initialize(config map[string]string) error

	// GetName returns the provider's display name.
	GetName() string

	// GetSupportedModels lists the models this provider can serve.
	GetSupportedModels() []string

	// CompleteText performs a single text completion.
	CompleteText(ctx context.Context, req CompletionRequest) (*CompletionResponse, error)
}

// ProviderFactory constructs an unconfigured provider.
type ProviderFactory func() Provider

var providers = make(map[string]ProviderFactory)

// Register adds a provider factory to the registry. Called from provider
// package init functions.
func Register(name string, factory ProviderFactory) {
	providers[name] = factory
}

// GetProvider builds and initializes the named provider.
func GetProvider(name string, config map[string]string) (Provider, error) {
	factory, exists := providers[name]
	if !exists {
		return nil, ErrUnknownProvider
	}

	provider := factory()
	if err := provider.Initialize(config); err != nil {
		return nil, err
	}
	return provider, nil
}

// ListProviders returns all registered provider names.
func ListProviders() []string {
	names := make([]string, 0, len(providers))
	for name := range providers {
		names = append(names, name)
	}
	return names
}
