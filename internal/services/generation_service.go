// internal/services/generation_service.go
package services

import (
	"context"
	"crypto/md5"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	apperrors "github.com/greenlit-app/greenlit/internal/errors"
	"github.com/greenlit-app/greenlit/internal/llm"
	"github.com/greenlit-app/greenlit/internal/utils"
)

// GenerationService is the single entry point for model calls: it builds the
// structured-output system prompt, invokes the configured provider, and
// coerces the response into the caller's typed artifact. A prompt-keyed
// cache avoids duplicate calls within one process.
type GenerationService struct {
	providerMutex sync.RWMutex
	provider      llm.Provider
	providerName  string
	readyState    string
	cache         *completionCache
}

type completionCache struct {
	entries    map[string]*completionCacheEntry
	mutex      sync.RWMutex
	expiration time.Duration
}

type completionCacheEntry struct {
	response  []byte
	createdAt time.Time
}

// NewGenerationService builds a service around the named provider. A
// configuration problem produces a not-ready service rather than an error:
// the missing key is reported at first invocation, not at boot.
func NewGenerationService(providerName string, providerConfig map[string]string) *GenerationService {
	service := &GenerationService{
		readyState: "uninitialized",
		cache: &completionCache{
			entries:    make(map[string]*completionCacheEntry),
			expiration: 30 * time.Minute,
		},
	}

	provider, err := llm.GetProvider(providerName, providerConfig)
	if err != nil {
		service.readyState = fmt.Sprintf("provider %q unavailable: %v", providerName, err)
		return service
	}

	service.provider = provider
	service.providerName = providerName
	service.readyState = "ready"
	return service
}

// NewGenerationServiceWithProvider wires an explicit provider. Used by tests
// and by callers that manage provider lifecycle themselves.
func NewGenerationServiceWithProvider(provider llm.Provider) *GenerationService {
	return &GenerationService{
		provider:     provider,
		providerName: provider.GetName(),
		readyState:   "ready",
		cache: &completionCache{
			entries:    make(map[string]*completionCacheEntry),
			expiration: 30 * time.Minute,
		},
	}
}

// IsReady reports whether a provider is configured.
func (s *GenerationService) IsReady() bool {
	s.providerMutex.RLock()
	defer s.providerMutex.RUnlock()
	return s.provider != nil
}

// ReadyState describes why the service is or is not ready.
func (s *GenerationService) ReadyState() string {
	s.providerMutex.RLock()
	defer s.providerMutex.RUnlock()
	return s.readyState
}

// ProviderName returns the active provider's registry name.
func (s *GenerationService) ProviderName() string {
	s.providerMutex.RLock()
	defer s.providerMutex.RUnlock()
	return s.providerName
}

// CreateStructuredCompletion sends prompt/systemPrompt to the provider and
// unmarshals the JSON response into out. Provider failures surface as
// upstream errors; malformed responses as parse failures. The distinction is
// part of the API contract.
func (s *GenerationService) CreateStructuredCompletion(ctx context.Context, prompt, systemPrompt string, out interface{}) error {
	s.providerMutex.RLock()
	provider := s.provider
	readyState := s.readyState
	s.providerMutex.RUnlock()

	if provider == nil {
		return apperrors.NewUpstreamError(
			fmt.Sprintf("generation provider is not configured: %s", readyState), nil)
	}

	cacheKey := s.cacheKey(prompt, systemPrompt)
	if s.cache.load(cacheKey, out) {
		utils.GetLogger().Debug("completion cache hit", map[string]interface{}{"key": cacheKey[:8]})
		return nil
	}

	structuredSystemPrompt := systemPrompt
	if structuredSystemPrompt != "" {
		structuredSystemPrompt += "\n\n"
	}
	structuredSystemPrompt += "Return your response as valid JSON matching the requested shape, with no explanations or preamble."

	resp, err := provider.CompleteText(ctx, llm.CompletionRequest{
		Prompt:       prompt,
		SystemPrompt: structuredSystemPrompt,
		Temperature:  0.3,
	})
	if err != nil {
		return apperrors.NewUpstreamError("generation request failed", err)
	}

	if err := llm.CoerceJSON(resp.Text, out); err != nil {
		return err
	}

	s.cache.store(cacheKey, out)
	return nil
}

func (s *GenerationService) cacheKey(prompt, systemPrompt string) string {
	s.providerMutex.RLock()
	providerName := s.providerName
	s.providerMutex.RUnlock()

	h := md5.New()
	fmt.Fprintf(h, "%s:::%s:::%s", prompt, systemPrompt, providerName)
	return fmt.Sprintf("%x", h.Sum(nil))
}

func (c *completionCache) load(key string, out interface{}) bool {
	c.mutex.RLock()
	entry, exists := c.entries[key]
	c.mutex.RUnlock()

	if !exists || time.Since(entry.createdAt) > c.expiration {
		return false
	}
	return json.Unmarshal(entry.response, out) == nil
}

func (c *completionCache) store(key string, response interface{}) {
	data, err := json.Marshal(response)
	if err != nil {
		return
	}

	c.mutex.Lock()
	defer c.mutex.Unlock()

	c.entries[key] = &completionCacheEntry{response: data, createdAt: time.Now()}

	// Cap growth; drop the oldest entries when over.
	if len(c.entries) > 1000 {
		var oldestKey string
		var oldestTime time.Time
		for k, v := range c.entries {
			if oldestKey == "" || v.createdAt.Before(oldestTime) {
				oldestKey = k
				oldestTime = v.createdAt
			}
		}
		delete(c.entries, oldestKey)
	}
}
