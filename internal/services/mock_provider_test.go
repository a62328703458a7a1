// internal/services/mock_provider_test.go
package services

import (
	"context"
	"sync"
	"testing"

	"github.com/greenlit-app/greenlit/internal/llm"
	"github.com/greenlit-app/greenlit/internal/storage"
)

// mockProvider counts calls and returns a canned response. Tests that assert
// the gate fires before any provider call rely on the counter.
type mockProvider struct {
	mu       sync.Mutex
	calls    int
	response string
	err      error
}

func (m *mockProvider) Initialize(config map[string]string) error { return nil }
func (m *mockProvider) GetName() string                           { return "mock" }
func (m *mockProvider) GetSupportedModels() []string              { return []string{"mock-1"} }

func (m *mockProvider) CompleteText(ctx context.Context, req llm.CompletionRequest) (*llm.CompletionResponse, error) {
	m.mu.Lock()
	m.calls++
	m.mu.Unlock()

	if m.err != nil {
		return nil, m.err
	}
	return &llm.CompletionResponse{Text: m.response, ProviderName: "mock"}, nil
}

func (m *mockProvider) callCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls
}

func newTestStore(t *testing.T) *storage.DocumentStore {
	t.Helper()
	store, err := storage.NewDocumentStore(t.TempDir())
	if err != nil {
		t.Fatalf("NewDocumentStore: %v", err)
	}
	return store
}
