// internal/services/generation_service_test.go
package services

import (
	"context"
	"errors"
	"strings"
	"testing"

	apperrors "github.com/greenlit-app/greenlit/internal/errors"
)

func TestStructuredCompletionCachesByPrompt(t *testing.T) {
	provider := &mockProvider{response: `{"value": 42}`}
	svc := NewGenerationServiceWithProvider(provider)

	var out struct {
		Value int `json:"value"`
	}
	for i := 0; i < 3; i++ {
		if err := svc.CreateStructuredCompletion(context.Background(), "same prompt", "sys", &out); err != nil {
			t.Fatalf("call %d: %v", i, err)
		}
	}
	if out.Value != 42 {
		t.Errorf("value = %d", out.Value)
	}
	if provider.callCount() != 1 {
		t.Errorf("provider calls = %d, want 1 (cache)", provider.callCount())
	}

	if err := svc.CreateStructuredCompletion(context.Background(), "different prompt", "sys", &out); err != nil {
		t.Fatalf("different prompt: %v", err)
	}
	if provider.callCount() != 2 {
		t.Errorf("provider calls = %d, want 2", provider.callCount())
	}
}

func TestStructuredCompletionFencedResponse(t *testing.T) {
	provider := &mockProvider{response: "```json\n{\"value\": 7}\n```"}
	svc := NewGenerationServiceWithProvider(provider)

	var out struct {
		Value int `json:"value"`
	}
	if err := svc.CreateStructuredCompletion(context.Background(), "p", "", &out); err != nil {
		t.Fatalf("CreateStructuredCompletion: %v", err)
	}
	if out.Value != 7 {
		t.Errorf("value = %d, want 7", out.Value)
	}
}

func TestProviderFailureIsUpstreamNotParse(t *testing.T) {
	provider := &mockProvider{err: errors.New("connection refused")}
	svc := NewGenerationServiceWithProvider(provider)

	var out map[string]interface{}
	err := svc.CreateStructuredCompletion(context.Background(), "p", "", &out)
	if apperrors.TypeOf(err) != apperrors.ErrorTypeUpstream {
		t.Fatalf("want upstream error, got %v", err)
	}
	if !strings.Contains(err.Error(), "connection refused") {
		t.Errorf("upstream message lost: %v", err)
	}
}

func TestGarbageResponseIsParseFailure(t *testing.T) {
	provider := &mockProvider{response: "I cannot produce JSON today."}
	svc := NewGenerationServiceWithProvider(provider)

	var out map[string]interface{}
	err := svc.CreateStructuredCompletion(context.Background(), "p", "", &out)
	if !apperrors.IsParseFailure(err) {
		t.Fatalf("want ParseFailure, got %v", err)
	}
}

func TestUnconfiguredProviderFailsDescriptively(t *testing.T) {
	svc := NewGenerationService("no-such-provider", nil)
	if svc.IsReady() {
		t.Fatal("service should not be ready")
	}

	var out map[string]interface{}
	err := svc.CreateStructuredCompletion(context.Background(), "p", "", &out)
	if err == nil || !strings.Contains(err.Error(), "not configured") {
		t.Fatalf("want descriptive configuration error, got %v", err)
	}
}
