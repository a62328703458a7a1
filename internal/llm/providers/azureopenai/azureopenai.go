// internal/llm/providers/azureopenai/azureopenai.go
package azureopenai

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/greenlit-app/greenlit/internal/llm"
)

const defaultAPIVersion = "2024-02-01"

func init() {
	llm.Register("azureopenai", func() llm.Provider {
		return &Provider{
			models: []string{
				"gpt-4o",
				"gpt-4o-mini",
			},
			apiVersion: defaultAPIVersion,
		}
	})
}

// Provider calls the Azure OpenAI chat completions API. Azure routes by
// deployment name rather than model name, so "deployment" is required
// alongside the endpoint and key.
type Provider struct {
	apiKey     string
	endpoint   string
	deployment string
	apiVersion string
	client     *http.Client
	models     []string
}

func (p *Provider) Initialize(config map[string]string) error {
	apiKey, exists := config["api_key"]
	if !exists || apiKey == "" {
		return errors.New("azure openai api key not provided")
	}
	endpoint := strings.TrimSuffix(config["endpoint"], "/")
	if endpoint == "" {
		return errors.New("azure openai endpoint not provided")
	}
	deployment := config["deployment"]
	if deployment == "" {
		return errors.New("azure openai deployment not provided")
	}

	p.apiKey = apiKey
	p.endpoint = endpoint
	p.deployment = deployment
	p.client = &http.Client{}

	if version, exists := config["api_version"]; exists && version != "" {
		p.apiVersion = version
	}

	return nil
}

func (p *Provider) GetName() string {
	return "azure openai"
}

func (p *Provider) GetSupportedModels() []string {
	return p.models
}

func (p *Provider) CompleteText(ctx context.Context, req llm.CompletionRequest) (*llm.CompletionResponse, error) {
	messages := make([]map[string]string, 0, 2)
	if req.SystemPrompt != "" {
		messages = append(messages, map[string]string{"role": "system", "content": req.SystemPrompt})
	}
	messages = append(messages, map[string]string{"role": "user", "content": req.Prompt})

	requestBody := map[string]interface{}{
		"messages":    messages,
		"temperature": req.Temperature,
	}
	if req.MaxTokens > 0 {
		requestBody["max_tokens"] = req.MaxTokens
	}
	if req.TopP > 0 {
		requestBody["top_p"] = req.TopP
	}
	if len(req.StopWords) > 0 {
		requestBody["stop"] = req.StopWords
	}

	jsonData, err := json.Marshal(requestBody)
	if err != nil {
		return nil, err
	}

	apiURL := fmt.Sprintf("%s/openai/deployments/%s/chat/completions?api-version=%s",
		p.endpoint, p.deployment, p.apiVersion)

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, apiURL, bytes.NewBuffer(jsonData))
	if err != nil {
		return nil, err
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("api-key", p.apiKey)

	httpResp, err := p.client.Do(httpReq)
	if err != nil {
		return nil, err
	}
	defer httpResp.Body.Close()

	if httpResp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(httpResp.Body)
		var errorResp struct {
			Error struct {
				Message string `json:"message"`
			} `json:"error"`
		}
		if err := json.Unmarshal(body, &errorResp); err == nil && errorResp.Error.Message != "" {
			return nil, fmt.Errorf("azure openai API error (%d): %s", httpResp.StatusCode, errorResp.Error.Message)
		}
		return nil, fmt.Errorf("azure openai API error (%d): %s", httpResp.StatusCode, string(body))
	}

	var response struct {
		Choices []struct {
			Message struct {
				Content string `json:"content"`
			} `json:"message"`
			FinishReason string `json:"finish_reason"`
		} `json:"choices"`
		Usage struct {
			PromptTokens     int `json:"prompt_tokens"`
			CompletionTokens int `json:"completion_tokens"`
			TotalTokens      int `json:"total_tokens"`
		} `json:"usage"`
		Model string `json:"model"`
	}

	if err := json.NewDecoder(httpResp.Body).Decode(&response); err != nil {
		return nil, err
	}

	if len(response.Choices) == 0 {
		return nil, errors.New("azure openai returned no choices")
	}

	return &llm.CompletionResponse{
		Text:         response.Choices[0].Message.Content,
		FinishReason: response.Choices[0].FinishReason,
		TokensUsed:   response.Usage.TotalTokens,
		PromptTokens: response.Usage.PromptTokens,
		OutputTokens: response.Usage.CompletionTokens,
		ModelName:    response.Model,
		ProviderName: p.GetName(),
	}, nil
}
