// internal/config/config.go
package config

import (
	"os"
	"strconv"

	"github.com/joho/godotenv"
)

// Config holds the environment-derived application configuration. Provider
// API keys are optional at startup: routes that need a missing key fail at
// first invocation with a descriptive error instead of blocking boot.
type Config struct {
	Port      string
	DataDir   string
	LogDir    string
	DebugMode bool

	// Generative model providers
	GeminiAPIKey        string
	AzureOpenAIKey      string
	AzureOpenAIEndpoint string
	AzureDeployment     string

	// Stock image provider
	UnsplashAccessKey string

	// Session token signing
	SessionSecret string

	// Default LLM provider name ("gemini" or "azureopenai")
	LLMProvider string
}

// Load reads configuration from the environment, consulting a local .env
// file when present.
func Load() (*Config, error) {
	godotenv.Load()

	cfg := &Config{
		Port:                getEnv("PORT", "8080"),
		DataDir:             getEnvPath("DATA_DIR", "data"),
		LogDir:              getEnvPath("LOG_DIR", "logs"),
		DebugMode:           getEnvBool("DEBUG_MODE", false),
		GeminiAPIKey:        getEnv("GEMINI_API_KEY", ""),
		AzureOpenAIKey:      getEnv("AZURE_OPENAI_KEY", ""),
		AzureOpenAIEndpoint: getEnv("AZURE_OPENAI_ENDPOINT", ""),
		AzureDeployment:     getEnv("AZURE_OPENAI_DEPLOYMENT", "gpt-4o"),
		UnsplashAccessKey:   getEnv("UNSPLASH_ACCESS_KEY", ""),
		SessionSecret:       getEnv("SESSION_SECRET", ""),
		LLMProvider:         getEnv("LLM_PROVIDER", "gemini"),
	}

	return cfg, nil
}

// ProviderConfig returns the config map for the selected LLM provider in the
// form the provider registry expects.
func (c *Config) ProviderConfig() (string, map[string]string) {
	switch c.LLMProvider {
	case "azureopenai":
		return "azureopenai", map[string]string{
			"api_key":    c.AzureOpenAIKey,
			"endpoint":   c.AzureOpenAIEndpoint,
			"deployment": c.AzureDeployment,
		}
	default:
		return "gemini", map[string]string{
			"api_key": c.GeminiAPIKey,
		}
	}
}

func getEnv(key, defaultValue string) string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	return value
}

func getEnvPath(key, defaultValue string) string {
	path := getEnv(key, defaultValue)
	if _, err := os.Stat(path); os.IsNotExist(err) {
		os.MkdirAll(path, 0755)
	}
	return path
}

func getEnvBool(key string, defaultValue bool) bool {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	parsed, err := strconv.ParseBool(value)
	if err != nil {
		return value == "yes"
	}
	return parsed
}
