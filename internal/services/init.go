// internal/services/init.go
package services

import (
	"fmt"

	"github.com/greenlit-app/greenlit/internal/auth"
	"github.com/greenlit-app/greenlit/internal/config"
	"github.com/greenlit-app/greenlit/internal/di"
	"github.com/greenlit-app/greenlit/internal/images"
	"github.com/greenlit-app/greenlit/internal/storage"
	"github.com/greenlit-app/greenlit/internal/utils"

	_ "github.com/greenlit-app/greenlit/internal/llm/providers/azureopenai"
	_ "github.com/greenlit-app/greenlit/internal/llm/providers/gemini"
)

// InitServices builds the service graph from configuration and registers
// every service in the global container. Handlers resolve their dependencies
// from there.
func InitServices(cfg *config.Config) (*di.Container, error) {
	container := di.GetContainer()

	store, err := storage.NewDocumentStore(cfg.DataDir)
	if err != nil {
		return nil, fmt.Errorf("init document store: %w", err)
	}
	container.Register("storage", store)

	providerName, providerConfig := cfg.ProviderConfig()
	generator := NewGenerationService(providerName, providerConfig)
	if !generator.IsReady() {
		utils.GetLogger().Warn("generation provider not ready", map[string]interface{}{
			"provider": providerName, "state": generator.ReadyState(),
		})
	}
	container.Register("generation", generator)

	imageClient, err := images.NewSearchClient(cfg.UnsplashAccessKey)
	if err != nil {
		return nil, fmt.Errorf("init image client: %w", err)
	}
	container.Register("images", imageClient)

	preproduction := NewPreProductionService(store)
	container.Register("preproduction", preproduction)

	aggregator := NewContextAggregator(preproduction)
	stages := NewStageService(aggregator, generator)
	container.Register("stages", stages)

	progress := NewProgressService()
	container.Register("progress", progress)

	pipeline := NewPipelineService(stages, progress)
	container.Register("pipeline", pipeline)

	bibles := NewStoryBibleService(store, generator, imageClient)
	container.Register("storybibles", bibles)

	shares := NewShareLinkService(store)
	container.Register("sharelinks", shares)

	container.Register("tokens", &auth.TokenConfig{Secret: []byte(cfg.SessionSecret)})

	return container, nil
}
