// internal/services/stage_service.go
package services

import (
	"context"
	"fmt"

	apperrors "github.com/greenlit-app/greenlit/internal/errors"
	"github.com/greenlit-app/greenlit/internal/models"
)

// StageService runs a single generation stage: hydrate the context from
// storage, check the gate, build the prompt, invoke the model and return the
// typed artifact. Persistence is the caller's concern; the artifact comes
// back in the response and is saved through the save-stage endpoint.
type StageService struct {
	aggregator *ContextAggregator
	generator  *GenerationService
}

func NewStageService(aggregator *ContextAggregator, generator *GenerationService) *StageService {
	return &StageService{aggregator: aggregator, generator: generator}
}

// RunStage executes one pipeline stage against the given context. The
// returned value is the stage's artifact type.
func (s *StageService) RunStage(ctx context.Context, stage models.PipelineStage, sc *StageContext) (interface{}, error) {
	if err := s.aggregator.Hydrate(sc); err != nil {
		return nil, err
	}
	if err := CheckStageGate(stage, sc); err != nil {
		return nil, err
	}

	switch stage {
	case models.StageScript:
		var artifact models.ScriptArtifact
		if err := s.generator.CreateStructuredCompletion(ctx, buildScriptPrompt(sc), pipelineSystemPrompt, &artifact); err != nil {
			return nil, err
		}
		return &artifact, nil
	case models.StageBreakdown:
		var artifact models.BreakdownArtifact
		if err := s.generator.CreateStructuredCompletion(ctx, buildBreakdownPrompt(sc), pipelineSystemPrompt, &artifact); err != nil {
			return nil, err
		}
		return &artifact, nil
	case models.StageStoryboard:
		var artifact models.StoryboardArtifact
		if err := s.generator.CreateStructuredCompletion(ctx, buildStoryboardPrompt(sc), pipelineSystemPrompt, &artifact); err != nil {
			return nil, err
		}
		return &artifact, nil
	case models.StageProps:
		var artifact models.PropsArtifact
		if err := s.generator.CreateStructuredCompletion(ctx, buildPropsPrompt(sc), pipelineSystemPrompt, &artifact); err != nil {
			return nil, err
		}
		return &artifact, nil
	case models.StageLocations:
		var artifact models.LocationsArtifact
		if err := s.generator.CreateStructuredCompletion(ctx, buildLocationsPrompt(sc), pipelineSystemPrompt, &artifact); err != nil {
			return nil, err
		}
		return &artifact, nil
	case models.StageCasting:
		var artifact models.CastingArtifact
		if err := s.generator.CreateStructuredCompletion(ctx, buildCastingPrompt(sc), pipelineSystemPrompt, &artifact); err != nil {
			return nil, err
		}
		return &artifact, nil
	case models.StageMarketing:
		var artifact models.MarketingArtifact
		if err := s.generator.CreateStructuredCompletion(ctx, buildMarketingPrompt(sc), pipelineSystemPrompt, &artifact); err != nil {
			return nil, err
		}
		return &artifact, nil
	case models.StagePostProduction:
		var artifact models.PostProductionArtifact
		if err := s.generator.CreateStructuredCompletion(ctx, buildPostProductionPrompt(sc), pipelineSystemPrompt, &artifact); err != nil {
			return nil, err
		}
		return &artifact, nil
	}
	return nil, apperrors.NewValidationError(fmt.Sprintf("unknown pipeline stage %q", stage))
}

// ApplyStageResult folds the artifact produced by a stage back into the
// context so the next stage of a pipeline run sees it as upstream input.
func ApplyStageResult(sc *StageContext, stage models.PipelineStage, artifact interface{}) {
	switch stage {
	case models.StageScript:
		if a, ok := artifact.(*models.ScriptArtifact); ok {
			sc.Script = a
		}
	case models.StageBreakdown:
		if a, ok := artifact.(*models.BreakdownArtifact); ok {
			sc.Breakdown = a
		}
	case models.StageStoryboard:
		if a, ok := artifact.(*models.StoryboardArtifact); ok {
			sc.Storyboard = a
		}
	case models.StageProps:
		if a, ok := artifact.(*models.PropsArtifact); ok {
			sc.Props = a
		}
	case models.StageLocations:
		if a, ok := artifact.(*models.LocationsArtifact); ok {
			sc.Locations = a
		}
	case models.StageCasting:
		if a, ok := artifact.(*models.CastingArtifact); ok {
			sc.Casting = a
		}
	case models.StageMarketing:
		if a, ok := artifact.(*models.MarketingArtifact); ok {
			sc.Marketing = a
		}
	}
}
