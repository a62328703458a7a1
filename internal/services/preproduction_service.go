// internal/services/preproduction_service.go
package services

import (
	"fmt"
	"time"

	apperrors "github.com/greenlit-app/greenlit/internal/errors"
	"github.com/greenlit-app/greenlit/internal/models"
	"github.com/greenlit-app/greenlit/internal/storage"
)

// PreProductionService owns the per-episode and per-arc documents that
// accumulate stage artifacts. Documents are created empty on first visit and
// only ever overwritten, never deleted.
type PreProductionService struct {
	store *storage.DocumentStore
}

func NewPreProductionService(store *storage.DocumentStore) *PreProductionService {
	return &PreProductionService{store: store}
}

func preproductionCollection(storyBibleID string) string {
	return fmt.Sprintf("story_bibles/%s/preproduction", storyBibleID)
}

// stateRank orders document states so re-saving an earlier stage never
// regresses the furthest state reached.
var stateRank = map[models.DocumentState]int{
	models.StateNotStarted:      0,
	models.StateScriptReady:     1,
	models.StateBreakdownReady:  2,
	models.StateStoryboardReady: 3,
	models.StatePropsReady:      4,
	models.StateLocationsReady:  5,
	models.StateCastingReady:    6,
	models.StateMarketingReady:  7,
	models.StateComplete:        8,
}

// GetOrCreate returns the document, creating an empty one on first visit.
func (s *PreProductionService) GetOrCreate(storyBibleID, docID string) (*models.PreProductionDocument, error) {
	if storyBibleID == "" || docID == "" {
		return nil, apperrors.NewValidationError("storyBibleId and docId are required")
	}

	var doc models.PreProductionDocument
	err := s.store.LoadDoc(preproductionCollection(storyBibleID), docID, &doc)
	if err == nil {
		return &doc, nil
	}
	if !storage.IsNotFound(err) {
		return nil, apperrors.Wrap(err, "failed to load pre-production document", apperrors.ErrorTypeUpstream)
	}

	now := time.Now()
	doc = models.PreProductionDocument{
		ID:           docID,
		StoryBibleID: storyBibleID,
		State:        models.StateNotStarted,
		Version:      1,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := s.store.SaveDoc(preproductionCollection(storyBibleID), docID, &doc); err != nil {
		return nil, apperrors.Wrap(err, "failed to create pre-production document", apperrors.ErrorTypeUpstream)
	}
	return &doc, nil
}

// Get loads an existing document without creating one.
func (s *PreProductionService) Get(storyBibleID, docID string) (*models.PreProductionDocument, error) {
	var doc models.PreProductionDocument
	err := s.store.LoadDoc(preproductionCollection(storyBibleID), docID, &doc)
	if err != nil {
		if storage.IsNotFound(err) {
			return nil, apperrors.NewNotFoundError(fmt.Sprintf("pre-production document %q not found", docID))
		}
		return nil, apperrors.Wrap(err, "failed to load pre-production document", apperrors.ErrorTypeUpstream)
	}
	return &doc, nil
}

// SaveStage stores one stage artifact on the document and advances the state
// machine. A stage may be saved when its prerequisite artifact is present;
// re-saving a completed stage is allowed and last write wins. The state never
// regresses below the furthest point reached.
func (s *PreProductionService) SaveStage(storyBibleID, docID string, stage models.PipelineStage, artifact interface{}) (*models.PreProductionDocument, error) {
	doc, err := s.GetOrCreate(storyBibleID, docID)
	if err != nil {
		return nil, err
	}

	if prereq, ok := previousStage(stage); ok && !doc.HasArtifact(prereq) {
		return nil, apperrors.NewMissingPrerequisite(
			fmt.Sprintf("cannot save %s before %s is complete", stage, prereq),
			fmt.Sprintf("generate and save the %s stage first", prereq))
	}

	if err := setArtifact(doc, stage, artifact); err != nil {
		return nil, err
	}

	if stateRank[models.StateAfter(stage)] > stateRank[doc.State] {
		doc.State = models.StateAfter(stage)
	}
	doc.Version++
	doc.UpdatedAt = time.Now()

	if err := s.store.SaveDoc(preproductionCollection(storyBibleID), docID, doc); err != nil {
		return nil, apperrors.Wrap(err, "failed to save pre-production document", apperrors.ErrorTypeUpstream)
	}
	return doc, nil
}

// previousStage returns the stage whose artifact gates saving this one. The
// script stage has no upstream artifact.
func previousStage(stage models.PipelineStage) (models.PipelineStage, bool) {
	for i, s := range models.PipelineOrder {
		if s == stage {
			if i == 0 {
				return "", false
			}
			return models.PipelineOrder[i-1], true
		}
	}
	return "", false
}

func setArtifact(doc *models.PreProductionDocument, stage models.PipelineStage, artifact interface{}) error {
	switch stage {
	case models.StageScript:
		if a, ok := artifact.(*models.ScriptArtifact); ok {
			doc.Scripts = a
			return nil
		}
	case models.StageBreakdown:
		if a, ok := artifact.(*models.BreakdownArtifact); ok {
			doc.ScriptBreakdown = a
			return nil
		}
	case models.StageStoryboard:
		if a, ok := artifact.(*models.StoryboardArtifact); ok {
			doc.Storyboards = a
			return nil
		}
	case models.StageProps:
		if a, ok := artifact.(*models.PropsArtifact); ok {
			doc.Props = a
			return nil
		}
	case models.StageLocations:
		if a, ok := artifact.(*models.LocationsArtifact); ok {
			doc.Locations = a
			return nil
		}
	case models.StageCasting:
		if a, ok := artifact.(*models.CastingArtifact); ok {
			doc.Casting = a
			return nil
		}
	case models.StageMarketing:
		if a, ok := artifact.(*models.MarketingArtifact); ok {
			doc.Marketing = a
			return nil
		}
	case models.StagePostProduction:
		if a, ok := artifact.(*models.PostProductionArtifact); ok {
			doc.PostProduction = a
			return nil
		}
	default:
		return apperrors.NewValidationError(fmt.Sprintf("unknown pipeline stage %q", stage))
	}
	return apperrors.NewValidationError(fmt.Sprintf("artifact does not match stage %q", stage))
}
