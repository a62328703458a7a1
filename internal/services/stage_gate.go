// internal/services/stage_gate.go
package services

import (
	"fmt"

	apperrors "github.com/greenlit-app/greenlit/internal/errors"
	"github.com/greenlit-app/greenlit/internal/models"
)

// stagePrerequisites declares, per stage, the upstream artifacts that must be
// present before the stage may run. The script stage needs episode material
// rather than an earlier artifact and is validated separately.
var stagePrerequisites = map[models.PipelineStage][]models.PipelineStage{
	models.StageScript:         nil,
	models.StageBreakdown:      {models.StageScript},
	models.StageStoryboard:     {models.StageBreakdown},
	models.StageProps:          {models.StageBreakdown},
	models.StageLocations:      {models.StageBreakdown},
	models.StageCasting:        {models.StageBreakdown},
	models.StageMarketing:      {models.StageScript},
	models.StagePostProduction: {models.StageBreakdown},
}

// CheckStageGate verifies the declared prerequisites of a stage against the
// hydrated context. It runs before any provider call; a rejection names the
// missing stage and tells the caller what to run first.
func CheckStageGate(stage models.PipelineStage, sc *StageContext) error {
	prereqs, known := stagePrerequisites[stage]
	if !known {
		return apperrors.NewValidationError(fmt.Sprintf("unknown pipeline stage %q", stage))
	}

	if stage == models.StageScript {
		if sc.Bible == nil && len(sc.Episodes) == 0 {
			return apperrors.NewMissingPrerequisite(
				"script generation requires story bible or episode data",
				"provide storyBibleData or episode synopses in the request")
		}
		return nil
	}

	for _, prereq := range prereqs {
		if !hasContextArtifact(sc, prereq) {
			return apperrors.NewMissingPrerequisite(
				fmt.Sprintf("%s generation requires the %s artifact", stage, prereq),
				fmt.Sprintf("generate %s first", prereq))
		}
	}
	return nil
}

func hasContextArtifact(sc *StageContext, stage models.PipelineStage) bool {
	switch stage {
	case models.StageScript:
		return sc.Script != nil && sc.Script.FullScript != ""
	case models.StageBreakdown:
		return sc.Breakdown != nil && len(sc.Breakdown.Scenes) > 0
	case models.StageStoryboard:
		return sc.Storyboard != nil
	case models.StageProps:
		return sc.Props != nil
	case models.StageLocations:
		return sc.Locations != nil
	case models.StageCasting:
		return sc.Casting != nil
	case models.StageMarketing:
		return sc.Marketing != nil
	}
	return false
}
