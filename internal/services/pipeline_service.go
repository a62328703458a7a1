// internal/services/pipeline_service.go
package services

import (
	"context"
	"fmt"

	"github.com/oklog/ulid/v2"

	"github.com/greenlit-app/greenlit/internal/models"
	"github.com/greenlit-app/greenlit/internal/utils"
)

// PipelineService runs the full arc-level pipeline: every stage in order,
// each feeding the next, with progress reported after each stage. Artifacts
// are returned to the caller, not persisted; saving is the client's move.
type PipelineService struct {
	stages   *StageService
	progress *ProgressService
}

func NewPipelineService(stages *StageService, progress *ProgressService) *PipelineService {
	return &PipelineService{stages: stages, progress: progress}
}

// NewRunID mints an id for a pipeline run.
func (p *PipelineService) NewRunID() string {
	return ulid.Make().String()
}

// RunArc executes all stages for the arc context under the given run id.
// A stage failure terminates the run; artifacts produced so far are still
// returned alongside the error. Progress updates are best effort and never
// abort the run.
func (p *PipelineService) RunArc(ctx context.Context, runID string, sc *StageContext) (map[string]interface{}, error) {
	p.progress.StartRun(runID, string(models.PipelineOrder[0]))

	artifacts := make(map[string]interface{}, len(models.PipelineOrder))
	total := len(models.PipelineOrder)

	for i, stage := range models.PipelineOrder {
		p.progress.UpdateProgress(runID, i+1, string(stage), 0, i*100/total,
			fmt.Sprintf("generating %s", stage))

		artifact, err := p.stages.RunStage(ctx, stage, sc)
		if err != nil {
			utils.GetLogger().Error("pipeline stage failed", map[string]interface{}{
				"run_id": runID, "stage": string(stage), "error": err.Error(),
			})
			p.progress.FailRun(runID, fmt.Sprintf("stage %s failed: %s", stage, err.Error()))
			return artifacts, err
		}

		artifacts[string(stage)] = artifact
		ApplyStageResult(sc, stage, artifact)

		p.progress.UpdateProgress(runID, i+1, string(stage), 100, (i+1)*100/total,
			fmt.Sprintf("%s complete", stage))
	}

	p.progress.CompleteRun(runID, artifacts)
	return artifacts, nil
}
