// internal/services/aggregator.go
package services

import (
	"sort"

	"github.com/greenlit-app/greenlit/internal/models"
)

// StageContext carries everything a generation stage needs: identifying
// parameters plus the upstream artifacts, supplied inline by the caller or
// filled in from stored pre-production documents.
type StageContext struct {
	StoryBibleID   string
	EpisodeNumber  int
	EpisodeNumbers []int

	Bible    *models.StoryBible
	Episodes []models.Episode

	Script     *models.ScriptArtifact
	Breakdown  *models.BreakdownArtifact
	Storyboard *models.StoryboardArtifact
	Props      *models.PropsArtifact
	Locations  *models.LocationsArtifact
	Casting    *models.CastingArtifact
	Marketing  *models.MarketingArtifact
}

// IsArc reports whether the request targets an arc rather than one episode.
func (sc *StageContext) IsArc() bool {
	return len(sc.EpisodeNumbers) > 0
}

// DocID returns the pre-production document key for this context.
func (sc *StageContext) DocID() string {
	if sc.IsArc() {
		return models.ArcDocID(sc.EpisodeNumbers[0])
	}
	return models.EpisodeDocID(sc.EpisodeNumber)
}

// ContextAggregator fills a StageContext from stored documents. Inline
// artifacts from the request always win; the aggregator only fills gaps.
// Source documents are read, never mutated.
type ContextAggregator struct {
	preproduction *PreProductionService
}

func NewContextAggregator(preproduction *PreProductionService) *ContextAggregator {
	return &ContextAggregator{preproduction: preproduction}
}

// Hydrate completes the context from storage. For episode scope the episode's
// document supplies missing artifacts. For arc scope the aggregate artifacts
// are re-derived from the per-episode documents; episodes without documents
// or without the relevant artifact are skipped without error.
func (a *ContextAggregator) Hydrate(sc *StageContext) error {
	if sc.StoryBibleID == "" {
		return nil
	}

	if !sc.IsArc() {
		if sc.EpisodeNumber <= 0 {
			return nil
		}
		doc, err := a.preproduction.Get(sc.StoryBibleID, models.EpisodeDocID(sc.EpisodeNumber))
		if err != nil {
			// An absent document just means nothing to fill from.
			return nil
		}
		fillFromDocument(sc, doc)
		return nil
	}

	script, breakdown := a.aggregateArc(sc.StoryBibleID, sc.EpisodeNumbers)
	if sc.Script == nil {
		sc.Script = script
	}
	if sc.Breakdown == nil {
		sc.Breakdown = breakdown
	}
	return nil
}

// aggregateArc walks the arc's episodes in ascending order. Breakdown scenes
// are concatenated into one ordered list tagged with the originating episode
// number; the first non-empty script found stands in for the whole arc.
func (a *ContextAggregator) aggregateArc(storyBibleID string, episodeNumbers []int) (*models.ScriptArtifact, *models.BreakdownArtifact) {
	ordered := append([]int(nil), episodeNumbers...)
	sort.Ints(ordered)

	var script *models.ScriptArtifact
	var scenes []models.BreakdownScene

	for _, n := range ordered {
		doc, err := a.preproduction.Get(storyBibleID, models.EpisodeDocID(n))
		if err != nil {
			continue
		}

		if script == nil && doc.Scripts != nil && doc.Scripts.FullScript != "" {
			copied := *doc.Scripts
			script = &copied
		}

		if doc.ScriptBreakdown != nil {
			for _, scene := range doc.ScriptBreakdown.Scenes {
				scene.EpisodeNumber = n
				scenes = append(scenes, scene)
			}
		}
	}

	var breakdown *models.BreakdownArtifact
	if len(scenes) > 0 {
		breakdown = &models.BreakdownArtifact{Scenes: scenes}
	}
	return script, breakdown
}

func fillFromDocument(sc *StageContext, doc *models.PreProductionDocument) {
	if sc.Script == nil {
		sc.Script = doc.Scripts
	}
	if sc.Breakdown == nil {
		sc.Breakdown = doc.ScriptBreakdown
	}
	if sc.Storyboard == nil {
		sc.Storyboard = doc.Storyboards
	}
	if sc.Props == nil {
		sc.Props = doc.Props
	}
	if sc.Locations == nil {
		sc.Locations = doc.Locations
	}
	if sc.Casting == nil {
		sc.Casting = doc.Casting
	}
	if sc.Marketing == nil {
		sc.Marketing = doc.Marketing
	}
}
