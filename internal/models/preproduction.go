// internal/models/preproduction.go
package models

import (
	"fmt"
	"time"
)

// PipelineStage identifies one step of the pre-production pipeline. Order
// matters: each stage's prerequisite is the previous stage's artifact.
type PipelineStage string

const (
	StageScript         PipelineStage = "script"
	StageBreakdown      PipelineStage = "breakdown"
	StageStoryboard     PipelineStage = "storyboard"
	StageProps          PipelineStage = "props"
	StageLocations      PipelineStage = "locations"
	StageCasting        PipelineStage = "casting"
	StageMarketing      PipelineStage = "marketing"
	StagePostProduction PipelineStage = "post-production"
)

// PipelineOrder is the canonical stage sequence for an arc-level run.
var PipelineOrder = []PipelineStage{
	StageScript,
	StageBreakdown,
	StageStoryboard,
	StageProps,
	StageLocations,
	StageCasting,
	StageMarketing,
	StagePostProduction,
}

// DocumentState is the explicit per-document pipeline state machine. A
// document advances when a stage artifact is saved; re-saving a completed
// stage keeps the furthest state reached (last write wins on content).
type DocumentState string

const (
	StateNotStarted      DocumentState = "not_started"
	StateScriptReady     DocumentState = "script_ready"
	StateBreakdownReady  DocumentState = "breakdown_ready"
	StateStoryboardReady DocumentState = "storyboard_ready"
	StatePropsReady      DocumentState = "props_ready"
	StateLocationsReady  DocumentState = "locations_ready"
	StateCastingReady    DocumentState = "casting_ready"
	StateMarketingReady  DocumentState = "marketing_ready"
	StateComplete        DocumentState = "complete"
)

// stateForStage maps a completed stage to the document state it unlocks.
var stateForStage = map[PipelineStage]DocumentState{
	StageScript:         StateScriptReady,
	StageBreakdown:      StateBreakdownReady,
	StageStoryboard:     StateStoryboardReady,
	StageProps:          StatePropsReady,
	StageLocations:      StateLocationsReady,
	StageCasting:        StateCastingReady,
	StageMarketing:      StateMarketingReady,
	StagePostProduction: StateComplete,
}

// StateAfter returns the document state reached once stage has been saved.
func StateAfter(stage PipelineStage) DocumentState {
	return stateForStage[stage]
}

// PreProductionDocument accumulates stage artifacts for one episode
// (episode_{n}) or one arc (arc_{i}). Each artifact is independently
// nullable; its presence signals stage completion. Documents are created
// empty on first visit, populated stage by stage, and never deleted.
type PreProductionDocument struct {
	ID           string        `json:"id"`
	StoryBibleID string        `json:"story_bible_id"`
	State        DocumentState `json:"state"`

	Scripts         *ScriptArtifact         `json:"scripts,omitempty"`
	ScriptBreakdown *BreakdownArtifact      `json:"script_breakdown,omitempty"`
	Storyboards     *StoryboardArtifact     `json:"storyboards,omitempty"`
	Props           *PropsArtifact          `json:"props,omitempty"`
	Locations       *LocationsArtifact      `json:"locations,omitempty"`
	Casting         *CastingArtifact        `json:"casting,omitempty"`
	Marketing       *MarketingArtifact      `json:"marketing,omitempty"`
	PostProduction  *PostProductionArtifact `json:"post_production,omitempty"`

	Version   int       `json:"version"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// EpisodeDocID returns the fixed-ID key for an episode-scoped document.
func EpisodeDocID(episodeNumber int) string {
	return fmt.Sprintf("episode_%d", episodeNumber)
}

// ArcDocID returns the fixed-ID key for an arc-scoped document.
func ArcDocID(arcIndex int) string {
	return fmt.Sprintf("arc_%d", arcIndex)
}

// HasArtifact reports whether the artifact for stage is present.
func (d *PreProductionDocument) HasArtifact(stage PipelineStage) bool {
	switch stage {
	case StageScript:
		return d.Scripts != nil
	case StageBreakdown:
		return d.ScriptBreakdown != nil
	case StageStoryboard:
		return d.Storyboards != nil
	case StageProps:
		return d.Props != nil
	case StageLocations:
		return d.Locations != nil
	case StageCasting:
		return d.Casting != nil
	case StageMarketing:
		return d.Marketing != nil
	case StagePostProduction:
		return d.PostProduction != nil
	}
	return false
}

// ScriptArtifact is the output of the script stage.
type ScriptArtifact struct {
	FullScript string   `json:"full_script"`
	Acts       []string `json:"acts,omitempty"`
	PageCount  int      `json:"page_count,omitempty"`
}

// BreakdownArtifact is the output of the script breakdown stage.
type BreakdownArtifact struct {
	Scenes             []BreakdownScene `json:"scenes"`
	TotalEstimatedTime string           `json:"total_estimated_time"`
	TotalBudgetImpact  string           `json:"total_budget_impact"`
}

// BreakdownScene is one scene entry in a breakdown. EpisodeNumber tags the
// originating episode when scenes are aggregated across an arc.
type BreakdownScene struct {
	SceneNumber   int      `json:"scene_number"`
	EpisodeNumber int      `json:"episode_number,omitempty"`
	Heading       string   `json:"heading"`
	Summary       string   `json:"summary"`
	Characters    []string `json:"characters,omitempty"`
	EstimatedTime string   `json:"estimated_time,omitempty"`
	BudgetImpact  string   `json:"budget_impact,omitempty"`
}

// StoryboardArtifact is the output of the storyboard stage.
type StoryboardArtifact struct {
	Panels []StoryboardPanel `json:"panels"`
}

type StoryboardPanel struct {
	SceneNumber int    `json:"scene_number"`
	ShotType    string `json:"shot_type"`
	Description string `json:"description"`
	CameraNotes string `json:"camera_notes,omitempty"`
	ImageURL    string `json:"image_url,omitempty"`
}

// PropsArtifact is the output of the props and wardrobe stage.
type PropsArtifact struct {
	Props    []PropItem `json:"props"`
	Wardrobe []PropItem `json:"wardrobe"`
}

type PropItem struct {
	Name        string `json:"name"`
	Description string `json:"description"`
	SceneNumber int    `json:"scene_number,omitempty"`
	Character   string `json:"character,omitempty"`
	Sourcing    string `json:"sourcing,omitempty"`
}

// LocationsArtifact is the output of the locations stage.
type LocationsArtifact struct {
	Locations []LocationEntry `json:"locations"`
}

type LocationEntry struct {
	Name         string   `json:"name"`
	Description  string   `json:"description"`
	SceneNumbers []int    `json:"scene_numbers,omitempty"`
	Requirements []string `json:"requirements,omitempty"`
	ImageURL     string   `json:"image_url,omitempty"`
}

// CastingArtifact is the output of the casting stage.
type CastingArtifact struct {
	Cast []CastingEntry `json:"cast"`
}

type CastingEntry struct {
	CharacterName  string   `json:"character_name"`
	Archetype      string   `json:"archetype,omitempty"`
	Description    string   `json:"description"`
	AgeRange       string   `json:"age_range,omitempty"`
	Considerations []string `json:"considerations,omitempty"`
}

// MarketingArtifact is the output of the marketing stage.
type MarketingArtifact struct {
	Logline        string   `json:"logline"`
	Taglines       []string `json:"taglines"`
	TargetAudience string   `json:"target_audience"`
	KeyArt         []string `json:"key_art_concepts,omitempty"`
}

// PostProductionArtifact is the output of the post-production stage.
type PostProductionArtifact struct {
	EditNotes  []string `json:"edit_notes"`
	SoundNotes []string `json:"sound_notes,omitempty"`
	VFXNotes   []string `json:"vfx_notes,omitempty"`
	ColorNotes []string `json:"color_notes,omitempty"`
}
