// internal/models/progress.go
package models

// GenerationProgress is the transient progress snapshot for one in-flight
// arc-level pipeline run. It lives for the duration of the run only; nothing
// survives a process restart.
type GenerationProgress struct {
	RunID               string `json:"run_id"`
	CurrentStep         int    `json:"current_step"`
	CurrentStepName     string `json:"current_step_name"`
	CurrentStepProgress int    `json:"current_step_progress"`
	OverallProgress     int    `json:"overall_progress"`
	CurrentDetail       string `json:"current_detail"`
	IsComplete          bool   `json:"is_complete"`
	Failed              bool   `json:"failed"`
	Error               string `json:"error,omitempty"`
}

// ProgressEventType discriminates frames on the streaming channel.
type ProgressEventType string

const (
	EventProgress ProgressEventType = "progress"
	EventComplete ProgressEventType = "complete"
	EventError    ProgressEventType = "error"
)

// ProgressEvent is a single frame pushed over the streaming channel.
type ProgressEvent struct {
	Type     ProgressEventType  `json:"type"`
	Progress GenerationProgress `json:"progress"`
	Payload  interface{}        `json:"payload,omitempty"`
}
