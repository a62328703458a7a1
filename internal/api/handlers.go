// internal/api/handlers.go
package api

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/greenlit-app/greenlit/internal/auth"
	apperrors "github.com/greenlit-app/greenlit/internal/errors"
	"github.com/greenlit-app/greenlit/internal/models"
	"github.com/greenlit-app/greenlit/internal/services"
	"github.com/greenlit-app/greenlit/internal/utils"
)

// Handlers binds the service layer to the HTTP surface.
type Handlers struct {
	bibles        *services.StoryBibleService
	preproduction *services.PreProductionService
	stages        *services.StageService
	pipeline      *services.PipelineService
	progress      *services.ProgressService
	shares        *services.ShareLinkService
	tokens        *auth.TokenConfig
	hub           *ShareHub
}

func NewHandlers(
	bibles *services.StoryBibleService,
	preproduction *services.PreProductionService,
	stages *services.StageService,
	pipeline *services.PipelineService,
	progress *services.ProgressService,
	shares *services.ShareLinkService,
	tokens *auth.TokenConfig,
) *Handlers {
	h := &Handlers{
		bibles:        bibles,
		preproduction: preproduction,
		stages:        stages,
		pipeline:      pipeline,
		progress:      progress,
		shares:        shares,
		tokens:        tokens,
		hub:           NewShareHub(),
	}
	shares.SetUpdateListener(h.hub.Broadcast)
	return h
}

// stageRequest is the shared body for generation routes: identifying
// parameters plus whichever upstream artifacts the caller sends inline.
type stageRequest struct {
	StoryBibleID   string `json:"storyBibleId"`
	EpisodeNumber  int    `json:"episodeNumber"`
	EpisodeNumbers []int  `json:"episodeNumbers"`

	StoryBibleData *models.StoryBible `json:"storyBibleData"`
	Episodes       []models.Episode   `json:"episodes"`

	ScriptData     *models.ScriptArtifact     `json:"scriptData"`
	BreakdownData  *models.BreakdownArtifact  `json:"breakdownData"`
	StoryboardData *models.StoryboardArtifact `json:"storyboardData"`
	PropsData      *models.PropsArtifact      `json:"propsData"`
	LocationsData  *models.LocationsArtifact  `json:"locationsData"`
	CastingData    *models.CastingArtifact    `json:"castingData"`
	MarketingData  *models.MarketingArtifact  `json:"marketingData"`
}

func (r *stageRequest) toContext() *services.StageContext {
	return &services.StageContext{
		StoryBibleID:   r.StoryBibleID,
		EpisodeNumber:  r.EpisodeNumber,
		EpisodeNumbers: r.EpisodeNumbers,
		Bible:          r.StoryBibleData,
		Episodes:       r.Episodes,
		Script:         r.ScriptData,
		Breakdown:      r.BreakdownData,
		Storyboard:     r.StoryboardData,
		Props:          r.PropsData,
		Locations:      r.LocationsData,
		Casting:        r.CastingData,
		Marketing:      r.MarketingData,
	}
}

// artifactNames maps a stage to its field name in the success payload.
var artifactNames = map[models.PipelineStage]string{
	models.StageScript:         "script",
	models.StageBreakdown:      "breakdown",
	models.StageStoryboard:     "storyboard",
	models.StageProps:          "props",
	models.StageLocations:      "locations",
	models.StageCasting:        "casting",
	models.StageMarketing:      "marketing",
	models.StagePostProduction: "postProduction",
}

// GenerateStage returns the handler for one gated generation route.
func (h *Handlers) GenerateStage(stage models.PipelineStage) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req stageRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			respondError(c, apperrors.NewValidationError("invalid request body: "+err.Error()))
			return
		}

		sc := req.toContext()
		artifact, err := h.stages.RunStage(c.Request.Context(), stage, sc)
		if err != nil {
			respondError(c, err)
			return
		}
		// docId is the pre-production document key the client passes back
		// when saving the reviewed artifact.
		respondSuccess(c, http.StatusOK, string(stage)+" generated", gin.H{
			artifactNames[stage]: artifact,
			"docId":              sc.DocID(),
		})
	}
}

// --- auth ---

func (h *Handlers) CreateSession(c *gin.Context) {
	var req struct {
		UserID string `json:"userId"`
	}
	if err := c.ShouldBindJSON(&req); err != nil || req.UserID == "" {
		respondError(c, apperrors.NewValidationError("userId is required"))
		return
	}

	token, err := auth.IssueToken(req.UserID, h.tokens)
	if err != nil {
		respondError(c, apperrors.NewUpstreamError("failed to issue token", err))
		return
	}
	respondSuccess(c, http.StatusOK, "session created", gin.H{"token": token})
}

// --- story bibles ---

func (h *Handlers) GenerateStoryBible(c *gin.Context) {
	var req struct {
		Premise string   `json:"premise"`
		Genre   string   `json:"genre"`
		Themes  []string `json:"themes"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, apperrors.NewValidationError("invalid request body: "+err.Error()))
		return
	}

	bible, err := h.bibles.GenerateStoryBible(c.Request.Context(), req.Premise, req.Genre, req.Themes)
	if err != nil {
		respondError(c, err)
		return
	}
	respondSuccess(c, http.StatusOK, "story bible generated", gin.H{"storyBible": bible})
}

func (h *Handlers) SaveStoryBible(c *gin.Context) {
	var req struct {
		StoryBibleData *models.StoryBible `json:"storyBibleData"`
	}
	if err := c.ShouldBindJSON(&req); err != nil || req.StoryBibleData == nil {
		respondError(c, apperrors.NewValidationError("storyBibleData is required"))
		return
	}

	bible, err := h.bibles.SaveStoryBible(req.StoryBibleData, currentUserID(c))
	if err != nil {
		respondError(c, err)
		return
	}
	respondSuccess(c, http.StatusOK, "story bible saved", gin.H{"storyBible": bible})
}

func (h *Handlers) GetStoryBible(c *gin.Context) {
	bible, err := h.bibles.GetStoryBible(currentUserID(c), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	respondSuccess(c, http.StatusOK, "ok", gin.H{"storyBible": bible})
}

func (h *Handlers) ListStoryBibles(c *gin.Context) {
	bibles, err := h.bibles.ListStoryBibles(currentUserID(c))
	if err != nil {
		respondError(c, err)
		return
	}
	respondSuccess(c, http.StatusOK, "ok", gin.H{"storyBibles": bibles})
}

// --- episodes ---

func (h *Handlers) GenerateEpisodes(c *gin.Context) {
	var req struct {
		StoryBibleData *models.StoryBible `json:"storyBibleData"`
		ArcIndex       int                `json:"arcIndex"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, apperrors.NewValidationError("invalid request body: "+err.Error()))
		return
	}

	episodes, err := h.bibles.GenerateEpisodes(c.Request.Context(), req.StoryBibleData, req.ArcIndex)
	if err != nil {
		respondError(c, err)
		return
	}
	respondSuccess(c, http.StatusOK, "episodes generated", gin.H{"episodes": episodes})
}

func (h *Handlers) SaveEpisodes(c *gin.Context) {
	var req struct {
		StoryBibleID string           `json:"storyBibleId"`
		Episodes     []models.Episode `json:"episodes"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, apperrors.NewValidationError("invalid request body: "+err.Error()))
		return
	}

	if err := h.bibles.SaveEpisodes(req.StoryBibleID, req.Episodes); err != nil {
		respondError(c, err)
		return
	}
	respondSuccess(c, http.StatusOK, "episodes saved", gin.H{"count": len(req.Episodes)})
}

func (h *Handlers) ListEpisodes(c *gin.Context) {
	episodes, err := h.bibles.ListEpisodes(c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	respondSuccess(c, http.StatusOK, "ok", gin.H{"episodes": episodes})
}

// --- pre-production documents ---

func (h *Handlers) GetPreProductionDocument(c *gin.Context) {
	doc, err := h.preproduction.GetOrCreate(c.Param("storyBibleId"), c.Param("docId"))
	if err != nil {
		respondError(c, err)
		return
	}
	respondSuccess(c, http.StatusOK, "ok", gin.H{"document": doc})
}

func (h *Handlers) SaveStage(c *gin.Context) {
	var req struct {
		StoryBibleID string          `json:"storyBibleId"`
		DocID        string          `json:"docId"`
		Stage        string          `json:"stage"`
		Artifact     json.RawMessage `json:"artifact"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, apperrors.NewValidationError("invalid request body: "+err.Error()))
		return
	}
	if len(req.Artifact) == 0 {
		respondError(c, apperrors.NewValidationError("artifact is required"))
		return
	}

	artifact, err := decodeArtifact(models.PipelineStage(req.Stage), req.Artifact)
	if err != nil {
		respondError(c, err)
		return
	}

	doc, err := h.preproduction.SaveStage(req.StoryBibleID, req.DocID, models.PipelineStage(req.Stage), artifact)
	if err != nil {
		respondError(c, err)
		return
	}
	respondSuccess(c, http.StatusOK, req.Stage+" saved", gin.H{"document": doc})
}

func decodeArtifact(stage models.PipelineStage, raw json.RawMessage) (interface{}, error) {
	var artifact interface{}
	switch stage {
	case models.StageScript:
		artifact = &models.ScriptArtifact{}
	case models.StageBreakdown:
		artifact = &models.BreakdownArtifact{}
	case models.StageStoryboard:
		artifact = &models.StoryboardArtifact{}
	case models.StageProps:
		artifact = &models.PropsArtifact{}
	case models.StageLocations:
		artifact = &models.LocationsArtifact{}
	case models.StageCasting:
		artifact = &models.CastingArtifact{}
	case models.StageMarketing:
		artifact = &models.MarketingArtifact{}
	case models.StagePostProduction:
		artifact = &models.PostProductionArtifact{}
	default:
		return nil, apperrors.NewValidationError("unknown pipeline stage \"" + string(stage) + "\"")
	}
	if err := json.Unmarshal(raw, artifact); err != nil {
		return nil, apperrors.NewValidationError("artifact does not match stage shape: " + err.Error())
	}
	return artifact, nil
}

// --- pipeline runs ---

func (h *Handlers) RunArcPipeline(c *gin.Context) {
	var req stageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, apperrors.NewValidationError("invalid request body: "+err.Error()))
		return
	}

	runID := h.pipeline.NewRunID()
	// The run id goes out in a header before the run starts so clients can
	// poll the status route while this request is still in flight.
	c.Header("X-Run-ID", runID)

	sc := req.toContext()
	artifacts, err := h.pipeline.RunArc(c.Request.Context(), runID, sc)
	if err != nil {
		appErr, ok := apperrors.As(err)
		if !ok {
			appErr = apperrors.NewUpstreamError("pipeline run failed", err)
		}
		c.JSON(statusFor(appErr.Type), gin.H{
			"error":     appErr.Message,
			"type":      string(appErr.Type),
			"details":   appErr.Details,
			"runId":     runID,
			"docId":     sc.DocID(),
			"artifacts": artifacts,
		})
		return
	}
	respondSuccess(c, http.StatusOK, "pipeline complete", gin.H{
		"runId":     runID,
		"docId":     sc.DocID(),
		"artifacts": artifacts,
	})
}

func (h *Handlers) StreamArcPipeline(c *gin.Context) {
	var req stageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, apperrors.NewValidationError("invalid request body: "+err.Error()))
		return
	}

	writer, ok := newSSEWriter(c)
	if !ok {
		respondError(c, apperrors.NewValidationError("streaming unsupported by connection"))
		return
	}

	runID := h.pipeline.NewRunID()
	h.progress.StartRun(runID, string(models.PipelineOrder[0]))
	events, unsubscribe, _ := h.progress.Subscribe(runID)
	defer unsubscribe()

	go func() {
		// Detached from the request context: the run finishes (and the
		// progress record completes) even if the stream drops mid-way.
		_, err := h.pipeline.RunArc(context.Background(), runID, req.toContext())
		if err != nil {
			utils.GetLogger().Warn("streamed pipeline run failed", map[string]interface{}{
				"run_id": runID, "error": err.Error(),
			})
		}
	}()

	for event := range events {
		if err := writer.send(event); err != nil {
			return
		}
	}
}

func (h *Handlers) GetGenerationStatus(c *gin.Context) {
	snapshot, ok := h.progress.GetProgress(c.Param("runId"))
	if !ok {
		respondError(c, apperrors.NewNotFoundError("unknown run id"))
		return
	}
	respondSuccess(c, http.StatusOK, "ok", gin.H{"progress": snapshot})
}

// UpdateGenerationStatus is the internal best-effort progress write. It never
// fails the caller: bad bodies and unknown runs are logged and acknowledged.
func (h *Handlers) UpdateGenerationStatus(c *gin.Context) {
	runID := c.Param("runId")
	var req struct {
		CurrentStep         int    `json:"currentStep"`
		CurrentStepName     string `json:"currentStepName"`
		CurrentStepProgress int    `json:"currentStepProgress"`
		OverallProgress     int    `json:"overallProgress"`
		CurrentDetail       string `json:"currentDetail"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.GetLogger().Warn("progress update ignored", map[string]interface{}{
			"run_id": runID, "error": err.Error(),
		})
		respondSuccess(c, http.StatusOK, "ignored", nil)
		return
	}

	h.progress.UpdateProgress(runID, req.CurrentStep, req.CurrentStepName,
		req.CurrentStepProgress, req.OverallProgress, req.CurrentDetail)
	respondSuccess(c, http.StatusOK, "ok", nil)
}

// --- scene images ---

func (h *Handlers) SceneImages(c *gin.Context) {
	var req struct {
		Scenes []models.Scene `json:"scenes"`
	}
	if err := c.ShouldBindJSON(&req); err != nil || len(req.Scenes) == 0 {
		respondError(c, apperrors.NewValidationError("scenes are required"))
		return
	}

	writer, ok := newSSEWriter(c)
	if !ok {
		respondError(c, apperrors.NewValidationError("streaming unsupported by connection"))
		return
	}

	// The progress callback runs under AttachSceneImages' own lock, so these
	// writes never interleave.
	results := h.bibles.AttachSceneImages(c.Request.Context(), req.Scenes, func(done, total int) {
		writer.send(gin.H{"type": "progress", "done": done, "total": total})
	})
	writer.send(gin.H{"type": "complete", "images": results})
}

// --- share links ---

func (h *Handlers) ShareStoryBible(c *gin.Context) {
	var req struct {
		StoryBibleData *models.StoryBible `json:"storyBibleData"`
		OwnerName      string             `json:"ownerName"`
		ExpiresAt      *time.Time         `json:"expiresAt"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, apperrors.NewValidationError("invalid request body: "+err.Error()))
		return
	}

	link, err := h.shares.Create(req.StoryBibleData, currentUserID(c), req.OwnerName, req.ExpiresAt)
	if err != nil {
		respondError(c, err)
		return
	}
	respondSuccess(c, http.StatusCreated, "share link created", gin.H{
		"linkId":  link.LinkID,
		"shareId": link.ShareID,
		"link":    link,
	})
}

func (h *Handlers) GetSharedBible(c *gin.Context) {
	shared, err := h.shares.Get(c.Param("linkId"))
	if err != nil {
		respondError(c, err)
		return
	}
	respondSuccess(c, http.StatusOK, "ok", gin.H{
		"storyBible": shared.Bible,
		"link":       shared.Link,
	})
}

func (h *Handlers) UpdateSharedBible(c *gin.Context) {
	var req struct {
		StoryBibleData *models.StoryBible `json:"storyBibleData"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, apperrors.NewValidationError("invalid request body: "+err.Error()))
		return
	}

	shared, err := h.shares.Update(c.Param("linkId"), req.StoryBibleData)
	if err != nil {
		respondError(c, err)
		return
	}
	respondSuccess(c, http.StatusOK, "shared copy updated", gin.H{
		"storyBible": shared.Bible,
		"link":       shared.Link,
	})
}

func (h *Handlers) RevokeShareLink(c *gin.Context) {
	link, err := h.shares.Revoke(c.Param("linkId"), currentUserID(c))
	if err != nil {
		respondError(c, err)
		return
	}
	respondSuccess(c, http.StatusOK, "share link revoked", gin.H{"link": link})
}

func (h *Handlers) ExtendShareLink(c *gin.Context) {
	var req struct {
		ExpiresAt time.Time `json:"expiresAt"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, apperrors.NewValidationError("expiresAt is required"))
		return
	}

	link, err := h.shares.ExtendExpiration(c.Param("linkId"), currentUserID(c), req.ExpiresAt)
	if err != nil {
		respondError(c, err)
		return
	}
	respondSuccess(c, http.StatusOK, "share link extended", gin.H{"link": link})
}

func (h *Handlers) GetShareAccessLogs(c *gin.Context) {
	logs, analytics, err := h.shares.GetAccessLogs(c.Param("linkId"), currentUserID(c))
	if err != nil {
		respondError(c, err)
		return
	}
	respondSuccess(c, http.StatusOK, "ok", gin.H{
		"logs":      logs,
		"analytics": analytics,
	})
}

// ServeSharedSocket upgrades a viewer onto the link's broadcast room after
// verifying the link is still live.
func (h *Handlers) ServeSharedSocket(c *gin.Context) {
	linkID := c.Param("linkId")
	if _, err := h.shares.Get(linkID); err != nil {
		respondError(c, err)
		return
	}
	h.hub.Serve(c, linkID)
}

// --- health ---

func (h *Handlers) Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok", "time": time.Now()})
}
