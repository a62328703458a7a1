// internal/api/router.go
package api

import (
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"

	"github.com/greenlit-app/greenlit/internal/auth"
	"github.com/greenlit-app/greenlit/internal/models"
)

// NewRouter assembles the HTTP surface. Owner-scoped routes sit behind the
// session middleware; share-link routes are public, gated by the link id
// capability; generation routes carry a rate limit.
func NewRouter(h *Handlers, tokens *auth.TokenConfig, debugMode bool) *gin.Engine {
	if debugMode {
		gin.SetMode(gin.DebugMode)
	} else {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(RequestID())
	router.Use(cors.New(cors.Config{
		AllowOrigins:     []string{"*"},
		AllowMethods:     []string{"GET", "POST", "PUT", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Authorization", "X-Request-ID"},
		ExposeHeaders:    []string{"X-Request-ID", "X-Run-ID"},
		MaxAge:           12 * time.Hour,
		AllowCredentials: false,
	}))

	api := router.Group("/api")
	{
		api.GET("/health", h.Health)
		api.POST("/auth/session", h.CreateSession)

		owned := api.Group("", RequireSession(tokens))
		{
			owned.POST("/story-bible/save", h.SaveStoryBible)
			owned.GET("/story-bible/:id", h.GetStoryBible)
			owned.GET("/story-bibles", h.ListStoryBibles)
			owned.POST("/episodes/save", h.SaveEpisodes)
			owned.GET("/story-bible/:id/episodes", h.ListEpisodes)

			owned.POST("/share-story-bible", h.ShareStoryBible)
			owned.POST("/share-links/:linkId/revoke", h.RevokeShareLink)
			owned.POST("/share-links/:linkId/extend", h.ExtendShareLink)
			owned.GET("/share-links/:linkId/logs", h.GetShareAccessLogs)
		}

		generate := api.Group("", RateLimit(30, time.Minute))
		{
			generate.POST("/story-bible/generate", h.GenerateStoryBible)
			generate.POST("/episodes/generate", h.GenerateEpisodes)
			for _, stage := range models.PipelineOrder {
				generate.POST("/generate/"+string(stage), h.GenerateStage(stage))
			}
			generate.POST("/arc-pipeline", h.RunArcPipeline)
			generate.POST("/arc-pipeline/stream", h.StreamArcPipeline)
			generate.POST("/scene-images", h.SceneImages)
		}

		api.GET("/preproduction/:storyBibleId/:docId", h.GetPreProductionDocument)
		api.POST("/preproduction/save-stage", h.SaveStage)

		api.GET("/generation-status/:runId", h.GetGenerationStatus)
		api.POST("/generation-status/:runId", h.UpdateGenerationStatus)

		api.GET("/shared/:linkId", h.GetSharedBible)
		api.PUT("/shared/:linkId", h.UpdateSharedBible)
	}

	router.GET("/ws/shared/:linkId", h.ServeSharedSocket)

	return router
}
