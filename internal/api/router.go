package api

import (
	"intake-script-engine/internal/storage"

	"github.com/gin-gonic/gin"
)

func SetupRouter() *gin.Engine {
	return SetupRouterWithStore(nil)
}

func SetupRouterWithStore(store *storage.ScriptStore) *gin.Engine {
	router := gin.Default()

	router.Use(func(c *gin.Context) {
		c.Header("Access-Control-Allow-Origin", "*")
		c.Header("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
		c.Header("Access-Control-Allow-Headers", "Content-Type, Authorization")

		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(204)
			return
		}

		c.Next()
	})

	handlers := NewHandlersWithStore(store)

	api := router.Group("/api")
	{
		api.GET("/health", handlers.HealthCheck)

		// Script editing sessions
		api.POST("/scripts", handlers.CreateScript)
		api.POST("/scripts/import", handlers.ImportScript)
		api.GET("/scripts/:session_id", handlers.GetScript)
		api.DELETE("/scripts/:session_id", handlers.DeleteScript)
		api.GET("/scripts/:session_id/export", handlers.ExportScript)
		api.GET("/scripts/:session_id/graph", handlers.GetGraph)

		// Question authoring
		api.POST("/scripts/:session_id/questions", handlers.CreateQuestion)
		api.PUT("/scripts/:session_id/questions/:question_id", handlers.UpdateQuestion)
		api.DELETE("/scripts/:session_id/questions/:question_id", handlers.DeleteQuestion)
		api.POST("/scripts/:session_id/validate", handlers.ValidateQuestion)
		api.PUT("/scripts/:session_id/start/:question_id", handlers.SetStartQuestion)
		api.POST("/scripts/:session_id/transitions", handlers.AddTransition)
		api.GET("/scripts/:session_id/questions/:question_id/parents", handlers.GetParentTransitions)

		// Questionnaire runs
		api.POST("/runs", handlers.StartRun)
		api.GET("/runs/:run_id", handlers.GetRun)
		api.POST("/runs/:run_id/answer", handlers.AnswerRun)
		api.POST("/runs/:run_id/back", handlers.BackRun)

		// Persisted scripts
		api.POST("/scripts/:session_id/save", handlers.SaveScript)
		api.GET("/saved", handlers.ListSavedScripts)
		api.GET("/saved/:id", handlers.GetSavedScript)
		api.POST("/saved/:id/open", handlers.OpenSavedScript)
		api.DELETE("/saved/:id", handlers.DeleteSavedScript)
	}

	return router
}
