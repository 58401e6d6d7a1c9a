// Package router wires HTTP routes to handlers.
package router

import (
	"github.com/gin-gonic/gin"

	"github.com/kart-io/papergen/internal/papergen/handler"
)

// Register mounts all paper routes on the engine.
func Register(engine *gin.Engine, papers *handler.PaperHandler) {
	engine.GET("/healthz", papers.Health)

	v1 := engine.Group("/v1")
	{
		v1.POST("/papers", papers.Generate)
		v1.GET("/papers/:id", papers.Get)
		v1.GET("/papers/:id/coverage", papers.Coverage)
		v1.POST("/papers/:id/review", papers.Review)
		v1.POST("/papers/:id/questions/:number/revise", papers.Revise)
		v1.GET("/papers/:id/revisions", papers.Revisions)
	}
}
