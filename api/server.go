package api

import (
	"volna/pipeline"

	"github.com/gin-gonic/gin"
)

// NewRouter assembles the HTTP surface over the pipeline facade.
func NewRouter(p *pipeline.Pipeline) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())

	RegisterHealthRoutes(r)
	RegisterDiscoveryRoutes(r, p)
	RegisterScrapeRoutes(r, p)
	RegisterAudioRoutes(r, p)
	return r
}
