package api

import (
	"net/http"
	"strconv"

	"volna/pipeline"
	"volna/types"

	"github.com/gin-gonic/gin"
)

// DiscoverResponse is the JSON body of GET /api/discover.
type DiscoverResponse struct {
	Success bool                   `json:"success"`
	Items   []types.DiscoveredItem `json:"items,omitempty"`
	Failed  []string               `json:"failed_sources,omitempty"`
	Error   string                 `json:"error,omitempty"`
}

// RegisterDiscoveryRoutes registers the discovery endpoint.
func RegisterDiscoveryRoutes(r *gin.Engine, p *pipeline.Pipeline) {
	r.GET("/api/discover", handleDiscover(p))
}

// handleDiscover parses sources/max/nocache and runs the fan-out. A batch
// where some sources failed is still success:true; only a batch where every
// source failed reports an error.
func handleDiscover(p *pipeline.Pipeline) gin.HandlerFunc {
	return func(c *gin.Context) {
		keys, err := types.ParseSourceKeys(c.Query("sources"))
		if err != nil {
			c.JSON(http.StatusBadRequest, DiscoverResponse{Success: false, Error: err.Error()})
			return
		}

		max := 0
		if raw := c.Query("max"); raw != "" {
			max, err = strconv.Atoi(raw)
			if err != nil {
				c.JSON(http.StatusBadRequest, DiscoverResponse{Success: false, Error: "max must be an integer"})
				return
			}
		}
		bypass := c.Query("nocache") == "true"

		batch := p.Discover(c.Request.Context(), keys, max, bypass)
		if !batch.Success {
			c.JSON(http.StatusOK, DiscoverResponse{
				Success: false,
				Failed:  batch.Failed,
				Error:   "SourceUnavailable",
			})
			return
		}

		c.JSON(http.StatusOK, DiscoverResponse{
			Success: true,
			Items:   batch.Items,
			Failed:  batch.Failed,
		})
	}
}
