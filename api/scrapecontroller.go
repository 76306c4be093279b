package api

import (
	"net/http"

	"volna/pipeline"
	"volna/types"

	"github.com/gin-gonic/gin"
)

// ScrapeResponse is the JSON body of GET /api/scrape.
type ScrapeResponse struct {
	Success  bool                   `json:"success"`
	Metadata *types.ScrapedMetadata `json:"metadata,omitempty"`
	Error    string                 `json:"error,omitempty"`
}

// RegisterScrapeRoutes registers the metadata endpoint.
func RegisterScrapeRoutes(r *gin.Engine, p *pipeline.Pipeline) {
	r.GET("/api/scrape", handleScrape(p))
}

func handleScrape(p *pipeline.Pipeline) gin.HandlerFunc {
	return func(c *gin.Context) {
		itemURL := c.Query("url")
		if itemURL == "" {
			c.JSON(http.StatusBadRequest, ScrapeResponse{Success: false, Error: "url is required"})
			return
		}
		bypass := c.Query("nocache") == "true"

		meta, err := p.Scrape(c.Request.Context(), itemURL, bypass)
		if err != nil {
			c.JSON(http.StatusOK, ScrapeResponse{Success: false, Error: types.ErrorLabel(err)})
			return
		}

		c.JSON(http.StatusOK, ScrapeResponse{Success: true, Metadata: meta})
	}
}
