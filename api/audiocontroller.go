package api

import (
	"context"
	"errors"
	"io"
	"log"
	"net/http"

	"volna/config"
	"volna/pipeline"
	"volna/types"

	"github.com/gin-gonic/gin"
)

// RegisterAudioRoutes registers the audio extraction endpoint.
func RegisterAudioRoutes(r *gin.Engine, p *pipeline.Pipeline) {
	r.GET("/api/audio", handleAudio(p))
}

// handleAudio streams the extracted audio, or returns the redirect JSON when
// demuxing is not performed. Headers go out only once the stream has produced
// its first bytes, so failures before that still yield a clean error body; a
// mid-stream failure aborts the connection instead of faking a complete file.
func handleAudio(p *pipeline.Pipeline) gin.HandlerFunc {
	return func(c *gin.Context) {
		itemURL := c.Query("url")
		if itemURL == "" {
			c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": "url is required"})
			return
		}

		artifact, err := p.Audio(c.Request.Context(), itemURL)
		if err != nil {
			label := types.ErrorLabel(err)
			// Any stage timing out inside the audio operation is an
			// extraction failure, including the scrape leg.
			if errors.Is(err, context.DeadlineExceeded) {
				label = "ExtractionFailed"
			}
			c.JSON(http.StatusOK, gin.H{"success": false, "error": label})
			return
		}

		if artifact.Redirect != nil {
			c.JSON(http.StatusOK, artifact.Redirect)
			return
		}

		defer artifact.Body.Close()
		c.Header("Content-Type", artifact.ContentType)
		c.Status(http.StatusOK)

		buf := make([]byte, config.SegmentBufferSize)
		if _, err := io.CopyBuffer(c.Writer, artifact.Body, buf); err != nil {
			log.Printf("Audio: stream for %s aborted: %v", itemURL, err)
			// Leave the chunked body unterminated so the client sees a
			// transport error instead of a truncated-but-clean EOF. Returning
			// normally (or panicking into the recovery middleware) would let
			// the server write the terminating chunk.
			if conn, _, hijackErr := c.Writer.Hijack(); hijackErr == nil {
				conn.Close()
			}
		}
	}
}
