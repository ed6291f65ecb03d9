package api

import (
	"context"
	"errors"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"newswire/types"
)

// Runner executes one ingestion cycle.
type Runner interface {
	Run(ctx context.Context, req types.IngestRequest) (types.IngestResponse, error)
}

// RegisterIngestRoutes registers the ingestion endpoint.
func RegisterIngestRoutes(r *gin.Engine, runner Runner, logger *zap.Logger) {
	g := r.Group("/api")
	g.POST("/ingest", handleIngest(runner, logger))
}

// handleIngest runs a fetch-classify-store cycle synchronously and
// returns its outcome. A failed run is still a well-formed response
// body, just with success=false.
// POST /api/ingest
func handleIngest(runner Runner, logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req types.IngestRequest
		// An absent body means "run with all defaults"; every field is
		// optional.
		if err := c.ShouldBindJSON(&req); err != nil && !errors.Is(err, io.EOF) {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body: " + err.Error()})
			return
		}

		resp, err := runner.Run(c.Request.Context(), req)
		if err != nil {
			logger.Error("ingestion run failed", zap.Error(err))
			c.JSON(http.StatusInternalServerError, resp)
			return
		}

		c.JSON(http.StatusOK, resp)
	}
}
