package api

import (
	"context"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"newswire/types"
)

const defaultRunListLimit = 20

// RunLister reads recent fetch-run records.
type RunLister interface {
	ListRuns(ctx context.Context, limit int) ([]types.FetchRun, error)
}

// RegisterRunRoutes registers the run-history endpoint.
func RegisterRunRoutes(r *gin.Engine, runs RunLister, logger *zap.Logger) {
	g := r.Group("/api")
	g.GET("/runs", handleListRuns(runs, logger))
}

// handleListRuns returns the most recent ingestion runs, newest first.
// GET /api/runs?limit=N
func handleListRuns(runs RunLister, logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		limit := defaultRunListLimit
		if raw := c.Query("limit"); raw != "" {
			n, err := strconv.Atoi(raw)
			if err != nil || n <= 0 {
				c.JSON(http.StatusBadRequest, gin.H{"error": "limit must be a positive integer"})
				return
			}
			limit = n
		}

		records, err := runs.ListRuns(c.Request.Context(), limit)
		if err != nil {
			logger.Error("failed to list runs", zap.Error(err))
			c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to list runs"})
			return
		}

		c.JSON(http.StatusOK, gin.H{"runs": records, "count": len(records)})
	}
}
