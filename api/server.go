package api

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// Deps carries the collaborators the HTTP layer exposes.
type Deps struct {
	Runner Runner
	Runs   RunLister
	Logger *zap.Logger
}

// NewRouter constructs a Gin engine with registered routes.
func NewRouter(deps Deps) *gin.Engine {
	r := gin.New()
	// Minimal middleware: recovery plus permissive CORS; logger optional
	// to reduce verbosity.
	r.Use(gin.Recovery())
	r.Use(corsMiddleware())

	if deps.Logger == nil {
		deps.Logger = zap.NewNop()
	}

	RegisterIngestRoutes(r, deps.Runner, deps.Logger)
	RegisterRunRoutes(r, deps.Runs, deps.Logger)
	RegisterHealthRoutes(r)
	return r
}

// corsMiddleware lets browser dashboards on any origin call the API
// directly.
func corsMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Header("Access-Control-Allow-Origin", "*")
		c.Header("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		c.Header("Access-Control-Allow-Headers", "Content-Type, Authorization")

		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}
		c.Next()
	}
}
