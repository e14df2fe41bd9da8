package api

import (
	"time"

	"github.com/gin-gonic/gin"

	"github.com/use-agent/siteprofile/api/handler"
	"github.com/use-agent/siteprofile/api/middleware"
	"github.com/use-agent/siteprofile/config"
)

// NewRouter creates a configured Gin engine with all routes and middleware.
//
// Middleware chain:
//
//	Recovery → RequestID → Logger → CORS
//
// Every route is served both at the root and under /api/v1.
func NewRouter(ex handler.Extractor, cfg *config.Config, startTime time.Time) *gin.Engine {
	gin.SetMode(cfg.Server.Mode)

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(middleware.RequestID())
	r.Use(middleware.Logger())
	r.Use(middleware.CORS(cfg.CORS.AllowedOrigins))

	health := handler.Health(startTime)
	scrape := handler.Scrape(ex, cfg.Server.RequestTimeout)

	for _, g := range []*gin.RouterGroup{&r.RouterGroup, r.Group("/api/v1")} {
		g.GET("/health", health)
		g.POST("/scrape", scrape)
	}

	return r
}
