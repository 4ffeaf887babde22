package handlers

import (
	"io/fs"
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
)

// RouterOptions carries the pieces of the router that are not reached
// through service.GlobalServices.
type RouterOptions struct {
	Static      fs.FS
	Metrics     http.Handler
	WatchLink   http.Handler
	WaitTimeout time.Duration
}

// NewRouter builds the gin engine with CORS, the embedded pages and all
// API routes.
func NewRouter(opts RouterOptions) *gin.Engine {
	if opts.WaitTimeout > 0 {
		deliveryWaitTimeout = opts.WaitTimeout
	}

	r := gin.New()
	r.Use(gin.Logger(), gin.Recovery())

	// CORS middleware
	r.Use(cors.New(cors.Config{
		AllowAllOrigins:  true,
		AllowMethods:     []string{"GET", "POST", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"*"},
		ExposeHeaders:    []string{"Content-Length"},
		AllowCredentials: true,
	}))

	if opts.Static != nil {
		r.StaticFS("/web", http.FS(opts.Static))
		r.GET("/", func(c *gin.Context) {
			c.Redirect(http.StatusMovedPermanently, "/web/index.html")
		})
	}

	if opts.WatchLink != nil {
		r.GET("/ws/watch", gin.WrapH(opts.WatchLink))
	}

	api := r.Group("/api")
	{
		// Bridge events
		api.GET("/configuration", ShowConfiguration)
		api.GET("/configuration/qr", GetConfigurationQR)
		api.POST("/webview/closed", WebviewClosed)
		api.GET("/webview/closed", WebviewClosed)
		api.GET("/settings", GetSettings)

		// Diagnostics
		api.GET("/logs", GetLogs)
		api.DELETE("/logs", ClearLogs)
		api.GET("/health", HealthCheck)
		if opts.Metrics != nil {
			api.GET("/metrics", gin.WrapH(opts.Metrics))
		}

		// System shutdown routes, local callers only
		shutdown := api.Group("/shutdown", loopbackOnly())
		shutdown.POST("/generate-code", GenerateShutdownCode)
		shutdown.POST("/verify", VerifyAndShutdown)
	}

	return r
}
