package http

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
)

type RouterOptions struct {
	Mode           string
	TraceEnabled   bool
	CheckPath      string
	MetricsHandler http.Handler
}

// NewRouter wires the middleware chain. Recovery, tracing, request id and
// access logging only observe; the auth filter is the first handler that
// acts on a proxied request, ahead of the upstream proxy.
func NewRouter(handler *Handler, upstream gin.HandlerFunc, opts RouterOptions) *gin.Engine {
	if opts.Mode == "release" {
		gin.SetMode(gin.ReleaseMode)
	} else if opts.Mode == "test" {
		gin.SetMode(gin.TestMode)
	} else {
		gin.SetMode(gin.DebugMode)
	}

	router := gin.New()

	router.Use(gin.Recovery())
	if opts.TraceEnabled {
		router.Use(otelgin.Middleware(serviceName))
	}
	router.Use(requestIDMiddleware())
	router.Use(loggingMiddleware())

	router.GET("/healthz", func(c *gin.Context) {
		c.String(http.StatusOK, "ok")
	})

	if opts.MetricsHandler != nil {
		router.GET("/metrics", gin.WrapH(opts.MetricsHandler))
	}

	if opts.CheckPath != "" {
		router.Any(opts.CheckPath, handler.Check)
		router.Any(opts.CheckPath+"/*path", handler.Check)
	}

	router.NoRoute(handler.AuthFilter(), upstream)

	return router
}
