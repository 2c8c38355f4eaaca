package http

import (
	"net/http"
	"net/url"

	appauthfilter "github.com/astro-web3/edge-auth-gateway/internal/app/authfilter"
	"github.com/astro-web3/edge-auth-gateway/internal/domain/authfilter"
	"github.com/astro-web3/edge-auth-gateway/pkg/tracer"
	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/otel/attribute"
)

// Headers set by nginx auth_request and Traefik/Caddy forward-auth proxies
// to describe the original request.
var (
	forwardedURIHeaders    = []string{"X-Forwarded-Uri", "X-Original-Uri", "X-Original-Url"}
	forwardedMethodHeaders = []string{"X-Forwarded-Method", "X-Original-Method"}
)

type Handler struct {
	appService appauthfilter.Service
	headerKeys authfilter.HeaderKeys
}

func NewHandler(appService appauthfilter.Service, headerKeys authfilter.HeaderKeys) *Handler {
	return &Handler{
		appService: appService,
		headerKeys: headerKeys,
	}
}

func (h *Handler) evaluate(c *gin.Context, req *authfilter.Request) authfilter.Decision {
	ctx, span := tracer.Start(c.Request.Context(), "transport.http.AuthFilter")
	defer span.End()

	decision := h.appService.Evaluate(ctx, req)
	span.SetAttributes(attribute.String("authfilter.decision", decision.Outcome()))
	return decision
}

// AuthFilter evaluates every proxied request. A rejection aborts the chain
// with an empty body; a forward hands the (possibly header-augmented)
// request to the rest of the chain.
func (h *Handler) AuthFilter() gin.HandlerFunc {
	return func(c *gin.Context) {
		in := authfilter.FromHTTP(c.Request)
		decision := h.evaluate(c, in)

		if !decision.IsForward() {
			c.AbortWithStatus(decision.Status())
			return
		}

		if out := decision.Request(); out != in {
			forwarded := c.Request.Clone(c.Request.Context())
			forwarded.Header = out.Header.Clone()
			c.Request = forwarded
		}

		c.Next()
	}
}

// Check answers forward-auth subrequests: 200 plus identity headers when the
// original request may pass, an empty 401 otherwise.
func (h *Handler) Check(c *gin.Context) {
	req := authfilter.NewRequest(originalMethod(c), originalPath(c), c.Request.Header)
	decision := h.evaluate(c, req)

	if !decision.IsForward() {
		c.AbortWithStatus(decision.Status())
		return
	}

	if out := decision.Request(); out != req {
		for _, key := range []string{h.headerKeys.UserID, h.headerKeys.UserRoles} {
			if values, ok := out.Header[http.CanonicalHeaderKey(key)]; ok && len(values) > 0 {
				c.Header(key, values[0])
			}
		}
	}

	c.Status(http.StatusOK)
}

func originalMethod(c *gin.Context) string {
	for _, name := range forwardedMethodHeaders {
		if m := c.GetHeader(name); m != "" {
			return m
		}
	}
	return c.Request.Method
}

func originalPath(c *gin.Context) string {
	for _, name := range forwardedURIHeaders {
		raw := c.GetHeader(name)
		if raw == "" {
			continue
		}
		if u, err := url.ParseRequestURI(raw); err == nil && u.Path != "" {
			return u.Path
		}
		if u, err := url.Parse(raw); err == nil && u.Path != "" {
			return u.Path
		}
	}
	if path := c.Param("path"); path != "" {
		return path
	}
	return "/"
}
