package tracing

import (
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

const (
	AttrHTTPMethod = "http.method"
	AttrHTTPRoute  = "http.route"
	AttrHTTPStatus = "http.status_code"
	AttrCaller     = "klunkaz.caller"
)

// Middleware opens a server span for every request. A nil tracer disables it.
func Middleware(tracer trace.Tracer) gin.HandlerFunc {
	if tracer == nil {
		return func(c *gin.Context) { c.Next() }
	}
	return func(c *gin.Context) {
		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}
		ctx, span := tracer.Start(c.Request.Context(), fmt.Sprintf("%s %s", c.Request.Method, route),
			trace.WithSpanKind(trace.SpanKindServer),
		)
		defer span.End()

		c.Request = c.Request.WithContext(ctx)
		c.Next()

		status := c.Writer.Status()
		span.SetAttributes(
			attribute.String(AttrHTTPMethod, c.Request.Method),
			attribute.String(AttrHTTPRoute, route),
			attribute.Int(AttrHTTPStatus, status),
		)
		if caller, ok := c.Get("caller"); ok {
			span.SetAttributes(attribute.String(AttrCaller, fmt.Sprint(caller)))
		}
		if len(c.Errors) > 0 {
			span.RecordError(c.Errors.Last())
		}
		if status >= http.StatusInternalServerError {
			span.SetStatus(codes.Error, http.StatusText(status))
		} else {
			span.SetStatus(codes.Ok, "")
		}
	}
}
