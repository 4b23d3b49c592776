// Package handlers implements the listings site's request handlers and the
// error boundary that renders every failure.
//
// This file holds ErrorBoundary, the only place that writes an error
// response. Handlers and middleware record failures with c.Error and abort;
// the boundary resolves the last recorded error to a status and a message
// (see apperr.Resolve) and renders the "error" view.
//
// Conventions:
//   - *apperr.Error values carry their own status and user-facing message.
//   - Anything else (driver errors, recovered panics) becomes a 500 with the
//     generic message; the original error is logged, never shown.
package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/tbourn/go-listings/internal/apperr"
	"github.com/tbourn/go-listings/internal/http/middleware"
	"github.com/tbourn/go-listings/internal/http/views"
)

// ErrorBoundary renders the error view for requests that ended with a
// recorded error. Install it before every handler that may fail, including
// middleware.Recovery.
func ErrorBoundary() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		last := c.Errors.Last()
		if last == nil {
			return
		}

		status, msg := apperr.Resolve(last.Err)
		lg := middleware.LoggerFrom(c)
		if status >= http.StatusInternalServerError {
			lg.Error().Err(last.Err).Int("status", status).Msg("request failed")
			span := trace.SpanFromContext(c.Request.Context())
			span.RecordError(last.Err)
			span.SetStatus(codes.Error, msg)
		} else {
			lg.Debug().Err(last.Err).Int("status", status).Msg("request rejected")
		}

		// A handler that already started the body cannot be answered again.
		if c.Writer.Written() {
			return
		}
		render(c, status, views.Error, gin.H{
			"PageTitle": "Error",
			"Status":    status,
			"Message":   msg,
		})
	}
}
