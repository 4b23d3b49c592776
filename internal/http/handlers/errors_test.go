package handlers

import (
	"bytes"
	"errors"
	"net/http"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/tbourn/go-listings/internal/apperr"
	"github.com/tbourn/go-listings/internal/http/middleware"
	"github.com/tbourn/go-listings/internal/http/views"
)

func boundaryEngine(buf *bytes.Buffer) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.SetHTMLTemplate(views.Must())
	if buf != nil {
		lg := zerolog.New(buf).Level(zerolog.DebugLevel)
		r.Use(func(c *gin.Context) {
			c.Set("logger", &lg)
			c.Next()
		})
	}
	r.Use(ErrorBoundary(), middleware.Recovery())
	return r
}

func TestErrorBoundary_PassThrough(t *testing.T) {
	r := boundaryEngine(nil)
	r.GET("/ok", func(c *gin.Context) { c.String(http.StatusOK, "fine") })

	w := do(r, http.MethodGet, "/ok", "", "")
	if w.Code != http.StatusOK || w.Body.String() != "fine" {
		t.Fatalf("got %d %q", w.Code, w.Body.String())
	}
}

func TestErrorBoundary_ResolvesStatusAndMessage(t *testing.T) {
	var buf bytes.Buffer
	r := boundaryEngine(&buf)
	r.GET("/teapot", func(c *gin.Context) { abortWith(c, apperr.New(http.StatusTeapot, "short and stout")) })
	r.GET("/plain", func(c *gin.Context) { abortWith(c, errors.New("pq: relation does not exist")) })
	r.GET("/wrapped", func(c *gin.Context) {
		abortWith(c, errors.Join(errors.New("ctx"), apperr.ErrListingNotFound))
	})

	expectPage(t, do(r, http.MethodGet, "/teapot", "", ""), http.StatusTeapot, "418", "short and stout")

	w := do(r, http.MethodGet, "/plain", "", "")
	expectPage(t, w, http.StatusInternalServerError, "Something went wrong!")
	if strings.Contains(w.Body.String(), "relation") {
		t.Fatalf("raw error leaked: %s", w.Body.String())
	}

	expectPage(t, do(r, http.MethodGet, "/wrapped", "", ""), http.StatusNotFound, "Listing not found!")

	logs := buf.String()
	if !strings.Contains(logs, `"level":"error"`) || !strings.Contains(logs, "pq: relation does not exist") {
		t.Fatalf("5xx must be logged with the original error:\n%s", logs)
	}
	if !strings.Contains(logs, `"level":"debug"`) {
		t.Fatalf("4xx should be logged at debug:\n%s", logs)
	}
}

func TestErrorBoundary_RendersRecoveredPanic(t *testing.T) {
	r := boundaryEngine(nil)
	r.GET("/panic", func(c *gin.Context) { panic("nil map write") })

	w := do(r, http.MethodGet, "/panic", "", "")
	expectPage(t, w, http.StatusInternalServerError, "Something went wrong!")
	if strings.Contains(w.Body.String(), "nil map") {
		t.Fatalf("panic value leaked: %s", w.Body.String())
	}
}

func TestErrorBoundary_DoesNotRewriteStartedResponse(t *testing.T) {
	r := boundaryEngine(nil)
	r.GET("/late", func(c *gin.Context) {
		c.String(http.StatusOK, "partial")
		abortWith(c, errors.New("late failure"))
	})

	w := do(r, http.MethodGet, "/late", "", "")
	if w.Code != http.StatusOK || w.Body.String() != "partial" {
		t.Fatalf("got %d %q", w.Code, w.Body.String())
	}
}
