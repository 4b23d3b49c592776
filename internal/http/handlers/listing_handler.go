// Listing HTTP handlers.
//
// Routes:
//   - GET    /                    (acknowledgement text)
//   - GET    /listings            (index)
//   - GET    /listings/new        (creation form)
//   - POST   /listings            (create, validated)
//   - GET    /listings/:id        (detail)
//   - GET    /listings/:id/edit   (edit form)
//   - PUT    /listings/:id        (update, validated; PATCH too)
//   - DELETE /listings/:id        (delete)
//   - GET    /testerror           (always 400)
//   - NoRoute                     (always 404)
//
// Handlers are transport-thin: they call the listing service and render or
// redirect. Every failure goes through abortWith to the error boundary.
package handlers

import (
	"context"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/tbourn/go-listings/internal/apperr"
	"github.com/tbourn/go-listings/internal/domain"
	"github.com/tbourn/go-listings/internal/http/views"
	"github.com/tbourn/go-listings/internal/services"
	"github.com/tbourn/go-listings/internal/validation"
)

// HomeText is the body of GET /.
const HomeText = "HII, it's working!"

// inputKey is the Gin context key under which ValidateListing stores the
// decoded payload.
const inputKey = "listingInput"

// ListingService defines the listing operations consumed by the handlers.
//
// Implementations must be safe for concurrent use and honor ctx.
type ListingService interface {
	// FindAll returns every listing.
	FindAll(ctx context.Context) ([]domain.Listing, error)
	// FindByID returns the listing or nil when absent.
	FindByID(ctx context.Context, id string) (*domain.Listing, error)
	// Create persists a listing built from in.
	Create(ctx context.Context, in domain.ListingInput) (*domain.Listing, error)
	// Update merges in over listing id; services.ErrListingNotFound when absent.
	Update(ctx context.Context, id string, in domain.ListingInput) (*domain.Listing, error)
	// DeleteByID removes the listing and returns it, or nil when absent.
	DeleteByID(ctx context.Context, id string) (*domain.Listing, error)
}

// Handlers groups the listing endpoints.
type Handlers struct {
	svc  ListingService
	gate *validation.Gate
}

// New constructs Handlers bound to svc, validating payloads with gate.
func New(svc ListingService, gate *validation.Gate) *Handlers {
	return &Handlers{svc: svc, gate: gate}
}

// ValidateListing runs the validation gate on the request body and stores the
// decoded input for the next handler. Invalid payloads never reach the
// service.
func (h *Handlers) ValidateListing(c *gin.Context) {
	raw, err := listingPayload(c)
	if err != nil {
		abortWith(c, err)
		return
	}
	in, err := h.gate.Listing(raw)
	if err != nil {
		abortWith(c, err)
		return
	}
	c.Set(inputKey, in)
	c.Next()
}

func validatedInput(c *gin.Context) (domain.ListingInput, bool) {
	v, ok := c.Get(inputKey)
	if !ok {
		return domain.ListingInput{}, false
	}
	in, ok := v.(domain.ListingInput)
	return in, ok
}

// notFound maps the service's absence sentinel to the user-facing 404.
func notFound(err error) error {
	if errors.Is(err, services.ErrListingNotFound) {
		return apperr.ErrListingNotFound
	}
	return err
}

// Home answers GET / with a plain acknowledgement.
func (h *Handlers) Home(c *gin.Context) {
	c.String(http.StatusOK, HomeText)
}

// ListListings renders every listing.
func (h *Handlers) ListListings(c *gin.Context) {
	all, err := h.svc.FindAll(c.Request.Context())
	if err != nil {
		abortWith(c, err)
		return
	}
	render(c, http.StatusOK, views.ListingsIndex, gin.H{
		"PageTitle": "All Listings",
		"Listings":  all,
	})
}

// NewListingForm renders the empty creation form.
func (h *Handlers) NewListingForm(c *gin.Context) {
	render(c, http.StatusOK, views.ListingsNew, gin.H{"PageTitle": "New Listing"})
}

// CreateListing persists the validated payload and redirects to the index.
func (h *Handlers) CreateListing(c *gin.Context) {
	in, ok := validatedInput(c)
	if !ok {
		abortWith(c, errors.New("create listing: validated input missing"))
		return
	}
	if _, err := h.svc.Create(c.Request.Context(), in); err != nil {
		abortWith(c, err)
		return
	}
	seeOther(c, "/listings")
}

// ShowListing renders one listing or 404.
func (h *Handlers) ShowListing(c *gin.Context) {
	l, ok := h.load(c)
	if !ok {
		return
	}
	render(c, http.StatusOK, views.ListingsShow, gin.H{"PageTitle": l.Title, "Listing": l})
}

// EditListingForm renders the edit form pre-filled, or 404.
func (h *Handlers) EditListingForm(c *gin.Context) {
	l, ok := h.load(c)
	if !ok {
		return
	}
	render(c, http.StatusOK, views.ListingsEdit, gin.H{"PageTitle": "Edit " + l.Title, "Listing": l})
}

// UpdateListing merges the validated payload into the listing and redirects
// to its detail page.
func (h *Handlers) UpdateListing(c *gin.Context) {
	in, ok := validatedInput(c)
	if !ok {
		abortWith(c, errors.New("update listing: validated input missing"))
		return
	}
	id := c.Param("id")
	if _, err := h.svc.Update(c.Request.Context(), id, in); err != nil {
		abortWith(c, notFound(err))
		return
	}
	seeOther(c, "/listings/"+id)
}

// DeleteListing removes the listing and redirects to the index, or 404.
func (h *Handlers) DeleteListing(c *gin.Context) {
	l, err := h.svc.DeleteByID(c.Request.Context(), c.Param("id"))
	if err != nil {
		abortWith(c, err)
		return
	}
	if l == nil {
		abortWith(c, apperr.ErrListingNotFound)
		return
	}
	seeOther(c, "/listings")
}

// TestError always fails with the 400 test error.
func (h *Handlers) TestError(c *gin.Context) {
	abortWith(c, apperr.ErrTesting)
}

// NotFound is the catch-all for unmatched paths and methods.
func (h *Handlers) NotFound(c *gin.Context) {
	abortWith(c, apperr.ErrPageNotFound)
}

// load fetches the :id listing, aborting with 404 when it does not exist.
func (h *Handlers) load(c *gin.Context) (*domain.Listing, bool) {
	l, err := h.svc.FindByID(c.Request.Context(), c.Param("id"))
	if err != nil {
		abortWith(c, err)
		return nil, false
	}
	if l == nil {
		abortWith(c, apperr.ErrListingNotFound)
		return nil, false
	}
	return l, true
}
