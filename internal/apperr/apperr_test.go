package apperr

import (
	"errors"
	"fmt"
	"net/http"
	"testing"
)

func TestResolve(t *testing.T) {
	var nilErr *Error

	cases := []struct {
		name       string
		err        error
		wantStatus int
		wantMsg    string
	}{
		{"nil", nil, http.StatusInternalServerError, DefaultMessage},
		{"plain error", errors.New("connection refused"), http.StatusInternalServerError, DefaultMessage},
		{"typed", New(http.StatusBadRequest, "bad"), http.StatusBadRequest, "bad"},
		{"wrapped", fmt.Errorf("handler: %w", ErrListingNotFound), http.StatusNotFound, "Listing not found!"},
		{"zero status", &Error{Message: "oops"}, http.StatusInternalServerError, "oops"},
		{"out of range status", &Error{Status: 200, Message: "ok?"}, http.StatusInternalServerError, "ok?"},
		{"empty message", &Error{Status: http.StatusConflict}, http.StatusConflict, DefaultMessage},
		{"typed nil", nilErr, http.StatusInternalServerError, DefaultMessage},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			status, msg := Resolve(tc.err)
			if status != tc.wantStatus || msg != tc.wantMsg {
				t.Fatalf("Resolve() = (%d, %q), want (%d, %q)", status, msg, tc.wantStatus, tc.wantMsg)
			}
		})
	}
}

func TestWellKnownErrors(t *testing.T) {
	if ErrPageNotFound.Status != http.StatusNotFound || ErrPageNotFound.Error() != "Page not found!" {
		t.Fatalf("unexpected ErrPageNotFound: %+v", ErrPageNotFound)
	}
	if ErrTesting.Status != http.StatusBadRequest || ErrTesting.Message != "Testing error" {
		t.Fatalf("unexpected ErrTesting: %+v", ErrTesting)
	}
	if e := BadRequest("x"); e.Status != http.StatusBadRequest {
		t.Fatalf("BadRequest status = %d", e.Status)
	}
}
