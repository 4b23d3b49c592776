package services

import (
	"errors"

	"github.com/prometheus/client_golang/prometheus"
)

const (
	opCreate = "create"
	opUpdate = "update"
	opDelete = "delete"
)

// listingMutations counts write operations by op and outcome
// ("ok", "not_found", "error").
var listingMutations = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Name: "listings_mutations_total",
		Help: "Listing write operations by operation and outcome.",
	},
	[]string{"op", "outcome"},
)

func init() {
	prometheus.MustRegister(listingMutations)
}

func observeMutation(op string, err error) {
	outcome := "ok"
	switch {
	case errors.Is(err, ErrListingNotFound):
		outcome = "not_found"
	case err != nil:
		outcome = "error"
	}
	listingMutations.WithLabelValues(op, outcome).Inc()
}
