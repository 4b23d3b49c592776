// Package seed loads sample listings and writes them into a store, either
// only when the store is empty (startup) or after wiping it (reset).
//
// Sample data is a list of listing payloads in the same shape a client would
// submit, so every item passes through the validation gate before it is
// stored.
package seed

import (
	"context"
	_ "embed"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
	"gopkg.in/yaml.v3"

	"github.com/tbourn/go-listings/internal/domain"
	"github.com/tbourn/go-listings/internal/services"
	"github.com/tbourn/go-listings/internal/validation"
)

//go:embed data.json
var sampleData []byte

// Load reads seed payloads from path. An empty path selects the embedded
// sample data. Files ending in .yaml or .yml are parsed as YAML, anything else
// as JSON.
func Load(path string) ([]map[string]any, error) {
	if path == "" {
		return decodeJSON(sampleData)
	}
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("seed: read %s: %w", path, err)
	}
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		var out []map[string]any
		if err := yaml.Unmarshal(b, &out); err != nil {
			return nil, fmt.Errorf("seed: parse %s: %w", path, err)
		}
		return out, nil
	default:
		out, err := decodeJSON(b)
		if err != nil {
			return nil, fmt.Errorf("seed: parse %s: %w", path, err)
		}
		return out, nil
	}
}

func decodeJSON(b []byte) ([]map[string]any, error) {
	var out []map[string]any
	if err := json.Unmarshal(b, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// Build validates each payload and turns it into an unsaved listing stamped
// with now. The first invalid item aborts the build.
func Build(gate *validation.Gate, items []map[string]any, now time.Time) ([]*domain.Listing, error) {
	out := make([]*domain.Listing, 0, len(items))
	for i, raw := range items {
		if raw == nil {
			raw = map[string]any{}
		}
		in, err := gate.Listing(raw)
		if err != nil {
			return nil, fmt.Errorf("seed: item %d: %w", i, err)
		}
		l := domain.NewListing(in)
		l.CreatedAt, l.UpdatedAt = now, now
		out = append(out, l)
	}
	return out, nil
}

// EnsureSeeded inserts ls only when the store holds no listings. It reports
// how many listings were inserted.
func EnsureSeeded(ctx context.Context, repo services.ListingRepo, ls []*domain.Listing) (int, error) {
	n, err := repo.Count(ctx)
	if err != nil {
		return 0, fmt.Errorf("seed: count: %w", err)
	}
	if n > 0 {
		log.Debug().Int64("existing", n).Msg("seed skipped; store not empty")
		return 0, nil
	}
	if err := repo.InsertMany(ctx, ls); err != nil {
		return 0, fmt.Errorf("seed: insert: %w", err)
	}
	log.Info().Int("inserted", len(ls)).Msg("seeded sample listings")
	return len(ls), nil
}

// Reset deletes every listing and then inserts ls.
func Reset(ctx context.Context, repo services.ListingRepo, ls []*domain.Listing) (int, error) {
	removed, err := repo.DeleteAll(ctx)
	if err != nil {
		return 0, fmt.Errorf("seed: delete all: %w", err)
	}
	if err := repo.InsertMany(ctx, ls); err != nil {
		return 0, fmt.Errorf("seed: insert: %w", err)
	}
	log.Info().Int64("removed", removed).Int("inserted", len(ls)).Msg("listings reset to sample data")
	return len(ls), nil
}
