package file

import (
	"context"
	"encoding/json"
	"fmt"
	"path/filepath"
	"strings"
	"unicode"

	"github.com/aretw0/wayfarer/pkg/domain"
)

// Archive implements ports.TripArchive as one JSON file per destination.
// A later trip to the same destination replaces the earlier file.
type Archive struct {
	BasePath string
}

// NewArchive creates an archive rooted at basePath, "trips" by default.
func NewArchive(basePath string) *Archive {
	if basePath == "" {
		basePath = "trips"
	}
	return &Archive{BasePath: basePath}
}

// Path returns the file a trip is written to.
func (a *Archive) Path(trip domain.Trip) string {
	name := slug(trip.Info.Destination)
	if name == "" {
		name = slug(trip.SessionID)
	}
	if name == "" {
		name = "trip"
	}
	return filepath.Join(a.BasePath, name+".json")
}

func (a *Archive) Save(_ context.Context, trip domain.Trip) error {
	data, err := json.MarshalIndent(trip, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal trip: %w", err)
	}
	return writeAtomic(a.Path(trip), data)
}

// slug keeps letters and digits and joins the words with dashes.
func slug(s string) string {
	words := strings.FieldsFunc(strings.ToLower(s), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
	return strings.Join(words, "-")
}
