// Package grocery holds the categorized shopping list.
//
// A Store is created once per process and handed to whatever needs it; there
// is no package-level instance. Items are only ever appended.
package grocery

import (
	"strings"
	"sync"

	"github.com/m4xw311/grocer/errors"
)

type Category string

const (
	Fruits     Category = "fruits"
	Vegetables Category = "vegetables"
)

// Categories lists every recognized category in display order.
var Categories = []Category{Fruits, Vegetables}

var (
	ErrUnknownCategory = errors.Sentinel("unknown category")
	ErrEmptyItem       = errors.Sentinel("item must not be empty")
)

// ParseCategory maps a raw category name to a Category. Matching is exact;
// callers normalize case beforehand if they want to be lenient.
func ParseCategory(s string) (Category, error) {
	switch Category(s) {
	case Fruits, Vegetables:
		return Category(s), nil
	}
	return "", errors.Wrapf(ErrUnknownCategory, "%q is not one of %v", s, Categories)
}

// Normalize lower-cases an item name and trims surrounding whitespace.
func Normalize(item string) string {
	return strings.ToLower(strings.TrimSpace(item))
}

// Snapshot is a copy of the list taken at one instant.
type Snapshot struct {
	Fruits     []string `json:"fruits"`
	Vegetables []string `json:"vegetables"`
}

// Len returns the number of items across both categories.
func (s Snapshot) Len() int { return len(s.Fruits) + len(s.Vegetables) }

// Store is safe for concurrent use. Each Add is atomic with respect to Retrieve.
type Store struct {
	mu         sync.Mutex
	fruits     []string
	vegetables []string
}

func NewStore() *Store {
	return &Store{}
}

// Add appends the normalized item to the sequence for category.
// Duplicates are kept.
func (s *Store) Add(category Category, item string) error {
	normalized := Normalize(item)
	if normalized == "" {
		return ErrEmptyItem
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	switch category {
	case Fruits:
		s.fruits = append(s.fruits, normalized)
	case Vegetables:
		s.vegetables = append(s.vegetables, normalized)
	default:
		return errors.Wrapf(ErrUnknownCategory, "cannot add %q to %q", normalized, category)
	}
	return nil
}

// Retrieve returns a copy of both sequences. Empty categories come back as
// empty, non-nil slices so they encode as [] rather than null.
func (s *Store) Retrieve() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return Snapshot{
		Fruits:     append(make([]string, 0, len(s.fruits)), s.fruits...),
		Vegetables: append(make([]string, 0, len(s.vegetables)), s.vegetables...),
	}
}
