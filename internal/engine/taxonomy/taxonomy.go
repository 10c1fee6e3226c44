package taxonomy

import (
	"errors"
	"fmt"
	"log/slog"

	"github.com/crimson-sun/taxodrift/internal/model"
)

// Taxonomy holds the category centroids in their load order. Load order is
// the tie-break order for ranking.
type Taxonomy struct {
	labels []model.Category
	index  map[string]int
	dim    int
}

// New builds a Taxonomy. Every category must share one dimensionality.
// A repeated slug keeps the first occurrence and logs a warning.
func New(categories []model.Category) (*Taxonomy, error) {
	if len(categories) == 0 {
		return nil, errors.New("taxonomy: no categories")
	}

	t := &Taxonomy{
		labels: make([]model.Category, 0, len(categories)),
		index:  make(map[string]int, len(categories)),
		dim:    len(categories[0].Vector),
	}
	if t.dim == 0 {
		return nil, fmt.Errorf("taxonomy: category %q has an empty embedding", categories[0].Slug)
	}

	for _, c := range categories {
		if c.Slug == "" {
			return nil, fmt.Errorf("taxonomy: category %q has an empty slug", c.Name)
		}
		if len(c.Vector) != t.dim {
			return nil, &model.DimensionMismatchError{Path: "taxonomy", ID: c.Slug, Want: t.dim, Got: len(c.Vector)}
		}
		if _, dup := t.index[c.Slug]; dup {
			slog.Warn("duplicate category slug, keeping first", "slug", c.Slug, "name", c.Name)
			continue
		}
		t.index[c.Slug] = len(t.labels)
		t.labels = append(t.labels, c)
	}
	return t, nil
}

// Labels returns the categories in load order. Callers must not modify it.
func (t *Taxonomy) Labels() []model.Category {
	return t.labels
}

// Lookup returns the category with the given slug.
func (t *Taxonomy) Lookup(slug string) (model.Category, bool) {
	i, ok := t.index[slug]
	if !ok {
		return model.Category{}, false
	}
	return t.labels[i], true
}

// Dimension returns the shared embedding length.
func (t *Taxonomy) Dimension() int {
	return t.dim
}

// Len returns the number of categories.
func (t *Taxonomy) Len() int {
	return len(t.labels)
}
