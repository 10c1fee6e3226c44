// Package corpus loads the category registry, the pattern registry and the
// embedding shards into typed, validated in-memory structures.
package corpus

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"

	"github.com/google/uuid"

	"github.com/crimson-sun/taxodrift/internal/engine/taxonomy"
	"github.com/crimson-sun/taxodrift/internal/model"
)

// fingerprintNamespace scopes corpus fingerprints to this tool.
var fingerprintNamespace = uuid.NewSHA1(uuid.NameSpaceURL, []byte("https://github.com/crimson-sun/taxodrift/corpus"))

// Sources names the three inputs of a run.
type Sources struct {
	Categories    string // category registry file
	Patterns      string // pattern registry file
	EmbeddingsDir string // directory of embedding shards
	ShardGlob     string // doublestar pattern relative to EmbeddingsDir
}

// Skipped aggregates every recoverable load problem.
type Skipped struct {
	Categories []model.SkippedRecord `json:"categories"`
	Patterns   []model.SkippedRecord `json:"patterns"`
	Embeddings []model.SkippedRecord `json:"embeddings"`
	Shards     []model.SkippedRecord `json:"shards"`
}

// Total returns the number of skipped records and shards.
func (s Skipped) Total() int {
	return len(s.Categories) + len(s.Patterns) + len(s.Embeddings) + len(s.Shards)
}

// Corpus is everything a run classifies.
type Corpus struct {
	Taxonomy       *taxonomy.Taxonomy
	Patterns       []model.Pattern
	RegistryExtra  map[string]json.RawMessage // pattern registry fields beside "patterns"
	PatternVectors map[string][]float32
	ExampleVectors map[string][]float32
	ShardsLoaded   int
	Skipped        Skipped
}

// Load reads all three sources. Unparsable registries and dimension
// mismatches are fatal; everything else is recorded in Skipped.
func Load(ctx context.Context, src Sources) (*Corpus, error) {
	cats, skippedCats, err := LoadCategories(src.Categories)
	if err != nil {
		return nil, err
	}
	tax, err := taxonomy.New(cats)
	if err != nil {
		var dimErr *model.DimensionMismatchError
		if errors.As(err, &dimErr) {
			dimErr.Path = src.Categories
			return nil, dimErr
		}
		return nil, &model.DataLoadError{Path: src.Categories, Err: err}
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	reg, err := ReadPatternRegistry(src.Patterns)
	if err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	emb, err := LoadEmbeddings(src.EmbeddingsDir, src.ShardGlob, tax.Dimension())
	if err != nil {
		return nil, err
	}

	c := &Corpus{
		Taxonomy:       tax,
		Patterns:       reg.Patterns,
		RegistryExtra:  reg.Extra,
		PatternVectors: emb.Patterns,
		ExampleVectors: emb.Examples,
		ShardsLoaded:   emb.Shards,
		Skipped: Skipped{
			Categories: skippedCats,
			Patterns:   reg.Skipped,
			Embeddings: emb.Skipped,
			Shards:     emb.Failed,
		},
	}

	slog.Info("corpus loaded",
		"categories", tax.Len(),
		"patterns", len(c.Patterns),
		"examples", c.ExampleCount(),
		"pattern_embeddings", len(c.PatternVectors),
		"example_embeddings", len(c.ExampleVectors),
		"shards", c.ShardsLoaded,
		"failed_shards", len(c.Skipped.Shards),
		"dimension", tax.Dimension(),
	)
	return c, nil
}

// ExampleCount returns the number of examples across all patterns.
func (c *Corpus) ExampleCount() int {
	n := 0
	for i := range c.Patterns {
		n += len(c.Patterns[i].Examples)
	}
	return n
}

// Fingerprint identifies the corpus shape (taxonomy, pattern and example ids,
// dimensionality) with a name-based UUID. It does not depend on embedding
// values, so re-embedding the same corpus keeps its fingerprint.
func (c *Corpus) Fingerprint() string {
	var b strings.Builder
	b.WriteString("dim=")
	b.WriteString(strconv.Itoa(c.Taxonomy.Dimension()))
	b.WriteByte('\n')
	for _, cat := range c.Taxonomy.Labels() {
		fmt.Fprintf(&b, "c:%s\n", cat.Slug)
	}
	for _, p := range c.Patterns {
		fmt.Fprintf(&b, "p:%s\n", p.ID)
		for _, ex := range p.Examples {
			fmt.Fprintf(&b, "e:%s\n", ex.ID)
		}
	}
	return uuid.NewSHA1(fingerprintNamespace, []byte(b.String())).String()
}
