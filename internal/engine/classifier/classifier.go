package classifier

import (
	"fmt"
	"sort"

	"github.com/crimson-sun/taxodrift/internal/engine/taxonomy"
	"github.com/crimson-sun/taxodrift/internal/engine/vecmath"
	"github.com/crimson-sun/taxodrift/internal/model"
)

// Classifier scores an embedding against taxonomy centroids.
// It holds no mutable state and is safe for concurrent use.
type Classifier struct {
	TopK   int
	Policy Policy
}

// New creates a Classifier that keeps topK ranked matches and buckets the
// best score with the given policy.
func New(topK int, policy Policy) *Classifier {
	return &Classifier{TopK: topK, Policy: policy}
}

// Classify ranks every category for vector and returns the best match with
// its top-K list. The full ranking is kept alongside for analysis.
func (c *Classifier) Classify(vector []float32, tax *taxonomy.Taxonomy) (model.Classification, error) {
	ranked, err := Rank(vector, tax.Labels(), 0)
	if err != nil {
		return model.Classification{}, err
	}
	if len(ranked) == 0 {
		return model.Classification{}, fmt.Errorf("classifier: empty taxonomy")
	}
	topK := ranked
	if c.TopK > 0 && c.TopK < len(ranked) {
		topK = ranked[:c.TopK:c.TopK]
	}
	best := ranked[0]
	return model.Classification{
		Category:   best.Category,
		Name:       best.Name,
		Confidence: best.Score,
		Level:      c.Policy.Level(best.Score),
		TopK:       topK,
		Ranking:    ranked,
	}, nil
}

// Rank computes the cosine similarity of vector against every category and
// returns the first topK sorted by descending score. Equal scores keep the
// categories' input order. topK <= 0 returns every category.
func Rank(vector []float32, categories []model.Category, topK int) ([]model.Score, error) {
	scores := make([]model.Score, len(categories))
	for i, cat := range categories {
		sim, err := vecmath.Cosine(vector, cat.Vector)
		if err != nil {
			return nil, fmt.Errorf("classifier: category %q: %w", cat.Slug, err)
		}
		scores[i] = model.Score{Category: cat.Slug, Name: cat.Name, Score: sim}
	}

	sort.SliceStable(scores, func(i, j int) bool {
		return scores[i].Score > scores[j].Score
	})

	if topK > 0 && topK < len(scores) {
		scores = scores[:topK]
	}
	return scores, nil
}
