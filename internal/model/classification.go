package model

// ConfidenceLevel is a bucketed confidence.
type ConfidenceLevel string

const (
	ConfidenceHigh   ConfidenceLevel = "high"
	ConfidenceMedium ConfidenceLevel = "medium"
	ConfidenceLow    ConfidenceLevel = "low"
)

// Score is one (category, similarity) pair.
type Score struct {
	Category string  `json:"category"`
	Name     string  `json:"name"`
	Score    float64 `json:"score"`
}

// Classification is the result of scoring one embedding against every
// category. It is not mutated after construction.
type Classification struct {
	Category   string          `json:"category"`
	Name       string          `json:"name"`
	Confidence float64         `json:"confidence"`
	Level      ConfidenceLevel `json:"confidence_level"`
	TopK       []Score         `json:"top_matches"`
	Ranking    []Score         `json:"-"` // every category, best first; TopK is a prefix
}

// Scores returns the full ranking when present, else the top-K list.
func (c *Classification) Scores() []Score {
	if c.Ranking != nil {
		return c.Ranking
	}
	return c.TopK
}
