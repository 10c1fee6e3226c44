package classifier

import (
	"fmt"
	"strings"

	"github.com/crimson-sun/taxodrift/internal/model"
)

// Policy buckets a best-match score into high, medium or low confidence.
// Thresholds are fixed per policy, never derived from the data.
type Policy struct {
	Name   string  `json:"name"`
	High   float64 `json:"high"`   // score >= High is high
	Medium float64 `json:"medium"` // Medium <= score < High is medium
}

// Named policies used by the two report types.
var (
	// PolicyStrict backs the analysis report: high >= 0.8, medium 0.6-0.8.
	PolicyStrict = Policy{Name: "strict", High: 0.8, Medium: 0.6}
	// PolicyRelaxed backs the enhanced corpus annotations: high >= 0.7, low < 0.6.
	PolicyRelaxed = Policy{Name: "relaxed", High: 0.7, Medium: 0.6}
)

// Level returns the confidence bucket for score.
func (p Policy) Level(score float64) model.ConfidenceLevel {
	switch {
	case score >= p.High:
		return model.ConfidenceHigh
	case score >= p.Medium:
		return model.ConfidenceMedium
	default:
		return model.ConfidenceLow
	}
}

// Validate checks that the thresholds are ordered.
func (p Policy) Validate() error {
	if p.Medium > p.High {
		return fmt.Errorf("policy %q: medium threshold %.3f above high threshold %.3f", p.Name, p.Medium, p.High)
	}
	return nil
}

// PolicyByName resolves "strict" or "relaxed".
func PolicyByName(name string) (Policy, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "strict":
		return PolicyStrict, nil
	case "relaxed":
		return PolicyRelaxed, nil
	default:
		return Policy{}, fmt.Errorf("unknown confidence policy %q", name)
	}
}
