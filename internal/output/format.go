package output

import (
	"fmt"
	"strings"

	"github.com/crimson-sun/taxodrift/internal/engine/drift"
	"github.com/crimson-sun/taxodrift/internal/report"
)

// Verbosity controls how much of the report a destination renders.
type Verbosity int

const (
	Minimal  Verbosity = iota // aggregates only, no per-item lists
	Standard                  // aggregates plus capped lists
	Full                      // everything
)

func (v Verbosity) String() string {
	switch v {
	case Minimal:
		return "minimal"
	case Standard:
		return "standard"
	case Full:
		return "full"
	default:
		return fmt.Sprintf("verbosity(%d)", int(v))
	}
}

// ParseVerbosity converts "minimal", "standard" or "full" to a Verbosity.
func ParseVerbosity(s string) (Verbosity, error) {
	switch strings.ToLower(s) {
	case "minimal":
		return Minimal, nil
	case "", "standard":
		return Standard, nil
	case "full":
		return Full, nil
	default:
		return Standard, fmt.Errorf("output: unknown verbosity %q", s)
	}
}

// FormatReport returns the view of r a destination at verbosity v renders.
// Standard caps every list at limit; Minimal drops the lists entirely.
// The input is never modified.
func FormatReport(r *report.Report, v Verbosity, limit int) *report.Report {
	switch v {
	case Full:
		return r
	case Minimal:
		cp := *r
		cp.Recommendations.Recategorize = []drift.Recategorization{}
		cp.Recommendations.LowConfidence = []drift.LowConfidence{}
		cp.Recommendations.MultiCategory = []drift.MultiCategory{}
		cp.Mismatches = []drift.Mismatch{}
		cp.Transitions = []drift.Transition{}
		return &cp
	default:
		return report.Preview(r, limit)
	}
}
