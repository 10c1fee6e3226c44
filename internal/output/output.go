package output

import (
	"context"

	"github.com/crimson-sun/taxodrift/internal/report"
)

// Artifacts is everything one run produces.
type Artifacts struct {
	Report   *report.Report
	Enhanced *report.EnhancedCorpus
}

// Output defines the interface for run artifact destinations.
type Output interface {
	Write(ctx context.Context, a Artifacts) error
	Close() error
}
