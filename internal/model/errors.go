package model

import "fmt"

// DataLoadError reports a required input that could not be read or parsed.
// It aborts the run.
type DataLoadError struct {
	Path   string
	Record string // optional record identifier
	Err    error
}

func (e *DataLoadError) Error() string {
	if e.Record != "" {
		return fmt.Sprintf("load %s (record %s): %v", e.Path, e.Record, e.Err)
	}
	return fmt.Sprintf("load %s: %v", e.Path, e.Err)
}

func (e *DataLoadError) Unwrap() error { return e.Err }

// DimensionMismatchError reports an embedding whose length differs from the
// established dimensionality. It aborts the run.
type DimensionMismatchError struct {
	Path string
	ID   string
	Want int
	Got  int
}

func (e *DimensionMismatchError) Error() string {
	return fmt.Sprintf("dimension mismatch in %s for %q: want %d, got %d", e.Path, e.ID, e.Want, e.Got)
}

// SkippedRecord describes an input record or shard that was excluded from
// classification. Skips are aggregated into coverage statistics.
type SkippedRecord struct {
	Path   string `json:"path"`
	ID     string `json:"id,omitempty"`
	Reason string `json:"reason"`
}
