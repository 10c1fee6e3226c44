package model

import (
	"encoding/json"
	"fmt"
)

// Pattern is a corpus entry as produced by the upstream extraction pipeline.
// The engine treats it as read-only.
type Pattern struct {
	ID               string
	Name             string
	OriginalCategory string // label as found in the registry, never overwritten
	OriginalSlug     string // OriginalCategory run through taxonomy.Slug
	Examples         []Example
	Extra            map[string]json.RawMessage // unrecognized fields, round-tripped
	NameFromTitle    bool                       // Name was read from "title"; the record has no "name"

	// Registry content that could not be read but is carried into the
	// enhanced copy unchanged.
	Unparsed    map[int]json.RawMessage // example entries by position
	RawExamples json.RawMessage         // "examples" when it is not an array
}

// Example is owned by exactly one Pattern.
type Example struct {
	ID      string
	Index   int // position in the registry's examples array
	Content string
	Extra   map[string]json.RawMessage
}

// ExampleID derives an example identifier from its parent pattern.
func ExampleID(patternID string, index int) string {
	return fmt.Sprintf("%s-%d", patternID, index)
}

// PatternState tracks how far categorization got for a pattern.
type PatternState int

const (
	Unclassified PatternState = iota
	PatternClassified
	ExamplesClassified
	Annotated
)

func (s PatternState) String() string {
	switch s {
	case PatternClassified:
		return "pattern_classified"
	case ExamplesClassified:
		return "examples_classified"
	case Annotated:
		return "annotated"
	default:
		return "unclassified"
	}
}

// AnnotatedExample pairs an example with its classification.
// Classification is nil when the example had no embedding.
type AnnotatedExample struct {
	Example        *Example
	Classification *Classification
}

// AnnotatedPattern pairs a pattern with its own classification and the
// classifications of its examples.
type AnnotatedPattern struct {
	Pattern        *Pattern
	State          PatternState
	Classification *Classification
	Examples       []AnnotatedExample
}
