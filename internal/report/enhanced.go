package report

import (
	"encoding/json"
	"sort"

	"github.com/crimson-sun/taxodrift/internal/engine"
	"github.com/crimson-sun/taxodrift/internal/model"
)

// EnhancedPattern is one entry of the enhanced corpus: the registry record
// with its classification attached. The label found in the registry moves
// to original_category; category holds the new best match when there is one.
type EnhancedPattern struct {
	ID               string
	Name             string // empty when the record only had a title
	Category         string
	OriginalCategory string
	Classification   *model.Classification
	Examples         []EnhancedExample
	RawExamples      json.RawMessage // replaces Examples when the registry's value was not an array
	Extra            map[string]json.RawMessage
}

// EnhancedExample is an example with its own classification. Raw holds an
// entry that could not be read; it is written back unchanged.
type EnhancedExample struct {
	ID             string
	Content        string
	Classification *model.Classification
	Extra          map[string]json.RawMessage
	Raw            json.RawMessage
}

// Enhance builds the enhanced corpus copy in registry order. The input
// records are not modified. Unreadable example entries keep their position.
func Enhance(res *engine.Result) []EnhancedPattern {
	out := make([]EnhancedPattern, 0, len(res.Patterns))
	for _, ap := range res.Patterns {
		p := ap.Pattern
		ep := EnhancedPattern{
			ID:               p.ID,
			Category:         p.OriginalCategory,
			OriginalCategory: p.OriginalCategory,
			Classification:   ap.Classification,
			RawExamples:      p.RawExamples,
			Extra:            p.Extra,
			Examples:         make([]EnhancedExample, 0, len(ap.Examples)+len(p.Unparsed)),
		}
		if !p.NameFromTitle {
			ep.Name = p.Name
		}
		if ap.Classification != nil {
			ep.Category = ap.Classification.Category
		}

		unparsed := make([]int, 0, len(p.Unparsed))
		for i := range p.Unparsed {
			unparsed = append(unparsed, i)
		}
		sort.Ints(unparsed)

		for _, ae := range ap.Examples {
			for len(unparsed) > 0 && unparsed[0] < ae.Example.Index {
				ep.Examples = append(ep.Examples, EnhancedExample{Raw: p.Unparsed[unparsed[0]]})
				unparsed = unparsed[1:]
			}
			ep.Examples = append(ep.Examples, EnhancedExample{
				ID:             ae.Example.ID,
				Content:        ae.Example.Content,
				Classification: ae.Classification,
				Extra:          ae.Example.Extra,
			})
		}
		for _, i := range unparsed {
			ep.Examples = append(ep.Examples, EnhancedExample{Raw: p.Unparsed[i]})
		}
		out = append(out, ep)
	}
	return out
}

// MarshalJSON merges the preserved registry fields with the annotated ones.
// Keys are emitted in sorted order, so output is stable.
func (p EnhancedPattern) MarshalJSON() ([]byte, error) {
	m := make(map[string]any, len(p.Extra)+6)
	for k, v := range p.Extra {
		m[k] = v
	}
	m["id"] = p.ID
	if p.Name != "" {
		m["name"] = p.Name
	}
	m["category"] = p.Category
	m["original_category"] = p.OriginalCategory
	if p.RawExamples != nil {
		m["examples"] = p.RawExamples
	} else {
		m["examples"] = p.Examples
	}
	if p.Classification != nil {
		m["semantic_classification"] = p.Classification
	}
	return json.Marshal(m)
}

// MarshalJSON merges the preserved example fields with the annotation.
func (e EnhancedExample) MarshalJSON() ([]byte, error) {
	if e.Raw != nil {
		return e.Raw, nil
	}
	m := make(map[string]any, len(e.Extra)+3)
	for k, v := range e.Extra {
		m[k] = v
	}
	m["id"] = e.ID
	m["content"] = e.Content
	if e.Classification != nil {
		m["semantic_classification"] = e.Classification
	}
	return json.Marshal(m)
}

// EnhancedCorpus is the serialized shape of the enhanced copy. Extra holds
// the pattern registry's own top-level fields, written back beside
// corpus_id and patterns.
type EnhancedCorpus struct {
	CorpusID string                     `json:"corpus_id"`
	Patterns []EnhancedPattern          `json:"patterns"`
	Extra    map[string]json.RawMessage `json:"-"`
}

// MarshalJSON merges the registry's top-level fields with the annotated ones.
func (c EnhancedCorpus) MarshalJSON() ([]byte, error) {
	m := make(map[string]any, len(c.Extra)+2)
	for k, v := range c.Extra {
		m[k] = v
	}
	m["corpus_id"] = c.CorpusID
	patterns := c.Patterns
	if patterns == nil {
		patterns = []EnhancedPattern{}
	}
	m["patterns"] = patterns
	return json.Marshal(m)
}
