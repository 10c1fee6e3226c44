package corpus

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"

	"github.com/crimson-sun/taxodrift/internal/engine/taxonomy"
	"github.com/crimson-sun/taxodrift/internal/model"
)

// Registry fields the loader interprets. Everything else is kept in Extra.
var knownPatternFields = map[string]bool{
	"id":                      true,
	"name":                    true,
	"category":                true,
	"original_category":       true,
	"examples":                true,
	"semantic_classification": true,
}

var knownExampleFields = map[string]bool{
	"id":                      true,
	"content":                 true,
	"text":                    true,
	"semantic_classification": true,
}

// PatternRegistry is a parsed pattern registry.
type PatternRegistry struct {
	Patterns []model.Pattern
	Skipped  []model.SkippedRecord
	Extra    map[string]json.RawMessage // top-level fields beside "patterns"
}

// LoadPatterns reads the pattern registry at path and returns its patterns
// and skipped records. See ReadPatternRegistry.
func LoadPatterns(path string) ([]model.Pattern, []model.SkippedRecord, error) {
	reg, err := ReadPatternRegistry(path)
	if err != nil {
		return nil, nil, err
	}
	return reg.Patterns, reg.Skipped, nil
}

// ReadPatternRegistry reads the pattern registry at path. The registry is
// either a JSON array of pattern records or an object with a "patterns"
// array. A file that does not parse is fatal. Individual records without an
// id, or that are not objects, are skipped and reported.
func ReadPatternRegistry(path string) (*PatternRegistry, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, &model.DataLoadError{Path: path, Err: err}
	}

	records, extra, err := patternRecords(data)
	if err != nil {
		return nil, &model.DataLoadError{Path: path, Err: err}
	}

	reg := &PatternRegistry{Extra: extra}
	seen := make(map[string]bool, len(records))
	skip := func(id, reason string, index int) {
		slog.Warn("skipping pattern record", "path", path, "index", index, "id", id, "reason", reason)
		reg.Skipped = append(reg.Skipped, model.SkippedRecord{Path: path, ID: id, Reason: reason})
	}

	for i, rec := range records {
		var fields map[string]json.RawMessage
		if err := json.Unmarshal(rec, &fields); err != nil || fields == nil {
			skip("", "record is not an object", i)
			continue
		}

		id := stringField(fields, "id")
		if id == "" {
			skip("", "missing id", i)
			continue
		}
		if seen[id] {
			skip(id, "duplicate id", i)
			continue
		}
		seen[id] = true

		p, exSkipped := buildPattern(path, id, fields)
		reg.Skipped = append(reg.Skipped, exSkipped...)
		reg.Patterns = append(reg.Patterns, p)
	}
	return reg, nil
}

func patternRecords(data []byte) ([]json.RawMessage, map[string]json.RawMessage, error) {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) > 0 && trimmed[0] == '[' {
		var records []json.RawMessage
		if err := json.Unmarshal(trimmed, &records); err != nil {
			return nil, nil, err
		}
		return records, nil, nil
	}

	var top map[string]json.RawMessage
	if err := json.Unmarshal(trimmed, &top); err != nil {
		return nil, nil, err
	}
	raw, ok := top["patterns"]
	if !ok || isNull(raw) {
		return nil, nil, errors.New(`missing top-level "patterns" key`)
	}
	var records []json.RawMessage
	if err := json.Unmarshal(raw, &records); err != nil {
		return nil, nil, fmt.Errorf(`"patterns": %w`, err)
	}
	delete(top, "patterns")
	if len(top) == 0 {
		top = nil
	}
	return records, top, nil
}

func buildPattern(path, id string, fields map[string]json.RawMessage) (model.Pattern, []model.SkippedRecord) {
	p := model.Pattern{
		ID:   id,
		Name: stringField(fields, "name"),
	}
	if p.Name == "" {
		p.Name = stringField(fields, "title")
		p.NameFromTitle = p.Name != ""
	}

	// An earlier enhanced copy already carries the provenance label.
	p.OriginalCategory = stringField(fields, "original_category")
	if p.OriginalCategory == "" {
		p.OriginalCategory = stringField(fields, "category")
	}
	p.OriginalSlug = taxonomy.Slug(p.OriginalCategory)

	for k, v := range fields {
		if knownPatternFields[k] {
			continue
		}
		if p.Extra == nil {
			p.Extra = make(map[string]json.RawMessage)
		}
		p.Extra[k] = v
	}

	var skipped []model.SkippedRecord
	var rawExamples []json.RawMessage
	if ex, ok := fields["examples"]; ok && !isNull(ex) {
		if err := json.Unmarshal(ex, &rawExamples); err != nil {
			p.RawExamples = ex
			slog.Warn("ignoring malformed examples", "path", path, "id", id, "error", err)
			skipped = append(skipped, model.SkippedRecord{Path: path, ID: id, Reason: "examples is not an array"})
		}
	}

	for i, raw := range rawExamples {
		ex, err := buildExample(id, i, raw)
		if err != nil {
			exID := model.ExampleID(id, i)
			slog.Warn("skipping example record", "path", path, "id", exID, "reason", err)
			skipped = append(skipped, model.SkippedRecord{Path: path, ID: exID, Reason: err.Error()})
			if p.Unparsed == nil {
				p.Unparsed = make(map[int]json.RawMessage)
			}
			p.Unparsed[i] = raw
			continue
		}
		p.Examples = append(p.Examples, ex)
	}
	return p, skipped
}

// buildExample accepts either a bare string or an object with content/text.
func buildExample(patternID string, index int, raw json.RawMessage) (model.Example, error) {
	ex := model.Example{ID: model.ExampleID(patternID, index), Index: index}

	var content string
	if err := json.Unmarshal(raw, &content); err == nil {
		ex.Content = content
		return ex, nil
	}

	var fields map[string]json.RawMessage
	if err := json.Unmarshal(raw, &fields); err != nil || fields == nil {
		return model.Example{}, fmt.Errorf("example is neither text nor object")
	}
	if id := stringField(fields, "id"); id != "" {
		ex.ID = id
	}
	ex.Content = stringField(fields, "content")
	if ex.Content == "" {
		ex.Content = stringField(fields, "text")
	}
	for k, v := range fields {
		if knownExampleFields[k] {
			continue
		}
		if ex.Extra == nil {
			ex.Extra = make(map[string]json.RawMessage)
		}
		ex.Extra[k] = v
	}
	return ex, nil
}

// stringField returns fields[key] as a string, or "" when absent or not a string.
func stringField(fields map[string]json.RawMessage, key string) string {
	raw, ok := fields[key]
	if !ok {
		return ""
	}
	var s string
	if err := json.Unmarshal(raw, &s); err != nil {
		return ""
	}
	return s
}

func isNull(raw json.RawMessage) bool {
	return string(bytes.TrimSpace(raw)) == "null"
}
