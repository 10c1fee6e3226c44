package corpus

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/crimson-sun/taxodrift/internal/engine/taxonomy"
	"github.com/crimson-sun/taxodrift/internal/model"
)

var errNoCategoriesKey = errors.New(`missing top-level "categories" key`)

// rawCategory is one registry entry before validation.
type rawCategory struct {
	key       string
	Slug      string    `json:"slug" yaml:"slug"`
	Name      string    `json:"name" yaml:"name"`
	Logic     string    `json:"logic" yaml:"logic"`
	Group     string    `json:"group" yaml:"group"`
	Embedding []float32 `json:"embedding" yaml:"embedding"`
}

// LoadCategories reads the category registry at path, keeping registry
// order. JSON and YAML (.yaml, .yml) registries are accepted; "categories"
// may be a slug-keyed object or a list of entries carrying a slug field.
// Entries without an embedding, and entries whose slug repeats an earlier
// one, are skipped and reported, not fatal.
func LoadCategories(path string) ([]model.Category, []model.SkippedRecord, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, nil, &model.DataLoadError{Path: path, Err: err}
	}

	var raws []rawCategory
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		raws, err = decodeCategoriesYAML(data)
	default:
		raws, err = decodeCategoriesJSON(data)
	}
	if err != nil {
		return nil, nil, &model.DataLoadError{Path: path, Err: err}
	}

	var (
		cats    []model.Category
		skipped []model.SkippedRecord
		seen    = make(map[string]bool, len(raws))
	)
	for _, rc := range raws {
		id := rc.key
		if id == "" {
			id = rc.Slug
		}
		if id == "" {
			id = rc.Name
		}
		slug := taxonomy.Slug(id)
		if slug == "" {
			slog.Warn("skipping category without identifier", "path", path, "name", rc.Name)
			skipped = append(skipped, model.SkippedRecord{Path: path, Reason: "missing identifier"})
			continue
		}
		if len(rc.Embedding) == 0 {
			slog.Warn("skipping category without embedding", "path", path, "id", slug)
			skipped = append(skipped, model.SkippedRecord{Path: path, ID: slug, Reason: "missing embedding"})
			continue
		}
		if seen[slug] {
			slog.Warn("skipping duplicate category slug", "path", path, "id", slug, "name", rc.Name)
			skipped = append(skipped, model.SkippedRecord{Path: path, ID: slug, Reason: "duplicate slug"})
			continue
		}
		seen[slug] = true
		name := rc.Name
		if name == "" {
			name = id
		}
		group := rc.Logic
		if group == "" {
			group = rc.Group
		}
		cats = append(cats, model.Category{Slug: slug, Name: name, Group: group, Vector: rc.Embedding})
	}
	return cats, skipped, nil
}

// decodeCategoriesJSON streams the registry with json.Decoder so that the
// object key order survives; a map would lose it.
func decodeCategoriesJSON(data []byte) ([]rawCategory, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	if err := expectDelim(dec, '{'); err != nil {
		return nil, err
	}

	var (
		raws  []rawCategory
		found bool
	)
	for dec.More() {
		key, err := readKey(dec)
		if err != nil {
			return nil, err
		}
		if key != "categories" {
			var skip json.RawMessage
			if err := dec.Decode(&skip); err != nil {
				return nil, err
			}
			continue
		}
		found = true

		tok, err := dec.Token()
		if err != nil {
			return nil, err
		}
		switch tok {
		case json.Delim('{'):
			for dec.More() {
				k, err := readKey(dec)
				if err != nil {
					return nil, err
				}
				var rc rawCategory
				if err := dec.Decode(&rc); err != nil {
					return nil, fmt.Errorf("category %q: %w", k, err)
				}
				rc.key = k
				raws = append(raws, rc)
			}
		case json.Delim('['):
			for dec.More() {
				var rc rawCategory
				if err := dec.Decode(&rc); err != nil {
					return nil, fmt.Errorf("category #%d: %w", len(raws), err)
				}
				raws = append(raws, rc)
			}
		default:
			return nil, fmt.Errorf(`"categories" must be an object or array, got %v`, tok)
		}
		if _, err := dec.Token(); err != nil {
			return nil, err
		}
	}
	if _, err := dec.Token(); err != nil {
		return nil, err
	}
	if err := expectEOF(dec); err != nil {
		return nil, err
	}
	if !found {
		return nil, errNoCategoriesKey
	}
	return raws, nil
}

func decodeCategoriesYAML(data []byte) ([]rawCategory, error) {
	var doc yaml.Node
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, err
	}
	if len(doc.Content) == 0 || doc.Content[0].Kind != yaml.MappingNode {
		return nil, errors.New("expected a mapping at the top level")
	}

	top := doc.Content[0]
	for i := 0; i+1 < len(top.Content); i += 2 {
		if top.Content[i].Value != "categories" {
			continue
		}
		node := top.Content[i+1]
		var raws []rawCategory
		switch node.Kind {
		case yaml.MappingNode:
			for j := 0; j+1 < len(node.Content); j += 2 {
				var rc rawCategory
				if err := node.Content[j+1].Decode(&rc); err != nil {
					return nil, fmt.Errorf("category %q: %w", node.Content[j].Value, err)
				}
				rc.key = node.Content[j].Value
				raws = append(raws, rc)
			}
		case yaml.SequenceNode:
			for j, item := range node.Content {
				var rc rawCategory
				if err := item.Decode(&rc); err != nil {
					return nil, fmt.Errorf("category #%d: %w", j, err)
				}
				raws = append(raws, rc)
			}
		default:
			return nil, errors.New(`"categories" must be a mapping or sequence`)
		}
		return raws, nil
	}
	return nil, errNoCategoriesKey
}

func expectDelim(dec *json.Decoder, want json.Delim) error {
	tok, err := dec.Token()
	if err != nil {
		return err
	}
	if d, ok := tok.(json.Delim); !ok || d != want {
		return fmt.Errorf("expected %q, got %v", want, tok)
	}
	return nil
}

// expectEOF rejects anything after the first JSON value.
func expectEOF(dec *json.Decoder) error {
	tok, err := dec.Token()
	if err == io.EOF {
		return nil
	}
	if err != nil {
		return err
	}
	return fmt.Errorf("unexpected %v after top-level value", tok)
}

func readKey(dec *json.Decoder) (string, error) {
	tok, err := dec.Token()
	if err != nil {
		return "", err
	}
	key, ok := tok.(string)
	if !ok {
		return "", fmt.Errorf("expected object key, got %v", tok)
	}
	return key, nil
}
