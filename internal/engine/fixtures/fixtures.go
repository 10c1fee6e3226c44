// Package fixtures ships a small, hand-built corpus that exercises every
// classification path: agreement, recategorization, low confidence,
// multi-category candidates, pattern/example mismatch, missing embeddings,
// a compressed shard and a corrupt shard.
package fixtures

import (
	"embed"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/crimson-sun/taxodrift/internal/corpus"
)

//go:embed corpus
var corpusFS embed.FS

// Pattern ids in the fixture corpus.
const (
	Stepwise   = "prompting-survey-chain-of-thought-stepwise"
	Persona    = "prompting-survey-chain-of-thought-persona"
	Vague      = "prompting-survey-role-prompting-vague"
	Unembedded = "prompting-survey-role-prompting-unembedded"
	Orphan     = "agents-paper-output-formatting-orphan"
)

// CorruptShard is the shard file that fails to parse.
const CorruptShard = "agents-paper.json"

// Materialize writes the fixture corpus under dir and returns its sources.
func Materialize(dir string) (corpus.Sources, error) {
	err := fs.WalkDir(corpusFS, "corpus", func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		rel, err := filepath.Rel("corpus", filepath.FromSlash(path))
		if err != nil {
			return err
		}
		target := filepath.Join(dir, rel)
		if d.IsDir() {
			return os.MkdirAll(target, 0o755)
		}
		data, err := corpusFS.ReadFile(path)
		if err != nil {
			return err
		}
		return os.WriteFile(target, data, 0o644)
	})
	if err != nil {
		return corpus.Sources{}, fmt.Errorf("fixtures: %w", err)
	}
	return corpus.Sources{
		Categories:    filepath.Join(dir, "categories.json"),
		Patterns:      filepath.Join(dir, "patterns.json"),
		EmbeddingsDir: filepath.Join(dir, "shards"),
		ShardGlob:     corpus.DefaultShardGlob,
	}, nil
}
