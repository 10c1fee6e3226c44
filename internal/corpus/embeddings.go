package corpus

import (
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/klauspost/compress/gzip"
	"github.com/klauspost/compress/zstd"

	"github.com/crimson-sun/taxodrift/internal/model"
)

// DefaultShardGlob matches plain, gzip and zstd shards anywhere under the
// embeddings directory.
const DefaultShardGlob = "**/*.{json,json.gz,json.zst}"

// Embeddings is the merged content of every readable shard.
type Embeddings struct {
	Patterns map[string][]float32
	Examples map[string][]float32
	Shards   int                   // shards read successfully
	Failed   []model.SkippedRecord // shards that could not be parsed
	Skipped  []model.SkippedRecord // entries without a usable embedding
}

type shardEntry struct {
	Embedding []float32 `json:"embedding"`
}

type shardFile struct {
	Patterns map[string]shardEntry `json:"patterns"`
	Examples map[string]shardEntry `json:"examples"`
}

// DiscoverShards returns the shard files under dir matching glob, in
// lexical order.
func DiscoverShards(dir, glob string) ([]string, error) {
	if glob == "" {
		glob = DefaultShardGlob
	}
	info, err := os.Stat(dir)
	if err != nil {
		return nil, &model.DataLoadError{Path: dir, Err: err}
	}
	if !info.IsDir() {
		return nil, &model.DataLoadError{Path: dir, Err: fmt.Errorf("not a directory")}
	}

	matches, err := doublestar.Glob(os.DirFS(dir), glob, doublestar.WithFilesOnly())
	if err != nil {
		return nil, &model.DataLoadError{Path: dir, Err: fmt.Errorf("shard glob %q: %w", glob, err)}
	}
	sort.Strings(matches)

	paths := make([]string, len(matches))
	for i, m := range matches {
		paths[i] = filepath.Join(dir, filepath.FromSlash(m))
	}
	return paths, nil
}

// LoadEmbeddings reads every shard under dir. A shard that cannot be read or
// parsed is logged and recorded in Failed; the remaining shards still load.
// When dim > 0 every embedding must have that length, otherwise a
// DimensionMismatchError aborts the load. The first shard (in path order)
// to mention an id wins.
func LoadEmbeddings(dir, glob string, dim int) (*Embeddings, error) {
	paths, err := DiscoverShards(dir, glob)
	if err != nil {
		return nil, err
	}
	if len(paths) == 0 {
		slog.Warn("no embedding shards found", "dir", dir, "glob", glob)
	}

	e := &Embeddings{
		Patterns: make(map[string][]float32),
		Examples: make(map[string][]float32),
	}
	for _, path := range paths {
		shard, err := readShard(path)
		if err != nil {
			slog.Warn("skipping unreadable embedding shard", "path", path, "error", err)
			e.Failed = append(e.Failed, model.SkippedRecord{Path: path, Reason: err.Error()})
			continue
		}
		if err := e.merge(path, shard.Patterns, e.Patterns, dim); err != nil {
			return nil, err
		}
		if err := e.merge(path, shard.Examples, e.Examples, dim); err != nil {
			return nil, err
		}
		e.Shards++
	}
	return e, nil
}

func (e *Embeddings) merge(path string, entries map[string]shardEntry, into map[string][]float32, dim int) error {
	ids := make([]string, 0, len(entries))
	for id := range entries {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	for _, id := range ids {
		vec := entries[id].Embedding
		if len(vec) == 0 {
			slog.Warn("skipping entry without embedding", "path", path, "id", id)
			e.Skipped = append(e.Skipped, model.SkippedRecord{Path: path, ID: id, Reason: "missing embedding"})
			continue
		}
		if dim > 0 && len(vec) != dim {
			return &model.DimensionMismatchError{Path: path, ID: id, Want: dim, Got: len(vec)}
		}
		if _, dup := into[id]; dup {
			slog.Debug("duplicate embedding id, keeping first", "path", path, "id", id)
			continue
		}
		into[id] = vec
	}
	return nil
}

func readShard(path string) (*shardFile, error) {
	rc, err := openShard(path)
	if err != nil {
		return nil, err
	}
	defer rc.Close()

	var s shardFile
	dec := json.NewDecoder(rc)
	if err := dec.Decode(&s); err != nil {
		return nil, fmt.Errorf("parse: %w", err)
	}
	if err := expectEOF(dec); err != nil {
		return nil, fmt.Errorf("parse: %w", err)
	}
	return &s, nil
}

// openShard opens path, transparently decompressing .gz and .zst files.
func openShard(path string) (io.ReadCloser, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}

	switch {
	case strings.HasSuffix(path, ".gz"):
		zr, err := gzip.NewReader(f)
		if err != nil {
			f.Close()
			return nil, fmt.Errorf("gzip: %w", err)
		}
		return &stackedCloser{Reader: zr, closers: []io.Closer{zr, f}}, nil
	case strings.HasSuffix(path, ".zst"):
		zr, err := zstd.NewReader(f)
		if err != nil {
			f.Close()
			return nil, fmt.Errorf("zstd: %w", err)
		}
		rc := zr.IOReadCloser()
		return &stackedCloser{Reader: rc, closers: []io.Closer{rc, f}}, nil
	default:
		return f, nil
	}
}

// stackedCloser closes a decompressor and the file beneath it.
type stackedCloser struct {
	io.Reader
	closers []io.Closer
}

func (s *stackedCloser) Close() error {
	var first error
	for _, c := range s.closers {
		if err := c.Close(); err != nil && first == nil {
			first = err
		}
	}
	return first
}
