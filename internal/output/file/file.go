package file

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"

	"github.com/crimson-sun/taxodrift/internal/output"
)

const defaultBufSize = 64 * 1024 // 64KB

// Option configures a file Output.
type Option func(*Output)

// WithPretty indents the JSON artifacts.
func WithPretty(pretty bool) Option {
	return func(o *Output) { o.pretty = pretty }
}

// Output writes the report and the enhanced corpus as JSON files. Each
// file is written to a temporary sibling and renamed into place, so a
// reader never observes a partial artifact.
type Output struct {
	mu           sync.Mutex
	reportPath   string // "" = skip
	enhancedPath string // "" = skip
	pretty       bool
	bufSize      int
}

// New creates a file output. At least one path must be set.
func New(reportPath, enhancedPath string, opts ...Option) (*Output, error) {
	if reportPath == "" && enhancedPath == "" {
		return nil, errors.New("file output: no destination paths")
	}
	o := &Output{
		reportPath:   reportPath,
		enhancedPath: enhancedPath,
		bufSize:      defaultBufSize,
	}
	for _, opt := range opts {
		opt(o)
	}
	return o, nil
}

// Write persists whichever artifacts have a destination.
func (o *Output) Write(ctx context.Context, a output.Artifacts) error {
	o.mu.Lock()
	defer o.mu.Unlock()

	if o.reportPath != "" && a.Report != nil {
		if err := ctx.Err(); err != nil {
			return fmt.Errorf("file output: %w", err)
		}
		if err := o.writeJSON(o.reportPath, a.Report); err != nil {
			return err
		}
		slog.Info("report written", "path", o.reportPath)
	}
	if o.enhancedPath != "" && a.Enhanced != nil {
		if err := ctx.Err(); err != nil {
			return fmt.Errorf("file output: %w", err)
		}
		if err := o.writeJSON(o.enhancedPath, a.Enhanced); err != nil {
			return err
		}
		slog.Info("enhanced corpus written", "path", o.enhancedPath, "patterns", len(a.Enhanced.Patterns))
	}
	return nil
}

// Close is a no-op; every Write leaves its files complete.
func (o *Output) Close() error {
	return nil
}

func (o *Output) writeJSON(path string, v any) (err error) {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("file output: mkdir %s: %w", dir, err)
	}
	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("file output: create temp for %s: %w", path, err)
	}
	defer func() {
		if err != nil {
			tmp.Close()
			os.Remove(tmp.Name())
		}
	}()

	w := bufio.NewWriterSize(tmp, o.bufSize)
	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(false)
	if o.pretty {
		enc.SetIndent("", "  ")
	}
	if err = enc.Encode(v); err != nil {
		return fmt.Errorf("file output: encode %s: %w", path, err)
	}
	if err = w.Flush(); err != nil {
		return fmt.Errorf("file output: flush %s: %w", path, err)
	}
	if err = tmp.Sync(); err != nil {
		return fmt.Errorf("file output: sync %s: %w", path, err)
	}
	if err = tmp.Close(); err != nil {
		return fmt.Errorf("file output: close %s: %w", path, err)
	}
	if err = os.Chmod(tmp.Name(), 0o644); err != nil {
		return fmt.Errorf("file output: chmod %s: %w", path, err)
	}
	if err = os.Rename(tmp.Name(), path); err != nil {
		return fmt.Errorf("file output: rename %s: %w", path, err)
	}
	return nil
}
