// Package history keeps a SQLite log of past runs so a scheduled job can
// report how drift moved since the previous run over the same corpus.
package history

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	"github.com/crimson-sun/taxodrift/internal/engine/drift"
	"github.com/crimson-sun/taxodrift/internal/output"
	"github.com/crimson-sun/taxodrift/internal/report"
)

// ErrNotFound is returned when no run matches a lookup.
var ErrNotFound = errors.New("history: no matching run")

const schemaVersion = 1

// timeLayout is fixed-width so stored timestamps sort lexically.
const timeLayout = "2006-01-02T15:04:05.000000000Z07:00"

// Run is the persisted summary of one report.
type Run struct {
	ID              string             `json:"id"`
	CorpusID        string             `json:"corpus_id"`
	GeneratedAt     time.Time          `json:"generated_at"`
	Categories      int                `json:"categories"`
	Patterns        int                `json:"patterns"`
	Examples        int                `json:"examples"`
	PatternCoverage float64            `json:"pattern_coverage_percent"`
	ExampleCoverage float64            `json:"example_coverage_percent"`
	PatternAccuracy float64            `json:"pattern_accuracy_percent"`
	ExampleAccuracy float64            `json:"example_accuracy_percent"`
	Agreement       float64            `json:"example_pattern_agreement_percent"`
	Recategorize    int                `json:"recategorize"`
	LowConfidence   int                `json:"low_confidence"`
	MultiCategory   int                `json:"multi_category"`
	Mismatches      int                `json:"mismatches"`
	Skipped         int                `json:"skipped"`
	Transitions     []drift.Transition `json:"transitions,omitempty"`
}

// Summarize reduces a report to the fields history keeps.
func Summarize(r *report.Report) Run {
	return Run{
		CorpusID:        r.Metadata.CorpusID,
		GeneratedAt:     r.Metadata.GeneratedAt.UTC(),
		Categories:      r.Metadata.Categories,
		Patterns:        r.Metadata.Patterns,
		Examples:        r.Metadata.Examples,
		PatternCoverage: r.Coverage.PatternPercent,
		ExampleCoverage: r.Coverage.ExamplePercent,
		PatternAccuracy: r.Accuracy.Pattern.Percent,
		ExampleAccuracy: r.Accuracy.Example.Percent,
		Agreement:       r.Accuracy.ExamplePatternAgreement.Percent,
		Recategorize:    len(r.Recommendations.Recategorize),
		LowConfidence:   len(r.Recommendations.LowConfidence),
		MultiCategory:   len(r.Recommendations.MultiCategory),
		Mismatches:      len(r.Mismatches),
		Skipped:         r.Coverage.Skipped.Total(),
		Transitions:     r.Transitions,
	}
}

// Delta is the change between two runs of the same corpus.
type Delta struct {
	PatternAccuracy float64
	ExampleAccuracy float64
	Recategorize    int
	LowConfidence   int
	Mismatches      int
}

// Diff returns cur minus prev.
func Diff(prev, cur Run) Delta {
	return Delta{
		PatternAccuracy: cur.PatternAccuracy - prev.PatternAccuracy,
		ExampleAccuracy: cur.ExampleAccuracy - prev.ExampleAccuracy,
		Recategorize:    cur.Recategorize - prev.Recategorize,
		LowConfidence:   cur.LowConfidence - prev.LowConfidence,
		Mismatches:      cur.Mismatches - prev.Mismatches,
	}
}

// Store is the run history database. It also satisfies output.Output so
// it can sit behind a multi output.
type Store struct {
	db *sql.DB
}

// Open opens or creates the history database at path.
func Open(path string) (*Store, error) {
	if path == "" {
		return nil, errors.New("history: empty database path")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("history: create directory: %w", err)
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("history: open %s: %w", path, err)
	}
	db.SetMaxOpenConns(1)

	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA synchronous=NORMAL",
		"PRAGMA foreign_keys=ON",
		"PRAGMA busy_timeout=5000",
	}
	for _, pragma := range pragmas {
		if _, err := db.Exec(pragma); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("history: %s: %w", pragma, err)
		}
	}

	s := &Store{db: db}
	if err := s.initializeSchema(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("history: initialize schema: %w", err)
	}
	return s, nil
}

func (s *Store) initializeSchema() error {
	schema := `
		CREATE TABLE IF NOT EXISTS runs (
			id TEXT PRIMARY KEY,
			corpus_id TEXT NOT NULL,
			generated_at TEXT NOT NULL,
			categories INTEGER NOT NULL,
			patterns INTEGER NOT NULL,
			examples INTEGER NOT NULL,
			pattern_coverage REAL NOT NULL,
			example_coverage REAL NOT NULL,
			pattern_accuracy REAL NOT NULL,
			example_accuracy REAL NOT NULL,
			agreement REAL NOT NULL,
			recategorize INTEGER NOT NULL,
			low_confidence INTEGER NOT NULL,
			multi_category INTEGER NOT NULL,
			mismatches INTEGER NOT NULL,
			skipped INTEGER NOT NULL
		);
		CREATE INDEX IF NOT EXISTS idx_runs_corpus ON runs(corpus_id, generated_at DESC);
		CREATE INDEX IF NOT EXISTS idx_runs_generated_at ON runs(generated_at DESC);

		CREATE TABLE IF NOT EXISTS transitions (
			run_id TEXT NOT NULL REFERENCES runs(id) ON DELETE CASCADE,
			position INTEGER NOT NULL,
			from_category TEXT NOT NULL,
			to_category TEXT NOT NULL,
			count INTEGER NOT NULL,
			PRIMARY KEY (run_id, position)
		);

		CREATE TABLE IF NOT EXISTS schema_version (
			version INTEGER PRIMARY KEY
		);
	`
	if _, err := s.db.Exec(schema); err != nil {
		return err
	}
	_, err := s.db.Exec("INSERT OR REPLACE INTO schema_version (version) VALUES (?)", schemaVersion)
	return err
}

// Record stores the report summary and returns it with its new ID.
func (s *Store) Record(ctx context.Context, r *report.Report) (Run, error) {
	run := Summarize(r)
	run.ID = uuid.NewString()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return Run{}, fmt.Errorf("history: begin: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx, `
		INSERT INTO runs (id, corpus_id, generated_at, categories, patterns, examples,
			pattern_coverage, example_coverage, pattern_accuracy, example_accuracy, agreement,
			recategorize, low_confidence, multi_category, mismatches, skipped)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		run.ID, run.CorpusID, run.GeneratedAt.Format(timeLayout),
		run.Categories, run.Patterns, run.Examples,
		run.PatternCoverage, run.ExampleCoverage, run.PatternAccuracy, run.ExampleAccuracy, run.Agreement,
		run.Recategorize, run.LowConfidence, run.MultiCategory, run.Mismatches, run.Skipped,
	)
	if err != nil {
		return Run{}, fmt.Errorf("history: insert run: %w", err)
	}

	for i, t := range run.Transitions {
		_, err := tx.ExecContext(ctx,
			"INSERT INTO transitions (run_id, position, from_category, to_category, count) VALUES (?, ?, ?, ?, ?)",
			run.ID, i, t.From, t.To, t.Count)
		if err != nil {
			return Run{}, fmt.Errorf("history: insert transition: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return Run{}, fmt.Errorf("history: commit: %w", err)
	}
	slog.Debug("run recorded", "id", run.ID, "corpus", run.CorpusID)
	return run, nil
}

const runColumns = `id, corpus_id, generated_at, categories, patterns, examples,
	pattern_coverage, example_coverage, pattern_accuracy, example_accuracy, agreement,
	recategorize, low_confidence, multi_category, mismatches, skipped`

// Latest returns the most recent run of corpusID, transitions included.
func (s *Store) Latest(ctx context.Context, corpusID string) (Run, error) {
	row := s.db.QueryRowContext(ctx,
		"SELECT "+runColumns+" FROM runs WHERE corpus_id = ? ORDER BY generated_at DESC, rowid DESC LIMIT 1",
		corpusID)
	run, err := scanRun(row)
	if errors.Is(err, sql.ErrNoRows) {
		return Run{}, ErrNotFound
	}
	if err != nil {
		return Run{}, fmt.Errorf("history: latest: %w", err)
	}
	if run.Transitions, err = s.transitions(ctx, run.ID); err != nil {
		return Run{}, err
	}
	return run, nil
}

// List returns up to limit runs, newest first, without transitions.
// limit <= 0 returns every run.
func (s *Store) List(ctx context.Context, limit int) ([]Run, error) {
	if limit <= 0 {
		limit = -1
	}
	rows, err := s.db.QueryContext(ctx,
		"SELECT "+runColumns+" FROM runs ORDER BY generated_at DESC, rowid DESC LIMIT ?", limit)
	if err != nil {
		return nil, fmt.Errorf("history: list: %w", err)
	}
	defer rows.Close()

	var runs []Run
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, fmt.Errorf("history: list: %w", err)
		}
		runs = append(runs, run)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("history: list: %w", err)
	}
	return runs, nil
}

func (s *Store) transitions(ctx context.Context, runID string) ([]drift.Transition, error) {
	rows, err := s.db.QueryContext(ctx,
		"SELECT from_category, to_category, count FROM transitions WHERE run_id = ? ORDER BY position", runID)
	if err != nil {
		return nil, fmt.Errorf("history: transitions: %w", err)
	}
	defer rows.Close()

	var out []drift.Transition
	for rows.Next() {
		var t drift.Transition
		if err := rows.Scan(&t.From, &t.To, &t.Count); err != nil {
			return nil, fmt.Errorf("history: transitions: %w", err)
		}
		t.Changed = t.From != t.To
		out = append(out, t)
	}
	return out, rows.Err()
}

type scanner interface {
	Scan(dest ...any) error
}

func scanRun(sc scanner) (Run, error) {
	var run Run
	var generatedAt string
	err := sc.Scan(&run.ID, &run.CorpusID, &generatedAt,
		&run.Categories, &run.Patterns, &run.Examples,
		&run.PatternCoverage, &run.ExampleCoverage, &run.PatternAccuracy, &run.ExampleAccuracy, &run.Agreement,
		&run.Recategorize, &run.LowConfidence, &run.MultiCategory, &run.Mismatches, &run.Skipped)
	if err != nil {
		return Run{}, err
	}
	run.GeneratedAt, err = time.Parse(timeLayout, generatedAt)
	if err != nil {
		return Run{}, fmt.Errorf("parse generated_at %q: %w", generatedAt, err)
	}
	return run, nil
}

// Write records the report and logs how it moved against the previous
// run of the same corpus.
func (s *Store) Write(ctx context.Context, a output.Artifacts) error {
	if a.Report == nil {
		return nil
	}
	prev, err := s.Latest(ctx, a.Report.Metadata.CorpusID)
	if err != nil && !errors.Is(err, ErrNotFound) {
		return err
	}
	cur, err := s.Record(ctx, a.Report)
	if err != nil {
		return err
	}
	if prev.ID == "" {
		slog.Info("first recorded run for corpus", "corpus", cur.CorpusID, "run", cur.ID)
		return nil
	}
	d := Diff(prev, cur)
	slog.Info("drift since previous run",
		"corpus", cur.CorpusID,
		"previous", prev.GeneratedAt.Format(time.RFC3339),
		"pattern_accuracy_delta", d.PatternAccuracy,
		"example_accuracy_delta", d.ExampleAccuracy,
		"recategorize_delta", d.Recategorize,
		"low_confidence_delta", d.LowConfidence,
		"mismatches_delta", d.Mismatches,
	)
	return nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}
