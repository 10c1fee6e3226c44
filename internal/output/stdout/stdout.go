package stdout

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/fatih/color"

	"github.com/crimson-sun/taxodrift/internal/output"
	"github.com/crimson-sun/taxodrift/internal/report"
)

// Option configures a stdout Output.
type Option func(*Output)

// WithWriter replaces os.Stdout as the destination.
func WithWriter(w io.Writer) Option {
	return func(o *Output) { o.w = w }
}

// WithPreviewLimit caps each list at Standard verbosity. Default: 10.
func WithPreviewLimit(n int) Option {
	return func(o *Output) { o.limit = n }
}

// WithColor forces ANSI colors on or off. By default color decides from
// the terminal and NO_COLOR.
func WithColor(enabled bool) Option {
	return func(o *Output) { o.forceColor = &enabled }
}

// Output prints a human-readable run summary.
type Output struct {
	w          io.Writer
	verbosity  output.Verbosity
	limit      int
	forceColor *bool

	title, warn, good, dim *color.Color
}

// New creates a stdout summary printer.
func New(verbosity output.Verbosity, opts ...Option) *Output {
	o := &Output{
		w:         os.Stdout,
		verbosity: verbosity,
		limit:     10,
		title:     color.New(color.FgCyan, color.Bold),
		warn:      color.New(color.FgYellow),
		good:      color.New(color.FgGreen),
		dim:       color.New(color.Faint),
	}
	for _, opt := range opts {
		opt(o)
	}
	if o.forceColor != nil {
		for _, c := range []*color.Color{o.title, o.warn, o.good, o.dim} {
			if *o.forceColor {
				c.EnableColor()
			} else {
				c.DisableColor()
			}
		}
	}
	return o
}

// Write renders the report summary. The enhanced corpus is not printed.
func (o *Output) Write(_ context.Context, a output.Artifacts) error {
	if a.Report == nil {
		return nil
	}
	var buf bytes.Buffer
	o.render(&buf, a.Report)
	if _, err := o.w.Write(buf.Bytes()); err != nil {
		return fmt.Errorf("stdout output: %w", err)
	}
	return nil
}

func (o *Output) Close() error {
	return nil
}

func (o *Output) render(b *bytes.Buffer, full *report.Report) {
	r := output.FormatReport(full, o.verbosity, o.limit)
	m := r.Metadata
	cov := r.Coverage

	o.title.Fprintf(b, "%s report", m.Tool)
	o.dim.Fprintf(b, "  corpus %s  generated %s\n", m.CorpusID, m.GeneratedAt.Format(time.RFC3339))
	fmt.Fprintf(b, "corpus       %d categories, %d patterns, %d examples, dim %d, %d shards\n",
		m.Categories, m.Patterns, m.Examples, m.Dimension, m.ShardsLoaded)
	fmt.Fprintf(b, "coverage     patterns %d/%d (%.1f%%), examples %d/%d (%.1f%%)\n",
		cov.PatternsAnnotated, cov.PatternsTotal, cov.PatternPercent,
		cov.ExamplesAnnotated, cov.ExamplesTotal, cov.ExamplePercent)
	if n := cov.Skipped.Total(); n > 0 {
		o.warn.Fprintf(b, "skipped      %d (categories %d, patterns %d, embeddings %d, shards %d)\n", n,
			len(cov.Skipped.Categories), len(cov.Skipped.Patterns),
			len(cov.Skipped.Embeddings), len(cov.Skipped.Shards))
	}

	acc := r.Accuracy
	fmt.Fprintf(b, "accuracy     pattern %s, example %s, example/pattern %s\n",
		o.good.Sprintf("%d/%d (%.1f%%)", acc.Pattern.Agreed, acc.Pattern.Compared, acc.Pattern.Percent),
		o.good.Sprintf("%d/%d (%.1f%%)", acc.Example.Agreed, acc.Example.Compared, acc.Example.Percent),
		o.good.Sprintf("%d/%d (%.1f%%)", acc.ExamplePatternAgreement.Agreed, acc.ExamplePatternAgreement.Compared, acc.ExamplePatternAgreement.Percent))

	conf := r.Confidence
	fmt.Fprintf(b, "confidence   patterns high %d medium %d low %d (%s), examples high %d medium %d low %d (%s)\n",
		conf.Patterns.High, conf.Patterns.Medium, conf.Patterns.Low, m.Settings.ReportPolicy.Name,
		conf.Examples.High, conf.Examples.Medium, conf.Examples.Low, m.Settings.ReportPolicy.Name)

	recs := full.Recommendations
	fmt.Fprintf(b, "drift        %s recategorize, %s low confidence, %s multi-category, %d noted disagreements, %d mismatches\n",
		o.count(len(recs.Recategorize)), o.count(len(recs.LowConfidence)), o.count(len(recs.MultiCategory)),
		recs.NotedDisagreements, len(full.Mismatches))

	if o.verbosity == output.Minimal {
		return
	}

	o.section(b, "recategorize", len(recs.Recategorize))
	for _, rc := range r.Recommendations.Recategorize {
		fmt.Fprintf(b, "  %s: %s -> %s (%.3f)\n", rc.PatternID, rc.From, rc.To, rc.Similarity)
	}
	o.more(b, len(r.Recommendations.Recategorize), len(recs.Recategorize))

	o.section(b, "low confidence", len(recs.LowConfidence))
	for _, lc := range r.Recommendations.LowConfidence {
		fmt.Fprintf(b, "  %s: best %s (%.3f), labeled %s\n", lc.PatternID, lc.BestCategory, lc.Similarity, orNone(lc.OriginalCategory))
	}
	o.more(b, len(r.Recommendations.LowConfidence), len(recs.LowConfidence))

	o.section(b, "multi-category", len(recs.MultiCategory))
	for _, mc := range r.Recommendations.MultiCategory {
		fmt.Fprintf(b, "  %s:", mc.PatternID)
		for _, s := range mc.Categories {
			fmt.Fprintf(b, " %s (%.3f)", s.Category, s.Score)
		}
		b.WriteByte('\n')
	}
	o.more(b, len(r.Recommendations.MultiCategory), len(recs.MultiCategory))

	o.section(b, "pattern/example mismatches", len(full.Mismatches))
	for _, mm := range r.Mismatches {
		fmt.Fprintf(b, "  %s: %s (%.3f) vs pattern %s (%.3f)\n",
			mm.ExampleID, mm.ExampleCategory, mm.ExampleConfidence, mm.PatternCategory, mm.PatternConfidence)
	}
	o.more(b, len(r.Mismatches), len(full.Mismatches))

	o.section(b, "transitions", len(full.Transitions))
	for _, tr := range r.Transitions {
		marker := " "
		if tr.Changed {
			marker = "*"
		}
		fmt.Fprintf(b, " %s%s -> %s: %d\n", marker, tr.From, tr.To, tr.Count)
	}
	o.more(b, len(r.Transitions), len(full.Transitions))
}

func (o *Output) count(n int) string {
	if n == 0 {
		return o.good.Sprint(n)
	}
	return o.warn.Sprint(n)
}

func (o *Output) section(b *bytes.Buffer, name string, total int) {
	if total == 0 {
		return
	}
	o.title.Fprintf(b, "\n%s (%d)\n", name, total)
}

func (o *Output) more(b *bytes.Buffer, shown, total int) {
	if total > shown {
		o.dim.Fprintf(b, "  ... and %d more\n", total-shown)
	}
}

func orNone(s string) string {
	if s == "" {
		return "(none)"
	}
	return s
}
