// Package webhook notifies an HTTP endpoint when an analysis run completes.
package webhook

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/crimson-sun/taxodrift/internal/output"
	"github.com/crimson-sun/taxodrift/internal/report"
)

// EventCompleted is the event name carried by every notification.
const EventCompleted = "analysis.completed"

const (
	defaultTimeout = 10 * time.Second
	defaultBackoff = time.Second
	maxRetries     = 3
)

// Option configures a webhook Output.
type Option func(*Output)

// WithHeaders adds HTTP headers to every request, e.g. an auth token.
func WithHeaders(h map[string]string) Option {
	return func(o *Output) { o.headers = h }
}

// WithTimeout bounds each HTTP attempt. Default: 10s.
func WithTimeout(d time.Duration) Option {
	return func(o *Output) { o.client.Timeout = d }
}

// WithBackoff sets the delay before the first retry; it doubles on every
// further attempt. Default: 1s.
func WithBackoff(d time.Duration) Option {
	return func(o *Output) { o.backoff = d }
}

// WithVerbosity sets how much of the report is posted. Default: Minimal.
func WithVerbosity(v output.Verbosity, previewLimit int) Option {
	return func(o *Output) {
		o.verbosity = v
		o.limit = previewLimit
	}
}

// Notification is the JSON body posted after a run. Text is a one-line
// summary that chat hooks display as-is.
type Notification struct {
	Event    string         `json:"event"`
	CorpusID string         `json:"corpus_id"`
	Text     string         `json:"text"`
	Report   *report.Report `json:"report"`
}

// Output posts one Notification per run.
type Output struct {
	client    *http.Client
	url       string
	headers   map[string]string
	backoff   time.Duration
	verbosity output.Verbosity
	limit     int
}

// New creates a webhook output targeting url.
func New(url string, opts ...Option) *Output {
	o := &Output{
		client:    &http.Client{Timeout: defaultTimeout},
		url:       url,
		backoff:   defaultBackoff,
		verbosity: output.Minimal,
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// Write posts the report. Runs without a report are not announced.
func (o *Output) Write(ctx context.Context, a output.Artifacts) error {
	if a.Report == nil {
		return nil
	}
	n := Notification{
		Event:    EventCompleted,
		CorpusID: a.Report.Metadata.CorpusID,
		Text:     Summary(a.Report),
		Report:   output.FormatReport(a.Report, o.verbosity, o.limit),
	}
	body, err := json.Marshal(n)
	if err != nil {
		return fmt.Errorf("webhook: marshal: %w", err)
	}
	if err := o.deliver(ctx, body); err != nil {
		return err
	}
	slog.Info("notification sent", "url", o.url, "corpus", n.CorpusID)
	return nil
}

func (o *Output) Close() error { return nil }

// Summary renders the headline numbers of r on one line.
func Summary(r *report.Report) string {
	return fmt.Sprintf("taxodrift: %d patterns, coverage %.0f%%, accuracy %.0f%%, %d to recategorize, %d low confidence, %d mismatches",
		r.Metadata.Patterns,
		r.Coverage.PatternPercent,
		r.Accuracy.Pattern.Percent,
		len(r.Recommendations.Recategorize),
		len(r.Recommendations.LowConfidence),
		len(r.Mismatches),
	)
}

// deliver retries server errors up to maxRetries times. Client errors and
// transport failures are returned immediately.
func (o *Output) deliver(ctx context.Context, body []byte) error {
	wait := o.backoff
	for attempt := 0; ; attempt++ {
		status, err := o.post(ctx, body)
		if err != nil {
			return err
		}
		switch {
		case status < 300:
			return nil
		case status < 500:
			return fmt.Errorf("webhook: HTTP %d", status)
		case attempt == maxRetries:
			return fmt.Errorf("webhook: HTTP %d after %d attempts", status, attempt+1)
		}

		slog.Warn("webhook retry", "url", o.url, "status", status, "attempt", attempt+1, "wait", wait)
		t := time.NewTimer(wait)
		select {
		case <-ctx.Done():
			t.Stop()
			return fmt.Errorf("webhook: %w", ctx.Err())
		case <-t.C:
		}
		wait *= 2
	}
}

func (o *Output) post(ctx context.Context, body []byte) (int, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, o.url, bytes.NewReader(body))
	if err != nil {
		return 0, fmt.Errorf("webhook: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("User-Agent", report.Tool)
	for k, v := range o.headers {
		req.Header.Set(k, v)
	}

	resp, err := o.client.Do(req)
	if err != nil {
		return 0, fmt.Errorf("webhook: %w", err)
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)
	return resp.StatusCode, nil
}
