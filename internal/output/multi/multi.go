package multi

import (
	"context"
	"errors"

	"github.com/crimson-sun/taxodrift/internal/output"
)

// Multi fans run artifacts out to several destinations. A failing
// destination does not stop delivery to the rest; all failures are
// returned joined.
type Multi struct {
	outputs []output.Output
}

// New creates a Multi over the given outputs, skipping nil entries so
// callers can pass optional destinations directly.
func New(outputs ...output.Output) *Multi {
	m := &Multi{}
	for _, o := range outputs {
		if o != nil {
			m.outputs = append(m.outputs, o)
		}
	}
	return m
}

func (m *Multi) Write(ctx context.Context, a output.Artifacts) error {
	var errs []error
	for _, o := range m.outputs {
		if err := o.Write(ctx, a); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func (m *Multi) Close() error {
	var errs []error
	for _, o := range m.outputs {
		if err := o.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
