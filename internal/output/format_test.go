package output_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/crimson-sun/taxodrift/internal/output"
	"github.com/crimson-sun/taxodrift/internal/output/outputtest"
)

func TestParseVerbosity(t *testing.T) {
	tests := []struct {
		in   string
		want output.Verbosity
	}{
		{"minimal", output.Minimal},
		{"standard", output.Standard},
		{"", output.Standard},
		{"FULL", output.Full},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := output.ParseVerbosity(tt.in)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
			back, err := output.ParseVerbosity(got.String())
			require.NoError(t, err)
			assert.Equal(t, got, back)
		})
	}

	_, err := output.ParseVerbosity("verbose")
	assert.Error(t, err)
	assert.Equal(t, "verbosity(7)", output.Verbosity(7).String())
}

func TestFormatReportFull(t *testing.T) {
	r := outputtest.Sample().Report
	assert.Same(t, r, output.FormatReport(r, output.Full, 1))
}

func TestFormatReportMinimal(t *testing.T) {
	r := outputtest.Sample().Report
	got := output.FormatReport(r, output.Minimal, 10)

	assert.Empty(t, got.Recommendations.Recategorize)
	assert.NotNil(t, got.Recommendations.Recategorize)
	assert.Empty(t, got.Recommendations.LowConfidence)
	assert.Empty(t, got.Recommendations.MultiCategory)
	assert.Empty(t, got.Mismatches)
	assert.Empty(t, got.Transitions)

	// aggregates survive
	assert.Equal(t, r.Coverage, got.Coverage)
	assert.Equal(t, r.Accuracy, got.Accuracy)
	assert.Equal(t, r.Recommendations.NotedDisagreements, got.Recommendations.NotedDisagreements)

	// input untouched
	assert.Len(t, r.Transitions, 3)
	assert.Len(t, r.Recommendations.LowConfidence, 2)
}

func TestFormatReportStandardCaps(t *testing.T) {
	r := outputtest.Sample().Report
	got := output.FormatReport(r, output.Standard, 1)

	assert.Len(t, got.Transitions, 1)
	assert.Len(t, got.Recommendations.LowConfidence, 1)
	assert.Len(t, got.Recommendations.Recategorize, 1)
	assert.Equal(t, r.Transitions[0], got.Transitions[0])
	assert.Len(t, r.Transitions, 3)

	assert.Same(t, r, output.FormatReport(r, output.Standard, 0))
}
