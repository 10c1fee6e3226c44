// Package outputtest provides canned run artifacts for destination tests.
package outputtest

import (
	"time"

	"github.com/crimson-sun/taxodrift/internal/corpus"
	"github.com/crimson-sun/taxodrift/internal/engine"
	"github.com/crimson-sun/taxodrift/internal/engine/classifier"
	"github.com/crimson-sun/taxodrift/internal/engine/drift"
	"github.com/crimson-sun/taxodrift/internal/engine/vecmath"
	"github.com/crimson-sun/taxodrift/internal/model"
	"github.com/crimson-sun/taxodrift/internal/output"
	"github.com/crimson-sun/taxodrift/internal/report"
)

// GeneratedAt is the timestamp carried by Sample.
var GeneratedAt = time.Date(2026, 3, 14, 9, 30, 0, 0, time.UTC)

// Sample returns a small but fully populated pair of artifacts. Each
// call returns fresh values.
func Sample() output.Artifacts {
	persona := &model.Classification{
		Category:   "role-prompting",
		Name:       "Role Prompting",
		Confidence: 0.75,
		Level:      model.ConfidenceMedium,
		TopK: []model.Score{
			{Category: "role-prompting", Name: "Role Prompting", Score: 0.75},
			{Category: "chain-of-thought", Name: "Chain of Thought", Score: 0.6614},
		},
	}
	r := &report.Report{
		Metadata: report.Metadata{
			Tool:         report.Tool,
			GeneratedAt:  GeneratedAt,
			CorpusID:     "3f8d2c1e-5b7a-5c4d-9e2f-1a0b3c4d5e6f",
			Categories:   3,
			Patterns:     5,
			Examples:     5,
			Dimension:    3,
			ShardsLoaded: 2,
			Settings: report.Settings{
				Thresholds:       drift.DefaultThresholds(),
				ReportPolicy:     classifier.PolicyStrict,
				AnnotationPolicy: classifier.PolicyRelaxed,
				PatternTopK:      5,
				ExampleTopK:      3,
			},
		},
		Coverage: report.Coverage{
			Coverage: engine.Coverage{
				PatternsTotal: 5, PatternsAnnotated: 3, PatternPercent: 60,
				ExamplesTotal: 5, ExamplesAnnotated: 4, ExamplePercent: 80,
			},
			Skipped: corpus.Skipped{
				Categories: []model.SkippedRecord{{Path: "categories.json", ID: "unfinished", Reason: "no embedding"}},
				Patterns:   []model.SkippedRecord{{Path: "patterns.json", ID: "#5", Reason: "missing id"}},
				Embeddings: []model.SkippedRecord{},
				Shards:     []model.SkippedRecord{{Path: "shards/agents-paper.json", Reason: "invalid JSON"}},
			},
		},
		Accuracy: report.Accuracy{
			Pattern:                 drift.Accuracy{Agreed: 1, Compared: 3, Percent: 33.333333333333336},
			Example:                 drift.Accuracy{Agreed: 2, Compared: 4, Percent: 50},
			ExamplePatternAgreement: drift.Accuracy{Agreed: 2, Compared: 3, Percent: 66.66666666666667},
		},
		Confidence: report.Confidence{
			Patterns:     drift.Histogram{High: 1, Medium: 0, Low: 2},
			Examples:     drift.Histogram{High: 2, Medium: 0, Low: 2},
			PatternStats: vecmath.Stats{Count: 3, Mean: 0.7, Min: 0.577, Max: 0.994},
			ExampleStats: vecmath.Stats{Count: 4, Mean: 0.8, Min: 0.577, Max: 0.995},
		},
		Recommendations: report.Recommendations{
			Recategorize: []drift.Recategorization{
				{PatternID: "persona", Name: "Persona", From: "chain-of-thought", To: "role-prompting", Similarity: 0.75},
			},
			LowConfidence: []drift.LowConfidence{
				{PatternID: "vague", Name: "Vague", OriginalCategory: "role-prompting", BestCategory: "chain-of-thought", Similarity: 0.577},
				{PatternID: "persona", Name: "Persona", OriginalCategory: "chain-of-thought", BestCategory: "role-prompting", Similarity: 0.75},
			},
			MultiCategory: []drift.MultiCategory{
				{PatternID: "persona", Name: "Persona", Categories: persona.TopK},
			},
			NotedDisagreements: 1,
		},
		Mismatches: []drift.Mismatch{
			{PatternID: "stepwise", ExampleID: "stepwise-1", PatternCategory: "chain-of-thought", PatternConfidence: 0.994, ExampleCategory: "output-formatting", ExampleConfidence: 0.964, ConfidenceDelta: 0.03},
		},
		Transitions: []drift.Transition{
			{From: "chain-of-thought", To: "chain-of-thought", Count: 1},
			{From: "chain-of-thought", To: "role-prompting", Count: 1, Changed: true},
			{From: "role-prompting", To: "chain-of-thought", Count: 1, Changed: true},
		},
		Distribution: []drift.CategoryCount{
			{Category: "chain-of-thought", Patterns: 2, Examples: 1},
			{Category: "role-prompting", Patterns: 1, Examples: 2},
			{Category: "output-formatting", Patterns: 0, Examples: 1},
		},
	}
	enhanced := &report.EnhancedCorpus{
		CorpusID: r.Metadata.CorpusID,
		Patterns: []report.EnhancedPattern{
			{
				ID:               "persona",
				Name:             "Persona",
				Category:         "role-prompting",
				OriginalCategory: "chain-of-thought",
				Classification:   persona,
				Examples: []report.EnhancedExample{
					{ID: "persona-0", Content: "You are a senior tax advisor.", Classification: persona},
				},
			},
		},
	}
	return output.Artifacts{Report: r, Enhanced: enhanced}
}
