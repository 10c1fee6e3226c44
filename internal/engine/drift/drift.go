// Package drift compares fresh classifications with the corpus's original
// labels and with each other, producing recommendation lists and transition
// statistics.
package drift

import (
	"fmt"
	"math"
	"sort"

	"github.com/crimson-sun/taxodrift/internal/engine"
	"github.com/crimson-sun/taxodrift/internal/engine/classifier"
	"github.com/crimson-sun/taxodrift/internal/engine/vecmath"
	"github.com/crimson-sun/taxodrift/internal/model"
)

// Thresholds are supplied by the caller; none are hardcoded in the analyzer.
type Thresholds struct {
	Recategorize  float64 `json:"recategorize"`   // minimum best score to recommend a label change
	LowConfidence float64 `json:"low_confidence"` // best score below this is flagged
	MultiCategory float64 `json:"multi_category"` // scores at or above this count as highly relevant
}

// DefaultThresholds mirrors the values the analysis reports have used.
func DefaultThresholds() Thresholds {
	return Thresholds{Recategorize: 0.6, LowConfidence: 0.6, MultiCategory: 0.6}
}

// Validate rejects thresholds outside the cosine range.
func (t Thresholds) Validate() error {
	for name, v := range map[string]float64{
		"recategorize":   t.Recategorize,
		"low_confidence": t.LowConfidence,
		"multi_category": t.MultiCategory,
	} {
		if math.IsNaN(v) || v < -1 || v > 1 {
			return fmt.Errorf("threshold %s=%v outside [-1, 1]", name, v)
		}
	}
	return nil
}

// Recategorization recommends moving a pattern to a new category.
type Recategorization struct {
	PatternID  string  `json:"pattern_id"`
	Name       string  `json:"name"`
	From       string  `json:"from"`
	To         string  `json:"to"`
	Similarity float64 `json:"similarity"`
}

// LowConfidence flags a pattern whose best match is weak.
type LowConfidence struct {
	PatternID        string  `json:"pattern_id"`
	Name             string  `json:"name"`
	OriginalCategory string  `json:"original_category"`
	BestCategory     string  `json:"best_category"`
	Similarity       float64 `json:"similarity"`
}

// MultiCategory flags a pattern that scores highly against several categories.
type MultiCategory struct {
	PatternID  string        `json:"pattern_id"`
	Name       string        `json:"name"`
	Categories []model.Score `json:"categories"`
}

// Mismatch records an example whose best match differs from its pattern's.
type Mismatch struct {
	PatternID         string  `json:"pattern_id"`
	ExampleID         string  `json:"example_id"`
	PatternCategory   string  `json:"pattern_category"`
	PatternConfidence float64 `json:"pattern_confidence"`
	ExampleCategory   string  `json:"example_category"`
	ExampleConfidence float64 `json:"example_confidence"`
	ConfidenceDelta   float64 `json:"confidence_delta"`
}

// Transition counts patterns moving from one label to another.
type Transition struct {
	From    string `json:"from"`
	To      string `json:"to"`
	Count   int    `json:"count"`
	Changed bool   `json:"changed"`
}

// Accuracy is agreement between new classifications and reference labels.
type Accuracy struct {
	Agreed   int     `json:"agreed"`
	Compared int     `json:"compared"`
	Percent  float64 `json:"percent"`
}

func newAccuracy(agreed, compared int) Accuracy {
	return Accuracy{Agreed: agreed, Compared: compared, Percent: vecmath.Percent(agreed, compared)}
}

// Histogram counts classifications per confidence bucket.
type Histogram struct {
	High   int `json:"high"`
	Medium int `json:"medium"`
	Low    int `json:"low"`
}

func (h *Histogram) add(level model.ConfidenceLevel) {
	switch level {
	case model.ConfidenceHigh:
		h.High++
	case model.ConfidenceMedium:
		h.Medium++
	default:
		h.Low++
	}
}

// CategoryCount is the number of items classified into a category.
type CategoryCount struct {
	Category string `json:"category"`
	Patterns int    `json:"patterns"`
	Examples int    `json:"examples"`
}

// Analysis is everything the analyzer derives from an annotated corpus.
type Analysis struct {
	Recategorize       []Recategorization `json:"recategorize"`
	LowConfidence      []LowConfidence    `json:"low_confidence"`
	MultiCategory      []MultiCategory    `json:"multi_category"`
	Mismatches         []Mismatch         `json:"pattern_example_mismatches"`
	NotedDisagreements int                `json:"noted_disagreements"`
	Unlabeled          int                `json:"unlabeled_patterns"`
	Transitions        []Transition       `json:"transitions"`

	PatternAccuracy         Accuracy `json:"pattern_accuracy"`
	ExampleAccuracy         Accuracy `json:"example_accuracy"`
	ExamplePatternAgreement Accuracy `json:"example_pattern_agreement"`

	PatternHistogram Histogram       `json:"pattern_confidence"`
	ExampleHistogram Histogram       `json:"example_confidence"`
	PatternStats     vecmath.Stats   `json:"pattern_confidence_stats"`
	ExampleStats     vecmath.Stats   `json:"example_confidence_stats"`
	Distribution     []CategoryCount `json:"category_distribution"`
}

// Analyzer runs the drift and mismatch predicates.
type Analyzer struct {
	Thresholds Thresholds
	Policy     classifier.Policy // buckets the histograms
}

// New creates an Analyzer.
func New(th Thresholds, policy classifier.Policy) *Analyzer {
	return &Analyzer{Thresholds: th, Policy: policy}
}

// Analyze walks the annotated corpus once, in registry order, so every list
// in the result is deterministic.
func (a *Analyzer) Analyze(res *engine.Result) Analysis {
	var (
		out          Analysis
		patAgree     int
		patCompared  int
		exAgree      int
		exCompared   int
		pairAgree    int
		pairCompared int
		patScores    []float64
		exScores     []float64
		transitions  = make(map[[2]string]int)
		distribution = make(map[string]*CategoryCount)
	)
	for _, cat := range res.Taxonomy.Labels() {
		distribution[cat.Slug] = &CategoryCount{Category: cat.Slug}
	}

	for _, ap := range res.Patterns {
		p := ap.Pattern
		pc := ap.Classification

		if pc != nil {
			patScores = append(patScores, pc.Confidence)
			out.PatternHistogram.add(a.Policy.Level(pc.Confidence))
			distribution[pc.Category].Patterns++
			a.patternPredicates(&out, p, pc)

			if p.OriginalSlug == "" {
				out.Unlabeled++
			} else {
				patCompared++
				if pc.Category == p.OriginalSlug {
					patAgree++
				}
				transitions[[2]string{p.OriginalSlug, pc.Category}]++
			}
		}

		for _, ae := range ap.Examples {
			ec := ae.Classification
			if ec == nil {
				continue
			}
			exScores = append(exScores, ec.Confidence)
			out.ExampleHistogram.add(a.Policy.Level(ec.Confidence))
			distribution[ec.Category].Examples++

			if p.OriginalSlug != "" {
				exCompared++
				if ec.Category == p.OriginalSlug {
					exAgree++
				}
			}
			if pc == nil {
				continue
			}
			pairCompared++
			if ec.Category == pc.Category {
				pairAgree++
				continue
			}
			out.Mismatches = append(out.Mismatches, Mismatch{
				PatternID:         p.ID,
				ExampleID:         ae.Example.ID,
				PatternCategory:   pc.Category,
				PatternConfidence: pc.Confidence,
				ExampleCategory:   ec.Category,
				ExampleConfidence: ec.Confidence,
				ConfidenceDelta:   math.Abs(pc.Confidence - ec.Confidence),
			})
		}
	}

	out.PatternAccuracy = newAccuracy(patAgree, patCompared)
	out.ExampleAccuracy = newAccuracy(exAgree, exCompared)
	out.ExamplePatternAgreement = newAccuracy(pairAgree, pairCompared)
	out.PatternStats = vecmath.Summarize(patScores)
	out.ExampleStats = vecmath.Summarize(exScores)
	out.Transitions = sortTransitions(transitions)
	for _, cat := range res.Taxonomy.Labels() {
		out.Distribution = append(out.Distribution, *distribution[cat.Slug])
	}
	return out
}

// patternPredicates applies the three pattern-level recommendation rules.
func (a *Analyzer) patternPredicates(out *Analysis, p *model.Pattern, pc *model.Classification) {
	th := a.Thresholds

	if p.OriginalSlug != "" && pc.Category != p.OriginalSlug {
		if pc.Confidence >= th.Recategorize {
			out.Recategorize = append(out.Recategorize, Recategorization{
				PatternID:  p.ID,
				Name:       p.Name,
				From:       p.OriginalSlug,
				To:         pc.Category,
				Similarity: pc.Confidence,
			})
		} else {
			out.NotedDisagreements++
		}
	}

	if pc.Confidence < th.LowConfidence {
		out.LowConfidence = append(out.LowConfidence, LowConfidence{
			PatternID:        p.ID,
			Name:             p.Name,
			OriginalCategory: p.OriginalSlug,
			BestCategory:     pc.Category,
			Similarity:       pc.Confidence,
		})
	}

	var relevant []model.Score
	for _, s := range pc.Scores() {
		if s.Score >= th.MultiCategory {
			relevant = append(relevant, s)
		}
	}
	if len(relevant) > 1 {
		out.MultiCategory = append(out.MultiCategory, MultiCategory{
			PatternID:  p.ID,
			Name:       p.Name,
			Categories: relevant,
		})
	}
}

// sortTransitions orders by count descending, then from, then to.
func sortTransitions(m map[[2]string]int) []Transition {
	out := make([]Transition, 0, len(m))
	for k, n := range m {
		out = append(out, Transition{From: k[0], To: k[1], Count: n, Changed: k[0] != k[1]})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Count != out[j].Count {
			return out[i].Count > out[j].Count
		}
		if out[i].From != out[j].From {
			return out[i].From < out[j].From
		}
		return out[i].To < out[j].To
	})
	return out
}
