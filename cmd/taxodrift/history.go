package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/crimson-sun/taxodrift/internal/history"
)

func newHistoryCmd(a *app) *cobra.Command {
	var (
		limit    int
		corpusID string
		asJSON   bool
	)

	cmd := &cobra.Command{
		Use:   "history",
		Short: "Show previously recorded runs",
		Long: `List runs recorded in the history database, newest first. With --corpus,
show the latest run of that corpus including its category transitions.`,
		Example: `  taxodrift history --history .taxodrift/history.db
  taxodrift history --history .taxodrift/history.db --corpus 3f8d2c1e-5b7a-5c4d-9e2f-1a0b3c4d5e6f --json`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if a.cfg.History.Path == "" {
				return errors.New("history: no database configured (set --history or TAXODRIFT_HISTORY_PATH)")
			}
			store, err := history.Open(a.cfg.History.Path)
			if err != nil {
				return err
			}
			defer store.Close()

			w := cmd.OutOrStdout()
			if corpusID != "" {
				run, err := store.Latest(cmd.Context(), corpusID)
				if err != nil {
					return err
				}
				if asJSON {
					return writeJSON(w, run)
				}
				printRun(w, run)
				return nil
			}

			runs, err := store.List(cmd.Context(), limit)
			if err != nil {
				return err
			}
			if asJSON {
				if runs == nil {
					runs = []history.Run{}
				}
				return writeJSON(w, runs)
			}
			printRuns(w, runs)
			return nil
		},
	}

	cmd.Flags().IntVarP(&limit, "limit", "n", 20, "maximum runs to list; 0 lists all")
	cmd.Flags().StringVar(&corpusID, "corpus", "", "show the latest run of this corpus id")
	cmd.Flags().BoolVar(&asJSON, "json", false, "print JSON instead of a table")
	return cmd
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func printRuns(w io.Writer, runs []history.Run) {
	if len(runs) == 0 {
		fmt.Fprintln(w, "no runs recorded")
		return
	}
	header := color.New(color.Bold)
	header.Fprintf(w, "%-20s  %-36s  %8s  %8s  %8s  %6s  %6s\n",
		"GENERATED", "CORPUS", "PAT COV", "PAT ACC", "EX ACC", "RECAT", "MISM")
	for _, r := range runs {
		fmt.Fprintf(w, "%-20s  %-36s  %7.1f%%  %7.1f%%  %7.1f%%  %6d  %6d\n",
			r.GeneratedAt.Format(time.RFC3339), r.CorpusID,
			r.PatternCoverage, r.PatternAccuracy, r.ExampleAccuracy,
			r.Recategorize, r.Mismatches)
	}
}

func printRun(w io.Writer, r history.Run) {
	color.New(color.FgCyan, color.Bold).Fprintf(w, "run %s\n", r.ID)
	fmt.Fprintf(w, "corpus       %s\n", r.CorpusID)
	fmt.Fprintf(w, "generated    %s\n", r.GeneratedAt.Format(time.RFC3339))
	fmt.Fprintf(w, "corpus size  %d categories, %d patterns, %d examples (%d skipped)\n",
		r.Categories, r.Patterns, r.Examples, r.Skipped)
	fmt.Fprintf(w, "coverage     patterns %.1f%%, examples %.1f%%\n", r.PatternCoverage, r.ExampleCoverage)
	fmt.Fprintf(w, "accuracy     pattern %.1f%%, example %.1f%%, example/pattern %.1f%%\n",
		r.PatternAccuracy, r.ExampleAccuracy, r.Agreement)
	fmt.Fprintf(w, "drift        %d recategorize, %d low confidence, %d multi-category, %d mismatches\n",
		r.Recategorize, r.LowConfidence, r.MultiCategory, r.Mismatches)
	if len(r.Transitions) == 0 {
		return
	}
	fmt.Fprintln(w, "transitions")
	for _, t := range r.Transitions {
		marker := " "
		if t.Changed {
			marker = "*"
		}
		fmt.Fprintf(w, " %s%s -> %s: %d\n", marker, t.From, t.To, t.Count)
	}
}
