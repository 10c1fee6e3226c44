package taxodrift_test

import (
	"context"
	"fmt"
	"log"
	"os"

	"github.com/crimson-sun/taxodrift/internal/engine/fixtures"
	"github.com/crimson-sun/taxodrift/pkg/taxodrift"
)

func Example() {
	dir, err := os.MkdirTemp("", "taxodrift-example")
	if err != nil {
		log.Fatal(err)
	}
	defer os.RemoveAll(dir)

	src, err := fixtures.Materialize(dir)
	if err != nil {
		log.Fatal(err)
	}

	d, err := taxodrift.New(taxodrift.WithInputs(src.Categories, src.Patterns, src.EmbeddingsDir))
	if err != nil {
		log.Fatal(err)
	}

	rep, _, err := d.Run(context.Background())
	if err != nil {
		log.Fatal(err)
	}

	fmt.Printf("coverage: %.0f%% of patterns\n", rep.Coverage.PatternPercent)
	for _, r := range rep.Recommendations.Recategorize {
		fmt.Printf("recategorize %s: %s -> %s (%.2f)\n", r.PatternID, r.From, r.To, r.Similarity)
	}
	// Output:
	// coverage: 60% of patterns
	// recategorize prompting-survey-chain-of-thought-persona: chain-of-thought -> role-prompting (0.75)
}
