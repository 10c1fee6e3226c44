// Package taxodrift measures how far a prompt-engineering corpus has
// drifted from its category taxonomy. It scores every pattern and example
// embedding against the category centroids, attaches the best match, and
// reports recategorization candidates, weak matches, multi-category
// patterns and pattern/example disagreements.
//
// Quick start:
//
//	d, err := taxodrift.New(taxodrift.WithInputs(
//	    "data/categories.json", "data/patterns.json", "data/embeddings"))
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	rep, enhanced, err := d.Run(ctx)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	for _, r := range rep.Recommendations.Recategorize {
//	    fmt.Println(r.PatternID, r.From, "->", r.To)
//	}
//	_ = enhanced // the corpus with classifications attached
//
// Embedding generation is out of scope: vectors are read from JSON shards
// (optionally gzip or zstd compressed) produced by an upstream job.
package taxodrift
