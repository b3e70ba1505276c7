// Package ingestion builds the vector index from a directory of Markdown
// documents.
//
// Each document is rendered to plain text, split into overlapping token
// windows, embedded chunk by chunk and upserted as {docID}:{i}, where docID
// is the file name without its extension. A document that fails at any step
// is counted and logged; the rest of the batch continues. Documents whose
// content is identical to one already seen in the batch are skipped.
//
//	ing, err := ingestion.NewIngester(store, embedder, chunker,
//	    ingestion.WithPoolSize(4),
//	    ingestion.WithProgress(os.Stderr),
//	)
//	defer ing.Release()
//	summary, err := ing.IngestDir(ctx, "./docs")
//	fmt.Println(summary)
package ingestion
