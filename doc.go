// Package recall is a retrieval-augmented conversational assistant.
//
// An Engine ties a storage backend (badger, Redis Stack or memory) to an
// OpenAI-compatible provider. Documents are ingested into a vector index
// with an ingestion.Ingester; messages are answered by a pipeline.Pipeline
// that reads recent session history, optionally retrieves the nearest
// passages or classifies sentiment, generates a reply and records the turn.
//
//	engine, err := recall.Open(ctx, recall.WithBadger("./recall-data"))
//	if err != nil {
//	    return err
//	}
//	defer engine.Close()
//
//	p, err := engine.NewPipeline(pipeline.ModeRetrieval)
//	result, err := p.ProcessMessage(ctx, "What is Redis?", "")
//	fmt.Println(result.Response)
package recall
