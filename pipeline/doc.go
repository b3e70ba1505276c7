// Package pipeline turns a user message into a grounded assistant reply.
//
// A Pipeline runs a fixed sequence of stages over an immutable State:
//
//	ModeRetrieval: FETCH_HISTORY -> RETRIEVE_CONTEXT -> GENERATE -> PERSIST
//	ModeSentiment: CLASSIFY_SENTIMENT -> FETCH_HISTORY -> GENERATE -> PERSIST
//
// Read stages degrade: a failing history read or retrieval leaves the
// corresponding field empty and the run continues. GENERATE is fatal, so no
// turn is persisted without a response. A PERSIST failure is logged and the
// response is still returned.
//
// # Usage
//
//	p, err := pipeline.New(pipeline.ModeRetrieval, conversations, generator,
//	    pipeline.WithRetriever(searcher),
//	)
//	result, err := p.ProcessMessage(ctx, "How do I create a vector index?", "")
//	fmt.Println(result.SessionID, result.Response)
package pipeline
