package pipeline

import "errors"

var (
	// ErrConversationStoreRequired is returned when a conversation store is not provided.
	ErrConversationStoreRequired = errors.New("conversation store required")

	// ErrGeneratorRequired is returned when a generator is not provided.
	ErrGeneratorRequired = errors.New("generator required")

	// ErrRetrieverRequired is returned when ModeRetrieval has no retriever.
	ErrRetrieverRequired = errors.New("retriever required")

	// ErrUnknownMode is returned for a Mode other than ModeRetrieval or ModeSentiment.
	ErrUnknownMode = errors.New("unknown pipeline mode")
)
