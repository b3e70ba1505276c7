package pipeline

import (
	"slices"

	"github.com/poiesic/recall/core"
)

// State is the value threaded through the stages of one ProcessMessage call.
// Stages never mutate a State; they return an updated copy.
type State struct {
	UserInput string
	SessionID string
	Sentiment core.Sentiment
	History   []core.ConversationTurn // most recent first
	Context   []core.ScoredChunk      // nearest first
	Response  string
}

// NewState returns the initial state of a run.
func NewState(userInput, sessionID string) State {
	return State{UserInput: userInput, SessionID: sessionID}
}

// WithSentiment returns a copy with the sentiment set.
func (s State) WithSentiment(v core.Sentiment) State {
	s.Sentiment = v
	return s
}

// WithHistory returns a copy holding its own copy of history.
func (s State) WithHistory(history []core.ConversationTurn) State {
	s.History = slices.Clone(history)
	return s
}

// WithContext returns a copy holding its own copy of chunks.
func (s State) WithContext(chunks []core.ScoredChunk) State {
	s.Context = slices.Clone(chunks)
	return s
}

// WithResponse returns a copy with the response set.
func (s State) WithResponse(response string) State {
	s.Response = response
	return s
}
