package pipeline

import (
	"strings"

	"github.com/poiesic/recall/core"
)

// Personas open every prompt.
const (
	PersonaRetrieval = "You are a helpful and professional assistant on serving technical documentation on RedisAI. Respond clearly and informatively."
	PersonaPositive  = "You are a helpful and enthusiastic assistant. The user seems to be in a positive mood, so respond warmly and encouragingly."
	PersonaNegative  = "You are a helpful and empathetic assistant. The user seems to be in a negative mood, so respond with understanding and support."
	PersonaNeutral   = "You are a helpful and professional assistant. Respond clearly and informatively."
)

// PersonaFor returns the persona matching a sentiment.
func PersonaFor(s core.Sentiment) string {
	switch s {
	case core.SentimentPositive:
		return PersonaPositive
	case core.SentimentNegative:
		return PersonaNegative
	default:
		return PersonaNeutral
	}
}

// BuildPrompt assembles persona, context block and user input:
//
//	{persona}\n\n{context}\n\nUser: {input}
//
// The context block lists up to promptTurns of history oldest first, then
// the retrieved passages. Either part is omitted when empty.
func BuildPrompt(persona string, state State, promptTurns int) string {
	var sb strings.Builder
	sb.WriteString(persona)
	sb.WriteString("\n\n")
	sb.WriteString(contextBlock(state, promptTurns))
	sb.WriteString("\n\nUser: ")
	sb.WriteString(state.UserInput)
	return sb.String()
}

func contextBlock(state State, promptTurns int) string {
	var sb strings.Builder

	recent := state.History[:min(promptTurns, len(state.History))]
	if len(recent) > 0 {
		sb.WriteString("Previous conversation:\n")
		for i := len(recent) - 1; i >= 0; i-- {
			sb.WriteString("User: ")
			sb.WriteString(recent[i].UserMessage)
			sb.WriteString("\nAssistant: ")
			sb.WriteString(recent[i].AssistantResponse)
			sb.WriteString("\n")
		}
	}

	if knowledge := JoinContext(state.Context); knowledge != "" {
		sb.WriteString("\nRelevant knowledge:\n")
		sb.WriteString(knowledge)
		sb.WriteString("\n")
	}
	return sb.String()
}

// JoinContext joins passage texts with newlines.
func JoinContext(chunks []core.ScoredChunk) string {
	texts := make([]string, len(chunks))
	for i, c := range chunks {
		texts[i] = c.Text
	}
	return strings.Join(texts, "\n")
}
