// Copyright 2025 Poiesic Systems
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.


package core

import (
	"fmt"
	"time"
)

// ValidateTurn validates a ConversationTurn according to domain rules.
//
// Validation rules:
//   - UserMessage must not be empty
//   - Sentiment must be empty or one of the known values
//   - CreatedAt must not be in the future
//
// AssistantResponse is not checked: an empty completion is still a turn.
func ValidateTurn(turn ConversationTurn) error {
	if turn.UserMessage == "" {
		return fmt.Errorf("%w: %w", ErrInvalidTurn, ErrEmptyContent)
	}

	if err := ValidateSentiment(turn.Sentiment); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidTurn, err)
	}

	if !IsValidTimestamp(turn.CreatedAt) {
		return fmt.Errorf("%w: %w", ErrInvalidTurn, ErrInvalidTimestamp)
	}

	return nil
}

// ValidateSentiment accepts the empty value (no classification) and the three
// known polarities.
func ValidateSentiment(s Sentiment) error {
	switch s {
	case "", SentimentPositive, SentimentNegative, SentimentNeutral:
		return nil
	}
	return fmt.Errorf("%w: value %q", ErrInvalidSentiment, string(s))
}

// ValidateChunk validates a DocumentChunk.
// Dimension agreement with the target index is checked by the store.
func ValidateChunk(chunk DocumentChunk) error {
	if chunk.Index == "" {
		return fmt.Errorf("%w: index name is empty", ErrInvalidChunk)
	}
	if chunk.ChunkID == "" {
		return fmt.Errorf("%w: chunk id is empty", ErrInvalidChunk)
	}
	if len(chunk.Embedding) == 0 {
		return fmt.Errorf("%w: %w", ErrInvalidChunk, ErrEmptyEmbedding)
	}
	return nil
}

// ValidateIndexSpec validates an IndexSpec.
func ValidateIndexSpec(spec IndexSpec) error {
	if spec.Name == "" {
		return fmt.Errorf("%w: name is empty", ErrInvalidIndexSpec)
	}
	if spec.Dimension <= 0 {
		return fmt.Errorf("%w: dimension must be positive, got %d", ErrInvalidIndexSpec, spec.Dimension)
	}
	if spec.Metric != "" && spec.Metric != MetricCosine {
		return fmt.Errorf("%w: unsupported metric %q", ErrInvalidIndexSpec, spec.Metric)
	}
	return nil
}

// IsValidTimestamp checks if a timestamp is valid (not in the future).
func IsValidTimestamp(ts time.Time) bool {
	return !ts.After(time.Now())
}
