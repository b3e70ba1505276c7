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

import "errors"

var (
	// ErrConfiguration indicates invalid component parameters, such as a
	// chunk overlap that is not smaller than the window.
	ErrConfiguration = errors.New("invalid configuration")

	// ErrEmbedding indicates that the embedding service failed.
	ErrEmbedding = errors.New("embedding failed")

	// ErrGeneration indicates that the completion service failed.
	ErrGeneration = errors.New("generation failed")
)

// Domain validation errors
var (
	// ErrInvalidTurn indicates a ConversationTurn failed validation.
	ErrInvalidTurn = errors.New("invalid conversation turn")

	// ErrInvalidChunk indicates a DocumentChunk failed validation.
	ErrInvalidChunk = errors.New("invalid document chunk")

	// ErrInvalidIndexSpec indicates an IndexSpec failed validation.
	ErrInvalidIndexSpec = errors.New("invalid index spec")

	// ErrInvalidTimestamp indicates a timestamp is in the future.
	ErrInvalidTimestamp = errors.New("timestamp cannot be in the future")

	// ErrEmptyContent indicates a required text field is empty.
	ErrEmptyContent = errors.New("content cannot be empty")

	// ErrInvalidSentiment indicates an unknown Sentiment value.
	ErrInvalidSentiment = errors.New("invalid sentiment")

	// ErrEmptyEmbedding indicates a chunk carries no embedding.
	ErrEmptyEmbedding = errors.New("embedding cannot be empty")
)
