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
package openai

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/poiesic/recall/ai"
	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/llms/openai"
)

// Generator implements ai.Generator on an OpenAI-compatible chat API.
// The prompt is sent as a single human message.
type Generator struct {
	llm         llms.Model
	temperature float64
	logger      *slog.Logger
}

func newGenerator(config *ai.Config, httpClient *http.Client) (*Generator, error) {
	llm, err := openai.New(
		openai.WithBaseURL(config.GenerationHost),
		openai.WithToken(config.Token()),
		openai.WithModel(config.GenerationModel),
		openai.WithHTTPClient(httpClient),
	)
	if err != nil {
		return nil, fmt.Errorf("generation client: %w", err)
	}

	return &Generator{
		llm:         llm,
		temperature: config.Temperature,
		logger:      slog.Default().With("component", "openai-generator", "model", config.GenerationModel),
	}, nil
}

// NewGenerator creates a standalone generator with its own HTTP client.
func NewGenerator(config *ai.Config) (ai.Generator, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}
	return newGenerator(config, newHTTPClient(DefaultRequestTimeout))
}

// Complete returns the model's reply to prompt.
func (g *Generator) Complete(ctx context.Context, prompt string) (string, error) {
	reply, err := llms.GenerateFromSinglePrompt(ctx, g.llm, prompt, llms.WithTemperature(g.temperature))
	if err != nil {
		g.logger.Error("completion request failed", "promptChars", len(prompt), "err", err)
		return "", err
	}
	g.logger.Debug("completed prompt", "promptChars", len(prompt), "replyChars", len(reply))
	return reply, nil
}
