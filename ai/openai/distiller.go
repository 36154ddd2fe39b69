// Copyright 2025 Emberlight Labs
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
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/emberlight/distill/ai"
	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/llms/openai"
	"golang.org/x/time/rate"
)

// Distiller implements ai.Distiller using OpenAI-compatible chat APIs.
type Distiller struct {
	client        llms.Model
	maxInputChars int
	limiter       *rate.Limiter
	logger        *slog.Logger
}

// newDistiller is an internal constructor that returns the concrete type.
// Used by Provider to manage the instance.
func newDistiller(config *ai.Config) (*Distiller, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}

	client, err := openai.New(
		openai.WithBaseURL(config.Host),
		openai.WithToken(config.Token),
		openai.WithModel(config.Model),
	)
	if err != nil {
		return nil, err
	}

	var limiter *rate.Limiter
	if config.RequestsPerMinute > 0 {
		limiter = rate.NewLimiter(rate.Limit(float64(config.RequestsPerMinute)/60.0), 1)
	}

	return &Distiller{
		client:        client,
		maxInputChars: config.MaxInputChars,
		limiter:       limiter,
		logger:        slog.Default().With("component", "openai-distiller"),
	}, nil
}

// NewDistiller creates a new distiller using the provided configuration.
//
// Returns ai.Distiller interface to enforce abstraction.
func NewDistiller(config *ai.Config) (ai.Distiller, error) {
	return newDistiller(config)
}

// Distill sends text to the model and returns the distilled output.
func (d *Distiller) Distill(ctx context.Context, text string) (string, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return "", ai.ErrEmptyInput
	}
	text = truncateRunes(text, d.maxInputChars)

	if d.limiter != nil {
		if err := d.limiter.Wait(ctx); err != nil {
			return "", classifyError(err)
		}
	}

	content := []llms.MessageContent{
		{
			Role: llms.ChatMessageTypeSystem,
			Parts: []llms.ContentPart{
				llms.TextPart(distillSystemPrompt),
			},
		},
		{
			Role: llms.ChatMessageTypeHuman,
			Parts: []llms.ContentPart{
				llms.TextPart(text),
			},
		},
	}

	d.logger.Debug("distilling text", "chars", len(text))

	response, err := d.client.GenerateContent(ctx, content, llms.WithTemperature(0.3))
	if err != nil {
		d.logger.Error("failed to generate content", "err", err)
		return "", classifyError(err)
	}

	if len(response.Choices) < 1 {
		d.logger.Error("no choices returned from model")
		return "", fmt.Errorf("%w: no choices returned", ai.ErrInvalidResponse)
	}

	output := strings.TrimSpace(response.Choices[0].Content)
	if output == "" {
		return "", fmt.Errorf("%w: empty completion", ai.ErrInvalidResponse)
	}

	return output, nil
}

// classifyError maps transport and provider failures onto the ai sentinel
// errors while preserving the original message.
func classifyError(err error) error {
	if errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("%w: %v", ai.ErrTimeout, err)
	}
	if errors.Is(err, context.Canceled) {
		return err
	}

	msg := strings.ToLower(err.Error())
	switch {
	case strings.Contains(msg, "401") || strings.Contains(msg, "unauthorized") ||
		strings.Contains(msg, "invalid api key") || strings.Contains(msg, "incorrect api key"):
		return fmt.Errorf("%w: %v", ai.ErrAuthentication, err)
	case strings.Contains(msg, "429") || strings.Contains(msg, "rate limit") ||
		strings.Contains(msg, "too many requests") || strings.Contains(msg, "quota"):
		return fmt.Errorf("%w: %v", ai.ErrRateLimited, err)
	case strings.Contains(msg, "timeout") || strings.Contains(msg, "deadline exceeded"):
		return fmt.Errorf("%w: %v", ai.ErrTimeout, err)
	case strings.Contains(msg, "unmarshal") || strings.Contains(msg, "unexpected end") ||
		strings.Contains(msg, "malformed"):
		return fmt.Errorf("%w: %v", ai.ErrInvalidResponse, err)
	}
	return err
}

// truncateRunes caps s at limit runes. limit <= 0 disables truncation.
func truncateRunes(s string, limit int) string {
	if limit <= 0 {
		return s
	}
	runes := []rune(s)
	if len(runes) <= limit {
		return s
	}
	return string(runes[:limit])
}
