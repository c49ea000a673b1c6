// Package llm is the enrichment gateway: task-specific operations over a
// chat-completion client, each with input truncation, JSON-shape validation,
// bounded retry, and a typed empty fallback. Operations never return an
// error — a failed enrichment leaves the target field untouched.
package llm

import (
	"context"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/compass-ml/compkb/internal/resilience"
	"github.com/compass-ml/compkb/pkg/anthropic"
)

// Gateway exposes the enrichment operations. Construct with New.
type Gateway struct {
	client      anthropic.Client
	model       string
	maxAttempts int
	retryDelay  time.Duration
	prompts     PromptSet
}

// Options configures a Gateway.
type Options struct {
	Model string
	// MaxRetries is the number of retries after the first attempt. Default 3.
	MaxRetries int
	// RetryDelay is the fixed wait between attempts. Default 2s.
	RetryDelay time.Duration
	// PromptsPath optionally overrides the embedded prompt templates.
	PromptsPath string
}

// New builds a Gateway around the given client.
func New(client anthropic.Client, opts Options) (*Gateway, error) {
	prompts, err := LoadPrompts(opts.PromptsPath)
	if err != nil {
		return nil, err
	}
	if opts.MaxRetries <= 0 {
		opts.MaxRetries = 3
	}
	if opts.RetryDelay <= 0 {
		opts.RetryDelay = 2 * time.Second
	}
	return &Gateway{
		client:      client,
		model:       opts.Model,
		maxAttempts: opts.MaxRetries + 1,
		retryDelay:  opts.RetryDelay,
		prompts:     prompts,
	}, nil
}

// complete renders the task prompt, issues the completion with retry, and
// returns the validated text. validate both checks and optionally rewrites
// the raw model output; returning an error triggers a retry. On final
// failure complete returns ("", false) and the caller substitutes its typed
// empty value.
func (g *Gateway) complete(ctx context.Context, task string, data promptData, maxTokens int64, validate func(string) (string, error)) (string, bool) {
	system, user, err := g.prompts.render(task, data)
	if err != nil {
		zap.L().Error("prompt render failed", zap.String("task", task), zap.Error(err))
		return "", false
	}

	cfg := resilience.RetryConfig{
		MaxAttempts: g.maxAttempts,
		Delay:       g.retryDelay,
		OnRetry:     resilience.RetryLogger("llm", task),
	}

	out, err := resilience.DoVal(ctx, cfg, func(ctx context.Context) (string, error) {
		resp, err := g.client.CreateMessage(ctx, anthropic.MessageRequest{
			Model:     g.model,
			MaxTokens: maxTokens,
			System:    []anthropic.SystemBlock{{Text: system}},
			Messages:  []anthropic.Message{{Role: "user", Content: user}},
		})
		if err != nil {
			return "", err
		}
		resp.Usage.LogCost(g.model, task)
		return validate(strings.TrimSpace(resp.Text()))
	})
	if err != nil {
		zap.L().Warn("enrichment failed after retries",
			zap.String("task", task),
			zap.Error(err))
		return "", false
	}
	return out, true
}
