// Package openai adapts the OpenAI embeddings API to the
// ports.EmbeddingProvider interface. Calls run behind a circuit breaker so
// a flapping upstream fails fast instead of stalling every clip request;
// callers already treat provider failure as a degraded, recoverable state.
package openai

import (
	"context"
	"errors"
	"time"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
	"github.com/sony/gobreaker"
	"go.uber.org/zap"

	pkgerrors "palantir-backend/pkg/errors"
)

// Options configure the embedding provider
type Options struct {
	Model      string
	Dimensions int
	Timeout    time.Duration
}

// Provider wraps the OpenAI embeddings endpoint
type Provider struct {
	client  openai.Client
	opts    Options
	breaker *gobreaker.CircuitBreaker
	logger  *zap.Logger
}

// NewProvider creates a provider with the given API key and options
func NewProvider(apiKey string, opts Options, logger *zap.Logger) *Provider {
	if opts.Model == "" {
		opts.Model = string(openai.EmbeddingModelTextEmbedding3Small)
	}
	if opts.Timeout <= 0 {
		opts.Timeout = 10 * time.Second
	}

	breaker := gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        "openai-embeddings",
		MaxRequests: 5,
		Interval:    30 * time.Second,
		Timeout:     60 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			if counts.Requests < 5 {
				return false
			}
			failureRatio := float64(counts.TotalFailures) / float64(counts.Requests)
			return failureRatio >= 0.8
		},
		OnStateChange: func(name string, from gobreaker.State, to gobreaker.State) {
			logger.Warn("Circuit breaker state changed",
				zap.String("breaker", name),
				zap.String("from", from.String()),
				zap.String("to", to.String()),
			)
		},
	})

	return &Provider{
		client:  openai.NewClient(option.WithAPIKey(apiKey)),
		opts:    opts,
		breaker: breaker,
		logger:  logger,
	}
}

// Embed returns the embedding vector for the given text
func (p *Provider) Embed(ctx context.Context, text string) ([]float64, error) {
	result, err := p.breaker.Execute(func() (any, error) {
		callCtx, cancel := context.WithTimeout(ctx, p.opts.Timeout)
		defer cancel()

		params := openai.EmbeddingNewParams{
			Model: openai.EmbeddingModel(p.opts.Model),
			Input: openai.EmbeddingNewParamsInputUnion{
				OfArrayOfStrings: []string{text},
			},
		}
		if p.opts.Dimensions > 0 {
			params.Dimensions = openai.Int(int64(p.opts.Dimensions))
		}

		resp, err := p.client.Embeddings.New(callCtx, params)
		if err != nil {
			return nil, err
		}
		if len(resp.Data) == 0 {
			return nil, pkgerrors.NewExternalError("embedding response contained no data", nil)
		}
		return resp.Data[0].Embedding, nil
	})
	if err != nil {
		return nil, wrapProviderError(err)
	}

	return result.([]float64), nil
}

// wrapProviderError maps a transport failure onto the error taxonomy: a
// deadline overrun is a TIMEOUT, everything else an upstream EXTERNAL error
func wrapProviderError(err error) *pkgerrors.AppError {
	if errors.Is(err, context.DeadlineExceeded) {
		return pkgerrors.NewTimeoutError("embedding request timed out", err)
	}
	return pkgerrors.NewExternalError("embedding request failed", err)
}

// Dimensions returns the configured embedding size
func (p *Provider) Dimensions() int {
	return p.opts.Dimensions
}
