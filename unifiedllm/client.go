package unifiedllm

import (
	"context"
	"fmt"
	"time"

	charmlog "github.com/charmbracelet/log"
)

// Handler performs one completion request.
type Handler func(ctx context.Context, req Request) (*Response, error)

// Middleware wraps a Handler. Middleware registered first sees the request
// first and the response last.
type Middleware func(ctx context.Context, req Request, next func(context.Context, Request) (*Response, error)) (*Response, error)

// Client routes completion requests to a registered provider adapter. Every
// call passes through the middleware chain and the retry policy.
type Client struct {
	providers       map[string]ProviderAdapter
	defaultProvider string
	middleware      []Middleware
	retry           RetryPolicy
}

// ClientOption configures a Client.
type ClientOption func(*Client)

// WithProvider registers an adapter under name.
func WithProvider(name string, adapter ProviderAdapter) ClientOption {
	return func(c *Client) { c.providers[name] = adapter }
}

// WithDefaultProvider names the adapter used when a request carries no
// provider.
func WithDefaultProvider(name string) ClientOption {
	return func(c *Client) { c.defaultProvider = name }
}

// WithMiddleware appends middleware to the chain.
func WithMiddleware(mw ...Middleware) ClientOption {
	return func(c *Client) { c.middleware = append(c.middleware, mw...) }
}

// WithRetryPolicy sets the policy applied around each Complete call.
func WithRetryPolicy(policy RetryPolicy) ClientOption {
	return func(c *Client) { c.retry = policy }
}

// NewClient builds a Client. A lone registered provider becomes the default,
// and without WithRetryPolicy every call is attempted once.
func NewClient(opts ...ClientOption) *Client {
	c := &Client{
		providers: make(map[string]ProviderAdapter),
		retry:     NoRetryPolicy(),
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.defaultProvider == "" && len(c.providers) == 1 {
		for name := range c.providers {
			c.defaultProvider = name
		}
	}
	return c
}

func (c *Client) adapterFor(req Request) (ProviderAdapter, error) {
	name := req.Provider
	switch {
	case name != "":
	case c.defaultProvider != "":
		name = c.defaultProvider
	default:
		info := GetModelInfo(req.Model)
		if info == nil {
			return nil, &ConfigurationError{SDKError: SDKError{
				Message: "no provider specified and no default provider configured",
			}}
		}
		name = info.Provider
	}

	adapter, ok := c.providers[name]
	if !ok {
		return nil, &ConfigurationError{SDKError: SDKError{
			Message: fmt.Sprintf("provider %q is not registered", name),
		}}
	}
	return adapter, nil
}

// chain wraps h so that mw[0] is the outermost layer.
func chain(h Handler, mw []Middleware) Handler {
	for i := len(mw) - 1; i >= 0; i-- {
		layer, next := mw[i], h
		h = func(ctx context.Context, req Request) (*Response, error) {
			return layer(ctx, req, next)
		}
	}
	return h
}

// Complete resolves the provider for req and sends it, retrying retryable
// failures according to the client's policy.
func (c *Client) Complete(ctx context.Context, req Request) (*Response, error) {
	adapter, err := c.adapterFor(req)
	if err != nil {
		return nil, err
	}
	if req.Provider == "" {
		req.Provider = adapter.Name()
	}

	handler := chain(adapter.Complete, c.middleware)
	return Retry(ctx, c.retry, func(ctx context.Context) (*Response, error) {
		return handler(ctx, req)
	})
}

// Close closes every registered adapter that holds resources and returns the
// first error.
func (c *Client) Close() error {
	var firstErr error
	for _, adapter := range c.providers {
		closer, ok := adapter.(Closer)
		if !ok {
			continue
		}
		if err := closer.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

// TracingMiddleware logs every request and its outcome at debug level.
func TracingMiddleware(log *charmlog.Logger) Middleware {
	return func(ctx context.Context, req Request, next func(context.Context, Request) (*Response, error)) (*Response, error) {
		start := time.Now()
		log.Debug("llm request",
			"provider", req.Provider,
			"model", req.Model,
			"messages", len(req.Messages),
			"tools", len(req.ToolDefs),
			"thread_id", req.Metadata["thread_id"],
		)
		resp, err := next(ctx, req)
		if err != nil {
			log.Debug("llm error", "provider", req.Provider, "err", err, "elapsed", time.Since(start))
			return nil, err
		}
		log.Debug("llm response",
			"id", resp.ID,
			"finish_reason", resp.FinishReason.Reason,
			"tool_calls", len(resp.ToolCallsFromResponse()),
			"input_tokens", resp.Usage.InputTokens,
			"output_tokens", resp.Usage.OutputTokens,
			"elapsed", time.Since(start),
		)
		return resp, nil
	}
}
