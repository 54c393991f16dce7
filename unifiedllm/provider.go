package unifiedllm

import (
	"context"
	"sync"
)

// ProviderAdapter is the interface every completion backend implements.
type ProviderAdapter interface {
	// Name returns the provider identifier (e.g. "openai", "anthropic").
	Name() string

	// Complete sends a blocking request and returns the full response.
	Complete(ctx context.Context, req Request) (*Response, error)
}

// Closer is implemented by adapters that hold resources.
type Closer interface {
	Close() error
}

// AdapterFactory builds a ProviderAdapter on demand.
type AdapterFactory func() (ProviderAdapter, error)

// LazyAdapter defers construction of its underlying adapter until the first
// call. A factory failure (typically a missing credential) is reported by
// that call as a ConfigurationError and retried on the next one.
type LazyAdapter struct {
	name    string
	factory AdapterFactory
	adapter ProviderAdapter
	mu      sync.Mutex
}

// NewLazyAdapter creates a LazyAdapter for the named provider.
func NewLazyAdapter(name string, factory AdapterFactory) *LazyAdapter {
	return &LazyAdapter{name: name, factory: factory}
}

// Name returns the provider identifier.
func (l *LazyAdapter) Name() string { return l.name }

// Complete builds the underlying adapter if needed and delegates to it.
func (l *LazyAdapter) Complete(ctx context.Context, req Request) (*Response, error) {
	adapter, err := l.resolve()
	if err != nil {
		return nil, err
	}
	return adapter.Complete(ctx, req)
}

// Close releases the underlying adapter, if one was built.
func (l *LazyAdapter) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if closer, ok := l.adapter.(Closer); ok {
		return closer.Close()
	}
	return nil
}

func (l *LazyAdapter) resolve() (ProviderAdapter, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.adapter != nil {
		return l.adapter, nil
	}
	adapter, err := l.factory()
	if err != nil {
		return nil, &ConfigurationError{SDKError: SDKError{
			Message: "failed to initialize provider " + l.name,
			Cause:   err,
		}}
	}
	l.adapter = adapter
	return adapter, nil
}
