package llm

import "context"

// Provider defines the interface for text-completion providers.
type Provider interface {
	// Complete sends a completion request and returns the full response.
	Complete(ctx context.Context, req CompletionRequest) (*CompletionResponse, error)
	// Name returns the name of this provider.
	Name() string
}

// StreamHandler receives incremental content chunks during a streaming
// completion. Returning an error aborts the stream.
type StreamHandler func(chunk string) error

// StreamingProvider is implemented by providers that can deliver the
// response incrementally. Providers that cannot stream are wrapped by
// CompleteStreamFallback.
type StreamingProvider interface {
	Provider
	// CompleteStream sends a completion request and delivers content
	// chunks to the handler as they arrive. The returned response
	// carries the concatenated content.
	CompleteStream(ctx context.Context, req CompletionRequest, h StreamHandler) (*CompletionResponse, error)
}

// CompleteStreamFallback emulates streaming for a non-streaming provider
// by delivering the full response as a single chunk.
func CompleteStreamFallback(ctx context.Context, p Provider, req CompletionRequest, h StreamHandler) (*CompletionResponse, error) {
	resp, err := p.Complete(ctx, req)
	if err != nil {
		return nil, err
	}
	if h != nil && resp.Content != "" {
		if err := h(resp.Content); err != nil {
			return nil, err
		}
	}
	return resp, nil
}
