package health

import "context"

// IndexReadiness reports whether the vector index is loaded and serving.
type IndexReadiness interface {
	Ready() bool
}

// CachePinger checks embedding-cache store availability.
type CachePinger interface {
	Ping(ctx context.Context) error
}

// EmbeddingChecker checks embedding provider availability.
type EmbeddingChecker interface {
	HealthCheck(ctx context.Context) error
}
