package driven

import "time"

// PipelineMetrics receives observations from the embedding pipeline and
// the interest-vector builder. It keeps the engine free of I/O side
// effects unrelated to its contract; verbose logging stays in the
// adapters and the injected implementation decides what to record.
type PipelineMetrics interface {
	// BooksProcessed records books that completed chunk regeneration.
	BooksProcessed(n int)

	// EmbeddingLatency records the duration of one provider embedding call.
	EmbeddingLatency(d time.Duration)

	// EmbeddingFailed records a provider failure that was recovered with
	// a fallback.
	EmbeddingFailed()
}

// NopMetrics discards all observations. It is the default when no metrics
// sink is injected.
type NopMetrics struct{}

var _ PipelineMetrics = NopMetrics{}

// BooksProcessed implements PipelineMetrics.
func (NopMetrics) BooksProcessed(int) {}

// EmbeddingLatency implements PipelineMetrics.
func (NopMetrics) EmbeddingLatency(time.Duration) {}

// EmbeddingFailed implements PipelineMetrics.
func (NopMetrics) EmbeddingFailed() {}
