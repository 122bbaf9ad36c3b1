package services

import "strings"

// DefaultChunkSize is the default number of characters per chunk.
const DefaultChunkSize = 1024

// DefaultChunkOverlap is the default number of overlapping characters.
const DefaultChunkOverlap = 128

// Chunker splits long text into overlapping fixed-size segments suitable
// for embedding. It is deterministic and side-effect-free: the same input
// always yields the same chunk boundaries, which is required for
// reproducible re-embedding.
type Chunker struct {
	chunkSize int
	overlap   int
	tailMerge int
}

// ChunkerOption configures a Chunker.
type ChunkerOption func(*Chunker)

// WithChunkSize sets the chunk size in characters.
func WithChunkSize(size int) ChunkerOption {
	return func(c *Chunker) {
		if size > 0 {
			c.chunkSize = size
		}
	}
}

// WithOverlap sets the overlap between adjacent chunks in characters.
func WithOverlap(overlap int) ChunkerOption {
	return func(c *Chunker) {
		if overlap >= 0 {
			c.overlap = overlap
		}
	}
}

// WithTailMerge sets the tail-merge threshold: when the text remaining
// after a window is shorter than this, the window is extended to consume
// it instead of emitting a near-empty trailing chunk.
func WithTailMerge(threshold int) ChunkerOption {
	return func(c *Chunker) {
		if threshold >= 0 {
			c.tailMerge = threshold
		}
	}
}

// NewChunker creates a Chunker with the given options. The tail-merge
// threshold defaults to half the chunk size.
func NewChunker(opts ...ChunkerOption) *Chunker {
	c := &Chunker{
		chunkSize: DefaultChunkSize,
		overlap:   DefaultChunkOverlap,
		tailMerge: -1,
	}

	for _, opt := range opts {
		opt(c)
	}

	// Overlap must leave the window some forward progress.
	if c.overlap >= c.chunkSize {
		c.overlap = c.chunkSize / 4
	}
	if c.tailMerge < 0 {
		c.tailMerge = c.chunkSize / 2
	}

	return c
}

// Chunk splits text into ordered, whitespace-trimmed segments. Windows of
// chunkSize characters advance by chunkSize-overlap each step. Boundaries
// are counted in runes so a window never splits a multi-byte character.
// Empty input yields no chunks.
func (c *Chunker) Chunk(text string) []string {
	if text == "" {
		return nil
	}

	runes := []rune(text)

	var chunks []string
	start := 0

	for start < len(runes) {
		end := start + c.chunkSize
		if end > len(runes) {
			end = len(runes)
		}

		// Tail-merge: absorb a short remainder into the current window.
		if end != len(runes) && len(runes)-end < c.tailMerge {
			end = len(runes)
		}

		chunks = append(chunks, strings.TrimSpace(string(runes[start:end])))

		if end == len(runes) {
			break
		}
		start += c.chunkSize - c.overlap
	}

	return chunks
}
