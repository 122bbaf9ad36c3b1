// Package services implements the core engine logic behind the driving
// ports: text chunking, the chunk embedding pipeline, the multi-strategy
// search engine, the RAG recommendation pipeline and the user interest
// vector builder.
//
// Services depend only on domain types and driven ports; all I/O goes
// through injected adapters.
package services
