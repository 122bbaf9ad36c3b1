// Package domain defines the core business entities for Libris.
//
// This package is part of the hexagonal architecture's innermost layer.
// It has NO external dependencies and defines the fundamental types:
//
//   - Book: A catalog entry with authors, categories and a publisher
//   - Chunk: An embedded slice of a book's text
//   - BookQuery: An ephemeral search request
//   - ResultPage: A ranked page of results with its total count
//   - Favorite, LastSeen, SearchLog: user behavioural signals
//
// # Architectural Position
//
// Domain is at the centre of the hexagon. It may only import
// the Go standard library. All other packages depend on domain,
// never the reverse.
//
// # Import Rules
//
//   - Can Import: Standard library only
//   - Cannot Import: Any internal/ package, any external dependency
package domain
