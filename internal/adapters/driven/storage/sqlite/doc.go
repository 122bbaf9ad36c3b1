// Package sqlite provides a unified SQLite-based implementation of driven port interfaces.
//
// This adapter uses modernc.org/sqlite, a pure Go SQLite implementation that requires
// no CGO, enabling easy cross-compilation. It implements the catalog stores
// through a single database connection:
//
//   - BookStore: book, chunk and retrieval-strategy persistence
//   - UserStore: behavioural signal persistence (favourites, last seen, search logs)
//
// # Retrieval
//
// The search strategies run as plain SQL over scalar scoring functions
// implemented in Go and registered with the driver: vec_cosine for chunk
// embedding similarity, trgm_sim for trigram string similarity and
// word_hits for the hybrid-fast lexical heuristic. Embeddings are stored
// as little-endian float32 BLOBs.
//
// # Schema
//
// The database schema is managed through versioned migrations stored in the
// migrations/ directory. Each migration is a pair of .up.sql and .down.sql files.
//
// # Data Location
//
// By default, the database is stored at ~/.libris/data/catalog.db
//
// # Thread Safety
//
// All operations are thread-safe. The store uses database-level locking provided
// by SQLite in WAL mode.
package sqlite
