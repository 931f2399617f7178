// Package sqlite provides a SQLite-backed similarity store.
//
// This adapter uses modernc.org/sqlite, a pure Go SQLite implementation that requires
// no CGO, enabling easy cross-compilation. Each store id gets its own database:
//
//	<root>/<store_id>/index.db
//
// next to the store's build_info.json manifest.
//
// # Schema
//
// The database schema is managed through versioned migrations stored in the
// migrations/ directory and embedded at compile time.
//
// # Search
//
// Query is a flat scan computing cosine distance in Go. Stores hold one
// channel's transcripts, so a scan of a few hundred thousand vectors is
// the expected upper bound.
//
// # Thread Safety
//
// All operations are thread-safe. Writes happen in one transaction per
// batch and SQLite in WAL mode gives readers a consistent snapshot, so a
// concurrent Query sees either none or all of a batch.
package sqlite
