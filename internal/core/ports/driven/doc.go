// Package driven defines the interfaces that core calls OUT to infrastructure.
//
// These are the "driven" or "secondary" ports in hexagonal architecture.
// Core services depend on these interfaces, and infrastructure adapters
// implement them.
//
// # Required Interfaces
//
// These must be provided for the application to function:
//
//   - TranscriptSource: Discovers and loads transcribed units
//   - StoreProvider: Opens the similarity store for a store id
//   - SimilarityStore: Nearest-neighbour search over stored chunks
//   - ManifestStore: Persists each store's IndexManifest
//   - EmbeddingService: Generates vector embeddings
//   - ConfigStore: Application configuration
//
// # Optional Interfaces
//
// These can be nil - the application degrades gracefully:
//
//   - LLMService: Topic summaries. Without it, summaries use key-sentence extraction.
//   - TenantRegistry: Channel list. Without it, only the global store is built and searched.
//   - TokenEstimator: Exact token counts. Without it, a word-count heuristic is used.
//   - PromptStore: Editable summary prompts. Without it, DefaultPrompts are used.
//
// # Import Rules
//
//   - Can Import: domain package only
//   - Cannot Import: Any adapter package
package driven
