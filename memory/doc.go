// Package memory provides scoped vector memory for narrative sessions.
//
// Memories are embedded text records ranked by cosine similarity at
// retrieval time. Two properties are deliberate and load-bearing:
//
//   - Retention is FIFO by creation order and never considers retrieval
//     frequency, so relevance ranking stays independent of the capacity
//     policy.
//   - Scope isolation between story-wide ("narrative") memory and each
//     character's private memory is enforced by ownership: every Bank wraps
//     its own Store instance and tags/filters a scope key on top.
//
// Architecture:
//   - Store: vector storage contract (VectorStore in-process, chromem backend)
//   - Embedder: text-to-vector conversion (mock for tests, openai, cached)
//   - Bank: scope binder the orchestrator and characters write through
//
// Writes are two-phase (Stage embeds, Commit appends) so a turn can embed
// everything it produced before mutating any state.
package memory
