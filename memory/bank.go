package memory

import "context"

// ScopeKey is the reserved metadata key the bank injects on every write and
// enforces on every read.
const ScopeKey = "scope"

// NarrativeScope is the scope tag for story-wide memory. Character banks use
// the owning character's name instead.
const NarrativeScope = "narrative"

// Bank binds one Store to a single scope. Every write is tagged with the
// scope and every read is filtered to it, so a character's private memory
// and the story's narrative memory can never bleed into each other. Scope
// isolation is additionally enforced by ownership: each bank is backed by
// its own store instance, never shared.
type Bank struct {
	store Store
	scope string
}

// NewBank creates a bank over a store the caller must not share with any
// other bank.
func NewBank(store Store, scope string) *Bank {
	return &Bank{store: store, scope: scope}
}

// Scope returns the bank's scope tag.
func (b *Bank) Scope() string {
	return b.scope
}

// Store writes content tagged with the bank's scope. Supplying a different
// scope in metadata is a ScopeError.
func (b *Bank) Store(ctx context.Context, content string, metadata map[string]any) (uint64, error) {
	tagged, err := b.tag(metadata)
	if err != nil {
		return 0, err
	}
	return b.store.Store(ctx, content, tagged)
}

// Stage embeds content for a later Commit, tagged with the bank's scope.
func (b *Bank) Stage(ctx context.Context, content string, metadata map[string]any) (*Staged, error) {
	tagged, err := b.tag(metadata)
	if err != nil {
		return nil, err
	}
	return b.store.Stage(ctx, content, tagged)
}

// Commit appends a previously staged record.
func (b *Bank) Commit(st *Staged) uint64 {
	return b.store.Commit(st)
}

// Retrieve queries the bank's scope only. A caller-supplied scope filter
// naming another scope is a ScopeError.
func (b *Bank) Retrieve(ctx context.Context, query string, topK int, filters map[string]any) ([]Result, error) {
	merged := make(map[string]any, len(filters)+1)
	for k, v := range filters {
		merged[k] = v
	}
	if requested, ok := merged[ScopeKey]; ok && requested != b.scope {
		return nil, &ScopeError{BankScope: b.scope, Requested: stringify(requested)}
	}
	merged[ScopeKey] = b.scope
	return b.store.Retrieve(ctx, query, topK, merged)
}

// Size returns the backing store's record count.
func (b *Bank) Size() int {
	return b.store.Size()
}

// Backing returns the underlying store, for snapshot export.
func (b *Bank) Backing() Store {
	return b.store
}

func (b *Bank) tag(metadata map[string]any) (map[string]any, error) {
	tagged := copyMetadata(metadata)
	if requested, ok := tagged[ScopeKey]; ok && requested != b.scope {
		return nil, &ScopeError{BankScope: b.scope, Requested: stringify(requested)}
	}
	tagged[ScopeKey] = b.scope
	return tagged, nil
}

func stringify(v any) string {
	if s, ok := v.(string); ok {
		return s
	}
	return "<non-string>"
}
