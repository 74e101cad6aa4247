// Package cache defines the query cache used by the membership engine's read
// paths and an in-process implementation of it.
//
// Store is deliberately byte-oriented so that process-local and shared backends
// (see pkg/redis) are interchangeable. Values are usually JSON documents keyed by
// a query key such as "membership:status:<subscriber>:<target>".
//
// # Usage
//
//	store := cache.NewMemoryStore(1024, 30*time.Second)
//
//	_ = store.Set(ctx, "membership:config:platform", payload, 0) // default TTL
//	if raw, ok, _ := store.Get(ctx, "membership:config:platform"); ok {
//		// cache hit
//	}
//	_ = store.Delete(ctx, "membership:config:platform")
//
// MemoryStore evicts the least recently used entry when full and drops expired
// entries lazily on access. All operations are O(1) and safe for concurrent use.
package cache
