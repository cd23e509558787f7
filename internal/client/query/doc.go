// Package query is a keyed in-memory cache for backend reads.
//
// Reads are addressed by a Key, an ordered list of elements such as
// Key{"products", filter} or Key{"product", 5}. Elements are JSON-encoded,
// so structurally equal filters share one entry and prefix matching works
// element by element: Key{"products"} matches every list entry.
//
// Read serves fresh entries without calling the fetcher and shares a single
// in-flight fetch among all concurrent callers of a key. Mutate applies
// declared cache effects after a successful mutation. Optimistic writes a
// provisional value, runs the mutation and restores the exact snapshot when
// it fails.
//
// Every write (including invalidation and removal) bumps the entry's
// generation. A fetch that started under an older generation still answers
// its own waiters but never writes the cache, so the latest request wins.
package query
