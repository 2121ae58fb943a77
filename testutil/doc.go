// Package testutil provides shared test doubles for adapterkit packages.
//
// CountingStore wraps any kvstore.Store and records per-operation and per-key
// call counts, so tests can assert properties like "a pure value update never
// rewrites the index key". It also supports one-shot failure injection for
// exercising transient-error paths.
package testutil
