// Package cache implements the Cache Hierarchy: a base keyed
// store plus a set of composable decorators (LRU, FIFO, Soft, Weak,
// Scheduled, Blocking, Synchronized, Logging, Serialized). Decorators wrap
// a Store and preserve its ID, so a user-supplied backend hides behind a
// single narrow interface.
package cache
