// Package exec implements the Executor and Caching Executor: the per-Session component that turns a statement id and
// argument into a rendered, bound, executed, and mapped result, honoring
// the first-level (local) cache, the deferred-load queue, and the
// Simple/Reuse/Batch execution strategies. CachingExecutor wraps a base
// Executor with the transactional second-level cache manager.
package exec
