// Package registry is the build-then-freeze Statement Registry: a mutable builder during configuration that yields an immutable
// handle once Freeze is called. It owns the Compiled Statement records,
// the shared mapping.Registry of Result Maps, the per-namespace second-
// level cache stores, and the global settings every statement is rendered
// and mapped under.
package registry
