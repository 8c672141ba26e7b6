// Package cachekey implements the Cache Key: an ordered
// sequence of components folded into a single hash value.
// Two keys are equal only if their component sequences are equal in order
// and in value, as reported by Equal; a CacheKey is not comparable with ==
// and is not usable by value as a Go map key.
package cachekey
