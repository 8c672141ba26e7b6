package cachekey

import (
	"fmt"
	"reflect"
	"strings"

	"github.com/mitchellh/hashstructure"
)

const multiplier = uint64(37)

// CacheKey is an ordered, growable sequence of components. It
// starts empty; Update appends a component and incrementally folds it into
// the running hash, count, and checksum, rather than recomputing from
// scratch — the same incremental scheme as the MyBatis-family CacheKey this
// package is modeled on.
//
// CacheKey is not itself comparable (it may hold slice/map components), so
// it cannot be used directly as a Go map key. Packages exec and mapping key
// their cache and row-identity maps by String(); Equal is not consulted there.
type CacheKey struct {
	components []any
	count      int
	checksum   uint64
	hash       uint64
}

// New builds a CacheKey from an initial ordered set of components, typically
// the owning statement's id followed by its bound parameters.
func New(components ...any) *CacheKey {
	k := &CacheKey{hash: multiplier}
	for _, c := range components {
		k.Update(c)
	}
	return k
}

// Update appends component to the sequence and folds it into the key's
// hash, count, and checksum.
func (k *CacheKey) Update(component any) {
	h := componentHash(component)
	k.count++
	k.checksum += h
	k.hash = multiplier*k.hash + h
	k.components = append(k.components, component)
}

func componentHash(component any) uint64 {
	h, err := hashstructure.Hash(component, nil)
	if err != nil {
		// Unhashable component (e.g. a function value): fall back to its
		// formatted representation so Update never errors.
		h, _ = hashstructure.Hash(fmt.Sprintf("%v", component), nil)
	}
	return h
}

// Components returns the ordered component sequence. The caller must not
// mutate the returned slice.
func (k *CacheKey) Components() []any {
	return k.components
}

// Hash returns the key's order-sensitive fold hash.
func (k *CacheKey) Hash() uint64 {
	return k.hash
}

// Equal reports whether k and other were built from the same ordered
// component sequence: count, checksum, and hash must all agree, and the
// component sequence is then compared element-wise (slices/arrays by deep
// equality) to rule out a hash collision.
func (k *CacheKey) Equal(other *CacheKey) bool {
	if other == nil {
		return false
	}
	if k.count != other.count || k.checksum != other.checksum || k.hash != other.hash {
		return false
	}
	if len(k.components) != len(other.components) {
		return false
	}
	for i := range k.components {
		if !reflect.DeepEqual(k.components[i], other.components[i]) {
			return false
		}
	}
	return true
}

// String joins each component's %v form with ":". Packages exec and mapping
// use it as the map key for cache lookups and row identity.
func (k *CacheKey) String() string {
	parts := make([]string, len(k.components))
	for i, c := range k.components {
		parts[i] = fmt.Sprintf("%v", c)
	}
	return strings.Join(parts, ":")
}
