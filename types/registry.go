package types

import (
	"fmt"
	"reflect"
	"sync"
)

// key pairs a host type with a column type for the exact-match table.
// A nil host (anyHost) or empty column (ColumnUnknown) participates in the
// fallback lookups below.
type key struct {
	host   reflect.Type // nil means "no host constraint" (column-only table)
	column ColumnType
}

// Registry is the Type Handler Registry. It is read-mostly: registration
// happens during configuration, lookups happen on every bind/scan. The
// zero value is not ready for use; call NewRegistry.
type Registry struct {
	mu sync.RWMutex

	exact    map[key]Handler            // (host, column) -> handler
	byColumn map[ColumnType]Handler      // column-only -> handler
	byHost   map[reflect.Type][]Handler  // host -> all handlers registered for it (for the "sole handler" fallback)
	byClass  map[reflect.Type]Handler    // concrete handler Go type -> instance
	byName   map[string]Handler          // typeHandler="name" override -> instance
	enumFn   func(reflect.Type) Handler  // enum default handler factory
	unknown  Handler                     // final fallback for an unresolvable (host, column)
}

// NewRegistry returns an empty registry. Use RegisterDefaults to populate
// it with the built-in handlers for Go's common primitive types.
func NewRegistry() *Registry {
	return &Registry{
		exact:    make(map[key]Handler),
		byColumn: make(map[ColumnType]Handler),
		byHost:   make(map[reflect.Type][]Handler),
		byClass:  make(map[reflect.Type]Handler),
		byName:   make(map[string]Handler),
	}
}

// RegisterNamed associates handler with a name, so a mapping's
// typeHandler="name" override can resolve it without reflecting on a Go
// type at all.
func (r *Registry) RegisterNamed(name string, handler Handler) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.byName[name] = handler
}

// ByName returns the handler registered under name, if any.
func (r *Registry) ByName(name string) (Handler, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	h, ok := r.byName[name]
	return h, ok
}

// Register associates handler with the (host, column) pair explicitly.
func (r *Registry) Register(host reflect.Type, column ColumnType, handler Handler) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.exact[key{host, column}] = handler
	r.byHost[host] = append(r.byHost[host], handler)
	r.byClass[reflect.TypeOf(handler)] = handler
}

// RegisterHost associates handler with host for every column type (the
// (host, null) fallback row).
func (r *Registry) RegisterHost(host reflect.Type, handler Handler) {
	r.Register(host, ColumnUnknown, handler)
}

// RegisterColumn associates handler with column regardless of host type.
func (r *Registry) RegisterColumn(column ColumnType, handler Handler) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.byColumn[column] = handler
	r.byClass[reflect.TypeOf(handler)] = handler
}

// RegisterInferred registers handler using its own declared host type;
// handler must implement HostType.
func (r *Registry) RegisterInferred(handler HostType) {
	h := handler.(Handler)
	r.Register(handler.HostType(), ColumnUnknown, h)
}

// RegisterEnumDefault installs the fallback handler factory used for enum
// host types (a function of the concrete enum type, since the handler must
// know the enum's underlying kind to marshal/unmarshal it).
func (r *Registry) RegisterEnumDefault(fn func(reflect.Type) Handler) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.enumFn = fn
}

// RegisterUnknownFallback installs the handler used when no other
// resolution rule applies.
func (r *Registry) RegisterUnknownFallback(handler Handler) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.unknown = handler
}

// ByClass returns the registered handler instance of the given concrete
// Go type, as referenced by a typeHandler="..." override in a mapping.
func (r *Registry) ByClass(t reflect.Type) (Handler, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	h, ok := r.byClass[t]
	return h, ok
}

// Resolve walks the full resolution chain:
//
//  1. exact (host, column) match
//  2. (host, null) fallback
//  3. the sole handler registered for host, if unambiguous
//  4. walk host's implemented-interface / underlying-kind chain
//  5. the enum default handler, for enum-shaped hosts
//  6. the unknown-type fallback handler
func (r *Registry) Resolve(host reflect.Type, column ColumnType) (Handler, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for host != nil && host.Kind() == reflect.Ptr {
		host = host.Elem()
	}

	if h, ok := r.exact[key{host, column}]; ok {
		return h, nil
	}
	if h, ok := r.exact[key{host, ColumnUnknown}]; ok {
		return h, nil
	}
	if hs := r.byHost[host]; len(hs) == 1 {
		return hs[0], nil
	}
	if h, ok := r.resolveByChain(host, column); ok {
		return h, nil
	}
	if column != ColumnUnknown {
		if h, ok := r.byColumn[column]; ok {
			return h, nil
		}
	}
	if r.enumFn != nil && isEnumKind(host) {
		return r.enumFn(host), nil
	}
	if r.unknown != nil {
		return r.unknown, nil
	}
	return nil, fmt.Errorf("veloxsql: types: no handler registered for host=%v column=%s", host, column)
}

// resolveByChain walks interfaces host implements (or its pointer form
// implements) looking for a registered handler keyed by that interface
// type; Go has no superclass chain, so the chain here is "does some
// already-registered host type's interface form describe this type".
func (r *Registry) resolveByChain(host reflect.Type, column ColumnType) (Handler, bool) {
	if host == nil {
		return nil, false
	}
	ptr := reflect.PointerTo(host)
	for registeredHost := range r.byHost {
		if registeredHost == nil || registeredHost.Kind() != reflect.Interface {
			continue
		}
		if host.Implements(registeredHost) || ptr.Implements(registeredHost) {
			if h, ok := r.exact[key{registeredHost, column}]; ok {
				return h, true
			}
			if h, ok := r.exact[key{registeredHost, ColumnUnknown}]; ok {
				return h, true
			}
		}
	}
	return nil, false
}

// isEnumKind reports whether t looks like an enum: a named (non-builtin)
// string or integer kind, or a type that explicitly opts in via EnumHost.
func isEnumKind(t reflect.Type) bool {
	if t == nil {
		return false
	}
	if et, ok := reflect.New(t).Interface().(EnumHost); ok {
		return et.IsVeloxEnum()
	}
	// A named type with a non-empty package path is user-defined, e.g.
	// `type Status string` in package order, as opposed to the builtin
	// `string`/`int` types themselves.
	if t.PkgPath() == "" {
		return false
	}
	switch t.Kind() {
	case reflect.String,
		reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return true
	default:
		return false
	}
}
