package feature

import (
	"sort"
	"sync"

	"github.com/c360/adapterkit/errors"
)

type registryEntry struct {
	desc Descriptor
	impl any
}

// Registry maps capability identities to live implementations for one
// adapter instance. At most one implementation per URI; one object may be
// registered under several URIs. Registration is last-write-wins per URI.
type Registry struct {
	mu      sync.RWMutex
	entries map[URI]registryEntry
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{entries: make(map[URI]registryEntry)}
}

// Register binds impl to the descriptor's URI, replacing any earlier
// registration for that URI. The implementation is checked against the
// declared capability now, not at call time: a standard URI requires the
// matching Go interface, an extension requires the Caller contract.
func (r *Registry) Register(desc Descriptor, impl any) error {
	if desc.URI == "" {
		return errors.WrapInvalid(errors.ErrValidation, "feature.Registry", "Register", "descriptor validation")
	}
	if impl == nil {
		return errors.WrapInvalid(errors.ErrValidation, "feature.Registry", "Register", "implementation validation")
	}

	switch desc.Kind {
	case KindStandard:
		check, known := standardChecks[desc.URI]
		if !known {
			return errors.WrapInvalid(errors.ErrValidation, "feature.Registry", "Register", "standard URI lookup")
		}
		if !check(impl) {
			return errors.WrapInvalid(errors.ErrFeatureUnsupported, "feature.Registry", "Register", "capability check")
		}
	case KindExtension:
		if _, ok := impl.(Caller); !ok {
			return errors.WrapInvalid(errors.ErrFeatureUnsupported, "feature.Registry", "Register", "capability check")
		}
	default:
		return errors.WrapInvalid(errors.ErrValidation, "feature.Registry", "Register", "kind validation")
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	r.entries[desc.URI] = registryEntry{desc: desc, impl: impl}
	return nil
}

// RegisterExtension registers an extension feature under its own URI.
func (r *Registry) RegisterExtension(ext Caller) error {
	return r.Register(ext.Descriptor(), ext)
}

// Get returns the implementation registered for uri.
func (r *Registry) Get(uri URI) (any, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	e, ok := r.entries[uri]
	if !ok {
		return nil, false
	}
	return e.impl, true
}

// Descriptor returns the descriptor registered for uri.
func (r *Registry) Descriptor(uri URI) (Descriptor, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	e, ok := r.entries[uri]
	if !ok {
		return Descriptor{}, false
	}
	return e.desc, true
}

// TryResolveByName resolves a capability by the short name of a built-in or
// by a fully-qualified URI. When a built-in and an extension share a short
// name, the built-in wins.
func (r *Registry) TryResolveByName(name string) (Descriptor, any, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	// Exact URI match first: unambiguous for extensions and cheap.
	if e, ok := r.entries[URI(name)]; ok {
		return e.desc, e.impl, true
	}

	var (
		extMatch    registryEntry
		extMatchURI URI
		found       bool
	)
	for uri, e := range r.entries {
		if uri.ShortName() != name {
			continue
		}
		if e.desc.Kind == KindStandard {
			return e.desc, e.impl, true
		}
		// Lowest URI wins among same-named extensions, for determinism.
		if !found || uri < extMatchURI {
			extMatch, extMatchURI, found = e, uri, true
		}
	}
	if found {
		return extMatch.desc, extMatch.impl, true
	}
	return Descriptor{}, nil, false
}

// URIs returns every registered capability identity, sorted.
func (r *Registry) URIs() []URI {
	r.mu.RLock()
	defer r.mu.RUnlock()

	uris := make([]URI, 0, len(r.entries))
	for uri := range r.entries {
		uris = append(uris, uri)
	}
	sort.Slice(uris, func(i, j int) bool { return uris[i] < uris[j] })
	return uris
}

// Descriptors returns every registered descriptor, ordered by URI.
func (r *Registry) Descriptors() []Descriptor {
	uris := r.URIs()

	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]Descriptor, 0, len(uris))
	for _, uri := range uris {
		out = append(out, r.entries[uri].desc)
	}
	return out
}
