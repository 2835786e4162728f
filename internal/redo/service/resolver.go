package service

import (
	"fmt"
	"reflect"
	"strings"

	"github.com/allisson/redo/internal/redo/domain"
)

// ComponentLookup returns the live components assignable to a type.
type ComponentLookup interface {
	Lookup(t reflect.Type) []Component
}

// ProxyPredicate reports whether candidate is a proxy wrapping other.
type ProxyPredicate func(candidate, other Component) bool

// IsProxyOf is the default ProxyPredicate: candidate declares other as the component it wraps.
func IsProxyOf(candidate, other Component) bool {
	return candidate.ProxyFor != "" && candidate.ProxyFor == other.Name
}

// Resolver locates exactly one live instance for a target type.
type Resolver struct {
	lookup  ComponentLookup
	isProxy ProxyPredicate
}

// NewResolver creates a Resolver. A nil predicate selects IsProxyOf.
func NewResolver(lookup ComponentLookup, isProxy ProxyPredicate) *Resolver {
	if isProxy == nil {
		isProxy = IsProxyOf
	}
	return &Resolver{lookup: lookup, isProxy: isProxy}
}

// Resolve returns the single component registered for t. When exactly two are found and
// one is a proxy of the other, the proxy is dropped. Zero or several remaining candidates
// fail with domain.ErrResolution.
func (r *Resolver) Resolve(targetName string, t reflect.Type) (Component, error) {
	candidates := r.collapse(r.lookup.Lookup(t))

	switch len(candidates) {
	case 1:
		return candidates[0], nil
	case 0:
		return Component{}, domain.Wrapf(domain.ErrResolution, "no live instance for %s", targetName)
	default:
		names := make([]string, len(candidates))
		for i, c := range candidates {
			names[i] = c.Name
		}
		return Component{}, domain.Wrapf(
			domain.ErrResolution,
			"%d live instances for %s: %s",
			len(candidates),
			targetName,
			strings.Join(names, ", "),
		)
	}
}

func (r *Resolver) collapse(candidates []Component) []Component {
	if len(candidates) != 2 {
		return candidates
	}

	first, second := candidates[0], candidates[1]
	switch {
	case r.isProxy(first, second) && !r.isProxy(second, first):
		return []Component{second}
	case r.isProxy(second, first) && !r.isProxy(first, second):
		return []Component{first}
	default:
		return candidates
	}
}

// String helps when a Component is logged.
func (c Component) String() string {
	if c.ProxyFor != "" {
		return fmt.Sprintf("%s (proxy for %s)", c.Name, c.ProxyFor)
	}
	return c.Name
}
