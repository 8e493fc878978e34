package profiles

import (
	"sort"
	"strings"

	"github.com/turtacn/SDB-Intelligence/internal/intelligence/fieldspec"
	"github.com/turtacn/SDB-Intelligence/pkg/errors"
)

// Registry resolves profile identifiers.  It is read-only after construction.
type Registry struct {
	profiles map[string]*Profile
}

// NewRegistry builds a registry from compiled profiles.
func NewRegistry(profiles ...*Profile) (*Registry, error) {
	r := &Registry{profiles: make(map[string]*Profile, len(profiles))}
	for _, p := range profiles {
		if _, dup := r.profiles[p.ID()]; dup {
			return nil, errors.New(errors.ErrCodeInvalidRule, "profile registered twice").
				WithDetail("profile=" + p.ID())
		}
		r.profiles[p.ID()] = p
	}
	return r, nil
}

// DefaultRegistry compiles the built-in profiles with number format nf.
func DefaultRegistry(nf fieldspec.NumberFormat) (*Registry, error) {
	var ps []*Profile
	for _, def := range []Definition{Acros(nf), Caelo(nf), Merck(nf)} {
		p, err := New(def)
		if err != nil {
			return nil, err
		}
		ps = append(ps, p)
	}
	return NewRegistry(ps...)
}

// Get returns the profile registered under id.  Identifiers are
// case-insensitive.
func (r *Registry) Get(id string) (*Profile, error) {
	p, ok := r.profiles[strings.ToLower(strings.TrimSpace(id))]
	if !ok {
		return nil, errors.UnsupportedProfile(id)
	}
	return p, nil
}

// IDs returns the registered identifiers in ascending order.
func (r *Registry) IDs() []string {
	out := make([]string, 0, len(r.profiles))
	for id := range r.profiles {
		out = append(out, id)
	}
	sort.Strings(out)
	return out
}

//Personal.AI order the ending
