package spider

import (
	"fmt"
	"sort"
	"strings"
)

// Settings carries per-source options from configuration
type Settings struct {
	PublicWorksBasicAuth string
	HealthCommitteeID    int
	HealthYear           int
}

// Registry holds spiders in a fixed order
type Registry struct {
	spiders []Spider
	byName  map[string]Spider
}

// NewRegistry creates a registry; duplicate names are rejected
func NewRegistry(spiders ...Spider) (*Registry, error) {
	r := &Registry{byName: make(map[string]Spider, len(spiders))}
	for _, s := range spiders {
		if _, dup := r.byName[s.Name()]; dup {
			return nil, fmt.Errorf("duplicate spider %q", s.Name())
		}
		r.byName[s.Name()] = s
		r.spiders = append(r.spiders, s)
	}
	return r, nil
}

// Default returns every built-in spider in alphabetical order
func Default(s Settings) *Registry {
	spiders := []Spider{
		NewBoardOfSupervisors(),
		NewBoardOfEd(),
		NewCityCouncil(),
		NewCityPlanning(),
		NewHealthCommission(s.HealthCommitteeID, s.HealthYear),
		NewHomelessServices(),
		NewMetroTransit(),
		NewPublicWorks(s.PublicWorksBasicAuth),
	}
	sort.Slice(spiders, func(i, j int) bool { return spiders[i].Name() < spiders[j].Name() })

	r, err := NewRegistry(spiders...)
	if err != nil {
		panic(err)
	}
	return r
}

// All returns every spider in registry order
func (r *Registry) All() []Spider {
	out := make([]Spider, len(r.spiders))
	copy(out, r.spiders)
	return out
}

// Names returns the spider names in registry order
func (r *Registry) Names() []string {
	names := make([]string, len(r.spiders))
	for i, s := range r.spiders {
		names[i] = s.Name()
	}
	return names
}

// Get looks a spider up by name
func (r *Registry) Get(name string) (Spider, bool) {
	s, ok := r.byName[name]
	return s, ok
}

// Select returns the named spiders in registry order; no names selects all
func (r *Registry) Select(names []string) ([]Spider, error) {
	if len(names) == 0 {
		return r.All(), nil
	}

	wanted := make(map[string]bool, len(names))
	var unknown []string
	for _, n := range names {
		n = strings.TrimSpace(n)
		if _, ok := r.Get(n); !ok {
			unknown = append(unknown, n)
			continue
		}
		wanted[n] = true
	}
	if len(unknown) > 0 {
		return nil, fmt.Errorf("unknown spider(s): %s", strings.Join(unknown, ", "))
	}

	out := make([]Spider, 0, len(wanted))
	for _, s := range r.spiders {
		if wanted[s.Name()] {
			out = append(out, s)
		}
	}
	return out, nil
}
