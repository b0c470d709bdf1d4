package types

// Groups maps group names to the raw file references collected while that
// group was open. Names are kept in first-seen order so later stages
// process groups in file order.
type Groups struct {
	names []string
	refs  map[string][]string
}

// NewGroups returns an empty Groups.
func NewGroups() *Groups {
	return &Groups{refs: make(map[string][]string)}
}

// Add appends refs to the named group, registering the name on first use.
// Duplicates are kept.
func (g *Groups) Add(name string, refs ...string) {
	if _, ok := g.refs[name]; !ok {
		g.names = append(g.names, name)
	}
	g.refs[name] = append(g.refs[name], refs...)
}

// Names returns group names in first-seen order.
func (g *Groups) Names() []string {
	out := make([]string, len(g.names))
	copy(out, g.names)
	return out
}

// Refs returns a copy of the references collected for name.
func (g *Groups) Refs(name string) []string {
	refs := g.refs[name]
	out := make([]string, len(refs))
	copy(out, refs)
	return out
}

// Len returns the number of distinct group names.
func (g *Groups) Len() int {
	return len(g.names)
}

// AsMap returns the groups as a plain map.
func (g *Groups) AsMap() map[string][]string {
	out := make(map[string][]string, len(g.names))
	for _, name := range g.names {
		out[name] = g.Refs(name)
	}
	return out
}
