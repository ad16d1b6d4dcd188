package groups

import (
	"fmt"
	"maps"
	"slices"
	"sort"
	"strings"
)

// Keys a group definition may carry.
var (
	searchKeys = []string{"itemtype", "criteria", "metacriteria", "fields"}
	groupKeys  = []string{"hostname", "hostvars", "vars", "retrieve", "children"}
)

// ReservedName is the inventory key Ansible reads host variables from. No
// group may use it.
const ReservedName = "_meta"

// GroupNode is one validated group. A node is owned by exactly one parent;
// a group referenced from two parents yields two independent nodes.
type GroupNode struct {
	Name         string
	SearchParams SearchParams
	// Hostname is the host name template; empty means inherited.
	Hostname string
	HostVars map[string]string
	Vars     map[string]any
	Retrieve bool
	Children []*GroupNode
}

// MustRetrieve reports whether the group queries GLPI: leaves always do,
// groups with children only when `retrieve` is set.
func (n *GroupNode) MustRetrieve() bool {
	return len(n.Children) == 0 || n.Retrieve
}

// ChildNames returns the names of the immediate children in authored order.
func (n *GroupNode) ChildNames() []string {
	names := make([]string, len(n.Children))
	for i, c := range n.Children {
		names[i] = c.Name
	}
	return names
}

// groupSpec is a validated but unresolved definition.
type groupSpec struct {
	name     string
	search   SearchParams
	hostname string
	hostvars map[string]string
	vars     map[string]any
	retrieve bool
	children []string
}

// Build validates every definition and resolves the group trees. Roots are
// the groups never listed as a child, in definition order.
func Build(defs *Definitions) ([]*GroupNode, error) {
	specs := make(map[string]*groupSpec, defs.Len())
	referenced := make(map[string]bool)
	for _, name := range defs.Names() {
		if name == ReservedName {
			return nil, configErrorf(name, "uses a reserved name")
		}
		raw, _ := defs.Lookup(name)
		spec, err := parseSpec(name, raw)
		if err != nil {
			return nil, err
		}
		specs[name] = spec
		for _, child := range spec.children {
			referenced[child] = true
		}
	}
	for _, name := range defs.Names() {
		for _, child := range specs[name].children {
			if _, ok := specs[child]; !ok {
				return nil, configErrorf(child, "is not defined")
			}
		}
	}
	if err := checkCycles(defs.Names(), specs); err != nil {
		return nil, err
	}

	var roots []*GroupNode
	for _, name := range defs.Names() {
		if referenced[name] {
			continue
		}
		roots = append(roots, resolve(specs[name], specs))
	}
	return roots, nil
}

// resolve builds a fresh node for spec. Nothing in the returned tree
// aliases the specs or another resolved node.
func resolve(spec *groupSpec, specs map[string]*groupSpec) *GroupNode {
	node := &GroupNode{
		Name:         spec.name,
		SearchParams: spec.search.Clone(),
		Hostname:     spec.hostname,
		HostVars:     maps.Clone(spec.hostvars),
		Vars:         CloneMap(spec.vars),
		Retrieve:     spec.retrieve,
	}
	for _, child := range spec.children {
		node.Children = append(node.Children, resolve(specs[child], specs))
	}
	return node
}

func checkCycles(names []string, specs map[string]*groupSpec) error {
	const (
		visiting = 1
		done     = 2
	)
	state := make(map[string]int, len(specs))
	var visit func(name string, path []string) error
	visit = func(name string, path []string) error {
		switch state[name] {
		case done:
			return nil
		case visiting:
			return configErrorf(name, "is its own ancestor (%s)", strings.Join(append(path, name), " -> "))
		}
		state[name] = visiting
		for _, child := range specs[name].children {
			if err := visit(child, append(path, name)); err != nil {
				return err
			}
		}
		state[name] = done
		return nil
	}
	for _, name := range names {
		if err := visit(name, nil); err != nil {
			return err
		}
	}
	return nil
}

func parseSpec(name string, raw any) (*groupSpec, error) {
	conf, ok := asMapping(raw)
	if !ok {
		return nil, configErrorf(name, "is not a valid dictionary")
	}

	var invalid []string
	for key := range conf {
		if !slices.Contains(searchKeys, key) && !slices.Contains(groupKeys, key) {
			invalid = append(invalid, key)
		}
	}
	if len(invalid) > 0 {
		sort.Strings(invalid)
		return nil, configErrorf(name, "has invalid keys '%s'", strings.Join(invalid, ", "))
	}

	spec := &groupSpec{name: name}
	var err error
	if spec.search.ItemType, err = scalarParam(name, conf, "itemtype"); err != nil {
		return nil, err
	}
	if spec.search.Criteria, err = conditionsParam(name, conf, "criteria"); err != nil {
		return nil, err
	}
	if spec.search.MetaCriteria, err = conditionsParam(name, conf, "metacriteria"); err != nil {
		return nil, err
	}
	if spec.search.ForceDisplay, err = listParam(name, conf, "fields"); err != nil {
		return nil, err
	}
	if spec.search.ForceDisplay == nil {
		spec.search.ForceDisplay = []string{}
	}
	if spec.hostname, err = scalarParam(name, conf, "hostname"); err != nil {
		return nil, err
	}
	if spec.hostvars, err = templatesParam(name, conf, "hostvars"); err != nil {
		return nil, err
	}
	if v, ok := conf["vars"]; ok && v != nil {
		vars, ok := asMapping(v)
		if !ok {
			return nil, configErrorf(name, "has invalid 'vars': expected a mapping")
		}
		spec.vars = vars
	}
	if v, ok := conf["retrieve"]; ok && v != nil {
		b, ok := v.(bool)
		if !ok {
			return nil, configErrorf(name, "has invalid 'retrieve': expected a boolean")
		}
		spec.retrieve = b
	}
	if spec.children, err = listParam(name, conf, "children"); err != nil {
		return nil, err
	}
	seen := make(map[string]bool, len(spec.children))
	for _, child := range spec.children {
		if seen[child] {
			return nil, configErrorf(name, "lists child '%s' more than once", child)
		}
		seen[child] = true
	}
	return spec, nil
}

func scalarParam(group string, conf map[string]any, key string) (string, error) {
	v, ok := conf[key]
	if !ok || v == nil {
		return "", nil
	}
	s, ok := scalarString(v)
	if !ok {
		return "", configErrorf(group, "has invalid '%s': expected a scalar", key)
	}
	return s, nil
}

func listParam(group string, conf map[string]any, key string) ([]string, error) {
	v, ok := conf[key]
	if !ok || v == nil {
		return nil, nil
	}
	items, ok := v.([]any)
	if !ok {
		return nil, configErrorf(group, "has invalid '%s': expected a list", key)
	}
	out := make([]string, 0, len(items))
	for _, item := range items {
		s, ok := scalarString(item)
		if !ok {
			return nil, configErrorf(group, "has invalid '%s': expected a list of scalars", key)
		}
		out = append(out, s)
	}
	return out, nil
}

func conditionsParam(group string, conf map[string]any, key string) ([]Condition, error) {
	v, ok := conf[key]
	if !ok || v == nil {
		return nil, nil
	}
	items, ok := v.([]any)
	if !ok {
		return nil, configErrorf(group, "has invalid '%s': expected a list", key)
	}
	out := make([]Condition, 0, len(items))
	for _, item := range items {
		m, ok := asMapping(item)
		if !ok {
			return nil, configErrorf(group, "has invalid '%s': expected a list of mappings", key)
		}
		out = append(out, Condition(m))
	}
	return out, nil
}

func templatesParam(group string, conf map[string]any, key string) (map[string]string, error) {
	v, ok := conf[key]
	if !ok || v == nil {
		return nil, nil
	}
	m, ok := asMapping(v)
	if !ok {
		return nil, configErrorf(group, "has invalid '%s': expected a mapping", key)
	}
	out := make(map[string]string, len(m))
	for name, tmpl := range m {
		s, ok := scalarString(tmpl)
		if !ok {
			return nil, configErrorf(group, "has invalid '%s.%s': expected a scalar", key, name)
		}
		out[name] = s
	}
	return out, nil
}

// asMapping accepts both decoded mapping shapes yaml.v3 produces and
// normalises keys to strings, recursively.
func asMapping(v any) (map[string]any, bool) {
	switch m := v.(type) {
	case map[string]any:
		out := make(map[string]any, len(m))
		for k, e := range m {
			out[k] = normalize(e)
		}
		return out, true
	case map[any]any:
		out := make(map[string]any, len(m))
		for k, e := range m {
			out[fmt.Sprint(k)] = normalize(e)
		}
		return out, true
	default:
		return nil, false
	}
}

func normalize(v any) any {
	switch e := v.(type) {
	case map[string]any, map[any]any:
		m, _ := asMapping(e)
		return m
	case []any:
		out := make([]any, len(e))
		for i, item := range e {
			out[i] = normalize(item)
		}
		return out
	default:
		return v
	}
}

func scalarString(v any) (string, bool) {
	switch s := v.(type) {
	case string:
		return s, true
	case int, int64, uint64, float64, bool:
		return fmt.Sprint(s), true
	default:
		return "", false
	}
}
