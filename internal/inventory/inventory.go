// Package inventory walks resolved group trees and materializes the Ansible
// inventory: group membership, group vars and per-host variables.
package inventory

import (
	"context"
	"encoding/json"
	"fmt"

	"glpinv/internal/groups"
	"glpinv/internal/subst"
)

// SearchRange bounds every search to a single page.
const SearchRange = "0-9999"

// Namespace is the hostvars key under which rendered variables are nested.
const Namespace = "glpi"

// Query is the effective search of one retrieving group.
type Query struct {
	ItemType     string
	Criteria     []groups.Condition
	MetaCriteria []groups.Condition
	ForceDisplay []string
	Range        string
}

// Retriever runs a search against the inventory-of-record and returns its
// rows in order.
type Retriever interface {
	Search(ctx context.Context, q Query) ([]subst.Record, error)
}

// Group is one inventory group. Hosts keeps duplicates as produced.
type Group struct {
	Hosts    []string       `json:"hosts"`
	Vars     map[string]any `json:"vars"`
	Children []string       `json:"children"`
}

// HostVars is the variable set of one host: {"glpi": {name: value}}.
type HostVars map[string]map[string]string

// Inventory is the result of a materialization.
type Inventory struct {
	Groups   map[string]*Group
	HostVars map[string]HostVars
	// order lists group names as first written during the walk.
	order []string
}

func newInventory() *Inventory {
	return &Inventory{
		Groups:   make(map[string]*Group),
		HostVars: make(map[string]HostVars),
	}
}

// GroupNames returns group names in traversal order.
func (inv *Inventory) GroupNames() []string {
	return append([]string(nil), inv.order...)
}

// addGroup records g under name unless the name is already taken.
func (inv *Inventory) addGroup(name string, g *Group) {
	if _, ok := inv.Groups[name]; ok {
		return
	}
	inv.Groups[name] = g
	inv.order = append(inv.order, name)
}

// Host returns the variables of host, or an empty set for unknown hosts.
func (inv *Inventory) Host(host string) HostVars {
	if hv, ok := inv.HostVars[host]; ok {
		return hv
	}
	return HostVars{}
}

// MarshalJSON renders the Ansible dynamic inventory `--list` document:
// one key per group plus `_meta.hostvars`.
func (inv *Inventory) MarshalJSON() ([]byte, error) {
	doc := make(map[string]any, len(inv.Groups)+1)
	for name, g := range inv.Groups {
		if name == groups.ReservedName {
			return nil, fmt.Errorf("group name %q is reserved", name)
		}
		doc[name] = normalizeGroup(g)
	}
	hostvars := inv.HostVars
	if hostvars == nil {
		hostvars = map[string]HostVars{}
	}
	doc[groups.ReservedName] = map[string]any{"hostvars": hostvars}
	return json.Marshal(doc)
}

// normalizeGroup replaces nil collections so they encode as [] and {}.
func normalizeGroup(g *Group) Group {
	out := *g
	if out.Hosts == nil {
		out.Hosts = []string{}
	}
	if out.Vars == nil {
		out.Vars = map[string]any{}
	}
	if out.Children == nil {
		out.Children = []string{}
	}
	return out
}
