package inventory

import (
	"context"
	"errors"
	"fmt"
	"maps"
	"strings"

	"go.uber.org/zap"

	"glpinv/internal/groups"
	"glpinv/internal/subst"
)

// GroupRetrievalError reports a group that must query GLPI but has no item
// type, neither its own nor inherited.
type GroupRetrievalError struct {
	Group string
}

func (e *GroupRetrievalError) Error() string {
	return fmt.Sprintf("group '%s' has no itemtype defined when calling API", e.Group)
}

// Context is what a group inherits from its ancestors. It is passed by
// value and cloned at every recursive call, so work done in one branch never
// shows up in a sibling branch.
type Context struct {
	Search   groups.SearchParams
	Hostname string
	HostVars map[string]string
	Vars     map[string]any
}

// Clone returns a deep copy of c.
func (c Context) Clone() Context {
	return Context{
		Search:   c.Search.Clone(),
		Hostname: c.Hostname,
		HostVars: maps.Clone(c.HostVars),
		Vars:     groups.CloneMap(c.Vars),
	}
}

// enter computes the effective context of n below c. Inherited hostvars and
// vars win over the group's own entries on key collision.
func (c Context) enter(n *groups.GroupNode) (Context, error) {
	search, err := groups.Merge(c.Search, n.SearchParams)
	if err != nil {
		if errors.Is(err, groups.ErrScalarOverride) {
			return Context{}, &groups.ConfigError{
				Group: n.Name,
				Msg:   fmt.Sprintf("sets itemtype '%s' but a parent group already set '%s'", n.SearchParams.ItemType, c.Search.ItemType),
			}
		}
		return Context{}, err
	}
	hostname := n.Hostname
	if hostname == "" {
		hostname = c.Hostname
	}
	hostvars := make(map[string]string, len(n.HostVars)+len(c.HostVars))
	maps.Copy(hostvars, n.HostVars)
	maps.Copy(hostvars, c.HostVars)
	vars := groups.CloneMap(n.Vars)
	if vars == nil {
		vars = make(map[string]any, len(c.Vars))
	}
	maps.Copy(vars, groups.CloneMap(c.Vars))
	return Context{Search: search, Hostname: hostname, HostVars: hostvars, Vars: vars}, nil
}

// query returns the search a retrieving group issues, or the error that
// prevents it.
func (c Context) query(group string) (Query, error) {
	if c.Search.ItemType == "" {
		return Query{}, &GroupRetrievalError{Group: group}
	}
	if c.Hostname == "" {
		return Query{}, &groups.ConfigError{Group: group, Msg: "has no hostname defined when calling API"}
	}
	return Query{
		ItemType:     c.Search.ItemType,
		Criteria:     c.Search.Criteria,
		MetaCriteria: c.Search.MetaCriteria,
		ForceDisplay: c.Search.ForceDisplay,
		Range:        SearchRange,
	}, nil
}

type visitFunc func(n *groups.GroupNode, depth int, eff Context) error

// walk visits n and its descendants in pre-order, siblings in authored order.
func walk(n *groups.GroupNode, depth int, inherited Context, visit visitFunc) error {
	eff, err := inherited.enter(n)
	if err != nil {
		return err
	}
	if err := visit(n, depth, eff); err != nil {
		return err
	}
	for _, child := range n.Children {
		if err := walk(child, depth+1, eff.Clone(), visit); err != nil {
			return err
		}
	}
	return nil
}

func walkAll(roots []*groups.GroupNode, visit visitFunc) error {
	for _, root := range roots {
		if err := walk(root, 0, Context{}, visit); err != nil {
			return err
		}
	}
	return nil
}

// Materializer turns group trees into an Inventory using a Retriever.
type Materializer struct {
	retriever Retriever
	logger    *zap.Logger
}

// NewMaterializer returns a Materializer. A nil logger disables logging.
func NewMaterializer(r Retriever, logger *zap.Logger) *Materializer {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Materializer{retriever: r, logger: logger}
}

// Materialize walks every root and returns the complete inventory. Any
// failure aborts the walk and no partial inventory is returned; errors from
// the Retriever are returned unchanged.
func (m *Materializer) Materialize(ctx context.Context, roots []*groups.GroupNode) (*Inventory, error) {
	inv := newInventory()
	err := walkAll(roots, func(n *groups.GroupNode, depth int, eff Context) error {
		return m.visit(ctx, inv, n, eff)
	})
	if err != nil {
		return nil, err
	}
	m.logger.Debug("inventory materialized",
		zap.Int("groups", len(inv.Groups)),
		zap.Int("hosts", len(inv.HostVars)))
	return inv, nil
}

func (m *Materializer) visit(ctx context.Context, inv *Inventory, n *groups.GroupNode, eff Context) error {
	group := &Group{Hosts: []string{}, Vars: eff.Vars, Children: n.ChildNames()}
	if !n.MustRetrieve() {
		inv.addGroup(n.Name, group)
		return nil
	}

	q, err := eff.query(n.Name)
	if err != nil {
		return err
	}
	m.logger.Debug("searching",
		zap.String("group", n.Name),
		zap.String("itemtype", q.ItemType),
		zap.Int("criteria", len(q.Criteria)),
		zap.Int("metacriteria", len(q.MetaCriteria)),
		zap.Strings("forcedisplay", q.ForceDisplay))
	records, err := m.retriever.Search(ctx, q)
	if err != nil {
		return err
	}

	for _, rec := range records {
		host := strings.ToLower(subst.Render(eff.Hostname, rec))
		group.Hosts = append(group.Hosts, host)
		vars := make(map[string]string, len(eff.HostVars))
		for name, tmpl := range eff.HostVars {
			vars[name] = subst.Render(tmpl, rec)
		}
		inv.HostVars[host] = HostVars{Namespace: vars}
	}
	inv.addGroup(n.Name, group)
	m.logger.Debug("group retrieved", zap.String("group", n.Name), zap.Int("hosts", len(group.Hosts)))
	return nil
}

// PlannedGroup is one group of a Plan, with its effective context.
type PlannedGroup struct {
	Name     string
	Depth    int
	Children []string
	Retrieve bool
	// Query is set when Retrieve is true.
	Query    Query
	Hostname string
	HostVars map[string]string
	Vars     map[string]any
}

// Plan walks the trees without querying GLPI and returns every group in
// traversal order. It fails on the same configuration errors Materialize
// would hit, so it can run before any network activity.
func Plan(roots []*groups.GroupNode) ([]PlannedGroup, error) {
	var plan []PlannedGroup
	err := walkAll(roots, func(n *groups.GroupNode, depth int, eff Context) error {
		pg := PlannedGroup{
			Name:     n.Name,
			Depth:    depth,
			Children: n.ChildNames(),
			Retrieve: n.MustRetrieve(),
			Hostname: eff.Hostname,
			HostVars: eff.HostVars,
			Vars:     eff.Vars,
		}
		if pg.Retrieve {
			q, err := eff.query(n.Name)
			if err != nil {
				return err
			}
			pg.Query = q
		}
		plan = append(plan, pg)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return plan, nil
}
