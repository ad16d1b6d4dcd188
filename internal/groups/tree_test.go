package groups_test

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"glpinv/internal/groups"
)

func mustParse(t *testing.T, doc string) *groups.Definitions {
	t.Helper()
	defs, err := groups.Parse([]byte(doc))
	require.NoError(t, err)
	return defs
}

func rootNames(roots []*groups.GroupNode) []string {
	names := make([]string, len(roots))
	for i, r := range roots {
		names[i] = r.Name
	}
	return names
}

func TestBuildRootsAreUnreferencedGroups(t *testing.T) {
	defs := mustParse(t, `
web:
  criteria: [{field: 5, searchtype: contains, value: web}]
servers:
  itemtype: Computer
  hostname: $1
  children: [web, db]
db:
  criteria: [{field: 5, searchtype: contains, value: db}]
network:
  itemtype: NetworkEquipment
  hostname: $1
`)
	roots, err := groups.Build(defs)
	require.NoError(t, err)
	assert.Equal(t, []string{"servers", "network"}, rootNames(roots))

	servers := roots[0]
	assert.Equal(t, []string{"web", "db"}, servers.ChildNames())
	assert.Equal(t, "Computer", servers.SearchParams.ItemType)
	assert.Equal(t, "$1", servers.Hostname)
	assert.False(t, servers.MustRetrieve())
	assert.True(t, servers.Children[0].MustRetrieve())
}

func TestBuildRenamesFieldsToForceDisplay(t *testing.T) {
	defs := mustParse(t, `
servers:
  itemtype: Computer
  fields: [1, 31]
bare:
  itemtype: Computer
`)
	roots, err := groups.Build(defs)
	require.NoError(t, err)
	assert.Equal(t, []string{"1", "31"}, roots[0].SearchParams.ForceDisplay)
	assert.NotNil(t, roots[1].SearchParams.ForceDisplay)
	assert.Empty(t, roots[1].SearchParams.ForceDisplay)
}

func TestBuildCopiesGroupParameters(t *testing.T) {
	defs := mustParse(t, `
servers:
  itemtype: Computer
  hostname: $1.example.com
  retrieve: true
  hostvars:
    serial: $5
    port: 22
  vars:
    ansible_user: root
    tags: [a, b]
  children: [web]
web: {}
`)
	roots, err := groups.Build(defs)
	require.NoError(t, err)
	n := roots[0]
	assert.Equal(t, "$1.example.com", n.Hostname)
	assert.True(t, n.Retrieve)
	assert.True(t, n.MustRetrieve())
	assert.Equal(t, map[string]string{"serial": "$5", "port": "22"}, n.HostVars)
	assert.Equal(t, map[string]any{"ansible_user": "root", "tags": []any{"a", "b"}}, n.Vars)
}

func TestBuildRejectsUnknownKeys(t *testing.T) {
	defs := mustParse(t, `
servers:
  itemtype: Computer
  hostnme: $1
  field: [1]
`)
	_, err := groups.Build(defs)
	require.Error(t, err)

	var cfgErr *groups.ConfigError
	require.True(t, errors.As(err, &cfgErr))
	assert.Equal(t, "servers", cfgErr.Group)
	assert.Equal(t, "group 'servers' has invalid keys 'field, hostnme'", err.Error())
}

func TestBuildRejectsReservedGroupName(t *testing.T) {
	for _, doc := range []string{
		"_meta:\n  itemtype: Computer\n  hostname: $1\n",
		"servers:\n  itemtype: Computer\n  children: [_meta]\n_meta:\n  hostname: $1\n",
	} {
		_, err := groups.Build(mustParse(t, doc))
		var cfgErr *groups.ConfigError
		require.True(t, errors.As(err, &cfgErr), "got %v", err)
		assert.Equal(t, groups.ReservedName, cfgErr.Group)
		assert.Equal(t, "group '_meta' uses a reserved name", err.Error())
	}
}

func TestBuildRejectsUndefinedChild(t *testing.T) {
	defs := mustParse(t, `
servers:
  itemtype: Computer
  children: [web]
`)
	_, err := groups.Build(defs)
	var cfgErr *groups.ConfigError
	require.True(t, errors.As(err, &cfgErr))
	assert.Equal(t, "web", cfgErr.Group)
	assert.Contains(t, err.Error(), "is not defined")
}

func TestBuildRejectsInvalidDefinitions(t *testing.T) {
	tests := []struct {
		name  string
		doc   string
		group string
		msg   string
	}{
		{"scalar definition", "servers: Computer\n", "servers", "not a valid dictionary"},
		{"null definition", "servers:\n", "servers", "not a valid dictionary"},
		{"criteria not a list", "g:\n  criteria: {field: 1}\n", "g", "'criteria'"},
		{"criteria of scalars", "g:\n  criteria: [1, 2]\n", "g", "list of mappings"},
		{"children not a list", "g:\n  children: web\n", "g", "'children'"},
		{"retrieve not a bool", "g:\n  retrieve: yes please\n", "g", "'retrieve'"},
		{"hostvars not a mapping", "g:\n  hostvars: [a]\n", "g", "'hostvars'"},
		{"hostvar not a scalar", "g:\n  hostvars: {a: [1]}\n", "g", "'hostvars.a'"},
		{"vars not a mapping", "g:\n  vars: 3\n", "g", "'vars'"},
		{"duplicate child", "g:\n  children: [c, c]\nc: {}\n", "g", "more than once"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			_, err := groups.Build(mustParse(t, tc.doc))
			var cfgErr *groups.ConfigError
			require.True(t, errors.As(err, &cfgErr), "got %v", err)
			assert.Equal(t, tc.group, cfgErr.Group)
			assert.Contains(t, err.Error(), tc.msg)
		})
	}
}

func TestBuildDetectsCycles(t *testing.T) {
	tests := map[string]string{
		"self":      "a:\n  children: [a]\n",
		"pair":      "a:\n  children: [b]\nb:\n  children: [a]\n",
		"with root": "root:\n  children: [a]\na:\n  children: [b]\nb:\n  children: [a]\n",
	}
	for name, doc := range tests {
		t.Run(name, func(t *testing.T) {
			_, err := groups.Build(mustParse(t, doc))
			var cfgErr *groups.ConfigError
			require.True(t, errors.As(err, &cfgErr), "got %v", err)
			assert.Contains(t, err.Error(), "its own ancestor")
		})
	}
}

func TestBuildChildDefinedBeforeParent(t *testing.T) {
	defs := mustParse(t, `
web:
  hostname: $1
servers:
  itemtype: Computer
  children: [web]
`)
	roots, err := groups.Build(defs)
	require.NoError(t, err)
	assert.Equal(t, []string{"servers"}, rootNames(roots))
}

func TestBuildSharedChildIsNotAliased(t *testing.T) {
	defs := mustParse(t, `
linux:
  itemtype: Computer
  children: [web]
windows:
  itemtype: Computer
  children: [web]
web:
  criteria: [{field: 5, searchtype: contains, value: web}]
  vars: {tier: front}
`)
	roots, err := groups.Build(defs)
	require.NoError(t, err)
	require.Equal(t, []string{"linux", "windows"}, rootNames(roots))

	a, b := roots[0].Children[0], roots[1].Children[0]
	require.NotSame(t, a, b)
	a.Vars["tier"] = "changed"
	a.SearchParams.Criteria[0]["value"] = "changed"
	assert.Equal(t, "front", b.Vars["tier"])
	assert.Equal(t, "web", b.SearchParams.Criteria[0]["value"])
}

func TestBuildEmptyConfiguration(t *testing.T) {
	roots, err := groups.Build(mustParse(t, ""))
	require.NoError(t, err)
	assert.Empty(t, roots)
}
