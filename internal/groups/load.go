package groups

import (
	"os"

	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"
)

// Definitions is the authored groups file: group name to raw definition,
// kept in file order. Raw definitions are whatever yaml.v3 decodes a node
// into (normally map[string]any).
type Definitions struct {
	names []string
	raw   map[string]any
}

// NewDefinitions returns an empty set of definitions.
func NewDefinitions() *Definitions {
	return &Definitions{raw: make(map[string]any)}
}

// Add appends a group definition. A name added twice keeps its first
// position and takes the latest definition.
func (d *Definitions) Add(name string, def any) {
	if _, ok := d.raw[name]; !ok {
		d.names = append(d.names, name)
	}
	d.raw[name] = def
}

// Names returns group names in definition order.
func (d *Definitions) Names() []string {
	return append([]string(nil), d.names...)
}

// Lookup returns the raw definition of a group.
func (d *Definitions) Lookup(name string) (any, bool) {
	def, ok := d.raw[name]
	return def, ok
}

// Len returns the number of defined groups.
func (d *Definitions) Len() int { return len(d.names) }

// Load reads a groups file from path.
func Load(path string) (*Definitions, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrapf(err, "unable to load configuration file (%s)", path)
	}
	defs, err := Parse(data)
	if err != nil {
		return nil, errors.Wrapf(err, "unable to load configuration file (%s)", path)
	}
	return defs, nil
}

// Parse decodes a groups document. The top level must be a mapping of group
// name to definition; group order follows the document.
func Parse(data []byte) (*Definitions, error) {
	var doc yaml.Node
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, errors.Wrap(err, "invalid YAML")
	}
	defs := NewDefinitions()
	if len(doc.Content) == 0 {
		return defs, nil
	}
	root := doc.Content[0]
	if root.Kind != yaml.MappingNode {
		return nil, errors.Errorf("line %d: groups configuration must be a mapping of group names", root.Line)
	}
	for i := 0; i+1 < len(root.Content); i += 2 {
		key, value := root.Content[i], root.Content[i+1]
		if key.Kind != yaml.ScalarNode {
			return nil, errors.Errorf("line %d: group name must be a scalar", key.Line)
		}
		if _, dup := defs.Lookup(key.Value); dup {
			return nil, errors.Errorf("line %d: group %q is defined more than once", key.Line, key.Value)
		}
		var def any
		if err := value.Decode(&def); err != nil {
			return nil, errors.Wrapf(err, "line %d: group %q", value.Line, key.Value)
		}
		defs.Add(key.Value, def)
	}
	return defs, nil
}
