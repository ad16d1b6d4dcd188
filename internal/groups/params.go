package groups

import (
	"errors"
	"slices"
)

// ErrScalarOverride is returned by Merge when a child sets a scalar search
// parameter (the item type) that an ancestor already set. Only list
// parameters accumulate down the tree.
var ErrScalarOverride = errors.New("itemtype is already set by a parent group")

// Condition is one GLPI search condition as authored in the groups file,
// e.g. {field: 5, searchtype: contains, value: web}. Conditions are never
// mutated once parsed.
type Condition map[string]any

// SearchParams is the query a group contributes to its GLPI search.
// ForceDisplay holds the field indices authored under `fields`.
type SearchParams struct {
	ItemType     string
	Criteria     []Condition
	MetaCriteria []Condition
	ForceDisplay []string
}

// Merge combines inherited and own search parameters. List parameters are
// concatenated parent first; the item type is inherited unless the parent
// has none. The result never shares backing arrays with its inputs, so
// sibling branches cannot observe each other's appends.
func Merge(parent, own SearchParams) (SearchParams, error) {
	itemType := parent.ItemType
	if own.ItemType != "" {
		if itemType != "" {
			return SearchParams{}, ErrScalarOverride
		}
		itemType = own.ItemType
	}
	return SearchParams{
		ItemType:     itemType,
		Criteria:     concat(parent.Criteria, own.Criteria),
		MetaCriteria: concat(parent.MetaCriteria, own.MetaCriteria),
		ForceDisplay: concat(parent.ForceDisplay, own.ForceDisplay),
	}, nil
}

// Clone returns a deep copy of p.
func (p SearchParams) Clone() SearchParams {
	return SearchParams{
		ItemType:     p.ItemType,
		Criteria:     cloneConditions(p.Criteria),
		MetaCriteria: cloneConditions(p.MetaCriteria),
		ForceDisplay: slices.Clone(p.ForceDisplay),
	}
}

func concat[T any](parent, own []T) []T {
	out := make([]T, 0, len(parent)+len(own))
	out = append(out, parent...)
	return append(out, own...)
}

func cloneConditions(in []Condition) []Condition {
	if in == nil {
		return nil
	}
	out := make([]Condition, len(in))
	for i, c := range in {
		out[i] = Condition(CloneMap(c))
	}
	return out
}

// CloneMap deep-copies a decoded YAML mapping. Nested mappings and
// sequences are copied, scalars are shared.
func CloneMap(in map[string]any) map[string]any {
	if in == nil {
		return nil
	}
	out := make(map[string]any, len(in))
	for k, v := range in {
		out[k] = cloneValue(v)
	}
	return out
}

func cloneValue(v any) any {
	switch v := v.(type) {
	case map[string]any:
		return CloneMap(v)
	case Condition:
		return Condition(CloneMap(v))
	case []any:
		out := make([]any, len(v))
		for i, e := range v {
			out[i] = cloneValue(e)
		}
		return out
	default:
		return v
	}
}
