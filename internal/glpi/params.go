package glpi

import (
	"fmt"
	"net/url"
	"sort"
	"strconv"
)

// EncodeSearch flattens search options into GLPI's bracketed query
// parameters:
//
//	criteria[0][field]=5&criteria[0][searchtype]=contains&criteria[0][value]=web
//	forcedisplay[0]=1&range=0-9999
//
// Nested lists and mappings (grouped criteria) are encoded recursively.
func EncodeSearch(opts SearchOptions) url.Values {
	params := url.Values{}
	for i, c := range opts.Criteria {
		encodeValue(params, indexed("criteria", i), c)
	}
	for i, c := range opts.MetaCriteria {
		encodeValue(params, indexed("metacriteria", i), c)
	}
	for i, f := range opts.ForceDisplay {
		params.Set(indexed("forcedisplay", i), f)
	}
	if opts.Range != "" {
		params.Set("range", opts.Range)
	}
	return params
}

func indexed(prefix string, i int) string {
	return prefix + "[" + strconv.Itoa(i) + "]"
}

func encodeValue(params url.Values, key string, v any) {
	switch v := v.(type) {
	case nil:
		params.Set(key, "")
	case map[string]any:
		keys := make([]string, 0, len(v))
		for k := range v {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			encodeValue(params, key+"["+k+"]", v[k])
		}
	case []any:
		for i, e := range v {
			encodeValue(params, indexed(key, i), e)
		}
	case string:
		params.Set(key, v)
	default:
		params.Set(key, fmt.Sprint(v))
	}
}
