// Package subst renders `$<index>` placeholders in hostname and hostvars
// templates against one GLPI search result row.
package subst

import (
	"encoding/json"
	"fmt"
	"regexp"
	"strconv"
)

// placeholder matches `$` followed by any run of digits, including none.
var placeholder = regexp.MustCompile(`\$(\d*)`)

// Record is one search result row addressed by field index.
type Record interface {
	// Field returns the value of the field at index, or false when the row
	// has no such field or the value is null.
	Field(index string) (string, bool)
}

// Render replaces every placeholder in template with the matching field of
// rec. Placeholders whose field is absent or null are left as written.
// Digits are matched greedily, so `$5` never consumes the prefix of `$50`.
func Render(template string, rec Record) string {
	return placeholder.ReplaceAllStringFunc(template, func(m string) string {
		if v, ok := rec.Field(m[1:]); ok {
			return v
		}
		return m
	})
}

// Placeholders returns the distinct field indices referenced by template,
// in order of first appearance.
func Placeholders(template string) []string {
	var out []string
	seen := make(map[string]bool)
	for _, m := range placeholder.FindAllStringSubmatch(template, -1) {
		if !seen[m[1]] {
			seen[m[1]] = true
			out = append(out, m[1])
		}
	}
	return out
}

// MapRecord is a Record backed by a decoded JSON object.
type MapRecord map[string]any

// Field implements Record.
func (r MapRecord) Field(index string) (string, bool) {
	v, ok := r[index]
	if !ok || v == nil {
		return "", false
	}
	switch v := v.(type) {
	case string:
		return v, true
	case json.Number:
		return v.String(), true
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64), true
	default:
		return fmt.Sprint(v), true
	}
}
