package movies

import (
	"fmt"
	"strconv"
)

// Projection is the caller-facing view of a movie: only allow-listed fields
// that are present on the stored item. Year is always a string.
type Projection map[string]any

// Allow-lists per read command.
var (
	ActorFields         = []string{AttrTitle, AttrYear, AttrActors}
	ActorDirectorFields = []string{AttrTitle, AttrYear, AttrActors, AttrDirectors}
)

// Project reduces items to the allow-listed fields, preserving item order.
// A field is copied iff it is present and non-nil on the source item.
func Project(items []Item, fields []string) []Projection {
	out := make([]Projection, 0, len(items))
	for _, item := range items {
		p := Projection{}
		for _, name := range fields {
			v, ok := item[name]
			if !ok || v == nil {
				continue
			}
			if name == AttrYear {
				v = yearString(v)
			}
			p[name] = v
		}
		out = append(out, p)
	}
	return out
}

// yearString renders a store-native number as its decimal string.
func yearString(v any) string {
	switch n := v.(type) {
	case int:
		return strconv.Itoa(n)
	case int64:
		return strconv.FormatInt(n, 10)
	case float64:
		return strconv.FormatFloat(n, 'f', -1, 64)
	case string:
		return n
	case fmt.Stringer:
		return n.String()
	}
	return fmt.Sprintf("%v", v)
}
