/*
Package movies – filter builder.

Search requests are turned into DynamoDB scan filter expressions. Attribute
names and values are always referenced through #_N / :_N placeholders so user
input never becomes part of the expression text.
*/
package movies

import (
	"fmt"
	"strings"
)

// Filter is a scan predicate in DynamoDB expression syntax. A nil *Filter
// selects every item.
type Filter struct {
	Expression string
	Names      map[string]string // #_N → attribute name
	Values     map[string]any    // :_N → value
}

func (f *Filter) String() string {
	if f == nil {
		return "<all>"
	}
	return f.Expression
}

// ActorFilter matches movies with actor in their cast, ignoring case. Part of
// a name is enough.
func ActorFilter(actor string) *Filter {
	b := newFilterBuilder()
	return b.build(b.contains(AttrActorsLower, lower(actor)))
}

// ActorDirectorFilter matches movies listing actor OR directed by director.
func ActorDirectorFilter(actor, director string) *Filter {
	b := newFilterBuilder()
	return b.build(or(
		b.contains(AttrActorsLower, lower(actor)),
		b.contains(AttrDirectorsLower, lower(director)),
	))
}

// TitleFilter matches movies by title, ignoring case. A non-nil year
// restricts the match to that year.
func TitleFilter(title string, year *int) *Filter {
	b := newFilterBuilder()
	terms := []string{b.eq(AttrTitleLower, lower(title))}
	if year != nil {
		terms = append(terms, b.eq(AttrYear, *year))
	}
	return b.build(and(terms...))
}

// filterBuilder accumulates placeholder maps while terms are built.
type filterBuilder struct {
	names     map[string]string // #_N → name
	namesMap  map[string]int    // name → N (dedup)
	values    map[string]any    // :_N → value
	valuesMap map[string]int    // value → N (dedup, strings only)
	nindex    int
	vindex    int
}

func newFilterBuilder() *filterBuilder {
	return &filterBuilder{
		names:     map[string]string{},
		namesMap:  map[string]int{},
		values:    map[string]any{},
		valuesMap: map[string]int{},
	}
}

func (b *filterBuilder) contains(att string, value any) string {
	return fmt.Sprintf("contains(#_%d, :_%d)", b.addName(att), b.addValue(value))
}

func (b *filterBuilder) eq(att string, value any) string {
	return fmt.Sprintf("#_%d = :_%d", b.addName(att), b.addValue(value))
}

func (b *filterBuilder) addName(name string) int {
	if idx, ok := b.namesMap[name]; ok {
		return idx
	}
	idx := b.nindex
	b.nindex++
	b.names[fmt.Sprintf("#_%d", idx)] = name
	b.namesMap[name] = idx
	return idx
}

func (b *filterBuilder) addValue(value any) int {
	if s, ok := value.(string); ok {
		if idx, ok := b.valuesMap[s]; ok {
			return idx
		}
		b.valuesMap[s] = b.vindex
	}
	idx := b.vindex
	b.vindex++
	b.values[fmt.Sprintf(":_%d", idx)] = value
	return idx
}

func (b *filterBuilder) build(expr string) *Filter {
	return &Filter{Expression: expr, Names: b.names, Values: b.values}
}

func and(terms ...string) string { return join(terms, " and ") }
func or(terms ...string) string  { return join(terms, " or ") }

func join(terms []string, sep string) string {
	if len(terms) == 1 {
		return terms[0]
	}
	parts := make([]string, len(terms))
	for i, t := range terms {
		parts[i] = "(" + t + ")"
	}
	return strings.Join(parts, sep)
}
