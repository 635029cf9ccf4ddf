package movies

import (
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// Normalize converts a validated movie into the item written to the store.
// It is a pure transformation: optional attributes that were not given are
// omitted entirely rather than stored empty.
func Normalize(m Movie) Item {
	item := Item{
		AttrYear:       m.Year,
		AttrTitle:      m.Title,
		AttrTitleLower: lower(m.Title),
	}
	if names := SplitNames(m.Directors); len(names) > 0 {
		item[AttrDirectors] = names
		item[AttrDirectorsLower] = lowerJoined(names)
	}
	if names := SplitNames(m.Actors); len(names) > 0 {
		item[AttrActors] = names
		item[AttrActorsLower] = lowerJoined(names)
	}
	if m.ReleaseDate != nil {
		item[AttrReleaseDate] = m.ReleaseDate.Tokens()
	}
	if m.Rating != "" {
		item[AttrRating] = m.Rating
	}
	if len(m.Info) > 0 {
		item[AttrInfo] = m.Info
	}
	return item
}

// SplitNames splits a comma separated list and trims every element.
// Elements left empty after trimming are dropped.
func SplitNames(s string) []string {
	if strings.TrimSpace(s) == "" {
		return nil
	}
	parts := strings.Split(s, ",")
	names := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			names = append(names, p)
		}
	}
	return names
}

// lower is the case folding used for every *_lower attribute and for search
// terms, so both sides always agree.
func lower(s string) string {
	return cases.Lower(language.Und).String(s)
}

// lowerJoined is the searchable form of a name list: one lowercase string,
// names separated by NameSeparator. contains() on a string attribute is a
// substring test, so part of a name is enough to match.
func lowerJoined(names []string) string {
	return lower(strings.Join(names, NameSeparator))
}
