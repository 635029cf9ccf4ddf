package movies

import (
	"strconv"
	"strings"
)

const (
	msgMissingYearTitle = "Missing <year> or <title>. Please try again."
	msgInvalidYear      = "Year must be a number"
	msgReleaseDate      = "Release Date must be in format <day> <month> <year>"
)

const (
	minDay         = 1
	maxDay         = 31
	minReleaseYear = 1
	maxReleaseYear = 2050
)

// Validate checks raw input and returns the validated bundle. It never
// touches the store; a non-nil error means nothing may be written.
func Validate(f Fields) (Movie, error) {
	year := strings.TrimSpace(f.Year)
	if year == "" || f.Title == "" {
		return Movie{}, NewError(msgMissingYearTitle, WithCode(ErrMissingField),
			WithAttrs(map[string]any{"year": f.Year, "title": f.Title}))
	}
	y, err := strconv.Atoi(year)
	if err != nil {
		return Movie{}, NewError(msgInvalidYear, WithCode(ErrInvalidYear), WithCause(err),
			WithAttrs(map[string]any{"year": f.Year}))
	}

	m := Movie{
		Year:      y,
		Title:     f.Title,
		Directors: f.Directors,
		Actors:    f.Actors,
		Rating:    f.Rating,
		Info:      f.Info,
	}
	if f.ReleaseDate != "" {
		rd, err := ParseReleaseDate(f.ReleaseDate)
		if err != nil {
			return Movie{}, err
		}
		m.ReleaseDate = rd
	}
	return m, nil
}

// ParseReleaseDate parses "<day> <month> <year>". The month is a name or an
// abbreviation, never a number.
func ParseReleaseDate(s string) (*ReleaseDate, error) {
	fail := func(cause error) (*ReleaseDate, error) {
		opts := []ErrorOption{WithCode(ErrReleaseDate), WithAttrs(map[string]any{"releaseDate": s})}
		if cause != nil {
			opts = append(opts, WithCause(cause))
		}
		return nil, NewError(msgReleaseDate, opts...)
	}

	tokens := strings.Fields(s)
	if len(tokens) != 3 {
		return fail(nil)
	}
	day, err := strconv.Atoi(tokens[0])
	if err != nil {
		return fail(err)
	}
	if day < minDay || day > maxDay {
		return fail(nil)
	}
	month := tokens[1]
	if isNumeric(month) {
		return fail(nil)
	}
	year, err := strconv.Atoi(tokens[2])
	if err != nil {
		return fail(err)
	}
	if year < minReleaseYear || year > maxReleaseYear {
		return fail(nil)
	}
	return &ReleaseDate{Day: day, Month: month, Year: year, tokens: tokens}, nil
}

// isNumeric reports whether s consists only of decimal digits.
func isNumeric(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}

// Tokens returns the stored form [day, month, year] exactly as typed.
func (rd *ReleaseDate) Tokens() []string {
	if rd.tokens != nil {
		return append([]string(nil), rd.tokens...)
	}
	return []string{strconv.Itoa(rd.Day), rd.Month, strconv.Itoa(rd.Year)}
}
