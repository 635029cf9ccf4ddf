/*
Package movies – item schema.

One canonical item shape is used for every movie record: actors and directors
are stored as ordered string lists, and every searchable text attribute has a
lowercase string sibling computed when the item is built.
*/
package movies

// Item is a raw store item: attribute name → value. Values are int, string,
// []string or nested map[string]any.
type Item = map[string]any

// Attribute names of a stored movie.
const (
	AttrYear           = "year"
	AttrTitle          = "title"
	AttrTitleLower     = "title_lower"
	AttrDirectors      = "directors"
	AttrDirectorsLower = "directors_lower"
	AttrActors         = "actors"
	AttrActorsLower    = "actors_lower"
	AttrReleaseDate    = "release_date"
	AttrRating         = "rating"
	AttrInfo           = "info"
)

// NameSeparator joins a name list in its *_lower sibling.
const NameSeparator = ", "

// DefaultTableName is the catalog table used when none is configured.
const DefaultTableName = "Movies"

// KeyType names the role of a key attribute.
type KeyType string

const (
	KeyHash  KeyType = "HASH"
	KeyRange KeyType = "RANGE"
)

// ScalarType is the DynamoDB scalar type of a key attribute.
type ScalarType string

const (
	ScalarNumber ScalarType = "N"
	ScalarString ScalarType = "S"
)

// KeyAttribute describes one element of a table's key schema.
type KeyAttribute struct {
	Name string
	Type ScalarType
	Role KeyType
}

// Throughput is the provisioned capacity hint for a new table. Zero values
// select on-demand billing.
type Throughput struct {
	Read  int64
	Write int64
}

// TableSpec is everything needed to create a table.
type TableSpec struct {
	Name       string
	Key        []KeyAttribute
	Throughput Throughput
}

// MovieKey is the composite key schema of the catalog: year partitions,
// title sorts.
var MovieKey = []KeyAttribute{
	{Name: AttrYear, Type: ScalarNumber, Role: KeyHash},
	{Name: AttrTitle, Type: ScalarString, Role: KeyRange},
}

// CatalogTable returns the TableSpec of the movie catalog table.
func CatalogTable(name string, tp Throughput) TableSpec {
	if name == "" {
		name = DefaultTableName
	}
	return TableSpec{Name: name, Key: MovieKey, Throughput: tp}
}

// Fields is the raw, unvalidated user input for one movie. Every value is the
// string exactly as typed at the prompt; empty means "not given".
type Fields struct {
	Year        string
	Title       string
	Directors   string
	Actors      string
	ReleaseDate string
	Rating      string

	// Info is carried through untouched (bulk-loaded records only).
	Info map[string]any
}

// ReleaseDate is a validated release date. Month is kept as typed.
type ReleaseDate struct {
	Day   int
	Month string
	Year  int

	tokens []string
}

// Movie is a validated field bundle, ready to normalize.
type Movie struct {
	Year        int
	Title       string
	Directors   string
	Actors      string
	ReleaseDate *ReleaseDate
	Rating      string
	Info        map[string]any
}

// Key returns the primary key item of the movie.
func (m Movie) Key() Item {
	return Item{AttrYear: m.Year, AttrTitle: m.Title}
}
