package movies

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
)

// CatalogOptions configures EnsureCatalog.
type CatalogOptions struct {
	Table      string
	Throughput Throughput
	// DataFile is loaded into a freshly created table. Empty skips loading.
	DataFile string
	Logger   Logger
}

// LoadResult summarizes a bulk load.
type LoadResult struct {
	Loaded  int
	Skipped int
}

// EnsureCatalog creates the catalog table and fills it from the data file.
// An existing table is left untouched and reported as created == false.
func EnsureCatalog(ctx context.Context, store Store, opts CatalogOptions) (created bool, err error) {
	log := orNop(opts.Logger)
	spec := CatalogTable(opts.Table, opts.Throughput)

	if err := store.CreateTable(ctx, spec); err != nil {
		if IsCode(err, ErrAlreadyExists) {
			log.Info(fmt.Sprintf("Table %s already exists", spec.Name), nil)
			return false, nil
		}
		return false, err
	}
	if opts.DataFile == "" {
		return true, nil
	}

	f, err := os.Open(opts.DataFile)
	if err != nil {
		return true, fmt.Errorf("open data file: %w", err)
	}
	defer f.Close()

	res, err := LoadMovies(ctx, store, spec.Name, f, log)
	if err != nil {
		return true, err
	}
	log.Info(fmt.Sprintf("Loaded %d movies into %s", res.Loaded, spec.Name),
		map[string]any{"loaded": res.Loaded, "skipped": res.Skipped})
	return true, nil
}

// movieDoc is one entry of the sample moviedata.json file.
type movieDoc struct {
	Year  json.Number    `json:"year"`
	Title string         `json:"title"`
	Info  map[string]any `json:"info"`
}

// LoadMovies reads a JSON array of movie documents and writes them in
// batches. Each document goes through the same validation and normalization
// as an interactive insert, so loaded movies are searchable; documents that
// fail validation are skipped and logged.
func LoadMovies(ctx context.Context, store Store, table string, r io.Reader, log Logger) (LoadResult, error) {
	log = orNop(log)
	dec := json.NewDecoder(r)
	dec.UseNumber()

	var docs []movieDoc
	if err := dec.Decode(&docs); err != nil {
		return LoadResult{}, NewError("cannot decode movie data", WithCode(ErrArgument), WithCause(err))
	}

	var res LoadResult
	items := make([]Item, 0, len(docs))
	for _, doc := range docs {
		movie, err := Validate(docFields(doc))
		if err != nil {
			res.Skipped++
			log.Error("Skipping movie", map[string]any{"year": doc.Year.String(), "title": doc.Title, "error": err})
			continue
		}
		log.Trace("Adding movie", map[string]any{"year": movie.Year, "title": movie.Title})
		items = append(items, Normalize(movie))
	}
	if err := store.BatchPut(ctx, table, items); err != nil {
		return res, err
	}
	res.Loaded = len(items)
	return res, nil
}

// docFields maps a sample document onto the interactive input fields.
func docFields(doc movieDoc) Fields {
	f := Fields{Year: doc.Year.String(), Title: doc.Title}
	if doc.Info == nil {
		return f
	}
	f.Directors = joinNames(doc.Info["directors"])
	f.Actors = joinNames(doc.Info["actors"])
	if s, ok := doc.Info["release_date"].(string); ok {
		if t, err := time.Parse(time.RFC3339, s); err == nil {
			f.ReleaseDate = t.Format("2 January 2006")
		}
	}
	if n, ok := doc.Info["rating"].(json.Number); ok {
		f.Rating = n.String()
	}
	f.Info = dynamoNumbers(doc.Info).(map[string]any)
	return f
}

func joinNames(v any) string {
	list, ok := v.([]any)
	if !ok {
		return ""
	}
	names := make([]string, 0, len(list))
	for _, n := range list {
		if s, ok := n.(string); ok {
			names = append(names, s)
		}
	}
	return strings.Join(names, ", ")
}

// dynamoNumbers rewrites json.Number values so they are stored as DynamoDB
// numbers rather than strings.
func dynamoNumbers(v any) any {
	switch t := v.(type) {
	case json.Number:
		return attributevalue.Number(t.String())
	case map[string]any:
		out := make(map[string]any, len(t))
		for k, e := range t {
			out[k] = dynamoNumbers(e)
		}
		return out
	case []any:
		out := make([]any, len(t))
		for i, e := range t {
			out[i] = dynamoNumbers(e)
		}
		return out
	}
	return v
}
