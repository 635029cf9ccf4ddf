/*
Package movies – command dispatcher.

Dispatch runs one command cycle: collect fields through the Prompter,
validate, build the item or filter, call the store, project the result. No
state survives between cycles except the injected Store.
*/
package movies

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/google/uuid"
)

// Command names accepted by Dispatch.
const (
	CmdHelp                = "help"
	CmdExit                = "exit"
	CmdInsertMovie         = "insert_movie"
	CmdDeleteMovie         = "delete_movie"
	CmdSearchActor         = "search_movie_actor"
	CmdSearchActorDirector = "search_movie_actor_director"
	CmdDeleteTable         = "delete_table"
)

// Field prompts, in the order they are asked.
const (
	PromptYear        = "Year> "
	PromptTitle       = "Title> "
	PromptDirector    = "Director> "
	PromptActors      = "Actors> "
	PromptReleaseDate = "Release Date> "
	PromptRating      = "Rating> "
	PromptActor       = "Actor> "
	PromptTableName   = "Table name> "
)

const helpText = `Supported Commands:
1. insert_movie
2. delete_movie
3. search_movie_actor
4. search_movie_actor_director
5. delete_table
6. help
7. exit`

// Prompter reads one field value from the user.
type Prompter interface {
	Prompt(label string) (string, error)
}

// PrompterFunc adapts a function to Prompter.
type PrompterFunc func(label string) (string, error)

func (f PrompterFunc) Prompt(label string) (string, error) { return f(label) }

// Response is the outcome of one command cycle. Mutations and failures carry
// only Message; successful searches carry Movies. NoResults marks a search
// that ran fine and matched nothing.
type Response struct {
	Command   string
	Message   string
	Movies    []Projection
	NoResults bool
	Err       error
}

// Empty reports whether there is nothing to show (ignored commands).
func (r Response) Empty() bool {
	return r.Message == "" && r.Movies == nil
}

// Render returns the text shown to the user: the message, or the matched
// movies as indented JSON.
func (r Response) Render() string {
	if r.Movies == nil {
		return r.Message
	}
	b, err := json.MarshalIndent(r.Movies, "", "  ")
	if err != nil {
		return fmt.Sprintf("%v", r.Movies)
	}
	return string(b)
}

// DispatcherParams configures a Dispatcher.
type DispatcherParams struct {
	Store  Store
	Table  string // defaults to DefaultTableName
	Logger Logger

	// CaseSensitive makes searches keep only movies where the term appears in
	// a stored name with the same case.
	CaseSensitive bool
	// IgnoreUnknown answers unknown commands with an empty response instead
	// of an UnknownCommand error.
	IgnoreUnknown bool
}

// Dispatcher maps command lines to handlers.
type Dispatcher struct {
	store         Store
	table         string
	log           Logger
	caseSensitive bool
	ignoreUnknown bool
	handlers      map[string]handler
}

type handler func(ctx context.Context, c *cycle) Response

// cycle is the per-command scratch state.
type cycle struct {
	id      string
	command string
	in      Prompter
}

// NewDispatcher creates a Dispatcher bound to one store for its lifetime.
func NewDispatcher(params DispatcherParams) (*Dispatcher, error) {
	if params.Store == nil {
		return nil, NewError("Dispatcher has no store configured", WithCode(ErrArgument))
	}
	table := params.Table
	if table == "" {
		table = DefaultTableName
	}
	d := &Dispatcher{
		store:         params.Store,
		table:         table,
		log:           orNop(params.Logger),
		caseSensitive: params.CaseSensitive,
		ignoreUnknown: params.IgnoreUnknown,
	}
	d.handlers = map[string]handler{
		CmdHelp:                d.help,
		CmdInsertMovie:         d.insertMovie,
		CmdDeleteMovie:         d.deleteMovie,
		CmdSearchActor:         d.searchActor,
		CmdSearchActorDirector: d.searchActorDirector,
		CmdDeleteTable:         d.deleteTable,
	}
	return d, nil
}

// Table returns the catalog table name.
func (d *Dispatcher) Table() string { return d.table }

// CollapseSpaces replaces runs of whitespace with single spaces and trims the
// ends.
func CollapseSpaces(line string) string {
	return strings.Join(strings.Fields(line), " ")
}

// Dispatch runs the command named by the first word of line.
func (d *Dispatcher) Dispatch(ctx context.Context, line string, in Prompter) Response {
	line = CollapseSpaces(line)
	name, _, _ := strings.Cut(line, " ")
	c := &cycle{id: cycleID(), command: name, in: in}

	h, ok := d.handlers[name]
	if !ok {
		d.log.Info("Unknown command", map[string]any{"cycle": c.id, "command": name})
		if d.ignoreUnknown {
			return Response{Command: name}
		}
		err := NewError(fmt.Sprintf("Unknown command %q. Type 'help' to see all commands.", name),
			WithCode(ErrUnknownCommand))
		return Response{Command: name, Message: err.Message, Err: err}
	}

	d.log.Info("Command", map[string]any{"cycle": c.id, "command": name})
	resp := h(ctx, c)
	resp.Command = name
	if resp.Err != nil {
		d.log.Error("Command failed", map[string]any{"cycle": c.id, "command": name, "error": resp.Err})
	}
	return resp
}

// cycleID tags the log lines of one command cycle. Version 7 ids sort by
// creation time.
func cycleID() string {
	id, err := uuid.NewV7()
	if err != nil {
		return uuid.NewString()
	}
	return id.String()
}

// ask collects the given prompts in order. An input error ends the cycle.
func (c *cycle) ask(labels ...string) ([]string, error) {
	values := make([]string, len(labels))
	for i, label := range labels {
		v, err := c.in.Prompt(label)
		if err != nil {
			return nil, NewError("input closed while reading "+strings.TrimSuffix(label, "> "),
				WithCode(ErrArgument), WithCause(err))
		}
		values[i] = v
	}
	return values, nil
}

func failed(err error) Response {
	msg := err.Error()
	if e, ok := err.(*Error); ok {
		msg = e.Message
	}
	return Response{Message: msg, Err: err}
}

func failedf(err error, format string, args ...any) Response {
	return Response{Message: fmt.Sprintf(format, args...), Err: err}
}

// ─── handlers ─────────────────────────────────────────────────────────────────

func (d *Dispatcher) help(context.Context, *cycle) Response {
	return Response{Message: helpText}
}

func (d *Dispatcher) insertMovie(ctx context.Context, c *cycle) Response {
	v, err := c.ask(PromptYear, PromptTitle, PromptDirector, PromptActors, PromptReleaseDate, PromptRating)
	if err != nil {
		return failed(err)
	}
	movie, err := Validate(Fields{
		Year:        v[0],
		Title:       v[1],
		Directors:   v[2],
		Actors:      v[3],
		ReleaseDate: v[4],
		Rating:      v[5],
	})
	if err != nil {
		return failed(err)
	}
	if err := d.store.Put(ctx, d.table, Normalize(movie)); err != nil {
		return failedf(err, "Movie %s could not be inserted - %s", movie.Title, detail(err))
	}
	d.log.Trace("Inserted movie", map[string]any{"cycle": c.id, "key": movie.Key()})
	return Response{Message: fmt.Sprintf("Movie %s successfully inserted", movie.Title)}
}

func (d *Dispatcher) deleteMovie(ctx context.Context, c *cycle) Response {
	v, err := c.ask(PromptYear, PromptTitle)
	if err != nil {
		return failed(err)
	}
	yearIn, title := strings.TrimSpace(v[0]), v[1]
	if title == "" {
		return failed(NewError("Movie title missing. Please try again.", WithCode(ErrMissingField)))
	}
	var year *int
	if yearIn != "" {
		y, err := strconv.Atoi(yearIn)
		if err != nil {
			return failed(NewError(msgInvalidYear, WithCode(ErrInvalidYear), WithCause(err)))
		}
		year = &y
	}

	matches, err := d.store.Scan(ctx, d.table, TitleFilter(title, year))
	if err != nil {
		return failedf(err, "Movie %s could not be deleted - %s", title, detail(err))
	}
	if len(matches) == 0 {
		err := NewError(fmt.Sprintf("Movie '%s' does not exist", title), WithCode(ErrNotFound))
		return failed(err)
	}
	for _, m := range matches {
		key := Item{AttrYear: m[AttrYear], AttrTitle: m[AttrTitle]}
		if err := d.store.DeleteItem(ctx, d.table, key); err != nil {
			return failedf(err, "Movie %s could not be deleted - %s", title, detail(err))
		}
		d.log.Trace("Deleted movie", map[string]any{"cycle": c.id, "key": key})
	}
	return Response{Message: fmt.Sprintf("Movie %s successfully deleted", title)}
}

func (d *Dispatcher) searchActor(ctx context.Context, c *cycle) Response {
	v, err := c.ask(PromptActor)
	if err != nil {
		return failed(err)
	}
	actor := v[0]
	if actor == "" {
		return failed(NewError("Field left empty. You must specify an actor!", WithCode(ErrMissingField)))
	}
	items, err := d.store.Scan(ctx, d.table, ActorFilter(actor))
	if err != nil {
		return failedf(err, "Table could not be scanned for actor %s - %s", actor, detail(err))
	}
	if d.caseSensitive {
		items = keepExact(items, nameTerm{AttrActors, actor})
	}
	return found(items, ActorFields, fmt.Sprintf("No movies found for actor %s", actor))
}

func (d *Dispatcher) searchActorDirector(ctx context.Context, c *cycle) Response {
	v, err := c.ask(PromptActor, PromptDirector)
	if err != nil {
		return failed(err)
	}
	actor, director := v[0], v[1]
	if actor == "" || director == "" {
		return failed(NewError("Error: One or more fields left empty.", WithCode(ErrMissingField)))
	}
	items, err := d.store.Scan(ctx, d.table, ActorDirectorFilter(actor, director))
	if err != nil {
		return failedf(err, "Table could not be scanned for actor %s and director %s - %s", actor, director, detail(err))
	}
	if d.caseSensitive {
		items = keepExact(items, nameTerm{AttrActors, actor}, nameTerm{AttrDirectors, director})
	}
	return found(items, ActorDirectorFields,
		fmt.Sprintf("No movies found for actor %s and director %s", actor, director))
}

func (d *Dispatcher) deleteTable(ctx context.Context, c *cycle) Response {
	v, err := c.ask(PromptTableName)
	if err != nil {
		return failed(err)
	}
	name := strings.TrimSpace(v[0])
	if name == "" {
		return failed(NewError("Please specify a table name", WithCode(ErrMissingField)))
	}
	if err := d.store.DropTable(ctx, name); err != nil {
		if IsCode(err, ErrNotFound) {
			return failedf(err, "Table %s does not exist - %s", name, detail(err))
		}
		return failedf(err, "Table %s could not be deleted - %s", name, detail(err))
	}
	return Response{Message: fmt.Sprintf("Table %s successfully deleted!", name)}
}

// found projects a search result, or reports NoResults for an empty one.
func found(items []Item, fields []string, none string) Response {
	if len(items) == 0 {
		return Response{Message: none, NoResults: true}
	}
	return Response{Movies: Project(items, fields)}
}

type nameTerm struct {
	attr string
	term string
}

// keepExact drops items where none of the terms occurs, case preserved,
// inside a name of its list attribute. The scan has already matched them
// ignoring case.
func keepExact(items []Item, terms ...nameTerm) []Item {
	kept := items[:0]
	for _, item := range items {
		for _, t := range terms {
			if namesContain(item[t.attr], t.term) {
				kept = append(kept, item)
				break
			}
		}
	}
	return kept
}

func namesContain(v any, term string) bool {
	names, _ := v.([]string)
	for _, n := range names {
		if strings.Contains(n, term) {
			return true
		}
	}
	return false
}
