package commands

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/beevik/etree"

	"github.com/lysyi3m/etm-api/app/feed"
	"github.com/lysyi3m/etm-api/app/journal"
	"github.com/lysyi3m/etm-api/app/resource"
)

// Client is the part of the transport client commands depend on.
type Client interface {
	feed.Getter
	ServerURL() string
	Put(ctx context.Context, uri, xmlContent, query string) (string, error)
	PostMultipart(ctx context.Context, uri string, data []byte, filename string) (string, error)
	Delete(ctx context.Context, uri, query string) (int, error)
}

type Options struct {
	ProjectAreas      []string
	QueryString       string
	ResourceTypes     []string
	ResourceTypesSet  bool
	ResourceIDs       []string
	RemoteScriptTypes []string
	AdapterID         string
	CreationDate      time.Time
	ExecutionStates   []string
	ExecutionProgress int
	ResultStates      []string
	Count             int

	Test             bool
	Verbose          bool
	IgnoreReadErrors bool
}

// Env is what every command runs against.
type Env struct {
	Options

	client  Client
	reader  *feed.Reader
	journal journal.Recorder

	// out receives the documents written by read commands.
	out io.Writer
	// console receives progress messages when Verbose is set.
	console io.Writer
}

// NewEnv wires a command environment. recorder may be nil.
func NewEnv(client Client, recorder journal.Recorder, out, console io.Writer, opts Options) *Env {
	if opts.Count < 1 {
		opts.Count = 1
	}
	return &Env{
		Options: opts,
		client:  client,
		reader:  feed.NewReader(client),
		journal: recorder,
		out:     out,
		console: console,
	}
}

func (e *Env) serverURL() string {
	return e.client.ServerURL()
}

func (e *Env) ids(ctx context.Context, projectArea, resourceType string, mode feed.IncludeMode) ([]string, error) {
	return e.reader.IDs(ctx, resource.FeedURI(e.serverURL(), projectArea, resourceType), resourceType, e.IgnoreReadErrors, mode)
}

// fetch reads and parses the resource at uri.
func (e *Env) fetch(ctx context.Context, uri, query string) (*etree.Document, string, error) {
	data, err := e.client.Get(ctx, uri, query)
	if err != nil {
		return nil, "", err
	}
	doc, err := resource.Parse(data)
	if err != nil {
		return nil, "", err
	}
	return doc, string(data), nil
}

// skip decides what a failed unit of work does to the command: with
// IgnoreReadErrors it is logged and skipped, otherwise it aborts.
func (e *Env) skip(err error, msg string, args ...any) error {
	if !e.IgnoreReadErrors {
		return err
	}
	slog.Error(msg, append(args, "error", err)...)
	return nil
}

func (e *Env) mode() string {
	if e.Test {
		return "test"
	}
	return "live"
}

// update PUTs after to uri unless running in test mode. The change is
// journaled either way.
func (e *Env) update(ctx context.Context, command, uri, before, after string) error {
	slog.Debug("Updating resource", "command", command, "uri", uri, "mode", e.mode())

	if !e.Test {
		if _, err := e.client.Put(ctx, uri, after, ""); err != nil {
			return err
		}
	}

	e.record(ctx, journal.Mutation{Command: command, Method: http.MethodPut, URI: uri, Before: before, After: after})
	return nil
}

// remove sends DELETE unless running in test mode, where 200 is assumed.
func (e *Env) remove(ctx context.Context, command, uri, query, before string) (int, error) {
	status := http.StatusOK
	if !e.Test {
		var err error
		if status, err = e.client.Delete(ctx, uri, query); err != nil {
			return 0, err
		}
	}

	if status == http.StatusOK {
		e.record(ctx, journal.Mutation{Command: command, Method: http.MethodDelete, URI: uri, Before: before})
	}
	return status, nil
}

func (e *Env) upload(ctx context.Context, command, uri string, data []byte, filename string) (string, error) {
	location, err := e.client.PostMultipart(ctx, uri, data, filename)
	if err != nil {
		return "", err
	}
	e.record(ctx, journal.Mutation{Command: command, Method: http.MethodPost, URI: uri, After: filename})
	return location, nil
}

func (e *Env) record(ctx context.Context, m journal.Mutation) {
	if e.journal == nil {
		return
	}
	m.TestMode = e.Test
	if err := e.journal.Record(ctx, m); err != nil {
		slog.Error("Failed to journal mutation", "uri", m.URI, "error", err)
	}
}

// printf writes a progress line to the console in verbose mode.
func (e *Env) printf(format string, args ...any) {
	if !e.Verbose || e.console == nil {
		return
	}
	fmt.Fprintf(e.console, format+"\n", args...)
}

func (e *Env) prefix(live, test string) string {
	if e.Test {
		return test
	}
	return live
}

func plural(n int, word string) string {
	if n == 1 {
		return fmt.Sprintf("%d %s", n, word)
	}
	return fmt.Sprintf("%d %ss", n, word)
}
