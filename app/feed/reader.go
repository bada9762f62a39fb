package feed

import (
	"cmp"
	"context"
	"fmt"
	"log/slog"
	"strconv"
)

// Getter fetches the body at uri with an optional extra query string.
type Getter interface {
	Get(ctx context.Context, uri, query string) ([]byte, error)
}

// Reader walks a paginated integration service feed.
type Reader struct {
	getter Getter
	parser *Parser
}

func NewReader(getter Getter) *Reader {
	return &Reader{
		getter: getter,
		parser: NewParser(),
	}
}

// Entries fetches page 1 of feedURI and, when it declares a last page, pages
// 2 through that page using the continuation token. Entries are filtered by
// mode and returned in page order.
func (r *Reader) Entries(ctx context.Context, feedURI, resourceType string, ignoreReadErrors bool, mode IncludeMode) ([]Entry, error) {
	var query string
	if mode.RequestsArchived() || mode.RequestsPurged() {
		query = "includeArchived=true"
	}

	slog.Debug("Reading feed", "uri", feedURI, "query", query, "resource_type", resourceType)

	first, err := r.fetchPage(ctx, feedURI, query)
	if err != nil {
		err = fmt.Errorf("failed to read feed '%s' for resource type '%s': %w", feedURI, resourceType, err)
		if ignoreReadErrors {
			slog.Error("Skipping unreadable feed", "error", err)
			return nil, nil
		}
		return nil, err
	}

	entries := filterEntries(nil, first.Entries, mode)

	lastPage, token := r.cursor(first)

	for page := 2; page <= lastPage; page++ {
		pageQuery := "token=" + token + "&page=" + strconv.Itoa(page)
		if query != "" {
			pageQuery = query + "&" + pageQuery
		}

		next, err := r.fetchPage(ctx, feedURI, pageQuery)
		if err != nil {
			err = fmt.Errorf("failed to read page %d of feed '%s': %w", page, feedURI, err)
			if ignoreReadErrors {
				slog.Error("Skipping unreadable feed page", "page", page, "error", err)
				continue
			}
			return nil, err
		}
		if next == nil {
			slog.Error("Empty feed page", "uri", feedURI, "page", page)
			continue
		}

		entries = filterEntries(entries, next.Entries, mode)
	}

	slog.Debug("Done reading feed",
		"uri", feedURI,
		"resource_type", resourceType,
		"pages", cmp.Or(lastPage, 1),
		"entries", len(entries))

	return entries, nil
}

// IDs returns the resource IDs of the entries Entries would return.
func (r *Reader) IDs(ctx context.Context, feedURI, resourceType string, ignoreReadErrors bool, mode IncludeMode) ([]string, error) {
	entries, err := r.Entries(ctx, feedURI, resourceType, ignoreReadErrors, mode)
	if err != nil {
		return nil, err
	}
	return IDs(entries, resourceType), nil
}

// fetchPage returns nil with no error when the server sent an empty body.
func (r *Reader) fetchPage(ctx context.Context, uri, query string) (*Page, error) {
	data, err := r.getter.Get(ctx, uri, query)
	if err != nil {
		return nil, err
	}
	if len(data) == 0 {
		return nil, nil
	}
	return r.parser.Run(data)
}

func (r *Reader) cursor(first *Page) (int, string) {
	if first == nil || first.LastHref == "" {
		return 0, ""
	}

	link, tokenOK, pageOK := ParseLastLink(first.LastHref)
	if !tokenOK {
		slog.Error("Missing token request parameter", "href", first.LastHref)
	}
	if !pageOK {
		slog.Error("Missing page request parameter", "href", first.LastHref)
	}
	if !tokenOK || !pageOK {
		return 0, ""
	}
	return link.LastPage, link.Token
}

func filterEntries(dst, src []Entry, mode IncludeMode) []Entry {
	for _, e := range src {
		if ShouldInclude(mode, e.Archived, e.Purged) {
			dst = append(dst, e)
		}
	}
	return dst
}
