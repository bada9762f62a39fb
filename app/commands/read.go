package commands

import (
	"context"
	"fmt"
	"html"
	"io"
	"log/slog"
	"strings"

	"github.com/lysyi3m/etm-api/app/feed"
	"github.com/lysyi3m/etm-api/app/resource"
)

// ReadAllResourcesCommand writes every resource of one type as an Atom feed.
type ReadAllResourcesCommand struct {
	Base
	ResourceType string
	generator    *feed.Generator
}

func NewReadAllResourcesCommand(name string, env *Env, resourceType string) *ReadAllResourcesCommand {
	return &ReadAllResourcesCommand{
		Base:         newBase(name, env),
		ResourceType: resourceType,
		generator:    feed.NewGenerator(),
	}
}

func (c *ReadAllResourcesCommand) Execute(ctx context.Context) error {
	env := c.env
	server := env.serverURL()

	header := feed.Header{
		Title:         c.ResourceType + " ATOM feed for " + projectAreaLabel(env.ProjectAreas),
		AlternateLink: server + "web/console/",
	}
	if len(env.ProjectAreas) == 1 {
		header.ID = resource.FeedURI(server, env.ProjectAreas[0], c.ResourceType)
	} else {
		header.ID = resource.AllProjectsFeedURI(server, c.ResourceType)
	}
	header.SelfLink = header.ID + "?" + env.QueryString

	var resources []feed.Resource
	for _, projectArea := range env.ProjectAreas {
		env.printf("Reading %s resources in project area '%s'.", c.ResourceType, projectArea)

		read, err := c.readProjectArea(ctx, projectArea)
		if err != nil {
			return err
		}
		resources = append(resources, read...)

		env.printf("Read %s in project area '%s'.", plural(len(read), c.ResourceType+" resource"), projectArea)
	}

	out, err := c.generator.Run(header, resources)
	if err != nil {
		return fmt.Errorf("failed to generate feed: %w", err)
	}
	if _, err := io.WriteString(env.out, out); err != nil {
		return fmt.Errorf("failed to write feed: %w", err)
	}

	slog.Info("Resources read", "resource_type", c.ResourceType, "count", len(resources))
	return nil
}

func (c *ReadAllResourcesCommand) readProjectArea(ctx context.Context, projectArea string) ([]feed.Resource, error) {
	env := c.env
	server := env.serverURL()

	feedURI := resource.FeedURI(server, projectArea, c.ResourceType) + "?" + env.QueryString
	ids, err := env.reader.IDs(ctx, feedURI, c.ResourceType, env.IgnoreReadErrors, feed.IncludeUnset)
	if err != nil {
		return nil, err
	}

	resources := make([]feed.Resource, 0, len(ids))
	for _, id := range ids {
		uri := resource.URI(server, projectArea, c.ResourceType, id)

		doc, _, err := env.fetch(ctx, uri, env.QueryString)
		if err != nil {
			if err := env.skip(err, "Unable to get resource", "uri", uri); err != nil {
				return nil, err
			}
			continue
		}

		root := doc.Root()
		r := feed.Resource{
			ID:      resource.ChildText(root, resource.NamespaceDC, "identifier"),
			Title:   resource.ChildText(root, resource.NamespaceDC, "title"),
			Updated: resource.ChildText(root, resource.NamespaceALM, "updated"),
			Link:    uri,
		}
		if r.XML, err = resource.Render(doc); err != nil {
			return nil, err
		}
		resources = append(resources, r)
	}

	return resources, nil
}

// ReadAllResourcesHistoryCommand writes the history feed of every resource of
// one type, each linked back to its resource.
type ReadAllResourcesHistoryCommand struct {
	Base
	ResourceType string
}

func NewReadAllResourcesHistoryCommand(name string, env *Env, resourceType string) *ReadAllResourcesHistoryCommand {
	return &ReadAllResourcesHistoryCommand{
		Base:         newBase(name, env),
		ResourceType: resourceType,
	}
}

func (c *ReadAllResourcesHistoryCommand) Execute(ctx context.Context) error {
	env := c.env
	server := env.serverURL()

	total := 0
	for _, projectArea := range env.ProjectAreas {
		feedURI := resource.FeedURI(server, projectArea, c.ResourceType) + "?" + env.QueryString
		ids, err := env.reader.IDs(ctx, feedURI, c.ResourceType, env.IgnoreReadErrors, feed.IncludeUnset)
		if err != nil {
			return err
		}

		count := 0
		for _, id := range ids {
			uri := resource.URI(server, projectArea, c.ResourceType, id)
			historyURI := resource.HistoryURI(server, projectArea, c.ResourceType, id)

			history, err := c.readHistory(ctx, uri, historyURI)
			if err != nil {
				if err := env.skip(err, "Unable to resolve resource history", "uri", historyURI); err != nil {
					return err
				}
				continue
			}
			if history == "" {
				continue
			}

			if _, err := fmt.Fprintln(env.out, history); err != nil {
				return fmt.Errorf("failed to write history: %w", err)
			}
			count++
		}

		env.printf("Read %s history in project area '%s'.", plural(count, c.ResourceType+" resource"), projectArea)
		total += count
	}

	slog.Info("Resource histories read", "resource_type", c.ResourceType, "count", total)
	return nil
}

func (c *ReadAllResourcesHistoryCommand) readHistory(ctx context.Context, uri, historyURI string) (string, error) {
	data, err := c.env.client.Get(ctx, historyURI, "")
	if err != nil {
		return "", err
	}

	history := strings.TrimSpace(string(data))
	if history == "" {
		return "", nil
	}

	if i := strings.Index(history, "<entry>"); i >= 0 {
		history = history[:i] + `<link href="` + html.EscapeString(uri) + `"/>` + history[i:]
	}

	doc, err := resource.Parse([]byte(history))
	if err != nil {
		return "", err
	}
	return renderWithoutDeclaration(doc)
}

func projectAreaLabel(projectAreas []string) string {
	if len(projectAreas) == 1 {
		return "project area " + projectAreas[0]
	}
	return "project areas " + strings.Join(projectAreas, ", ")
}
