package commands

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"slices"
	"strings"

	"github.com/lysyi3m/etm-api/app/feed"
	"github.com/lysyi3m/etm-api/app/resource"
)

// PermanentlyDeletableTypes lists the resource types permanentlyDelete
// accepts.
var PermanentlyDeletableTypes = []string{"executionresult"}

// PermanentlyDeleteCommand removes archived and purged resources for good.
type PermanentlyDeleteCommand struct {
	Base
	Deleted []string
}

func NewPermanentlyDeleteCommand(name string, env *Env) *PermanentlyDeleteCommand {
	return &PermanentlyDeleteCommand{Base: newBase(name, env)}
}

func (c *PermanentlyDeleteCommand) Execute(ctx context.Context) error {
	env := c.env
	supported := strings.Join(PermanentlyDeletableTypes, ", ")

	if !env.ResourceTypesSet {
		return fmt.Errorf("command '%s' requires resource types, supported resource types: %s", c.Name, supported)
	}

	var unsupported []string
	for _, t := range env.ResourceTypes {
		if !slices.Contains(PermanentlyDeletableTypes, t) {
			unsupported = append(unsupported, t)
		}
	}
	if len(unsupported) > 0 {
		return fmt.Errorf("command '%s' does not support resource types %s, supported resource types: %s",
			c.Name, strings.Join(unsupported, ", "), supported)
	}

	c.Deleted = nil
	for _, projectArea := range env.ProjectAreas {
		env.printf("Running %scommand '%s' in project area '%s'.", env.prefix("", "test "), c.Name, projectArea)

		for _, resourceType := range env.ResourceTypes {
			ids, err := env.ids(ctx, projectArea, resourceType, feed.ArchivedAndPurged)
			if err != nil {
				return err
			}

			count := 0
			for _, id := range ids {
				uri := resource.URI(env.serverURL(), projectArea, resourceType, id)

				if err := c.delete(ctx, uri); err != nil {
					slog.Error("Unable to permanently delete resource, skipping", "resource_type", resourceType, "uri", uri, "mode", env.mode(), "error", err)
					continue
				}
				c.Deleted = append(c.Deleted, uri)
				count++
			}

			env.printf("%s %s of resource type '%s' in project area '%s'.",
				env.prefix("Permanently deleted", "Test permanently deleted"), plural(count, "resource"), resourceType, projectArea)
		}
	}

	env.printf("Summary:")
	env.printf("    %s %s of resource types '%s' in %s.",
		env.prefix("Permanently deleted", "Test permanently deleted"), plural(len(c.Deleted), "resource"),
		strings.Join(env.ResourceTypes, ", "), projectAreaLabel(env.ProjectAreas))
	for _, uri := range c.Deleted {
		env.printf("    %s '%s'.", env.prefix("Permanently deleted", "Test permanently deleted"), uri)
	}

	slog.Info("Resources permanently deleted", "count", len(c.Deleted), "mode", env.mode())
	return nil
}

func (c *PermanentlyDeleteCommand) delete(ctx context.Context, uri string) error {
	const query = "deleteArchived=true"

	status, err := c.env.remove(ctx, c.Name, uri, query, "")
	if err != nil {
		return err
	}
	if status != http.StatusOK {
		return fmt.Errorf("HTTP request 'DELETE %s?%s' returned status code %d", uri, query, status)
	}
	return nil
}
