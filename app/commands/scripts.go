package commands

import (
	"context"
	"log/slog"
	"strings"

	"github.com/lysyi3m/etm-api/app/feed"
	"github.com/lysyi3m/etm-api/app/resource"
)

const testScriptType = "testscript"

// Escaped line breaks left behind by migrated manual test scripts.
var lineBreakFixer = strings.NewReplacer("&lt;br/&gt;", "<br/>", "&lt;br/gt;", "<br/>")

// RemoveHTMLTagsFromScriptStepsCommand restores the line breaks escaped in
// manual test script steps.
type RemoveHTMLTagsFromScriptStepsCommand struct {
	Base
	Updated []string
}

func NewRemoveHTMLTagsFromScriptStepsCommand(name string, env *Env) *RemoveHTMLTagsFromScriptStepsCommand {
	return &RemoveHTMLTagsFromScriptStepsCommand{Base: newBase(name, env)}
}

func (c *RemoveHTMLTagsFromScriptStepsCommand) Execute(ctx context.Context) error {
	env := c.env

	c.Updated = nil
	for _, projectArea := range env.ProjectAreas {
		env.printf("Running %scommand '%s' in project area '%s'.", env.prefix("", "test "), c.Name, projectArea)

		ids := env.ResourceIDs
		if len(ids) == 0 {
			var err error
			if ids, err = env.ids(ctx, projectArea, testScriptType, feed.IncludeUnset); err != nil {
				return err
			}
		}

		for _, id := range ids {
			uri := resource.URI(env.serverURL(), projectArea, testScriptType, resource.EncodeSegmentedID(id))

			data, err := env.client.Get(ctx, uri, "")
			if err != nil {
				if err := env.skip(err, "Unable to get test script content, skipping", "uri", uri); err != nil {
					return err
				}
				continue
			}

			before := string(data)
			after := lineBreakFixer.Replace(before)
			if after == before {
				continue
			}

			if err := env.update(ctx, c.Name, uri, before, after); err != nil {
				slog.Error("Unable to update test script, skipping", "uri", uri, "error", err)
				continue
			}

			slog.Info("Test script line breaks restored", "id", id, "uri", uri, "mode", env.mode())
			c.Updated = append(c.Updated, uri)
		}
	}

	env.printf("Summary:")
	env.printf("    %s %s.", env.prefix("Updated", "Test updated"), plural(len(c.Updated), "test script"))
	for _, uri := range c.Updated {
		env.printf("    %s test script '%s'.", env.prefix("Updated", "Test updated"), uri)
	}

	return nil
}
