package commands

import (
	"context"
	"fmt"
	"log/slog"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/beevik/etree"

	"github.com/lysyi3m/etm-api/app/feed"
	"github.com/lysyi3m/etm-api/app/resource"
)

const (
	tasksType = "tasks"
	taskURN   = "urn:com.ibm.rqm:tasks:"

	TaskStateComplete = "com.ibm.rqm.executionframework.common.requeststate.complete"
)

// CompleteExecutionTasksCommand moves matching execution tasks to the
// complete state.
type CompleteExecutionTasksCommand struct {
	Base
	Completed []string
}

func NewCompleteExecutionTasksCommand(name string, env *Env) *CompleteExecutionTasksCommand {
	return &CompleteExecutionTasksCommand{Base: newBase(name, env)}
}

func (c *CompleteExecutionTasksCommand) Execute(ctx context.Context) error {
	env := c.env

	if len(env.ResourceIDs) == 0 && env.CreationDate.IsZero() && len(env.ExecutionStates) == 0 &&
		env.ExecutionProgress == -1 && len(env.ResultStates) == 0 {
		return fmt.Errorf("command '%s' requires resource web IDs, a creation date, execution task states, execution progress or execution result states", c.Name)
	}
	if len(env.ResourceIDs) > 0 && len(env.ProjectAreas) > 1 {
		return fmt.Errorf("command '%s' can only work on one project area when resource web IDs are given", c.Name)
	}

	c.Completed = nil
	for _, projectArea := range env.ProjectAreas {
		env.printf("Running %scommand '%s' in project area '%s'.", env.prefix("", "test "), c.Name, projectArea)

		ids := env.ResourceIDs
		if len(ids) == 0 {
			var err error
			if ids, err = env.ids(ctx, projectArea, tasksType, feed.IncludeUnset); err != nil {
				return err
			}
		}

		for _, id := range ids {
			id = taskID(id)
			uri := resource.URI(env.serverURL(), projectArea, tasksType, taskURN+id)

			completed, err := c.completeTask(ctx, id, uri)
			if err != nil {
				if err := env.skip(err, "Unable to get execution task content, skipping", "uri", uri); err != nil {
					return err
				}
				continue
			}
			if completed {
				c.Completed = append(c.Completed, uri)
			}
		}
	}

	env.printf("Summary:")
	env.printf("    %s %s.", env.prefix("Completed", "Test completed"), plural(len(c.Completed), "execution task"))
	for _, uri := range c.Completed {
		env.printf("    %s execution task '%s'.", env.prefix("Completed", "Test completed"), uri)
	}

	slog.Info("Execution tasks completed", "count", len(c.Completed), "mode", env.mode())
	return nil
}

func (c *CompleteExecutionTasksCommand) completeTask(ctx context.Context, id, uri string) (bool, error) {
	env := c.env

	doc, before, err := env.fetch(ctx, uri, "")
	if err != nil {
		return false, err
	}
	root := doc.Root()
	state := resource.ChildText(root, resource.NamespaceALM, "state")

	ok, err := c.matches(ctx, root, id, state)
	if err != nil || !ok {
		return false, err
	}

	resource.SetChildText(root, resource.NamespaceALM, "state", TaskStateComplete)
	after, err := resource.Render(doc)
	if err != nil {
		return false, err
	}

	if err := env.update(ctx, c.Name, uri, before, after); err != nil {
		return false, err
	}

	slog.Info("Execution task completed", "id", id, "from_state", state, "uri", uri, "mode", env.mode())
	return true, nil
}

// matches applies every configured filter to the task document.
func (c *CompleteExecutionTasksCommand) matches(ctx context.Context, root *etree.Element, id, state string) (bool, error) {
	env := c.env

	if !env.CreationDate.IsZero() {
		created, err := time.Parse(time.RFC3339Nano, resource.ChildText(root, resource.NamespaceALMQM, "creationDate"))
		if err != nil || !created.Before(env.CreationDate) {
			return false, nil
		}
	}

	if len(env.ExecutionStates) > 0 && !slices.Contains(env.ExecutionStates, state) {
		return false, nil
	}

	if len(env.ResourceIDs) > 0 && !slices.ContainsFunc(env.ResourceIDs, func(s string) bool { return taskID(s) == id }) {
		return false, nil
	}

	if env.ExecutionProgress != -1 {
		progress, err := strconv.Atoi(resource.ChildText(root, resource.NamespaceAdapterTask, "progress"))
		if err != nil || progress != env.ExecutionProgress {
			return false, nil
		}
	}

	if len(env.ResultStates) > 0 {
		resultURL := resource.Child(root, resource.NamespaceAdapterTask, "resultURL")
		if resultURL == nil {
			return false, nil
		}

		resultURI := resultURL.SelectAttrValue("href", "")
		result, _, err := env.fetch(ctx, resultURI, "")
		if err != nil {
			return false, fmt.Errorf("failed to read execution result '%s': %w", resultURI, err)
		}
		if !slices.Contains(env.ResultStates, resource.ChildText(result.Root(), resource.NamespaceALM, "state")) {
			return false, nil
		}
	}

	return true, nil
}

// taskID strips the URN prefix the tasks feed puts on IDs.
func taskID(id string) string {
	if i := strings.LastIndex(id, ":"); i >= 0 {
		return id[i+1:]
	}
	return id
}
