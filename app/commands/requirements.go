package commands

import (
	"context"
	"log/slog"
	"strings"

	"github.com/lysyi3m/etm-api/app/feed"
)

const requirementType = "requirement"

// Requirements synchronized from these providers are not counted.
var externalRequirementMarkers = []string{"reqpro/", "reqprohttps/", "doors/"}

type ProjectRequirements struct {
	ProjectArea string
	Count       int
}

// FindProjectsWithRequirementsCommand reports the project areas holding
// requirements managed in the quality manager itself.
type FindProjectsWithRequirementsCommand struct {
	Base
	Found []ProjectRequirements
}

func NewFindProjectsWithRequirementsCommand(name string, env *Env) *FindProjectsWithRequirementsCommand {
	return &FindProjectsWithRequirementsCommand{Base: newBase(name, env)}
}

func (c *FindProjectsWithRequirementsCommand) Execute(ctx context.Context) error {
	env := c.env

	c.Found = nil
	for _, projectArea := range env.ProjectAreas {
		env.printf("Searching for requirements in project area '%s'.", projectArea)

		ids, err := env.ids(ctx, projectArea, requirementType, feed.IncludeUnset)
		if err != nil {
			return err
		}

		count := 0
		for _, id := range ids {
			if isLocalRequirement(id) {
				count++
			}
		}
		if count > 0 {
			c.Found = append(c.Found, ProjectRequirements{ProjectArea: projectArea, Count: count})
		}
	}

	env.printf("Summary:")
	env.printf("    Found %s with requirements.", plural(len(c.Found), "project area"))
	for _, found := range c.Found {
		env.printf("    Project area '%s' contains %s.", found.ProjectArea, plural(found.Count, "requirement"))
	}

	slog.Info("Projects with requirements found", "count", len(c.Found))
	return nil
}

func isLocalRequirement(id string) bool {
	id = strings.ToLower(id)
	for _, marker := range externalRequirementMarkers {
		if strings.Contains(id, marker) {
			return false
		}
	}
	return true
}
