package commands

import (
	"context"
	"fmt"
	"log/slog"
	"slices"
	"strconv"
	"strings"

	"github.com/lysyi3m/etm-api/app/feed"
	"github.com/lysyi3m/etm-api/app/resource"
)

const remoteScriptType = "remotescript"

// RemoteScriptTypeIDs maps the remote script type names shown to users to the
// type IDs stored in remote script resources.
var RemoteScriptTypeIDs = map[string]string{
	"RQM-KEY-APPSCAN-APTR-TYPE-NAME":     "com.ibm.rqm.appscan.common.scripttype.ase",
	"RQM-KEY-CMD-APTR-TYPE-NAME":         "com.ibm.rqm.adapter.commandline",
	"RQM-KEY-RFT-APTR-TYPE-NAME":         "com.ibm.rqm.adapter.rft",
	"RQM-KEY-ROBOT-APTR-TYPE-NAME":       "com.ibm.rqm.executionframework.common.scripttype.robot",
	"RQM-KEY-RPT-APTR-TYPE-NAME":         "com.ibm.rqm.executionframework.common.scripttype.rpt",
	"RQM-KEY-RIT-APTR-TYPE-NAME":         "com.ghc.ghTester.rqm.execution.web.type",
	"RQM-KEY-RTW-APTR-TYPE-NAME":         "com.ibm.rqm.executionframework.common.scripttype.rtw",
	"RQM-KEY-TRT-APTR-TYPE-NAME":         "com.ibm.rqm.adapter.testrt",
	"RQM-KEY-SEL-APTR-TYPE-NAME":         "com.ibm.rqm.adapter.selenium",
	"RQM-KEY-RPT-SERVICE-APTR-TYPE-NAME": "com.ibm.rqm.executionframework.common.scripttype.rst",
}

// AddMissingAdapterIDCommand sets the adapter ID on managed remote scripts of
// the given types that have none.
type AddMissingAdapterIDCommand struct {
	Base
	Updated []string
}

func NewAddMissingAdapterIDCommand(name string, env *Env) *AddMissingAdapterIDCommand {
	return &AddMissingAdapterIDCommand{Base: newBase(name, env)}
}

func (c *AddMissingAdapterIDCommand) Execute(ctx context.Context) error {
	env := c.env

	if len(env.RemoteScriptTypes) == 0 {
		return fmt.Errorf("command '%s' requires one or more remote script types", c.Name)
	}
	if strings.TrimSpace(env.AdapterID) == "" {
		return fmt.Errorf("command '%s' requires an adapter ID", c.Name)
	}

	types := make([]string, 0, 2*len(env.RemoteScriptTypes))
	for _, t := range env.RemoteScriptTypes {
		types = append(types, t)
		if id, ok := RemoteScriptTypeIDs[t]; ok {
			types = append(types, id)
		}
	}

	c.Updated = nil
	for _, projectArea := range env.ProjectAreas {
		env.printf("Running %scommand '%s' in project area '%s'.", env.prefix("", "test "), c.Name, projectArea)

		ids, err := env.ids(ctx, projectArea, remoteScriptType, feed.IncludeUnset)
		if err != nil {
			return err
		}

		for _, id := range ids {
			uri := resource.URI(env.serverURL(), projectArea, remoteScriptType, id)

			updated, err := c.addAdapterID(ctx, uri, types)
			if err != nil {
				if err := env.skip(err, "Unable to get remote script content, skipping", "uri", uri); err != nil {
					return err
				}
				continue
			}
			if updated {
				c.Updated = append(c.Updated, uri)
			}
		}
	}

	env.printf("Summary:")
	env.printf("    %s missing adapter ID '%s' to %s.", env.prefix("Added", "Test added"), env.AdapterID, plural(len(c.Updated), "remote script"))
	for _, uri := range c.Updated {
		env.printf("    %s missing adapter ID to '%s'.", env.prefix("Added", "Test added"), uri)
	}

	slog.Info("Missing adapter IDs added", "adapter_id", env.AdapterID, "count", len(c.Updated), "mode", env.mode())
	return nil
}

func (c *AddMissingAdapterIDCommand) addAdapterID(ctx context.Context, uri string, types []string) (bool, error) {
	env := c.env

	doc, before, err := env.fetch(ctx, uri, env.QueryString)
	if err != nil {
		return false, err
	}
	root := doc.Root()

	if len(env.ResourceIDs) > 0 && !slices.Contains(env.ResourceIDs, resource.ChildText(root, resource.NamespaceALMQM, "webId")) {
		return false, nil
	}
	if !slices.Contains(types, resource.ChildText(root, resource.NamespaceALMQM, "type")) {
		return false, nil
	}
	if managed, _ := strconv.ParseBool(resource.ChildText(root, resource.NamespaceALMQM, "manageadapter")); !managed {
		return false, nil
	}
	if resource.ChildText(root, resource.NamespaceALMQM, "adapterid") != "" {
		return false, nil
	}

	resource.SetChildText(root, resource.NamespaceALMQM, "adapterid", env.AdapterID)
	after, err := resource.Render(doc)
	if err != nil {
		return false, err
	}

	if err := env.update(ctx, c.Name, uri, before, after); err != nil {
		return false, err
	}
	return true, nil
}
