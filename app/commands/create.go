package commands

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/beevik/etree"

	"github.com/lysyi3m/etm-api/app/feed"
	"github.com/lysyi3m/etm-api/app/resource"
)

const (
	testCaseType          = "testcase"
	executionWorkItemType = "executionworkitem"

	namespaceTestScript = "http://jazz.net/xmlns/alm/qm/v0.1/testscript/v0.1/"

	attachmentContent = "Attachment file content\n"
)

// generator builds the resources a createMany command writes. n numbers the
// run and i the resource within it, both starting at 1.
type generator struct {
	Base
	Created []string
}

// nextRun returns the run number for resourceType: one more than the
// resources the project area already holds.
func (g *generator) nextRun(ctx context.Context, projectArea, resourceType string) (int, error) {
	ids, err := g.env.ids(ctx, projectArea, resourceType, feed.IncludeUnset)
	if err != nil {
		return 0, err
	}
	return len(ids) + 1, nil
}

// create PUTs doc as resourceType_n_i and returns its URI.
func (g *generator) create(ctx context.Context, projectArea, resourceType string, n, i int, doc *etree.Document) (string, error) {
	uri := resource.URI(g.env.serverURL(), projectArea, resourceType, fmt.Sprintf("%s_%d_%d", resourceType, n, i))

	content, err := resource.Render(doc)
	if err != nil {
		return "", err
	}
	if err := g.env.update(ctx, g.Name, uri, "", content); err != nil {
		return "", fmt.Errorf("failed to create '%s': %w", uri, err)
	}

	g.Created = append(g.Created, uri)
	return uri, nil
}

func (g *generator) projectArea() (string, error) {
	if len(g.env.ProjectAreas) == 0 {
		return "", fmt.Errorf("command '%s' requires a project area", g.Name)
	}
	return g.env.ProjectAreas[0], nil
}

func (g *generator) summary(what string) {
	env := g.env
	env.printf("Summary:")
	env.printf("    %s %s in %s.", env.prefix("Created", "Test created"), plural(len(g.Created), what), projectAreaLabel(env.ProjectAreas[:1]))
	slog.Info("Resources created", "command", g.Name, "count", len(g.Created), "mode", env.mode())
}

// newResourceDocument starts a resource document with the quality manager
// and Dublin Core namespaces bound to the prefixes the server uses.
func newResourceDocument(rootType, title string) (*etree.Document, *etree.Element) {
	doc := etree.NewDocument()
	doc.CreateProcInst("xml", `version="1.0" encoding="UTF-8"`)

	root := doc.CreateElement("ns2:" + rootType)
	root.CreateAttr("xmlns:ns2", resource.NamespaceALMQM)
	root.CreateAttr("xmlns:ns4", resource.NamespaceDC)
	root.CreateElement("ns4:title").SetText(title)
	return doc, root
}

func testCaseDocument(n, i int) *etree.Document {
	doc, _ := newResourceDocument(testCaseType, fmt.Sprintf("Test Case %d.%d", n, i))
	return doc
}

type CreateManyTestCasesCommand struct {
	generator
}

func NewCreateManyTestCasesCommand(name string, env *Env) *CreateManyTestCasesCommand {
	return &CreateManyTestCasesCommand{generator{Base: newBase(name, env)}}
}

func (c *CreateManyTestCasesCommand) Execute(ctx context.Context) error {
	projectArea, err := c.projectArea()
	if err != nil {
		return err
	}
	c.Created = nil

	n, err := c.nextRun(ctx, projectArea, testCaseType)
	if err != nil {
		return err
	}

	for i := 1; i <= c.env.Count; i++ {
		if _, err := c.create(ctx, projectArea, testCaseType, n, i, testCaseDocument(n, i)); err != nil {
			return err
		}
	}

	c.summary("test case")
	return nil
}

type CreateManyTestScriptsCommand struct {
	generator
}

func NewCreateManyTestScriptsCommand(name string, env *Env) *CreateManyTestScriptsCommand {
	return &CreateManyTestScriptsCommand{generator{Base: newBase(name, env)}}
}

func (c *CreateManyTestScriptsCommand) Execute(ctx context.Context) error {
	projectArea, err := c.projectArea()
	if err != nil {
		return err
	}
	c.Created = nil

	n, err := c.nextRun(ctx, projectArea, testScriptType)
	if err != nil {
		return err
	}

	for i := 1; i <= c.env.Count; i++ {
		if _, err := c.create(ctx, projectArea, testScriptType, n, i, testScriptDocument(n, i)); err != nil {
			return err
		}
	}

	c.summary("test script")
	return nil
}

func testScriptDocument(n, i int) *etree.Document {
	doc, root := newResourceDocument(testScriptType, fmt.Sprintf("Test Script %d.%d", n, i))
	root.CreateAttr("xmlns:ns8", namespaceTestScript)

	label := fmt.Sprintf("Test Script Step %d.%d", n, i)

	step := root.CreateElement("ns2:steps").CreateElement("ns8:step")
	step.CreateAttr("stepIndex", "1")
	step.CreateAttr("type", "execution")
	step.CreateElement("ns8:name").SetText(label)
	step.CreateElement("ns8:title").SetText(label)
	step.CreateElement("ns8:description").CreateElement("div").SetText(label)
	return doc
}

type CreateManyTestCaseExecutionRecordsCommand struct {
	generator
}

func NewCreateManyTestCaseExecutionRecordsCommand(name string, env *Env) *CreateManyTestCaseExecutionRecordsCommand {
	return &CreateManyTestCaseExecutionRecordsCommand{generator{Base: newBase(name, env)}}
}

func (c *CreateManyTestCaseExecutionRecordsCommand) Execute(ctx context.Context) error {
	projectArea, err := c.projectArea()
	if err != nil {
		return err
	}
	c.Created = nil

	n, err := c.nextRun(ctx, projectArea, testCaseType)
	if err != nil {
		return err
	}

	for i := 1; i <= c.env.Count; i++ {
		testCaseURI, err := c.create(ctx, projectArea, testCaseType, n, i, testCaseDocument(n, i))
		if err != nil {
			return err
		}

		doc, root := newResourceDocument(executionWorkItemType, fmt.Sprintf("Test Case Execution Record %d.%d", n, i))
		root.CreateElement("ns2:testcase").CreateAttr("href", testCaseURI)

		if _, err := c.create(ctx, projectArea, executionWorkItemType, n, i, doc); err != nil {
			return err
		}
	}

	c.summary("test case and execution record")
	return nil
}

// CreateManyAttachmentsCommand uploads attachments and a test case referencing
// each of them in every project area. Test mode only reports.
type CreateManyAttachmentsCommand struct {
	generator
}

func NewCreateManyAttachmentsCommand(name string, env *Env) *CreateManyAttachmentsCommand {
	return &CreateManyAttachmentsCommand{generator{Base: newBase(name, env)}}
}

func (c *CreateManyAttachmentsCommand) Execute(ctx context.Context) error {
	env := c.env
	c.Created = nil

	for _, projectArea := range env.ProjectAreas {
		env.printf("Running %scommand '%s' in project area '%s'.", env.prefix("", "test "), c.Name, projectArea)

		a, err := c.nextRun(ctx, projectArea, attachmentType)
		if err != nil {
			return err
		}
		n, err := c.nextRun(ctx, projectArea, testCaseType)
		if err != nil {
			return err
		}

		if env.Test {
			slog.Info("Skipping attachment creation in test mode", "project_area", projectArea, "count", env.Count)
			continue
		}

		attachmentFeed := resource.FeedURI(env.serverURL(), projectArea, attachmentType)
		for i := 1; i <= env.Count; i++ {
			filename := fmt.Sprintf("%s_%d_%d.txt", attachmentType, a, i)

			location, err := env.upload(ctx, c.Name, attachmentFeed, []byte(attachmentContent), filename)
			if err != nil {
				return fmt.Errorf("failed to upload attachment '%s': %w", filename, err)
			}
			id := location[strings.LastIndex(location, "/")+1:]

			doc := testCaseDocument(n, i)
			doc.Root().CreateElement("ns2:attachment").CreateAttr("href", attachmentFeed+"/"+id)

			if _, err := c.create(ctx, projectArea, testCaseType, n, i, doc); err != nil {
				return err
			}
		}
	}

	env.printf("Summary:")
	env.printf("    %s %s in %s.", env.prefix("Created", "Test created"), plural(env.Count*len(env.ProjectAreas), "attachment"), projectAreaLabel(env.ProjectAreas))
	slog.Info("Attachments created", "count", len(c.Created), "mode", env.mode())
	return nil
}
