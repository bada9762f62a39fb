package commands

import (
	"context"
	"fmt"
	"regexp"
	"slices"
	"strings"
	"time"

	"github.com/lysyi3m/etm-api/app/cfg"
)

type Command interface {
	Execute(ctx context.Context) error
	GetName() string
	Start()
	GetDuration() time.Duration
}

type Base struct {
	Name      string
	StartedAt *time.Time
	env       *Env
}

func (b *Base) GetName() string {
	return b.Name
}

func (b *Base) Start() {
	now := time.Now()
	b.StartedAt = &now
}

func (b *Base) GetDuration() time.Duration {
	if b.StartedAt == nil {
		return 0
	}
	return time.Since(*b.StartedAt)
}

func newBase(name string, env *Env) Base {
	return Base{Name: name, env: env}
}

var (
	readAllResourcesPattern        = regexp.MustCompile(`^readAll([a-zA-Z]+)Resources$`)
	readAllResourcesHistoryPattern = regexp.MustCompile(`^readAll([a-zA-Z]+)ResourcesHistory$`)
)

var constructors = map[string]func(name string, env *Env) Command{
	"findprojectswithrequirements":       func(n string, e *Env) Command { return NewFindProjectsWithRequirementsCommand(n, e) },
	"completeexecutiontasks":             func(n string, e *Env) Command { return NewCompleteExecutionTasksCommand(n, e) },
	"addmissingadapterid":                func(n string, e *Env) Command { return NewAddMissingAdapterIDCommand(n, e) },
	"convertinlineimages":                func(n string, e *Env) Command { return NewConvertInlineImagesCommand(n, e) },
	"removehtmltagsfromscriptsteps":      func(n string, e *Env) Command { return NewRemoveHTMLTagsFromScriptStepsCommand(n, e) },
	"permanentlydelete":                  func(n string, e *Env) Command { return NewPermanentlyDeleteCommand(n, e) },
	"createmanytestcases":                func(n string, e *Env) Command { return NewCreateManyTestCasesCommand(n, e) },
	"createmanytestscripts":              func(n string, e *Env) Command { return NewCreateManyTestScriptsCommand(n, e) },
	"createmanytestcaseexecutionrecords": func(n string, e *Env) Command { return NewCreateManyTestCaseExecutionRecordsCommand(n, e) },
	"createmanyattachments":              func(n string, e *Env) Command { return NewCreateManyAttachmentsCommand(n, e) },
}

// New resolves a command name. Fixed names match case-insensitively; the
// read commands embed the resource type in the name.
func New(name string, env *Env) (Command, error) {
	if m := readAllResourcesHistoryPattern.FindStringSubmatch(name); m != nil {
		return NewReadAllResourcesHistoryCommand(name, env, resourceType(m[1])), nil
	}
	if m := readAllResourcesPattern.FindStringSubmatch(name); m != nil {
		return NewReadAllResourcesCommand(name, env, resourceType(m[1])), nil
	}

	if constructor, ok := constructors[strings.ToLower(name)]; ok {
		return constructor(name, env), nil
	}

	return nil, fmt.Errorf("unsupported command '%s', supported commands: %s", name, strings.Join(Names(), ", "))
}

// Names lists the supported command names.
func Names() []string {
	names := []string{"readAll<Type>Resources", "readAll<Type>ResourcesHistory"}
	fixed := make([]string, 0, len(constructors))
	for name := range constructors {
		fixed = append(fixed, name)
	}
	slices.Sort(fixed)
	return append(names, fixed...)
}

// resourceType maps the type embedded in a command name to the supported
// type it names, keeping unknown types as written.
func resourceType(name string) string {
	for _, supported := range cfg.SupportedResourceTypes {
		if strings.EqualFold(supported, name) {
			return supported
		}
	}
	return name
}
