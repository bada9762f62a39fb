package cfg

import "time"

// SupportedResourceTypes lists the integration service resource types the
// utility can read or update.
var SupportedResourceTypes = []string{
	"adapter",
	"attachment",
	"builddefinition",
	"buildrecord",
	"catalog",
	"category",
	"categoryType",
	"channel",
	"configuration",
	"datapool",
	"executionresult",
	"executionsequence",
	"executionsequenceresult",
	"executionvariable",
	"executionvariablevalue",
	"executionworkitem",
	"jobscheduler",
	"keyword",
	"labresource",
	"labresourceattribute",
	"objective",
	"remotescript",
	"request",
	"reservation",
	"resourcegroup",
	"suiteexecutionrecord",
	"tasks",
	"template",
	"testcase",
	"testcell",
	"testphase",
	"testplan",
	"testscript",
	"testsuite",
	"testsuitelog",
}

type Cfg struct {
	// Server configuration
	URL           string
	Username      string
	Password      string
	ProjectAreas  []string
	ConfigContext string
	Insecure      bool

	// Command configuration
	Command           string
	ResourcesFile     string
	QueryString       string
	ResourceTypes     []string
	ResourceTypesSet  bool // False when ResourceTypes defaulted to every supported type
	ResourceIDs       []string
	RemoteScriptTypes []string
	AdapterID         string
	CreationDate      time.Time
	ExecutionStates   []string
	ExecutionProgress int
	ResultStates      []string
	Count             int

	// Behaviour
	Test             bool
	Verbose          bool
	IgnoreReadErrors bool
	LogFile          string
	Journal          string
	Debug            bool

	// Application metadata
	ShowVersion bool
	Version     string
}

// Profile holds defaults read from a yaml file. Flags and environment
// variables win over it.
type Profile struct {
	URL           string   `yaml:"url"`
	Username      string   `yaml:"username"`
	Password      string   `yaml:"password"`
	ProjectAreas  []string `yaml:"project_areas"`
	ConfigContext string   `yaml:"config_context"`
	LogFile       string   `yaml:"log"`
	Journal       string   `yaml:"journal"`
	Insecure      bool     `yaml:"insecure"`
}
