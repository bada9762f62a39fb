package cfg

import (
	"cmp"
	"fmt"
	"net/url"
	"os"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/jessevdk/go-flags"
	"gopkg.in/yaml.v3"
)

// Version is set at build time via -ldflags
var Version = "dev"

func GetVersion() string {
	return cmp.Or(Version, "unknown")
}

const DefaultQueryString = "abbreviate=false&calmlinks=true"

type rawCfg struct {
	// Server configuration
	URL           string `long:"url" env:"ETM_URL" description:"Server URL including the context root and a trailing slash (e.g., https://jazz.example.com:9443/qm/)"`
	Username      string `short:"u" long:"username" env:"ETM_USERNAME" description:"User name"`
	Password      string `short:"p" long:"password" env:"ETM_PASSWORD" description:"Password"`
	ProjectArea   string `long:"project-area" env:"ETM_PROJECT_AREA" description:"Comma separated project area aliases (default: every project area)"`
	ConfigContext string `long:"config-context" env:"ETM_CONFIG_CONTEXT" description:"Configuration context URL"`
	Insecure      bool   `long:"insecure" env:"ETM_INSECURE" description:"Skip TLS certificate verification"`
	Profile       string `long:"profile" env:"ETM_PROFILE" description:"YAML file with server and credential defaults"`

	// Command configuration
	Command           string `short:"c" long:"command" env:"ETM_COMMAND" description:"Command to run"`
	Resources         string `long:"resources" env:"ETM_RESOURCES" description:"Output file for read commands (default: stdout)"`
	QueryString       string `long:"query-string" env:"ETM_QUERY_STRING" default:"abbreviate=false&calmlinks=true" description:"Query string sent when reading resources"`
	ResourceTypes     string `long:"resource-types" env:"ETM_RESOURCE_TYPES" description:"Comma separated resource types (default: every supported type)"`
	ResourceIDs       string `long:"resource-ids" env:"ETM_RESOURCE_IDS" description:"Comma separated resource web IDs"`
	RemoteScriptTypes string `long:"remote-script-types" env:"ETM_REMOTE_SCRIPT_TYPES" description:"Comma separated remote script type names or IDs"`
	AdapterID         string `long:"adapter-id" env:"ETM_ADAPTER_ID" description:"Adapter ID to set on remote scripts"`
	CreationDate      string `long:"creation-date" env:"ETM_CREATION_DATE" description:"Only process resources created before this date (RFC3339 or seconds ago)"`
	ExecutionStates   string `long:"execution-states" env:"ETM_EXECUTION_STATES" description:"Comma separated execution task states"`
	ExecutionProgress int    `long:"execution-progress" env:"ETM_EXECUTION_PROGRESS" default:"-1" description:"Execution task progress (0-100)"`
	ResultStates      string `long:"result-states" env:"ETM_RESULT_STATES" description:"Comma separated execution result states"`
	Count             int    `long:"count" env:"ETM_COUNT" default:"1" description:"Number of resources to create"`

	// Behaviour
	Test             bool   `short:"t" long:"test" env:"ETM_TEST" description:"Read only run, no resource is changed"`
	Verbose          bool   `long:"verbose" env:"ETM_VERBOSE" description:"Print progress messages"`
	IgnoreReadErrors bool   `long:"ignore-read-errors" env:"ETM_IGNORE_READ_ERRORS" description:"Skip resources and feed pages that cannot be read"`
	LogFile          string `long:"log" env:"ETM_LOG" description:"Log file"`
	Journal          string `long:"journal" env:"ETM_JOURNAL" description:"SQLite file recording every change (disabled when empty)"`
	Debug            bool   `long:"debug" env:"DEBUG" description:"Enable debug logging"`

	ShowVersion bool `long:"version" description:"Print the version and exit"`
}

// Load parses the process arguments and environment. A nil config without
// error means help was shown.
func Load() (*Cfg, error) {
	return LoadArgs(os.Args[1:])
}

func LoadArgs(args []string) (*Cfg, error) {
	var raw rawCfg

	parser := flags.NewParser(&raw, flags.Default)

	if _, err := parser.ParseArgs(args); err != nil {
		if flagsErr, ok := err.(*flags.Error); ok {
			if flagsErr.Type == flags.ErrHelp {
				return nil, nil
			}
		}
		return nil, fmt.Errorf("failed to parse configuration: %w", err)
	}

	cfg := &Cfg{
		URL:               raw.URL,
		Username:          raw.Username,
		Password:          raw.Password,
		ProjectAreas:      splitList(raw.ProjectArea),
		ConfigContext:     raw.ConfigContext,
		Insecure:          raw.Insecure,
		Command:           raw.Command,
		ResourcesFile:     raw.Resources,
		QueryString:       raw.QueryString,
		ResourceTypes:     splitList(raw.ResourceTypes),
		ResourceIDs:       splitList(raw.ResourceIDs),
		RemoteScriptTypes: splitList(raw.RemoteScriptTypes),
		AdapterID:         raw.AdapterID,
		ExecutionStates:   splitList(raw.ExecutionStates),
		ExecutionProgress: raw.ExecutionProgress,
		ResultStates:      splitList(raw.ResultStates),
		Count:             raw.Count,
		Test:              raw.Test,
		Verbose:           raw.Verbose,
		IgnoreReadErrors:  raw.IgnoreReadErrors,
		LogFile:           raw.LogFile,
		Journal:           raw.Journal,
		Debug:             raw.Debug,
		ShowVersion:       raw.ShowVersion,
		Version:           GetVersion(),
	}

	if cfg.ShowVersion {
		return cfg, nil
	}

	if raw.Profile != "" {
		profile, err := loadProfile(raw.Profile)
		if err != nil {
			return nil, err
		}
		applyProfile(cfg, profile)
	}

	if raw.CreationDate != "" {
		date, err := ParseCreationDate(raw.CreationDate, time.Now())
		if err != nil {
			return nil, err
		}
		cfg.CreationDate = date
	}

	if err := validate(cfg); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

func loadProfile(path string) (*Profile, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read profile: %w", err)
	}

	var profile Profile
	if err := yaml.Unmarshal(data, &profile); err != nil {
		return nil, fmt.Errorf("failed to parse profile YAML: %w", err)
	}

	return &profile, nil
}

// applyProfile fills the fields left empty by flags and environment.
func applyProfile(cfg *Cfg, profile *Profile) {
	cfg.URL = cmp.Or(cfg.URL, profile.URL)
	cfg.Username = cmp.Or(cfg.Username, profile.Username)
	cfg.Password = cmp.Or(cfg.Password, profile.Password)
	cfg.ConfigContext = cmp.Or(cfg.ConfigContext, profile.ConfigContext)
	cfg.LogFile = cmp.Or(cfg.LogFile, profile.LogFile)
	cfg.Journal = cmp.Or(cfg.Journal, profile.Journal)
	if len(cfg.ProjectAreas) == 0 {
		cfg.ProjectAreas = profile.ProjectAreas
	}
	if profile.Insecure {
		cfg.Insecure = true
	}
}

func validate(cfg *Cfg) error {
	if cfg.Command == "" {
		return fmt.Errorf("command is required")
	}
	if cfg.URL == "" {
		return fmt.Errorf("server URL is required")
	}
	if err := validateURL(cfg.URL); err != nil {
		return err
	}
	if cfg.Username == "" {
		return fmt.Errorf("username is required")
	}
	if cfg.Password == "" {
		return fmt.Errorf("password is required")
	}

	if len(cfg.ResourceTypes) == 0 {
		cfg.ResourceTypes = slices.Clone(SupportedResourceTypes)
	} else {
		cfg.ResourceTypesSet = true
		for i, resourceType := range cfg.ResourceTypes {
			canonical, ok := supportedResourceType(resourceType)
			if !ok {
				return fmt.Errorf("unsupported resource type '%s'", resourceType)
			}
			cfg.ResourceTypes[i] = canonical
		}
	}

	if cfg.ExecutionProgress != -1 && (cfg.ExecutionProgress < 0 || cfg.ExecutionProgress > 100) {
		return fmt.Errorf("execution progress must be between 0 and 100, got %d", cfg.ExecutionProgress)
	}
	if cfg.Count < 1 {
		return fmt.Errorf("count must be at least 1, got %d", cfg.Count)
	}

	return nil
}

func validateURL(serverURL string) error {
	if !strings.HasSuffix(serverURL, "/") {
		return fmt.Errorf("server URL '%s' must end with '/'", serverURL)
	}

	u, err := url.Parse(serverURL)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return fmt.Errorf("server URL '%s' is not an absolute URL", serverURL)
	}

	contextRoot := strings.Trim(u.Path, "/")
	if contextRoot == "" {
		return fmt.Errorf("server URL '%s' has no context root", serverURL)
	}
	if strings.Contains(contextRoot, "/") {
		return fmt.Errorf("server URL '%s' context root '%s' must not contain '/'", serverURL, contextRoot)
	}

	return nil
}

func supportedResourceType(resourceType string) (string, bool) {
	for _, supported := range SupportedResourceTypes {
		if strings.EqualFold(supported, resourceType) {
			return supported, true
		}
	}
	return "", false
}

// ParseCreationDate accepts RFC3339, a local date and time, a date, or a
// number of seconds before now.
func ParseCreationDate(value string, now time.Time) (time.Time, error) {
	value = strings.TrimSpace(value)

	if seconds, err := strconv.ParseInt(value, 10, 64); err == nil {
		if seconds < 0 {
			return time.Time{}, fmt.Errorf("creation date seconds must not be negative, got %d", seconds)
		}
		return now.Add(-time.Duration(seconds) * time.Second), nil
	}

	for _, layout := range []string{time.RFC3339, "2006-01-02T15:04:05", "2006-01-02"} {
		if t, err := time.ParseInLocation(layout, value, time.Local); err == nil {
			return t, nil
		}
	}

	return time.Time{}, fmt.Errorf("failed to parse creation date '%s'", value)
}

func splitList(value string) []string {
	var out []string
	for _, part := range strings.Split(value, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
