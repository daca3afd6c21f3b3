package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"
)

// Default markers match DiscordChatExporter HTML exports.
const (
	DefaultContainerOpen    = `<div class="chatlog">`
	DefaultEndMarker        = `<div class=postamble`
	DefaultRecordMarker     = `<div id=chatlog__message-container-`
	DefaultIDPattern        = `id=chatlog__message-container-([0-9]+)`
	DefaultGroupMarker      = `chatlog__message-group`
	DefaultHalfWindow       = 20
	DefaultOutputDir        = "context-extracts"
	DefaultFilenameTemplate = "context-{index}-{id}.{ext}"
	DefaultExtension        = "html"
	DefaultWorkers          = 4
)

// DefaultPredicates selects records that mention a Litematica schematic.
var DefaultPredicates = []string{".litematic"}

// Config holds application configuration.
type Config struct {
	// ContainerOpen is the literal opening tag of the record container.
	ContainerOpen string `json:"container_open,omitempty"`

	// EndMarker marks the end of container content (first occurrence after ContainerOpen).
	EndMarker string `json:"end_marker,omitempty"`

	// RecordMarker is the literal text that starts every record.
	RecordMarker string `json:"record_marker,omitempty"`

	// IDPattern is a regexp applied to a record's opening tag; capture group 1 is the id.
	IDPattern string `json:"id_pattern,omitempty"`

	// GroupMarker flags records that open a message group (case-sensitive).
	GroupMarker string `json:"group_marker,omitempty"`

	// Predicates select records (case-insensitive substring, any of).
	// A non-empty overlay list replaces the base list instead of merging.
	Predicates []string `json:"predicates,omitempty"`

	// HalfWindow is the number of records kept before and after a match.
	// A pointer because 0 is a legal value.
	HalfWindow *int `json:"half_window,omitempty"`

	// OutputDir is where extracts are written. Relative paths resolve against the working directory.
	OutputDir string `json:"output_dir,omitempty"`

	// FilenameTemplate names extracts; supports {index}, {id} and {ext}.
	FilenameTemplate string `json:"filename_template,omitempty"`

	// Extension is substituted for {ext}.
	Extension string `json:"extension,omitempty"`

	// Workers bounds concurrent extract writes.
	Workers int `json:"workers,omitempty"`

	// SkipIndex disables the index.html written next to the extracts.
	SkipIndex bool `json:"skip_index,omitempty"`

	// DBMaxOpenConns limits the maximum number of open database connections.
	// 0 means use sql.DB default (unlimited).
	DBMaxOpenConns int `json:"db_max_open_conns,omitempty"`

	// DBMaxIdleConns limits the maximum number of idle database connections.
	DBMaxIdleConns int `json:"db_max_idle_conns,omitempty"`

	// DisabledTools is a list of MCP tool names to exclude from registration.
	DisabledTools []string `json:"disabled_tools,omitempty"`

	// DisabledTypes is a list of type names to disable entirely.
	// Known types: "context".
	DisabledTypes []string `json:"disabled_types,omitempty"`
}

// DefaultConfig returns the default configuration.
func DefaultConfig() *Config {
	halfWindow := DefaultHalfWindow
	return &Config{
		ContainerOpen:    DefaultContainerOpen,
		EndMarker:        DefaultEndMarker,
		RecordMarker:     DefaultRecordMarker,
		IDPattern:        DefaultIDPattern,
		GroupMarker:      DefaultGroupMarker,
		Predicates:       append([]string(nil), DefaultPredicates...),
		HalfWindow:       &halfWindow,
		OutputDir:        DefaultOutputDir,
		FilenameTemplate: DefaultFilenameTemplate,
		Extension:        DefaultExtension,
		Workers:          DefaultWorkers,
	}
}

// Window returns the configured half window, falling back to the default.
func (c *Config) Window() int {
	if c.HalfWindow == nil {
		return DefaultHalfWindow
	}
	return *c.HalfWindow
}

// CompileIDPattern compiles IDPattern.
func (c *Config) CompileIDPattern() (*regexp.Regexp, error) {
	re, err := regexp.Compile(c.IDPattern)
	if err != nil {
		return nil, fmt.Errorf("id_pattern: %w", err)
	}
	if re.NumSubexp() < 1 {
		return nil, fmt.Errorf("id_pattern must contain a capture group")
	}
	return re, nil
}

// Validate reports the first problem that would make extraction impossible.
func (c *Config) Validate() error {
	if !strings.HasPrefix(c.ContainerOpen, "<") || len(c.ContainerOpen) < 2 {
		return fmt.Errorf("container_open must be an opening tag, got %q", c.ContainerOpen)
	}
	if c.RecordMarker == "" {
		return fmt.Errorf("record_marker is required")
	}
	if _, err := c.CompileIDPattern(); err != nil {
		return err
	}
	if c.Window() < 0 {
		return fmt.Errorf("half_window must not be negative")
	}
	if c.Workers < 1 {
		return fmt.Errorf("workers must be at least 1")
	}
	if !strings.Contains(c.FilenameTemplate, "{index}") {
		return fmt.Errorf("filename_template must contain {index}")
	}
	if strings.ContainsAny(c.FilenameTemplate, `/\`) {
		return fmt.Errorf("filename_template must not contain path separators")
	}
	if strings.ContainsAny(c.Extension, `/\`) || strings.Contains(c.Extension, "..") {
		return fmt.Errorf("extension must not contain path separators or \"..\"")
	}
	return nil
}

// Load loads configuration from baseDir/config.json.
// Returns default config if the file doesn't exist.
// The baseDir parameter allows tests to use t.TempDir() instead of ~/.chatctx.
func Load(baseDir string) (*Config, error) {
	return loadFile(filepath.Join(baseDir, "config.json"))
}

// LoadWithRepo loads configuration from both global (~/.chatctx) and repo (.chatctx) directories.
// Repo config is found by walking upward from startDir to find the nearest .chatctx/config.json.
// Repo config takes precedence for scalar values; arrays are merged (deduplicated).
// Either or both configs may be missing.
func LoadWithRepo(globalDir, startDir string) (*Config, error) {
	global, err := loadFileRaw(filepath.Join(globalDir, "config.json"))
	if err != nil {
		return nil, err
	}

	repoConfigPath := FindRepoConfig(startDir)
	repo, err := loadFileRaw(repoConfigPath)
	if err != nil {
		return nil, err
	}

	// Apply defaults, then global, then repo
	return Merge(Merge(DefaultConfig(), global), repo), nil
}

// FindRepoConfig walks upward from startDir to find the nearest .chatctx/config.json.
// Returns the path if found, or empty string if not found.
func FindRepoConfig(startDir string) string {
	dir := startDir
	for {
		configPath := filepath.Join(dir, ".chatctx", "config.json")
		if _, err := os.Stat(configPath); err == nil {
			return configPath
		}

		parent := filepath.Dir(dir)
		if parent == dir {
			return ""
		}
		dir = parent
	}
}

// loadFileRaw loads configuration from a specific file path.
// Returns zero-valued config if the file doesn't exist (not defaults).
func loadFileRaw(configPath string) (*Config, error) {
	if configPath == "" {
		return &Config{}, nil
	}
	data, err := os.ReadFile(configPath)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return &Config{}, nil
		}
		return nil, err
	}

	cfg := &Config{}
	if err := json.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("%s: %w", configPath, err)
	}

	return cfg, nil
}

// loadFile loads configuration from a specific file path.
// Returns default config if the file doesn't exist.
func loadFile(configPath string) (*Config, error) {
	cfg, err := loadFileRaw(configPath)
	if err != nil {
		return nil, err
	}
	return Merge(DefaultConfig(), cfg), nil
}

// Merge combines base and overlay configs.
// Overlay values take precedence for scalars; arrays are merged and deduplicated.
func Merge(base, overlay *Config) *Config {
	result := &Config{}

	// Scalars: overlay wins if non-zero, else base
	result.ContainerOpen = pickString(overlay.ContainerOpen, base.ContainerOpen)
	result.EndMarker = pickString(overlay.EndMarker, base.EndMarker)
	result.RecordMarker = pickString(overlay.RecordMarker, base.RecordMarker)
	result.IDPattern = pickString(overlay.IDPattern, base.IDPattern)
	result.GroupMarker = pickString(overlay.GroupMarker, base.GroupMarker)
	result.OutputDir = pickString(overlay.OutputDir, base.OutputDir)
	result.FilenameTemplate = pickString(overlay.FilenameTemplate, base.FilenameTemplate)
	result.Extension = pickString(overlay.Extension, base.Extension)

	result.Workers = overlay.Workers
	if result.Workers == 0 {
		result.Workers = base.Workers
	}

	result.DBMaxOpenConns = overlay.DBMaxOpenConns
	if result.DBMaxOpenConns == 0 {
		result.DBMaxOpenConns = base.DBMaxOpenConns
	}

	result.DBMaxIdleConns = overlay.DBMaxIdleConns
	if result.DBMaxIdleConns == 0 {
		result.DBMaxIdleConns = base.DBMaxIdleConns
	}

	// Pointers: overlay wins if set
	result.HalfWindow = base.HalfWindow
	if overlay.HalfWindow != nil {
		result.HalfWindow = overlay.HalfWindow
	}

	// Booleans: overlay wins if true, else base
	result.SkipIndex = base.SkipIndex || overlay.SkipIndex

	// Predicates replace rather than merge, otherwise the default could never be dropped
	result.Predicates = cleanPredicates(base.Predicates)
	if p := cleanPredicates(overlay.Predicates); len(p) > 0 {
		result.Predicates = p
	}

	// Arrays: merge and deduplicate
	result.DisabledTools = mergeStringSlice(base.DisabledTools, overlay.DisabledTools)
	result.DisabledTypes = mergeStringSlice(base.DisabledTypes, overlay.DisabledTypes)

	return result
}

func pickString(overlay, base string) string {
	if overlay != "" {
		return overlay
	}
	return base
}

// cleanPredicates drops empty and repeated predicates.
// Whitespace is significant in a substring match, so values are kept as given.
func cleanPredicates(predicates []string) []string {
	if predicates == nil {
		return nil
	}
	seen := make(map[string]bool)
	result := make([]string, 0, len(predicates))
	for _, p := range predicates {
		if p != "" && !seen[p] {
			seen[p] = true
			result = append(result, p)
		}
	}
	return result
}

// mergeStringSlice combines two slices, trims whitespace, and removes duplicates.
func mergeStringSlice(a, b []string) []string {
	seen := make(map[string]bool)
	result := make([]string, 0, len(a)+len(b))

	for _, s := range a {
		s = strings.TrimSpace(s)
		if s != "" && !seen[s] {
			seen[s] = true
			result = append(result, s)
		}
	}
	for _, s := range b {
		s = strings.TrimSpace(s)
		if s != "" && !seen[s] {
			seen[s] = true
			result = append(result, s)
		}
	}

	if len(result) == 0 {
		return nil
	}
	return result
}
