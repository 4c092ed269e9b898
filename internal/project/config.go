package project

import (
	"bytes"
	_ "embed"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"text/template"
	"time"

	"github.com/BurntSushi/toml"

	"github.com/newhook/remedy/internal/filter"
	"github.com/newhook/remedy/internal/logparser"
	"github.com/newhook/remedy/internal/logstore"
)

//go:embed templates/config.tmpl
var configTemplateText string

// Config represents the project configuration stored in .remedy/config.toml.
type Config struct {
	Project  ProjectConfig  `toml:"project"`
	Source   SourceConfig   `toml:"source"`
	Console  ConsoleConfig  `toml:"console"`
	Parser   ParserConfig   `toml:"parser"`
	Filters  FiltersConfig  `toml:"filters"`
	Assets   AssetsConfig   `toml:"assets"`
	Archive  ArchiveConfig  `toml:"archive"`
	ClassLog ClassLogConfig `toml:"classlog"`
	Logging  LoggingConfig  `toml:"logging"`
}

// ProjectConfig contains project metadata.
type ProjectConfig struct {
	Name      string    `toml:"name"`
	CreatedAt time.Time `toml:"created_at"`
}

// SourceConfig says where log rows come from.
type SourceConfig struct {
	// LogPath is the editor log to tail. Relative paths are resolved
	// against the project root. Defaults to the platform's editor log.
	LogPath string `toml:"log_path"`
	// EditorProcess is matched against running command lines to tell
	// whether the editor writing the log is up. Defaults to "Unity".
	EditorProcess string `toml:"editor_process"`
}

// GetEditorProcess returns the editor process pattern, defaulting to "Unity".
func (s *SourceConfig) GetEditorProcess() string {
	if s.EditorProcess == "" {
		return "Unity"
	}
	return s.EditorProcess
}

// GetLogPath returns the absolute log path for a project rooted at root.
func (s *SourceConfig) GetLogPath(root string) string {
	if s.LogPath == "" {
		return DefaultEditorLogPath()
	}
	if filepath.IsAbs(s.LogPath) {
		return s.LogPath
	}
	return filepath.Join(root, s.LogPath)
}

// DefaultEditorLogPath returns where the editor writes its log on this
// platform.
func DefaultEditorLogPath() string {
	home, _ := os.UserHomeDir()
	switch runtime.GOOS {
	case "darwin":
		return filepath.Join(home, "Library", "Logs", "Unity", "Editor.log")
	case "windows":
		if local := os.Getenv("LOCALAPPDATA"); local != "" {
			return filepath.Join(local, "Unity", "Editor", "Editor.log")
		}
		return filepath.Join(home, "AppData", "Local", "Unity", "Editor", "Editor.log")
	default:
		return filepath.Join(home, ".config", "unity3d", "Editor.log")
	}
}

// ConsoleConfig contains display settings.
type ConsoleConfig struct {
	// ReverseOrder shows the newest records first.
	ReverseOrder bool `toml:"reverse_order"`
	// SmallList renders one line per record instead of two.
	SmallList bool `toml:"small_list"`
	// SelectLastChanged moves the selection to the record that most
	// recently changed. Defaults to true.
	SelectLastChanged *bool `toml:"select_last_changed"`
	// ShowFilesInDetails lists parsed file references under the detail
	// text. Defaults to true.
	ShowFilesInDetails *bool `toml:"show_files_in_details"`
	// ShowLogCallFile includes frames of the logging call itself.
	ShowLogCallFile bool `toml:"show_log_call_file"`
	// Collapse groups identical messages into one provider row.
	Collapse bool `toml:"collapse"`
	// PollIntervalMS is the poll period. Defaults to 250ms.
	PollIntervalMS *int `toml:"poll_interval_ms"`
}

// ShouldSelectLastChanged returns whether selection follows changes.
func (c *ConsoleConfig) ShouldSelectLastChanged() bool {
	if c.SelectLastChanged == nil {
		return true
	}
	return *c.SelectLastChanged
}

// ShouldShowFilesInDetails returns whether details list file references.
func (c *ConsoleConfig) ShouldShowFilesInDetails() bool {
	if c.ShowFilesInDetails == nil {
		return true
	}
	return *c.ShowFilesInDetails
}

// GetPollInterval returns the poll period.
func (c *ConsoleConfig) GetPollInterval() time.Duration {
	if c.PollIntervalMS != nil && *c.PollIntervalMS > 0 {
		return time.Duration(*c.PollIntervalMS) * time.Millisecond
	}
	return 250 * time.Millisecond
}

// Flags returns the provider flags implied by the console settings.
func (c *ConsoleConfig) Flags() logstore.ConsoleFlags {
	var flags logstore.ConsoleFlags
	if c.Collapse {
		flags |= logstore.FlagCollapse
	}
	return flags
}

// ParserConfig contains text parser settings.
type ParserConfig struct {
	// ProjectRoot is the path prefix of project assets. Defaults to "Assets/".
	ProjectRoot string `toml:"project_root"`
	// ExcludeClasses are stack frame classes never reported as files.
	// Nil uses the built-in list; an empty list excludes nothing.
	ExcludeClasses []string `toml:"exclude_classes"`
	// ExcludeClassPrefixes works like ExcludeClasses on class prefixes.
	ExcludeClassPrefixes []string `toml:"exclude_class_prefixes"`
}

// Options converts the settings into parser options.
func (p *ParserConfig) Options() logparser.Options {
	opts := logparser.DefaultOptions()
	if p.ProjectRoot != "" {
		opts.ProjectRoot = p.ProjectRoot
	}
	if p.ExcludeClasses != nil {
		opts.ExcludeClasses = p.ExcludeClasses
	}
	if p.ExcludeClassPrefixes != nil {
		opts.ExcludeClassPrefixes = p.ExcludeClassPrefixes
	}
	return opts
}

// FiltersConfig seeds the console filters.
type FiltersConfig struct {
	IgnoredFiles []string `toml:"ignored_files"`
	IgnoredCodes []string `toml:"ignored_codes"`
	Text         string   `toml:"text"`
	// TextMode is "substring", "file" or "regex". Defaults to "substring".
	TextMode string `toml:"text_mode"`
}

// BuildSet returns a filter set with the files, codes and text filters
// registered under their well-known names.
func (f *FiltersConfig) BuildSet() (*filter.Set, error) {
	mode := filter.ModeSubstring
	if f.TextMode != "" {
		var err error
		if mode, err = filter.ParseTextMode(f.TextMode); err != nil {
			return nil, err
		}
	}

	text := filter.NewTextFilter(mode, f.Text)
	if err := text.Err(); err != nil {
		return nil, err
	}

	set := filter.NewSet()
	set.Add(filter.NameFiles, filter.NewFileFilter(f.IgnoredFiles...))
	set.Add(filter.NameCodes, filter.NewCodeFilter(f.IgnoredCodes...))
	set.Add(filter.NameText, text)
	return set, nil
}

// AssetsConfig maps instance handles to asset paths.
type AssetsConfig struct {
	// Handles is keyed by the decimal handle.
	Handles map[string]string `toml:"handles"`
	// CacheTTLSeconds bounds how long resolved paths are reused.
	// Defaults to 300.
	CacheTTLSeconds *int `toml:"cache_ttl_seconds"`
}

// GetCacheTTL returns the resolver cache lifetime.
func (a *AssetsConfig) GetCacheTTL() time.Duration {
	if a.CacheTTLSeconds != nil && *a.CacheTTLSeconds > 0 {
		return time.Duration(*a.CacheTTLSeconds) * time.Second
	}
	return 5 * time.Minute
}

// ArchiveConfig controls the session history database.
type ArchiveConfig struct {
	// Enabled records sessions. Defaults to true.
	Enabled *bool `toml:"enabled"`
	// Path is relative to the project root. Defaults to .remedy/history.db.
	Path string `toml:"path"`
	// RetentionDays prunes older sessions on open. 0 keeps everything.
	// Defaults to 14.
	RetentionDays *int `toml:"retention_days"`
}

// IsEnabled returns whether sessions are archived.
func (a *ArchiveConfig) IsEnabled() bool {
	if a.Enabled == nil {
		return true
	}
	return *a.Enabled
}

// GetPath returns the absolute database path.
func (a *ArchiveConfig) GetPath(root string) string {
	if a.Path == "" {
		return filepath.Join(root, ConfigDir, HistoryDB)
	}
	if filepath.IsAbs(a.Path) {
		return a.Path
	}
	return filepath.Join(root, a.Path)
}

// GetRetention returns how long sessions are kept, or 0 for forever.
func (a *ArchiveConfig) GetRetention() time.Duration {
	if a.RetentionDays == nil {
		return 14 * 24 * time.Hour
	}
	if *a.RetentionDays <= 0 {
		return 0
	}
	return time.Duration(*a.RetentionDays) * 24 * time.Hour
}

// ClassLogConfig controls the "[Component] message" logger used by emit.
type ClassLogConfig struct {
	// Components allowed through. Empty allows all.
	Components []string `toml:"components"`
	// Namespaces allowed through. Empty allows all.
	Namespaces []string `toml:"namespaces"`
	// RichText wraps the component prefix in colour tags.
	RichText bool `toml:"rich_text"`
}

// LoggingConfig controls the debug log.
type LoggingConfig struct {
	// Level is debug, info, warn or error. Defaults to info.
	Level string `toml:"level"`
}

// GetLevel returns the configured level.
func (l *LoggingConfig) GetLevel() slog.Level {
	var level slog.Level
	if err := level.UnmarshalText([]byte(l.Level)); err != nil {
		return slog.LevelInfo
	}
	return level
}

// LoadConfig reads and parses a config.toml file.
func LoadConfig(path string) (*Config, error) {
	var cfg Config
	if _, err := toml.DecodeFile(path, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	return &cfg, nil
}

// SaveConfig writes the config to the specified path.
func (c *Config) SaveConfig(path string) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create config file: %w", err)
	}
	defer f.Close()

	if err := toml.NewEncoder(f).Encode(c); err != nil {
		return fmt.Errorf("failed to encode config: %w", err)
	}
	return nil
}

// SaveDocumentedConfig writes a fully documented config to path.
func (c *Config) SaveDocumentedConfig(path string) error {
	return os.WriteFile(path, []byte(c.GenerateDocumentedConfig()), 0600)
}

type configTemplateData struct {
	ProjectName string
	CreatedAt   string
	LogPath     string
}

// tomlString formats s as a quoted TOML basic string.
func tomlString(s string) string {
	r := strings.NewReplacer(`\`, `\\`, `"`, `\"`, "\n", `\n`, "\r", `\r`, "\t", `\t`)
	return `"` + r.Replace(s) + `"`
}

var configTemplate = template.Must(template.New("config").Funcs(template.FuncMap{
	"tomlString": tomlString,
}).Parse(configTemplateText))

// GenerateDocumentedConfig renders the project values plus commented-out
// defaults for every optional setting.
func (c *Config) GenerateDocumentedConfig() string {
	data := configTemplateData{
		ProjectName: c.Project.Name,
		CreatedAt:   c.Project.CreatedAt.Format(time.RFC3339),
		LogPath:     c.Source.LogPath,
	}

	var buf bytes.Buffer
	if err := configTemplate.Execute(&buf, data); err != nil {
		return fmt.Sprintf("[project]\nname = %s\ncreated_at = %s\n", tomlString(c.Project.Name), data.CreatedAt)
	}
	return buf.String()
}
