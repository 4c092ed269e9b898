package project

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/newhook/remedy/internal/db"
	"github.com/newhook/remedy/internal/logging"
)

const (
	// ConfigDir is the directory name for project configuration.
	ConfigDir = logging.ConfigDir
	// ConfigFile is the name of the project config file.
	ConfigFile = "config.toml"
	// HistoryDB is the default name of the session archive.
	HistoryDB = "history.db"
)

// Project is a directory containing a .remedy/ configuration.
type Project struct {
	Root   string  // Project directory path
	Config *Config // Parsed config.toml
}

// Find finds a project from a flag value or current directory.
// If flagValue is non-empty, uses that path; otherwise uses cwd.
func Find(flagValue string) (*Project, error) {
	if flagValue != "" {
		return find(flagValue)
	}
	cwd, err := os.Getwd()
	if err != nil {
		return nil, err
	}
	return find(cwd)
}

// FindOrDefault is Find, falling back to an unconfigured project rooted at
// the start directory when no .remedy/ exists above it.
func FindOrDefault(flagValue string) (*Project, error) {
	if p, err := Find(flagValue); err == nil {
		return p, nil
	}
	root := flagValue
	if root == "" {
		var err error
		if root, err = os.Getwd(); err != nil {
			return nil, err
		}
	}
	root, err := filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve path: %w", err)
	}
	return &Project{Root: root, Config: &Config{}}, nil
}

// find walks up from startDir looking for a .remedy/config.toml.
func find(startDir string) (*Project, error) {
	dir, err := filepath.Abs(startDir)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve path: %w", err)
	}

	for {
		if _, err := os.Stat(filepath.Join(dir, ConfigDir, ConfigFile)); err == nil {
			return load(dir)
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			return nil, fmt.Errorf("no project found (no %s directory)", ConfigDir)
		}
		dir = parent
	}
}

func load(root string) (*Project, error) {
	configPath := filepath.Join(root, ConfigDir, ConfigFile)
	cfg, err := LoadConfig(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to load config from %s: %w", configPath, err)
	}

	if err := logging.Init(root, cfg.Logging.GetLevel()); err != nil {
		logging.Warn("failed to initialize logging", "error", err)
	}

	return &Project{Root: root, Config: cfg}, nil
}

// Create writes a documented default config under dir.
func Create(dir, logPath string) (*Project, error) {
	absDir, err := filepath.Abs(dir)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve path: %w", err)
	}

	configPath := filepath.Join(absDir, ConfigDir, ConfigFile)
	if _, err := os.Stat(configPath); err == nil {
		return nil, fmt.Errorf("project already exists at %s", absDir)
	}
	if err := os.MkdirAll(filepath.Dir(configPath), 0755); err != nil {
		return nil, fmt.Errorf("failed to create project directory: %w", err)
	}

	cfg := &Config{
		Project: ProjectConfig{
			Name:      filepath.Base(absDir),
			CreatedAt: time.Now().UTC().Truncate(time.Second),
		},
		Source: SourceConfig{LogPath: logPath},
	}
	if err := cfg.SaveDocumentedConfig(configPath); err != nil {
		return nil, err
	}
	return &Project{Root: absDir, Config: cfg}, nil
}

// ConfigPath returns the config file path.
func (p *Project) ConfigPath() string {
	return filepath.Join(p.Root, ConfigDir, ConfigFile)
}

// LogPath returns the editor log this project tails.
func (p *Project) LogPath() string {
	return p.Config.Source.GetLogPath(p.Root)
}

// OpenArchive opens the session database and prunes sessions past the
// retention window.
func (p *Project) OpenArchive(ctx context.Context) (*db.DB, error) {
	path := p.Config.Archive.GetPath(p.Root)
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, fmt.Errorf("failed to create archive directory: %w", err)
	}
	database, err := db.OpenPath(ctx, path)
	if err != nil {
		return nil, fmt.Errorf("failed to open archive: %w", err)
	}

	if retention := p.Config.Archive.GetRetention(); retention > 0 {
		n, err := database.PruneSessions(ctx, time.Now().Add(-retention))
		if err != nil {
			logging.Warn("failed to prune archive", "error", err)
		} else if n > 0 {
			logging.Info("pruned archived sessions", "count", n)
		}
	}
	return database, nil
}
