package cmd

import (
	"context"
	"fmt"
	"time"

	"github.com/newhook/remedy/internal/assets"
	"github.com/newhook/remedy/internal/console"
	"github.com/newhook/remedy/internal/db"
	"github.com/newhook/remedy/internal/logging"
	"github.com/newhook/remedy/internal/logparser"
	"github.com/newhook/remedy/internal/logstore"
	"github.com/newhook/remedy/internal/project"
	"github.com/newhook/remedy/internal/provider"
	"github.com/newhook/remedy/internal/terminal"
	"github.com/newhook/remedy/internal/watcher"
)

// consoleSession is everything a console command needs: the tailed file,
// the store over it, an optional file watcher and an optional archive.
type consoleSession struct {
	proj     *project.Project
	file     *provider.File
	store    *logstore.Store
	watcher  *watcher.Watcher
	archive  *db.DB
	recorder *db.Recorder
}

// openConsole builds a session from the project configuration.
func openConsole(ctx context.Context, proj *project.Project, archive bool) (*consoleSession, error) {
	cfg := proj.Config

	filters, err := cfg.Filters.BuildSet()
	if err != nil {
		return nil, fmt.Errorf("invalid [filters] config: %w", err)
	}
	handles, err := assets.ParseHandles(cfg.Assets.Handles)
	if err != nil {
		return nil, fmt.Errorf("invalid [assets] config: %w", err)
	}

	s := &consoleSession{
		proj: proj,
		file: provider.NewFile(proj.LogPath(), cfg.Console.Flags()),
	}
	s.store = logstore.New(s.file, logstore.Options{
		Filters:  filters,
		Resolver: assets.NewCachedResolver(handles, cfg.Assets.GetCacheTTL()),
		Tagger:   terminal.Tagger{},
		Parser:   logparser.New(cfg.Parser.Options()),
		Reverse:  cfg.Console.ReverseOrder,
	})

	if w, err := watcher.New(s.file.Path(), watcher.DefaultDebounce); err != nil {
		logging.Warn("file watcher unavailable, polling only", "path", s.file.Path(), "error", err)
	} else {
		s.watcher = w
		go func() {
			if err := w.Run(ctx); err != nil && ctx.Err() == nil {
				logging.Warn("file watcher stopped", "error", err)
			}
		}()
	}

	if archive && cfg.Archive.IsEnabled() {
		database, err := proj.OpenArchive(ctx)
		if err != nil {
			logging.Warn("archive unavailable", "error", err)
		} else {
			session, err := database.StartSession(ctx, s.file.Path(), time.Now())
			if err != nil {
				database.Close()
				return nil, fmt.Errorf("failed to start archive session: %w", err)
			}
			s.archive = database
			s.recorder = db.NewRecorder(ctx, database, session)
			s.recorder.Attach(s.store)
		}
	}
	return s, nil
}

// changes returns the watcher's notifications, or nil without a watcher.
func (s *consoleSession) changes() <-chan struct{} {
	if s.watcher == nil {
		return nil
	}
	return s.watcher.Changes()
}

// display returns the console rendering options from the config.
func (s *consoleSession) display() console.Options {
	c := s.proj.Config
	return console.Options{
		SmallList:          c.Console.SmallList,
		ShowLogCallFile:    c.Console.ShowLogCallFile,
		ShowFilesInDetails: c.Console.ShouldShowFilesInDetails(),
		ProjectRoot:        c.Parser.Options().ProjectRoot,
	}
}

// Close ends the archive session and stops the watcher.
func (s *consoleSession) Close() {
	if s.watcher != nil {
		_ = s.watcher.Close()
	}
	if s.recorder != nil {
		// The root context may already be cancelled.
		ctx := context.Background()
		if err := s.archive.EndSession(ctx, s.recorder.Session().ID, time.Now()); err != nil {
			logging.Warn("failed to end archive session", "error", err)
		}
		if n := s.recorder.Failed(); n > 0 {
			logging.Warn("archive writes failed", "count", n)
		}
	}
	if s.archive != nil {
		_ = s.archive.Close()
	}
}
