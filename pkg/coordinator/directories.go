package coordinator

import (
	"context"
	"fmt"
	"path/filepath"
	"slices"
	"strings"

	"github.com/rescp17/nearbyExchanger/internal/app"
	"github.com/rescp17/nearbyExchanger/internal/app_events/screen"
	"github.com/rescp17/nearbyExchanger/pkg/platform"
)

// onActivityStarted restores the save directories and asks the screen to
// confirm the persisted current directory is still reachable.
func (a *App) onActivityStarted(ctx context.Context) error {
	saved, err := a.storage.GetCurrentState(ctx)
	if err != nil {
		return fmt.Errorf("failed to load saved state: %w", err)
	}

	dirs, current := saved.SaveDirs, saved.CurrentDir
	if len(dirs) == 0 {
		if def, ok := a.directories.DefaultSaveDirectory(); ok {
			dirs, current = []platform.SaveDir{def}, def.Path
		} else {
			current = ""
		}
	} else {
		a.logger.Info("Loaded save directories", "count", len(dirs), "current", current)
	}

	a.screen.Update(func(s ScreenState) ScreenState {
		s.SaveDirs = slices.Clone(dirs)
		s.CurrentDir = current
		return s
	})

	if saved.CurrentDir == "" {
		return a.settleStartup(ctx)
	}
	if !isValidDirectory(saved.CurrentDir) {
		a.logger.Warn("Persisted directory is malformed, removing it", "dir", saved.CurrentDir)
		if err := a.removeDir(ctx, saved.CurrentDir); err != nil {
			return err
		}
		return a.settleStartup(ctx)
	}
	a.screen.Update(func(s ScreenState) ScreenState {
		s.CheckingDirectory = true
		return s
	})
	a.emit(ctx, screen.CheckDirectoryAccess{Dir: saved.CurrentDir})
	return nil
}

// settleStartup ends the startup directory check and selects the role that
// was queued while it ran.
func (a *App) settleStartup(ctx context.Context) error {
	a.screen.Update(func(s ScreenState) ScreenState {
		s.CheckingDirectory = false
		return s
	})
	return a.startQueuedRole(ctx)
}

func isValidDirectory(dir string) bool {
	return strings.TrimSpace(dir) != "" && filepath.IsAbs(dir)
}

// onDirectoryAccessChecked purges a directory the screen can no longer
// reach and asks for a replacement.
func (a *App) onDirectoryAccessChecked(ctx context.Context, dir string, hasAccess bool) error {
	if hasAccess {
		return a.settleStartup(ctx)
	}
	a.logger.Warn("Lost access to save directory", "dir", dir)
	if err := a.removeDir(ctx, dir); err != nil {
		return err
	}
	if action, ok := a.pending.Peek(); ok {
		if _, adding := action.(app.AddSaveDirectory); adding {
			a.logger.Info("A save directory is already being picked")
			return nil
		}
	}
	return a.request(ctx, app.AddSaveDirectory{}, screen.PickDirectory{ReadOnly: false})
}

// addSaveDirectory appends dir and selects it. A path already listed is
// ignored.
func (a *App) addSaveDirectory(ctx context.Context, path, name string) error {
	if name == "" {
		name = filepath.Base(path)
	}
	next := a.screen.Update(func(s ScreenState) ScreenState {
		if slices.ContainsFunc(s.SaveDirs, func(d platform.SaveDir) bool { return d.Path == path }) {
			return s
		}
		s.SaveDirs = append(slices.Clone(s.SaveDirs), platform.SaveDir{Name: name, Path: path})
		s.CurrentDir = path
		return s
	})
	return a.persist(ctx, next)
}

func (a *App) removeDir(ctx context.Context, dir string) error {
	next := a.screen.Update(func(s ScreenState) ScreenState {
		s.SaveDirs = slices.DeleteFunc(slices.Clone(s.SaveDirs), func(d platform.SaveDir) bool {
			return d.Path == dir
		})
		if s.CurrentDir == dir {
			s.CurrentDir = ""
		}
		return s
	})
	return a.persist(ctx, next)
}

func (a *App) setCurrentDir(ctx context.Context, dir string) error {
	next := a.screen.Update(func(s ScreenState) ScreenState {
		s.CurrentDir = dir
		return s
	})
	if err := a.storage.UpdateCurrentDirectory(ctx, next.CurrentDir); err != nil {
		return fmt.Errorf("failed to save current directory: %w", err)
	}
	return nil
}

func (a *App) persist(ctx context.Context, s ScreenState) error {
	if err := a.storage.UpdateDirectories(ctx, s.SaveDirs); err != nil {
		return fmt.Errorf("failed to save directories: %w", err)
	}
	if err := a.storage.UpdateCurrentDirectory(ctx, s.CurrentDir); err != nil {
		return fmt.Errorf("failed to save current directory: %w", err)
	}
	return nil
}
