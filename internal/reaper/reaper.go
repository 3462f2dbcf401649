// Package reaper removes managed containers, either one at a time during
// normal teardown or in bulk for the prune commands.
package reaper

import (
	"context"
	"fmt"

	"github.com/charmbracelet/log"
	"golang.org/x/sync/errgroup"

	"github.com/vesselhq/vessel/internal/lifecycle"
	"github.com/vesselhq/vessel/pkg/logger"
)

// Reaper stops and removes containers through the engine. It satisfies
// lifecycle.Reaper.
type Reaper struct {
	engine lifecycle.Engine
	log    *log.Logger
}

func New(engine lifecycle.Engine) *Reaper {
	return &Reaper{engine: engine, log: logger.Get()}
}

// StopAndRemove tears down a single container. Not-found errors are tolerated
// by the engine layer, so reaping an already-removed container succeeds.
func (r *Reaper) StopAndRemove(ctx context.Context, id, displayName string) error {
	r.log.Debug("Stopping container", "container", displayName)
	if err := r.engine.StopContainer(ctx, id); err != nil {
		return fmt.Errorf("failed to stop %s: %w", displayName, err)
	}
	if err := r.engine.RemoveContainer(ctx, id, true); err != nil {
		return fmt.Errorf("failed to remove %s: %w", displayName, err)
	}
	r.log.Debug("Removed container", "container", displayName)
	return nil
}

// PruneSession removes every managed container belonging to one session.
func (r *Reaper) PruneSession(ctx context.Context, sessionID string) (int, error) {
	return r.prune(ctx, map[string]string{
		lifecycle.LabelManaged:   "true",
		lifecycle.LabelSessionID: sessionID,
	})
}

// PruneAll removes every managed container, including reusable ones that
// deliberately outlive their session.
func (r *Reaper) PruneAll(ctx context.Context) (int, error) {
	return r.prune(ctx, map[string]string{lifecycle.LabelManaged: "true"})
}

func (r *Reaper) prune(ctx context.Context, labels map[string]string) (int, error) {
	summaries, err := r.engine.ListContainers(ctx, "", labels, 0)
	if err != nil {
		return 0, fmt.Errorf("failed to list managed containers: %w", err)
	}

	g, ctx := errgroup.WithContext(ctx)
	for _, summary := range summaries {
		summary := summary
		g.Go(func() error {
			name := summary.ID[:12]
			if len(summary.Names) > 0 {
				name = summary.Names[0]
			}
			return r.StopAndRemove(ctx, summary.ID, name)
		})
	}
	if err := g.Wait(); err != nil {
		return 0, err
	}
	return len(summaries), nil
}
