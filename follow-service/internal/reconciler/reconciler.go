package reconciler

import (
	"context"
	"time"

	"github.com/weiawesome/follow-graph/follow-service/internal/config"
	"github.com/weiawesome/follow-graph/follow-service/internal/store"
	"github.com/weiawesome/follow-graph/pkg/follow"
	pkglog "github.com/weiawesome/follow-graph/pkg/log"
)

// Reconciler periodically recomputes the cached followers count of hot
// entities from the database.
type Reconciler struct {
	counts store.CountStore
	graph  *follow.Graph
	cfg    config.ReconcilerConfig
	quit   chan struct{}
	doneCh chan struct{}
}

// New creates a new Reconciler.
func New(counts store.CountStore, graph *follow.Graph, cfg config.ReconcilerConfig) *Reconciler {
	return &Reconciler{
		counts: counts,
		graph:  graph,
		cfg:    cfg,
		quit:   make(chan struct{}),
		doneCh: make(chan struct{}),
	}
}

// Start launches the reconciler in a background goroutine.
func (r *Reconciler) Start(ctx context.Context) {
	go r.run(ctx)
}

// Stop signals the reconciler to stop and returns immediately.
// Call Done() to wait for it to exit.
func (r *Reconciler) Stop() {
	close(r.quit)
}

// Done returns a channel that is closed when the reconciler has fully stopped.
func (r *Reconciler) Done() <-chan struct{} {
	return r.doneCh
}

func (r *Reconciler) run(ctx context.Context) {
	defer close(r.doneCh)

	interval := r.cfg.Interval
	if interval <= 0 {
		interval = 60 * time.Second
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-r.quit:
			return
		case <-ctx.Done():
			return
		case <-ticker.C:
			r.Reconcile(ctx)
		}
	}
}

// Reconcile runs one refresh cycle over the current top-N hot keys and
// resets their scores. It returns the number of counts refreshed.
func (r *Reconciler) Reconcile(ctx context.Context) int {
	l := pkglog.L()

	topN := int64(r.cfg.TopN)
	if topN <= 0 {
		topN = 100
	}

	keys, err := r.counts.GetTopHotKeys(ctx, topN)
	if err != nil {
		l.Error().Err(err).Msg("reconciler: failed to get top hot keys")
		return 0
	}
	if len(keys) == 0 {
		l.Debug().Msg("reconciler: no hot keys to reconcile")
		return 0
	}

	refreshed := 0
	for _, key := range keys {
		ref, err := follow.ParseRef(key)
		if err != nil {
			l.Warn().Err(err).Str(pkglog.FieldFollowable, key).Msg("reconciler: skipping malformed hot key")
			continue
		}
		count, err := r.graph.Followable(ref).FollowersCount(ctx)
		if err != nil {
			l.Error().Err(err).Str(pkglog.FieldFollowable, key).Msg("reconciler: failed to count followers")
			continue
		}
		if err := r.counts.SetFollowersCount(ctx, key, count); err != nil {
			l.Error().Err(err).Str(pkglog.FieldFollowable, key).Msg("reconciler: failed to set followers count in redis")
			continue
		}
		refreshed++
	}

	if err := r.counts.ResetHotKeyScores(ctx); err != nil {
		l.Error().Err(err).Msg("reconciler: failed to reset hot key scores")
	}

	l.Info().Int("count", refreshed).Msg("reconciler: hot-key reconciliation complete")
	return refreshed
}
