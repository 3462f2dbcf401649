package lifecycle

import (
	"context"
	"sync"

	"golang.org/x/sync/errgroup"
)

// Startable is anything with a start/stop lifecycle that a container can
// depend on. Implementations must be comparable (pointer receivers) so that
// DeepStart can deduplicate shared nodes.
type Startable interface {
	Start(ctx context.Context) error
	Stop(ctx context.Context) error
	Dependencies() []Startable
}

// DeepStart starts the given startables and, recursively, their
// dependencies, in parallel where independent. A node shared between
// subtrees is started exactly once; all waiters observe its result.
//
// Cyclic dependency sets are not detected and deadlock by construction.
func DeepStart(ctx context.Context, startables ...Startable) error {
	d := &deepStarter{nodes: map[Startable]*startNode{}}
	g, gctx := errgroup.WithContext(ctx)
	for _, s := range startables {
		s := s
		g.Go(func() error {
			return d.start(gctx, s)
		})
	}
	return g.Wait()
}

type startNode struct {
	once sync.Once
	err  error
}

type deepStarter struct {
	mu    sync.Mutex
	nodes map[Startable]*startNode
}

func (d *deepStarter) nodeFor(s Startable) *startNode {
	d.mu.Lock()
	defer d.mu.Unlock()
	n, ok := d.nodes[s]
	if !ok {
		n = &startNode{}
		d.nodes[s] = n
	}
	return n
}

func (d *deepStarter) start(ctx context.Context, s Startable) error {
	n := d.nodeFor(s)
	n.once.Do(func() {
		g, gctx := errgroup.WithContext(ctx)
		for _, dep := range s.Dependencies() {
			dep := dep
			g.Go(func() error {
				return d.start(gctx, dep)
			})
		}
		if err := g.Wait(); err != nil {
			n.err = err
			return
		}
		n.err = s.Start(ctx)
	})
	return n.err
}
