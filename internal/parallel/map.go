// Package parallel maps a function over an iterator with a bounded number
// of workers. The pipeline uses it to render several frames at once while
// keeping the number of live kernel processes in check.
package parallel

import (
	"context"
	"iter"

	"golang.org/x/sync/errgroup"
)

type outcome[D any] struct {
	d D
	e error
}

// Map runs mapFunc over the elements of an input iterator from limit
// workers and yields the outcomes as they complete. Ordering between
// outcomes is not preserved. Map is context aware: a cancelled context ends
// the processing.
type Map[E, D any] struct {
	parentCtx    context.Context
	cancelParent context.CancelFunc
	g            *errgroup.Group
	gctx         context.Context
	outcomes     chan outcome[D]
	mapFunc      func(context.Context, E) (D, error)
}

func NewMap[E, D any](parentCtx context.Context, limit int, mapFunc func(context.Context, E) (D, error)) *Map[E, D] {
	parentCtx, cancelParent := context.WithCancel(parentCtx)
	g, gctx := errgroup.WithContext(parentCtx)
	// one extra slot for the feeding goroutine
	g.SetLimit(limit + 1)

	return &Map[E, D]{
		parentCtx:    parentCtx,
		cancelParent: cancelParent,
		g:            g,
		gctx:         gctx,
		outcomes:     make(chan outcome[D], limit),
		mapFunc:      mapFunc,
	}
}

func (m *Map[E, D]) feed(seq iter.Seq2[E, error]) {
	m.g.Go(func() error {
		for entry, err := range seq {
			if err != nil {
				continue
			}
			m.g.Go(func() error {
				d, mapErr := m.mapFunc(m.gctx, entry)
				select {
				case <-m.gctx.Done():
					return m.gctx.Err()
				default:
					m.outcomes <- outcome[D]{d: d, e: mapErr}
				}
				return nil
			})
		}
		return nil
	})
}

// Iter consumes seq and returns the iterator of outcomes. It must be ranged
// over exactly once.
func (m *Map[E, D]) Iter(seq iter.Seq2[E, error]) iter.Seq2[D, error] {
	return func(yield func(D, error) bool) {
		defer m.cancelParent()
		m.feed(seq)

		go func() {
			_ = m.g.Wait()
			close(m.outcomes)
		}()

		for r := range m.outcomes {
			if m.parentCtx.Err() != nil {
				return
			}
			if !yield(r.d, r.e) {
				return
			}
		}
	}
}
