package cutter

import (
	"context"
	"fmt"
	"image"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/kdudkov/tilecutter/pkg/points"
)

// Sink stores the image of one point.
type Sink interface {
	Put(id string, img image.Image) error
}

// Failure describes a point that produced no image.
type Failure struct {
	Record points.Record
	Err    error
}

func (f Failure) Error() string {
	return fmt.Sprintf("%s (line %d, %s): %s", f.Record.ID, f.Record.Line, f.Record.Point, f.Err)
}

type Report struct {
	Total    int
	Done     int
	Warned   int
	Failures []Failure
}

// Batch cuts images for a list of points. A failing point never stops the others.
type Batch struct {
	Cutter  *Cutter
	Sink    Sink
	Workers int
	// OnDone is called after every point, with a nil error on success.
	// It may be called from several goroutines at once.
	OnDone func(r points.Record, res *Result, err error)
}

// Run processes all records. It returns an error only when ctx is cancelled.
func (b *Batch) Run(ctx context.Context, records []points.Record) (*Report, error) {
	rep := &Report{Total: len(records)}

	var mx sync.Mutex

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(max(1, b.Workers))

	for _, rec := range records {
		if gctx.Err() != nil {
			break
		}

		g.Go(func() error {
			res, err := b.process(gctx, rec)

			if err != nil && gctx.Err() != nil {
				return gctx.Err()
			}

			mx.Lock()
			if err != nil {
				rep.Failures = append(rep.Failures, Failure{Record: rec, Err: err})
			} else {
				rep.Done++
				if len(res.Warnings) > 0 {
					rep.Warned++
				}
			}
			mx.Unlock()

			if err != nil {
				b.Cutter.logger.Error("point failed", "id", rec.ID, "line", rec.Line, "error", err)
			} else {
				b.Cutter.logger.Info(fmt.Sprintf("created image for id %s, lat %v, lon %v", rec.ID, rec.Point.Lat, rec.Point.Lon))
			}

			if b.OnDone != nil {
				b.OnDone(rec, res, err)
			}

			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return rep, err
	}

	return rep, ctx.Err()
}

func (b *Batch) process(ctx context.Context, rec points.Record) (*Result, error) {
	res, err := b.Cutter.Cut(ctx, rec.ID, rec.Point)
	if err != nil {
		return nil, err
	}

	if err := b.Sink.Put(rec.ID, res.Image); err != nil {
		return nil, fmt.Errorf("save: %w", err)
	}

	return res, nil
}
