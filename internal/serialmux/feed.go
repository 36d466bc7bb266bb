package serialmux

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"

	"github.com/banshee-data/trackinit/internal/measurement"
	"github.com/banshee-data/trackinit/internal/monitoring"
	"github.com/banshee-data/trackinit/internal/tracker"
)

// Subscriber is the part of SerialMuxInterface a Feed consumes.
type Subscriber interface {
	Subscribe() (string, chan string)
	Unsubscribe(string)
}

// FeedStats counts the lines a feed has seen.
type FeedStats struct {
	Lines        uint64 `json:"lines"`
	Measurements uint64 `json:"measurements"`
	BadLines     uint64 `json:"bad_lines"`
}

// Feed turns the lines of a serial sensor into measurements and folds them,
// in arrival order, into one track table.
type Feed struct {
	name string
	src  Subscriber
	mgr  *tracker.Manager

	lines, measurements, bad atomic.Uint64
}

// NewFeed returns a feed named name reading from src into mgr.
func NewFeed(name string, src Subscriber, mgr *tracker.Manager) *Feed {
	return &Feed{name: name, src: src, mgr: mgr}
}

// Name returns the feed name.
func (f *Feed) Name() string { return f.name }

// Stats returns the line counters.
func (f *Feed) Stats() FeedStats {
	return FeedStats{
		Lines:        f.lines.Load(),
		Measurements: f.measurements.Load(),
		BadLines:     f.bad.Load(),
	}
}

// HandleLine parses one line and processes it. Blank and comment lines are
// ignored. A malformed line is counted and returned as an error; it does not
// touch the track table.
func (f *Feed) HandleLine(line string) error {
	f.lines.Add(1)
	m, err := measurement.ParseLine(line)
	if errors.Is(err, measurement.ErrEmptyLine) {
		return nil
	}
	if err != nil {
		f.bad.Add(1)
		return fmt.Errorf("feed %s: %w", f.name, err)
	}
	if err := f.mgr.Process(m); err != nil {
		return fmt.Errorf("feed %s: %w", f.name, err)
	}
	f.measurements.Add(1)
	return nil
}

// Run subscribes to the source and consumes the subscription until ctx is
// done or the source closes it.
func (f *Feed) Run(ctx context.Context) error {
	return f.Subscribe()(ctx)
}

// Subscribe registers the feed with its source and returns the function
// that consumes the subscription. Lines broadcast after Subscribe returns
// are buffered for the consumer, so a caller can subscribe before starting
// the source's Monitor. Malformed lines are logged and skipped; a tracker
// error stops the consumer.
func (f *Feed) Subscribe() func(context.Context) error {
	id, lines := f.src.Subscribe()
	return func(ctx context.Context) error {
		defer f.src.Unsubscribe(id)

		monitoring.Logf("[feed %s] started", f.name)
		for {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case line, ok := <-lines:
				if !ok {
					monitoring.Logf("[feed %s] source closed after %d measurements", f.name, f.measurements.Load())
					return nil
				}
				err := f.HandleLine(line)
				if errors.Is(err, tracker.ErrInternal) {
					return err
				}
				if err != nil {
					monitoring.Logf("[feed %s] skipping line: %v", f.name, err)
				}
			}
		}
	}
}
