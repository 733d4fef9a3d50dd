// Package driver runs the inference pipeline once per tick from a batch source and
// publishes the resulting predictions.
package driver

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"github.com/cory-johannsen/stylewatch/internal/feed"
	"github.com/cory-johannsen/stylewatch/internal/game/encounter"
)

// Source yields one observation batch per tick. It returns an error wrapping io.EOF
// once no batches remain.
type Source interface {
	Next() (encounter.Batch, error)
}

// Sink receives the predictions of every tick.
type Sink interface {
	Publish(feed.Message) error
}

// Option configures a Driver.
type Option func(*Driver)

// WithSink publishes every tick's predictions to s.
func WithSink(s Sink) Option {
	return func(d *Driver) { d.sink = s }
}

// WithInterval paces ticks at interval. Zero runs ticks back to back.
//
// Precondition: interval must be >= 0.
func WithInterval(interval time.Duration) Option {
	if interval < 0 {
		panic("driver.WithInterval: interval must be >= 0")
	}
	return func(d *Driver) { d.interval = interval }
}

// Driver feeds batches from a Source through an Engine.
//
// Invariant: the engine is ticked from exactly one goroutine, once per batch.
type Driver struct {
	engine   *encounter.Engine
	source   Source
	sink     Sink
	interval time.Duration
	logger   *zap.Logger
	ticks    atomic.Int64
}

// New returns a Driver. Without WithInterval it runs unthrottled.
//
// Precondition: engine, source and logger must be non-nil.
func New(engine *encounter.Engine, source Source, logger *zap.Logger, opts ...Option) *Driver {
	if engine == nil || source == nil || logger == nil {
		panic("driver.New: engine, source and logger must not be nil")
	}
	d := &Driver{engine: engine, source: source, logger: logger}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Ticks returns the number of batches processed so far.
func (d *Driver) Ticks() int { return int(d.ticks.Load()) }

// Run processes batches until the source is exhausted or ctx is cancelled.
//
// Postcondition: Returns nil on exhaustion or cancellation, or the first source error.
func (d *Driver) Run(ctx context.Context) error {
	var pace <-chan time.Time
	if d.interval > 0 {
		ticker := time.NewTicker(d.interval)
		defer ticker.Stop()
		pace = ticker.C
	}

	for {
		if pace != nil {
			select {
			case <-ctx.Done():
				return nil
			case <-pace:
			}
		} else if ctx.Err() != nil {
			return nil
		}

		done, err := d.step()
		if err != nil {
			return err
		}
		if done {
			d.logger.Info("batch source exhausted", zap.Int("ticks", d.Ticks()))
			return nil
		}
	}
}

func (d *Driver) step() (bool, error) {
	b, err := d.source.Next()
	if errors.Is(err, io.EOF) {
		return true, nil
	}
	if err != nil {
		return false, fmt.Errorf("reading batch: %w", err)
	}

	preds := d.engine.Tick(b)
	d.ticks.Add(1)
	if d.sink == nil {
		return false, nil
	}
	msg := feed.Message{Encounter: d.engine.EncounterID(), Tick: b.Tick, Predictions: preds}
	if err := d.sink.Publish(msg); err != nil {
		d.logger.Warn("dropping predictions",
			zap.Int("tick", b.Tick),
			zap.Error(err),
		)
	}
	return false, nil
}
