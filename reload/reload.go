// Package reload keeps a Handle in sync with a configuration Source.
//
// A Reloader polls the source's signature every refresh interval. When the
// signature changes it loads the document, builds a new State and publishes
// it with Handle.Replace. The stored signature is updated before loading, so
// a broken document is attempted once and then left alone until it changes
// again. Failures are reported through the Handle and never disturb the
// active State.
package reload

import (
	"context"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/trickstertwo/hlog"
	"github.com/trickstertwo/hlog/config"
	"github.com/trickstertwo/hlog/source"
)

type settings struct {
	watch      bool
	parseOpts  []config.ParseOption
	handleOpts []hlog.Option
}

// Option configures Setup, InitWithSource and InitFile.
type Option func(*settings)

// WithWatch wakes the loop early when the source reports a change (fsnotify
// for files). The signature check still decides whether to reload.
func WithWatch() Option { return func(s *settings) { s.watch = true } }

// WithLoadOptions passes options to config.Load on every load.
func WithLoadOptions(opts ...config.ParseOption) Option {
	return func(s *settings) { s.parseOpts = append(s.parseOpts, opts...) }
}

// WithHandleOptions passes options to the Handle created by Setup.
func WithHandleOptions(opts ...hlog.Option) Option {
	return func(s *settings) { s.handleOpts = append(s.handleOpts, opts...) }
}

// Reloader is the background task. Its interval and signature are private;
// the only thing it shares with loggers is Handle.Replace.
type Reloader struct {
	h        *hlog.Handle
	src      source.Source
	creator  *config.Creator
	set      settings
	interval atomic.Int64 // time.Duration; 0 once the loop should stop
	last     source.Signature
	done     chan struct{}
}

// New binds a Reloader to a handle. last is the signature of the document
// the handle's current State was built from.
func New(h *hlog.Handle, src source.Source, creator *config.Creator, interval time.Duration, last source.Signature, opts ...Option) *Reloader {
	if creator == nil {
		creator = config.DefaultCreator()
	}
	r := &Reloader{h: h, src: src, creator: creator, last: last, done: make(chan struct{})}
	for _, o := range opts {
		o(&r.set)
	}
	r.interval.Store(int64(interval))
	return r
}

// Interval is the current poll interval; zero once the loop has stopped
// reloading.
func (r *Reloader) Interval() time.Duration { return time.Duration(r.interval.Load()) }

// Done is closed when Run returns.
func (r *Reloader) Done() <-chan struct{} { return r.done }

// Run sleeps and polls until ctx ends or a loaded configuration has no
// refresh rate. It returns ctx.Err() on cancellation and nil otherwise.
// Run must be called at most once.
func (r *Reloader) Run(ctx context.Context) error {
	defer close(r.done)

	var wake <-chan struct{}
	if r.set.watch {
		if w, ok := r.src.(source.Watcher); ok {
			ch, err := w.Watch(ctx, r.h.Report)
			if err != nil {
				r.h.Report(fmt.Errorf("%w: watch: %v", hlog.ErrSourceRead, err))
			} else {
				wake = ch
			}
		}
	}

	for {
		interval := r.Interval()
		if interval <= 0 {
			return nil
		}
		timer := time.NewTimer(interval)
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
		case <-wake:
			timer.Stop()
		}
		_, _ = r.Poll(ctx)
	}
}

// Poll runs one iteration without sleeping. It reports whether a new State
// was published; any error has already been reported through the Handle.
func (r *Reloader) Poll(ctx context.Context) (bool, error) {
	sig, err := r.src.Signature(ctx)
	if err != nil {
		// Stored signature untouched: retried next interval.
		r.h.Report(err)
		return false, err
	}
	if sig.Equal(r.last) {
		return false, nil
	}
	r.last = sig

	loaded, err := load(ctx, r.src, r.creator, r.set.parseOpts)
	if err != nil {
		r.h.Report(err)
		return false, err
	}
	r.h.Replace(loaded.State)
	r.interval.Store(int64(loaded.RefreshRate))
	return true, nil
}

func load(ctx context.Context, src source.Source, creator *config.Creator, opts []config.ParseOption) (*config.Loaded, error) {
	doc, err := src.Read(ctx)
	if err != nil {
		return nil, err
	}
	return config.Load(doc, src.Format(), creator, opts...)
}
