package audit

import (
	"context"
	"io"
	"sync"
	"sync/atomic"
	"time"

	"github.com/sirupsen/logrus"
)

// dropLogEvery throttles the buffer-full warning under sustained overload.
const dropLogEvery = 100

// Config controls dispatcher buffering. With DropIfFull unset, Emit blocks
// until there is room or ctx is done.
type Config struct {
	Enabled    bool `yaml:"enabled"`
	BufferSize int  `yaml:"buffer_size"`
	DropIfFull bool `yaml:"drop_if_full"`

	// Logger receives drop and shutdown notices. Nil discards them.
	Logger logrus.FieldLogger `yaml:"-"`
	// Now stamps entries at enqueue time. Defaults to time.Now.
	Now func() time.Time `yaml:"-"`
}

// Dispatcher relays activity log entries to a sink from one goroutine so flows
// never wait on store writes. Entries get their ID and CreatedAt when they are
// queued, so a slow sink cannot skew the recorded request time or reorder IDs.
// Close drains whatever is queued.
type Dispatcher struct {
	cfg    Config
	sink   Sink
	logger logrus.FieldLogger
	now    func() time.Time

	queue     chan Entry
	done      chan struct{}
	wg        sync.WaitGroup
	dropped   atomic.Uint64
	closed    atomic.Bool
	closeOnce sync.Once
}

// NewDispatcher starts the relay goroutine. It returns nil when cfg is disabled;
// a nil Dispatcher accepts and discards entries.
func NewDispatcher(cfg Config, sink Sink) *Dispatcher {
	if !cfg.Enabled {
		return nil
	}
	if cfg.BufferSize <= 0 {
		cfg.BufferSize = 1
	}
	if sink == nil {
		sink = NoOpSink{}
	}
	logger := cfg.Logger
	if logger == nil {
		l := logrus.New()
		l.SetOutput(io.Discard)
		logger = l
	}
	now := cfg.Now
	if now == nil {
		now = time.Now
	}

	d := &Dispatcher{
		cfg:    cfg,
		sink:   sink,
		logger: logger,
		now:    now,
		queue:  make(chan Entry, cfg.BufferSize),
		done:   make(chan struct{}),
	}

	d.wg.Add(1)
	go d.relay()

	return d
}

func (d *Dispatcher) relay() {
	defer d.wg.Done()

	for {
		select {
		case entry := <-d.queue:
			d.sink.Emit(context.Background(), entry)
		case <-d.done:
			d.drain()
			return
		}
	}
}

func (d *Dispatcher) drain() {
	var n int
	for {
		select {
		case entry := <-d.queue:
			d.sink.Emit(context.Background(), entry)
			n++
		default:
			if n > 0 {
				d.logger.WithField("drained", n).Debug("activity log: queue drained on close")
			}
			return
		}
	}
}

// Emit stamps entry and queues it. After Close, entries are discarded.
func (d *Dispatcher) Emit(ctx context.Context, entry Entry) {
	if d == nil {
		return
	}
	if d.closed.Load() {
		d.logger.WithField("action", entry.Action).Debug("activity log: dispatcher closed, entry discarded")
		return
	}
	if ctx == nil {
		ctx = context.Background()
	}

	entry, err := stamp(entry, d.now)
	if err != nil {
		d.logger.WithError(err).Warn("activity log: id generation failed")
		return
	}

	if d.cfg.DropIfFull {
		select {
		case d.queue <- entry:
		case <-d.done:
		default:
			d.drop(entry)
		}
		return
	}

	select {
	case d.queue <- entry:
	case <-ctx.Done():
		d.logger.WithError(ctx.Err()).WithField("action", entry.Action).Warn("activity log: enqueue abandoned")
	case <-d.done:
	}
}

func (d *Dispatcher) drop(entry Entry) {
	n := d.dropped.Add(1)
	if n == 1 || n%dropLogEvery == 0 {
		d.logger.WithFields(logrus.Fields{
			"action":  entry.Action,
			"dropped": n,
		}).Warn("activity log: buffer full, entry dropped")
	}
}

// Close stops accepting entries and waits until the queue is drained.
func (d *Dispatcher) Close() {
	if d == nil {
		return
	}
	d.closeOnce.Do(func() {
		d.closed.Store(true)
		close(d.done)
		d.wg.Wait()
	})
}

// Dropped counts entries discarded because the buffer was full.
func (d *Dispatcher) Dropped() uint64 {
	if d == nil {
		return 0
	}
	return d.dropped.Load()
}
