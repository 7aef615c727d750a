package scanner

import (
	"context"
	"errors"
	"io"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"golang.org/x/sync/errgroup"
)

const (
	DefaultPrimaryInterval  = 100 * time.Millisecond
	DefaultFallbackInterval = 300 * time.Millisecond
)

var (
	ErrLoopStarted = errors.New("scan loop already started")
	ErrLoopStopped = errors.New("scan loop stopped")
)

// LoopOptions configures a [Loop]. Zero values take the package defaults.
type LoopOptions struct {
	PrimaryInterval  time.Duration
	FallbackInterval time.Duration
	Cooldown         time.Duration
	Decoder          *Decoder
	Clock            func() time.Time
	Logger           *log.Logger
}

// Loop drives both decode strategies against a [FrameSource] and gates their results.
type Loop struct {
	source   FrameSource
	decoder  *Decoder
	gate     *Gate
	primary  time.Duration
	fallback time.Duration
	logger   *log.Logger

	events   chan ScanEvent
	results  chan DecodeResult
	cancel   context.CancelFunc
	group    *errgroup.Group
	gateDone chan struct{}

	mu       sync.Mutex
	started  bool
	stopped  bool
	stopOnce sync.Once
	stopErr  error
}

// NewLoop creates a scan loop over source. Nothing runs until [Loop.Start].
func NewLoop(source FrameSource, opts LoopOptions) *Loop {
	if opts.PrimaryInterval <= 0 {
		opts.PrimaryInterval = DefaultPrimaryInterval
	}
	if opts.FallbackInterval <= 0 {
		opts.FallbackInterval = DefaultFallbackInterval
	}
	if opts.Logger == nil {
		opts.Logger = log.New(io.Discard)
	}
	if opts.Decoder == nil {
		opts.Decoder = NewDecoder(DecoderOptions{Logger: opts.Logger})
	}

	return &Loop{
		source:   source,
		decoder:  opts.Decoder,
		gate:     NewGate(opts.Cooldown, opts.Clock),
		primary:  opts.PrimaryInterval,
		fallback: opts.FallbackInterval,
		logger:   opts.Logger.With("component", "scanner"),
		events:   make(chan ScanEvent, 1),
		results:  make(chan DecodeResult, 8),
		gateDone: make(chan struct{}),
	}
}

// Events returns the channel of accepted scans. It is closed once the loop stops.
func (l *Loop) Events() <-chan ScanEvent {
	return l.events
}

// Start starts the frame source, both decode tickers and the gate goroutine.
func (l *Loop) Start(ctx context.Context) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.stopped {
		return ErrLoopStopped
	}
	if l.started {
		return ErrLoopStarted
	}

	if err := l.source.Start(ctx); err != nil {
		return err
	}

	tickCtx, cancel := context.WithCancel(ctx)
	g, gctx := errgroup.WithContext(tickCtx)

	l.cancel = cancel
	l.group = g
	l.started = true

	g.Go(func() error {
		l.tick(gctx, l.primary, StrategyNormal, l.decoder.DecodePrimary)
		return nil
	})
	g.Go(func() error {
		l.tick(gctx, l.fallback, StrategyInvertedManual, l.decoder.DecodeInverted)
		return nil
	})
	go l.runGate(gctx)

	l.logger.Info("scan loop started", "primary", l.primary, "fallback", l.fallback, "cooldown", l.gate.Cooldown())
	return nil
}

// Stop cancels both tickers and waits for them before closing the frame source.
// It is safe to call more than once and before Start.
func (l *Loop) Stop() error {
	l.stopOnce.Do(func() {
		l.mu.Lock()
		started := l.started
		l.stopped = true
		l.mu.Unlock()

		if !started {
			close(l.events)
			return
		}

		l.cancel()
		_ = l.group.Wait()
		<-l.gateDone

		l.stopErr = l.source.Close()
		l.gate.Reset()
		l.logger.Info("scan loop stopped")
	})
	return l.stopErr
}

func (l *Loop) tick(ctx context.Context, every time.Duration, s Strategy, decode func(*Frame) (DecodeResult, bool)) {
	t := time.NewTicker(every)
	defer t.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
		}

		frame, ok := l.source.Latest()
		if !ok {
			continue
		}

		res, ok := decode(frame)
		if !ok {
			continue
		}

		select {
		case l.results <- res:
		default:
			l.logger.Debug("dropping decode result, gate busy", "strategy", s)
		}
	}
}

// runGate is the only goroutine that touches the gate.
func (l *Loop) runGate(ctx context.Context) {
	defer close(l.gateDone)
	defer close(l.events)

	for {
		select {
		case <-ctx.Done():
			return
		case res := <-l.results:
			ev, ok := l.gate.Submit(res)
			if !ok {
				continue
			}

			l.logger.Debug("scan accepted", "track", ev.TrackURI, "strategy", ev.Strategy)
			select {
			case l.events <- ev:
			case <-ctx.Done():
				return
			}
		}
	}
}
