// Package fetch implements an asynchronous HTTP(S) request engine over
// event-driven byte streams: it serializes requests, detects response
// framing from partial data, decodes chunked transfer encoding, follows
// redirects, enforces overall and idle timeouts, and dispatches a single
// completion per fetch with guaranteed teardown on every exit path.
package fetch

import (
	"bytes"
	"compress/gzip"
	"io"
	"log/slog"

	"urlfetch/cache"
	"urlfetch/cookies"
	"urlfetch/transport"
	"urlfetch/transport/tcp"

	"github.com/benbjohnson/clock"
	"github.com/pkg/errors"
)

const defaultUserAgent = "urlfetch/1.0"

type Config struct {
	// Dialer opens streams. Defaults to a plain tcp/tls dialer.
	Dialer transport.Dialer

	// Cookies and Cache are optional collaborators; nil disables them
	// regardless of per-fetch modes.
	Cookies cookies.Jar
	Cache   cache.Store

	// Decompress inflates gzip bodies. Defaults to [Gunzip]. Setting
	// NoDecompress leaves it nil, which also drops Accept-Encoding from
	// requests.
	Decompress   func([]byte) ([]byte, error)
	NoDecompress bool

	Logger *slog.Logger
	Clock  clock.Clock

	UserAgent string

	// DebugSink mirrors the exact outgoing request bytes of fetches with
	// the Debug option set.
	DebugSink io.Writer
}

// Engine runs fetches. All descriptor state is owned by one event
// goroutine; transport goroutines and timers only post into its queue.
type Engine struct {
	dialer     transport.Dialer
	cookies    cookies.Jar
	cache      cache.Store
	decompress func([]byte) ([]byte, error)
	logger     *slog.Logger
	clock      clock.Clock
	userAgent  string
	debugSink  io.Writer

	queue    chan queued
	quit     chan struct{}
	loopDone chan struct{}
}

// queued is one unit of work for the event goroutine: either a tagged
// stream event for a descriptor's attempt, or a control closure.
type queued struct {
	d       *Descriptor
	attempt int
	ev      transport.Event

	fn func()
}

func New(cfg Config) *Engine {
	e := &Engine{
		dialer:     cfg.Dialer,
		cookies:    cfg.Cookies,
		cache:      cfg.Cache,
		decompress: cfg.Decompress,
		logger:     cfg.Logger,
		clock:      cfg.Clock,
		userAgent:  cfg.UserAgent,
		debugSink:  cfg.DebugSink,

		queue:    make(chan queued, 64),
		quit:     make(chan struct{}),
		loopDone: make(chan struct{}),
	}

	if e.dialer == nil {
		e.dialer = &tcp.Dialer{}
	}
	if e.decompress == nil && !cfg.NoDecompress {
		e.decompress = Gunzip
	}
	if e.logger == nil {
		e.logger = slog.Default()
	}
	if e.clock == nil {
		e.clock = clock.New()
	}
	if e.userAgent == "" {
		e.userAgent = defaultUserAgent
	}

	go e.run()

	return e
}

// Close stops the event goroutine. Fetches still in flight never finish;
// close only after outstanding descriptors are done.
func (e *Engine) Close() {
	close(e.quit)
	<-e.loopDone
}

// Fetch starts one logical fetch. cont (may be nil) runs on the event
// goroutine once the fetch finishes. With opts.Wait set, Fetch blocks
// until then; otherwise it returns immediately and the caller can watch
// [Descriptor.Done].
func (e *Engine) Fetch(rawURL string, opts Options, cont Continuation) *Descriptor {
	d := &Descriptor{
		engine:      e,
		opts:        opts,
		cont:        cont,
		originalURL: rawURL,
		currentURL:  rawURL,
		headerEnd:   -1,
		expected:    -1,
		done:        make(chan struct{}),
	}

	if d.opts.Method == "" {
		d.opts.Method = MethodGet
	}

	if !e.post(queued{fn: func() { e.dispatch(d) }}) {
		d.finished = true
		d.status = synthetic(500, "Fetch engine closed")
		close(d.done)
		return d
	}

	if opts.Wait {
		<-d.done
	}

	return d
}

func (e *Engine) run() {
	defer close(e.loopDone)
	for {
		select {
		case q := <-e.queue:
			if q.fn != nil {
				q.fn()
				continue
			}
			e.handleStreamEvent(q.d, q.attempt, q.ev)
		case <-e.quit:
			return
		}
	}
}

func (e *Engine) post(q queued) bool {
	select {
	case e.queue <- q:
		return true
	case <-e.quit:
		return false
	}
}

// handleStreamEvent is the single event-handling entry point per
// descriptor. Signals from a finished attempt or a superseded stream are
// dropped: only the first termination signal may take effect.
func (e *Engine) handleStreamEvent(d *Descriptor, attempt int, ev transport.Event) {
	if d.finished || attempt != d.attempt {
		return
	}

	switch ev := ev.(type) {
	case transport.Connected:
		e.sendRequest(d)
	case transport.Data:
		e.receive(d, ev.Chunk)
	case transport.Closed:
		// Peer shut down: either the close-delimited terminator or an
		// early close; both finish the attempt with what arrived.
		e.complete(d)
	case transport.Failed:
		e.fail(d, synthetic(500, ev.Err.Error()))
	}
}

// fail records a synthetic status and routes through normal completion.
func (e *Engine) fail(d *Descriptor, status Status) {
	d.override = &status
	e.complete(d)
}

func (e *Engine) logFor(d *Descriptor) *slog.Logger {
	return e.logger.With(slog.String("url", d.requestURL()))
}

// Gunzip is the default decompressor collaborator.
func Gunzip(b []byte) ([]byte, error) {
	zr, err := gzip.NewReader(bytes.NewReader(b))
	if err != nil {
		return nil, errors.Wrap(err, "opening gzip stream")
	}
	defer zr.Close()

	out, err := io.ReadAll(zr)
	if err != nil {
		return nil, errors.Wrap(err, "inflating body")
	}
	return out, nil
}
