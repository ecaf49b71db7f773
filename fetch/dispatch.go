package fetch

import (
	"log/slog"

	"urlfetch/transport"
	"urlfetch/urlutil"
)

// dispatch resolves the scheme of the current URL and routes the
// descriptor. Every path produces exactly one eventual completion,
// possibly after redirect re-entries.
func (e *Engine) dispatch(d *Descriptor) {
	parsed, err := urlutil.Parse(d.requestURL())
	if err != nil {
		e.fail(d, statusUnsupportedURL)
		return
	}
	d.parsed = parsed

	if d.opts.Verbose >= 1 {
		e.logFor(d).Info("dispatching fetch",
			slog.String("scheme", parsed.Scheme),
			slog.String("method", string(d.opts.Method)))
	}

	switch parsed.Scheme {
	case "http":
		e.startAttempt(d, false)
	case "https":
		e.startAttempt(d, true)
	case "file":
		e.fetchFile(d)
	case "data":
		e.fetchData(d)
	default:
		e.fail(d, statusUnsupportedURL)
	}
}

// startAttempt opens a stream for one connection attempt. The request is
// written once the Connected event arrives.
func (e *Engine) startAttempt(d *Descriptor, secure bool) {
	host, err := d.parsed.ASCIIHost()
	if err != nil {
		e.fail(d, synthetic(500, err.Error()))
		return
	}

	// The overall deadline is anchored to the first attempt and survives
	// redirect hops; only the idle stamp is per-attempt.
	now := e.clock.Now()
	if d.start.IsZero() {
		d.start = now
	}
	d.lastActivity = now
	e.scheduleTick(d)

	attempt := d.attempt
	sink := func(ev transport.Event) {
		e.post(queued{d: d, attempt: attempt, ev: ev})
	}

	d.stream = e.dialer.Dial(host, d.parsed.EffectivePort(), secure, sink)
}

func (e *Engine) sendRequest(d *Descriptor) {
	wire, err := e.buildRequest(d)
	if err != nil {
		e.fail(d, synthetic(500, err.Error()))
		return
	}

	if d.opts.Debug && e.debugSink != nil {
		e.debugSink.Write(wire)
	}
	if d.opts.Verbose >= 2 {
		e.logFor(d).Debug("request written", slog.Int("bytes", len(wire)))
	}

	if _, err := d.stream.Write(wire); err != nil {
		e.fail(d, synthetic(500, err.Error()))
	}
}
