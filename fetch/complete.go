package fetch

import (
	"log/slog"
	"strings"
	"time"

	"urlfetch/transport"
)

// complete is the single authoritative transition to finished for one
// connection attempt. A close event, a transport error and a timeout tick
// can all race to get here; only the first takes effect, and every
// teardown step is idempotent.
func (e *Engine) complete(d *Descriptor) {
	if d.finished {
		return
	}
	d.finished = true

	d.stopTimer()

	if d.stream != nil {
		if sec, ok := d.stream.(transport.SecureStream); ok {
			if peer := sec.Peer(); peer != nil {
				d.peer = peer
			}
		}
		d.stream.Close()
		d.stream = nil
	}

	// Record the final status: an explicit override always wins over one
	// parsed from the wire.
	if !d.local {
		wireStatus := e.parseHead(d)
		if d.override != nil {
			d.status = *d.override
		} else {
			d.status = wireStatus
		}
	} else if d.override != nil {
		d.status = *d.override
	}

	// Set-Cookie is harvested per hop, before any redirect re-dispatch, so
	// a cookie set by an intermediate response rides along on the next
	// request.
	e.harvestCookies(d)

	// 3xx enters the redirect controller instead of the callback. 304 is
	// not a hop; it feeds the cache substitution below.
	if d.override == nil && d.status.Code >= 300 && d.status.Code <= 399 && d.status.Code != 304 {
		if e.redirect(d) {
			return // re-dispatched against the new location
		}
	}

	if d.body == nil {
		e.finishBody(d)
	}

	e.applyCache(d)

	invoke := d.cont != nil
	if d.opts.IgnoreErrors && !d.status.OK() {
		// The caller never observes the failure, only the absence of
		// invocation.
		invoke = false
		d.body = nil
	}

	if d.opts.Verbose >= 1 {
		e.logFor(d).Info("fetch finished",
			slog.Int("status", d.status.Code),
			slog.String("reason", d.status.Reason),
			slog.Int("body_bytes", len(d.body)))
	}

	if invoke {
		d.cont(d)
	}

	// The receive buffer is released after the continuation returns, on
	// every branch.
	d.buf = nil
	close(d.done)
}

// harvestCookies stores Set-Cookie values when the cookie mode reads.
func (e *Engine) harvestCookies(d *Descriptor) {
	if !d.opts.Cookies.Reads() || e.cookies == nil || d.parsed == nil {
		return
	}

	for _, field := range d.fields {
		if !strings.EqualFold(string(field.Name), "Set-Cookie") {
			continue
		}
		if err := e.cookies.Store(d.parsed.Host, string(field.Value)); err != nil {
			e.logFor(d).Warn("rejected set-cookie value", slog.Any("error", err))
		}
	}
}

// applyCache stores successful cacheable bodies and substitutes the cached
// bytes on a not-modified answer.
func (e *Engine) applyCache(d *Descriptor) {
	if e.cache == nil || !d.opts.Method.Cacheable() || d.local {
		return
	}

	switch {
	// Only bytes actually read off the wire are stored: a synthesized
	// success (redirect-not-followed) has no framed response behind it.
	case d.status.OK() && d.opts.Cache.Writes() && d.headerEnd >= 0:
		modified := e.clock.Now()
		if v, ok := d.headers.Get("Last-Modified"); ok {
			if t, err := time.Parse(imfFixDateFormat, v); err == nil {
				modified = t
			}
		}
		if err := e.cache.Put(d.requestURL(), d.body, modified); err != nil {
			e.logFor(d).Warn("failed to store response in cache", slog.Any("error", err))
		}

	case d.status.Code == 304 && d.opts.Cache.Reads():
		if body, ok := e.cache.Load(d.requestURL()); ok {
			d.body = body
		}
	}
}
