package fetch

import (
	"log/slog"

	"urlfetch/urlutil"
)

// maxRedirects bounds the hop count; the counter never decreases across
// the descriptor's lifetime.
const maxRedirects = 10

// redirect handles a 3xx outcome. It returns true when a new hop was
// dispatched; false means a terminal state was reached and the caller
// proceeds to deliver d.status as the final outcome.
func (e *Engine) redirect(d *Descriptor) bool {
	// Redirecting through a proxy is rejected outright, regardless of the
	// counter.
	if d.status.Code == 305 {
		d.status = statusProxyRedirect
		return false
	}

	if !d.opts.FollowRedirects {
		// Deliberately success-shaped: callers rely on OK() holding here
		// even though no body was fetched.
		d.status = statusRedirectNotFollowed
		d.buf = nil
		d.headerEnd = -1
		return false
	}

	if d.redirects >= maxRedirects {
		d.status = statusTooManyRedirects
		return false
	}

	location, ok := d.headers.Get("Location")
	if !ok {
		// A 3xx without a target is delivered as-is.
		return false
	}

	target, err := urlutil.Resolve(d.requestURL(), location)
	if err != nil {
		d.status = statusUnsupportedURL
		return false
	}

	if d.opts.Verbose >= 1 {
		e.logFor(d).Info("following redirect",
			slog.String("location", target),
			slog.Int("hop", d.redirects+1))
	}

	// Reset the attempt: new target, fresh frame state, discarded buffer.
	// Stream and timer were already torn down by the completion path.
	d.redirects++
	d.currentURL = target
	d.parsed = nil
	d.attempt++
	d.buf = nil
	d.headerEnd = -1
	d.expected = -1
	d.chunked = false
	d.framed = false
	d.chunkScan = 0
	d.override = nil
	d.body = nil
	d.finished = false

	e.dispatch(d)
	return true
}
