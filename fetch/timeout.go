package fetch

import "time"

// tickInterval is the fixed cadence of the timeout monitor, independent of
// data arrival.
const tickInterval = 250 * time.Millisecond

// scheduleTick arms the next timeout check for the attempt in flight.
func (e *Engine) scheduleTick(d *Descriptor) {
	attempt := d.attempt
	d.timer = e.clock.AfterFunc(tickInterval, func() {
		e.post(queued{fn: func() { e.checkTimeout(d, attempt) }})
	})
}

// checkTimeout enforces the two independent thresholds: overall elapsed
// time since the attempt started, and idle time since the last inbound
// byte. Either breach forces a synthetic error completion through the
// normal teardown path. A tick that lost the race against completion (or
// against a redirect hop) does nothing.
func (e *Engine) checkTimeout(d *Descriptor, attempt int) {
	if d.finished || attempt != d.attempt {
		return
	}

	now := e.clock.Now()

	overall := d.opts.Timeout > 0 && now.Sub(d.start) >= d.opts.Timeout
	idle := d.opts.ReadTimeout > 0 && now.Sub(d.lastActivity) >= d.opts.ReadTimeout

	if overall || idle {
		e.fail(d, statusTimerExpired)
		return
	}

	e.scheduleTick(d)
}

// stopTimer cancels the pending tick; safe to call repeatedly.
func (d *Descriptor) stopTimer() {
	if d.timer != nil {
		d.timer.Stop()
		d.timer = nil
	}
}
