package fetch

import (
	"time"

	"urlfetch/httpwire"
	"urlfetch/transport"
	"urlfetch/urlutil"

	"github.com/benbjohnson/clock"
)

// Continuation is invoked exactly once when the fetch finishes, on the
// engine's event goroutine.
type Continuation func(*Descriptor)

// Descriptor carries every parameter and lifecycle field of one logical
// fetch. It is mutated in place across redirect hops and owned by the
// engine goroutine until the continuation fires (or Done closes).
type Descriptor struct {
	engine *Engine
	opts   Options
	cont   Continuation

	originalURL string
	currentURL  string
	parsed      *urlutil.URL

	// Lifecycle of the current connection attempt. attempt tags stream
	// events so signals from a torn-down stream can't touch a later hop.
	attempt   int
	stream    transport.Stream
	buf       []byte
	headerEnd int // body start offset, -1 until the header block is seen
	expected  int // total frame size, -1 until known
	chunked   bool
	framed    bool // terminal zero-length chunk seen
	chunkScan int
	redirects int
	finished  bool
	local     bool // result produced without a network attempt

	start        time.Time
	lastActivity time.Time
	timer        *clock.Timer

	done chan struct{}

	// Result, replaced wholesale on every attempt.
	status   Status
	override *Status
	headers  httpwire.Headers
	fields   []httpwire.Field
	body     []byte
	peer     *transport.PeerInfo
}

// Result query surface. Valid once the descriptor has finished: inside the
// continuation, after a Wait fetch returned, or after Done is closed.

// Header looks a response header up, case-insensitively. Duplicated fields
// kept their last value.
func (d *Descriptor) Header(name string) (string, bool) { return d.headers.Get(name) }

// Headers returns a copy of the full response header map.
func (d *Descriptor) Headers() map[string]string { return d.headers.Fields() }

func (d *Descriptor) StatusCode() int       { return d.status.Code }
func (d *Descriptor) Reason() string        { return d.status.Reason }
func (d *Descriptor) RawStatusLine() string { return d.status.Raw }

// OK reports whether the status code is in [200, 299].
func (d *Descriptor) OK() bool { return d.status.OK() }

// Err is the exact negation of OK.
func (d *Descriptor) Err() bool { return !d.OK() }

// Body is the post-processed response body: headers stripped, chunk
// framing removed, decompressed and newline-normalized as applicable.
func (d *Descriptor) Body() []byte { return d.body }

// Peer reports secure-session metadata, nil for plain streams.
func (d *Descriptor) Peer() *transport.PeerInfo { return d.peer }

// URL is the current target, reflecting any redirect hops taken.
func (d *Descriptor) URL() string { return d.requestURL() }

// OriginalURL is the target the fetch started with.
func (d *Descriptor) OriginalURL() string { return d.originalURL }

// Redirects is the number of hops taken.
func (d *Descriptor) Redirects() int { return d.redirects }

// Done is closed when the fetch finishes, on every exit path.
func (d *Descriptor) Done() <-chan struct{} { return d.done }

func (d *Descriptor) requestURL() string {
	if d.currentURL != "" {
		return d.currentURL
	}
	return d.originalURL
}
