// Package pipe provides an in-memory, scripted transport. Tests drive the
// inbound side by hand (Connect/Feed/CloseRemote/Fail) and inspect what the
// engine wrote, with no sockets involved.
package pipe

import (
	"bytes"
	"sync"

	"urlfetch/transport"
)

type Dialer struct {
	mu      sync.Mutex
	streams []*Stream

	// OnDial, when set, runs synchronously inside Dial with the new stream.
	OnDial func(s *Stream)
}

var _ transport.Dialer = (*Dialer)(nil)

func NewDialer() *Dialer { return &Dialer{} }

func (d *Dialer) Dial(host string, port uint16, secure bool, sink transport.Sink) transport.Stream {
	s := &Stream{
		Host:   host,
		Port:   port,
		Secure: secure,
		sink:   sink,
	}

	d.mu.Lock()
	d.streams = append(d.streams, s)
	onDial := d.OnDial
	d.mu.Unlock()

	if onDial != nil {
		onDial(s)
	}

	return s
}

// Last returns the most recently dialed stream, nil if none.
func (d *Dialer) Last() *Stream {
	d.mu.Lock()
	defer d.mu.Unlock()
	if len(d.streams) == 0 {
		return nil
	}
	return d.streams[len(d.streams)-1]
}

func (d *Dialer) DialCount() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.streams)
}

// Stream is one scripted connection. The engine side uses Write/Close; the
// test side injects events.
type Stream struct {
	Host   string
	Port   uint16
	Secure bool

	sink transport.Sink

	mu     sync.Mutex
	wrote  bytes.Buffer
	closed bool
	peer   *transport.PeerInfo
}

var _ transport.SecureStream = (*Stream)(nil)

func (s *Stream) Write(p []byte) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return 0, transport.ErrStreamClosed
	}
	return s.wrote.Write(p)
}

func (s *Stream) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	return nil
}

func (s *Stream) Peer() *transport.PeerInfo {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.peer
}

// Test-side controls below.

func (s *Stream) SetPeer(peer *transport.PeerInfo) {
	s.mu.Lock()
	s.peer = peer
	s.mu.Unlock()
}

// Connect reports the stream as established.
func (s *Stream) Connect() { s.emit(transport.Connected{}) }

// Feed delivers one fragment of inbound bytes.
func (s *Stream) Feed(chunk []byte) {
	c := make([]byte, len(chunk))
	copy(c, chunk)
	s.emit(transport.Data{Chunk: c})
}

// FeedString is Feed for string literals.
func (s *Stream) FeedString(chunk string) { s.Feed([]byte(chunk)) }

// CloseRemote reports an orderly shutdown by the peer.
func (s *Stream) CloseRemote() { s.emit(transport.Closed{}) }

// Fail reports a transport error.
func (s *Stream) Fail(err error) { s.emit(transport.Failed{Err: err}) }

// Written returns a copy of everything the engine wrote so far.
func (s *Stream) Written() []byte {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]byte, s.wrote.Len())
	copy(out, s.wrote.Bytes())
	return out
}

func (s *Stream) WasClosed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closed
}

// emit mirrors the socket transport: a locally closed stream goes silent.
func (s *Stream) emit(ev transport.Event) {
	s.mu.Lock()
	closed := s.closed
	s.mu.Unlock()
	if closed {
		return
	}
	s.sink(ev)
}
