// Package transport abstracts a duplex byte stream whose inbound side is
// delivered as discrete events instead of blocking reads. A fetch attempt
// owns exactly one Stream at a time; the engine writes request bytes to it
// and consumes Connected/Data/Closed/Failed events from the sink it passed
// to Dial.
package transport

import "errors"

var ErrStreamClosed = errors.New("stream is closed")

// Event is one inbound signal from a stream. Exactly one variant exists
// per transport signal.
type Event interface{ event() }

// Connected fires once the stream is ready to accept writes.
type Connected struct{}

// Data carries a fragment of inbound bytes. The chunk is owned by the
// receiver once delivered.
type Data struct{ Chunk []byte }

// Closed fires when the peer shuts the stream down in an orderly way.
type Closed struct{}

// Failed fires on connect or transfer errors. No further events follow.
type Failed struct{ Err error }

func (Connected) event() {}
func (Data) event()      {}
func (Closed) event()    {}
func (Failed) event()    {}

// Sink receives events for one stream. Implementations must be safe to
// call from the stream's own goroutine.
type Sink func(Event)

type Stream interface {
	// Write sends outgoing bytes. Valid only after Connected was observed.
	Write(p []byte) (n int, err error)

	// Close tears the stream down. It is idempotent, and suppresses any
	// further event delivery to the sink.
	Close() error
}

// PeerInfo describes the secure session of a stream, when there is one.
type PeerInfo struct {
	Protocol    string
	CipherSuite string
	Subject     string
	Issuer      string
}

// SecureStream is implemented by streams that carry a secure session.
type SecureStream interface {
	Stream

	// Peer reports the session metadata, nil until the handshake finished.
	Peer() *PeerInfo
}

// Dialer opens streams. Dial must not block: connection establishment
// proceeds in the background and reports through the sink.
type Dialer interface {
	Dial(host string, port uint16, secure bool, sink Sink) Stream
}
