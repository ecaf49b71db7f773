// Package tcp dials real OS sockets and adapts them to the event-driven
// [transport.Stream] model. TLS session establishment is delegated to
// crypto/tls; this package only plugs it in.
package tcp

import (
	"crypto/tls"
	"io"
	"net"
	"strconv"
	"sync"
	"time"

	"urlfetch/transport"

	"github.com/pkg/errors"
)

const readBufferSize = 4096

type Dialer struct {
	// ConnectTimeout bounds the dial (and TLS handshake) itself. Zero
	// means no bound; the engine's own timeout monitor still applies.
	ConnectTimeout time.Duration

	// TLS is cloned per secure stream, with ServerName filled in.
	TLS *tls.Config
}

var _ transport.Dialer = (*Dialer)(nil)

func (d *Dialer) Dial(host string, port uint16, secure bool, sink transport.Sink) transport.Stream {
	s := &stream{
		sink:   sink,
		closed: make(chan struct{}),
	}

	go s.run(d, host, port, secure)

	return s
}

type stream struct {
	sink transport.Sink

	mu   sync.Mutex
	conn net.Conn
	peer *transport.PeerInfo

	closed chan struct{}
	once   sync.Once
}

var _ transport.SecureStream = (*stream)(nil)

func (s *stream) run(d *Dialer, host string, port uint16, secure bool) {
	addr := net.JoinHostPort(host, strconv.FormatUint(uint64(port), 10))

	conn, err := net.DialTimeout("tcp", addr, d.ConnectTimeout)
	if err != nil {
		s.emit(transport.Failed{Err: errors.Wrap(err, "dialing")})
		return
	}

	if secure {
		conn, err = s.handshake(d, conn, host)
		if err != nil {
			conn.Close()
			s.emit(transport.Failed{Err: errors.Wrap(err, "tls handshake")})
			return
		}
	}

	s.mu.Lock()
	s.conn = conn
	s.mu.Unlock()

	if s.isClosed() {
		// Closed while we were connecting.
		conn.Close()
		return
	}

	s.emit(transport.Connected{})
	s.readLoop(conn)
}

func (s *stream) handshake(d *Dialer, conn net.Conn, host string) (net.Conn, error) {
	cfg := d.TLS.Clone()
	if cfg == nil {
		cfg = &tls.Config{}
	}
	if cfg.ServerName == "" {
		cfg.ServerName = host
	}

	tconn := tls.Client(conn, cfg)

	if d.ConnectTimeout > 0 {
		tconn.SetDeadline(time.Now().Add(d.ConnectTimeout))
	}
	if err := tconn.Handshake(); err != nil {
		return nil, err
	}
	tconn.SetDeadline(time.Time{})

	state := tconn.ConnectionState()
	peer := &transport.PeerInfo{
		Protocol:    tls.VersionName(state.Version),
		CipherSuite: tls.CipherSuiteName(state.CipherSuite),
	}
	if len(state.PeerCertificates) > 0 {
		cert := state.PeerCertificates[0]
		peer.Subject = cert.Subject.String()
		peer.Issuer = cert.Issuer.String()
	}

	s.mu.Lock()
	s.peer = peer
	s.mu.Unlock()

	return tconn, nil
}

func (s *stream) readLoop(conn net.Conn) {
	buf := make([]byte, readBufferSize)
	for {
		n, err := conn.Read(buf)
		if n > 0 {
			chunk := make([]byte, n)
			copy(chunk, buf[:n])
			s.emit(transport.Data{Chunk: chunk})
		}
		if err != nil {
			if isOrderlyClose(err) {
				s.emit(transport.Closed{})
			} else {
				s.emit(transport.Failed{Err: err})
			}
			return
		}
	}
}

// A TLS close-notify surfaces as EOF too; everything else is a failure.
func isOrderlyClose(err error) bool {
	return errors.Is(err, io.EOF) || errors.Is(err, net.ErrClosed)
}

// emit delivers ev unless the stream was closed locally.
func (s *stream) emit(ev transport.Event) {
	if s.isClosed() {
		return
	}
	s.sink(ev)
}

func (s *stream) isClosed() bool {
	select {
	case <-s.closed:
		return true
	default:
		return false
	}
}

func (s *stream) Write(p []byte) (int, error) {
	s.mu.Lock()
	conn := s.conn
	s.mu.Unlock()

	if conn == nil || s.isClosed() {
		return 0, transport.ErrStreamClosed
	}

	return conn.Write(p)
}

func (s *stream) Close() error {
	s.once.Do(func() { close(s.closed) })

	s.mu.Lock()
	conn := s.conn
	s.conn = nil
	s.mu.Unlock()

	if conn != nil {
		return conn.Close()
	}
	return nil
}

func (s *stream) Peer() *transport.PeerInfo {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.peer
}
