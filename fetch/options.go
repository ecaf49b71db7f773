package fetch

import "time"

// Mode says which directions of a collaborator a fetch may use. For
// cookies, "write" puts a Cookie header on the wire and "read" harvests
// Set-Cookie values from the response. For the cache, "read" drives
// If-Modified-Since and the 304 substitution, "write" stores bodies.
type Mode uint8

const (
	ModeOff   Mode = 0
	ModeRead  Mode = 1 << 0
	ModeWrite Mode = 1 << 1
	ModeBoth  Mode = ModeRead | ModeWrite
)

func (m Mode) Reads() bool  { return m&ModeRead != 0 }
func (m Mode) Writes() bool { return m&ModeWrite != 0 }

// Method is the request method. The constants cover the closed set of
// well-known verbs; any other value is sent verbatim as a custom verb.
type Method string

const (
	MethodGet     Method = "GET"
	MethodHead    Method = "HEAD"
	MethodPost    Method = "POST"
	MethodPut     Method = "PUT"
	MethodDelete  Method = "DELETE"
	MethodOptions Method = "OPTIONS"
	MethodTrace   Method = "TRACE"
)

// Cacheable reports whether responses to this method may be stored.
func (m Method) Cacheable() bool { return m == MethodGet }

// Body is the request payload: either a preformatted Raw string or an
// ordered Fields list the writer encodes itself.
type Body interface{ isBody() }

type Raw string

// Fields is an ordered list of form fields.
type Fields []Field

type Field struct {
	Name  string
	Value string

	// Filename and ContentType only matter for multipart encoding.
	Filename    string
	ContentType string
}

func (Raw) isBody()    {}
func (Fields) isBody() {}

// Encoding selects how a Fields (or Raw) body is put on the wire.
type Encoding uint8

const (
	EncodingURL Encoding = iota
	EncodingMultipart
	EncodingBase64
)

// HeaderOverride adjusts one built-in (or extra) request header by name,
// case-insensitively. A nil Value suppresses the header entirely.
type HeaderOverride struct {
	Name  string
	Value *string
}

func Header(name, value string) HeaderOverride {
	return HeaderOverride{Name: name, Value: &value}
}

func SuppressHeader(name string) HeaderOverride {
	return HeaderOverride{Name: name}
}

type Options struct {
	// Wait makes Fetch block until the descriptor finishes.
	Wait bool

	// Timeout bounds the whole fetch; ReadTimeout bounds the gap between
	// inbound bytes. Zero disables the respective check.
	Timeout     time.Duration
	ReadTimeout time.Duration

	Verbose int
	Debug   bool

	Cookies Mode
	Cache   Mode

	FollowRedirects bool

	// IgnoreErrors suppresses the continuation entirely on non-success
	// outcomes; the body is discarded silently.
	IgnoreErrors bool

	Method  Method
	Headers []HeaderOverride

	Body         Body
	BodyCharset  string
	BodyEncoding Encoding
}

var DefaultOptions = Options{
	Timeout:         30 * time.Second,
	ReadTimeout:     10 * time.Second,
	FollowRedirects: true,
}
