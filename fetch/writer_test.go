package fetch

import (
	"encoding/base64"
	"strings"
	"testing"
	"time"

	"urlfetch/cache"
	"urlfetch/cookies"
	"urlfetch/transport/pipe"
	"urlfetch/urlutil"

	"github.com/benbjohnson/clock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestEngine(t *testing.T, cfg Config) *Engine {
	t.Helper()
	if cfg.Dialer == nil {
		cfg.Dialer = pipe.NewDialer()
	}
	if cfg.Logger == nil {
		cfg.Logger = discardLogger()
	}
	if cfg.Clock == nil {
		cfg.Clock = clock.NewMock()
	}
	e := New(cfg)
	t.Cleanup(e.Close)
	return e
}

func newTestDescriptor(t *testing.T, e *Engine, rawURL string, opts Options) *Descriptor {
	t.Helper()
	if opts.Method == "" {
		opts.Method = MethodGet
	}
	parsed, err := urlutil.Parse(rawURL)
	require.NoError(t, err)

	return &Descriptor{
		engine:      e,
		opts:        opts,
		originalURL: rawURL,
		currentURL:  rawURL,
		parsed:      parsed,
		headerEnd:   -1,
		expected:    -1,
		done:        make(chan struct{}),
	}
}

func TestBuildRequestBaseline(t *testing.T) {
	e := newTestEngine(t, Config{})
	d := newTestDescriptor(t, e, "http://example.com/index.html", Options{})

	wire, err := e.buildRequest(d)
	require.NoError(t, err)

	assert.Equal(t, "GET /index.html HTTP/1.1\r\n"+
		"User-Agent: urlfetch/1.0\r\n"+
		"Connection: close\r\n"+
		"Accept-Encoding: gzip\r\n"+
		"Accept: */*\r\n"+
		"Host: example.com\r\n"+
		"\r\n",
		string(wire))
}

func TestNoDecompressDropsAcceptEncoding(t *testing.T) {
	e := newTestEngine(t, Config{NoDecompress: true})
	d := newTestDescriptor(t, e, "http://example.com/", Options{})

	wire, err := e.buildRequest(d)
	require.NoError(t, err)
	assert.NotContains(t, string(wire), "Accept-Encoding")
}

func TestBuildRequestNonDefaultPort(t *testing.T) {
	e := newTestEngine(t, Config{})
	d := newTestDescriptor(t, e, "http://example.com:8080/", Options{})

	wire, err := e.buildRequest(d)
	require.NoError(t, err)
	assert.Contains(t, string(wire), "Host: example.com:8080\r\n")
}

func TestBuildRequestIDNAHost(t *testing.T) {
	e := newTestEngine(t, Config{})
	d := newTestDescriptor(t, e, "http://bücher.example/", Options{})

	wire, err := e.buildRequest(d)
	require.NoError(t, err)
	assert.Contains(t, string(wire), "Host: xn--bcher-kva.example\r\n")
}

func TestHeaderOverrideReplacesInPlace(t *testing.T) {
	e := newTestEngine(t, Config{})
	d := newTestDescriptor(t, e, "http://example.com/", Options{
		Headers: []HeaderOverride{Header("user-agent", "custom/2.0")},
	})

	wire, err := e.buildRequest(d)
	require.NoError(t, err)

	// Replaced under the built-in's spelling and position.
	assert.True(t, strings.HasPrefix(string(wire),
		"GET / HTTP/1.1\r\nUser-Agent: custom/2.0\r\nConnection: close\r\n"))
	assert.NotContains(t, string(wire), "urlfetch/1.0")
}

func TestHeaderOverrideSuppresses(t *testing.T) {
	e := newTestEngine(t, Config{})
	d := newTestDescriptor(t, e, "http://example.com/", Options{
		Headers: []HeaderOverride{
			SuppressHeader("Accept-Encoding"),
			SuppressHeader("host"),
		},
	})

	wire, err := e.buildRequest(d)
	require.NoError(t, err)
	assert.NotContains(t, string(wire), "Accept-Encoding")
	assert.NotContains(t, string(wire), "Host:")
}

func TestHeaderOverrideAppendsUnmatched(t *testing.T) {
	e := newTestEngine(t, Config{})
	d := newTestDescriptor(t, e, "http://example.com/", Options{
		Headers: []HeaderOverride{
			Header("X-First", "1"),
			Header("X-Second", "2"),
		},
	})

	wire, err := e.buildRequest(d)
	require.NoError(t, err)
	assert.True(t, strings.HasSuffix(string(wire),
		"X-First: 1\r\nX-Second: 2\r\n\r\n"))
}

func TestGetBodyBecomesQueryString(t *testing.T) {
	e := newTestEngine(t, Config{})
	d := newTestDescriptor(t, e, "http://example.com/search", Options{
		Body: Fields{{Name: "q", Value: "hello world"}, {Name: "n", Value: "5"}},
	})

	wire, err := e.buildRequest(d)
	require.NoError(t, err)
	assert.Contains(t, string(wire), "GET /search?q=hello+world&n=5 HTTP/1.1\r\n")
	assert.True(t, strings.HasSuffix(string(wire), "\r\n\r\n"), "no body expected")
}

func TestGetBodyAppendsToExistingQuery(t *testing.T) {
	e := newTestEngine(t, Config{})
	d := newTestDescriptor(t, e, "http://example.com/search?page=2", Options{
		Body: Fields{{Name: "q", Value: "x"}},
	})

	wire, err := e.buildRequest(d)
	require.NoError(t, err)
	assert.Contains(t, string(wire), "GET /search?page=2&q=x HTTP/1.1\r\n")
}

func TestPostURLEncoded(t *testing.T) {
	e := newTestEngine(t, Config{})
	d := newTestDescriptor(t, e, "http://example.com/submit", Options{
		Method: MethodPost,
		Body:   Fields{{Name: "a", Value: "1"}, {Name: "b", Value: "two words"}},
	})

	wire, err := e.buildRequest(d)
	require.NoError(t, err)

	s := string(wire)
	assert.Contains(t, s, "POST /submit HTTP/1.1\r\n")
	assert.Contains(t, s, "Content-Type: application/x-www-form-urlencoded\r\n")
	assert.Contains(t, s, "Content-Length: 15\r\n")
	assert.True(t, strings.HasSuffix(s, "\r\n\r\na=1&b=two+words"))
}

func TestPostBase64Encoding(t *testing.T) {
	e := newTestEngine(t, Config{})
	d := newTestDescriptor(t, e, "http://example.com/submit", Options{
		Method:       MethodPost,
		Body:         Fields{{Name: "a", Value: "1"}},
		BodyEncoding: EncodingBase64,
	})

	wire, err := e.buildRequest(d)
	require.NoError(t, err)

	s := string(wire)
	encoded := base64.StdEncoding.EncodeToString([]byte("a=1"))
	// The content type still declares the pre-encoding form.
	assert.Contains(t, s, "Content-Type: application/x-www-form-urlencoded\r\n")
	assert.Contains(t, s, "Content-Transfer-Encoding: base64\r\n")
	assert.True(t, strings.HasSuffix(s, "\r\n\r\n"+encoded))
}

func TestPostMultipart(t *testing.T) {
	e := newTestEngine(t, Config{})
	d := newTestDescriptor(t, e, "http://example.com/upload", Options{
		Method:       MethodPost,
		BodyEncoding: EncodingMultipart,
		Body: Fields{
			{Name: "note", Value: "hi"},
			{Name: "upload", Value: "file bytes", Filename: "f.txt"},
		},
	})

	wire, err := e.buildRequest(d)
	require.NoError(t, err)

	s := string(wire)
	assert.Contains(t, s, "Content-Type: multipart/form-data; boundary=")
	assert.Contains(t, s, `name="note"`)
	assert.Contains(t, s, `filename="f.txt"`)
	assert.Contains(t, s, "file bytes")
}

func TestPostRawBody(t *testing.T) {
	e := newTestEngine(t, Config{})
	d := newTestDescriptor(t, e, "http://example.com/submit", Options{
		Method: MethodPost,
		Body:   Raw("pre=encoded&x=1"),
	})

	wire, err := e.buildRequest(d)
	require.NoError(t, err)
	assert.True(t, strings.HasSuffix(string(wire), "\r\n\r\npre=encoded&x=1"))
}

func TestBodyCharsetConversion(t *testing.T) {
	e := newTestEngine(t, Config{})
	d := newTestDescriptor(t, e, "http://example.com/submit", Options{
		Method:      MethodPost,
		Body:        Fields{{Name: "word", Value: "café"}},
		BodyCharset: "iso-8859-1",
	})

	wire, err := e.buildRequest(d)
	require.NoError(t, err)

	s := string(wire)
	assert.Contains(t, s, "Content-Type: application/x-www-form-urlencoded; charset=iso-8859-1\r\n")
	// é re-encoded to the single latin-1 byte before percent-escaping.
	assert.True(t, strings.HasSuffix(s, "word=caf%E9"))
}

func TestCookieHeaderWrittenInWriteMode(t *testing.T) {
	mock := clock.NewMock()
	jar := cookies.NewMemoryJar(mock)
	require.NoError(t, jar.Store("example.com", "sid=abc"))

	e := newTestEngine(t, Config{Cookies: jar, Clock: mock})

	d := newTestDescriptor(t, e, "http://example.com/", Options{Cookies: ModeWrite})
	wire, err := e.buildRequest(d)
	require.NoError(t, err)
	assert.Contains(t, string(wire), "Cookie: sid=abc\r\n")

	d = newTestDescriptor(t, e, "http://example.com/", Options{})
	wire, err = e.buildRequest(d)
	require.NoError(t, err)
	assert.NotContains(t, string(wire), "Cookie:")
}

func TestIfModifiedSinceFromCache(t *testing.T) {
	store := cache.NewMemStore()
	modified := time.Date(2026, 3, 4, 5, 6, 7, 0, time.UTC)
	require.NoError(t, store.Put("http://example.com/page", []byte("x"), modified))

	e := newTestEngine(t, Config{Cache: store})

	d := newTestDescriptor(t, e, "http://example.com/page", Options{Cache: ModeRead})
	wire, err := e.buildRequest(d)
	require.NoError(t, err)
	assert.Contains(t, string(wire), "If-Modified-Since: Wed, 04 Mar 2026 05:06:07 GMT\r\n")

	d = newTestDescriptor(t, e, "http://example.com/other", Options{Cache: ModeRead})
	wire, err = e.buildRequest(d)
	require.NoError(t, err)
	assert.NotContains(t, string(wire), "If-Modified-Since")
}
