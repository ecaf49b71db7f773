package httpwire

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParseStatusLine(t *testing.T) {
	testcases := []struct {
		desc     string
		input    string
		expected StatusLine
	}{
		{
			desc:  "well-formed triplet",
			input: "HTTP/1.1 200 OK",
			expected: StatusLine{
				Version: Version{1, 1},
				Code:    200,
				Reason:  "OK",
				Raw:     "HTTP/1.1 200 OK",
			},
		},
		{
			desc:  "multi-word reason phrase",
			input: "HTTP/1.1 404 Not Found",
			expected: StatusLine{
				Version: Version{1, 1},
				Code:    404,
				Reason:  "Not Found",
				Raw:     "HTTP/1.1 404 Not Found",
			},
		},
		{
			desc:  "missing reason phrase is opaque",
			input: "HTTP/1.1 200",
			expected: StatusLine{
				Version: Version{1, 1},
				Code:    200,
				Raw:     "HTTP/1.1 200",
			},
		},
		{
			desc:     "garbage is kept verbatim",
			input:    "ICY 200 OK maybe",
			expected: StatusLine{Raw: "ICY 200 OK maybe"},
		},
		{
			desc:     "non-numeric code is opaque",
			input:    "HTTP/1.1 abc OK",
			expected: StatusLine{Raw: "HTTP/1.1 abc OK"},
		},
	}

	for _, tc := range testcases {
		t.Run(tc.desc, func(t *testing.T) {
			assert.Equal(t, tc.expected, ParseStatusLine([]byte(tc.input)))
		})
	}
}

func TestParseField(t *testing.T) {
	testcases := []struct {
		desc     string
		input    string
		expected Field
		wantErr  bool
	}{
		{
			desc:     "simple field",
			input:    "Content-Type: text/html",
			expected: Field{Name: []byte("Content-Type"), Value: []byte("text/html")},
		},
		{
			desc:     "whitespace trimmed around name and value",
			input:    " Content-Length :  42  ",
			expected: Field{Name: []byte("Content-Length"), Value: []byte("42")},
		},
		{
			desc:    "no colon",
			input:   "not a header line",
			wantErr: true,
		},
	}

	for _, tc := range testcases {
		t.Run(tc.desc, func(t *testing.T) {
			field, err := ParseField([]byte(tc.input))
			if tc.wantErr {
				assert.Error(t, err)
				return
			}
			assert.NoError(t, err)
			assert.Equal(t, tc.expected, field)
		})
	}
}

func TestCanonicalFieldName(t *testing.T) {
	assert.Equal(t, "Content-Length", CanonicalFieldName("content-length"))
	assert.Equal(t, "Content-Length", CanonicalFieldName("CONTENT-LENGTH"))
	assert.Equal(t, "Set-Cookie", CanonicalFieldName("sEt-cOoKiE"))
	assert.Equal(t, "X", CanonicalFieldName("x"))
}

func TestHeadersLastDuplicateWins(t *testing.T) {
	h := HeadersFrom([]Field{
		{Name: []byte("X-Thing"), Value: []byte("first")},
		{Name: []byte("x-thing"), Value: []byte("second")},
	})

	v, ok := h.Get("X-THING")
	assert.True(t, ok)
	assert.Equal(t, "second", v)
	assert.Equal(t, 1, h.Len())
}

func TestHeadersCaseInsensitiveAccess(t *testing.T) {
	h := NewHeaders()
	h.Set("Content-Type", "text/plain")

	v, ok := h.Get("content-type")
	assert.True(t, ok)
	assert.Equal(t, "text/plain", v)

	h.Del("CONTENT-TYPE")
	_, ok = h.Get("Content-Type")
	assert.False(t, ok)
}

func TestParseVersion(t *testing.T) {
	ver, err := ParseVersion([]byte("HTTP/1.1"))
	assert.NoError(t, err)
	assert.Equal(t, Version{1, 1}, ver)
	assert.Equal(t, "HTTP/1.1", ver.String())

	_, err = ParseVersion([]byte("SPDY/3"))
	assert.Error(t, err)
}
