// Package httpwire holds the small bits of HTTP/1.1 grammar the fetch
// engine needs on both directions of the wire: line terminators, field
// lines, the status line and canonical header field names.
package httpwire

import (
	"bytes"
	"strconv"

	"github.com/pkg/errors"
)

const (
	CR   byte = '\r'
	LF   byte = '\n'
	SP   byte = ' '
	HTAB byte = '\t'
)

var (
	OWS  = []byte{SP, HTAB}
	CRLF = []byte{CR, LF}
)

func IsWhitespace(r rune) bool { return r == rune(SP) || r == rune(HTAB) || r == rune(CR) }

// [Major, Minor]
type Version [2]uint

var Version11 = Version{1, 1}

// ParseVersion parses http version text(e.g. "HTTP/1.1") into [Version].
func ParseVersion(b []byte) (Version, error) {
	prefix := []byte("HTTP/")
	if !bytes.HasPrefix(b, prefix) {
		return Version{}, errors.Errorf("http version prefix not found: %s", b)
	}

	first, second, found := bytes.Cut(b[len(prefix):], []byte{'.'})
	if !found {
		return Version{}, errors.Errorf("dot seperator not found on version: %s", b)
	}

	major, err1 := strconv.ParseUint(string(first), 10, 64)
	minor, err2 := strconv.ParseUint(string(second), 10, 64)
	if err1 != nil || err2 != nil {
		return Version{}, errors.Errorf("http version is not convertable to int: %s", b)
	}

	return Version{uint(major), uint(minor)}, nil
}

func (ver Version) Text() []byte {
	buf := bytes.NewBuffer(nil)
	buf.Write([]byte("HTTP/"))
	buf.Write([]byte(strconv.FormatUint(uint64(ver[0]), 10)))
	buf.Write([]byte{'.'})
	buf.Write([]byte(strconv.FormatUint(uint64(ver[1]), 10)))
	return buf.Bytes()
}

func (ver Version) String() string { return string(ver.Text()) }

type Field struct{ Name, Value []byte }

func ParseField(fieldLine []byte) (Field, error) {
	name, value, found := bytes.Cut(fieldLine, []byte{':'})
	if !found {
		return Field{}, errors.Errorf("colon seperator not found on header: %q", string(fieldLine))
	}

	// Responses are parsed leniently here: whitespace around the name is
	// dropped instead of rejected, since the peer already sent the bytes.
	for _, c := range OWS {
		name = bytes.Trim(name, string([]byte{c}))
		value = bytes.Trim(value, string([]byte{c}))
	}

	return Field{Name: name, Value: value}, nil
}

func (f *Field) Text() []byte {
	buf := bytes.NewBuffer(nil)
	buf.Write(f.Name)
	buf.Write([]byte(": "))
	buf.Write(f.Value)
	return buf.Bytes()
}

// StatusLine is a parsed response status line. If the line did not form a
// well-formed "VERSION CODE REASON" triplet, Code is zero and Raw keeps the
// line verbatim as an opaque status.
type StatusLine struct {
	Version Version
	Code    int
	Reason  string
	Raw     string
}

// ParseStatusLine never fails: a malformed line is kept opaque in Raw.
func ParseStatusLine(line []byte) StatusLine {
	raw := string(line)

	parts := bytes.SplitN(line, []byte{SP}, 3)
	if len(parts) < 2 {
		return StatusLine{Raw: raw}
	}

	ver, err := ParseVersion(parts[0])
	if err != nil {
		return StatusLine{Raw: raw}
	}

	code, err := strconv.ParseUint(string(parts[1]), 10, 64)
	if err != nil || len(parts[1]) != 3 {
		return StatusLine{Raw: raw}
	}

	// reason-phrase is optional.
	reason := ""
	if len(parts) == 3 {
		reason = string(parts[2])
	}

	return StatusLine{Version: ver, Code: int(code), Reason: reason, Raw: raw}
}

// CanonicalFieldName uppercases the first letter of each dash-separated
// segment ("content-length" -> "Content-Length"). Only sensible for valid
// tokens; anything else is returned unchanged.
func CanonicalFieldName(s string) string {
	const capitalDiff = 'a' - 'A'
	b := []byte(s)
	upper := true
	for i, c := range b {
		if upper && 'a' <= c && c <= 'z' {
			c -= capitalDiff
		} else if !upper && 'A' <= c && c <= 'Z' {
			c += capitalDiff
		}
		b[i] = c
		upper = c == '-'
	}
	return string(b)
}
