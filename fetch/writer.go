package fetch

import (
	"bytes"
	"strconv"
	"strings"

	"urlfetch/httpwire"

	"github.com/pkg/errors"
)

const imfFixDateFormat = "Mon, 02 Jan 2006 15:04:05 GMT"

// headerLine is one built-in (or extra) request header in wire order.
type headerLine struct {
	name  string
	value string
}

// buildRequest serializes the request line, header block and body for the
// descriptor's current target.
func (e *Engine) buildRequest(d *Descriptor) ([]byte, error) {
	target := d.parsed.RequestTarget()

	var body []byte
	var contentType, transferEncoding string

	if d.opts.Body != nil {
		if d.opts.Method == MethodGet {
			// A GET payload travels in the query string instead.
			qs, err := encodeQuery(d.opts.Body, d.opts.BodyCharset)
			if err != nil {
				return nil, err
			}
			sep := "?"
			if strings.Contains(target, "?") {
				sep = "&"
			}
			target += sep + qs
		} else {
			var err error
			body, contentType, transferEncoding, err = encodeBody(
				d.opts.Body, d.opts.BodyEncoding, d.opts.BodyCharset,
			)
			if err != nil {
				return nil, errors.Wrap(err, "encoding body")
			}
		}
	}

	lines, err := e.builtinHeaders(d, body, contentType, transferEncoding)
	if err != nil {
		return nil, err
	}
	lines = applyOverrides(lines, d.opts.Headers)

	buf := bytes.NewBuffer(nil)
	buf.WriteString(string(d.opts.Method))
	buf.WriteByte(httpwire.SP)
	buf.WriteString(target)
	buf.WriteByte(httpwire.SP)
	buf.Write(httpwire.Version11.Text())
	buf.Write(httpwire.CRLF)

	for _, line := range lines {
		buf.WriteString(line.name)
		buf.WriteString(": ")
		buf.WriteString(line.value)
		buf.Write(httpwire.CRLF)
	}
	buf.Write(httpwire.CRLF)
	buf.Write(body)

	return buf.Bytes(), nil
}

// builtinHeaders assembles the default header block, in wire order.
func (e *Engine) builtinHeaders(d *Descriptor, body []byte, contentType, transferEncoding string) ([]headerLine, error) {
	lines := []headerLine{
		{"User-Agent", e.userAgent},
		{"Connection", "close"},
	}

	if e.decompress != nil {
		lines = append(lines, headerLine{"Accept-Encoding", "gzip"})
	}
	lines = append(lines, headerLine{"Accept", "*/*"})

	if body != nil {
		lines = append(lines, headerLine{"Content-Type", contentType})
		if transferEncoding != "" {
			lines = append(lines, headerLine{"Content-Transfer-Encoding", transferEncoding})
		}
		lines = append(lines, headerLine{"Content-Length", strconv.Itoa(len(body))})
	}

	if d.opts.Cookies.Writes() && e.cookies != nil {
		list := e.cookies.Retrieve(d.parsed.Host, d.parsed.Path, d.parsed.Scheme == "https")
		if len(list) > 0 {
			pairs := make([]string, len(list))
			for i, c := range list {
				pairs[i] = c.Pair()
			}
			lines = append(lines, headerLine{"Cookie", strings.Join(pairs, "; ")})
		}
	}

	host, err := d.parsed.ASCIIHost()
	if err != nil {
		return nil, err
	}
	lines = append(lines, headerLine{"Host", d.parsed.HostPort(host)})

	if d.opts.Cache.Reads() && e.cache != nil {
		if modified, ok := e.cache.Lookup(d.requestURL()); ok {
			lines = append(lines, headerLine{
				"If-Modified-Since", modified.UTC().Format(imfFixDateFormat),
			})
		}
	}

	return lines, nil
}

// applyOverrides lets caller-supplied headers win by name over built-ins:
// a non-nil value replaces in place, a nil value suppresses the built-in
// entirely, and unmatched overrides are appended in their given order.
func applyOverrides(lines []headerLine, overrides []HeaderOverride) []headerLine {
	for _, o := range overrides {
		matched := false
		kept := lines[:0]
		for _, line := range lines {
			if strings.EqualFold(line.name, o.Name) {
				matched = true
				if o.Value == nil {
					continue // suppressed
				}
				line.value = *o.Value
			}
			kept = append(kept, line)
		}
		lines = kept

		if !matched && o.Value != nil {
			lines = append(lines, headerLine{o.Name, *o.Value})
		}
	}

	return lines
}
