package fetch

import (
	"bytes"
	"log/slog"
	"strings"

	"urlfetch/httpwire"
)

// parseHead parses the status line and header block out of the buffered
// prefix, replacing any result from a prior attempt wholesale.
func (e *Engine) parseHead(d *Descriptor) Status {
	d.headers = httpwire.NewHeaders()
	d.fields = nil

	if d.headerEnd < 0 {
		// Header block never completed (early close, timeout).
		return Status{}
	}

	block := d.buf[:d.headerEnd]
	lines := bytes.Split(block, []byte{httpwire.LF})

	var status Status
	seenStatus := false
	for _, line := range lines {
		line = bytes.TrimSuffix(line, []byte{httpwire.CR})
		if len(line) == 0 {
			continue
		}

		if !seenStatus {
			status = statusFromLine(httpwire.ParseStatusLine(line))
			seenStatus = true
			continue
		}

		field, err := httpwire.ParseField(line)
		if err != nil {
			continue // tolerate junk lines in the header block
		}
		d.fields = append(d.fields, field)
	}

	d.headers = httpwire.HeadersFrom(d.fields)
	return status
}

// finishBody turns the raw buffer into the final body: header block
// stripped, chunk framing removed, declared gzip inflated, line endings
// normalized for textual content.
func (e *Engine) finishBody(d *Descriptor) {
	if d.headerEnd < 0 {
		d.body = nil
		return
	}

	body := d.buf[d.headerEnd:]

	// A peer may deliver bytes past the declared frame size in the same
	// segment; only the framed portion belongs to the body.
	if d.expected >= 0 && len(d.buf) > d.expected {
		body = d.buf[d.headerEnd:d.expected]
	}

	if d.chunked {
		body = dechunk(body)
	}

	if enc, ok := d.headers.Get("Content-Encoding"); ok && e.decompress != nil {
		if strings.Contains(strings.ToLower(enc), "gzip") {
			inflated, err := e.decompress(body)
			if err != nil {
				e.logFor(d).Warn("failed to decompress body", slog.Any("error", err))
			} else {
				body = inflated
			}
		}
	}

	if contentType, _ := d.headers.Get("Content-Type"); isTextual(contentType) {
		body = bytes.ReplaceAll(body, httpwire.CRLF, []byte{httpwire.LF})
	}

	d.body = body
}

// dechunk strips chunk framing, leaving only the concatenated payloads.
// The terminal zero chunk and anything after it (trailers) contribute no
// bytes.
func dechunk(b []byte) []byte {
	out := make([]byte, 0, len(b))

	pos := 0
	for {
		line, next := chunkLine(b, pos)
		if next < 0 {
			break
		}

		size, err := parseChunkSize(line)
		if err != nil || size == 0 {
			break
		}

		end := next + size
		if end > len(b) {
			// Truncated chunk; keep what is there.
			out = append(out, b[next:]...)
			break
		}

		out = append(out, b[next:end]...)
		pos = end + len(httpwire.CRLF)
	}

	return out
}

// isTextual reports whether CRLF normalization applies. An absent content
// type defaults to textual.
func isTextual(contentType string) bool {
	if contentType == "" {
		return true
	}
	return strings.HasPrefix(strings.ToLower(contentType), "text/")
}
