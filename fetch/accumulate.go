package fetch

import (
	"bytes"
	"strconv"
	"strings"

	"urlfetch/httpwire"
)

// receive handles one inbound fragment: append, bump the activity stamp,
// and try to pin down the total frame size. Input may be arbitrarily
// fragmented; every decision here must hold on partial data.
func (e *Engine) receive(d *Descriptor, chunk []byte) {
	d.buf = append(d.buf, chunk...)
	d.lastActivity = e.clock.Now()

	if d.headerEnd < 0 {
		if end := findHeaderEnd(d.buf); end >= 0 {
			d.headerEnd = end
			e.examineHead(d)
		}
	}

	if d.chunked && !d.framed {
		walkChunks(d)
	}

	if d.expected >= 0 && len(d.buf) >= d.expected {
		e.complete(d)
	}
}

// findHeaderEnd locates the blank line terminating the header block,
// tolerating a bare LF as well as CRLF. Returns the body start offset,
// -1 while the block is still incomplete.
func findHeaderEnd(buf []byte) int {
	for i := 0; i < len(buf); i++ {
		if buf[i] != httpwire.LF {
			continue
		}
		j := i + 1
		if j < len(buf) && buf[j] == httpwire.CR {
			j++
		}
		if j < len(buf) && buf[j] == httpwire.LF {
			return j + 1
		}
	}
	return -1
}

// examineHead decides the framing strategy once the header block is seen.
// The search is bounded to the block so that a stray "Content-Length"
// inside an unparsed body can't match.
func (e *Engine) examineHead(d *Descriptor) {
	block := d.buf[:d.headerEnd]

	if v, ok := headValue(block, "Content-Length"); ok {
		if n, err := strconv.Atoi(strings.TrimSpace(v)); err == nil && n >= 0 {
			d.expected = d.headerEnd + n
			return
		}
	}

	if v, ok := headValue(block, "Transfer-Encoding"); ok {
		if strings.Contains(strings.ToLower(v), "chunked") {
			d.chunked = true
			d.chunkScan = d.headerEnd
			return
		}
	}

	// Neither: the body is close-delimited, completion is driven solely
	// by the peer-closed event.
}

// headValue scans the raw header block for a field, case-insensitively.
func headValue(block []byte, name string) (string, bool) {
	lines := bytes.Split(block, []byte{httpwire.LF})
	if len(lines) == 0 {
		return "", false
	}

	for _, line := range lines[1:] { // skip the status line
		line = bytes.TrimSuffix(line, []byte{httpwire.CR})
		k, v, found := bytes.Cut(line, []byte{':'})
		if !found {
			continue
		}
		if strings.EqualFold(strings.TrimSpace(string(k)), name) {
			return strings.TrimSpace(string(v)), true
		}
	}
	return "", false
}

// walkChunks advances over complete chunks: a hex size line, that many
// payload bytes, a trailing CRLF. A zero-size chunk is the terminal
// marker; the expected frame size then snaps to whatever has been
// buffered, trailers included.
func walkChunks(d *Descriptor) {
	pos := d.chunkScan
	for {
		line, next := chunkLine(d.buf, pos)
		if next < 0 {
			break // size line not complete yet
		}

		size, err := parseChunkSize(line)
		if err != nil {
			// Unwalkable framing; fall back to waiting for close.
			break
		}

		if size == 0 {
			d.framed = true
			d.expected = len(d.buf)
			return
		}

		after := next + size + len(httpwire.CRLF)
		if after > len(d.buf) {
			break // chunk payload not complete yet
		}
		pos = after
	}

	d.chunkScan = pos
}

// chunkLine extracts the line starting at pos. next is the offset just
// past the terminator, -1 if the line is not complete yet.
func chunkLine(buf []byte, pos int) (line []byte, next int) {
	idx := bytes.IndexByte(buf[pos:], httpwire.LF)
	if idx < 0 {
		return nil, -1
	}

	line = buf[pos : pos+idx]
	line = bytes.TrimSuffix(line, []byte{httpwire.CR})
	return line, pos + idx + 1
}

func parseChunkSize(line []byte) (int, error) {
	// Drop chunk extensions.
	sizeRaw, _, _ := bytes.Cut(line, []byte{';'})
	sizeRaw = bytes.TrimFunc(sizeRaw, httpwire.IsWhitespace)

	size, err := strconv.ParseUint(string(sizeRaw), 16, 32)
	return int(size), err
}
