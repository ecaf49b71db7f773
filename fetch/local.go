package fetch

import (
	"encoding/base64"
	"mime"
	"net/url"
	"os"
	"path/filepath"
	"strings"

	"urlfetch/httpwire"
)

// fetchData decodes an inline data: URL synchronously. The payload is
// percent-decoded, then base64-decoded when the ;base64 flag is present;
// any malformed input surfaces as 500 "Invalid data".
func (e *Engine) fetchData(d *Descriptor) {
	d.local = true

	raw := d.requestURL()
	_, rest, found := strings.Cut(raw, ":")
	if !found {
		e.fail(d, statusInvalidData)
		return
	}

	meta, payload, found := strings.Cut(rest, ",")
	if !found {
		e.fail(d, statusInvalidData)
		return
	}

	mediaType := "text/plain"
	isBase64 := false
	for i, part := range strings.Split(meta, ";") {
		switch {
		case strings.EqualFold(part, "base64"):
			isBase64 = true
		case i == 0 && part != "":
			mediaType = part
		}
	}

	decoded, err := url.PathUnescape(payload)
	if err != nil {
		e.fail(d, statusInvalidData)
		return
	}

	body := []byte(decoded)
	if isBase64 {
		body, err = base64.StdEncoding.DecodeString(decoded)
		if err != nil {
			e.fail(d, statusInvalidData)
			return
		}
	}

	d.headers = httpwire.NewHeaders()
	d.headers.Set("Content-Type", mediaType)
	d.body = body
	d.override = &statusOK
	e.complete(d)
}

// fetchFile reads a file: URL from the local filesystem synchronously. A
// read failure surfaces as a 500 carrying the underlying error text.
func (e *Engine) fetchFile(d *Descriptor) {
	d.local = true

	path, err := url.PathUnescape(d.parsed.Path)
	if err != nil {
		e.fail(d, synthetic(500, err.Error()))
		return
	}

	body, err := os.ReadFile(path)
	if err != nil {
		e.fail(d, synthetic(500, err.Error()))
		return
	}

	d.headers = httpwire.NewHeaders()
	if contentType := mime.TypeByExtension(filepath.Ext(path)); contentType != "" {
		d.headers.Set("Content-Type", contentType)
	}
	d.body = body
	d.override = &statusOK
	e.complete(d)
}
