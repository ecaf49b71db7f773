package fetch

import (
	"bytes"
	"encoding/base64"
	"io"
	"mime/multipart"
	"net/url"
	"strings"

	"github.com/pkg/errors"
	"golang.org/x/text/encoding/htmlindex"
)

// encodeQuery renders a body as a query string (always url-encoded; used
// for GET payloads).
func encodeQuery(body Body, charset string) (string, error) {
	switch b := body.(type) {
	case Raw:
		// Raw payloads are trusted to be pre-encoded.
		return string(b), nil
	case Fields:
		return encodeFields(b, charset)
	default:
		return "", errors.Errorf("unknown body variant %T", body)
	}
}

// encodeBody renders the request payload per the selected encoding mode,
// returning the bytes plus the derived Content-Type and (for base64) the
// Content-Transfer-Encoding.
func encodeBody(body Body, enc Encoding, charset string) (data []byte, contentType, transferEncoding string, err error) {
	switch enc {
	case EncodingMultipart:
		if fields, ok := body.(Fields); ok {
			return encodeMultipart(fields, charset)
		}
		// A raw payload has no parts to delimit; fall through to the
		// url-encoded content type.
		fallthrough

	case EncodingURL:
		payload, err := encodeQuery(body, charset)
		if err != nil {
			return nil, "", "", err
		}
		return []byte(payload), urlEncodedContentType(charset), "", nil

	case EncodingBase64:
		// The payload is base64-encoded but still declared as url-encoded
		// content, matching what servers written against this engine
		// expect.
		payload, err := encodeQuery(body, charset)
		if err != nil {
			return nil, "", "", err
		}
		encoded := base64.StdEncoding.EncodeToString([]byte(payload))
		return []byte(encoded), urlEncodedContentType(charset), "base64", nil

	default:
		return nil, "", "", errors.Errorf("unknown body encoding %d", enc)
	}
}

func urlEncodedContentType(charset string) string {
	ct := "application/x-www-form-urlencoded"
	if charset != "" {
		ct += "; charset=" + charset
	}
	return ct
}

func encodeFields(fields Fields, charset string) (string, error) {
	parts := make([]string, 0, len(fields))
	for _, f := range fields {
		value, err := convertCharset(f.Value, charset)
		if err != nil {
			return "", err
		}
		parts = append(parts, url.QueryEscape(f.Name)+"="+url.QueryEscape(value))
	}
	return strings.Join(parts, "&"), nil
}

func encodeMultipart(fields Fields, charset string) (data []byte, contentType, transferEncoding string, err error) {
	buf := bytes.NewBuffer(nil)
	mw := multipart.NewWriter(buf)

	for _, f := range fields {
		value, err := convertCharset(f.Value, charset)
		if err != nil {
			return nil, "", "", err
		}

		var part io.Writer
		if f.Filename != "" {
			part, err = mw.CreateFormFile(f.Name, f.Filename)
		} else {
			part, err = mw.CreateFormField(f.Name)
		}
		if err != nil {
			return nil, "", "", errors.Wrap(err, "creating part")
		}

		if _, err := part.Write([]byte(value)); err != nil {
			return nil, "", "", errors.Wrap(err, "writing part")
		}
	}

	if err := mw.Close(); err != nil {
		return nil, "", "", errors.Wrap(err, "closing multipart body")
	}

	return buf.Bytes(), mw.FormDataContentType(), "", nil
}

// convertCharset re-encodes a UTF-8 value into the declared body charset.
func convertCharset(value, charset string) (string, error) {
	if charset == "" || strings.EqualFold(charset, "utf-8") {
		return value, nil
	}

	enc, err := htmlindex.Get(charset)
	if err != nil {
		return "", errors.Wrapf(err, "unknown charset %q", charset)
	}

	out, err := enc.NewEncoder().String(value)
	if err != nil {
		return "", errors.Wrapf(err, "converting to %q", charset)
	}
	return out, nil
}
