// Package urlutil wraps the URL collaborators the fetch engine relies on:
// syntax parsing (net/url) and IDNA host encoding (x/net/idna). The engine
// itself never touches URL grammar.
package urlutil

import (
	"net/url"
	"strconv"
	"strings"

	"github.com/pkg/errors"
	"golang.org/x/net/idna"
)

// URL is the parsed form of a fetch target.
type URL struct {
	Scheme   string
	Host     string
	Port     uint16 // 0 means "use the scheme default".
	Path     string
	RawQuery string
	User     string
}

func Parse(raw string) (*URL, error) {
	parsed, err := url.Parse(raw)
	if err != nil {
		return nil, errors.Wrap(err, "parsing url")
	}

	u := &URL{
		Scheme:   strings.ToLower(parsed.Scheme),
		Host:     parsed.Hostname(),
		Path:     parsed.EscapedPath(),
		RawQuery: parsed.RawQuery,
	}

	if parsed.User != nil {
		u.User = parsed.User.Username()
	}

	if p := parsed.Port(); p != "" {
		port, err := strconv.ParseUint(p, 10, 16)
		if err != nil {
			return nil, errors.Wrapf(err, "parsing port %q", p)
		}
		u.Port = uint16(port)
	}

	return u, nil
}

// EffectivePort is the explicit port, or the scheme default.
func (u *URL) EffectivePort() uint16 {
	if u.Port != 0 {
		return u.Port
	}
	return DefaultPort(u.Scheme)
}

func DefaultPort(scheme string) uint16 {
	switch scheme {
	case "https":
		return 443
	default:
		return 80
	}
}

// ASCIIHost returns the IDNA (punycode) form of the host, suitable for the
// Host header and for dialing.
func (u *URL) ASCIIHost() (string, error) {
	host, err := idna.Lookup.ToASCII(u.Host)
	if err != nil {
		// Fall back to the raw host; registration rules are stricter
		// than what servers actually accept.
		host, err = idna.ToASCII(u.Host)
		if err != nil {
			return "", errors.Wrapf(err, "encoding host %q", u.Host)
		}
	}
	return host, nil
}

// RequestTarget is the origin-form target for the request line.
func (u *URL) RequestTarget() string {
	target := u.Path
	if target == "" {
		target = "/"
	}
	if u.RawQuery != "" {
		target += "?" + u.RawQuery
	}
	return target
}

// HostPort renders host:port, omitting the port when it is the scheme
// default.
func (u *URL) HostPort(asciiHost string) string {
	if u.Port != 0 && u.Port != DefaultPort(u.Scheme) {
		return asciiHost + ":" + strconv.FormatUint(uint64(u.Port), 10)
	}
	return asciiHost
}

// Resolve resolves ref (possibly relative, as in a Location header)
// against base.
func Resolve(base, ref string) (string, error) {
	b, err := url.Parse(base)
	if err != nil {
		return "", errors.Wrap(err, "parsing base url")
	}
	r, err := url.Parse(strings.TrimSpace(ref))
	if err != nil {
		return "", errors.Wrap(err, "parsing reference")
	}
	return b.ResolveReference(r).String(), nil
}
