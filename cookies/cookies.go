// Package cookies holds the cookie collaborator of the fetch engine: a Jar
// the request writer reads from and the completion path writes Set-Cookie
// values into. Retrieval order is most-specific-path-first, matching how
// the Cookie header is conventionally assembled.
package cookies

import (
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/pkg/errors"
)

type Cookie struct {
	Name   string
	Value  string
	Domain string
	Path   string
	Secure bool

	// Expires is zero for session cookies.
	Expires time.Time
}

// Pair renders the cookie as sent on the wire.
func (c Cookie) Pair() string { return c.Name + "=" + c.Value }

type Jar interface {
	// Retrieve returns the cookies applicable to host/path, most specific
	// path first.
	Retrieve(host, path string, secure bool) []Cookie

	// Store records one Set-Cookie header value received from host.
	Store(host, setCookieValue string) error
}

// MemoryJar is an in-process Jar. Safe for concurrent use.
type MemoryJar struct {
	clock clock.Clock

	mu      sync.Mutex
	cookies []Cookie
}

var _ Jar = (*MemoryJar)(nil)

func NewMemoryJar(clk clock.Clock) *MemoryJar {
	if clk == nil {
		clk = clock.New()
	}
	return &MemoryJar{clock: clk}
}

var ErrMalformedCookie = errors.New("malformed set-cookie value")

func (j *MemoryJar) Store(host, setCookieValue string) error {
	cookie, err := parseSetCookie(host, setCookieValue, j.clock.Now())
	if err != nil {
		return err
	}

	j.mu.Lock()
	defer j.mu.Unlock()

	for i, existing := range j.cookies {
		if existing.Name == cookie.Name &&
			existing.Domain == cookie.Domain &&
			existing.Path == cookie.Path {
			j.cookies[i] = cookie
			return nil
		}
	}

	j.cookies = append(j.cookies, cookie)
	return nil
}

func (j *MemoryJar) Retrieve(host, path string, secure bool) []Cookie {
	now := j.clock.Now()
	if path == "" {
		path = "/"
	}

	j.mu.Lock()
	defer j.mu.Unlock()

	matched := make([]Cookie, 0)
	for _, c := range j.cookies {
		if !c.Expires.IsZero() && !c.Expires.After(now) {
			continue
		}
		if c.Secure && !secure {
			continue
		}
		if !domainMatch(host, c.Domain) || !pathMatch(path, c.Path) {
			continue
		}
		matched = append(matched, c)
	}

	sort.SliceStable(matched, func(i, k int) bool {
		return len(matched[i].Path) > len(matched[k].Path)
	})

	return matched
}

func parseSetCookie(host, value string, now time.Time) (Cookie, error) {
	parts := strings.Split(value, ";")

	name, val, found := strings.Cut(strings.TrimSpace(parts[0]), "=")
	if !found || name == "" {
		return Cookie{}, ErrMalformedCookie
	}

	cookie := Cookie{
		Name:   name,
		Value:  val,
		Domain: host,
		Path:   "/",
	}

	for _, part := range parts[1:] {
		k, v, _ := strings.Cut(strings.TrimSpace(part), "=")
		switch strings.ToLower(k) {
		case "domain":
			cookie.Domain = strings.TrimPrefix(v, ".")
		case "path":
			if strings.HasPrefix(v, "/") {
				cookie.Path = v
			}
		case "secure":
			cookie.Secure = true
		case "max-age":
			secs, err := strconv.ParseInt(v, 10, 64)
			if err == nil {
				cookie.Expires = now.Add(time.Duration(secs) * time.Second)
			}
		case "expires":
			if cookie.Expires.IsZero() {
				// Max-Age wins over Expires.
				if t, err := parseCookieDate(v); err == nil {
					cookie.Expires = t
				}
			}
		}
	}

	return cookie, nil
}

func parseCookieDate(v string) (time.Time, error) {
	for _, layout := range []string{
		time.RFC1123,
		"Mon, 02-Jan-2006 15:04:05 MST",
		time.ANSIC,
	} {
		if t, err := time.Parse(layout, v); err == nil {
			return t, nil
		}
	}
	return time.Time{}, errors.Errorf("unrecognized cookie date: %q", v)
}

func domainMatch(host, domain string) bool {
	host = strings.ToLower(host)
	domain = strings.ToLower(domain)

	return host == domain || strings.HasSuffix(host, "."+domain)
}

func pathMatch(requestPath, cookiePath string) bool {
	if requestPath == cookiePath {
		return true
	}
	if !strings.HasPrefix(requestPath, cookiePath) {
		return false
	}
	return strings.HasSuffix(cookiePath, "/") ||
		requestPath[len(cookiePath)] == '/'
}
