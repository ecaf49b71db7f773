// Package cache is the response-cache collaborator. The engine asks it for
// a last-modified stamp to drive If-Modified-Since, hands it successful GET
// bodies, and reads the stored bytes back when the server answers 304.
package cache

import "time"

type Store interface {
	// Lookup reports when the cached entry for url was last modified.
	Lookup(url string) (modified time.Time, ok bool)

	// Load returns the cached bytes for url.
	Load(url string) (body []byte, ok bool)

	// Put stores the final body bytes for url.
	Put(url string, body []byte, modified time.Time) error
}
