package fetch

import (
	"strconv"

	"urlfetch/httpwire"
)

// Status is the final outcome of one fetch attempt: either parsed from the
// wire or synthesized by the engine. A malformed status line keeps Code
// zero and the verbatim line in Raw.
type Status struct {
	Code   int
	Reason string
	Raw    string
}

func (s Status) OK() bool { return s.Code >= 200 && s.Code <= 299 }

func statusFromLine(line httpwire.StatusLine) Status {
	return Status{Code: line.Code, Reason: line.Reason, Raw: line.Raw}
}

func synthetic(code int, reason string) Status {
	return Status{
		Code:   code,
		Reason: reason,
		Raw:    "HTTP/1.1 " + strconv.Itoa(code) + " " + reason,
	}
}

// Every engine-made failure is surfaced as one of these statuses through
// the normal completion path; there is no separate error channel.
var (
	statusOK                  = synthetic(200, "OK")
	statusTimerExpired        = synthetic(500, "Timer expired")
	statusInvalidData         = synthetic(500, "Invalid data")
	statusUnsupportedURL      = synthetic(500, "Unsupported URL")
	statusProxyRedirect       = synthetic(500, "Redirection through proxy server not supported")
	statusTooManyRedirects    = synthetic(500, "Too many redirections")
	statusRedirectNotFollowed = synthetic(200, "Redirect not followed")
)
