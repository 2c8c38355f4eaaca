package authfilter

import (
	"net/http"
)

// Request is the part of an inbound HTTP request the filter looks at.
// The filter never writes to a Request it is given; header injection
// happens on a Clone.
type Request struct {
	Method string
	Path   string
	Header http.Header
}

// NewRequest copies header so later changes by the caller do not leak in.
// Keys are canonicalized, so lookups are case-insensitive.
func NewRequest(method, path string, header http.Header) *Request {
	h := make(http.Header, len(header))
	for k, values := range header {
		for _, v := range values {
			h.Add(k, v)
		}
	}
	return &Request{
		Method: method,
		Path:   path,
		Header: h,
	}
}

// FromHTTP snapshots method, URL path and headers of r.
func FromHTTP(r *http.Request) *Request {
	return NewRequest(r.Method, r.URL.Path, r.Header)
}

// Clone returns a deep copy of the request.
func (r *Request) Clone() *Request {
	return NewRequest(r.Method, r.Path, r.Header)
}

type TokenType string

const (
	TokenTypeAccess  TokenType = "access"
	TokenTypeRefresh TokenType = "refresh"
)

// TokenClaims is the caller identity read from a verified token.
type TokenClaims struct {
	UserID    string
	Roles     []string
	TokenType TokenType
}

// Reason records why a decision was taken. It feeds logs, spans and
// metrics and is never written to the response.
type Reason string

const (
	ReasonWhitelisted    Reason = "whitelisted"
	ReasonAnonymous      Reason = "anonymous"
	ReasonAuthenticated  Reason = "authenticated"
	ReasonInvalidToken   Reason = "invalid_token"
	ReasonRevoked        Reason = "revoked"
	ReasonNotAccessToken Reason = "not_access_token"
	ReasonFault          Reason = "fault"
)

// Decision is either Forward(request) or Reject(status).
type Decision struct {
	forward bool
	request *Request
	status  int
	reason  Reason
}

// Forward passes req on to the next stage.
func Forward(req *Request) Decision {
	return Decision{forward: true, request: req}
}

// Reject stops the chain with status and an empty body.
func Reject(status int) Decision {
	return Decision{status: status}
}

func (d Decision) because(reason Reason) Decision {
	d.reason = reason
	return d
}

func (d Decision) IsForward() bool {
	return d.forward
}

// Request is the request to forward; nil for a rejection.
func (d Decision) Request() *Request {
	return d.request
}

// Status is the rejection status; zero for a forward.
func (d Decision) Status() int {
	return d.status
}

func (d Decision) Reason() Reason {
	return d.reason
}

// Outcome is "forward" or "reject".
func (d Decision) Outcome() string {
	if d.forward {
		return "forward"
	}
	return "reject"
}
