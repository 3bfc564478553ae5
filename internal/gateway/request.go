package gateway

import (
	"net/http"
	"net/url"

	"github.com/google/uuid"
)

// State is where a request sits in its recovery lifecycle.
//
//	Sent → Done
//	Sent → Refreshing → RetrySent → Done
//	Sent → Refreshing → LoggedOut → Done
type State int

const (
	StateNew State = iota
	StateSent
	StateRefreshing
	StateRetrySent
	StateLoggedOut
	StateDone
)

func (s State) String() string {
	switch s {
	case StateNew:
		return "new"
	case StateSent:
		return "sent"
	case StateRefreshing:
		return "refreshing"
	case StateRetrySent:
		return "retry_sent"
	case StateLoggedOut:
		return "logged_out"
	case StateDone:
		return "done"
	}
	return "unknown"
}

// Request describes one call to the CRM API. A Request carries its own
// retry flag and must not be shared between concurrent Do calls.
type Request struct {
	Method string
	Path   string
	Query  url.Values
	Body   any
	// SkipAuthRecovery disables refresh-and-retry on 401. Auth endpoints set
	// it so a rejected login or refresh is reported as-is.
	SkipAuthRecovery bool

	id        string
	retried   bool
	sentToken string
	state     State
	history   []State
}

// NewRequest builds a request for method and path relative to the API base.
func NewRequest(method, path string) *Request {
	return &Request{Method: method, Path: path}
}

// Get is shorthand for a GET request with optional query parameters.
func Get(path string, query url.Values) *Request {
	return &Request{Method: http.MethodGet, Path: path, Query: query}
}

// Post is shorthand for a POST request with a JSON body.
func Post(path string, body any) *Request {
	return &Request{Method: http.MethodPost, Path: path, Body: body}
}

// Put is shorthand for a PUT request with a JSON body.
func Put(path string, body any) *Request {
	return &Request{Method: http.MethodPut, Path: path, Body: body}
}

// Delete is shorthand for a DELETE request.
func Delete(path string) *Request {
	return &Request{Method: http.MethodDelete, Path: path}
}

// ID is the correlation id sent as X-Request-ID.
func (r *Request) ID() string {
	if r.id == "" {
		r.id = uuid.NewString()
	}
	return r.id
}

// Retried reports whether the request already went through a refresh.
func (r *Request) Retried() bool {
	return r.retried
}

// State returns the current lifecycle state.
func (r *Request) State() State {
	return r.state
}

// History lists every state the request entered, in order.
func (r *Request) History() []State {
	return append([]State(nil), r.history...)
}

func (r *Request) enter(s State) {
	r.state = s
	r.history = append(r.history, s)
}
