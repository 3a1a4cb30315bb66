package apierrors

import (
	"net/http"
	"sync"
)

// ErrorCode represents a registered API error code
type ErrorCode struct {
	Code       string `json:"code"`
	Message    string `json:"message"`     // Default English message
	HTTPStatus int    `json:"http_status"` // HTTP status the code is always sent with
}

type registry struct {
	mu       sync.RWMutex
	codes    map[string]ErrorCode
	byStatus map[int]string
}

// Registry is the global error code registry
var Registry = &registry{
	codes:    make(map[string]ErrorCode),
	byStatus: make(map[int]string),
}

// Register adds an error code to the registry. The first code registered for
// a status becomes the code reported for that status by CodeForStatus.
func (r *registry) Register(e ErrorCode) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.codes[e.Code] = e
	if _, taken := r.byStatus[e.HTTPStatus]; !taken {
		r.byStatus[e.HTTPStatus] = e.Code
	}
}

// Get returns an error code by its code string
func (r *registry) Get(code string) (ErrorCode, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	e, ok := r.codes[code]
	return e, ok
}

// All returns all registered error codes
func (r *registry) All() []ErrorCode {
	r.mu.RLock()
	defer r.mu.RUnlock()

	result := make([]ErrorCode, 0, len(r.codes))
	for _, e := range r.codes {
		result = append(result, e)
	}
	return result
}

// HTTPStatus returns the HTTP status for a code, or 500 if unknown
func (r *registry) HTTPStatus(code string) int {
	if e, ok := r.Get(code); ok {
		return e.HTTPStatus
	}
	return http.StatusInternalServerError
}

// Message returns the default message for a code, or the code itself if unknown
func (r *registry) Message(code string) string {
	if e, ok := r.Get(code); ok {
		return e.Message
	}
	return code
}

// CodeForStatus maps an HTTP status back to its symbolic code. Unknown
// statuses map to "ERROR".
func (r *registry) CodeForStatus(status int) string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if code, ok := r.byStatus[status]; ok {
		return code
	}
	return "ERROR"
}
