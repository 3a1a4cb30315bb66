package apierrors

import (
	"github.com/gin-gonic/gin"
)

// Envelope is the JSON body of every error response.
type Envelope struct {
	Success   bool     `json:"success"`
	Status    int      `json:"status"`
	ErrorCode string   `json:"errorCode"`
	Message   string   `json:"message"`
	Errors    []string `json:"errors,omitempty"`
}

// NewEnvelope builds an envelope for code; an empty message uses the registered default.
func NewEnvelope(code, message string, details ...string) Envelope {
	if message == "" {
		message = Registry.Message(code)
	}
	return Envelope{
		Success:   false,
		Status:    Registry.HTTPStatus(code),
		ErrorCode: code,
		Message:   message,
		Errors:    details,
	}
}

// ErrorWithMessage sends an error response with a custom message and aborts
// the handler chain. An empty message uses the registered default.
func ErrorWithMessage(c *gin.Context, code, message string) {
	env := NewEnvelope(code, message)
	c.AbortWithStatusJSON(env.Status, env)
}

// Abort converts err into the error envelope. Non-taxonomy errors are
// downgraded to SERVER_ERROR; the underlying error is attached to the gin
// context so the request logger records it.
func Abort(c *gin.Context, err error) {
	apiErr, ok := As(err)
	if !ok {
		apiErr = Internal(err)
	}
	if apiErr.Code == CodeServerError {
		_ = c.Error(err)
	}
	env := NewEnvelope(apiErr.Code, apiErr.Message, apiErr.Errors...)
	c.AbortWithStatusJSON(env.Status, env)
}
