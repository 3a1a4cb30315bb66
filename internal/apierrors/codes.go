// Package apierrors provides the error taxonomy shared by services and handlers,
// the code registry that maps each code to an HTTP status, and the JSON error envelope.
package apierrors

import "net/http"

// Core error codes - registered automatically at init
const (
	CodeBadRequest       = "BAD_REQUEST"
	CodeUnauthorized     = "UNAUTHORIZED"
	CodeForbidden        = "FORBIDDEN"
	CodeNotFound         = "NOT_FOUND"
	CodeConflict         = "CONFLICT"
	CodeValidationFailed = "VALIDATION_ERROR"
	CodeTooManyRequests  = "TOO_MANY_REQUESTS"
	CodeServerError      = "SERVER_ERROR"
)

// coreErrors defines all core error codes with their default messages and HTTP status
var coreErrors = []ErrorCode{
	{Code: CodeBadRequest, Message: "Invalid request", HTTPStatus: http.StatusBadRequest},
	{Code: CodeUnauthorized, Message: "Unauthorized request", HTTPStatus: http.StatusUnauthorized},
	{Code: CodeForbidden, Message: "Permission denied", HTTPStatus: http.StatusForbidden},
	{Code: CodeNotFound, Message: "Resource not found", HTTPStatus: http.StatusNotFound},
	{Code: CodeConflict, Message: "Resource conflict", HTTPStatus: http.StatusConflict},
	{Code: CodeValidationFailed, Message: "Request validation failed", HTTPStatus: http.StatusUnprocessableEntity},
	{Code: CodeTooManyRequests, Message: "Too many requests", HTTPStatus: http.StatusTooManyRequests},
	{Code: CodeServerError, Message: "Internal server error", HTTPStatus: http.StatusInternalServerError},
}

func init() {
	for _, e := range coreErrors {
		Registry.Register(e)
	}
}
