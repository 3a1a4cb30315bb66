package api

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/goatkit/issueflow/internal/apierrors"
	"github.com/goatkit/issueflow/internal/models"
)

// Response is the success envelope.
type Response struct {
	StatusCode int    `json:"statusCode"`
	Data       any    `json:"data"`
	Message    string `json:"message"`
	Success    bool   `json:"success"`
}

// respond writes the success envelope with status.
func respond(c *gin.Context, status int, data any, message string) {
	c.JSON(status, Response{
		StatusCode: status,
		Data:       data,
		Message:    message,
		Success:    status < http.StatusBadRequest,
	})
}

// sendSuccess writes a 200 success envelope.
func sendSuccess(c *gin.Context, data any, message string) {
	respond(c, http.StatusOK, data, message)
}

// sendError converts err into the error envelope and aborts the chain.
func sendError(c *gin.Context, err error) {
	apierrors.Abort(c, err)
}

// bindJSON decodes the request body into dst. Malformed JSON is reported as
// BAD_REQUEST; an empty body leaves dst untouched.
func bindJSON(c *gin.Context, dst any) bool {
	if c.Request.ContentLength == 0 {
		return true
	}
	if err := c.ShouldBindJSON(dst); err != nil {
		sendError(c, apierrors.BadRequest("Invalid request body"))
		return false
	}
	return true
}

// pathID parses a positive integer path parameter.
func pathID(c *gin.Context, name, label string) (int64, bool) {
	id, err := strconv.ParseInt(c.Param(name), 10, 64)
	if err != nil || id <= 0 {
		sendError(c, apierrors.BadRequest("Invalid "+label))
		return 0, false
	}
	return id, true
}

// bodyID reads the first non-zero id among the candidates.
func bodyID(ids ...models.FlexInt) int64 {
	for _, id := range ids {
		if id > 0 {
			return int64(id)
		}
	}
	return 0
}
