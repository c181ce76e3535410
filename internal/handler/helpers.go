package handler

import (
	"fmt"
	"net/http"
	"strconv"

	"backend/pkg/apperror"
	"backend/pkg/response"

	"github.com/gin-gonic/gin"
)

// statusForError maps a classified service error to its HTTP status.
func statusForError(err error) int {
	switch apperror.KindOf(err) {
	case apperror.KindValidation, apperror.KindInvalidStateTransition:
		return http.StatusBadRequest
	case apperror.KindNotFound:
		return http.StatusNotFound
	default:
		return http.StatusInternalServerError
	}
}

// pathID parses the :id path parameter, writing the 400 itself on failure.
func pathID(c *gin.Context) (int, bool) {
	id, err := strconv.Atoi(c.Param("id"))
	if err != nil || id <= 0 {
		c.JSON(http.StatusBadRequest, response.Error(http.StatusBadRequest, "Invalid id parameter"))
		return 0, false
	}
	return id, true
}

// intQuery parses an optional numeric query parameter. A malformed value is
// an error, not an absent filter.
func intQuery(c *gin.Context, key string) (*int, error) {
	raw := c.Query(key)
	if raw == "" {
		return nil, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return nil, fmt.Errorf("invalid %s query parameter", key)
	}
	return &n, nil
}

// degraded finishes degraded list reads: store-unavailable errors surface in
// the X-Error-Message header while the (fallback) body goes out as 200. Other
// errors get the normal error envelope. Returns true when the response was
// written.
func degraded(c *gin.Context, err error) bool {
	if err == nil {
		return false
	}
	if apperror.IsStoreUnavailable(err) {
		c.Header(response.HeaderErrorMessage, err.Error())
		return false
	}
	status := statusForError(err)
	c.JSON(status, response.Error(status, err.Error()))
	return true
}
