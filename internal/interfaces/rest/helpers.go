package rest

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/devstudio/backoffice/internal/interfaces/middleware"
	"github.com/devstudio/backoffice/internal/logging"
	"github.com/devstudio/backoffice/pkg/auth"
	"github.com/devstudio/backoffice/pkg/errors"
)

const (
	FieldMessage = "message"
	dateParam    = "2006-01-02"
)

// GetUserFromContext extracts the authenticated user from gin.Context
func GetUserFromContext(c *gin.Context) *auth.UserSession {
	user, ok := middleware.CurrentUser(c)
	if !ok {
		return nil
	}
	return &user
}

// actorID is the ID of the authenticated user, or "" for public calls.
func actorID(c *gin.Context) string {
	if user := GetUserFromContext(c); user != nil {
		return user.ID
	}
	return ""
}

// RespondAppError sends a standardised JSON error response using pkg/errors
func RespondAppError(c *gin.Context, err error) {
	code := errors.GetHTTPStatus(err)
	errorCode := errors.GetErrorCode(err)
	message := err.Error()

	if code >= 500 {
		logging.FromContext(c.Request.Context()).Errorf("❌ ERROR [%d] %s %s: %s", code, c.Request.Method, c.Request.URL.Path, message)
	}

	var data interface{}
	if ve, ok := err.(*errors.ValidationError); ok && ve.Field != "" {
		data = gin.H{"field": ve.Field}
	}
	c.JSON(code, gin.H{
		"error":      message, // Legacy
		FieldMessage: message,
		"code":       errorCode,
		"data":       data,
	})
}

// RespondError sends an error with an explicit status.
func RespondError(c *gin.Context, status int, message string) {
	c.JSON(status, gin.H{
		"error":      message,
		FieldMessage: message,
		"code":       http.StatusText(status),
		"data":       nil,
	})
}

// BindJSON binds JSON and returns true if successful. If failed, it sends bad request error.
func BindJSON(c *gin.Context, obj interface{}) bool {
	if err := c.ShouldBindJSON(obj); err != nil {
		RespondAppError(c, errors.NewValidationError("body", err.Error()))
		return false
	}
	return true
}

// bindOptionalJSON binds a body when one was sent.
func bindOptionalJSON(c *gin.Context, obj interface{}) bool {
	if c.Request.ContentLength == 0 {
		return true
	}
	return BindJSON(c, obj)
}

// HandleGetEnvelope executes a read action and returns the result wrapped in a JSON key
// Response: { [key]: result }
func HandleGetEnvelope(c *gin.Context, key string, action func() (interface{}, error)) {
	result, err := action()
	if err != nil {
		RespondAppError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{key: result})
}

// HandleCreateEnvelope binds obj, runs action and answers 201 with the
// result under key.
// Response: { message: successMsg, [key]: result }
func HandleCreateEnvelope(c *gin.Context, key, successMsg string, obj interface{}, action func() (interface{}, error)) {
	if !BindJSON(c, obj) {
		return
	}
	result, err := action()
	if err != nil {
		RespondAppError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{FieldMessage: successMsg, key: result})
}

// HandleUpdateEnvelope is HandleCreateEnvelope answering 200. A nil obj
// skips binding. An empty key omits the result.
func HandleUpdateEnvelope(c *gin.Context, key, successMsg string, obj interface{}, action func() (interface{}, error)) {
	if obj != nil && !bindOptionalJSON(c, obj) {
		return
	}
	result, err := action()
	if err != nil {
		RespondAppError(c, err)
		return
	}
	response := gin.H{FieldMessage: successMsg}
	if key != "" {
		response[key] = result
	}
	c.JSON(http.StatusOK, response)
}

// HandleDeleteEnvelope executes a delete action and returns a success message
// Response: { message: successMsg }
func HandleDeleteEnvelope(c *gin.Context, successMsg string, action func() error) {
	if err := action(); err != nil {
		RespondAppError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{FieldMessage: successMsg})
}

// queryInt reads a non-negative integer query parameter.
func queryInt(c *gin.Context, name string, def int) (int, error) {
	raw := c.Query(name)
	if raw == "" {
		return def, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 0 {
		return 0, errors.NewValidationError(name, "must be a non-negative integer")
	}
	return n, nil
}

// pagination reads limit and offset.
func pagination(c *gin.Context) (limit, offset int, err error) {
	if limit, err = queryInt(c, "limit", 50); err != nil {
		return 0, 0, err
	}
	if limit > 200 {
		limit = 200
	}
	offset, err = queryInt(c, "offset", 0)
	return limit, offset, err
}

// queryDate reads a YYYY-MM-DD query parameter as UTC midnight.
func queryDate(c *gin.Context, name string) (time.Time, error) {
	raw := c.Query(name)
	if raw == "" {
		return time.Time{}, nil
	}
	t, err := time.Parse(dateParam, raw)
	if err != nil {
		return time.Time{}, errors.NewValidationError(name, "expected YYYY-MM-DD")
	}
	return t, nil
}
