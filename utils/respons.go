package utils

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/pkg/errors"
)

type JSONResponse struct {
	Status  bool        `json:"status"`
	Message string      `json:"message"`
	Kind    ErrorKind   `json:"kind,omitempty"`
	Errors  []string    `json:"errors,omitempty"`
	Data    interface{} `json:"data,omitempty"`
}

func RespondJSON(c *gin.Context, code int, message string, data interface{}) {
	c.JSON(code, JSONResponse{
		Status:  code >= 200 && code < 300,
		Message: message,
		Data:    data,
	})
}

func RespondError(c *gin.Context, code int, err error) {
	c.JSON(code, JSONResponse{
		Status:  false,
		Message: err.Error(),
		Data:    nil,
	})
}

// RespondAppError writes err using the status code of its kind. Unclassified
// errors are logged and reported as a generic internal error.
func RespondAppError(c *gin.Context, err error) {
	var appErr *AppError
	if !errors.As(err, &appErr) {
		ErrorLogger.WithError(err).Errorf("%s %s failed", c.Request.Method, c.Request.URL.Path)
		c.JSON(http.StatusInternalServerError, JSONResponse{
			Status:  false,
			Message: "Internal Server Error",
			Kind:    KindInternal,
		})
		return
	}

	code := appErr.StatusCode()
	if code >= http.StatusInternalServerError {
		ErrorLogger.WithError(err).Errorf("%s %s failed", c.Request.Method, c.Request.URL.Path)
	}
	c.JSON(code, JSONResponse{
		Status:  false,
		Message: appErr.Message,
		Kind:    appErr.Kind,
		Errors:  appErr.Details,
	})
}
