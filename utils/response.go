package utils

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
)

const genericErrorMessage = "Something went wrong, please try again later."

func JSONSuccess(c *gin.Context, code int, data interface{}) {
	c.JSON(code, gin.H{"status": "success", "data": data})
}

// JSONError writes the {status, message} envelope. 4xx are "fail", everything else "error".
func JSONError(c *gin.Context, code int, message string) {
	status := "error"
	if code >= 400 && code < 500 {
		status = "fail"
	}
	c.JSON(code, gin.H{"status": status, "message": message})
}

// RespondError maps err to an HTTP response. Unexpected errors are logged in full
// and answered with a generic message.
func RespondError(c *gin.Context, log logrus.FieldLogger, err error) {
	var appErr *AppError
	if errors.As(err, &appErr) && appErr.Kind != KindInternal {
		code := appErr.Kind.HTTPStatus()
		if appErr.Err != nil {
			log.WithError(appErr.Err).WithField("kind", appErr.Kind.String()).Warn(appErr.Message)
		}
		c.AbortWithStatusJSON(code, gin.H{"status": "fail", "message": appErr.Message})
		return
	}

	log.WithFields(logrus.Fields{
		"method": c.Request.Method,
		"path":   c.Request.URL.Path,
	}).WithError(err).Error("unexpected error")
	c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"status": "error", "message": genericErrorMessage})
}
