package middleware

import (
	"fmt"
	"runtime/debug"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"hotel-booking/utils"
)

// Recovery turns a handler panic into a generic 500 and logs the stack.
func Recovery(log logrus.FieldLogger) gin.HandlerFunc {
	return func(c *gin.Context) {
		defer func() {
			if r := recover(); r != nil {
				log.WithFields(logrus.Fields{
					"request_id": RequestID(c),
					"stack":      string(debug.Stack()),
				}).Error("panic recovered")
				utils.RespondError(c, log, utils.Internal(fmt.Errorf("panic: %v", r), "handler panic"))
			}
		}()
		c.Next()
	}
}
