package middleware

import (
	"errors"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"hotel-booking/models"
	"hotel-booking/repository"
	"hotel-booking/utils"
)

const currentUserKey = "currentUser"

// Protect requires a valid bearer token belonging to an existing, active user.
func Protect(secret string, store repository.Store, log logrus.FieldLogger) gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		raw, ok := strings.CutPrefix(header, "Bearer ")
		if !ok || strings.TrimSpace(raw) == "" {
			utils.RespondError(c, log, utils.Unauthorized("You are not logged in! Please log in to get access."))
			return
		}

		claims, err := utils.ParseAccessToken(secret, strings.TrimSpace(raw))
		if err != nil {
			utils.RespondError(c, log, utils.Unauthorized("Invalid or expired token. Please log in again."))
			return
		}

		user, err := store.FindUser(c.Request.Context(), claims.UserID)
		if err != nil {
			if errors.Is(err, repository.ErrNotFound) {
				utils.RespondError(c, log, utils.Unauthorized("The user belonging to this token no longer exists."))
				return
			}
			utils.RespondError(c, log, utils.Internal(err, "load token user"))
			return
		}
		if !user.IsActive {
			utils.RespondError(c, log, utils.Unauthorized("This account is inactive."))
			return
		}

		c.Set(currentUserKey, user)
		c.Next()
	}
}

// RestrictTo lets only the listed roles through. It must run after Protect.
func RestrictTo(log logrus.FieldLogger, roles ...models.Role) gin.HandlerFunc {
	return func(c *gin.Context) {
		user := CurrentUser(c)
		if user == nil {
			utils.RespondError(c, log, utils.Unauthorized("You are not logged in! Please log in to get access."))
			return
		}
		for _, role := range roles {
			if user.Role == role {
				c.Next()
				return
			}
		}
		utils.RespondError(c, log, utils.Forbidden("You do not have permission to perform this action"))
	}
}

// CurrentUser returns the user stored by Protect.
func CurrentUser(c *gin.Context) *models.User {
	v, ok := c.Get(currentUserKey)
	if !ok {
		return nil
	}
	user, _ := v.(*models.User)
	return user
}

// SetCurrentUser is used by tests to bypass token parsing.
func SetCurrentUser(c *gin.Context, user *models.User) {
	c.Set(currentUserKey, user)
}
