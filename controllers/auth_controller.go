package controllers

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
	"golang.org/x/crypto/bcrypt"

	"hotel-booking/repository"
	"hotel-booking/utils"
)

type loginPayload struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
}

type AuthController struct {
	Store     repository.Store
	Secret    string
	ExpiresIn time.Duration
	Log       logrus.FieldLogger
}

func NewAuthController(store repository.Store, secret string, expiresIn time.Duration, log logrus.FieldLogger) *AuthController {
	return &AuthController{Store: store, Secret: secret, ExpiresIn: expiresIn, Log: log.WithField("component", "auth")}
}

// POST /auth/login
func (ctrl *AuthController) Login(c *gin.Context) {
	var payload loginPayload
	if err := c.ShouldBindJSON(&payload); err != nil {
		utils.RespondError(c, ctrl.Log, bindingError(err))
		return
	}
	email := strings.ToLower(strings.TrimSpace(payload.Email))

	user, err := ctrl.Store.FindUserByEmail(c.Request.Context(), email)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			utils.RespondError(c, ctrl.Log, utils.Unauthorized("Incorrect email or password"))
			return
		}
		utils.RespondError(c, ctrl.Log, utils.Internal(err, "load user by email"))
		return
	}
	if bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(payload.Password)) != nil {
		utils.RespondError(c, ctrl.Log, utils.Unauthorized("Incorrect email or password"))
		return
	}
	if !user.IsActive {
		utils.RespondError(c, ctrl.Log, utils.Unauthorized("This account is inactive."))
		return
	}

	token, err := utils.CreateAccessToken(ctrl.Secret, user.ID, string(user.Role), ctrl.ExpiresIn)
	if err != nil {
		utils.RespondError(c, ctrl.Log, utils.Internal(err, "sign access token"))
		return
	}

	ctrl.Log.WithFields(logrus.Fields{"user_id": user.ID, "role": user.Role}).Info("user logged in")
	c.JSON(http.StatusOK, gin.H{
		"status": "success",
		"token":  token,
		"data":   gin.H{"user": user},
	})
}
