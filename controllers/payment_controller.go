package controllers

import (
	"io"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"hotel-booking/services"
	"hotel-booking/utils"
)

const (
	maxWebhookBytes = 64 << 10
	signatureHeader = "Stripe-Signature"
)

type PaymentController struct {
	PaymentSvc *services.PaymentService
	Log        logrus.FieldLogger
}

func NewPaymentController(payments *services.PaymentService, log logrus.FieldLogger) *PaymentController {
	return &PaymentController{PaymentSvc: payments, Log: log.WithField("component", "payments")}
}

// GET /bookings/success?session_id=
func (ctrl *PaymentController) PaymentSuccess(c *gin.Context) {
	booking, err := ctrl.PaymentSvc.HandleSuccess(c.Request.Context(), c.Query("session_id"))
	if err != nil {
		utils.RespondError(c, ctrl.Log, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"status":  "success",
		"message": "Payment successful, your booking is confirmed",
		"data":    gin.H{"booking": booking},
	})
}

// GET /bookings/cancel?session_id=
func (ctrl *PaymentController) PaymentCancel(c *gin.Context) {
	booking, err := ctrl.PaymentSvc.HandleCancel(c.Request.Context(), c.Query("session_id"))
	if err != nil {
		utils.RespondError(c, ctrl.Log, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"status":  "success",
		"message": "Payment cancelled, your booking has been cancelled",
		"data":    gin.H{"booking": booking},
	})
}

// POST /webhook. The signature covers the exact bytes, so the body is read raw.
func (ctrl *PaymentController) Webhook(c *gin.Context) {
	payload, err := io.ReadAll(io.LimitReader(c.Request.Body, maxWebhookBytes))
	if err != nil {
		utils.RespondError(c, ctrl.Log, utils.InvalidInput("Could not read webhook body"))
		return
	}

	if err := ctrl.PaymentSvc.HandleWebhook(c.Request.Context(), payload, c.GetHeader(signatureHeader)); err != nil {
		utils.RespondError(c, ctrl.Log, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"received": true})
}
