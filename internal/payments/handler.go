package payments

import (
	"io"
	"net/http"
	"strconv"

	"findam-backend/internal/common/auth"
	apperrors "findam-backend/internal/common/errors"
	"findam-backend/internal/models"

	"github.com/gin-gonic/gin"
)

type Handler struct {
	service *Service
}

func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

func (h *Handler) RegisterRoutes(r *gin.RouterGroup, authMW gin.HandlerFunc) {
	// Webhook is signed by the gateway, not authenticated by us.
	r.POST("/payments/webhook", h.webhook)
	r.GET("/payments/verify/:reference", h.verify)
	r.GET("/payments/channels", h.channels)

	g := r.Group("", authMW)
	g.POST("/bookings/:id/pay", auth.RequireUserType(models.UserTypeTenant), h.pay)
	g.POST("/payments/:reference/process", auth.RequireUserType(models.UserTypeTenant), h.process)
	g.DELETE("/payments/:reference", auth.RequireUserType(models.UserTypeTenant), h.cancel)
	g.GET("/transactions", h.listTransactions)
	g.POST("/payment-methods", h.addMethod)
	g.GET("/payment-methods", h.listMethods)
	g.DELETE("/payment-methods/:id", h.deleteMethod)
	g.GET("/payouts", auth.RequireUserType(models.UserTypeOwner, models.UserTypeAdmin), h.listPayouts)
}

func (h *Handler) pay(c *gin.Context) {
	out, err := h.service.InitiateBookingPayment(c.Request.Context(), auth.UserID(c), c.Param("id"))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, out)
}

func (h *Handler) webhook(c *gin.Context) {
	body, err := io.ReadAll(c.Request.Body)
	if err != nil {
		writeError(c, apperrors.NewWebhookPayloadInvalidError("unreadable body"))
		return
	}
	signature := c.GetHeader(SignatureHeader)
	if err := h.service.HandleWebhook(c.Request.Context(), body, signature); err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"received": true})
}

func (h *Handler) verify(c *gin.Context) {
	tx, err := h.service.VerifyAndSettle(c.Request.Context(), c.Param("reference"))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, tx)
}

func (h *Handler) process(c *gin.Context) {
	var in ProcessInput
	if err := c.ShouldBindJSON(&in); err != nil {
		writeError(c, apperrors.NewValidationFailedError(err.Error()))
		return
	}
	tx, err := h.service.ProcessTransaction(c.Request.Context(), auth.UserID(c), c.Param("reference"), in)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, tx)
}

func (h *Handler) cancel(c *gin.Context) {
	if err := h.service.CancelTransaction(c.Request.Context(), auth.UserID(c), c.Param("reference")); err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"cancelled": true})
}

func (h *Handler) channels(c *gin.Context) {
	out, err := h.service.ListChannels(c.Request.Context())
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"results": out, "count": len(out)})
}

func (h *Handler) listTransactions(c *gin.Context) {
	limit := intQuery(c, "limit")
	offset := intQuery(c, "offset")
	out, err := h.service.ListTransactions(c.Request.Context(), auth.UserID(c), limit, offset)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"results": out, "count": len(out)})
}

func (h *Handler) addMethod(c *gin.Context) {
	var in PaymentMethodInput
	if err := c.ShouldBindJSON(&in); err != nil {
		writeError(c, apperrors.NewValidationFailedError(err.Error()))
		return
	}
	m, err := h.service.AddPaymentMethod(c.Request.Context(), auth.UserID(c), in)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, m)
}

func (h *Handler) listMethods(c *gin.Context) {
	out, err := h.service.ListPaymentMethods(c.Request.Context(), auth.UserID(c))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"results": out, "count": len(out)})
}

func (h *Handler) deleteMethod(c *gin.Context) {
	if err := h.service.DeletePaymentMethod(c.Request.Context(), auth.UserID(c), c.Param("id")); err != nil {
		writeError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *Handler) listPayouts(c *gin.Context) {
	out, err := h.service.ListPayouts(c.Request.Context(), auth.UserID(c))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"results": out, "count": len(out)})
}

func writeError(c *gin.Context, err error) {
	status, body := apperrors.ToHTTP(err)
	c.JSON(status, body)
}

func intQuery(c *gin.Context, key string) int {
	v, _ := strconv.Atoi(c.Query(key))
	return v
}
