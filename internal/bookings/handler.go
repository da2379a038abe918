package bookings

import (
	"net/http"

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
	g := r.Group("/bookings", authMW)
	g.POST("/quote", h.quote)
	g.POST("", auth.RequireUserType(models.UserTypeTenant), h.create)
	g.GET("", h.list)
	g.GET("/:id", h.get)
	g.POST("/:id/confirm", auth.RequireUserType(models.UserTypeOwner, models.UserTypeAdmin), h.confirm)
	g.POST("/:id/cancel", h.cancel)

	r.POST("/promo-codes", authMW, auth.RequireUserType(models.UserTypeOwner, models.UserTypeAdmin), h.createPromo)
}

func (h *Handler) quote(c *gin.Context) {
	var in BookingInput
	if err := c.ShouldBindJSON(&in); err != nil {
		writeError(c, apperrors.NewValidationFailedError(err.Error()))
		return
	}
	quote, err := h.service.GetQuote(c.Request.Context(), auth.UserID(c), in)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, quote)
}

func (h *Handler) create(c *gin.Context) {
	var in BookingInput
	if err := c.ShouldBindJSON(&in); err != nil {
		writeError(c, apperrors.NewValidationFailedError(err.Error()))
		return
	}
	b, err := h.service.Create(c.Request.Context(), auth.UserID(c), in)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, b)
}

// list returns the caller's bookings: stays for tenants, incoming bookings
// for owners.
func (h *Handler) list(c *gin.Context) {
	var (
		out []*models.Booking
		err error
	)
	if c.GetString(auth.ContextUserType) == models.UserTypeOwner {
		out, err = h.service.ListForOwner(c.Request.Context(), auth.UserID(c))
	} else {
		out, err = h.service.ListForTenant(c.Request.Context(), auth.UserID(c))
	}
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"results": out, "count": len(out)})
}

func (h *Handler) get(c *gin.Context) {
	b, err := h.service.Get(c.Request.Context(), c.Param("id"), auth.UserID(c))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, b)
}

func (h *Handler) confirm(c *gin.Context) {
	b, err := h.service.Confirm(c.Request.Context(), c.Param("id"), auth.UserID(c))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, b)
}

func (h *Handler) cancel(c *gin.Context) {
	out, err := h.service.Cancel(c.Request.Context(), c.Param("id"), auth.UserID(c))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, out)
}

func (h *Handler) createPromo(c *gin.Context) {
	var in PromoInput
	if err := c.ShouldBindJSON(&in); err != nil {
		writeError(c, apperrors.NewValidationFailedError(err.Error()))
		return
	}
	promo, err := h.service.CreatePromo(c.Request.Context(), auth.UserID(c), in)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, promo)
}

func writeError(c *gin.Context, err error) {
	status, body := apperrors.ToHTTP(err)
	c.JSON(status, body)
}
