package invoices

import (
	"net/http"

	"findam-backend/internal/common/auth"
	apperrors "findam-backend/internal/common/errors"

	"github.com/gin-gonic/gin"
)

type Handler struct {
	service *Service
}

func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

func (h *Handler) RegisterRoutes(r *gin.RouterGroup, authMW gin.HandlerFunc) {
	r.GET("/bookings/:id/invoice", authMW, h.render)
}

func (h *Handler) render(c *gin.Context) {
	html, err := h.service.Render(c.Request.Context(), c.Param("id"), auth.UserID(c))
	if err != nil {
		status, body := apperrors.ToHTTP(err)
		c.JSON(status, body)
		return
	}
	c.Data(http.StatusOK, "text/html; charset=utf-8", html)
}
