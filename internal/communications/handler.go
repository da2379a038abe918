package communications

import (
	"net/http"
	"strconv"

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
	g := r.Group("/conversations", authMW)
	g.POST("", h.startConversation)
	g.GET("", h.listConversations)
	g.GET("/:id/messages", h.listMessages)
	g.POST("/:id/messages", h.sendMessage)

	n := r.Group("/notifications", authMW)
	n.GET("", h.listNotifications)
	n.POST("/:id/read", h.markNotificationRead)
}

func (h *Handler) startConversation(c *gin.Context) {
	var in StartConversationInput
	if err := c.ShouldBindJSON(&in); err != nil {
		writeError(c, apperrors.NewValidationFailedError(err.Error()))
		return
	}
	conv, msg, err := h.service.StartConversation(c.Request.Context(), auth.UserID(c), in)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"conversation": conv, "message": msg})
}

func (h *Handler) listConversations(c *gin.Context) {
	out, err := h.service.ListConversations(c.Request.Context(), auth.UserID(c))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"results": out, "count": len(out)})
}

func (h *Handler) listMessages(c *gin.Context) {
	limit, _ := strconv.Atoi(c.Query("limit"))
	offset, _ := strconv.Atoi(c.Query("offset"))
	out, err := h.service.ListMessages(c.Request.Context(), auth.UserID(c), c.Param("id"), limit, offset)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"results": out, "count": len(out)})
}

func (h *Handler) sendMessage(c *gin.Context) {
	var in MessageInput
	if err := c.ShouldBindJSON(&in); err != nil {
		writeError(c, apperrors.NewValidationFailedError(err.Error()))
		return
	}
	msg, err := h.service.SendMessage(c.Request.Context(), auth.UserID(c), c.Param("id"), in)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, msg)
}

func (h *Handler) listNotifications(c *gin.Context) {
	limit, _ := strconv.Atoi(c.Query("limit"))
	offset, _ := strconv.Atoi(c.Query("offset"))
	unreadOnly := c.Query("unread") == "true"
	out, err := h.service.ListNotifications(c.Request.Context(), auth.UserID(c), unreadOnly, limit, offset)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"results": out, "count": len(out)})
}

func (h *Handler) markNotificationRead(c *gin.Context) {
	if err := h.service.MarkNotificationRead(c.Request.Context(), auth.UserID(c), c.Param("id")); err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "read"})
}

func writeError(c *gin.Context, err error) {
	status, body := apperrors.ToHTTP(err)
	c.JSON(status, body)
}
