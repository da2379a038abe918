package accounts

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

// RegisterRoutes mounts the accounts endpoints.
func (h *Handler) RegisterRoutes(r *gin.RouterGroup, authMW gin.HandlerFunc) {
	r.POST("/auth/register", h.register)
	r.POST("/auth/login", h.login)
	r.POST("/auth/refresh", h.refresh)
	r.POST("/auth/logout", h.logout)

	me := r.Group("/me", authMW)
	me.GET("", h.getProfile)
	me.PATCH("", h.updateProfile)
	me.POST("/subscription", h.subscribe)
	me.GET("/subscription", h.activeSubscription)
}

func (h *Handler) register(c *gin.Context) {
	var in RegisterInput
	if err := c.ShouldBindJSON(&in); err != nil {
		writeError(c, apperrors.NewValidationFailedError(err.Error()))
		return
	}
	out, err := h.service.Register(c.Request.Context(), in)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, out)
}

func (h *Handler) login(c *gin.Context) {
	var in LoginInput
	if err := c.ShouldBindJSON(&in); err != nil {
		writeError(c, apperrors.NewValidationFailedError(err.Error()))
		return
	}
	out, err := h.service.Login(c.Request.Context(), in)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, out)
}

type refreshRequest struct {
	RefreshToken string `json:"refresh_token" binding:"required"`
}

func (h *Handler) refresh(c *gin.Context) {
	var in refreshRequest
	if err := c.ShouldBindJSON(&in); err != nil {
		writeError(c, apperrors.NewValidationFailedError(err.Error()))
		return
	}
	pair, err := h.service.Refresh(c.Request.Context(), in.RefreshToken)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, pair)
}

func (h *Handler) logout(c *gin.Context) {
	var in refreshRequest
	if err := c.ShouldBindJSON(&in); err != nil {
		writeError(c, apperrors.NewValidationFailedError(err.Error()))
		return
	}
	if err := h.service.Logout(c.Request.Context(), in.RefreshToken); err != nil {
		writeError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *Handler) getProfile(c *gin.Context) {
	user, profile, err := h.service.GetProfile(c.Request.Context(), auth.UserID(c))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"user": user, "profile": profile})
}

func (h *Handler) updateProfile(c *gin.Context) {
	var in UpdateProfileInput
	if err := c.ShouldBindJSON(&in); err != nil {
		writeError(c, apperrors.NewValidationFailedError(err.Error()))
		return
	}
	profile, err := h.service.UpdateProfile(c.Request.Context(), auth.UserID(c), in)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, profile)
}

func (h *Handler) subscribe(c *gin.Context) {
	var in SubscribeInput
	if err := c.ShouldBindJSON(&in); err != nil {
		writeError(c, apperrors.NewValidationFailedError(err.Error()))
		return
	}
	sub, err := h.service.Subscribe(c.Request.Context(), auth.UserID(c), in)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, sub)
}

func (h *Handler) activeSubscription(c *gin.Context) {
	plan, err := h.service.ActiveSubscriptionType(c.Request.Context(), auth.UserID(c))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"subscription_type": plan})
}

func writeError(c *gin.Context, err error) {
	status, body := apperrors.ToHTTP(err)
	c.JSON(status, body)
}
