package reviews

import (
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
	r.GET("/properties/:id/reviews", h.listByProperty)

	g := r.Group("/reviews", authMW)
	g.POST("", auth.RequireUserType(models.UserTypeTenant), h.create)
	g.POST("/:id/reply", auth.RequireUserType(models.UserTypeOwner, models.UserTypeAdmin), h.reply)
	g.POST("/:id/report", h.report)
}

func (h *Handler) create(c *gin.Context) {
	var in ReviewInput
	if err := c.ShouldBindJSON(&in); err != nil {
		writeError(c, apperrors.NewValidationFailedError(err.Error()))
		return
	}
	rev, err := h.service.Create(c.Request.Context(), auth.UserID(c), in)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, rev)
}

func (h *Handler) listByProperty(c *gin.Context) {
	limit, _ := strconv.Atoi(c.Query("limit"))
	offset, _ := strconv.Atoi(c.Query("offset"))
	out, err := h.service.ListByProperty(c.Request.Context(), c.Param("id"), limit, offset)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"results": out, "count": len(out)})
}

func (h *Handler) reply(c *gin.Context) {
	var in ReplyInput
	if err := c.ShouldBindJSON(&in); err != nil {
		writeError(c, apperrors.NewValidationFailedError(err.Error()))
		return
	}
	reply, err := h.service.Reply(c.Request.Context(), c.Param("id"), auth.UserID(c), in)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, reply)
}

func (h *Handler) report(c *gin.Context) {
	var in ReportInput
	if err := c.ShouldBindJSON(&in); err != nil {
		writeError(c, apperrors.NewValidationFailedError(err.Error()))
		return
	}
	report, err := h.service.Report(c.Request.Context(), c.Param("id"), auth.UserID(c), in)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, report)
}

func writeError(c *gin.Context, err error) {
	status, body := apperrors.ToHTTP(err)
	c.JSON(status, body)
}
