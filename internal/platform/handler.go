package platform

import (
	"net/http"
	"time"

	"findam-backend/internal/common/auth"
	"findam-backend/internal/common/database"
	apperrors "findam-backend/internal/common/errors"
	"findam-backend/internal/models"

	"github.com/gin-gonic/gin"
)

// Handler serves health probes and the admin config endpoints.
type Handler struct {
	service *Service
	pg      *database.PostgresClient
	redis   *database.RedisClient
	es      *database.ElasticsearchClient
	started time.Time
}

func NewHandler(service *Service, pg *database.PostgresClient, rdb *database.RedisClient, es *database.ElasticsearchClient) *Handler {
	return &Handler{
		service: service,
		pg:      pg,
		redis:   rdb,
		es:      es,
		started: time.Now(),
	}
}

func (h *Handler) RegisterRoutes(r *gin.Engine, api *gin.RouterGroup, authMW gin.HandlerFunc) {
	r.GET("/health", h.health)
	r.GET("/ready", h.ready)

	g := api.Group("/admin/configs", authMW, auth.RequireUserType(models.UserTypeAdmin))
	g.GET("", h.listConfigs)
	g.GET("/:key", h.getConfig)
	g.PUT("", h.setConfig)
}

func (h *Handler) health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status": "ok",
		"uptime": time.Since(h.started).String(),
	})
}

// ready checks every backing store; Elasticsearch is optional and reported as
// degraded rather than failing the probe.
func (h *Handler) ready(c *gin.Context) {
	ctx := c.Request.Context()
	checks := gin.H{}
	healthy := true

	if err := h.pg.Ping(ctx); err != nil {
		checks["postgres"] = err.Error()
		healthy = false
	} else {
		checks["postgres"] = "ok"
	}

	if err := h.redis.Ping(ctx); err != nil {
		checks["redis"] = err.Error()
		healthy = false
	} else {
		checks["redis"] = "ok"
	}

	if h.es != nil {
		if err := h.es.Ping(); err != nil {
			checks["elasticsearch"] = "degraded: " + err.Error()
		} else {
			checks["elasticsearch"] = "ok"
		}
	} else {
		checks["elasticsearch"] = "disabled"
	}

	status := http.StatusOK
	if !healthy {
		status = http.StatusServiceUnavailable
	}
	c.JSON(status, gin.H{"checks": checks})
}

func (h *Handler) listConfigs(c *gin.Context) {
	out, err := h.service.List(c.Request.Context())
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"results": out, "count": len(out)})
}

func (h *Handler) getConfig(c *gin.Context) {
	cfg, err := h.service.Get(c.Request.Context(), c.Param("key"))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, cfg)
}

func (h *Handler) setConfig(c *gin.Context) {
	var in ConfigInput
	if err := c.ShouldBindJSON(&in); err != nil {
		writeError(c, apperrors.NewValidationFailedError(err.Error()))
		return
	}
	cfg, err := h.service.Set(c.Request.Context(), in)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, cfg)
}

func writeError(c *gin.Context, err error) {
	status, body := apperrors.ToHTTP(err)
	c.JSON(status, body)
}
