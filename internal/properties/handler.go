package properties

import (
	"net/http"
	"strconv"
	"time"

	"findam-backend/internal/common/auth"
	apperrors "findam-backend/internal/common/errors"
	"findam-backend/internal/models"
	"findam-backend/internal/search"

	"github.com/gin-gonic/gin"
)

type Handler struct {
	service *Service
}

func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

func (h *Handler) RegisterRoutes(r *gin.RouterGroup, authMW gin.HandlerFunc) {
	r.GET("/properties", h.search)
	r.GET("/properties/:id", h.get)
	r.GET("/properties/:id/calendar", h.calendar)
	r.GET("/properties/:id/images", h.listImages)
	r.GET("/properties/:id/amenities", h.listAmenities)
	r.GET("/amenities", h.amenityCatalog)
	r.GET("/cities", h.listCities)
	r.GET("/cities/:cityId/neighborhoods", h.listNeighborhoods)

	owner := r.Group("/properties", authMW, auth.RequireUserType(models.UserTypeOwner, models.UserTypeAdmin))
	owner.POST("", h.create)
	owner.PUT("/:id", h.update)
	owner.DELETE("/:id", h.delete)
	owner.POST("/:id/images", h.addImage)
	owner.PUT("/:id/amenities", h.setAmenities)
	owner.POST("/:id/blocks", h.createBlock)
	owner.DELETE("/:id/blocks/:blockId", h.deleteBlock)
	owner.PUT("/:id/discounts", h.setDiscount)

	mine := r.Group("/my-properties", authMW, auth.RequireUserType(models.UserTypeOwner, models.UserTypeAdmin))
	mine.GET("", h.listMine)
}

func (h *Handler) search(c *gin.Context) {
	q := search.Query{
		Text:           c.Query("q"),
		PropertyType:   c.Query("type"),
		CityID:         queryInt64(c, "city_id"),
		NeighborhoodID: queryInt64(c, "neighborhood_id"),
		MinPrice:       queryInt64(c, "min_price"),
		MaxPrice:       queryInt64(c, "max_price"),
		MinCapacity:    int(queryInt64(c, "capacity")),
		Limit:          int(queryInt64(c, "limit")),
		Offset:         int(queryInt64(c, "offset")),
	}
	props, err := h.service.Search(c.Request.Context(), q)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"results": props, "count": len(props)})
}

func (h *Handler) get(c *gin.Context) {
	p, err := h.service.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, p)
}

func (h *Handler) create(c *gin.Context) {
	var in PropertyInput
	if err := c.ShouldBindJSON(&in); err != nil {
		writeError(c, apperrors.NewValidationFailedError(err.Error()))
		return
	}
	p, err := h.service.Create(c.Request.Context(), auth.UserID(c), in)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, p)
}

func (h *Handler) update(c *gin.Context) {
	var in PropertyInput
	if err := c.ShouldBindJSON(&in); err != nil {
		writeError(c, apperrors.NewValidationFailedError(err.Error()))
		return
	}
	p, err := h.service.Update(c.Request.Context(), c.Param("id"), auth.UserID(c), in)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, p)
}

func (h *Handler) delete(c *gin.Context) {
	if err := h.service.Delete(c.Request.Context(), c.Param("id"), auth.UserID(c)); err != nil {
		writeError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *Handler) listMine(c *gin.Context) {
	props, err := h.service.ListByOwner(c.Request.Context(), auth.UserID(c))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"results": props, "count": len(props)})
}

func (h *Handler) listImages(c *gin.Context) {
	imgs, err := h.service.Images(c.Request.Context(), c.Param("id"))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"images": imgs})
}

func (h *Handler) addImage(c *gin.Context) {
	var in ImageInput
	if err := c.ShouldBindJSON(&in); err != nil {
		writeError(c, apperrors.NewValidationFailedError(err.Error()))
		return
	}
	img, err := h.service.AddImage(c.Request.Context(), c.Param("id"), auth.UserID(c), in)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, img)
}

func (h *Handler) amenityCatalog(c *gin.Context) {
	amenities, err := h.service.AmenityCatalog(c.Request.Context())
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"amenities": amenities})
}

func (h *Handler) listAmenities(c *gin.Context) {
	amenities, err := h.service.Amenities(c.Request.Context(), c.Param("id"))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"amenities": amenities})
}

type amenitiesInput struct {
	AmenityIDs []int64 `json:"amenity_ids" binding:"required"`
}

func (h *Handler) setAmenities(c *gin.Context) {
	var in amenitiesInput
	if err := c.ShouldBindJSON(&in); err != nil {
		writeError(c, apperrors.NewValidationFailedError(err.Error()))
		return
	}
	amenities, err := h.service.SetAmenities(c.Request.Context(), c.Param("id"), auth.UserID(c), in.AmenityIDs)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"amenities": amenities})
}

func (h *Handler) listCities(c *gin.Context) {
	cities, err := h.service.Cities(c.Request.Context())
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"cities": cities})
}

func (h *Handler) listNeighborhoods(c *gin.Context) {
	cityID, err := strconv.ParseInt(c.Param("cityId"), 10, 64)
	if err != nil {
		writeError(c, apperrors.NewValidationFailedError("cityId must be numeric"))
		return
	}
	neighborhoods, err := h.service.Neighborhoods(c.Request.Context(), cityID)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"neighborhoods": neighborhoods})
}

func (h *Handler) calendar(c *gin.Context) {
	from, err := parseDate(c.Query("from"))
	if err != nil {
		writeError(c, apperrors.NewValidationFailedError("from: expected YYYY-MM-DD"))
		return
	}
	to, err := parseDate(c.Query("to"))
	if err != nil {
		writeError(c, apperrors.NewValidationFailedError("to: expected YYYY-MM-DD"))
		return
	}
	blocks, err := h.service.Calendar(c.Request.Context(), c.Param("id"), from, to)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"blocks": blocks})
}

func (h *Handler) createBlock(c *gin.Context) {
	var in BlockInput
	if err := c.ShouldBindJSON(&in); err != nil {
		writeError(c, apperrors.NewValidationFailedError(err.Error()))
		return
	}
	block, err := h.service.CreateBlock(c.Request.Context(), c.Param("id"), auth.UserID(c), in)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, block)
}

func (h *Handler) deleteBlock(c *gin.Context) {
	blockID, err := strconv.ParseInt(c.Param("blockId"), 10, 64)
	if err != nil {
		writeError(c, apperrors.NewValidationFailedError("blockId must be numeric"))
		return
	}
	if err := h.service.DeleteBlock(c.Request.Context(), c.Param("id"), auth.UserID(c), blockID); err != nil {
		writeError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *Handler) setDiscount(c *gin.Context) {
	var in DiscountInput
	if err := c.ShouldBindJSON(&in); err != nil {
		writeError(c, apperrors.NewValidationFailedError(err.Error()))
		return
	}
	d, err := h.service.SetDiscount(c.Request.Context(), c.Param("id"), auth.UserID(c), in)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, d)
}

func queryInt64(c *gin.Context, key string) int64 {
	v, _ := strconv.ParseInt(c.Query(key), 10, 64)
	return v
}

func parseDate(s string) (time.Time, error) {
	return time.Parse("2006-01-02", s)
}

func writeError(c *gin.Context, err error) {
	status, body := apperrors.ToHTTP(err)
	c.JSON(status, body)
}
