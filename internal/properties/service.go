package properties

import (
	"context"
	"database/sql"
	"encoding/json"
	"time"

	apperrors "findam-backend/internal/common/errors"
	"findam-backend/internal/common/logger"
	"findam-backend/internal/models"
	"findam-backend/internal/search"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

const (
	propertyCachePrefix = "property:"
	propertyCacheTTL    = 5 * time.Minute
)

// Service implements property management, availability and search.
type Service struct {
	repo   *Repository
	redis  *redis.Client
	index  search.Index
	logger logger.Logger
	now    func() time.Time
}

// NewService builds the service. index may be nil when Elasticsearch is
// disabled; search then goes through SQL only.
func NewService(repo *Repository, rdb *redis.Client, index search.Index, log logger.Logger) *Service {
	return &Service{
		repo:   repo,
		redis:  rdb,
		index:  index,
		logger: log,
		now:    time.Now,
	}
}

type PropertyInput struct {
	Title              string  `json:"title" binding:"required"`
	Description        string  `json:"description"`
	PropertyType       string  `json:"property_type" binding:"required,oneof=apartment house villa studio room other"`
	Capacity           int     `json:"capacity" binding:"required,min=1"`
	Bedrooms           int     `json:"bedrooms"`
	Bathrooms          int     `json:"bathrooms"`
	CityID             int64   `json:"city_id" binding:"required"`
	NeighborhoodID     int64   `json:"neighborhood_id"`
	Address            string  `json:"address"`
	Latitude           float64 `json:"latitude"`
	Longitude          float64 `json:"longitude"`
	PricePerNight      int64   `json:"price_per_night" binding:"required,min=1"`
	PricePerWeek       int64   `json:"price_per_week"`
	PricePerMonth      int64   `json:"price_per_month"`
	CleaningFee        int64   `json:"cleaning_fee"`
	SecurityDeposit    int64   `json:"security_deposit"`
	AllowDiscount      bool    `json:"allow_discount"`
	CancellationPolicy string  `json:"cancellation_policy" binding:"omitempty,oneof=flexible moderate strict"`
	IsPublished        bool    `json:"is_published"`
}

func (s *Service) Create(ctx context.Context, ownerID string, in PropertyInput) (*models.Property, error) {
	now := s.now().UTC()
	policy := in.CancellationPolicy
	if policy == "" {
		policy = models.PolicyModerate
	}

	p := &models.Property{
		ID:                 uuid.NewString(),
		OwnerID:            ownerID,
		Title:              in.Title,
		Description:        in.Description,
		PropertyType:       in.PropertyType,
		Capacity:           in.Capacity,
		Bedrooms:           in.Bedrooms,
		Bathrooms:          in.Bathrooms,
		CityID:             in.CityID,
		NeighborhoodID:     in.NeighborhoodID,
		Address:            in.Address,
		Latitude:           in.Latitude,
		Longitude:          in.Longitude,
		PricePerNight:      in.PricePerNight,
		PricePerWeek:       in.PricePerWeek,
		PricePerMonth:      in.PricePerMonth,
		CleaningFee:        in.CleaningFee,
		SecurityDeposit:    in.SecurityDeposit,
		AllowDiscount:      in.AllowDiscount,
		CancellationPolicy: policy,
		IsPublished:        in.IsPublished,
		CreatedAt:          now,
		UpdatedAt:          now,
	}
	if err := s.repo.Create(ctx, p); err != nil {
		return nil, apperrors.NewQueryExecutionFailedError(err)
	}

	s.reindex(ctx, p)
	s.logger.Info("property created", map[string]interface{}{
		"property_id": p.ID,
		"owner_id":    ownerID,
	})
	return p, nil
}

// Get loads a property, cache-aside through Redis.
func (s *Service) Get(ctx context.Context, id string) (*models.Property, error) {
	if cached, err := s.redis.Get(ctx, propertyCachePrefix+id).Result(); err == nil {
		var p models.Property
		if err := json.Unmarshal([]byte(cached), &p); err == nil {
			return &p, nil
		}
	}

	p, err := s.repo.GetByID(ctx, id)
	if err == sql.ErrNoRows {
		return nil, apperrors.NewPropertyNotFoundError(id)
	}
	if err != nil {
		return nil, apperrors.NewQueryExecutionFailedError(err)
	}

	if data, err := json.Marshal(p); err == nil {
		if err := s.redis.Set(ctx, propertyCachePrefix+id, data, propertyCacheTTL).Err(); err != nil {
			s.logger.WithError(err).Warn("property cache write failed", map[string]interface{}{"property_id": id})
		}
	}
	return p, nil
}

// getOwned loads a property and verifies ownership.
func (s *Service) getOwned(ctx context.Context, propertyID, ownerID string) (*models.Property, error) {
	p, err := s.repo.GetByID(ctx, propertyID)
	if err == sql.ErrNoRows {
		return nil, apperrors.NewPropertyNotFoundError(propertyID)
	}
	if err != nil {
		return nil, apperrors.NewQueryExecutionFailedError(err)
	}
	if p.OwnerID != ownerID {
		return nil, apperrors.New(apperrors.ErrCodePropertyNotOwned, "Property belongs to another owner", "propertyId: "+propertyID)
	}
	return p, nil
}

func (s *Service) Update(ctx context.Context, propertyID, ownerID string, in PropertyInput) (*models.Property, error) {
	p, err := s.getOwned(ctx, propertyID, ownerID)
	if err != nil {
		return nil, err
	}

	p.Title = in.Title
	p.Description = in.Description
	p.PropertyType = in.PropertyType
	p.Capacity = in.Capacity
	p.Bedrooms = in.Bedrooms
	p.Bathrooms = in.Bathrooms
	p.CityID = in.CityID
	p.NeighborhoodID = in.NeighborhoodID
	p.Address = in.Address
	p.Latitude = in.Latitude
	p.Longitude = in.Longitude
	p.PricePerNight = in.PricePerNight
	p.PricePerWeek = in.PricePerWeek
	p.PricePerMonth = in.PricePerMonth
	p.CleaningFee = in.CleaningFee
	p.SecurityDeposit = in.SecurityDeposit
	p.AllowDiscount = in.AllowDiscount
	if in.CancellationPolicy != "" {
		p.CancellationPolicy = in.CancellationPolicy
	}
	p.IsPublished = in.IsPublished
	p.UpdatedAt = s.now().UTC()

	if err := s.repo.Update(ctx, p); err != nil {
		return nil, apperrors.NewQueryExecutionFailedError(err)
	}

	s.invalidateCache(ctx, propertyID)
	s.reindex(ctx, p)
	return p, nil
}

func (s *Service) Delete(ctx context.Context, propertyID, ownerID string) error {
	if _, err := s.getOwned(ctx, propertyID, ownerID); err != nil {
		return err
	}
	if err := s.repo.Delete(ctx, propertyID); err != nil {
		return apperrors.NewQueryExecutionFailedError(err)
	}

	s.invalidateCache(ctx, propertyID)
	if s.index != nil {
		if err := s.index.DeleteProperty(ctx, propertyID); err != nil {
			s.logger.WithError(err).Warn("search index delete failed", map[string]interface{}{"property_id": propertyID})
		}
	}
	return nil
}

func (s *Service) ListByOwner(ctx context.Context, ownerID string) ([]*models.Property, error) {
	out, err := s.repo.ListByOwner(ctx, ownerID)
	if err != nil {
		return nil, apperrors.NewQueryExecutionFailedError(err)
	}
	return out, nil
}

type ImageInput struct {
	URL     string `json:"url" binding:"required,url"`
	IsMain  bool   `json:"is_main"`
	Order   int    `json:"order"`
	Caption string `json:"caption"`
}

func (s *Service) AddImage(ctx context.Context, propertyID, ownerID string, in ImageInput) (*models.PropertyImage, error) {
	if _, err := s.getOwned(ctx, propertyID, ownerID); err != nil {
		return nil, err
	}
	img := &models.PropertyImage{
		PropertyID: propertyID,
		URL:        in.URL,
		IsMain:     in.IsMain,
		Order:      in.Order,
		Caption:    in.Caption,
		CreatedAt:  s.now().UTC(),
	}
	if err := s.repo.AddImage(ctx, img); err != nil {
		return nil, apperrors.NewQueryExecutionFailedError(err)
	}
	return img, nil
}

func (s *Service) Images(ctx context.Context, propertyID string) ([]*models.PropertyImage, error) {
	if _, err := s.Get(ctx, propertyID); err != nil {
		return nil, err
	}
	imgs, err := s.repo.ListImages(ctx, propertyID)
	if err != nil {
		return nil, apperrors.NewQueryExecutionFailedError(err)
	}
	return imgs, nil
}

func (s *Service) AmenityCatalog(ctx context.Context) ([]*models.Amenity, error) {
	out, err := s.repo.ListAmenityCatalog(ctx)
	if err != nil {
		return nil, apperrors.NewQueryExecutionFailedError(err)
	}
	return out, nil
}

// SetAmenities replaces the property's amenity set and returns the new one.
func (s *Service) SetAmenities(ctx context.Context, propertyID, ownerID string, amenityIDs []int64) ([]*models.Amenity, error) {
	if _, err := s.getOwned(ctx, propertyID, ownerID); err != nil {
		return nil, err
	}
	if err := s.repo.SetPropertyAmenities(ctx, propertyID, amenityIDs); err != nil {
		return nil, apperrors.NewQueryExecutionFailedError(err)
	}
	out, err := s.repo.ListPropertyAmenities(ctx, propertyID)
	if err != nil {
		return nil, apperrors.NewQueryExecutionFailedError(err)
	}
	return out, nil
}

func (s *Service) Amenities(ctx context.Context, propertyID string) ([]*models.Amenity, error) {
	if _, err := s.Get(ctx, propertyID); err != nil {
		return nil, err
	}
	out, err := s.repo.ListPropertyAmenities(ctx, propertyID)
	if err != nil {
		return nil, apperrors.NewQueryExecutionFailedError(err)
	}
	return out, nil
}

func (s *Service) Cities(ctx context.Context) ([]*models.City, error) {
	out, err := s.repo.ListCities(ctx)
	if err != nil {
		return nil, apperrors.NewQueryExecutionFailedError(err)
	}
	return out, nil
}

func (s *Service) Neighborhoods(ctx context.Context, cityID int64) ([]*models.Neighborhood, error) {
	out, err := s.repo.ListNeighborhoods(ctx, cityID)
	if err != nil {
		return nil, apperrors.NewQueryExecutionFailedError(err)
	}
	return out, nil
}

// Search tries Elasticsearch first and falls back to SQL on any failure, so a
// search outage never takes listings offline.
func (s *Service) Search(ctx context.Context, q search.Query) ([]*models.Property, error) {
	if s.index != nil {
		ids, _, err := s.index.Search(ctx, q)
		if err == nil {
			props, dbErr := s.repo.GetByIDs(ctx, ids)
			if dbErr != nil {
				return nil, apperrors.NewQueryExecutionFailedError(dbErr)
			}
			return orderByIDs(props, ids), nil
		}
		s.logger.WithError(err).Warn("search index unavailable, using sql fallback", nil)
	}

	props, err := s.repo.Search(ctx, SearchFilter{
		CityID:         q.CityID,
		NeighborhoodID: q.NeighborhoodID,
		PropertyType:   q.PropertyType,
		MinPrice:       q.MinPrice,
		MaxPrice:       q.MaxPrice,
		MinCapacity:    q.MinCapacity,
		Query:          q.Text,
		Limit:          q.Limit,
		Offset:         q.Offset,
	})
	if err != nil {
		return nil, apperrors.NewQueryExecutionFailedError(err)
	}
	return props, nil
}

func orderByIDs(props []*models.Property, ids []string) []*models.Property {
	byID := make(map[string]*models.Property, len(props))
	for _, p := range props {
		byID[p.ID] = p
	}
	out := make([]*models.Property, 0, len(props))
	for _, id := range ids {
		if p, ok := byID[id]; ok {
			out = append(out, p)
		}
	}
	return out
}

type BlockInput struct {
	StartDate   time.Time `json:"start_date" binding:"required" time_format:"2006-01-02"`
	EndDate     time.Time `json:"end_date" binding:"required" time_format:"2006-01-02"`
	BlockType   string    `json:"block_type" binding:"required,oneof=external blocked"`
	ClientName  string    `json:"external_client_name"`
	ClientPhone string    `json:"external_client_phone"`
	Notes       string    `json:"notes"`
}

// CreateBlock adds an owner-managed unavailability period (external booking or
// manual block). Booking blocks are created by the bookings flow only.
func (s *Service) CreateBlock(ctx context.Context, propertyID, ownerID string, in BlockInput) (*models.Availability, error) {
	if _, err := s.getOwned(ctx, propertyID, ownerID); err != nil {
		return nil, err
	}
	if !in.EndDate.After(in.StartDate) {
		return nil, apperrors.NewInvalidDateRangeError("end_date must be after start_date")
	}

	overlap, err := s.repo.HasOverlap(ctx, propertyID, in.StartDate, in.EndDate)
	if err != nil {
		return nil, apperrors.NewQueryExecutionFailedError(err)
	}
	if overlap {
		return nil, apperrors.NewDatesUnavailableError("period overlaps an existing block")
	}

	block := &models.Availability{
		PropertyID:  propertyID,
		StartDate:   in.StartDate,
		EndDate:     in.EndDate,
		BlockType:   in.BlockType,
		ClientName:  in.ClientName,
		ClientPhone: in.ClientPhone,
		Notes:       in.Notes,
		CreatedAt:   s.now().UTC(),
	}
	if err := s.repo.CreateBlock(ctx, block); err != nil {
		return nil, apperrors.NewQueryExecutionFailedError(err)
	}
	return block, nil
}

func (s *Service) DeleteBlock(ctx context.Context, propertyID, ownerID string, blockID int64) error {
	if _, err := s.getOwned(ctx, propertyID, ownerID); err != nil {
		return err
	}
	err := s.repo.DeleteBlock(ctx, propertyID, blockID)
	if err == sql.ErrNoRows {
		return apperrors.NewResourceNotFoundError("Availability block", "")
	}
	if err != nil {
		return apperrors.NewQueryExecutionFailedError(err)
	}
	return nil
}

// Calendar lists unavailability periods intersecting [from, to).
func (s *Service) Calendar(ctx context.Context, propertyID string, from, to time.Time) ([]*models.Availability, error) {
	if !to.After(from) {
		return nil, apperrors.NewInvalidDateRangeError("to must be after from")
	}
	blocks, err := s.repo.ListBlocks(ctx, propertyID, from, to)
	if err != nil {
		return nil, apperrors.NewQueryExecutionFailedError(err)
	}
	return blocks, nil
}

type DiscountInput struct {
	MinDays            int     `json:"min_days" binding:"required,min=1"`
	DiscountPercentage float64 `json:"discount_percentage" binding:"required,gt=0,lte=100"`
}

func (s *Service) SetDiscount(ctx context.Context, propertyID, ownerID string, in DiscountInput) (*models.LongStayDiscount, error) {
	if _, err := s.getOwned(ctx, propertyID, ownerID); err != nil {
		return nil, err
	}
	d := &models.LongStayDiscount{
		PropertyID:         propertyID,
		MinDays:            in.MinDays,
		DiscountPercentage: in.DiscountPercentage,
	}
	if err := s.repo.UpsertDiscount(ctx, d); err != nil {
		return nil, apperrors.NewQueryExecutionFailedError(err)
	}
	return d, nil
}

// RefreshRating updates the denormalized rating aggregate and reindexes.
func (s *Service) RefreshRating(ctx context.Context, propertyID string, avg float64, count int) error {
	if err := s.repo.UpdateRating(ctx, propertyID, avg, count); err != nil {
		return apperrors.NewQueryExecutionFailedError(err)
	}
	s.invalidateCache(ctx, propertyID)

	if s.index != nil {
		if p, err := s.repo.GetByID(ctx, propertyID); err == nil {
			s.reindex(ctx, p)
		}
	}
	return nil
}

func (s *Service) invalidateCache(ctx context.Context, propertyID string) {
	if err := s.redis.Del(ctx, propertyCachePrefix+propertyID).Err(); err != nil {
		s.logger.WithError(err).Warn("property cache invalidation failed", map[string]interface{}{"property_id": propertyID})
	}
}

func (s *Service) reindex(ctx context.Context, p *models.Property) {
	if s.index == nil {
		return
	}
	if err := s.index.IndexProperty(ctx, search.DocFromProperty(p)); err != nil {
		s.logger.WithError(err).Warn("search index update failed", map[string]interface{}{"property_id": p.ID})
	}
}
