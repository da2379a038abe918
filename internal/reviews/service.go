package reviews

import (
	"context"
	"database/sql"
	"time"

	"findam-backend/internal/bookings"
	apperrors "findam-backend/internal/common/errors"
	"findam-backend/internal/common/logger"
	"findam-backend/internal/models"
	"findam-backend/internal/properties"

	"github.com/google/uuid"
)

// ReviewNotifier is implemented by communications.Notifier.
type ReviewNotifier interface {
	ReviewReceived(ctx context.Context, r *models.Review)
}

// Service implements reviews of completed stays, owner replies and reports.
type Service struct {
	repo       *Repository
	bookings   *bookings.Repository
	properties *properties.Service
	notifier   ReviewNotifier
	logger     logger.Logger
	now        func() time.Time
}

func NewService(repo *Repository, b *bookings.Repository, p *properties.Service, log logger.Logger) *Service {
	return &Service{
		repo:       repo,
		bookings:   b,
		properties: p,
		logger:     log,
		now:        time.Now,
	}
}

// SetNotifier breaks the construction cycle with communications.
func (s *Service) SetNotifier(n ReviewNotifier) { s.notifier = n }

type ReviewInput struct {
	BookingID           string     `json:"booking_id" binding:"required"`
	CleanlinessRating   int        `json:"cleanliness_rating" binding:"required,min=1,max=5"`
	LocationRating      int        `json:"location_rating" binding:"required,min=1,max=5"`
	ValueRating         int        `json:"value_rating" binding:"required,min=1,max=5"`
	CommunicationRating int        `json:"communication_rating" binding:"required,min=1,max=5"`
	Title               string     `json:"title" binding:"max=100"`
	Comment             string     `json:"comment"`
	StayDate            *time.Time `json:"stay_date" time_format:"2006-01-02"`
}

// Create posts a review for the tenant's own completed stay, one per booking,
// and refreshes the property's rating aggregate.
func (s *Service) Create(ctx context.Context, tenantID string, in ReviewInput) (*models.Review, error) {
	booking, err := s.bookings.GetByID(ctx, in.BookingID)
	if err == sql.ErrNoRows {
		return nil, apperrors.NewBookingNotFoundError(in.BookingID)
	}
	if err != nil {
		return nil, apperrors.NewQueryExecutionFailedError(err)
	}
	if booking.TenantID != tenantID {
		return nil, apperrors.NewForbiddenError("booking belongs to another tenant")
	}
	if booking.Status != models.BookingCompleted {
		return nil, apperrors.NewValidationFailedError("only completed stays can be reviewed")
	}

	exists, err := s.repo.ExistsForBooking(ctx, in.BookingID)
	if err != nil {
		return nil, apperrors.NewQueryExecutionFailedError(err)
	}
	if exists {
		return nil, apperrors.NewReviewExistsError(in.BookingID)
	}

	stayDate := in.StayDate
	if stayDate == nil {
		// Default to the end of the reviewed stay.
		d := booking.CheckOutDate
		stayDate = &d
	}

	now := s.now().UTC()
	rev := &models.Review{
		ID:                  uuid.NewString(),
		BookingID:           booking.ID,
		PropertyID:          booking.PropertyID,
		TenantID:            tenantID,
		CleanlinessRating:   in.CleanlinessRating,
		LocationRating:      in.LocationRating,
		ValueRating:         in.ValueRating,
		CommunicationRating: in.CommunicationRating,
		Title:               in.Title,
		Comment:             in.Comment,
		StayDate:            stayDate,
		IsPublished:         true,
		CreatedAt:           now,
		UpdatedAt:           now,
	}
	rev.OverallRating = rev.ComputeOverall()

	if err := s.repo.Create(ctx, rev); err != nil {
		return nil, apperrors.NewQueryExecutionFailedError(err)
	}

	s.refreshAggregate(ctx, booking.PropertyID)
	if s.notifier != nil {
		s.notifier.ReviewReceived(ctx, rev)
	}
	s.logger.Info("review posted", map[string]interface{}{
		"review_id":   rev.ID,
		"property_id": rev.PropertyID,
		"rating":      rev.OverallRating,
	})
	return rev, nil
}

func (s *Service) refreshAggregate(ctx context.Context, propertyID string) {
	avg, count, err := s.repo.PropertyAggregate(ctx, propertyID)
	if err != nil {
		s.logger.WithError(err).Warn("rating aggregate query failed", map[string]interface{}{"property_id": propertyID})
		return
	}
	if err := s.properties.RefreshRating(ctx, propertyID, avg, count); err != nil {
		s.logger.WithError(err).Warn("rating aggregate update failed", map[string]interface{}{"property_id": propertyID})
	}
}

func (s *Service) ListByProperty(ctx context.Context, propertyID string, limit, offset int) ([]*models.Review, error) {
	out, err := s.repo.ListByProperty(ctx, propertyID, limit, offset)
	if err != nil {
		return nil, apperrors.NewQueryExecutionFailedError(err)
	}
	return out, nil
}

type ReplyInput struct {
	Content string `json:"content" binding:"required"`
}

// Reply lets the property owner answer a review, once.
func (s *Service) Reply(ctx context.Context, reviewID, ownerID string, in ReplyInput) (*models.ReviewReply, error) {
	rev, err := s.repo.GetByID(ctx, reviewID)
	if err == sql.ErrNoRows {
		return nil, apperrors.NewResourceNotFoundError("Review", "reviewId: "+reviewID)
	}
	if err != nil {
		return nil, apperrors.NewQueryExecutionFailedError(err)
	}

	property, err := s.properties.Get(ctx, rev.PropertyID)
	if err != nil {
		return nil, err
	}
	if property.OwnerID != ownerID {
		return nil, apperrors.NewForbiddenError("review is for another owner's property")
	}

	exists, err := s.repo.ReplyExists(ctx, reviewID)
	if err != nil {
		return nil, apperrors.NewQueryExecutionFailedError(err)
	}
	if exists {
		return nil, apperrors.NewValidationFailedError("review already has a reply")
	}

	now := s.now().UTC()
	reply := &models.ReviewReply{
		ID:        uuid.NewString(),
		ReviewID:  reviewID,
		OwnerID:   ownerID,
		Content:   in.Content,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := s.repo.CreateReply(ctx, reply); err != nil {
		return nil, apperrors.NewQueryExecutionFailedError(err)
	}
	return reply, nil
}

type ReportInput struct {
	Reason  string `json:"reason" binding:"required,oneof=inappropriate fake spam other"`
	Details string `json:"details"`
}

func (s *Service) Report(ctx context.Context, reviewID, reporterID string, in ReportInput) (*models.ReviewReport, error) {
	if _, err := s.repo.GetByID(ctx, reviewID); err == sql.ErrNoRows {
		return nil, apperrors.NewResourceNotFoundError("Review", "reviewId: "+reviewID)
	} else if err != nil {
		return nil, apperrors.NewQueryExecutionFailedError(err)
	}

	report := &models.ReviewReport{
		ID:         uuid.NewString(),
		ReviewID:   reviewID,
		ReporterID: reporterID,
		Reason:     in.Reason,
		Details:    in.Details,
		CreatedAt:  s.now().UTC(),
	}
	if err := s.repo.CreateReport(ctx, report); err != nil {
		return nil, apperrors.NewQueryExecutionFailedError(err)
	}

	s.logger.Info("review reported", map[string]interface{}{
		"review_id": reviewID,
		"reason":    in.Reason,
	})
	return report, nil
}
