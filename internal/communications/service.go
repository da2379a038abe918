package communications

import (
	"context"
	"database/sql"
	"time"

	apperrors "findam-backend/internal/common/errors"
	"findam-backend/internal/common/logger"
	"findam-backend/internal/models"
	"findam-backend/internal/properties"

	"github.com/google/uuid"
)

// Service implements tenant/owner messaging and in-app notifications.
type Service struct {
	repo       *Repository
	properties *properties.Service
	logger     logger.Logger
	now        func() time.Time
}

func NewService(repo *Repository, p *properties.Service, log logger.Logger) *Service {
	return &Service{
		repo:       repo,
		properties: p,
		logger:     log,
		now:        time.Now,
	}
}

type StartConversationInput struct {
	PropertyID string `json:"property_id" binding:"required"`
	BookingID  string `json:"booking_id"`
	Content    string `json:"content" binding:"required"`
}

// StartConversation opens (or reuses) a conversation between the caller and
// the property's owner, and posts the first message.
func (s *Service) StartConversation(ctx context.Context, userID string, in StartConversationInput) (*models.Conversation, *models.Message, error) {
	property, err := s.properties.Get(ctx, in.PropertyID)
	if err != nil {
		return nil, nil, err
	}
	if property.OwnerID == userID {
		return nil, nil, apperrors.NewValidationFailedError("cannot start a conversation with yourself")
	}

	now := s.now().UTC()
	convID, err := s.repo.FindConversation(ctx, in.PropertyID, userID, property.OwnerID)
	if err == sql.ErrNoRows {
		conv := &models.Conversation{
			ID:             uuid.NewString(),
			PropertyID:     in.PropertyID,
			BookingID:      in.BookingID,
			IsActive:       true,
			CreatedAt:      now,
			UpdatedAt:      now,
			ParticipantIDs: []string{userID, property.OwnerID},
		}
		if err := s.repo.CreateConversation(ctx, conv); err != nil {
			return nil, nil, apperrors.NewQueryExecutionFailedError(err)
		}
		convID = conv.ID
	} else if err != nil {
		return nil, nil, apperrors.NewQueryExecutionFailedError(err)
	}

	conv, err := s.repo.GetConversation(ctx, convID)
	if err != nil {
		return nil, nil, apperrors.NewQueryExecutionFailedError(err)
	}
	msg, err := s.SendMessage(ctx, userID, convID, MessageInput{Content: in.Content})
	if err != nil {
		return nil, nil, err
	}
	return conv, msg, nil
}

type MessageInput struct {
	Content     string `json:"content" binding:"required"`
	MessageType string `json:"message_type"`
	PromoCodeID *int64 `json:"promo_code_id"`
}

// SendMessage posts a message into a conversation the caller belongs to and
// raises a new_message notification for the other participants.
func (s *Service) SendMessage(ctx context.Context, userID, conversationID string, in MessageInput) (*models.Message, error) {
	conv, err := s.repo.GetConversation(ctx, conversationID)
	if err == sql.ErrNoRows {
		return nil, apperrors.NewResourceNotFoundError("Conversation", "conversationId: "+conversationID)
	}
	if err != nil {
		return nil, apperrors.NewQueryExecutionFailedError(err)
	}
	if !conv.HasParticipant(userID) {
		return nil, apperrors.NewForbiddenError("not a participant of this conversation")
	}
	if !conv.IsActive {
		return nil, apperrors.NewValidationFailedError("conversation is closed")
	}

	msgType := in.MessageType
	if msgType == "" {
		msgType = models.MessageText
	}
	switch msgType {
	case models.MessageText, models.MessageSystem:
	case models.MessagePromoCode:
		if in.PromoCodeID == nil {
			return nil, apperrors.NewValidationFailedError("promo_code messages require promo_code_id")
		}
	default:
		return nil, apperrors.NewValidationFailedError("unknown message type: " + msgType)
	}

	now := s.now().UTC()
	msg := &models.Message{
		ID:             uuid.NewString(),
		ConversationID: conversationID,
		SenderID:       userID,
		MessageType:    msgType,
		Content:        in.Content,
		PromoCodeID:    in.PromoCodeID,
		CreatedAt:      now,
	}
	if err := s.repo.CreateMessage(ctx, msg); err != nil {
		return nil, apperrors.NewQueryExecutionFailedError(err)
	}
	if err := s.repo.TouchConversation(ctx, conversationID, now); err != nil {
		s.logger.WithError(err).Warn("conversation touch failed", map[string]interface{}{"conversation_id": conversationID})
	}

	for _, other := range conv.ParticipantIDs {
		if other == userID {
			continue
		}
		s.createNotification(ctx, &models.Notification{
			ID:               uuid.NewString(),
			UserID:           other,
			NotificationType: models.NotificationNewMessage,
			Title:            "Nouveau message",
			Body:             "Vous avez reçu un nouveau message sur Findam.",
			RelatedID:        conversationID,
			CreatedAt:        now,
		})
	}
	return msg, nil
}

// ListConversations returns the caller's conversations, most recent first.
func (s *Service) ListConversations(ctx context.Context, userID string) ([]*models.Conversation, error) {
	out, err := s.repo.ListConversations(ctx, userID)
	if err != nil {
		return nil, apperrors.NewQueryExecutionFailedError(err)
	}
	return out, nil
}

// ListMessages returns a page of messages and marks the other side's messages
// as read.
func (s *Service) ListMessages(ctx context.Context, userID, conversationID string, limit, offset int) ([]*models.Message, error) {
	conv, err := s.repo.GetConversation(ctx, conversationID)
	if err == sql.ErrNoRows {
		return nil, apperrors.NewResourceNotFoundError("Conversation", "conversationId: "+conversationID)
	}
	if err != nil {
		return nil, apperrors.NewQueryExecutionFailedError(err)
	}
	if !conv.HasParticipant(userID) {
		return nil, apperrors.NewForbiddenError("not a participant of this conversation")
	}

	msgs, err := s.repo.ListMessages(ctx, conversationID, limit, offset)
	if err != nil {
		return nil, apperrors.NewQueryExecutionFailedError(err)
	}
	if _, err := s.repo.MarkMessagesRead(ctx, conversationID, userID, s.now().UTC()); err != nil {
		s.logger.WithError(err).Warn("mark read failed", map[string]interface{}{"conversation_id": conversationID})
	}
	return msgs, nil
}

func (s *Service) ListNotifications(ctx context.Context, userID string, unreadOnly bool, limit, offset int) ([]*models.Notification, error) {
	out, err := s.repo.ListNotifications(ctx, userID, unreadOnly, limit, offset)
	if err != nil {
		return nil, apperrors.NewQueryExecutionFailedError(err)
	}
	return out, nil
}

func (s *Service) MarkNotificationRead(ctx context.Context, userID, notificationID string) error {
	err := s.repo.MarkNotificationRead(ctx, notificationID, userID, s.now().UTC())
	if err == sql.ErrNoRows {
		return apperrors.NewResourceNotFoundError("Notification", "notificationId: "+notificationID)
	}
	if err != nil {
		return apperrors.NewQueryExecutionFailedError(err)
	}
	return nil
}

func (s *Service) createNotification(ctx context.Context, n *models.Notification) {
	if err := s.repo.CreateNotification(ctx, n); err != nil {
		s.logger.WithError(err).Warn("notification insert failed", map[string]interface{}{
			"user_id": n.UserID,
			"type":    n.NotificationType,
		})
	}
}
