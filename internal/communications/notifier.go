package communications

import (
	"context"
	"fmt"
	"time"

	"findam-backend/internal/accounts"
	"findam-backend/internal/common/config"
	"findam-backend/internal/common/logger"
	"findam-backend/internal/common/metrics"
	"findam-backend/internal/models"
	"findam-backend/internal/properties"

	"github.com/google/uuid"
)

// EmailSender is satisfied by aws.SESClient.
type EmailSender interface {
	SendSimpleEmail(ctx context.Context, from, to, subject, body string) error
}

// SMSSender is satisfied by aws.SNSClient.
type SMSSender interface {
	SendSMS(ctx context.Context, phone, message, senderID string) error
}

// Notifier fans booking lifecycle events out as in-app notifications plus
// email and SMS, per the notifications config. Either sender may be nil when
// the corresponding channel is disabled.
type Notifier struct {
	repo       *Repository
	accounts   *accounts.Repository
	properties *properties.Service
	email      EmailSender
	sms        SMSSender
	cfg        config.NotificationConfig
	logger     logger.Logger
	now        func() time.Time
}

func NewNotifier(repo *Repository, acc *accounts.Repository, props *properties.Service,
	email EmailSender, sms SMSSender, cfg config.NotificationConfig, log logger.Logger) *Notifier {
	return &Notifier{
		repo:       repo,
		accounts:   acc,
		properties: props,
		email:      email,
		sms:        sms,
		cfg:        cfg,
		logger:     log,
		now:        time.Now,
	}
}

// BookingEvent delivers the event to the relevant party. Failures are logged,
// never propagated: notifications must not fail the triggering operation.
func (n *Notifier) BookingEvent(ctx context.Context, b *models.Booking, event string) {
	property, err := n.properties.Get(ctx, b.PropertyID)
	if err != nil {
		n.logger.WithError(err).Warn("notification skipped, property lookup failed", map[string]interface{}{
			"booking_id": b.ID,
			"event":      event,
		})
		return
	}

	switch event {
	case models.NotificationBookingRequest:
		n.deliver(ctx, property.OwnerID, models.NotificationBookingRequest, b.ID,
			"Nouvelle demande de réservation",
			fmt.Sprintf("Vous avez reçu une demande de réservation pour « %s » du %s au %s.",
				property.Title, b.CheckInDate.Format("02/01/2006"), b.CheckOutDate.Format("02/01/2006")))
	case models.NotificationBookingConfirmed:
		n.deliver(ctx, b.TenantID, models.NotificationBookingConfirmed, b.ID,
			"Réservation confirmée",
			fmt.Sprintf("Votre réservation pour « %s » est confirmée. Arrivée le %s.",
				property.Title, b.CheckInDate.Format("02/01/2006")))
	case models.NotificationBookingCancelled:
		body := fmt.Sprintf("La réservation pour « %s » du %s au %s a été annulée.",
			property.Title, b.CheckInDate.Format("02/01/2006"), b.CheckOutDate.Format("02/01/2006"))
		n.deliver(ctx, b.TenantID, models.NotificationBookingCancelled, b.ID, "Réservation annulée", body)
		n.deliver(ctx, property.OwnerID, models.NotificationBookingCancelled, b.ID, "Réservation annulée", body)
	default:
		n.logger.Warn("unknown booking event", map[string]interface{}{"event": event})
	}
}

// ReviewReceived tells the owner a tenant reviewed their property.
func (n *Notifier) ReviewReceived(ctx context.Context, r *models.Review) {
	property, err := n.properties.Get(ctx, r.PropertyID)
	if err != nil {
		n.logger.WithError(err).Warn("notification skipped, property lookup failed", map[string]interface{}{
			"review_id": r.ID,
		})
		return
	}
	n.deliver(ctx, property.OwnerID, models.NotificationNewReview, r.ID,
		"Nouvel avis",
		fmt.Sprintf("« %s » a reçu un nouvel avis (%.1f/5).", property.Title, r.OverallRating))
}

// PaymentReceived tells the tenant their payment settled and the owner that a
// stay was paid for.
func (n *Notifier) PaymentReceived(ctx context.Context, b *models.Booking, amount int64) {
	n.deliver(ctx, b.TenantID, models.NotificationPaymentReceived, b.ID,
		"Paiement reçu",
		fmt.Sprintf("Votre paiement de %d FCFA a bien été reçu. Merci !", amount))
}

// PayoutSent tells the owner a payout left for their Mobile Money account.
func (n *Notifier) PayoutSent(ctx context.Context, ownerID string, amount int64, payoutID string) {
	n.deliver(ctx, ownerID, models.NotificationPayoutSent, payoutID,
		"Versement envoyé",
		fmt.Sprintf("Un versement de %d FCFA est en route vers votre compte Mobile Money.", amount))
}

func (n *Notifier) deliver(ctx context.Context, userID, ntype, relatedID, title, body string) {
	notif := &models.Notification{
		ID:               uuid.NewString(),
		UserID:           userID,
		NotificationType: ntype,
		Title:            title,
		Body:             body,
		RelatedID:        relatedID,
		CreatedAt:        n.now().UTC(),
	}
	if err := n.repo.CreateNotification(ctx, notif); err != nil {
		metrics.NotificationsSent.WithLabelValues("in_app", "failed").Inc()
		n.logger.WithError(err).Warn("notification insert failed", map[string]interface{}{
			"user_id": userID,
			"type":    ntype,
		})
	} else {
		metrics.NotificationsSent.WithLabelValues("in_app", "sent").Inc()
	}

	user, err := n.accounts.GetUserByID(ctx, userID)
	if err != nil {
		n.logger.WithError(err).Warn("notification recipient lookup failed", map[string]interface{}{"user_id": userID})
		return
	}

	if n.cfg.Email.Enabled && n.email != nil && user.Email != "" {
		if err := n.email.SendSimpleEmail(ctx, n.cfg.Email.FromEmail, user.Email, title, body); err != nil {
			metrics.NotificationsSent.WithLabelValues("email", "failed").Inc()
			n.logger.WithError(err).Warn("email send failed", map[string]interface{}{"user_id": userID})
		} else {
			metrics.NotificationsSent.WithLabelValues("email", "sent").Inc()
		}
	}

	if n.cfg.SMS.Enabled && n.sms != nil && user.PhoneNumber != "" {
		if err := n.sms.SendSMS(ctx, user.PhoneNumber, title+" : "+body, n.cfg.SMS.SenderID); err != nil {
			metrics.NotificationsSent.WithLabelValues("sms", "failed").Inc()
			n.logger.WithError(err).Warn("sms send failed", map[string]interface{}{"user_id": userID})
		} else {
			metrics.NotificationsSent.WithLabelValues("sms", "sent").Inc()
		}
	}
}
