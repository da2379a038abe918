package models

import "time"

// Message types.
const (
	MessageText      = "text"
	MessageSystem    = "system"
	MessagePromoCode = "promo_code"
)

// Notification types.
const (
	NotificationBookingRequest   = "booking_request"
	NotificationBookingConfirmed = "booking_confirmed"
	NotificationBookingCancelled = "booking_cancelled"
	NotificationPaymentReceived  = "payment_received"
	NotificationPayoutSent       = "payout_sent"
	NotificationNewMessage       = "new_message"
	NotificationNewReview        = "new_review"
)

type Conversation struct {
	ID         string    `json:"id"`
	PropertyID string    `json:"property_id,omitempty"`
	BookingID  string    `json:"booking_id,omitempty"`
	IsActive   bool      `json:"is_active"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`

	ParticipantIDs []string `json:"participant_ids,omitempty"`

	// UnreadCount is computed per reader on conversation listings.
	UnreadCount int `json:"unread_count"`
}

// HasParticipant reports whether userID is part of the conversation.
func (c *Conversation) HasParticipant(userID string) bool {
	for _, id := range c.ParticipantIDs {
		if id == userID {
			return true
		}
	}
	return false
}

type Message struct {
	ID             string     `json:"id"`
	ConversationID string     `json:"conversation_id"`
	SenderID       string     `json:"sender_id"`
	MessageType    string     `json:"message_type"`
	Content        string     `json:"content"`
	PromoCodeID    *int64     `json:"promo_code_id,omitempty"`
	IsRead         bool       `json:"is_read"`
	ReadAt         *time.Time `json:"read_at,omitempty"`
	CreatedAt      time.Time  `json:"created_at"`
}

type Notification struct {
	ID               string     `json:"id"`
	UserID           string     `json:"user_id"`
	NotificationType string     `json:"notification_type"`
	Title            string     `json:"title"`
	Body             string     `json:"body"`
	RelatedID        string     `json:"related_id,omitempty"`
	IsRead           bool       `json:"is_read"`
	ReadAt           *time.Time `json:"read_at,omitempty"`
	CreatedAt        time.Time  `json:"created_at"`
}
