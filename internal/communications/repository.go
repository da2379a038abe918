package communications

import (
	"context"
	"database/sql"
	"time"

	"findam-backend/internal/models"

	"github.com/lib/pq"
)

// Repository provides access to conversation, message and notification rows.
type Repository struct {
	db *sql.DB
}

func NewRepository(db *sql.DB) *Repository {
	return &Repository{db: db}
}

func (r *Repository) CreateConversation(ctx context.Context, c *models.Conversation) error {
	query := `
		INSERT INTO findam_conversations (id, property_id, booking_id, is_active, created_at, updated_at)
		VALUES ($1, NULLIF($2, ''), NULLIF($3, ''), $4, $5, $6)`
	if _, err := r.db.ExecContext(ctx, query,
		c.ID, c.PropertyID, c.BookingID, c.IsActive, c.CreatedAt, c.UpdatedAt); err != nil {
		return err
	}
	for _, userID := range c.ParticipantIDs {
		if _, err := r.db.ExecContext(ctx,
			`INSERT INTO findam_conversation_participants (conversation_id, user_id) VALUES ($1, $2)`,
			c.ID, userID); err != nil {
			return err
		}
	}
	return nil
}

func (r *Repository) GetConversation(ctx context.Context, id string) (*models.Conversation, error) {
	query := `
		SELECT c.id, COALESCE(c.property_id::text, ''), COALESCE(c.booking_id::text, ''), c.is_active, c.created_at, c.updated_at,
			ARRAY_AGG(cp.user_id::text) AS participants
		FROM findam_conversations c
		JOIN findam_conversation_participants cp ON cp.conversation_id = c.id
		WHERE c.id = $1
		GROUP BY c.id`
	var c models.Conversation
	var participants pq.StringArray
	err := r.db.QueryRowContext(ctx, query, id).Scan(
		&c.ID, &c.PropertyID, &c.BookingID, &c.IsActive, &c.CreatedAt, &c.UpdatedAt, &participants)
	if err != nil {
		return nil, err
	}
	c.ParticipantIDs = participants
	return &c, nil
}

// FindConversation returns an existing conversation between the same two
// users about the same property, if any.
func (r *Repository) FindConversation(ctx context.Context, propertyID, userA, userB string) (string, error) {
	query := `
		SELECT c.id
		FROM findam_conversations c
		JOIN findam_conversation_participants pa ON pa.conversation_id = c.id AND pa.user_id = $2
		JOIN findam_conversation_participants pb ON pb.conversation_id = c.id AND pb.user_id = $3
		WHERE c.property_id = $1 AND c.is_active = TRUE
		LIMIT 1`
	var id string
	err := r.db.QueryRowContext(ctx, query, propertyID, userA, userB).Scan(&id)
	if err != nil {
		return "", err
	}
	return id, nil
}

// ListConversations returns the user's conversations with a per-conversation
// count of messages from other senders the user has not read yet.
func (r *Repository) ListConversations(ctx context.Context, userID string) ([]*models.Conversation, error) {
	query := `
		SELECT c.id, COALESCE(c.property_id::text, ''), COALESCE(c.booking_id::text, ''), c.is_active, c.created_at, c.updated_at,
			ARRAY_AGG(cp.user_id::text) AS participants,
			(SELECT COUNT(*) FROM findam_messages m
				WHERE m.conversation_id = c.id AND m.sender_id != $1 AND m.is_read = FALSE) AS unread_count
		FROM findam_conversations c
		JOIN findam_conversation_participants cp ON cp.conversation_id = c.id
		WHERE c.id IN (
			SELECT conversation_id FROM findam_conversation_participants WHERE user_id = $1
		)
		GROUP BY c.id
		ORDER BY c.updated_at DESC`
	rows, err := r.db.QueryContext(ctx, query, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*models.Conversation
	for rows.Next() {
		var c models.Conversation
		var participants pq.StringArray
		if err := rows.Scan(&c.ID, &c.PropertyID, &c.BookingID, &c.IsActive, &c.CreatedAt, &c.UpdatedAt,
			&participants, &c.UnreadCount); err != nil {
			return nil, err
		}
		c.ParticipantIDs = participants
		out = append(out, &c)
	}
	return out, rows.Err()
}

func (r *Repository) TouchConversation(ctx context.Context, id string, at time.Time) error {
	_, err := r.db.ExecContext(ctx,
		`UPDATE findam_conversations SET updated_at = $1 WHERE id = $2`, at, id)
	return err
}

// --- messages ---

func (r *Repository) CreateMessage(ctx context.Context, m *models.Message) error {
	query := `
		INSERT INTO findam_messages (id, conversation_id, sender_id, message_type, content, promo_code_id, is_read, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`
	_, err := r.db.ExecContext(ctx, query,
		m.ID, m.ConversationID, m.SenderID, m.MessageType, m.Content, m.PromoCodeID, m.IsRead, m.CreatedAt)
	return err
}

func (r *Repository) ListMessages(ctx context.Context, conversationID string, limit, offset int) ([]*models.Message, error) {
	if limit <= 0 || limit > 200 {
		limit = 50
	}
	query := `
		SELECT id, conversation_id, sender_id, message_type, content, promo_code_id, is_read, read_at, created_at
		FROM findam_messages
		WHERE conversation_id = $1
		ORDER BY created_at DESC LIMIT $2 OFFSET $3`
	rows, err := r.db.QueryContext(ctx, query, conversationID, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*models.Message
	for rows.Next() {
		var m models.Message
		var promoID sql.NullInt64
		var readAt sql.NullTime
		if err := rows.Scan(&m.ID, &m.ConversationID, &m.SenderID, &m.MessageType, &m.Content,
			&promoID, &m.IsRead, &readAt, &m.CreatedAt); err != nil {
			return nil, err
		}
		if promoID.Valid {
			m.PromoCodeID = &promoID.Int64
		}
		if readAt.Valid {
			m.ReadAt = &readAt.Time
		}
		out = append(out, &m)
	}
	return out, rows.Err()
}

// MarkMessagesRead marks every message from other senders as read.
func (r *Repository) MarkMessagesRead(ctx context.Context, conversationID, readerID string, at time.Time) (int64, error) {
	res, err := r.db.ExecContext(ctx, `
		UPDATE findam_messages SET is_read = TRUE, read_at = $1
		WHERE conversation_id = $2 AND sender_id != $3 AND is_read = FALSE`,
		at, conversationID, readerID)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

// --- notifications ---

func (r *Repository) CreateNotification(ctx context.Context, n *models.Notification) error {
	query := `
		INSERT INTO findam_notifications (id, user_id, notification_type, title, body, related_id, is_read, created_at)
		VALUES ($1, $2, $3, $4, $5, NULLIF($6, ''), $7, $8)`
	_, err := r.db.ExecContext(ctx, query,
		n.ID, n.UserID, n.NotificationType, n.Title, n.Body, n.RelatedID, n.IsRead, n.CreatedAt)
	return err
}

func (r *Repository) ListNotifications(ctx context.Context, userID string, unreadOnly bool, limit, offset int) ([]*models.Notification, error) {
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	query := `
		SELECT id, user_id, notification_type, title, body, COALESCE(related_id::text, ''), is_read, read_at, created_at
		FROM findam_notifications
		WHERE user_id = $1 AND ($2 = FALSE OR is_read = FALSE)
		ORDER BY created_at DESC LIMIT $3 OFFSET $4`
	rows, err := r.db.QueryContext(ctx, query, userID, unreadOnly, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*models.Notification
	for rows.Next() {
		var n models.Notification
		var readAt sql.NullTime
		if err := rows.Scan(&n.ID, &n.UserID, &n.NotificationType, &n.Title, &n.Body,
			&n.RelatedID, &n.IsRead, &readAt, &n.CreatedAt); err != nil {
			return nil, err
		}
		if readAt.Valid {
			n.ReadAt = &readAt.Time
		}
		out = append(out, &n)
	}
	return out, rows.Err()
}

func (r *Repository) MarkNotificationRead(ctx context.Context, id, userID string, at time.Time) error {
	res, err := r.db.ExecContext(ctx, `
		UPDATE findam_notifications SET is_read = TRUE, read_at = $1
		WHERE id = $2 AND user_id = $3`, at, id, userID)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return sql.ErrNoRows
	}
	return nil
}
