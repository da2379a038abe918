package communications

import (
	"context"
	"database/sql"
	"encoding/json"
	"testing"
	"time"

	"findam-backend/internal/accounts"
	"findam-backend/internal/common/config"
	apperrors "findam-backend/internal/common/errors"
	"findam-backend/internal/common/logger"
	"findam-backend/internal/models"
	"findam-backend/internal/properties"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/go-redis/redismock/v9"
	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestService(t *testing.T) (*Service, sqlmock.Sqlmock, redismock.ClientMock) {
	t.Helper()

	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	rdb, redisMock := redismock.NewClientMock()
	log := logger.NewTestLogger(t)
	propSvc := properties.NewService(properties.NewRepository(db), rdb, nil, log)

	return NewService(NewRepository(db), propSvc, log), mock, redisMock
}

func cacheProperty(t *testing.T, redisMock redismock.ClientMock, p *models.Property) {
	t.Helper()
	raw, err := json.Marshal(p)
	require.NoError(t, err)
	redisMock.ExpectGet("property:" + p.ID).SetVal(string(raw))
}

func conversationRows(convID string, participants ...string) *sqlmock.Rows {
	now := time.Now()
	return sqlmock.NewRows([]string{
		"id", "property_id", "booking_id", "is_active", "created_at", "updated_at", "participants",
	}).AddRow(convID, "prop-1", "", true, now, now, pq.StringArray(participants))
}

func TestStartConversation(t *testing.T) {
	property := &models.Property{ID: "prop-1", OwnerID: "owner-1", Title: "Studio Bonapriso"}

	t.Run("creates conversation with owner and first message", func(t *testing.T) {
		svc, mock, redisMock := newTestService(t)
		cacheProperty(t, redisMock, property)

		mock.ExpectQuery(`SELECT c\.id\s+FROM findam_conversations`).
			WillReturnError(sql.ErrNoRows)
		mock.ExpectExec(`INSERT INTO findam_conversations`).
			WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectExec(`INSERT INTO findam_conversation_participants`).
			WithArgs(sqlmock.AnyArg(), "tenant-1").
			WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectExec(`INSERT INTO findam_conversation_participants`).
			WithArgs(sqlmock.AnyArg(), "owner-1").
			WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectQuery(`SELECT c\.id, COALESCE`).
			WillReturnRows(conversationRows("conv-1", "tenant-1", "owner-1"))
		// SendMessage re-reads the conversation before inserting.
		mock.ExpectQuery(`SELECT c\.id, COALESCE`).
			WillReturnRows(conversationRows("conv-1", "tenant-1", "owner-1"))
		mock.ExpectExec(`INSERT INTO findam_messages`).
			WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectExec(`UPDATE findam_conversations SET updated_at`).
			WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectExec(`INSERT INTO findam_notifications`).
			WithArgs(sqlmock.AnyArg(), "owner-1", models.NotificationNewMessage,
				sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg(), false, sqlmock.AnyArg()).
			WillReturnResult(sqlmock.NewResult(0, 1))

		conv, msg, err := svc.StartConversation(context.Background(), "tenant-1", StartConversationInput{
			PropertyID: "prop-1",
			Content:    "Bonjour, le studio est-il libre en septembre ?",
		})
		require.NoError(t, err)
		assert.Equal(t, "conv-1", conv.ID)
		assert.Equal(t, models.MessageText, msg.MessageType)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("owner cannot message themselves", func(t *testing.T) {
		svc, _, redisMock := newTestService(t)
		cacheProperty(t, redisMock, property)

		_, _, err := svc.StartConversation(context.Background(), "owner-1", StartConversationInput{
			PropertyID: "prop-1",
			Content:    "salut",
		})
		se := apperrors.AsStandard(err)
		require.NotNil(t, se)
		assert.Equal(t, apperrors.ErrCodeValidationFailed, se.Code)
	})
}

func TestSendMessage(t *testing.T) {
	t.Run("non participant is rejected", func(t *testing.T) {
		svc, mock, _ := newTestService(t)

		mock.ExpectQuery(`SELECT c\.id, COALESCE`).
			WillReturnRows(conversationRows("conv-1", "tenant-1", "owner-1"))

		_, err := svc.SendMessage(context.Background(), "stranger", "conv-1", MessageInput{Content: "hi"})
		se := apperrors.AsStandard(err)
		require.NotNil(t, se)
		assert.Equal(t, apperrors.ErrCodeForbidden, se.Code)
	})

	t.Run("promo message requires a promo id", func(t *testing.T) {
		svc, mock, _ := newTestService(t)

		mock.ExpectQuery(`SELECT c\.id, COALESCE`).
			WillReturnRows(conversationRows("conv-1", "tenant-1", "owner-1"))

		_, err := svc.SendMessage(context.Background(), "owner-1", "conv-1", MessageInput{
			Content:     "Voici un code promo",
			MessageType: models.MessagePromoCode,
		})
		se := apperrors.AsStandard(err)
		require.NotNil(t, se)
		assert.Equal(t, apperrors.ErrCodeValidationFailed, se.Code)
	})

	t.Run("promo message carries the promo id", func(t *testing.T) {
		svc, mock, _ := newTestService(t)
		promoID := int64(42)

		mock.ExpectQuery(`SELECT c\.id, COALESCE`).
			WillReturnRows(conversationRows("conv-1", "tenant-1", "owner-1"))
		mock.ExpectExec(`INSERT INTO findam_messages`).
			WithArgs(sqlmock.AnyArg(), "conv-1", "owner-1", models.MessagePromoCode,
				sqlmock.AnyArg(), &promoID, false, sqlmock.AnyArg()).
			WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectExec(`UPDATE findam_conversations SET updated_at`).
			WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectExec(`INSERT INTO findam_notifications`).
			WillReturnResult(sqlmock.NewResult(0, 1))

		msg, err := svc.SendMessage(context.Background(), "owner-1", "conv-1", MessageInput{
			Content:     "Voici un code promo pour votre prochain séjour",
			MessageType: models.MessagePromoCode,
			PromoCodeID: &promoID,
		})
		require.NoError(t, err)
		require.NotNil(t, msg.PromoCodeID)
		assert.Equal(t, promoID, *msg.PromoCodeID)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestListMessagesMarksRead(t *testing.T) {
	svc, mock, _ := newTestService(t)
	now := time.Now()

	mock.ExpectQuery(`SELECT c\.id, COALESCE`).
		WillReturnRows(conversationRows("conv-1", "tenant-1", "owner-1"))
	mock.ExpectQuery(`SELECT id, conversation_id, sender_id`).
		WillReturnRows(sqlmock.NewRows([]string{
			"id", "conversation_id", "sender_id", "message_type", "content", "promo_code_id", "is_read", "read_at", "created_at",
		}).AddRow("msg-1", "conv-1", "owner-1", models.MessageText, "bonjour", nil, false, nil, now))
	mock.ExpectExec(`UPDATE findam_messages SET is_read = TRUE`).
		WithArgs(sqlmock.AnyArg(), "conv-1", "tenant-1").
		WillReturnResult(sqlmock.NewResult(0, 1))

	msgs, err := svc.ListMessages(context.Background(), "tenant-1", "conv-1", 0, 0)
	require.NoError(t, err)
	require.Len(t, msgs, 1)
	assert.Equal(t, "bonjour", msgs[0].Content)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestListConversationsUnreadCount(t *testing.T) {
	svc, mock, _ := newTestService(t)
	now := time.Now()

	mock.ExpectQuery(`SELECT c\.id, COALESCE`).
		WithArgs("tenant-1").
		WillReturnRows(sqlmock.NewRows([]string{
			"id", "property_id", "booking_id", "is_active", "created_at", "updated_at", "participants", "unread_count",
		}).AddRow("conv-1", "prop-1", "", true, now, now, pq.StringArray([]string{"tenant-1", "owner-1"}), 3))

	out, err := svc.ListConversations(context.Background(), "tenant-1")
	require.NoError(t, err)
	require.Len(t, out, 1)
	assert.Equal(t, 3, out[0].UnreadCount)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestNotifier(t *testing.T) {
	property := &models.Property{ID: "prop-1", OwnerID: "owner-1", Title: "Villa Bastos"}
	booking := &models.Booking{
		ID:           "book-1",
		PropertyID:   "prop-1",
		TenantID:     "tenant-1",
		CheckInDate:  time.Date(2026, 9, 1, 0, 0, 0, 0, time.UTC),
		CheckOutDate: time.Date(2026, 9, 5, 0, 0, 0, 0, time.UTC),
	}

	newNotifier := func(t *testing.T, email *fakeEmail, sms *fakeSMS) (*Notifier, sqlmock.Sqlmock, redismock.ClientMock) {
		db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
		require.NoError(t, err)
		t.Cleanup(func() { db.Close() })

		rdb, redisMock := redismock.NewClientMock()
		log := logger.NewTestLogger(t)
		propSvc := properties.NewService(properties.NewRepository(db), rdb, nil, log)

		cfg := config.NotificationConfig{}
		cfg.Email.Enabled = true
		cfg.Email.FromEmail = "no-reply@findam.cm"
		cfg.SMS.Enabled = true
		cfg.SMS.SenderID = "FINDAM"

		n := NewNotifier(NewRepository(db), accounts.NewRepository(db), propSvc, email, sms, cfg, log)
		return n, mock, redisMock
	}

	userRows := func(email, phone string) *sqlmock.Rows {
		return sqlmock.NewRows([]string{
			"id", "email", "phone_number", "password_hash", "first_name", "last_name",
			"user_type", "is_active", "is_verified", "date_joined", "last_login",
		}).AddRow("owner-1", email, phone, "x", "Aline", "Ngo", models.UserTypeOwner, true, true, time.Now(), nil)
	}

	t.Run("booking request notifies the owner on all channels", func(t *testing.T) {
		email := &fakeEmail{}
		sms := &fakeSMS{}
		n, mock, redisMock := newNotifier(t, email, sms)
		cacheProperty(t, redisMock, property)

		mock.ExpectExec(`INSERT INTO findam_notifications`).
			WithArgs(sqlmock.AnyArg(), "owner-1", models.NotificationBookingRequest,
				sqlmock.AnyArg(), sqlmock.AnyArg(), "book-1", false, sqlmock.AnyArg()).
			WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectQuery(`SELECT .+ FROM findam_users WHERE id`).
			WillReturnRows(userRows("aline@findam.cm", "237655123456"))

		n.BookingEvent(context.Background(), booking, models.NotificationBookingRequest)

		require.Len(t, email.sent, 1)
		assert.Equal(t, "aline@findam.cm", email.sent[0].to)
		assert.Contains(t, email.sent[0].body, "Villa Bastos")
		require.Len(t, sms.sent, 1)
		assert.Equal(t, "237655123456", sms.sent[0].phone)
		assert.Equal(t, "FINDAM", sms.sent[0].senderID)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("cancellation notifies both parties", func(t *testing.T) {
		email := &fakeEmail{}
		n, mock, redisMock := newNotifier(t, email, nil)
		cacheProperty(t, redisMock, property)

		mock.ExpectExec(`INSERT INTO findam_notifications`).
			WithArgs(sqlmock.AnyArg(), "tenant-1", models.NotificationBookingCancelled,
				sqlmock.AnyArg(), sqlmock.AnyArg(), "book-1", false, sqlmock.AnyArg()).
			WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectQuery(`SELECT .+ FROM findam_users WHERE id`).
			WillReturnRows(userRows("tenant@findam.cm", ""))
		mock.ExpectExec(`INSERT INTO findam_notifications`).
			WithArgs(sqlmock.AnyArg(), "owner-1", models.NotificationBookingCancelled,
				sqlmock.AnyArg(), sqlmock.AnyArg(), "book-1", false, sqlmock.AnyArg()).
			WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectQuery(`SELECT .+ FROM findam_users WHERE id`).
			WillReturnRows(userRows("aline@findam.cm", ""))

		n.BookingEvent(context.Background(), booking, models.NotificationBookingCancelled)

		assert.Len(t, email.sent, 2)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

type sentEmail struct{ from, to, subject, body string }

type fakeEmail struct{ sent []sentEmail }

func (f *fakeEmail) SendSimpleEmail(_ context.Context, from, to, subject, body string) error {
	f.sent = append(f.sent, sentEmail{from, to, subject, body})
	return nil
}

type sentSMS struct{ phone, message, senderID string }

type fakeSMS struct{ sent []sentSMS }

func (f *fakeSMS) SendSMS(_ context.Context, phone, message, senderID string) error {
	f.sent = append(f.sent, sentSMS{phone, message, senderID})
	return nil
}
