package payments

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"findam-backend/internal/accounts"
	"findam-backend/internal/bookings"
	apperrors "findam-backend/internal/common/errors"
	"findam-backend/internal/common/logger"
	"findam-backend/internal/common/metrics"
	"findam-backend/internal/models"
	"findam-backend/internal/properties"

	"github.com/google/uuid"
)

// Gateway abstracts the NotchPay client for testing.
type Gateway interface {
	InitializePayment(ctx context.Context, in InitPaymentInput) (*InitPaymentOutput, error)
	ProcessPayment(ctx context.Context, reference, channel, phone string) (*VerifyOutput, error)
	VerifyPayment(ctx context.Context, reference string) (*VerifyOutput, error)
	CancelPayment(ctx context.Context, reference string) error
	GetChannels(ctx context.Context) ([]Channel, error)
	CreateTransfer(ctx context.Context, in TransferInput) (*TransferOutput, error)
}

// Service implements payment initiation, webhook settlement, the transaction
// ledger, commissions and owner payouts.
type Service struct {
	repo       *Repository
	gateway    Gateway
	bookings   *bookings.Service
	bookingsRW *bookings.Repository
	accounts   *accounts.Repository
	properties *properties.Repository
	hashKey    string
	currency   string
	logger     logger.Logger
	now        func() time.Time
}

type ServiceDeps struct {
	Repo       *Repository
	Gateway    Gateway
	Bookings   *bookings.Service
	BookingsDB *bookings.Repository
	Accounts   *accounts.Repository
	Properties *properties.Repository
	HashKey    string
	Currency   string
	Logger     logger.Logger
}

func NewService(d ServiceDeps) *Service {
	return &Service{
		repo:       d.Repo,
		gateway:    d.Gateway,
		bookings:   d.Bookings,
		bookingsRW: d.BookingsDB,
		accounts:   d.Accounts,
		properties: d.Properties,
		hashKey:    d.HashKey,
		currency:   d.Currency,
		logger:     d.Logger,
		now:        time.Now,
	}
}

type InitiateOutput struct {
	TransactionID    string `json:"transaction_id"`
	Reference        string `json:"reference"`
	AuthorizationURL string `json:"authorization_url"`
	Amount           int64  `json:"amount"`
	Currency         string `json:"currency"`
}

// InitiateBookingPayment opens a Mobile Money charge for the booking total and
// records the pending ledger entry.
func (s *Service) InitiateBookingPayment(ctx context.Context, userID, bookingID string) (*InitiateOutput, error) {
	booking, err := s.bookingsRW.GetByID(ctx, bookingID)
	if err == sql.ErrNoRows {
		return nil, apperrors.NewBookingNotFoundError(bookingID)
	}
	if err != nil {
		return nil, apperrors.NewQueryExecutionFailedError(err)
	}
	if booking.TenantID != userID {
		return nil, apperrors.NewForbiddenError("booking belongs to another user")
	}
	if booking.Status == models.BookingCancelled || booking.Status == models.BookingCompleted {
		return nil, apperrors.NewInvalidStatusChangeError(booking.Status, "payment")
	}
	if booking.PaymentStatus == models.PaymentStatusPaid {
		return nil, apperrors.NewValidationFailedError("booking is already paid")
	}

	user, err := s.accounts.GetUserByID(ctx, userID)
	if err != nil {
		return nil, apperrors.NewQueryExecutionFailedError(err)
	}

	now := s.now().UTC()
	reference := NewReference(now)

	tx := &models.Transaction{
		ID:                uuid.NewString(),
		UserID:            userID,
		TransactionType:   models.TransactionPayment,
		Status:            models.TxPending,
		Amount:            booking.TotalPrice,
		Currency:          s.currency,
		BookingID:         booking.ID,
		ExternalReference: reference,
		Description:       fmt.Sprintf("Booking payment %s", booking.ID),
		CreatedAt:         now,
		UpdatedAt:         now,
	}
	if err := s.repo.CreateTransaction(ctx, tx); err != nil {
		return nil, apperrors.NewQueryExecutionFailedError(err)
	}

	out, err := s.gateway.InitializePayment(ctx, InitPaymentInput{
		Amount:      booking.TotalPrice,
		Currency:    s.currency,
		Reference:   reference,
		Description: tx.Description,
		Email:       user.Email,
		Phone:       user.PhoneNumber,
		Name:        user.FullName(),
	})
	if err != nil {
		s.failTransaction(ctx, tx.ID)
		return nil, apperrors.NewPaymentInitFailedError(err)
	}

	metrics.PaymentsInitiated.Inc()
	s.logger.Info("payment initiated", map[string]interface{}{
		"booking_id": booking.ID,
		"reference":  reference,
		"amount":     booking.TotalPrice,
	})

	return &InitiateOutput{
		TransactionID:    tx.ID,
		Reference:        reference,
		AuthorizationURL: out.AuthorizationURL,
		Amount:           booking.TotalPrice,
		Currency:         s.currency,
	}, nil
}

type ProcessInput struct {
	Channel     string `json:"channel" binding:"required,oneof=cm.mtn cm.orange cm.mobile"`
	PhoneNumber string `json:"phone_number" binding:"required"`
}

// ProcessTransaction charges an initiated payment on the chosen Mobile Money
// channel and applies whatever status the gateway reports.
func (s *Service) ProcessTransaction(ctx context.Context, userID, reference string, in ProcessInput) (*models.Transaction, error) {
	tx, err := s.ownPendingTransaction(ctx, userID, reference)
	if err != nil {
		return nil, err
	}

	out, err := s.gateway.ProcessPayment(ctx, reference, in.Channel, in.PhoneNumber)
	if err != nil {
		return nil, apperrors.NewPaymentGatewayError(err)
	}
	if err := s.settle(ctx, reference, out.Status); err != nil {
		return nil, err
	}
	tx, err = s.repo.GetTransactionByReference(ctx, reference)
	if err != nil {
		return nil, apperrors.NewQueryExecutionFailedError(err)
	}
	return tx, nil
}

// CancelTransaction aborts a pending payment on the gateway and marks the
// ledger entry cancelled.
func (s *Service) CancelTransaction(ctx context.Context, userID, reference string) error {
	if _, err := s.ownPendingTransaction(ctx, userID, reference); err != nil {
		return err
	}
	if err := s.gateway.CancelPayment(ctx, reference); err != nil {
		return apperrors.NewPaymentGatewayError(err)
	}
	return s.settle(ctx, reference, models.TxCancelled)
}

func (s *Service) ownPendingTransaction(ctx context.Context, userID, reference string) (*models.Transaction, error) {
	tx, err := s.repo.GetTransactionByReference(ctx, reference)
	if err == sql.ErrNoRows {
		return nil, apperrors.NewTransactionNotFoundError(reference)
	}
	if err != nil {
		return nil, apperrors.NewQueryExecutionFailedError(err)
	}
	if tx.UserID != userID {
		return nil, apperrors.NewForbiddenError("transaction belongs to another user")
	}
	if tx.Status != models.TxPending {
		return nil, apperrors.NewInvalidStatusChangeError(tx.Status, models.TxPending)
	}
	return tx, nil
}

// ListChannels surfaces the gateway's currently usable payment channels.
func (s *Service) ListChannels(ctx context.Context) ([]Channel, error) {
	out, err := s.gateway.GetChannels(ctx)
	if err != nil {
		return nil, apperrors.NewPaymentGatewayError(err)
	}
	return out, nil
}

func (s *Service) failTransaction(ctx context.Context, txID string) {
	if err := s.repo.UpdateTransactionStatus(ctx, txID, models.TxFailed, nil, s.now().UTC()); err != nil {
		s.logger.WithError(err).Error("transaction status update failed", map[string]interface{}{"transaction_id": txID})
	}
}

// HandleWebhook verifies and settles a NotchPay webhook delivery. The raw body
// is needed for the HMAC check, so the handler passes it through untouched.
func (s *Service) HandleWebhook(ctx context.Context, body []byte, signature string) error {
	if !VerifySignature(body, signature, s.hashKey) {
		return apperrors.NewWebhookSignatureInvalidError()
	}
	event, err := ParseWebhook(body)
	if err != nil {
		return apperrors.NewWebhookPayloadInvalidError(err.Error())
	}
	return s.settle(ctx, event.Data.Reference, MapGatewayStatus(event.Data.Status))
}

// VerifyAndSettle reconciles a transaction with the gateway. Used on the
// payment return URL, where no signed payload is available.
func (s *Service) VerifyAndSettle(ctx context.Context, reference string) (*models.Transaction, error) {
	out, err := s.gateway.VerifyPayment(ctx, reference)
	if err != nil {
		return nil, apperrors.NewPaymentGatewayError(err)
	}
	if err := s.settle(ctx, reference, out.Status); err != nil {
		return nil, err
	}
	tx, err := s.repo.GetTransactionByReference(ctx, reference)
	if err != nil {
		return nil, apperrors.NewQueryExecutionFailedError(err)
	}
	return tx, nil
}

// settle applies a gateway status to the ledger. Completing a booking payment
// confirms the booking and records the commission split. Settlement is
// idempotent: repeated deliveries of a final status are no-ops.
func (s *Service) settle(ctx context.Context, reference, status string) error {
	tx, err := s.repo.GetTransactionByReference(ctx, reference)
	if err == sql.ErrNoRows {
		return apperrors.NewTransactionNotFoundError(reference)
	}
	if err != nil {
		return apperrors.NewQueryExecutionFailedError(err)
	}

	if tx.Status == status || tx.Status == models.TxCompleted {
		return nil
	}

	now := s.now().UTC()
	var processedAt *time.Time
	if status == models.TxCompleted || status == models.TxFailed || status == models.TxCancelled {
		processedAt = &now
	}
	if err := s.repo.UpdateTransactionStatus(ctx, tx.ID, status, processedAt, now); err != nil {
		return apperrors.NewQueryExecutionFailedError(err)
	}

	metrics.PaymentsCompleted.WithLabelValues(status).Inc()
	s.logger.Info("transaction settled", map[string]interface{}{
		"reference": reference,
		"status":    status,
	})

	if status == models.TxCompleted && tx.TransactionType == models.TransactionPayment && tx.BookingID != "" {
		booking, err := s.bookings.ConfirmOnPayment(ctx, tx.BookingID)
		if err != nil {
			return err
		}
		if err := s.recordCommission(ctx, booking); err != nil {
			s.logger.WithError(err).Error("commission recording failed", map[string]interface{}{"booking_id": booking.ID})
		}
	}
	return nil
}

// recordCommission stores the platform take for a paid booking: the owner rate
// follows the owner's subscription plan, the tenant side is the service fee.
func (s *Service) recordCommission(ctx context.Context, booking *models.Booking) error {
	property, err := s.properties.GetByID(ctx, booking.PropertyID)
	if err != nil {
		return err
	}

	ownerRate := models.OwnerCommissionRate(models.SubscriptionFree)
	if sub, err := s.accounts.ActiveSubscription(ctx, property.OwnerID, s.now().UTC()); err == nil && sub != nil {
		ownerRate = models.OwnerCommissionRate(sub.SubscriptionType)
	}

	ownerAmount := roundFCFA(float64(booking.BasePrice) * ownerRate / 100)
	tenantAmount := booking.ServiceFee

	c := &models.Commission{
		ID:           uuid.NewString(),
		BookingID:    booking.ID,
		OwnerAmount:  ownerAmount,
		TenantAmount: tenantAmount,
		TotalAmount:  ownerAmount + tenantAmount,
		OwnerRate:    ownerRate,
		TenantRate:   7.0,
		CreatedAt:    s.now().UTC(),
	}
	return s.repo.CreateCommission(ctx, c)
}

// RecordCancellation writes the refund and owner compensation ledger entries
// for a cancelled paid booking. Implements the bookings refund hook.
func (s *Service) RecordCancellation(ctx context.Context, b *models.Booking, r bookings.Refund) error {
	now := s.now().UTC()

	refundTx := &models.Transaction{
		ID:              uuid.NewString(),
		UserID:          b.TenantID,
		TransactionType: models.TransactionRefund,
		Status:          models.TxPending,
		Amount:          r.RefundAmount,
		Currency:        s.currency,
		BookingID:       b.ID,
		Description:     fmt.Sprintf("Refund for cancelled booking %s", b.ID),
		CreatedAt:       now,
		UpdatedAt:       now,
	}
	if err := s.repo.CreateTransaction(ctx, refundTx); err != nil {
		return err
	}

	if r.OwnerCompensation > 0 {
		property, err := s.properties.GetByID(ctx, b.PropertyID)
		if err != nil {
			return err
		}
		compTx := &models.Transaction{
			ID:              uuid.NewString(),
			UserID:          property.OwnerID,
			TransactionType: models.TransactionAdjustment,
			Status:          models.TxPending,
			Amount:          r.OwnerCompensation,
			Currency:        s.currency,
			BookingID:       b.ID,
			Description:     fmt.Sprintf("Cancellation compensation for booking %s", b.ID),
			CreatedAt:       now,
			UpdatedAt:       now,
		}
		if err := s.repo.CreateTransaction(ctx, compTx); err != nil {
			return err
		}
	}
	return nil
}

func (s *Service) ListTransactions(ctx context.Context, userID string, limit, offset int) ([]*models.Transaction, error) {
	out, err := s.repo.ListTransactionsByUser(ctx, userID, limit, offset)
	if err != nil {
		return nil, apperrors.NewQueryExecutionFailedError(err)
	}
	return out, nil
}

// --- payment methods ---

type PaymentMethodInput struct {
	PaymentType string `json:"payment_type" binding:"required,oneof=mobile_money credit_card bank_account"`
	Nickname    string `json:"nickname"`
	PhoneNumber string `json:"phone_number"`
	Operator    string `json:"operator" binding:"omitempty,oneof=mtn orange"`
	AccountName string `json:"account_name"`
	LastDigits  string `json:"last_digits"`
	BankName    string `json:"bank_name"`
	IsDefault   bool   `json:"is_default"`
}

func (s *Service) AddPaymentMethod(ctx context.Context, userID string, in PaymentMethodInput) (*models.PaymentMethod, error) {
	if in.PaymentType == models.MethodMobileMoney {
		if in.PhoneNumber == "" || in.Operator == "" {
			return nil, apperrors.NewValidationFailedError("mobile money methods need phone_number and operator")
		}
	}

	now := s.now().UTC()
	m := &models.PaymentMethod{
		ID:          uuid.NewString(),
		UserID:      userID,
		PaymentType: in.PaymentType,
		IsDefault:   in.IsDefault,
		Nickname:    in.Nickname,
		PhoneNumber: NormalizePhone(in.PhoneNumber),
		Operator:    in.Operator,
		AccountName: in.AccountName,
		LastDigits:  in.LastDigits,
		BankName:    in.BankName,
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	if in.IsDefault {
		if err := s.repo.ClearDefaultPaymentMethod(ctx, userID); err != nil {
			return nil, apperrors.NewQueryExecutionFailedError(err)
		}
	}
	if err := s.repo.CreatePaymentMethod(ctx, m); err != nil {
		return nil, apperrors.NewQueryExecutionFailedError(err)
	}
	return m, nil
}

func (s *Service) ListPaymentMethods(ctx context.Context, userID string) ([]*models.PaymentMethod, error) {
	out, err := s.repo.ListPaymentMethods(ctx, userID)
	if err != nil {
		return nil, apperrors.NewQueryExecutionFailedError(err)
	}
	return out, nil
}

func (s *Service) DeletePaymentMethod(ctx context.Context, userID, methodID string) error {
	err := s.repo.DeletePaymentMethod(ctx, methodID, userID)
	if err == sql.ErrNoRows {
		return apperrors.NewResourceNotFoundError("Payment method", "id: "+methodID)
	}
	if err != nil {
		return apperrors.NewQueryExecutionFailedError(err)
	}
	return nil
}

// --- payouts ---

type PayoutResult struct {
	Payouts []*models.Payout `json:"payouts"`
	Total   int64            `json:"total"`
	DryRun  bool             `json:"dry_run"`
}

// ProcessPayouts pays owners their period earnings over Mobile Money. With
// dryRun the eligible payouts are computed and returned but nothing is written
// or transferred.
func (s *Service) ProcessPayouts(ctx context.Context, periodStart, periodEnd time.Time, dryRun bool) (*PayoutResult, error) {
	earnings, err := s.repo.PendingOwnerEarnings(ctx, periodStart, periodEnd)
	if err != nil {
		return nil, apperrors.NewQueryExecutionFailedError(err)
	}

	result := &PayoutResult{DryRun: dryRun}
	now := s.now().UTC()

	for _, e := range earnings {
		payout := &models.Payout{
			ID:          uuid.NewString(),
			OwnerID:     e.OwnerID,
			Amount:      e.Amount,
			Currency:    s.currency,
			Status:      models.TxPending,
			PeriodStart: periodStart,
			PeriodEnd:   periodEnd,
			CreatedAt:   now,
		}
		result.Payouts = append(result.Payouts, payout)
		result.Total += e.Amount

		if dryRun {
			continue
		}

		method, err := s.repo.GetDefaultPaymentMethod(ctx, e.OwnerID)
		if err == sql.ErrNoRows {
			payout.Status = models.TxFailed
			payout.Notes = "no default payment method"
		} else if err != nil {
			return nil, apperrors.NewQueryExecutionFailedError(err)
		} else {
			payout.PaymentMethodID = method.ID
		}

		if err := s.repo.CreatePayout(ctx, payout); err != nil {
			return nil, apperrors.NewQueryExecutionFailedError(err)
		}
		if payout.Status == models.TxFailed {
			metrics.PayoutsProcessed.WithLabelValues(models.TxFailed).Inc()
			continue
		}

		s.executePayout(ctx, payout, method)
	}
	return result, nil
}

func (s *Service) executePayout(ctx context.Context, payout *models.Payout, method *models.PaymentMethod) {
	now := s.now().UTC()
	reference := NewReference(now)

	out, err := s.gateway.CreateTransfer(ctx, TransferInput{
		Amount:      payout.Amount,
		Currency:    payout.Currency,
		Reference:   reference,
		Description: fmt.Sprintf("Owner payout %s", payout.ID),
		Phone:       method.PhoneNumber,
		Operator:    method.Operator,
		Name:        method.AccountName,
	})
	if err != nil {
		payout.Status = models.TxFailed
		payout.Notes = err.Error()
		if uerr := s.repo.UpdatePayoutStatus(ctx, payout.ID, models.TxFailed, "", nil); uerr != nil {
			s.logger.WithError(uerr).Error("payout status update failed", map[string]interface{}{"payout_id": payout.ID})
		}
		metrics.PayoutsProcessed.WithLabelValues(models.TxFailed).Inc()
		s.logger.WithError(err).Error("payout transfer failed", map[string]interface{}{"payout_id": payout.ID})
		return
	}

	payout.Status = models.TxProcessing
	payout.ExternalReference = out.Reference
	if err := s.repo.UpdatePayoutStatus(ctx, payout.ID, models.TxProcessing, out.Reference, nil); err != nil {
		s.logger.WithError(err).Error("payout status update failed", map[string]interface{}{"payout_id": payout.ID})
	}

	tx := &models.Transaction{
		ID:                uuid.NewString(),
		UserID:            payout.OwnerID,
		TransactionType:   models.TransactionPayout,
		Status:            models.TxProcessing,
		Amount:            payout.Amount,
		Currency:          payout.Currency,
		ExternalReference: out.Reference,
		Description:       fmt.Sprintf("Payout %s", payout.ID),
		CreatedAt:         now,
		UpdatedAt:         now,
	}
	if err := s.repo.CreateTransaction(ctx, tx); err != nil {
		s.logger.WithError(err).Error("payout transaction entry failed", map[string]interface{}{"payout_id": payout.ID})
	}

	metrics.PayoutsProcessed.WithLabelValues(models.TxProcessing).Inc()
	s.logger.Info("payout sent", map[string]interface{}{
		"payout_id": payout.ID,
		"owner_id":  payout.OwnerID,
		"amount":    payout.Amount,
	})
}

func (s *Service) ListPayouts(ctx context.Context, ownerID string) ([]*models.Payout, error) {
	out, err := s.repo.ListPayoutsByOwner(ctx, ownerID)
	if err != nil {
		return nil, apperrors.NewQueryExecutionFailedError(err)
	}
	return out, nil
}

func roundFCFA(v float64) int64 {
	if v < 0 {
		return -roundFCFA(-v)
	}
	return int64(v + 0.5)
}
