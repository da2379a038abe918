package models

import "time"

// Transaction types.
const (
	TransactionPayment      = "payment"
	TransactionRefund       = "refund"
	TransactionPayout       = "payout"
	TransactionSubscription = "subscription"
	TransactionCommission   = "commission"
	TransactionAdjustment   = "adjustment"
)

// Transaction (and payout) statuses.
const (
	TxPending    = "pending"
	TxProcessing = "processing"
	TxCompleted  = "completed"
	TxFailed     = "failed"
	TxRefunded   = "refunded"
	TxCancelled  = "cancelled"
)

// Payment method types and Mobile Money operators.
const (
	MethodMobileMoney = "mobile_money"
	MethodCreditCard  = "credit_card"
	MethodBankAccount = "bank_account"

	OperatorMTN    = "mtn"
	OperatorOrange = "orange"
)

// Transaction is the financial ledger entry for every money movement.
type Transaction struct {
	ID     string `json:"id"`
	UserID string `json:"user_id"`

	TransactionType string `json:"transaction_type"`
	Status          string `json:"status"`

	Amount   int64  `json:"amount"` // whole FCFA
	Currency string `json:"currency"`

	BookingID         string `json:"booking_id,omitempty"`
	ExternalReference string `json:"external_reference,omitempty"`

	Description string `json:"description"`

	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
	ProcessedAt *time.Time `json:"processed_at,omitempty"`
}

type PaymentMethod struct {
	ID          string     `json:"id"`
	UserID      string     `json:"user_id"`
	PaymentType string     `json:"payment_type"`
	IsDefault   bool       `json:"is_default"`
	IsVerified  bool       `json:"is_verified"`
	Nickname    string     `json:"nickname,omitempty"`
	PhoneNumber string     `json:"phone_number,omitempty"`
	Operator    string     `json:"operator,omitempty"`
	AccountName string     `json:"account_name,omitempty"`
	LastDigits  string     `json:"last_digits,omitempty"`
	BankName    string     `json:"bank_name,omitempty"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
}

type Payout struct {
	ID      string `json:"id"`
	OwnerID string `json:"owner_id"`

	Amount   int64  `json:"amount"` // whole FCFA
	Currency string `json:"currency"`

	PaymentMethodID   string `json:"payment_method_id,omitempty"`
	Status            string `json:"status"`
	TransactionID     string `json:"transaction_id,omitempty"`
	ExternalReference string `json:"external_reference,omitempty"`

	PeriodStart time.Time `json:"period_start"`
	PeriodEnd   time.Time `json:"period_end"`

	Notes string `json:"notes,omitempty"`

	CreatedAt   time.Time  `json:"created_at"`
	ProcessedAt *time.Time `json:"processed_at,omitempty"`
}

// Commission tracks the platform take per booking: a host-side rate applied
// to the base price plus the guest-side service fee.
type Commission struct {
	ID        string `json:"id"`
	BookingID string `json:"booking_id"`

	OwnerAmount  int64 `json:"owner_amount"`
	TenantAmount int64 `json:"tenant_amount"`
	TotalAmount  int64 `json:"total_amount"`

	OwnerRate  float64 `json:"owner_rate"`  // percent
	TenantRate float64 `json:"tenant_rate"` // percent

	CreatedAt time.Time `json:"created_at"`
}

// OwnerCommissionRate returns the host-side commission percent for a
// subscription plan (3% free, 2% monthly, 1.5% quarterly, 1% yearly).
func OwnerCommissionRate(subscriptionType string) float64 {
	switch subscriptionType {
	case SubscriptionMonthly:
		return 2.0
	case SubscriptionQuarterly:
		return 1.5
	case SubscriptionYearly:
		return 1.0
	default:
		return 3.0
	}
}
