package payments

import (
	"testing"

	"findam-backend/internal/models"

	"github.com/stretchr/testify/assert"
)

func TestNormalizePhone(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"677112233", "237677112233"},
		{"+237677112233", "237677112233"},
		{"237677112233", "237677112233"},
		{" 6 77 11 22 33 ", "237677112233"},
		{"677-11-22-33", "237677112233"},
		{"6.77.11.22.33", "237677112233"},
		{"(+237) 677 11 22 33", "237677112233"},
		{"512345678", "512345678"}, // not a Cameroonian mobile prefix
		{"", ""},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, NormalizePhone(tt.in), "input %q", tt.in)
	}
}

func TestChannelForOperator(t *testing.T) {
	assert.Equal(t, "cm.mtn", ChannelForOperator(models.OperatorMTN))
	assert.Equal(t, "cm.orange", ChannelForOperator(models.OperatorOrange))
	assert.Equal(t, "cm.mobile", ChannelForOperator("unknown"))
}

func TestMapGatewayStatus(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"new", models.TxPending},
		{"pending", models.TxPending},
		{"success", models.TxCompleted},
		{"Successful", models.TxCompleted},
		{"complete", models.TxCompleted},
		{"COMPLETED", models.TxCompleted},
		{"failed", models.TxFailed},
		{"expired", models.TxFailed},
		{"error", models.TxFailed},
		{"canceled", models.TxCancelled},
		{"cancelled", models.TxCancelled},
		{"refunded", models.TxRefunded},
		{"weird", models.TxPending},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, MapGatewayStatus(tt.in), "status %q", tt.in)
	}
}
