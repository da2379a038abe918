package payments

import (
	"strings"

	"findam-backend/internal/models"
)

// NormalizePhone puts a Cameroonian Mobile Money number in the format the
// gateway expects: country code 237, digits only. Everything that is not a
// digit is stripped first, so "+237 6XX-XX-XX-XX" and "6xx.xx.xx.xx" both
// normalize. Local 9-digit numbers starting with 6 get the prefix added.
func NormalizePhone(phone string) string {
	p := strings.Map(func(r rune) rune {
		if r >= '0' && r <= '9' {
			return r
		}
		return -1
	}, phone)

	if len(p) == 9 && strings.HasPrefix(p, "6") {
		return "237" + p
	}
	return p
}

// ChannelForOperator maps a Mobile Money operator to its NotchPay channel.
func ChannelForOperator(operator string) string {
	switch operator {
	case models.OperatorMTN:
		return "cm.mtn"
	case models.OperatorOrange:
		return "cm.orange"
	default:
		return "cm.mobile"
	}
}

// MapGatewayStatus maps a NotchPay transaction status onto the internal
// transaction statuses.
func MapGatewayStatus(status string) string {
	switch strings.ToLower(status) {
	case "new", "pending":
		return models.TxPending
	case "success", "successful", "complete", "completed":
		return models.TxCompleted
	case "failed", "expired", "error":
		return models.TxFailed
	case "canceled", "cancelled":
		return models.TxCancelled
	case "refunded":
		return models.TxRefunded
	default:
		return models.TxPending
	}
}
