package payments

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"

	"findam-backend/internal/common/validation"
)

// SignatureHeader is the header NotchPay signs webhook deliveries with.
const SignatureHeader = "X-Notch-Signature"

// webhookSchema validates the webhook body before any field is trusted.
const webhookSchema = `{
	"type": "object",
	"required": ["event", "data"],
	"properties": {
		"event": {"type": "string", "minLength": 1},
		"data": {
			"type": "object",
			"required": ["reference", "status"],
			"properties": {
				"reference": {"type": "string", "minLength": 1},
				"status": {"type": "string", "minLength": 1},
				"amount": {"type": "number"},
				"currency": {"type": "string"}
			}
		}
	}
}`

// WebhookEvent is the parsed NotchPay webhook payload.
type WebhookEvent struct {
	Event string `json:"event"`
	Data  struct {
		Reference string  `json:"reference"`
		Status    string  `json:"status"`
		Amount    float64 `json:"amount"`
		Currency  string  `json:"currency"`
	} `json:"data"`
}

// VerifySignature checks the HMAC-SHA256 of the raw body against the
// signature header, using the webhook hash key. Comparison is constant time.
func VerifySignature(body []byte, signature, hashKey string) bool {
	if signature == "" || hashKey == "" {
		return false
	}
	mac := hmac.New(sha256.New, []byte(hashKey))
	mac.Write(body)
	expected := hex.EncodeToString(mac.Sum(nil))
	return hmac.Equal([]byte(expected), []byte(signature))
}

// ParseWebhook validates the payload against the schema and decodes it.
func ParseWebhook(body []byte) (*WebhookEvent, error) {
	if err := validation.ValidateJSON(body, webhookSchema); err != nil {
		return nil, err
	}
	var event WebhookEvent
	if err := json.Unmarshal(body, &event); err != nil {
		return nil, err
	}
	return &event, nil
}
