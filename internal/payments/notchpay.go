package payments

import (
	"bytes"
	"context"
	"crypto/rand"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"findam-backend/internal/common/config"
	"findam-backend/internal/common/httpclient"
)

// NotchPayClient talks to the NotchPay REST API. Authorization uses the raw
// public key, without a Bearer prefix.
type NotchPayClient struct {
	baseURL     string
	publicKey   string
	privateKey  string
	callbackURL string
	http        *httpclient.Client
}

func NewNotchPayClient(cfg config.NotchPayConfig) *NotchPayClient {
	timeout := time.Duration(cfg.Timeout) * time.Millisecond
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &NotchPayClient{
		baseURL:     cfg.BaseURL,
		publicKey:   cfg.PublicKey,
		privateKey:  cfg.PrivateKey,
		callbackURL: cfg.CallbackURL,
		http:        httpclient.New(timeout),
	}
}

// NewReference builds a unique gateway reference: findam-<8 hex>-<unix ts>.
func NewReference(now time.Time) string {
	buf := make([]byte, 4)
	if _, err := rand.Read(buf); err != nil {
		// crypto/rand failing means the process is in serious trouble; fall
		// back to the timestamp alone rather than panic.
		return fmt.Sprintf("findam-%d", now.Unix())
	}
	return fmt.Sprintf("findam-%s-%d", hex.EncodeToString(buf), now.Unix())
}

type InitPaymentInput struct {
	Amount      int64
	Currency    string
	Reference   string
	Description string
	Email       string
	Phone       string
	Name        string
}

type InitPaymentOutput struct {
	Reference        string `json:"reference"`
	AuthorizationURL string `json:"authorization_url"`
	Status           string `json:"status"`
}

type initResponse struct {
	Code        int    `json:"code"`
	Status      string `json:"status"`
	Message     string `json:"message"`
	Transaction struct {
		Reference string `json:"reference"`
		Status    string `json:"status"`
	} `json:"transaction"`
	AuthorizationURL string `json:"authorization_url"`
}

// InitializePayment creates a payment on the gateway and returns the hosted
// authorization URL the payer completes the Mobile Money charge on.
func (c *NotchPayClient) InitializePayment(ctx context.Context, in InitPaymentInput) (*InitPaymentOutput, error) {
	payload := map[string]interface{}{
		"amount":      in.Amount,
		"currency":    in.Currency,
		"reference":   in.Reference,
		"description": in.Description,
		"callback":    c.callbackURL,
		"customer": map[string]interface{}{
			"email": in.Email,
			"phone": NormalizePhone(in.Phone),
			"name":  in.Name,
		},
	}

	var resp initResponse
	if err := c.post(ctx, "/payments/initialize", payload, &resp); err != nil {
		return nil, err
	}
	if resp.Code >= 300 && resp.Code != 0 {
		return nil, fmt.Errorf("notchpay initialize failed: %s", resp.Message)
	}

	return &InitPaymentOutput{
		Reference:        resp.Transaction.Reference,
		AuthorizationURL: resp.AuthorizationURL,
		Status:           MapGatewayStatus(resp.Transaction.Status),
	}, nil
}

type VerifyOutput struct {
	Reference string `json:"reference"`
	Status    string `json:"status"`
	Amount    int64  `json:"amount"`
	Currency  string `json:"currency"`
}

type verifyResponse struct {
	Code        int    `json:"code"`
	Message     string `json:"message"`
	Transaction struct {
		Reference string  `json:"reference"`
		Status    string  `json:"status"`
		Amount    float64 `json:"amount"`
		Currency  string  `json:"currency"`
	} `json:"transaction"`
}

// VerifyPayment fetches the gateway-side state of a transaction. Used both on
// the payment return URL and to reconcile webhooks.
func (c *NotchPayClient) VerifyPayment(ctx context.Context, reference string) (*VerifyOutput, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/payments/"+reference, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Authorization", c.publicKey)
	req.Header.Set("Accept", "application/json")

	body, err := c.execute(req)
	if err != nil {
		return nil, err
	}

	var resp verifyResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("failed to unmarshal response: %w", err)
	}

	return &VerifyOutput{
		Reference: resp.Transaction.Reference,
		Status:    MapGatewayStatus(resp.Transaction.Status),
		Amount:    int64(resp.Transaction.Amount),
		Currency:  resp.Transaction.Currency,
	}, nil
}

type processResponse struct {
	Code        int    `json:"code"`
	Message     string `json:"message"`
	Transaction struct {
		Reference string `json:"reference"`
		Status    string `json:"status"`
	} `json:"transaction"`
}

// ProcessPayment charges an initialized payment on a Mobile Money channel.
// The payer then confirms on their handset. The phone is only sent for
// mobile channels.
func (c *NotchPayClient) ProcessPayment(ctx context.Context, reference, channel, phone string) (*VerifyOutput, error) {
	payload := map[string]interface{}{
		"channel": channel,
	}
	switch channel {
	case "cm.mtn", "cm.orange", "cm.mobile":
		payload["phone"] = NormalizePhone(phone)
	}

	var resp processResponse
	if err := c.post(ctx, "/payments/"+reference, payload, &resp); err != nil {
		return nil, err
	}
	if resp.Code >= 300 && resp.Code != 0 {
		return nil, fmt.Errorf("notchpay process failed: %s", resp.Message)
	}

	return &VerifyOutput{
		Reference: resp.Transaction.Reference,
		Status:    MapGatewayStatus(resp.Transaction.Status),
	}, nil
}

// CancelPayment aborts a payment that has not completed on the gateway.
func (c *NotchPayClient) CancelPayment(ctx context.Context, reference string) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodDelete, c.baseURL+"/payments/"+reference, nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Authorization", c.publicKey)
	req.Header.Set("Accept", "application/json")

	_, err = c.execute(req)
	return err
}

// Channel is a payment channel as the gateway advertises it.
type Channel struct {
	Channel  string `json:"channel"`
	Name     string `json:"name"`
	Country  string `json:"country"`
	Currency string `json:"currency"`
}

type channelsResponse struct {
	Code int `json:"code"`
	Data []struct {
		Channel  string `json:"channel"`
		Name     string `json:"name"`
		Country  string `json:"country"`
		Currency string `json:"currency"`
		Active   bool   `json:"active"`
		Enabled  bool   `json:"enabled"`
	} `json:"data"`
}

// GetChannels lists the channels currently usable for payments. Channels the
// gateway marks inactive or disabled are filtered out.
func (c *NotchPayClient) GetChannels(ctx context.Context) ([]Channel, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/channels", nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Authorization", c.publicKey)
	req.Header.Set("Accept", "application/json")

	body, err := c.execute(req)
	if err != nil {
		return nil, err
	}

	var resp channelsResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("failed to unmarshal response: %w", err)
	}

	out := make([]Channel, 0, len(resp.Data))
	for _, ch := range resp.Data {
		if !ch.Active || !ch.Enabled {
			continue
		}
		out = append(out, Channel{
			Channel:  ch.Channel,
			Name:     ch.Name,
			Country:  ch.Country,
			Currency: ch.Currency,
		})
	}
	return out, nil
}

type TransferInput struct {
	Amount      int64
	Currency    string
	Reference   string
	Description string
	Phone       string
	Operator    string
	Name        string
}

type TransferOutput struct {
	Reference string `json:"reference"`
	Status    string `json:"status"`
}

type transferResponse struct {
	Code     int    `json:"code"`
	Message  string `json:"message"`
	Transfer struct {
		Reference string `json:"reference"`
		Status    string `json:"status"`
	} `json:"transfer"`
}

// CreateTransfer sends money out to a Mobile Money account (owner payouts).
// Transfers authenticate with the private key.
func (c *NotchPayClient) CreateTransfer(ctx context.Context, in TransferInput) (*TransferOutput, error) {
	payload := map[string]interface{}{
		"amount":      in.Amount,
		"currency":    in.Currency,
		"reference":   in.Reference,
		"description": in.Description,
		"channel":     ChannelForOperator(in.Operator),
		"beneficiary": map[string]interface{}{
			"phone": NormalizePhone(in.Phone),
			"name":  in.Name,
		},
	}

	jsonData, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal transfer: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/transfers", bytes.NewBuffer(jsonData))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", c.publicKey)
	req.Header.Set("X-Grant", c.privateKey)

	body, err := c.execute(req)
	if err != nil {
		return nil, err
	}

	var resp transferResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("failed to unmarshal response: %w", err)
	}

	return &TransferOutput{
		Reference: resp.Transfer.Reference,
		Status:    MapGatewayStatus(resp.Transfer.Status),
	}, nil
}

func (c *NotchPayClient) post(ctx context.Context, path string, payload interface{}, out interface{}) error {
	jsonData, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to marshal payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewBuffer(jsonData))
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", c.publicKey)

	body, err := c.execute(req)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("failed to unmarshal response: %w", err)
	}
	return nil
}

func (c *NotchPayClient) execute(req *http.Request) ([]byte, error) {
	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to execute request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response body: %w", err)
	}
	if resp.StatusCode >= 300 {
		return nil, fmt.Errorf("notchpay request failed (status %d): %s", resp.StatusCode, string(body))
	}
	return body, nil
}
