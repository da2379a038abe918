package payments

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"findam-backend/internal/common/config"
	"findam-backend/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newGatewayServer(t *testing.T, handler http.HandlerFunc) *NotchPayClient {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	return NewNotchPayClient(config.NotchPayConfig{
		BaseURL:     srv.URL,
		PublicKey:   "pk_test.abc",
		PrivateKey:  "sk_test.def",
		CallbackURL: "https://findam.cm/api/v1/payments/webhook",
		Timeout:     2000,
	})
}

func TestInitializePayment(t *testing.T) {
	client := newGatewayServer(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/payments/initialize", r.URL.Path)
		// NotchPay takes the raw public key, no Bearer prefix.
		assert.Equal(t, "pk_test.abc", r.Header.Get("Authorization"))

		var payload map[string]interface{}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&payload))
		assert.Equal(t, float64(57100), payload["amount"])
		customer := payload["customer"].(map[string]interface{})
		assert.Equal(t, "237677112233", customer["phone"])

		json.NewEncoder(w).Encode(map[string]interface{}{
			"code":   201,
			"status": "Accepted",
			"transaction": map[string]interface{}{
				"reference": "findam-abcd1234-1756000000",
				"status":    "pending",
			},
			"authorization_url": "https://pay.notchpay.co/test",
		})
	})

	out, err := client.InitializePayment(context.Background(), InitPaymentInput{
		Amount:    57100,
		Currency:  "XAF",
		Reference: "findam-abcd1234-1756000000",
		Email:     "marie@example.com",
		Phone:     "677112233",
		Name:      "Marie Ngono",
	})
	require.NoError(t, err)
	assert.Equal(t, "https://pay.notchpay.co/test", out.AuthorizationURL)
	assert.Equal(t, models.TxPending, out.Status)
}

func TestProcessPayment(t *testing.T) {
	t.Run("mobile channel sends the normalized phone", func(t *testing.T) {
		client := newGatewayServer(t, func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, http.MethodPost, r.Method)
			assert.Equal(t, "/payments/findam-abcd1234-1756000000", r.URL.Path)

			var payload map[string]interface{}
			require.NoError(t, json.NewDecoder(r.Body).Decode(&payload))
			assert.Equal(t, "cm.mtn", payload["channel"])
			assert.Equal(t, "237677112233", payload["phone"])

			json.NewEncoder(w).Encode(map[string]interface{}{
				"code": 200,
				"transaction": map[string]interface{}{
					"reference": "findam-abcd1234-1756000000",
					"status":    "pending",
				},
			})
		})

		out, err := client.ProcessPayment(context.Background(), "findam-abcd1234-1756000000", "cm.mtn", "677 11 22 33")
		require.NoError(t, err)
		assert.Equal(t, models.TxPending, out.Status)
	})

	t.Run("non-mobile channel omits the phone", func(t *testing.T) {
		client := newGatewayServer(t, func(w http.ResponseWriter, r *http.Request) {
			var payload map[string]interface{}
			require.NoError(t, json.NewDecoder(r.Body).Decode(&payload))
			_, hasPhone := payload["phone"]
			assert.False(t, hasPhone)

			json.NewEncoder(w).Encode(map[string]interface{}{
				"code":        200,
				"transaction": map[string]interface{}{"reference": "ref", "status": "pending"},
			})
		})

		_, err := client.ProcessPayment(context.Background(), "ref", "card", "677112233")
		require.NoError(t, err)
	})
}

func TestCancelPayment(t *testing.T) {
	var gotMethod, gotPath string
	client := newGatewayServer(t, func(w http.ResponseWriter, r *http.Request) {
		gotMethod = r.Method
		gotPath = r.URL.Path
		w.Write([]byte(`{"code":200,"message":"Payment canceled"}`))
	})

	require.NoError(t, client.CancelPayment(context.Background(), "findam-abcd1234-1756000000"))
	assert.Equal(t, http.MethodDelete, gotMethod)
	assert.Equal(t, "/payments/findam-abcd1234-1756000000", gotPath)
}

func TestGetChannels(t *testing.T) {
	client := newGatewayServer(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/channels", r.URL.Path)
		json.NewEncoder(w).Encode(map[string]interface{}{
			"code": 200,
			"data": []map[string]interface{}{
				{"channel": "cm.mtn", "name": "MTN Mobile Money", "country": "CM", "currency": "XAF", "active": true, "enabled": true},
				{"channel": "cm.orange", "name": "Orange Money", "country": "CM", "currency": "XAF", "active": true, "enabled": false},
				{"channel": "cm.wallet", "name": "Wallet", "country": "CM", "currency": "XAF", "active": false, "enabled": true},
			},
		})
	})

	out, err := client.GetChannels(context.Background())
	require.NoError(t, err)
	// Disabled and inactive channels are filtered out.
	require.Len(t, out, 1)
	assert.Equal(t, "cm.mtn", out[0].Channel)
}

func TestVerifyPayment(t *testing.T) {
	client := newGatewayServer(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/payments/findam-abcd1234-1756000000", r.URL.Path)
		json.NewEncoder(w).Encode(map[string]interface{}{
			"code": 200,
			"transaction": map[string]interface{}{
				"reference": "findam-abcd1234-1756000000",
				"status":    "complete",
				"amount":    57100,
				"currency":  "XAF",
			},
		})
	})

	out, err := client.VerifyPayment(context.Background(), "findam-abcd1234-1756000000")
	require.NoError(t, err)
	assert.Equal(t, models.TxCompleted, out.Status)
	assert.Equal(t, int64(57100), out.Amount)
}

func TestVerifyPaymentGatewayError(t *testing.T) {
	client := newGatewayServer(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		w.Write([]byte(`{"message":"Invalid key"}`))
	})

	_, err := client.VerifyPayment(context.Background(), "ref")
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "status 401")
}

func TestCreateTransfer(t *testing.T) {
	client := newGatewayServer(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/transfers", r.URL.Path)
		assert.Equal(t, "sk_test.def", r.Header.Get("X-Grant"))

		var payload map[string]interface{}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&payload))
		assert.Equal(t, "cm.mtn", payload["channel"])

		json.NewEncoder(w).Encode(map[string]interface{}{
			"code": 200,
			"transfer": map[string]interface{}{
				"reference": "np-transfer-9",
				"status":    "pending",
			},
		})
	})

	out, err := client.CreateTransfer(context.Background(), TransferInput{
		Amount:   150000,
		Currency: "XAF",
		Phone:    "699887766",
		Operator: models.OperatorMTN,
		Name:     "Paul Atangana",
	})
	require.NoError(t, err)
	assert.Equal(t, "np-transfer-9", out.Reference)
	assert.Equal(t, models.TxPending, out.Status)
}
