package wechatpay_test

import (
	"context"
	"crypto"
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/rsa"
	"crypto/sha256"
	"crypto/x509"
	"encoding/base64"
	"encoding/json"
	"encoding/pem"
	"fmt"
	"net/http"
	"strconv"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/lafcloud/platform/internal/payment/adapters/wechatpay"
	"github.com/lafcloud/platform/internal/payment/domain"
	"github.com/stretchr/testify/require"
)

const testAPIv3Key = "0123456789abcdef0123456789abcdef"

type notifyFixture struct {
	key     *rsa.PrivateKey
	adapter domain.Adapter
}

func newNotifyFixture(t *testing.T) *notifyFixture {
	t.Helper()

	key, err := rsa.GenerateKey(rand.Reader, 2048)
	require.NoError(t, err)

	pub, err := x509.MarshalPKIXPublicKey(&key.PublicKey)
	require.NoError(t, err)
	pubPEM := pem.EncodeToMemory(&pem.Block{Type: "PUBLIC KEY", Bytes: pub})

	adapter, err := wechatpay.NewFactory().NewAdapter(domain.AdapterConfig{
		Provider: wechatpay.ProviderName,
		Config: map[string]string{
			"apiv3_key":         testAPIv3Key,
			"platform_cert_pem": string(pubPEM),
		},
	})
	require.NoError(t, err)

	return &notifyFixture{key: key, adapter: adapter}
}

func (f *notifyFixture) buildNotify(t *testing.T, eventType, outTradeNo, tradeState string) []byte {
	t.Helper()

	resource := map[string]any{
		"out_trade_no":   outTradeNo,
		"transaction_id": "4200001234202608280000000001",
		"trade_state":    tradeState,
		"amount": map[string]any{
			"total":    int64(500),
			"currency": "CNY",
		},
	}
	plain, err := json.Marshal(resource)
	require.NoError(t, err)

	block, err := aes.NewCipher([]byte(testAPIv3Key))
	require.NoError(t, err)
	gcm, err := cipher.NewGCM(block)
	require.NoError(t, err)

	nonce := "abcdef123456"
	associatedData := "transaction"
	sealed := gcm.Seal(nil, []byte(nonce), plain, []byte(associatedData))

	envelope := map[string]any{
		"id":            "notify-0001",
		"event_type":    eventType,
		"resource_type": "encrypt-resource",
		"resource": map[string]any{
			"algorithm":       "AEAD_AES_256_GCM",
			"ciphertext":      base64.StdEncoding.EncodeToString(sealed),
			"nonce":           nonce,
			"associated_data": associatedData,
		},
	}
	payload, err := json.Marshal(envelope)
	require.NoError(t, err)
	return payload
}

func (f *notifyFixture) signHeaders(t *testing.T, payload []byte, at time.Time) http.Header {
	t.Helper()

	timestamp := strconv.FormatInt(at.Unix(), 10)
	nonce := "verify-nonce"
	message := fmt.Sprintf("%s\n%s\n%s\n", timestamp, nonce, string(payload))
	digest := sha256.Sum256([]byte(message))
	sig, err := rsa.SignPKCS1v15(rand.Reader, f.key, crypto.SHA256, digest[:])
	require.NoError(t, err)

	headers := http.Header{}
	headers.Set("Wechatpay-Timestamp", timestamp)
	headers.Set("Wechatpay-Nonce", nonce)
	headers.Set("Wechatpay-Signature", base64.StdEncoding.EncodeToString(sig))
	return headers
}

func TestVerifyAndParseSuccess(t *testing.T) {
	ctx := context.Background()
	f := newNotifyFixture(t)

	orderID := snowflake.ID(123456789)
	payload := f.buildNotify(t, "TRANSACTION.SUCCESS", orderID.String(), "SUCCESS")
	headers := f.signHeaders(t, payload, time.Now())

	require.NoError(t, f.adapter.Verify(ctx, payload, headers))

	notification, err := f.adapter.Parse(ctx, payload)
	require.NoError(t, err)
	require.Equal(t, wechatpay.ProviderName, notification.Provider)
	require.Equal(t, orderID, notification.OrderID)
	require.Equal(t, domain.OutcomeSuccess, notification.Outcome)
	require.Contains(t, string(notification.RawPayload), "SUCCESS")
}

func TestVerifyRejectsTamperedBody(t *testing.T) {
	ctx := context.Background()
	f := newNotifyFixture(t)

	payload := f.buildNotify(t, "TRANSACTION.SUCCESS", "1", "SUCCESS")
	headers := f.signHeaders(t, payload, time.Now())

	tampered := append([]byte{}, payload...)
	tampered[len(tampered)-2] ^= 0xff

	err := f.adapter.Verify(ctx, tampered, headers)
	require.ErrorIs(t, err, domain.ErrInvalidSignature)
}

func TestVerifyRejectsStaleTimestamp(t *testing.T) {
	ctx := context.Background()
	f := newNotifyFixture(t)

	payload := f.buildNotify(t, "TRANSACTION.SUCCESS", "1", "SUCCESS")
	headers := f.signHeaders(t, payload, time.Now().Add(-time.Hour))

	err := f.adapter.Verify(ctx, payload, headers)
	require.ErrorIs(t, err, domain.ErrInvalidSignature)
}

func TestVerifyRejectsMissingHeaders(t *testing.T) {
	ctx := context.Background()
	f := newNotifyFixture(t)

	payload := f.buildNotify(t, "TRANSACTION.SUCCESS", "1", "SUCCESS")

	err := f.adapter.Verify(ctx, payload, http.Header{})
	require.ErrorIs(t, err, domain.ErrInvalidSignature)
}

func TestParseFailureOutcome(t *testing.T) {
	ctx := context.Background()
	f := newNotifyFixture(t)

	payload := f.buildNotify(t, "TRANSACTION.CLOSED", "42", "CLOSED")

	notification, err := f.adapter.Parse(ctx, payload)
	require.NoError(t, err)
	require.Equal(t, domain.OutcomeFailure, notification.Outcome)
	require.Equal(t, snowflake.ID(42), notification.OrderID)
}

func TestParseIgnoresNonTransactionEvents(t *testing.T) {
	ctx := context.Background()
	f := newNotifyFixture(t)

	payload := f.buildNotify(t, "REFUND.SUCCESS", "42", "SUCCESS")

	_, err := f.adapter.Parse(ctx, payload)
	require.ErrorIs(t, err, domain.ErrEventIgnored)
}

func TestParseRejectsForeignOutTradeNo(t *testing.T) {
	ctx := context.Background()
	f := newNotifyFixture(t)

	payload := f.buildNotify(t, "TRANSACTION.SUCCESS", "not-an-order", "SUCCESS")

	_, err := f.adapter.Parse(ctx, payload)
	require.ErrorIs(t, err, domain.ErrInvalidPayload)
}

func TestParseRejectsBadNonceLength(t *testing.T) {
	ctx := context.Background()
	f := newNotifyFixture(t)

	// A signed envelope whose resource carries a nonce of the wrong length
	// must be rejected, not crash the decryptor.
	envelope := map[string]any{
		"id":            "notify-0002",
		"event_type":    "TRANSACTION.SUCCESS",
		"resource_type": "encrypt-resource",
		"resource": map[string]any{
			"algorithm":       "AEAD_AES_256_GCM",
			"ciphertext":      base64.StdEncoding.EncodeToString([]byte("garbage")),
			"nonce":           "short",
			"associated_data": "transaction",
		},
	}
	payload, err := json.Marshal(envelope)
	require.NoError(t, err)

	_, err = f.adapter.Parse(ctx, payload)
	require.ErrorIs(t, err, domain.ErrInvalidPayload)
}

func TestFactoryRejectsBadConfig(t *testing.T) {
	factory := wechatpay.NewFactory()

	_, err := factory.NewAdapter(domain.AdapterConfig{
		Provider: wechatpay.ProviderName,
		Config: map[string]string{
			"apiv3_key":         "too-short",
			"platform_cert_pem": "",
		},
	})
	require.ErrorIs(t, err, domain.ErrInvalidConfig)

	_, err = factory.NewAdapter(domain.AdapterConfig{
		Provider: wechatpay.ProviderName,
		Config: map[string]string{
			"apiv3_key":         testAPIv3Key,
			"platform_cert_pem": "not a pem",
		},
	})
	require.ErrorIs(t, err, domain.ErrInvalidConfig)
}
