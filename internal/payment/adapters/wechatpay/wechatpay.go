package wechatpay

import (
	"context"
	"crypto"
	"crypto/aes"
	"crypto/cipher"
	"crypto/rsa"
	"crypto/sha256"
	"crypto/x509"
	"encoding/base64"
	"encoding/json"
	"encoding/pem"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/lafcloud/platform/internal/payment/domain"
)

const (
	// ProviderName matches the charge order channel identifier.
	ProviderName = "wechat_pay"

	// Notifications older than this are rejected as replays.
	maxTimestampSkew = 5 * time.Minute
)

type Factory struct{}

func NewFactory() *Factory {
	return &Factory{}
}

func (f *Factory) Provider() string {
	return ProviderName
}

func (f *Factory) NewAdapter(cfg domain.AdapterConfig) (domain.Adapter, error) {
	apiv3Key := strings.TrimSpace(cfg.Config["apiv3_key"])
	if len(apiv3Key) != 32 {
		return nil, domain.ErrInvalidConfig
	}

	platformKey, err := parsePlatformPublicKey(cfg.Config["platform_cert_pem"])
	if err != nil {
		return nil, domain.ErrInvalidConfig
	}

	return &Adapter{
		apiv3Key:    []byte(apiv3Key),
		platformKey: platformKey,
	}, nil
}

// Adapter verifies and decodes WeChat Pay v3 transaction notifications.
type Adapter struct {
	apiv3Key    []byte
	platformKey *rsa.PublicKey
}

// Verify checks the SHA256-RSA2048 signature the platform puts on every
// callback: the signed message is "timestamp\nnonce\nbody\n" and the
// signature must match the platform certificate.
func (a *Adapter) Verify(ctx context.Context, payload []byte, headers http.Header) error {
	timestamp := strings.TrimSpace(headers.Get("Wechatpay-Timestamp"))
	nonce := strings.TrimSpace(headers.Get("Wechatpay-Nonce"))
	signature := strings.TrimSpace(headers.Get("Wechatpay-Signature"))
	if timestamp == "" || nonce == "" || signature == "" {
		return domain.ErrInvalidSignature
	}

	seconds, err := strconv.ParseInt(timestamp, 10, 64)
	if err != nil {
		return domain.ErrInvalidSignature
	}
	skew := time.Since(time.Unix(seconds, 0))
	if skew < 0 {
		skew = -skew
	}
	if skew > maxTimestampSkew {
		return domain.ErrInvalidSignature
	}

	sig, err := base64.StdEncoding.DecodeString(signature)
	if err != nil {
		return domain.ErrInvalidSignature
	}

	message := fmt.Sprintf("%s\n%s\n%s\n", timestamp, nonce, string(payload))
	digest := sha256.Sum256([]byte(message))
	if err := rsa.VerifyPKCS1v15(a.platformKey, crypto.SHA256, digest[:], sig); err != nil {
		return domain.ErrInvalidSignature
	}
	return nil
}

type notifyEnvelope struct {
	ID           string         `json:"id"`
	EventType    string         `json:"event_type"`
	ResourceType string         `json:"resource_type"`
	Resource     notifyResource `json:"resource"`
}

type notifyResource struct {
	Algorithm      string `json:"algorithm"`
	Ciphertext     string `json:"ciphertext"`
	Nonce          string `json:"nonce"`
	AssociatedData string `json:"associated_data"`
}

type transactionResource struct {
	OutTradeNo    string `json:"out_trade_no"`
	TransactionID string `json:"transaction_id"`
	TradeState    string `json:"trade_state"`
	Amount        struct {
		Total    int64  `json:"total"`
		Currency string `json:"currency"`
	} `json:"amount"`
}

// Parse decrypts the AEAD_AES_256_GCM resource with the APIv3 key and
// normalizes the transaction into a Notification. The decrypted resource is
// what gets stored on the order for audit.
func (a *Adapter) Parse(ctx context.Context, payload []byte) (*domain.Notification, error) {
	var envelope notifyEnvelope
	if err := json.Unmarshal(payload, &envelope); err != nil {
		return nil, domain.ErrInvalidPayload
	}
	if strings.TrimSpace(envelope.ID) == "" {
		return nil, domain.ErrInvalidPayload
	}
	if !strings.HasPrefix(envelope.EventType, "TRANSACTION.") {
		return nil, domain.ErrEventIgnored
	}

	plain, err := a.decryptResource(envelope.Resource)
	if err != nil {
		return nil, err
	}

	var txn transactionResource
	if err := json.Unmarshal(plain, &txn); err != nil {
		return nil, domain.ErrInvalidPayload
	}

	orderID, err := snowflake.ParseString(strings.TrimSpace(txn.OutTradeNo))
	if err != nil {
		return nil, domain.ErrInvalidPayload
	}

	outcome := domain.OutcomeFailure
	if txn.TradeState == "SUCCESS" {
		outcome = domain.OutcomeSuccess
	}

	return &domain.Notification{
		Provider:   ProviderName,
		OrderID:    orderID,
		Outcome:    outcome,
		RawPayload: plain,
	}, nil
}

func (a *Adapter) decryptResource(resource notifyResource) ([]byte, error) {
	if resource.Algorithm != "" && resource.Algorithm != "AEAD_AES_256_GCM" {
		return nil, domain.ErrInvalidPayload
	}
	ciphertext, err := base64.StdEncoding.DecodeString(resource.Ciphertext)
	if err != nil {
		return nil, domain.ErrInvalidPayload
	}

	block, err := aes.NewCipher(a.apiv3Key)
	if err != nil {
		return nil, err
	}
	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return nil, err
	}
	// gcm.Open panics on a wrong-length nonce rather than returning an error.
	if len(resource.Nonce) != gcm.NonceSize() {
		return nil, domain.ErrInvalidPayload
	}

	plain, err := gcm.Open(nil, []byte(resource.Nonce), ciphertext, []byte(resource.AssociatedData))
	if err != nil {
		return nil, domain.ErrInvalidPayload
	}
	return plain, nil
}

func parsePlatformPublicKey(certPEM string) (*rsa.PublicKey, error) {
	block, _ := pem.Decode([]byte(certPEM))
	if block == nil {
		return nil, domain.ErrInvalidConfig
	}

	switch block.Type {
	case "CERTIFICATE":
		cert, err := x509.ParseCertificate(block.Bytes)
		if err != nil {
			return nil, err
		}
		key, ok := cert.PublicKey.(*rsa.PublicKey)
		if !ok {
			return nil, domain.ErrInvalidConfig
		}
		return key, nil
	case "PUBLIC KEY":
		parsed, err := x509.ParsePKIXPublicKey(block.Bytes)
		if err != nil {
			return nil, err
		}
		key, ok := parsed.(*rsa.PublicKey)
		if !ok {
			return nil, domain.ErrInvalidConfig
		}
		return key, nil
	default:
		return nil, domain.ErrInvalidConfig
	}
}
