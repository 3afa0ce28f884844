package wechatpay

import (
	"bytes"
	"context"
	"crypto"
	"crypto/rand"
	"crypto/rsa"
	"crypto/sha256"
	"crypto/x509"
	"encoding/base64"
	"encoding/json"
	"encoding/pem"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/lafcloud/platform/internal/config"
	"github.com/lafcloud/platform/internal/payment/domain"
)

const defaultAPIBase = "https://api.mch.weixin.qq.com"

// Gateway opens Native (QR code) prepay transactions against the WeChat Pay
// v3 API. Requests are signed with the merchant private key per the v3
// Authorization scheme.
type Gateway struct {
	appID      string
	mchID      string
	serialNo   string
	notifyURL  string
	apiBase    string
	privateKey *rsa.PrivateKey
	client     *http.Client
}

func NewGateway(cfg config.WeChatPayConfig) (*Gateway, error) {
	if cfg.AppID == "" || cfg.MchID == "" || cfg.MchCertSerialNo == "" || cfg.NotifyURL == "" {
		return nil, domain.ErrInvalidConfig
	}
	key, err := parsePrivateKey(cfg.PrivateKeyPEM)
	if err != nil {
		return nil, domain.ErrInvalidConfig
	}

	return &Gateway{
		appID:      cfg.AppID,
		mchID:      cfg.MchID,
		serialNo:   cfg.MchCertSerialNo,
		notifyURL:  cfg.NotifyURL,
		apiBase:    defaultAPIBase,
		privateKey: key,
		client:     &http.Client{Timeout: 10 * time.Second},
	}, nil
}

// WithAPIBase overrides the API endpoint, used by sandbox setups.
func (g *Gateway) WithAPIBase(base string) *Gateway {
	g.apiBase = strings.TrimRight(base, "/")
	return g
}

func (g *Gateway) Provider() string {
	return ProviderName
}

type prepayRequest struct {
	AppID       string       `json:"appid"`
	MchID       string       `json:"mchid"`
	Description string       `json:"description"`
	OutTradeNo  string       `json:"out_trade_no"`
	NotifyURL   string       `json:"notify_url"`
	Amount      prepayAmount `json:"amount"`
}

type prepayAmount struct {
	Total    int64  `json:"total"`
	Currency string `json:"currency"`
}

type prepayResponse struct {
	CodeURL string `json:"code_url"`
	Code    string `json:"code"`
	Message string `json:"message"`
}

func (g *Gateway) CreatePayment(ctx context.Context, req domain.PaymentRequest) (*domain.PaymentIntent, error) {
	if req.OrderID == 0 || req.Amount <= 0 {
		return nil, domain.ErrGatewayRejected
	}

	const path = "/v3/pay/transactions/native"
	body, err := json.Marshal(prepayRequest{
		AppID:       g.appID,
		MchID:       g.mchID,
		Description: req.Description,
		OutTradeNo:  req.OrderID.String(),
		NotifyURL:   g.notifyURL,
		Amount: prepayAmount{
			Total:    req.Amount,
			Currency: req.Currency,
		},
	})
	if err != nil {
		return nil, err
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, g.apiBase+path, bytes.NewReader(body))
	if err != nil {
		return nil, err
	}

	auth, err := g.authorization(http.MethodPost, path, body)
	if err != nil {
		return nil, err
	}
	httpReq.Header.Set("Authorization", auth)
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Accept", "application/json")

	resp, err := g.client.Do(httpReq)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}

	var parsed prepayResponse
	if err := json.Unmarshal(data, &parsed); err != nil {
		return nil, domain.ErrGatewayRejected
	}
	if resp.StatusCode != http.StatusOK || parsed.CodeURL == "" {
		return nil, fmt.Errorf("%w: %s %s", domain.ErrGatewayRejected, parsed.Code, parsed.Message)
	}

	return &domain.PaymentIntent{
		Provider: ProviderName,
		CodeURL:  parsed.CodeURL,
	}, nil
}

// authorization builds the WECHATPAY2-SHA256-RSA2048 header: the merchant
// signs "method\npath\ntimestamp\nnonce\nbody\n" with its private key.
func (g *Gateway) authorization(method, path string, body []byte) (string, error) {
	timestamp := time.Now().Unix()
	nonce := strings.ReplaceAll(uuid.NewString(), "-", "")

	message := fmt.Sprintf("%s\n%s\n%d\n%s\n%s\n", method, path, timestamp, nonce, string(body))
	digest := sha256.Sum256([]byte(message))
	signature, err := rsa.SignPKCS1v15(rand.Reader, g.privateKey, crypto.SHA256, digest[:])
	if err != nil {
		return "", err
	}

	return fmt.Sprintf(
		`WECHATPAY2-SHA256-RSA2048 mchid="%s",nonce_str="%s",signature="%s",timestamp="%d",serial_no="%s"`,
		g.mchID,
		nonce,
		base64.StdEncoding.EncodeToString(signature),
		timestamp,
		g.serialNo,
	), nil
}

func parsePrivateKey(keyPEM string) (*rsa.PrivateKey, error) {
	block, _ := pem.Decode([]byte(keyPEM))
	if block == nil {
		return nil, domain.ErrInvalidConfig
	}

	if key, err := x509.ParsePKCS1PrivateKey(block.Bytes); err == nil {
		return key, nil
	}
	parsed, err := x509.ParsePKCS8PrivateKey(block.Bytes)
	if err != nil {
		return nil, err
	}
	key, ok := parsed.(*rsa.PrivateKey)
	if !ok {
		return nil, domain.ErrInvalidConfig
	}
	return key, nil
}
