package webhook

import (
	"context"
	"net/http"
	"strings"

	"github.com/lafcloud/platform/internal/config"
	"github.com/lafcloud/platform/internal/payment/adapters"
	"github.com/lafcloud/platform/internal/payment/adapters/wechatpay"
	paymentdomain "github.com/lafcloud/platform/internal/payment/domain"
	"github.com/lafcloud/platform/internal/reconcile"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

type Params struct {
	fx.In

	Log      *zap.Logger
	Cfg      config.Config
	Adapters *adapters.Registry
	Engine   *reconcile.Service
}

// Service is the inbound notification boundary: it verifies and decodes a
// raw provider callback, then hands the normalized notification to the
// reconciliation engine. A verification failure never reaches the engine.
type Service struct {
	log      *zap.Logger
	cfg      config.Config
	adapters *adapters.Registry
	engine   *reconcile.Service
}

func New(p Params) *Service {
	return &Service{
		log:      p.Log.Named("payment.webhook"),
		cfg:      p.Cfg,
		adapters: p.Adapters,
		engine:   p.Engine,
	}
}

func (s *Service) Ingest(ctx context.Context, provider string, payload []byte, headers http.Header) (reconcile.Result, error) {
	provider = strings.ToLower(strings.TrimSpace(provider))
	if provider == "" || !s.adapters.ProviderExists(provider) {
		return "", paymentdomain.ErrProviderNotFound
	}

	adapter, err := s.adapters.NewAdapter(provider, s.adapterConfig(provider))
	if err != nil {
		return "", err
	}

	if err := adapter.Verify(ctx, payload, headers); err != nil {
		s.log.Warn("notification rejected",
			zap.String("provider", provider),
			zap.Error(err),
		)
		return "", err
	}

	notification, err := adapter.Parse(ctx, payload)
	if err != nil {
		return "", err
	}

	return s.engine.Apply(ctx, notification)
}

func (s *Service) adapterConfig(provider string) paymentdomain.AdapterConfig {
	cfg := paymentdomain.AdapterConfig{Provider: provider, Config: map[string]string{}}
	switch provider {
	case wechatpay.ProviderName:
		cfg.Config["apiv3_key"] = s.cfg.WeChatPay.APIv3Key
		cfg.Config["platform_cert_pem"] = s.cfg.WeChatPay.PlatformCertPEM
	}
	return cfg
}
