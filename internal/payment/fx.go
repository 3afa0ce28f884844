package payment

import (
	"github.com/lafcloud/platform/internal/config"
	"github.com/lafcloud/platform/internal/payment/adapters"
	"github.com/lafcloud/platform/internal/payment/adapters/wechatpay"
	paymentdomain "github.com/lafcloud/platform/internal/payment/domain"
	"github.com/lafcloud/platform/internal/payment/webhook"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

var Module = fx.Module("payment.service",
	fx.Provide(func() *adapters.Registry {
		return adapters.NewRegistry(
			wechatpay.NewFactory(),
		)
	}),
	fx.Provide(ProvideGateways),
	fx.Provide(webhook.New),
)

// ProvideGateways builds the outbound payment gateways for every channel
// with usable credentials. A channel without credentials is simply absent:
// order creation on it fails fast, reconciliation is unaffected.
func ProvideGateways(cfg config.Config, log *zap.Logger) map[string]paymentdomain.Gateway {
	gateways := map[string]paymentdomain.Gateway{}

	if gw, err := wechatpay.NewGateway(cfg.WeChatPay); err == nil {
		gateways[gw.Provider()] = gw
	} else {
		log.Warn("wechat pay gateway disabled", zap.Error(err))
	}

	return gateways
}
