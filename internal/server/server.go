package server

import (
	"context"
	"net/http"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/gin-gonic/gin"
	"github.com/lafcloud/platform/internal/account"
	accountdomain "github.com/lafcloud/platform/internal/account/domain"
	"github.com/lafcloud/platform/internal/chargeorder"
	chargeorderdomain "github.com/lafcloud/platform/internal/chargeorder/domain"
	"github.com/lafcloud/platform/internal/config"
	"github.com/lafcloud/platform/internal/metrics"
	"github.com/lafcloud/platform/internal/payment"
	paymentdomain "github.com/lafcloud/platform/internal/payment/domain"
	"github.com/lafcloud/platform/internal/payment/webhook"
	"github.com/lafcloud/platform/internal/reconcile"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

var Module = fx.Module("http.server",
	metrics.Module,
	account.Module,
	chargeorder.Module,
	payment.Module,
	reconcile.Module,
	fx.Provide(registerGin),
	fx.Invoke(NewServer),
	fx.Invoke(run),
)

func NewEngine() *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(RequestID())
	r.Use(ErrorHandlingMiddleware())

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	return r
}

func registerGin(cfg config.Config) *gin.Engine {
	if cfg.Environment == "production" {
		gin.SetMode(gin.ReleaseMode)
	}
	return NewEngine()
}

func run(lc fx.Lifecycle, r *gin.Engine, cfg config.Config, log *zap.Logger) {
	srv := &http.Server{
		Addr:    cfg.HTTPAddr,
		Handler: r,
	}

	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			log.Info("http server listening", zap.String("addr", cfg.HTTPAddr))
			go func() {
				if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
					log.Fatal("http server failed", zap.Error(err))
				}
			}()
			return nil
		},
		OnStop: func(ctx context.Context) error {
			shutdownCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
			defer cancel()
			return srv.Shutdown(shutdownCtx)
		},
	})
}

type Server struct {
	engine     *gin.Engine
	cfg        config.Config
	log        *zap.Logger
	db         *gorm.DB
	genID      *snowflake.Node
	accountSvc accountdomain.Service
	orderSvc   chargeorderdomain.Service
	webhookSvc *webhook.Service
	gateways   map[string]paymentdomain.Gateway
}

type ServerParams struct {
	fx.In

	Gin        *gin.Engine
	Cfg        config.Config
	Log        *zap.Logger
	DB         *gorm.DB
	GenID      *snowflake.Node
	AccountSvc accountdomain.Service
	OrderSvc   chargeorderdomain.Service
	WebhookSvc *webhook.Service
	Gateways   map[string]paymentdomain.Gateway
}

func NewServer(p ServerParams) *Server {
	svc := &Server{
		engine:     p.Gin,
		cfg:        p.Cfg,
		log:        p.Log.Named("http.server"),
		db:         p.DB,
		genID:      p.GenID,
		accountSvc: p.AccountSvc,
		orderSvc:   p.OrderSvc,
		webhookSvc: p.WebhookSvc,
		gateways:   p.Gateways,
	}

	svc.registerAPIRoutes()

	return svc
}

func (s *Server) Engine() *gin.Engine {
	return s.engine
}

func (s *Server) registerAPIRoutes() {
	v1 := s.engine.Group("/v1")

	// -------- Accounts --------
	v1.GET("/accounts", s.AuthRequired(), s.GetAccount)
	v1.GET("/accounts/transactions", s.AuthRequired(), s.ListAccountTransactions)

	// -------- Charge Orders --------
	v1.POST("/accounts/charge-order", s.AuthRequired(), s.CreateChargeOrder)
	v1.GET("/accounts/charge-order/:id", s.AuthRequired(), s.GetChargeOrder)

	// -------- Payment Notifications --------
	v1.POST("/payments/:provider/notify", s.HandlePaymentNotify)
}
