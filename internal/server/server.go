package server

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	checkoutdomain "github.com/renatoambrosi/backmercadopro/internal/checkout/domain"
	"github.com/renatoambrosi/backmercadopro/internal/config"
	"github.com/renatoambrosi/backmercadopro/internal/gateway"
	obscontext "github.com/renatoambrosi/backmercadopro/internal/observability/context"
	"github.com/renatoambrosi/backmercadopro/internal/observability/logger"
	"github.com/renatoambrosi/backmercadopro/internal/observability/metrics"
	"github.com/renatoambrosi/backmercadopro/internal/observability/tracing"
	paymentdomain "github.com/renatoambrosi/backmercadopro/internal/payment/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

var Module = fx.Module("server",
	fx.Provide(NewEngine),
	fx.Provide(NewServer),
	fx.Invoke(func(s *Server) { s.RegisterRoutes() }),
	fx.Invoke(RunHTTP),
)

type Params struct {
	fx.In

	Engine      *gin.Engine
	Log         *zap.Logger
	Cfg         config.Config
	CheckoutSvc checkoutdomain.Service
	PaymentSvc  paymentdomain.Service
	Gateway     gateway.Client
}

type Server struct {
	engine      *gin.Engine
	log         *zap.Logger
	cfg         config.Config
	checkoutSvc checkoutdomain.Service
	paymentSvc  paymentdomain.Service
	gateway     gateway.Client
	limiter     *rateLimiter
	startedAt   time.Time
}

func NewEngine(cfg config.Config, log *zap.Logger, httpMetrics *metrics.HTTPMetrics) *gin.Engine {
	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}
	engine := gin.New()
	engine.Use(gin.Recovery())
	engine.Use(securityHeaders())
	engine.Use(corsMiddleware(cfg))
	engine.Use(tracing.GinMiddleware())
	engine.Use(metrics.GinMiddleware(httpMetrics))
	engine.Use(logger.GinMiddleware(logger.MiddlewareConfig{
		SkipPaths: []string{"/health", "/metrics"},
	}))
	return engine
}

func NewServer(p Params) *Server {
	return &Server{
		engine:      p.Engine,
		log:         p.Log.Named("server"),
		cfg:         p.Cfg,
		checkoutSvc: p.CheckoutSvc,
		paymentSvc:  p.PaymentSvc,
		gateway:     p.Gateway,
		limiter:     newRateLimiter(60, time.Minute),
		startedAt:   time.Now().UTC(),
	}
}

func (s *Server) RegisterRoutes() {
	s.engine.GET("/health", s.Health)
	s.engine.GET("/status", s.StatusReport)
	s.engine.GET("/metrics", gin.WrapH(promhttp.Handler()))

	// The webhook stays unthrottled: the gateway redelivers through shared
	// egress IPs and anything but auth or parse failures must answer 200.
	s.engine.POST("/create_preference", s.rateLimited, s.CreatePreference)
	s.engine.POST("/webhook", s.Webhook)
	s.engine.GET("/payment-status/:key", s.PaymentStatus)

	api := s.engine.Group("/api")
	{
		api.POST("/process_payment", s.rateLimited, s.CreatePreference)
		api.POST("/webhook", s.Webhook)
		api.GET("/payment/:key", s.PaymentStatus)
		api.GET("/callback", s.Callback)
		api.GET("/environment", s.Environment)
	}

	s.engine.NoRoute(func(c *gin.Context) {
		AbortWithError(c, ErrNotFound)
	})
}

func (s *Server) rateLimited(c *gin.Context) {
	if !s.limiter.Allow(obscontext.ClientIPFromGin(c)) {
		c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{"error": "rate_limited"})
		return
	}
	c.Next()
}

func RunHTTP(lc fx.Lifecycle, engine *gin.Engine, cfg config.Config, log *zap.Logger) {
	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           engine,
		ReadHeaderTimeout: 5 * time.Second,
	}

	lc.Append(fx.Hook{
		OnStart: func(context.Context) error {
			log.Info("http server starting", zap.String("addr", srv.Addr))
			go func() {
				if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
					log.Fatal("http server failed", zap.Error(err))
				}
			}()
			return nil
		},
		OnStop: func(ctx context.Context) error {
			log.Info("http server stopping")
			return srv.Shutdown(ctx)
		},
	})
}
