package server

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	auditdomain "github.com/smallbiznis/popstore/internal/audit/domain"
	"github.com/smallbiznis/popstore/internal/authorization"
	checkoutdomain "github.com/smallbiznis/popstore/internal/checkout/domain"
	commissiondomain "github.com/smallbiznis/popstore/internal/commission/domain"
	"github.com/smallbiznis/popstore/internal/config"
	"github.com/smallbiznis/popstore/internal/observability"
	obsmiddleware "github.com/smallbiznis/popstore/internal/observability/logger"
	obsmetrics "github.com/smallbiznis/popstore/internal/observability/metrics"
	obstracing "github.com/smallbiznis/popstore/internal/observability/tracing"
	orderdomain "github.com/smallbiznis/popstore/internal/order/domain"
	"github.com/smallbiznis/popstore/internal/payment/webhook"
	plandomain "github.com/smallbiznis/popstore/internal/plan/domain"
	"github.com/smallbiznis/popstore/internal/ratelimit"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

var Module = fx.Module("http.server",
	fx.Provide(registerGin),
	fx.Provide(NewServer),
	fx.Invoke(registerRoutes),
	fx.Invoke(run),
)

func NewEngine(obsCfg observability.Config, httpMetrics *obsmetrics.HTTPMetrics, cfg config.Config) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	if len(cfg.CORSOrigins) > 0 {
		r.Use(cors.New(cors.Config{
			AllowOrigins:  cfg.CORSOrigins,
			AllowMethods:  []string{http.MethodGet, http.MethodPost, http.MethodOptions},
			AllowHeaders:  []string{"Origin", "Content-Type", "Authorization", "X-Request-Id"},
			ExposeHeaders: []string{"X-Request-Id", "Retry-After"},
			MaxAge:        12 * time.Hour,
		}))
	}
	r.Use(obsmiddleware.GinMiddleware(obsmiddleware.MiddlewareConfig{
		Debug:           obsCfg.Debug(),
		ErrorClassifier: classifyErrorForLog,
	}))
	r.Use(obstracing.GinMiddleware())
	r.Use(httpMetrics.GinMiddleware())
	r.Use(ErrorHandlingMiddleware())

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	return r
}

func registerGin(obsCfg observability.Config, httpMetrics *obsmetrics.HTTPMetrics, cfg config.Config) *gin.Engine {
	return NewEngine(obsCfg, httpMetrics, cfg)
}

func run(lc fx.Lifecycle, r *gin.Engine, cfg config.Config, log *zap.Logger) {
	addr := cfg.HTTPAddr
	if addr == "" {
		addr = ":8080"
	}
	srv := &http.Server{
		Addr:              addr,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			log.Info("http server listening", zap.String("addr", addr))
			go func() {
				if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
					log.Fatal("http server stopped", zap.Error(err))
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

// webhookReconciler is the part of webhook.Reconciler the handlers call.
type webhookReconciler interface {
	Reconcile(ctx context.Context, rawBody []byte, signatureHeader string) (webhook.Outcome, error)
}

type checkoutLimiter interface {
	Allow(ctx context.Context, ip string) ratelimit.Result
}

type tokenParser interface {
	Parse(raw string) (authorization.Principal, error)
}

type Server struct {
	engine          *gin.Engine
	cfg             config.Config
	log             *zap.Logger
	checkoutSvc     checkoutdomain.Service
	checkoutLimiter checkoutLimiter
	reconciler      webhookReconciler
	orderSvc        orderdomain.Service
	planSvc         plandomain.Service
	commissionSvc   commissiondomain.Service
	auditSvc        auditdomain.Service
	authzSvc        authorization.Service
	tokens          tokenParser
	obsMetrics      *obsmetrics.Metrics
}

type ServerParams struct {
	fx.In

	Gin             *gin.Engine
	Cfg             config.Config
	Log             *zap.Logger
	CheckoutSvc     checkoutdomain.Service
	CheckoutLimiter *ratelimit.CheckoutLimiter `optional:"true"`
	Reconciler      *webhook.Reconciler
	OrderSvc        orderdomain.Service
	PlanSvc         plandomain.Service
	CommissionSvc   commissiondomain.Service
	AuditSvc        auditdomain.Service
	AuthzSvc        authorization.Service
	Tokens          *authorization.TokenService
	ObsMetrics      *obsmetrics.Metrics `optional:"true"`
}

func NewServer(p ServerParams) *Server {
	s := &Server{
		engine:        p.Gin,
		cfg:           p.Cfg,
		log:           p.Log.Named("http.server"),
		checkoutSvc:   p.CheckoutSvc,
		reconciler:    p.Reconciler,
		orderSvc:      p.OrderSvc,
		planSvc:       p.PlanSvc,
		commissionSvc: p.CommissionSvc,
		auditSvc:      p.AuditSvc,
		authzSvc:      p.AuthzSvc,
		tokens:        p.Tokens,
		obsMetrics:    p.ObsMetrics,
	}
	if p.CheckoutLimiter != nil {
		s.checkoutLimiter = p.CheckoutLimiter
	}
	return s
}

func registerRoutes(s *Server) {
	s.RegisterPublicRoutes()
	s.RegisterAPIRoutes()
	s.RegisterAdminRoutes()
}

func (s *Server) Engine() *gin.Engine {
	return s.engine
}

// RegisterPublicRoutes mounts the buyer and processor facing endpoints.
func (s *Server) RegisterPublicRoutes() {
	api := s.engine.Group("/api")

	api.POST("/webhooks/stripe", s.HandleStripeWebhook)

	checkout := api.Group("/checkout")
	{
		checkout.POST("/sessions", s.CheckoutRateLimit(), s.CreateCheckoutSession)
		checkout.GET("/sessions/:sessionId", s.GetCheckoutSession)
	}

	api.GET("/plans", s.ListPlans)
	api.GET("/plans/:id", s.GetPlan)
}

// RegisterAPIRoutes mounts the endpoints for authenticated store owners.
func (s *Server) RegisterAPIRoutes() {
	api := s.engine.Group("/api", s.AuthRequired())

	api.GET("/commissions/analytics",
		s.authorize(authorization.ObjectCommission, authorization.ActionAnalyticsView),
		s.GetCommissionAnalytics,
	)
}

func (s *Server) RegisterAdminRoutes() {
	admin := s.engine.Group("/api/admin", s.AuthRequired())

	admin.POST("/plans",
		s.authorize(authorization.ObjectPlan, authorization.ActionPlanCreate),
		s.CreatePlan,
	)
	admin.GET("/audit-logs",
		s.authorize(authorization.ObjectAuditLog, authorization.ActionAuditLogView),
		s.ListAuditLogs,
	)
}
