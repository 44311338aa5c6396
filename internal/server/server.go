package server

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	affiliatedomain "github.com/smallbiznis/affiliate/internal/affiliate/domain"
	auditdomain "github.com/smallbiznis/affiliate/internal/audit/domain"
	"github.com/smallbiznis/affiliate/internal/config"
	conversiondomain "github.com/smallbiznis/affiliate/internal/conversion/domain"
	"github.com/smallbiznis/affiliate/internal/export"
	linkdomain "github.com/smallbiznis/affiliate/internal/link/domain"
	"github.com/smallbiznis/affiliate/internal/observability"
	obsmiddleware "github.com/smallbiznis/affiliate/internal/observability/logger"
	obsmetrics "github.com/smallbiznis/affiliate/internal/observability/metrics"
	obstracing "github.com/smallbiznis/affiliate/internal/observability/tracing"
	payoutdomain "github.com/smallbiznis/affiliate/internal/payout/domain"
	settingsdomain "github.com/smallbiznis/affiliate/internal/settings/domain"
	statsdomain "github.com/smallbiznis/affiliate/internal/stats/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

var Module = fx.Module("http.server",
	fx.Provide(registerGin),
	fx.Invoke(NewServer),
	fx.Invoke(run),
)

func NewEngine(obsCfg observability.Config, httpMetrics *obsmetrics.HTTPMetrics) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(obsmiddleware.GinMiddleware(obsmiddleware.MiddlewareConfig{
		Debug:           obsCfg.Debug(),
		ErrorClassifier: classifyErrorForLog,
	}))
	r.Use(obstracing.GinMiddleware())
	r.Use(httpMetrics.Middleware())
	r.Use(ErrorHandlingMiddleware())

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	return r
}

func registerGin(obsCfg observability.Config, httpMetrics *obsmetrics.HTTPMetrics) *gin.Engine {
	if !obsCfg.Debug() {
		gin.SetMode(gin.ReleaseMode)
	}
	return NewEngine(obsCfg, httpMetrics)
}

func run(lc fx.Lifecycle, cfg config.Config, r *gin.Engine, log *zap.Logger) {
	srv := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			go func() {
				if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
					log.Fatal("http server failed", zap.Error(err))
				}
			}()
			log.Info("http server listening", zap.String("addr", cfg.HTTPAddr))
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
	engine        *gin.Engine
	cfg           config.Config
	log           *zap.Logger
	affiliateSvc  affiliatedomain.Service
	linkSvc       linkdomain.Service
	conversionSvc conversiondomain.Service
	payoutSvc     payoutdomain.Service
	settingsSvc   settingsdomain.Service
	statsSvc      statsdomain.Service
	auditSvc      auditdomain.Service
	exportSvc     *export.Service
}

type ServerParams struct {
	fx.In

	Gin           *gin.Engine
	Cfg           config.Config
	Log           *zap.Logger
	AffiliateSvc  affiliatedomain.Service
	LinkSvc       linkdomain.Service
	ConversionSvc conversiondomain.Service
	PayoutSvc     payoutdomain.Service
	SettingsSvc   settingsdomain.Service
	StatsSvc      statsdomain.Service
	AuditSvc      auditdomain.Service
	ExportSvc     *export.Service
}

func NewServer(p ServerParams) *Server {
	svc := &Server{
		engine:        p.Gin,
		cfg:           p.Cfg,
		log:           p.Log.Named("http.server"),
		affiliateSvc:  p.AffiliateSvc,
		linkSvc:       p.LinkSvc,
		conversionSvc: p.ConversionSvc,
		payoutSvc:     p.PayoutSvc,
		settingsSvc:   p.SettingsSvc,
		statsSvc:      p.StatsSvc,
		auditSvc:      p.AuditSvc,
		exportSvc:     p.ExportSvc,
	}

	svc.registerAPIRoutes()
	svc.registerPublicRoutes()

	return svc
}

func (s *Server) Engine() *gin.Engine {
	return s.engine
}

func (s *Server) registerAPIRoutes() {
	api := s.engine.Group("/api", OrgContext())
	affiliates := api.Group("/affiliates")

	// -------- Affiliates --------
	affiliates.GET("", s.ListAffiliates)
	affiliates.POST("", s.CreateAffiliate)

	// -------- Links --------
	affiliates.GET("/links", s.ListLinks)
	affiliates.POST("/links", s.CreateLink)
	affiliates.PATCH("/links/:id", s.UpdateLink)
	affiliates.POST("/clicks/:slug", s.ResolveClick)

	// -------- Conversions --------
	affiliates.GET("/conversions", s.ListConversions)
	affiliates.POST("/conversions", s.RecordConversion)
	affiliates.GET("/conversions/export", s.ExportConversions)
	affiliates.GET("/conversions/:id", s.GetConversion)
	affiliates.POST("/conversions/:id/approve", s.ApproveConversion)
	affiliates.POST("/conversions/:id/reject", s.RejectConversion)
	affiliates.POST("/orders", s.RecordOrder)

	// -------- Payouts --------
	affiliates.GET("/payouts", s.ListPayouts)
	affiliates.POST("/payouts", s.CreatePayout)
	affiliates.GET("/payouts/export", s.ExportPayouts)
	affiliates.GET("/payouts/:id", s.GetPayout)
	affiliates.POST("/payouts/:id/advance", s.AdvancePayout)
	affiliates.POST("/payouts/:id/mark-paid", s.MarkPayoutPaid)
	affiliates.GET("/payouts/:id/statement", s.PayoutStatement)

	// -------- Program --------
	affiliates.GET("/settings", s.GetSettings)
	affiliates.PUT("/settings", s.UpdateSettings)
	affiliates.GET("/stats", s.GetStats)
	affiliates.GET("/audit-logs", s.ListAuditLogs)

	// declared last so the static segments above win
	affiliates.GET("/:id", s.GetAffiliate)
	affiliates.PATCH("/:id", s.UpdateAffiliate)
	affiliates.GET("/:id/balance", s.GetAffiliateBalance)
}

func (s *Server) registerPublicRoutes() {
	s.engine.GET("/r/:slug", OrgContext(), s.Redirect)
}
