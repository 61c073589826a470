// Package server exposes the lifecycle engine over HTTP: the admin review
// surface, the contract-event surface, and the payment webhook.
package server

import (
	"context"
	"net/http"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/casalist/casalist/internal/approval"
	"github.com/casalist/casalist/internal/config"
	"github.com/casalist/casalist/internal/lifecycle"
	lifecycledomain "github.com/casalist/casalist/internal/lifecycle/domain"
	"github.com/casalist/casalist/internal/listing"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

var Module = fx.Module("http.server",
	listing.Module,
	approval.Module,
	lifecycle.Module,
	fx.Provide(NewEngine),
	fx.Provide(NewServer),
	fx.Invoke(func(s *Server) { s.RegisterRoutes() }),
	fx.Invoke(run),
)

func NewEngine() *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(ErrorHandlingMiddleware())

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	return r
}

type ServerParams struct {
	fx.In

	Engine       *gin.Engine
	Cfg          config.Config
	Log          *zap.Logger
	GenID        *snowflake.Node
	LifecycleSvc lifecycledomain.Service
}

type Server struct {
	engine       *gin.Engine
	cfg          config.Config
	log          *zap.Logger
	genID        *snowflake.Node
	lifecycleSvc lifecycledomain.Service
}

func NewServer(p ServerParams) *Server {
	return &Server{
		engine:       p.Engine,
		cfg:          p.Cfg,
		log:          p.Log.Named("http.server"),
		genID:        p.GenID,
		lifecycleSvc: p.LifecycleSvc,
	}
}

func (s *Server) RegisterRoutes() {
	v1 := s.engine.Group("/v1")
	{
		v1.POST("/listings", s.HandleCreateListing)
		v1.GET("/listings/:id", s.HandleGetListing)
		v1.POST("/listings/:id/submit", s.HandleSubmit)
		v1.POST("/listings/:id/withdraw", s.HandleWithdraw)
		v1.POST("/listings/:id/renewal-request", s.HandleRequestRenewal)
		v1.POST("/listings/:id/force-remove", s.HandleForceRemove)
		v1.POST("/listings/:id/contract-events", s.HandleContractEvent)

		v1.GET("/sessions/:id", s.HandleGetSession)
		v1.POST("/sessions/:id/decision", s.HandleDecide)
		v1.GET("/sessions/:id/actions", s.HandleListActions)
	}

	s.engine.POST("/webhooks/payments/:provider", s.HandlePaymentWebhook)
}

func run(lc fx.Lifecycle, s *Server) {
	srv := &http.Server{
		Addr:    s.cfg.HTTPAddr,
		Handler: s.engine,
	}

	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			go func() {
				if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
					panic(err)
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
