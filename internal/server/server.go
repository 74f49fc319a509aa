// Package server exposes the HTTP surface: the admin API, the public
// payment link and webhook endpoints, and the operational endpoints.
package server

import (
	"context"
	"net/http"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/gin-gonic/gin"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/D-Honoured1/Kamisoft-sub002/internal/audit"
	auditdomain "github.com/D-Honoured1/Kamisoft-sub002/internal/audit/domain"
	"github.com/D-Honoured1/Kamisoft-sub002/internal/client"
	clientdomain "github.com/D-Honoured1/Kamisoft-sub002/internal/client/domain"
	"github.com/D-Honoured1/Kamisoft-sub002/internal/clock"
	"github.com/D-Honoured1/Kamisoft-sub002/internal/config"
	"github.com/D-Honoured1/Kamisoft-sub002/internal/invoice"
	invoicedomain "github.com/D-Honoured1/Kamisoft-sub002/internal/invoice/domain"
	"github.com/D-Honoured1/Kamisoft-sub002/internal/observability"
	obsmetrics "github.com/D-Honoured1/Kamisoft-sub002/internal/observability/metrics"
	"github.com/D-Honoured1/Kamisoft-sub002/internal/operator"
	operatordomain "github.com/D-Honoured1/Kamisoft-sub002/internal/operator/domain"
	"github.com/D-Honoured1/Kamisoft-sub002/internal/payment"
	paymentdomain "github.com/D-Honoured1/Kamisoft-sub002/internal/payment/domain"
	"github.com/D-Honoured1/Kamisoft-sub002/internal/payment/webhook"
	"github.com/D-Honoured1/Kamisoft-sub002/internal/providers/email"
	"github.com/D-Honoured1/Kamisoft-sub002/internal/providers/pdf"
	"github.com/D-Honoured1/Kamisoft-sub002/internal/providers/storage"
	"github.com/D-Honoured1/Kamisoft-sub002/internal/rates"
	"github.com/D-Honoured1/Kamisoft-sub002/internal/servicerequest"
	requestdomain "github.com/D-Honoured1/Kamisoft-sub002/internal/servicerequest/domain"
	"github.com/D-Honoured1/Kamisoft-sub002/internal/sweeper"
)

var Module = fx.Module("http.server",
	config.Module,
	clock.Module,
	observability.Module,
	audit.Module,
	client.Module,
	servicerequest.Module,
	payment.Module,
	email.Module,
	pdf.Module,
	storage.Module,
	invoice.Module,
	operator.Module,
	rates.Module,
	sweeper.Module,
	fx.Provide(registerGin),
	fx.Invoke(NewServer),
	fx.Invoke(run),
)

func NewEngine(httpMetrics *obsmetrics.HTTPMetrics) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(httpMetrics.Middleware())
	r.Use(ErrorHandlingMiddleware())

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	r.GET("/metrics", httpMetrics.Handler())

	return r
}

func registerGin(httpMetrics *obsmetrics.HTTPMetrics) *gin.Engine {
	return NewEngine(httpMetrics)
}

func run(lc fx.Lifecycle, r *gin.Engine) {
	srv := &http.Server{
		Addr:    ":8080",
		Handler: r,
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

type Server struct {
	engine      *gin.Engine
	cfg         config.Config
	db          *gorm.DB
	log         *zap.Logger
	genID       *snowflake.Node
	clock       clock.Clock
	clientSvc   clientdomain.Service
	requestSvc  requestdomain.Service
	ledger      paymentdomain.Ledger
	reconciler  *webhook.Reconciler
	invoiceSvc  invoicedomain.Service
	operatorSvc operatordomain.Service
	auditSvc    auditdomain.Service
	ratesSvc    rates.Service
	sweeper     *sweeper.Sweeper
	email       email.Provider
}

type ServerParams struct {
	fx.In

	Gin         *gin.Engine
	Cfg         config.Config
	DB          *gorm.DB
	Log         *zap.Logger
	GenID       *snowflake.Node
	Clock       clock.Clock
	ClientSvc   clientdomain.Service
	RequestSvc  requestdomain.Service
	Ledger      paymentdomain.Ledger
	Reconciler  *webhook.Reconciler
	InvoiceSvc  invoicedomain.Service
	OperatorSvc operatordomain.Service
	AuditSvc    auditdomain.Service
	RatesSvc    rates.Service
	Sweeper     *sweeper.Sweeper
	Email       email.Provider
}

func NewServer(p ServerParams) *Server {
	svc := &Server{
		engine:      p.Gin,
		cfg:         p.Cfg,
		db:          p.DB,
		log:         p.Log.Named("http.server"),
		genID:       p.GenID,
		clock:       p.Clock,
		clientSvc:   p.ClientSvc,
		requestSvc:  p.RequestSvc,
		ledger:      p.Ledger,
		reconciler:  p.Reconciler,
		invoiceSvc:  p.InvoiceSvc,
		operatorSvc: p.OperatorSvc,
		auditSvc:    p.AuditSvc,
		ratesSvc:    p.RatesSvc,
		sweeper:     p.Sweeper,
		email:       p.Email,
	}

	svc.registerPublicRoutes()
	svc.registerAdminRoutes()

	return svc
}

func (s *Server) registerPublicRoutes() {
	s.engine.POST("/webhooks/:provider", s.HandlePaymentWebhook)
	s.engine.GET("/pay/:token", s.HandleResolvePaymentLink)
	s.engine.POST("/api/v1/auth/login", s.HandleLogin)
	s.engine.POST("/api/v1/auth/register", s.HandleRegister)
}

func (s *Server) registerAdminRoutes() {
	api := s.engine.Group("/api/v1", s.requireOperator())

	clients := api.Group("/clients")
	clients.POST("", s.HandleUpsertClient)
	clients.GET("", s.HandleListClients)
	clients.GET("/:id", s.HandleGetClient)
	clients.POST("/:id/archive", s.HandleArchiveClient)
	clients.POST("/:id/unarchive", s.HandleUnarchiveClient)

	requests := api.Group("/requests")
	requests.POST("", s.HandleCreateRequest)
	requests.GET("", s.HandleListRequests)
	requests.GET("/:id", s.HandleGetRequest)
	requests.POST("/:id/approve", s.HandleApproveRequest)
	requests.POST("/:id/complete", s.HandleCompleteRequest)
	requests.POST("/:id/cancel", s.HandleCancelRequest)
	requests.POST("/:id/payment-link", s.HandleIssuePaymentLink)

	payments := api.Group("/payments")
	payments.POST("", s.HandleCreatePayment)
	payments.GET("", s.HandleListPayments)
	payments.GET("/:id", s.HandleGetPayment)
	payments.POST("/:id/transition", s.HandleTransitionPayment)
	payments.DELETE("/:id", s.HandleDeletePayment)

	invoices := api.Group("/invoices")
	invoices.POST("", s.HandlePrepareInvoice)
	invoices.GET("", s.HandleListInvoices)
	invoices.GET("/:id", s.HandleGetInvoice)
	invoices.POST("/:id/send", s.HandleSendInvoice)
	invoices.POST("/:id/cancel", s.HandleCancelInvoice)
	invoices.POST("/:id/rerender", s.HandleRerenderInvoice)

	api.GET("/audit-logs", s.HandleListAuditLogs)
	api.GET("/rates", s.HandleGetRate)
	api.POST("/sweep", s.HandleRunSweep)
	api.GET("/sweep/stats", s.HandleSweepStats)
}
