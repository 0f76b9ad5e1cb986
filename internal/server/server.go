package server

import (
	"context"
	"net/http"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/fx"
	"gorm.io/gorm"

	"github.com/stellapay/stellapay/internal/audit"
	"github.com/stellapay/stellapay/internal/clock"
	"github.com/stellapay/stellapay/internal/config"
	"github.com/stellapay/stellapay/internal/employee"
	employeedomain "github.com/stellapay/stellapay/internal/employee/domain"
	"github.com/stellapay/stellapay/internal/escrow"
	"github.com/stellapay/stellapay/internal/lock"
	"github.com/stellapay/stellapay/internal/migration"
	"github.com/stellapay/stellapay/internal/observability"
	obsmiddleware "github.com/stellapay/stellapay/internal/observability/logger"
	obsmetrics "github.com/stellapay/stellapay/internal/observability/metrics"
	obstracing "github.com/stellapay/stellapay/internal/observability/tracing"
	"github.com/stellapay/stellapay/internal/payroll"
	payrolldomain "github.com/stellapay/stellapay/internal/payroll/domain"
	"github.com/stellapay/stellapay/pkg/db"
)

var Module = fx.Module("http.server",
	config.Module,
	observability.Module,
	db.Module,
	clock.Module,
	migration.Module,
	lock.Module,
	audit.Module,
	escrow.Module,
	payroll.Module,
	employee.Module,
	fx.Provide(NewEngine),
	fx.Invoke(NewServer),
	fx.Invoke(run),
)

func NewEngine(obsCfg observability.Config) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(obsmiddleware.GinMiddleware(obsmiddleware.MiddlewareConfig{
		Debug:           obsCfg.Debug(),
		ErrorClassifier: classifyErrorForLog,
	}))
	r.Use(obstracing.GinMiddleware())
	r.Use(ErrorHandlingMiddleware())

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	return r
}

func run(lc fx.Lifecycle, r *gin.Engine, cfg config.Config) {
	srv := &http.Server{
		Addr:    cfg.HTTPAddr,
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
	genID       *snowflake.Node
	payrollSvc  payrolldomain.Service
	employeeSvc employeedomain.Service
	auditSvc    audit.Service
	obsMetrics  *obsmetrics.Metrics
}

type ServerParams struct {
	fx.In

	Engine      *gin.Engine
	Cfg         config.Config
	DB          *gorm.DB
	GenID       *snowflake.Node
	PayrollSvc  payrolldomain.Service
	EmployeeSvc employeedomain.Service
	AuditSvc    audit.Service
	ObsMetrics  *obsmetrics.Metrics
}

func NewServer(p ServerParams) *Server {
	s := &Server{
		engine:      p.Engine,
		cfg:         p.Cfg,
		db:          p.DB,
		genID:       p.GenID,
		payrollSvc:  p.PayrollSvc,
		employeeSvc: p.EmployeeSvc,
		auditSvc:    p.AuditSvc,
		obsMetrics:  p.ObsMetrics,
	}
	s.registerRoutes()
	return s
}

func (s *Server) registerRoutes() {
	api := s.engine.Group("/api")

	payrolls := api.Group("/payrolls")
	payrolls.POST("", s.createPayroll)
	payrolls.GET("", s.listPayrolls)
	payrolls.GET("/:id", s.getPayroll)
	payrolls.GET("/:id/recipients", s.listPayrollRecipients)
	payrolls.GET("/:id/audit", s.listPayrollAudit)
	payrolls.POST("/:id/fund", s.fundPayroll)
	payrolls.POST("/:id/release", s.releasePayroll)
	payrolls.POST("/:id/cancel", s.cancelPayroll)
	payrolls.POST("/:id/archive", s.archivePayroll)

	employees := api.Group("/employees")
	employees.POST("", s.createEmployee)
	employees.GET("", s.listEmployees)
	employees.GET("/stats", s.employeeStats)
	employees.GET("/:id", s.getEmployee)
	employees.PATCH("/:id", s.updateEmployee)
	employees.DELETE("/:id", s.deactivateEmployee)
}

func parseID(c *gin.Context, param string) (snowflake.ID, bool) {
	id, err := snowflake.ParseString(c.Param(param))
	if err != nil {
		AbortWithError(c, newValidationError(param, "invalid_id", "invalid identifier"))
		return 0, false
	}
	return id, true
}
