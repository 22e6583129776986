package server

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sevacare/ipdbilling/internal/bill"
	billdomain "github.com/sevacare/ipdbilling/internal/bill/domain"
	"github.com/sevacare/ipdbilling/internal/config"
	"github.com/sevacare/ipdbilling/internal/deposit"
	depositdomain "github.com/sevacare/ipdbilling/internal/deposit/domain"
	"github.com/sevacare/ipdbilling/internal/ledgerstore"
	obslogger "github.com/sevacare/ipdbilling/internal/observability/logger"
	"github.com/sevacare/ipdbilling/internal/patient"
	patientdomain "github.com/sevacare/ipdbilling/internal/patient/domain"
	"github.com/sevacare/ipdbilling/internal/roomrates"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

var Module = fx.Module("http.server",
	ledgerstore.Module,
	patient.Module,
	deposit.Module,
	bill.Module,
	roomrates.Module,
	fx.Provide(NewEngine),
	fx.Invoke(NewServer),
	fx.Invoke(run),
)

func NewEngine(log *zap.Logger) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(obslogger.GinMiddleware(log))
	r.Use(ErrorHandlingMiddleware())

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	return r
}

type Server struct {
	engine     *gin.Engine
	cfg        config.Config
	db         *gorm.DB
	billSvc    billdomain.Service
	depositSvc depositdomain.Service
	patients   patientdomain.Directory
	rates      *roomrates.Holder
}

type ServerParams struct {
	fx.In

	Engine     *gin.Engine
	Cfg        config.Config
	DB         *gorm.DB
	BillSvc    billdomain.Service
	DepositSvc depositdomain.Service
	Patients   patientdomain.Directory
	Rates      *roomrates.Holder
}

func NewServer(p ServerParams) *Server {
	s := &Server{
		engine:     p.Engine,
		cfg:        p.Cfg,
		db:         p.DB,
		billSvc:    p.BillSvc,
		depositSvc: p.DepositSvc,
		patients:   p.Patients,
		rates:      p.Rates,
	}
	s.registerRoutes()
	return s
}

func (s *Server) registerRoutes() {
	api := s.engine.Group("/api/v1")

	api.POST("/bills", s.CreateBill)
	api.GET("/bills/:id/edit", s.LoadBillForEdit)
	api.PUT("/bills/:id", s.UpdateBill)
	api.POST("/bills/:id/complete", s.MarkBillCompleted)
	api.DELETE("/bills/:id", s.DeleteBill)

	api.POST("/deposits", s.AddDeposit)
	api.PATCH("/deposits/:id", s.EditDeposit)
	api.DELETE("/deposits/:id", s.DeleteDeposit)

	api.GET("/patients/:ref", s.GetPatient)
	api.GET("/patients/:ref/bills", s.ListPatientBills)
	api.GET("/patients/:ref/deposits", s.ListPatientDeposits)

	api.GET("/room-rates", s.GetRoomRates)
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
