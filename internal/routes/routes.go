package routes

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/BruksfildServices01/table-reservations/internal/config"
	domain "github.com/BruksfildServices01/table-reservations/internal/domain/reservation"
	"github.com/BruksfildServices01/table-reservations/internal/events"
	"github.com/BruksfildServices01/table-reservations/internal/handlers"
	"github.com/BruksfildServices01/table-reservations/internal/logging"
	"github.com/BruksfildServices01/table-reservations/internal/middleware"
	"github.com/BruksfildServices01/table-reservations/internal/notify"
	ucReservation "github.com/BruksfildServices01/table-reservations/internal/usecase/reservation"
	"github.com/BruksfildServices01/table-reservations/internal/validators"
)

type Dependencies struct {
	Config   *config.Config
	Repo     domain.Repository
	Events   *events.Dispatcher
	Notifier *notify.Fanout
	Logger   *logrus.Logger
	Clock    ucReservation.Clock
}

// NewRouter builds the engine with recovery, request logging and CORS.
func NewRouter(deps Dependencies) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(logging.RequestLogger(deps.Logger))
	r.Use(middleware.CORSMiddleware(deps.Config.CORSOrigins))

	RegisterRoutes(r, deps)
	return r
}

func RegisterRoutes(r *gin.Engine, deps Dependencies) {
	cfg := deps.Config

	if err := validators.Register(); err != nil {
		deps.Logger.WithError(err).Fatal("failed to register validators")
	}

	// ======================================================
	// USE CASES
	// ======================================================
	createUC := ucReservation.NewCreateReservation(deps.Repo, deps.Events, cfg.Timezone)
	startUC := ucReservation.NewStartReservation(deps.Repo, deps.Events, deps.Clock)
	cancelUC := ucReservation.NewCancelReservation(deps.Repo, deps.Events, deps.Clock)
	listUC := ucReservation.NewListReservations(deps.Repo, cfg.Timezone)
	getUC := ucReservation.NewGetReservation(deps.Repo)

	tableStatusUC := ucReservation.NewGetTableStatus(deps.Repo, cfg.Timezone, deps.Clock)
	availabilityUC := ucReservation.NewCheckAvailability(deps.Repo, cfg.Timezone)
	addTableUC := ucReservation.NewAddTable(deps.Repo)
	archiveUC := ucReservation.NewListArchive(deps.Repo, cfg.Timezone)

	expireUC := ucReservation.NewExpireReservations(
		deps.Repo,
		deps.Events,
		deps.Logger,
		deps.Clock,
		cfg.ExpireBatchSize,
	)
	notifyUC := ucReservation.NewSweepDueSoon(
		deps.Repo,
		deps.Notifier,
		deps.Logger,
		deps.Clock,
	)

	// ======================================================
	// HANDLERS
	// ======================================================
	reservationHandler := handlers.NewReservationHandler(
		createUC,
		startUC,
		cancelUC,
		listUC,
		getUC,
		deps.Logger,
	)
	tableHandler := handlers.NewTableHandler(
		deps.Repo,
		tableStatusUC,
		availabilityUC,
		addTableUC,
		deps.Logger,
	)
	archiveHandler := handlers.NewArchiveHandler(archiveUC, deps.Logger)
	cronHandler := handlers.NewCronHandler(
		expireUC,
		notifyUC,
		cfg.NotifyWindowMinutes,
		cfg.NotifyGraceMinutes,
		deps.Logger,
	)

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	// ======================================================
	// API (JSON)
	// ======================================================
	api := r.Group("/api")
	{
		// ------------------------------
		// CRON
		// ------------------------------
		cron := api.Group("/cron")
		cron.Use(middleware.CronAuth(cfg))
		{
			cron.POST("/expire", cronHandler.Expire)
			cron.POST("/notify", cronHandler.Notify)
		}

		secured := api.Group("/")
		secured.Use(middleware.AuthMiddleware(cfg))
		{
			// ------------------------------
			// RESERVATIONS
			// ------------------------------
			secured.POST("/reservations", reservationHandler.Create)
			secured.GET("/reservations", reservationHandler.List)
			secured.GET("/reservations/:id", reservationHandler.Get)
			secured.POST("/reservations/:id/start", reservationHandler.Start)
			secured.POST("/reservations/:id/cancel", reservationHandler.Cancel)
			secured.DELETE("/reservations/:id", reservationHandler.Cancel)

			// ------------------------------
			// TABLES
			// ------------------------------
			secured.GET("/tables", tableHandler.List)
			secured.POST("/tables", tableHandler.Add)
			secured.GET("/tables/status", tableHandler.Status)
			secured.GET("/tables/available", tableHandler.Available)

			secured.GET("/archive", archiveHandler.List)
		}
	}
}
