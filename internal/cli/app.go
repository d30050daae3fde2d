package cli

import (
	"errors"
	"os"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"github.com/BruksfildServices01/table-reservations/internal/config"
	dbpkg "github.com/BruksfildServices01/table-reservations/internal/db"
	domain "github.com/BruksfildServices01/table-reservations/internal/domain/reservation"
	"github.com/BruksfildServices01/table-reservations/internal/events"
	"github.com/BruksfildServices01/table-reservations/internal/infra/repository"
	"github.com/BruksfildServices01/table-reservations/internal/logging"
	"github.com/BruksfildServices01/table-reservations/internal/notify"
	"github.com/BruksfildServices01/table-reservations/internal/scheduler"
	"github.com/BruksfildServices01/table-reservations/internal/timezone"
)

const StoreMemory = "memory"

// app holds the process wide wiring shared by every command.
type app struct {
	cfg    *config.Config
	logger *logrus.Logger

	db   *gorm.DB
	repo domain.Repository

	broker   *events.AMQPPublisher
	events   *events.Dispatcher
	notifier *notify.Fanout

	redis  *redis.Client
	locker scheduler.Locker
}

func newApp() (*app, error) {
	cfg := config.Load()
	logger := logging.NewWithOutput(cfg.LogLevel, os.Stderr)

	if !timezone.IsValid(cfg.Timezone) {
		logger.WithField("timezone", cfg.Timezone).Warn("unknown timezone, falling back to UTC")
		cfg.Timezone = timezone.DefaultTimezone
	}

	a := &app{cfg: cfg, logger: logger}

	if cfg.Store == StoreMemory {
		a.repo = repository.NewMemoryRepository()
	} else {
		db, err := dbpkg.NewDB(cfg)
		if err != nil {
			return nil, err
		}
		a.db = db
		a.repo = repository.NewReservationGormRepository(db, cfg.TxTimeout)
	}

	var pub events.Publisher = events.LogPublisher{Logger: logger}
	if cfg.AMQPURL != "" {
		broker, err := events.DialAMQP(cfg.AMQPURL, events.DefaultExchange)
		if err != nil {
			a.Close()
			return nil, err
		}
		a.broker = broker
		pub = broker
	}
	a.events = events.NewDispatcher(pub, logger, 0)

	var channels []notify.Channel
	if cfg.WebhookURL != "" {
		channels = append(channels, notify.NewWebhook(cfg.WebhookURL, cfg.WebhookSecret, nil))
	}
	if a.broker != nil {
		channels = append(channels, notify.NewAMQP(a.broker))
	}
	if cfg.EmailEnabled() {
		channels = append(channels, notify.NewEmail(cfg.SMTPAddr, cfg.SMTPUser, cfg.SMTPPassword, cfg.EmailFrom, cfg.EmailTo))
	}
	a.notifier = notify.NewFanout(channels...)

	if cfg.RedisAddr != "" {
		a.redis = redis.NewClient(&redis.Options{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
		})
		a.locker = scheduler.NewRedisLocker(a.redis)
	} else {
		a.locker = scheduler.NewLocalLocker()
	}

	logger.WithFields(logrus.Fields{
		"store":    cfg.Store,
		"channels": a.notifier.Len(),
		"broker":   a.broker != nil,
		"redis":    a.redis != nil,
	}).Debug("app wired")

	return a, nil
}

func (a *app) now() time.Time {
	return time.Now().UTC()
}

func (a *app) migrate() error {
	if a.db == nil {
		return errors.New("migrate needs the postgres store")
	}
	return dbpkg.Migrate(a.db)
}

func (a *app) Close() {
	if a.events != nil {
		a.events.Close()
	}
	if a.broker != nil {
		if err := a.broker.Close(); err != nil {
			a.logger.WithError(err).Warn("failed to close broker")
		}
	}
	if a.redis != nil {
		_ = a.redis.Close()
	}
	if a.db != nil {
		if sqlDB, err := a.db.DB(); err == nil {
			_ = sqlDB.Close()
		}
	}
}
