package reservation

import (
	"context"
	"time"

	"github.com/sirupsen/logrus"

	domain "github.com/BruksfildServices01/table-reservations/internal/domain/reservation"
	"github.com/BruksfildServices01/table-reservations/internal/logging"
	"github.com/BruksfildServices01/table-reservations/internal/notify"
)

const (
	DefaultNotifyWindowMinutes = 5
	DefaultNotifyGraceMinutes  = 10

	notifyBatchSize = 500
)

type SweepDueSoonInput struct {
	WindowMinutes int
	GraceMinutes  int
}

type SweepDueSoonOutput struct {
	Candidates int `json:"candidates"`
	Notified   int `json:"notified"`
	Failed     int `json:"failed"`
}

type Deliverer interface {
	Len() int
	Deliver(ctx context.Context, a notify.Alert) (int, error)
}

// SweepDueSoon alerts staff about reservations about to end. A reservation
// is marked only once some channel took the alert, so failed deliveries are
// retried on the next sweep until the reservation leaves the store.
type SweepDueSoon struct {
	repo    domain.Repository
	channel Deliverer
	logger  logrus.FieldLogger
	now     Clock
}

func NewSweepDueSoon(
	repo domain.Repository,
	channel Deliverer,
	logger logrus.FieldLogger,
	now Clock,
) *SweepDueSoon {
	return &SweepDueSoon{
		repo:    repo,
		channel: channel,
		logger:  logger,
		now:     orSystem(now),
	}
}

func (uc *SweepDueSoon) Execute(
	ctx context.Context,
	in SweepDueSoonInput,
) (*SweepDueSoonOutput, error) {

	window := in.WindowMinutes
	if window <= 0 {
		window = DefaultNotifyWindowMinutes
	}
	grace := in.GraceMinutes
	if grace < 0 {
		grace = DefaultNotifyGraceMinutes
	}

	now := uc.now()
	from := now.Add(-time.Duration(grace) * time.Minute)
	to := now.Add(time.Duration(window) * time.Minute)

	due, err := uc.repo.ListDueSoon(ctx, from, to, notifyBatchSize)
	if err != nil {
		return nil, err
	}

	out := &SweepDueSoonOutput{Candidates: len(due)}
	tables := map[uint]string{}

	for i := range due {
		res := &due[i]

		alert := notify.NewAlert(
			res.ID,
			res.TableID,
			res.Guest,
			res.StartTime,
			domain.EffectiveEnd(res),
			now,
		)
		alert.TotalPrice = res.TotalPrice
		alert.TableName = uc.tableName(ctx, tables, res.TableID)

		if uc.channel != nil && uc.channel.Len() > 0 {
			delivered, err := uc.channel.Deliver(ctx, alert)
			if err != nil {
				logging.LogError(uc.logger, "reservation", "SweepDueSoon", "deliver alert", res.ID, err)
			}
			if delivered == 0 {
				out.Failed++
				continue
			}
		}

		marked, err := uc.repo.MarkNotified(ctx, res.ID, now)
		if err != nil {
			logging.LogError(uc.logger, "reservation", "SweepDueSoon", "mark notified", res.ID, err)
			out.Failed++
			continue
		}
		if marked {
			out.Notified++
		}
	}

	if out.Candidates > 0 {
		uc.logger.WithFields(logrus.Fields{
			"candidates": out.Candidates,
			"notified":   out.Notified,
			"failed":     out.Failed,
		}).Info("due-soon sweep")
	}

	return out, nil
}

func (uc *SweepDueSoon) tableName(ctx context.Context, cache map[uint]string, id uint) string {
	if name, ok := cache[id]; ok {
		return name
	}
	name := ""
	if t, err := uc.repo.GetTable(ctx, id); err == nil {
		name = t.Name
	}
	cache[id] = name
	return name
}
