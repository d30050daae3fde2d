package reservation

import (
	"context"

	"github.com/sirupsen/logrus"

	domain "github.com/BruksfildServices01/table-reservations/internal/domain/reservation"
	"github.com/BruksfildServices01/table-reservations/internal/events"
	"github.com/BruksfildServices01/table-reservations/internal/models"
)

const DefaultExpireBatchSize = 1000

type ExpireOutput struct {
	ArchivedCount int `json:"archived_count"`
	DeletedCount  int `json:"deleted_count"`
	TablesFreed   int `json:"tables_freed"`
}

// ExpireReservations archives every active reservation whose window has
// elapsed, as one transaction per batch. Nothing to do is not an error.
type ExpireReservations struct {
	repo      domain.Repository
	events    *events.Dispatcher
	logger    logrus.FieldLogger
	now       Clock
	batchSize int
}

func NewExpireReservations(
	repo domain.Repository,
	ev *events.Dispatcher,
	logger logrus.FieldLogger,
	now Clock,
	batchSize int,
) *ExpireReservations {
	if batchSize <= 0 {
		batchSize = DefaultExpireBatchSize
	}
	return &ExpireReservations{
		repo:      repo,
		events:    ev,
		logger:    logger,
		now:       orSystem(now),
		batchSize: batchSize,
	}
}

func (uc *ExpireReservations) Execute(ctx context.Context) (*ExpireOutput, error) {
	now := uc.now()
	out := &ExpireOutput{}
	var expired []models.Reservation

	err := uc.repo.Transaction(ctx, func(tx domain.Repository) error {
		*out = ExpireOutput{}
		expired = nil

		batch, err := tx.ListExpired(ctx, now, uc.batchSize)
		if err != nil {
			return err
		}

		// removed status per table, occupied wins
		touched := map[uint]models.ReservationStatus{}
		order := make([]uint, 0)

		for i := range batch {
			res := &batch[i]
			note := AutoExpireActor

			if _, err := appendArchive(
				ctx,
				tx,
				res,
				models.ArchiveExpired,
				AutoExpireActor,
				&note,
				now,
			); err != nil {
				return err
			}
			out.ArchivedCount++

			if err := tx.DeleteReservation(ctx, res.ID); err != nil {
				return err
			}
			out.DeletedCount++

			prev, seen := touched[res.TableID]
			if !seen {
				order = append(order, res.TableID)
			}
			if !seen || prev != models.ReservationOccupied {
				touched[res.TableID] = res.Status
			}
		}

		freed := map[uint]bool{}
		for _, tableID := range order {
			table, err := tx.LockTable(ctx, tableID)
			if err != nil {
				return err
			}
			ok, err := releaseTable(ctx, tx, table, touched[tableID], now)
			if err != nil {
				return err
			}
			if ok {
				freed[tableID] = true
			}
		}

		// seated walk-ins whose hold ran out with nothing booked behind them
		elapsed, err := tx.ListOccupancyElapsed(ctx, now)
		if err != nil {
			return err
		}
		for i := range elapsed {
			if freed[elapsed[i].ID] {
				continue
			}
			ok, err := releaseTable(ctx, tx, &elapsed[i], models.ReservationOccupied, now)
			if err != nil {
				return err
			}
			if ok {
				freed[elapsed[i].ID] = true
			}
		}

		out.TablesFreed = len(freed)
		expired = batch
		return nil
	})
	if err != nil {
		return nil, err
	}

	for i := range expired {
		uc.events.Dispatch(events.New(
			events.ReservationExpired,
			expired[i].ID,
			expired[i].TableID,
			AutoExpireActor,
			nil,
		))
	}

	if out.ArchivedCount > 0 || out.TablesFreed > 0 {
		uc.logger.WithFields(logrus.Fields{
			"archived_count": out.ArchivedCount,
			"deleted_count":  out.DeletedCount,
			"tables_freed":   out.TablesFreed,
		}).Info("expired reservations")
	}

	return out, nil
}
