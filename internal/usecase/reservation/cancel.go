package reservation

import (
	"context"

	domain "github.com/BruksfildServices01/table-reservations/internal/domain/reservation"
	"github.com/BruksfildServices01/table-reservations/internal/events"
	"github.com/BruksfildServices01/table-reservations/internal/models"
)

type CancelReservationInput struct {
	ReservationID uint
	Actor         string
	Note          *string
}

type CancelReservationOutput struct {
	ReservationID uint `json:"reservation_id"`
	TableID       uint `json:"table_id"`
	Archived      bool `json:"archived"`
	Deleted       bool `json:"deleted"`
	TableFreed    bool `json:"table_freed"`
}

type CancelReservation struct {
	repo   domain.Repository
	events *events.Dispatcher
	now    Clock
}

func NewCancelReservation(
	repo domain.Repository,
	ev *events.Dispatcher,
	now Clock,
) *CancelReservation {
	return &CancelReservation{
		repo:   repo,
		events: ev,
		now:    orSystem(now),
	}
}

func (uc *CancelReservation) Execute(
	ctx context.Context,
	in CancelReservationInput,
) (*CancelReservationOutput, error) {

	now := uc.now()
	var out *CancelReservationOutput

	err := uc.repo.Transaction(ctx, func(tx domain.Repository) error {
		res, err := tx.LockReservation(ctx, in.ReservationID)
		if err != nil {
			return mapNotFound(err, "reservation_not_found")
		}

		table, err := tx.LockTable(ctx, res.TableID)
		if err != nil {
			return mapNotFound(err, "table_not_found")
		}

		snap := *res
		snap.Status = models.ReservationCancelled
		if _, err := appendArchive(
			ctx,
			tx,
			&snap,
			models.ArchiveCancelled,
			in.Actor,
			in.Note,
			now,
		); err != nil {
			return err
		}

		if err := tx.DeleteReservation(ctx, res.ID); err != nil {
			return err
		}

		// after the delete, so the count no longer sees this row
		freed, err := releaseTable(ctx, tx, table, res.Status, now)
		if err != nil {
			return err
		}

		out = &CancelReservationOutput{
			ReservationID: res.ID,
			TableID:       res.TableID,
			Archived:      true,
			Deleted:       true,
			TableFreed:    freed,
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	uc.events.Dispatch(events.New(
		events.ReservationCancelled,
		out.ReservationID,
		out.TableID,
		in.Actor,
		out,
	))

	return out, nil
}
