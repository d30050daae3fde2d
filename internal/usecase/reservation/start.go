package reservation

import (
	"context"
	"errors"
	"time"

	"github.com/shopspring/decimal"

	domain "github.com/BruksfildServices01/table-reservations/internal/domain/reservation"
	"github.com/BruksfildServices01/table-reservations/internal/events"
	"github.com/BruksfildServices01/table-reservations/internal/httperr"
	"github.com/BruksfildServices01/table-reservations/internal/models"
)

type StartReservationInput struct {
	ReservationID uint
	Actor         string
	Note          *string
}

type StartReservationOutput struct {
	ReservationID  uint            `json:"reservation_id"`
	TableID        uint            `json:"table_id"`
	TotalPrice     decimal.Decimal `json:"total_price"`
	Start          time.Time       `json:"start"`
	End            time.Time       `json:"end"`
	AlreadyStarted bool            `json:"already_started"`
}

// StartReservation seats the guest: the table becomes occupied until
// now+duration and the booking moves to the archive. Retrying a start that
// already went through returns the same window.
type StartReservation struct {
	repo   domain.Repository
	events *events.Dispatcher
	now    Clock
}

func NewStartReservation(
	repo domain.Repository,
	ev *events.Dispatcher,
	now Clock,
) *StartReservation {
	return &StartReservation{
		repo:   repo,
		events: ev,
		now:    orSystem(now),
	}
}

func (uc *StartReservation) Execute(
	ctx context.Context,
	in StartReservationInput,
) (*StartReservationOutput, error) {

	now := uc.now()
	var out *StartReservationOutput

	err := uc.repo.Transaction(ctx, func(tx domain.Repository) error {
		res, err := tx.LockReservation(ctx, in.ReservationID)
		if errors.Is(err, domain.ErrNotFound) {
			out, err = alreadyStarted(ctx, tx, in.ReservationID)
			return err
		}
		if err != nil {
			return err
		}

		if res.Status == models.ReservationOccupied {
			out = &StartReservationOutput{
				ReservationID:  res.ID,
				TableID:        res.TableID,
				TotalPrice:     res.TotalPrice,
				Start:          res.StartTime,
				End:            domain.EffectiveEnd(res),
				AlreadyStarted: true,
			}
			return nil
		}

		table, err := tx.LockTable(ctx, res.TableID)
		if err != nil {
			return mapNotFound(err, "table_not_found")
		}

		minutes := domain.ResolveDuration(res)
		end := now.Add(time.Duration(minutes) * time.Minute)
		price, err := priceFor(table, minutes)
		if err != nil {
			return err
		}

		if err := tx.UpdateTableOccupancy(
			ctx,
			table.ID,
			models.TableOccupied,
			res.Guest,
			&end,
		); err != nil {
			return err
		}

		snap := *res
		snap.Status = models.ReservationOccupied
		snap.StartTime = now
		snap.EndTime = &end
		snap.DurationMinutes = minutes
		snap.TotalPrice = price

		if _, err := appendArchive(
			ctx,
			tx,
			&snap,
			models.ArchiveStarted,
			in.Actor,
			in.Note,
			now,
		); err != nil {
			return err
		}

		if err := tx.DeleteReservation(ctx, res.ID); err != nil {
			return err
		}

		out = &StartReservationOutput{
			ReservationID: res.ID,
			TableID:       table.ID,
			TotalPrice:    price,
			Start:         now,
			End:           end,
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	if !out.AlreadyStarted {
		uc.events.Dispatch(events.New(
			events.ReservationStarted,
			out.ReservationID,
			out.TableID,
			in.Actor,
			out,
		))
	}

	return out, nil
}

// alreadyStarted answers a retried start from the archive row it left.
func alreadyStarted(
	ctx context.Context,
	tx domain.Repository,
	reservationID uint,
) (*StartReservationOutput, error) {

	row, err := tx.GetArchiveByReservation(ctx, reservationID)
	if err != nil {
		return nil, mapNotFound(err, "reservation_not_found")
	}
	if row.Reason != models.ArchiveStarted {
		return nil, httperr.ErrNotFound("reservation_not_found")
	}

	end := row.StartTime.Add(time.Duration(row.DurationMinutes) * time.Minute)
	if row.EndTime != nil {
		end = *row.EndTime
	}

	return &StartReservationOutput{
		ReservationID:  row.ReservationID,
		TableID:        row.TableID,
		TotalPrice:     row.TotalPrice,
		Start:          row.StartTime,
		End:            end,
		AlreadyStarted: true,
	}, nil
}
