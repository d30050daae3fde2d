package reservation

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	domain "github.com/BruksfildServices01/table-reservations/internal/domain/reservation"
	"github.com/BruksfildServices01/table-reservations/internal/httperr"
	"github.com/BruksfildServices01/table-reservations/internal/models"
)

const (
	DateLayout = "2006-01-02"
	TimeLayout = "15:04"

	AutoExpireActor = "auto-expire"
)

// Clock is injected so sweeps and start can be driven from tests.
type Clock func() time.Time

func systemClock() time.Time { return time.Now() }

func orSystem(c Clock) Clock {
	if c == nil {
		return systemClock
	}
	return c
}

func parseDay(loc *time.Location, date string) (time.Time, error) {
	day, err := time.ParseInLocation(DateLayout, strings.TrimSpace(date), loc)
	if err != nil {
		return time.Time{}, httperr.ErrValidation("invalid_date")
	}
	return day, nil
}

// parseWindow turns a calendar date and HH:MM into [start, start+minutes).
func parseWindow(
	loc *time.Location,
	date string,
	hhmm string,
	minutes int,
) (day, start, end time.Time, err error) {

	day, err = time.ParseInLocation(DateLayout, strings.TrimSpace(date), loc)
	if err != nil {
		return day, start, end, httperr.ErrValidation("invalid_date_or_time")
	}
	start, err = time.ParseInLocation(
		DateLayout+" "+TimeLayout,
		strings.TrimSpace(date)+" "+strings.TrimSpace(hhmm),
		loc,
	)
	if err != nil {
		return day, start, end, httperr.ErrValidation("invalid_date_or_time")
	}

	end = start.Add(time.Duration(minutes) * time.Minute)
	return day, start, end, nil
}

func resolveRequestedDuration(requested *int) (int, error) {
	if requested == nil {
		return domain.DefaultDurationMinutes, nil
	}
	if *requested <= 0 || *requested > domain.MaxDurationMinutes {
		return 0, httperr.ErrValidation("invalid_duration")
	}
	return *requested, nil
}

// priceFor rejects tables priced beyond what the total column can hold.
func priceFor(table *models.Table, minutes int) (decimal.Decimal, error) {
	price := domain.TotalPrice(table.PricePerHour, minutes)
	if price.IsNegative() || price.GreaterThan(domain.MaxTotalPrice) {
		return decimal.Zero, httperr.ErrValidation("invalid_price")
	}
	return price, nil
}

func mapNotFound(err error, code string) error {
	if errors.Is(err, domain.ErrNotFound) {
		return httperr.ErrNotFound(code)
	}
	return err
}

// releaseTable frees the table once nothing keeps it busy. Must run after
// the reservation row is gone, inside the same transaction.
func releaseTable(
	ctx context.Context,
	tx domain.Repository,
	table *models.Table,
	removed models.ReservationStatus,
	now time.Time,
) (bool, error) {

	remaining, err := tx.CountActiveForTable(ctx, table.ID)
	if err != nil {
		return false, err
	}
	if !domain.ShouldFreeTable(table, removed, remaining, now) {
		return false, nil
	}

	if err := tx.UpdateTableOccupancy(ctx, table.ID, models.TableAvailable, "", nil); err != nil {
		return false, err
	}
	table.Status = models.TableAvailable
	table.Guest = ""
	table.OccupiedUntil = nil
	return true, nil
}
