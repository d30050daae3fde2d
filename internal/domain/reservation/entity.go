package reservation

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/BruksfildServices01/table-reservations/internal/models"
)

const (
	DefaultDurationMinutes = 90
	MaxDurationMinutes     = 24 * 60
)

// Money columns are numeric(12,2).
var (
	MaxPricePerHour = decimal.RequireFromString("99999999.99")
	MaxTotalPrice   = decimal.RequireFromString("9999999999.99")
)

// Overlaps reports whether [s1,e1) and [s2,e2) intersect.
func Overlaps(s1, e1, s2, e2 time.Time) bool {
	return !(!e1.After(s2) || !s1.Before(e2))
}

// TotalPrice is price_per_hour * minutes / 60 rounded to cents.
func TotalPrice(pricePerHour decimal.Decimal, durationMinutes int) decimal.Decimal {
	return pricePerHour.
		Mul(decimal.NewFromInt(int64(durationMinutes))).
		Div(decimal.NewFromInt(60)).
		Round(2)
}

// PricePerHourInRange keeps a day's worth of bookings inside the money column.
func PricePerHourInRange(p decimal.Decimal) bool {
	return !p.IsNegative() && p.LessThanOrEqual(MaxPricePerHour)
}

// ResolveDuration picks the stored duration, then the stored window, then
// the default.
func ResolveDuration(r *models.Reservation) int {
	if r.DurationMinutes > 0 {
		return r.DurationMinutes
	}
	if r.EndTime != nil && r.EndTime.After(r.StartTime) {
		return int(r.EndTime.Sub(r.StartTime) / time.Minute)
	}
	return DefaultDurationMinutes
}

// EffectiveEnd is end_time, or start + duration for rows without one.
func EffectiveEnd(r *models.Reservation) time.Time {
	if r.EndTime != nil {
		return *r.EndTime
	}
	return r.StartTime.Add(time.Duration(ResolveDuration(r)) * time.Minute)
}

// ConflictDetail is what a caller receives for each overlapping reservation.
type ConflictDetail struct {
	ID      uint                     `json:"id"`
	TableID uint                     `json:"table_id"`
	Guest   string                   `json:"guest"`
	Start   time.Time                `json:"start"`
	End     time.Time                `json:"end"`
	Status  models.ReservationStatus `json:"status"`
}

func ConflictDetails(rs []models.Reservation) []ConflictDetail {
	out := make([]ConflictDetail, 0, len(rs))
	for i := range rs {
		out = append(out, ConflictDetail{
			ID:      rs[i].ID,
			TableID: rs[i].TableID,
			Guest:   rs[i].Guest,
			Start:   rs[i].StartTime,
			End:     EffectiveEnd(&rs[i]),
			Status:  rs[i].Status,
		})
	}
	return out
}

// Snapshot copies a reservation into an archive row.
func Snapshot(
	r *models.Reservation,
	reason models.ArchiveReason,
	deletedBy string,
	note *string,
	at time.Time,
) *models.ReservationArchive {
	return &models.ReservationArchive{
		ReservationID:        r.ID,
		TableID:              r.TableID,
		Date:                 r.Date,
		StartTime:            r.StartTime,
		EndTime:              r.EndTime,
		DurationMinutes:      r.DurationMinutes,
		PartySize:            r.PartySize,
		Guest:                r.Guest,
		Status:               r.Status,
		TotalPrice:           r.TotalPrice,
		NotifiedAt:           r.NotifiedAt,
		ReservationCreatedAt: r.CreatedAt,
		ReservationUpdatedAt: r.UpdatedAt,
		Reason:               reason,
		DeletedAt:            at,
		DeletedBy:            deletedBy,
		DeletionNote:         note,
	}
}
