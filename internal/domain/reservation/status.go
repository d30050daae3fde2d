package reservation

import (
	"time"

	"github.com/BruksfildServices01/table-reservations/internal/httperr"
	"github.com/BruksfildServices01/table-reservations/internal/models"
)

// ===============================
// Validations
// ===============================

// InitialStatus validates the status a reservation may be created with.
// Empty means reserved.
func InitialStatus(requested string) (models.ReservationStatus, error) {
	switch models.ReservationStatus(requested) {
	case "":
		return models.ReservationReserved, nil
	case models.ReservationReserved, models.ReservationOccupied:
		return models.ReservationStatus(requested), nil
	default:
		return "", httperr.ErrValidation("invalid_status")
	}
}

// ShouldFreeTable decides, after a reservation left the store, whether its
// table goes back to available. A table seated by a started reservation is
// left alone while its hold runs, unless the removed row was the one holding it.
func ShouldFreeTable(
	t *models.Table,
	removed models.ReservationStatus,
	remainingActive int64,
	now time.Time,
) bool {
	if remainingActive > 0 {
		return false
	}
	if t.Status == models.TableAvailable && t.Guest == "" {
		return false
	}
	if t.Status == models.TableOccupied && removed != models.ReservationOccupied {
		if t.OccupiedUntil == nil || t.OccupiedUntil.After(now) {
			return false
		}
	}
	return true
}

// OccupancyElapsed reports whether a seated table's hold has run out.
func OccupancyElapsed(t *models.Table, now time.Time) bool {
	return t.Status == models.TableOccupied &&
		t.OccupiedUntil != nil &&
		!t.OccupiedUntil.After(now)
}
