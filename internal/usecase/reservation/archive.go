package reservation

import (
	"context"
	"time"

	domain "github.com/BruksfildServices01/table-reservations/internal/domain/reservation"
	"github.com/BruksfildServices01/table-reservations/internal/models"
)

// appendArchive is the only writer of the archive. tx must be the same
// transaction that deletes the reservation.
func appendArchive(
	ctx context.Context,
	tx domain.Repository,
	snapshot *models.Reservation,
	reason models.ArchiveReason,
	deletedBy string,
	note *string,
	at time.Time,
) (*models.ReservationArchive, error) {

	row := domain.Snapshot(snapshot, reason, deletedBy, normalizeNote(note), at)
	if err := tx.AppendArchive(ctx, row); err != nil {
		return nil, err
	}
	return row, nil
}

func normalizeNote(note *string) *string {
	if note == nil || *note == "" {
		return nil
	}
	return note
}
