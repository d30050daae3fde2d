package models

import (
	"errors"
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

type ArchiveReason string

const (
	ArchiveStarted   ArchiveReason = "started"
	ArchiveCancelled ArchiveReason = "cancelled"
	ArchiveExpired   ArchiveReason = "expired"
)

var ErrArchiveImmutable = errors.New("reservation archive rows are immutable")

// ReservationArchive is the snapshot of a reservation taken when it left the
// active store.
type ReservationArchive struct {
	ID            uint `gorm:"primaryKey" json:"id"`
	ReservationID uint `gorm:"not null;uniqueIndex" json:"reservation_id"`
	TableID       uint `gorm:"not null;index" json:"table_id"`

	Date            time.Time         `gorm:"type:date;not null" json:"date"`
	StartTime       time.Time         `gorm:"not null" json:"start"`
	EndTime         *time.Time        `json:"end"`
	DurationMinutes int               `json:"duration_minutes"`
	PartySize       int               `json:"party_size"`
	Guest           string            `gorm:"size:100" json:"guest"`
	Status          ReservationStatus `gorm:"size:20;not null" json:"status"`
	TotalPrice      decimal.Decimal   `gorm:"type:numeric(12,2);not null;default:0" json:"total_price"`
	NotifiedAt      *time.Time        `json:"notified_at"`

	ReservationCreatedAt time.Time `json:"reservation_created_at"`
	ReservationUpdatedAt time.Time `json:"reservation_updated_at"`

	Reason       ArchiveReason `gorm:"size:20;not null;index" json:"reason"`
	DeletedAt    time.Time     `gorm:"not null;index" json:"deleted_at"`
	DeletedBy    string        `gorm:"size:100;not null" json:"deleted_by"`
	DeletionNote *string       `gorm:"size:255" json:"deletion_note"`
}

func (ReservationArchive) TableName() string {
	return "reservations_archive"
}

func (a *ReservationArchive) BeforeUpdate(*gorm.DB) error {
	return ErrArchiveImmutable
}

func (a *ReservationArchive) BeforeDelete(*gorm.DB) error {
	return ErrArchiveImmutable
}
