package reservation

import (
	"context"
	"strings"

	"github.com/shopspring/decimal"

	domain "github.com/BruksfildServices01/table-reservations/internal/domain/reservation"
	"github.com/BruksfildServices01/table-reservations/internal/httperr"
	"github.com/BruksfildServices01/table-reservations/internal/models"
)

type AddTableInput struct {
	Name         string
	Seats        int
	PricePerHour decimal.Decimal
}

// AddTable registers a table. Tables are never deleted.
type AddTable struct {
	repo domain.Repository
}

func NewAddTable(repo domain.Repository) *AddTable {
	return &AddTable{repo: repo}
}

func (uc *AddTable) Execute(ctx context.Context, in AddTableInput) (*models.Table, error) {
	name := strings.TrimSpace(in.Name)
	if name == "" {
		return nil, httperr.ErrValidation("invalid_request")
	}
	if in.Seats <= 0 {
		return nil, httperr.ErrValidation("invalid_seats")
	}
	if !domain.PricePerHourInRange(in.PricePerHour) {
		return nil, httperr.ErrValidation("invalid_price")
	}

	t := &models.Table{
		Name:         name,
		Seats:        in.Seats,
		Status:       models.TableAvailable,
		PricePerHour: in.PricePerHour.Round(2),
	}
	if err := uc.repo.CreateTable(ctx, t); err != nil {
		return nil, err
	}
	return t, nil
}
