package handlers

import (
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"

	domain "github.com/BruksfildServices01/table-reservations/internal/domain/reservation"
	"github.com/BruksfildServices01/table-reservations/internal/dto"
	"github.com/BruksfildServices01/table-reservations/internal/httperr"
	"github.com/BruksfildServices01/table-reservations/internal/httpresp"
	ucReservation "github.com/BruksfildServices01/table-reservations/internal/usecase/reservation"
)

type TableHandler struct {
	repo         domain.Repository
	status       *ucReservation.GetTableStatus
	availability *ucReservation.CheckAvailability
	add          *ucReservation.AddTable
	logger       *logrus.Logger
}

func NewTableHandler(
	repo domain.Repository,
	status *ucReservation.GetTableStatus,
	availability *ucReservation.CheckAvailability,
	add *ucReservation.AddTable,
	logger *logrus.Logger,
) *TableHandler {
	return &TableHandler{
		repo:         repo,
		status:       status,
		availability: availability,
		add:          add,
		logger:       logger,
	}
}

type AddTableRequest struct {
	Name         string          `json:"name" binding:"required"`
	Seats        int             `json:"seats" binding:"required,gt=0"`
	PricePerHour decimal.Decimal `json:"price_per_hour"`
}

func (h *TableHandler) Add(c *gin.Context) {
	var req AddTableRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httperr.BadRequest(c, "invalid_request", "Invalid request.")
		return
	}

	t, err := h.add.Execute(c.Request.Context(), ucReservation.AddTableInput{
		Name:         req.Name,
		Seats:        req.Seats,
		PricePerHour: req.PricePerHour,
	})
	if err != nil {
		respondError(c, h.logger, "AddTable", err)
		return
	}
	httpresp.Created(c, dto.Table(t))
}

func (h *TableHandler) List(c *gin.Context) {
	tables, err := h.repo.ListTables(c.Request.Context())
	if err != nil {
		respondError(c, h.logger, "ListTables", err)
		return
	}
	httpresp.List(c, dto.Tables(tables))
}

// Status is the floor view: every table with its occupant and the current or
// next reservation of the day.
func (h *TableHandler) Status(c *gin.Context) {
	list, err := h.status.Execute(c.Request.Context(), c.Query("date"))
	if err != nil {
		respondError(c, h.logger, "GetTableStatus", err)
		return
	}

	out := make([]dto.TableStatusDTO, 0, len(list))
	for i := range list {
		row := dto.TableStatusDTO{TableDTO: dto.Table(&list[i].Table)}
		if list[i].Reservation != nil {
			r := dto.Reservation(list[i].Reservation)
			row.Reservation = &r
		}
		out = append(out, row)
	}
	httpresp.List(c, out)
}

func (h *TableHandler) Available(c *gin.Context) {
	in := ucReservation.AvailabilityInput{
		Date:      c.Query("date"),
		StartTime: c.Query("start_time"),
	}

	if raw := c.Query("duration_minutes"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil {
			httperr.BadRequest(c, "invalid_duration", "Duration must be a positive number of minutes.")
			return
		}
		in.DurationMinutes = &n
	}
	if raw := c.Query("party_size"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil {
			httperr.BadRequest(c, "invalid_party_size", "Party size must be positive.")
			return
		}
		in.PartySize = n
	}

	tables, err := h.availability.Execute(c.Request.Context(), in)
	if err != nil {
		respondError(c, h.logger, "FindAvailableTables", err)
		return
	}
	httpresp.List(c, dto.Tables(tables))
}
