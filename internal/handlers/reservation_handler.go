package handlers

import (
	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/BruksfildServices01/table-reservations/internal/dto"
	"github.com/BruksfildServices01/table-reservations/internal/httperr"
	"github.com/BruksfildServices01/table-reservations/internal/httpresp"
	"github.com/BruksfildServices01/table-reservations/internal/middleware"
	ucReservation "github.com/BruksfildServices01/table-reservations/internal/usecase/reservation"
)

// ======================================================
// HANDLER
// ======================================================

type ReservationHandler struct {
	create *ucReservation.CreateReservation
	start  *ucReservation.StartReservation
	cancel *ucReservation.CancelReservation
	list   *ucReservation.ListReservations
	get    *ucReservation.GetReservation
	logger *logrus.Logger
}

func NewReservationHandler(
	create *ucReservation.CreateReservation,
	start *ucReservation.StartReservation,
	cancel *ucReservation.CancelReservation,
	list *ucReservation.ListReservations,
	get *ucReservation.GetReservation,
	logger *logrus.Logger,
) *ReservationHandler {
	return &ReservationHandler{
		create: create,
		start:  start,
		cancel: cancel,
		list:   list,
		get:    get,
		logger: logger,
	}
}

// ======================================================
// REQUESTS
// ======================================================

type CreateReservationRequest struct {
	TableID         *uint  `json:"table_id"`
	Date            string `json:"date" binding:"required,isodate"`
	StartTime       string `json:"start_time" binding:"required,hhmm"`
	DurationMinutes *int   `json:"duration_minutes"`
	PartySize       int    `json:"party_size"`
	Guest           string `json:"guest"`
	Status          string `json:"status"`
}

type TransitionRequest struct {
	Note *string `json:"note"`
}

// ======================================================
// CREATE
// ======================================================

func (h *ReservationHandler) Create(c *gin.Context) {
	var req CreateReservationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httperr.BadRequest(c, "invalid_request", "Invalid request.")
		return
	}

	out, err := h.create.Execute(c.Request.Context(), ucReservation.CreateReservationInput{
		TableID:         req.TableID,
		Date:            req.Date,
		StartTime:       req.StartTime,
		DurationMinutes: req.DurationMinutes,
		PartySize:       req.PartySize,
		Guest:           req.Guest,
		Status:          req.Status,
		Actor:           middleware.Actor(c),
	})
	if err != nil {
		respondError(c, h.logger, "CreateReservation", err)
		return
	}

	httpresp.Created(c, gin.H{
		"id":          out.ID,
		"table_id":    out.TableID,
		"start":       out.Start,
		"end":         out.End,
		"status":      out.Status,
		"total_price": out.TotalPrice.StringFixed(2),
	})
}

// ======================================================
// START
// ======================================================

func (h *ReservationHandler) Start(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}

	var req TransitionRequest
	if !bindOptionalJSON(c, &req) {
		return
	}

	out, err := h.start.Execute(c.Request.Context(), ucReservation.StartReservationInput{
		ReservationID: id,
		Actor:         middleware.Actor(c),
		Note:          req.Note,
	})
	if err != nil {
		respondError(c, h.logger, "StartReservation", err)
		return
	}

	httpresp.OK(c, gin.H{
		"reservation_id":  out.ReservationID,
		"table_id":        out.TableID,
		"total_price":     out.TotalPrice.StringFixed(2),
		"start":           out.Start,
		"end":             out.End,
		"already_started": out.AlreadyStarted,
	})
}

// ======================================================
// CANCEL
// ======================================================

func (h *ReservationHandler) Cancel(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}

	var req TransitionRequest
	if !bindOptionalJSON(c, &req) {
		return
	}

	out, err := h.cancel.Execute(c.Request.Context(), ucReservation.CancelReservationInput{
		ReservationID: id,
		Actor:         middleware.Actor(c),
		Note:          req.Note,
	})
	if err != nil {
		respondError(c, h.logger, "CancelReservation", err)
		return
	}

	httpresp.OK(c, out)
}

// ======================================================
// READ
// ======================================================

func (h *ReservationHandler) List(c *gin.Context) {
	list, err := h.list.Execute(c.Request.Context(), c.Query("date"))
	if err != nil {
		respondError(c, h.logger, "ListReservations", err)
		return
	}
	httpresp.List(c, dto.Reservations(list))
}

func (h *ReservationHandler) Get(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}

	res, err := h.get.Execute(c.Request.Context(), id)
	if err != nil {
		respondError(c, h.logger, "GetReservation", err)
		return
	}
	httpresp.OK(c, dto.Reservation(res))
}
