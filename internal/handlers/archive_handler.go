package handlers

import (
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/BruksfildServices01/table-reservations/internal/dto"
	"github.com/BruksfildServices01/table-reservations/internal/httperr"
	"github.com/BruksfildServices01/table-reservations/internal/httpresp"
	ucReservation "github.com/BruksfildServices01/table-reservations/internal/usecase/reservation"
)

type ArchiveHandler struct {
	list   *ucReservation.ListArchive
	logger *logrus.Logger
}

func NewArchiveHandler(list *ucReservation.ListArchive, logger *logrus.Logger) *ArchiveHandler {
	return &ArchiveHandler{list: list, logger: logger}
}

// List serves GET /api/archive?table_id=&from=&to=&page=&limit=
func (h *ArchiveHandler) List(c *gin.Context) {
	in := ucReservation.ListArchiveInput{
		From: c.Query("from"),
		To:   c.Query("to"),
	}

	if raw := c.Query("table_id"); raw != "" {
		id, err := strconv.ParseUint(raw, 10, 64)
		if err != nil {
			httperr.BadRequest(c, "invalid_id", "Invalid id.")
			return
		}
		tableID := uint(id)
		in.TableID = &tableID
	}
	in.Page, _ = strconv.Atoi(c.Query("page"))
	in.Limit, _ = strconv.Atoi(c.Query("limit"))

	out, err := h.list.Execute(c.Request.Context(), in)
	if err != nil {
		respondError(c, h.logger, "ListArchive", err)
		return
	}
	httpresp.Page(c, dto.Archive(out.Items), out.Total, out.Page, out.Limit)
}
