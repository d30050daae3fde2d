package handlers

import (
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/BruksfildServices01/table-reservations/internal/httpresp"
	ucReservation "github.com/BruksfildServices01/table-reservations/internal/usecase/reservation"
)

// CronHandler lets an external scheduler drive the sweeps.
type CronHandler struct {
	expire *ucReservation.ExpireReservations
	notify *ucReservation.SweepDueSoon

	windowMinutes int
	graceMinutes  int

	logger *logrus.Logger
}

func NewCronHandler(
	expire *ucReservation.ExpireReservations,
	notify *ucReservation.SweepDueSoon,
	windowMinutes int,
	graceMinutes int,
	logger *logrus.Logger,
) *CronHandler {
	return &CronHandler{
		expire:        expire,
		notify:        notify,
		windowMinutes: windowMinutes,
		graceMinutes:  graceMinutes,
		logger:        logger,
	}
}

func (h *CronHandler) Expire(c *gin.Context) {
	out, err := h.expire.Execute(c.Request.Context())
	if err != nil {
		respondError(c, h.logger, "ExpireSweep", err)
		return
	}
	httpresp.OK(c, out)
}

// Notify takes optional window and grace query overrides in minutes.
func (h *CronHandler) Notify(c *gin.Context) {
	in := ucReservation.SweepDueSoonInput{
		WindowMinutes: h.windowMinutes,
		GraceMinutes:  h.graceMinutes,
	}
	if n, err := strconv.Atoi(c.Query("window")); err == nil && n > 0 {
		in.WindowMinutes = n
	}
	if n, err := strconv.Atoi(c.Query("grace")); err == nil && n >= 0 {
		in.GraceMinutes = n
	}

	out, err := h.notify.Execute(c.Request.Context(), in)
	if err != nil {
		respondError(c, h.logger, "NotifySweep", err)
		return
	}
	httpresp.OK(c, out)
}
