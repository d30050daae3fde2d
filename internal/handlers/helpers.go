package handlers

import (
	"errors"
	"io"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/BruksfildServices01/table-reservations/internal/httperr"
	"github.com/BruksfildServices01/table-reservations/internal/logging"
)

// respondError logs by kind and writes the matching response. Business
// outcomes (validation, not found, conflict) are not errors of the service.
func respondError(c *gin.Context, logger *logrus.Logger, funcName string, err error) {
	log := logging.FromContext(c, logger)

	switch httperr.KindOf(err) {
	case httperr.KindInternal:
		logging.LogError(log, "handlers", funcName, c.FullPath(), nil, err)
	case httperr.KindConflict:
		log.WithField("funcName", funcName).Info(err.Error())
	}

	httperr.FromError(c, err)
}

func parseID(c *gin.Context, name string) (uint, bool) {
	id, err := strconv.ParseUint(c.Param(name), 10, 64)
	if err != nil || id == 0 {
		httperr.BadRequest(c, "invalid_id", "Invalid id.")
		return 0, false
	}
	return uint(id), true
}

// bindOptionalJSON accepts an empty body.
func bindOptionalJSON(c *gin.Context, v any) bool {
	if err := c.ShouldBindJSON(v); err != nil && !errors.Is(err, io.EOF) {
		httperr.BadRequest(c, "invalid_request", "Invalid request.")
		return false
	}
	return true
}
