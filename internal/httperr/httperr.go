package httperr

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
)

type HTTPError struct {
	Code      string `json:"error_code"`
	Message   string `json:"message"`
	Conflicts any    `json:"conflicts,omitempty"`
}

func Write(c *gin.Context, status int, code, message string) {
	c.JSON(status, HTTPError{
		Code:    code,
		Message: message,
	})
}

func BadRequest(c *gin.Context, code, message string) {
	Write(c, http.StatusBadRequest, code, message)
}

func NotFound(c *gin.Context, code, message string) {
	Write(c, http.StatusNotFound, code, message)
}

func Internal(c *gin.Context, code, message string) {
	Write(c, http.StatusInternalServerError, code, message)
}

func Unauthorized(c *gin.Context, code, message string) {
	Write(c, http.StatusUnauthorized, code, message)
}

// FromError writes the response matching err's kind. Internal causes are
// never exposed to the client.
func FromError(c *gin.Context, err error) {
	var be BusinessError
	if !errors.As(err, &be) {
		Internal(c, "internal_error", "Unexpected error.")
		return
	}

	switch be.Kind {
	case KindConflict:
		c.JSON(http.StatusConflict, HTTPError{
			Code:      be.Code,
			Message:   messages[be.Code],
			Conflicts: be.Details,
		})
	default:
		Write(c, StatusOf(err), be.Code, messages[be.Code])
	}
}

var messages = map[string]string{
	"invalid_request":       "Invalid request.",
	"invalid_date":          "Invalid date.",
	"invalid_date_or_time":  "Invalid date or time.",
	"invalid_duration":      "Duration must be between 1 and 1440 minutes.",
	"invalid_party_size":    "Party size must be positive.",
	"invalid_status":        "Status must be reserved or occupied.",
	"invalid_id":            "Invalid id.",
	"invalid_seats":         "Seats must be positive.",
	"invalid_price":         "Price per hour must be between 0 and 99999999.99.",
	"invalid_page":          "Page is out of range.",
	"table_not_found":       "Table not found.",
	"reservation_not_found": "Reservation not found.",
	"time_conflict":         "The requested window overlaps an existing reservation.",
	"no_table_available":    "No table is available for the requested window and party size.",
}
