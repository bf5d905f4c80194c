package handlers

import (
	"errors"

	"github.com/gin-gonic/gin"

	"clinic-scheduler-server/internal/scheduling"
	"clinic-scheduler-server/internal/utils"
)

// respondSchedulingError maps the scheduling error taxonomy onto the
// standard response envelope. Anything unrecognized is a 500.
func respondSchedulingError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, scheduling.ErrNotFound):
		utils.NotFound(c, err.Error())
	case errors.Is(err, scheduling.ErrInvalidTimeRange),
		errors.Is(err, scheduling.ErrInvalidWeekday),
		errors.Is(err, scheduling.ErrOutsideAvailability):
		utils.BadRequest(c, err.Error())
	case errors.Is(err, scheduling.ErrProviderConflict),
		errors.Is(err, scheduling.ErrPatientConflict),
		errors.Is(err, scheduling.ErrInvalidTransition),
		errors.Is(err, scheduling.ErrConsultationAlreadyExists):
		utils.Conflict(c, err.Error())
	default:
		utils.InternalServerError(c, "Unexpected error: "+err.Error())
	}
}
