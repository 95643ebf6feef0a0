package handler

import (
	"errors"
	"log"

	"github.com/gin-gonic/gin"

	"github.com/James-Fry-2/train-data-api/internal/journey"
	"github.com/James-Fry-2/train-data-api/internal/models"
	"github.com/James-Fry-2/train-data-api/pkg/response"
)

// writeError maps domain errors onto the response envelope
func writeError(c *gin.Context, err error) {
	switch {
	case models.IsInputError(err):
		response.BadRequest(c, err.Error())
	case errors.Is(err, models.ErrInvalidStationCode):
		response.BadRequest(c, err.Error())
	case errors.Is(err, models.ErrNotFound):
		response.NotFound(c, err.Error())
	case errors.Is(err, journey.ErrCollectionInactive):
		response.Conflict(c, err.Error())
	default:
		log.Printf("[Handler] %s %s failed: %v", c.Request.Method, c.FullPath(), err)
		response.InternalError(c, "internal error")
	}
}
