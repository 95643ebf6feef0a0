package handler

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/James-Fry-2/train-data-api/internal/middleware"
	"github.com/James-Fry-2/train-data-api/internal/models"
	"github.com/James-Fry-2/train-data-api/pkg/response"
)

// JourneyService is the journey pipeline as seen by the HTTP layer
type JourneyService interface {
	ProcessLocationUpdate(ctx context.Context, userID string, sample models.LocationSample) (*models.JourneyStatus, error)
	StartMotionCollection(userID string)
	StopMotionCollection(userID string)
	AddMotionSamples(userID string, samples []models.AccelSample) (int, error)
	GetCurrentJourney(userID string) (*models.JourneyStatus, bool)
	EndSession(userID string) bool
	MatchJourney(ctx context.Context, userID, originID, destinationID string) (*models.MatchResult, error)
	GetUserStationVisits(ctx context.Context, userID string, limit int) ([]models.StationVisit, error)
	GetUserServiceHistory(ctx context.Context, userID string, filter models.ServiceHistoryFilter) ([]models.ServiceUsage, error)
}

// JourneyHandler handles HTTP requests for journey detection
type JourneyHandler struct {
	journeys JourneyService
}

// NewJourneyHandler creates a new journey handler
func NewJourneyHandler(journeys JourneyService) *JourneyHandler {
	return &JourneyHandler{journeys: journeys}
}

// LocationRequest is the body of a location update
type LocationRequest struct {
	Latitude  *float64   `json:"latitude"`
	Longitude *float64   `json:"longitude"`
	Timestamp *time.Time `json:"timestamp"`
	Speed     *float64   `json:"speed"` // m/s
}

// MotionSamplesRequest is a batch of accelerometer readings
type MotionSamplesRequest struct {
	Samples []models.AccelSample `json:"samples"`
}

// MatchRequest names two stored visits bounding a journey
type MatchRequest struct {
	OriginVisitID      string `json:"originVisitId"`
	DestinationVisitID string `json:"destinationVisitId"`
}

// PostLocation handles POST /api/v1/journey/location
func (h *JourneyHandler) PostLocation(c *gin.Context) {
	var req LocationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "Invalid request body")
		return
	}
	if req.Latitude == nil || req.Longitude == nil {
		response.BadRequest(c, "latitude and longitude are required")
		return
	}

	sample := models.LocationSample{
		Latitude:  *req.Latitude,
		Longitude: *req.Longitude,
		Speed:     req.Speed,
	}
	if req.Timestamp != nil {
		sample.Timestamp = req.Timestamp.UTC()
	}

	status, err := h.journeys.ProcessLocationUpdate(c.Request.Context(), middleware.UserID(c), sample)
	if err != nil {
		writeError(c, err)
		return
	}

	response.Success(c, status)
}

// StartMotion handles POST /api/v1/journey/motion/start
func (h *JourneyHandler) StartMotion(c *gin.Context) {
	h.journeys.StartMotionCollection(middleware.UserID(c))
	response.Success(c, gin.H{"collecting": true})
}

// StopMotion handles POST /api/v1/journey/motion/stop
func (h *JourneyHandler) StopMotion(c *gin.Context) {
	h.journeys.StopMotionCollection(middleware.UserID(c))
	response.Success(c, gin.H{"collecting": false})
}

// PostMotionSamples handles POST /api/v1/journey/motion/samples
func (h *JourneyHandler) PostMotionSamples(c *gin.Context) {
	var req MotionSamplesRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "Invalid request body")
		return
	}

	buffered, err := h.journeys.AddMotionSamples(middleware.UserID(c), req.Samples)
	if err != nil {
		writeError(c, err)
		return
	}

	response.Success(c, gin.H{"buffered": buffered})
}

// GetCurrent handles GET /api/v1/journey/current
func (h *JourneyHandler) GetCurrent(c *gin.Context) {
	status, ok := h.journeys.GetCurrentJourney(middleware.UserID(c))
	if !ok {
		response.NotFound(c, "No active journey")
		return
	}

	response.Success(c, status)
}

// EndSession handles DELETE /api/v1/journey/session
func (h *JourneyHandler) EndSession(c *gin.Context) {
	if !h.journeys.EndSession(middleware.UserID(c)) {
		response.NotFound(c, "No active session")
		return
	}

	c.Status(http.StatusNoContent)
}

// GetVisits handles GET /api/v1/journey/visits
func (h *JourneyHandler) GetVisits(c *gin.Context) {
	limit, err := strconv.Atoi(c.DefaultQuery("limit", "50"))
	if err != nil {
		response.BadRequest(c, "Invalid limit parameter")
		return
	}

	visits, err := h.journeys.GetUserStationVisits(c.Request.Context(), middleware.UserID(c), limit)
	if err != nil {
		writeError(c, err)
		return
	}

	response.Success(c, visits)
}

// GetServices handles GET /api/v1/journey/services
func (h *JourneyHandler) GetServices(c *gin.Context) {
	var filter models.ServiceHistoryFilter
	if err := c.ShouldBindQuery(&filter); err != nil {
		response.BadRequest(c, "Invalid query parameters")
		return
	}

	history, err := h.journeys.GetUserServiceHistory(c.Request.Context(), middleware.UserID(c), filter)
	if err != nil {
		writeError(c, err)
		return
	}

	response.Success(c, history)
}

// PostMatch handles POST /api/v1/journey/match
func (h *JourneyHandler) PostMatch(c *gin.Context) {
	var req MatchRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "Invalid request body")
		return
	}

	result, err := h.journeys.MatchJourney(c.Request.Context(), middleware.UserID(c), req.OriginVisitID, req.DestinationVisitID)
	if err != nil {
		writeError(c, err)
		return
	}

	response.Success(c, result)
}
